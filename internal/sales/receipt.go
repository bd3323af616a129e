package sales

import (
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/openretail/proshop/internal/domain"
)

// ReceiptPrefix is prepended to every receipt id.
const ReceiptPrefix = "R"

// allocReceiptID reserves the next receipt number for the given day inside
// the caller's transaction. The counter UPDATE takes a row lock on postgres
// and serializes on sqlite's single writer, so concurrent commits observe
// strictly increasing, never-reused numbers. An insert race on a day's first
// sale surfaces as a commit conflict and is retried by the caller.
func allocReceiptID(tx *gorm.DB, now time.Time) (string, error) {
	day := now.Format("20060102")

	res := tx.Model(&domain.ReceiptSequence{}).
		Where("day = ?", day).
		Update("counter", gorm.Expr("counter + 1"))
	if res.Error != nil {
		return "", pkgerrors.Wrap(res.Error, "advance receipt sequence")
	}
	if res.RowsAffected == 0 {
		if err := tx.Create(&domain.ReceiptSequence{Day: day, Counter: 1}).Error; err != nil {
			return "", pkgerrors.Wrap(ErrCommitConflict, err.Error())
		}
	}

	var seq domain.ReceiptSequence
	if err := tx.First(&seq, "day = ?", day).Error; err != nil {
		return "", pkgerrors.Wrap(err, "read receipt sequence")
	}
	return fmt.Sprintf("%s%s-%04d", ReceiptPrefix, day, seq.Counter), nil
}
