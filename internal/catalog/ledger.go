package catalog

import (
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/openretail/proshop/internal/domain"
)

// Ledger exposes atomic stock movements. Decrement and Increment take the
// enclosing transaction handle: a sale's stock movement must commit or abort
// together with the sale rows, never standalone.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Decrement reduces a product's on-hand stock by qty with a non-negative
// floor. The guard lives in the UPDATE's WHERE clause, so two concurrent
// commits can never both pass the floor check for the same row.
func (l *Ledger) Decrement(tx *gorm.DB, productID int64, qty int) error {
	if qty <= 0 {
		return ErrValidation{Field: "quantity", Reason: "must be >= 1"}
	}
	res := tx.Model(&domain.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", qty),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "decrement stock")
	}
	if res.RowsAffected == 0 {
		var p domain.Product
		err := tx.Select("id", "stock").First(&p, "id = ?", productID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound{ProductID: productID}
		}
		if err != nil {
			return pkgerrors.Wrap(err, "read stock")
		}
		return ErrInsufficientStock{ProductID: productID, Requested: qty, Available: p.Stock}
	}
	return nil
}

// Increment raises a product's on-hand stock by qty (restock/adjustment path).
func (l *Ledger) Increment(tx *gorm.DB, productID int64, qty int) error {
	if qty <= 0 {
		return ErrValidation{Field: "quantity", Reason: "must be >= 1"}
	}
	res := tx.Model(&domain.Product{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock + ?", qty),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "increment stock")
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound{ProductID: productID}
	}
	return nil
}
