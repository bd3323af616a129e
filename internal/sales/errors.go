package sales

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrEmptyCart rejects a checkout with no line items.
	ErrEmptyCart = errors.New("checkout: cart is empty")

	// ErrTotalMismatch rejects a caller-supplied total that does not match
	// the recomputed line-item subtotal minus discount.
	ErrTotalMismatch = errors.New("checkout: total amount does not match cart items")

	// ErrCommitConflict marks transient storage contention. The whole commit
	// is safe to retry from validation.
	ErrCommitConflict = errors.New("checkout: commit conflict, retry")
)

// conflictMarkers are driver messages that indicate transient contention
// rather than a permanent failure: sqlite writer lock, postgres serialization
// failures and deadlocks, and unique-key races on the receipt sequence.
var conflictMarkers = []string{
	"database is locked",
	"database table is locked",
	"could not serialize access",
	"deadlock detected",
	"UNIQUE constraint failed: shop_receipt_seq",
	"UNIQUE constraint failed: shop_sale.receipt_id",
	"duplicate key value violates unique constraint",
}

func isCommitConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCommitConflict) {
		return true
	}
	msg := err.Error()
	for _, marker := range conflictMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
