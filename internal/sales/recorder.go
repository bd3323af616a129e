package sales

import (
	"context"
	"math"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/openretail/proshop/internal/catalog"
	"github.com/openretail/proshop/internal/domain"
	"github.com/openretail/proshop/internal/identity"
	"github.com/openretail/proshop/pkg/common"
)

// totalTolerance absorbs float wobble when comparing a caller-supplied total
// against the recomputed one.
const totalTolerance = 0.005

// commitAttempts bounds retries on transient commit conflicts.
const commitAttempts = 3

// CartItem is one line of a checkout cart. Name and Price are the values
// shown at add-to-cart time and are snapshotted onto the sale as charged,
// immune to later catalog price changes.
type CartItem struct {
	ProductID int64   `json:"product_id,string"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// CheckoutRequest is the boundary contract from the register client.
// TotalAmount is the cart's own computed total; zero means "derive it".
type CheckoutRequest struct {
	Items        []CartItem `json:"items"`
	BuyerName    string     `json:"buyer_name"`
	BuyerContact string     `json:"buyer_contact"`
	PaymentMode  string     `json:"payment_mode"`
	Discount     float64    `json:"discount"`
	TotalAmount  float64    `json:"total_amount"`
}

// Recorder commits checkouts: one atomic unit of work spanning the sale
// header, its line items, the stock decrements and the receipt sequence.
type Recorder struct {
	db     *gorm.DB
	ledger *catalog.Ledger
	gate   *identity.Gate
}

func NewRecorder(db *gorm.DB, ledger *catalog.Ledger, gate *identity.Gate) *Recorder {
	return &Recorder{db: db, ledger: ledger, gate: gate}
}

// Checkout validates the cart, resolves the caller identity and runs the
// commit protocol. On transient conflicts the whole commit is retried from
// scratch with a short backoff; all other failures abort with no partial
// state.
func (r *Recorder) Checkout(ctx context.Context, token string, req CheckoutRequest) (*domain.Sale, error) {
	subtotal, err := r.validate(req)
	if err != nil {
		return nil, err
	}

	ident, err := r.gate.Resolve(ctx, token)
	if err != nil {
		// keep the register sellable under session loss: attribute to the
		// default identity rather than rejecting the checkout
		ident = r.gate.Fallback()
		zap.L().Warn("checkout identity unresolved, using fallback",
			zap.String("fallback", ident.Username))
	}

	total := subtotal - req.Discount
	if total < 0 {
		total = 0
	}

	var sale *domain.Sale
	for attempt := 1; attempt <= commitAttempts; attempt++ {
		sale, err = r.commit(ctx, ident, req, total)
		if err == nil {
			zap.L().Info("sale committed",
				zap.String("receipt", sale.ReceiptID),
				zap.Int64("user_id", ident.UserID),
				zap.Float64("total", sale.TotalAmount),
				zap.Int("items", len(sale.Items)))
			return sale, nil
		}
		if !isCommitConflict(err) {
			return nil, err
		}
		zap.L().Warn("checkout commit conflict, retrying",
			zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(time.Duration(attempt) * 20 * time.Millisecond)
	}
	return nil, pkgerrors.Wrap(ErrCommitConflict, err.Error())
}

func (r *Recorder) validate(req CheckoutRequest) (subtotal float64, err error) {
	if len(req.Items) == 0 {
		return 0, ErrEmptyCart
	}
	if !domain.ValidPaymentMode(req.PaymentMode) {
		return 0, catalog.ErrValidation{Field: "payment_mode", Reason: "must be CASH, ONLINE or CREDIT"}
	}
	if req.Discount < 0 {
		return 0, catalog.ErrValidation{Field: "discount", Reason: "must be >= 0"}
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return 0, catalog.ErrValidation{Field: "quantity", Reason: "must be >= 1"}
		}
		if item.Price < 0 {
			return 0, catalog.ErrValidation{Field: "price", Reason: "must be >= 0"}
		}
		subtotal += float64(item.Quantity) * item.Price
	}
	if req.TotalAmount > 0 {
		expected := subtotal - req.Discount
		if expected < 0 {
			expected = 0
		}
		if math.Abs(req.TotalAmount-expected) > totalTolerance {
			return 0, ErrTotalMismatch
		}
	}
	return subtotal, nil
}

// commit runs one attempt of the unit of work: receipt allocation, sale
// header, line items and stock decrements, all or nothing.
func (r *Recorder) commit(ctx context.Context, ident identity.Identity, req CheckoutRequest, total float64) (*domain.Sale, error) {
	now := time.Now()
	sale := &domain.Sale{
		ID:           common.UUIDint64(),
		UserID:       ident.UserID,
		BuyerName:    req.BuyerName,
		BuyerContact: req.BuyerContact,
		PaymentMode:  req.PaymentMode,
		Discount:     req.Discount,
		TotalAmount:  total,
		Date:         now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if sale.BuyerName == "" {
		sale.BuyerName = domain.GuestBuyerName
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		receipt, err := allocReceiptID(tx, now)
		if err != nil {
			return err
		}
		sale.ReceiptID = receipt

		if err := tx.Omit("Items").Create(sale).Error; err != nil {
			return pkgerrors.Wrap(err, "insert sale")
		}

		items := make([]domain.SaleItem, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, domain.SaleItem{
				ID:          common.UUIDint64(),
				SaleID:      sale.ID,
				ProductID:   item.ProductID,
				ProductName: item.Name,
				Quantity:    item.Quantity,
				Price:       item.Price,
			})
		}
		if err := tx.Create(&items).Error; err != nil {
			return pkgerrors.Wrap(err, "insert sale items")
		}
		sale.Items = items

		for _, item := range req.Items {
			if err := r.ledger.Decrement(tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// GetSale loads a committed sale with its items for the receipt view.
func (r *Recorder) GetSale(id int64) (*domain.Sale, error) {
	var sale domain.Sale
	err := r.db.Preload("Items").First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// ListFilter narrows ListSales output.
type ListFilter struct {
	UserID   int64
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

// ListSales returns committed sales newest first with items preloaded.
func (r *Recorder) ListSales(filter ListFilter) ([]domain.Sale, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 200 {
		filter.PageSize = 20
	}
	q := r.db.Model(&domain.Sale{})
	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if !filter.From.IsZero() {
		q = q.Where("date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("date < ?", filter.To)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "count sales")
	}
	var rows []domain.Sale
	err := q.Preload("Items").Order("date DESC").
		Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, pkgerrors.Wrap(err, "list sales")
	}
	return rows, total, nil
}
