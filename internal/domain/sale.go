package domain

import "time"

// Payment modes accepted at checkout. The mode is a label on the sale record,
// not a settled payment transaction.
const (
	PaymentCash   = "CASH"
	PaymentOnline = "ONLINE"
	PaymentCredit = "CREDIT"
)

// ValidPaymentMode reports whether mode is one of the accepted payment labels.
func ValidPaymentMode(mode string) bool {
	switch mode {
	case PaymentCash, PaymentOnline, PaymentCredit:
		return true
	}
	return false
}

// GuestBuyerName is recorded when the caller does not supply a buyer name.
const GuestBuyerName = "Guest"

// Sale is the committed header of a checkout. A sale is immutable once
// committed; there is no edit/void/refund path.
type Sale struct {
	ID           int64      `json:"id,string" form:"id"`
	ReceiptID    string     `gorm:"uniqueIndex;size:32" json:"receipt_id" form:"receipt_id"`
	UserID       int64      `gorm:"index" json:"user_id,string" form:"user_id"`
	BuyerName    string     `gorm:"size:128" json:"buyer_name" form:"buyer_name"`
	BuyerContact string     `gorm:"size:128" json:"buyer_contact" form:"buyer_contact"`
	PaymentMode  string     `gorm:"size:16" json:"payment_mode" form:"payment_mode"`
	Discount     float64    `json:"discount" form:"discount"`
	TotalAmount  float64    `json:"total_amount" form:"total_amount"`
	Date         time.Time  `gorm:"index" json:"date" form:"date"`
	Items        []SaleItem `gorm:"foreignKey:SaleID" json:"items,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName Specify table name
func (Sale) TableName() string {
	return "shop_sale"
}

// SaleItem snapshots the product name and unit price as charged at cart time.
// ProductID is a weak back-reference; rendering a historical sale never
// requires the live product row.
type SaleItem struct {
	ID          int64   `json:"id,string" form:"id"`
	SaleID      int64   `gorm:"index" json:"sale_id,string" form:"sale_id"`
	ProductID   int64   `gorm:"index" json:"product_id,string" form:"product_id"`
	ProductName string  `gorm:"size:200" json:"product_name" form:"product_name"`
	Quantity    int     `json:"quantity" form:"quantity"`
	Price       float64 `json:"price" form:"price"`
}

// TableName Specify table name
func (SaleItem) TableName() string {
	return "shop_sale_item"
}

// ReceiptSequence backs the date-scoped receipt counter. One row per calendar
// day; the counter row is incremented inside the checkout transaction so
// concurrent commits serialize on it.
type ReceiptSequence struct {
	Day     string `gorm:"primaryKey;size:8" json:"day"`
	Counter int64  `json:"counter"`
}

// TableName Specify table name
func (ReceiptSequence) TableName() string {
	return "shop_receipt_seq"
}
