package domain

import "time"

// Category groups products; Name is the natural key and is upserted on demand
// during manual or bulk product creation.
type Category struct {
	ID        int64     `json:"id,string" form:"id"`
	Name      string    `gorm:"uniqueIndex;size:128" json:"name" form:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Category) TableName() string {
	return "shop_category"
}

// DefaultCategoryName is the fallback category assigned when a product is
// created without an explicit category.
const DefaultCategoryName = "Others"

// Product is owned by the catalog store. Stock is the single source of truth
// for availability; committed state never holds a negative stock value.
type Product struct {
	ID          int64     `json:"id,string" form:"id"`
	CustomID    *string   `gorm:"uniqueIndex;size:64" json:"custom_id,omitempty" form:"custom_id"`
	Name        string    `gorm:"index;size:200" json:"name" form:"name"`
	Price       float64   `json:"price" form:"price"`
	Stock       int       `json:"stock" form:"stock"`
	CategoryID  int64     `gorm:"index" json:"category_id,string" form:"category_id"`
	Category    *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Description string    `gorm:"size:1024" json:"description" form:"description"`
	ImageURL    string    `gorm:"size:1024" json:"image_url" form:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "shop_product"
}
