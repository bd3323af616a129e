package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/openretail/proshop/internal/domain"
	"github.com/openretail/proshop/pkg/common"
)

// Store owns Category and Product records. All catalog writes go through it;
// stock movements during checkout go through the Ledger instead.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ProductSpec is the product-creation contract shared by manual entry and
// bulk import. Price and Stock arrive as strings so per-record parse failures
// can be reported instead of rejected at decode time.
type ProductSpec struct {
	Name        string `json:"name" csv:"name"`
	Price       string `json:"price" csv:"price"`
	Stock       string `json:"stock" csv:"stock"`
	Category    string `json:"category" csv:"category"`
	CustomID    string `json:"custom_id" csv:"custom_id"`
	Description string `json:"description" csv:"description"`
	ImageURL    string `json:"image_url" csv:"image_url"`
}

// CreateProduct validates spec, resolves its category (upserting by name,
// defaulting to "Others") and inserts the product.
func (s *Store) CreateProduct(spec ProductSpec) (*domain.Product, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, ErrValidation{Field: "name", Reason: "required"}
	}
	if strings.TrimSpace(spec.Price) == "" {
		return nil, ErrValidation{Field: "price", Reason: "required"}
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(spec.Price), 64)
	if err != nil || price < 0 {
		return nil, ErrValidation{Field: "price", Reason: "must be a non-negative number"}
	}
	stock := 0
	if v := strings.TrimSpace(spec.Stock); v != "" {
		stock, err = strconv.Atoi(v)
		if err != nil || stock < 0 {
			return nil, ErrValidation{Field: "stock", Reason: "must be a non-negative integer"}
		}
	}

	var customID *string
	if v := strings.TrimSpace(spec.CustomID); v != "" {
		var count int64
		if err := s.db.Model(&domain.Product{}).Where("custom_id = ?", v).Count(&count).Error; err != nil {
			return nil, errors.Wrap(err, "check custom id")
		}
		if count > 0 {
			return nil, ErrDuplicateCustomID{CustomID: v}
		}
		customID = &v
	}

	cat, err := s.FindOrCreateCategory(spec.Category)
	if err != nil {
		return nil, err
	}

	p := domain.Product{
		ID:          common.UUIDint64(),
		CustomID:    customID,
		Name:        name,
		Price:       price,
		Stock:       stock,
		CategoryID:  cat.ID,
		Description: strings.TrimSpace(spec.Description),
		ImageURL:    strings.TrimSpace(spec.ImageURL),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.db.Create(&p).Error; err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	p.Category = cat
	return &p, nil
}

// FindOrCreateCategory upserts a category by its unique name. An empty name
// resolves to the default "Others" category, created once and reused.
func (s *Store) FindOrCreateCategory(name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = domain.DefaultCategoryName
	}
	var cat domain.Category
	err := s.db.Where("name = ?", name).
		Attrs(domain.Category{ID: common.UUIDint64()}).
		FirstOrCreate(&cat, domain.Category{Name: name}).Error
	if err != nil {
		// a concurrent upsert of the same name can lose the insert race;
		// the winner's row is authoritative
		if err2 := s.db.Where("name = ?", name).First(&cat).Error; err2 == nil {
			return &cat, nil
		}
		return nil, errors.Wrap(err, "upsert category")
	}
	return &cat, nil
}

// ListFilter narrows ListProducts output.
type ListFilter struct {
	CategoryID int64
	Page       int
	PageSize   int
}

// ListProducts returns products with their category preloaded, newest first.
func (s *Store) ListProducts(filter ListFilter) ([]domain.Product, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 500 {
		filter.PageSize = 20
	}
	q := s.db.Model(&domain.Product{})
	if filter.CategoryID != 0 {
		q = q.Where("category_id = ?", filter.CategoryID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count products")
	}
	var rows []domain.Product
	err := q.Preload("Category").Order("created_at DESC").
		Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "list products")
	}
	return rows, total, nil
}

// SearchProducts matches name or custom id, case-insensitive.
func (s *Store) SearchProducts(query string) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	q := s.db.Model(&domain.Product{}).Preload("Category")
	if strings.EqualFold(s.db.Name(), "postgres") {
		q = q.Where("name ILIKE ? OR custom_id ILIKE ?", "%"+query+"%", "%"+query+"%")
	} else {
		lq := "%" + strings.ToLower(query) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(custom_id) LIKE ?", lq, lq)
	}
	var rows []domain.Product
	if err := q.Order("name ASC").Limit(50).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "search products")
	}
	return rows, nil
}

// ImportReport summarizes a bulk import batch.
type ImportReport struct {
	SuccessCount int      `json:"success_count"`
	FailedCount  int      `json:"failed_count"`
	Errors       []string `json:"errors"`
}

// BulkImport processes records independently; one bad row never blocks the
// batch. It shares the CreateProduct contract with manual entry.
func (s *Store) BulkImport(records []ProductSpec) ImportReport {
	report := ImportReport{Errors: []string{}}
	for _, rec := range records {
		if _, err := s.CreateProduct(rec); err != nil {
			report.FailedCount++
			name := rec.Name
			if name == "" {
				name = "Unknown"
			}
			report.Errors = append(report.Errors, fmt.Sprintf("Failed %s: %s", name, err.Error()))
			continue
		}
		report.SuccessCount++
	}
	zap.L().Info("bulk import finished",
		zap.Int("success", report.SuccessCount),
		zap.Int("failed", report.FailedCount))
	return report
}
