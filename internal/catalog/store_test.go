package catalog

import (
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openretail/proshop/internal/domain"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(domain.Tables...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestCreateProduct(t *testing.T) {
	store := NewStore(setupDB(t))

	p, err := store.CreateProduct(ProductSpec{
		Name:     "Cola 330ml",
		Price:    "1.50",
		Stock:    "24",
		Category: "Drinks",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == 0 {
		t.Fatal("expected generated id")
	}
	if p.Price != 1.50 || p.Stock != 24 {
		t.Fatalf("unexpected price/stock: %v %v", p.Price, p.Stock)
	}
	if p.Category == nil || p.Category.Name != "Drinks" {
		t.Fatalf("expected Drinks category, got %+v", p.Category)
	}
}

func TestCreateProductValidation(t *testing.T) {
	store := NewStore(setupDB(t))

	cases := []struct {
		name string
		spec ProductSpec
	}{
		{"missing name", ProductSpec{Price: "1", Stock: "1"}},
		{"missing price", ProductSpec{Name: "x", Stock: "1"}},
		{"bad price", ProductSpec{Name: "x", Price: "abc", Stock: "1"}},
		{"negative price", ProductSpec{Name: "x", Price: "-5", Stock: "1"}},
		{"bad stock", ProductSpec{Name: "x", Price: "1", Stock: "-2"}},
	}
	for _, tc := range cases {
		if _, err := store.CreateProduct(tc.spec); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestCreateProductDefaultCategory(t *testing.T) {
	store := NewStore(setupDB(t))

	p, err := store.CreateProduct(ProductSpec{Name: "Misc item", Price: "2", Stock: "1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Category == nil || p.Category.Name != domain.DefaultCategoryName {
		t.Fatalf("expected default category, got %+v", p.Category)
	}
}

func TestCategoryUpsertByName(t *testing.T) {
	store := NewStore(setupDB(t))

	a, err := store.FindOrCreateCategory("Snacks")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	b, err := store.FindOrCreateCategory("Snacks")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if a.ID != b.ID {
		t.Fatalf("expected same category row, got %d and %d", a.ID, b.ID)
	}
}

func TestDuplicateCustomID(t *testing.T) {
	store := NewStore(setupDB(t))

	if _, err := store.CreateProduct(ProductSpec{Name: "A", Price: "1", Stock: "1", CustomID: "SKU-1"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := store.CreateProduct(ProductSpec{Name: "B", Price: "1", Stock: "1", CustomID: "SKU-1"})
	if _, ok := err.(ErrDuplicateCustomID); !ok {
		t.Fatalf("expected ErrDuplicateCustomID, got %v", err)
	}
}

func TestSearchProducts(t *testing.T) {
	store := NewStore(setupDB(t))

	specs := []ProductSpec{
		{Name: "Cola 330ml", Price: "1.5", Stock: "10", CustomID: "DRK-1"},
		{Name: "Diet Cola", Price: "1.6", Stock: "10"},
		{Name: "Water", Price: "0.8", Stock: "10"},
	}
	for _, s := range specs {
		if _, err := store.CreateProduct(s); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	rows, err := store.SearchProducts("cola")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(rows))
	}

	rows, err = store.SearchProducts("drk-1")
	if err != nil {
		t.Fatalf("search by code: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Cola 330ml" {
		t.Fatalf("expected code match, got %+v", rows)
	}
}

func TestListProductsByCategory(t *testing.T) {
	store := NewStore(setupDB(t))

	if _, err := store.CreateProduct(ProductSpec{Name: "Cola", Price: "1", Stock: "1", Category: "Drinks"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.CreateProduct(ProductSpec{Name: "Chips", Price: "2", Stock: "1", Category: "Snacks"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cat, err := store.FindOrCreateCategory("Drinks")
	if err != nil {
		t.Fatalf("category: %v", err)
	}
	rows, total, err := store.ListProducts(ListFilter{CategoryID: cat.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].Name != "Cola" {
		t.Fatalf("expected only Cola, got total=%d rows=%+v", total, rows)
	}
}

func TestBulkImportIsolatesFailures(t *testing.T) {
	store := NewStore(setupDB(t))

	report := store.BulkImport([]ProductSpec{
		{Name: "Good A", Price: "1.0", Stock: "5"},
		{Name: "", Price: "1.0", Stock: "5"},
		{Name: "Good B", Price: "2.0", Stock: "3"},
	})
	if report.SuccessCount != 2 || report.FailedCount != 1 {
		t.Fatalf("expected 2/1, got %d/%d", report.SuccessCount, report.FailedCount)
	}
	if len(report.Errors) != 1 || !strings.Contains(report.Errors[0], "Failed") {
		t.Fatalf("expected one failure message, got %v", report.Errors)
	}

	var count int64
	store.db.Model(&domain.Product{}).Count(&count)
	if count != 2 {
		t.Fatalf("expected 2 stored products, got %d", count)
	}
}
