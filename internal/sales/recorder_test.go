package sales

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openretail/proshop/internal/catalog"
	"github.com/openretail/proshop/internal/domain"
	"github.com/openretail/proshop/internal/identity"
	"github.com/openretail/proshop/pkg/common"
)

const testSecret = "recorder-test-secret"

type fixture struct {
	db       *gorm.DB
	gate     *identity.Gate
	recorder *Recorder
	cashier  domain.SysUser
}

func setupFixture(t *testing.T) *fixture {
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

	hash, _ := common.HashPassword("secret123")
	admin := domain.SysUser{
		ID:       common.UUIDint64(),
		Username: identity.SuperUsername,
		Password: hash,
		Role:     identity.RoleAdmin,
		Status:   common.ENABLED,
	}
	if err := db.Create(&admin).Error; err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	cashier := domain.SysUser{
		ID:       common.UUIDint64(),
		Username: "cashier",
		Password: hash,
		Role:     identity.RoleStaff,
		Status:   common.ENABLED,
	}
	if err := db.Create(&cashier).Error; err != nil {
		t.Fatalf("seed cashier: %v", err)
	}

	gate := identity.NewGate(db, testSecret)
	return &fixture{
		db:       db,
		gate:     gate,
		recorder: NewRecorder(db, catalog.NewLedger(), gate),
		cashier:  cashier,
	}
}

func (f *fixture) seedProduct(t *testing.T, name string, price float64, stock int) *domain.Product {
	t.Helper()
	p := &domain.Product{ID: common.UUIDint64(), Name: name, Price: price, Stock: stock}
	if err := f.db.Create(p).Error; err != nil {
		t.Fatalf("seed product %s: %v", name, err)
	}
	return p
}

func (f *fixture) cashierToken(t *testing.T) string {
	t.Helper()
	token, err := f.gate.IssueToken(&f.cashier)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

var receiptPattern = regexp.MustCompile(`^R\d{8}-\d{4}$`)

func TestCheckoutCommits(t *testing.T) {
	f := setupFixture(t)
	cola := f.seedProduct(t, "Cola", 1.5, 20)
	chips := f.seedProduct(t, "Chips", 2.0, 10)

	sale, err := f.recorder.Checkout(context.Background(), f.cashierToken(t), CheckoutRequest{
		Items: []CartItem{
			{ProductID: cola.ID, Name: cola.Name, Quantity: 4, Price: cola.Price},
			{ProductID: chips.ID, Name: chips.Name, Quantity: 2, Price: chips.Price},
		},
		PaymentMode: domain.PaymentCash,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if !receiptPattern.MatchString(sale.ReceiptID) {
		t.Fatalf("bad receipt id %q", sale.ReceiptID)
	}
	if sale.UserID != f.cashier.ID {
		t.Fatalf("expected attribution to cashier, got %d", sale.UserID)
	}
	if sale.TotalAmount != 10.0 {
		t.Fatalf("expected total 10.0, got %v", sale.TotalAmount)
	}
	if sale.BuyerName != domain.GuestBuyerName {
		t.Fatalf("expected guest buyer, got %q", sale.BuyerName)
	}
	if len(sale.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(sale.Items))
	}

	var gotCola, gotChips domain.Product
	f.db.First(&gotCola, cola.ID)
	f.db.First(&gotChips, chips.ID)
	if gotCola.Stock != 16 || gotChips.Stock != 8 {
		t.Fatalf("stock not decremented: %d %d", gotCola.Stock, gotChips.Stock)
	}
}

func TestCheckoutValidation(t *testing.T) {
	f := setupFixture(t)
	p := f.seedProduct(t, "Cola", 1.5, 20)
	token := f.cashierToken(t)
	one := []CartItem{{ProductID: p.ID, Name: p.Name, Quantity: 1, Price: 1.5}}

	_, err := f.recorder.Checkout(context.Background(), token, CheckoutRequest{PaymentMode: domain.PaymentCash})
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}

	_, err = f.recorder.Checkout(context.Background(), token, CheckoutRequest{Items: one, PaymentMode: "BARTER"})
	if _, ok := err.(catalog.ErrValidation); !ok {
		t.Fatalf("expected validation error for payment mode, got %v", err)
	}

	_, err = f.recorder.Checkout(context.Background(), token, CheckoutRequest{
		Items: one, PaymentMode: domain.PaymentCash, Discount: -1,
	})
	if _, ok := err.(catalog.ErrValidation); !ok {
		t.Fatalf("expected validation error for discount, got %v", err)
	}

	bad := []CartItem{{ProductID: p.ID, Name: p.Name, Quantity: 0, Price: 1.5}}
	_, err = f.recorder.Checkout(context.Background(), token, CheckoutRequest{Items: bad, PaymentMode: domain.PaymentCash})
	if _, ok := err.(catalog.ErrValidation); !ok {
		t.Fatalf("expected validation error for quantity, got %v", err)
	}
}

func TestCheckoutTotalVerification(t *testing.T) {
	f := setupFixture(t)
	p := f.seedProduct(t, "Cola", 1.5, 20)
	token := f.cashierToken(t)
	items := []CartItem{{ProductID: p.ID, Name: p.Name, Quantity: 2, Price: 1.5}}

	_, err := f.recorder.Checkout(context.Background(), token, CheckoutRequest{
		Items: items, PaymentMode: domain.PaymentCash, TotalAmount: 5.0,
	})
	if !errors.Is(err, ErrTotalMismatch) {
		t.Fatalf("expected ErrTotalMismatch, got %v", err)
	}

	// within float tolerance
	sale, err := f.recorder.Checkout(context.Background(), token, CheckoutRequest{
		Items: items, PaymentMode: domain.PaymentCash, TotalAmount: 3.001,
	})
	if err != nil {
		t.Fatalf("tolerant total rejected: %v", err)
	}
	if sale.TotalAmount != 3.0 {
		t.Fatalf("expected recomputed total 3.0, got %v", sale.TotalAmount)
	}
}

func TestCheckoutDiscountFloor(t *testing.T) {
	f := setupFixture(t)
	p := f.seedProduct(t, "Cola", 1.5, 20)

	sale, err := f.recorder.Checkout(context.Background(), f.cashierToken(t), CheckoutRequest{
		Items:       []CartItem{{ProductID: p.ID, Name: p.Name, Quantity: 1, Price: 1.5}},
		PaymentMode: domain.PaymentCash,
		Discount:    5.0,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if sale.TotalAmount != 0 {
		t.Fatalf("discount beyond subtotal must floor total at 0, got %v", sale.TotalAmount)
	}
}

func TestCheckoutInsufficientStockRollsBack(t *testing.T) {
	f := setupFixture(t)
	cola := f.seedProduct(t, "Cola", 1.5, 20)
	chips := f.seedProduct(t, "Chips", 2.0, 1)

	_, err := f.recorder.Checkout(context.Background(), f.cashierToken(t), CheckoutRequest{
		Items: []CartItem{
			{ProductID: cola.ID, Name: cola.Name, Quantity: 2, Price: cola.Price},
			{ProductID: chips.ID, Name: chips.Name, Quantity: 3, Price: chips.Price},
		},
		PaymentMode: domain.PaymentCash,
	})
	var stockErr catalog.ErrInsufficientStock
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// the first item's decrement must be rolled back with the rest
	var gotCola domain.Product
	f.db.First(&gotCola, cola.ID)
	if gotCola.Stock != 20 {
		t.Fatalf("partial commit leaked: cola stock %d", gotCola.Stock)
	}
	var sales int64
	f.db.Model(&domain.Sale{}).Count(&sales)
	if sales != 0 {
		t.Fatalf("expected no sale rows, got %d", sales)
	}
	var items int64
	f.db.Model(&domain.SaleItem{}).Count(&items)
	if items != 0 {
		t.Fatalf("expected no item rows, got %d", items)
	}
}

func TestCheckoutOverdrawAfterRepeatedSales(t *testing.T) {
	f := setupFixture(t)
	p := f.seedProduct(t, "Cola", 1.5, 3)
	token := f.cashierToken(t)
	req := CheckoutRequest{
		Items:       []CartItem{{ProductID: p.ID, Name: p.Name, Quantity: 2, Price: p.Price}},
		PaymentMode: domain.PaymentCash,
	}

	if _, err := f.recorder.Checkout(context.Background(), token, req); err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	_, err := f.recorder.Checkout(context.Background(), token, req)
	var stockErr catalog.ErrInsufficientStock
	if !errors.As(err, &stockErr) {
		t.Fatalf("second checkout must overdraw, got %v", err)
	}
	var got domain.Product
	f.db.First(&got, p.ID)
	if got.Stock != 1 {
		t.Fatalf("expected remaining stock 1, got %d", got.Stock)
	}
}

func TestCheckoutConcurrentOverdraw(t *testing.T) {
	f := setupFixture(t)
	p := f.seedProduct(t, "Cola", 1.5, 1)
	token := f.cashierToken(t)
	req := CheckoutRequest{
		Items:       []CartItem{{ProductID: p.ID, Name: p.Name, Quantity: 1, Price: p.Price}},
		PaymentMode: domain.PaymentCash,
	}

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := f.recorder.Checkout(context.Background(), token, req)
			results <- err
		}()
	}

	var committed, refused int
	for i := 0; i < 2; i++ {
		err := <-results
		var stockErr catalog.ErrInsufficientStock
		switch {
		case err == nil:
			committed++
		case errors.As(err, &stockErr):
			refused++
		default:
			t.Fatalf("unexpected checkout error: %v", err)
		}
	}
	if committed != 1 || refused != 1 {
		t.Fatalf("expected exactly one commit and one refusal, got committed=%d refused=%d", committed, refused)
	}

	var got domain.Product
	f.db.First(&got, p.ID)
	if got.Stock != 0 {
		t.Fatalf("expected stock 0 after the winning commit, got %d", got.Stock)
	}
	var count int64
	f.db.Model(&domain.Sale{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 sale row, got %d", count)
	}
}

func TestCheckoutConcurrentReceipts(t *testing.T) {
	f := setupFixture(t)
	p := f.seedProduct(t, "Cola", 1.5, 100)
	token := f.cashierToken(t)

	const n = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		receipts []string
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sale, err := f.recorder.Checkout(context.Background(), token, CheckoutRequest{
				Items:       []CartItem{{ProductID: p.ID, Name: p.Name, Quantity: 1, Price: p.Price}},
				PaymentMode: domain.PaymentCash,
			})
			if err != nil {
				t.Errorf("concurrent checkout: %v", err)
				return
			}
			mu.Lock()
			receipts = append(receipts, sale.ReceiptID)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(receipts) != n {
		t.Fatalf("expected %d commits, got %d", n, len(receipts))
	}
	seen := map[string]bool{}
	for _, id := range receipts {
		if !receiptPattern.MatchString(id) {
			t.Fatalf("bad receipt id %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate receipt %s", id)
		}
		seen[id] = true
	}

	var got domain.Product
	f.db.First(&got, p.ID)
	if got.Stock != 100-n {
		t.Fatalf("expected stock %d, got %d", 100-n, got.Stock)
	}
}

func TestCheckoutFallbackIdentity(t *testing.T) {
	f := setupFixture(t)
	p := f.seedProduct(t, "Cola", 1.5, 20)

	sale, err := f.recorder.Checkout(context.Background(), "Bearer not-a-token", CheckoutRequest{
		Items:       []CartItem{{ProductID: p.ID, Name: p.Name, Quantity: 1, Price: 1.5}},
		PaymentMode: domain.PaymentOnline,
	})
	if err != nil {
		t.Fatalf("checkout with broken session must still commit: %v", err)
	}

	var admin domain.SysUser
	if err := f.db.Where("username = ?", identity.SuperUsername).First(&admin).Error; err != nil {
		t.Fatalf("load admin: %v", err)
	}
	if sale.UserID != admin.ID {
		t.Fatalf("expected fallback attribution to admin, got %d", sale.UserID)
	}
}

func TestReceiptSequence(t *testing.T) {
	f := setupFixture(t)
	p := f.seedProduct(t, "Cola", 1.5, 100)
	token := f.cashierToken(t)

	day := time.Now().Format("20060102")
	seen := map[string]bool{}
	for i := 1; i <= 3; i++ {
		sale, err := f.recorder.Checkout(context.Background(), token, CheckoutRequest{
			Items:       []CartItem{{ProductID: p.ID, Name: p.Name, Quantity: 1, Price: 1.5}},
			PaymentMode: domain.PaymentCash,
		})
		if err != nil {
			t.Fatalf("checkout %d: %v", i, err)
		}
		want := fmt.Sprintf("R%s-%04d", day, i)
		if sale.ReceiptID != want {
			t.Fatalf("expected receipt %s, got %s", want, sale.ReceiptID)
		}
		if seen[sale.ReceiptID] {
			t.Fatalf("duplicate receipt %s", sale.ReceiptID)
		}
		seen[sale.ReceiptID] = true
	}
}

func TestCheckoutSnapshotsCartPrice(t *testing.T) {
	f := setupFixture(t)
	p := f.seedProduct(t, "Cola", 1.5, 20)
	token := f.cashierToken(t)

	sale, err := f.recorder.Checkout(context.Background(), token, CheckoutRequest{
		Items:       []CartItem{{ProductID: p.ID, Name: "Cola", Quantity: 1, Price: 1.5}},
		PaymentMode: domain.PaymentCash,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	// a later price change must not rewrite the committed sale
	f.db.Model(&domain.Product{}).Where("id = ?", p.ID).Update("price", 9.99)

	got, err := f.recorder.GetSale(sale.ID)
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].Price != 1.5 || got.Items[0].ProductName != "Cola" {
		t.Fatalf("snapshot lost: %+v", got.Items)
	}
}

func TestListSalesFilters(t *testing.T) {
	f := setupFixture(t)
	p := f.seedProduct(t, "Cola", 1.5, 100)
	token := f.cashierToken(t)

	for i := 0; i < 3; i++ {
		if _, err := f.recorder.Checkout(context.Background(), token, CheckoutRequest{
			Items:       []CartItem{{ProductID: p.ID, Name: p.Name, Quantity: 1, Price: 1.5}},
			PaymentMode: domain.PaymentCash,
		}); err != nil {
			t.Fatalf("checkout %d: %v", i, err)
		}
	}

	rows, total, err := f.recorder.ListSales(ListFilter{UserID: f.cashier.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(rows) != 3 {
		t.Fatalf("expected 3 sales, got total=%d rows=%d", total, len(rows))
	}

	_, total, err = f.recorder.ListSales(ListFilter{UserID: 999999})
	if err != nil {
		t.Fatalf("list other user: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected no sales for unknown user, got %d", total)
	}
}
