package reports

import (
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/openretail/proshop/internal/domain"
)

// DefaultLowStockThreshold is used when no override is configured.
const DefaultLowStockThreshold = 10

// Aggregator is the read-only query layer over committed sales and catalog
// state. It is never in the write path.
type Aggregator struct {
	db *gorm.DB
}

func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db}
}

// Totals is a revenue/order-count pair.
type Totals struct {
	TotalRevenue float64 `json:"total_revenue"`
	TotalOrders  int64   `json:"total_orders"`
}

// SeriesPoint is one calendar-day revenue bucket.
type SeriesPoint struct {
	Label string  `json:"label"`
	Total float64 `json:"total"`
}

// RecentSale summarizes one recent transaction for the dashboard: enough to
// render one representative line item plus an overflow count.
type RecentSale struct {
	ID          int64     `json:"id,string"`
	ReceiptID   string    `json:"receipt_id"`
	BuyerName   string    `json:"buyer_name"`
	TotalAmount float64   `json:"total_amount"`
	Date        time.Time `json:"date"`
	FirstItem   string    `json:"first_item"`
	MoreItems   int       `json:"more_items"`
}

// UserStats is the per-staff rollup; zero-filled for users with no sales.
type UserStats struct {
	UserID       int64   `json:"user_id,string"`
	Username     string  `json:"username"`
	Name         string  `json:"name"`
	Role         string  `json:"role"`
	SalesCount   int64   `json:"sales_count"`
	TotalRevenue float64 `json:"total_revenue"`
}

// Dashboard bundles the register dashboard payload.
type Dashboard struct {
	TotalRevenue float64       `json:"total_revenue"`
	TotalOrders  int64         `json:"total_orders"`
	TodayRevenue float64       `json:"today_revenue"`
	TodayOrders  int64         `json:"today_orders"`
	LowStock     int64         `json:"low_stock"`
	ChartData    []SeriesPoint `json:"chart_data"`
	Recent       []RecentSale  `json:"recent_transactions"`
}

type sumCount struct {
	Sum   float64
	Count int64
}

func (a *Aggregator) sumSales(where func(*gorm.DB) *gorm.DB) (Totals, error) {
	q := a.db.Model(&domain.Sale{})
	if where != nil {
		q = where(q)
	}
	var sc sumCount
	err := q.Select("COALESCE(SUM(total_amount),0) AS sum, COUNT(id) AS count").Scan(&sc).Error
	if err != nil {
		return Totals{}, pkgerrors.Wrap(err, "aggregate sales")
	}
	return Totals{TotalRevenue: sc.Sum, TotalOrders: sc.Count}, nil
}

// Totals returns all-time revenue and order count.
func (a *Aggregator) Totals() (Totals, error) {
	return a.sumSales(nil)
}

// TodayTotals returns the pair filtered to the current local calendar day.
func (a *Aggregator) TodayTotals() (Totals, error) {
	start := startOfDay(time.Now())
	return a.sumSales(func(q *gorm.DB) *gorm.DB {
		return q.Where("date >= ?", start)
	})
}

// LowStock counts products under the threshold; pass 0 for the default.
func (a *Aggregator) LowStock(threshold int) (int64, error) {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	var count int64
	err := a.db.Model(&domain.Product{}).Where("stock < ?", threshold).Count(&count).Error
	if err != nil {
		return 0, pkgerrors.Wrap(err, "count low stock")
	}
	return count, nil
}

// RevenueSeries buckets revenue by the sale's local calendar date for the
// trailing days including today, oldest first. Days with no sales report 0.
func (a *Aggregator) RevenueSeries(days int) ([]SeriesPoint, error) {
	if days <= 0 {
		days = 7
	}
	today := startOfDay(time.Now())
	cutoff := today.AddDate(0, 0, -(days - 1))

	var rows []domain.Sale
	err := a.db.Select("date", "total_amount").
		Where("date >= ?", cutoff).Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load sales for series")
	}

	byDay := make(map[string]float64, days)
	for _, s := range rows {
		byDay[s.Date.Local().Format("2006-01-02")] += s.TotalAmount
	}

	series := make([]SeriesPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		d := today.AddDate(0, 0, -i)
		series = append(series, SeriesPoint{
			Label: d.Format("Jan 02"),
			Total: byDay[d.Format("2006-01-02")],
		})
	}
	return series, nil
}

// RecentSales returns the most recent committed sales, newest first.
func (a *Aggregator) RecentSales(limit int) ([]RecentSale, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []domain.Sale
	err := a.db.Preload("Items").Order("date DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load recent sales")
	}
	recent := make([]RecentSale, 0, len(rows))
	for _, s := range rows {
		r := RecentSale{
			ID:          s.ID,
			ReceiptID:   s.ReceiptID,
			BuyerName:   s.BuyerName,
			TotalAmount: s.TotalAmount,
			Date:        s.Date,
		}
		if len(s.Items) > 0 {
			r.FirstItem = s.Items[0].ProductName
			r.MoreItems = len(s.Items) - 1
		}
		recent = append(recent, r)
	}
	return recent, nil
}

// UserPerformance returns a rollup for every known user, zero-filled when a
// user has no sales.
func (a *Aggregator) UserPerformance() ([]UserStats, error) {
	var users []domain.SysUser
	if err := a.db.Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "load users")
	}

	type userAgg struct {
		UserID int64
		Sum    float64
		Count  int64
	}
	var aggs []userAgg
	err := a.db.Model(&domain.Sale{}).
		Select("user_id, COALESCE(SUM(total_amount),0) AS sum, COUNT(id) AS count").
		Group("user_id").Scan(&aggs).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "aggregate per user")
	}
	byUser := make(map[int64]userAgg, len(aggs))
	for _, g := range aggs {
		byUser[g.UserID] = g
	}

	stats := make([]UserStats, 0, len(users))
	for _, u := range users {
		g := byUser[u.ID]
		name := u.Name
		if name == "" {
			name = u.Username
		}
		stats = append(stats, UserStats{
			UserID:       u.ID,
			Username:     u.Username,
			Name:         name,
			Role:         u.Role,
			SalesCount:   g.Count,
			TotalRevenue: g.Sum,
		})
	}
	return stats, nil
}

// Dashboard assembles the register dashboard payload in one call.
func (a *Aggregator) Dashboard(lowStockThreshold int) (*Dashboard, error) {
	all, err := a.Totals()
	if err != nil {
		return nil, err
	}
	today, err := a.TodayTotals()
	if err != nil {
		return nil, err
	}
	low, err := a.LowStock(lowStockThreshold)
	if err != nil {
		return nil, err
	}
	series, err := a.RevenueSeries(7)
	if err != nil {
		return nil, err
	}
	recent, err := a.RecentSales(5)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		TotalRevenue: all.TotalRevenue,
		TotalOrders:  all.TotalOrders,
		TodayRevenue: today.TotalRevenue,
		TodayOrders:  today.TotalOrders,
		LowStock:     low,
		ChartData:    series,
		Recent:       recent,
	}, nil
}

func startOfDay(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
