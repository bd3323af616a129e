package app

import (
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/openretail/proshop/config"
	"github.com/openretail/proshop/internal/catalog"
	"github.com/openretail/proshop/internal/identity"
	"github.com/openretail/proshop/internal/reports"
	"github.com/openretail/proshop/internal/sales"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SettingsProvider provides system settings access
type SettingsProvider interface {
	GetSettingsStringValue(category, key string) string
	GetSettingsInt64Value(category, key string) int64
	GetSettingsBoolValue(category, key string) bool
	SetSettingsValue(category, key, value string) error
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// AppContext combines all provider interfaces for full application context.
// Handlers depend on this interface rather than the concrete Application so
// tests can substitute a lightweight implementation.
type AppContext interface {
	DBProvider
	ConfigProvider
	SettingsProvider
	SchedulerProvider

	CatalogStore() *catalog.Store
	StockLedger() *catalog.Ledger
	SaleRecorder() *sales.Recorder
	Reports() *reports.Aggregator
	IdentityGate() *identity.Gate

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
	// BackupNow exports a consistent snapshot of the store to the backup dir
	// and returns the written file path.
	BackupNow() (string, error)
}
