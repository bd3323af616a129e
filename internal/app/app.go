package app

import (
	"os"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	"github.com/openretail/proshop/config"
	"github.com/openretail/proshop/internal/catalog"
	"github.com/openretail/proshop/internal/domain"
	"github.com/openretail/proshop/internal/identity"
	"github.com/openretail/proshop/internal/reports"
	"github.com/openretail/proshop/internal/sales"
)

// Application owns the process-wide resources: config, database handle, cron
// scheduler and the service components built over them. The handle is passed
// explicitly to each component at Init; nothing does ambient global lookup.
type Application struct {
	appConfig     *config.AppConfig
	gormDB        *gorm.DB
	sched         *cron.Cron
	configManager *ConfigManager

	catalogStore *catalog.Store
	stockLedger  *catalog.Ledger
	saleRecorder *sales.Recorder
	aggregator   *reports.Aggregator
	identityGate *identity.Gate
}

// Ensure Application implements all interfaces
var (
	_ DBProvider       = (*Application)(nil)
	_ ConfigProvider   = (*Application)(nil)
	_ SettingsProvider = (*Application)(nil)
	_ AppContext       = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
	a.configManager = NewConfigManager(db)
	a.initComponents()
}

func (a *Application) Init(cfg *config.AppConfig) {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	// Initialize zap logger
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}
		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	} else {
		logger, err = zapConfig.Build(zap.AddCaller(), zap.AddCallerSkip(1))
		if err != nil {
			panic(err)
		}
	}
	zap.ReplaceGlobals(logger)

	// Initialize database connection
	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	a.gormDB = getDatabase(cfg)
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}

	a.checkSuper()
	a.checkDefaultCategory()
	a.checkSettings()

	a.configManager = NewConfigManager(a.gormDB)
	a.initComponents()
	a.initJob()
}

// initComponents wires the service layer over the current database handle.
func (a *Application) initComponents() {
	a.catalogStore = catalog.NewStore(a.gormDB)
	a.stockLedger = catalog.NewLedger()
	a.identityGate = identity.NewGate(a.gormDB, a.appConfig.Web.JwtSecret)
	a.saleRecorder = sales.NewRecorder(a.gormDB, a.stockLedger, a.identityGate)
	a.aggregator = reports.NewAggregator(a.gormDB)
}

func (a *Application) MigrateDB(track bool) (err error) {
	if track {
		return a.gormDB.Debug().Migrator().AutoMigrate(domain.Tables...)
	}
	return a.gormDB.Migrator().AutoMigrate(domain.Tables...)
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

func (a *Application) InitDb() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	if err := a.gormDB.Migrator().AutoMigrate(domain.Tables...); err != nil {
		zap.S().Error(err)
	}
	a.checkSuper()
	a.checkDefaultCategory()
	a.checkSettings()
}

// ConfigMgr returns the runtime settings manager
func (a *Application) ConfigMgr() *ConfigManager {
	return a.configManager
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) CatalogStore() *catalog.Store {
	return a.catalogStore
}

func (a *Application) StockLedger() *catalog.Ledger {
	return a.stockLedger
}

func (a *Application) SaleRecorder() *sales.Recorder {
	return a.saleRecorder
}

func (a *Application) Reports() *reports.Aggregator {
	return a.aggregator
}

func (a *Application) IdentityGate() *identity.Gate {
	return a.identityGate
}

// GetSettingsStringValue retrieves a string configuration value
func (a *Application) GetSettingsStringValue(category, key string) string {
	return a.configManager.GetString(category, key)
}

// GetSettingsInt64Value retrieves an int64 configuration value
func (a *Application) GetSettingsInt64Value(category, key string) int64 {
	return a.configManager.GetInt64(category, key)
}

// GetSettingsBoolValue retrieves a boolean configuration value
func (a *Application) GetSettingsBoolValue(category, key string) bool {
	return a.configManager.GetBool(category, key)
}

// SetSettingsValue updates a configuration value
func (a *Application) SetSettingsValue(category, key, value string) error {
	return a.configManager.Set(category, key, value)
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	_ = zap.L().Sync()
}
