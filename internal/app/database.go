package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/openretail/proshop/config"
)

// getDatabase opens the gorm handle for the configured backend. SQLite is the
// default: a single copyable file under workdir, which is what the backup job
// snapshots.
func getDatabase(cfg *config.AppConfig) *gorm.DB {
	level := gormlogger.Warn
	if cfg.System.Debug {
		level = gormlogger.Info
	}
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(level)}

	switch cfg.Database.Type {
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=%s",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User,
			cfg.Database.Passwd, cfg.Database.Name, cfg.System.Location)
		db, err := gorm.Open(postgres.Open(dsn), gormCfg)
		if err != nil {
			zap.S().Panicf("postgres connect failed: %v", err)
		}
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.SetMaxOpenConns(cfg.Database.MaxConn)
			sqlDB.SetMaxIdleConns(cfg.Database.IdleConn)
			sqlDB.SetConnMaxLifetime(time.Hour)
		}
		return db
	default:
		dbfile := cfg.SqliteFile()
		if err := os.MkdirAll(filepath.Dir(dbfile), 0o755); err != nil {
			zap.S().Panicf("create data dir failed: %v", err)
		}
		// busy_timeout lets concurrent checkouts queue on the single writer
		// instead of failing immediately with "database is locked"
		dsn := dbfile + "?_busy_timeout=5000&_journal_mode=WAL"
		db, err := gorm.Open(sqlite.Open(dsn), gormCfg)
		if err != nil {
			zap.S().Panicf("sqlite open failed: %v", err)
		}
		return db
	}
}
