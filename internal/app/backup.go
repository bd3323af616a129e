package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BackupNow writes a consistent snapshot of the durable store into the
// configured backup directory and returns the written path. SQLite snapshots
// via VACUUM INTO (falling back to a plain file copy); postgres produces a
// SQL dump of all shop tables.
func (a *Application) BackupNow() (string, error) {
	destDir := a.appConfig.Backup.Dir
	if destDir == "" {
		destDir = filepath.Join(a.appConfig.System.Workdir, "backup")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", pkgerrors.Wrap(err, "create backup dir")
	}

	timestamp := time.Now().Format("20060102_150405")
	var dest string
	var err error
	switch a.gormDB.Dialector.Name() {
	case "sqlite":
		dest = filepath.Join(destDir, fmt.Sprintf("proshop_backup_%s.db", timestamp))
		err = a.backupSqlite(dest)
	default:
		dest = filepath.Join(destDir, fmt.Sprintf("proshop_backup_%s.sql", timestamp))
		err = a.backupSQLDump(dest)
	}
	if err != nil {
		return "", err
	}

	a.pruneBackups(destDir)
	return dest, nil
}

func (a *Application) backupSqlite(dest string) error {
	// VACUUM INTO produces a consistent snapshot even with WAL mode active
	err := a.gormDB.Exec("VACUUM INTO ?", dest).Error
	if err == nil {
		return nil
	}
	zap.L().Warn("VACUUM INTO failed, falling back to file copy", zap.Error(err))

	src, err := os.Open(a.appConfig.SqliteFile())
	if err != nil {
		return pkgerrors.Wrap(err, "open database file")
	}
	defer src.Close()
	out, err := os.Create(dest)
	if err != nil {
		return pkgerrors.Wrap(err, "create backup file")
	}
	defer out.Close()
	if _, err := io.Copy(out, src); err != nil {
		return pkgerrors.Wrap(err, "copy database file")
	}
	return nil
}

// backupSQLDump writes INSERT statements for every shop table. Postgres-only
// path; the dump restores with psql against an empty migrated schema.
func (a *Application) backupSQLDump(dest string) error {
	db := a.gormDB
	var sb strings.Builder
	sb.WriteString("-- ProShop Database Backup\n")
	sb.WriteString(fmt.Sprintf("-- Generated at: %s\n\n", time.Now().Format("2006-01-02 15:04:05")))

	var tableNames []string
	db.Raw(`
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		ORDER BY table_name
	`).Scan(&tableNames)

	for _, tableName := range tableNames {
		sb.WriteString(fmt.Sprintf("-- Table: %s\n", tableName))
		sb.WriteString(generateTableInserts(db, tableName))
		sb.WriteString("\n")
	}

	if err := os.WriteFile(dest, []byte(sb.String()), 0o600); err != nil {
		return pkgerrors.Wrap(err, "write backup file")
	}
	return nil
}

func generateTableInserts(db *gorm.DB, tableName string) string {
	var rows []map[string]interface{}
	if err := db.Table(tableName).Find(&rows).Error; err != nil || len(rows) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, row := range rows {
		cols := make([]string, 0, len(row))
		for col := range row {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		vals := make([]string, 0, len(cols))
		for _, col := range cols {
			vals = append(vals, formatSQLValue(row[col]))
		}
		sb.WriteString(fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s);\n",
			tableName, strings.Join(cols, ", "), strings.Join(vals, ", ")))
	}
	return sb.String()
}

func formatSQLValue(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case []byte:
		return "'" + strings.ReplaceAll(string(v), "'", "''") + "'"
	case time.Time:
		return "'" + v.Format("2006-01-02 15:04:05.999999") + "'"
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// pruneBackups drops the oldest files beyond the configured keep count.
func (a *Application) pruneBackups(dir string) {
	keep := a.appConfig.Backup.Keep
	if keep <= 0 {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "proshop_backup_") {
			names = append(names, e.Name())
		}
	}
	if len(names) <= keep {
		return
	}
	sort.Strings(names)
	for _, name := range names[:len(names)-keep] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			zap.L().Warn("failed to prune old backup", zap.String("file", name), zap.Error(err))
		}
	}
}
