package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/openretail/proshop/internal/webserver"
)

func registerBackupRoutes() {
	webserver.ApiPOST("/backup/run", runBackup)
}

func runBackup(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	ident, _ := currentIdentity(c)
	path, err := GetAppContext(c).BackupNow()
	if err != nil {
		zap.L().Error("manual backup failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "BACKUP_ERROR", "Backup failed", err.Error())
	}
	writeUserLog(c, ident.Username, "backup", "manual backup to "+path)
	return ok(c, echo.Map{"file": path})
}
