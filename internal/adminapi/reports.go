package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/openretail/proshop/internal/reports"
	"github.com/openretail/proshop/internal/webserver"
)

func registerReportRoutes() {
	webserver.ApiGET("/reports/dashboard", getDashboard)
	webserver.ApiGET("/reports/users", getUserPerformance)
}

func getDashboard(c echo.Context) error {
	app := GetAppContext(c)
	threshold := int(app.GetSettingsInt64Value("shop", "low_stock_threshold"))
	if threshold <= 0 {
		threshold = reports.DefaultLowStockThreshold
	}
	dashboard, err := app.Reports().Dashboard(threshold)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to build dashboard", err.Error())
	}
	return ok(c, dashboard)
}

func getUserPerformance(c echo.Context) error {
	stats, err := GetAppContext(c).Reports().UserPerformance()
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to build user performance report", err.Error())
	}
	return ok(c, stats)
}
