package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/openretail/proshop/internal/domain"
	"github.com/openretail/proshop/internal/webserver"
)

func registerSettingsRoutes() {
	webserver.ApiGET("/settings", listSettings)
	webserver.ApiPUT("/settings", updateSetting)
}

func listSettings(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	var rows []domain.SysConfig
	if err := GetDB(c).Order("type, name").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query settings", err.Error())
	}
	return ok(c, rows)
}

type settingPayload struct {
	Type  string `json:"type" form:"type" validate:"required"`
	Name  string `json:"name" form:"name" validate:"required"`
	Value string `json:"value" form:"value"`
}

func updateSetting(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	var payload settingPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse setting", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION", "Setting type and name are required", err.Error())
	}
	if err := GetAppContext(c).SetSettingsValue(payload.Type, payload.Name, payload.Value); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update setting", err.Error())
	}
	ident, _ := currentIdentity(c)
	writeUserLog(c, ident.Username, "settings", "set "+payload.Type+"."+payload.Name+" = "+payload.Value)
	return ok(c, echo.Map{payload.Type + "." + payload.Name: payload.Value})
}
