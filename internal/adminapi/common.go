package adminapi

import (
	"net/http"
	"strconv"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/openretail/proshop/internal/app"
	"github.com/openretail/proshop/internal/identity"
	"github.com/openretail/proshop/internal/webserver"
)

// GetAppContext returns the application handle injected by the web server.
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(webserver.AppContextKey).(app.AppContext)
}

// GetDB returns the request's database handle.
func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB()
}

// currentIdentity reads the identity from the validated session token, if the
// route went through the token middleware.
func currentIdentity(c echo.Context) (identity.Identity, bool) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return identity.Identity{}, false
	}
	claims, ok := token.Claims.(*identity.Claims)
	if !ok {
		return identity.Identity{}, false
	}
	return identity.Identity{UserID: claims.UserID, Username: claims.Username, Role: claims.Role}, true
}

// requireAdmin rejects the request unless the caller's session carries the
// admin role.
func requireAdmin(c echo.Context) error {
	ident, ok := currentIdentity(c)
	if !ok || ident.Role != identity.RoleAdmin {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "Admin role required", nil)
	}
	return nil
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

type errorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Detail  interface{} `json:"detail,omitempty"`
}

func fail(c echo.Context, status int, code, message string, detail interface{}) error {
	return c.JSON(status, errorBody{Code: code, Message: message, Detail: detail})
}

// ListResponse is the pagination envelope.
type ListResponse struct {
	Data    interface{} `json:"data"`
	Total   int64       `json:"total"`
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
}

func paged(c echo.Context, rows interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, ListResponse{Data: rows, Total: total, Page: page, PerPage: pageSize})
}

// parsePagination reads page/perPage query params with sane bounds.
func parsePagination(c echo.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.QueryParam("perPage"))
	if pageSize < 1 || pageSize > 500 {
		pageSize = 20
	}
	return page, pageSize
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

// InitRouter registers every admin API route. Call after webserver.Init.
func InitRouter() {
	registerAuthRoutes()
	registerProductRoutes()
	registerSaleRoutes()
	registerReportRoutes()
	registerUserRoutes()
	registerSettingsRoutes()
	registerBackupRoutes()
}
