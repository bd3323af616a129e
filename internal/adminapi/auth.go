package adminapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/openretail/proshop/internal/domain"
	"github.com/openretail/proshop/internal/webserver"
	"github.com/openretail/proshop/pkg/common"
)

func registerAuthRoutes() {
	webserver.PubPOST("/auth/login", login)
}

type loginPayload struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResult struct {
	Token    string `json:"token"`
	UserID   int64  `json:"user_id,string"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

func login(c echo.Context) error {
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse credentials", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION", "Username and password are required", err.Error())
	}

	app := GetAppContext(c)
	var user domain.SysUser
	err := app.DB().Where("username = ? AND status = ?", payload.Username, common.ENABLED).First(&user).Error
	if err != nil || !common.CheckPassword(user.Password, payload.Password) {
		writeUserLog(c, payload.Username, "login", "login failed")
		return fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid username or password", nil)
	}

	token, err := app.IdentityGate().IssueToken(&user)
	if err != nil {
		zap.L().Error("issue session token failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to create session", nil)
	}

	app.DB().Model(&domain.SysUser{}).Where("id = ?", user.ID).
		Update("last_login", time.Now())
	writeUserLog(c, user.Username, "login", "login success")

	return ok(c, loginResult{
		Token:    token,
		UserID:   user.ID,
		Username: user.Username,
		Name:     user.Name,
		Role:     user.Role,
	})
}

func writeUserLog(c echo.Context, username, action, desc string) {
	err := GetDB(c).Create(&domain.SysUserLog{
		ID:       common.UUIDint64(),
		Username: username,
		Ip:       c.RealIP(),
		Action:   action,
		Desc:     desc,
		OptTime:  time.Now(),
	}).Error
	if err != nil {
		zap.L().Error("write user log failed", zap.Error(err))
	}
}
