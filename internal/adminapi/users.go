package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"

	"github.com/openretail/proshop/internal/domain"
	"github.com/openretail/proshop/internal/identity"
	"github.com/openretail/proshop/internal/webserver"
	"github.com/openretail/proshop/pkg/common"
)

func registerUserRoutes() {
	webserver.ApiGET("/users", listUsers)
	webserver.ApiPOST("/users", createUser)
	webserver.ApiPUT("/users/:id", updateUser)
	webserver.ApiDELETE("/users/:id", deleteUser)
}

type userPayload struct {
	Username string `json:"username" validate:"required,min=2,max=64"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type userUpdatePayload struct {
	Password *string `json:"password"`
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	Status   *string `json:"status"`
}

func validRole(role string) bool {
	return role == identity.RoleAdmin || role == identity.RoleStaff
}

func listUsers(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.SysUser{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query users", err.Error())
	}
	var rows []domain.SysUser
	if err := db.Order("created_at ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query users", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}

func createUser(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	var payload userPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse user", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION", "Username and password are required", err.Error())
	}
	if payload.Role == "" {
		payload.Role = identity.RoleStaff
	}
	if !validRole(payload.Role) {
		return fail(c, http.StatusBadRequest, "VALIDATION", "Role must be admin or staff", nil)
	}

	db := GetDB(c)
	var count int64
	db.Model(&domain.SysUser{}).Where("username = ?", payload.Username).Count(&count)
	if count > 0 {
		return fail(c, http.StatusConflict, "DUPLICATE_USERNAME", "Username already exists", nil)
	}

	hash, err := common.HashPassword(payload.Password)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to hash password", nil)
	}
	user := domain.SysUser{
		ID:       common.UUIDint64(),
		Username: strings.TrimSpace(payload.Username),
		Password: hash,
		Name:     payload.Name,
		Role:     payload.Role,
		Status:   common.ENABLED,
	}
	if err := db.Create(&user).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create user", err.Error())
	}
	writeUserLog(c, user.Username, "create_user", "user created")
	return ok(c, user)
}

func updateUser(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID", nil)
	}
	var payload userUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse user", err.Error())
	}

	app := GetAppContext(c)
	var user domain.SysUser
	if err := app.DB().Where("id = ?", id).First(&user).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "User not found", nil)
	}

	if payload.Password != nil && *payload.Password != "" {
		hash, err := common.HashPassword(*payload.Password)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to hash password", nil)
		}
		user.Password = hash
	}
	if payload.Name != nil {
		user.Name = *payload.Name
	}
	if payload.Role != nil {
		if !validRole(*payload.Role) {
			return fail(c, http.StatusBadRequest, "VALIDATION", "Role must be admin or staff", nil)
		}
		user.Role = *payload.Role
	}
	if payload.Status != nil {
		if *payload.Status != common.ENABLED && *payload.Status != common.DISABLED {
			return fail(c, http.StatusBadRequest, "VALIDATION", "Status must be enabled or disabled", nil)
		}
		user.Status = *payload.Status
	}

	if err := app.DB().Save(&user).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update user", err.Error())
	}
	// Stale cached identities must stop resolving once role or status change.
	app.IdentityGate().Invalidate(user.ID)
	writeUserLog(c, user.Username, "update_user", "user updated")
	return ok(c, user)
}

func deleteUser(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID", nil)
	}

	app := GetAppContext(c)
	var user domain.SysUser
	if err := app.DB().Where("id = ?", id).First(&user).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "User not found", nil)
	}
	if user.Username == identity.SuperUsername {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "Super user cannot be deleted", nil)
	}

	if err := app.DB().Delete(&user).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete user", err.Error())
	}
	app.IdentityGate().Invalidate(user.ID)
	writeUserLog(c, user.Username, "delete_user", "user deleted")
	return ok(c, echo.Map{"deleted": cast.ToString(id)})
}
