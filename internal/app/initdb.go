package app

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/openretail/proshop/internal/domain"
	"github.com/openretail/proshop/internal/identity"
	"github.com/openretail/proshop/pkg/common"
)

const defaultSuperPassword = "proshop"

// checkSuper seeds the default super admin and repairs it if the row was
// damaged (blank password, demoted, disabled). The checkout identity fallback
// attributes to this account when session resolution fails.
func (a *Application) checkSuper() {
	hashed, err := common.HashPassword(defaultSuperPassword)
	if err != nil {
		zap.L().Error("failed to hash default password", zap.Error(err))
		return
	}

	var user domain.SysUser
	err = a.gormDB.Where("username = ?", identity.SuperUsername).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := a.gormDB.Create(&domain.SysUser{
			ID:        common.UUIDint64(),
			Username:  identity.SuperUsername,
			Password:  hashed,
			Name:      "Administrator",
			Role:      identity.RoleAdmin,
			Status:    common.ENABLED,
			LastLogin: time.Now(),
		}).Error; err != nil {
			zap.L().Error("failed to create default super admin", zap.Error(err))
		} else {
			zap.L().Info("initialized default super admin account",
				zap.String("username", identity.SuperUsername))
		}
		return
	case err != nil:
		zap.L().Error("failed to query super admin", zap.Error(err))
		return
	}

	resetPassword := strings.TrimSpace(user.Password) == ""
	resetRole := !strings.EqualFold(user.Role, identity.RoleAdmin)
	resetStatus := !strings.EqualFold(user.Status, common.ENABLED)

	if !resetPassword && !resetRole && !resetStatus {
		return
	}

	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if resetPassword {
		updates["password"] = hashed
	}
	if resetRole {
		updates["role"] = identity.RoleAdmin
	}
	if resetStatus {
		updates["status"] = common.ENABLED
	}

	if err := a.gormDB.Model(&domain.SysUser{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		zap.L().Error("failed to repair super admin account", zap.Error(err))
		return
	}

	zap.L().Warn("repaired default super admin account",
		zap.String("username", identity.SuperUsername),
		zap.Bool("passwordReset", resetPassword),
		zap.Bool("roleReset", resetRole),
		zap.Bool("statusEnabled", resetStatus))
}

// checkDefaultCategory creates the fallback "Others" category once.
func (a *Application) checkDefaultCategory() {
	var count int64
	a.gormDB.Model(&domain.Category{}).
		Where("name = ?", domain.DefaultCategoryName).
		Count(&count)
	if count == 0 {
		if err := a.gormDB.Create(&domain.Category{
			ID:   common.UUIDint64(),
			Name: domain.DefaultCategoryName,
		}).Error; err != nil {
			zap.L().Error("failed to create default category", zap.Error(err))
		} else {
			zap.L().Info("initialized default category",
				zap.String("name", domain.DefaultCategoryName))
		}
	}
}

type settingSchema struct {
	Key         string
	Default     string
	Description string
}

// settingSchemas are the runtime settings persisted in sys_config. Values are
// tunable at runtime without a restart; config file values only seed them.
var settingSchemas = []settingSchema{
	{Key: "shop.name", Default: "ProShop", Description: "Shop display name on receipts"},
	{Key: "shop.low_stock_threshold", Default: "10", Description: "Dashboard low-stock alert threshold"},
	{Key: "backup.enabled", Default: "true", Description: "Run the daily backup job"},
	{Key: "audit.retention_days", Default: "365", Description: "Days to keep user action logs"},
}

// checkSettings initializes missing sys_config entries with their defaults.
func (a *Application) checkSettings() {
	for sortid, schema := range settingSchemas {
		parts := strings.SplitN(schema.Key, ".", 2)
		if len(parts) != 2 {
			zap.L().Warn("invalid config key format", zap.String("key", schema.Key))
			continue
		}
		category, name := parts[0], parts[1]

		var count int64
		a.gormDB.Model(&domain.SysConfig{}).
			Where("type = ? and name = ?", category, name).
			Count(&count)
		if count == 0 {
			a.gormDB.Create(&domain.SysConfig{
				ID:     common.UUIDint64(),
				Sort:   sortid,
				Type:   category,
				Name:   name,
				Value:  schema.Default,
				Remark: schema.Description,
			})
			zap.L().Info("initialized config",
				zap.String("key", schema.Key),
				zap.String("default", schema.Default))
		}
	}
}
