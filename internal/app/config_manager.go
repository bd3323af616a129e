package app

import (
	"sync"
	"time"

	"github.com/spf13/cast"
	"gorm.io/gorm"

	"github.com/openretail/proshop/internal/domain"
	"github.com/openretail/proshop/pkg/common"
)

const configCacheTTL = 30 * time.Second

// ConfigManager reads runtime settings from sys_config with a short TTL cache
// so hot paths (dashboard threshold lookups) don't query the table each time.
type ConfigManager struct {
	db *gorm.DB

	mu     sync.RWMutex
	cache  map[string]string
	loaded time.Time
}

func NewConfigManager(db *gorm.DB) *ConfigManager {
	return &ConfigManager{db: db, cache: make(map[string]string)}
}

func (m *ConfigManager) snapshot() map[string]string {
	m.mu.RLock()
	if time.Since(m.loaded) < configCacheTTL {
		c := m.cache
		m.mu.RUnlock()
		return c
	}
	m.mu.RUnlock()

	var rows []domain.SysConfig
	if err := m.db.Find(&rows).Error; err != nil {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return m.cache
	}
	fresh := make(map[string]string, len(rows))
	for _, row := range rows {
		fresh[row.Type+"."+row.Name] = row.Value
	}
	m.mu.Lock()
	m.cache = fresh
	m.loaded = time.Now()
	m.mu.Unlock()
	return fresh
}

func (m *ConfigManager) GetString(category, name string) string {
	return m.snapshot()[category+"."+name]
}

func (m *ConfigManager) GetInt64(category, name string) int64 {
	return cast.ToInt64(m.GetString(category, name))
}

func (m *ConfigManager) GetInt(category, name string) int {
	return cast.ToInt(m.GetString(category, name))
}

func (m *ConfigManager) GetBool(category, name string) bool {
	return cast.ToBool(m.GetString(category, name))
}

// Set updates or creates a setting value and invalidates the cache.
func (m *ConfigManager) Set(category, name, value string) error {
	var row domain.SysConfig
	err := m.db.Where("type = ? and name = ?", category, name).First(&row).Error
	if err == nil {
		err = m.db.Model(&domain.SysConfig{}).Where("id = ?", row.ID).
			Updates(map[string]interface{}{"value": value, "updated_at": time.Now()}).Error
	} else {
		err = m.db.Create(&domain.SysConfig{ID: common.UUIDint64(), Type: category, Name: name, Value: value}).Error
	}
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.loaded = time.Time{}
	m.mu.Unlock()
	return nil
}
