package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v2"
)

type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type WebConfig struct {
	Host      string `yaml:"host" json:"host"`
	Port      int    `yaml:"port" json:"port"`
	JwtSecret string `yaml:"jwt_secret" json:"jwt_secret"`
}

type DBConfig struct {
	Type     string `yaml:"type" json:"type"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Name     string `yaml:"name" json:"name"`
	User     string `yaml:"user" json:"user"`
	Passwd   string `yaml:"passwd" json:"passwd"`
	MaxConn  int    `yaml:"max_conn" json:"max_conn"`
	IdleConn int    `yaml:"idle_conn" json:"idle_conn"`
}

type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

type BackupConfig struct {
	Dir  string `yaml:"dir" json:"dir"`
	Keep int    `yaml:"keep" json:"keep"`
}

type AppConfig struct {
	System   SysConfig    `yaml:"system" json:"system"`
	Web      WebConfig    `yaml:"web" json:"web"`
	Database DBConfig     `yaml:"database" json:"database"`
	Logger   LogConfig    `yaml:"logger" json:"logger"`
	Backup   BackupConfig `yaml:"backup" json:"backup"`
}

func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "ProShop",
			Location: "Asia/Kolkata",
			Workdir:  "/var/proshop",
			Debug:    true,
		},
		Web: WebConfig{
			Host:      "0.0.0.0",
			Port:      1980,
			JwtSecret: "9b6de5cc-proshop-1719-b17e-f1db9e3ab8cf",
		},
		Database: DBConfig{
			Type:     "sqlite",
			Name:     "proshop",
			MaxConn:  100,
			IdleConn: 10,
		},
		Logger: LogConfig{
			Mode:       "development",
			FileEnable: true,
			Filename:   "/var/proshop/proshop.log",
		},
		Backup: BackupConfig{
			Dir:  "/var/proshop/backup",
			Keep: 30,
		},
	}
}

// LoadConfig reads the YAML config at cfile, falling back to defaults, and
// applies PROSHOP_* environment overrides last.
func LoadConfig(cfile string) *AppConfig {
	cfg := DefaultAppConfig()
	if cfile != "" {
		if data, err := os.ReadFile(cfile); err == nil {
			_ = yaml.Unmarshal(data, cfg)
		}
	}

	setEnvString(&cfg.System.Workdir, "PROSHOP_SYSTEM_WORKDIR")
	setEnvString(&cfg.System.Location, "PROSHOP_SYSTEM_LOCATION")
	setEnvBool(&cfg.System.Debug, "PROSHOP_SYSTEM_DEBUG")
	setEnvString(&cfg.Web.Host, "PROSHOP_WEB_HOST")
	setEnvInt(&cfg.Web.Port, "PROSHOP_WEB_PORT")
	setEnvString(&cfg.Web.JwtSecret, "PROSHOP_WEB_JWT_SECRET")
	setEnvString(&cfg.Database.Type, "PROSHOP_DB_TYPE")
	setEnvString(&cfg.Database.Host, "PROSHOP_DB_HOST")
	setEnvInt(&cfg.Database.Port, "PROSHOP_DB_PORT")
	setEnvString(&cfg.Database.Name, "PROSHOP_DB_NAME")
	setEnvString(&cfg.Database.User, "PROSHOP_DB_USER")
	setEnvString(&cfg.Database.Passwd, "PROSHOP_DB_PASSWD")
	setEnvString(&cfg.Logger.Mode, "PROSHOP_LOGGER_MODE")
	setEnvString(&cfg.Backup.Dir, "PROSHOP_BACKUP_DIR")
	setEnvInt(&cfg.Backup.Keep, "PROSHOP_BACKUP_KEEP")

	return cfg
}

// SqliteFile returns the path of the sqlite database file under workdir.
func (c *AppConfig) SqliteFile() string {
	return filepath.Join(c.System.Workdir, "data", c.Database.Name+".db")
}

func setEnvString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setEnvInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = cast.ToInt(v)
	}
}

func setEnvBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = cast.ToBool(v)
	}
}
