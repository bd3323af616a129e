package domain

import (
	"time"
)

type SysConfig struct {
	ID        int64     `json:"id,string"   form:"id"`
	Sort      int       `json:"sort"  form:"sort"`
	Type      string    `gorm:"index" json:"type" form:"type"`
	Name      string    `gorm:"index" json:"name" form:"name"`
	Value     string    `json:"value" form:"value"`
	Remark    string    `json:"remark" form:"remark"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (SysConfig) TableName() string {
	return "sys_config"
}

// SysUser is a staff account. Role is "admin" or "staff"; sales are attributed
// to the user resolved from the caller's session token.
type SysUser struct {
	ID        int64     `json:"id,string" form:"id"`
	Username  string    `gorm:"uniqueIndex;size:64" json:"username" form:"username"`
	Password  string    `json:"-" form:"-"`
	Name      string    `json:"name" form:"name"`
	Role      string    `gorm:"size:16" json:"role" form:"role"`
	Status    string    `gorm:"size:16" json:"status" form:"status"`
	LastLogin time.Time `json:"last_login" form:"last_login"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (SysUser) TableName() string {
	return "sys_user"
}

type SysUserLog struct {
	ID       int64     `json:"id,string"`
	Username string    `json:"username"`
	Ip       string    `json:"ip"`
	Action   string    `json:"action"`
	Desc     string    `json:"desc"`
	OptTime  time.Time `json:"opt_time"`
}

// TableName Specify table name
func (SysUserLog) TableName() string {
	return "sys_user_log"
}
