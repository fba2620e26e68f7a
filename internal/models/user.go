package models

import "time"

// Role values granting admin-panel access tiers.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

// UserModel is a staff account. Only institutional addresses are allowed;
// the domain rule lives in the services, not the model.
type UserModel struct {
	Base
	Email         string     `json:"email"           gorm:"uniqueIndex;not null"`
	Password      string     `json:"-"               gorm:"not null"`
	LastLoginTime *time.Time `json:"last_login_time"`
	LastLoginIP   string     `json:"last_login_ip"`
}

func (UserModel) TableName() string { return "users" }

// UserRoleModel assigns a role to an account. Absence of a row means no
// admin-panel access at all.
type UserRoleModel struct {
	Base
	UserID string `json:"user_id" gorm:"uniqueIndex;not null"`
	Role   string `json:"role"    gorm:"type:varchar(16);not null"`
}

func (UserRoleModel) TableName() string { return "user_roles" }

// IsValidRole reports whether r is a known role value.
func IsValidRole(r string) bool {
	return r == RoleAdmin || r == RoleEditor
}
