package model

import (
	"time"

	"github.com/google/uuid"
)

// User is an application account. Accounts are never hard-deleted; IsActive
// is cleared instead.
type User struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username    string     `gorm:"type:varchar(100);uniqueIndex:uq_users_app_username;not null" json:"username"`
	DisplayName string     `gorm:"type:varchar(255)" json:"display_name"`
	Email       string     `gorm:"type:varchar(255);uniqueIndex:uq_users_app_email;not null" json:"email"`
	Password    string     `gorm:"type:varchar(255);not null" json:"-"`
	RoleID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"role_id"`
	Role        *Role      `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	IsActive    bool       `gorm:"default:true;not null" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "users_app" }
