package model

import (
	"time"

	"github.com/google/uuid"
)

// Role orders administrators by Level; a role only assigns roles below its own
// level unless it is super-admin.
type Role struct {
	ID           uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code         string       `gorm:"type:varchar(50);uniqueIndex:uq_roles_code;not null" json:"code"`
	Label        string       `gorm:"type:varchar(255);not null" json:"label"`
	Level        int          `gorm:"not null;default:0" json:"level"`
	IsSuperAdmin bool         `gorm:"not null;default:false" json:"is_super_admin"`
	IsAdmin      bool         `gorm:"not null;default:false" json:"is_admin"`
	IsSystem     bool         `gorm:"not null;default:false" json:"is_system"` // seeded roles cannot be deleted
	Permissions  []Permission `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE" json:"permissions"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Permission is the capability row of one (role, page group) pair.
type Permission struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RoleID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_permissions_role_group" json:"role_id"`
	PageGroupCode string    `gorm:"type:varchar(30);not null;uniqueIndex:uq_permissions_role_group" json:"page_group_code"`
	CanView       bool      `gorm:"not null;default:false" json:"can_view"`
	CanEdit       bool      `gorm:"not null;default:false" json:"can_edit"`
	CanDelete     bool      `gorm:"not null;default:false" json:"can_delete"`
	CanAdmin      bool      `gorm:"not null;default:false" json:"can_admin"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PageGroup is a menu section and the unit of access control.
type PageGroup struct {
	Code         string `gorm:"type:varchar(30);primaryKey" json:"code"`
	Label        string `gorm:"type:varchar(255);not null" json:"label"`
	DisplayOrder int    `gorm:"not null;default:0" json:"display_order"`
	IsActive     bool   `gorm:"not null;default:true" json:"is_active"`
}
