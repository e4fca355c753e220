package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateRecord     = "CREATE_RECORD"
	ActionUpdateRecords    = "UPDATE_RECORDS"
	ActionDeactivateRecord = "DEACTIVATE_RECORD"
	ActionReactivateRecord = "REACTIVATE_RECORD"

	ActionCreateUser     = "CREATE_USER"
	ActionUpdateUser     = "UPDATE_USER"
	ActionResetPassword  = "RESET_PASSWORD"
	ActionDeactivateUser = "DEACTIVATE_USER"
	ActionReactivateUser = "REACTIVATE_USER"

	ActionCreateRole        = "CREATE_ROLE"
	ActionUpdateRole        = "UPDATE_ROLE"
	ActionUpdatePermissions = "UPDATE_PERMISSIONS"
)

// AuditLog records who did what and when. It stores the touched columns,
// never the previous values.
type AuditLog struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User      *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action    string     `gorm:"type:varchar(50);not null;index" json:"action"`
	Entity    string     `gorm:"type:varchar(100);index" json:"entity"`
	EntityID  string     `gorm:"type:varchar(50);index" json:"entity_id"`
	Details   string     `gorm:"type:jsonb" json:"details"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}
