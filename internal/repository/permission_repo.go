package repository

import (
	"context"

	"pomi/internal/access"

	"gorm.io/gorm"
)

// PermissionRepository reads the role and permission matrix of a user.
type PermissionRepository interface {
	LoadRoleInfo(ctx context.Context, userID string) (*access.RoleInfo, error)
	LoadPermissions(ctx context.Context, userID string) (map[string]access.CapabilitySet, error)
}

type permissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

// LoadRoleInfo returns nil without error when the user is unknown, inactive
// or has no role.
func (r *permissionRepository) LoadRoleInfo(ctx context.Context, userID string) (*access.RoleInfo, error) {
	var rows []access.RoleInfo
	err := GetDB(ctx, r.db).Table("users_app AS u").
		Select("r.code, r.label, r.level, r.is_super_admin, r.is_admin").
		Joins("JOIN roles r ON r.id = u.role_id").
		Where("u.id = ? AND u.is_active = ?", userID, true).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, TranslateError(nil, nil, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// LoadPermissions returns the capability flags per page group of the user's
// role. Inactive page groups are left out.
func (r *permissionRepository) LoadPermissions(ctx context.Context, userID string) (map[string]access.CapabilitySet, error) {
	var rows []struct {
		PageGroupCode string
		CanView       bool
		CanEdit       bool
		CanDelete     bool
		CanAdmin      bool
	}
	err := GetDB(ctx, r.db).Table("users_app AS u").
		Select("p.page_group_code, p.can_view, p.can_edit, p.can_delete, p.can_admin").
		Joins("JOIN permissions p ON p.role_id = u.role_id").
		Joins("JOIN page_groups g ON g.code = p.page_group_code").
		Where("u.id = ? AND u.is_active = ? AND g.is_active = ?", userID, true, true).
		Scan(&rows).Error
	if err != nil {
		return nil, TranslateError(nil, nil, err)
	}

	perms := make(map[string]access.CapabilitySet, len(rows))
	for _, row := range rows {
		perms[row.PageGroupCode] = access.CapabilitySet{
			CanView:   row.CanView,
			CanEdit:   row.CanEdit,
			CanDelete: row.CanDelete,
			CanAdmin:  row.CanAdmin,
		}
	}
	return perms, nil
}
