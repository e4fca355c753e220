package repository

import (
	"context"

	"pomi/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoleRepository interface {
	Create(ctx context.Context, role *model.Role) error
	Update(ctx context.Context, role *model.Role) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error)
	FindByCode(ctx context.Context, code string) (*model.Role, error)
	ListAll(ctx context.Context) ([]model.Role, error)
	ReplacePermissions(ctx context.Context, roleID uuid.UUID, perms []model.Permission) error
	UpsertPageGroup(ctx context.Context, group *model.PageGroup) error
	ListPageGroups(ctx context.Context) ([]model.PageGroup, error)
}

type roleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) Create(ctx context.Context, role *model.Role) error {
	return GetDB(ctx, r.db).Omit("Permissions").Create(role).Error
}

func (r *roleRepository) Update(ctx context.Context, role *model.Role) error {
	return GetDB(ctx, r.db).Model(role).
		Select("Label", "Level", "IsAdmin", "IsSuperAdmin").
		Updates(role).Error
}

func (r *roleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).Preload("Permissions").First(&role, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) FindByCode(ctx context.Context, code string) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).Preload("Permissions").Where("code = ?", code).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) ListAll(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	if err := GetDB(ctx, r.db).Preload("Permissions").Order("level desc, code asc").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// ReplacePermissions swaps the whole permission matrix of a role.
func (r *roleRepository) ReplacePermissions(ctx context.Context, roleID uuid.UUID, perms []model.Permission) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("role_id = ?", roleID).Delete(&model.Permission{}).Error; err != nil {
		return err
	}
	if len(perms) == 0 {
		return nil
	}
	for i := range perms {
		perms[i].RoleID = roleID
	}
	return db.Create(&perms).Error
}

func (r *roleRepository) UpsertPageGroup(ctx context.Context, group *model.PageGroup) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"label", "display_order"}),
	}).Create(group).Error
}

func (r *roleRepository) ListPageGroups(ctx context.Context) ([]model.PageGroup, error) {
	var groups []model.PageGroup
	if err := GetDB(ctx, r.db).Order("display_order asc").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}
