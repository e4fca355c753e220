package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"pomi/internal/access"
	"pomi/internal/apperror"
	"pomi/internal/model"
	"pomi/internal/repository"
	"pomi/internal/schema"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateRoleRequest struct {
	Code    string `json:"code" binding:"required"`
	Label   string `json:"label" binding:"required"`
	Level   int    `json:"level" binding:"min=0"`
	IsAdmin bool   `json:"is_admin"`
}

type UpdateRoleRequest struct {
	Label   string `json:"label" binding:"required"`
	Level   int    `json:"level" binding:"min=0"`
	IsAdmin bool   `json:"is_admin"`
}

type PermissionEntry struct {
	PageGroupCode string `json:"page_group_code" binding:"required"`
	CanView       bool   `json:"can_view"`
	CanEdit       bool   `json:"can_edit"`
	CanDelete     bool   `json:"can_delete"`
	CanAdmin      bool   `json:"can_admin"`
}

type UpdateRolePermissionsRequest struct {
	Permissions []PermissionEntry `json:"permissions" binding:"dive"`
}

type RoleResponse struct {
	ID           string            `json:"id"`
	Code         string            `json:"code"`
	Label        string            `json:"label"`
	Level        int               `json:"level"`
	IsSuperAdmin bool              `json:"is_super_admin"`
	IsAdmin      bool              `json:"is_admin"`
	IsSystem     bool              `json:"is_system"`
	Permissions  []PermissionEntry `json:"permissions"`
}

type PageGroupResponse struct {
	Code     string `json:"code"`
	Label    string `json:"label"`
	Order    int    `json:"order"`
	IsActive bool   `json:"is_active"`
}

// --- Interface ---

type RoleService interface {
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	GetRole(ctx context.Context, id string) (*RoleResponse, error)
	CreateRole(ctx context.Context, actor *access.Principal, req CreateRoleRequest) (*RoleResponse, error)
	UpdateRole(ctx context.Context, actor *access.Principal, id string, req UpdateRoleRequest) (*RoleResponse, error)
	UpdateRolePermissions(ctx context.Context, actor *access.Principal, id string, req UpdateRolePermissionsRequest) (*RoleResponse, error)
	ListPageGroups(ctx context.Context) ([]PageGroupResponse, error)
	SeedDefaults(ctx context.Context) error
}

type roleService struct {
	repo      repository.RoleRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	access    AccessService
	log       *zap.Logger
}

func NewRoleService(repo repository.RoleRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager, accessService AccessService, log *zap.Logger) RoleService {
	return &roleService{repo: repo, auditRepo: auditRepo, txManager: txManager, access: accessService, log: log}
}

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, repository.TranslateError(nil, nil, err)
	}
	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, nil
}

func (s *roleService) find(ctx context.Context, id string) (*model.Role, error) {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.New(apperror.ErrValidationFailed, "Identifiant de rôle invalide")
	}
	role, err := s.repo.FindByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(apperror.ErrNotFound, "Rôle introuvable")
		}
		return nil, repository.TranslateError(nil, nil, err)
	}
	return role, nil
}

func (s *roleService) GetRole(ctx context.Context, id string) (*RoleResponse, error) {
	role, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toRoleResponse(*role)
	return &resp, nil
}

// guard applies the seniority rule to role management: the actor only
// manages roles strictly below its own level.
func guard(actor *access.Principal, target access.RoleInfo) error {
	if actor == nil || !access.CanAssignRole(actor.Role, target) {
		return apperror.New(apperror.ErrAuthorizationDenied, "Niveau de rôle insuffisant")
	}
	return nil
}

func (s *roleService) CreateRole(ctx context.Context, actor *access.Principal, req CreateRoleRequest) (*RoleResponse, error) {
	role := &model.Role{
		Code:    strings.ToUpper(strings.TrimSpace(req.Code)),
		Label:   strings.TrimSpace(req.Label),
		Level:   req.Level,
		IsAdmin: req.IsAdmin,
	}
	if err := guard(actor, roleInfo(role)); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, role); err != nil {
			return repository.TranslateError(nil, roleKeys, err)
		}
		details, _ := json.Marshal(map[string]any{"code": role.Code, "level": role.Level})
		return s.logAction(txCtx, actor, model.ActionCreateRole, role.ID.String(), string(details))
	})
	if err != nil {
		return nil, err
	}
	return s.GetRole(ctx, role.ID.String())
}

func (s *roleService) UpdateRole(ctx context.Context, actor *access.Principal, id string, req UpdateRoleRequest) (*RoleResponse, error) {
	role, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guard(actor, roleInfo(role)); err != nil {
		return nil, err
	}
	role.Label = strings.TrimSpace(req.Label)
	role.Level = req.Level
	role.IsAdmin = req.IsAdmin
	if err := guard(actor, roleInfo(role)); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, role); err != nil {
			return repository.TranslateError(nil, roleKeys, err)
		}
		details, _ := json.Marshal(map[string]any{"label": role.Label, "level": role.Level})
		return s.logAction(txCtx, actor, model.ActionUpdateRole, role.ID.String(), string(details))
	})
	if err != nil {
		return nil, err
	}
	return s.GetRole(ctx, id)
}

// UpdateRolePermissions replaces the whole matrix of a role. Sessions pick up
// the change at their next login or manual refresh.
func (s *roleService) UpdateRolePermissions(ctx context.Context, actor *access.Principal, id string, req UpdateRolePermissionsRequest) (*RoleResponse, error) {
	role, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guard(actor, roleInfo(role)); err != nil {
		return nil, err
	}

	gate := s.access.Gate()
	seen := make(map[string]bool, len(req.Permissions))
	perms := make([]model.Permission, 0, len(req.Permissions))
	for _, p := range req.Permissions {
		code := strings.ToUpper(strings.TrimSpace(p.PageGroupCode))
		if !gate.Known(code) {
			return nil, apperror.New(apperror.ErrValidationFailed, "Section inconnue : "+p.PageGroupCode)
		}
		if seen[code] {
			return nil, apperror.New(apperror.ErrValidationFailed, "Section en double : "+code)
		}
		seen[code] = true
		perms = append(perms, model.Permission{
			PageGroupCode: code,
			CanView:       p.CanView,
			CanEdit:       p.CanEdit,
			CanDelete:     p.CanDelete,
			CanAdmin:      p.CanAdmin,
		})
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.ReplacePermissions(txCtx, role.ID, perms); err != nil {
			return repository.TranslateError(nil, nil, err)
		}
		details, _ := json.Marshal(map[string]any{"role": role.Code, "permissions": req.Permissions})
		return s.logAction(txCtx, actor, model.ActionUpdatePermissions, role.ID.String(), string(details))
	})
	if err != nil {
		return nil, err
	}
	return s.GetRole(ctx, id)
}

func (s *roleService) ListPageGroups(ctx context.Context) ([]PageGroupResponse, error) {
	groups, err := s.repo.ListPageGroups(ctx)
	if err != nil {
		return nil, repository.TranslateError(nil, nil, err)
	}
	res := make([]PageGroupResponse, 0, len(groups))
	for _, g := range groups {
		res = append(res, PageGroupResponse{Code: g.Code, Label: g.Label, Order: g.DisplayOrder, IsActive: g.IsActive})
	}
	return res, nil
}

type roleDefinition struct {
	Label        string
	Level        int
	IsSuperAdmin bool
	IsAdmin      bool
	Permissions  map[string]access.CapabilitySet
}

var (
	capsAll  = access.CapabilitySet{CanView: true, CanEdit: true, CanDelete: true, CanAdmin: true}
	capsEdit = access.CapabilitySet{CanView: true, CanEdit: true, CanDelete: true}
	capsView = access.CapabilitySet{CanView: true}
)

func defaultRoles() map[string]roleDefinition {
	return map[string]roleDefinition{
		"SUPER_ADMIN": {Label: "Super administrateur", Level: 100, IsSuperAdmin: true, IsAdmin: true},
		"ADMIN": {Label: "Administrateur", Level: 80, IsAdmin: true, Permissions: map[string]access.CapabilitySet{
			access.GroupReferences: capsAll, access.GroupStock: capsAll, access.GroupPlanning: capsAll,
			access.GroupCRM: capsAll, access.GroupForecast: capsAll, access.GroupAdmin: capsAll,
		}},
		"RESPONSABLE": {Label: "Responsable", Level: 60, Permissions: map[string]access.CapabilitySet{
			access.GroupReferences: capsEdit, access.GroupStock: capsEdit, access.GroupPlanning: capsEdit,
			access.GroupCRM: capsEdit, access.GroupForecast: capsEdit,
		}},
		"OPERATEUR": {Label: "Opérateur", Level: 40, Permissions: map[string]access.CapabilitySet{
			access.GroupReferences: capsView,
			access.GroupStock:      {CanView: true, CanEdit: true},
			access.GroupPlanning:   {CanView: true, CanEdit: true},
		}},
		"CONSULTATION": {Label: "Consultation", Level: 20, Permissions: map[string]access.CapabilitySet{
			access.GroupReferences: capsView, access.GroupStock: capsView, access.GroupPlanning: capsView,
			access.GroupCRM: capsView, access.GroupForecast: capsView,
		}},
	}
}

// SeedDefaults creates the page groups and the system roles. Existing roles
// keep their current permission matrix.
func (s *roleService) SeedDefaults(ctx context.Context) error {
	for _, g := range access.DefaultPageGroups() {
		pg := &model.PageGroup{Code: g.Code, Label: g.Label, DisplayOrder: g.Order, IsActive: true}
		if err := s.repo.UpsertPageGroup(ctx, pg); err != nil {
			return fmt.Errorf("failed to seed page group '%s': %w", g.Code, err)
		}
	}
	if err := s.access.ReloadPageGroups(ctx); err != nil {
		return fmt.Errorf("failed to reload page groups: %w", err)
	}

	for code, def := range defaultRoles() {
		_, err := s.repo.FindByCode(ctx, code)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up role '%s': %w", code, err)
		}

		role := &model.Role{
			Code:         code,
			Label:        def.Label,
			Level:        def.Level,
			IsSuperAdmin: def.IsSuperAdmin,
			IsAdmin:      def.IsAdmin,
			IsSystem:     true,
		}
		perms := make([]model.Permission, 0, len(def.Permissions))
		for group, caps := range def.Permissions {
			perms = append(perms, model.Permission{
				PageGroupCode: group,
				CanView:       caps.CanView,
				CanEdit:       caps.CanEdit,
				CanDelete:     caps.CanDelete,
				CanAdmin:      caps.CanAdmin,
			})
		}
		err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.repo.Create(txCtx, role); err != nil {
				return err
			}
			return s.repo.ReplacePermissions(txCtx, role.ID, perms)
		})
		if err != nil {
			return fmt.Errorf("failed to seed role '%s': %w", code, err)
		}
		s.log.Info("seeded role", zap.String("code", code))
	}
	return nil
}

func (s *roleService) logAction(ctx context.Context, actor *access.Principal, action, roleID, details string) error {
	entry := &model.AuditLog{
		UserID:   actorID(actor),
		Action:   action,
		Entity:   "roles",
		EntityID: roleID,
		Details:  details,
	}
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		return apperror.Wrap(apperror.ErrStorage, "Échec de l'écriture du journal d'activité", err)
	}
	return nil
}

// --- Helpers ---

var roleKeys repository.KeyResolver = roleKeyResolver{}

type roleKeyResolver struct{}

func (roleKeyResolver) BusinessKeyFor(constraint string) (schema.BusinessKey, bool) {
	if constraint == "uq_roles_code" {
		return schema.BusinessKey{Constraint: constraint, Column: "code", Message: "Ce code de rôle existe déjà"}, true
	}
	return schema.BusinessKey{}, false
}

func toRoleResponse(r model.Role) RoleResponse {
	perms := make([]PermissionEntry, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, PermissionEntry{
			PageGroupCode: p.PageGroupCode,
			CanView:       p.CanView,
			CanEdit:       p.CanEdit,
			CanDelete:     p.CanDelete,
			CanAdmin:      p.CanAdmin,
		})
	}

	return RoleResponse{
		ID:           r.ID.String(),
		Code:         r.Code,
		Label:        r.Label,
		Level:        r.Level,
		IsSuperAdmin: r.IsSuperAdmin,
		IsAdmin:      r.IsAdmin,
		IsSystem:     r.IsSystem,
		Permissions:  perms,
	}
}
