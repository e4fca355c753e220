package service

import (
	"context"
	"time"

	"pomi/internal/access"
	"pomi/internal/model"
	"pomi/internal/repository"

	"go.uber.org/zap"
)

// AccessService is the permission store: it reads roles and permission rows
// and turns them into session principals.
type AccessService interface {
	LoadPermissions(ctx context.Context, userID string) map[string]access.CapabilitySet
	LoadRoleInfo(ctx context.Context, userID string) *access.RoleInfo
	BuildPrincipal(ctx context.Context, user *model.User, sessionID string) *access.Principal
	ReloadPageGroups(ctx context.Context) error
	Gate() *access.Gate
}

type accessService struct {
	repo  repository.PermissionRepository
	roles repository.RoleRepository
	gate  *access.Gate
	log   *zap.Logger
	now   func() time.Time
}

func NewAccessService(repo repository.PermissionRepository, roles repository.RoleRepository, gate *access.Gate, log *zap.Logger) AccessService {
	return &accessService{repo: repo, roles: roles, gate: gate, log: log, now: time.Now}
}

func (s *accessService) Gate() *access.Gate {
	return s.gate
}

// LoadPermissions never fails: a storage error yields an empty mapping,
// which the gate treats as no access.
func (s *accessService) LoadPermissions(ctx context.Context, userID string) map[string]access.CapabilitySet {
	perms, err := s.repo.LoadPermissions(ctx, userID)
	if err != nil {
		s.log.Error("failed to load permissions", zap.String("user_id", userID), zap.Error(err))
		return map[string]access.CapabilitySet{}
	}
	if perms == nil {
		return map[string]access.CapabilitySet{}
	}
	return perms
}

// LoadRoleInfo returns nil when the role cannot be read.
func (s *accessService) LoadRoleInfo(ctx context.Context, userID string) *access.RoleInfo {
	role, err := s.repo.LoadRoleInfo(ctx, userID)
	if err != nil {
		s.log.Error("failed to load role", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	return role
}

func (s *accessService) BuildPrincipal(ctx context.Context, user *model.User, sessionID string) *access.Principal {
	userID := user.ID.String()
	return &access.Principal{
		UserID:      userID,
		SessionID:   sessionID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Role:        s.LoadRoleInfo(ctx, userID),
		Permissions: s.LoadPermissions(ctx, userID),
		LoadedAt:    s.now(),
	}
}

// ReloadPageGroups replaces the gate catalogue with the active page groups.
// On error the previous catalogue stays in place.
func (s *accessService) ReloadPageGroups(ctx context.Context) error {
	groups, err := s.roles.ListPageGroups(ctx)
	if err != nil {
		return err
	}
	catalogue := make([]access.PageGroup, 0, len(groups))
	for _, g := range groups {
		if !g.IsActive {
			continue
		}
		catalogue = append(catalogue, access.PageGroup{Code: g.Code, Label: g.Label, Order: g.DisplayOrder})
	}
	s.gate.SetGroups(catalogue)
	return nil
}
