package service

import (
	"context"
	"sort"
	"time"

	"pomi/internal/access"
	"pomi/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeRoleRepo struct {
	roles  map[uuid.UUID]*model.Role
	groups map[string]model.PageGroup
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{roles: map[uuid.UUID]*model.Role{}, groups: map[string]model.PageGroup{}}
}

func (f *fakeRoleRepo) add(code string, level int, superAdmin bool) *model.Role {
	r := &model.Role{ID: uuid.New(), Code: code, Label: code, Level: level, IsSuperAdmin: superAdmin}
	f.roles[r.ID] = r
	return r
}

func (f *fakeRoleRepo) Create(_ context.Context, role *model.Role) error {
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	cp := *role
	f.roles[role.ID] = &cp
	return nil
}

func (f *fakeRoleRepo) Update(_ context.Context, role *model.Role) error {
	if _, ok := f.roles[role.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *role
	f.roles[role.ID] = &cp
	return nil
}

func (f *fakeRoleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Role, error) {
	r, ok := f.roles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRoleRepo) FindByCode(_ context.Context, code string) (*model.Role, error) {
	for _, r := range f.roles {
		if r.Code == code {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRoleRepo) ListAll(_ context.Context) ([]model.Role, error) {
	out := make([]model.Role, 0, len(f.roles))
	for _, r := range f.roles {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level > out[j].Level })
	return out, nil
}

func (f *fakeRoleRepo) ReplacePermissions(_ context.Context, roleID uuid.UUID, perms []model.Permission) error {
	r, ok := f.roles[roleID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.Permissions = make([]model.Permission, len(perms))
	for i, p := range perms {
		p.RoleID = roleID
		r.Permissions[i] = p
	}
	return nil
}

func (f *fakeRoleRepo) UpsertPageGroup(_ context.Context, group *model.PageGroup) error {
	f.groups[group.Code] = *group
	return nil
}

func (f *fakeRoleRepo) ListPageGroups(_ context.Context) ([]model.PageGroup, error) {
	out := make([]model.PageGroup, 0, len(f.groups))
	for _, g := range f.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
	roles *fakeRoleRepo
}

func newFakeUserRepo(roles *fakeRoleRepo) *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*model.User{}, roles: roles}
}

func (f *fakeUserRepo) withRole(u *model.User) *model.User {
	cp := *u
	if r, ok := f.roles.roles[u.RoleID]; ok {
		role := *r
		cp.Role = &role
	}
	return &cp
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return f.withRole(u), nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return f.withRole(u), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) List(_ context.Context, _, _ int) ([]model.User, int64, error) {
	out := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *f.withRole(u))
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	cp := *user
	cp.Role = nil
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	u, ok := f.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.IsActive = active
	return nil
}

func (f *fakeUserRepo) SetPassword(_ context.Context, id uuid.UUID, hash string) error {
	u, ok := f.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Password = hash
	return nil
}

func (f *fakeUserRepo) TouchLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	if u, ok := f.users[id]; ok {
		u.LastLoginAt = &at
	}
	return nil
}

// fakePermissionRepo derives role info and capabilities from the fake role
// and user repositories, like the joined query does.
type fakePermissionRepo struct {
	users *fakeUserRepo
}

func (f *fakePermissionRepo) role(userID string) *model.Role {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil
	}
	u, ok := f.users.users[id]
	if !ok || !u.IsActive {
		return nil
	}
	return f.users.roles.roles[u.RoleID]
}

func (f *fakePermissionRepo) LoadRoleInfo(_ context.Context, userID string) (*access.RoleInfo, error) {
	r := f.role(userID)
	if r == nil {
		return nil, nil
	}
	info := roleInfo(r)
	return &info, nil
}

func (f *fakePermissionRepo) LoadPermissions(_ context.Context, userID string) (map[string]access.CapabilitySet, error) {
	out := map[string]access.CapabilitySet{}
	r := f.role(userID)
	if r == nil {
		return out, nil
	}
	for _, p := range r.Permissions {
		out[p.PageGroupCode] = access.CapabilitySet{CanView: p.CanView, CanEdit: p.CanEdit, CanDelete: p.CanDelete, CanAdmin: p.CanAdmin}
	}
	return out, nil
}
