package service

import (
	"context"
	"testing"
	"time"

	"pomi/internal/access"
	"pomi/internal/apperror"
	"pomi/internal/model"
	"pomi/internal/session"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type userFixture struct {
	svc   UserService
	users *fakeUserRepo
	roles *fakeRoleRepo
	audit *fakeAuditRepo

	superAdmin *model.Role
	admin      *model.Role
	operateur  *model.Role
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	roles := newFakeRoleRepo()
	f := &userFixture{
		roles:      roles,
		users:      newFakeUserRepo(roles),
		audit:      &fakeAuditRepo{},
		superAdmin: roles.add("SUPER_ADMIN", 100, true),
		admin:      roles.add("ADMIN", 80, false),
		operateur:  roles.add("OPERATEUR", 40, false),
	}
	f.operateur.Permissions = []model.Permission{{PageGroupCode: access.GroupStock, CanView: true, CanEdit: true}}

	gate := access.NewGate(access.DefaultPageGroups())
	accessService := NewAccessService(&fakePermissionRepo{users: f.users}, roles, gate, zap.NewNop())
	f.svc = NewUserService(f.users, roles, f.audit, &fakeTx{}, accessService,
		session.NewMemory(time.Hour), NewTokenManager("test-secret", time.Hour), zap.NewNop())
	return f
}

func (f *userFixture) addUser(t *testing.T, email, password string, role *model.Role) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.User{ID: uuid.New(), Username: email, Email: email, Password: string(hash), RoleID: role.ID, IsActive: true}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func actorFor(u *model.User, r *model.Role) *access.Principal {
	info := roleInfo(r)
	return &access.Principal{UserID: u.ID.String(), SessionID: "sess-admin", Role: &info}
}

func TestUserServiceLoginAuthenticateLogout(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	u := f.addUser(t, "op@pomi.fr", "motdepasse1", f.operateur)

	res, err := f.svc.Login(ctx, LoginUserRequest{Email: "op@pomi.fr", Password: "motdepasse1"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	require.Equal(t, u.ID.String(), res.Principal.UserID)
	require.Equal(t, "OPERATEUR", res.Principal.Role.Code)
	require.True(t, res.Principal.Permissions[access.GroupStock].CanEdit)
	require.NotNil(t, f.users.users[u.ID].LastLoginAt)

	p, err := f.svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	require.Equal(t, res.Principal.SessionID, p.SessionID)

	require.NoError(t, f.svc.Logout(ctx, p.SessionID))
	_, err = f.svc.Authenticate(ctx, res.Token)
	require.ErrorIs(t, err, apperror.ErrAuthenticationRequired)
}

func TestUserServiceLoginRejectsBadCredentials(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	u := f.addUser(t, "op@pomi.fr", "motdepasse1", f.operateur)

	_, err := f.svc.Login(ctx, LoginUserRequest{Email: "op@pomi.fr", Password: "mauvais"})
	require.ErrorIs(t, err, apperror.ErrAuthenticationRequired)

	_, err = f.svc.Login(ctx, LoginUserRequest{Email: "inconnu@pomi.fr", Password: "motdepasse1"})
	require.ErrorIs(t, err, apperror.ErrAuthenticationRequired)

	f.users.users[u.ID].IsActive = false
	_, err = f.svc.Login(ctx, LoginUserRequest{Email: "op@pomi.fr", Password: "motdepasse1"})
	require.ErrorIs(t, err, apperror.ErrAuthenticationRequired)
}

func TestUserServiceRefreshPicksUpPermissionChanges(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	f.addUser(t, "op@pomi.fr", "motdepasse1", f.operateur)

	res, err := f.svc.Login(ctx, LoginUserRequest{Email: "op@pomi.fr", Password: "motdepasse1"})
	require.NoError(t, err)
	require.NotContains(t, res.Principal.Permissions, access.GroupReferences)

	f.operateur.Permissions = append(f.operateur.Permissions, model.Permission{PageGroupCode: access.GroupReferences, CanView: true})

	// The cached principal is unchanged until the session is refreshed.
	p, err := f.svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	require.NotContains(t, p.Permissions, access.GroupReferences)

	fresh, err := f.svc.Refresh(ctx, p)
	require.NoError(t, err)
	require.True(t, fresh.Permissions[access.GroupReferences].CanView)

	p, err = f.svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	require.True(t, p.Permissions[access.GroupReferences].CanView)
}

func TestUserServiceCreateUserEnforcesSeniority(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	adminUser := f.addUser(t, "admin@pomi.fr", "motdepasse1", f.admin)
	actor := actorFor(adminUser, f.admin)

	_, err := f.svc.CreateUser(ctx, actor, CreateUserRequest{
		Username: "chef", Email: "chef@pomi.fr", Password: "motdepasse1", RoleCode: "ADMIN",
	})
	require.ErrorIs(t, err, apperror.ErrAuthorizationDenied)

	res, err := f.svc.CreateUser(ctx, actor, CreateUserRequest{
		Username: "paul", Email: "Paul@Pomi.fr", Password: "motdepasse1", RoleCode: "OPERATEUR",
	})
	require.NoError(t, err)
	require.Equal(t, "paul@pomi.fr", res.Email)
	require.Equal(t, "OPERATEUR", res.RoleCode)

	require.Len(t, f.audit.entries, 1)
	require.Equal(t, model.ActionCreateUser, f.audit.entries[0].Action)
	require.Equal(t, "users", f.audit.entries[0].Entity)

	_, err = f.svc.CreateUser(ctx, actor, CreateUserRequest{
		Username: "x", Email: "x@pomi.fr", Password: "motdepasse1", RoleCode: "INCONNU",
	})
	require.ErrorIs(t, err, apperror.ErrValidationFailed)
}

func TestUserServiceCannotDeactivateSelf(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	root := f.addUser(t, "root@pomi.fr", "motdepasse1", f.superAdmin)

	err := f.svc.SetActive(ctx, actorFor(root, f.superAdmin), root.ID.String(), false)
	require.ErrorIs(t, err, apperror.ErrValidationFailed)
	require.True(t, f.users.users[root.ID].IsActive)
}

func TestUserServiceSetActiveGuardsTarget(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	adminUser := f.addUser(t, "admin@pomi.fr", "motdepasse1", f.admin)
	other := f.addUser(t, "admin2@pomi.fr", "motdepasse1", f.admin)
	op := f.addUser(t, "op@pomi.fr", "motdepasse1", f.operateur)
	actor := actorFor(adminUser, f.admin)

	err := f.svc.SetActive(ctx, actor, other.ID.String(), false)
	require.ErrorIs(t, err, apperror.ErrAuthorizationDenied)

	require.NoError(t, f.svc.SetActive(ctx, actor, op.ID.String(), false))
	require.False(t, f.users.users[op.ID].IsActive)
	require.Equal(t, model.ActionDeactivateUser, f.audit.entries[0].Action)

	err = f.svc.SetActive(ctx, actor, uuid.NewString(), false)
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUserServiceDeactivationClosesSessions(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	root := f.addUser(t, "root@pomi.fr", "motdepasse1", f.superAdmin)
	op := f.addUser(t, "op@pomi.fr", "motdepasse1", f.operateur)
	f.addUser(t, "op2@pomi.fr", "motdepasse1", f.operateur)

	first, err := f.svc.Login(ctx, LoginUserRequest{Email: "op@pomi.fr", Password: "motdepasse1"})
	require.NoError(t, err)
	second, err := f.svc.Login(ctx, LoginUserRequest{Email: "op@pomi.fr", Password: "motdepasse1"})
	require.NoError(t, err)
	colleague, err := f.svc.Login(ctx, LoginUserRequest{Email: "op2@pomi.fr", Password: "motdepasse1"})
	require.NoError(t, err)

	require.NoError(t, f.svc.SetActive(ctx, actorFor(root, f.superAdmin), op.ID.String(), false))

	_, err = f.svc.Authenticate(ctx, first.Token)
	require.ErrorIs(t, err, apperror.ErrAuthenticationRequired)
	_, err = f.svc.Authenticate(ctx, second.Token)
	require.ErrorIs(t, err, apperror.ErrAuthenticationRequired)

	p, err := f.svc.Authenticate(ctx, colleague.Token)
	require.NoError(t, err)
	require.Equal(t, colleague.Principal.SessionID, p.SessionID)

	// Reactivation does not revive old sessions; the user logs in again.
	require.NoError(t, f.svc.SetActive(ctx, actorFor(root, f.superAdmin), op.ID.String(), true))
	_, err = f.svc.Authenticate(ctx, first.Token)
	require.ErrorIs(t, err, apperror.ErrAuthenticationRequired)
	_, err = f.svc.Login(ctx, LoginUserRequest{Email: "op@pomi.fr", Password: "motdepasse1"})
	require.NoError(t, err)
}

func TestUserServiceEnsureAdmin(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.EnsureAdmin(ctx, "", ""))
	require.Empty(t, f.users.users)

	require.NoError(t, f.svc.EnsureAdmin(ctx, "Root@Pomi.fr", "motdepasse1"))
	require.Len(t, f.users.users, 1)

	require.NoError(t, f.svc.EnsureAdmin(ctx, "root@pomi.fr", "autre"))
	require.Len(t, f.users.users, 1)

	u, err := f.users.GetByEmail(ctx, "root@pomi.fr")
	require.NoError(t, err)
	require.Equal(t, "root", u.Username)
	require.Equal(t, f.superAdmin.ID, u.RoleID)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("motdepasse1")))
}
