package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"pomi/internal/access"
	"pomi/internal/apperror"
	"pomi/internal/model"
	"pomi/internal/repository"
	"pomi/internal/schema"
	"pomi/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for request validation
type CreateUserRequest struct {
	Username    string `json:"username" binding:"required"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	RoleCode    string `json:"role_code" binding:"required"`
}

type UpdateUserRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email" binding:"omitempty,email"`
	RoleCode    string `json:"role_code"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	Principal *access.Principal `json:"principal"`
}

// UserResponse never carries the password hash.
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	RoleCode    string    `json:"role_code"`
	RoleLabel   string    `json:"role_label"`
	IsActive    bool      `json:"is_active"`
	LastLoginAt string    `json:"last_login_at,omitempty"`
	CreatedAt   string    `json:"created_at"`
}

const (
	uqUsername = "uq_users_app_username"
	uqEmail    = "uq_users_app_email"
)

var errInvalidCredentials = apperror.New(apperror.ErrAuthenticationRequired, "Email ou mot de passe incorrect")

type UserService interface {
	Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
	Logout(ctx context.Context, sessionID string) error
	Authenticate(ctx context.Context, token string) (*access.Principal, error)
	Refresh(ctx context.Context, p *access.Principal) (*access.Principal, error)

	CreateUser(ctx context.Context, actor *access.Principal, req CreateUserRequest) (*UserResponse, error)
	GetUserByID(ctx context.Context, id string) (*UserResponse, error)
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, actor *access.Principal, id string, req UpdateUserRequest) (*UserResponse, error)
	ResetPassword(ctx context.Context, actor *access.Principal, id string, req ResetPasswordRequest) error
	SetActive(ctx context.Context, actor *access.Principal, id string, active bool) error
	EnsureAdmin(ctx context.Context, email, password string) error
}

type userService struct {
	repo      repository.UserRepository
	roleRepo  repository.RoleRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	access    AccessService
	sessions  session.Store
	tokens    *TokenManager
	log       *zap.Logger
	now       func() time.Time
}

func NewUserService(
	repo repository.UserRepository,
	roleRepo repository.RoleRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	accessService AccessService,
	sessions session.Store,
	tokens *TokenManager,
	log *zap.Logger,
) UserService {
	return &userService{
		repo:      repo,
		roleRepo:  roleRepo,
		auditRepo: auditRepo,
		txManager: txManager,
		access:    accessService,
		sessions:  sessions,
		tokens:    tokens,
		log:       log,
		now:       time.Now,
	}
}

func mapToResponse(user *model.User) *UserResponse {
	res := &UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		IsActive:    user.IsActive,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
	}
	if user.Role != nil {
		res.RoleCode = user.Role.Code
		res.RoleLabel = user.Role.Label
	}
	if user.LastLoginAt != nil {
		res.LastLoginAt = user.LastLoginAt.Format(time.RFC3339)
	}
	return res
}

// --- Sessions ---

// Login checks the password, opens a session and caches the principal.
func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, repository.TranslateError(nil, nil, err)
	}
	if !user.IsActive {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	sessionID := uuid.NewString()
	principal := s.access.BuildPrincipal(ctx, user, sessionID)
	if err := s.sessions.SavePrincipal(ctx, principal); err != nil {
		return nil, apperror.Wrap(apperror.ErrStorage, "Impossible d'ouvrir la session", err)
	}

	token, err := s.tokens.Issue(principal.UserID, sessionID)
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrStorage, "Impossible de générer le jeton", err)
	}

	now := s.now()
	if err := s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn("failed to record last login", zap.String("user_id", principal.UserID), zap.Error(err))
	}

	return &TokenResponse{Token: token, ExpiresAt: now.Add(s.tokens.TTL()), Principal: principal}, nil
}

// Logout discards the cached principal and every edit snapshot of the session.
func (s *userService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Invalidate(ctx, sessionID)
}

// Authenticate resolves a token to the principal cached for its session.
// A token whose session was closed is rejected.
func (s *userService) Authenticate(ctx context.Context, token string) (*access.Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	p, err := s.sessions.Principal(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, apperror.New(apperror.ErrAuthenticationRequired, access.ReasonMustAuthenticate)
		}
		return nil, apperror.Wrap(apperror.ErrStorage, "Impossible de lire la session", err)
	}
	if p.UserID != claims.Subject {
		return nil, apperror.New(apperror.ErrAuthenticationRequired, access.ReasonMustAuthenticate)
	}
	return p, nil
}

// Refresh reloads the role and permissions of the session from storage.
func (s *userService) Refresh(ctx context.Context, p *access.Principal) (*access.Principal, error) {
	id, err := uuid.Parse(p.UserID)
	if err != nil {
		return nil, apperror.New(apperror.ErrAuthenticationRequired, access.ReasonMustAuthenticate)
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil || !user.IsActive {
		_ = s.sessions.Invalidate(ctx, p.SessionID)
		return nil, apperror.New(apperror.ErrAuthenticationRequired, access.ReasonMustAuthenticate)
	}

	fresh := s.access.BuildPrincipal(ctx, user, p.SessionID)
	if err := s.sessions.SavePrincipal(ctx, fresh); err != nil {
		return nil, apperror.Wrap(apperror.ErrStorage, "Impossible de mettre à jour la session", err)
	}
	return fresh, nil
}

// --- Administration ---

func (s *userService) assignableRole(ctx context.Context, actor *access.Principal, code string) (*model.Role, error) {
	role, err := s.roleRepo.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(apperror.ErrValidationFailed, "Rôle inconnu : "+code)
		}
		return nil, repository.TranslateError(nil, nil, err)
	}
	if actor == nil || !access.CanAssignRole(actor.Role, roleInfo(role)) {
		return nil, apperror.New(apperror.ErrAuthorizationDenied, "Vous ne pouvez pas attribuer ce rôle")
	}
	return role, nil
}

// guardTarget stops an administrator from managing an account whose role is
// at or above their own level.
func (s *userService) guardTarget(actor *access.Principal, user *model.User) error {
	if user.Role == nil {
		return nil
	}
	if actor == nil || !access.CanAssignRole(actor.Role, roleInfo(user.Role)) {
		return apperror.New(apperror.ErrAuthorizationDenied, "Vous ne pouvez pas modifier cet utilisateur")
	}
	return nil
}

func roleInfo(r *model.Role) access.RoleInfo {
	return access.RoleInfo{Code: r.Code, Label: r.Label, Level: r.Level, IsSuperAdmin: r.IsSuperAdmin, IsAdmin: r.IsAdmin}
}

// userKeys maps the account unique constraints to their fields.
var userKeys repository.KeyResolver = userKeyResolver{}

type userKeyResolver struct{}

func (userKeyResolver) BusinessKeyFor(constraint string) (schema.BusinessKey, bool) {
	switch constraint {
	case uqUsername:
		return schema.BusinessKey{Constraint: uqUsername, Column: "username", Message: "Ce nom d'utilisateur existe déjà"}, true
	case uqEmail:
		return schema.BusinessKey{Constraint: uqEmail, Column: "email", Message: "Cet email est déjà utilisé"}, true
	}
	return schema.BusinessKey{}, false
}

func (s *userService) CreateUser(ctx context.Context, actor *access.Principal, req CreateUserRequest) (*UserResponse, error) {
	role, err := s.assignableRole(ctx, actor, req.RoleCode)
	if err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrValidationFailed, "Mot de passe invalide", err)
	}

	user := &model.User{
		Username:    strings.TrimSpace(req.Username),
		DisplayName: strings.TrimSpace(req.DisplayName),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Password:    string(hashed),
		RoleID:      role.ID,
		IsActive:    true,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, user); err != nil {
			return repository.TranslateError(nil, userKeys, err)
		}
		details, _ := json.Marshal(map[string]string{"username": user.Username, "role": role.Code})
		return s.logAction(txCtx, actor, model.ActionCreateUser, user.ID.String(), string(details))
	})
	if err != nil {
		return nil, err
	}

	user.Role = role
	return mapToResponse(user), nil
}

func (s *userService) find(ctx context.Context, id string) (*model.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.New(apperror.ErrValidationFailed, "Identifiant utilisateur invalide")
	}
	user, err := s.repo.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(apperror.ErrNotFound, "Utilisateur introuvable")
		}
		return nil, repository.TranslateError(nil, nil, err)
	}
	return user, nil
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*UserResponse, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return mapToResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	users, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, repository.TranslateError(nil, nil, err)
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToResponse(&users[i]))
	}
	return responses, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor *access.Principal, id string, req UpdateUserRequest) (*UserResponse, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guardTarget(actor, user); err != nil {
		return nil, err
	}

	changed := []string{}
	if req.RoleCode != "" && (user.Role == nil || req.RoleCode != user.Role.Code) {
		role, err := s.assignableRole(ctx, actor, req.RoleCode)
		if err != nil {
			return nil, err
		}
		user.RoleID = role.ID
		user.Role = role
		changed = append(changed, "role")
	}
	if req.DisplayName != "" && req.DisplayName != user.DisplayName {
		user.DisplayName = strings.TrimSpace(req.DisplayName)
		changed = append(changed, "display_name")
	}
	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" && email != user.Email {
		user.Email = email
		changed = append(changed, "email")
	}
	if len(changed) == 0 {
		return mapToResponse(user), nil
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, user); err != nil {
			return repository.TranslateError(nil, userKeys, err)
		}
		details, _ := json.Marshal(map[string]any{"columns": changed})
		return s.logAction(txCtx, actor, model.ActionUpdateUser, user.ID.String(), string(details))
	})
	if err != nil {
		return nil, err
	}
	return mapToResponse(user), nil
}

func (s *userService) ResetPassword(ctx context.Context, actor *access.Principal, id string, req ResetPasswordRequest) error {
	user, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guardTarget(actor, user); err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return apperror.Wrap(apperror.ErrValidationFailed, "Mot de passe invalide", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.SetPassword(txCtx, user.ID, string(hashed)); err != nil {
			return repository.TranslateError(nil, nil, err)
		}
		return s.logAction(txCtx, actor, model.ActionResetPassword, user.ID.String(), "{}")
	})
}

// SetActive deactivates or reactivates an account. Accounts are never deleted;
// deactivation closes every open session of the account.
func (s *userService) SetActive(ctx context.Context, actor *access.Principal, id string, active bool) error {
	user, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guardTarget(actor, user); err != nil {
		return err
	}
	if !active && actor != nil && actor.UserID == user.ID.String() {
		return apperror.New(apperror.ErrValidationFailed, "Vous ne pouvez pas désactiver votre propre compte")
	}

	action := model.ActionDeactivateUser
	if active {
		action = model.ActionReactivateUser
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.SetActive(txCtx, user.ID, active); err != nil {
			return repository.TranslateError(nil, nil, err)
		}
		return s.logAction(txCtx, actor, action, user.ID.String(), "{}")
	})
	if err != nil || active {
		return err
	}

	if err := s.sessions.InvalidateUser(ctx, user.ID.String()); err != nil {
		return apperror.Wrap(apperror.ErrStorage, "Compte désactivé mais sessions toujours ouvertes", err)
	}
	return nil
}

func (s *userService) logAction(ctx context.Context, actor *access.Principal, action, userID, details string) error {
	entry := &model.AuditLog{
		UserID:   actorID(actor),
		Action:   action,
		Entity:   "users",
		EntityID: userID,
		Details:  details,
	}
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		return apperror.Wrap(apperror.ErrStorage, "Échec de l'écriture du journal d'activité", err)
	}
	return nil
}

// EnsureAdmin creates the first super-admin account when email is unused.
func (s *userService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	role, err := s.roleRepo.FindByCode(ctx, "SUPER_ADMIN")
	if err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	username, _, _ := strings.Cut(email, "@")
	user := &model.User{
		Username:    username,
		DisplayName: "Administrateur",
		Email:       email,
		Password:    string(hashed),
		RoleID:      role.ID,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return err
	}
	s.log.Info("created bootstrap administrator", zap.String("email", email))
	return nil
}
