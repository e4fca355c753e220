package service

import (
	"errors"
	"time"

	"pomi/internal/apperror"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims identify a user and the interactive session the token belongs to.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

func (m *TokenManager) Issue(userID, sessionID string) (string, error) {
	now := m.now()
	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse verifies the signature and expiry. Every failure is AuthenticationRequired.
func (m *TokenManager) Parse(token string) (*SessionClaims, error) {
	if token == "" {
		return nil, apperror.New(apperror.ErrAuthenticationRequired, "must authenticate")
	}
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !parsed.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return nil, apperror.Wrap(apperror.ErrAuthenticationRequired, "must authenticate", err)
	}
	if claims.Subject == "" || claims.SessionID == "" {
		return nil, apperror.New(apperror.ErrAuthenticationRequired, "must authenticate")
	}
	return claims, nil
}
