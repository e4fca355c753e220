package middleware

import (
	"net/http"
	"strings"
	"time"

	"pomi/internal/access"
	"pomi/internal/apperror"
	"pomi/internal/schema"
	"pomi/internal/service"
	"pomi/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	principalKey = "principal"
	accessCookie = "access_token"
)

// SetTokenCookie stores the session token as an HttpOnly cookie.
// Release mode serves the front end cross-origin, so the cookie must be secure.
func SetTokenCookie(c *gin.Context, token string, ttl time.Duration, release bool) {
	sameSite, secure := cookiePolicy(release)
	c.SetSameSite(sameSite)
	c.SetCookie(accessCookie, token, int(ttl.Seconds()), "/", "", secure, true)
}

func ClearTokenCookie(c *gin.Context, release bool) {
	sameSite, secure := cookiePolicy(release)
	c.SetSameSite(sameSite)
	c.SetCookie(accessCookie, "", -1, "/", "", secure, true)
}

func cookiePolicy(release bool) (http.SameSite, bool) {
	if release {
		return http.SameSiteNoneMode, true
	}
	return http.SameSiteLaxMode, false
}

// TokenFrom reads the token from the cookie, then from a Bearer header.
func TokenFrom(c *gin.Context) string {
	if token, err := c.Cookie(accessCookie); err == nil && token != "" {
		return token
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// PrincipalFrom returns the principal set by Authenticate, or nil.
func PrincipalFrom(c *gin.Context) *access.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*access.Principal)
	return p
}

// Abort answers with the status matching err and stops the chain.
func Abort(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, response.Invalid(status, err.Error(), apperror.Fields(err)))
}

type Auth struct {
	users    service.UserService
	gate     *access.Gate
	registry *schema.Registry
}

func NewAuth(users service.UserService, gate *access.Gate, registry *schema.Registry) *Auth {
	return &Auth{users: users, gate: gate, registry: registry}
}

// Authenticate resolves the session principal and rejects anonymous requests.
func (a *Auth) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFrom(c)
		if token == "" {
			Abort(c, apperror.New(apperror.ErrAuthenticationRequired, access.ReasonMustAuthenticate))
			return
		}
		p, err := a.users.Authenticate(c.Request.Context(), token)
		if err != nil {
			Abort(c, err)
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireAccess lets the request through only when the gate grants
// capability want on group.
func (a *Auth) RequireAccess(group string, want access.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := a.decide(PrincipalFrom(c), group, want); err != nil {
			Abort(c, err)
			return
		}
		c.Next()
	}
}

// RequireEntityAccess checks the capability on the page group owning the :entity table.
func (a *Auth) RequireEntityAccess(want access.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := a.registry.Get(c.Param("entity"))
		if err != nil {
			Abort(c, err)
			return
		}
		if err := a.decide(PrincipalFrom(c), t.PageGroup, want); err != nil {
			Abort(c, err)
			return
		}
		c.Next()
	}
}

func (a *Auth) decide(p *access.Principal, group string, want access.Capability) error {
	d := a.gate.Check(p, group, want)
	if d.Allowed {
		return nil
	}
	if d.Unauthenticated {
		return apperror.New(apperror.ErrAuthenticationRequired, d.Reason)
	}
	return apperror.New(apperror.ErrAuthorizationDenied, d.Reason)
}
