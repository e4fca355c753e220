package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pomi/internal/access"
	"pomi/internal/apperror"
	"pomi/internal/schema"
	"pomi/internal/service"
	"pomi/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// fakeUsers only answers Authenticate; the other methods are never reached.
type fakeUsers struct {
	service.UserService
	sessions map[string]*access.Principal
}

func (f *fakeUsers) Authenticate(_ context.Context, token string) (*access.Principal, error) {
	p, ok := f.sessions[token]
	if !ok {
		return nil, apperror.New(apperror.ErrAuthenticationRequired, access.ReasonMustAuthenticate)
	}
	return p, nil
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	users := &fakeUsers{sessions: map[string]*access.Principal{
		"viewer": {
			UserID:      "u-1",
			SessionID:   "s-1",
			Permissions: map[string]access.CapabilitySet{access.GroupReferences: {CanView: true}},
		},
		"root": {
			UserID:    "u-2",
			SessionID: "s-2",
			Role:      &access.RoleInfo{Code: "SUPER_ADMIN", Level: 100, IsSuperAdmin: true},
		},
	}}
	auth := NewAuth(users, access.NewGate(access.DefaultPageGroups()), schema.Default())

	r := gin.New()
	api := r.Group("/api", auth.Authenticate())
	api.GET("/records/:entity", auth.RequireEntityAccess(access.CapView), func(c *gin.Context) {
		c.JSON(http.StatusOK, response.Success(http.StatusOK, PrincipalFrom(c).UserID))
	})
	api.PUT("/records/:entity", auth.RequireEntityAccess(access.CapEdit), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	api.GET("/audit-logs", auth.RequireAccess(access.GroupAdmin, access.CapView), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func serve(r *gin.Engine, method, path string, setup func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if setup != nil {
		setup(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer(token string) func(*http.Request) {
	return func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+token) }
}

func TestAuthenticateRejectsMissingToken(t *testing.T) {
	w := serve(newTestRouter(), http.MethodGet, "/api/records/varietes", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "error", body.Status)
	require.Equal(t, access.ReasonMustAuthenticate, body.Error)
}

func TestAuthenticateRejectsUnknownSession(t *testing.T) {
	w := serve(newTestRouter(), http.MethodGet, "/api/records/varietes", bearer("expired"))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticateReadsCookie(t *testing.T) {
	w := serve(newTestRouter(), http.MethodGet, "/api/records/varietes", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: accessCookie, Value: "viewer"})
	})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRequireEntityAccess(t *testing.T) {
	r := newTestRouter()

	w := serve(r, http.MethodGet, "/api/records/varietes", bearer("viewer"))
	require.Equal(t, http.StatusOK, w.Code)
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "u-1", body.Data)

	w = serve(r, http.MethodPut, "/api/records/varietes", bearer("viewer"))
	require.Equal(t, http.StatusForbidden, w.Code)

	w = serve(r, http.MethodGet, "/api/records/lots_bruts", bearer("viewer"))
	require.Equal(t, http.StatusForbidden, w.Code)

	w = serve(r, http.MethodGet, "/api/records/inconnue", bearer("root"))
	require.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, http.MethodPut, "/api/records/lots_bruts", bearer("root"))
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequireAccess(t *testing.T) {
	r := newTestRouter()

	w := serve(r, http.MethodGet, "/api/audit-logs", bearer("viewer"))
	require.Equal(t, http.StatusForbidden, w.Code)

	w = serve(r, http.MethodGet, "/api/audit-logs", bearer("root"))
	require.Equal(t, http.StatusNoContent, w.Code)
}
