package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pomi/internal/access"
	"pomi/internal/apperror"
	"pomi/internal/editor"
	"pomi/internal/middleware"
	"pomi/internal/schema"
	"pomi/internal/service"
	"pomi/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubUsers struct {
	service.UserService
	principal *access.Principal
}

func (s *stubUsers) Authenticate(context.Context, string) (*access.Principal, error) {
	return s.principal, nil
}

// stubRecords answers the calls the tests make and records their arguments.
type stubRecords struct {
	service.RecordService
	registry *schema.Registry

	filters   map[string]string
	inactive  bool
	createErr error
	saveErr   error
}

func (s *stubRecords) ExportRows(_ context.Context, entity string, includeInactive bool, filters map[string]string) (*schema.Table, []editor.Row, error) {
	s.filters = filters
	s.inactive = includeInactive
	t, err := s.registry.Get(entity)
	if err != nil {
		return nil, nil, err
	}
	return t, []editor.Row{
		{"code": "TERRE", "libelle": "Terre", "valorisable": true},
		{"code": "CAILLOU", "libelle": "Cailloux", "valorisable": false},
	}, nil
}

func (s *stubRecords) Create(context.Context, *access.Principal, string, map[string]any) (*service.CreateResult, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &service.CreateResult{ID: 7, Message: "Enregistrement créé"}, nil
}

func (s *stubRecords) Save(context.Context, *access.Principal, string, []map[string]any) (*service.SaveResult, error) {
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	return &service.SaveResult{Updated: 1}, nil
}

func newRecordRouter(records *stubRecords, p *access.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	registry := schema.Default()
	records.registry = registry
	gate := access.NewGate(access.DefaultPageGroups())
	auth := middleware.NewAuth(&stubUsers{principal: p}, gate, registry)

	r := gin.New()
	api := r.Group("/api", auth.Authenticate())
	NewRecordHandler(records, gate, zap.NewNop()).RegisterRoutes(api, auth)
	return r
}

func refEditor() *access.Principal {
	return &access.Principal{
		UserID:    "u-1",
		SessionID: "s-1",
		Permissions: map[string]access.CapabilitySet{
			access.GroupReferences: {CanView: true, CanEdit: true},
		},
	}
}

func do(r *gin.Engine, method, path string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestExportCSV(t *testing.T) {
	records := &stubRecords{}
	r := newRecordRouter(records, refEditor())

	w := do(r, http.MethodGet, "/api/records/types_dechets/export?include_inactive=true&libelle=terre&format=", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), `filename="types_dechets_`)
	require.Equal(t, map[string]string{"libelle": "terre"}, records.filters)
	require.True(t, records.inactive)

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Equal(t, "Code,Libellé,Valorisable", lines[0])
	require.Equal(t, "TERRE,Terre,Oui", lines[1])
	require.Equal(t, "CAILLOU,Cailloux,Non", lines[2])
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	r := newRecordRouter(&stubRecords{}, refEditor())

	w := do(r, http.MethodGet, "/api/records/types_dechets/export?format=pdf", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateReportsMissingFields(t *testing.T) {
	records := &stubRecords{createErr: apperror.MissingFields([]string{"Code", "Libellé"})}
	r := newRecordRouter(records, refEditor())

	w := do(r, http.MethodPost, "/api/records/types_dechets", `{"valorisable": true}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, []string{"Code", "Libellé"}, body.Fields)
}

func TestCreateRequiresEditCapability(t *testing.T) {
	viewer := &access.Principal{
		UserID:      "u-2",
		SessionID:   "s-2",
		Permissions: map[string]access.CapabilitySet{access.GroupReferences: {CanView: true}},
	}
	r := newRecordRouter(&stubRecords{}, viewer)

	w := do(r, http.MethodPost, "/api/records/types_dechets", `{"code": "X", "libelle": "X"}`)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestSaveWithExpiredSnapshot(t *testing.T) {
	records := &stubRecords{saveErr: apperror.New(apperror.ErrSnapshotMissing, "Les données ont expiré, rechargez la table")}
	r := newRecordRouter(records, refEditor())

	w := do(r, http.MethodPut, "/api/records/types_dechets", `{"rows": [{"id": 1, "libelle": "Terre"}]}`)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestStorageErrorsKeepDatabaseMessage(t *testing.T) {
	records := &stubRecords{saveErr: apperror.Wrap(apperror.ErrStorage,
		`relation "types_dechets" does not exist`, errors.New("42P01"))}
	r := newRecordRouter(records, refEditor())

	w := do(r, http.MethodPut, "/api/records/types_dechets", `{"rows": [{"id": 1}]}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, `relation "types_dechets" does not exist`, body.Error)
}

func TestUnexpectedErrorsAreHidden(t *testing.T) {
	records := &stubRecords{saveErr: errors.New("dial tcp 10.0.0.3:5432: i/o timeout")}
	r := newRecordRouter(records, refEditor())

	w := do(r, http.MethodPut, "/api/records/types_dechets", `{"rows": [{"id": 1}]}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "10.0.0.3")
}
