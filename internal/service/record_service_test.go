package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"pomi/internal/access"
	"pomi/internal/apperror"
	"pomi/internal/model"
	"pomi/internal/schema"
	"pomi/internal/session"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

type recordFixture struct {
	svc      *recordService
	repo     *fakeRecordRepo
	audit    *fakeAuditRepo
	tx       *fakeTx
	notifier *recordingNotifier
	actor    *access.Principal
}

func newRecordFixture(t *testing.T) *recordFixture {
	t.Helper()
	reg := schema.Default()
	repo := newFakeRecordRepo()

	varietes, _ := reg.Get("varietes")
	repo.seed(varietes.Table,
		map[string]any{"id": int64(1), "code_variete": "AGATA", "nom_variete": "Agata", "utilisation": "Frites", "is_active": true},
		map[string]any{"id": int64(2), "code_variete": "BINTJE", "nom_variete": "Bintje", "utilisation": "Frites", "is_active": true},
		map[string]any{"id": int64(3), "code_variete": "CHARLOTTE", "nom_variete": "Charlotte", "utilisation": "Vapeur", "is_active": true},
		map[string]any{"id": int64(4), "code_variete": "ROSEVAL", "nom_variete": "Roseval", "utilisation": "Four", "is_active": false},
	)
	producteurs, _ := reg.Get("producteurs")
	repo.seed(producteurs.Table,
		map[string]any{"id": int64(1), "code_producteur": "P001", "nom": "Earl Dupont", "code_postal": "59000", "is_active": true},
	)
	lots, _ := reg.Get("lots_bruts")
	repo.seed(lots.Table,
		map[string]any{
			"id": int64(1), "code_lot_interne": "LB-001", "nom_usage": "Agata Nord",
			"code_producteur": "P001", "code_variete": "AGATA",
			"date_entree_stock":     time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
			"poids_total_brut_kg":   decimal.RequireFromString("12000"),
			"prix_achat_euro_tonne": decimal.RequireFromString("180"),
			"calibre_min":           int64(35),
			"is_active":             true,
		},
		map[string]any{
			"id": int64(2), "code_lot_interne": "LB-002", "nom_usage": "Bintje Est",
			"code_producteur": "P001", "code_variete": "bintje",
			"date_entree_stock": time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC),
			"is_active":         true,
		},
	)

	audit := &fakeAuditRepo{}
	tx := &fakeTx{}
	notifier := &recordingNotifier{}
	svc := NewRecordService(reg, access.NewGate(access.DefaultPageGroups()), repo, audit, tx,
		session.NewMemory(time.Hour), notifier, zap.NewNop()).(*recordService)
	svc.now = func() time.Time { return fixedNow }

	return &recordFixture{
		svc:      svc,
		repo:     repo,
		audit:    audit,
		tx:       tx,
		notifier: notifier,
		actor: &access.Principal{
			UserID:    "6f1c2a7e-3d4b-4c8a-9e2f-0a1b2c3d4e5f",
			SessionID: "sess-1",
			Username:  "marie",
		},
	}
}

func rawRows(t *testing.T, view *TableView) []map[string]any {
	t.Helper()
	out := make([]map[string]any, len(view.Rows))
	for i, r := range view.Rows {
		out[i] = map[string]any(r)
	}
	return out
}

func TestRecordServiceLoadFiltersInactiveRows(t *testing.T) {
	f := newRecordFixture(t)

	snap, err := f.svc.Load(context.Background(), "varietes", false)
	require.NoError(t, err)
	require.Len(t, snap.Rows, 3)

	snap, err = f.svc.Load(context.Background(), "varietes", true)
	require.NoError(t, err)
	require.Len(t, snap.Rows, 4)
	require.True(t, snap.IncludeInactive)
}

func TestRecordServiceLoadUnknownEntity(t *testing.T) {
	f := newRecordFixture(t)

	_, err := f.svc.Load(context.Background(), "clients", false)
	require.ErrorIs(t, err, apperror.ErrUnknownEntity)
}

func TestRecordServiceLoadResolvesLookupsAndCalculatedColumns(t *testing.T) {
	f := newRecordFixture(t)

	snap, err := f.svc.Load(context.Background(), "lots_bruts", false)
	require.NoError(t, err)
	require.Len(t, snap.Rows, 2)

	first := snap.Rows[0]
	require.Equal(t, "Agata", first["variete"])
	require.Equal(t, "Earl Dupont", first["producteur"])
	require.Equal(t, "Bintje", snap.Rows[1]["variete"])
	require.Contains(t, first, "valeur_lot_euro")
	require.Equal(t, fixedNow, snap.LoadedAt)
}

func TestRecordServiceLoadSurvivesFailingReferences(t *testing.T) {
	f := newRecordFixture(t)
	f.repo.refErr = errUnavailable

	snap, err := f.svc.Load(context.Background(), "lots_bruts", false)
	require.NoError(t, err)
	require.Nil(t, snap.Rows[0]["variete"])
	require.Nil(t, snap.Rows[0]["producteur"])
}

func TestRecordServiceOpenProjectsVisibleColumns(t *testing.T) {
	f := newRecordFixture(t)

	view, err := f.svc.Open(context.Background(), f.actor.SessionID, "lots_bruts", false)
	require.NoError(t, err)
	require.Equal(t, "Lots bruts", view.Label)
	require.NotContains(t, view.Rows[0], "calibre_min")
	require.Contains(t, view.Rows[0], "id")
	require.Contains(t, view.Rows[0], schema.ActiveColumn)
}

func TestRecordServiceSaveUpdatesOnlyChangedColumns(t *testing.T) {
	f := newRecordFixture(t)
	ctx := context.Background()

	view, err := f.svc.Open(ctx, f.actor.SessionID, "lots_bruts", false)
	require.NoError(t, err)

	edited := rawRows(t, view)
	edited[0]["nom_usage"] = "Agata Sud"

	res, err := f.svc.Save(ctx, f.actor, "lots_bruts", edited)
	require.NoError(t, err)
	require.Equal(t, 1, res.Updated)

	require.Len(t, f.repo.updates, 1)
	call := f.repo.updates[0]
	require.Equal(t, int64(1), call.ID)
	require.Equal(t, map[string]any{"nom_usage": "Agata Sud", "updated_at": fixedNow}, call.Values)

	require.Len(t, f.audit.entries, 1)
	entry := f.audit.entries[0]
	require.Equal(t, model.ActionUpdateRecords, entry.Action)
	require.Equal(t, "lots_bruts", entry.Entity)
	require.NotNil(t, entry.UserID)

	var details struct {
		Rows []struct {
			ID      int64    `json:"id"`
			Columns []string `json:"columns"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(entry.Details), &details))
	require.Len(t, details.Rows, 1)
	require.Equal(t, []string{"nom_usage"}, details.Rows[0].Columns)

	require.Len(t, f.notifier.events, 1)
	require.Equal(t, EventRecordsChanged, f.notifier.events[0].Event)
	require.Equal(t, []int64{1}, f.notifier.events[0].Data["ids"])

	// The snapshot was refreshed: saving the same rows again changes nothing.
	res, err = f.svc.Save(ctx, f.actor, "lots_bruts", edited)
	require.NoError(t, err)
	require.Zero(t, res.Updated)
	require.Equal(t, "Aucune modification", res.Message)
}

func TestRecordServiceSaveIgnoresNonEditableColumns(t *testing.T) {
	f := newRecordFixture(t)
	ctx := context.Background()

	view, err := f.svc.Open(ctx, f.actor.SessionID, "lots_bruts", false)
	require.NoError(t, err)

	edited := rawRows(t, view)
	edited[0]["code_lot_interne"] = "LB-999"
	edited[0]["variete"] = "Autre"
	edited[0]["age_jours"] = 1

	res, err := f.svc.Save(ctx, f.actor, "lots_bruts", edited)
	require.NoError(t, err)
	require.Equal(t, "Aucune modification", res.Message)
	require.Empty(t, f.repo.updates)
	require.Zero(t, f.tx.calls)
	require.Empty(t, f.audit.entries)
}

func TestRecordServiceSaveWithoutSnapshot(t *testing.T) {
	f := newRecordFixture(t)

	_, err := f.svc.Save(context.Background(), f.actor, "varietes", []map[string]any{{"id": 1, "nom_variete": "X"}})
	require.ErrorIs(t, err, apperror.ErrSnapshotMissing)
	require.Empty(t, f.repo.updates)
}

func TestRecordServiceDiffReportsChanges(t *testing.T) {
	f := newRecordFixture(t)
	ctx := context.Background()

	view, err := f.svc.Open(ctx, f.actor.SessionID, "varietes", false)
	require.NoError(t, err)

	edited := rawRows(t, view)
	edited[1]["utilisation"] = "  "

	cs, err := f.svc.Diff(ctx, f.actor.SessionID, "varietes", edited)
	require.NoError(t, err)
	require.Len(t, cs.Changes, 1)
	require.Equal(t, int64(2), cs.Changes[0].ID)
	require.Equal(t, map[string]any{"utilisation": nil}, cs.Changes[0].Values)
	require.Empty(t, f.repo.updates)
}

func TestRecordServiceCreateRequiresFields(t *testing.T) {
	f := newRecordFixture(t)

	_, err := f.svc.Create(context.Background(), f.actor, "lots_bruts", map[string]any{
		"code_lot_interne": "LB-003",
		"code_variete":     "AGATA",
	})
	require.ErrorIs(t, err, apperror.ErrValidationFailed)
	require.ElementsMatch(t, []string{"Code producteur", "Date entrée stock"}, apperror.Fields(err))
	require.Zero(t, f.repo.inserts)
	require.Empty(t, f.audit.entries)
}

func TestRecordServiceCreateDuplicateCode(t *testing.T) {
	f := newRecordFixture(t)
	varietes, _ := f.svc.registry.Get("varietes")
	before := f.repo.count(varietes.Table)

	_, err := f.svc.Create(context.Background(), f.actor, "varietes", map[string]any{
		"code_variete": "AGATA",
		"nom_variete":  "Agata bis",
	})
	require.ErrorIs(t, err, apperror.ErrUniquenessConflict)
	require.Contains(t, err.Error(), "Ce code variété existe déjà")
	require.Equal(t, before, f.repo.count(varietes.Table))
	require.Empty(t, f.audit.entries)
	require.Empty(t, f.notifier.events)
}

func TestRecordServiceCreate(t *testing.T) {
	f := newRecordFixture(t)

	res, err := f.svc.Create(context.Background(), f.actor, "sites_stockage", map[string]any{
		"code_site":        "SBU",
		"code_emplacement": "C12",
		"nom_complet":      "Saint-Brice cellule 12",
	})
	require.NoError(t, err)
	require.NotZero(t, res.ID)

	sites, _ := f.svc.registry.Get("sites_stockage")
	rows := f.repo.tables[sites.Table]
	require.Len(t, rows, 1)
	require.Equal(t, "SBU_C12", rows[0]["code_unique"])
	require.Equal(t, true, rows[0]["is_active"])
	require.Equal(t, fixedNow, rows[0]["created_at"])

	require.Len(t, f.audit.entries, 1)
	require.Equal(t, model.ActionCreateRecord, f.audit.entries[0].Action)
	require.Len(t, f.notifier.events, 1)
}

func TestRecordServiceDeactivateIsIdempotent(t *testing.T) {
	f := newRecordFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Deactivate(ctx, f.actor, "varietes", 1))
	require.Equal(t, map[string]any{"is_active": false, "updated_at": fixedNow}, f.repo.updates[0].Values)
	require.NoError(t, f.svc.Deactivate(ctx, f.actor, "varietes", 1))

	snap, err := f.svc.Load(ctx, "varietes", false)
	require.NoError(t, err)
	require.Len(t, snap.Rows, 2)

	require.NoError(t, f.svc.Reactivate(ctx, f.actor, "varietes", 1))
	snap, err = f.svc.Load(ctx, "varietes", false)
	require.NoError(t, err)
	require.Len(t, snap.Rows, 3)

	require.Len(t, f.audit.entries, 3)
	require.Equal(t, model.ActionReactivateRecord, f.audit.entries[2].Action)
	require.Equal(t, "1", f.audit.entries[2].EntityID)
}

func TestRecordServiceDeactivateMissingRecord(t *testing.T) {
	f := newRecordFixture(t)

	err := f.svc.Deactivate(context.Background(), f.actor, "varietes", 999)
	require.ErrorIs(t, err, apperror.ErrNotFound)
	require.Empty(t, f.audit.entries)
	require.Empty(t, f.notifier.events)
}

func TestRecordServiceAuditFailureAbortsWrite(t *testing.T) {
	f := newRecordFixture(t)
	f.audit.err = errUnavailable

	_, err := f.svc.Create(context.Background(), f.actor, "types_dechets", map[string]any{
		"code":    "TERRE",
		"libelle": "Terre de lavage",
	})
	require.ErrorIs(t, err, apperror.ErrStorage)
	require.Empty(t, f.notifier.events)
}

func TestRecordServiceOptions(t *testing.T) {
	f := newRecordFixture(t)
	ctx := context.Background()

	opts, err := f.svc.Options(ctx, "varietes", "type_variete")
	require.NoError(t, err)
	require.Equal(t, "static", opts.Kind)
	require.Contains(t, opts.Values, "Primeur")
	require.False(t, opts.AllowNew)

	opts, err = f.svc.Options(ctx, "plants", "code_variete")
	require.NoError(t, err)
	require.Equal(t, []string{"AGATA", "BINTJE", "CHARLOTTE"}, opts.Values)

	opts, err = f.svc.Options(ctx, "varietes", "utilisation")
	require.NoError(t, err)
	require.Equal(t, []string{"Four", "Frites", "Vapeur"}, opts.Values)
	require.True(t, opts.AllowNew)

	_, err = f.svc.Options(ctx, "varietes", "nom_variete")
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestRecordServiceEntitiesFollowPermissions(t *testing.T) {
	f := newRecordFixture(t)

	stockOnly := &access.Principal{
		UserID:      f.actor.UserID,
		Role:        &access.RoleInfo{Code: "OPERATEUR", Level: 40},
		Permissions: map[string]access.CapabilitySet{access.GroupStock: {CanView: true}},
	}
	entities := f.svc.Entities(stockOnly)
	require.Len(t, entities, 1)
	require.Equal(t, "lots_bruts", entities[0].Name)

	admin := &access.Principal{
		UserID: f.actor.UserID,
		Role:   &access.RoleInfo{Code: "SUPER_ADMIN", Level: 100, IsSuperAdmin: true},
	}
	require.Len(t, f.svc.Entities(admin), len(f.svc.registry.All()))
}

func TestRecordServiceExportRowsAppliesFilters(t *testing.T) {
	f := newRecordFixture(t)

	table, rows, err := f.svc.ExportRows(context.Background(), "varietes", true, map[string]string{"utilisation": "frit"})
	require.NoError(t, err)
	require.Equal(t, "varietes", table.Name)
	require.Len(t, rows, 2)
}
