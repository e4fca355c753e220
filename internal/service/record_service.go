package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"pomi/internal/access"
	"pomi/internal/apperror"
	"pomi/internal/editor"
	"pomi/internal/model"
	"pomi/internal/repository"
	"pomi/internal/schema"
	"pomi/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// --- DTOs ---

type ColumnInfo struct {
	Name       string `json:"name"`
	Label      string `json:"label"`
	Type       string `json:"type"`
	Editable   bool   `json:"editable"`
	Required   bool   `json:"required"`
	Calculated bool   `json:"calculated"`
	Dropdown   string `json:"dropdown,omitempty"`
}

type EntityInfo struct {
	Name       string       `json:"name"`
	Label      string       `json:"label"`
	PageGroup  string       `json:"page_group"`
	PrimaryKey string       `json:"primary_key"`
	Columns    []ColumnInfo `json:"columns"`
	Hidden     []ColumnInfo `json:"hidden"`
}

type TableView struct {
	Entity          string       `json:"entity"`
	Label           string       `json:"label"`
	IncludeInactive bool         `json:"include_inactive"`
	ReadOnly        bool         `json:"read_only"`
	Rows            []editor.Row `json:"rows"`
	LoadedAt        time.Time    `json:"loaded_at"`
}

type SaveResult struct {
	Updated int    `json:"updated"`
	Message string `json:"message"`
}

type CreateResult struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

type Options struct {
	Column   string   `json:"column"`
	Kind     string   `json:"kind"`
	Values   []string `json:"values"`
	AllowNew bool     `json:"allow_new"`
}

// Event is pushed to websocket clients after a successful write.
type Event struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

const EventRecordsChanged = "records_changed"

// Notifier receives events after commit. Publish must not block.
type Notifier interface {
	Publish(event Event)
}

// --- Interface ---

type RecordService interface {
	Entities(p *access.Principal) []EntityInfo
	Describe(entity string) (*EntityInfo, error)
	Load(ctx context.Context, entity string, includeInactive bool) (*editor.Snapshot, error)
	Open(ctx context.Context, sessionID, entity string, includeInactive bool) (*TableView, error)
	Diff(ctx context.Context, sessionID, entity string, edited []map[string]any) (editor.ChangeSet, error)
	Save(ctx context.Context, actor *access.Principal, entity string, edited []map[string]any) (*SaveResult, error)
	ApplyChanges(ctx context.Context, actor *access.Principal, changes editor.ChangeSet) (int, error)
	Create(ctx context.Context, actor *access.Principal, entity string, data map[string]any) (*CreateResult, error)
	Deactivate(ctx context.Context, actor *access.Principal, entity string, id int64) error
	Reactivate(ctx context.Context, actor *access.Principal, entity string, id int64) error
	Options(ctx context.Context, entity, column string) (*Options, error)
	ExportRows(ctx context.Context, entity string, includeInactive bool, filters map[string]string) (*schema.Table, []editor.Row, error)
}

type recordService struct {
	registry  *schema.Registry
	gate      *access.Gate
	repo      repository.RecordRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	sessions  session.Store
	notifier  Notifier
	log       *zap.Logger
	now       func() time.Time
}

func NewRecordService(
	registry *schema.Registry,
	gate *access.Gate,
	repo repository.RecordRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	sessions session.Store,
	notifier Notifier,
	log *zap.Logger,
) RecordService {
	return &recordService{
		registry:  registry,
		gate:      gate,
		repo:      repo,
		auditRepo: auditRepo,
		txManager: txManager,
		sessions:  sessions,
		notifier:  notifier,
		log:       log,
		now:       time.Now,
	}
}

// --- Catalogue ---

func (s *recordService) Entities(p *access.Principal) []EntityInfo {
	var out []EntityInfo
	for _, t := range s.registry.All() {
		if !s.gate.Check(p, t.PageGroup, access.CapView).Allowed {
			continue
		}
		out = append(out, describe(t))
	}
	return out
}

func (s *recordService) Describe(entity string) (*EntityInfo, error) {
	t, err := s.registry.Get(entity)
	if err != nil {
		return nil, err
	}
	info := describe(t)
	return &info, nil
}

func describe(t *schema.Table) EntityInfo {
	required := make(map[string]bool, len(t.Required))
	for _, r := range t.Required {
		required[r] = true
	}
	info := func(c schema.Column) ColumnInfo {
		ci := ColumnInfo{
			Name:       c.Name,
			Label:      c.Label,
			Type:       c.Type.String(),
			Editable:   t.IsEditable(c.Name),
			Required:   required[c.Name],
			Calculated: !t.IsStored(c.Name),
		}
		if d, ok := t.Dropdown(c.Name); ok {
			ci.Dropdown = d.Kind.String()
		}
		return ci
	}

	e := EntityInfo{Name: t.Name, Label: t.Label, PageGroup: t.PageGroup, PrimaryKey: t.PrimaryKey}
	for _, c := range t.DisplayColumns() {
		e.Columns = append(e.Columns, info(c))
	}
	for _, c := range t.Hidden {
		e.Hidden = append(e.Hidden, info(c))
	}
	return e
}

// --- Load / diff / save ---

// Load reads the full rows of an entity, resolves lookups and computes the
// calculated columns.
func (s *recordService) Load(ctx context.Context, entity string, includeInactive bool) (*editor.Snapshot, error) {
	t, err := s.registry.Get(entity)
	if err != nil {
		return nil, err
	}

	raw, err := s.repo.List(ctx, t, includeInactive)
	if err != nil {
		return nil, err
	}
	rows, err := editor.NormalizeRows(t, raw)
	if err != nil {
		return nil, err
	}

	if len(t.Lookups) > 0 {
		editor.ResolveLookups(t, rows, s.loadReferences(ctx, t))
	}
	now := s.now()
	editor.Derive(t, rows, now)

	return &editor.Snapshot{
		Entity:          t.Name,
		IncludeInactive: includeInactive,
		Rows:            rows,
		LoadedAt:        now,
	}, nil
}

// loadReferences reads every referenced entity once. A failing reference
// leaves its lookup column empty instead of failing the whole load.
func (s *recordService) loadReferences(ctx context.Context, t *schema.Table) map[string][]editor.Reference {
	refs := make(map[string][]editor.Reference, len(t.Lookups))
	for _, l := range t.Lookups {
		ref, err := s.registry.Get(l.Entity)
		if err != nil {
			continue
		}
		raw, err := s.repo.References(ctx, ref, l.CodeColumn, l.NameColumn)
		if err != nil {
			s.log.Warn("failed to load lookup references",
				zap.String("entity", t.Name), zap.String("lookup", l.Name), zap.Error(err))
			continue
		}
		list := make([]editor.Reference, 0, len(raw))
		for _, r := range raw {
			code, _ := editor.NormalizeValue(schema.TypeText, r[l.CodeColumn])
			name, _ := editor.NormalizeValue(schema.TypeText, r[l.NameColumn])
			c, _ := code.(string)
			n, _ := name.(string)
			list = append(list, editor.Reference{Code: c, Name: n})
		}
		refs[l.Name] = list
	}
	return refs
}

// Open loads an entity for a session and keeps the full rows as the
// original snapshot for later diffs.
func (s *recordService) Open(ctx context.Context, sessionID, entity string, includeInactive bool) (*TableView, error) {
	snap, err := s.Load(ctx, entity, includeInactive)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.SaveSnapshot(ctx, sessionID, snap); err != nil {
		return nil, apperror.Wrap(apperror.ErrStorage, "Impossible de conserver l'état d'édition", err)
	}

	t, _ := s.registry.Get(entity)
	return &TableView{
		Entity:          t.Name,
		Label:           t.Label,
		IncludeInactive: includeInactive,
		Rows:            editor.Project(t, snap.Rows),
		LoadedAt:        snap.LoadedAt,
	}, nil
}

func (s *recordService) original(ctx context.Context, sessionID string, t *schema.Table) (*editor.Snapshot, []editor.Row, error) {
	snap, err := s.sessions.Snapshot(ctx, sessionID, t.Name)
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil, apperror.New(apperror.ErrSnapshotMissing, "Les données ont expiré, rechargez la table")
	}
	if err != nil {
		return nil, nil, apperror.Wrap(apperror.ErrStorage, "Impossible de lire l'état d'édition", err)
	}
	raw := make([]map[string]any, len(snap.Rows))
	for i, r := range snap.Rows {
		raw[i] = r
	}
	rows, err := editor.NormalizeRows(t, raw)
	if err != nil {
		return nil, nil, err
	}
	return snap, rows, nil
}

func (s *recordService) Diff(ctx context.Context, sessionID, entity string, edited []map[string]any) (editor.ChangeSet, error) {
	t, err := s.registry.Get(entity)
	if err != nil {
		return editor.ChangeSet{}, err
	}
	_, original, err := s.original(ctx, sessionID, t)
	if err != nil {
		return editor.ChangeSet{}, err
	}
	rows, err := editor.NormalizeRows(t, edited)
	if err != nil {
		return editor.ChangeSet{}, err
	}
	return editor.Diff(t, original, rows), nil
}

// Save diffs the submitted rows against the session snapshot, applies the
// changes in one transaction and refreshes the snapshot.
func (s *recordService) Save(ctx context.Context, actor *access.Principal, entity string, edited []map[string]any) (*SaveResult, error) {
	t, err := s.registry.Get(entity)
	if err != nil {
		return nil, err
	}
	snap, original, err := s.original(ctx, actor.SessionID, t)
	if err != nil {
		return nil, err
	}
	rows, err := editor.NormalizeRows(t, edited)
	if err != nil {
		return nil, err
	}

	changes := editor.Diff(t, original, rows)
	if changes.Empty() {
		return &SaveResult{Message: "Aucune modification"}, nil
	}

	updated, err := s.ApplyChanges(ctx, actor, changes)
	if err != nil {
		return nil, err
	}

	if _, err := s.Open(ctx, actor.SessionID, entity, snap.IncludeInactive); err != nil {
		s.log.Warn("failed to refresh snapshot after save", zap.String("entity", entity), zap.Error(err))
	}

	return &SaveResult{
		Updated: updated,
		Message: fmt.Sprintf("%d ligne(s) mise(s) à jour", updated),
	}, nil
}

// ApplyChanges issues one UPDATE per changed row, touching only the changed
// editable columns. All updates commit together or not at all.
func (s *recordService) ApplyChanges(ctx context.Context, actor *access.Principal, changes editor.ChangeSet) (int, error) {
	t, err := s.registry.Get(changes.Entity)
	if err != nil {
		return 0, err
	}

	type rowAudit struct {
		ID      int64    `json:"id"`
		Columns []string `json:"columns"`
	}
	var updated int64
	var touched []rowAudit
	var ids []int64

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		now := s.now()
		for _, ch := range changes.Changes {
			values := editor.PrepareUpdate(t, ch, now)
			if len(values) == 0 {
				continue
			}
			n, err := s.repo.Update(txCtx, t, ch.ID, values)
			if err != nil {
				return err
			}
			updated += n

			cols := make([]string, 0, len(ch.Values))
			for _, c := range t.Editable {
				if _, ok := values[c]; ok {
					cols = append(cols, c)
				}
			}
			touched = append(touched, rowAudit{ID: ch.ID, Columns: cols})
			ids = append(ids, ch.ID)
		}
		if len(touched) == 0 {
			return nil
		}
		details, _ := json.Marshal(map[string]any{"rows": touched})
		return s.writeAudit(txCtx, actor, model.ActionUpdateRecords, t.Name, "", string(details))
	})
	if err != nil {
		return 0, err
	}

	if len(ids) > 0 {
		s.publish(t.Name, model.ActionUpdateRecords, ids)
	}
	return int(updated), nil
}

// --- Create / soft delete ---

func (s *recordService) Create(ctx context.Context, actor *access.Principal, entity string, data map[string]any) (*CreateResult, error) {
	t, err := s.registry.Get(entity)
	if err != nil {
		return nil, err
	}
	values, err := editor.PrepareInsert(t, data, s.now())
	if err != nil {
		return nil, err
	}

	var id int64
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		id, err = s.repo.Insert(txCtx, t, values)
		if err != nil {
			return err
		}
		cols := make([]string, 0, len(values))
		for _, c := range t.StoredColumns() {
			if v, ok := values[c]; ok && v != nil {
				cols = append(cols, c)
			}
		}
		details, _ := json.Marshal(map[string]any{"columns": cols})
		return s.writeAudit(txCtx, actor, model.ActionCreateRecord, t.Name, strconv.FormatInt(id, 10), string(details))
	})
	if err != nil {
		return nil, err
	}

	s.publish(t.Name, model.ActionCreateRecord, []int64{id})
	return &CreateResult{ID: id, Message: "Enregistrement créé"}, nil
}

func (s *recordService) Deactivate(ctx context.Context, actor *access.Principal, entity string, id int64) error {
	return s.setActive(ctx, actor, entity, id, false)
}

func (s *recordService) Reactivate(ctx context.Context, actor *access.Principal, entity string, id int64) error {
	return s.setActive(ctx, actor, entity, id, true)
}

// setActive flips is_active; rows are never physically deleted. Repeating
// the same call is harmless.
func (s *recordService) setActive(ctx context.Context, actor *access.Principal, entity string, id int64, active bool) error {
	t, err := s.registry.Get(entity)
	if err != nil {
		return err
	}
	action := model.ActionDeactivateRecord
	if active {
		action = model.ActionReactivateRecord
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		n, err := s.repo.Update(txCtx, t, id, editor.PrepareActivation(t, active, s.now()))
		if err != nil {
			return err
		}
		if n == 0 {
			return apperror.New(apperror.ErrNotFound, fmt.Sprintf("%s : enregistrement %d introuvable", t.Label, id))
		}
		return s.writeAudit(txCtx, actor, action, t.Name, strconv.FormatInt(id, 10), "{}")
	})
	if err != nil {
		return err
	}

	s.publish(t.Name, action, []int64{id})
	return nil
}

// --- Dropdowns / export ---

func (s *recordService) Options(ctx context.Context, entity, column string) (*Options, error) {
	t, err := s.registry.Get(entity)
	if err != nil {
		return nil, err
	}
	d, ok := t.Dropdown(column)
	if !ok {
		return nil, apperror.New(apperror.ErrNotFound, fmt.Sprintf("pas de liste de valeurs pour %s", t.LabelOf(column)))
	}

	opts := &Options{Column: column, Kind: d.Kind.String(), AllowNew: d.AllowNew}
	switch d.Kind {
	case schema.DropdownStatic:
		opts.Values = append([]string(nil), d.Values...)
	case schema.DropdownQuery:
		ref, err := s.registry.Get(d.Entity)
		if err != nil {
			return nil, err
		}
		if opts.Values, err = s.repo.ActiveValues(ctx, ref, d.ValueColumn); err != nil {
			return nil, err
		}
	case schema.DropdownDistinct:
		if opts.Values, err = s.repo.DistinctValues(ctx, t, column); err != nil {
			return nil, err
		}
	}
	if opts.Values == nil {
		opts.Values = []string{}
	}
	return opts, nil
}

func (s *recordService) ExportRows(ctx context.Context, entity string, includeInactive bool, filters map[string]string) (*schema.Table, []editor.Row, error) {
	t, err := s.registry.Get(entity)
	if err != nil {
		return nil, nil, err
	}
	snap, err := s.Load(ctx, entity, includeInactive)
	if err != nil {
		return nil, nil, err
	}
	return t, editor.Filter(t, snap.Rows, filters), nil
}

// --- Helpers ---

func (s *recordService) writeAudit(ctx context.Context, actor *access.Principal, action, entity, entityID, details string) error {
	entry := &model.AuditLog{
		UserID:   actorID(actor),
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Details:  details,
	}
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		return apperror.Wrap(apperror.ErrStorage, "Échec de l'écriture du journal d'activité", err)
	}
	return nil
}

func (s *recordService) publish(entity, action string, ids []int64) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(Event{
		Event: EventRecordsChanged,
		Data:  map[string]any{"entity": entity, "action": action, "ids": ids},
	})
}

func actorID(p *access.Principal) *uuid.UUID {
	if p == nil {
		return nil
	}
	if id, err := uuid.Parse(p.UserID); err == nil {
		return &id
	}
	return nil
}
