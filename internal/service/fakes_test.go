package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"pomi/internal/model"
	"pomi/internal/repository"
	"pomi/internal/schema"

	"github.com/jackc/pgx/v5/pgconn"
)

// fakeRecordRepo keeps rows in memory and reports unique violations the way
// postgres does, by constraint name.
type fakeRecordRepo struct {
	mu      sync.Mutex
	tables  map[string][]map[string]any
	nextID  int64
	inserts int
	updates []updateCall
	refErr  error
}

type updateCall struct {
	Table  string
	ID     int64
	Values map[string]any
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{tables: map[string][]map[string]any{}, nextID: 100}
}

func (f *fakeRecordRepo) seed(table string, rows ...map[string]any) {
	f.tables[table] = append(f.tables[table], rows...)
}

func (f *fakeRecordRepo) count(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[table])
}

func copyRow(r map[string]any) map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func (f *fakeRecordRepo) List(_ context.Context, t *schema.Table, includeInactive bool) ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]any
	for _, r := range f.tables[t.Table] {
		if !includeInactive && r[schema.ActiveColumn] != true {
			continue
		}
		out = append(out, copyRow(r))
	}
	return out, nil
}

func (f *fakeRecordRepo) Insert(_ context.Context, t *schema.Table, values map[string]any) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	for _, k := range t.BusinessKeys {
		for _, r := range f.tables[t.Table] {
			if r[k.Column] == values[k.Column] {
				return 0, repository.TranslateError(t, nil, &pgconn.PgError{Code: "23505", ConstraintName: k.Constraint})
			}
		}
	}
	f.nextID++
	row := copyRow(values)
	row[t.PrimaryKey] = f.nextID
	f.tables[t.Table] = append(f.tables[t.Table], row)
	return f.nextID, nil
}

func (f *fakeRecordRepo) Update(_ context.Context, t *schema.Table, id int64, values map[string]any) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, updateCall{Table: t.Table, ID: id, Values: copyRow(values)})
	for _, r := range f.tables[t.Table] {
		if r[t.PrimaryKey] == id {
			for k, v := range values {
				r[k] = v
			}
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeRecordRepo) values(t *schema.Table, column string, activeOnly bool) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, r := range f.tables[t.Table] {
		if activeOnly && r[schema.ActiveColumn] != true {
			continue
		}
		v, ok := r[column]
		if !ok || v == nil {
			continue
		}
		s := fmt.Sprint(v)
		if strings.TrimSpace(s) == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (f *fakeRecordRepo) DistinctValues(_ context.Context, t *schema.Table, column string) ([]string, error) {
	return f.values(t, column, false), nil
}

func (f *fakeRecordRepo) ActiveValues(_ context.Context, t *schema.Table, column string) ([]string, error) {
	return f.values(t, column, true), nil
}

func (f *fakeRecordRepo) References(_ context.Context, t *schema.Table, codeColumn, nameColumn string) ([]map[string]any, error) {
	if f.refErr != nil {
		return nil, f.refErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]any
	for _, r := range f.tables[t.Table] {
		out = append(out, map[string]any{codeColumn: r[codeColumn], nameColumn: r[nameColumn]})
	}
	return out, nil
}

type fakeAuditRepo struct {
	entries []model.AuditLog
	err     error
}

func (f *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) List(_ context.Context, _ repository.AuditFilter, _, _ int) ([]model.AuditLog, int64, error) {
	return f.entries, int64(len(f.entries)), nil
}

// fakeTx runs fn inline. Tests that need rollback semantics use sqlmock in
// the repository package instead.
type fakeTx struct {
	calls int
}

func (f *fakeTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type recordingNotifier struct {
	events []Event
}

func (n *recordingNotifier) Publish(e Event) {
	n.events = append(n.events, e)
}

var errUnavailable = errors.New("connection refused")
