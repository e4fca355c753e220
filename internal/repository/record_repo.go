package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"pomi/internal/schema"

	"gorm.io/gorm"
)

// RecordRepository reads and writes registry tables as column maps. Column
// names always come from the registry, never from user input.
type RecordRepository interface {
	List(ctx context.Context, t *schema.Table, includeInactive bool) ([]map[string]any, error)
	Insert(ctx context.Context, t *schema.Table, values map[string]any) (int64, error)
	Update(ctx context.Context, t *schema.Table, id int64, values map[string]any) (int64, error)
	DistinctValues(ctx context.Context, t *schema.Table, column string) ([]string, error)
	ActiveValues(ctx context.Context, t *schema.Table, column string) ([]string, error)
	References(ctx context.Context, t *schema.Table, codeColumn, nameColumn string) ([]map[string]any, error)
}

type recordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{db: db}
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func quoteAll(idents []string) []string {
	out := make([]string, len(idents))
	for i, id := range idents {
		out[i] = quote(id)
	}
	return out
}

func (r *recordRepository) List(ctx context.Context, t *schema.Table, includeInactive bool) ([]map[string]any, error) {
	var rows []map[string]any
	q := GetDB(ctx, r.db).Table(t.Table).Select(quoteAll(t.StoredColumns()))
	if !includeInactive {
		q = q.Where(quote(schema.ActiveColumn)+" = ?", true)
	}
	if err := q.Order(t.OrderClause()).Find(&rows).Error; err != nil {
		return nil, TranslateError(t, nil, err)
	}
	return rows, nil
}

// Insert writes one row and returns its generated primary key.
func (r *recordRepository) Insert(ctx context.Context, t *schema.Table, values map[string]any) (int64, error) {
	cols := make([]string, 0, len(values))
	for c := range values {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	args := make([]any, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		args[i] = values[c]
		marks[i] = "?"
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		quote(t.Table), strings.Join(quoteAll(cols), ","), strings.Join(marks, ","), quote(t.PrimaryKey))

	var id int64
	if err := GetDB(ctx, r.db).Raw(sql, args...).Scan(&id).Error; err != nil {
		return 0, TranslateError(t, nil, err)
	}
	return id, nil
}

// Update assigns values to the row with the given id and reports how many
// rows matched.
func (r *recordRepository) Update(ctx context.Context, t *schema.Table, id int64, values map[string]any) (int64, error) {
	res := GetDB(ctx, r.db).Table(t.Table).Where(quote(t.PrimaryKey)+" = ?", id).Updates(values)
	if res.Error != nil {
		return 0, TranslateError(t, nil, res.Error)
	}
	return res.RowsAffected, nil
}

// DistinctValues lists the existing non-blank values of a column across all rows.
func (r *recordRepository) DistinctValues(ctx context.Context, t *schema.Table, column string) ([]string, error) {
	var values []string
	col := quote(column)
	err := GetDB(ctx, r.db).Table(t.Table).
		Distinct(col).
		Where(col+" IS NOT NULL AND CAST("+col+" AS TEXT) <> ''").
		Order(col).
		Pluck(col, &values).Error
	if err != nil {
		return nil, TranslateError(t, nil, err)
	}
	return values, nil
}

// ActiveValues lists the distinct values of a column over active rows only.
func (r *recordRepository) ActiveValues(ctx context.Context, t *schema.Table, column string) ([]string, error) {
	var values []string
	col := quote(column)
	err := GetDB(ctx, r.db).Table(t.Table).
		Distinct(col).
		Where(quote(schema.ActiveColumn)+" = ?", true).
		Where(col + " IS NOT NULL").
		Order(col).
		Pluck(col, &values).Error
	if err != nil {
		return nil, TranslateError(t, nil, err)
	}
	return values, nil
}

// References returns the code and display name of every row of t, active or not.
func (r *recordRepository) References(ctx context.Context, t *schema.Table, codeColumn, nameColumn string) ([]map[string]any, error) {
	var rows []map[string]any
	err := GetDB(ctx, r.db).Table(t.Table).
		Select(quoteAll([]string{codeColumn, nameColumn})).
		Find(&rows).Error
	if err != nil {
		return nil, TranslateError(t, nil, err)
	}
	return rows, nil
}
