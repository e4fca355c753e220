package editor

import (
	"fmt"
	"strings"
	"time"

	"pomi/internal/apperror"
	"pomi/internal/schema"
)

// Row is one record keyed by column name. Values are normalized to the
// column types declared in the registry.
type Row map[string]any

// ID returns the primary key value of the row.
func (r Row) ID(pk string) (int64, bool) {
	v, err := NormalizeValue(schema.TypeInteger, r[pk])
	if err != nil || v == nil {
		return 0, false
	}
	return v.(int64), true
}

// Snapshot is the "original" table state kept for the editing session.
type Snapshot struct {
	Entity          string    `json:"entity"`
	IncludeInactive bool      `json:"include_inactive"`
	Rows            []Row     `json:"rows"`
	LoadedAt        time.Time `json:"loaded_at"`
}

// RowChange lists the new values of the changed editable columns of one row.
type RowChange struct {
	ID     int64          `json:"id"`
	Values map[string]any `json:"values"`
}

type ChangeSet struct {
	Entity  string      `json:"entity"`
	Changes []RowChange `json:"changes"`
}

func (c ChangeSet) Empty() bool {
	return len(c.Changes) == 0
}

// NormalizeRow keeps the known columns of raw and converts them to their
// declared types. Unknown keys are dropped.
func NormalizeRow(t *schema.Table, raw map[string]any) (Row, error) {
	row := make(Row, len(raw))
	for name, v := range raw {
		col, ok := t.Column(name)
		if !ok {
			continue
		}
		nv, err := NormalizeValue(col.Type, v)
		if err != nil {
			return nil, apperror.Wrap(apperror.ErrValidationFailed,
				fmt.Sprintf("Valeur invalide pour %s : %v", col.Label, err), err)
		}
		row[name] = nv
	}
	return row, nil
}

func NormalizeRows(t *schema.Table, raw []map[string]any) ([]Row, error) {
	rows := make([]Row, 0, len(raw))
	for _, r := range raw {
		row, err := NormalizeRow(t, r)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Diff compares an edited snapshot with the original one. Only rows present
// in both and only editable columns present in the edited row are compared.
// Changes come out in the order of the original snapshot.
func Diff(t *schema.Table, original, edited []Row) ChangeSet {
	cs := ChangeSet{Entity: t.Name}
	byID := make(map[int64]Row, len(edited))
	for _, r := range edited {
		if id, ok := r.ID(t.PrimaryKey); ok {
			byID[id] = r
		}
	}

	for _, orig := range original {
		id, ok := orig.ID(t.PrimaryKey)
		if !ok {
			continue
		}
		ed, ok := byID[id]
		if !ok {
			continue
		}
		var values map[string]any
		for _, col := range t.Editable {
			if !t.IsEditable(col) {
				continue
			}
			newVal, present := ed[col]
			if !present {
				continue
			}
			if ValuesEqual(orig[col], newVal) {
				continue
			}
			if values == nil {
				values = make(map[string]any)
			}
			values[col] = newVal
		}
		if values != nil {
			cs.Changes = append(cs.Changes, RowChange{ID: id, Values: values})
		}
	}
	return cs
}

// Derive fills calculated columns in place, overriding stored values.
func Derive(t *schema.Table, rows []Row, now time.Time) {
	for _, row := range rows {
		for _, c := range t.Calculated {
			row[c.Name] = c.Derive(row, now)
		}
	}
}

// Reference is one (code, display name) pair of a referenced entity.
type Reference struct {
	Code string
	Name string
}

func lookupKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// ResolveLookups fills lookup columns. The source value may be either the
// referenced code or its display name.
func ResolveLookups(t *schema.Table, rows []Row, refs map[string][]Reference) {
	for _, l := range t.Lookups {
		index := make(map[string]string)
		for _, ref := range refs[l.Name] {
			if ref.Code != "" {
				index[lookupKey(ref.Code)] = ref.Name
			}
		}
		for _, ref := range refs[l.Name] {
			if ref.Name == "" {
				continue
			}
			if _, taken := index[lookupKey(ref.Name)]; !taken {
				index[lookupKey(ref.Name)] = ref.Name
			}
		}
		for _, row := range rows {
			src, _ := row[l.Source].(string)
			if name, ok := index[lookupKey(src)]; ok && src != "" {
				row[l.Name] = name
			} else {
				row[l.Name] = nil
			}
		}
	}
}

// Project keeps the primary key, the display columns and the active flag.
func Project(t *schema.Table, rows []Row) []Row {
	cols := t.DisplayColumns()
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		p := make(Row, len(cols)+2)
		p[t.PrimaryKey] = row[t.PrimaryKey]
		for _, c := range cols {
			p[c.Name] = row[c.Name]
		}
		p[schema.ActiveColumn] = row[schema.ActiveColumn]
		out = append(out, p)
	}
	return out
}

// Filter keeps the rows whose displayed text contains every needle,
// case-insensitively. Filters on unknown columns are ignored.
func Filter(t *schema.Table, rows []Row, filters map[string]string) []Row {
	active := make(map[string]string, len(filters))
	for col, needle := range filters {
		needle = strings.ToLower(strings.TrimSpace(needle))
		if needle == "" {
			continue
		}
		if _, ok := t.Column(col); ok {
			active[col] = needle
		}
	}
	if len(active) == 0 {
		return rows
	}

	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		keep := true
		for col, needle := range active {
			v := row[col]
			if v == nil || !strings.Contains(strings.ToLower(toText(v)), needle) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, row)
		}
	}
	return out
}
