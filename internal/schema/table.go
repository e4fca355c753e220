package schema

import (
	"fmt"
	"time"
)

const (
	ActiveColumn    = "is_active"
	CreatedAtColumn = "created_at"
	UpdatedAtColumn = "updated_at"
)

// ColumnType drives value normalization and export formatting.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeInteger
	TypeDecimal
	TypeDate
	TypeTimestamp
	TypeBool
)

func (t ColumnType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeDecimal:
		return "decimal"
	case TypeDate:
		return "date"
	case TypeTimestamp:
		return "timestamp"
	case TypeBool:
		return "bool"
	default:
		return "text"
	}
}

type Column struct {
	Name  string
	Label string
	Type  ColumnType
}

// DeriveFunc computes a calculated column from the normalized stored values of a row.
type DeriveFunc func(row map[string]any, now time.Time) any

// Calculated columns are computed on read and never sent to storage.
type Calculated struct {
	Column
	Sources []string
	Derive  DeriveFunc
}

// Lookup resolves a display name from another entity. Source holds either the
// referenced code or its display name; both are accepted.
type Lookup struct {
	Column
	Source     string
	Entity     string
	CodeColumn string
	NameColumn string
}

type DropdownKind int

const (
	DropdownStatic DropdownKind = iota
	DropdownQuery
	DropdownDistinct
)

func (k DropdownKind) String() string {
	switch k {
	case DropdownQuery:
		return "query"
	case DropdownDistinct:
		return "distinct"
	default:
		return "static"
	}
}

// Dropdown declares where the allowed values of an editable column come from.
// Query sources read ValueColumn of the active rows of Entity; distinct sources
// read the existing values of the column itself.
type Dropdown struct {
	Column      string
	Kind        DropdownKind
	Values      []string
	Entity      string
	ValueColumn string
	AllowNew    bool
}

// BusinessKey ties a storage unique constraint to the field it protects.
type BusinessKey struct {
	Constraint string
	Column     string
	Message    string
}

// AutoKey builds a unique column from other columns at creation time only.
type AutoKey struct {
	Column    string
	Sources   []string
	Separator string
}

// Table is one registry entry: everything the record editor needs to know
// about an entity.
type Table struct {
	Name       string
	Label      string
	Table      string
	PrimaryKey string
	PageGroup  string

	Columns    []Column
	Hidden     []Column
	Editable   []string
	Calculated []Calculated
	Lookups    []Lookup
	Dropdowns  []Dropdown
	Required   []string

	BusinessKeys []BusinessKey
	AutoKey      *AutoKey

	HasCreatedAt bool
	HasUpdatedAt bool
	OrderBy      string
}

// StoredColumns lists the columns selected from storage: primary key,
// visible and hidden columns, the active flag. Calculated and lookup columns
// are excluded.
func (t *Table) StoredColumns() []string {
	cols := []string{t.PrimaryKey}
	seen := map[string]bool{t.PrimaryKey: true}
	add := func(name string) {
		if seen[name] || t.isDerived(name) {
			return
		}
		seen[name] = true
		cols = append(cols, name)
	}
	for _, c := range t.Columns {
		add(c.Name)
	}
	for _, c := range t.Hidden {
		add(c.Name)
	}
	add(ActiveColumn)
	return cols
}

// DisplayColumns is the visible projection: declared columns, then lookups,
// then calculated columns.
func (t *Table) DisplayColumns() []Column {
	cols := make([]Column, 0, len(t.Columns)+len(t.Lookups)+len(t.Calculated))
	cols = append(cols, t.Columns...)
	for _, l := range t.Lookups {
		cols = append(cols, l.Column)
	}
	for _, c := range t.Calculated {
		cols = append(cols, c.Column)
	}
	return cols
}

// Column finds a stored, calculated or lookup column by name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	for _, c := range t.Hidden {
		if c.Name == name {
			return c, true
		}
	}
	for _, c := range t.Calculated {
		if c.Name == name {
			return c.Column, true
		}
	}
	for _, l := range t.Lookups {
		if l.Name == name {
			return l.Column, true
		}
	}
	switch name {
	case ActiveColumn:
		return Column{Name: ActiveColumn, Label: "Actif", Type: TypeBool}, true
	case t.PrimaryKey:
		return Column{Name: t.PrimaryKey, Label: "ID", Type: TypeInteger}, true
	}
	return Column{}, false
}

func (t *Table) IsEditable(name string) bool {
	if t.isDerived(name) {
		return false
	}
	for _, e := range t.Editable {
		if e == name {
			return true
		}
	}
	return false
}

func (t *Table) IsCalculated(name string) bool {
	for _, c := range t.Calculated {
		if c.Name == name {
			return true
		}
	}
	return false
}

func (t *Table) isDerived(name string) bool {
	if t.IsCalculated(name) {
		return true
	}
	for _, l := range t.Lookups {
		if l.Name == name {
			return true
		}
	}
	return false
}

// IsStored reports whether name is a column that may be written to storage.
func (t *Table) IsStored(name string) bool {
	if t.isDerived(name) {
		return false
	}
	for _, c := range t.StoredColumns() {
		if c == name {
			return true
		}
	}
	return false
}

func (t *Table) Dropdown(column string) (Dropdown, bool) {
	for _, d := range t.Dropdowns {
		if d.Column == column {
			return d, true
		}
	}
	return Dropdown{}, false
}

// LabelOf returns the display label of a column, falling back to its name.
func (t *Table) LabelOf(column string) string {
	if c, ok := t.Column(column); ok && c.Label != "" {
		return c.Label
	}
	return column
}

func (t *Table) BusinessKeyFor(constraint string) (BusinessKey, bool) {
	for _, k := range t.BusinessKeys {
		if k.Constraint == constraint {
			return k, true
		}
	}
	return BusinessKey{}, false
}

func (t *Table) OrderClause() string {
	if t.OrderBy != "" {
		return t.OrderBy
	}
	return t.PrimaryKey
}

// validate checks every column reference of the entry.
func (t *Table) validate() error {
	if t.Name == "" || t.Table == "" || t.PrimaryKey == "" {
		return fmt.Errorf("table %q: name, table and primary key are required", t.Name)
	}
	if t.PageGroup == "" {
		return fmt.Errorf("table %q: page group is required", t.Name)
	}
	stored := map[string]bool{}
	for _, c := range t.StoredColumns() {
		stored[c] = true
	}
	for _, e := range t.Editable {
		if !stored[e] {
			return fmt.Errorf("table %q: editable column %q is not a stored column", t.Name, e)
		}
	}
	for _, r := range t.Required {
		if !stored[r] {
			return fmt.Errorf("table %q: required column %q is not a stored column", t.Name, r)
		}
	}
	for _, c := range t.Calculated {
		if c.Derive == nil {
			return fmt.Errorf("table %q: calculated column %q has no derivation", t.Name, c.Name)
		}
		for _, s := range c.Sources {
			if !stored[s] {
				return fmt.Errorf("table %q: calculated column %q reads unknown column %q", t.Name, c.Name, s)
			}
		}
	}
	for _, l := range t.Lookups {
		if !stored[l.Source] {
			return fmt.Errorf("table %q: lookup %q reads unknown column %q", t.Name, l.Name, l.Source)
		}
	}
	for _, d := range t.Dropdowns {
		if !stored[d.Column] {
			return fmt.Errorf("table %q: dropdown on unknown column %q", t.Name, d.Column)
		}
		if d.Kind == DropdownQuery && (d.Entity == "" || d.ValueColumn == "") {
			return fmt.Errorf("table %q: query dropdown on %q needs an entity and a value column", t.Name, d.Column)
		}
	}
	for _, k := range t.BusinessKeys {
		if !stored[k.Column] {
			return fmt.Errorf("table %q: business key on unknown column %q", t.Name, k.Column)
		}
	}
	if t.AutoKey != nil {
		if !stored[t.AutoKey.Column] {
			return fmt.Errorf("table %q: auto key column %q is not stored", t.Name, t.AutoKey.Column)
		}
		for _, s := range t.AutoKey.Sources {
			if !stored[s] {
				return fmt.Errorf("table %q: auto key reads unknown column %q", t.Name, s)
			}
		}
	}
	return nil
}
