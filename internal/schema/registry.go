package schema

import (
	"fmt"

	"pomi/internal/apperror"
)

// Registry is the static catalogue of editable entities, keyed by logical name.
type Registry struct {
	tables map[string]*Table
	order  []string
}

func NewRegistry(tables ...*Table) (*Registry, error) {
	r := &Registry{tables: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		if err := t.validate(); err != nil {
			return nil, err
		}
		if _, dup := r.tables[t.Name]; dup {
			return nil, fmt.Errorf("table %q registered twice", t.Name)
		}
		r.tables[t.Name] = t
		r.order = append(r.order, t.Name)
	}
	for _, t := range tables {
		for _, l := range t.Lookups {
			if _, ok := r.tables[l.Entity]; !ok {
				return nil, fmt.Errorf("table %q: lookup %q references unknown entity %q", t.Name, l.Name, l.Entity)
			}
		}
		for _, d := range t.Dropdowns {
			if d.Kind != DropdownQuery {
				continue
			}
			if _, ok := r.tables[d.Entity]; !ok {
				return nil, fmt.Errorf("table %q: dropdown %q references unknown entity %q", t.Name, d.Column, d.Entity)
			}
		}
	}
	return r, nil
}

// Default returns the registry of every entity the application edits.
func Default() *Registry {
	r, err := NewRegistry(
		Varietes(),
		Producteurs(),
		Plants(),
		SitesStockage(),
		Emballages(),
		ProduitsCommerciaux(),
		TypesDechets(),
		LotsBruts(),
	)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Get(name string) (*Table, error) {
	t, ok := r.tables[name]
	if !ok {
		return nil, apperror.New(apperror.ErrUnknownEntity, fmt.Sprintf("unknown entity %q", name))
	}
	return t, nil
}

// All returns the entries in registration order.
func (r *Registry) All() []*Table {
	out := make([]*Table, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tables[name])
	}
	return out
}

// BusinessKeyFor searches every entry for the constraint name.
func (r *Registry) BusinessKeyFor(constraint string) (BusinessKey, bool) {
	for _, name := range r.order {
		if k, ok := r.tables[name].BusinessKeyFor(constraint); ok {
			return k, true
		}
	}
	return BusinessKey{}, false
}
