package access

import (
	"sort"
	"sync"
)

const (
	ReasonMustAuthenticate  = "must authenticate"
	ReasonNotAuthorized     = "not authorized for this section"
	ReasonUnknownGroup      = "unknown section"
	ReasonUnknownCapability = "unknown capability"
	ReasonMissingCapability = "insufficient rights for this action"
)

// Decision is the outcome of a gate check. Reason is empty when allowed.
type Decision struct {
	Allowed         bool   `json:"allowed"`
	Reason          string `json:"reason,omitempty"`
	Unauthenticated bool   `json:"-"`
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Mode is what a page may do with a group after the gate is consulted.
type Mode int

const (
	ModeNone Mode = iota
	ModeReadOnly
	ModeEdit
)

// Gate decides access to page groups. The catalogue can be reloaded at runtime.
type Gate struct {
	mu     sync.RWMutex
	groups map[string]PageGroup
}

func NewGate(groups []PageGroup) *Gate {
	g := &Gate{}
	g.SetGroups(groups)
	return g
}

func (g *Gate) SetGroups(groups []PageGroup) {
	m := make(map[string]PageGroup, len(groups))
	for _, pg := range groups {
		m[pg.Code] = pg
	}
	g.mu.Lock()
	g.groups = m
	g.mu.Unlock()
}

func (g *Gate) Groups() []PageGroup {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]PageGroup, 0, len(g.groups))
	for _, pg := range g.groups {
		out = append(out, pg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Code < out[j].Code
	})
	return out
}

func (g *Gate) Known(code string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.groups[code]
	return ok
}

// Check decides whether p may exercise capability c on page group code.
func (g *Gate) Check(p *Principal, code string, c Capability) Decision {
	if !p.Authenticated() {
		return Decision{Reason: ReasonMustAuthenticate, Unauthenticated: true}
	}
	if !g.Known(code) {
		return deny(ReasonUnknownGroup)
	}
	if _, ok := ParseCapability(string(c)); !ok {
		return deny(ReasonUnknownCapability)
	}
	if p.IsSuperAdmin() {
		return allow()
	}
	set, ok := p.Permissions[code]
	if !ok {
		return deny(ReasonNotAuthorized)
	}
	if !set.Has(c) {
		return deny(ReasonMissingCapability)
	}
	return allow()
}

// Mode degrades a group to read-only when the principal may view but not edit.
func (g *Gate) Mode(p *Principal, code string) Mode {
	if !g.Check(p, code, CapView).Allowed {
		return ModeNone
	}
	if !g.Check(p, code, CapEdit).Allowed {
		return ModeReadOnly
	}
	return ModeEdit
}

// DefaultPageGroups is the catalogue seeded on first start.
func DefaultPageGroups() []PageGroup {
	return []PageGroup{
		{Code: GroupReferences, Label: "Référentiels", Order: 10},
		{Code: GroupStock, Label: "Stock & lots", Order: 20},
		{Code: GroupPlanning, Label: "Planning récolte", Order: 30},
		{Code: GroupCRM, Label: "CRM", Order: 40},
		{Code: GroupForecast, Label: "Prévisions ventes", Order: 50},
		{Code: GroupAdmin, Label: "Administration", Order: 90},
	}
}
