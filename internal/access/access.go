package access

import (
	"time"
)

// Page group codes. Each code is both a menu section and an access-control unit.
const (
	GroupReferences = "REFERENCES"
	GroupStock      = "STOCK"
	GroupPlanning   = "PLANNING"
	GroupCRM        = "CRM"
	GroupForecast   = "FORECAST"
	GroupAdmin      = "ADMIN"
)

type Capability string

const (
	CapView   Capability = "view"
	CapEdit   Capability = "edit"
	CapDelete Capability = "delete"
	CapAdmin  Capability = "admin"
)

func ParseCapability(s string) (Capability, bool) {
	switch c := Capability(s); c {
	case CapView, CapEdit, CapDelete, CapAdmin:
		return c, true
	}
	return "", false
}

// CapabilitySet holds the four flags of one (role, page group) permission row.
// Flags are independent: edit does not imply view.
type CapabilitySet struct {
	CanView   bool `json:"can_view"`
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
	CanAdmin  bool `json:"can_admin"`
}

func (s CapabilitySet) Has(c Capability) bool {
	switch c {
	case CapView:
		return s.CanView
	case CapEdit:
		return s.CanEdit
	case CapDelete:
		return s.CanDelete
	case CapAdmin:
		return s.CanAdmin
	}
	return false
}

type RoleInfo struct {
	Code         string `json:"code"`
	Label        string `json:"label"`
	Level        int    `json:"level"`
	IsSuperAdmin bool   `json:"is_super_admin"`
	IsAdmin      bool   `json:"is_admin"`
}

// PageGroup is one entry of the page group catalogue.
type PageGroup struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Order int    `json:"order"`
}

// Principal is the cached identity of one interactive session. It is a
// read-only copy of the database state taken at login or at the last refresh.
type Principal struct {
	UserID      string                   `json:"user_id"`
	SessionID   string                   `json:"session_id"`
	Username    string                   `json:"username"`
	DisplayName string                   `json:"display_name"`
	Email       string                   `json:"email"`
	Role        *RoleInfo                `json:"role,omitempty"`
	Permissions map[string]CapabilitySet `json:"permissions"`
	LoadedAt    time.Time                `json:"loaded_at"`
}

func (p *Principal) Authenticated() bool {
	return p != nil && p.UserID != ""
}

func (p *Principal) IsSuperAdmin() bool {
	return p != nil && p.Role != nil && p.Role.IsSuperAdmin
}

// CanAssignRole enforces the seniority rule: an actor of level L only assigns
// roles of a strictly lower level, unless the actor is super-admin.
func CanAssignRole(actor *RoleInfo, target RoleInfo) bool {
	if actor == nil {
		return false
	}
	if actor.IsSuperAdmin {
		return true
	}
	return target.Level < actor.Level
}
