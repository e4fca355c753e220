package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"pomi/internal/access"
	"pomi/internal/editor"
)

var _ Store = (*Memory)(nil)

type memoryEntry struct {
	value     any
	expiresAt time.Time
}

// Memory is a process-local Store. It is enough for a single instance.
type Memory struct {
	entries sync.Map
	ttl     time.Duration
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Memory{ttl: ttl, now: time.Now}
}

func (m *Memory) load(key string) (any, bool) {
	v, ok := m.entries.Load(key)
	if !ok {
		return nil, false
	}
	e := v.(memoryEntry)
	if m.now().After(e.expiresAt) {
		m.entries.Delete(key)
		return nil, false
	}
	return e.value, true
}

func (m *Memory) store(key string, value any) {
	m.entries.Store(key, memoryEntry{value: value, expiresAt: m.now().Add(m.ttl)})
}

func (m *Memory) Principal(_ context.Context, sessionID string) (*access.Principal, error) {
	v, ok := m.load(principalKey(sessionID))
	if !ok {
		return nil, ErrNotFound
	}
	p := *v.(*access.Principal)
	return &p, nil
}

func (m *Memory) SavePrincipal(_ context.Context, p *access.Principal) error {
	cp := *p
	m.store(principalKey(p.SessionID), &cp)
	if p.UserID != "" {
		m.store(userSessionsKey(p.UserID)+":"+p.SessionID, p.SessionID)
	}
	return nil
}

func (m *Memory) Snapshot(_ context.Context, sessionID, entity string) (*editor.Snapshot, error) {
	v, ok := m.load(snapshotKey(sessionID, entity))
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSnapshot(v.(*editor.Snapshot)), nil
}

func (m *Memory) SaveSnapshot(_ context.Context, sessionID string, snap *editor.Snapshot) error {
	m.store(snapshotKey(sessionID, snap.Entity), cloneSnapshot(snap))
	return nil
}

// Invalidate drops the principal and every snapshot of the session.
func (m *Memory) Invalidate(_ context.Context, sessionID string) error {
	prefix := sessionID + ":"
	m.entries.Range(func(k, _ any) bool {
		if strings.HasPrefix(k.(string), prefix) {
			m.entries.Delete(k)
		}
		return true
	})
	return nil
}

func (m *Memory) InvalidateUser(ctx context.Context, userID string) error {
	prefix := userSessionsKey(userID) + ":"
	var sessions []string
	m.entries.Range(func(k, v any) bool {
		if strings.HasPrefix(k.(string), prefix) {
			sessions = append(sessions, v.(memoryEntry).value.(string))
			m.entries.Delete(k)
		}
		return true
	})
	for _, sid := range sessions {
		if err := m.Invalidate(ctx, sid); err != nil {
			return err
		}
	}
	return nil
}
