// Package session keeps per-session state between requests: the cached
// principal and the original rows of each table being edited.
package session

import (
	"context"
	"errors"
	"time"

	"pomi/internal/access"
	"pomi/internal/editor"
)

var ErrNotFound = errors.New("session entry not found")

// Store holds session state. Entries expire after the store's TTL.
type Store interface {
	Principal(ctx context.Context, sessionID string) (*access.Principal, error)
	SavePrincipal(ctx context.Context, p *access.Principal) error
	Snapshot(ctx context.Context, sessionID, entity string) (*editor.Snapshot, error)
	SaveSnapshot(ctx context.Context, sessionID string, snap *editor.Snapshot) error
	Invalidate(ctx context.Context, sessionID string) error
	// InvalidateUser closes every open session of the user.
	InvalidateUser(ctx context.Context, userID string) error
}

const defaultTTL = 8 * time.Hour

func principalKey(sessionID string) string {
	return sessionID + ":principal"
}

// userSessionsKey indexes the sessions opened by one user.
func userSessionsKey(userID string) string {
	return "user:" + userID + ":sessions"
}

func snapshotKey(sessionID, entity string) string {
	return sessionID + ":snapshot:" + entity
}

func cloneSnapshot(s *editor.Snapshot) *editor.Snapshot {
	out := *s
	out.Rows = make([]editor.Row, len(s.Rows))
	for i, r := range s.Rows {
		row := make(editor.Row, len(r))
		for k, v := range r {
			row[k] = v
		}
		out.Rows[i] = row
	}
	return &out
}
