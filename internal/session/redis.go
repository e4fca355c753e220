package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"pomi/internal/access"
	"pomi/internal/editor"

	"github.com/redis/go-redis/v9"
)

var _ Store = (*Redis)(nil)

const redisNamespace = "pomi:session"

// Redis shares sessions between instances. Snapshot values come back with
// JSON types; callers normalize them against the registry before use.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) key(k string) string {
	return redisNamespace + ":" + k
}

func (r *Redis) get(ctx context.Context, key string, dest any) error {
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(dest)
}

func (r *Redis) set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(key), raw, r.ttl).Err()
}

func (r *Redis) Principal(ctx context.Context, sessionID string) (*access.Principal, error) {
	var p access.Principal
	if err := r.get(ctx, principalKey(sessionID), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Redis) SavePrincipal(ctx context.Context, p *access.Principal) error {
	if err := r.set(ctx, principalKey(p.SessionID), p); err != nil {
		return err
	}
	if p.UserID == "" {
		return nil
	}
	index := r.key(userSessionsKey(p.UserID))
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, index, p.SessionID)
		pipe.Expire(ctx, index, r.ttl)
		return nil
	})
	return err
}

func (r *Redis) Snapshot(ctx context.Context, sessionID, entity string) (*editor.Snapshot, error) {
	var s editor.Snapshot
	if err := r.get(ctx, snapshotKey(sessionID, entity), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Redis) SaveSnapshot(ctx context.Context, sessionID string, snap *editor.Snapshot) error {
	return r.set(ctx, snapshotKey(sessionID, snap.Entity), snap)
}

func (r *Redis) Invalidate(ctx context.Context, sessionID string) error {
	pattern := r.key(sessionID + ":*")
	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *Redis) InvalidateUser(ctx context.Context, userID string) error {
	index := r.key(userSessionsKey(userID))
	sessions, err := r.client.SMembers(ctx, index).Result()
	if err != nil {
		return err
	}
	for _, sid := range sessions {
		if err := r.Invalidate(ctx, sid); err != nil {
			return err
		}
	}
	return r.client.Del(ctx, index).Err()
}
