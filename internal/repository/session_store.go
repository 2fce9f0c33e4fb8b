package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jionu102/codeit-image-post-auth/internal/domain"
)

const (
	sessionKeyPrefix   = "session:"
	principalKeyPrefix = "session:principal:"
)

// ErrSessionNotFound is returned when no record exists for a session id.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps server-side sessions with at most one ACTIVE record
// per principal.
type SessionStore interface {
	// Replace installs rec as the principal's only live session. A previous
	// ACTIVE session of that principal becomes an EVICTED tombstone living
	// until tombstoneUntil; its id is returned ("" when nothing was evicted).
	Replace(ctx context.Context, rec domain.SessionRecord, tombstoneUntil time.Time) (string, error)
	Get(ctx context.Context, sessionID string) (domain.SessionRecord, error)
	// Touch slides an ACTIVE session's deadline. Non-active or missing
	// sessions yield ErrSessionNotFound.
	Touch(ctx context.Context, sessionID string, seenAt, expiresAt time.Time) error
	Delete(ctx context.Context, sessionID string) error
}

// KEYS[1] principal pointer, KEYS[2] new session hash.
// ARGV: id, principal, username, role, created, seen, expires(ms), tombstone until(ms), session prefix.
var replaceScript = redis.NewScript(`
local evicted = false
local old = redis.call('GET', KEYS[1])
if old and old ~= ARGV[1] then
  local oldKey = ARGV[9] .. old
  if redis.call('HGET', oldKey, 'state') == 'ACTIVE' then
    redis.call('HSET', oldKey, 'state', 'EVICTED', 'expires_at', ARGV[8])
    redis.call('PEXPIREAT', oldKey, ARGV[8])
    evicted = old
  end
end
redis.call('HSET', KEYS[2],
  'principal_id', ARGV[2], 'username', ARGV[3], 'role', ARGV[4], 'state', 'ACTIVE',
  'created_at', ARGV[5], 'last_seen_at', ARGV[6], 'expires_at', ARGV[7])
redis.call('PEXPIREAT', KEYS[2], ARGV[7])
redis.call('SET', KEYS[1], ARGV[1])
redis.call('PEXPIREAT', KEYS[1], ARGV[7])
return evicted
`)

// KEYS[1] session hash. ARGV: seen(ms), expires(ms), id, principal prefix.
var touchScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'state') ~= 'ACTIVE' then
  return 0
end
redis.call('HSET', KEYS[1], 'last_seen_at', ARGV[1], 'expires_at', ARGV[2])
redis.call('PEXPIREAT', KEYS[1], ARGV[2])
local pkey = ARGV[4] .. redis.call('HGET', KEYS[1], 'principal_id')
if redis.call('GET', pkey) == ARGV[3] then
  redis.call('PEXPIREAT', pkey, ARGV[2])
end
return 1
`)

// KEYS[1] session hash. ARGV: id, principal prefix.
var deleteScript = redis.NewScript(`
local pid = redis.call('HGET', KEYS[1], 'principal_id')
redis.call('DEL', KEYS[1])
if pid then
  local pkey = ARGV[2] .. pid
  if redis.call('GET', pkey) == ARGV[1] then
    redis.call('DEL', pkey)
  end
end
return 1
`)

type redisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore returns a SessionStore shared by every instance
// pointing at the same Redis. Each mutation is one Lua script, so replace
// and eviction happen atomically.
func NewRedisSessionStore(client *redis.Client) SessionStore {
	return &redisSessionStore{client: client}
}

func (s *redisSessionStore) Replace(ctx context.Context, rec domain.SessionRecord, tombstoneUntil time.Time) (string, error) {
	evicted, err := replaceScript.Run(ctx, s.client,
		[]string{principalKeyPrefix + rec.PrincipalID, sessionKeyPrefix + rec.ID},
		rec.ID,
		rec.PrincipalID,
		rec.Username,
		string(rec.Role),
		rec.CreatedAt.UnixMilli(),
		rec.LastSeenAt.UnixMilli(),
		rec.ExpiresAt.UnixMilli(),
		tombstoneUntil.UnixMilli(),
		sessionKeyPrefix,
	).Text()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("replace session: %w", err)
	}
	return evicted, nil
}

func (s *redisSessionStore) Get(ctx context.Context, sessionID string) (domain.SessionRecord, error) {
	fields, err := s.client.HGetAll(ctx, sessionKeyPrefix+sessionID).Result()
	if err != nil {
		return domain.SessionRecord{}, fmt.Errorf("get session: %w", err)
	}
	if len(fields) == 0 {
		return domain.SessionRecord{}, ErrSessionNotFound
	}

	rec := domain.SessionRecord{
		ID:          sessionID,
		PrincipalID: fields["principal_id"],
		Username:    fields["username"],
		Role:        domain.Role(fields["role"]),
		State:       domain.SessionState(fields["state"]),
	}
	if rec.CreatedAt, err = parseMillis(fields["created_at"]); err != nil {
		return domain.SessionRecord{}, err
	}
	if rec.LastSeenAt, err = parseMillis(fields["last_seen_at"]); err != nil {
		return domain.SessionRecord{}, err
	}
	if rec.ExpiresAt, err = parseMillis(fields["expires_at"]); err != nil {
		return domain.SessionRecord{}, err
	}
	return rec, nil
}

func (s *redisSessionStore) Touch(ctx context.Context, sessionID string, seenAt, expiresAt time.Time) error {
	touched, err := touchScript.Run(ctx, s.client,
		[]string{sessionKeyPrefix + sessionID},
		seenAt.UnixMilli(),
		expiresAt.UnixMilli(),
		sessionID,
		principalKeyPrefix,
	).Int()
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if touched == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *redisSessionStore) Delete(ctx context.Context, sessionID string) error {
	err := deleteScript.Run(ctx, s.client,
		[]string{sessionKeyPrefix + sessionID},
		sessionID,
		principalKeyPrefix,
	).Err()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func parseMillis(raw string) (time.Time, error) {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse session timestamp %q: %w", raw, err)
	}
	return time.UnixMilli(ms).UTC(), nil
}
