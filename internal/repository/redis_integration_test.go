package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jionu102/codeit-image-post-auth/internal/domain"
)

// Integration tests are opt-in and require TEST_REDIS_ADDR.

func mustOpenTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestRedisSessionStore_ReplaceEvictsAndTombstones(t *testing.T) {
	store := NewRedisSessionStore(mustOpenTestRedis(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	principal := "p-" + uuid.NewString()

	first := newSession(uuid.NewString(), principal, now, time.Hour)
	evicted, err := store.Replace(ctx, first, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, evicted)

	second := newSession(uuid.NewString(), principal, now, time.Hour)
	tombstoneUntil := now.Add(10 * time.Minute)
	evicted, err = store.Replace(ctx, second, tombstoneUntil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, evicted)

	old, err := store.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStateEvicted, old.State)
	assert.True(t, tombstoneUntil.Equal(old.ExpiresAt))

	assert.ErrorIs(t, store.Touch(ctx, first.ID, now, now.Add(time.Hour)), ErrSessionNotFound)

	current, err := store.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStateActive, current.State)
	assert.Equal(t, principal, current.PrincipalID)
	assert.Equal(t, domain.RoleUser, current.Role)

	later := now.Add(5 * time.Minute)
	require.NoError(t, store.Touch(ctx, second.ID, later, later.Add(time.Hour)))
	current, err = store.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, later.Equal(current.LastSeenAt))

	require.NoError(t, store.Delete(ctx, second.ID))
	require.NoError(t, store.Delete(ctx, second.ID))
	_, err = store.Get(ctx, second.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	require.NoError(t, store.Delete(ctx, first.ID))
}
