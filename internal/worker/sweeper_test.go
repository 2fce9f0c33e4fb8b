package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jionu102/codeit-image-post-auth/internal/auth"
	"github.com/jionu102/codeit-image-post-auth/internal/config"
	"github.com/jionu102/codeit-image-post-auth/internal/domain"
	"github.com/jionu102/codeit-image-post-auth/internal/repository"
)

type lockedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *lockedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *lockedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newCodec(t *testing.T, clock *lockedClock) *auth.TokenCodec {
	t.Helper()
	codec, err := auth.NewTokenCodec(config.AuthConfig{
		JWTIssuer:       "image-post-test",
		JWTSecret:       "0123456789abcdef0123456789abcdef",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	}, auth.WithClock(clock.Now))
	require.NoError(t, err)
	return codec
}

func register(t *testing.T, reg repository.TokenRegistry, codec *auth.TokenCodec, principalID string, ttl time.Duration) domain.TokenPair {
	t.Helper()
	refresh, err := codec.Issue(principalID, domain.RoleUser, ttl)
	require.NoError(t, err)
	pair := domain.TokenPair{AccessToken: "access-" + principalID, RefreshToken: refresh}
	require.NoError(t, reg.Register(context.Background(), principalID, pair))
	return pair
}

func TestSweeper_PurgesExactlyExpired(t *testing.T) {
	clock := &lockedClock{t: time.Unix(1_700_000_000, 0)}
	codec := newCodec(t, clock)
	reg := repository.NewMemoryTokenRegistry()

	register(t, reg, codec, "p1", 10*time.Minute)
	register(t, reg, codec, "p2", 30*time.Minute)
	live := register(t, reg, codec, "p3", 2*time.Hour)
	require.NoError(t, reg.Register(context.Background(), "p4", domain.TokenPair{AccessToken: "a", RefreshToken: "not-a-jwt"}))

	clock.Advance(30 * time.Minute)

	s := NewSweeper(reg, codec, time.Minute, zap.NewNop(), nil)
	report, err := s.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SweepReport{Scanned: 4, Purged: 2, Corrupt: 1}, report)
	assert.Equal(t, 2, reg.Len())

	active, err := reg.HasActive(context.Background(), live.RefreshToken)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestSweeper_Paginates(t *testing.T) {
	clock := &lockedClock{t: time.Unix(1_700_000_000, 0)}
	codec := newCodec(t, clock)
	reg := repository.NewMemoryTokenRegistry()

	for i := 0; i < 7; i++ {
		register(t, reg, codec, fmt.Sprintf("p%02d", i), time.Minute)
	}
	clock.Advance(time.Hour)

	s := NewSweeper(reg, codec, time.Minute, zap.NewNop(), nil)
	s.pageSize = 3

	report, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, report.Scanned)
	assert.Equal(t, 7, report.Purged)
	assert.Equal(t, 0, reg.Len())
}

// rotatingRegistry logs the principal in again between the scan and the
// delete.
type rotatingRegistry struct {
	*repository.MemoryTokenRegistry
	onScan func()
}

func (r *rotatingRegistry) Scan(ctx context.Context, after string, limit int) ([]domain.TokenRecord, error) {
	page, err := r.MemoryTokenRegistry.Scan(ctx, after, limit)
	if r.onScan != nil {
		r.onScan()
		r.onScan = nil
	}
	return page, err
}

func TestSweeper_KeepsRecordReplacedAfterScan(t *testing.T) {
	clock := &lockedClock{t: time.Unix(1_700_000_000, 0)}
	codec := newCodec(t, clock)
	reg := &rotatingRegistry{MemoryTokenRegistry: repository.NewMemoryTokenRegistry()}

	register(t, reg, codec, "p1", time.Minute)
	clock.Advance(time.Hour)

	var fresh domain.TokenPair
	reg.onScan = func() { fresh = register(t, reg.MemoryTokenRegistry, codec, "p1", time.Hour) }

	s := NewSweeper(reg, codec, time.Minute, zap.NewNop(), nil)
	report, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Purged)

	active, err := reg.HasActive(context.Background(), fresh.RefreshToken)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestSweeper_StartStop(t *testing.T) {
	clock := &lockedClock{t: time.Unix(1_700_000_000, 0)}
	codec := newCodec(t, clock)
	reg := repository.NewMemoryTokenRegistry()

	register(t, reg, codec, "p1", time.Minute)
	clock.Advance(time.Hour)

	s := NewSweeper(reg, codec, 10*time.Millisecond, zap.NewNop(), nil)
	s.Start(context.Background())
	s.Start(context.Background())

	require.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
}

func TestSweeper_StopsOnContextCancel(t *testing.T) {
	clock := &lockedClock{t: time.Unix(1_700_000_000, 0)}
	s := NewSweeper(repository.NewMemoryTokenRegistry(), newCodec(t, clock), 10*time.Millisecond, zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	done := s.done
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
	s.Stop()
}

func TestSweeper_SweepHonoursCancelledContext(t *testing.T) {
	clock := &lockedClock{t: time.Unix(1_700_000_000, 0)}
	s := NewSweeper(repository.NewMemoryTokenRegistry(), newCodec(t, clock), time.Minute, zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Sweep(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
