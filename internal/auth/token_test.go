package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jionu102/codeit-image-post-auth/internal/config"
	"github.com/jionu102/codeit-image-post-auth/internal/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTIssuer:       "image-post-test",
		JWTSecret:       testSecret,
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 14 * 24 * time.Hour,
	}
}

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCodec(t *testing.T, clock *fakeClock, opts ...CodecOption) *TokenCodec {
	t.Helper()
	opts = append([]CodecOption{WithClock(clock.Now)}, opts...)
	codec, err := NewTokenCodec(testAuthConfig(), opts...)
	require.NoError(t, err)
	return codec
}

func TestNewTokenCodec_RejectsShortSecret(t *testing.T) {
	cfg := testAuthConfig()
	cfg.JWTSecret = "short"

	_, err := NewTokenCodec(cfg)
	require.Error(t, err)
}

func TestTokenCodec_IssueAndVerify(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := newTestCodec(t, clock)

	token, err := codec.Issue("alice", domain.RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.Equal(t, "image-post-test", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, clock.Now().Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestTokenCodec_IssueIsDeterministic(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	codec := newTestCodec(t, clock, WithIDGenerator(func() string { return "fixed" }))

	first, err := codec.Issue("alice", domain.RoleUser, time.Hour)
	require.NoError(t, err)
	second, err := codec.Issue("alice", domain.RoleUser, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestTokenCodec_SameSecondTokensDiffer(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	codec := newTestCodec(t, clock)

	first, err := codec.Issue("alice", domain.RoleUser, time.Hour)
	require.NoError(t, err)
	second, err := codec.Issue("alice", domain.RoleUser, time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestTokenCodec_VerifyExpired(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := newTestCodec(t, clock)

	token, err := codec.Issue("alice", domain.RoleUser, time.Minute)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = codec.Verify(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExpired)
	assert.False(t, errors.Is(err, ErrBadSignature))
}

func TestTokenCodec_VerifyExpiresExactlyAtDeadline(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	codec := newTestCodec(t, clock)

	token, err := codec.Issue("alice", domain.RoleUser, time.Minute)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestTokenCodec_VerifyWrongKey(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := newTestCodec(t, clock)

	otherCfg := testAuthConfig()
	otherCfg.JWTSecret = strings.Repeat("x", 40)
	other, err := NewTokenCodec(otherCfg, WithClock(clock.Now))
	require.NoError(t, err)

	token, err := other.Issue("alice", domain.RoleUser, time.Hour)
	require.NoError(t, err)

	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestTokenCodec_VerifyFlippedLastCharacter(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := newTestCodec(t, clock)

	token, err := codec.Issue("alice", domain.RoleUser, time.Hour)
	require.NoError(t, err)

	last := token[len(token)-1]
	replacement := byte('A')
	if last == 'A' {
		replacement = 'B'
	}
	tampered := token[:len(token)-1] + string(replacement)

	_, err = codec.Verify(tampered)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadSignature) || errors.Is(err, ErrMalformed), "got %v", err)
	assert.False(t, errors.Is(err, ErrExpired))
}

func TestTokenCodec_VerifyGarbage(t *testing.T) {
	codec := newTestCodec(t, &fakeClock{t: time.Now()})

	for _, input := range []string{"", "not-a-token", "a.b.c"} {
		_, err := codec.Verify(input)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", input)
	}
}

func TestTokenCodec_VerifyRejectsForeignIssuer(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := newTestCodec(t, clock)

	cfg := testAuthConfig()
	cfg.JWTIssuer = "someone-else"
	foreign, err := NewTokenCodec(cfg, WithClock(clock.Now))
	require.NoError(t, err)

	token, err := foreign.Issue("alice", domain.RoleUser, time.Hour)
	require.NoError(t, err)

	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestTokenCodec_VerifyRejectsNoneAlgorithm(t *testing.T) {
	codec := newTestCodec(t, &fakeClock{t: time.Now()})

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub":  "alice",
		"role": "ADMIN",
		"iss":  "image-post-test",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = codec.Verify(token)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrExpired))
}

func TestTokenCodec_IssuePair(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := newTestCodec(t, clock)

	pair, err := codec.IssuePair("bob", domain.RoleUser)
	require.NoError(t, err)
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	access, err := codec.Verify(pair.AccessToken)
	require.NoError(t, err)
	refresh, err := codec.Verify(pair.RefreshToken)
	require.NoError(t, err)

	assert.Equal(t, clock.Now().Add(codec.AccessTTL()).Unix(), access.ExpiresAt.Unix())
	assert.Equal(t, clock.Now().Add(codec.RefreshTTL()).Unix(), refresh.ExpiresAt.Unix())
}
