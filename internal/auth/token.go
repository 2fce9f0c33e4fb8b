package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jionu102/codeit-image-post-auth/internal/config"
	"github.com/jionu102/codeit-image-post-auth/internal/domain"
)

const minSecretBytes = 32

// Verification failures. Callers branch on these with errors.Is.
var (
	// ErrMalformed means the value could not be parsed as one of our tokens.
	ErrMalformed = errors.New("token malformed")
	// ErrBadSignature means the token parsed but its signature does not match.
	ErrBadSignature = errors.New("token signature invalid")
	// ErrExpired means the signature is valid but the token is past its expiry.
	ErrExpired = errors.New("token expired")
)

// Claims describes the JWT payload.
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HS256 signed tokens. It holds no state
// besides its key and is safe for concurrent use.
type TokenCodec struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	newID      func() string
	parser     *jwt.Parser
}

// CodecOption customizes a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) { c.now = now }
}

// WithIDGenerator replaces the jti generator.
func WithIDGenerator(newID func() string) CodecOption {
	return func(c *TokenCodec) { c.newID = newID }
}

// NewTokenCodec builds a codec from auth configuration.
func NewTokenCodec(cfg config.AuthConfig, opts ...CodecOption) (*TokenCodec, error) {
	if len(cfg.JWTSecret) < minSecretBytes {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", minSecretBytes)
	}
	if cfg.JWTIssuer == "" {
		return nil, errors.New("jwt issuer must not be empty")
	}

	c := &TokenCodec{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.JWTIssuer,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)
	return c, nil
}

// AccessTTL returns the lifetime of access tokens.
func (c *TokenCodec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the lifetime of refresh tokens.
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

// Issue builds and signs a token for subject valid for ttl.
func (c *TokenCodec) Issue(subject string, role domain.Role, ttl time.Duration) (string, error) {
	now := c.now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        c.newID(),
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// IssuePair mints a short-lived access token and a long-lived refresh token.
func (c *TokenCodec) IssuePair(subject string, role domain.Role) (domain.TokenPair, error) {
	access, err := c.Issue(subject, role, c.accessTTL)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := c.Issue(subject, role, c.refreshTTL)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Verify parses the token, checks its signature and expiry and returns the
// claims. Failures wrap ErrMalformed, ErrBadSignature or ErrExpired.
func (c *TokenCodec) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := c.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if !parsed.Valid {
		return nil, ErrMalformed
	}
	if !claims.Role.Valid() || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject or role", ErrMalformed)
	}
	return claims, nil
}

// jwt/v5 verifies the signature before validating claims, so an expiry
// error always comes from a correctly signed token.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
