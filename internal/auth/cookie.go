package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	RefreshTokenCookie = "REFRESH_TOKEN"
	SessionCookie      = "SESSION_ID"
)

// fasthttp cannot emit Max-Age=0, so deletion uses an expiry in the past.
var expiredAt = time.Unix(0, 0).UTC()

// CredentialCookie builds an httpOnly root-scoped cookie living for ttl.
// A zero ttl yields a browser-session cookie.
func CredentialCookie(name, value string, ttl time.Duration, secure bool) *fiber.Cookie {
	cookie := &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if ttl > 0 {
		cookie.MaxAge = int(ttl / time.Second)
	} else {
		cookie.SessionOnly = true
	}
	return cookie
}

// ClearedCookie builds the deletion counterpart of CredentialCookie.
func ClearedCookie(name string, secure bool) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  expiredAt,
	}
}
