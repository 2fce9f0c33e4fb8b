package domain

import "time"

// SessionState tracks why a session record still exists.
type SessionState string

const (
	SessionStateActive SessionState = "ACTIVE"
	// SessionStateEvicted marks a tombstone left behind when a newer login
	// for the same principal replaced this session.
	SessionStateEvicted SessionState = "EVICTED"
)

// SessionRecord is a server-side session. At most one ACTIVE record exists
// per principal.
type SessionRecord struct {
	ID          string
	PrincipalID string
	Username    string
	Role        Role
	State       SessionState
	CreatedAt   time.Time
	LastSeenAt  time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the session passed its idle deadline at now.
func (s SessionRecord) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
