package events

import (
	"time"

	"github.com/jionu102/codeit-image-post-auth/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionCreated   EventType = "session_created"
	EventSessionEvicted   EventType = "session_evicted"
	EventSessionDestroyed EventType = "session_destroyed"
	EventTokenIssued      EventType = "token_issued"
	EventTokenRevoked     EventType = "token_revoked"
)

// Actor identifies the principal an event is about.
type Actor struct {
	PrincipalID string      `json:"principal_id"`
	Username    string      `json:"username"`
	Role        domain.Role `json:"role"`
}

// Event represents a lifecycle event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SessionPayload describes the session an event refers to.
type SessionPayload struct {
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionEvictedPayload links an evicted session to its replacement.
type SessionEvictedPayload struct {
	EvictedSessionID     string `json:"evicted_session_id"`
	ReplacementSessionID string `json:"replacement_session_id"`
}

// TokenRevokedPayload payload.
type TokenRevokedPayload struct {
	Reason string `json:"reason"`
}
