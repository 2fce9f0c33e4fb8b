package dto

import "github.com/jionu102/codeit-image-post-auth/internal/domain"

// LoginRequest carries credentials as a form or JSON body.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// UserResponse is the public profile of a principal.
type UserResponse struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}

// NewUserResponse strips everything but the public fields.
func NewUserResponse(p *domain.Principal) UserResponse {
	return UserResponse{ID: p.ID, Username: p.Username, Role: p.Role}
}

// TokenResponse is returned by token-mode login and refresh.
type TokenResponse struct {
	AccessToken string       `json:"accessToken"`
	User        UserResponse `json:"user"`
}

// SessionLoginResponse is returned by session-mode login.
type SessionLoginResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

// MessageResponse is a bare acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// IdentityResponse describes the caller of a request.
type IdentityResponse struct {
	Authenticated bool        `json:"authenticated"`
	Username      string      `json:"username,omitempty"`
	Role          domain.Role `json:"role,omitempty"`
	SessionID     string      `json:"sessionId,omitempty"`
	Description   string      `json:"description"`
}
