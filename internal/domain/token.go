package domain

import "time"

// TokenPair is the access/refresh couple handed to a client.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenRecord is the registry's live credential for one principal.
// PrincipalID is unique: a principal has at most one record.
type TokenRecord struct {
	PrincipalID  string
	AccessToken  string
	RefreshToken string
	UpdatedAt    time.Time
}
