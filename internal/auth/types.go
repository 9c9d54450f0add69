package auth

import "time"

// Account represents a local end-user account backed by a federated identity.
// The (Provider, ExternalID) pair is immutable after creation and unique
// across accounts.
type Account struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	ExternalID  string    `json:"-"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"-"`
}

// ExternalProfile is the normalized identity returned by a provider exchange.
type ExternalProfile struct {
	Provider    string
	ExternalID  string
	Email       string
	DisplayName string
	AvatarURL   string
}

// Session is the persisted record behind an issued bearer token.
type Session struct {
	ID        string
	AccountID string
	ExpiresAt time.Time
	CreatedAt time.Time
	Revoked   bool
}

// Token is an issued bearer credential.
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}
