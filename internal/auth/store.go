package auth

import "context"

// Store describes persistence operations required by the session subsystem.
type Store interface {
	Accounts(ctx context.Context) AccountStore
	Sessions(ctx context.Context) SessionStore
}

// AccountStore manages local accounts resolved from federated identities.
type AccountStore interface {
	// Create fails with ErrAlreadyExists when an account for the same
	// (provider, external id) pair already exists.
	Create(ctx context.Context, a *Account) error
	Find(ctx context.Context, id string) (*Account, error)
	FindByExternal(ctx context.Context, provider, externalID string) (*Account, error)
}

// SessionStore holds issued-session records and revocation state.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	Find(ctx context.Context, id string) (*Session, error)
	// MarkRevoked is idempotent; revoking an already revoked session is a
	// no-op. Fails with ErrNotFound for unknown ids.
	MarkRevoked(ctx context.Context, id string) error
	MarkRevokedByAccount(ctx context.Context, accountID string) error
}
