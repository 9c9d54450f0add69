package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"posturewatch.org/internal/ids"
)

const defaultTokenTTL = 30 * time.Minute

// Manager orchestrates federated login, token issuance, and request-time
// verification.
type Manager struct {
	store     Store
	codec     *Codec
	exchanger *Exchanger
	ttl       time.Duration
	now       func() time.Time
}

// ManagerOption configures Manager behavior.
type ManagerOption func(*Manager)

// WithTokenTTL overrides the access token lifetime.
func WithTokenTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ManagerOption {
	return func(m *Manager) {
		if fn != nil {
			m.now = fn
		}
	}
}

// NewManager constructs a Manager. The exchanger may be nil when logins go
// through Login directly (tests, trusted front-channels).
func NewManager(store Store, codec *Codec, exchanger *Exchanger, opts ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if codec == nil {
		return nil, errors.New("auth: codec is required")
	}
	m := &Manager{
		store:     store,
		codec:     codec,
		exchanger: exchanger,
		ttl:       defaultTokenTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// LoginWithCode completes the provider exchange and logs the resulting
// profile in. No account is created and no token issued when the exchange
// fails.
func (m *Manager) LoginWithCode(ctx context.Context, provider, code, redirectURI string) (Token, *Account, error) {
	if m.exchanger == nil {
		return Token{}, nil, fmt.Errorf("%w: no providers configured", ErrProviderRejected)
	}
	profile, err := m.exchanger.Exchange(ctx, provider, code, redirectURI)
	if err != nil {
		return Token{}, nil, err
	}
	return m.Login(ctx, profile)
}

// Login resolves the account behind an external profile, creating it on
// first login, and issues a fresh bearer token. Concurrent first logins
// for the same external identity are serialized by the account store's
// uniqueness constraint: the loser of the race re-reads the winner's row.
func (m *Manager) Login(ctx context.Context, profile ExternalProfile) (Token, *Account, error) {
	if strings.TrimSpace(profile.ExternalID) == "" || strings.TrimSpace(profile.Provider) == "" {
		return Token{}, nil, fmt.Errorf("%w: incomplete profile", ErrProviderRejected)
	}

	accounts := m.store.Accounts(ctx)
	account, err := accounts.FindByExternal(ctx, profile.Provider, profile.ExternalID)
	switch {
	case errors.Is(err, ErrNotFound):
		account = &Account{
			ID:          ids.New(),
			Provider:    profile.Provider,
			ExternalID:  profile.ExternalID,
			Email:       profile.Email,
			DisplayName: profile.DisplayName,
			AvatarURL:   profile.AvatarURL,
		}
		if createErr := accounts.Create(ctx, account); createErr != nil {
			if !errors.Is(createErr, ErrAlreadyExists) {
				return Token{}, nil, fmt.Errorf("create account for %s/%s: %w", profile.Provider, profile.ExternalID, createErr)
			}
			account, err = accounts.FindByExternal(ctx, profile.Provider, profile.ExternalID)
			if err != nil {
				return Token{}, nil, fmt.Errorf("reread account for %s/%s: %w", profile.Provider, profile.ExternalID, err)
			}
		}
	case err != nil:
		return Token{}, nil, fmt.Errorf("find account for %s/%s: %w", profile.Provider, profile.ExternalID, err)
	}

	token, err := m.codec.Sign(account.ID, m.ttl)
	if err != nil {
		return Token{}, nil, err
	}
	session := &Session{
		ID:        token.ID,
		AccountID: account.ID,
		ExpiresAt: token.ExpiresAt,
		CreatedAt: m.now().UTC(),
	}
	if err := m.store.Sessions(ctx).Create(ctx, session); err != nil {
		return Token{}, nil, fmt.Errorf("create session for account %s: %w", account.ID, err)
	}
	return token, account, nil
}

// Verify decodes and checks signature, expiry, and revocation, returning
// the authenticated account. Error kinds are distinguishable: a forged or
// malformed token fails with ErrInvalidToken, an expired one with
// ErrExpiredToken, a revoked one with ErrRevokedToken.
func (m *Manager) Verify(ctx context.Context, token string) (*Account, error) {
	account, _, err := m.VerifyWithClaims(ctx, token)
	return account, err
}

// VerifyWithClaims behaves like Verify but also returns the verified
// claims, so callers can reach the token id for later revocation.
func (m *Manager) VerifyWithClaims(ctx context.Context, token string) (*Account, *Claims, error) {
	claims, err := m.codec.Decode(token)
	if err != nil {
		return nil, nil, err
	}

	session, err := m.store.Sessions(ctx).Find(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, fmt.Errorf("find session %s: %w", claims.ID, err)
	}
	if session.Revoked {
		return nil, nil, ErrRevokedToken
	}
	if !m.now().UTC().Before(session.ExpiresAt) {
		return nil, nil, ErrExpiredToken
	}

	account, err := m.store.Accounts(ctx).Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, fmt.Errorf("find account %s: %w", claims.Subject, err)
	}
	return account, claims, nil
}

// Revoke marks the session behind a token id revoked. Idempotent:
// revoking an already revoked or expired-and-collected session succeeds.
func (m *Manager) Revoke(ctx context.Context, tokenID string) error {
	err := m.store.Sessions(ctx).MarkRevoked(ctx, tokenID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("revoke session %s: %w", tokenID, err)
	}
	return nil
}

// RevokeAccount revokes every live session of an account.
func (m *Manager) RevokeAccount(ctx context.Context, accountID string) error {
	if err := m.store.Sessions(ctx).MarkRevokedByAccount(ctx, accountID); err != nil {
		return fmt.Errorf("revoke sessions for account %s: %w", accountID, err)
	}
	return nil
}
