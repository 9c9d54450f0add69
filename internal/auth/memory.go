package auth

import (
	"context"
	"sync"
	"time"

	"posturewatch.org/internal/ids"
)

// InMemory implements Store with in-process concurrency safety. Used by
// tests and single-node development runs.
type InMemory struct {
	mu       sync.RWMutex
	accounts map[string]*Account
	external map[string]string // provider + "\x00" + external id -> account id
	sessions map[string]*Session
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		accounts: make(map[string]*Account),
		external: make(map[string]string),
		sessions: make(map[string]*Session),
	}
}

func (s *InMemory) Accounts(ctx context.Context) AccountStore { return (*memAccounts)(s) }
func (s *InMemory) Sessions(ctx context.Context) SessionStore { return (*memSessions)(s) }

func externalKey(provider, externalID string) string {
	return provider + "\x00" + externalID
}

type memAccounts InMemory

func (s *memAccounts) Create(ctx context.Context, a *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := externalKey(a.Provider, a.ExternalID)
	if _, ok := s.external[key]; ok {
		return ErrAlreadyExists
	}
	if a.ID == "" {
		a.ID = ids.New()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	cp := *a
	s.accounts[a.ID] = &cp
	s.external[key] = a.ID
	return nil
}

func (s *memAccounts) Find(ctx context.Context, id string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *memAccounts) FindByExternal(ctx context.Context, provider, externalID string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.external[externalKey(provider, externalID)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.accounts[id]
	return &cp, nil
}

type memSessions InMemory

func (s *memSessions) Create(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.ID == "" {
		sess.ID = ids.New()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *memSessions) Find(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *memSessions) MarkRevoked(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.Revoked = true
	return nil
}

func (s *memSessions) MarkRevokedByAccount(ctx context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.AccountID == accountID {
			sess.Revoked = true
		}
	}
	return nil
}
