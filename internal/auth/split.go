package auth

import "context"

// SplitStore combines independently backed account and session stores,
// e.g. Postgres accounts with Redis-held sessions.
type SplitStore struct {
	AccountBackend AccountStore
	SessionBackend SessionStore
}

var _ Store = (*SplitStore)(nil)

func (s *SplitStore) Accounts(ctx context.Context) AccountStore { return s.AccountBackend }
func (s *SplitStore) Sessions(ctx context.Context) SessionStore { return s.SessionBackend }
