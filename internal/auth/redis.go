package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"posturewatch.org/internal/ids"
)

const (
	sessionKeyPrefix         = "session:"
	accountSessionsKeyPrefix = "account_sessions:"
)

// RedisSessions implements SessionStore on Redis. Session records expire
// with the token TTL plus a small grace period; revocation flips the
// stored record in place so Verify sees it immediately.
type RedisSessions struct {
	client *redis.Client
	grace  time.Duration
}

var _ SessionStore = (*RedisSessions)(nil)

// NewRedisSessions wraps an existing Redis client.
func NewRedisSessions(client *redis.Client) *RedisSessions {
	return &RedisSessions{client: client, grace: time.Minute}
}

func sessionKey(id string) string         { return sessionKeyPrefix + id }
func accountSessionsKey(id string) string { return accountSessionsKeyPrefix + id }

func (s *RedisSessions) Create(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = ids.New()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	ttl := time.Until(sess.ExpiresAt) + s.grace
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", sess.ID)
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(sess.ID), data, ttl)
	pipe.SAdd(ctx, accountSessionsKey(sess.AccountID), sess.ID)
	pipe.Expire(ctx, accountSessionsKey(sess.AccountID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *RedisSessions) Find(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, nil
}

func (s *RedisSessions) MarkRevoked(ctx context.Context, id string) error {
	sess, err := s.Find(ctx, id)
	if err != nil {
		return err
	}
	if sess.Revoked {
		return nil
	}
	sess.Revoked = true
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	// KeepTTL preserves the original expiry window.
	if err := s.client.Set(ctx, sessionKey(id), data, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("revoke session %s: %w", id, err)
	}
	return nil
}

func (s *RedisSessions) MarkRevokedByAccount(ctx context.Context, accountID string) error {
	members, err := s.client.SMembers(ctx, accountSessionsKey(accountID)).Result()
	if err != nil {
		return fmt.Errorf("list sessions for account %s: %w", accountID, err)
	}
	for _, id := range members {
		if err := s.MarkRevoked(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}
