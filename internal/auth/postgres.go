package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"posturewatch.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Accounts(ctx context.Context) AccountStore { return &pgAccounts{db: s.db} }
func (s *PGStore) Sessions(ctx context.Context) SessionStore { return &pgSessions{db: s.db} }

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Account store ------------------------------------------------------------
type pgAccounts struct{ db *sql.DB }

func (s *pgAccounts) Create(ctx context.Context, a *Account) error {
	if a.ID == "" {
		a.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into accounts(id, provider, external_id, email, display_name, avatar_url)
		 values($1,$2,$3,$4,$5,$6)`,
		a.ID, a.Provider, a.ExternalID, a.Email, a.DisplayName, a.AvatarURL,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *pgAccounts) Find(ctx context.Context, id string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, provider, external_id, email, display_name, avatar_url, created_at, updated_at
		 from accounts where id=$1`, id)
	return scanAccount(row)
}

func (s *pgAccounts) FindByExternal(ctx context.Context, provider, externalID string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, provider, external_id, email, display_name, avatar_url, created_at, updated_at
		 from accounts where provider=$1 and external_id=$2`, provider, externalID)
	return scanAccount(row)
}

func scanAccount(row *sql.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Provider, &a.ExternalID, &a.Email, &a.DisplayName, &a.AvatarURL, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Session store ------------------------------------------------------------
type pgSessions struct{ db *sql.DB }

func (s *pgSessions) Create(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into sessions(id, account_id, expires_at, revoked) values($1,$2,$3,$4)`,
		sess.ID, sess.AccountID, sess.ExpiresAt, sess.Revoked,
	)
	return err
}

func (s *pgSessions) Find(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, account_id, expires_at, created_at, revoked from sessions where id=$1`, id)
	var sess Session
	err := row.Scan(&sess.ID, &sess.AccountID, &sess.ExpiresAt, &sess.CreatedAt, &sess.Revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *pgSessions) MarkRevoked(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `update sessions set revoked=true where id=$1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgSessions) MarkRevokedByAccount(ctx context.Context, accountID string) error {
	_, err := s.db.ExecContext(ctx, `update sessions set revoked=true where account_id=$1`, accountID)
	return err
}
