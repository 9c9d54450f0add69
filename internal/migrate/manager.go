package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	defaultMigrationsTable = "schema_migrations"
	defaultSeedsTable      = "schema_seeds"
)

// Manager applies SQL migration and seed files stored on disk.
// Files run in lexical order; each file runs inside one transaction.
type Manager struct {
	db              *sql.DB
	migrationsDir   string
	seedsDir        string
	migrationsTable string
	seedsTable      string
}

// Option configures Manager.
type Option func(*Manager)

// WithMigrationsTable overrides the default migrations bookkeeping table.
func WithMigrationsTable(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.migrationsTable = name
		}
	}
}

// WithSeedsTable overrides the default seeds bookkeeping table.
func WithSeedsTable(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.seedsTable = name
		}
	}
}

// NewManager constructs a Manager.
func NewManager(db *sql.DB, migrationsDir, seedsDir string, opts ...Option) *Manager {
	m := &Manager{
		db:              db,
		migrationsDir:   migrationsDir,
		seedsDir:        seedsDir,
		migrationsTable: defaultMigrationsTable,
		seedsTable:      defaultSeedsTable,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Up applies all pending migrations.
func (m *Manager) Up(ctx context.Context) error {
	if err := m.ensureTables(ctx); err != nil {
		return err
	}
	applied, err := m.appliedSet(ctx, m.migrationsTable)
	if err != nil {
		return err
	}
	files, err := listSQL(m.migrationsDir, ".up.sql")
	if err != nil {
		return err
	}
	for _, f := range files {
		if applied[f.name] {
			continue
		}
		if err := m.runFile(ctx, f.path); err != nil {
			return fmt.Errorf("apply migration %s: %w", f.name, err)
		}
		if err := m.record(ctx, m.migrationsTable, f.name); err != nil {
			return err
		}
	}
	return nil
}

// Down rolls back the most recently applied migration.
func (m *Manager) Down(ctx context.Context) error {
	if err := m.ensureTables(ctx); err != nil {
		return err
	}
	history, err := m.appliedOrdered(ctx, m.migrationsTable)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return errors.New("no migrations applied")
	}
	last := history[len(history)-1]
	downPath := strings.TrimSuffix(filepath.Join(m.migrationsDir, last), ".up.sql") + ".down.sql"
	if _, err := os.Stat(downPath); err != nil {
		return fmt.Errorf("missing down migration for %s", last)
	}
	if err := m.runFile(ctx, downPath); err != nil {
		return fmt.Errorf("rollback migration %s: %w", last, err)
	}
	_, err = m.db.ExecContext(ctx,
		fmt.Sprintf(`delete from %s where name = $1`, m.migrationsTable), last)
	return err
}

// Status returns applied migrations in application order.
func (m *Manager) Status(ctx context.Context) ([]string, error) {
	if err := m.ensureTables(ctx); err != nil {
		return nil, err
	}
	return m.appliedOrdered(ctx, m.migrationsTable)
}

// Seed applies seed files idempotently.
func (m *Manager) Seed(ctx context.Context) error {
	if err := m.ensureTables(ctx); err != nil {
		return err
	}
	applied, err := m.appliedSet(ctx, m.seedsTable)
	if err != nil {
		return err
	}
	files, err := listSQL(m.seedsDir, ".sql")
	if err != nil {
		return err
	}
	for _, f := range files {
		if applied[f.name] {
			continue
		}
		if err := m.runFile(ctx, f.path); err != nil {
			return fmt.Errorf("apply seed %s: %w", f.name, err)
		}
		if err := m.record(ctx, m.seedsTable, f.name); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) ensureTables(ctx context.Context) error {
	for _, table := range []string{m.migrationsTable, m.seedsTable} {
		ddl := fmt.Sprintf(`
			create table if not exists %s (
				name text primary key,
				applied_at timestamptz not null default now()
			);`, table)
		if _, err := m.db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) runFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range splitStatements(string(raw)) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (m *Manager) record(ctx context.Context, table, name string) error {
	_, err := m.db.ExecContext(ctx,
		fmt.Sprintf(`insert into %s(name, applied_at) values ($1, $2)`, table),
		name, time.Now().UTC())
	return err
}

func (m *Manager) appliedSet(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf(`select name from %s`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	set := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		set[name] = true
	}
	return set, rows.Err()
}

func (m *Manager) appliedOrdered(ctx context.Context, table string) ([]string, error) {
	rows, err := m.db.QueryContext(ctx,
		fmt.Sprintf(`select name from %s order by applied_at asc`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

type sqlFile struct {
	name string
	path string
}

func listSQL(dir, suffix string) ([]sqlFile, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var files []sqlFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		files = append(files, sqlFile{name: e.Name(), path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	return files, nil
}

// splitStatements splits SQL on semicolons outside of string literals.
func splitStatements(sql string) []string {
	var stmts []string
	var current strings.Builder
	inString := false
	for _, r := range sql {
		current.WriteRune(r)
		switch r {
		case '\'':
			inString = !inString
		case ';':
			if !inString {
				stmts = append(stmts, current.String())
				current.Reset()
			}
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		stmts = append(stmts, current.String())
	}
	return stmts
}
