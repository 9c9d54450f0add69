package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	sql := `
create table a (id text);
insert into a values ('x;y');
`
	stmts := splitStatements(sql)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %#v", len(stmts), stmts)
	}
	if want := "insert into a values ('x;y');"; !strings.Contains(stmts[1], want) {
		t.Fatalf("semicolon inside literal split: %q", stmts[1])
	}
}

func TestListSQLOrdersLexically(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_sessions.up.sql", "0001_accounts.up.sql", "0001_accounts.down.sql", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("select 1;"), 0o600); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}

	files, err := listSQL(dir, ".up.sql")
	if err != nil {
		t.Fatalf("listSQL: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].name != "0001_accounts.up.sql" || files[1].name != "0002_sessions.up.sql" {
		t.Fatalf("unexpected order: %v", files)
	}
}

func TestListSQLMissingDir(t *testing.T) {
	files, err := listSQL(filepath.Join(t.TempDir(), "absent"), ".sql")
	if err != nil {
		t.Fatalf("expected nil error for missing dir, got %v", err)
	}
	if files != nil {
		t.Fatalf("expected no files, got %v", files)
	}
}
