package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadMigrationsPairsAndOrders(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"0002_boards.up.sql", "0002_boards.down.sql",
		"0001_users.up.sql", "0001_users.down.sql",
		"0003_orphan.down.sql",
		"README.md",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	files, err := readMigrations(dir)
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(files))
	}
	if files[0].version != "0001_users" || files[1].version != "0002_boards" {
		t.Fatalf("unexpected order: %s, %s", files[0].version, files[1].version)
	}
	if files[0].down == "" {
		t.Fatal("expected down file to be paired")
	}
}

func TestReadMigrationsMissingDir(t *testing.T) {
	if _, err := readMigrations(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing dir")
	}
}
