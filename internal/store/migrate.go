package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// migrationLockID serializes migrations across API instances starting at
// the same time.
const migrationLockID = 7_302_114

type migrationFile struct {
	version string
	up      string
	down    string
}

// readMigrations pairs NNNN_name.up.sql with its .down.sql, ordered by name.
func readMigrations(dir string) ([]migrationFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	byVersion := map[string]*migrationFile{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		var version string
		var up bool
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			version, up = strings.TrimSuffix(name, ".up.sql"), true
		case strings.HasSuffix(name, ".down.sql"):
			version = strings.TrimSuffix(name, ".down.sql")
		default:
			continue
		}
		m, ok := byVersion[version]
		if !ok {
			m = &migrationFile{version: version}
			byVersion[version] = m
		}
		if up {
			m.up = filepath.Join(dir, name)
		} else {
			m.down = filepath.Join(dir, name)
		}
	}
	out := make([]migrationFile, 0, len(byVersion))
	for _, m := range byVersion {
		if m.up != "" {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

// ApplyMigrations runs every pending up migration in its own transaction.
// Versions are recorded by file name without the .up.sql suffix.
func ApplyMigrations(ctx context.Context, db *sql.DB, migrationsDir string) error {
	files, err := readMigrations(migrationsDir)
	if err != nil {
		return err
	}
	return withMigrationLock(ctx, db, func(conn *sql.Conn) error {
		applied, err := appliedVersions(ctx, conn)
		if err != nil {
			return err
		}
		for _, m := range files {
			if applied[m.version] {
				continue
			}
			if err := runMigration(ctx, conn, m.version, m.up,
				`INSERT INTO schema_migrations(version) VALUES($1)`); err != nil {
				return err
			}
		}
		return nil
	})
}

// RollbackMigrations runs the down migration of every applied version,
// newest first. Versions without a down file stop the rollback.
func RollbackMigrations(ctx context.Context, db *sql.DB, migrationsDir string) error {
	files, err := readMigrations(migrationsDir)
	if err != nil {
		return err
	}
	return withMigrationLock(ctx, db, func(conn *sql.Conn) error {
		applied, err := appliedVersions(ctx, conn)
		if err != nil {
			return err
		}
		for i := len(files) - 1; i >= 0; i-- {
			m := files[i]
			if !applied[m.version] {
				continue
			}
			if m.down == "" {
				return fmt.Errorf("migration %s has no down file", m.version)
			}
			if err := runMigration(ctx, conn, m.version, m.down,
				`DELETE FROM schema_migrations WHERE version=$1`); err != nil {
				return err
			}
		}
		return nil
	})
}

func withMigrationLock(ctx context.Context, db *sql.DB, fn func(*sql.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("migration conn: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, migrationLockID); err != nil {
		return fmt.Errorf("migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, migrationLockID)
	}()

	if _, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	return fn(conn)
}

func appliedVersions(ctx context.Context, conn *sql.Conn) (map[string]bool, error) {
	rows, err := conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	defer rows.Close()
	applied := map[string]bool{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[strings.TrimSuffix(v, ".up.sql")] = true
	}
	return applied, rows.Err()
}

func runMigration(ctx context.Context, conn *sql.Conn, version, path, record string) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", version, err)
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", version, err)
	}
	if body := strings.TrimSpace(string(contents)); body != "" {
		if _, err := tx.ExecContext(ctx, body); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("execute migration %s: %w", filepath.Base(path), err)
		}
	}
	if _, err := tx.ExecContext(ctx, record, version); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %s: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", version, err)
	}
	return nil
}
