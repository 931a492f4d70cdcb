package db

import (
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	embeddedmigrations "github.com/solatis/cdiscengine/migrations"
)

/*
 * Schema migrations for the operation cache database.
 *
 * Migration workflow:
 *   1. Pick the embedded directory for the connected driver
 *   2. Ensure the migrations bookkeeping table exists
 *   3. Refuse to continue if an applied migration's checksum changed
 *   4. Apply pending files in filename order, one transaction each
 *
 * Bookkeeping schema must stay in sync with 001_operation_cache.sql.
 */

// MigrationStatus reports the state of one migration file.
type MigrationStatus struct {
	ID          string
	Checksum    string
	Applied     bool
	AppliedAt   *time.Time
	ExecutionMs int64
}

type migration struct {
	ID       string
	Checksum string
	SQL      string
}

// MigrateUp applies every pending migration.
func MigrateUp(db *sqlx.DB) error {
	pending, err := loadMigrations(db)
	if err != nil {
		return err
	}

	applied, err := appliedChecksums(db)
	if err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}
	if err := verifyChecksums(pending, applied); err != nil {
		return fmt.Errorf("migration checksum validation failed: %w", err)
	}

	for _, m := range pending {
		if _, done := applied[m.ID]; done {
			continue
		}
		if err := applyInTx(db, m); err != nil {
			return err
		}
	}
	return nil
}

// MigrateStatus lists every embedded migration with its applied state.
func MigrateStatus(db *sqlx.DB) ([]MigrationStatus, error) {
	all, err := loadMigrations(db)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ID          string     `db:"migration_id"`
		Checksum    string     `db:"checksum"`
		AppliedAt   string `db:"applied_at"`
		ExecutionMs int64  `db:"execution_ms"`
	}
	if err := db.Select(&rows, "SELECT migration_id, checksum, applied_at, execution_ms FROM migrations"); err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	byID := make(map[string]MigrationStatus, len(rows))
	for _, r := range rows {
		status := MigrationStatus{ID: r.ID, Checksum: r.Checksum, Applied: true, ExecutionMs: r.ExecutionMs}
		// database/sql renders postgres timestamps as RFC3339Nano; sqlite stores RFC3339 text
		if at, err := time.Parse(time.RFC3339Nano, r.AppliedAt); err == nil {
			status.AppliedAt = &at
		}
		byID[r.ID] = status
	}

	statuses := make([]MigrationStatus, 0, len(all))
	for _, m := range all {
		if s, ok := byID[m.ID]; ok {
			statuses = append(statuses, s)
			continue
		}
		statuses = append(statuses, MigrationStatus{ID: m.ID, Checksum: m.Checksum})
	}
	return statuses, nil
}

// loadMigrations ensures the bookkeeping table and parses the driver's files.
func loadMigrations(db *sqlx.DB) ([]migration, error) {
	fsys, dir, err := migrationSource(db.DriverName())
	if err != nil {
		return nil, err
	}
	if err := createMigrationsTable(db); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}
	migrations, err := parseMigrationFiles(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to parse migrations: %w", err)
	}
	return migrations, nil
}

func migrationSource(driver string) (embed.FS, string, error) {
	switch driver {
	case DriverSQLite:
		return embeddedmigrations.SqliteMigrations, "sqlite", nil
	case DriverPostgres:
		return embeddedmigrations.PostgresMigrations, "postgres", nil
	default:
		return embed.FS{}, "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func parseMigrationFiles(fsys embed.FS, dir string) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	var out []migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		content, err := fsys.ReadFile(path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		out = append(out, migration{
			ID:       e.Name(),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
			SQL:      string(content),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func createMigrationsTable(db *sqlx.DB) error {
	appliedAt := "TEXT"
	if db.DriverName() == DriverPostgres {
		appliedAt = "TIMESTAMP WITHOUT TIME ZONE"
	}
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS migrations (
		migration_id TEXT PRIMARY KEY,
		checksum TEXT NOT NULL,
		applied_at ` + appliedAt + ` NOT NULL,
		execution_ms INTEGER NOT NULL
	)`)
	return err
}

func appliedChecksums(db *sqlx.DB) (map[string]string, error) {
	var rows []struct {
		ID       string `db:"migration_id"`
		Checksum string `db:"checksum"`
	}
	if err := db.Select(&rows, "SELECT migration_id, checksum FROM migrations"); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.ID] = r.Checksum
	}
	return out, nil
}

func verifyChecksums(migrations []migration, applied map[string]string) error {
	embedded := make(map[string]string, len(migrations))
	for _, m := range migrations {
		embedded[m.ID] = m.Checksum
	}
	for id, got := range applied {
		want, ok := embedded[id]
		if !ok {
			return fmt.Errorf("migration %s exists in database but not in embedded files", id)
		}
		if got != want {
			return fmt.Errorf("checksum mismatch for migration %s: expected %s, got %s", id, want, got)
		}
	}
	return nil
}

// applyInTx runs one migration and records it atomically.
func applyInTx(db *sqlx.DB, m migration) error {
	start := time.Now()
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %s: %w", m.ID, err)
	}

	// lib/pq rejects multiple statements per Exec
	for _, stmt := range strings.Split(m.SQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.Exec(stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", m.ID, err)
		}
	}

	now := time.Now().UTC()
	var appliedAt any = now
	if tx.DriverName() == DriverSQLite {
		appliedAt = now.Format(time.RFC3339)
	}
	_, err = tx.Exec(tx.Rebind("INSERT INTO migrations (migration_id, checksum, applied_at, execution_ms) VALUES (?, ?, ?, ?)"),
		m.ID, m.Checksum, appliedAt, time.Since(start).Milliseconds())
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration %s: %w", m.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.ID, err)
	}
	return nil
}
