// Package prefs persists session-local wizard preferences: the last
// issue type, last entered field values, and recently used candidates.
// A Store is a collaborator passed into the wizard by reference, scoped
// to one session: constructed on first use, cleared on session end.
package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed preference store.
type Store struct {
	db *sqlx.DB
}

// New opens (or creates) the preference database at dbPath, enables WAL
// mode, and runs any pending schema migrations. Use ":memory:" for an
// ephemeral store.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening prefs db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *Store) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration %d: %w", m.version, err)
		}
		if _, err := s.db.Exec(
			"INSERT INTO schema_version (version) VALUES (?)", m.version,
		); err != nil {
			return fmt.Errorf("recording migration %d: %w", m.version, err)
		}
	}

	return nil
}

// SetLastIssueType remembers the most recently chosen issue type.
func (s *Store) SetLastIssueType(ctx context.Context, issueTypeID string) error {
	return s.setPref(ctx, "last_issue_type", issueTypeID)
}

// LastIssueType returns the most recently chosen issue type, or empty
// when none is stored.
func (s *Store) LastIssueType(ctx context.Context) (string, error) {
	return s.getPref(ctx, "last_issue_type")
}

// SetLastValue remembers the last entered value for a field key. These
// feed the adapter-level default override during normalization.
func (s *Store) SetLastValue(ctx context.Context, fieldKey, value string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO last_values (field_key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(field_key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		fieldKey, value, now,
	)
	if err != nil {
		return fmt.Errorf("saving last value for %s: %w", fieldKey, err)
	}
	return nil
}

// LastValues returns all remembered field values keyed by field key.
func (s *Store) LastValues(ctx context.Context) (map[string]string, error) {
	rows := []struct {
		FieldKey string `db:"field_key"`
		Value    string `db:"value"`
	}{}
	err := s.db.SelectContext(
		ctx, &rows, "SELECT field_key, value FROM last_values",
	)
	if err != nil {
		return nil, fmt.Errorf("loading last values: %w", err)
	}

	values := make(map[string]string, len(rows))
	for _, r := range rows {
		values[r.FieldKey] = r.Value
	}
	return values, nil
}

// Clear wipes all stored preferences. Called at session end.
func (s *Store) Clear(ctx context.Context) error {
	for _, table := range []string{"prefs", "last_values"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}

func (s *Store) setPref(ctx context.Context, key, value string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prefs (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, value, now,
	)
	if err != nil {
		return fmt.Errorf("saving pref %s: %w", key, err)
	}
	return nil
}

func (s *Store) getPref(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(
		ctx, &value, "SELECT value FROM prefs WHERE key = ?", key,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading pref %s: %w", key, err)
	}
	return value, nil
}
