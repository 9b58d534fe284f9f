package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// migration is a single forward schema step, following the teacher's
// numbered-list-of-closures design. New migrations are appended at the
// end; never modify existing entries.
type migration struct {
	version     int
	description string
	apply       func(tx *sql.Tx) error
}

var migrations = []migration{
	{
		version:     1,
		description: "base schema: nodes, edges, nodes_fts, sync triggers",
		apply:       func(tx *sql.Tx) error { return nil }, // applied via baseSchemaSQL before Migrate runs
	},
	{
		version:     2,
		description: "add hash column to nodes for change detection",
		apply: func(tx *sql.Tx) error {
			_, err := tx.Exec("ALTER TABLE nodes ADD COLUMN hash TEXT")
			return ignoreDuplicateColumn(err)
		},
	},
	{
		version:     3,
		description: "add meta column to nodes for the opaque JSON bag",
		apply: func(tx *sql.Tx) error {
			_, err := tx.Exec("ALTER TABLE nodes ADD COLUMN meta TEXT NOT NULL DEFAULT '{}'")
			return ignoreDuplicateColumn(err)
		},
	},
}

// ignoreDuplicateColumn swallows the "duplicate column name" error SQLite
// raises when a migration's ALTER TABLE targets a column the base schema
// already created — expected when opening a store that was initialized at
// the current baseSchemaSQL rather than migrated up from an old version.
func ignoreDuplicateColumn(err error) error {
	if err == nil {
		return nil
	}
	switch err.Error() {
	case "duplicate column name: hash", "duplicate column name: meta":
		return nil
	default:
		return err
	}
}

// Migrate detects the store's current schema version and applies any
// pending migrations, bumping user_version after each.
//
// A brand-new store opens at user_version 0 with no tables; baseSchemaSQL
// has already created the full current-shape schema, so Migrate simply
// records every migration as applied. A pre-existing store file with
// user_version still 0 is assumed to predate version tracking; its true
// version is detected from column presence (hash present -> >=2, hash+meta
// present -> >=3) so migrations already reflected in its schema are not
// re-applied.
func (s *Store) Migrate(ctx context.Context) error {
	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("store: reading user_version: %w", err)
	}

	if current == 0 {
		detected, err := s.detectVersion(ctx)
		if err != nil {
			return fmt.Errorf("store: detecting schema version: %w", err)
		}
		current = detected

		// detectVersion may already report the store at the latest version
		// (a fresh store's baseSchemaSQL creates the current-shape schema
		// directly), in which case the apply loop below has nothing left to
		// run and would never write user_version. Persist it here so I7
		// holds even when zero migrations are applied this call.
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", current)); err != nil {
			return fmt.Errorf("store: recording detected schema version %d: %w", current, err)
		}
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		slog.Info("store: applying migration", "version", m.version, "description", m.description)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("store: begin migration %d: %w", m.version, err)
		}
		if err := m.apply(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: migration %d failed: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("store: committing migration %d: %w", m.version, err)
		}

		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			return fmt.Errorf("store: recording migration %d: %w", m.version, err)
		}
		current = m.version
	}

	return nil
}

// detectVersion infers the schema version of a store whose user_version is
// still 0 by checking which nodes columns exist: the full current shape
// (hash and meta both present, which is also what baseSchemaSQL creates on
// a fresh install) means every migration already applies; hash alone means
// only migration 2 was reflected; bare nodes means a version-1 store, so
// migrations 2 and 3 are still pending.
func (s *Store) detectVersion(ctx context.Context) (int, error) {
	cols, err := s.nodeColumns(ctx)
	if err != nil {
		return 0, err
	}
	hasHash := cols["hash"]
	hasMeta := cols["meta"]
	switch {
	case hasHash && hasMeta:
		return len(migrations), nil
	case hasHash:
		return 2, nil
	default:
		return 1, nil
	}
}

func (s *Store) nodeColumns(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info(nodes)")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notnull    int
			dfltValue  sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
