// Package locus implements the LocusLedger: an idempotent mapping from
// content hash to a stable, never-reassigned locus id.
package locus

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Ledger is the side-file database mapping canon_hash -> locus_id.
// It is deliberately a separate SQLite file from the GraphStore so that
// locus identity survives a GraphStore rebuild.
type Ledger struct {
	db *sql.DB
}

// Open creates or opens the ledger file at path.
func Open(path string) (*Ledger, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("locus: creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("locus: opening ledger: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("locus: pinging ledger: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS locus_map (
			canon_hash TEXT PRIMARY KEY,
			locus_id   TEXT NOT NULL UNIQUE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("locus: creating locus_map table: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Close closes the underlying ledger database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Hash returns the MD5 hex digest of text, trimmed but otherwise untransformed.
func Hash(text string) string {
	sum := md5.Sum([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

// GetOrMint returns the stable locus id for contentHash, minting a fresh
// UUIDv4 on first observation. It is idempotent and safe under concurrent
// callers: on a unique-key race it re-reads and returns the winner.
func (l *Ledger) GetOrMint(ctx context.Context, contentHash string) (string, error) {
	if id, ok, err := l.lookup(ctx, contentHash); err != nil {
		return "", err
	} else if ok {
		return id, nil
	}

	fresh := uuid.New().String()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO locus_map (canon_hash, locus_id) VALUES (?, ?)
		 ON CONFLICT(canon_hash) DO NOTHING`,
		contentHash, fresh)
	if err != nil {
		return "", fmt.Errorf("locus: minting id: %w", err)
	}

	id, ok, err := l.lookup(ctx, contentHash)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("locus: id vanished after insert for hash %s", contentHash)
	}
	return id, nil
}

func (l *Ledger) lookup(ctx context.Context, contentHash string) (string, bool, error) {
	var id string
	err := l.db.QueryRowContext(ctx,
		"SELECT locus_id FROM locus_map WHERE canon_hash = ?", contentHash).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("locus: lookup: %w", err)
	}
	return id, true, nil
}
