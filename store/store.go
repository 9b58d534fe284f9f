// Package store implements GraphStore (C4): the versioned-schema SQLite
// store holding nodes, edges, and the FTS index, plus VectorCodec (C5).
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3_resonance"

var registerDriver = sync.OnceFunc(func() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			// vec_dot is a read-side convenience for ad-hoc exploration
			// queries; the ingestion/retrieval path never calls it and
			// instead brute-forces scoring in Go (see C5, FindSimilar).
			return conn.RegisterFunc("vec_dot", func(a, b []byte) float64 {
				return DotProduct(DecodeVector(a), DecodeVector(b))
			}, true)
		},
	})
})

// Node is a row in the nodes table (§3 DATA MODEL).
type Node struct {
	ID        string
	Type      string
	Title     string
	Content   string
	Domain    string
	Layer     string
	Embedding []float32 // nil iff the node is non-embeddable
	Hash      string
	Meta      map[string]any
}

// Edge is a directed (source, target, type) relation.
type Edge struct {
	Source string
	Target string
	Type   string
}

// SearchHit is one FTS5 match.
type SearchHit struct {
	ID       string
	Title    string
	Snippet  string
	BM25Rank float64
}

// SimilarHit is one brute-force vector match.
type SimilarHit struct {
	ID    string
	Score float64
}

// Stats summarizes store occupancy for the Ingestor and Validator.
type Stats struct {
	Nodes     int
	Edges     int
	Vectors   int
	PageCount int
	PageSize  int
}

// Store wraps the SQLite database backing the knowledge graph.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at dbPath, applies the base
// schema, and runs any pending migrations. WAL journal mode is enabled so
// readers never block the single writer (§5 CONCURRENCY & RESOURCE MODEL).
func New(dbPath string) (*Store, error) {
	registerDriver()

	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("store: creating db directory: %w", err)
		}
	}

	db, err := sql.Open(driverName, dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: pinging database: %w", err)
	}

	if _, err := db.Exec(baseSchemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: creating schema: %w", err)
	}

	db.SetMaxOpenConns(1) // single-writer model; WAL gives readers concurrency elsewhere
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for the vec_dot convenience UDF and
// other exploration queries outside the core API.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Checkpoint truncates the WAL file.
func (s *Store) Checkpoint(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

// InsertNode upserts a node (INSERT OR REPLACE per §4.4).
func (s *Store) InsertNode(ctx context.Context, n Node) error {
	metaJSON, err := marshalMeta(n.Meta)
	if err != nil {
		return fmt.Errorf("store: marshaling node meta: %w", err)
	}

	var embedding []byte
	if n.Embedding != nil {
		embedding = EncodeVector(n.Embedding)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO nodes (id, type, title, content, domain, layer, embedding, hash, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.Type, n.Title, n.Content, n.Domain, n.Layer, embedding, n.Hash, metaJSON)
	return err
}

// InsertEdge inserts an edge (INSERT OR IGNORE per §4.4, satisfying I5).
func (s *Store) InsertEdge(ctx context.Context, e Edge) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO edges (source, target, type) VALUES (?, ?, ?)",
		e.Source, e.Target, e.Type)
	return err
}

// GetNodeHash returns the stored hash for id, or "" if the node does not exist.
func (s *Store) GetNodeHash(ctx context.Context, id string) (string, error) {
	var hash sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT hash FROM nodes WHERE id = ?", id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return hash.String, nil
}

// GetNode retrieves a single node by id, or (nil, nil) if it does not exist.
func (s *Store) GetNode(ctx context.Context, id string) (*Node, error) {
	var n Node
	var title, content, hash sql.NullString
	var embedding []byte
	var metaJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, type, title, content, domain, layer, embedding, hash, meta
		FROM nodes WHERE id = ?
	`, id).Scan(&n.ID, &n.Type, &title, &content, &n.Domain, &n.Layer, &embedding, &hash, &metaJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	n.Title, n.Content, n.Hash = title.String, content.String, hash.String
	if embedding != nil {
		n.Embedding = DecodeVector(embedding)
	}
	n.Meta, err = unmarshalMeta(metaJSON)
	if err != nil {
		return nil, fmt.Errorf("store: unmarshaling node meta: %w", err)
	}
	return &n, nil
}

// GetNodesByType returns every node of the given type.
func (s *Store) GetNodesByType(ctx context.Context, nodeType string) ([]Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, title, content, domain, layer, embedding, hash, meta
		FROM nodes WHERE type = ?
	`, nodeType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// GetNodesByDomain returns every node in the given domain.
func (s *Store) GetNodesByDomain(ctx context.Context, domain string) ([]Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, title, content, domain, layer, embedding, hash, meta
		FROM nodes WHERE domain = ?
	`, domain)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

func scanNodes(rows *sql.Rows) ([]Node, error) {
	var nodes []Node
	for rows.Next() {
		var n Node
		var title, content, hash sql.NullString
		var embedding []byte
		var metaJSON string
		if err := rows.Scan(&n.ID, &n.Type, &title, &content, &n.Domain, &n.Layer, &embedding, &hash, &metaJSON); err != nil {
			return nil, err
		}
		n.Title, n.Content, n.Hash = title.String, content.String, hash.String
		if embedding != nil {
			n.Embedding = DecodeVector(embedding)
		}
		meta, err := unmarshalMeta(metaJSON)
		if err != nil {
			return nil, err
		}
		n.Meta = meta
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// AllEmbeddedNodes returns every node that carries an embedding, for
// SemanticWeaver's orphan-rescue scan.
func (s *Store) AllEmbeddedNodes(ctx context.Context) ([]Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, title, content, domain, layer, embedding, hash, meta
		FROM nodes WHERE embedding IS NOT NULL
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// GetLexicon returns every persona/concept node, used to seed the Tokenizer.
func (s *Store) GetLexicon(ctx context.Context) ([]Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, title, content, domain, layer, embedding, hash, meta
		FROM nodes WHERE domain = 'persona' AND type = 'concept'
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// EdgesFrom returns every edge with the given source.
func (s *Store) EdgesFrom(ctx context.Context, source string) ([]Edge, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT source, target, type FROM edges WHERE source = ?", source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

// IncidentEdges returns every edge touching id as either source or target,
// used by LouvainGate's degree check.
func (s *Store) IncidentEdges(ctx context.Context, id string) ([]Edge, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT source, target, type FROM edges WHERE source = ? OR target = ?", id, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

// AllEdges returns every edge in the store.
func (s *Store) AllEdges(ctx context.Context) ([]Edge, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT source, target, type FROM edges")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

func scanEdges(rows *sql.Rows) ([]Edge, error) {
	var edges []Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.Source, &e.Target, &e.Type); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// SearchText runs a BM25-ranked FTS5 query over (title, content, meta).
func (s *Store) SearchText(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, rank
		FROM nodes_fts WHERE nodes_fts MATCH ?
		ORDER BY rank LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var id, title, content string
		var rank float64
		if err := rows.Scan(&id, &title, &content, &rank); err != nil {
			return nil, err
		}
		hits = append(hits, SearchHit{
			ID:       id,
			Title:    title,
			Snippet:  truncate(content, 200),
			BM25Rank: -rank, // fts5 rank is negative; invert so higher is better
		})
	}
	return hits, rows.Err()
}

// FindSimilar brute-force scores every embeddable node (optionally
// restricted to one domain) against query by dot product, returning the
// top k. This is the core ingestion/retrieval path; the vec_dot UDF is not
// involved (§9 design note).
func (s *Store) FindSimilar(ctx context.Context, query []float32, k int, domain string) ([]SimilarHit, error) {
	sqlText := "SELECT id, embedding FROM nodes WHERE embedding IS NOT NULL"
	args := []any{}
	if domain != "" {
		sqlText += " AND domain = ?"
		args = append(args, domain)
	}

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []SimilarHit
	for rows.Next() {
		var id string
		var embedding []byte
		if err := rows.Scan(&id, &embedding); err != nil {
			return nil, err
		}
		score := DotProduct(query, DecodeVector(embedding))
		hits = append(hits, SimilarHit{ID: id, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortHitsDesc(hits)
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func sortHitsDesc(hits []SimilarHit) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Score > hits[j-1].Score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}

// GetStats returns node/edge/vector counts plus the database's page count
// and page size.
func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM nodes").Scan(&st.Nodes); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM edges").Scan(&st.Edges); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM nodes WHERE embedding IS NOT NULL").Scan(&st.Vectors); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&st.PageCount); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&st.PageSize); err != nil {
		return st, err
	}
	return st, nil
}

// CountDistinctIDs returns the number of distinct node ids, used by the
// Validator's duplicate-id check; since id is a PRIMARY KEY this always
// equals COUNT(*), but the Validator runs both and compares to fail loudly
// if that invariant is ever broken by a bypass of InsertNode.
func (s *Store) CountDistinctIDs(ctx context.Context) (total, distinct int, err error) {
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM nodes").Scan(&total); err != nil {
		return
	}
	err = s.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT id) FROM nodes").Scan(&distinct)
	return
}

// OrphanEdgeCount returns the number of edges whose source or target does
// not exist as a node (the Validator's orphan-edge check).
func (s *Store) OrphanEdgeCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM edges e
		WHERE NOT EXISTS (SELECT 1 FROM nodes WHERE id = e.source)
		   OR NOT EXISTS (SELECT 1 FROM nodes WHERE id = e.target)
	`).Scan(&count)
	return count, err
}

func marshalMeta(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalMeta(s string) (map[string]any, error) {
	if s == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return m, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
