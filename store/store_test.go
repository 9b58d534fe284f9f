//go:build cgo

package store

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "resonance.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndGetNode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := Node{
		ID:      "n1",
		Type:    "experience",
		Title:   "First Node",
		Content: "hello world",
		Domain:  "experience",
		Layer:   "raw",
		Hash:    "abc123",
		Meta:    map[string]any{"tags": []string{"a", "b"}},
	}
	if err := s.InsertNode(ctx, n); err != nil {
		t.Fatalf("InsertNode: %v", err)
	}

	got, err := s.GetNode(ctx, "n1")
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if got.Title != n.Title || got.Hash != n.Hash {
		t.Fatalf("round-tripped node mismatch: %+v", got)
	}
}

func TestInsertNodeUpsertsOnReplace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := Node{ID: "n1", Type: "experience", Title: "v1", Domain: "experience", Layer: "raw", Hash: "h1"}
	if err := s.InsertNode(ctx, n); err != nil {
		t.Fatalf("InsertNode: %v", err)
	}
	n.Title, n.Hash = "v2", "h2"
	if err := s.InsertNode(ctx, n); err != nil {
		t.Fatalf("InsertNode replace: %v", err)
	}

	got, err := s.GetNode(ctx, "n1")
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if got.Title != "v2" || got.Hash != "h2" {
		t.Fatalf("expected replace to overwrite fields, got %+v", got)
	}

	total, distinct, err := s.CountDistinctIDs(ctx)
	if err != nil {
		t.Fatalf("CountDistinctIDs: %v", err)
	}
	if total != 1 || distinct != 1 {
		t.Fatalf("expected single row after replace, got total=%d distinct=%d", total, distinct)
	}
}

func TestInsertEdgeIgnoresDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := s.InsertNode(ctx, Node{ID: id, Type: "experience", Domain: "experience", Layer: "raw"}); err != nil {
			t.Fatalf("InsertNode(%s): %v", id, err)
		}
	}

	e := Edge{Source: "a", Target: "b", Type: "RELATED_TO"}
	if err := s.InsertEdge(ctx, e); err != nil {
		t.Fatalf("InsertEdge: %v", err)
	}
	if err := s.InsertEdge(ctx, e); err != nil {
		t.Fatalf("InsertEdge duplicate: %v", err)
	}

	edges, err := s.EdgesFrom(ctx, "a")
	if err != nil {
		t.Fatalf("EdgesFrom: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("expected duplicate edge insert to be ignored, got %d edges", len(edges))
	}
}

func TestOrphanEdgeCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertNode(ctx, Node{ID: "a", Type: "experience", Domain: "experience", Layer: "raw"}); err != nil {
		t.Fatalf("InsertNode: %v", err)
	}
	if err := s.InsertEdge(ctx, Edge{Source: "a", Target: "missing", Type: "RELATED_TO"}); err != nil {
		t.Fatalf("InsertEdge: %v", err)
	}

	count, err := s.OrphanEdgeCount(ctx)
	if err != nil {
		t.Fatalf("OrphanEdgeCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 orphan edge, got %d", count)
	}
}

func TestSearchTextMatchesContent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertNode(ctx, Node{
		ID: "n1", Type: "experience", Title: "Falcon Report",
		Content: "the falcon dove toward the valley floor", Domain: "experience", Layer: "raw",
	}); err != nil {
		t.Fatalf("InsertNode: %v", err)
	}
	if err := s.InsertNode(ctx, Node{
		ID: "n2", Type: "experience", Title: "Unrelated",
		Content: "nothing to do with birds", Domain: "experience", Layer: "raw",
	}); err != nil {
		t.Fatalf("InsertNode: %v", err)
	}

	hits, err := s.SearchText(ctx, "falcon", 10)
	if err != nil {
		t.Fatalf("SearchText: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "n1" {
		t.Fatalf("expected single match on n1, got %+v", hits)
	}
}

func TestFindSimilarRanksByDotProduct(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	nodes := []struct {
		id  string
		vec []float32
	}{
		{"close", []float32{1, 0, 0}},
		{"far", []float32{0, 1, 0}},
	}
	for _, n := range nodes {
		if err := s.InsertNode(ctx, Node{
			ID: n.id, Type: "experience", Domain: "experience", Layer: "raw", Embedding: n.vec,
		}); err != nil {
			t.Fatalf("InsertNode(%s): %v", n.id, err)
		}
	}

	hits, err := s.FindSimilar(ctx, []float32{1, 0, 0}, 2, "")
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if len(hits) != 2 || hits[0].ID != "close" {
		t.Fatalf("expected close first, got %+v", hits)
	}
	if hits[0].Score <= hits[1].Score {
		t.Fatalf("expected descending score order, got %+v", hits)
	}
}

func TestGetStatsCountsEmbeddedNodes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertNode(ctx, Node{ID: "a", Type: "experience", Domain: "experience", Layer: "raw", Embedding: []float32{1, 0}}); err != nil {
		t.Fatalf("InsertNode: %v", err)
	}
	if err := s.InsertNode(ctx, Node{ID: "b", Type: "experience", Domain: "experience", Layer: "raw"}); err != nil {
		t.Fatalf("InsertNode: %v", err)
	}
	if err := s.InsertEdge(ctx, Edge{Source: "a", Target: "b", Type: "RELATED_TO"}); err != nil {
		t.Fatalf("InsertEdge: %v", err)
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.Nodes != 2 || stats.Edges != 1 || stats.Vectors != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.PageSize == 0 {
		t.Fatalf("expected nonzero page size")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "resonance.db")
	s1, err := New(dbPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s1.Close()

	s2, err := New(dbPath)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer s2.Close()

	if err := s2.Migrate(context.Background()); err != nil {
		t.Fatalf("re-running Migrate on already-current store: %v", err)
	}
}
