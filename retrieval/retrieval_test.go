//go:build cgo

package retrieval

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pjsvis/resonance/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "resonance.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// stubEmbedder always returns a fixed vector, so vectorPath is deterministic.
type stubEmbedder struct {
	vector []float32
	err    error
}

func (s stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vector
	}
	return out, nil
}

func TestSearchBoostsKeywordAndVectorOverlap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustInsert(t, s, ctx, "n1", "Shared Node", "flow state deep work session", []float32{1, 0, 0})
	mustInsert(t, s, ctx, "n2", "Vector Only", "unrelated text entirely", []float32{1, 0, 0})

	h := New(s, stubEmbedder{vector: []float32{1, 0, 0}}, DefaultConfig())

	resp, err := h.Search(ctx, "flow state", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.IsError {
		t.Fatalf("unexpected IsError, errors=%v", resp.Errors)
	}

	var n1 *Result
	for i := range resp.Results {
		if resp.Results[i].ID == "n1" {
			n1 = &resp.Results[i]
		}
	}
	if n1 == nil {
		t.Fatal("n1 not present in results")
	}
	if n1.Source != SourceHybrid {
		t.Fatalf("n1.Source = %q, want hybrid", n1.Source)
	}
	if n1.Score <= 1.0 {
		t.Fatalf("n1.Score = %v, want > 1.0 (1.0 dot product + 0.2 boost)", n1.Score)
	}
}

func TestSearchTruncatesPreviewTo200Chars(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	long := ""
	for i := 0; i < 300; i++ {
		long += "a"
	}
	mustInsert(t, s, ctx, "n1", "Long", long, []float32{1, 0, 0})

	h := New(s, stubEmbedder{vector: []float32{1, 0, 0}}, DefaultConfig())
	resp, err := h.Search(ctx, "aaaa", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) == 0 {
		t.Fatal("expected at least one result")
	}
	if len([]rune(resp.Results[0].Preview)) != 200 {
		t.Fatalf("preview length = %d, want 200", len([]rune(resp.Results[0].Preview)))
	}
}

func TestSearchFlagsIsErrorWhenAPathFailsAndZeroResults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	h := New(s, stubEmbedder{err: errTest{}}, DefaultConfig())
	resp, err := h.Search(ctx, "anything", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !resp.IsError {
		t.Fatalf("expected IsError when vector path fails and no results, errors=%v", resp.Errors)
	}
}

type errTest struct{}

func (errTest) Error() string { return "stub embed failure" }

func mustInsert(t *testing.T, s *store.Store, ctx context.Context, id, title, content string, vec []float32) {
	t.Helper()
	if err := s.InsertNode(ctx, store.Node{
		ID: id, Type: "note", Title: title, Content: content,
		Domain: "experience", Layer: "note", Embedding: vec, Hash: id,
	}); err != nil {
		t.Fatalf("InsertNode(%s): %v", id, err)
	}
}
