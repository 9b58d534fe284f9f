//go:build cgo

package resonance

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pjsvis/resonance/embed"
	"github.com/pjsvis/resonance/graph"
	"github.com/pjsvis/resonance/lexicon"
	"github.com/pjsvis/resonance/locus"
	"github.com/pjsvis/resonance/store"
)

// stubEmbedder returns a fixed-direction vector for every text, so tests
// can exercise the embed-then-normalize path without a network call.
type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0, 0}
	}
	return out, nil
}

func newTestIngestor(t *testing.T) *Ingestor {
	t.Helper()
	dir := t.TempDir()

	s, err := store.New(filepath.Join(dir, "resonance.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	l, err := locus.Open(filepath.Join(dir, "resonance.locus.db"))
	if err != nil {
		t.Fatalf("locus.Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })

	gate := graph.NewLouvainGate(s, 50)

	return &Ingestor{
		cfg:      DefaultConfig(),
		store:    s,
		ledger:   l,
		embedder: stubEmbedder{},
		gate:     gate,
		chat:     nil,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestIngestBoxUpsertsNodeAndSkipsUnchanged(t *testing.T) {
	ig := newTestIngestor(t)
	ig.tokenizer = lexicon.NewTokenizer(nil)
	ig.weaver = graph.NewEdgeWeaver(ig.store, ig.gate, map[string]bool{}, true)
	ctx := context.Background()

	var stats Stats
	box := contentBox{id: "note-1", content: "This is a long enough body of text to trigger embedding for sure."}

	if err := ig.ingestBox(ctx, box, "note", "src.md", nil, &stats); err != nil {
		t.Fatalf("ingestBox: %v", err)
	}
	if stats.NodesUpserted != 1 {
		t.Fatalf("NodesUpserted = %d, want 1", stats.NodesUpserted)
	}

	n, err := ig.store.GetNode(ctx, "note-1")
	if err != nil || n == nil {
		t.Fatalf("GetNode: %v, %v", n, err)
	}
	if n.Embedding == nil {
		t.Fatalf("expected embedding to be set")
	}

	if err := ig.ingestBox(ctx, box, "note", "src.md", nil, &stats); err != nil {
		t.Fatalf("ingestBox (second call): %v", err)
	}
	if stats.NodesSkipped != 1 {
		t.Fatalf("NodesSkipped = %d, want 1 after unchanged re-ingest", stats.NodesSkipped)
	}
}

func TestIngestBoxSkipsEmbeddingForShortContent(t *testing.T) {
	ig := newTestIngestor(t)
	ig.tokenizer = lexicon.NewTokenizer(nil)
	ig.weaver = graph.NewEdgeWeaver(ig.store, ig.gate, map[string]bool{}, true)
	ctx := context.Background()

	var stats Stats
	box := contentBox{id: "note-2", content: "too short"}

	if err := ig.ingestBox(ctx, box, "note", "src.md", nil, &stats); err != nil {
		t.Fatalf("ingestBox: %v", err)
	}

	n, err := ig.store.GetNode(ctx, "note-2")
	if err != nil || n == nil {
		t.Fatalf("GetNode: %v, %v", n, err)
	}
	if n.Embedding != nil {
		t.Fatalf("expected no embedding for short content")
	}
}

func TestIngestFileSplitsOnLocusMarkers(t *testing.T) {
	ig := newTestIngestor(t)
	ig.tokenizer = lexicon.NewTokenizer(nil)
	ig.weaver = graph.NewEdgeWeaver(ig.store, ig.gate, map[string]bool{}, true)
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "debrief.md")
	writeFile(t, path, "---\ndate: 2026-02-01\n---\n<!-- locus:box-a -->\nFirst box content here is long enough to embed properly.\n<!-- locus:box-b -->\nSecond box content here is also long enough to embed properly.\n")

	var stats Stats
	if err := ig.ingestFile(ctx, path, "debrief", &stats); err != nil {
		t.Fatalf("ingestFile: %v", err)
	}
	if stats.NodesUpserted != 2 {
		t.Fatalf("NodesUpserted = %d, want 2", stats.NodesUpserted)
	}

	nodeA, err := ig.store.GetNode(ctx, "box-a")
	if err != nil || nodeA == nil {
		t.Fatalf("GetNode(box-a): %v, %v", nodeA, err)
	}
	if nodeA.Meta["date"] != "2026-02-01" {
		t.Fatalf("box-a meta date = %v, want 2026-02-01", nodeA.Meta["date"])
	}
}

func TestRunWeavesPersonaExperienceAndTimeline(t *testing.T) {
	ig := newTestIngestor(t)
	ctx := context.Background()

	baseDir := t.TempDir()
	lexiconPath := filepath.Join(baseDir, "lexicon.json")
	cdaPath := filepath.Join(baseDir, "cda.json")
	experienceDir := filepath.Join(baseDir, "experience")

	writeFile(t, lexiconPath, `[{"id":"flow-state","title":"Flow State","category":"Concept","type":"concept"}]`)
	writeFile(t, cdaPath, `[{"id":"directive-1","title":"Ship It","type":"operational-heuristic","relationships":[]}]`)

	writeFile(t, filepath.Join(experienceDir, "2026-01-10-first.md"),
		"---\ndate: 2026-01-10\n---\nEntry about achieving a flow-state during deep work sessions today.")
	writeFile(t, filepath.Join(experienceDir, "2026-01-12-second.md"),
		"---\ndate: 2026-01-12\n---\nAnother entry about flow-state practice continuing steadily.")

	ig.cfg.Paths.Sources.Persona.Lexicon = lexiconPath
	ig.cfg.Paths.Sources.Persona.CDA = cdaPath
	ig.cfg.Paths.Sources.Experience = []ExperienceSource{{Path: experienceDir, Type: "debrief"}}

	stats, err := ig.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.FilesProcessed != 2 {
		t.Fatalf("FilesProcessed = %d, want 2", stats.FilesProcessed)
	}
	if stats.TimelineEdges != 1 {
		t.Fatalf("TimelineEdges = %d, want 1", stats.TimelineEdges)
	}

	concept, err := ig.store.GetNode(ctx, "flow-state")
	if err != nil || concept == nil {
		t.Fatalf("GetNode(flow-state): %v, %v", concept, err)
	}
}

var _ embed.Embedder = stubEmbedder{}
