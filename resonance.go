// Package resonance ingests a Markdown corpus into a persistent knowledge
// graph with a vector index, and serves hybrid retrieval over it.
package resonance

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pjsvis/resonance/embed"
	"github.com/pjsvis/resonance/graph"
	"github.com/pjsvis/resonance/lexicon"
	"github.com/pjsvis/resonance/locus"
	"github.com/pjsvis/resonance/retrieval"
	"github.com/pjsvis/resonance/store"
)

// Ingestor is C11: it owns every singleton (store, embedder, tokenizer,
// locus ledger) and drives the two-phase ingestion pipeline plus
// finalization. It is the policy owner for skip-vs-abort decisions (§7).
type Ingestor struct {
	cfg       Config
	store     *store.Store
	ledger    *locus.Ledger
	embedder  embed.Embedder
	tokenizer *lexicon.Tokenizer
	gate      *graph.LouvainGate
	weaver    *graph.EdgeWeaver
	chat      embed.Provider
}

// Stats summarizes one ingestion run, for the caller to report and for
// the Validator to compare against a captured baseline.
type Stats struct {
	NodesUpserted  int
	NodesSkipped   int
	EdgesInserted  int
	EdgesRejected  int
	TimelineEdges  int
	SemanticEdges  int
	FilesProcessed int
}

// New constructs an Ingestor: opens the graph store and the locus ledger
// side-file, constructs the provider (and optional daemon front) backing
// the Embedder, and wires LouvainGate. The EdgeWeaver and Tokenizer are
// built lazily once Phase 1 has seeded the lexicon.
func New(cfg Config) (*Ingestor, error) {
	s, err := store.New(cfg.ResolveDBPath())
	if err != nil {
		return nil, fmt.Errorf("resonance: opening store: %w", err)
	}

	ledgerPath := LocusLedgerPath(cfg.ResolveDBPath())
	l, err := locus.Open(ledgerPath)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("resonance: opening locus ledger: %w", err)
	}

	providerCfg := cfg.ActiveProvider()
	provider, err := embed.NewProvider(embed.Config{
		Provider: cfg.LLM.ActiveProvider,
		Model:    providerCfg.Model,
		BaseURL:  providerCfg.BaseURL,
		APIKey:   providerCfg.APIKey,
	})
	if err != nil {
		s.Close()
		l.Close()
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}

	gate := graph.NewLouvainGate(s, cfg.Louvain.SuperNodeThreshold)

	return &Ingestor{
		cfg:      cfg,
		store:    s,
		ledger:   l,
		embedder: embed.NewDaemonClient(cfg.EmbeddingDaemonURL, provider),
		gate:     gate,
		chat:     provider,
	}, nil
}

// LocusLedgerPath derives the locus ledger side-file path from the graph
// store's database path (same directory, `.locus.db` suffix), so the CLI's
// `box` command can open a ledger without constructing a full Ingestor.
func LocusLedgerPath(dbPath string) string {
	dir := filepath.Dir(dbPath)
	base := strings.TrimSuffix(filepath.Base(dbPath), filepath.Ext(dbPath))
	return filepath.Join(dir, base+".locus.db")
}

// Store exposes the underlying GraphStore for diagnostic access (the
// Validator and HybridSearch are constructed directly against it).
func (ig *Ingestor) Store() *store.Store { return ig.store }

// Search returns a HybridSearch (C12) wired against this Ingestor's store
// and embedder, using the configured fusion tunables.
func (ig *Ingestor) Search() *retrieval.HybridSearch {
	return retrieval.New(ig.store, ig.embedder, retrieval.Config{
		KeywordBoost:     ig.cfg.Hybrid.KeywordBoost,
		KeywordBaseScore: ig.cfg.Hybrid.KeywordBaseScore,
	})
}

// Close shuts down the store and locus ledger.
func (ig *Ingestor) Close() error {
	err1 := ig.store.Close()
	err2 := ig.ledger.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Run executes the full pipeline: Phase 1 (persona), Phase 2 (experience),
// then TimelineWeaver and SemanticWeaver. It does not run the Validator;
// the CLI's ingest command captures a baseline before Run and validates after.
func (ig *Ingestor) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	if err := ig.ingestPersona(ctx, &stats); err != nil {
		return stats, err
	}

	lexiconIDs, err := ig.lexiconIDSet(ctx)
	if err != nil {
		return stats, err
	}
	ig.weaver = graph.NewEdgeWeaver(ig.store, ig.gate, lexiconIDs, ig.cfg.Weaver.EnableLegacyStubs)

	for _, src := range ig.cfg.Paths.Sources.Experience {
		if err := ig.ingestExperienceDir(ctx, src, &stats); err != nil {
			return stats, err
		}
	}

	timelineEdges, err := graph.NewTimelineWeaver(ig.store).Weave(ctx)
	if err != nil {
		return stats, fmt.Errorf("resonance: timeline weaving: %w", err)
	}
	stats.TimelineEdges = timelineEdges

	semanticEdges, err := graph.NewSemanticWeaver(ig.store, ig.cfg.Semantic.MinScore).Weave(ctx, ig.gate)
	if err != nil {
		return stats, fmt.Errorf("resonance: semantic weaving: %w", err)
	}
	stats.SemanticEdges = semanticEdges

	return stats, nil
}

func (ig *Ingestor) lexiconIDSet(ctx context.Context) (map[string]bool, error) {
	nodes, err := ig.store.GetLexicon(ctx)
	if err != nil {
		return nil, fmt.Errorf("resonance: loading lexicon for edge weaving: %w", err)
	}
	ids := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = true
	}
	return ids, nil
}

// ingestExperienceDir walks one configured source directory and processes
// every .md file within it (§5: files within a directory have unspecified
// order; cancellation is coarse-grained at file granularity).
func (ig *Ingestor) ingestExperienceDir(ctx context.Context, src ExperienceSource, stats *Stats) error {
	return filepath.WalkDir(src.Path, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			slog.Warn("resonance: walking source directory", "path", path, "error", err)
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err := ig.ingestFile(ctx, path, src.Type, stats); err != nil {
			slog.Error("resonance: ingesting file failed, continuing", "path", path, "error", err)
		}
		return nil
	})
}

func (ig *Ingestor) ingestFile(ctx context.Context, path, nodeType string, stats *Stats) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSourceUnreadable, path, err)
	}
	stats.FilesProcessed++

	frontmatter, body := parseFrontmatter(string(raw))
	boxes := splitByLocusMarkers(body, path)

	for _, box := range boxes {
		if err := ig.ingestBox(ctx, box, nodeType, path, frontmatter, stats); err != nil {
			slog.Error("resonance: ingesting box failed, continuing", "box_id", box.id, "path", path, "error", err)
		}
	}
	return nil
}

type contentBox struct {
	id      string
	content string
}

func (ig *Ingestor) ingestBox(ctx context.Context, box contentBox, nodeType, sourcePath string, frontmatter map[string]string, stats *Stats) error {
	currentHash := locus.Hash(box.content)

	existingHash, err := ig.store.GetNodeHash(ctx, box.id)
	if err != nil {
		return fmt.Errorf("resonance: checking existing hash for %s: %w", box.id, err)
	}
	if existingHash != "" && existingHash == currentHash {
		stats.NodesSkipped++
		return nil
	}

	trimmed := strings.TrimSpace(box.content)
	var vector []float32
	if len(trimmed) > ig.cfg.MinEmbeddableLen {
		vectors, err := ig.embedder.Embed(ctx, []string{trimmed})
		if err != nil {
			slog.Warn("resonance: embedding unavailable, upserting without vector", "box_id", box.id, "error", err)
		} else if len(vectors) > 0 {
			vector = vectors[0]
		}
	}

	tokens := ig.tokenizer.Extract(trimmed)

	meta := map[string]any{
		"source":          sourcePath,
		"semantic_tokens": tokens,
	}
	for k, v := range frontmatter {
		meta[k] = v
	}

	if err := ig.store.InsertNode(ctx, store.Node{
		ID:        box.id,
		Type:      nodeType,
		Content:   trimmed,
		Domain:    "experience",
		Layer:     "note",
		Embedding: vector,
		Hash:      currentHash,
		Meta:      meta,
	}); err != nil {
		return fmt.Errorf("resonance: upserting node %s: %w", box.id, err)
	}
	stats.NodesUpserted++

	inserted, rejected, err := ig.weaver.Weave(ctx, box.id, box.content)
	if err != nil {
		return fmt.Errorf("resonance: weaving edges for %s: %w", box.id, err)
	}
	stats.EdgesInserted += inserted
	stats.EdgesRejected += len(rejected)

	return nil
}
