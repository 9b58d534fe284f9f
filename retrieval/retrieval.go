// Package retrieval implements HybridSearch (C12): a fused vector +
// keyword search over the graph store.
package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/pjsvis/resonance/embed"
	"github.com/pjsvis/resonance/store"
)

const previewLen = 200

// Config holds HybridSearch's score-fusion tunables (§9 Open Question:
// the +0.2 boost and 0.5 keyword-only base are not empirically justified
// in the source material, so both are exposed rather than hardcoded).
type Config struct {
	KeywordBoost     float64
	KeywordBaseScore float64
}

// DefaultConfig returns the spec's literal tunables.
func DefaultConfig() Config {
	return Config{KeywordBoost: 0.2, KeywordBaseScore: 0.5}
}

// Source identifies which subsystem(s) contributed a result.
type Source string

const (
	SourceVector  Source = "vector"
	SourceKeyword Source = "keyword"
	SourceHybrid  Source = "hybrid"
)

// Result is one ranked hit.
type Result struct {
	ID      string
	Score   float64
	Source  Source
	Preview string
}

// Response is HybridSearch's return value, including the partial-failure
// flag (§4.12): either subsystem erroring does not abort the call, but if
// both yield zero results and at least one errored, IsError is set.
type Response struct {
	Results []Result
	IsError bool
	Errors  []string
}

// HybridSearch fuses vector similarity and FTS5 keyword search, both over
// the C4 GraphStore.
type HybridSearch struct {
	store    *store.Store
	embedder embed.Embedder
	cfg      Config
}

// New constructs a HybridSearch over s, embedding queries through embedder.
func New(s *store.Store, embedder embed.Embedder, cfg Config) *HybridSearch {
	if cfg.KeywordBoost == 0 && cfg.KeywordBaseScore == 0 {
		cfg = DefaultConfig()
	}
	return &HybridSearch{store: s, embedder: embedder, cfg: cfg}
}

// Search runs the vector and keyword paths, fuses their candidate sets,
// and returns the top `limit` results by descending fused score.
func (h *HybridSearch) Search(ctx context.Context, query string, limit int) (Response, error) {
	var resp Response

	candidates := make(map[string]*Result)

	vecHits, err := h.vectorPath(ctx, query, limit)
	if err != nil {
		slog.Warn("retrieval: vector path failed", "error", err)
		resp.Errors = append(resp.Errors, "vector: "+err.Error())
	}
	for _, hit := range vecHits {
		candidates[hit.ID] = &Result{ID: hit.ID, Score: hit.Score, Source: SourceVector}
	}

	kwHits, err := h.keywordPath(ctx, query, limit)
	if err != nil {
		slog.Warn("retrieval: keyword path failed", "error", err)
		resp.Errors = append(resp.Errors, "keyword: "+err.Error())
	}
	for _, hit := range kwHits {
		if existing, ok := candidates[hit.ID]; ok {
			existing.Score += h.cfg.KeywordBoost
			existing.Source = SourceHybrid
			continue
		}
		candidates[hit.ID] = &Result{ID: hit.ID, Score: h.cfg.KeywordBaseScore, Source: SourceKeyword}
	}

	results := make([]Result, 0, len(candidates))
	for _, r := range candidates {
		results = append(results, *r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}

	for i := range results {
		preview, err := h.preview(ctx, results[i].ID)
		if err != nil {
			slog.Warn("retrieval: loading preview", "id", results[i].ID, "error", err)
			continue
		}
		results[i].Preview = preview
	}

	resp.Results = results
	resp.IsError = len(results) == 0 && len(resp.Errors) > 0
	return resp, nil
}

func (h *HybridSearch) vectorPath(ctx context.Context, query string, limit int) ([]store.SimilarHit, error) {
	vectors, err := h.embedder.Embed(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		return nil, err
	}
	return h.store.FindSimilar(ctx, vectors[0], limit, "")
}

func (h *HybridSearch) keywordPath(ctx context.Context, query string, limit int) ([]store.SearchHit, error) {
	return h.store.SearchText(ctx, sanitizeFTSQuery(query), limit)
}

func (h *HybridSearch) preview(ctx context.Context, id string) (string, error) {
	n, err := h.store.GetNode(ctx, id)
	if err != nil {
		return "", err
	}
	if n == nil {
		return "", nil
	}
	return truncatePreview(n.Content), nil
}

func truncatePreview(s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= previewLen {
		return string(r)
	}
	return string(r[:previewLen])
}
