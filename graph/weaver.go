package graph

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/pjsvis/resonance/store"
)

var (
	tagsBlockPattern  = regexp.MustCompile(`(?is)<!--\s*tags:\s*(.*?)-->`)
	tagPairPattern    = regexp.MustCompile(`\[([^:\]]+):\s*([^\]]+)\]`)
	inlineTagPattern  = regexp.MustCompile(`(?i)\[Tag:\s*([^\]]+)\]`)
	legacyStubPattern = regexp.MustCompile(`\btag-([a-zA-Z0-9-]+)`)
	wikiLinkPattern   = regexp.MustCompile(`\[\[([^\]|]+)(?:\|[^\]]+)?\]\]`)
	nonAlphaNumRun    = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify implements the spec's slug rule: lowercase, runs of
// non-alphanumeric characters collapse to a single hyphen, and leading or
// trailing hyphens are stripped.
func Slugify(s string) string {
	lower := strings.ToLower(s)
	slug := nonAlphaNumRun.ReplaceAllString(lower, "-")
	return strings.Trim(slug, "-")
}

// EdgeWeaver scans a node's raw content for explicit relationship signals
// (strict mode, no fuzzy inference) and emits edges gated by LouvainGate.
type EdgeWeaver struct {
	store       *store.Store
	gate        *LouvainGate
	lexiconIDs  map[string]bool
	legacyStubs bool
}

// NewEdgeWeaver constructs a weaver against the given lexicon id set (the
// persona-domain concept node ids seeded in Phase 1).
func NewEdgeWeaver(s *store.Store, gate *LouvainGate, lexiconIDs map[string]bool, enableLegacyStubs bool) *EdgeWeaver {
	return &EdgeWeaver{store: s, gate: gate, lexiconIDs: lexiconIDs, legacyStubs: enableLegacyStubs}
}

// Weave extracts edges from content sourced at sourceID, inserting every
// admitted edge and returning a count plus the rejected candidates for
// informational logging (a LouvainGate rejection is not an error, §7).
func (w *EdgeWeaver) Weave(ctx context.Context, sourceID, content string) (inserted int, rejected []GateResult, err error) {
	var candidates []store.Edge

	metadataBlock, bodyWithoutMetadata := extractMetadataBlock(content)
	candidates = append(candidates, w.metadataEdges(sourceID, metadataBlock)...)
	candidates = append(candidates, w.inlineTagEdges(sourceID, bodyWithoutMetadata)...)
	candidates = append(candidates, w.wikiLinkEdges(sourceID, bodyWithoutMetadata)...)
	if w.legacyStubs {
		candidates = append(candidates, w.legacyStubEdges(sourceID, bodyWithoutMetadata)...)
	}

	for _, e := range candidates {
		result, gateErr := w.gate.Check(ctx, e.Source, e.Target)
		if gateErr != nil {
			return inserted, rejected, fmt.Errorf("graph: gating edge %s->%s: %w", e.Source, e.Target, gateErr)
		}
		if !result.Allowed {
			slog.Info("graph: edge rejected by louvain gate", "source", e.Source, "target", e.Target, "type", e.Type, "reason", result.Reason)
			rejected = append(rejected, result)
			continue
		}
		if err := w.store.InsertEdge(ctx, e); err != nil {
			return inserted, rejected, fmt.Errorf("graph: inserting edge %s->%s: %w", e.Source, e.Target, err)
		}
		inserted++
	}

	return inserted, rejected, nil
}

func extractMetadataBlock(content string) (block, rest string) {
	loc := tagsBlockPattern.FindStringSubmatchIndex(content)
	if loc == nil {
		return "", content
	}
	block = content[loc[2]:loc[3]]
	rest = content[:loc[0]] + content[loc[1]:]
	return block, rest
}

func (w *EdgeWeaver) metadataEdges(sourceID, block string) []store.Edge {
	if block == "" {
		return nil
	}
	var edges []store.Edge
	for _, m := range tagPairPattern.FindAllStringSubmatch(block, -1) {
		key := strings.TrimSpace(m[1])
		value := strings.TrimSpace(m[2])
		if key == "" || value == "" {
			continue
		}
		lowerKey := strings.ToLower(key)
		if lowerKey == "quality" || strings.HasPrefix(key, "#") {
			continue
		}
		edges = append(edges, store.Edge{
			Source: sourceID,
			Target: value,
			Type:   strings.ToUpper(strings.ReplaceAll(key, " ", "_")),
		})
	}
	return edges
}

func (w *EdgeWeaver) inlineTagEdges(sourceID, body string) []store.Edge {
	var edges []store.Edge
	for _, m := range inlineTagPattern.FindAllStringSubmatch(body, -1) {
		slug := Slugify(m[1])
		if w.lexiconIDs[slug] {
			edges = append(edges, store.Edge{Source: sourceID, Target: slug, Type: "TAGGED_AS"})
		}
	}
	return edges
}

func (w *EdgeWeaver) legacyStubEdges(sourceID, body string) []store.Edge {
	var edges []store.Edge
	for _, m := range legacyStubPattern.FindAllStringSubmatch(body, -1) {
		slug := Slugify(m[1])
		if w.lexiconIDs[slug] {
			edges = append(edges, store.Edge{Source: sourceID, Target: slug, Type: "EXEMPLIFIES"})
		}
	}
	return edges
}

func (w *EdgeWeaver) wikiLinkEdges(sourceID, body string) []store.Edge {
	var edges []store.Edge
	for _, m := range wikiLinkPattern.FindAllStringSubmatch(body, -1) {
		slug := Slugify(m[1])
		if w.lexiconIDs[slug] {
			edges = append(edges, store.Edge{Source: sourceID, Target: slug, Type: "CITES"})
		}
		// Unresolved wiki-links are silently ignored: no ghost edges.
	}
	return edges
}
