package graph

import (
	"context"
	"fmt"

	"github.com/pjsvis/resonance/store"
)

// SemanticWeaver rescues orphaned nodes (an embedding but no incident
// edges) by attaching them to their closest experience-domain neighbor,
// if one scores above the similarity threshold. It runs after
// TimelineWeaver so freshly-woven SUCCEEDS edges already count toward
// "has neighbor" (§5 ordering guarantee).
type SemanticWeaver struct {
	store    *store.Store
	minScore float64
}

// NewSemanticWeaver constructs a weaver with the configured similarity floor.
func NewSemanticWeaver(s *store.Store, minScore float64) *SemanticWeaver {
	if minScore <= 0 {
		minScore = 0.85
	}
	return &SemanticWeaver{store: s, minScore: minScore}
}

const semanticK = 3

// Weave scans every embedded node, skips root/domain types and anything
// already connected, and adds a single best RELATED_TO edge for orphans
// that clear the similarity floor. These edges pass through LouvainGate
// like any other non-Timeline edge.
func (w *SemanticWeaver) Weave(ctx context.Context, gate *LouvainGate) (int, error) {
	nodes, err := w.store.AllEmbeddedNodes(ctx)
	if err != nil {
		return 0, fmt.Errorf("graph: loading embedded nodes: %w", err)
	}

	inserted := 0
	for _, n := range nodes {
		if n.Type == "root" || n.Type == "domain" {
			continue
		}

		incident, err := w.store.IncidentEdges(ctx, n.ID)
		if err != nil {
			return inserted, fmt.Errorf("graph: checking incident edges for %s: %w", n.ID, err)
		}
		if len(incident) > 0 {
			continue
		}

		hits, err := w.store.FindSimilar(ctx, n.Embedding, semanticK, "experience")
		if err != nil {
			return inserted, fmt.Errorf("graph: finding similar nodes for %s: %w", n.ID, err)
		}

		best, ok := bestOrphanMatch(n.ID, hits, w.minScore)
		if !ok {
			continue
		}

		result, err := gate.Check(ctx, n.ID, best)
		if err != nil {
			return inserted, fmt.Errorf("graph: gating semantic edge %s->%s: %w", n.ID, best, err)
		}
		if !result.Allowed {
			continue
		}

		if err := w.store.InsertEdge(ctx, store.Edge{Source: n.ID, Target: best, Type: "RELATED_TO"}); err != nil {
			return inserted, fmt.Errorf("graph: inserting semantic edge %s->%s: %w", n.ID, best, err)
		}
		inserted++
	}

	return inserted, nil
}

func bestOrphanMatch(selfID string, hits []store.SimilarHit, minScore float64) (string, bool) {
	for _, h := range hits {
		if h.ID == selfID {
			continue
		}
		if h.Score > minScore {
			return h.ID, true
		}
	}
	return "", false
}
