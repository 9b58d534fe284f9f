// Package graph implements LouvainGate (C8), EdgeWeaver (C9), and
// TimelineWeaver/SemanticWeaver (C10): the edge-admission and edge-inference
// stages that sit between a parsed box and the store.
package graph

import (
	"context"
	"fmt"

	"github.com/pjsvis/resonance/store"
)

// GateResult records an admission decision with its reason, so rejections
// can be logged informationally rather than treated as errors (§7).
type GateResult struct {
	Allowed bool
	Reason  string
}

// LouvainGate suppresses edges that would attach an arbitrary node to a
// hub and degrade community structure, grounded on the adjacency-list /
// BFS approach the teacher's community.go uses for modularity detection,
// generalized here to a single local admission check instead of a global
// partition.
type LouvainGate struct {
	store     *store.Store
	threshold int
}

// NewLouvainGate constructs a gate with the configured super-node threshold.
func NewLouvainGate(s *store.Store, threshold int) *LouvainGate {
	if threshold <= 0 {
		threshold = 50
	}
	return &LouvainGate{store: s, threshold: threshold}
}

// Check implements the spec's admission rule: an edge is rejected only
// when target is a super-node (more incident edges than threshold) AND
// source and target share no common neighbor.
func (g *LouvainGate) Check(ctx context.Context, source, target string) (GateResult, error) {
	targetEdges, err := g.store.IncidentEdges(ctx, target)
	if err != nil {
		return GateResult{}, fmt.Errorf("graph: checking target degree: %w", err)
	}
	if len(targetEdges) <= g.threshold {
		return GateResult{Allowed: true}, nil
	}

	sourceNeighbors, err := neighborSet(ctx, g.store, source)
	if err != nil {
		return GateResult{}, fmt.Errorf("graph: loading source neighbors: %w", err)
	}
	targetNeighbors := neighborSetFromEdges(target, targetEdges)

	for n := range sourceNeighbors {
		if targetNeighbors[n] {
			return GateResult{Allowed: true}, nil
		}
	}

	return GateResult{
		Allowed: false,
		Reason:  fmt.Sprintf("target %q is a super-node (%d incident edges) with no shared neighbor with %q", target, len(targetEdges), source),
	}, nil
}

func neighborSet(ctx context.Context, s *store.Store, id string) (map[string]bool, error) {
	edges, err := s.IncidentEdges(ctx, id)
	if err != nil {
		return nil, err
	}
	return neighborSetFromEdges(id, edges), nil
}

func neighborSetFromEdges(id string, edges []store.Edge) map[string]bool {
	neighbors := make(map[string]bool, len(edges))
	for _, e := range edges {
		switch id {
		case e.Source:
			neighbors[e.Target] = true
		case e.Target:
			neighbors[e.Source] = true
		}
	}
	return neighbors
}
