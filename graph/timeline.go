package graph

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/pjsvis/resonance/store"
)

var sourceDatePrefix = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)

// TimelineWeaver chains debrief nodes chronologically. It bypasses
// LouvainGate by design: chronological chains are intentional structure,
// not an inference that could attach an arbitrary node to a hub.
type TimelineWeaver struct {
	store *store.Store
}

// NewTimelineWeaver constructs a weaver over s.
func NewTimelineWeaver(s *store.Store) *TimelineWeaver {
	return &TimelineWeaver{store: s}
}

type datedNode struct {
	id   string
	date string
}

// Weave links every pair of adjacent debrief nodes, newest first, with a
// SUCCEEDS edge. Undated debriefs (no meta.date and no YYYY-MM-DD source
// filename prefix) are dropped from the chain entirely.
func (w *TimelineWeaver) Weave(ctx context.Context) (int, error) {
	nodes, err := w.store.GetNodesByType(ctx, "debrief")
	if err != nil {
		return 0, fmt.Errorf("graph: loading debrief nodes: %w", err)
	}

	var dated []datedNode
	for _, n := range nodes {
		date := nodeDate(n)
		if date == "" {
			continue
		}
		dated = append(dated, datedNode{id: n.ID, date: date})
	}

	sort.Slice(dated, func(i, j int) bool { return dated[i].date > dated[j].date })

	inserted := 0
	for i := 0; i+1 < len(dated); i++ {
		newer, older := dated[i], dated[i+1]
		if err := w.store.InsertEdge(ctx, store.Edge{Source: newer.id, Target: older.id, Type: "SUCCEEDS"}); err != nil {
			return inserted, fmt.Errorf("graph: inserting timeline edge %s->%s: %w", newer.id, older.id, err)
		}
		inserted++
	}
	return inserted, nil
}

func nodeDate(n store.Node) string {
	if d, ok := n.Meta["date"].(string); ok && d != "" {
		return d
	}
	if src, ok := n.Meta["source"].(string); ok {
		if m := sourceDatePrefix.FindString(src); m != "" {
			return m
		}
	}
	return ""
}
