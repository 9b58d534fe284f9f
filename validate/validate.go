// Package validate implements the Validator (C13): baseline capture and
// post-ingestion delta/consistency checks over the graph store.
package validate

import (
	"context"
	"fmt"
	"time"

	"github.com/pjsvis/resonance/store"
)

// VectorCoverage selects how strictly the Validator checks embedding
// coverage after ingestion.
type VectorCoverage string

const (
	CoverageAll        VectorCoverage = "all"
	CoverageExperience VectorCoverage = "experience"
	CoverageNone       VectorCoverage = "none"
)

// Expectations configures what `Validate` requires of the post-ingestion
// state, grounded in the baseline it is compared against.
type Expectations struct {
	MinNodesAdded          int
	RequiredVectorCoverage VectorCoverage
}

// Baseline is a point-in-time snapshot captured before an ingestion run.
type Baseline struct {
	Nodes   int       `json:"nodes"`
	Edges   int       `json:"edges"`
	Vectors int       `json:"vectors"`
	Ts      time.Time `json:"ts"`
}

// Report is the Validator's verdict.
type Report struct {
	Passed   bool              `json:"passed"`
	Baseline Baseline          `json:"baseline"`
	Current  Baseline          `json:"current"`
	Results  map[string]string `json:"results"`
	Errors   []string          `json:"errors"`
	Warnings []string          `json:"warnings"`
	Summary  string            `json:"summary"`
}

// Validator runs baseline capture and post-ingestion validation against s.
type Validator struct {
	store *store.Store
}

// New constructs a Validator over s.
func New(s *store.Store) *Validator {
	return &Validator{store: s}
}

// CaptureBaseline snapshots current node/edge/vector counts.
func (v *Validator) CaptureBaseline(ctx context.Context) (Baseline, error) {
	stats, err := v.store.GetStats(ctx)
	if err != nil {
		return Baseline{}, fmt.Errorf("validate: capturing baseline: %w", err)
	}
	return Baseline{Nodes: stats.Nodes, Edges: stats.Edges, Vectors: stats.Vectors, Ts: time.Now()}, nil
}

// Validate compares the store's current state against baseline under exp,
// running the four checks named in §4.13: delta_nodes, vector coverage,
// orphan edges, and duplicate ids.
func (v *Validator) Validate(ctx context.Context, baseline Baseline, exp Expectations) (Report, error) {
	report := Report{
		Baseline: baseline,
		Results:  make(map[string]string),
		Passed:   true,
	}

	stats, err := v.store.GetStats(ctx)
	if err != nil {
		return report, fmt.Errorf("validate: reading current stats: %w", err)
	}
	report.Current = Baseline{Nodes: stats.Nodes, Edges: stats.Edges, Vectors: stats.Vectors, Ts: time.Now()}

	deltaNodes := stats.Nodes - baseline.Nodes
	if deltaNodes >= exp.MinNodesAdded {
		report.Results["delta_nodes"] = "ok"
	} else {
		report.Passed = false
		msg := fmt.Sprintf("delta_nodes = %d, want >= %d", deltaNodes, exp.MinNodesAdded)
		report.Results["delta_nodes"] = msg
		report.Errors = append(report.Errors, msg)
	}

	v.checkVectorCoverage(ctx, &report, stats, exp.RequiredVectorCoverage)

	orphans, err := v.store.OrphanEdgeCount(ctx)
	if err != nil {
		return report, fmt.Errorf("validate: counting orphan edges: %w", err)
	}
	if orphans == 0 {
		report.Results["orphan_edges"] = "ok"
	} else {
		report.Passed = false
		msg := fmt.Sprintf("found %d orphan edges", orphans)
		report.Results["orphan_edges"] = msg
		report.Errors = append(report.Errors, msg)
	}

	total, distinct, err := v.store.CountDistinctIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("validate: counting node ids: %w", err)
	}
	if total == distinct {
		report.Results["duplicate_ids"] = "ok"
	} else {
		report.Passed = false
		msg := fmt.Sprintf("found %d duplicate ids", total-distinct)
		report.Results["duplicate_ids"] = msg
		report.Errors = append(report.Errors, msg)
	}

	if report.Passed {
		report.Summary = "validation passed"
	} else {
		report.Summary = fmt.Sprintf("validation failed: %d error(s)", len(report.Errors))
	}
	return report, nil
}

// checkVectorCoverage implements the spec's three-way policy. "experience"
// is deliberately a warning rather than an error: partial coverage of the
// experience domain is expected whenever short/structural boxes are
// skipped by the MinEmbeddableLen gate (§9 Open Question).
func (v *Validator) checkVectorCoverage(ctx context.Context, report *Report, stats store.Stats, required VectorCoverage) {
	switch required {
	case CoverageAll:
		if stats.Vectors == stats.Nodes {
			report.Results["vector_coverage"] = "ok"
			return
		}
		report.Passed = false
		msg := fmt.Sprintf("vector_coverage: %d vectors for %d nodes, want all", stats.Vectors, stats.Nodes)
		report.Results["vector_coverage"] = msg
		report.Errors = append(report.Errors, msg)
	case CoverageExperience:
		experienceNodes, err := v.store.GetNodesByDomain(ctx, "experience")
		if err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("vector_coverage: could not check experience nodes: %v", err))
			return
		}
		if stats.Vectors >= len(experienceNodes) {
			report.Results["vector_coverage"] = "ok"
			return
		}
		msg := fmt.Sprintf("vector_coverage: %d vectors for %d experience nodes", stats.Vectors, len(experienceNodes))
		report.Results["vector_coverage"] = msg
		report.Warnings = append(report.Warnings, msg)
	case CoverageNone:
		report.Results["vector_coverage"] = "skipped"
	}
}
