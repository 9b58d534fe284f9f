package validate

import (
	"encoding/json"
	"fmt"
	"os"
)

// IngestionStats compares a run's observed metrics against a named
// baseline file with a per-metric tolerance, rather than an exact delta
// check (§4.13). variance = |delta| / expected; a metric violates its
// tolerance when variance > tolerance.
type IngestionStats struct {
	Metrics map[string]float64 `json:"metrics"`
}

// Tolerance is the allowed relative variance for one named metric.
type Tolerance struct {
	Metric string
	Value  float64
}

// Violation describes one metric whose observed variance exceeded its
// configured tolerance.
type Violation struct {
	Metric   string
	Expected float64
	Observed float64
	Variance float64
	Allowed  float64
}

// LoadBaselineStats reads a previously-saved IngestionStats snapshot.
func LoadBaselineStats(path string) (IngestionStats, error) {
	var stats IngestionStats
	raw, err := os.ReadFile(path)
	if err != nil {
		return stats, fmt.Errorf("validate: reading baseline stats %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &stats); err != nil {
		return stats, fmt.Errorf("validate: parsing baseline stats %s: %w", path, err)
	}
	return stats, nil
}

// Save writes stats to path as indented JSON, for use as a future baseline.
func (s IngestionStats) Save(path string) error {
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("validate: encoding stats: %w", err)
	}
	return os.WriteFile(path, raw, 0644)
}

// CompareWithTolerances checks observed against a baseline, returning one
// Violation per metric whose variance exceeds its tolerance. A metric
// with expected value 0 and a nonzero observed value is given variance 1,
// since variance would otherwise divide by zero, so it violates any
// tolerance below 1.
func CompareWithTolerances(baseline, observed IngestionStats, tolerances []Tolerance) []Violation {
	var violations []Violation
	for _, tol := range tolerances {
		expected, ok := baseline.Metrics[tol.Metric]
		if !ok {
			continue
		}
		actual := observed.Metrics[tol.Metric]
		delta := actual - expected

		var variance float64
		switch {
		case expected == 0 && delta == 0:
			variance = 0
		case expected == 0:
			variance = 1
		default:
			variance = abs(delta) / abs(expected)
		}

		if variance > tol.Value {
			violations = append(violations, Violation{
				Metric:   tol.Metric,
				Expected: expected,
				Observed: actual,
				Variance: variance,
				Allowed:  tol.Value,
			})
		}
	}
	return violations
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
