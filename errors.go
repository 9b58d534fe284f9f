package resonance

import "errors"

var (
	// ErrConfigInvalid is returned for an unreadable or malformed settings file.
	ErrConfigInvalid = errors.New("resonance: invalid configuration")

	// ErrSourceUnreadable is returned when a configured source path cannot be read.
	ErrSourceUnreadable = errors.New("resonance: source unreadable")

	// ErrArtifactMissing is returned when a Phase 1 lexicon/directive JSON artifact is absent.
	ErrArtifactMissing = errors.New("resonance: persona artifact missing")

	// ErrParseFailed is returned for malformed lexicon or directive JSON.
	ErrParseFailed = errors.New("resonance: parse failed")

	// ErrEmbeddingUnavailable is returned by New when the embedding provider
	// cannot be constructed.
	ErrEmbeddingUnavailable = errors.New("resonance: embedding unavailable")

	// ErrLLMUnavailable is returned when the optional auto-tagging oracle is unreachable.
	ErrLLMUnavailable = errors.New("resonance: llm oracle unavailable")

	// ErrStoreClosed describes an operation on a closed GraphStore; the store
	// package does not return it.
	ErrStoreClosed = errors.New("resonance: store is closed")

	// ErrMigrationFailed describes a failed schema migration; store.New returns
	// its migration errors unwrapped rather than as this sentinel.
	ErrMigrationFailed = errors.New("resonance: schema migration failed")

	// ErrNoResults describes a HybridSearch with no matching nodes; Search
	// does not return it and reports an empty result list instead.
	ErrNoResults = errors.New("resonance: no results found")

	// ErrValidationFailed describes a Validator report with errors; the CLI
	// does not return it and signals that case with exit code 2 instead.
	ErrValidationFailed = errors.New("resonance: validation failed")

	// ErrAuditDivergence is returned by `audit` when content does not round-trip.
	ErrAuditDivergence = errors.New("resonance: audit round-trip divergence")

	// ErrLocusNotFound describes a locus id with no ledger entry; the locus
	// package does not return it.
	ErrLocusNotFound = errors.New("resonance: locus id not found")
)
