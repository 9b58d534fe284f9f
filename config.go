package resonance

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds all configuration for the Resonance engine, loaded from
// polyvis.settings.json and overridden by RESONANCE_DB_PATH,
// RESONANCE_PROVIDER, RESONANCE_EMBED_BASE_URL, RESONANCE_EMBED_MODEL, and
// RESONANCE_EMBED_API_KEY environment variables.
type Config struct {
	Paths PathsConfig `json:"paths"`
	LLM   LLMSection  `json:"llm"`

	// EmbeddingDim is the fixed vector dimension D for this store. Must match
	// whatever model backs the active embedding provider.
	EmbeddingDim int `json:"embedding_dim"`

	// MaxBoxTokens is BentoBoxer's whitespace-token budget per box (C2).
	MaxBoxTokens int `json:"max_box_tokens"`

	// MinEmbeddableLen skips embedding for boxes whose trimmed content is at
	// most this many bytes long (C11 §4.11 step 4: "len(content) > 50").
	MinEmbeddableLen int `json:"min_embeddable_len"`

	// EmbeddingDaemonURL optionally fronts the embedding provider with a
	// loopback HTTP daemon (C6). Empty disables the daemon path entirely.
	EmbeddingDaemonURL string `json:"embedding_daemon_url,omitempty"`

	Louvain  LouvainConfig  `json:"louvain"`
	Semantic SemanticConfig `json:"semantic"`
	Hybrid   HybridConfig   `json:"hybrid"`
	Weaver   WeaverConfig   `json:"weaver"`

	// Validation controls what the Validator requires after ingestion.
	Validation ValidationConfig `json:"validation"`
}

// PathsConfig mirrors spec §6's `paths.*` config tree.
type PathsConfig struct {
	Database SourcesDB      `json:"database"`
	Sources  SourcesSection `json:"sources"`
}

// SourcesDB holds the on-disk store file path.
type SourcesDB struct {
	Resonance string `json:"resonance"`
}

// SourcesSection lists the experience-domain source directories and the
// persona-domain artifact paths.
type SourcesSection struct {
	Experience []ExperienceSource `json:"experience"`
	Persona    PersonaSources     `json:"persona"`
}

// ExperienceSource is one configured corpus directory and the node type
// assigned to files found within it (playbook, debrief, note, ...).
type ExperienceSource struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// PersonaSources points at the Phase 1 ontology artifacts.
type PersonaSources struct {
	Lexicon string `json:"lexicon"`
	CDA     string `json:"cda"`
}

// LLMSection configures the active provider and the named provider pool,
// following the teacher's multi-provider table shape.
type LLMSection struct {
	ActiveProvider string                    `json:"active_provider"`
	Providers      map[string]ProviderConfig `json:"providers"`
}

// ProviderConfig configures one named LLM/embedding provider endpoint.
type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key,omitempty"`
}

// LouvainConfig holds C8's modularity-gate tunables.
type LouvainConfig struct {
	SuperNodeThreshold int `json:"super_node_threshold"`
}

// SemanticConfig holds C10's orphan-rescue tunables.
type SemanticConfig struct {
	MinScore float64 `json:"min_score"`
}

// HybridConfig holds C12's score-fusion tunables.
type HybridConfig struct {
	KeywordBoost     float64 `json:"keyword_boost"`
	KeywordBaseScore float64 `json:"keyword_base_score"`
}

// WeaverConfig holds EdgeWeaver policy knobs (§9 open question: legacy stubs).
type WeaverConfig struct {
	EnableLegacyStubs bool `json:"enable_legacy_stubs"`
}

// ValidationConfig holds C13's baseline expectations.
type ValidationConfig struct {
	RequiredVectorCoverage string `json:"required_vector_coverage"` // all | experience | none
	MinNodesAdded          int    `json:"min_nodes_added"`
}

// DefaultConfig returns a Config with the spec's documented default
// tunables, pointed at a local Ollama daemon for both chat and embedding.
func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			Database: SourcesDB{Resonance: "resonance.db"},
			Sources: SourcesSection{
				Persona: PersonaSources{
					Lexicon: "persona/lexicon.json",
					CDA:     "persona/cda.json",
				},
			},
		},
		LLM: LLMSection{
			ActiveProvider: "ollama",
			Providers: map[string]ProviderConfig{
				"ollama": {
					BaseURL: "http://localhost:11434",
					Model:   "nomic-embed-text",
				},
			},
		},
		EmbeddingDim:     384,
		MaxBoxTokens:     400,
		MinEmbeddableLen: 50,
		Louvain:          LouvainConfig{SuperNodeThreshold: 50},
		Semantic:         SemanticConfig{MinScore: 0.85},
		Hybrid:           HybridConfig{KeywordBoost: 0.2, KeywordBaseScore: 0.5},
		Weaver:           WeaverConfig{EnableLegacyStubs: true},
		Validation: ValidationConfig{
			RequiredVectorCoverage: "experience",
			MinNodesAdded:          0,
		},
	}
}

// LoadConfig reads polyvis.settings.json from path and overlays it on the
// defaults. Missing fields keep their default value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides layers RESONANCE_* environment variables on top of the
// JSON-loaded config, mirroring the teacher's GOREASON_* override block in
// cmd/server/main.go: each variable is only applied if set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RESONANCE_DB_PATH"); v != "" {
		cfg.Paths.Database.Resonance = v
	}
	if v := os.Getenv("RESONANCE_PROVIDER"); v != "" {
		cfg.LLM.ActiveProvider = v
	}

	provider := cfg.LLM.Providers[cfg.LLM.ActiveProvider]
	if v := os.Getenv("RESONANCE_EMBED_BASE_URL"); v != "" {
		provider.BaseURL = v
	}
	if v := os.Getenv("RESONANCE_EMBED_MODEL"); v != "" {
		provider.Model = v
	}
	if v := os.Getenv("RESONANCE_EMBED_API_KEY"); v != "" {
		provider.APIKey = v
	}
	if cfg.LLM.Providers == nil {
		cfg.LLM.Providers = map[string]ProviderConfig{}
	}
	cfg.LLM.Providers[cfg.LLM.ActiveProvider] = provider
}

// ResolveDBPath returns the configured database path as given (it may be
// relative), or ~/.resonance/resonance.db when none is configured. Creating
// its parent directory if necessary is the caller's responsibility
// (GraphStore.New does that, following the teacher's resolveDBPath/New split).
func (c *Config) ResolveDBPath() string {
	if c.Paths.Database.Resonance != "" {
		return c.Paths.Database.Resonance
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "resonance.db"
	}
	return filepath.Join(home, ".resonance", "resonance.db")
}

// ActiveProvider returns the configured provider for llm.active_provider,
// or the zero value if unset.
func (c *Config) ActiveProvider() ProviderConfig {
	return c.LLM.Providers[c.LLM.ActiveProvider]
}
