package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete Anchor configuration (v2 schema)
type Config struct {
	Version  int    `json:"version" mapstructure:"version"`
	RepoRoot string `json:"repoRoot" mapstructure:"repoRoot"`

	Corpus      CorpusConfig      `json:"corpus" mapstructure:"corpus"`
	Thresholds  ThresholdsConfig  `json:"thresholds" mapstructure:"thresholds"`
	Embedding   EmbeddingConfig   `json:"embedding" mapstructure:"embedding"`
	Concurrency ConcurrencyConfig `json:"concurrency" mapstructure:"concurrency"`
	Evidence    EvidenceConfig    `json:"evidence" mapstructure:"evidence"`
	Targets     []TargetConfig    `json:"targets" mapstructure:"targets"`
	Logging     LoggingConfig     `json:"logging" mapstructure:"logging"`
}

// CorpusConfig configures corpus access
type CorpusConfig struct {
	// ScipIndexPath is an optional SCIP index used as an additional usage source
	ScipIndexPath string `json:"scipIndexPath" mapstructure:"scipIndexPath"`
	// Ignore lists directory names skipped during usage scans
	Ignore []string `json:"ignore" mapstructure:"ignore"`
	// MaxHistoryCommits caps the revisions fetched per symbol (0 = no limit)
	MaxHistoryCommits int `json:"maxHistoryCommits" mapstructure:"maxHistoryCommits"`
	// ContextWindowLines is the number of lines captured around each call site
	ContextWindowLines int `json:"contextWindowLines" mapstructure:"contextWindowLines"`
	// HistorySampleCount is how many historical snapshots to sample for temporal signals
	HistorySampleCount int `json:"historySampleCount" mapstructure:"historySampleCount"`
}

// ThresholdsConfig holds the documented drift-rule constants.
// These values are the contract, not an implementation detail; changing
// them changes the product.
type ThresholdsConfig struct {
	MinCallSites            int     `json:"minCallSites" mapstructure:"minCallSites"`
	HistoryWindowYears      int     `json:"historyWindowYears" mapstructure:"historyWindowYears"`
	DistinctRoleSimilarity  float64 `json:"distinctRoleSimilarity" mapstructure:"distinctRoleSimilarity"`
	VariantRoleSimilarity   float64 `json:"variantRoleSimilarity" mapstructure:"variantRoleSimilarity"`
	DominanceShare          float64 `json:"dominanceShare" mapstructure:"dominanceShare"`
	WorkaroundShare         float64 `json:"workaroundShare" mapstructure:"workaroundShare"`
	MinDependents           int     `json:"minDependents" mapstructure:"minDependents"`
	IntentAlignmentShare    float64 `json:"intentAlignmentShare" mapstructure:"intentAlignmentShare"`
	UnclusteredShare        float64 `json:"unclusteredShare" mapstructure:"unclusteredShare"`
	SingleRoleCollapseShare float64 `json:"singleRoleCollapseShare" mapstructure:"singleRoleCollapseShare"`
	MinMeaningfulChanges    int     `json:"minMeaningfulChanges" mapstructure:"minMeaningfulChanges"`
	HighConfidenceRevisions int     `json:"highConfidenceRevisions" mapstructure:"highConfidenceRevisions"`
	MinHistoryRevisions     int     `json:"minHistoryRevisions" mapstructure:"minHistoryRevisions"`
}

// Embedding providers accepted by EmbeddingConfig.Provider.
const (
	EmbeddingProviderHash   = "hash"
	EmbeddingProviderOpenAI = "openai"
)

// EmbeddingConfig configures the context embedding provider
type EmbeddingConfig struct {
	// Provider is "hash" (deterministic n-gram hashing) or "openai"
	Provider string `json:"provider" mapstructure:"provider"`
	// Model is the remote model name when provider is "openai"
	Model string `json:"model" mapstructure:"model"`
	// Dimensions is the vector width for the hash provider
	Dimensions int `json:"dimensions" mapstructure:"dimensions"`
	// CachePath overrides the on-disk embedding cache location
	CachePath string `json:"cachePath" mapstructure:"cachePath"`
}

// ConcurrencyConfig bounds the per-symbol worker pool
type ConcurrencyConfig struct {
	// Workers is the max number of symbols audited in parallel (0 = GOMAXPROCS)
	Workers int `json:"workers" mapstructure:"workers"`
	// SymbolTimeoutMs bounds a single symbol's pipeline; timeout yields
	// confidence_too_low rather than an error
	SymbolTimeoutMs int `json:"symbolTimeoutMs" mapstructure:"symbolTimeoutMs"`
}

// EvidenceConfig configures the evidence assembler
type EvidenceConfig struct {
	// SamplesPerRole is the number of representative contexts kept per role
	SamplesPerRole int `json:"samplesPerRole" mapstructure:"samplesPerRole"`
}

// TargetConfig names symbols to audit within a file
type TargetConfig struct {
	Path    string   `json:"path" mapstructure:"path"`
	Symbols []string `json:"symbols" mapstructure:"symbols"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:  2,
		RepoRoot: ".",
		Corpus: CorpusConfig{
			ScipIndexPath:      "",
			Ignore:             []string{"node_modules", "vendor", ".git", "__pycache__", "build", ".anchor"},
			MaxHistoryCommits:  500,
			ContextWindowLines: 8,
			HistorySampleCount: 4,
		},
		Thresholds:  DefaultThresholds(),
		Embedding:   EmbeddingConfig{Provider: "hash", Model: "text-embedding-3-small", Dimensions: 256},
		Concurrency: ConcurrencyConfig{Workers: 0, SymbolTimeoutMs: 30000},
		Evidence:    EvidenceConfig{SamplesPerRole: 3},
		Logging:     LoggingConfig{Format: "human", Level: "info"},
	}
}

// DefaultThresholds returns the documented rule constants from the drift contract.
func DefaultThresholds() ThresholdsConfig {
	return ThresholdsConfig{
		MinCallSites:            20,
		HistoryWindowYears:      5,
		DistinctRoleSimilarity:  0.7,
		VariantRoleSimilarity:   0.8,
		DominanceShare:          0.60,
		WorkaroundShare:         0.40,
		MinDependents:           1000,
		IntentAlignmentShare:    0.90,
		UnclusteredShare:        0.10,
		SingleRoleCollapseShare: 0.95,
		MinMeaningfulChanges:    10,
		HighConfidenceRevisions: 50,
		MinHistoryRevisions:     3,
	}
}

// LoadConfig loads configuration from .anchor/config.json
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 2)
	v.SetDefault("repoRoot", ".")

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, ".anchor"))

	if err := v.ReadInConfig(); err != nil {
		// If config doesn't exist, return default config
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			cfg := DefaultConfig()
			cfg.RepoRoot = repoRoot
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if cfg.RepoRoot == "" || cfg.RepoRoot == "." {
		cfg.RepoRoot = repoRoot
	}

	return cfg, nil
}

// Save writes the configuration to .anchor/config.json
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, ".anchor")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 2 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	t := c.Thresholds
	if t.MinCallSites < 1 {
		return &ConfigError{Field: "thresholds.minCallSites", Message: "must be at least 1"}
	}
	for _, p := range []struct {
		name  string
		value float64
	}{
		{"thresholds.distinctRoleSimilarity", t.DistinctRoleSimilarity},
		{"thresholds.variantRoleSimilarity", t.VariantRoleSimilarity},
		{"thresholds.dominanceShare", t.DominanceShare},
		{"thresholds.workaroundShare", t.WorkaroundShare},
		{"thresholds.intentAlignmentShare", t.IntentAlignmentShare},
		{"thresholds.unclusteredShare", t.UnclusteredShare},
		{"thresholds.singleRoleCollapseShare", t.SingleRoleCollapseShare},
	} {
		if p.value < 0 || p.value > 1 {
			return &ConfigError{Field: p.name, Message: "must be in [0,1]"}
		}
	}
	if t.DistinctRoleSimilarity > t.VariantRoleSimilarity {
		return &ConfigError{Field: "thresholds.distinctRoleSimilarity", Message: "must not exceed variantRoleSimilarity"}
	}
	switch c.Embedding.Provider {
	case EmbeddingProviderHash, EmbeddingProviderOpenAI:
	default:
		return &ConfigError{Field: "embedding.provider", Message: "must be \"hash\" or \"openai\""}
	}
	if c.Embedding.Provider == "hash" && c.Embedding.Dimensions <= 0 {
		return &ConfigError{Field: "embedding.dimensions", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
