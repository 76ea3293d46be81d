package noesis

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default tunables for the scoring engine.
// These can be overridden per-session via Config.
var (
	// DefaultEmbeddingDim is the dimensionality of term embeddings.
	DefaultEmbeddingDim = 64

	// DefaultLearningRate is the base rate for feedback-driven embedding
	// updates, scaled by attention and cognitive load at update time.
	DefaultLearningRate = 0.1

	// DefaultAttentionExponent shapes how strongly attention modulates
	// cognitive similarity.
	DefaultAttentionExponent = 1.5
)

// Config holds the named tunables of the engine. The numeric defaults are
// preserved from the reference formula set; none of them is derived, so they
// are exposed here as configuration rather than buried as literals.
type Config struct {
	// Embedding store.
	EmbeddingDim      int     `yaml:"embedding_dim"`
	LearningRate      float64 `yaml:"learning_rate"`
	AttentionExponent float64 `yaml:"attention_exponent"`
	Seed              int64   `yaml:"seed"`

	// Cognitive load threshold above which viability weighting shifts
	// toward the learner profile.
	LoadThreshold float64 `yaml:"load_threshold"`

	// Ψ pipeline penalty weights.
	LambdaCognitive  float64 `yaml:"lambda_cognitive"`
	LambdaEfficiency float64 `yaml:"lambda_efficiency"`

	// Run duration considered "slow" when normalizing latency into the
	// efficiency penalty.
	LatencyScale time.Duration `yaml:"latency_scale"`

	// Meta controller thresholds.
	DriftThreshold     float64 `yaml:"drift_threshold"`
	WarningLoad        float64 `yaml:"warning_load"`
	CriticalLoad       float64 `yaml:"critical_load"`
	WarningAttention   float64 `yaml:"warning_attention"`
	CriticalAttention  float64 `yaml:"critical_attention"`
	WarningDriftRatio  float64 `yaml:"warning_drift_ratio"`
	CriticalDriftRatio float64 `yaml:"critical_drift_ratio"`
	DriftHistoryLimit  int     `yaml:"drift_history_limit"`

	// Simulator shape.
	Scales       int `yaml:"scales"`
	Steps        int `yaml:"steps"`
	HistoryLimit int `yaml:"history_limit"`

	// Session worker pool size.
	Workers int `yaml:"workers"`

	// Viability cache state quantization step.
	CacheQuantum float64 `yaml:"cache_quantum"`

	// Rewrite trigger: runs scoring below this Ψ are rewritten.
	RewriteThreshold float64 `yaml:"rewrite_threshold"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		EmbeddingDim:       DefaultEmbeddingDim,
		LearningRate:       DefaultLearningRate,
		AttentionExponent:  DefaultAttentionExponent,
		Seed:               1,
		LoadThreshold:      0.7,
		LambdaCognitive:    0.7,
		LambdaEfficiency:   0.3,
		LatencyScale:       250 * time.Millisecond,
		DriftThreshold:     0.3,
		WarningLoad:        0.6,
		CriticalLoad:       0.8,
		WarningAttention:   0.5,
		CriticalAttention:  0.3,
		WarningDriftRatio:  0.3,
		CriticalDriftRatio: 0.5,
		DriftHistoryLimit:  256,
		Scales:             4,
		Steps:              5,
		HistoryLimit:       128,
		Workers:            3,
		CacheQuantum:       0.1,
		RewriteThreshold:   0.5,
	}
}

// LoadConfig reads a YAML configuration bundle from path. Fields absent from
// the file keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg.withDefaults(), nil
}

// withDefaults fills zero-valued fields so that a partially specified Config
// is always usable.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.EmbeddingDim <= 0 {
		c.EmbeddingDim = d.EmbeddingDim
	}
	if c.LearningRate <= 0 {
		c.LearningRate = d.LearningRate
	}
	if c.AttentionExponent <= 0 {
		c.AttentionExponent = d.AttentionExponent
	}
	if c.Seed == 0 {
		c.Seed = d.Seed
	}
	if c.LoadThreshold <= 0 {
		c.LoadThreshold = d.LoadThreshold
	}
	if c.LambdaCognitive <= 0 {
		c.LambdaCognitive = d.LambdaCognitive
	}
	if c.LambdaEfficiency <= 0 {
		c.LambdaEfficiency = d.LambdaEfficiency
	}
	if c.LatencyScale <= 0 {
		c.LatencyScale = d.LatencyScale
	}
	if c.DriftThreshold <= 0 {
		c.DriftThreshold = d.DriftThreshold
	}
	if c.WarningLoad <= 0 {
		c.WarningLoad = d.WarningLoad
	}
	if c.CriticalLoad <= 0 {
		c.CriticalLoad = d.CriticalLoad
	}
	if c.WarningAttention <= 0 {
		c.WarningAttention = d.WarningAttention
	}
	if c.CriticalAttention <= 0 {
		c.CriticalAttention = d.CriticalAttention
	}
	if c.WarningDriftRatio <= 0 {
		c.WarningDriftRatio = d.WarningDriftRatio
	}
	if c.CriticalDriftRatio <= 0 {
		c.CriticalDriftRatio = d.CriticalDriftRatio
	}
	if c.DriftHistoryLimit <= 0 {
		c.DriftHistoryLimit = d.DriftHistoryLimit
	}
	if c.Scales <= 0 {
		c.Scales = d.Scales
	}
	if c.Steps <= 0 {
		c.Steps = d.Steps
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = d.HistoryLimit
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.CacheQuantum <= 0 {
		c.CacheQuantum = d.CacheQuantum
	}
	if c.RewriteThreshold <= 0 {
		c.RewriteThreshold = d.RewriteThreshold
	}
	return c
}
