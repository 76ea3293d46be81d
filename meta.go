package noesis

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
)

// SystemHealth is the discrete health classification of a result sequence.
type SystemHealth int

const (
	HealthHealthy SystemHealth = iota
	HealthWarning
	HealthCritical
)

// String returns the health tag. Exhaustive by construction.
func (h SystemHealth) String() string {
	switch h {
	case HealthHealthy:
		return "HEALTHY"
	case HealthWarning:
		return "WARNING"
	case HealthCritical:
		return "CRITICAL"
	}
	return "unknown"
}

// DriftDirection tags which way attention moved across a drift event.
type DriftDirection int

const (
	DriftIncrease DriftDirection = iota
	DriftDecrease
)

// String returns the direction tag. Exhaustive by construction.
func (d DriftDirection) String() string {
	switch d {
	case DriftIncrease:
		return "INCREASE"
	case DriftDecrease:
		return "DECREASE"
	}
	return "unknown"
}

// AttentionDrift is one abrupt attention change between adjacent processing
// steps.
type AttentionDrift struct {
	Index     int
	Delta     float64
	Direction DriftDirection
	Timestamp time.Time
}

// Recommendation is the closed set of recommendation tokens the controller
// can emit.
type Recommendation int

const (
	RecommendRestoreAttention Recommendation = iota
	RecommendSimplifyNotation
	RecommendReduceComplexity
	RecommendEnhanceClarity
	RecommendReduceBias
	RecommendMonitorAttention
)

// String returns the recommendation token. Exhaustive by construction.
func (r Recommendation) String() string {
	switch r {
	case RecommendRestoreAttention:
		return "RESTORE_ATTENTION"
	case RecommendSimplifyNotation:
		return "SIMPLIFY_NOTATION"
	case RecommendReduceComplexity:
		return "REDUCE_COMPLEXITY"
	case RecommendEnhanceClarity:
		return "ENHANCE_CLARITY"
	case RecommendReduceBias:
		return "REDUCE_BIAS"
	case RecommendMonitorAttention:
		return "MONITOR_ATTENTION"
	}
	return "unknown"
}

// MetaAnalysis is the audit produced once per pipeline run.
type MetaAnalysis struct {
	Drifts          []AttentionDrift
	BiasMetrics     map[string]float64
	Health          SystemHealth
	Recommendations []Recommendation
	Timestamp       time.Time
}

// ExpressionState is the scoring context the controller audits for bias.
type ExpressionState struct {
	Alpha      float64
	Complexity float64
}

// Controller audits a result sequence for attention drift and bias,
// classifies system health and emits recommendation tokens. It is stateless
// per call aside from the bounded drift-history ring.
type Controller struct {
	cfg Config

	mu      sync.Mutex
	history []AttentionDrift // ring buffer, capacity cfg.DriftHistoryLimit
	next    int
	full    bool
}

// NewController creates a meta controller.
func NewController(cfg Config) *Controller {
	cfg = cfg.withDefaults()
	return &Controller{
		cfg:     cfg,
		history: make([]AttentionDrift, cfg.DriftHistoryLimit),
	}
}

// Analyze audits results and the expression state, producing one
// MetaAnalysis. Drift events are also appended to the bounded history ring.
func (c *Controller) Analyze(ctx context.Context, results []ProcessingResult, state ExpressionState) MetaAnalysis {
	drifts := c.detectDrifts(ctx, results)
	metrics := c.auditBias(results, state)
	health := c.classifyHealth(results, drifts)
	recs := c.recommend(health, drifts, metrics)

	capitan.Emit(ctx, HealthClassified,
		FieldHealth.Field(health.String()),
		FieldDriftCount.Field(len(drifts)),
		FieldResultCount.Field(len(results)),
	)

	return MetaAnalysis{
		Drifts:          drifts,
		BiasMetrics:     metrics,
		Health:          health,
		Recommendations: recs,
		Timestamp:       time.Now(),
	}
}

// detectDrifts flags every adjacent pair whose attention delta exceeds the
// drift threshold.
func (c *Controller) detectDrifts(ctx context.Context, results []ProcessingResult) []AttentionDrift {
	var drifts []AttentionDrift
	for i := 0; i < len(results)-1; i++ {
		delta := results[i+1].State.Attention - results[i].State.Attention
		if math.Abs(delta) <= c.cfg.DriftThreshold {
			continue
		}

		direction := DriftIncrease
		if delta < 0 {
			direction = DriftDecrease
		}
		drift := AttentionDrift{
			Index:     i + 1,
			Delta:     delta,
			Direction: direction,
			Timestamp: time.Now(),
		}
		drifts = append(drifts, drift)

		capitan.Emit(ctx, DriftDetected,
			FieldDriftDelta.Field(float32(delta)),
		)
	}

	c.appendHistory(drifts)
	return drifts
}

// auditBias flags symbolic, complexity and attention bias from the scoring
// context and results.
func (c *Controller) auditBias(results []ProcessingResult, state ExpressionState) map[string]float64 {
	metrics := map[string]float64{
		"alpha":          state.Alpha,
		"complexity":     state.Complexity,
		"mean_attention": meanAttention(results),
	}
	if state.Alpha > 0.8 {
		metrics["symbolic_bias"] = state.Alpha
	}
	if state.Complexity > 0.7 {
		metrics["complexity_bias"] = state.Complexity
	}
	if len(results) > 0 && meanAttention(results) < 0.3 {
		metrics["attention_bias"] = meanAttention(results)
	}
	return metrics
}

// classifyHealth applies the documented thresholds over mean load, drift
// ratio and mean attention.
func (c *Controller) classifyHealth(results []ProcessingResult, drifts []AttentionDrift) SystemHealth {
	if len(results) == 0 {
		return HealthHealthy
	}

	load := meanLoad(results)
	attention := meanAttention(results)
	driftRatio := float64(len(drifts)) / float64(len(results))

	switch {
	case load > c.cfg.CriticalLoad,
		driftRatio > c.cfg.CriticalDriftRatio,
		attention < c.cfg.CriticalAttention:
		return HealthCritical
	case load > c.cfg.WarningLoad,
		driftRatio > c.cfg.WarningDriftRatio,
		attention < c.cfg.WarningAttention:
		return HealthWarning
	default:
		return HealthHealthy
	}
}

// recommend maps health and bias flags onto the fixed recommendation table.
func (c *Controller) recommend(health SystemHealth, drifts []AttentionDrift, metrics map[string]float64) []Recommendation {
	switch health {
	case HealthCritical:
		return []Recommendation{
			RecommendRestoreAttention,
			RecommendSimplifyNotation,
			RecommendReduceComplexity,
		}
	case HealthWarning:
		recs := []Recommendation{RecommendEnhanceClarity}
		if _, flagged := metrics["symbolic_bias"]; flagged {
			recs = append(recs, RecommendReduceBias)
		}
		return recs
	case HealthHealthy:
		if len(drifts) > 0 {
			return []Recommendation{RecommendMonitorAttention}
		}
		return nil
	}
	return nil
}

// appendHistory records drifts in the bounded ring. Old entries are
// overwritten once the ring fills; the history never grows past the limit.
func (c *Controller) appendHistory(drifts []AttentionDrift) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, d := range drifts {
		c.history[c.next] = d
		c.next = (c.next + 1) % len(c.history)
		if c.next == 0 {
			c.full = true
		}
	}
}

// DriftHistory returns the recorded drift events, oldest first.
func (c *Controller) DriftHistory() []AttentionDrift {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.full {
		out := make([]AttentionDrift, c.next)
		copy(out, c.history[:c.next])
		return out
	}

	out := make([]AttentionDrift, 0, len(c.history))
	out = append(out, c.history[c.next:]...)
	out = append(out, c.history[:c.next]...)
	return out
}
