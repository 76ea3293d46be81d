package noesis

import (
	"context"
	"math"
	"testing"
)

// resultsWith builds a flat result series with the given attention values and
// a fixed load on every sample.
func resultsWith(attention []float64, load float64) []ProcessingResult {
	out := make([]ProcessingResult, len(attention))
	for i, a := range attention {
		out[i] = ProcessingResult{
			Scale:         1,
			State:         StateVector{Attention: a, Recognition: 0.6, Wandering: 0.2},
			CognitiveLoad: load,
		}
	}
	return out
}

func steadyAttention(n int, value float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func TestDetectDrifts(t *testing.T) {
	c := NewController(DefaultConfig())

	results := resultsWith([]float64{0.5, 0.9, 0.9, 0.5, 0.75, 0.75}, 0.2)
	analysis := c.Analyze(context.Background(), results, ExpressionState{})

	// Deltas +0.4, -0.4 and +0.25; only the first two cross the threshold.
	if len(analysis.Drifts) != 2 {
		t.Fatalf("got %d drifts, want 2", len(analysis.Drifts))
	}
	if analysis.Drifts[0].Direction != DriftIncrease || analysis.Drifts[0].Index != 1 {
		t.Errorf("first drift = %+v, want increase at index 1", analysis.Drifts[0])
	}
	if analysis.Drifts[1].Direction != DriftDecrease || analysis.Drifts[1].Index != 3 {
		t.Errorf("second drift = %+v, want decrease at index 3", analysis.Drifts[1])
	}
}

func TestDriftThresholdStrict(t *testing.T) {
	c := NewController(DefaultConfig())

	results := resultsWith([]float64{0, 0.3}, 0.2)
	analysis := c.Analyze(context.Background(), results, ExpressionState{})
	if len(analysis.Drifts) != 0 {
		t.Errorf("delta at the threshold flagged as drift: %+v", analysis.Drifts)
	}
}

func TestClassifyHealthLoadBoundaries(t *testing.T) {
	tests := []struct {
		load     float64
		expected SystemHealth
	}{
		{load: 0.10, expected: HealthHealthy},
		{load: 0.60, expected: HealthHealthy},
		{load: 0.61, expected: HealthWarning},
		{load: 0.79, expected: HealthWarning},
		{load: 0.80, expected: HealthWarning},
		{load: 0.81, expected: HealthCritical},
		{load: 0.95, expected: HealthCritical},
	}

	for _, tt := range tests {
		c := NewController(DefaultConfig())
		// A single sample keeps the mean bit-exact at the boundary values.
		results := resultsWith(steadyAttention(1, 0.7), tt.load)
		analysis := c.Analyze(context.Background(), results, ExpressionState{})
		if analysis.Health != tt.expected {
			t.Errorf("load %.2f: health = %s, want %s", tt.load, analysis.Health, tt.expected)
		}
	}
}

func TestClassifyHealthAttentionBoundaries(t *testing.T) {
	tests := []struct {
		attention float64
		expected  SystemHealth
	}{
		{attention: 0.70, expected: HealthHealthy},
		{attention: 0.50, expected: HealthHealthy},
		{attention: 0.45, expected: HealthWarning},
		{attention: 0.30, expected: HealthWarning},
		{attention: 0.25, expected: HealthCritical},
	}

	for _, tt := range tests {
		c := NewController(DefaultConfig())
		results := resultsWith(steadyAttention(1, tt.attention), 0.1)
		analysis := c.Analyze(context.Background(), results, ExpressionState{})
		if analysis.Health != tt.expected {
			t.Errorf("attention %.2f: health = %s, want %s", tt.attention, analysis.Health, tt.expected)
		}
	}
}

func TestClassifyHealthDriftRatio(t *testing.T) {
	c := NewController(DefaultConfig())

	// Four drifts over ten samples: ratio 0.4, warning band.
	warning := resultsWith([]float64{0.6, 0.95, 0.6, 0.95, 0.6, 0.6, 0.6, 0.6, 0.6, 0.6}, 0.2)
	analysis := c.Analyze(context.Background(), warning, ExpressionState{})
	if analysis.Health != HealthWarning {
		t.Errorf("drift ratio 0.4: health = %s, want WARNING", analysis.Health)
	}

	// Nine drifts over ten samples: critical band.
	critical := resultsWith([]float64{0.6, 0.95, 0.6, 0.95, 0.6, 0.95, 0.6, 0.95, 0.6, 0.95}, 0.2)
	analysis = NewController(DefaultConfig()).Analyze(context.Background(), critical, ExpressionState{})
	if analysis.Health != HealthCritical {
		t.Errorf("drift ratio 0.9: health = %s, want CRITICAL", analysis.Health)
	}
}

func TestClassifyHealthEmpty(t *testing.T) {
	c := NewController(DefaultConfig())
	analysis := c.Analyze(context.Background(), nil, ExpressionState{})
	if analysis.Health != HealthHealthy {
		t.Errorf("empty results: health = %s, want HEALTHY", analysis.Health)
	}
	if analysis.Recommendations != nil {
		t.Errorf("empty results: recommendations = %v, want none", analysis.Recommendations)
	}
}

func TestAuditBias(t *testing.T) {
	c := NewController(DefaultConfig())

	results := resultsWith(steadyAttention(10, 0.25), 0.2)
	analysis := c.Analyze(context.Background(), results, ExpressionState{Alpha: 0.85, Complexity: 0.75})

	if got := analysis.BiasMetrics["symbolic_bias"]; got != 0.85 {
		t.Errorf("symbolic_bias = %f, want 0.85", got)
	}
	if got := analysis.BiasMetrics["complexity_bias"]; got != 0.75 {
		t.Errorf("complexity_bias = %f, want 0.75", got)
	}
	if got := analysis.BiasMetrics["attention_bias"]; math.Abs(got-0.25) > 1e-9 {
		t.Errorf("attention_bias = %f, want 0.25", got)
	}

	balanced := c.Analyze(context.Background(),
		resultsWith(steadyAttention(10, 0.7), 0.2),
		ExpressionState{Alpha: 0.5, Complexity: 0.3})
	for _, flag := range []string{"symbolic_bias", "complexity_bias", "attention_bias"} {
		if _, ok := balanced.BiasMetrics[flag]; ok {
			t.Errorf("balanced run flagged %s", flag)
		}
	}
}

func TestRecommendations(t *testing.T) {
	t.Run("critical", func(t *testing.T) {
		c := NewController(DefaultConfig())
		analysis := c.Analyze(context.Background(),
			resultsWith(steadyAttention(10, 0.7), 0.9), ExpressionState{})

		want := []Recommendation{
			RecommendRestoreAttention,
			RecommendSimplifyNotation,
			RecommendReduceComplexity,
		}
		if len(analysis.Recommendations) != len(want) {
			t.Fatalf("got %v, want %v", analysis.Recommendations, want)
		}
		for i := range want {
			if analysis.Recommendations[i] != want[i] {
				t.Errorf("recommendation %d = %s, want %s", i, analysis.Recommendations[i], want[i])
			}
		}
	})

	t.Run("warning with symbolic bias", func(t *testing.T) {
		c := NewController(DefaultConfig())
		analysis := c.Analyze(context.Background(),
			resultsWith(steadyAttention(10, 0.7), 0.65), ExpressionState{Alpha: 0.85})

		if analysis.Health != HealthWarning {
			t.Fatalf("health = %s, want WARNING", analysis.Health)
		}
		want := []Recommendation{RecommendEnhanceClarity, RecommendReduceBias}
		if len(analysis.Recommendations) != len(want) {
			t.Fatalf("got %v, want %v", analysis.Recommendations, want)
		}
	})

	t.Run("healthy with drift monitors", func(t *testing.T) {
		c := NewController(DefaultConfig())
		analysis := c.Analyze(context.Background(),
			resultsWith([]float64{0.6, 0.95, 0.6, 0.6, 0.6, 0.6, 0.6, 0.6, 0.6, 0.6}, 0.2),
			ExpressionState{})

		if analysis.Health != HealthHealthy {
			t.Fatalf("health = %s, want HEALTHY", analysis.Health)
		}
		if len(analysis.Recommendations) != 1 || analysis.Recommendations[0] != RecommendMonitorAttention {
			t.Errorf("got %v, want [MONITOR_ATTENTION]", analysis.Recommendations)
		}
	})

	t.Run("healthy quiet", func(t *testing.T) {
		c := NewController(DefaultConfig())
		analysis := c.Analyze(context.Background(),
			resultsWith(steadyAttention(10, 0.7), 0.2), ExpressionState{})
		if analysis.Recommendations != nil {
			t.Errorf("got %v, want none", analysis.Recommendations)
		}
	})
}

func TestDriftHistoryRing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DriftHistoryLimit = 4
	c := NewController(cfg)

	// One drift per call, each with a distinct delta.
	for _, high := range []float64{0.5, 0.6, 0.7, 0.8, 0.9} {
		c.Analyze(context.Background(), resultsWith([]float64{0, high}, 0.2), ExpressionState{})
	}

	hist := c.DriftHistory()
	if len(hist) != 4 {
		t.Fatalf("history length = %d, want 4", len(hist))
	}

	// Oldest entry evicted, remainder oldest-first.
	want := []float64{0.6, 0.7, 0.8, 0.9}
	for i, d := range hist {
		if math.Abs(d.Delta-want[i]) > 1e-9 {
			t.Errorf("history[%d].Delta = %f, want %f", i, d.Delta, want[i])
		}
	}
}

func TestDriftHistoryPartial(t *testing.T) {
	c := NewController(DefaultConfig())

	c.Analyze(context.Background(), resultsWith([]float64{0, 0.5}, 0.2), ExpressionState{})
	hist := c.DriftHistory()
	if len(hist) != 1 {
		t.Fatalf("history length = %d, want 1", len(hist))
	}
	if hist[0].Delta != 0.5 {
		t.Errorf("delta = %f, want 0.5", hist[0].Delta)
	}
}

func TestHealthStrings(t *testing.T) {
	for h, want := range map[SystemHealth]string{
		HealthHealthy:  "HEALTHY",
		HealthWarning:  "WARNING",
		HealthCritical: "CRITICAL",
	} {
		if got := h.String(); got != want {
			t.Errorf("SystemHealth(%d).String() = %q, want %q", h, got, want)
		}
	}
}
