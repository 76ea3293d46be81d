package noesis

import (
	"math"
	"time"
)

// StateVector is one simulated cognitive state snapshot. All three components
// are kept in [0, 1]; every producer must clamp after updating.
type StateVector struct {
	Attention   float64   `db:"attention" type:"double precision"`
	Recognition float64   `db:"recognition" type:"double precision"`
	Wandering   float64   `db:"wandering" type:"double precision"`
	Timestamp   time.Time `db:"timestamp" type:"timestamp"`
}

// Clamped returns a copy of s with every component clamped into [0, 1].
func (s StateVector) Clamped() StateVector {
	s.Attention = clamp01(s.Attention)
	s.Recognition = clamp01(s.Recognition)
	s.Wandering = clamp01(s.Wandering)
	return s
}

// CognitiveLoad derives the load scalar from the three state components.
// Load is never stored independently without recomputation through here.
func (s StateVector) CognitiveLoad() float64 {
	load := 0.35*(1-s.Attention) + 0.25*(1-s.Recognition) + 0.4*s.Wandering
	return clamp01(load)
}

// ProcessingResult is one simulator output sample. Immutable once produced;
// exactly one exists per (scale, tick).
type ProcessingResult struct {
	Scale         int
	State         StateVector
	CognitiveLoad float64
}

// meanAttention averages the attention component over results.
func meanAttention(results []ProcessingResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.State.Attention
	}
	return sum / float64(len(results))
}

// meanWandering averages the wandering component over results.
func meanWandering(results []ProcessingResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.State.Wandering
	}
	return sum / float64(len(results))
}

// meanLoad averages the cognitive load over results.
func meanLoad(results []ProcessingResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.CognitiveLoad
	}
	return sum / float64(len(results))
}

// attentionVariance is the population variance of the attention component.
func attentionVariance(results []ProcessingResult) float64 {
	n := len(results)
	if n == 0 {
		return 0
	}
	mean := meanAttention(results)
	var sum float64
	for _, r := range results {
		d := r.State.Attention - mean
		sum += d * d
	}
	return sum / float64(n)
}

// clamp01 clamps v into [0, 1].
func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

// clamp clamps v into [lo, hi].
func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
