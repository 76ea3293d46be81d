package noesis

import (
	"math"
	"testing"
	"time"
)

func TestStateVectorClamped(t *testing.T) {
	s := StateVector{Attention: 1.5, Recognition: -0.2, Wandering: 0.5}
	c := s.Clamped()

	if c.Attention != 1 {
		t.Errorf("Attention = %f, want 1", c.Attention)
	}
	if c.Recognition != 0 {
		t.Errorf("Recognition = %f, want 0", c.Recognition)
	}
	if c.Wandering != 0.5 {
		t.Errorf("Wandering = %f, want 0.5", c.Wandering)
	}
}

func TestCognitiveLoad(t *testing.T) {
	tests := []struct {
		name     string
		state    StateVector
		expected float64
	}{
		{
			name:     "fully engaged",
			state:    StateVector{Attention: 1, Recognition: 1, Wandering: 0},
			expected: 0,
		},
		{
			name:     "fully disengaged",
			state:    StateVector{Attention: 0, Recognition: 0, Wandering: 1},
			expected: 1,
		},
		{
			name:     "mixed",
			state:    StateVector{Attention: 0.5, Recognition: 0.5, Wandering: 0.5},
			expected: 0.35*0.5 + 0.25*0.5 + 0.4*0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.state.CognitiveLoad()
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("CognitiveLoad() = %f, want %f", got, tt.expected)
			}
			if got < 0 || got > 1 {
				t.Errorf("CognitiveLoad() = %f, out of [0,1]", got)
			}
		})
	}
}

func TestStateAggregates(t *testing.T) {
	now := time.Now()
	results := []ProcessingResult{
		{Scale: 1, State: StateVector{Attention: 0.8, Recognition: 0.6, Wandering: 0.2, Timestamp: now}},
		{Scale: 1, State: StateVector{Attention: 0.6, Recognition: 0.4, Wandering: 0.4, Timestamp: now}},
	}
	for i := range results {
		results[i].CognitiveLoad = results[i].State.CognitiveLoad()
	}

	if got := meanAttention(results); math.Abs(got-0.7) > 1e-9 {
		t.Errorf("meanAttention = %f, want 0.7", got)
	}
	if got := meanWandering(results); math.Abs(got-0.3) > 1e-9 {
		t.Errorf("meanWandering = %f, want 0.3", got)
	}

	v := attentionVariance(results)
	if math.Abs(v-0.01) > 1e-9 {
		t.Errorf("attentionVariance = %f, want 0.01", v)
	}
}

func TestStateAggregatesEmpty(t *testing.T) {
	if got := meanAttention(nil); got != 0 {
		t.Errorf("meanAttention(nil) = %f, want 0", got)
	}
	if got := meanLoad(nil); got != 0 {
		t.Errorf("meanLoad(nil) = %f, want 0", got)
	}
	if got := attentionVariance(nil); got != 0 {
		t.Errorf("attentionVariance(nil) = %f, want 0", got)
	}
}
