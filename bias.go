package noesis

import (
	"fmt"
	"sync"
)

// BiasKind is the closed set of modeled cognitive biases.
type BiasKind int

const (
	BiasConfirmation BiasKind = iota
	BiasAvailability
	BiasAnchoring
	BiasOverconfidence
	BiasFraming
	BiasLossAversion
	BiasRepresentativeness
)

// allBiasKinds enumerates every variant for exhaustiveness checks.
var allBiasKinds = []BiasKind{
	BiasConfirmation,
	BiasAvailability,
	BiasAnchoring,
	BiasOverconfidence,
	BiasFraming,
	BiasLossAversion,
	BiasRepresentativeness,
}

// String returns the bias tag. Exhaustive by construction.
func (b BiasKind) String() string {
	switch b {
	case BiasConfirmation:
		return "confirmation"
	case BiasAvailability:
		return "availability"
	case BiasAnchoring:
		return "anchoring"
	case BiasOverconfidence:
		return "overconfidence"
	case BiasFraming:
		return "framing"
	case BiasLossAversion:
		return "loss_aversion"
	case BiasRepresentativeness:
		return "representativeness"
	}
	return "unknown"
}

// BiasProfile names a fixed multiplier vector over the bias set.
type BiasProfile string

const (
	ProfileConservative BiasProfile = "conservative"
	ProfileOptimistic   BiasProfile = "optimistic"
	ProfileAnalytical   BiasProfile = "analytical"
	ProfileIntuitive    BiasProfile = "intuitive"
)

// biasProfiles holds the fixed multiplier vectors. Multipliers sit in the
// 0.7-1.8 range of the reference formula set.
var biasProfiles = map[BiasProfile]map[BiasKind]float64{
	ProfileConservative: {
		BiasConfirmation:       0.8,
		BiasAvailability:       0.9,
		BiasAnchoring:          1.1,
		BiasOverconfidence:     0.7,
		BiasFraming:            0.9,
		BiasLossAversion:       1.3,
		BiasRepresentativeness: 0.9,
	},
	ProfileOptimistic: {
		BiasConfirmation:       1.3,
		BiasAvailability:       1.2,
		BiasAnchoring:          0.9,
		BiasOverconfidence:     1.4,
		BiasFraming:            1.1,
		BiasLossAversion:       0.8,
		BiasRepresentativeness: 1.1,
	},
	ProfileAnalytical: {
		BiasConfirmation:       0.9,
		BiasAvailability:       0.95,
		BiasAnchoring:          0.95,
		BiasOverconfidence:     0.9,
		BiasFraming:            0.95,
		BiasLossAversion:       1.0,
		BiasRepresentativeness: 0.95,
	},
	ProfileIntuitive: {
		BiasConfirmation:       1.4,
		BiasAvailability:       1.5,
		BiasAnchoring:          1.2,
		BiasOverconfidence:     1.3,
		BiasFraming:            1.3,
		BiasLossAversion:       1.2,
		BiasRepresentativeness: 1.8,
	},
}

// Adjuster applies the active cognitive-bias profile to a probability
// estimate. Adjust is a pure function of its inputs plus the current
// profile/strength state.
type Adjuster struct {
	mu        sync.RWMutex
	profile   BiasProfile
	strengths map[BiasKind]float64
}

// NewAdjuster creates an adjuster with the analytical profile and unit
// strengths.
func NewAdjuster() *Adjuster {
	return &Adjuster{
		profile:   ProfileAnalytical,
		strengths: make(map[BiasKind]float64),
	}
}

// ApplyProfile switches the active multiplier vector.
func (a *Adjuster) ApplyProfile(name BiasProfile) error {
	if _, ok := biasProfiles[name]; !ok {
		return fmt.Errorf("unknown bias profile: %q", name)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.profile = name
	return nil
}

// Profile returns the active profile name.
func (a *Adjuster) Profile() BiasProfile {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.profile
}

// SetStrength overrides how strongly one bias applies, with 0 disabling it
// and 1 the profile default.
func (a *Adjuster) SetStrength(bias BiasKind, value float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.strengths[bias] = clamp(value, 0, 2)
}

// Strength returns the effective strength for a bias.
func (a *Adjuster) Strength(bias BiasKind) float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if s, ok := a.strengths[bias]; ok {
		return s
	}
	return 1
}

// ScaleStrengths multiplies every bias strength by factor, the
// reduce-bias recommendation transform.
func (a *Adjuster) ScaleStrengths(factor float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, b := range allBiasKinds {
		current, ok := a.strengths[b]
		if !ok {
			current = 1
		}
		a.strengths[b] = clamp(current*factor, 0, 2)
	}
}

// Adjust combines the applicable bias multipliers multiplicatively against
// the base probability and clamps the result into [0, 1]. Which biases apply
// is decided by predicates over the evidence and context maps.
func (a *Adjuster) Adjust(base float64, evidence, context map[string]any) float64 {
	a.mu.RLock()
	profile := biasProfiles[a.profile]
	strengths := make(map[BiasKind]float64, len(a.strengths))
	for k, v := range a.strengths {
		strengths[k] = v
	}
	a.mu.RUnlock()

	p := clamp01(base)
	for _, bias := range allBiasKinds {
		if !biasApplies(bias, evidence, context) {
			continue
		}
		strength, ok := strengths[bias]
		if !ok {
			strength = 1
		}
		multiplier := 1 + (profile[bias]-1)*strength
		p *= multiplier
	}

	return clamp01(p)
}

// biasApplies is the predicate table selecting each bias from evidence and
// context. Exhaustive over BiasKind.
func biasApplies(bias BiasKind, evidence, context map[string]any) bool {
	switch bias {
	case BiasConfirmation:
		return boolValue(evidence, "confirms_expectation")
	case BiasAvailability:
		return boolValue(context, "recent_similar")
	case BiasAnchoring:
		_, ok := evidence["anchor"]
		return ok
	case BiasOverconfidence:
		return floatValue(evidence, "confidence") > 0.8
	case BiasFraming:
		frame := stringValue(context, "frame_type")
		return frame == "positive" || frame == "negative"
	case BiasLossAversion:
		return stringValue(context, "frame_type") == "loss"
	case BiasRepresentativeness:
		return boolValue(evidence, "matches_prototype")
	}
	return false
}

func boolValue(m map[string]any, key string) bool {
	v, ok := m[key].(bool)
	return ok && v
}

func floatValue(m map[string]any, key string) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}
	return 0
}

func stringValue(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}
