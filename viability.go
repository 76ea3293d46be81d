package noesis

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/zoobzio/capitan"
)

// LearnerProfile describes what the current learner can comfortably read.
// Changing the profile invalidates the whole viability cache.
type LearnerProfile struct {
	PreferredStyle      NotationStyle
	MaxLength           int
	ComplexityTolerance float64
	SymbolFamiliarity   float64
}

// DefaultLearnerProfile returns a mid-level learner.
func DefaultLearnerProfile() LearnerProfile {
	return LearnerProfile{
		PreferredStyle:      StyleCompact,
		MaxLength:           48,
		ComplexityTolerance: 0.6,
		SymbolFamiliarity:   0.7,
	}
}

// Scorer blends rule-based lexical features with embedding similarity into a
// viability score and notation rewrite suggestions. Scores are cached by
// (expression, quantized state) key; the cache is cleared wholesale when the
// learner profile changes.
type Scorer struct {
	cfg        Config
	embeddings *EmbeddingStore
	cache      Store[float64]

	mu      sync.RWMutex
	profile LearnerProfile
}

// NewScorer creates a viability scorer. A nil cache Store gets an in-memory
// one.
func NewScorer(cfg Config, embeddings *EmbeddingStore, cache Store[float64]) *Scorer {
	if cache == nil {
		cache = NewMemoryStore[float64]()
	}
	return &Scorer{
		cfg:        cfg.withDefaults(),
		embeddings: embeddings,
		cache:      cache,
		profile:    DefaultLearnerProfile(),
	}
}

// Profile returns the current learner profile.
func (s *Scorer) Profile() LearnerProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// SetProfile replaces the learner profile and clears the viability cache
// wholesale. Invalidation is coarse-grained on purpose.
func (s *Scorer) SetProfile(p LearnerProfile) {
	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()

	s.cache.Clear()
	capitan.Emit(context.Background(), CacheInvalidated,
		FieldCacheSize.Field(0),
	)
}

// Viability scores how easily the expression can be processed in the given
// cognitive state, in [0, 1]. A cached value is returned without
// recomputation unless the cache was invalidated.
func (s *Scorer) Viability(ctx context.Context, expr string, state StateVector, recent []ProcessingResult) float64 {
	key := s.cacheKey(expr, state)
	if v, ok := s.cache.Get(key); ok {
		capitan.Emit(ctx, CacheHit,
			FieldCacheKey.Field(key),
			FieldCacheSize.Field(s.cache.Len()),
		)
		return v
	}

	v := s.computeViability(expr, state, recent)
	s.cache.Put(key, v)

	capitan.Emit(ctx, CacheMiss,
		FieldCacheKey.Field(key),
		FieldCacheSize.Field(s.cache.Len()),
	)
	return v
}

// computeViability is the uncached weighted blend of the four sub-scores.
// The weight vector is re-derived per call from the current attention and
// load: low attention shifts weight toward attention-viability, high load
// toward learner-viability.
func (s *Scorer) computeViability(expr string, state StateVector, recent []ProcessingResult) float64 {
	state = state.Clamped()
	load := state.CognitiveLoad()

	attentionV := s.attentionViability(state, recent)
	notationV := s.notationViability(expr)
	learnerV := s.learnerViability(expr)
	embeddingV := s.embeddingViability(expr, state.Attention, load)

	wAttention, wNotation, wLearner, wEmbedding := 0.3, 0.25, 0.25, 0.2
	if state.Attention < 0.4 {
		wAttention += 0.2
	}
	if load > s.cfg.LoadThreshold {
		wLearner += 0.2
	}
	total := wAttention + wNotation + wLearner + wEmbedding

	v := (wAttention*attentionV + wNotation*notationV + wLearner*learnerV + wEmbedding*embeddingV) / total
	return clamp01(v)
}

// attentionViability is attention × (1 − wandering), damped by the variance
// of recent attention.
func (s *Scorer) attentionViability(state StateVector, recent []ProcessingResult) float64 {
	base := state.Attention * (1 - state.Wandering)
	damping := 1 - math.Min(0.5, attentionVariance(recent)*2)
	return clamp01(base * damping)
}

// notationViability matches the expression's rendering against the preferred
// style and symbol density.
func (s *Scorer) notationViability(expr string) float64 {
	profile := s.Profile()

	styleMatch := 0.5
	if classifyStyle(expr) == profile.PreferredStyle {
		styleMatch = 1.0
	}

	// Familiar learners tolerate denser symbol use.
	density := symbolDensity(expr)
	densityFit := 1 - math.Abs(density-0.4*profile.SymbolFamiliarity)

	return clamp01(0.6*styleMatch + 0.4*densityFit)
}

// learnerViability weighs expression length and estimated complexity against
// the learner profile.
func (s *Scorer) learnerViability(expr string) float64 {
	profile := s.Profile()

	length := float64(len([]rune(expr)))
	lengthFit := clamp01(1 - length/float64(max(profile.MaxLength, 1))/2)

	complexity := ComplexityScore(expr)
	complexityFit := 1.0
	if complexity > profile.ComplexityTolerance {
		complexityFit = clamp01(1 - (complexity - profile.ComplexityTolerance))
	}

	return clamp01(0.5*lengthFit + 0.5*complexityFit)
}

// embeddingViability averages cognitive similarity between the expression's
// terms and their nearest stored neighbors. With no usable neighbors it
// degrades to a neutral 0.5.
func (s *Scorer) embeddingViability(expr string, attention, load float64) float64 {
	if s.embeddings == nil {
		return 0.5
	}

	terms := expressionTerms(expr)
	if len(terms) == 0 {
		return 0.5
	}

	var sum float64
	var counted int
	for _, term := range terms {
		neighbors := s.embeddings.NearestK(term, 3, attention, load)
		if len(neighbors) == 0 {
			continue
		}
		var best float64
		for _, nb := range neighbors {
			best += nb.Score
		}
		sum += best / float64(len(neighbors))
		counted++
	}
	if counted == 0 {
		return 0.5
	}

	return clamp01(sum / float64(counted))
}

// NotationPreference scores the expression's rendering against the learner
// profile alone, in [0, 1]. Used as the base probability for bias
// adjustment.
func (s *Scorer) NotationPreference(expr string) float64 {
	return clamp01(0.7*s.notationViability(expr) + 0.3*s.learnerViability(expr))
}

// OptimizeNotation rewrites the expression for the given state. Low
// viability simplifies, high viability leaves the expression alone, and the
// middle band adjusts moderately: structural cues when wandering is high,
// re-compaction when attention is high and wandering low.
func (s *Scorer) OptimizeNotation(ctx context.Context, expr string, state StateVector) string {
	v := s.Viability(ctx, expr, state, nil)

	var out string
	switch {
	case v > 0.8:
		return expr
	case v < 0.4:
		out = SimplifyNotation(expr)
	case state.Wandering > 0.5:
		out = AddStructuralCues(expr)
	case state.Attention > 0.8 && state.Wandering < 0.2:
		out = CompactNotation(expr)
	default:
		return expr
	}

	if out != expr {
		capitan.Emit(ctx, NotationRewritten,
			FieldExpression.Field(expr),
		)
	}
	return out
}

// Suggestions returns candidate renderings of the expression ranked by
// combined preference and viability.
func (s *Scorer) Suggestions(ctx context.Context, expr string, state StateVector) []Suggestion {
	candidates := []struct {
		expr   string
		reason string
	}{
		{expr, "original"},
		{SimplifyNotation(expr), "spelled-out"},
		{CompactNotation(expr), "compact"},
		{SpacedNotation(expr), "spaced"},
	}

	seen := make(map[string]struct{}, len(candidates))
	var out []Suggestion
	for _, c := range candidates {
		if _, dup := seen[c.expr]; dup {
			continue
		}
		seen[c.expr] = struct{}{}
		score := 0.5*s.NotationPreference(c.expr) +
			0.5*s.Viability(ctx, c.expr, state, nil)
		out = append(out, Suggestion{
			Expression: c.expr,
			Score:      score,
			Reason:     c.reason,
		})
	}

	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Score > out[j-1].Score; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// cacheKey quantizes the cognitive state coordinates so near-identical
// states share cache entries.
func (s *Scorer) cacheKey(expr string, state StateVector) string {
	q := s.cfg.CacheQuantum
	qa := math.Round(state.Attention/q) * q
	qw := math.Round(state.Wandering/q) * q
	ql := math.Round(state.CognitiveLoad()/q) * q
	return fmt.Sprintf("%s|%.1f|%.1f|%.1f", expr, qa, qw, ql)
}

// expressionTerms tokenizes an expression into alphanumeric terms, dropping
// operators and grouping.
func expressionTerms(expr string) []string {
	return strings.FieldsFunc(expr, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
