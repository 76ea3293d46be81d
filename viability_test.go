package noesis

import (
	"context"
	"testing"
)

// countingStore wraps a Store and counts Put calls, to observe cache
// population without touching scorer internals.
type countingStore struct {
	Store[float64]
	puts int
}

func (c *countingStore) Put(key string, value float64) {
	c.puts++
	c.Store.Put(key, value)
}

func newTestScorer(cache Store[float64]) *Scorer {
	return NewScorer(DefaultConfig(), newTestEmbeddings(), cache)
}

func TestViabilityBounds(t *testing.T) {
	s := newTestScorer(nil)

	states := []StateVector{
		{Attention: 1, Recognition: 1, Wandering: 0},
		{Attention: 0, Recognition: 0, Wandering: 1},
		{Attention: 0.5, Recognition: 0.5, Wandering: 0.5},
		{Attention: 2, Recognition: -1, Wandering: 0.3}, // clamped internally
	}
	exprs := []string{"{1,2} ∪ {3,4}", "A union B", "", "x + y * z"}

	for _, state := range states {
		for _, expr := range exprs {
			v := s.Viability(context.Background(), expr, state, nil)
			if v < 0 || v > 1 {
				t.Errorf("Viability(%q, %+v) = %f out of [0,1]", expr, state, v)
			}
		}
	}
}

func TestViabilityFavorsEngagement(t *testing.T) {
	s := newTestScorer(nil)
	expr := "{1,2} ∪ {3,4}"

	engaged := s.Viability(context.Background(), expr,
		StateVector{Attention: 0.9, Recognition: 0.8, Wandering: 0.1}, nil)
	distracted := s.Viability(context.Background(), expr,
		StateVector{Attention: 0.2, Recognition: 0.2, Wandering: 0.8}, nil)

	if distracted >= engaged {
		t.Errorf("distracted viability %f >= engaged %f", distracted, engaged)
	}
}

func TestViabilityCacheHit(t *testing.T) {
	cache := &countingStore{Store: NewMemoryStore[float64]()}
	s := newTestScorer(cache)

	state := StateVector{Attention: 0.8, Recognition: 0.6, Wandering: 0.1}
	first := s.Viability(context.Background(), "A ∪ B", state, nil)
	second := s.Viability(context.Background(), "A ∪ B", state, nil)

	if first != second {
		t.Errorf("cached value differs: %f vs %f", first, second)
	}
	if cache.puts != 1 {
		t.Errorf("cache populated %d times, want 1", cache.puts)
	}
}

func TestViabilityCacheQuantization(t *testing.T) {
	cache := &countingStore{Store: NewMemoryStore[float64]()}
	s := newTestScorer(cache)

	// Both states quantize to the same 0.1 bucket.
	s.Viability(context.Background(), "A ∪ B", StateVector{Attention: 0.81, Recognition: 0.6, Wandering: 0.1}, nil)
	s.Viability(context.Background(), "A ∪ B", StateVector{Attention: 0.79, Recognition: 0.6, Wandering: 0.1}, nil)

	if cache.puts != 1 {
		t.Errorf("near-identical states computed %d times, want 1", cache.puts)
	}

	// A different bucket recomputes.
	s.Viability(context.Background(), "A ∪ B", StateVector{Attention: 0.3, Recognition: 0.6, Wandering: 0.1}, nil)
	if cache.puts != 2 {
		t.Errorf("distinct state computed %d times, want 2", cache.puts)
	}
}

func TestSetProfileInvalidatesCache(t *testing.T) {
	cache := &countingStore{Store: NewMemoryStore[float64]()}
	s := newTestScorer(cache)

	state := StateVector{Attention: 0.8, Recognition: 0.6, Wandering: 0.1}
	s.Viability(context.Background(), "A ∪ B", state, nil)

	p := s.Profile()
	p.PreferredStyle = StyleVerbose
	s.SetProfile(p)

	if cache.Len() != 0 {
		t.Errorf("cache holds %d entries after profile change, want 0", cache.Len())
	}

	s.Viability(context.Background(), "A ∪ B", state, nil)
	if cache.puts != 2 {
		t.Errorf("viability not recomputed after invalidation: %d puts", cache.puts)
	}
}

func TestNotationPreferenceTracksStyle(t *testing.T) {
	s := newTestScorer(nil)

	compact := s.NotationPreference("{1,2} ∪ {3,4}")
	verbose := s.NotationPreference("{1,2} union {3,4}")
	if verbose >= compact {
		t.Errorf("compact-preferring profile ranked verbose %f >= compact %f", verbose, compact)
	}

	p := s.Profile()
	p.PreferredStyle = StyleVerbose
	s.SetProfile(p)

	compact = s.NotationPreference("{1,2} ∪ {3,4}")
	verbose = s.NotationPreference("{1,2} union {3,4}")
	if compact >= verbose {
		t.Errorf("verbose-preferring profile ranked compact %f >= verbose %f", compact, verbose)
	}
}

func TestOptimizeNotation(t *testing.T) {
	s := newTestScorer(nil)

	// High wandering earns structural anchor points.
	wandering := StateVector{Attention: 0.1, Recognition: 0.1, Wandering: 0.9}
	out := s.OptimizeNotation(context.Background(), "{1,2} ∪ {3,4}", wandering)
	if out == "{1,2} ∪ {3,4}" {
		t.Error("expected a rewrite under deep distraction")
	}

	// Focused attention on an already-compact expression changes nothing.
	focused := StateVector{Attention: 0.9, Recognition: 0.8, Wandering: 0.1}
	out = s.OptimizeNotation(context.Background(), "{1,2} ∪ {3,4}", focused)
	if out != "{1,2} ∪ {3,4}" {
		t.Errorf("focused state rewrote a compact expression to %q", out)
	}
}

func TestOptimizeNotationRecompactsSimplified(t *testing.T) {
	s := newTestScorer(nil)
	expr := "A ∪ B"

	verbose := SimplifyNotation(expr)
	if verbose == expr {
		t.Fatalf("simplification left %q unchanged", expr)
	}

	// The spelled-out form sits in the mid-viability band for a focused
	// state, so optimization recompacts it to the original symbols.
	focused := StateVector{Attention: 0.85, Recognition: 0.8, Wandering: 0.1}
	out := s.OptimizeNotation(context.Background(), verbose, focused)
	if out != expr {
		t.Errorf("OptimizeNotation(%q) = %q, want %q restored", verbose, out, expr)
	}
}

func TestSuggestionsRanked(t *testing.T) {
	s := newTestScorer(nil)
	state := StateVector{Attention: 0.8, Recognition: 0.7, Wandering: 0.1}

	suggestions := s.Suggestions(context.Background(), "{1,2} ∪ {3,4}", state)
	if len(suggestions) == 0 {
		t.Fatal("expected at least one suggestion")
	}

	seen := map[string]bool{}
	for i, sg := range suggestions {
		if seen[sg.Expression] {
			t.Errorf("duplicate suggestion %q", sg.Expression)
		}
		seen[sg.Expression] = true
		if sg.Score < 0 || sg.Score > 1 {
			t.Errorf("suggestion score %f out of [0,1]", sg.Score)
		}
		if i > 0 && sg.Score > suggestions[i-1].Score {
			t.Errorf("suggestions not ranked: %f after %f", sg.Score, suggestions[i-1].Score)
		}
		if sg.Reason == "" {
			t.Error("suggestion missing reason")
		}
	}
}

func TestExpressionTerms(t *testing.T) {
	terms := expressionTerms("{x1, y2} ∪ {z}")
	want := []string{"x1", "y2", "z"}
	if len(terms) != len(want) {
		t.Fatalf("got %v, want %v", terms, want)
	}
	for i := range want {
		if terms[i] != want[i] {
			t.Errorf("term %d = %q, want %q", i, terms[i], want[i])
		}
	}

	if got := expressionTerms("∪ ∩ ()"); len(got) != 0 {
		t.Errorf("operator-only expression yielded terms %v", got)
	}
}
