package noesis

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/zoobzio/capitan"
)

// ErrDimensionMismatch is returned when a vector's length disagrees with the
// configured embedding dimension. The write is rejected whole; vectors are
// never silently truncated.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Adaptive weight bounds. Feedback scales weights multiplicatively inside
// this range.
const (
	minAdaptiveWeight = 0.1
	maxAdaptiveWeight = 2.0
)

// TermEmbedding is a unit-norm term vector with its adaptive weight.
// Mutated only by the feedback-update rule; never deleted.
type TermEmbedding struct {
	Term           string    `db:"term" type:"text" constraints:"primarykey"`
	Vector         Vector    `db:"embedding" type:"vector(64)"`
	AdaptiveWeight float64   `db:"adaptive_weight" type:"double precision" constraints:"notnull"`
	Updated        time.Time `db:"updated" type:"timestamp" constraints:"notnull"`
}

// Neighbor is one ranked similarity-search result.
type Neighbor struct {
	Term  string
	Score float64
}

// EmbeddingStore is the per-term vector table with similarity queries and
// feedback-driven online updates. It is shared across sessions; the injected
// Store provides atomic per-key read-modify-write semantics. Concurrent
// feedback updates on one term race only on the read-normalize-write window,
// which the Store serializes.
type EmbeddingStore struct {
	cfg Config

	terms    Store[TermEmbedding]
	contexts Store[Vector] // context-vector cache, keyed by raw text, never invalidated
}

// NewEmbeddingStore creates an embedding store over the given term Store.
// A nil terms Store gets an in-memory one.
func NewEmbeddingStore(cfg Config, terms Store[TermEmbedding]) *EmbeddingStore {
	if terms == nil {
		terms = NewMemoryStore[TermEmbedding]()
	}
	return &EmbeddingStore{
		cfg:      cfg.withDefaults(),
		terms:    terms,
		contexts: NewMemoryStore[Vector](),
	}
}

// AddOrUpdate inserts or replaces the vector for a term. The vector is
// L2-normalized on insert; dimension mismatches are rejected with no partial
// write. An existing adaptive weight survives the update.
func (s *EmbeddingStore) AddOrUpdate(term string, vec Vector) error {
	if len(vec) != s.cfg.EmbeddingDim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), s.cfg.EmbeddingDim)
	}

	normalized := vec.Normalized()
	s.terms.Update(term, func(current TermEmbedding, ok bool) TermEmbedding {
		weight := 1.0
		if ok {
			weight = current.AdaptiveWeight
		}
		return TermEmbedding{
			Term:           term,
			Vector:         normalized,
			AdaptiveWeight: weight,
			Updated:        time.Now(),
		}
	})

	capitan.Emit(context.Background(), EmbeddingStored,
		FieldTerm.Field(term),
	)
	return nil
}

// Restore reinstates a persisted embedding, including its adaptive weight.
// The same dimension check as AddOrUpdate applies.
func (s *EmbeddingStore) Restore(embedding TermEmbedding) error {
	if len(embedding.Vector) != s.cfg.EmbeddingDim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding.Vector), s.cfg.EmbeddingDim)
	}
	embedding.Vector = embedding.Vector.Normalized()
	embedding.AdaptiveWeight = clamp(embedding.AdaptiveWeight, minAdaptiveWeight, maxAdaptiveWeight)
	s.terms.Put(embedding.Term, embedding)
	return nil
}

// Embedding returns the stored embedding for a term, if present.
func (s *EmbeddingStore) Embedding(term string) (TermEmbedding, bool) {
	return s.terms.Get(term)
}

// Ensure returns the embedding for a term, creating one lazily from the
// deterministic featurizer on first reference.
func (s *EmbeddingStore) Ensure(term string) TermEmbedding {
	return s.terms.GetOrCompute(term, func() TermEmbedding {
		return TermEmbedding{
			Term:           term,
			Vector:         s.featurize(term),
			AdaptiveWeight: 1.0,
			Updated:        time.Now(),
		}
	})
}

// Similarity returns the plain cosine similarity of two stored terms, mapped
// into [0, 1]. Terms are created lazily on first reference.
func (s *EmbeddingStore) Similarity(a, b string) float64 {
	ea, eb := s.Ensure(a), s.Ensure(b)
	return math.Max(0, ea.Vector.Cosine(eb.Vector))
}

// CognitiveSimilarity weights cosine similarity by the current attention,
// cognitive load and both terms' adaptive weights:
//
//	cos(a,b) × attention^w × (1 − load) × sqrt(weight(a)·weight(b))
func (s *EmbeddingStore) CognitiveSimilarity(a, b string, attention, load float64) float64 {
	ea, eb := s.Ensure(a), s.Ensure(b)
	cos := ea.Vector.Cosine(eb.Vector)

	attention = clamp01(attention)
	load = clamp01(load)

	return cos *
		math.Pow(attention, s.cfg.AttentionExponent) *
		(1 - load) *
		math.Sqrt(ea.AdaptiveWeight*eb.AdaptiveWeight)
}

// NearestK returns the k stored terms most cognitively similar to term,
// ranked by descending score. The query term itself is excluded.
func (s *EmbeddingStore) NearestK(term string, k int, attention, load float64) []Neighbor {
	if k <= 0 {
		return nil
	}
	s.Ensure(term)

	var neighbors []Neighbor
	for _, other := range s.terms.Keys() {
		if other == term {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			Term:  other,
			Score: s.CognitiveSimilarity(term, other, attention, load),
		})
	}

	sort.SliceStable(neighbors, func(a, b int) bool {
		return neighbors[a].Score > neighbors[b].Score
	})
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors
}

// Feedback applies the online update rule for a term. On success the vector
// moves toward the context vector at rate baseLearningRate × attention ×
// (1 − load) and the adaptive weight scales up; on failure it moves away at
// half rate and the weight scales down. The vector is renormalized after
// every move.
func (s *EmbeddingStore) Feedback(term, contextText string, attention, load float64, success bool) error {
	ctxVec := s.ContextVector(contextText)

	attention = clamp01(attention)
	load = clamp01(load)
	rate := s.cfg.LearningRate * attention * (1 - load)

	s.terms.Update(term, func(current TermEmbedding, ok bool) TermEmbedding {
		if !ok {
			current = TermEmbedding{
				Term:           term,
				Vector:         s.featurize(term),
				AdaptiveWeight: 1.0,
			}
		}

		moved := make(Vector, len(current.Vector))
		if success {
			for i := range current.Vector {
				delta := float64(ctxVec[i]) - float64(current.Vector[i])
				moved[i] = current.Vector[i] + float32(rate*delta)
			}
			current.AdaptiveWeight = math.Min(maxAdaptiveWeight, current.AdaptiveWeight*1.1)
		} else {
			for i := range current.Vector {
				delta := float64(ctxVec[i]) - float64(current.Vector[i])
				moved[i] = current.Vector[i] - float32(rate/2*delta)
			}
			current.AdaptiveWeight = math.Max(minAdaptiveWeight, current.AdaptiveWeight*0.9)
		}

		current.Vector = moved.Normalized()
		current.Updated = time.Now()
		return current
	})

	updated, _ := s.terms.Get(term)
	capitan.Emit(context.Background(), FeedbackApplied,
		FieldTerm.Field(term),
		FieldAdaptiveWeight.Field(float32(updated.AdaptiveWeight)),
		FieldSuccess.Field(fmt.Sprintf("%t", success)),
	)
	return nil
}

// ContextVector derives the deterministic feature vector for a context text.
// Vectors are cached by raw text key and never invalidated.
func (s *EmbeddingStore) ContextVector(text string) Vector {
	return s.contexts.GetOrCompute(text, func() Vector {
		return s.featurize(text)
	})
}

// Snapshot returns a copy of every stored term embedding, for persistence.
func (s *EmbeddingStore) Snapshot() []TermEmbedding {
	keys := s.terms.Keys()
	out := make([]TermEmbedding, 0, len(keys))
	for _, k := range keys {
		if e, ok := s.terms.Get(k); ok {
			e.Vector = e.Vector.CloneVector()
			out = append(out, e)
		}
	}
	return out
}

// featurize extracts deterministic lexical features from text into a
// unit-norm vector: symbol-density counts, nesting depth and notation style
// in the leading dimensions, the remainder filled with noise seeded from the
// configured seed and the text hash so generation is reproducible.
func (s *EmbeddingStore) featurize(text string) Vector {
	dim := s.cfg.EmbeddingDim
	vec := make(Vector, dim)

	var setOps, logicOps, relations, digits, letters int
	depth, maxDepth := 0, 0
	for _, r := range text {
		switch {
		case strings.ContainsRune("∪∩×∖′∁", r):
			setOps++
		case strings.ContainsRune("∧∨¬⊕→↔", r):
			logicOps++
		case strings.ContainsRune("∈∉⊆⊂⊇⊃=≠", r):
			relations++
		case unicode.IsDigit(r):
			digits++
		case unicode.IsLetter(r):
			letters++
		case r == '(' || r == '{' || r == '[':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case r == ')' || r == '}' || r == ']':
			if depth > 0 {
				depth--
			}
		}
	}

	n := float64(len([]rune(text)))
	if n == 0 {
		n = 1
	}

	features := []float64{
		float64(setOps) / n,
		float64(logicOps) / n,
		float64(relations) / n,
		float64(digits) / n,
		float64(letters) / n,
		float64(maxDepth) / 8,
		math.Min(1, n/64),
	}
	switch classifyStyle(text) {
	case StyleCompact:
		features = append(features, 1, 0, 0)
	case StyleVerbose:
		features = append(features, 0, 1, 0)
	case StyleMixed:
		features = append(features, 0, 0, 1)
	}

	for i, f := range features {
		if i >= dim {
			break
		}
		vec[i] = float32(f)
	}

	// Noise dimensions come from an explicit seed, never runtime identity.
	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(s.cfg.Seed ^ int64(h.Sum64())))
	for i := len(features); i < dim; i++ {
		vec[i] = float32(rng.Float64()*0.2 - 0.1)
	}

	return vec.Normalized()
}
