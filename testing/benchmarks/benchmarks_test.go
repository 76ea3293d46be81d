package benchmarks_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/zoobzio/noesis"
	noesistest "github.com/zoobzio/noesis/testing"
)

func BenchmarkOptimize(b *testing.B) {
	ctx := context.Background()
	session := noesis.NewSession(noesis.DefaultConfig(),
		noesis.WithSimulator(noesistest.NewFixedSimulator(4, 0.75, 0.6, 0.15)),
	)
	defer session.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := session.Optimize(ctx, "{1,2} ∪ {3,4}").Wait(ctx); err != nil {
			b.Fatalf("optimization failed: %v", err)
		}
	}
}

func BenchmarkSimulate(b *testing.B) {
	ctx := context.Background()
	sim := noesis.NewSimulator(noesis.DefaultConfig())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := sim.Simulate(ctx, "A ∩ B", 5); err != nil {
			b.Fatalf("simulation failed: %v", err)
		}
	}
}

func BenchmarkPatternAnalysis(b *testing.B) {
	detector := noesis.NewDetector()

	series := make([]noesis.StateVector, 64)
	for i := range series {
		series[i] = noesis.StateVector{
			Attention:   0.5 + 0.3*float64(i%4)/4,
			Recognition: 0.5,
			Wandering:   0.2,
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = detector.Analyze(series)
	}
}

func BenchmarkCognitiveSimilarity(b *testing.B) {
	store := noesis.NewEmbeddingStore(noesis.DefaultConfig(), nil)
	for i := 0; i < 100; i++ {
		store.Ensure(fmt.Sprintf("term_%d", i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = store.CognitiveSimilarity("term_1", fmt.Sprintf("term_%d", i%100), 0.8, 0.3)
	}
}

func BenchmarkNearestK(b *testing.B) {
	store := noesis.NewEmbeddingStore(noesis.DefaultConfig(), nil)
	for i := 0; i < 200; i++ {
		store.Ensure(fmt.Sprintf("term_%d", i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = store.NearestK("term_0", 5, 0.8, 0.3)
	}
}

func BenchmarkViability(b *testing.B) {
	ctx := context.Background()
	cfg := noesis.DefaultConfig()
	scorer := noesis.NewScorer(cfg, noesis.NewEmbeddingStore(cfg, nil), nil)

	state := noesis.StateVector{Attention: 0.7, Recognition: 0.6, Wandering: 0.2}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = scorer.Viability(ctx, "{1,2} ∪ {3,4}", state, nil)
	}
}
