// Package noesistest provides test utilities for noesis.
package noesistest

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/noesis"
)

// FixedSimulator implements noesis.Simulating with a constant state per
// tick, for deterministic pipeline tests.
type FixedSimulator struct {
	Scales      int
	Attention   float64
	Recognition float64
	Wandering   float64
}

// NewFixedSimulator creates a simulator that holds the given state on every
// tick of every scale.
func NewFixedSimulator(scales int, attention, recognition, wandering float64) *FixedSimulator {
	return &FixedSimulator{
		Scales:      scales,
		Attention:   attention,
		Recognition: recognition,
		Wandering:   wandering,
	}
}

// Simulate returns scales×steps identical results.
func (f *FixedSimulator) Simulate(_ context.Context, _ string, steps int) ([]noesis.ProcessingResult, error) {
	results := make([]noesis.ProcessingResult, 0, f.Scales*steps)
	for i := 0; i < f.Scales; i++ {
		scale := 1 << i
		for tick := 0; tick < steps; tick++ {
			state := noesis.StateVector{
				Attention:   f.Attention,
				Recognition: f.Recognition,
				Wandering:   f.Wandering,
				Timestamp:   time.Now(),
			}.Clamped()
			results = append(results, noesis.ProcessingResult{
				Scale:         scale,
				State:         state,
				CognitiveLoad: state.CognitiveLoad(),
			})
		}
	}
	return results, nil
}

// FailingSimulator implements noesis.Simulating and always fails, for
// pipeline failure-path tests.
type FailingSimulator struct {
	Err error
}

// Simulate returns the configured error.
func (f *FailingSimulator) Simulate(context.Context, string, int) ([]noesis.ProcessingResult, error) {
	return nil, f.Err
}

// MockArchive implements noesis.Archive in memory, for testing persistence
// wiring without a database.
type MockArchive struct {
	mu         sync.Mutex
	embeddings map[string]noesis.TermEmbedding
	results    []noesis.RunRecord

	SaveErr error // returned from every Save call when set
}

// NewMockArchive creates an empty in-memory mock for noesis.Archive.
func NewMockArchive() *MockArchive {
	return &MockArchive{
		embeddings: make(map[string]noesis.TermEmbedding),
	}
}

// SaveEmbedding stores one term embedding.
func (m *MockArchive) SaveEmbedding(_ context.Context, embedding noesis.TermEmbedding) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embeddings[embedding.Term] = embedding
	return nil
}

// LoadEmbeddings returns every stored embedding.
func (m *MockArchive) LoadEmbeddings(context.Context) ([]noesis.TermEmbedding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]noesis.TermEmbedding, 0, len(m.embeddings))
	for _, e := range m.embeddings {
		out = append(out, e)
	}
	return out, nil
}

// SaveResult records one completed run.
func (m *MockArchive) SaveResult(_ context.Context, result *noesis.OptimizationResult) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, noesis.RunRecord{
		TraceID:    result.TraceID,
		Expression: result.Expression,
		Optimized:  result.Optimized,
		Psi:        result.Psi,
		Health:     result.Meta.Health.String(),
		Created:    time.Now(),
	})
	return nil
}

// RecentResults returns up to limit recorded runs, newest first.
func (m *MockArchive) RecentResults(_ context.Context, limit int) ([]noesis.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]noesis.RunRecord, 0, limit)
	for i := len(m.results) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.results[i])
	}
	return out, nil
}

// ResultCount returns how many runs have been recorded.
func (m *MockArchive) ResultCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.results)
}
