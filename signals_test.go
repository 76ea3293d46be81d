package noesis

import (
	"context"
	"testing"
	"time"

	"github.com/zoobzio/capitan"
	capitantesting "github.com/zoobzio/capitan/testing"
)

// getStringField extracts a string field value from a captured event.
func getStringField(event capitantesting.CapturedEvent, keyName string) string {
	for _, f := range event.Fields {
		if f.Key().Name() == keyName {
			if v, ok := f.Value().(string); ok {
				return v
			}
		}
	}
	return ""
}

// TestRunLifecycleEvents verifies RunStarted and RunCompleted emission for a
// successful optimization.
func TestRunLifecycleEvents(t *testing.T) {
	started := capitantesting.NewEventCapture()
	startedListener := capitan.Hook(RunStarted, started.Handler())
	defer startedListener.Close()

	completed := capitantesting.NewEventCapture()
	completedListener := capitan.Hook(RunCompleted, completed.Handler())
	defer completedListener.Close()

	s := engagedSession(t)
	pending := s.Optimize(context.Background(), "{1,2} ∪ {3,4}")
	if _, err := pending.Wait(context.Background()); err != nil {
		t.Fatalf("Wait error: %v", err)
	}

	if !started.WaitForCount(1, time.Second) {
		t.Fatal("expected RunStarted event")
	}
	events := started.Events()
	if expr := getStringField(events[0], FieldExpression.Name()); expr != "{1,2} ∪ {3,4}" {
		t.Errorf("expression field = %q", expr)
	}
	if id := getStringField(events[0], FieldSessionID.Name()); id != s.ID {
		t.Errorf("session field = %q, want %q", id, s.ID)
	}

	if !completed.WaitForCount(1, time.Second) {
		t.Fatal("expected RunCompleted event")
	}
	if trace := getStringField(completed.Events()[0], FieldTraceID.Name()); trace != pending.TraceID() {
		t.Errorf("trace field = %q, want %q", trace, pending.TraceID())
	}
}

// TestStageCompletedEvents verifies that every pipeline stage reports.
func TestStageCompletedEvents(t *testing.T) {
	capture := capitantesting.NewEventCapture()
	listener := capitan.Hook(StageCompleted, capture.Handler())
	defer listener.Close()

	s := engagedSession(t)
	if _, err := s.Optimize(context.Background(), "A ∪ B").Wait(context.Background()); err != nil {
		t.Fatalf("Wait error: %v", err)
	}

	if !capture.WaitForCount(10, time.Second) {
		t.Fatalf("expected 10 stage events, got %d", len(capture.Events()))
	}

	seen := map[string]bool{}
	for _, event := range capture.Events() {
		seen[getStringField(event, FieldStage.Name())] = true
	}
	for _, stage := range []string{"simulate", "symbolic-score", "fuse", "rewrite"} {
		if !seen[stage] {
			t.Errorf("no StageCompleted event for %q", stage)
		}
	}
}

// TestDriftDetectedEvent verifies drift emission from the meta controller.
func TestDriftDetectedEvent(t *testing.T) {
	capture := capitantesting.NewEventCapture()
	listener := capitan.Hook(DriftDetected, capture.Handler())
	defer listener.Close()

	c := NewController(DefaultConfig())
	c.Analyze(context.Background(), resultsWith([]float64{0.2, 0.9}, 0.2), ExpressionState{})

	if !capture.WaitForCount(1, time.Second) {
		t.Fatal("expected DriftDetected event")
	}
}

// TestCacheEvents verifies miss-then-hit emission from the viability cache.
func TestCacheEvents(t *testing.T) {
	misses := capitantesting.NewEventCapture()
	missListener := capitan.Hook(CacheMiss, misses.Handler())
	defer missListener.Close()

	hits := capitantesting.NewEventCapture()
	hitListener := capitan.Hook(CacheHit, hits.Handler())
	defer hitListener.Close()

	scorer := newTestScorer(nil)
	state := StateVector{Attention: 0.8, Recognition: 0.6, Wandering: 0.1}
	scorer.Viability(context.Background(), "A ∪ B", state, nil)
	scorer.Viability(context.Background(), "A ∪ B", state, nil)

	if !misses.WaitForCount(1, time.Second) {
		t.Fatal("expected CacheMiss event")
	}
	if !hits.WaitForCount(1, time.Second) {
		t.Fatal("expected CacheHit event")
	}
}
