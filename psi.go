package noesis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
)

// ErrSessionClosed is returned for runs submitted after Close.
var ErrSessionClosed = errors.New("session closed")

// Suggestion is one ranked notation rendering candidate.
type Suggestion struct {
	Expression string
	Score      float64
	Reason     string
}

// Evaluation is the rolling pipeline state for one optimization run. Stages
// fill it in order; the final stage freezes it into an OptimizationResult.
type Evaluation struct {
	TraceID    string
	Expression string
	Started    time.Time

	// Stage outputs.
	Results           []ProcessingResult
	Patterns          []Pattern
	Symbolic          float64
	SymbolicParsed    bool
	Neural            float64
	Alpha             float64
	CognitivePenalty  float64
	EfficiencyPenalty float64
	PenaltyFactor     float64
	BiasedProbability float64
	Psi               float64
	Meta              MetaAnalysis
	Suggestions       []Suggestion
	Optimized         string
	Breakdown         map[string]float64
	Tags              map[string]string
}

// Clone creates a deep copy of the evaluation for concurrent processing.
// Required for pipz.Concurrent and other parallel connectors.
func (e *Evaluation) Clone() *Evaluation {
	clone := *e

	clone.Results = append([]ProcessingResult(nil), e.Results...)
	clone.Patterns = append([]Pattern(nil), e.Patterns...)
	clone.Suggestions = append([]Suggestion(nil), e.Suggestions...)

	clone.Breakdown = make(map[string]float64, len(e.Breakdown))
	for k, v := range e.Breakdown {
		clone.Breakdown[k] = v
	}
	clone.Tags = make(map[string]string, len(e.Tags))
	for k, v := range e.Tags {
		clone.Tags[k] = v
	}

	clone.Meta.Drifts = append([]AttentionDrift(nil), e.Meta.Drifts...)
	clone.Meta.Recommendations = append([]Recommendation(nil), e.Meta.Recommendations...)
	clone.Meta.BiasMetrics = make(map[string]float64, len(e.Meta.BiasMetrics))
	for k, v := range e.Meta.BiasMetrics {
		clone.Meta.BiasMetrics[k] = v
	}

	return &clone
}

// Compile-time check: *Evaluation must implement pipz.Cloner[*Evaluation].
var _ interface{ Clone() *Evaluation } = (*Evaluation)(nil)

// OptimizationResult is the immutable result bundle of one pipeline run.
type OptimizationResult struct {
	TraceID     string
	Psi         float64
	Expression  string
	Optimized   string
	Breakdown   map[string]float64
	Suggestions []Suggestion
	Patterns    []Pattern
	Meta        MetaAnalysis
	Tags        map[string]string
	Duration    time.Duration
}

// Pending is the future for one submitted run. It resolves exactly once;
// Wait is the single join point. Abandoning a Pending does not cancel the
// run - background work proceeds to completion.
type Pending struct {
	traceID string
	done    chan struct{}
	result  *OptimizationResult
	err     error
}

// TraceID returns the run's trace identifier.
func (p *Pending) TraceID() string {
	return p.traceID
}

// Done returns a channel closed when the run has resolved.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the run resolves or ctx expires. Timeouts are the
// caller's responsibility; the pipeline itself has no internal deadline.
func (p *Pending) Wait(ctx context.Context) (*OptimizationResult, error) {
	select {
	case <-p.done:
		return p.result, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolve publishes the outcome. Must be called exactly once.
func (p *Pending) resolve(result *OptimizationResult, err error) {
	p.result = result
	p.err = err
	close(p.done)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSimulator replaces the cognitive state simulator.
func WithSimulator(sim Simulating) SessionOption {
	return func(s *Session) {
		s.sim = sim
	}
}

// WithEmbeddings shares an embedding store across sessions.
func WithEmbeddings(store *EmbeddingStore) SessionOption {
	return func(s *Session) {
		s.embeddings = store
	}
}

// WithViabilityCache shares a viability cache Store across sessions.
func WithViabilityCache(cache Store[float64]) SessionOption {
	return func(s *Session) {
		s.cache = cache
	}
}

// WithArchive attaches persistence for embeddings and results.
func WithArchive(a Archive) SessionOption {
	return func(s *Session) {
		s.archive = a
	}
}

// job is one queued optimization run.
type job struct {
	ctx     context.Context
	expr    string
	pending *Pending
}

// Session owns one Ψ pipeline and its fixed worker pool. The embedding
// store and viability cache may be shared across sessions; everything else
// is per-session state.
type Session struct {
	ID  string
	cfg Config

	sim        Simulating
	detector   *Detector
	embeddings *EmbeddingStore
	cache      Store[float64]
	scorer     *Scorer
	adjuster   *Adjuster
	controller *Controller
	archive    Archive

	pipeline pipz.Chainable[*Evaluation]

	mu     sync.RWMutex
	closed bool
	jobs   chan job
	wg     sync.WaitGroup

	runCount    atomic.Int64
	lastLatency atomic.Int64 // nanoseconds of the previous completed run
}

// NewSession creates a session with its worker pool running.
func NewSession(cfg Config, opts ...SessionOption) *Session {
	cfg = cfg.withDefaults()

	s := &Session{
		ID:       uuid.New().String(),
		cfg:      cfg,
		detector: NewDetector(),
		adjuster: NewAdjuster(),
		jobs:     make(chan job, 64),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.sim == nil {
		s.sim = NewSimulator(cfg)
	}
	if s.embeddings == nil {
		s.embeddings = NewEmbeddingStore(cfg, nil)
	}
	s.scorer = NewScorer(cfg, s.embeddings, s.cache)
	s.controller = NewController(cfg)
	s.pipeline = s.buildPipeline()

	for i := 0; i < cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	return s
}

// Scorer returns the session's viability scorer.
func (s *Session) Scorer() *Scorer {
	return s.scorer
}

// Embeddings returns the session's embedding store.
func (s *Session) Embeddings() *EmbeddingStore {
	return s.embeddings
}

// Adjuster returns the session's bias adjuster.
func (s *Session) Adjuster() *Adjuster {
	return s.adjuster
}

// Controller returns the session's meta controller.
func (s *Session) Controller() *Controller {
	return s.controller
}

// Optimize submits an expression to the worker pool and returns its future.
func (s *Session) Optimize(ctx context.Context, expr string) *Pending {
	pending := &Pending{
		traceID: uuid.New().String(),
		done:    make(chan struct{}),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		pending.resolve(nil, ErrSessionClosed)
		return pending
	}

	capitan.Emit(ctx, RunStarted,
		FieldTraceID.Field(pending.traceID),
		FieldSessionID.Field(s.ID),
		FieldExpression.Field(expr),
	)

	s.jobs <- job{ctx: ctx, expr: expr, pending: pending}
	return pending
}

// Close stops accepting runs, drains the queue and joins the workers.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.jobs)
	s.mu.Unlock()

	s.wg.Wait()
	return s.pipeline.Close()
}

// worker drains the job queue. Queued runs complete even after Close.
func (s *Session) worker() {
	defer s.wg.Done()
	for j := range s.jobs {
		result, err := s.run(j.ctx, j.expr, j.pending.traceID)
		j.pending.resolve(result, err)
	}
}

// run executes the full pipeline for one expression. Any stage failure
// aborts the whole run: a diagnostic tag is recorded and emitted before the
// error propagates, and no partial result is ever returned.
func (s *Session) run(ctx context.Context, expr, traceID string) (*OptimizationResult, error) {
	// Abandoned futures must not cancel in-flight work.
	ctx = context.WithoutCancel(ctx)

	eval := &Evaluation{
		TraceID:    traceID,
		Expression: expr,
		Started:    time.Now(),
		Breakdown:  make(map[string]float64),
		Tags:       make(map[string]string),
	}

	out, err := s.pipeline.Process(ctx, eval)
	duration := time.Since(eval.Started)
	s.lastLatency.Store(int64(duration))

	if err != nil {
		stage := "pipeline"
		var pe *pipz.Error[*Evaluation]
		if errors.As(err, &pe) && pe.InputData != nil {
			if v, ok := pe.InputData.Tags["failed_stage"]; ok {
				stage = v
			}
		}

		capitan.Error(ctx, RunFailed,
			FieldTraceID.Field(traceID),
			FieldStage.Field(stage),
			FieldStageDuration.Field(duration),
			FieldError.Field(err),
		)
		return nil, fmt.Errorf("optimization %s failed: %w", traceID, err)
	}

	s.runCount.Add(1)

	result := &OptimizationResult{
		TraceID:     out.TraceID,
		Psi:         out.Psi,
		Expression:  out.Expression,
		Optimized:   out.Optimized,
		Breakdown:   out.Breakdown,
		Suggestions: out.Suggestions,
		Patterns:    out.Patterns,
		Meta:        out.Meta,
		Tags:        out.Tags,
		Duration:    duration,
	}

	capitan.Emit(ctx, RunCompleted,
		FieldTraceID.Field(traceID),
		FieldPsi.Field(float32(result.Psi)),
		FieldAlpha.Field(float32(out.Alpha)),
		FieldHealth.Field(result.Meta.Health.String()),
		FieldStageDuration.Field(duration),
	)

	if s.archive != nil {
		if saveErr := s.archive.SaveResult(ctx, result); saveErr != nil {
			// Persistence failures never fail a completed run.
			capitan.Error(ctx, ArchiveFailed,
				FieldTraceID.Field(traceID),
				FieldError.Field(saveErr),
			)
		} else {
			capitan.Emit(ctx, ArchiveSaved,
				FieldTraceID.Field(traceID),
			)
		}
	}

	return result, nil
}

// buildPipeline wires the ten-stage Ψ sequence. Later stages depend on
// earlier outputs, so the order is fixed.
func (s *Session) buildPipeline() pipz.Chainable[*Evaluation] {
	return Sequence("psi",
		instrumented(s.stageSimulate()),
		instrumented(s.stageDetectPatterns()),
		instrumented(s.stageSymbolic()),
		instrumented(s.stageNeural()),
		instrumented(s.stageMixing()),
		instrumented(s.stagePenalties()),
		instrumented(s.stageBias()),
		instrumented(s.stageFuse()),
		instrumented(s.stageMeta()),
		instrumented(s.stageRewrite()),
	)
}

// instrumented wraps a stage so every successful completion emits a
// StageCompleted signal with the stage name and elapsed time.
func instrumented(stage pipz.Chainable[*Evaluation]) pipz.Chainable[*Evaluation] {
	name := string(stage.Name())
	return Do(name, func(ctx context.Context, e *Evaluation) (*Evaluation, error) {
		start := time.Now()
		out, err := stage.Process(ctx, e)
		if err != nil {
			return out, err
		}
		capitan.Emit(ctx, StageCompleted,
			FieldTraceID.Field(out.TraceID),
			FieldStage.Field(name),
			FieldStageDuration.Field(time.Since(start)),
		)
		return out, nil
	})
}

// stageSimulate runs the cognitive state simulation.
func (s *Session) stageSimulate() pipz.Processor[*Evaluation] {
	return Do("simulate", func(ctx context.Context, e *Evaluation) (*Evaluation, error) {
		results, err := s.sim.Simulate(ctx, e.Expression, s.cfg.Steps)
		if err != nil {
			e.Tags["failed_stage"] = "simulate"
			return e, fmt.Errorf("simulate: %w", err)
		}
		e.Results = results
		return e, nil
	})
}

// stageDetectPatterns analyzes the state series. Short series simply yield
// no patterns; this stage cannot fail.
func (s *Session) stageDetectPatterns() pipz.Processor[*Evaluation] {
	return Transform("detect-patterns", func(ctx context.Context, e *Evaluation) *Evaluation {
		series := make([]StateVector, len(e.Results))
		for i, r := range e.Results {
			series[i] = r.State
		}
		e.Patterns = s.detector.Analyze(series)

		for _, p := range e.Patterns {
			capitan.Emit(ctx, PatternDetected,
				FieldTraceID.Field(e.TraceID),
				FieldPatternType.Field(p.Type.String()),
				FieldConfidence.Field(float32(p.Confidence)),
			)
		}
		return e
	})
}

// stageSymbolic computes S(x). A parse failure is absorbed: the generic
// algebraic estimate is used and a diagnostic tag records the fallback.
func (s *Session) stageSymbolic() pipz.Processor[*Evaluation] {
	return Transform("symbolic-score", func(_ context.Context, e *Evaluation) *Evaluation {
		e.Symbolic, e.SymbolicParsed = SymbolicScore(e.Expression)
		if !e.SymbolicParsed {
			e.Tags["parse_fallback"] = "generic_algebraic"
		}
		return e
	})
}

// stageNeural computes N(x) from the scorer's suggestion confidence and
// viability score.
func (s *Session) stageNeural() pipz.Processor[*Evaluation] {
	return Do("neural-score", func(ctx context.Context, e *Evaluation) (*Evaluation, error) {
		state := e.currentState()

		e.Suggestions = s.scorer.Suggestions(ctx, e.Expression, state)
		viability := s.scorer.Viability(ctx, e.Expression, state, e.Results)

		confidence := 0.0
		if len(e.Suggestions) > 0 {
			confidence = e.Suggestions[0].Score
		}

		e.Neural = 0.6*confidence + 0.4*viability
		return e, nil
	})
}

// stageMixing updates the symbolic/neural mixing coefficient.
func (s *Session) stageMixing() pipz.Processor[*Evaluation] {
	return Transform("mixing-coefficient", func(_ context.Context, e *Evaluation) *Evaluation {
		e.Alpha = MixingCoefficient(e.Results)
		return e
	})
}

// MixingCoefficient derives alpha from mean attention, attention stability
// and flow frequency, clamped into [0.1, 0.9] regardless of how extreme the
// inputs are.
func MixingCoefficient(results []ProcessingResult) float64 {
	attention := meanAttention(results)
	stability := math.Max(0, 1-4*attentionVariance(results))

	flow := 0.0
	if len(results) > 0 {
		flowTicks := 0
		for _, r := range results {
			if r.State.Attention > 0.8 && r.State.Wandering < 0.2 {
				flowTicks++
			}
		}
		flow = float64(flowTicks) / float64(len(results))
	}

	alpha := 0.3 + 0.4*attention + 0.2*stability + 0.1*flow
	return clamp(alpha, 0.1, 0.9)
}

// stagePenalties computes the cognitive and efficiency penalties and the
// combined exponential penalty factor.
func (s *Session) stagePenalties() pipz.Processor[*Evaluation] {
	return Transform("penalties", func(_ context.Context, e *Evaluation) *Evaluation {
		complexity := ComplexityScore(e.Expression)

		e.CognitivePenalty = math.Min(1,
			0.4*meanWandering(e.Results)+
				0.4*meanLoad(e.Results)+
				0.2*complexity)

		elapsed := clamp01(float64(time.Since(e.Started)) / float64(s.cfg.LatencyScale))
		lastLatency := clamp01(float64(s.lastLatency.Load()) / float64(s.cfg.LatencyScale))
		e.EfficiencyPenalty = 0.4*elapsed + 0.3*complexity + 0.3*lastLatency

		e.PenaltyFactor = math.Exp(-(s.cfg.LambdaCognitive*e.CognitivePenalty +
			s.cfg.LambdaEfficiency*e.EfficiencyPenalty))
		return e
	})
}

// stageBias seeds the bias adjuster with the notation preference and current
// cognitive evidence.
func (s *Session) stageBias() pipz.Processor[*Evaluation] {
	return Transform("bias", func(_ context.Context, e *Evaluation) *Evaluation {
		base := s.scorer.NotationPreference(e.Expression)

		evidence := map[string]any{
			"confirms_expectation": e.Symbolic > 0.8,
			"confidence":           e.Alpha,
		}
		frame := "positive"
		if meanLoad(e.Results) > s.cfg.LoadThreshold {
			frame = "loss"
		}
		context := map[string]any{
			"frame_type":     frame,
			"recent_similar": s.runCount.Load() > 0,
		}

		e.BiasedProbability = s.adjuster.Adjust(base, evidence, context)
		return e
	})
}

// stageFuse combines every signal into Ψ.
func (s *Session) stageFuse() pipz.Processor[*Evaluation] {
	return Transform("fuse", func(_ context.Context, e *Evaluation) *Evaluation {
		e.Psi = (e.Alpha*e.Symbolic + (1-e.Alpha)*e.Neural) *
			e.PenaltyFactor * e.BiasedProbability

		e.Breakdown["symbolic"] = e.Symbolic
		e.Breakdown["neural"] = e.Neural
		e.Breakdown["alpha"] = e.Alpha
		e.Breakdown["cognitive_penalty"] = e.CognitivePenalty
		e.Breakdown["efficiency_penalty"] = e.EfficiencyPenalty
		e.Breakdown["penalty_factor"] = e.PenaltyFactor
		e.Breakdown["biased_probability"] = e.BiasedProbability
		e.Breakdown["psi"] = e.Psi
		return e
	})
}

// stageMeta audits the run.
func (s *Session) stageMeta() pipz.Processor[*Evaluation] {
	return Transform("meta", func(ctx context.Context, e *Evaluation) *Evaluation {
		e.Meta = s.controller.Analyze(ctx, e.Results, ExpressionState{
			Alpha:      e.Alpha,
			Complexity: ComplexityScore(e.Expression),
		})
		e.Tags["health"] = e.Meta.Health.String()
		return e
	})
}

// stageRewrite rewrites the expression when Ψ is low or any recommendation
// token is present, then applies the token-specific transforms.
func (s *Session) stageRewrite() pipz.Processor[*Evaluation] {
	return Do("rewrite", func(ctx context.Context, e *Evaluation) (*Evaluation, error) {
		if e.Psi >= s.cfg.RewriteThreshold && len(e.Meta.Recommendations) == 0 {
			e.Optimized = e.Expression
			return e, nil
		}

		out := s.scorer.OptimizeNotation(ctx, e.Expression, e.currentState())
		for _, rec := range e.Meta.Recommendations {
			out = s.applyRecommendation(rec, out, e)
		}
		if out == "" {
			out = e.Expression
		}
		e.Optimized = out
		return e, nil
	})
}

// applyRecommendation maps one recommendation token onto its transform.
// Exhaustive over Recommendation.
func (s *Session) applyRecommendation(rec Recommendation, expr string, e *Evaluation) string {
	switch rec {
	case RecommendRestoreAttention:
		return AddStructuralCues(expr)
	case RecommendSimplifyNotation:
		return SimplifyNotation(expr)
	case RecommendReduceComplexity:
		return CompactNotation(expr)
	case RecommendEnhanceClarity:
		return SpacedNotation(expr)
	case RecommendReduceBias:
		s.adjuster.ScaleStrengths(0.9)
		e.Tags["bias_reduced"] = "true"
		return expr
	case RecommendMonitorAttention:
		e.Tags["monitor_attention"] = "true"
		return expr
	}
	return expr
}

// currentState returns the last state of the finest scale in the run,
// falling back to a neutral state when simulation produced nothing.
func (e *Evaluation) currentState() StateVector {
	found := false
	finest := 0
	var state StateVector
	for _, r := range e.Results {
		if !found || r.Scale <= finest {
			finest = r.Scale
			state = r.State
			found = true
		}
	}
	if !found {
		return StateVector{Attention: 0.5, Recognition: 0.5, Wandering: 0.5, Timestamp: time.Now()}
	}
	return state
}
