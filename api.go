// Package noesis provides a cognitive-weighted expression scoring engine for Go.
//
// noesis fuses several independently computed signals about a short symbolic
// expression - symbolic structure confidence, embedding-based semantic
// similarity, simulated attention/fatigue dynamics, fractal pattern statistics
// and a cognitive-bias adjustment - into a single Ψ score, and optionally
// rewrites the expression's notation to suit the simulated cognitive state.
//
// # Core Types
//
// The package is built around a handful of core concepts:
//
//   - [StateVector] - A bounded attention/recognition/wandering snapshot
//   - [ProcessingResult] - One state sample per (scale, tick)
//   - [Pattern] - A statistical pattern detected in a state time series
//   - [TermEmbedding] - A unit-norm term vector with an adaptive weight
//   - [Evaluation] - The rolling pipeline state for one optimization run
//   - [OptimizationResult] - The immutable result bundle of a run
//
// # Components
//
// Each stage of the engine is its own component:
//
//   - [Simulator] - Multi-scale concurrent cognitive state simulation
//   - [Detector] - Pure statistical pattern analysis (Hurst exponent,
//     fractal dimension, periodicity, attention dynamics)
//   - [EmbeddingStore] - Term vectors with similarity queries and
//     feedback-driven online updates
//   - [Scorer] - Lexical viability scoring, notation rewriting and the
//     quantized-state result cache
//   - [Adjuster] - Configurable cognitive-bias probability adjustment
//   - [Controller] - Attention drift audit, health classification and
//     recommendation tokens
//   - [Session] - The Ψ pipeline orchestrator with its worker pool
//
// # Running the Pipeline
//
// Create a session and submit expressions; each call returns a [Pending]
// future with a single join point:
//
//	session := noesis.NewSession(noesis.DefaultConfig())
//	defer session.Close()
//
//	pending := session.Optimize(ctx, "{1,2} ∪ {3,4}")
//	result, err := pending.Wait(ctx)
//
// # Pipeline Helpers
//
// noesis wraps pipz connectors for Evaluation processing:
//
//   - [Sequence] - Sequential execution
//   - [Filter] - Conditional execution
//   - [Switch] - Route to different processors
//   - [Fallback] - Try alternatives on failure
//   - [Timeout] - Enforce time limits
//   - [Concurrent] - Run processors in parallel
//
// # Persistence
//
// The [SoyArchive] implementation uses soy for PostgreSQL persistence of
// term embeddings (pgvector) and completed optimization results:
//
//	archive, err := noesis.NewSoyArchive(db)
//	session := noesis.NewSession(cfg, noesis.WithArchive(archive))
//
// # Observability
//
// noesis emits capitan signals throughout execution. See [signals.go] for
// the complete list of events including RunStarted, RunCompleted, RunFailed,
// StageCompleted, DriftDetected, HealthClassified and FeedbackApplied.
package noesis
