package noesis

import "github.com/zoobzio/capitan"

// Signal definitions for scoring engine events.
// Signals follow the pattern: noesis.<entity>.<event>.
var (
	// Optimization run lifecycle signals.
	RunStarted = capitan.NewSignal(
		"noesis.run.started",
		"Optimization run accepted by the worker pool",
	)
	RunCompleted = capitan.NewSignal(
		"noesis.run.completed",
		"Optimization run produced a result bundle",
	)
	RunFailed = capitan.NewSignal(
		"noesis.run.failed",
		"Optimization run aborted with a diagnostic tag",
	)

	// Pipeline stage signals.
	StageCompleted = capitan.NewSignal(
		"noesis.stage.completed",
		"Pipeline stage finished",
	)

	// Simulation signals.
	SimulationCompleted = capitan.NewSignal(
		"noesis.simulation.completed",
		"All scale tasks joined at the simulation barrier",
	)

	// Pattern detection signals.
	PatternDetected = capitan.NewSignal(
		"noesis.pattern.detected",
		"Statistical pattern found in state time series",
	)

	// Embedding store signals.
	EmbeddingStored = capitan.NewSignal(
		"noesis.embedding.stored",
		"Term embedding inserted or replaced",
	)
	FeedbackApplied = capitan.NewSignal(
		"noesis.embedding.feedback",
		"Feedback update moved a term vector and adjusted its weight",
	)

	// Viability cache signals.
	CacheHit = capitan.NewSignal(
		"noesis.cache.hit",
		"Viability served from the quantized-state cache",
	)
	CacheMiss = capitan.NewSignal(
		"noesis.cache.miss",
		"Viability recomputed and cached",
	)
	CacheInvalidated = capitan.NewSignal(
		"noesis.cache.invalidated",
		"Viability cache cleared after a profile change",
	)

	// Meta controller signals.
	DriftDetected = capitan.NewSignal(
		"noesis.meta.drift",
		"Abrupt attention change between adjacent processing steps",
	)
	HealthClassified = capitan.NewSignal(
		"noesis.meta.health",
		"System health classified from results and drift events",
	)

	// Notation signals.
	NotationRewritten = capitan.NewSignal(
		"noesis.notation.rewritten",
		"Expression notation rewritten after scoring",
	)

	// Archive signals.
	ArchiveSaved = capitan.NewSignal(
		"noesis.archive.saved",
		"Result or embedding persisted to the archive",
	)
	ArchiveFailed = capitan.NewSignal(
		"noesis.archive.failed",
		"Archive write failed; run result unaffected",
	)
)

// Field keys for engine event data.
var (
	// Run metadata.
	FieldTraceID    = capitan.NewStringKey("trace_id")
	FieldExpression = capitan.NewStringKey("expression")
	FieldSessionID  = capitan.NewStringKey("session_id")

	// Stage metadata.
	FieldStage         = capitan.NewStringKey("stage")
	FieldStageDuration = capitan.NewDurationKey("stage_duration")

	// Scores.
	FieldPsi      = capitan.NewFloat32Key("psi")
	FieldAlpha    = capitan.NewFloat32Key("alpha")
	FieldSymbolic = capitan.NewFloat32Key("symbolic")
	FieldNeural   = capitan.NewFloat32Key("neural")

	// Simulation metrics.
	FieldScale       = capitan.NewIntKey("scale")
	FieldSteps       = capitan.NewIntKey("steps")
	FieldResultCount = capitan.NewIntKey("result_count")

	// Pattern metadata.
	FieldPatternType = capitan.NewStringKey("pattern_type")
	FieldConfidence  = capitan.NewFloat32Key("confidence")

	// Embedding metadata.
	FieldTerm           = capitan.NewStringKey("term")
	FieldAdaptiveWeight = capitan.NewFloat32Key("adaptive_weight")
	FieldSuccess        = capitan.NewStringKey("success")

	// Cache metadata.
	FieldCacheKey  = capitan.NewStringKey("cache_key")
	FieldCacheSize = capitan.NewIntKey("cache_size")

	// Meta metadata.
	FieldHealth     = capitan.NewStringKey("health")
	FieldDriftCount = capitan.NewIntKey("drift_count")
	FieldDriftDelta = capitan.NewFloat32Key("drift_delta")

	// Error information.
	FieldError = capitan.NewErrorKey("error")
)
