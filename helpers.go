package noesis

import (
	"context"
	"time"

	"github.com/zoobzio/pipz"
)

// -----------------------------------------------------------------------------
// Adapter Functions - wrap functions to create Evaluation processors
// -----------------------------------------------------------------------------

// Do creates a processor from a custom function that can fail.
// This is the easiest way to add custom stages to a scoring pipeline.
//
// Example:
//
//	floor := noesis.Do("psi-floor", func(ctx context.Context, e *noesis.Evaluation) (*noesis.Evaluation, error) {
//	    if e.Psi < 0 {
//	        return e, fmt.Errorf("negative psi: %f", e.Psi)
//	    }
//	    return e, nil
//	})
func Do(name string, fn func(context.Context, *Evaluation) (*Evaluation, error)) pipz.Processor[*Evaluation] {
	return pipz.Apply(pipz.Name(name), fn)
}

// Transform creates a processor from a pure transformation function.
// Use this when your stage cannot fail.
func Transform(name string, fn func(context.Context, *Evaluation) *Evaluation) pipz.Processor[*Evaluation] {
	return pipz.Transform(pipz.Name(name), fn)
}

// Effect creates a processor that performs a side effect without modifying
// the evaluation. Use this for logging, metrics, or other observational
// stages.
func Effect(name string, fn func(context.Context, *Evaluation) error) pipz.Processor[*Evaluation] {
	return pipz.Effect(pipz.Name(name), fn)
}

// Mutate creates a processor that conditionally modifies an evaluation.
// The modification is only applied if the predicate returns true.
func Mutate(name string, fn func(context.Context, *Evaluation) *Evaluation, predicate func(context.Context, *Evaluation) bool) pipz.Processor[*Evaluation] {
	return pipz.Mutate(pipz.Name(name), fn, predicate)
}

// -----------------------------------------------------------------------------
// Sequential Connectors
// -----------------------------------------------------------------------------

// Sequence creates a sequential pipeline of evaluation processors.
// Each processor receives the output of the previous one.
//
// Example:
//
//	pipeline := noesis.Sequence("scoring",
//	    simulateStage,
//	    symbolicStage,
//	    fuseStage,
//	)
func Sequence(name string, processors ...pipz.Chainable[*Evaluation]) *pipz.Sequence[*Evaluation] {
	return pipz.NewSequence(pipz.Name(name), processors...)
}

// -----------------------------------------------------------------------------
// Control Flow Connectors
// -----------------------------------------------------------------------------

// Filter creates a conditional processor that either processes or passes
// through. When the predicate returns true, the processor is executed.
func Filter(name string, predicate func(context.Context, *Evaluation) bool, processor pipz.Chainable[*Evaluation]) *pipz.Filter[*Evaluation] {
	return pipz.NewFilter(pipz.Name(name), predicate, processor)
}

// Switch creates a router that directs evaluations to different processors.
// The condition function returns a route key; register handlers with
// AddRoute.
func Switch[K comparable](name string, condition func(context.Context, *Evaluation) K) *pipz.Switch[*Evaluation, K] {
	return pipz.NewSwitch(pipz.Name(name), condition)
}

// -----------------------------------------------------------------------------
// Error Handling Connectors
// -----------------------------------------------------------------------------

// Fallback creates a processor that tries alternatives on failure.
// Each processor is tried in order until one succeeds.
func Fallback(name string, processors ...pipz.Chainable[*Evaluation]) *pipz.Fallback[*Evaluation] {
	return pipz.NewFallback(pipz.Name(name), processors...)
}

// Timeout creates a processor that enforces a time limit on execution.
// The pipeline itself carries no internal deadline; bounding a run is the
// caller's job, and this connector is the hook for it.
func Timeout(name string, processor pipz.Chainable[*Evaluation], duration time.Duration) *pipz.Timeout[*Evaluation] {
	return pipz.NewTimeout(pipz.Name(name), processor, duration)
}

// Handle creates a processor that observes errors without stopping the
// pipeline. The error handler receives a pipz.Error[*Evaluation] with full
// context.
func Handle(name string, processor pipz.Chainable[*Evaluation], errorHandler pipz.Chainable[*pipz.Error[*Evaluation]]) *pipz.Handle[*Evaluation] {
	return pipz.NewHandle(pipz.Name(name), processor, errorHandler)
}

// -----------------------------------------------------------------------------
// Parallel Connectors
// These require *Evaluation to implement pipz.Cloner[*Evaluation]
// (see psi.go Clone())
// -----------------------------------------------------------------------------

// Concurrent runs all processors in parallel and returns the original
// evaluation. Each processor receives an isolated clone; use the reducer to
// aggregate results.
func Concurrent(name string, reducer func(original *Evaluation, results map[pipz.Name]*Evaluation, errors map[pipz.Name]error) *Evaluation, processors ...pipz.Chainable[*Evaluation]) *pipz.Concurrent[*Evaluation] {
	return pipz.NewConcurrent(pipz.Name(name), reducer, processors...)
}

// Race runs all processors in parallel and returns the first successful
// result.
func Race(name string, processors ...pipz.Chainable[*Evaluation]) *pipz.Race[*Evaluation] {
	return pipz.NewRace(pipz.Name(name), processors...)
}

// WorkerPool creates a bounded parallel executor with a fixed number of
// workers.
func WorkerPool(name string, workers int, processors ...pipz.Chainable[*Evaluation]) *pipz.WorkerPool[*Evaluation] {
	return pipz.NewWorkerPool(pipz.Name(name), workers, processors...)
}
