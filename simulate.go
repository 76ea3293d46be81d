package noesis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
	"unicode"

	"github.com/zoobzio/capitan"
	"golang.org/x/sync/errgroup"
)

// Simulating is the cognitive state simulation contract consumed by the
// Ψ pipeline. Implementations must complete every scale task before
// returning (barrier join); no scale task may outlive the call.
type Simulating interface {
	Simulate(ctx context.Context, input string, steps int) ([]ProcessingResult, error)
}

// Simulator evolves one bounded state vector per scale via the quadratic
// recurrence z' = clamp(z² + c), where c is derived from input novelty.
// Scales run concurrently and join synchronously per Simulate call.
//
// Results are grouped by scale; callers must not assume global time
// ordering across scales beyond per-scale monotonicity.
type Simulator struct {
	cfg Config

	mu      sync.Mutex
	history map[int][]StateVector // rolling per-scale history, oldest evicted
}

// NewSimulator creates a simulator with cfg.Scales concurrent scales.
func NewSimulator(cfg Config) *Simulator {
	return &Simulator{
		cfg:     cfg.withDefaults(),
		history: make(map[int][]StateVector),
	}
}

// Simulate runs every scale for the given number of steps and returns one
// ProcessingResult per (scale, tick). The call blocks until all scale tasks
// have completed.
func (s *Simulator) Simulate(ctx context.Context, input string, steps int) ([]ProcessingResult, error) {
	if steps <= 0 {
		steps = s.cfg.Steps
	}

	novelty := inputNovelty(input)
	drive := recurrenceDrive(input, novelty)

	type scaleResult struct {
		scale   int
		results []ProcessingResult
	}

	out := make([]scaleResult, s.cfg.Scales)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < s.cfg.Scales; i++ {
		scale := 1 << i
		idx := i
		g.Go(func() error {
			results, err := s.runScale(ctx, scale, steps, drive)
			if err != nil {
				return fmt.Errorf("scale %d: %w", scale, err)
			}
			out[idx] = scaleResult{scale: scale, results: results}
			return nil
		})
	}

	// Barrier join: every scale completes (or fails) before we return.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]ProcessingResult, 0, s.cfg.Scales*steps)
	sort.Slice(out, func(a, b int) bool { return out[a].scale < out[b].scale })
	for _, sr := range out {
		results = append(results, sr.results...)
	}

	capitan.Emit(ctx, SimulationCompleted,
		FieldSteps.Field(steps),
		FieldResultCount.Field(len(results)),
	)

	return results, nil
}

// runScale evolves one scale's state vector for the requested steps and
// appends the trajectory to the scale's bounded history.
func (s *Simulator) runScale(ctx context.Context, scale, steps int, drive stateDrive) ([]ProcessingResult, error) {
	state := s.resumeState(scale, drive)

	results := make([]ProcessingResult, 0, steps)
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		// Coarser scales update less often; between updates the state is
		// held, so every scale follows the same recurrence at its own tempo.
		if i%scale == 0 {
			state = StateVector{
				Attention:   state.Attention*state.Attention + drive.attention,
				Recognition: state.Recognition*state.Recognition + drive.recognition,
				Wandering:   state.Wandering*state.Wandering + drive.wandering,
				Timestamp:   time.Now(),
			}.Clamped()
		} else {
			state.Timestamp = time.Now()
		}

		results = append(results, ProcessingResult{
			Scale:         scale,
			State:         state,
			CognitiveLoad: state.CognitiveLoad(),
		})
	}

	s.appendHistory(scale, results)
	return results, nil
}

// resumeState continues from the last recorded state for scale, or seeds a
// fresh one from the drive.
func (s *Simulator) resumeState(scale int, drive stateDrive) StateVector {
	s.mu.Lock()
	defer s.mu.Unlock()

	if hist := s.history[scale]; len(hist) > 0 {
		return hist[len(hist)-1]
	}

	return StateVector{
		Attention:   0.7,
		Recognition: 0.5,
		Wandering:   clamp01(0.2 + drive.wandering/2),
		Timestamp:   time.Now(),
	}
}

// appendHistory records a trajectory, evicting the oldest entries beyond the
// configured limit.
func (s *Simulator) appendHistory(scale int, results []ProcessingResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hist := s.history[scale]
	for _, r := range results {
		hist = append(hist, r.State)
	}
	if excess := len(hist) - s.cfg.HistoryLimit; excess > 0 {
		hist = hist[excess:]
	}
	s.history[scale] = hist
}

// History returns a snapshot of the rolling state history for scale.
func (s *Simulator) History(scale int) []StateVector {
	s.mu.Lock()
	defer s.mu.Unlock()

	hist := s.history[scale]
	out := make([]StateVector, len(hist))
	copy(out, hist)
	return out
}

// stateDrive is the per-component recurrence constant c.
type stateDrive struct {
	attention   float64
	recognition float64
	wandering   float64
}

// recurrenceDrive derives c from input novelty. Absence of input biases the
// wandering component toward its drifting constant.
func recurrenceDrive(input string, novelty float64) stateDrive {
	if input == "" {
		return stateDrive{
			attention:   0.05,
			recognition: 0.08,
			wandering:   0.45,
		}
	}
	return stateDrive{
		attention:   0.05 + 0.25*novelty,
		recognition: 0.1 + 0.15*novelty,
		wandering:   0.35 * (1 - novelty),
	}
}

// inputNovelty estimates how novel an input expression is in [0, 1], from
// rune diversity and symbolic density.
func inputNovelty(input string) float64 {
	if input == "" {
		return 0
	}

	seen := make(map[rune]struct{})
	var symbols, total int
	for _, r := range input {
		if unicode.IsSpace(r) {
			continue
		}
		seen[r] = struct{}{}
		total++
		if r > unicode.MaxASCII || unicode.IsSymbol(r) || unicode.IsPunct(r) {
			symbols++
		}
	}
	if total == 0 {
		return 0
	}

	diversity := float64(len(seen)) / float64(total)
	density := float64(symbols) / float64(total)
	return clamp01(0.6*diversity + 0.4*density)
}
