package noesis

import (
	"math"
	"sort"
)

// PatternType is the closed set of detectable pattern kinds.
type PatternType int

const (
	PatternTrend PatternType = iota
	PatternPeriodic
	PatternVolatility
	PatternFractalPersistence
	PatternSelfSimilarity
	PatternMultiFractal
	PatternQuadraticRecurrence
	PatternFeedbackLoop
	PatternAttentionCoupling
	PatternAttentionDecoupling
	PatternMindWanderingEpisode
	PatternAttentionSwitching
	PatternSampleEntropy
	PatternScaleInvariance
)

// String returns the pattern type tag. The switch is exhaustive; adding a
// variant without handling it here is a compile-time hole the tests close.
func (p PatternType) String() string {
	switch p {
	case PatternTrend:
		return "trend"
	case PatternPeriodic:
		return "periodic"
	case PatternVolatility:
		return "volatility"
	case PatternFractalPersistence:
		return "fractal_persistence"
	case PatternSelfSimilarity:
		return "self_similarity"
	case PatternMultiFractal:
		return "multi_fractal"
	case PatternQuadraticRecurrence:
		return "quadratic_recurrence"
	case PatternFeedbackLoop:
		return "feedback_loop"
	case PatternAttentionCoupling:
		return "attention_coupling"
	case PatternAttentionDecoupling:
		return "attention_decoupling"
	case PatternMindWanderingEpisode:
		return "mind_wandering_episode"
	case PatternAttentionSwitching:
		return "attention_switching"
	case PatternSampleEntropy:
		return "sample_entropy"
	case PatternScaleInvariance:
		return "scale_invariance"
	}
	return "unknown"
}

// allPatternTypes enumerates every variant for exhaustiveness checks.
var allPatternTypes = []PatternType{
	PatternTrend,
	PatternPeriodic,
	PatternVolatility,
	PatternFractalPersistence,
	PatternSelfSimilarity,
	PatternMultiFractal,
	PatternQuadraticRecurrence,
	PatternFeedbackLoop,
	PatternAttentionCoupling,
	PatternAttentionDecoupling,
	PatternMindWanderingEpisode,
	PatternAttentionSwitching,
	PatternSampleEntropy,
	PatternScaleInvariance,
}

// Pattern is one detected statistical pattern. Never mutated after creation.
type Pattern struct {
	Type            PatternType
	Confidence      float64
	Scale           int
	Characteristics map[string]float64
}

// minAnalysisPoints is the minimum series length the detector will analyze.
const minAnalysisPoints = 8

// Detector performs pure, stateless statistical analysis of a state-vector
// time series. Analyze is deterministic for a given input.
type Detector struct{}

// NewDetector creates a pattern detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Analyze inspects a state time series and returns every detected pattern,
// sorted by confidence descending. Series shorter than 8 points yield an
// empty list, never an error.
func (d *Detector) Analyze(series []StateVector) []Pattern {
	if len(series) < minAnalysisPoints {
		return nil
	}

	attention := make([]float64, len(series))
	recognition := make([]float64, len(series))
	wandering := make([]float64, len(series))
	for i, s := range series {
		attention[i] = s.Attention
		recognition[i] = s.Recognition
		wandering[i] = s.Wandering
	}

	var patterns []Pattern

	patterns = append(patterns, basicPatterns(attention)...)

	if p, ok := hurstPattern(attention); ok {
		patterns = append(patterns, p)
	}
	if p, ok := selfSimilarityPattern(attention); ok {
		patterns = append(patterns, p)
	}
	if p, ok := fractalDimensionPattern(attention); ok {
		patterns = append(patterns, p)
	}
	if p, ok := quadraticFitPattern(attention); ok {
		patterns = append(patterns, p)
	}
	if p, ok := feedbackLoopPattern(attention); ok {
		patterns = append(patterns, p)
	}

	patterns = append(patterns, attentionPatterns(attention, recognition, wandering)...)
	patterns = append(patterns, crossScalePatterns(attention)...)

	sort.SliceStable(patterns, func(a, b int) bool {
		return patterns[a].Confidence > patterns[b].Confidence
	})
	return patterns
}

// basicPatterns covers linear trend, autocorrelation periodicity and
// standard-deviation volatility.
func basicPatterns(series []float64) []Pattern {
	var patterns []Pattern

	slope := linearSlope(series)
	if math.Abs(slope) > 0.01 {
		patterns = append(patterns, Pattern{
			Type:       PatternTrend,
			Confidence: clamp01(math.Abs(slope) * 10),
			Scale:      1,
			Characteristics: map[string]float64{
				"slope": slope,
			},
		})
	}

	if lag, ac := dominantPeriod(series); lag > 0 {
		patterns = append(patterns, Pattern{
			Type:       PatternPeriodic,
			Confidence: clamp01(ac),
			Scale:      lag,
			Characteristics: map[string]float64{
				"period":          float64(lag),
				"autocorrelation": ac,
			},
		})
	}

	if sd := stddev(series); sd > 0.25 {
		patterns = append(patterns, Pattern{
			Type:       PatternVolatility,
			Confidence: clamp01(sd * 2),
			Scale:      1,
			Characteristics: map[string]float64{
				"stddev": sd,
			},
		})
	}

	return patterns
}

// hurstPattern reports long-range persistence when the rescaled-range Hurst
// exponent exceeds 0.5.
func hurstPattern(series []float64) (Pattern, bool) {
	h, ok := hurstExponent(series)
	if !ok || h <= 0.5 {
		return Pattern{}, false
	}
	return Pattern{
		Type:       PatternFractalPersistence,
		Confidence: clamp01(math.Abs(h-0.5) * 2),
		Scale:      len(series),
		Characteristics: map[string]float64{
			"hurst": h,
		},
	}, true
}

// hurstExponent estimates H via rescaled-range analysis on mean-adjusted
// cumulative deviations.
func hurstExponent(series []float64) (float64, bool) {
	n := len(series)
	if n < minAnalysisPoints {
		return 0, false
	}

	mean := meanOf(series)
	cum := make([]float64, n)
	var running float64
	for i, v := range series {
		running += v - mean
		cum[i] = running
	}

	r := maxOf(cum) - minOf(cum)
	s := stddev(series)
	if s == 0 || r == 0 {
		return 0, false
	}

	return math.Log(r/s) / math.Log(float64(n)), true
}

// selfSimilarityPattern correlates the series with its 2x and 4x
// box-averaged downsamples.
func selfSimilarityPattern(series []float64) (Pattern, bool) {
	c2 := downsampleCorrelation(series, 2)
	c4 := downsampleCorrelation(series, 4)
	avg := (c2 + c4) / 2
	if avg <= 0.6 {
		return Pattern{}, false
	}
	return Pattern{
		Type:       PatternSelfSimilarity,
		Confidence: clamp01(avg),
		Scale:      4,
		Characteristics: map[string]float64{
			"correlation_2x": c2,
			"correlation_4x": c4,
		},
	}, true
}

// downsampleCorrelation box-averages the series by factor, stretches it back
// to full length and correlates it with the original.
func downsampleCorrelation(series []float64, factor int) float64 {
	n := len(series)
	if n < factor*2 {
		return 0
	}

	boxes := n / factor
	stretched := make([]float64, 0, boxes*factor)
	for b := 0; b < boxes; b++ {
		var sum float64
		for i := 0; i < factor; i++ {
			sum += series[b*factor+i]
		}
		avg := sum / float64(factor)
		for i := 0; i < factor; i++ {
			stretched = append(stretched, avg)
		}
	}

	return correlation(series[:len(stretched)], stretched)
}

// boxSizes are the five fixed box sizes used for box-counting.
var boxSizes = []int{2, 3, 4, 5, 6}

// fractalDimensionPattern estimates a fractal dimension by box-counting the
// series graph at the five fixed box sizes and fitting the slope of
// log(count) versus log(size).
func fractalDimensionPattern(series []float64) (Pattern, bool) {
	lo, hi := minOf(series), maxOf(series)
	if hi-lo == 0 {
		return Pattern{}, false
	}

	logSizes := make([]float64, 0, len(boxSizes))
	logCounts := make([]float64, 0, len(boxSizes))

	for _, size := range boxSizes {
		cells := make(map[[2]int]struct{})
		for i, v := range series {
			tCell := i / size
			yCell := int(float64(size) * (v - lo) / (hi - lo))
			cells[[2]int{tCell, yCell}] = struct{}{}
		}
		logSizes = append(logSizes, math.Log(float64(size)))
		logCounts = append(logCounts, math.Log(float64(len(cells))))
	}

	// Counts shrink as boxes grow; dimension is the negated slope.
	dim := -slopeOf(logSizes, logCounts)
	if dim <= 1.05 {
		return Pattern{}, false
	}

	return Pattern{
		Type:       PatternMultiFractal,
		Confidence: clamp01(dim - 1),
		Scale:      len(series),
		Characteristics: map[string]float64{
			"dimension": dim,
		},
	}, true
}

// quadraticFitPattern grid-searches the recurrence constant c maximizing the
// fraction of steps matching z' ≈ z² + c within tolerance.
func quadraticFitPattern(series []float64) (Pattern, bool) {
	const tolerance = 0.5

	bestC, bestFit := 0.0, 0.0
	for c := -1.0; c <= 1.0+1e-9; c += 0.1 {
		matches := 0
		for i := 0; i < len(series)-1; i++ {
			predicted := series[i]*series[i] + c
			if math.Abs(series[i+1]-predicted) < tolerance {
				matches++
			}
		}
		fit := float64(matches) / float64(len(series)-1)
		if fit > bestFit {
			bestFit, bestC = fit, c
		}
	}

	if bestFit <= 0.6 {
		return Pattern{}, false
	}

	return Pattern{
		Type:       PatternQuadraticRecurrence,
		Confidence: clamp01(bestFit),
		Scale:      1,
		Characteristics: map[string]float64{
			"constant": bestC,
			"fit":      bestFit,
		},
	}, true
}

// feedbackLoopPattern averages |autocorrelation| over lags 1-4.
func feedbackLoopPattern(series []float64) (Pattern, bool) {
	var sum float64
	for lag := 1; lag <= 4; lag++ {
		sum += math.Abs(autocorrelation(series, lag))
	}
	avg := sum / 4
	if avg <= 0.3 {
		return Pattern{}, false
	}
	return Pattern{
		Type:       PatternFeedbackLoop,
		Confidence: clamp01(avg * 2),
		Scale:      4,
		Characteristics: map[string]float64{
			"mean_abs_autocorrelation": avg,
		},
	}, true
}

// attentionPatterns covers coupling between the first two dimensions,
// mind-wandering episodes and attention switching frequency.
func attentionPatterns(attention, recognition, wandering []float64) []Pattern {
	var patterns []Pattern

	if corr := correlation(attention, recognition); math.Abs(corr) > 0.7 {
		pt := PatternAttentionCoupling
		if corr < 0 {
			pt = PatternAttentionDecoupling
		}
		patterns = append(patterns, Pattern{
			Type:       pt,
			Confidence: clamp01(math.Abs(corr)),
			Scale:      1,
			Characteristics: map[string]float64{
				"correlation": corr,
			},
		})
	}

	if mw := meanOf(wandering); mw > 0.6 {
		patterns = append(patterns, Pattern{
			Type:       PatternMindWanderingEpisode,
			Confidence: clamp01(mw),
			Scale:      1,
			Characteristics: map[string]float64{
				"mean_wandering": mw,
			},
		})
	}

	switches := 0
	for i := 0; i < len(attention)-1; i++ {
		if math.Abs(attention[i+1]-attention[i]) > 0.1 {
			switches++
		}
	}
	if ratio := float64(switches) / float64(len(attention)); ratio > 0.3 {
		patterns = append(patterns, Pattern{
			Type:       PatternAttentionSwitching,
			Confidence: clamp01(ratio),
			Scale:      1,
			Characteristics: map[string]float64{
				"switch_ratio": ratio,
				"switches":     float64(switches),
			},
		})
	}

	return patterns
}

// crossScalePatterns covers sample entropy and variance-ratio scale
// invariance across 1x/2x/4x downsamples.
func crossScalePatterns(series []float64) []Pattern {
	var patterns []Pattern

	if se, ok := sampleEntropy(series, 2, 0.2*stddev(series)); ok {
		// Low entropy means a regular, predictable series.
		patterns = append(patterns, Pattern{
			Type:       PatternSampleEntropy,
			Confidence: clamp01(1 / (1 + se)),
			Scale:      2,
			Characteristics: map[string]float64{
				"entropy": se,
			},
		})
	}

	v1 := variance(series)
	v2 := variance(boxAverage(series, 2))
	v4 := variance(boxAverage(series, 4))
	if v1 > 0 && v2 > 0 && v4 > 0 {
		r2 := ratioSimilarity(v1, v2)
		r4 := ratioSimilarity(v1, v4)
		sim := (r2 + r4) / 2
		if sim > 0.5 {
			patterns = append(patterns, Pattern{
				Type:       PatternScaleInvariance,
				Confidence: clamp01(sim),
				Scale:      4,
				Characteristics: map[string]float64{
					"variance_1x": v1,
					"variance_2x": v2,
					"variance_4x": v4,
				},
			})
		}
	}

	return patterns
}

// sampleEntropy computes SampEn(m, r). ok is false when no template matches
// exist at either length.
func sampleEntropy(series []float64, m int, r float64) (float64, bool) {
	n := len(series)
	if n <= m+1 || r <= 0 {
		return 0, false
	}

	count := func(length int) int {
		matches := 0
		for i := 0; i+length <= n; i++ {
			for j := i + 1; j+length <= n; j++ {
				match := true
				for k := 0; k < length; k++ {
					if math.Abs(series[i+k]-series[j+k]) > r {
						match = false
						break
					}
				}
				if match {
					matches++
				}
			}
		}
		return matches
	}

	b := count(m)
	a := count(m + 1)
	if a == 0 || b == 0 {
		return 0, false
	}
	return -math.Log(float64(a) / float64(b)), true
}

// boxAverage downsamples a series by averaging boxes of the given factor.
func boxAverage(series []float64, factor int) []float64 {
	boxes := len(series) / factor
	out := make([]float64, 0, boxes)
	for b := 0; b < boxes; b++ {
		var sum float64
		for i := 0; i < factor; i++ {
			sum += series[b*factor+i]
		}
		out = append(out, sum/float64(factor))
	}
	return out
}

// ratioSimilarity maps how close a/b is to 1 into [0, 1].
func ratioSimilarity(a, b float64) float64 {
	if a == 0 || b == 0 {
		return 0
	}
	ratio := a / b
	if ratio > 1 {
		ratio = 1 / ratio
	}
	return ratio
}

// -----------------------------------------------------------------------------
// Series statistics
// -----------------------------------------------------------------------------

func meanOf(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series))
}

func variance(series []float64) float64 {
	n := len(series)
	if n == 0 {
		return 0
	}
	mean := meanOf(series)
	var sum float64
	for _, v := range series {
		d := v - mean
		sum += d * d
	}
	return sum / float64(n)
}

func stddev(series []float64) float64 {
	return math.Sqrt(variance(series))
}

func minOf(series []float64) float64 {
	m := series[0]
	for _, v := range series[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(series []float64) float64 {
	m := series[0]
	for _, v := range series[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// linearSlope fits y = a + b*x over index positions and returns b.
func linearSlope(series []float64) float64 {
	xs := make([]float64, len(series))
	for i := range xs {
		xs[i] = float64(i)
	}
	return slopeOf(xs, series)
}

// slopeOf is the least-squares slope of ys over xs.
func slopeOf(xs, ys []float64) float64 {
	n := float64(len(xs))
	if n < 2 {
		return 0
	}
	mx, my := meanOf(xs), meanOf(ys)
	var num, den float64
	for i := range xs {
		num += (xs[i] - mx) * (ys[i] - my)
		den += (xs[i] - mx) * (xs[i] - mx)
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// correlation is the Pearson correlation of two equal-length series.
func correlation(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	ma, mb := meanOf(a), meanOf(b)
	var num, da, db float64
	for i := range a {
		num += (a[i] - ma) * (b[i] - mb)
		da += (a[i] - ma) * (a[i] - ma)
		db += (b[i] - mb) * (b[i] - mb)
	}
	if da == 0 || db == 0 {
		return 0
	}
	return num / math.Sqrt(da*db)
}

// autocorrelation is the lagged self-correlation of a series.
func autocorrelation(series []float64, lag int) float64 {
	if lag <= 0 || lag >= len(series) {
		return 0
	}
	return correlation(series[:len(series)-lag], series[lag:])
}

// dominantPeriod scans lags 2..n/2 for the strongest autocorrelation above
// 0.5 and returns it along with the correlation.
func dominantPeriod(series []float64) (int, float64) {
	bestLag, bestAC := 0, 0.5
	for lag := 2; lag <= len(series)/2; lag++ {
		if ac := autocorrelation(series, lag); ac > bestAC {
			bestLag, bestAC = lag, ac
		}
	}
	if bestLag == 0 {
		return 0, 0
	}
	return bestLag, bestAC
}
