package noesis

import (
	"strings"
	"unicode"
)

// SetOperation is the closed set of recognized set-theory operation types.
type SetOperation int

const (
	SetUnion SetOperation = iota
	SetIntersection
	SetCartesian
	SetPowerSet
	SetComplement
	SetDifference
	SetBuilder
)

// allSetOperations enumerates every variant for exhaustiveness checks.
var allSetOperations = []SetOperation{
	SetUnion,
	SetIntersection,
	SetCartesian,
	SetPowerSet,
	SetComplement,
	SetDifference,
	SetBuilder,
}

// String returns the operation tag. Exhaustive by construction.
func (op SetOperation) String() string {
	switch op {
	case SetUnion:
		return "union"
	case SetIntersection:
		return "intersection"
	case SetCartesian:
		return "cartesian"
	case SetPowerSet:
		return "power_set"
	case SetComplement:
		return "complement"
	case SetDifference:
		return "difference"
	case SetBuilder:
		return "builder"
	}
	return "unknown"
}

// StructureScore returns the rule-based symbolic confidence for the
// operation type. The switch is exhaustive; an added variant left unhandled
// falls through to the guard the tests reject.
func (op SetOperation) StructureScore() float64 {
	switch op {
	case SetUnion:
		return 0.9
	case SetIntersection:
		return 0.9
	case SetCartesian:
		return 0.85
	case SetPowerSet:
		return 0.8
	case SetComplement:
		return 0.88
	case SetDifference:
		return 0.87
	case SetBuilder:
		return 0.75
	}
	return 0
}

// ClassifySetExpression matches an expression against the recognized
// set-theory patterns. ok is false when nothing matches.
func ClassifySetExpression(expr string) (SetOperation, bool) {
	lower := strings.ToLower(expr)

	switch {
	case strings.ContainsRune(expr, '|') && strings.ContainsRune(expr, '{'):
		return SetBuilder, true
	case strings.Contains(expr, "𝒫(") || strings.Contains(expr, "P(") ||
		strings.Contains(lower, "power set"):
		return SetPowerSet, true
	case strings.ContainsRune(expr, '×') || strings.Contains(lower, " cross "):
		return SetCartesian, true
	case strings.ContainsRune(expr, '′') || strings.ContainsRune(expr, '∁') ||
		strings.Contains(lower, "complement"):
		return SetComplement, true
	case strings.ContainsRune(expr, '∖') || strings.Contains(lower, " minus "):
		return SetDifference, true
	case strings.ContainsRune(expr, '∪') || strings.Contains(lower, " union "):
		return SetUnion, true
	case strings.ContainsRune(expr, '∩') || strings.Contains(lower, " intersect "):
		return SetIntersection, true
	}
	return 0, false
}

// SymbolicScore computes S(x): the rule-based constant for a recognized set
// operation, or a decreasing function of operator count and parenthesis
// depth for generic algebraic text. parsed reports whether the expression
// matched a set-theory pattern.
func SymbolicScore(expr string) (score float64, parsed bool) {
	if op, ok := ClassifySetExpression(expr); ok {
		return op.StructureScore(), true
	}

	ops := operatorCount(expr)
	depth := parenDepth(expr)
	return clamp(0.9-0.05*float64(ops)-0.04*float64(depth), 0.2, 0.9), false
}

// operatorCount counts algebraic and set operators in the expression.
func operatorCount(expr string) int {
	count := 0
	for _, r := range expr {
		if strings.ContainsRune("+-*/^%=<>∪∩×∖∧∨¬", r) {
			count++
		}
	}
	return count
}

// parenDepth returns the maximum grouping depth of the expression.
func parenDepth(expr string) int {
	depth, max := 0, 0
	for _, r := range expr {
		switch r {
		case '(', '{', '[':
			depth++
			if depth > max {
				max = depth
			}
		case ')', '}', ']':
			if depth > 0 {
				depth--
			}
		}
	}
	return max
}

// ComplexityScore estimates expression complexity in [0, 1] from operator
// count, nesting depth and length.
func ComplexityScore(expr string) float64 {
	ops := float64(operatorCount(expr))
	depth := float64(parenDepth(expr))
	length := float64(len([]rune(expr)))
	return clamp01(0.15*ops + 0.2*depth + length/80)
}

// NotationStyle is the closed set of notation renderings.
type NotationStyle int

const (
	StyleCompact NotationStyle = iota
	StyleVerbose
	StyleMixed
)

// String returns the style tag. Exhaustive by construction.
func (st NotationStyle) String() string {
	switch st {
	case StyleCompact:
		return "compact"
	case StyleVerbose:
		return "verbose"
	case StyleMixed:
		return "mixed"
	}
	return "unknown"
}

// compactSymbols maps each compact symbol to its spelled-out form. The
// spelled-out forms are chosen so CompactNotation restores the symbol.
var compactSymbols = map[rune]string{
	'∪': " union ",
	'∩': " intersect ",
	'×': " cross ",
	'∖': " minus ",
	'∈': " in ",
	'⊆': " subset of ",
	'∅': " empty set ",
}

// verbosePhrases is the inverse of compactSymbols, ordered longest-first so
// re-compaction never matches inside a longer phrase.
var verbosePhrases = []struct {
	phrase string
	symbol string
}{
	{" subset of ", " ⊆ "},
	{" empty set ", " ∅ "},
	{" intersect ", " ∩ "},
	{" union ", " ∪ "},
	{" cross ", " × "},
	{" minus ", " ∖ "},
	{" in ", " ∈ "},
}

// classifyStyle judges how an expression is rendered: compact symbols,
// spelled-out words, or a mix of both.
func classifyStyle(expr string) NotationStyle {
	hasSymbols := false
	for r := range compactSymbols {
		if strings.ContainsRune(expr, r) {
			hasSymbols = true
			break
		}
	}

	hasWords := false
	for _, vp := range verbosePhrases {
		if strings.Contains(expr, vp.phrase) {
			hasWords = true
			break
		}
	}

	switch {
	case hasSymbols && hasWords:
		return StyleMixed
	case hasWords:
		return StyleVerbose
	default:
		return StyleCompact
	}
}

// SimplifyNotation replaces compact symbols with spelled-out words and
// normalizes spacing, producing the low-viability rendering.
func SimplifyNotation(expr string) string {
	var b strings.Builder
	for _, r := range expr {
		if word, ok := compactSymbols[r]; ok {
			b.WriteString(word)
		} else {
			b.WriteRune(r)
		}
	}
	return collapseSpaces(b.String())
}

// CompactNotation re-compacts spelled-out words back into symbols, the
// inverse of SimplifyNotation for expressions built from the known symbol
// set.
func CompactNotation(expr string) string {
	out := " " + expr + " "
	for _, vp := range verbosePhrases {
		out = strings.ReplaceAll(out, vp.phrase, vp.symbol)
	}
	return collapseSpaces(out)
}

// binarySymbols is the fixed split order for AddStructuralCues, so the
// transform is deterministic for expressions mixing several operators.
var binarySymbols = []rune{'∪', '∩', '×', '∖'}

// AddStructuralCues wraps the operands of top-level binary operators in
// parentheses, giving a wandering reader anchor points.
func AddStructuralCues(expr string) string {
	for _, r := range binarySymbols {
		symbol := string(r)
		if !strings.Contains(expr, symbol) {
			continue
		}
		parts := strings.SplitN(expr, symbol, 2)
		left := strings.TrimSpace(parts[0])
		right := strings.TrimSpace(parts[1])
		if left == "" || right == "" {
			continue
		}
		if !strings.HasPrefix(left, "(") {
			left = "(" + left + ")"
		}
		if !strings.HasPrefix(right, "(") {
			right = "(" + right + ")"
		}
		return left + " " + symbol + " " + right
	}
	return expr
}

// SpacedNotation ensures single spaces around every compact symbol without
// spelling anything out, the clarity-enhancing transform.
func SpacedNotation(expr string) string {
	var b strings.Builder
	for _, r := range expr {
		if _, ok := compactSymbols[r]; ok {
			b.WriteRune(' ')
			b.WriteRune(r)
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}
	return collapseSpaces(b.String())
}

// collapseSpaces trims the string and squeezes runs of whitespace to one
// space.
func collapseSpaces(s string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace {
			b.WriteRune(' ')
			inSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// symbolDensity is the fraction of non-space runes that are compact symbols
// or grouping characters.
func symbolDensity(expr string) float64 {
	var symbols, total int
	for _, r := range expr {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if _, ok := compactSymbols[r]; ok || strings.ContainsRune("(){}[]", r) {
			symbols++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(symbols) / float64(total)
}
