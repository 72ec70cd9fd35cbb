package progress

import "math"

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL CURVE
// ══════════════════════════════════════════════════════════════════════════════

// levelStep is 1/0.1: the curve is level = floor(0.1 * sqrt(xp)) + 1, so every
// level spans levelStep units of sqrt(xp).
const levelStep = 10

// MaxXP is the highest XP total a record can hold. It matches the INTEGER
// xp column, so every stored total fits in all backends.
const MaxXP = math.MaxInt32

// Level returns the level for the given XP. Negative XP counts as zero.
// It is computed with an exact integer square root so large totals never
// land one level off because of float rounding.
func Level(xp int) int {
	if xp <= 0 {
		return 1
	}
	return isqrt(xp)/levelStep + 1
}

// XPForCurrentLevel returns (level/0.1)², or 0 for level 1 and below.
func XPForCurrentLevel(level int) int {
	if level <= 1 {
		return 0
	}
	return levelStep * levelStep * level * level
}

// XPForNextLevel returns ((level+1)/0.1)².
func XPForNextLevel(level int) int {
	next := level + 1
	return levelStep * levelStep * next * next
}

// LevelProgress returns the progress bar percentage between the current and
// next level thresholds, clamped to [0, 100].
func LevelProgress(xp, level int) float64 {
	cur := XPForCurrentLevel(level)
	next := XPForNextLevel(level)
	span := next - cur
	if span <= 0 {
		return 100
	}
	pct := float64(xp-cur) / float64(span) * 100
	return math.Min(100, math.Max(0, pct))
}

// isqrt returns floor(sqrt(n)) for n >= 0. The comparisons divide instead of
// multiply so they cannot overflow near math.MaxInt.
func isqrt(n int) int {
	r := int(math.Sqrt(float64(n)))
	for r > 0 && r > n/r {
		r--
	}
	for r+1 <= n/(r+1) {
		r++
	}
	return r
}
