package progress

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevel_KnownValues(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{-50, 1},
		{0, 1},
		{99, 1},
		{100, 2},
		{399, 2},
		{400, 3},
		{2500, 6},
		{8099, 9},
		{8100, 10},
		{1_000_000, 101},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Level(tt.xp), "xp=%d", tt.xp)
	}
}

func TestLevel_MonotonicAndAtLeastOne(t *testing.T) {
	prev := Level(0)
	for xp := 0; xp <= 50_000; xp += 7 {
		l := Level(xp)
		assert.GreaterOrEqual(t, l, 1)
		if l < prev {
			t.Fatalf("level decreased at xp=%d: %d < %d", xp, l, prev)
		}
		prev = l
	}
}

func TestXPThresholds(t *testing.T) {
	assert.Equal(t, 0, XPForCurrentLevel(0))
	assert.Equal(t, 0, XPForCurrentLevel(1))
	assert.Equal(t, 400, XPForCurrentLevel(2))
	assert.Equal(t, 900, XPForCurrentLevel(3))
	assert.Equal(t, 400, XPForNextLevel(1))
	assert.Equal(t, 900, XPForNextLevel(2))
}

func TestLevelProgress_Clamped(t *testing.T) {
	assert.Equal(t, 0.0, LevelProgress(0, 1))
	assert.InDelta(t, 50.0, LevelProgress(200, 1), 1e-9)
	assert.Equal(t, 100.0, LevelProgress(10_000, 1))
	// Level 2 starts its bar at 400 XP, so 150 XP is below the bar.
	assert.Equal(t, 0.0, LevelProgress(150, 2))
}

func TestLevel_ExtremeXP(t *testing.T) {
	assert.Equal(t, 4635, Level(MaxXP))
	assert.Equal(t, 303700050, Level(math.MaxInt64))
}

func TestIsqrt_ExactNearIntLimits(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 4, 2499, 2500, 2501, MaxXP, math.MaxInt64 - 1, math.MaxInt64} {
		r := uint64(isqrt(n))
		assert.LessOrEqual(t, r*r, uint64(n), "n=%d", n)
		assert.Greater(t, (r+1)*(r+1), uint64(n), "n=%d", n)
	}
}
