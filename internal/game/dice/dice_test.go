package dice_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/qudex/internal/game/dice"
)

func TestParse_PlainNumber(t *testing.T) {
	e, err := dice.Parse("17")
	require.NoError(t, err)
	assert.True(t, e.IsConstant())
	assert.Equal(t, 17, e.Average())
	assert.Equal(t, "17", e.Range())
}

func TestParse_BaseModifier(t *testing.T) {
	v, err := dice.Resolve("10+5")
	require.NoError(t, err)
	assert.Equal(t, 15, v)

	v, err = dice.Resolve("10 - 3")
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestParse_SignedConstant(t *testing.T) {
	v, err := dice.Resolve("-2")
	require.NoError(t, err)
	assert.Equal(t, -2, v)

	v, err = dice.Resolve("+3")
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestParse_Dice(t *testing.T) {
	e, err := dice.Parse("2d6+3")
	require.NoError(t, err)
	assert.False(t, e.IsConstant())
	assert.Equal(t, 10, e.Average())
	assert.Equal(t, 5, e.Minimum())
	assert.Equal(t, 15, e.Maximum())
	assert.Equal(t, "5-15", e.Range())
	assert.Equal(t, "2d6+3", e.String())
}

func TestParse_OmittedCount(t *testing.T) {
	e, err := dice.Parse("d20")
	require.NoError(t, err)
	require.Len(t, e.Segments, 1)
	assert.Equal(t, dice.Segment{Count: 1, Sides: 20}, e.Segments[0])
}

func TestParse_NegativeDice(t *testing.T) {
	e, err := dice.Parse("3d6+1-2d2")
	require.NoError(t, err)
	assert.Equal(t, 8, e.Average()) // 10.5 + 1 - 3 = 8.5
	assert.Equal(t, 0, e.Minimum()) // 3 + 1 - 4
	assert.Equal(t, 17, e.Maximum()) // 18 + 1 - 2
	assert.Equal(t, "3d6+1-2d2", e.String())
}

func TestParse_AverageTruncates(t *testing.T) {
	v, err := dice.Resolve("1d4")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	// -2.5 truncates toward zero, not down to -3.
	e, err := dice.Parse("-1d4")
	require.NoError(t, err)
	assert.Equal(t, -2, e.Average())
}

func TestParse_Errors(t *testing.T) {
	for _, expr := range []string{"", "   ", "abc", "2d", "2d0", "1d6+", "++3", "1.5", "2x6"} {
		_, err := dice.Parse(expr)
		assert.Error(t, err, "expression %q must be rejected", expr)
	}
}

func TestParse_RejectsOversizedTerms(t *testing.T) {
	for _, expr := range []string{
		"2d9223372036854775807",
		"9223372036854775807d6",
		"1000001d6",
		"1d1000001",
		"1000000001",
		"5-1000000001",
	} {
		_, err := dice.Parse(expr)
		assert.Error(t, err, "expression %q must be rejected", expr)
	}

	e, err := dice.Parse("1000000d1000000+1000000000")
	require.NoError(t, err)
	assert.Equal(t, 1_000_000*1_000_000+1_000_000_000, e.Maximum())
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { dice.MustParse("nope") })
	assert.NotPanics(t, func() { dice.MustParse("1d8") })
}

func TestSValue(t *testing.T) {
	v, err := dice.SValue("16,1d3,(t-1)d2", 10)
	require.NoError(t, err)
	// t = 3: 16 + 2 + avg(2d2)=3
	assert.Equal(t, 21, v)
}

func TestSValue_TierBelowZeroCountsAsZero(t *testing.T) {
	v, err := dice.SValue("12,(t-4)d6", 0)
	require.NoError(t, err)
	assert.Equal(t, 12, v)
}

func TestSValue_PlainTier(t *testing.T) {
	v, err := dice.SValue("(t)", 14)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestSValue_Errors(t *testing.T) {
	_, err := dice.SValue("", 1)
	assert.Error(t, err)
	_, err = dice.SValue("16,bogus", 1)
	assert.Error(t, err)
}

func TestTier(t *testing.T) {
	assert.Equal(t, 1, dice.Tier(0))
	assert.Equal(t, 1, dice.Tier(4))
	assert.Equal(t, 2, dice.Tier(5))
	assert.Equal(t, 7, dice.Tier(30))
}

// TestResolve_Property_Constants verifies that base+modifier sums resolve exactly.
func TestResolve_Property_Constants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		base := rapid.IntRange(-1000, 1000).Draw(rt, "base")
		mod := rapid.IntRange(-1000, 1000).Draw(rt, "mod")
		expr := fmt.Sprintf("%d%+d", base, mod)
		v, err := dice.Resolve(expr)
		require.NoError(rt, err)
		assert.Equal(rt, base+mod, v)
	})
}

// TestExpression_Property_Bounds verifies Minimum <= Average <= Maximum for
// arbitrary non-negative dice expressions.
func TestExpression_Property_Bounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(0, 20).Draw(rt, "count")
		sides := rapid.IntRange(1, 100).Draw(rt, "sides")
		mod := rapid.IntRange(-50, 50).Draw(rt, "mod")
		e, err := dice.Parse(fmt.Sprintf("%dd%d%+d", count, sides, mod))
		require.NoError(rt, err)
		assert.LessOrEqual(rt, e.Minimum(), e.Average())
		assert.LessOrEqual(rt, e.Average(), e.Maximum())
	})
}

// TestExpression_Property_StringRoundTrip verifies the canonical form parses
// back to the same segments.
func TestExpression_Property_StringRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 10).Draw(rt, "count")
		sides := rapid.IntRange(2, 20).Draw(rt, "sides")
		mod := rapid.IntRange(1, 9).Draw(rt, "mod")
		e := dice.MustParse(fmt.Sprintf("%dd%d-%d", count, sides, mod))
		again, err := dice.Parse(e.String())
		require.NoError(rt, err)
		assert.Equal(rt, e.Segments, again.Segments)
	})
}
