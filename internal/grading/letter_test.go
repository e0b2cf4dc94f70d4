package grading

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveLetterDefaultScale(t *testing.T) {
	cases := map[float64]string{
		100:   "A",
		90:    "A",
		89.99: "B",
		80:    "B",
		79.5:  "C",
		70:    "C",
		60:    "D",
		59.99: "F",
		0:     "F",
		150:   "A",
		-20:   "F",
	}

	for percent, want := range cases {
		require.Equal(t, want, ResolveLetter(percent, nil), "percent %v", percent)
	}
}

func TestResolveLetterNonFiniteReturnsLowest(t *testing.T) {
	require.Equal(t, "F", ResolveLetter(math.NaN(), nil))
	require.Equal(t, "F", ResolveLetter(math.Inf(1), nil))

	scale := []ScaleRow{{Letter: "P", Min: 60, Max: 100}, {Letter: "NP", Min: 0, Max: 59}}
	require.Equal(t, "NP", ResolveLetter(math.Inf(-1), scale))
}

func TestResolveLetterUnsortedCustomScale(t *testing.T) {
	scale := []ScaleRow{
		{Letter: "C", Min: 0, Max: 69},
		{Letter: "A", Min: 85, Max: 100},
		{Letter: "B", Min: 70, Max: 84},
	}
	require.NoError(t, ValidateScale(scale))
	require.Equal(t, "A", ResolveLetter(85, scale))
	require.Equal(t, "B", ResolveLetter(84.9, scale))
	require.Equal(t, "C", ResolveLetter(12, scale))
	require.Equal(t, "C", scale[0].Letter, "input scale must not be reordered")
}

func TestResolveLetterIsMonotonic(t *testing.T) {
	rank := map[string]int{"A": 4, "B": 3, "C": 2, "D": 1, "F": 0}
	previous := -1
	for step := 0; step <= 1000; step++ {
		percent := float64(step) / 10
		letter := ResolveLetter(percent, DefaultScale)
		require.GreaterOrEqual(t, rank[letter], previous, "percent %v", percent)
		previous = rank[letter]
	}
}

func TestValidateScale(t *testing.T) {
	require.NoError(t, ValidateScale(DefaultScale))

	invalid := map[string][]ScaleRow{
		"empty":          nil,
		"fractional":     {{Letter: "A", Min: 89.5, Max: 100}, {Letter: "B", Min: 0, Max: 89.4}},
		"min above max":  {{Letter: "A", Min: 90, Max: 80}},
		"gap":            {{Letter: "A", Min: 90, Max: 100}, {Letter: "B", Min: 0, Max: 88}},
		"overlap":        {{Letter: "A", Min: 90, Max: 100}, {Letter: "B", Min: 0, Max: 90}},
		"duplicate":      {{Letter: "A", Min: 90, Max: 100}, {Letter: "a", Min: 0, Max: 89}},
		"missing letter": {{Letter: " ", Min: 0, Max: 100}},
	}

	for name, rows := range invalid {
		err := ValidateScale(rows)
		require.ErrorIs(t, err, ErrInvalidScale, name)
	}
}
