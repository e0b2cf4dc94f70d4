package grading

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ScaleRow is one band of a grade scale.
type ScaleRow struct {
	Letter string  `json:"letter"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// DefaultScale is used when a course has no scale of its own.
var DefaultScale = []ScaleRow{
	{Letter: "A", Min: 90, Max: 100},
	{Letter: "B", Min: 80, Max: 89},
	{Letter: "C", Min: 70, Max: 79},
	{Letter: "D", Min: 60, Max: 69},
	{Letter: "F", Min: 0, Max: 59},
}

// ResolveLetter maps a percentage onto a grade scale. The lower bound of each
// row is inclusive.
func ResolveLetter(percent float64, scale []ScaleRow) string {
	rows := scale
	if len(rows) == 0 {
		rows = DefaultScale
	}

	sorted := make([]ScaleRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Min > sorted[j].Min
	})
	lowest := sorted[len(sorted)-1].Letter

	if !finite(percent) {
		return lowest
	}
	percent = math.Max(0, math.Min(100, percent))

	for _, row := range sorted {
		if row.Min <= percent {
			return row.Letter
		}
	}
	return lowest
}

// ErrInvalidScale is wrapped by every ValidateScale failure.
var ErrInvalidScale = errors.New("invalid grade scale")

// ValidateScale checks that rows have whole-number bounds with min <= max, cover
// a contiguous range without gaps or overlaps and use each letter once.
func ValidateScale(rows []ScaleRow) error {
	if len(rows) == 0 {
		return fmt.Errorf("%w: no rows", ErrInvalidScale)
	}

	letters := make(map[string]struct{}, len(rows))
	for i, row := range rows {
		letter := strings.TrimSpace(row.Letter)
		if letter == "" {
			return fmt.Errorf("%w: row %d has no letter", ErrInvalidScale, i)
		}
		if _, duplicate := letters[strings.ToUpper(letter)]; duplicate {
			return fmt.Errorf("%w: duplicate letter %q", ErrInvalidScale, letter)
		}
		letters[strings.ToUpper(letter)] = struct{}{}

		if !wholeNumber(row.Min) || !wholeNumber(row.Max) {
			return fmt.Errorf("%w: row %q bounds must be whole numbers", ErrInvalidScale, letter)
		}
		if row.Min > row.Max {
			return fmt.Errorf("%w: row %q min exceeds max", ErrInvalidScale, letter)
		}
	}

	sorted := make([]ScaleRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Min < sorted[j].Min
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Min != sorted[i-1].Max+1 {
			return fmt.Errorf("%w: %q does not start right after %q", ErrInvalidScale, sorted[i].Letter, sorted[i-1].Letter)
		}
	}

	return nil
}

func wholeNumber(v float64) bool {
	return finite(v) && v == math.Trunc(v)
}
