package grading

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidGrade indicates a grade value is not a well-formed, finite, non-negative number.
var ErrInvalidGrade = errors.New("invalid grade value")

// gradeTolerance is the smallest difference treated as a deliberate override.
const gradeTolerance = 0.01

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// safeRatio returns numerator/denominator, or 0 when the result would not be finite.
func safeRatio(numerator, denominator float64) float64 {
	if denominator == 0 || !finite(denominator) || !finite(numerator) {
		return 0
	}
	ratio := numerator / denominator
	if !finite(ratio) {
		return 0
	}
	return ratio
}

func differs(a, b float64) bool {
	return math.Abs(a-b) > gradeTolerance
}

// ParseGrade parses a teacher-supplied grade.
func ParseGrade(raw string) (float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, ErrInvalidGrade
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || !finite(value) || value < 0 {
		return 0, ErrInvalidGrade
	}
	return value, nil
}

// ParseQuestionGrades converts loosely typed per-question grades into points.
// Values that are not numbers are dropped and their keys returned as rejected.
func ParseQuestionGrades(raw map[string]interface{}) (map[string]float64, []string) {
	parsed := make(map[string]float64, len(raw))
	var rejected []string

	for key, value := range raw {
		var (
			points float64
			err    error
		)
		switch v := value.(type) {
		case float64:
			points = v
			if !finite(v) || v < 0 {
				err = ErrInvalidGrade
			}
		case int:
			points = float64(v)
			if v < 0 {
				err = ErrInvalidGrade
			}
		case string:
			points, err = ParseGrade(v)
		case json.Number:
			points, err = ParseGrade(v.String())
		default:
			err = ErrInvalidGrade
		}

		if err != nil {
			rejected = append(rejected, key)
			continue
		}
		parsed[key] = points
	}

	return parsed, rejected
}
