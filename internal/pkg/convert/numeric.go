// Package convert provides type conversion utilities.
package convert

import (
	"math"
	"strconv"
	"strings"
)

// ParseFloat parses exchange decimal strings such as "123.4500".
// Returns (0, false) for empty, malformed or non-finite input.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FloatOrZero is ParseFloat without the ok flag.
func FloatOrZero(s string) float64 {
	f, _ := ParseFloat(s)
	return f
}
