// Package core provides the domain types and amount handling utilities
// for the envelope budgeting engine.
//
// This file contains the amount validator every monetary value in the
// engine passes through, plus parsing helpers for amounts arriving as
// strings from the outside.
package core

import (
	"math"
	"strconv"
	"strings"
)

// MaxAmount bounds every monetary value the engine accepts, in either
// direction. Values outside the range are clamped, not rejected.
const MaxAmount = 100000.0

// AmountTolerance is the slack used when comparing float amounts.
const AmountTolerance = 1e-6

// ClampAmount is the single guard against NaN propagation and runaway
// values from malformed input. Non-finite values become 0; finite values
// are clamped to [-MaxAmount, MaxAmount]. Callers must treat a resulting
// 0 as "no amount".
func ClampAmount(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	if x > MaxAmount {
		return MaxAmount
	}
	if x < -MaxAmount {
		return -MaxAmount
	}
	return x
}

// AmountsEqual reports whether two amounts are equal within AmountTolerance.
func AmountsEqual(a, b float64) bool {
	return math.Abs(a-b) <= AmountTolerance
}

// ParseAmount converts a decimal string to a clamped amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Returns ErrInvalidAmount for empty or non-numeric input; parsed values
// go through ClampAmount like every other monetary input.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidAmount
	}
	return ClampAmount(v), nil
}
