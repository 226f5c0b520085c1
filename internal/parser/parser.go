// Package parser converts user-typed quantities into validated numbers.
package parser

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrEmpty is returned for blank input.
	ErrEmpty = errors.New("value is empty")
	// ErrNotNumber is returned when the input is not a decimal number.
	ErrNotNumber = errors.New("value is not a number")
	// ErrNotPositive is returned for zero, negative, NaN or infinite values.
	ErrNotPositive = errors.New("value must be a positive number")
)

// ParseAmount parses an ingredient amount such as "200", "1.5" or "1,5".
func ParseAmount(s string) (float64, error) {
	return parsePositive(s)
}

// ParseKcal parses a calorie value per reference quantity.
func ParseKcal(s string) (float64, error) {
	return parsePositive(s)
}

// Positive reports whether v is a usable quantity.
func Positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func parsePositive(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmpty
	}
	// Comma is the decimal separator on Polish keyboards.
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrNotNumber
	}
	if !Positive(v) {
		return 0, ErrNotPositive
	}
	return v, nil
}
