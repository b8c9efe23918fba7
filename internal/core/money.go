// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents and their decimal representation.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var maxCents = decimal.NewFromInt(math.MaxInt64)

// ParseDecimalToCents converts a decimal string to cents with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Zero is a
// valid amount; negative values are rejected with ErrNegativeAmount.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil (half-up)
//	ParseDecimalToCents("0") -> 0, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "eE") {
		return 0, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	if d.IsNegative() {
		return 0, &ValidationError{Field: "amount", Err: ErrNegativeAmount}
	}

	cents := d.Round(2).Shift(2)
	if cents.GreaterThan(maxCents) {
		return 0, &ValidationError{Field: "amount", Err: ErrAmountOutOfRange}
	}
	return cents.IntPart(), nil
}

// FormatCents renders cents as a plain decimal string ("12.34").
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// String implements fmt.Stringer.
func (m Money) String() string {
	return FormatCents(m.Cents)
}

// Decimal returns the amount in major units for display purposes.
// Use cents for calculations.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}
