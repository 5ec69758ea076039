// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from user input
// and from stored records, converting between decimals and cents.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxCents is the largest amount a single transaction may carry
// (R$ 100.000.000.000,00). Sums of realistic histories stay far inside int64.
const MaxCents int64 = 10_000_000_000_000

var maxCents = decimal.NewFromInt(MaxCents)

// ParseAmount converts a user-entered decimal string to Money with half-up
// rounding to the cent.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Zero,
// negative, malformed and amounts above MaxCents are rejected with
// ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> Money{1234}, nil
//	ParseAmount("12,34")  -> Money{1234}, nil
//	ParseAmount("12.345") -> Money{1235}, nil (rounds half up)
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.Count(s, ",") > 0 && strings.Contains(s, ".") {
		// Grouped input like "1.234,56" is ambiguous; only one separator is allowed.
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "+-eE") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m, err := MoneyFromDecimal(d)
	if err != nil {
		return Money{}, err
	}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// MoneyFromDecimal converts a non-negative decimal magnitude, at most
// MaxCents, to cents. Zero is allowed: stored records may carry it.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Shift(2).Round(0)
	if cents.GreaterThan(maxCents) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Decimal returns the amount in currency units as an exact decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Reais returns the value as a float64 for display purposes.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Reais() float64 {
	return float64(m.Cents) / 100.0
}
