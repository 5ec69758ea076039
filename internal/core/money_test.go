package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1.234,56", 0, false},
		{"1e3", 0, false},
		{"", 0, false},
		{"100000000000", MaxCents, true},
		{"100000000000.01", 0, false},
		{"50000000000000000", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyFromDecimal(t *testing.T) {
	m, err := MoneyFromDecimal(decimal.Zero)
	if err != nil || m.Cents != 0 {
		t.Fatalf("zero must be accepted from storage: %v %v", m, err)
	}
	if _, err := MoneyFromDecimal(decimal.NewFromInt(-5)); err == nil {
		t.Fatalf("expected error for negative")
	}
	m, _ = MoneyFromDecimal(decimal.RequireFromString("40.5"))
	if m.Cents != 4050 {
		t.Fatalf("expected 4050, got %d", m.Cents)
	}
	if !m.Decimal().Equal(decimal.RequireFromString("40.50")) {
		t.Fatalf("round trip mismatch: %s", m.Decimal())
	}
	if _, err := MoneyFromDecimal(decimal.New(MaxCents+1, -2)); err == nil {
		t.Fatalf("expected error above MaxCents")
	}
}
