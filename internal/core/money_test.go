package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

// Unparseable amount text becomes zero rather than an error. The form relies
// on this, so the behaviour is pinned here.
func TestParseAmountSilentZero(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"125.50", "125.5"},
		{"100", "100"},
		{" 2.50 ", "2.5"},
		{"0", "0"},
		{"abc", "0"},
		{"", "0"},
		{"12abc", "0"},
		{"-5", "0"},
	}
	for _, tc := range cases {
		got := ParseAmount(tc.in)
		if !got.Equal(decimal.RequireFromString(tc.out)) {
			t.Fatalf("%q expected %s, got %s", tc.in, tc.out, got)
		}
	}
}

func TestParseAmountStrict(t *testing.T) {
	if d, err := ParseAmountStrict("1.23"); err != nil || !d.Equal(decimal.RequireFromString("1.23")) {
		t.Fatalf("expected 1.23, got %s (err=%v)", d, err)
	}
	if _, err := ParseAmountStrict("abc"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := ParseAmountStrict("-1"); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestFormatRupees(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"0", "₹0.00"},
		{"125.5", "₹125.50"},
		{"1250", "₹1,250.00"},
		{"0.005", "₹0.01"},
	}
	for _, tc := range cases {
		if got := FormatRupees(decimal.RequireFromString(tc.in)); got != tc.out {
			t.Fatalf("%q expected %q, got %q", tc.in, tc.out, got)
		}
	}
}

func TestPercentage(t *testing.T) {
	if got := Percentage(decimal.NewFromInt(1), decimal.Zero); got != 0 {
		t.Fatalf("zero total: got %v", got)
	}
	if got := Percentage(decimal.NewFromInt(50), decimal.NewFromInt(200)); got != 25 {
		t.Fatalf("expected 25, got %v", got)
	}
}
