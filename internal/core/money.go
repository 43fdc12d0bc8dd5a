// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing rupee amounts from user input
// and formatting them for display.
package core

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// CurrencyCode is the ISO code of every amount in the ledger.
const CurrencyCode = money.INR

var hundred = decimal.NewFromInt(100)

// ParseAmount converts free text typed into the amount field to a decimal.
//
// Text that is not a number, or a negative number, yields zero instead of an
// error. Callers that need to reject such input must use ParseAmountStrict.
//
// Examples:
//
//	ParseAmount("125.50") -> 125.5
//	ParseAmount("abc")    -> 0
//	ParseAmount("")       -> 0
func ParseAmount(s string) decimal.Decimal {
	d, err := ParseAmountStrict(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseAmountStrict parses s and rejects non-numeric or negative text.
func ParseAmountStrict(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return d, nil
}

// FormatRupees renders an amount with the rupee symbol and grouping, e.g. ₹1,250.00.
func FormatRupees(amount decimal.Decimal) string {
	cur := money.GetCurrency(CurrencyCode)
	factor, _ := decimal.NewFromInt(10).PowInt32(int32(cur.Fraction))
	minor := amount.Mul(factor).Round(0)
	return money.New(minor.IntPart(), CurrencyCode).Display()
}

// Percentage returns 100*part/total. A zero total yields zero.
func Percentage(part, total decimal.Decimal) float64 {
	if total.IsZero() {
		return 0
	}
	pct, _ := part.Mul(hundred).Div(total).Float64()
	return pct
}
