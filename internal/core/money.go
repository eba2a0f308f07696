// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing Brazilian-formatted amounts
// ("R$ 1.234,56") and for formatting decimals back for display.
package core

import (
	"fmt"
	"strings"
	"unicode"

	money "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseBRL converts a Real-formatted string to a non-negative decimal.
//
// The currency symbol and whitespace are dropped, "." is read as the thousands
// separator and "," as the decimal point. Negative values are rejected.
//
// Examples:
//
//	ParseBRL("R$ 1.234,56") -> 1234.56, nil
//	ParseBRL("300")         -> 300, nil
//	ParseBRL("12,5")        -> 12.5, nil
//	ParseBRL("abc")         -> 0, ErrInvalidAmount
func ParseBRL(s string) (decimal.Decimal, error) {
	raw := s
	s = strings.ReplaceAll(s, "R$", "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative value %q", ErrInvalidAmount, raw)
	}
	return d, nil
}

// ToCents rounds a decimal amount half away from zero to integer centavos.
func ToCents(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

// FormatBRL renders an amount as Brazilian Reais (e.g. "R$1.234,56").
func FormatBRL(d decimal.Decimal) string {
	return money.New(ToCents(d), money.BRL).Display()
}

// FormatPercent renders a percentage with one decimal and a comma separator.
func FormatPercent(p float64) string {
	return strings.Replace(fmt.Sprintf("%.1f%%", p), ".", ",", 1)
}
