// Package core provides money parsing and handling utilities.
//
// This file wraps shopspring/decimal so that sums never lose precision and
// so that amounts serialize as plain JSON numbers.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Amounts are limited to what a ledger entry can plausibly hold.
const (
	maxIntegerDigits  = 15
	maxFractionDigits = 8
)

// Money is an exact decimal amount.
type Money struct {
	decimal.Decimal
}

// NewMoney wraps a decimal value.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

// MoneyFromInt is a shorthand for whole amounts.
func MoneyFromInt(v int64) Money {
	return Money{Decimal: decimal.NewFromInt(v)}
}

// ParseMoney converts user input into a strictly positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and keeps
// every fractional digit; rounding is left to the display layer.
//
// Examples:
//
//	ParseMoney("12.34") -> 12.34, nil
//	ParseMoney("12,345") -> 12.345, nil
//	ParseMoney("-1") -> error
//	ParseMoney("0") -> error
//	ParseMoney("1e3") -> error
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidValue
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidValue
	}
	// Only plain positional notation, so stored and displayed text stays short.
	if strings.ContainsAny(s, "eE") {
		return Money{}, ErrInvalidValue
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	if len(strings.TrimLeft(intPart, "0")) > maxIntegerDigits || len(fracPart) > maxFractionDigits {
		return Money{}, ErrInvalidValue
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidValue
	}
	m := Money{Decimal: d}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

func (m Money) Validate() error {
	if !m.IsPositive() {
		return ErrInvalidValue
	}
	return nil
}

// Display formats the amount with two decimals, e.g. "1234.50".
func (m Money) Display() string {
	return m.StringFixed(2)
}

// MarshalJSON emits the amount as an unquoted JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

// UnmarshalJSON accepts numbers and numeric strings.
func (m *Money) UnmarshalJSON(b []byte) error {
	return m.Decimal.UnmarshalJSON(b)
}
