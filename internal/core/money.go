package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountPlaces is the fixed-point scale of stored amounts.
const AmountPlaces = 2

// maxAmountCents bounds amounts to DECIMAL(10,2): eight integer digits.
const maxAmountCents = 99_999_999_99

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount parses a plain decimal string such as "123.45" or "-7".
// Thousands separators and currency symbols are not accepted.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// RoundAmount rounds to two places using banker's rounding, matching how
// DECIMAL columns quantize on save.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(AmountPlaces)
}

// AmountToCents converts a rounded amount to integer cents, rejecting
// values that do not fit DECIMAL(10,2).
func AmountToCents(d decimal.Decimal) (int64, error) {
	cents := RoundAmount(d).Shift(AmountPlaces)
	if cents.Abs().GreaterThan(decimal.NewFromInt(maxAmountCents)) {
		return 0, fmt.Errorf("%w: %s exceeds 8 integer digits", ErrInvalidAmount, d.String())
	}
	return cents.IntPart(), nil
}

// CentsToAmount converts stored cents back to a two-place decimal.
func CentsToAmount(cents int64) decimal.Decimal {
	return decimal.New(cents, -AmountPlaces)
}
