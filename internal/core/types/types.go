// Package types provides common type aliases and utilities.
package types

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ZeroMoney returns zero Money value.
func ZeroMoney() Money {
	return decimal.Zero
}

// Round2 rounds a monetary value to 2 decimal places (half away from zero).
// Return-line subtotals are computed exactly once with this rounding and
// stored; they are never recomputed from client input.
func Round2(m Money) Money {
	return m.Round(2)
}

// Subtotal computes round2(quantity * unitPrice).
func Subtotal(qty Quantity, unitPrice Money) Money {
	return Round2(unitPrice.Mul(decimal.NewFromInt(int64(qty))))
}

// Quantity is a count of whole units. Products move and return as whole
// pieces; fractional quantities are rejected at the boundary rather than
// silently truncated.
type Quantity int64

func (q Quantity) IsZero() bool     { return q == 0 }
func (q Quantity) IsPositive() bool { return q > 0 }
func (q Quantity) IsNegative() bool { return q < 0 }

func (q Quantity) Neg() Quantity { return -q }

func (q Quantity) String() string {
	return strconv.FormatInt(int64(q), 10)
}

// Min returns the smaller of q and other.
func (q Quantity) Min(other Quantity) Quantity {
	if q < other {
		return q
	}
	return other
}

// ParseQuantity parses a strict base-10 integer quantity.
// "3.0", "3,0" and "" are all rejected: the quantity-arrived-as-empty-string
// class of bugs is stopped here, never coerced to zero.
func ParseQuantity(s string) (Quantity, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quantity %q: %w", s, err)
	}
	return Quantity(v), nil
}
