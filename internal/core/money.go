// Package core holds the finance domain: money, dates, ledger entries,
// recurring plans and the month aggregation logic. It is pure and does no I/O.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseDecimalToCents converts a decimal string to cents with half-up
// rounding on the third decimal place. It accepts both comma (49,90) and dot
// (49.90) separators and an optional leading "R$". Only positive amounts are
// valid; the sign of a ledger entry is carried by its type, never by the
// stored number.
//
// Examples:
//
//	ParseDecimalToCents("49,90")    -> 4990, nil
//	ParseDecimalToCents("R$ 49.90") -> 4990, nil
//	ParseDecimalToCents("12.345")   -> 1234, nil (rounds down)
//	ParseDecimalToCents("12.346")   -> 1235, nil (rounds up)
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	// Take the first two fractional digits, then half-up on the third
	var fracCents int64
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracCents = d1 * 10
		if len(fracPart) > 1 {
			d2 := int64(fracPart[1] - '0')
			fracCents += d2
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// Reais returns the value as a float64 for display only. Calculations must
// stay in cents to avoid floating-point drift.
func (m Money) Reais() float64 {
	return float64(m.Cents) / 100.0
}

// Add returns m + n.
func (m Money) Add(n Money) Money {
	return Money{Cents: m.Cents + n.Cents}
}

// Sub returns m - n. The result may be negative (e.g. a month balance).
func (m Money) Sub(n Money) Money {
	return Money{Cents: m.Cents - n.Cents}
}

// FormatBRL renders cents as a Brazilian currency string with a dot as the
// thousands separator and a comma before the cents. Negative values place
// the sign before the symbol: "- R$ 50,00".
func FormatBRL(m Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	lead := len(whole) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(whole[:lead])
	for i := lead; i < len(whole); i += 3 {
		b.WriteByte('.')
		b.WriteString(whole[i : i+3])
	}
	out := "R$ " + b.String() + "," + twoDigits(cents%100)
	if neg {
		return "- " + out
	}
	return out
}

func twoDigits(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
