// Package units converts between human-readable token amounts and integer
// smallest-unit amounts (lamports, micro-USDC, ...).
//
// All arithmetic is done on arbitrary-precision decimals, so there is no
// binary floating-point drift and any u64 supply is exact at any decimal
// count. Conversions never fail: bad input degrades to zero because these
// functions sit on a live-typing path.
//
// Rounding rule for ToSmallestUnit: nearest integer, ties away from zero.
package units

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ratioPrecision is the number of fractional digits kept for exchange rates
const ratioPrecision = 16

// maxAmountLength bounds the text accepted as an amount
const maxAmountLength = 64

// ParseAmount parses a plain human decimal string. ok is false for empty,
// non-numeric or non-positive input. Exponent forms such as "1e9" are
// rejected.
func ParseAmount(amountText string) (decimal.Decimal, bool) {
	text := strings.TrimSpace(amountText)
	if text == "" || len(text) > maxAmountLength || strings.ContainsAny(text, "eE") {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, false
	}
	if !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// ToSmallestUnit returns round(amount * 10^decimals). Invalid or
// non-positive input returns 0.
func ToSmallestUnit(amountText string, decimals uint8) *big.Int {
	d, ok := ParseAmount(amountText)
	if !ok {
		return new(big.Int)
	}
	return d.Shift(int32(decimals)).Round(0).BigInt()
}

// FromSmallestUnit renders amount / 10^decimals with trailing zeros removed
func FromSmallestUnit(amount *big.Int, decimals uint8) string {
	if amount == nil || amount.Sign() <= 0 {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}

// FromSmallestUnitString is FromSmallestUnit for integer strings as returned
// by the aggregator. Anything that is not a non-negative integer gives "0".
func FromSmallestUnitString(amount string, decimals uint8) string {
	n, ok := new(big.Int).SetString(strings.TrimSpace(amount), 10)
	if !ok {
		return "0"
	}
	return FromSmallestUnit(n, decimals)
}

// Ratio returns numerator / denominator for two decimal strings, or "0"
// when either side is invalid or the denominator is zero.
func Ratio(numerator, denominator string) string {
	num, err := decimal.NewFromString(numerator)
	if err != nil {
		return "0"
	}
	den, err := decimal.NewFromString(denominator)
	if err != nil || den.IsZero() {
		return "0"
	}
	return num.DivRound(den, ratioPrecision).String()
}

// FormatFixed rounds a decimal string to the given number of places
// for display. Invalid input gives "0".
func FormatFixed(value string, places int32) string {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return "0"
	}
	return d.StringFixed(places)
}
