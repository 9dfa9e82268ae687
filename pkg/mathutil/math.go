package mathutil

import (
	"github.com/shopspring/decimal"
)

// DivisionPrecision is the number of fractional digits kept by DivDecimal.
// It's well above the precision of any supported asset so that rounding
// happens only once, when the result is brought back to an asset precision.
const DivisionPrecision = 18

var (
	// One ...
	One = decimal.NewFromInt(1)
)

// Unit returns the smallest amount representable with the given precision,
// ie. 10^-decimals.
func Unit(decimals uint32) decimal.Decimal {
	return decimal.New(1, -int32(decimals))
}

// AddDecimal takes two decimal.Decimal numbers and sum them x + y and returns the result as decimal.Decimal
func AddDecimal(X, Y decimal.Decimal) (z decimal.Decimal) {
	z = X.Add(Y)
	return
}

// SubDecimal takes two decimal.Decimal numbers and subtract them x - y and returns the result as decimal.Decimal
func SubDecimal(X, Y decimal.Decimal) (z decimal.Decimal) {
	z = X.Sub(Y)
	return
}

// MulDecimal takes two decimal.Decimal numbers and multiply them x * y and returns the result as decimal.Decimal
func MulDecimal(X, Y decimal.Decimal) (z decimal.Decimal) {
	z = X.Mul(Y)
	return
}

// DivDecimal takes two decimal.Decimal numbers and divides them x / y and
// returns the result rounded to DivisionPrecision digits.
func DivDecimal(X, Y decimal.Decimal) (z decimal.Decimal) {
	z = X.DivRound(Y, DivisionPrecision)
	return
}

// RoundUp rounds x towards +inf at the given precision.
func RoundUp(x decimal.Decimal, decimals uint32) decimal.Decimal {
	return x.RoundCeil(int32(decimals))
}

// RoundDown rounds x towards -inf at the given precision.
func RoundDown(x decimal.Decimal, decimals uint32) decimal.Decimal {
	return x.RoundFloor(int32(decimals))
}

// WithinTolerance returns whether |x - y| <= tolerance.
func WithinTolerance(x, y, tolerance decimal.Decimal) bool {
	return x.Sub(y).Abs().LessThanOrEqual(tolerance)
}
