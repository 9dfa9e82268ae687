package mathutil

import (
	"github.com/shopspring/decimal"
)

// Fee calculates the fee for the given amount and fee rate (ie. 0.005 = 0.5%)
// rounded up at the given precision.
func Fee(amount, feeRate decimal.Decimal, decimals uint32) decimal.Decimal {
	return RoundUp(MulDecimal(amount, feeRate), decimals)
}

// PlusFee calculates an amount with a fee added given an amount and a fee
// rate (ie. 0.005 = 0.5%).
func PlusFee(
	amount, feeRate decimal.Decimal, decimals uint32,
) (withFee, calculatedFee decimal.Decimal) {
	calculatedFee = Fee(amount, feeRate, decimals)
	withFee = AddDecimal(amount, calculatedFee)
	return
}

// LessFee calculates an amount with a fee subtracted given an amount and a
// fee rate (ie. 0.005 = 0.5%).
func LessFee(
	amount, feeRate decimal.Decimal, decimals uint32,
) (withoutFee, calculatedFee decimal.Decimal) {
	calculatedFee = Fee(amount, feeRate, decimals)
	withoutFee = SubDecimal(amount, calculatedFee)
	return
}
