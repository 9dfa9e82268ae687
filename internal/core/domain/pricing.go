package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/zecswap/zecswap-daemon/pkg/mathutil"
)

// PricedAmounts are the amounts resulting from pricing a swap: the effective
// input in source asset units, the fee taken on it and the expected ZEC
// output.
type PricedAmounts struct {
	Input   decimal.Decimal
	Fee     decimal.Decimal
	Output  decimal.Decimal
	FeeRate decimal.Decimal
}

// ExchangeRate is the effective rate output/input.
func (p PricedAmounts) ExchangeRate() decimal.Decimal {
	if !p.Input.IsPositive() {
		return decimal.Zero
	}
	return mathutil.DivDecimal(p.Output, p.Input).Round(ZecDecimals)
}

// ValidateFeeRate makes sure the fee rate is in range [0, 1).
func ValidateFeeRate(feeRate decimal.Decimal) error {
	if feeRate.IsNegative() || feeRate.GreaterThanOrEqual(mathutil.One) {
		return fmt.Errorf("fee rate must be in range [0, 1)")
	}
	return nil
}

// PriceForInput prices a swap of the given input amount:
// fee = input * feeRate, output = (input - fee) * rate.
func PriceForInput(
	input, rate, feeRate decimal.Decimal, inputDecimals uint32,
) (*PricedAmounts, error) {
	if !rate.IsPositive() {
		return nil, ErrRateUnavailable
	}
	net, fee := mathutil.LessFee(input, feeRate, inputDecimals)
	output := mathutil.RoundDown(mathutil.MulDecimal(net, rate), ZecDecimals)
	if !output.IsPositive() {
		return nil, ErrInvalidAmount
	}
	return &PricedAmounts{
		Input:   input,
		Fee:     fee,
		Output:  output,
		FeeRate: feeRate,
	}, nil
}

// PriceForOutput solves for the smallest input amount, at the source asset
// precision, whose PriceForInput output is at least the requested one.
func PriceForOutput(
	output, rate, feeRate decimal.Decimal, inputDecimals uint32,
) (*PricedAmounts, error) {
	if !rate.IsPositive() {
		return nil, ErrRateUnavailable
	}
	netRate := mathutil.MulDecimal(rate, mathutil.SubDecimal(mathutil.One, feeRate))
	if !netRate.IsPositive() {
		return nil, ErrInvalidAmount
	}

	// Since the fee is rounded up by at most one unit, the smallest input lies
	// between output/(rate*(1-feeRate)) and (output/rate + unit)/(1-feeRate).
	unit := mathutil.Unit(inputDecimals)
	lower := mathutil.RoundUp(mathutil.DivDecimal(output, netRate), inputDecimals)
	upper := mathutil.RoundUp(
		mathutil.DivDecimal(
			mathutil.AddDecimal(mathutil.DivDecimal(output, rate), unit),
			mathutil.SubDecimal(mathutil.One, feeRate),
		),
		inputDecimals,
	)
	for input := lower; input.LessThanOrEqual(upper); input = input.Add(unit) {
		if !input.IsPositive() {
			continue
		}
		priced, err := PriceForInput(input, rate, feeRate, inputDecimals)
		if err == nil && priced.Output.GreaterThanOrEqual(output) {
			return priced, nil
		}
	}
	return nil, ErrInvalidAmount
}
