package rate

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
	"github.com/zecswap/zecswap-daemon/internal/core/ports"
)

type fixedRateSource struct {
	defaultRate  decimal.Decimal
	rateBySymbol map[string]decimal.Decimal
}

// NewFixedRateSource returns a RateSource serving the given rate for every
// asset, unless overridden by symbol in rateBySymbol.
func NewFixedRateSource(
	defaultRate decimal.Decimal, rateBySymbol map[string]decimal.Decimal,
) (ports.RateSource, error) {
	if !defaultRate.IsPositive() {
		return nil, fmt.Errorf("default rate must be positive")
	}

	rates := make(map[string]decimal.Decimal, len(rateBySymbol))
	for symbol, rate := range rateBySymbol {
		if !rate.IsPositive() {
			return nil, fmt.Errorf("rate for %s must be positive", symbol)
		}
		rates[strings.ToUpper(symbol)] = rate
	}

	return &fixedRateSource{defaultRate, rates}, nil
}

func (s *fixedRateSource) GetRate(
	_ context.Context, asset domain.Asset,
) (decimal.Decimal, error) {
	if rate, ok := s.rateBySymbol[strings.ToUpper(asset.Symbol)]; ok {
		return rate, nil
	}
	return s.defaultRate, nil
}
