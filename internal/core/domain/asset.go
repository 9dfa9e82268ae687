package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Asset is an immutable entry of the catalog of supported source assets.
type Asset struct {
	AssetId         string
	Symbol          string
	ChainName       string
	Decimals        uint32
	MemoRequired    bool
	ContractAddress string
}

func (a Asset) Validate() error {
	if len(strings.TrimSpace(a.AssetId)) <= 0 {
		return fmt.Errorf("missing asset id")
	}
	if len(strings.TrimSpace(a.Symbol)) <= 0 {
		return fmt.Errorf("missing symbol for asset %s", a.AssetId)
	}
	if len(strings.TrimSpace(a.ChainName)) <= 0 {
		return fmt.Errorf("missing chain for asset %s", a.AssetId)
	}
	return nil
}

// ParseAmount parses the given string into a strictly positive amount with
// at most a.Decimals fractional digits.
func (a Asset) ParseAmount(amount string) (decimal.Decimal, error) {
	return ParseAmount(amount, a.Decimals)
}

// ParseAmount parses the given string into a strictly positive decimal with a
// precision not exceeding the given number of decimals.
func ParseAmount(amount string, decimals uint32) (decimal.Decimal, error) {
	amount = strings.TrimSpace(amount)
	if len(amount) <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.Equal(d.Truncate(int32(decimals))) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
