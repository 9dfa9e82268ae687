package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
)

// RateSource provides the exchange rate of a source asset in ZEC.
type RateSource interface {
	// GetRate returns how many ZEC a unit of the given asset is worth. It must
	// return an error rather than a stale or made up rate.
	GetRate(ctx context.Context, asset domain.Asset) (decimal.Decimal, error)
}

// PriceFeed is the latest price of a ticker, ie. XBT/USD.
type PriceFeed interface {
	GetTicker() string
	GetPrice() decimal.Decimal
	GetTime() time.Time
}

// PriceFeeder streams prices for the subscribed tickers.
type PriceFeeder interface {
	SubscribeTickers([]string) error

	Start() error
	Stop()

	FeedChan() chan PriceFeed
}
