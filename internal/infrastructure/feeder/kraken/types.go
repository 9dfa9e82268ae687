package krakenfeeder

import (
	"time"

	"github.com/shopspring/decimal"
)

type priceFeed struct {
	ticker string
	price  decimal.Decimal
	time   time.Time
}

func (f *priceFeed) GetTicker() string {
	return f.ticker
}

func (f *priceFeed) GetPrice() decimal.Decimal {
	return f.price
}

func (f *priceFeed) GetTime() time.Time {
	return f.time
}
