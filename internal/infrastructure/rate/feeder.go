package rate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
	"github.com/zecswap/zecswap-daemon/internal/core/ports"
	"github.com/zecswap/zecswap-daemon/pkg/mathutil"
)

const usdQuote = "USD"

var (
	// krakenAliases maps catalog symbols to the ones used by the price feeds.
	krakenAliases = map[string]string{
		"BTC":  "XBT",
		"WBTC": "XBT",
		"DOGE": "XDG",
	}
	usdStablecoins = map[string]bool{
		"USD": true,
	}
)

// Ticker returns the USD ticker used for the given symbol, ie. BTC -> XBT/USD.
func Ticker(symbol string) string {
	symbol = strings.ToUpper(symbol)
	if alias, ok := krakenAliases[symbol]; ok {
		symbol = alias
	}
	return fmt.Sprintf("%s/%s", symbol, usdQuote)
}

// Tickers returns the tickers to subscribe to in order to price the given
// assets, including the ZEC one.
func Tickers(assets []domain.Asset) []string {
	seen := map[string]bool{}
	tickers := []string{Ticker(domain.ZecSymbol)}
	seen[tickers[0]] = true
	for _, a := range assets {
		if usdStablecoins[strings.ToUpper(a.Symbol)] {
			continue
		}
		ticker := Ticker(a.Symbol)
		if seen[ticker] {
			continue
		}
		seen[ticker] = true
		tickers = append(tickers, ticker)
	}
	return tickers
}

type feederRateSource struct {
	feeder ports.PriceFeeder
	maxAge time.Duration

	lock  *sync.RWMutex
	feeds map[string]ports.PriceFeed
}

// NewFeederRateSource returns a RateSource that derives the ZEC rate of an
// asset from the USD prices streamed by the given feeder:
// rate = price(asset/USD) / price(ZEC/USD). Prices older than maxAge are
// considered unavailable.
func NewFeederRateSource(
	feeder ports.PriceFeeder, maxAge time.Duration,
) (ports.RateSource, error) {
	if feeder == nil {
		return nil, fmt.Errorf("missing price feeder")
	}
	if maxAge <= 0 {
		return nil, fmt.Errorf("max age must be positive")
	}

	s := &feederRateSource{
		feeder: feeder,
		maxAge: maxAge,
		lock:   &sync.RWMutex{},
		feeds:  make(map[string]ports.PriceFeed),
	}
	go s.listen()

	return s, nil
}

func (s *feederRateSource) GetRate(
	_ context.Context, asset domain.Asset,
) (decimal.Decimal, error) {
	now := time.Now()

	zecPrice, err := s.usdPrice(domain.ZecSymbol, now)
	if err != nil {
		return decimal.Zero, err
	}
	assetPrice, err := s.usdPrice(asset.Symbol, now)
	if err != nil {
		return decimal.Zero, err
	}

	return mathutil.DivDecimal(assetPrice, zecPrice), nil
}

func (s *feederRateSource) usdPrice(
	symbol string, now time.Time,
) (decimal.Decimal, error) {
	if usdStablecoins[strings.ToUpper(symbol)] {
		return mathutil.One, nil
	}

	ticker := Ticker(symbol)

	s.lock.RLock()
	feed, ok := s.feeds[ticker]
	s.lock.RUnlock()

	if !ok {
		return decimal.Zero, fmt.Errorf("no price for %s", ticker)
	}
	if now.Sub(feed.GetTime()) > s.maxAge {
		return decimal.Zero, fmt.Errorf(
			"price for %s is stale (%s old)", ticker, now.Sub(feed.GetTime()),
		)
	}
	if !feed.GetPrice().IsPositive() {
		return decimal.Zero, fmt.Errorf("invalid price for %s", ticker)
	}
	return feed.GetPrice(), nil
}

func (s *feederRateSource) listen() {
	for feed := range s.feeder.FeedChan() {
		s.lock.Lock()
		s.feeds[feed.GetTicker()] = feed
		s.lock.Unlock()
	}
	log.Debug("rate: price feed channel closed")
}
