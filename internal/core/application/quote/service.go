package quote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
	"github.com/zecswap/zecswap-daemon/internal/core/ports"
	"github.com/zecswap/zecswap-daemon/pkg/stats"
)

var (
	// DefaultFeeRate is the fraction of the input taken as service fee.
	DefaultFeeRate = decimal.RequireFromString("0.005")
)

type Service struct {
	catalog     ports.AssetCatalog
	rates       ports.RateSource
	repoManager ports.RepoManager
	feeRate     decimal.Decimal
	now         func() time.Time
}

type Option func(s *Service)

// WithClock overrides the clock used to time quotes.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(
	catalog ports.AssetCatalog,
	rates ports.RateSource,
	repoManager ports.RepoManager,
	feeRate decimal.Decimal,
	opts ...Option,
) (*Service, error) {
	if catalog == nil {
		return nil, fmt.Errorf("missing asset catalog")
	}
	if rates == nil {
		return nil, fmt.Errorf("missing rate source")
	}
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if err := domain.ValidateFeeRate(feeRate); err != nil {
		return nil, err
	}

	svc := &Service{
		catalog:     catalog,
		rates:       rates,
		repoManager: repoManager,
		feeRate:     feeRate,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

func (s *Service) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	return s.catalog.ListAssets(ctx)
}

func (s *Service) FeeRate() decimal.Decimal {
	return s.feeRate
}

// RequestQuote prices the swap of the given source asset into ZEC and stores
// the resulting quote. In pay mode the amount is what the user sends, in
// receive mode it's the ZEC the user wants to get. Issuing a quote reserves
// nothing.
func (s *Service) RequestQuote(
	ctx context.Context, sourceAssetId, amount string, mode domain.RequestMode,
) (*domain.Quote, error) {
	if !mode.IsValid() {
		return nil, domain.ErrInvalidRequestMode
	}

	asset, err := s.catalog.GetAsset(ctx, sourceAssetId)
	if err != nil {
		return nil, err
	}

	decimals := asset.Decimals
	if mode == domain.RequestModeReceive {
		decimals = domain.ZecDecimals
	}
	requestedAmount, err := domain.ParseAmount(amount, decimals)
	if err != nil {
		return nil, err
	}

	rate, err := s.rates.GetRate(ctx, *asset)
	if err != nil {
		log.WithError(err).Debugf("quote: rate unavailable for asset %s", asset.AssetId)
		if errors.Is(err, domain.ErrRateUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrRateUnavailable, err)
	}
	if !rate.IsPositive() {
		return nil, domain.ErrRateUnavailable
	}

	var priced *domain.PricedAmounts
	if mode == domain.RequestModePay {
		priced, err = domain.PriceForInput(
			requestedAmount, rate, s.feeRate, asset.Decimals,
		)
	} else {
		priced, err = domain.PriceForOutput(
			requestedAmount, rate, s.feeRate, asset.Decimals,
		)
	}
	if err != nil {
		return nil, err
	}

	quote := domain.NewQuote(
		asset.AssetId, mode, requestedAmount, *priced,
		s.now().UTC(), domain.QuoteValidity,
	)
	if err := s.repoManager.QuoteRepository().AddQuote(ctx, quote); err != nil {
		return nil, err
	}

	stats.QuotesIssued.WithLabelValues(asset.Symbol, string(mode)).Inc()
	log.Debugf(
		"quote: issued %s for %s %s -> %s ZEC",
		quote.QuoteId, quote.InputAmount, asset.Symbol, quote.ExpectedOutput,
	)
	return quote, nil
}

func (s *Service) GetQuote(
	ctx context.Context, quoteId string,
) (*domain.Quote, error) {
	return s.repoManager.QuoteRepository().GetQuote(ctx, quoteId)
}
