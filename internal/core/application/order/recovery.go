package order

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
	"github.com/zecswap/zecswap-daemon/pkg/stats"
)

// Recover reconciles quotes and allocations left inconsistent by a crash.
// Consumed quotes without an order are marked as allocation failed and
// surfaced for manual resolution. Active allocations of missing or terminal
// orders are released.
func (s *Service) Recover(ctx context.Context) error {
	if err := s.recoverQuotes(ctx); err != nil {
		return err
	}
	return s.recoverAllocations(ctx)
}

func (s *Service) recoverQuotes(ctx context.Context) error {
	quotes, err := s.repoManager.QuoteRepository().GetQuotesByStatus(
		ctx, domain.QuoteStatusConsumed,
	)
	if err != nil {
		return err
	}

	for _, q := range quotes {
		_, err := s.repoManager.OrderRepository().GetOrderByQuoteId(ctx, q.QuoteId)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrOrderNotFound) {
			return err
		}

		var failed domain.Quote
		marked := false
		if err := s.repoManager.QuoteRepository().UpdateQuote(
			ctx, q.QuoteId, func(quote *domain.Quote) (*domain.Quote, error) {
				ok, err := quote.MarkAllocationFailed()
				if err != nil {
					return nil, err
				}
				marked = ok
				failed = *quote
				return quote, nil
			},
		); err != nil {
			return err
		}
		if !marked {
			continue
		}

		stats.AllocationFailures.WithLabelValues(s.assetSymbol(ctx, q.SourceAssetId)).Inc()
		log.Warnf(
			"recovery: quote %s was consumed by order %s that was never stored, "+
				"marked as allocation failed for manual resolution",
			failed.QuoteId, failed.OrderId,
		)
		s.publishAllocationFailed(failed)
	}
	return nil
}

// assetSymbol returns the symbol used to label metrics, the asset id if the
// asset is no longer listed.
func (s *Service) assetSymbol(ctx context.Context, assetId string) string {
	asset, err := s.catalog.GetAsset(ctx, assetId)
	if err != nil {
		return assetId
	}
	return asset.Symbol
}

func (s *Service) recoverAllocations(ctx context.Context) error {
	allocations, err := s.repoManager.AllocationRepository().GetActiveAllocations(
		ctx, "",
	)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	for _, alloc := range allocations {
		order, err := s.repoManager.OrderRepository().GetOrder(ctx, alloc.OrderId)
		if err != nil && !errors.Is(err, domain.ErrOrderNotFound) {
			return err
		}
		if order != nil && !order.IsTerminal() {
			continue
		}

		if err := s.repoManager.AllocationRepository().ReleaseAllocation(
			ctx, alloc.OrderId, now,
		); err != nil {
			return err
		}
		log.Infof(
			"recovery: released deposit target %s of asset %s held by order %s",
			alloc.Target(), alloc.AssetId, alloc.OrderId,
		)
	}
	return nil
}
