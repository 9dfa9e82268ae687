package inmemory

import (
	"context"
	"sort"

	"github.com/zecswap/zecswap-daemon/internal/core/domain"
)

type quoteRepositoryImpl struct {
	store *store
}

// NewQuoteRepositoryImpl returns a new inmemory QuoteRepository implementation.
func NewQuoteRepositoryImpl(store *store) domain.QuoteRepository {
	return &quoteRepositoryImpl{store}
}

func (r *quoteRepositoryImpl) AddQuote(
	ctx context.Context, quote *domain.Quote,
) error {
	defer r.store.beginWrite(ctx)()
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	if _, ok := r.store.quotes[quote.QuoteId]; ok {
		return domain.ErrQuoteAlreadyExists
	}
	r.store.quotes[quote.QuoteId] = *quote

	onRollback(ctx, r.store, func() {
		delete(r.store.quotes, quote.QuoteId)
	})
	return nil
}

func (r *quoteRepositoryImpl) GetQuote(
	ctx context.Context, quoteId string,
) (*domain.Quote, error) {
	defer r.store.beginRead(ctx)()
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	quote, ok := r.store.quotes[quoteId]
	if !ok {
		return nil, domain.ErrQuoteNotFound
	}
	return &quote, nil
}

func (r *quoteRepositoryImpl) GetQuotesByStatus(
	ctx context.Context, status domain.QuoteStatus,
) ([]domain.Quote, error) {
	defer r.store.beginRead(ctx)()
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	quotes := make([]domain.Quote, 0)
	for _, q := range r.store.quotes {
		if q.Status == status {
			quotes = append(quotes, q)
		}
	}
	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].IssuedAt.Before(quotes[j].IssuedAt)
	})
	return quotes, nil
}

func (r *quoteRepositoryImpl) UpdateQuote(
	ctx context.Context,
	quoteId string,
	updateFn func(q *domain.Quote) (*domain.Quote, error),
) error {
	defer r.store.beginWrite(ctx)()
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	current, ok := r.store.quotes[quoteId]
	if !ok {
		return domain.ErrQuoteNotFound
	}
	quote := current

	updatedQuote, err := updateFn(&quote)
	if err != nil {
		return err
	}
	r.store.quotes[quoteId] = *updatedQuote

	onRollback(ctx, r.store, func() {
		r.store.quotes[quoteId] = current
	})
	return nil
}
