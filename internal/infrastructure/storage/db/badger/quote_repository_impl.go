package dbbadger

import (
	"context"
	"errors"
	"sort"

	"github.com/timshannon/badgerhold/v4"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
)

type quoteRepositoryImpl struct {
	store *badgerhold.Store
}

func NewQuoteRepositoryImpl(store *badgerhold.Store) domain.QuoteRepository {
	return quoteRepositoryImpl{store}
}

func (r quoteRepositoryImpl) AddQuote(
	ctx context.Context, quote *domain.Quote,
) error {
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxInsert(tx, quote.QuoteId, *quote)
	} else {
		err = r.store.Insert(quote.QuoteId, *quote)
	}
	if err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return domain.ErrQuoteAlreadyExists
		}
		return err
	}
	return nil
}

func (r quoteRepositoryImpl) GetQuote(
	ctx context.Context, quoteId string,
) (*domain.Quote, error) {
	return r.getQuote(ctx, quoteId)
}

func (r quoteRepositoryImpl) GetQuotesByStatus(
	ctx context.Context, status domain.QuoteStatus,
) ([]domain.Quote, error) {
	query := badgerhold.Where("Status").Eq(status)

	var quotes []domain.Quote
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxFind(tx, &quotes, query)
	} else {
		err = r.store.Find(&quotes, query)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].IssuedAt.Before(quotes[j].IssuedAt)
	})
	return quotes, nil
}

func (r quoteRepositoryImpl) UpdateQuote(
	ctx context.Context,
	quoteId string,
	updateFn func(q *domain.Quote) (*domain.Quote, error),
) error {
	quote, err := r.getQuote(ctx, quoteId)
	if err != nil {
		return err
	}

	updatedQuote, err := updateFn(quote)
	if err != nil {
		return err
	}

	if tx := txFromContext(ctx); tx != nil {
		return r.store.TxUpdate(tx, quoteId, *updatedQuote)
	}
	return r.store.Update(quoteId, *updatedQuote)
}

func (r quoteRepositoryImpl) getQuote(
	ctx context.Context, quoteId string,
) (*domain.Quote, error) {
	var quote domain.Quote
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxGet(tx, quoteId, &quote)
	} else {
		err = r.store.Get(quoteId, &quote)
	}
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrQuoteNotFound
		}
		return nil, err
	}
	return &quote, nil
}
