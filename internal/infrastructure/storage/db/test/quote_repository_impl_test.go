package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
)

func TestQuoteRepositoryImplementations(t *testing.T) {
	repoManagers := createRepoManagers(t)

	for i := range repoManagers {
		repo := repoManagers[i]

		t.Run(repo.Name, func(t *testing.T) {
			t.Parallel()

			t.Run("testAddAndGetQuote", func(t *testing.T) {
				t.Parallel()
				testAddAndGetQuote(t, repo)
			})

			t.Run("testUpdateQuote", func(t *testing.T) {
				t.Parallel()
				testUpdateQuote(t, repo)
			})

			t.Run("testGetQuotesByStatus", func(t *testing.T) {
				t.Parallel()
				testGetQuotesByStatus(t, repo)
			})

			t.Run("testWriteRollback", func(t *testing.T) {
				t.Parallel()
				testWriteRollback(t, repo)
			})

			t.Run("testReadCommitted", func(t *testing.T) {
				t.Parallel()
				testReadCommitted(t, repo)
			})
		})
	}
}

func testAddAndGetQuote(t *testing.T, repo repoManager) {
	quote := makeRandomQuote()

	_, err := repo.write(func(ctx context.Context) (interface{}, error) {
		return nil, repo.QuoteRepository().AddQuote(ctx, quote)
	})
	require.NoError(t, err)

	_, err = repo.write(func(ctx context.Context) (interface{}, error) {
		return nil, repo.QuoteRepository().AddQuote(ctx, quote)
	})
	require.ErrorIs(t, err, domain.ErrQuoteAlreadyExists)

	iQuote, err := repo.read(func(ctx context.Context) (interface{}, error) {
		return repo.QuoteRepository().GetQuote(ctx, quote.QuoteId)
	})
	require.NoError(t, err)

	gotQuote := iQuote.(*domain.Quote)
	require.Equal(t, quote.QuoteId, gotQuote.QuoteId)
	require.Equal(t, quote.SourceAssetId, gotQuote.SourceAssetId)
	require.Equal(t, quote.RequestMode, gotQuote.RequestMode)
	require.Equal(t, domain.QuoteStatusUnused, gotQuote.Status)
	require.True(t, quote.InputAmount.Equal(gotQuote.InputAmount))
	require.True(t, quote.ExpectedOutput.Equal(gotQuote.ExpectedOutput))
	require.True(t, quote.FeeAmount.Equal(gotQuote.FeeAmount))
	require.True(t, quote.ExchangeRate.Equal(gotQuote.ExchangeRate))
	require.True(t, quote.ExpiresAt.Equal(gotQuote.ExpiresAt))

	_, err = repo.QuoteRepository().GetQuote(ctx, "quote_unknown")
	require.ErrorIs(t, err, domain.ErrQuoteNotFound)
}

func testUpdateQuote(t *testing.T, repo repoManager) {
	quote := makeRandomQuote()
	require.NoError(t, repo.QuoteRepository().AddQuote(ctx, quote))

	_, err := repo.write(func(ctx context.Context) (interface{}, error) {
		return nil, repo.QuoteRepository().UpdateQuote(
			ctx, quote.QuoteId, func(q *domain.Quote) (*domain.Quote, error) {
				if err := q.Consume("swap_1", q.IssuedAt); err != nil {
					return nil, err
				}
				return q, nil
			},
		)
	})
	require.NoError(t, err)

	gotQuote, err := repo.QuoteRepository().GetQuote(ctx, quote.QuoteId)
	require.NoError(t, err)
	require.Equal(t, domain.QuoteStatusConsumed, gotQuote.Status)
	require.Equal(t, "swap_1", gotQuote.OrderId)

	_, err = repo.write(func(ctx context.Context) (interface{}, error) {
		return nil, repo.QuoteRepository().UpdateQuote(
			ctx, quote.QuoteId, func(q *domain.Quote) (*domain.Quote, error) {
				if err := q.Consume("swap_2", q.IssuedAt); err != nil {
					return nil, err
				}
				return q, nil
			},
		)
	})
	require.ErrorIs(t, err, domain.ErrQuoteAlreadyConsumed)

	err = repo.QuoteRepository().UpdateQuote(
		ctx, "quote_unknown", func(q *domain.Quote) (*domain.Quote, error) {
			return q, nil
		},
	)
	require.ErrorIs(t, err, domain.ErrQuoteNotFound)
}

func testGetQuotesByStatus(t *testing.T, repo repoManager) {
	quote := makeRandomQuote()
	require.NoError(t, repo.QuoteRepository().AddQuote(ctx, quote))
	require.NoError(t, repo.QuoteRepository().UpdateQuote(
		ctx, quote.QuoteId, func(q *domain.Quote) (*domain.Quote, error) {
			if err := q.Consume("swap_x", q.IssuedAt); err != nil {
				return nil, err
			}
			if _, err := q.MarkAllocationFailed(); err != nil {
				return nil, err
			}
			return q, nil
		},
	))

	quotes, err := repo.QuoteRepository().GetQuotesByStatus(
		ctx, domain.QuoteStatusAllocationFailed,
	)
	require.NoError(t, err)
	require.True(t, containsQuote(quotes, quote.QuoteId))

	quotes, err = repo.QuoteRepository().GetQuotesByStatus(
		ctx, domain.QuoteStatusUnused,
	)
	require.NoError(t, err)
	require.False(t, containsQuote(quotes, quote.QuoteId))
}

func testWriteRollback(t *testing.T, repo repoManager) {
	quote := makeRandomQuote()
	order := makeRandomOrder(quote)

	_, err := repo.write(func(ctx context.Context) (interface{}, error) {
		if err := repo.QuoteRepository().AddQuote(ctx, quote); err != nil {
			return nil, err
		}
		if err := repo.OrderRepository().AddOrder(ctx, order); err != nil {
			return nil, err
		}
		return nil, domain.ErrAllocationUnavailable
	})
	require.ErrorIs(t, err, domain.ErrAllocationUnavailable)

	_, err = repo.QuoteRepository().GetQuote(ctx, quote.QuoteId)
	require.ErrorIs(t, err, domain.ErrQuoteNotFound)

	_, err = repo.OrderRepository().GetOrder(ctx, order.OrderId)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func testReadCommitted(t *testing.T, repo repoManager) {
	quote := makeRandomQuote()
	require.NoError(t, repo.QuoteRepository().AddQuote(ctx, quote))

	updated := make(chan struct{})
	proceed := make(chan struct{})
	txErr := make(chan error, 1)
	go func() {
		_, err := repo.write(func(ctx context.Context) (interface{}, error) {
			if err := repo.QuoteRepository().UpdateQuote(
				ctx, quote.QuoteId, func(q *domain.Quote) (*domain.Quote, error) {
					err := q.Consume(domain.NewOrderId(), now())
					return q, err
				},
			); err != nil {
				return nil, err
			}
			close(updated)
			<-proceed
			return nil, domain.ErrAllocationUnavailable
		})
		txErr <- err
	}()

	select {
	case <-updated:
	case err := <-txErr:
		t.Fatalf("unexpected transaction end: %v", err)
	}

	// A read racing the transaction must not see its rolled back change.
	read := make(chan *domain.Quote, 1)
	go func() {
		q, err := repo.QuoteRepository().GetQuote(ctx, quote.QuoteId)
		assert.NoError(t, err)
		read <- q
	}()
	time.Sleep(20 * time.Millisecond)
	close(proceed)

	require.ErrorIs(t, <-txErr, domain.ErrAllocationUnavailable)
	gotQuote := <-read
	require.NotNil(t, gotQuote)
	require.Equal(t, domain.QuoteStatusUnused, gotQuote.Status)
}

func containsQuote(quotes []domain.Quote, quoteId string) bool {
	for _, q := range quotes {
		if q.QuoteId == quoteId {
			return true
		}
	}
	return false
}
