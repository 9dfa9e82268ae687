package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
)

func TestOrderRepositoryImplementations(t *testing.T) {
	repoManagers := createRepoManagers(t)

	for i := range repoManagers {
		repo := repoManagers[i]

		t.Run(repo.Name, func(t *testing.T) {
			t.Parallel()

			t.Run("testAddAndGetOrder", func(t *testing.T) {
				t.Parallel()
				testAddAndGetOrder(t, repo)
			})

			t.Run("testUpdateOrder", func(t *testing.T) {
				t.Parallel()
				testUpdateOrder(t, repo)
			})

			t.Run("testGetOrdersByStatus", func(t *testing.T) {
				t.Parallel()
				testGetOrdersByStatus(t, repo)
			})
		})
	}
}

func testAddAndGetOrder(t *testing.T, repo repoManager) {
	quote := makeRandomQuote()
	order := makeRandomOrder(quote)

	_, err := repo.write(func(ctx context.Context) (interface{}, error) {
		if err := repo.QuoteRepository().AddQuote(ctx, quote); err != nil {
			return nil, err
		}
		return nil, repo.OrderRepository().AddOrder(ctx, order)
	})
	require.NoError(t, err)

	iOrder, err := repo.read(func(ctx context.Context) (interface{}, error) {
		return repo.OrderRepository().GetOrder(ctx, order.OrderId)
	})
	require.NoError(t, err)

	gotOrder := iOrder.(*domain.SwapOrder)
	require.Equal(t, order.OrderId, gotOrder.OrderId)
	require.Equal(t, order.QuoteId, gotOrder.QuoteId)
	require.Equal(t, order.DepositTarget(), gotOrder.DepositTarget())
	require.Equal(t, order.DestinationAddress, gotOrder.DestinationAddress)
	require.Equal(t, domain.OrderStatusPending, gotOrder.Status)
	require.True(t, order.ExpectedInputAmount.Equal(gotOrder.ExpectedInputAmount))
	require.True(t, order.DepositDeadline.Equal(gotOrder.DepositDeadline))
	require.Empty(t, gotOrder.ObservedDeposits)
	require.Empty(t, gotOrder.Transitions)

	gotOrder, err = repo.OrderRepository().GetOrderByQuoteId(ctx, quote.QuoteId)
	require.NoError(t, err)
	require.Equal(t, order.OrderId, gotOrder.OrderId)

	// A quote can back a single order.
	dupOrder := makeRandomOrder(quote)
	err = repo.OrderRepository().AddOrder(ctx, dupOrder)
	require.ErrorIs(t, err, domain.ErrQuoteAlreadyConsumed)

	_, err = repo.OrderRepository().GetOrder(ctx, "swap_unknown")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
	_, err = repo.OrderRepository().GetOrderByQuoteId(ctx, "quote_unknown")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func testUpdateOrder(t *testing.T, repo repoManager) {
	quote := makeRandomQuote()
	order := makeRandomOrder(quote)
	require.NoError(t, repo.QuoteRepository().AddQuote(ctx, quote))
	require.NoError(t, repo.OrderRepository().AddOrder(ctx, order))

	reportedAt := order.CreatedAt.Add(time.Minute)
	_, err := repo.write(func(ctx context.Context) (interface{}, error) {
		return nil, repo.OrderRepository().UpdateOrder(
			ctx, order.OrderId,
			func(o *domain.SwapOrder) (*domain.SwapOrder, error) {
				if _, err := o.RecordDeposit(domain.ObservedDeposit{
					TxReference: "tx1",
					Amount:      o.ExpectedInputAmount,
					AssetId:     o.SourceAssetId,
				}, reportedAt); err != nil {
					return nil, err
				}
				if _, err := o.StartProcessing(reportedAt); err != nil {
					return nil, err
				}
				return o, nil
			},
		)
	})
	require.NoError(t, err)

	gotOrder, err := repo.OrderRepository().GetOrder(ctx, order.OrderId)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusProcessing, gotOrder.Status)
	require.Len(t, gotOrder.ObservedDeposits, 1)
	require.Equal(t, "tx1", gotOrder.ObservedDeposits[0].TxReference)
	require.True(t, gotOrder.ObservedDeposits[0].Counted)
	require.True(t, gotOrder.AccumulatedAmount().Equal(order.ExpectedInputAmount))
	require.Len(t, gotOrder.Transitions, 2)
	require.Equal(t, domain.OrderStatusPending, gotOrder.Transitions[0].From)
	require.Equal(t, domain.OrderStatusDeposited, gotOrder.Transitions[0].To)
	require.Equal(t, domain.OrderStatusProcessing, gotOrder.Transitions[1].To)

	// A failing update leaves the order untouched.
	_, err = repo.write(func(ctx context.Context) (interface{}, error) {
		return nil, repo.OrderRepository().UpdateOrder(
			ctx, order.OrderId,
			func(o *domain.SwapOrder) (*domain.SwapOrder, error) {
				if _, err := o.RecordDeposit(domain.ObservedDeposit{
					TxReference: "tx2",
					Amount:      decimal.NewFromInt(1),
					AssetId:     o.SourceAssetId,
				}, reportedAt); err != nil {
					return nil, err
				}
				return nil, domain.ErrInvalidTransition
			},
		)
	})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	gotOrder, err = repo.OrderRepository().GetOrder(ctx, order.OrderId)
	require.NoError(t, err)
	require.Len(t, gotOrder.ObservedDeposits, 1)
}

func testGetOrdersByStatus(t *testing.T, repo repoManager) {
	pendingQuote := makeRandomQuote()
	pendingOrder := makeRandomOrder(pendingQuote)
	expiredQuote := makeRandomQuote()
	expiredOrder := makeRandomOrder(expiredQuote)

	_, err := repo.write(func(ctx context.Context) (interface{}, error) {
		for _, q := range []*domain.Quote{pendingQuote, expiredQuote} {
			if err := repo.QuoteRepository().AddQuote(ctx, q); err != nil {
				return nil, err
			}
		}
		for _, o := range []*domain.SwapOrder{pendingOrder, expiredOrder} {
			if err := repo.OrderRepository().AddOrder(ctx, o); err != nil {
				return nil, err
			}
		}
		return nil, repo.OrderRepository().UpdateOrder(
			ctx, expiredOrder.OrderId,
			func(o *domain.SwapOrder) (*domain.SwapOrder, error) {
				if _, err := o.Expire(o.DepositDeadline); err != nil {
					return nil, err
				}
				return o, nil
			},
		)
	})
	require.NoError(t, err)

	orders, err := repo.OrderRepository().GetOrdersByStatus(
		ctx, domain.OrderStatusPending,
	)
	require.NoError(t, err)
	require.True(t, containsOrder(orders, pendingOrder.OrderId))
	require.False(t, containsOrder(orders, expiredOrder.OrderId))

	orders, err = repo.OrderRepository().GetOrdersByStatus(
		ctx, domain.OrderStatusExpired, domain.OrderStatusComplete,
	)
	require.NoError(t, err)
	require.False(t, containsOrder(orders, pendingOrder.OrderId))
	require.True(t, containsOrder(orders, expiredOrder.OrderId))

	orders, err = repo.OrderRepository().GetOrdersByStatus(ctx)
	require.NoError(t, err)
	require.True(t, containsOrder(orders, pendingOrder.OrderId))
	require.True(t, containsOrder(orders, expiredOrder.OrderId))
	for i := 1; i < len(orders); i++ {
		require.False(t, orders[i].CreatedAt.Before(orders[i-1].CreatedAt))
	}
}

func containsOrder(orders []domain.SwapOrder, orderId string) bool {
	for _, o := range orders {
		if o.OrderId == orderId {
			return true
		}
	}
	return false
}
