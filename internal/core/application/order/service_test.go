package order_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/zecswap/zecswap-daemon/internal/core/application/order"
	"github.com/zecswap/zecswap-daemon/internal/core/application/pubsub"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
	"github.com/zecswap/zecswap-daemon/internal/core/ports"
	staticcatalog "github.com/zecswap/zecswap-daemon/internal/infrastructure/catalog/static"
	"github.com/zecswap/zecswap-daemon/internal/infrastructure/storage/db/inmemory"
	"github.com/zecswap/zecswap-daemon/pkg/chainaddr"
	"github.com/zecswap/zecswap-daemon/pkg/stats"
)

const (
	destination        = "t1Hxw6JqWMnhDK5jRCieg5bFHM2qt7UtQvu"
	testnetDestination = "tm9ogR9KukTCiTKvrsSxQwFv2x1vhZTydav"
)

var (
	btcAsset = domain.Asset{
		AssetId: "btc", Symbol: "BTC", ChainName: "bitcoin", Decimals: 8,
	}
	xlmAsset = domain.Asset{
		AssetId: "xlm", Symbol: "XLM", ChainName: "stellar", Decimals: 7,
		MemoRequired: true,
	}
	rate    = decimal.RequireFromString("0.95")
	feeRate = decimal.RequireFromString("0.005")
	start   = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
)

type testClock struct {
	lock sync.Mutex
	now  time.Time
}

func (c *testClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = c.now.Add(d)
}

type staticPool map[string][]string

func (p staticPool) Addresses(assetId string) []string {
	return p[assetId]
}

type testEnv struct {
	svc         *order.Service
	repoManager ports.RepoManager
	clock       *testClock
}

func newTestEnv(t *testing.T, pool staticPool) *testEnv {
	catalog, err := staticcatalog.NewCatalog([]domain.Asset{btcAsset, xlmAsset})
	require.NoError(t, err)

	clock := &testClock{now: start}
	repoManager := inmemory.NewRepoManager()
	svc, err := order.NewService(
		repoManager, catalog, pool, chainaddr.ZcashMainnet,
		order.WithClock(clock.Now),
	)
	require.NoError(t, err)
	return &testEnv{svc, repoManager, clock}
}

func (e *testEnv) addQuote(t *testing.T, asset domain.Asset, amount string) *domain.Quote {
	priced, err := domain.PriceForInput(
		decimal.RequireFromString(amount), rate, feeRate, asset.Decimals,
	)
	require.NoError(t, err)

	q := domain.NewQuote(
		asset.AssetId, domain.RequestModePay, priced.Input, *priced,
		e.clock.Now(), domain.QuoteValidity,
	)
	err = e.repoManager.QuoteRepository().AddQuote(context.Background(), q)
	require.NoError(t, err)
	return q
}

func (e *testEnv) acceptNew(t *testing.T, asset domain.Asset, amount string) *domain.SwapOrder {
	q := e.addQuote(t, asset, amount)
	o, err := e.svc.AcceptQuote(context.Background(), q.QuoteId, destination)
	require.NoError(t, err)
	return o
}

func TestAcceptQuote(t *testing.T) {
	ctx := context.Background()

	t.Run("memo-less asset", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, staticPool{"btc": {"btc-addr-1", "btc-addr-2"}})
		q := env.addQuote(t, btcAsset, "0.01")
		env.clock.Advance(10 * time.Minute)

		o, err := env.svc.AcceptQuote(ctx, q.QuoteId, destination)
		require.NoError(t, err)
		require.NotNil(t, o)
		require.Equal(t, domain.OrderStatusPending, o.Status)
		require.Equal(t, q.QuoteId, o.QuoteId)
		require.Equal(t, "btc-addr-1", o.DepositAddress)
		require.Empty(t, o.DepositMemo)
		require.Equal(t, destination, o.DestinationAddress)
		require.Equal(t, "0.01", o.ExpectedInputAmount.String())
		require.Equal(t, "0.0094525", o.ExpectedOutput.String())
		// The deposit window starts when the order is created.
		require.Equal(t, env.clock.Now().Add(15*time.Minute), o.DepositDeadline)

		stored, err := env.repoManager.QuoteRepository().GetQuote(ctx, q.QuoteId)
		require.NoError(t, err)
		require.Equal(t, domain.QuoteStatusConsumed, stored.Status)
		require.Equal(t, o.OrderId, stored.OrderId)

		alloc, err := env.repoManager.AllocationRepository().GetAllocation(ctx, o.OrderId)
		require.NoError(t, err)
		require.True(t, alloc.Active)
		require.Equal(t, o.DepositTarget(), alloc.Target())

		_, err = env.svc.AcceptQuote(ctx, q.QuoteId, destination)
		require.ErrorIs(t, err, domain.ErrQuoteAlreadyConsumed)
	})

	t.Run("memo asset", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, staticPool{"xlm": {"GXLMDEPOSIT"}})
		memos := make(map[string]struct{})
		for i := 0; i < 5; i++ {
			o := env.acceptNew(t, xlmAsset, "100")
			require.Equal(t, "GXLMDEPOSIT", o.DepositAddress)
			require.Len(t, o.DepositMemo, domain.MemoLength)
			for _, c := range o.DepositMemo {
				require.True(t, c >= '0' && c <= '9')
			}
			memos[o.DepositMemo] = struct{}{}
		}
		require.Len(t, memos, 5)
	})

	t.Run("memo asset round robin", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, staticPool{"xlm": {"GXLM1", "GXLM2"}})
		o1 := env.acceptNew(t, xlmAsset, "100")
		o2 := env.acceptNew(t, xlmAsset, "100")
		o3 := env.acceptNew(t, xlmAsset, "100")
		require.Equal(t, "GXLM1", o1.DepositAddress)
		require.Equal(t, "GXLM2", o2.DepositAddress)
		require.Equal(t, "GXLM1", o3.DepositAddress)
	})
}

func TestFailingAcceptQuote(t *testing.T) {
	ctx := context.Background()

	t.Run("quote not found", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, staticPool{"btc": {"btc-addr-1"}})
		_, err := env.svc.AcceptQuote(ctx, "quote_unknown", destination)
		require.ErrorIs(t, err, domain.ErrQuoteNotFound)
	})

	t.Run("quote expired", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, staticPool{"btc": {"btc-addr-1"}})
		q := env.addQuote(t, btcAsset, "0.01")
		env.clock.Advance(domain.QuoteValidity)

		_, err := env.svc.AcceptQuote(ctx, q.QuoteId, destination)
		require.ErrorIs(t, err, domain.ErrQuoteExpired)
	})

	t.Run("invalid destination", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, staticPool{"btc": {"btc-addr-1"}})
		q := env.addQuote(t, btcAsset, "0.01")

		for _, addr := range []string{
			"", testnetDestination, "zs1notatransparentaddress", "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq",
		} {
			_, err := env.svc.AcceptQuote(ctx, q.QuoteId, addr)
			require.ErrorIs(t, err, domain.ErrInvalidDestinationAddress)
		}

		stored, err := env.repoManager.QuoteRepository().GetQuote(ctx, q.QuoteId)
		require.NoError(t, err)
		require.Equal(t, domain.QuoteStatusUnused, stored.Status)
	})

	t.Run("pool exhausted", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, staticPool{"btc": {"btc-addr-1", "btc-addr-2"}})
		env.acceptNew(t, btcAsset, "0.01")
		env.acceptNew(t, btcAsset, "0.01")

		q := env.addQuote(t, btcAsset, "0.01")
		_, err := env.svc.AcceptQuote(ctx, q.QuoteId, destination)
		require.ErrorIs(t, err, domain.ErrAllocationUnavailable)

		stored, err := env.repoManager.QuoteRepository().GetQuote(ctx, q.QuoteId)
		require.NoError(t, err)
		require.Equal(t, domain.QuoteStatusUnused, stored.Status)

		// Expiring the pending orders frees their addresses.
		env.clock.Advance(domain.QuoteValidity)
		require.NoError(t, env.svc.Sweep(ctx))

		o := env.acceptNew(t, btcAsset, "0.01")
		require.Equal(t, "btc-addr-1", o.DepositAddress)
	})

	t.Run("asset without pool", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, staticPool{})
		q := env.addQuote(t, btcAsset, "0.01")
		_, err := env.svc.AcceptQuote(ctx, q.QuoteId, destination)
		require.ErrorIs(t, err, domain.ErrAllocationUnavailable)
	})
}

func TestConcurrentAcceptQuote(t *testing.T) {
	ctx := context.Background()
	numOfOrders := 10

	addresses := make([]string, 0, numOfOrders)
	for i := 0; i < numOfOrders; i++ {
		addresses = append(addresses, fmt.Sprintf("btc-addr-%d", i))
	}
	env := newTestEnv(t, staticPool{"btc": addresses})

	quotes := make([]*domain.Quote, 0, numOfOrders)
	for i := 0; i < numOfOrders; i++ {
		quotes = append(quotes, env.addQuote(t, btcAsset, "0.01"))
	}

	wg := &sync.WaitGroup{}
	orders := make([]*domain.SwapOrder, numOfOrders)
	errs := make([]error, numOfOrders)
	for i := range quotes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			orders[i], errs[i] = env.svc.AcceptQuote(ctx, quotes[i].QuoteId, destination)
		}(i)
	}
	wg.Wait()

	depositAddresses := make(map[string]struct{})
	for i := range orders {
		require.NoError(t, errs[i])
		depositAddresses[orders[i].DepositAddress] = struct{}{}
	}
	require.Len(t, depositAddresses, numOfOrders)
}

func TestConcurrentAcceptSameQuote(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, staticPool{"btc": {"btc-addr-1", "btc-addr-2", "btc-addr-3"}})
	q := env.addQuote(t, btcAsset, "0.01")

	numOfCalls := 3
	wg := &sync.WaitGroup{}
	errs := make([]error, numOfCalls)
	for i := 0; i < numOfCalls; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.AcceptQuote(ctx, q.QuoteId, destination)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, domain.ErrQuoteAlreadyConsumed)
	}
	require.Equal(t, 1, succeeded)

	allocations, err := env.repoManager.AllocationRepository().GetActiveAllocations(ctx, "btc")
	require.NoError(t, err)
	require.Len(t, allocations, 1)
}

func TestReportDeposit(t *testing.T) {
	ctx := context.Background()

	t.Run("accumulated deposits", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, staticPool{"btc": {"btc-addr-1"}})
		o := env.acceptNew(t, btcAsset, "0.01")

		o, err := env.svc.ReportDeposit(ctx, order.DepositReport{
			OrderId: o.OrderId, TxReference: "tx2", Amount: "0.006", AssetId: "btc",
		})
		require.NoError(t, err)
		require.Equal(t, domain.OrderStatusPending, o.Status)
		require.Equal(t, "0.006", o.AccumulatedAmount().String())

		// Duplicates are a no-op.
		o, err = env.svc.ReportDeposit(ctx, order.DepositReport{
			OrderId: o.OrderId, TxReference: "tx2", Amount: "0.006", AssetId: "btc",
		})
		require.NoError(t, err)
		require.Len(t, o.ObservedDeposits, 1)
		require.Equal(t, domain.OrderStatusPending, o.Status)

		o, err = env.svc.ReportDeposit(ctx, order.DepositReport{
			OrderId: o.OrderId, TxReference: "tx1", Amount: "0.004", AssetId: "btc",
		})
		require.NoError(t, err)
		require.Equal(t, domain.OrderStatusDeposited, o.Status)
		require.Len(t, o.ObservedDeposits, 2)
		require.Len(t, o.Transitions, 1)

		o, err = env.svc.ReportDeposit(ctx, order.DepositReport{
			OrderId: o.OrderId, TxReference: "tx1", Amount: "0.004", AssetId: "btc",
		})
		require.NoError(t, err)
		require.Len(t, o.ObservedDeposits, 2)
		require.Len(t, o.Transitions, 1)

		// Allocation is kept until the order is terminal.
		alloc, err := env.repoManager.AllocationRepository().GetAllocation(ctx, o.OrderId)
		require.NoError(t, err)
		require.True(t, alloc.Active)
	})

	t.Run("mismatching deposits", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, staticPool{"xlm": {"GXLMDEPOSIT"}})
		o := env.acceptNew(t, xlmAsset, "100")

		o, err := env.svc.ReportDeposit(ctx, order.DepositReport{
			OrderId: o.OrderId, TxReference: "tx1", Amount: "100",
			AssetId: "xlm", Memo: "0000000000x",
		})
		require.NoError(t, err)
		require.Equal(t, domain.OrderStatusPending, o.Status)
		require.False(t, o.ObservedDeposits[0].Counted)

		o, err = env.svc.ReportDeposit(ctx, order.DepositReport{
			OrderId: o.OrderId, TxReference: "tx2", Amount: "100",
			AssetId: "btc", Memo: o.DepositMemo,
		})
		require.NoError(t, err)
		require.Equal(t, domain.OrderStatusPending, o.Status)
		require.False(t, o.ObservedDeposits[1].Counted)

		o, err = env.svc.ReportDeposit(ctx, order.DepositReport{
			OrderId: o.OrderId, TxReference: "tx3", Amount: "100",
			AssetId: "xlm", Memo: o.DepositMemo,
		})
		require.NoError(t, err)
		require.Equal(t, domain.OrderStatusDeposited, o.Status)
		require.Len(t, o.ObservedDeposits, 3)
	})

	t.Run("late deposit", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, staticPool{"btc": {"btc-addr-1"}})
		o := env.acceptNew(t, btcAsset, "0.01")

		// The sweeper didn't run yet, the deadline still wins.
		env.clock.Advance(domain.QuoteValidity + time.Second)
		o, err := env.svc.ReportDeposit(ctx, order.DepositReport{
			OrderId: o.OrderId, TxReference: "tx1", Amount: "0.01", AssetId: "btc",
		})
		require.NoError(t, err)
		require.Equal(t, domain.OrderStatusExpired, o.Status)
		require.Len(t, o.ObservedDeposits, 1)
		require.True(t, o.ObservedDeposits[0].Late)
		require.True(t, o.AccumulatedAmount().IsZero())

		alloc, err := env.repoManager.AllocationRepository().GetAllocation(ctx, o.OrderId)
		require.NoError(t, err)
		require.False(t, alloc.Active)

		o, err = env.svc.ReportDeposit(ctx, order.DepositReport{
			OrderId: o.OrderId, TxReference: "tx2", Amount: "0.01", AssetId: "btc",
		})
		require.NoError(t, err)
		require.Equal(t, domain.OrderStatusExpired, o.Status)
		require.Len(t, o.ObservedDeposits, 2)
	})

	t.Run("invalid reports", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, staticPool{"btc": {"btc-addr-1"}})
		o := env.acceptNew(t, btcAsset, "0.01")

		tests := []struct {
			report        order.DepositReport
			expectedError error
		}{
			{
				order.DepositReport{OrderId: "swap_unknown", TxReference: "tx", Amount: "1", AssetId: "btc"},
				domain.ErrOrderNotFound,
			},
			{
				order.DepositReport{OrderId: o.OrderId, TxReference: " ", Amount: "1", AssetId: "btc"},
				domain.ErrMissingTxReference,
			},
			{
				order.DepositReport{OrderId: o.OrderId, TxReference: "tx", Amount: "0", AssetId: "btc"},
				domain.ErrInvalidAmount,
			},
			{
				order.DepositReport{OrderId: o.OrderId, TxReference: "tx", Amount: "abc", AssetId: "btc"},
				domain.ErrInvalidAmount,
			},
		}
		for _, tt := range tests {
			_, err := env.svc.ReportDeposit(ctx, tt.report)
			require.ErrorIs(t, err, tt.expectedError)
		}
	})

	t.Run("terminal order", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, staticPool{"btc": {"btc-addr-1"}})
		o := env.acceptNew(t, btcAsset, "0.01")

		_, err := env.svc.ReportDeposit(ctx, order.DepositReport{
			OrderId: o.OrderId, TxReference: "tx1", Amount: "0.01", AssetId: "btc",
		})
		require.NoError(t, err)
		_, err = env.svc.CompleteSettlement(ctx, o.OrderId, "zectx")
		require.NoError(t, err)

		_, err = env.svc.ReportDeposit(ctx, order.DepositReport{
			OrderId: o.OrderId, TxReference: "tx2", Amount: "0.01", AssetId: "btc",
		})
		require.ErrorIs(t, err, domain.ErrOrderTerminal)

		// Redelivery of an already recorded report is still acknowledged.
		_, err = env.svc.ReportDeposit(ctx, order.DepositReport{
			OrderId: o.OrderId, TxReference: "tx1", Amount: "0.01", AssetId: "btc",
		})
		require.NoError(t, err)
	})
}

func TestSettlement(t *testing.T) {
	ctx := context.Background()

	t.Run("complete", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, staticPool{"btc": {"btc-addr-1"}})
		o := env.acceptNew(t, btcAsset, "0.01")

		_, err := env.svc.ReportDeposit(ctx, order.DepositReport{
			OrderId: o.OrderId, TxReference: "tx1", Amount: "0.01", AssetId: "btc",
		})
		require.NoError(t, err)

		require.NoError(t, env.svc.Sweep(ctx))
		stored, err := env.repoManager.OrderRepository().GetOrder(ctx, o.OrderId)
		require.NoError(t, err)
		require.Equal(t, domain.OrderStatusProcessing, stored.Status)

		o, err = env.svc.CompleteSettlement(ctx, o.OrderId, "zectx")
		require.NoError(t, err)
		require.Equal(t, domain.OrderStatusComplete, o.Status)
		require.Equal(t, "zectx", o.SettlementRef)
		require.Len(t, o.Transitions, 3)

		alloc, err := env.repoManager.AllocationRepository().GetAllocation(ctx, o.OrderId)
		require.NoError(t, err)
		require.False(t, alloc.Active)

		// Same report twice is a no-op.
		o, err = env.svc.CompleteSettlement(ctx, o.OrderId, "zectx")
		require.NoError(t, err)
		require.Len(t, o.Transitions, 3)

		_, err = env.svc.FailSettlement(ctx, o.OrderId, "too late")
		require.ErrorIs(t, err, domain.ErrOrderTerminal)
	})

	t.Run("fail from deposited", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, staticPool{"btc": {"btc-addr-1"}})
		o := env.acceptNew(t, btcAsset, "0.01")

		_, err := env.svc.ReportDeposit(ctx, order.DepositReport{
			OrderId: o.OrderId, TxReference: "tx1", Amount: "0.02", AssetId: "btc",
		})
		require.NoError(t, err)

		o, err = env.svc.FailSettlement(ctx, o.OrderId, "insufficient liquidity")
		require.NoError(t, err)
		require.Equal(t, domain.OrderStatusFailed, o.Status)
		require.Equal(t, "insufficient liquidity", o.FailureReason)
		require.Len(t, o.Transitions, 3)
		require.Equal(t, domain.OrderStatusProcessing, o.Transitions[1].To)

		// The address is free again.
		o2 := env.acceptNew(t, btcAsset, "0.01")
		require.Equal(t, "btc-addr-1", o2.DepositAddress)
	})

	t.Run("invalid transitions", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, staticPool{"btc": {"btc-addr-1"}})
		o := env.acceptNew(t, btcAsset, "0.01")

		_, err := env.svc.CompleteSettlement(ctx, o.OrderId, "zectx")
		require.ErrorIs(t, err, domain.ErrInvalidTransition)

		_, err = env.svc.FailSettlement(ctx, o.OrderId, "")
		require.ErrorIs(t, err, domain.ErrInvalidTransition)

		_, err = env.svc.CompleteSettlement(ctx, o.OrderId, "")
		require.Error(t, err)

		_, err = env.svc.CompleteSettlement(ctx, "swap_unknown", "zectx")
		require.ErrorIs(t, err, domain.ErrOrderNotFound)

		stored, err := env.repoManager.OrderRepository().GetOrder(ctx, o.OrderId)
		require.NoError(t, err)
		require.Equal(t, domain.OrderStatusPending, stored.Status)
		require.Empty(t, stored.Transitions)
	})
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, staticPool{"btc": {"btc-addr-1", "btc-addr-2"}})

	o1 := env.acceptNew(t, btcAsset, "0.01")
	env.clock.Advance(5 * time.Minute)
	o2 := env.acceptNew(t, btcAsset, "0.01")

	_, err := env.svc.ReportDeposit(ctx, order.DepositReport{
		OrderId: o1.OrderId, TxReference: "tx1", Amount: "0.005", AssetId: "btc",
	})
	require.NoError(t, err)

	env.clock.Advance(10 * time.Minute)
	require.NoError(t, env.svc.Sweep(ctx))

	expired, err := env.repoManager.OrderRepository().GetOrder(ctx, o1.OrderId)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusExpired, expired.Status)
	require.Contains(t, expired.Transitions[0].Reason, "partial deposit")

	pending, err := env.repoManager.OrderRepository().GetOrder(ctx, o2.OrderId)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusPending, pending.Status)

	allocations, err := env.repoManager.AllocationRepository().GetActiveAllocations(ctx, "btc")
	require.NoError(t, err)
	require.Len(t, allocations, 1)
	require.Equal(t, o2.OrderId, allocations[0].OrderId)
}

func TestStartStop(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, staticPool{"btc": {"btc-addr-1"}})
	o := env.acceptNew(t, btcAsset, "0.01")
	env.clock.Advance(domain.QuoteValidity)

	svc, err := order.NewService(
		env.repoManager, mustCatalog(t), staticPool{"btc": {"btc-addr-1"}},
		chainaddr.ZcashMainnet,
		order.WithClock(env.clock.Now),
		order.WithSweepInterval(10*time.Millisecond),
	)
	require.NoError(t, err)

	require.NoError(t, svc.Start(ctx))
	require.Error(t, svc.Start(ctx))
	t.Cleanup(svc.Stop)

	require.Eventually(t, func() bool {
		stored, err := env.repoManager.OrderRepository().GetOrder(ctx, o.OrderId)
		return err == nil && stored.Status == domain.OrderStatusExpired
	}, time.Second, 10*time.Millisecond)
}

func TestRecover(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, staticPool{"btc": {"btc-addr-1", "btc-addr-2"}})

	// A quote consumed by an order that never made it to the store.
	orphan := env.addQuote(t, btcAsset, "0.01")
	err := env.repoManager.QuoteRepository().UpdateQuote(
		ctx, orphan.QuoteId, func(q *domain.Quote) (*domain.Quote, error) {
			err := q.Consume("swap_lost", env.clock.Now())
			return q, err
		},
	)
	require.NoError(t, err)

	// An allocation left active for a missing order.
	err = env.repoManager.AllocationRepository().AddAllocation(
		ctx, domain.NewDepositAllocation(
			"swap_lost", "btc", domain.DepositTarget{Address: "btc-addr-1"},
			env.clock.Now(),
		),
	)
	require.NoError(t, err)

	healthy := env.acceptNew(t, btcAsset, "0.01")
	require.Equal(t, "btc-addr-2", healthy.DepositAddress)

	failures := testutil.ToFloat64(stats.AllocationFailures.WithLabelValues("BTC"))
	require.NoError(t, env.svc.Recover(ctx))
	require.Equal(t, failures+1, testutil.ToFloat64(stats.AllocationFailures.WithLabelValues("BTC")))
	require.Zero(t, testutil.ToFloat64(stats.AllocationFailures.WithLabelValues("btc")))

	stored, err := env.repoManager.QuoteRepository().GetQuote(ctx, orphan.QuoteId)
	require.NoError(t, err)
	require.Equal(t, domain.QuoteStatusAllocationFailed, stored.Status)

	healthyQuote, err := env.repoManager.QuoteRepository().GetQuote(ctx, healthy.QuoteId)
	require.NoError(t, err)
	require.Equal(t, domain.QuoteStatusConsumed, healthyQuote.Status)

	allocations, err := env.repoManager.AllocationRepository().GetActiveAllocations(ctx, "btc")
	require.NoError(t, err)
	require.Len(t, allocations, 1)
	require.Equal(t, healthy.OrderId, allocations[0].OrderId)

	// Recovery is idempotent.
	require.NoError(t, env.svc.Recover(ctx))
}

type publishedEvent struct {
	topic   string
	payload map[string]interface{}
}

type recordingPubSub struct {
	lock   sync.Mutex
	events []publishedEvent
}

func (r *recordingPubSub) Subscribe(_, _, _ string) (string, error) { return "", nil }

func (r *recordingPubSub) Unsubscribe(_, _ string) error { return nil }

func (r *recordingPubSub) ListSubscriptionsForTopic(_ string) []ports.Subscription {
	return nil
}

func (r *recordingPubSub) Publish(topic string, message string) error {
	payload := make(map[string]interface{})
	if err := json.Unmarshal([]byte(message), &payload); err != nil {
		return err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	r.events = append(r.events, publishedEvent{topic, payload})
	return nil
}

func (r *recordingPubSub) Close() error { return nil }

func TestOrderEvents(t *testing.T) {
	ctx := context.Background()
	catalog, err := staticcatalog.NewCatalog([]domain.Asset{btcAsset})
	require.NoError(t, err)

	recorder := &recordingPubSub{}
	pubsubSvc := pubsub.NewService(recorder)
	clock := &testClock{now: start}
	repoManager := inmemory.NewRepoManager()
	svc, err := order.NewService(
		repoManager, catalog, staticPool{"btc": {"btc-addr-1"}},
		chainaddr.ZcashMainnet,
		order.WithClock(clock.Now), order.WithPubSub(pubsubSvc),
	)
	require.NoError(t, err)
	env := &testEnv{svc, repoManager, clock}

	o := env.acceptNew(t, btcAsset, "0.01")
	_, err = svc.ReportDeposit(ctx, order.DepositReport{
		OrderId: o.OrderId, TxReference: "tx1", Amount: "0.01", AssetId: "btc",
	})
	require.NoError(t, err)
	_, err = svc.CompleteSettlement(ctx, o.OrderId, "zectx")
	require.NoError(t, err)

	pubsubSvc.Close()

	topics := make([]string, 0, len(recorder.events))
	for _, e := range recorder.events {
		topics = append(topics, e.topic)
	}
	require.Equal(t, []string{
		pubsub.TopicOrderCreated,
		pubsub.TopicOrderDeposited,
		pubsub.TopicOrderProcessing,
		pubsub.TopicOrderCompleted,
	}, topics)

	processing := recorder.events[2].payload["order"].(map[string]interface{})
	require.Equal(t, "processing", processing["status"])
	require.NotContains(t, processing, "settlement_ref")

	complete := recorder.events[3].payload["order"].(map[string]interface{})
	require.Equal(t, "complete", complete["status"])
	require.Equal(t, "zectx", complete["settlement_ref"])
}

func TestFailingNewService(t *testing.T) {
	catalog := mustCatalog(t)
	repoManager := inmemory.NewRepoManager()
	pool := staticPool{}

	_, err := order.NewService(nil, catalog, pool, chainaddr.ZcashMainnet)
	require.Error(t, err)
	_, err = order.NewService(repoManager, nil, pool, chainaddr.ZcashMainnet)
	require.Error(t, err)
	_, err = order.NewService(repoManager, catalog, nil, chainaddr.ZcashMainnet)
	require.Error(t, err)
	_, err = order.NewService(repoManager, catalog, pool, "regtest")
	require.ErrorIs(t, err, chainaddr.ErrInvalidZcashNetwork)
	_, err = order.NewService(
		repoManager, catalog, pool, chainaddr.ZcashTestnet, order.WithSweepInterval(0),
	)
	require.Error(t, err)
}

func mustCatalog(t *testing.T) ports.AssetCatalog {
	catalog, err := staticcatalog.NewCatalog([]domain.Asset{btcAsset, xlmAsset})
	require.NoError(t, err)
	return catalog
}
