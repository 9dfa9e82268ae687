package inmemory

import (
	"context"
	"sync"

	"github.com/zecswap/zecswap-daemon/internal/core/domain"
)

type store struct {
	// txLock is held for writing by write transactions, so that readers
	// outside of them only see committed changes.
	txLock *sync.RWMutex
	lock   *sync.RWMutex

	quotes        map[string]domain.Quote
	orders        map[string]domain.SwapOrder
	orderByQuote  map[string]string
	allocations   map[string]domain.DepositAllocation
	activeTargets map[string]string
}

func newStore() *store {
	return &store{
		txLock:        &sync.RWMutex{},
		lock:          &sync.RWMutex{},
		quotes:        make(map[string]domain.Quote),
		orders:        make(map[string]domain.SwapOrder),
		orderByQuote:  make(map[string]string),
		allocations:   make(map[string]domain.DepositAllocation),
		activeTargets: make(map[string]string),
	}
}

type txKey struct{}

// transaction keeps the undo log of a write transaction.
type transaction struct {
	undo []func()
}

func (t *transaction) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// beginRead waits for in-flight write transactions unless ctx belongs to one.
// The returned func must be called once done.
func (s *store) beginRead(ctx context.Context) func() {
	if txFromContext(ctx) != nil {
		return func() {}
	}
	s.txLock.RLock()
	return s.txLock.RUnlock
}

// beginWrite serializes a write made outside of a transaction with the
// running transactions.
func (s *store) beginWrite(ctx context.Context) func() {
	if txFromContext(ctx) != nil {
		return func() {}
	}
	s.txLock.Lock()
	return s.txLock.Unlock
}

func txFromContext(ctx context.Context) *transaction {
	if tx, ok := ctx.Value(txKey{}).(*transaction); ok {
		return tx
	}
	return nil
}

// onRollback registers fn to be called if the transaction in ctx, if any, is
// rolled back. Must be called with the store lock held.
func onRollback(ctx context.Context, s *store, fn func()) {
	tx := txFromContext(ctx)
	if tx == nil {
		return
	}
	tx.undo = append(tx.undo, func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		fn()
	})
}

func cloneOrder(o domain.SwapOrder) domain.SwapOrder {
	o.ObservedDeposits = append(
		make([]domain.ObservedDeposit, 0, len(o.ObservedDeposits)),
		o.ObservedDeposits...,
	)
	o.Transitions = append(
		make([]domain.StatusTransition, 0, len(o.Transitions)),
		o.Transitions...,
	)
	return o
}

func targetKey(assetId, address, memo string) string {
	return assetId + "|" + address + "|" + memo
}
