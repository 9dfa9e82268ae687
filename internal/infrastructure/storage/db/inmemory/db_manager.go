package inmemory

import (
	"context"

	"github.com/zecswap/zecswap-daemon/internal/core/domain"
	"github.com/zecswap/zecswap-daemon/internal/core/ports"
)

type RepoManager struct {
	store *store

	quoteRepository      domain.QuoteRepository
	orderRepository      domain.OrderRepository
	allocationRepository domain.AllocationRepository
}

// NewRepoManager returns a RepoManager keeping everything in memory. Write
// transactions are serialized and rolled back on error by undoing their
// changes in reverse order. Reads made outside of a write transaction wait for
// it to complete.
func NewRepoManager() ports.RepoManager {
	s := newStore()

	return &RepoManager{
		store:                s,
		quoteRepository:      NewQuoteRepositoryImpl(s),
		orderRepository:      NewOrderRepositoryImpl(s),
		allocationRepository: NewAllocationRepositoryImpl(s),
	}
}

func (d *RepoManager) QuoteRepository() domain.QuoteRepository {
	return d.quoteRepository
}

func (d *RepoManager) OrderRepository() domain.OrderRepository {
	return d.orderRepository
}

func (d *RepoManager) AllocationRepository() domain.AllocationRepository {
	return d.allocationRepository
}

func (d *RepoManager) RunTransaction(
	ctx context.Context,
	readOnly bool,
	handler func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	if readOnly {
		return handler(ctx)
	}

	// Nested transactions join the outer one.
	if txFromContext(ctx) != nil {
		return handler(ctx)
	}

	d.store.txLock.Lock()
	defer d.store.txLock.Unlock()

	tx := &transaction{}
	res, err := handler(context.WithValue(ctx, txKey{}, tx))
	if err != nil {
		tx.rollback()
		return nil, err
	}
	return res, nil
}

func (d *RepoManager) Close() {}
