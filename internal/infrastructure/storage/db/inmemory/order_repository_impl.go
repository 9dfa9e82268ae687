package inmemory

import (
	"context"
	"sort"

	"github.com/zecswap/zecswap-daemon/internal/core/domain"
)

type orderRepositoryImpl struct {
	store *store
}

// NewOrderRepositoryImpl returns a new inmemory OrderRepository implementation.
func NewOrderRepositoryImpl(store *store) domain.OrderRepository {
	return &orderRepositoryImpl{store}
}

func (r *orderRepositoryImpl) AddOrder(
	ctx context.Context, order *domain.SwapOrder,
) error {
	defer r.store.beginWrite(ctx)()
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	if _, ok := r.store.orders[order.OrderId]; ok {
		return domain.ErrOrderAlreadyExists
	}
	if _, ok := r.store.orderByQuote[order.QuoteId]; ok {
		return domain.ErrQuoteAlreadyConsumed
	}

	r.store.orders[order.OrderId] = cloneOrder(*order)
	r.store.orderByQuote[order.QuoteId] = order.OrderId

	onRollback(ctx, r.store, func() {
		delete(r.store.orders, order.OrderId)
		delete(r.store.orderByQuote, order.QuoteId)
	})
	return nil
}

func (r *orderRepositoryImpl) GetOrder(
	ctx context.Context, orderId string,
) (*domain.SwapOrder, error) {
	defer r.store.beginRead(ctx)()
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	return r.getOrder(orderId)
}

func (r *orderRepositoryImpl) GetOrderByQuoteId(
	ctx context.Context, quoteId string,
) (*domain.SwapOrder, error) {
	defer r.store.beginRead(ctx)()
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	orderId, ok := r.store.orderByQuote[quoteId]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return r.getOrder(orderId)
}

func (r *orderRepositoryImpl) GetOrdersByStatus(
	ctx context.Context, statuses ...domain.OrderStatus,
) ([]domain.SwapOrder, error) {
	defer r.store.beginRead(ctx)()
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	wanted := make(map[domain.OrderStatus]bool)
	for _, st := range statuses {
		wanted[st] = true
	}

	orders := make([]domain.SwapOrder, 0)
	for _, o := range r.store.orders {
		if len(wanted) > 0 && !wanted[o.Status] {
			continue
		}
		orders = append(orders, cloneOrder(o))
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders, nil
}

func (r *orderRepositoryImpl) UpdateOrder(
	ctx context.Context,
	orderId string,
	updateFn func(o *domain.SwapOrder) (*domain.SwapOrder, error),
) error {
	defer r.store.beginWrite(ctx)()
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	current, err := r.getOrder(orderId)
	if err != nil {
		return err
	}
	previous := cloneOrder(*current)

	updatedOrder, err := updateFn(current)
	if err != nil {
		return err
	}
	r.store.orders[orderId] = cloneOrder(*updatedOrder)

	onRollback(ctx, r.store, func() {
		r.store.orders[orderId] = previous
	})
	return nil
}

func (r *orderRepositoryImpl) getOrder(orderId string) (*domain.SwapOrder, error) {
	order, ok := r.store.orders[orderId]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	o := cloneOrder(order)
	return &o, nil
}
