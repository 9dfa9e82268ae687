package dbbadger

import (
	"context"
	"errors"
	"sort"

	"github.com/timshannon/badgerhold/v4"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
)

type orderRepositoryImpl struct {
	store *badgerhold.Store
}

func NewOrderRepositoryImpl(store *badgerhold.Store) domain.OrderRepository {
	return orderRepositoryImpl{store}
}

func (r orderRepositoryImpl) AddOrder(
	ctx context.Context, order *domain.SwapOrder,
) error {
	orders, err := r.findOrders(ctx, badgerhold.Where("QuoteId").Eq(order.QuoteId))
	if err != nil {
		return err
	}
	if len(orders) > 0 {
		return domain.ErrQuoteAlreadyConsumed
	}

	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxInsert(tx, order.OrderId, *order)
	} else {
		err = r.store.Insert(order.OrderId, *order)
	}
	if err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return domain.ErrOrderAlreadyExists
		}
		return err
	}
	return nil
}

func (r orderRepositoryImpl) GetOrder(
	ctx context.Context, orderId string,
) (*domain.SwapOrder, error) {
	return r.getOrder(ctx, orderId)
}

func (r orderRepositoryImpl) GetOrderByQuoteId(
	ctx context.Context, quoteId string,
) (*domain.SwapOrder, error) {
	orders, err := r.findOrders(ctx, badgerhold.Where("QuoteId").Eq(quoteId))
	if err != nil {
		return nil, err
	}
	if len(orders) <= 0 {
		return nil, domain.ErrOrderNotFound
	}
	return &orders[0], nil
}

func (r orderRepositoryImpl) GetOrdersByStatus(
	ctx context.Context, statuses ...domain.OrderStatus,
) ([]domain.SwapOrder, error) {
	var query *badgerhold.Query
	if len(statuses) > 0 {
		query = badgerhold.Where("Status").In(badgerhold.Slice(statuses)...)
	}

	orders, err := r.findOrders(ctx, query)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders, nil
}

func (r orderRepositoryImpl) UpdateOrder(
	ctx context.Context,
	orderId string,
	updateFn func(o *domain.SwapOrder) (*domain.SwapOrder, error),
) error {
	order, err := r.getOrder(ctx, orderId)
	if err != nil {
		return err
	}

	updatedOrder, err := updateFn(order)
	if err != nil {
		return err
	}

	if tx := txFromContext(ctx); tx != nil {
		return r.store.TxUpdate(tx, orderId, *updatedOrder)
	}
	return r.store.Update(orderId, *updatedOrder)
}

func (r orderRepositoryImpl) getOrder(
	ctx context.Context, orderId string,
) (*domain.SwapOrder, error) {
	var order domain.SwapOrder
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxGet(tx, orderId, &order)
	} else {
		err = r.store.Get(orderId, &order)
	}
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	normalizeOrder(&order)
	return &order, nil
}

func (r orderRepositoryImpl) findOrders(
	ctx context.Context, query *badgerhold.Query,
) ([]domain.SwapOrder, error) {
	var orders []domain.SwapOrder
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxFind(tx, &orders, query)
	} else {
		err = r.store.Find(&orders, query)
	}
	if err != nil {
		return nil, err
	}
	for i := range orders {
		normalizeOrder(&orders[i])
	}
	return orders, nil
}

// gob drops empty slices.
func normalizeOrder(o *domain.SwapOrder) {
	if o.ObservedDeposits == nil {
		o.ObservedDeposits = make([]domain.ObservedDeposit, 0)
	}
	if o.Transitions == nil {
		o.Transitions = make([]domain.StatusTransition, 0)
	}
}
