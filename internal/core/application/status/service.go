package status

import (
	"context"
	"fmt"
	"time"

	"github.com/zecswap/zecswap-daemon/internal/core/domain"
	"github.com/zecswap/zecswap-daemon/internal/core/ports"
)

// Service serves read-only views of the orders. It never changes state, an
// order past its deadline shows zero seconds remaining until the sweeper
// expires it.
type Service struct {
	repoManager ports.RepoManager
	now         func() time.Time
}

type Option func(s *Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repoManager ports.RepoManager, opts ...Option) (*Service, error) {
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	svc := &Service{
		repoManager: repoManager,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

func (s *Service) GetStatus(
	ctx context.Context, orderId string,
) (*OrderStatusView, error) {
	order, err := s.repoManager.OrderRepository().GetOrder(ctx, orderId)
	if err != nil {
		return nil, err
	}
	view := NewOrderStatusView(*order, s.now().UTC())
	return &view, nil
}

// ListOrders returns the views of the orders with any of the given statuses,
// or of all orders if none is given, oldest first.
func (s *Service) ListOrders(
	ctx context.Context, statuses ...domain.OrderStatus,
) ([]OrderStatusView, error) {
	orders, err := s.repoManager.OrderRepository().GetOrdersByStatus(
		ctx, statuses...,
	)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	views := make([]OrderStatusView, 0, len(orders))
	for _, o := range orders {
		views = append(views, NewOrderStatusView(o, now))
	}
	return views, nil
}
