package order

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
)

func (s *Service) sweepLoop(quitChan chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-quitChan:
			return
		case <-ticker.C:
			if err := s.Sweep(context.Background()); err != nil {
				log.WithError(err).Warn("sweeper: failed to sweep orders")
			}
		}
	}
}

// Sweep expires the pending orders whose deposit deadline has passed and
// starts the conversion of the deposited ones.
func (s *Service) Sweep(ctx context.Context) error {
	orders, err := s.repoManager.OrderRepository().GetOrdersByStatus(
		ctx, domain.OrderStatusPending, domain.OrderStatusDeposited,
	)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	for i := range orders {
		order := orders[i]
		if order.IsPending() && !order.IsDeadlinePassed(now) {
			continue
		}
		if err := s.advanceOrder(ctx, order.OrderId); err != nil {
			log.WithError(err).Warnf("sweeper: failed to advance order %s", order.OrderId)
		}
	}
	return nil
}

// advanceOrder applies the automatic transitions to the given order.
func (s *Service) advanceOrder(ctx context.Context, orderId string) error {
	unlock := s.locker.lockOrder(orderId)
	defer unlock()

	var before domain.OrderStatus
	iOrder, err := s.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			var order *domain.SwapOrder
			if err := s.repoManager.OrderRepository().UpdateOrder(
				ctx, orderId,
				func(o *domain.SwapOrder) (*domain.SwapOrder, error) {
					before = o.Status
					now := s.now().UTC()

					switch o.Status {
					case domain.OrderStatusPending:
						if _, err := o.Expire(now); err != nil {
							return nil, err
						}
					case domain.OrderStatusDeposited:
						if _, err := o.StartProcessing(now); err != nil {
							return nil, err
						}
					}
					order = o
					return o, nil
				},
			); err != nil {
				return nil, err
			}

			if order.IsTerminal() && !before.IsTerminal() {
				if err := s.releaseAllocation(ctx, *order); err != nil {
					return nil, err
				}
			}
			return order, nil
		},
	)
	if err != nil {
		return err
	}

	order := iOrder.(*domain.SwapOrder)
	if order.Status == domain.OrderStatusExpired && before != order.Status {
		log.Infof(
			"order %s expired with %s of %s deposited",
			order.OrderId, order.AccumulatedAmount(), order.ExpectedInputAmount,
		)
	}
	s.logAndPublishTransition(before, *order)
	return nil
}
