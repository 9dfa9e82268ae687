package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/zecswap/zecswap-daemon/internal/core/application/pubsub"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
	"github.com/zecswap/zecswap-daemon/internal/core/ports"
	"github.com/zecswap/zecswap-daemon/pkg/chainaddr"
	"github.com/zecswap/zecswap-daemon/pkg/stats"
)

const (
	// DefaultSweepInterval is the period of the deadline sweeper.
	DefaultSweepInterval = 5 * time.Second
)

// DepositReport is an inbound transaction observed by a deposit watcher.
type DepositReport struct {
	OrderId     string
	TxReference string
	Amount      string
	AssetId     string
	Memo        string
}

type Service struct {
	repoManager   ports.RepoManager
	catalog       ports.AssetCatalog
	pubsub        *pubsub.Service
	network       string
	sweepInterval time.Duration
	now           func() time.Time

	allocator *allocator
	locker    *orderLocker

	lock     *sync.Mutex
	quitChan chan struct{}
	wg       *sync.WaitGroup
}

type Option func(s *Service)

// WithClock overrides the clock used for deadlines and transitions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithSweepInterval overrides the default period of the deadline sweeper.
func WithSweepInterval(interval time.Duration) Option {
	return func(s *Service) {
		s.sweepInterval = interval
	}
}

// WithPubSub makes the service publish order events.
func WithPubSub(pubsubSvc *pubsub.Service) Option {
	return func(s *Service) {
		s.pubsub = pubsubSvc
	}
}

func NewService(
	repoManager ports.RepoManager,
	catalog ports.AssetCatalog,
	pool ports.AddressPool,
	network string,
	opts ...Option,
) (*Service, error) {
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if catalog == nil {
		return nil, fmt.Errorf("missing asset catalog")
	}
	if pool == nil {
		return nil, fmt.Errorf("missing address pool")
	}
	if network != chainaddr.ZcashMainnet && network != chainaddr.ZcashTestnet {
		return nil, chainaddr.ErrInvalidZcashNetwork
	}

	svc := &Service{
		repoManager:   repoManager,
		catalog:       catalog,
		network:       network,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
		allocator:     newAllocator(repoManager, pool),
		locker:        newOrderLocker(),
		lock:          &sync.Mutex{},
		wg:            &sync.WaitGroup{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.sweepInterval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive")
	}
	return svc, nil
}

// AcceptQuote consumes the given quote and creates a pending order funded
// through a freshly allocated deposit target. Consuming the quote, storing
// the order and its allocation are committed as a unit.
func (s *Service) AcceptQuote(
	ctx context.Context, quoteId, destinationAddress string,
) (*domain.SwapOrder, error) {
	quote, err := s.repoManager.QuoteRepository().GetQuote(ctx, quoteId)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if quote.IsConsumed() {
		return nil, domain.ErrQuoteAlreadyConsumed
	}
	if quote.IsExpired(now) {
		return nil, domain.ErrQuoteExpired
	}

	destinationAddress = strings.TrimSpace(destinationAddress)
	if err := chainaddr.ValidateZcashTransparentAddress(
		destinationAddress, s.network,
	); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidDestinationAddress, err)
	}

	asset, err := s.catalog.GetAsset(ctx, quote.SourceAssetId)
	if err != nil {
		return nil, err
	}

	orderId := domain.NewOrderId()
	order, err := s.allocator.allocate(
		ctx, *asset,
		func(target domain.DepositTarget) (*domain.SwapOrder, error) {
			return s.createOrder(ctx, orderId, quoteId, target, destinationAddress)
		},
	)
	if err != nil {
		if errors.Is(err, domain.ErrAllocationUnavailable) {
			stats.AllocationFailures.WithLabelValues(asset.Symbol).Inc()
			log.Warnf("allocator: no deposit target available for asset %s", asset.AssetId)
		}
		return nil, err
	}

	stats.OrdersCreated.WithLabelValues(asset.Symbol).Inc()
	log.Infof(
		"order %s created for quote %s, deposit %s of %s to %s",
		order.OrderId, order.QuoteId, order.ExpectedInputAmount, asset.Symbol,
		order.DepositTarget(),
	)
	s.publishOrderEvent(*order)
	return order, nil
}

// ReportDeposit records an inbound transaction for the given order. Reports
// are idempotent by transaction reference. Deposits for expired orders are
// recorded as late and never revive the order.
func (s *Service) ReportDeposit(
	ctx context.Context, report DepositReport,
) (*domain.SwapOrder, error) {
	if len(strings.TrimSpace(report.TxReference)) <= 0 {
		return nil, domain.ErrMissingTxReference
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(report.Amount))
	if err != nil || !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	unlock := s.locker.lockOrder(report.OrderId)
	defer unlock()

	var (
		recorded bool
		before   domain.OrderStatus
		deposit  domain.ObservedDeposit
	)
	iOrder, err := s.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			var order *domain.SwapOrder
			if err := s.repoManager.OrderRepository().UpdateOrder(
				ctx, report.OrderId,
				func(o *domain.SwapOrder) (*domain.SwapOrder, error) {
					before = o.Status
					deposit = domain.ObservedDeposit{
						TxReference: strings.TrimSpace(report.TxReference),
						Amount:      amount,
						AssetId:     report.AssetId,
						Memo:        report.Memo,
					}
					ok, err := o.RecordDeposit(deposit, s.now().UTC())
					if err != nil {
						return nil, err
					}
					recorded = ok
					if ok {
						deposit = o.ObservedDeposits[len(o.ObservedDeposits)-1]
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
		if errors.Is(err, domain.ErrOrderTerminal) {
			stats.DepositReports.WithLabelValues("rejected").Inc()
		}
		return nil, err
	}

	order := iOrder.(*domain.SwapOrder)
	switch {
	case !recorded:
		stats.DepositReports.WithLabelValues("duplicate").Inc()
		log.Debugf("deposit %s already recorded for order %s", report.TxReference, order.OrderId)
	case deposit.Late:
		stats.DepositReports.WithLabelValues("late").Inc()
		log.Warnf(
			"late deposit %s of %s detected for expired order %s",
			deposit.TxReference, deposit.Amount, order.OrderId,
		)
		s.publishLateDeposit(*order, deposit)
	case deposit.Counted:
		stats.DepositReports.WithLabelValues("counted").Inc()
	default:
		stats.DepositReports.WithLabelValues("ignored").Inc()
		log.Warnf(
			"deposit %s for order %s does not match the expected asset or memo",
			deposit.TxReference, order.OrderId,
		)
	}

	s.logAndPublishTransition(before, *order)
	return order, nil
}

// CompleteSettlement marks the order as complete once the ZEC payout has been
// confirmed. A deposited order is brought to processing first.
func (s *Service) CompleteSettlement(
	ctx context.Context, orderId, settlementRef string,
) (*domain.SwapOrder, error) {
	settlementRef = strings.TrimSpace(settlementRef)
	if len(settlementRef) <= 0 {
		return nil, fmt.Errorf("missing settlement reference")
	}

	return s.settle(ctx, orderId, func(o *domain.SwapOrder, now time.Time) error {
		_, err := o.Complete(settlementRef, now)
		return err
	})
}

// FailSettlement marks the order as failed because the conversion could not
// complete.
func (s *Service) FailSettlement(
	ctx context.Context, orderId, reason string,
) (*domain.SwapOrder, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) <= 0 {
		reason = "settlement failed"
	}

	return s.settle(ctx, orderId, func(o *domain.SwapOrder, now time.Time) error {
		_, err := o.Fail(reason, now)
		return err
	})
}

// Start reconciles the state left by a previous run and starts the deadline
// sweeper.
func (s *Service) Start(ctx context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.quitChan != nil {
		return fmt.Errorf("order service already started")
	}

	if err := s.Recover(ctx); err != nil {
		return fmt.Errorf("recovering orders: %w", err)
	}
	if err := s.Sweep(ctx); err != nil {
		log.WithError(err).Warn("sweeper: first sweep failed")
	}

	s.quitChan = make(chan struct{})
	s.wg.Add(1)
	go s.sweepLoop(s.quitChan)

	log.Debugf("sweeper: started with interval %s", s.sweepInterval)
	return nil
}

func (s *Service) Stop() {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.quitChan == nil {
		return
	}
	close(s.quitChan)
	s.wg.Wait()
	s.quitChan = nil
	log.Debug("sweeper: stopped")
}

// releaseAllocation frees the deposit target of an order that just reached a
// terminal status.
func (s *Service) releaseAllocation(
	ctx context.Context, order domain.SwapOrder,
) error {
	err := s.repoManager.AllocationRepository().ReleaseAllocation(
		ctx, order.OrderId, order.UpdatedAt,
	)
	if errors.Is(err, domain.ErrAllocationNotFound) {
		log.Warnf("no deposit allocation found for order %s", order.OrderId)
		return nil
	}
	return err
}

func (s *Service) createOrder(
	ctx context.Context, orderId, quoteId string,
	target domain.DepositTarget, destinationAddress string,
) (*domain.SwapOrder, error) {
	res, err := s.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			now := s.now().UTC()

			var quote domain.Quote
			if err := s.repoManager.QuoteRepository().UpdateQuote(
				ctx, quoteId, func(q *domain.Quote) (*domain.Quote, error) {
					if err := q.Consume(orderId, now); err != nil {
						return nil, err
					}
					quote = *q
					return q, nil
				},
			); err != nil {
				return nil, err
			}

			order := domain.NewSwapOrder(
				orderId, quote, target, destinationAddress, now, domain.QuoteValidity,
			)
			if err := s.repoManager.OrderRepository().AddOrder(ctx, order); err != nil {
				return nil, err
			}

			allocation := domain.NewDepositAllocation(
				orderId, quote.SourceAssetId, target, now,
			)
			if err := s.repoManager.AllocationRepository().AddAllocation(
				ctx, allocation,
			); err != nil {
				if errors.Is(err, domain.ErrDepositTargetInUse) {
					return nil, fmt.Errorf("%w: %s", domain.ErrAllocationUnavailable, err)
				}
				return nil, err
			}
			return order, nil
		},
	)
	if err != nil {
		return nil, err
	}
	return res.(*domain.SwapOrder), nil
}

func (s *Service) settle(
	ctx context.Context, orderId string,
	settleFn func(o *domain.SwapOrder, now time.Time) error,
) (*domain.SwapOrder, error) {
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
					if o.Status == domain.OrderStatusDeposited {
						if _, err := o.StartProcessing(now); err != nil {
							return nil, err
						}
					}
					if err := settleFn(o, now); err != nil {
						return nil, err
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
		return nil, err
	}

	order := iOrder.(*domain.SwapOrder)
	s.logAndPublishTransition(before, *order)
	return order, nil
}

// logAndPublishTransition publishes an event for every status the order went
// through since the given one.
func (s *Service) logAndPublishTransition(
	before domain.OrderStatus, order domain.SwapOrder,
) {
	if before == order.Status {
		return
	}

	crossed := false
	for i, t := range order.Transitions {
		if t.From == before {
			crossed = true
		}
		if !crossed {
			continue
		}
		stats.OrderTransitions.WithLabelValues(t.To.String()).Inc()
		log.Debugf("order %s: %s -> %s (%s)", order.OrderId, t.From, t.To, t.Reason)

		s.publishOrderEvent(order.StateAfter(i))
	}
}

func (s *Service) publishOrderEvent(order domain.SwapOrder) {
	if s.pubsub == nil {
		return
	}
	label := fmt.Sprintf("%s event for order %s", order.Status, order.OrderId)
	s.pubsub.PublishAsync(label, func() error {
		return s.pubsub.PublishOrderEvent(order)
	})
}

func (s *Service) publishLateDeposit(
	order domain.SwapOrder, deposit domain.ObservedDeposit,
) {
	if s.pubsub == nil {
		return
	}
	label := fmt.Sprintf("late deposit event for order %s", order.OrderId)
	s.pubsub.PublishAsync(label, func() error {
		return s.pubsub.PublishLateDepositEvent(order, deposit)
	})
}

func (s *Service) publishAllocationFailed(quote domain.Quote) {
	if s.pubsub == nil {
		return
	}
	label := fmt.Sprintf("allocation failed event for quote %s", quote.QuoteId)
	s.pubsub.PublishAsync(label, func() error {
		return s.pubsub.PublishAllocationFailedEvent(quote)
	})
}
