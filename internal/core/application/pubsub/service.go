package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
	"github.com/zecswap/zecswap-daemon/internal/core/ports"
)

const (
	TopicOrderCreated        = "OrderCreated"
	TopicOrderDeposited      = "OrderDeposited"
	TopicOrderProcessing     = "OrderProcessing"
	TopicOrderCompleted      = "OrderCompleted"
	TopicOrderFailed         = "OrderFailed"
	TopicOrderExpired        = "OrderExpired"
	TopicLateDepositDetected = "LateDepositDetected"
	TopicAllocationFailed    = "AllocationFailed"
)

var (
	topicByStatus = map[domain.OrderStatus]string{
		domain.OrderStatusPending:    TopicOrderCreated,
		domain.OrderStatusDeposited:  TopicOrderDeposited,
		domain.OrderStatusProcessing: TopicOrderProcessing,
		domain.OrderStatusComplete:   TopicOrderCompleted,
		domain.OrderStatusFailed:     TopicOrderFailed,
		domain.OrderStatusExpired:    TopicOrderExpired,
	}

	// Topics are the labels a webhook can subscribe to.
	Topics = map[string]struct{}{
		TopicOrderCreated:        {},
		TopicOrderDeposited:      {},
		TopicOrderProcessing:     {},
		TopicOrderCompleted:      {},
		TopicOrderFailed:         {},
		TopicOrderExpired:        {},
		TopicLateDepositDetected: {},
		TopicAllocationFailed:    {},
		ports.AnyTopic:           {},
	}
)

// ErrInvalidTopic is returned when subscribing to an unknown topic.
var ErrInvalidTopic = errors.New("invalid webhook topic")

// QueueSize is the max number of events waiting to be published.
const QueueSize = 1024

// WebhookInfo is the portable representation of a webhook subscription.
type WebhookInfo struct {
	Id        string `json:"id"`
	Topic     string `json:"topic"`
	Endpoint  string `json:"endpoint"`
	IsSecured bool   `json:"isSecured"`
}

type publishJob struct {
	label   string
	publish func() error
}

type Service struct {
	pubsub ports.SecurePubSub

	lock   *sync.RWMutex
	closed bool
	queue  chan publishJob
	done   chan struct{}
}

// NewService returns a service publishing events in background, one at a time
// and in the order they are queued.
func NewService(pubsub ports.SecurePubSub) *Service {
	svc := &Service{
		pubsub: pubsub,
		lock:   &sync.RWMutex{},
		queue:  make(chan publishJob, QueueSize),
		done:   make(chan struct{}),
	}
	go svc.dispatch()
	return svc
}

func (s *Service) AddWebhook(
	_ context.Context, topic, endpoint, secret string,
) (string, error) {
	if _, ok := Topics[topic]; !ok {
		return "", fmt.Errorf("%w %q", ErrInvalidTopic, topic)
	}
	return s.pubsub.Subscribe(topic, endpoint, secret)
}

func (s *Service) RemoveWebhook(_ context.Context, id string) error {
	return s.pubsub.Unsubscribe(ports.UnspecifiedTopic, id)
}

func (s *Service) ListWebhooks(
	_ context.Context, topic string,
) ([]WebhookInfo, error) {
	subs := s.pubsub.ListSubscriptionsForTopic(topic)
	webhooks := make([]WebhookInfo, 0, len(subs))
	for _, sub := range subs {
		webhooks = append(webhooks, WebhookInfo{
			Id:        sub.Id(),
			Topic:     sub.Topic(),
			Endpoint:  sub.NotifyAt(),
			IsSecured: sub.IsSecured(),
		})
	}
	return webhooks, nil
}

// PublishOrderEvent publishes the topic matching the current status of the
// given order.
func (s *Service) PublishOrderEvent(order domain.SwapOrder) error {
	topic, ok := topicByStatus[order.Status]
	if !ok {
		return fmt.Errorf("no topic for order status %s", order.Status)
	}
	payload := map[string]interface{}{
		"event": topic,
		"order": getOrderPayload(order),
	}
	return s.publish(topic, payload)
}

func (s *Service) PublishLateDepositEvent(
	order domain.SwapOrder, deposit domain.ObservedDeposit,
) error {
	topic := TopicLateDepositDetected
	payload := map[string]interface{}{
		"event":   topic,
		"order":   getOrderPayload(order),
		"deposit": getDepositPayload(deposit),
	}
	return s.publish(topic, payload)
}

func (s *Service) PublishAllocationFailedEvent(quote domain.Quote) error {
	topic := TopicAllocationFailed
	payload := map[string]interface{}{
		"event": topic,
		"quote": map[string]interface{}{
			"id":              quote.QuoteId,
			"source_asset":    quote.SourceAssetId,
			"input_amount":    quote.InputAmount.String(),
			"expected_output": quote.ExpectedOutput.String(),
			"order_id":        quote.OrderId,
			"issued_at":       quote.IssuedAt.Format(time.RFC3339),
		},
	}
	return s.publish(topic, payload)
}

// PublishAsync queues the given publish func and returns without waiting for
// it. The event is dropped if the queue is full or the service closed.
func (s *Service) PublishAsync(label string, publish func() error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.closed {
		log.Warnf("pubsub: service closed, dropping %s", label)
		return
	}
	select {
	case s.queue <- publishJob{label, publish}:
	default:
		log.Warnf("pubsub: queue full, dropping %s", label)
	}
}

// Close publishes the queued events and closes the underlying pubsub.
func (s *Service) Close() {
	s.lock.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.lock.Unlock()

	<-s.done
	//nolint
	s.pubsub.Close()
}

func (s *Service) dispatch() {
	defer close(s.done)

	for job := range s.queue {
		if err := job.publish(); err != nil {
			log.WithError(err).Warnf("pubsub: failed to publish %s", job.label)
			continue
		}
		log.Debugf("pubsub: published %s", job.label)
	}
}

func (s *Service) publish(topic string, payload map[string]interface{}) error {
	message, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.pubsub.Publish(topic, string(message))
}
