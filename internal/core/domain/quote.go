package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestMode tells whether the requested amount of a quote is what the user
// pays (source asset) or what the user wants to receive (ZEC).
type RequestMode string

const (
	RequestModePay     RequestMode = "pay"
	RequestModeReceive RequestMode = "receive"
)

func (m RequestMode) IsValid() bool {
	return m == RequestModePay || m == RequestModeReceive
}

func ParseRequestMode(mode string) (RequestMode, error) {
	m := RequestMode(mode)
	if !m.IsValid() {
		return "", ErrInvalidRequestMode
	}
	return m, nil
}

// QuoteStatus represents the different statuses a quote can assume.
type QuoteStatus int

const (
	QuoteStatusUnused QuoteStatus = iota
	QuoteStatusConsumed
	// QuoteStatusAllocationFailed marks a quote that was consumed without an
	// order being created for it. It's surfaced for manual resolution.
	QuoteStatusAllocationFailed
)

func (s QuoteStatus) String() string {
	switch s {
	case QuoteStatusUnused:
		return "unused"
	case QuoteStatusConsumed:
		return "consumed"
	case QuoteStatusAllocationFailed:
		return "allocation_failed"
	default:
		return "unknown"
	}
}

// Quote is a time-bounded offer to convert an amount of a source asset into
// ZEC.
type Quote struct {
	QuoteId         string
	SourceAssetId   string
	RequestedAmount decimal.Decimal
	RequestMode     RequestMode
	InputAmount     decimal.Decimal
	ExpectedOutput  decimal.Decimal
	FeeAmount       decimal.Decimal
	FeeRate         decimal.Decimal
	ExchangeRate    decimal.Decimal
	IssuedAt        time.Time
	ExpiresAt       time.Time
	Status          QuoteStatus
	OrderId         string
}

// NewQuote returns an unused quote for the given priced amounts, valid for
// the given duration starting from issuedAt.
func NewQuote(
	sourceAssetId string, mode RequestMode, requestedAmount decimal.Decimal,
	priced PricedAmounts, issuedAt time.Time, validity time.Duration,
) *Quote {
	return &Quote{
		QuoteId:         QuoteIdPrefix + uuid.New().String(),
		SourceAssetId:   sourceAssetId,
		RequestedAmount: requestedAmount,
		RequestMode:     mode,
		InputAmount:     priced.Input,
		ExpectedOutput:  priced.Output,
		FeeAmount:       priced.Fee,
		FeeRate:         priced.FeeRate,
		ExchangeRate:    priced.ExchangeRate(),
		IssuedAt:        issuedAt,
		ExpiresAt:       issuedAt.Add(validity),
		Status:          QuoteStatusUnused,
	}
}

// IsExpired returns whether the quote's validity window has passed.
func (q *Quote) IsExpired(now time.Time) bool {
	return !now.Before(q.ExpiresAt)
}

// IsUsable returns whether the quote can still back a new order.
func (q *Quote) IsUsable(now time.Time) bool {
	return q.Status == QuoteStatusUnused && !q.IsExpired(now)
}

func (q *Quote) IsConsumed() bool {
	return q.Status != QuoteStatusUnused
}

// TimeLeft is the remaining validity, never negative.
func (q *Quote) TimeLeft(now time.Time) time.Duration {
	if q.IsExpired(now) {
		return 0
	}
	return q.ExpiresAt.Sub(now)
}

// Consume binds the quote to the given order. A quote can be consumed only
// once, and only before it expires.
func (q *Quote) Consume(orderId string, now time.Time) error {
	if q.IsConsumed() {
		return ErrQuoteAlreadyConsumed
	}
	if q.IsExpired(now) {
		return ErrQuoteExpired
	}
	q.Status = QuoteStatusConsumed
	q.OrderId = orderId
	return nil
}

// MarkAllocationFailed flags a consumed quote whose order never made it to
// the store.
func (q *Quote) MarkAllocationFailed() (bool, error) {
	if q.Status == QuoteStatusAllocationFailed {
		return false, nil
	}
	if q.Status != QuoteStatusConsumed {
		return false, fmt.Errorf("quote must be consumed to be marked as failed")
	}
	q.Status = QuoteStatusAllocationFailed
	return true, nil
}
