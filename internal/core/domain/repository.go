package domain

import (
	"context"
	"time"
)

// QuoteRepository is the abstraction for any kind of database intended to
// persist Quotes.
type QuoteRepository interface {
	// AddQuote stores a newly issued quote.
	AddQuote(ctx context.Context, quote *Quote) error
	// GetQuote returns the quote with the given id or ErrQuoteNotFound.
	GetQuote(ctx context.Context, quoteId string) (*Quote, error)
	// GetQuotesByStatus returns all the quotes with the given status.
	GetQuotesByStatus(ctx context.Context, status QuoteStatus) ([]Quote, error)
	// UpdateQuote allows to commit multiple changes to the same quote in a
	// transactional way.
	UpdateQuote(
		ctx context.Context,
		quoteId string,
		updateFn func(q *Quote) (*Quote, error),
	) error
}

// OrderRepository is the abstraction for any kind of database intended to
// persist SwapOrders.
type OrderRepository interface {
	// AddOrder stores a newly created order.
	AddOrder(ctx context.Context, order *SwapOrder) error
	// GetOrder returns the order with the given id or ErrOrderNotFound.
	GetOrder(ctx context.Context, orderId string) (*SwapOrder, error)
	// GetOrderByQuoteId returns the order backed by the given quote or
	// ErrOrderNotFound.
	GetOrderByQuoteId(ctx context.Context, quoteId string) (*SwapOrder, error)
	// GetOrdersByStatus returns the orders matching any of the given statuses,
	// or all of them if none is given, sorted by creation time.
	GetOrdersByStatus(
		ctx context.Context, statuses ...OrderStatus,
	) ([]SwapOrder, error)
	// UpdateOrder allows to commit multiple changes to the same order in a
	// transactional way.
	UpdateOrder(
		ctx context.Context,
		orderId string,
		updateFn func(o *SwapOrder) (*SwapOrder, error),
	) error
}

// AllocationRepository is the abstraction for any kind of database intended
// to persist the deposit allocation table.
type AllocationRepository interface {
	// AddAllocation stores an active allocation. It fails if the same deposit
	// target is already actively allocated for the asset.
	AddAllocation(ctx context.Context, allocation *DepositAllocation) error
	// GetAllocation returns the allocation of the given order or
	// ErrAllocationNotFound.
	GetAllocation(ctx context.Context, orderId string) (*DepositAllocation, error)
	// GetActiveAllocations returns the active allocations of the given asset,
	// or of every asset if assetId is empty.
	GetActiveAllocations(
		ctx context.Context, assetId string,
	) ([]DepositAllocation, error)
	// ReleaseAllocation deactivates the allocation of the given order. It's a
	// no-op for already released allocations.
	ReleaseAllocation(ctx context.Context, orderId string, at time.Time) error
}
