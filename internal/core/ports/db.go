package ports

import (
	"context"

	"github.com/zecswap/zecswap-daemon/internal/core/domain"
)

// RepoManager interface defines the methods for quotes, orders and deposit
// allocations.
type RepoManager interface {
	QuoteRepository() domain.QuoteRepository
	OrderRepository() domain.OrderRepository
	AllocationRepository() domain.AllocationRepository

	// RunTransaction runs the given handler in a single database transaction.
	// The handler must use the given context with the repositories so that all
	// the changes are committed, or rolled back on error, as a unit.
	RunTransaction(
		ctx context.Context,
		readOnly bool,
		handler func(ctx context.Context) (interface{}, error),
	) (interface{}, error)

	Close()
}
