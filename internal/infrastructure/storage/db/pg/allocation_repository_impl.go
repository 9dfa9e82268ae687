package postgresdb

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
)

const (
	allocationColumns = `order_id, asset_id, address, memo, active,
		allocated_at, released_at`

	insertAllocation = `INSERT INTO deposit_allocations (order_id, asset_id,
		address, memo, active, allocated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5)`

	releaseAllocation = `UPDATE deposit_allocations
		SET active = FALSE, released_at = $2
		WHERE order_id = $1 AND active`
)

type allocationRepositoryImpl struct {
	querier func(ctx context.Context) querier
}

func NewAllocationRepositoryImpl(
	querier func(ctx context.Context) querier,
) domain.AllocationRepository {
	return &allocationRepositoryImpl{querier}
}

func (r *allocationRepositoryImpl) AddAllocation(
	ctx context.Context, allocation *domain.DepositAllocation,
) error {
	if _, err := r.querier(ctx).Exec(
		ctx, insertAllocation,
		allocation.OrderId, allocation.AssetId, allocation.Address,
		allocation.Memo, allocation.AllocatedAt,
	); err != nil {
		if constraint, ok := duplicateKeyConstraint(err); ok {
			if constraint == allocationsPkey {
				return domain.ErrOrderAlreadyExists
			}
			return domain.ErrDepositTargetInUse
		}
		return err
	}
	return nil
}

func (r *allocationRepositoryImpl) GetAllocation(
	ctx context.Context, orderId string,
) (*domain.DepositAllocation, error) {
	allocation, err := scanAllocation(r.querier(ctx).QueryRow(
		ctx,
		"SELECT "+allocationColumns+" FROM deposit_allocations WHERE order_id = $1",
		orderId,
	))
	if err != nil {
		if isNotFoundError(err) {
			return nil, domain.ErrAllocationNotFound
		}
		return nil, err
	}
	return allocation, nil
}

func (r *allocationRepositoryImpl) GetActiveAllocations(
	ctx context.Context, assetId string,
) ([]domain.DepositAllocation, error) {
	query := "SELECT " + allocationColumns +
		" FROM deposit_allocations WHERE active"
	args := make([]any, 0, 1)
	if len(assetId) > 0 {
		query += " AND asset_id = $1"
		args = append(args, assetId)
	}
	query += " ORDER BY allocated_at"

	rows, err := r.querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	allocations := make([]domain.DepositAllocation, 0)
	for rows.Next() {
		allocation, err := scanAllocation(rows)
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, *allocation)
	}
	return allocations, rows.Err()
}

func (r *allocationRepositoryImpl) ReleaseAllocation(
	ctx context.Context, orderId string, at time.Time,
) error {
	tag, err := r.querier(ctx).Exec(ctx, releaseAllocation, orderId, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Either already released or missing.
	if _, err := r.GetAllocation(ctx, orderId); err != nil {
		return err
	}
	return nil
}

func scanAllocation(row pgx.Row) (*domain.DepositAllocation, error) {
	var (
		a          domain.DepositAllocation
		releasedAt *time.Time
	)
	if err := row.Scan(
		&a.OrderId, &a.AssetId, &a.Address, &a.Memo, &a.Active,
		&a.AllocatedAt, &releasedAt,
	); err != nil {
		return nil, err
	}
	a.AllocatedAt = a.AllocatedAt.UTC()
	if releasedAt != nil {
		a.ReleasedAt = releasedAt.UTC()
	}
	return &a, nil
}
