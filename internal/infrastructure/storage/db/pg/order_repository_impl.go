package postgresdb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
)

const (
	orderColumns = `order_id, quote_id, source_asset_id,
		expected_input_amount::text, expected_output::text, deposit_address,
		deposit_memo, destination_address, status, observed_deposits,
		transitions, settlement_ref, failure_reason, created_at,
		deposit_deadline, updated_at`

	insertOrder = `INSERT INTO orders (order_id, quote_id, source_asset_id,
		expected_input_amount, expected_output, deposit_address, deposit_memo,
		destination_address, status, observed_deposits, transitions,
		settlement_ref, failure_reason, created_at, deposit_deadline,
		updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		$15, $16)`

	updateOrder = `UPDATE orders SET status = $2, observed_deposits = $3,
		transitions = $4, settlement_ref = $5, failure_reason = $6,
		updated_at = $7
		WHERE order_id = $1`
)

type orderRepositoryImpl struct {
	querier func(ctx context.Context) querier
}

func NewOrderRepositoryImpl(
	querier func(ctx context.Context) querier,
) domain.OrderRepository {
	return &orderRepositoryImpl{querier}
}

func (r *orderRepositoryImpl) AddOrder(
	ctx context.Context, order *domain.SwapOrder,
) error {
	deposits, transitions, err := marshalOrderHistory(order)
	if err != nil {
		return err
	}

	if _, err := r.querier(ctx).Exec(
		ctx, insertOrder,
		order.OrderId, order.QuoteId, order.SourceAssetId,
		order.ExpectedInputAmount.String(), order.ExpectedOutput.String(),
		order.DepositAddress, order.DepositMemo, order.DestinationAddress,
		order.Status.String(), deposits, transitions, order.SettlementRef,
		order.FailureReason, order.CreatedAt, order.DepositDeadline,
		order.UpdatedAt,
	); err != nil {
		if constraint, ok := duplicateKeyConstraint(err); ok {
			if constraint == ordersPkey {
				return domain.ErrOrderAlreadyExists
			}
			return domain.ErrQuoteAlreadyConsumed
		}
		return err
	}
	return nil
}

func (r *orderRepositoryImpl) GetOrder(
	ctx context.Context, orderId string,
) (*domain.SwapOrder, error) {
	return r.getOrder(ctx, "order_id", orderId, false)
}

func (r *orderRepositoryImpl) GetOrderByQuoteId(
	ctx context.Context, quoteId string,
) (*domain.SwapOrder, error) {
	return r.getOrder(ctx, "quote_id", quoteId, false)
}

func (r *orderRepositoryImpl) GetOrdersByStatus(
	ctx context.Context, statuses ...domain.OrderStatus,
) ([]domain.SwapOrder, error) {
	query := "SELECT " + orderColumns + " FROM orders"
	args := make([]any, 0, 1)
	if len(statuses) > 0 {
		names := make([]string, 0, len(statuses))
		for _, st := range statuses {
			names = append(names, st.String())
		}
		query += " WHERE status = ANY($1)"
		args = append(args, names)
	}
	query += " ORDER BY created_at"

	rows, err := r.querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.SwapOrder, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

func (r *orderRepositoryImpl) UpdateOrder(
	ctx context.Context,
	orderId string,
	updateFn func(o *domain.SwapOrder) (*domain.SwapOrder, error),
) error {
	order, err := r.getOrder(ctx, "order_id", orderId, true)
	if err != nil {
		return err
	}

	updatedOrder, err := updateFn(order)
	if err != nil {
		return err
	}

	deposits, transitions, err := marshalOrderHistory(updatedOrder)
	if err != nil {
		return err
	}

	_, err = r.querier(ctx).Exec(
		ctx, updateOrder,
		orderId, updatedOrder.Status.String(), deposits, transitions,
		updatedOrder.SettlementRef, updatedOrder.FailureReason,
		updatedOrder.UpdatedAt,
	)
	return err
}

func (r *orderRepositoryImpl) getOrder(
	ctx context.Context, column, value string, forUpdate bool,
) (*domain.SwapOrder, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM orders WHERE %s = $1", orderColumns, column,
	)
	if forUpdate {
		query += " FOR UPDATE"
	}

	order, err := scanOrder(r.querier(ctx).QueryRow(ctx, query, value))
	if err != nil {
		if isNotFoundError(err) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func scanOrder(row pgx.Row) (*domain.SwapOrder, error) {
	var (
		o                     domain.SwapOrder
		input, output, status string
		deposits, transitions []byte
	)
	if err := row.Scan(
		&o.OrderId, &o.QuoteId, &o.SourceAssetId, &input, &output,
		&o.DepositAddress, &o.DepositMemo, &o.DestinationAddress, &status,
		&deposits, &transitions, &o.SettlementRef, &o.FailureReason,
		&o.CreatedAt, &o.DepositDeadline, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}

	st, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	o.Status = st
	o.ExpectedInputAmount = decimal.RequireFromString(input)
	o.ExpectedOutput = decimal.RequireFromString(output)
	o.CreatedAt = o.CreatedAt.UTC()
	o.DepositDeadline = o.DepositDeadline.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()

	o.ObservedDeposits = make([]domain.ObservedDeposit, 0)
	if err := json.Unmarshal(deposits, &o.ObservedDeposits); err != nil {
		return nil, fmt.Errorf("decoding observed deposits: %w", err)
	}
	o.Transitions = make([]domain.StatusTransition, 0)
	if err := json.Unmarshal(transitions, &o.Transitions); err != nil {
		return nil, fmt.Errorf("decoding transitions: %w", err)
	}
	return &o, nil
}

func marshalOrderHistory(o *domain.SwapOrder) ([]byte, []byte, error) {
	deposits := o.ObservedDeposits
	if deposits == nil {
		deposits = make([]domain.ObservedDeposit, 0)
	}
	transitions := o.Transitions
	if transitions == nil {
		transitions = make([]domain.StatusTransition, 0)
	}

	d, err := json.Marshal(deposits)
	if err != nil {
		return nil, nil, err
	}
	t, err := json.Marshal(transitions)
	if err != nil {
		return nil, nil, err
	}
	return d, t, nil
}
