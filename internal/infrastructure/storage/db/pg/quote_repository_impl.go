package postgresdb

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
)

const (
	quoteColumns = `quote_id, source_asset_id, requested_amount::text,
		request_mode, input_amount::text, expected_output::text,
		fee_amount::text, fee_rate::text, exchange_rate::text, issued_at,
		expires_at, status, order_id`

	insertQuote = `INSERT INTO quotes (quote_id, source_asset_id,
		requested_amount, request_mode, input_amount, expected_output,
		fee_amount, fee_rate, exchange_rate, issued_at, expires_at, status,
		order_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	updateQuote = `UPDATE quotes SET status = $2, order_id = $3
		WHERE quote_id = $1`
)

type quoteRepositoryImpl struct {
	querier func(ctx context.Context) querier
}

func NewQuoteRepositoryImpl(
	querier func(ctx context.Context) querier,
) domain.QuoteRepository {
	return &quoteRepositoryImpl{querier}
}

func (r *quoteRepositoryImpl) AddQuote(
	ctx context.Context, quote *domain.Quote,
) error {
	_, err := r.querier(ctx).Exec(
		ctx, insertQuote,
		quote.QuoteId, quote.SourceAssetId, quote.RequestedAmount.String(),
		string(quote.RequestMode), quote.InputAmount.String(),
		quote.ExpectedOutput.String(), quote.FeeAmount.String(),
		quote.FeeRate.String(), quote.ExchangeRate.String(),
		quote.IssuedAt, quote.ExpiresAt, int(quote.Status), quote.OrderId,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return domain.ErrQuoteAlreadyExists
		}
		return err
	}
	return nil
}

func (r *quoteRepositoryImpl) GetQuote(
	ctx context.Context, quoteId string,
) (*domain.Quote, error) {
	return r.getQuote(ctx, quoteId, false)
}

func (r *quoteRepositoryImpl) GetQuotesByStatus(
	ctx context.Context, status domain.QuoteStatus,
) ([]domain.Quote, error) {
	rows, err := r.querier(ctx).Query(
		ctx,
		"SELECT "+quoteColumns+" FROM quotes WHERE status = $1 ORDER BY issued_at",
		int(status),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quotes := make([]domain.Quote, 0)
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, *quote)
	}
	return quotes, rows.Err()
}

func (r *quoteRepositoryImpl) UpdateQuote(
	ctx context.Context,
	quoteId string,
	updateFn func(q *domain.Quote) (*domain.Quote, error),
) error {
	quote, err := r.getQuote(ctx, quoteId, true)
	if err != nil {
		return err
	}

	updatedQuote, err := updateFn(quote)
	if err != nil {
		return err
	}

	_, err = r.querier(ctx).Exec(
		ctx, updateQuote,
		quoteId, int(updatedQuote.Status), updatedQuote.OrderId,
	)
	return err
}

func (r *quoteRepositoryImpl) getQuote(
	ctx context.Context, quoteId string, forUpdate bool,
) (*domain.Quote, error) {
	query := "SELECT " + quoteColumns + " FROM quotes WHERE quote_id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}

	quote, err := scanQuote(r.querier(ctx).QueryRow(ctx, query, quoteId))
	if err != nil {
		if isNotFoundError(err) {
			return nil, domain.ErrQuoteNotFound
		}
		return nil, err
	}
	return quote, nil
}

func scanQuote(row pgx.Row) (*domain.Quote, error) {
	var (
		q                                                 domain.Quote
		mode                                              string
		status                                            int
		requested, input, output, fee, feeRate, rateValue string
	)
	if err := row.Scan(
		&q.QuoteId, &q.SourceAssetId, &requested, &mode, &input, &output,
		&fee, &feeRate, &rateValue, &q.IssuedAt, &q.ExpiresAt, &status,
		&q.OrderId,
	); err != nil {
		return nil, err
	}

	q.RequestMode = domain.RequestMode(mode)
	q.Status = domain.QuoteStatus(status)
	q.RequestedAmount = decimal.RequireFromString(requested)
	q.InputAmount = decimal.RequireFromString(input)
	q.ExpectedOutput = decimal.RequireFromString(output)
	q.FeeAmount = decimal.RequireFromString(fee)
	q.FeeRate = decimal.RequireFromString(feeRate)
	q.ExchangeRate = decimal.RequireFromString(rateValue)
	q.IssuedAt = q.IssuedAt.UTC()
	q.ExpiresAt = q.ExpiresAt.UTC()
	return &q, nil
}
