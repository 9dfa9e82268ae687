package postgresdb

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
	"github.com/zecswap/zecswap-daemon/internal/core/ports"
)

const (
	migrationDriver = "pgx5"
	uniqueViolation = "23505"

	ordersPkey      = "orders_pkey"
	allocationsPkey = "deposit_allocations_pkey"
)

//go:embed migration/*.sql
var migrations embed.FS

type txKey struct{}

// querier is the subset of methods shared by the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type DbConfig struct {
	DataSourceURL string
}

type repoManager struct {
	pool *pgxpool.Pool

	quoteRepository      domain.QuoteRepository
	orderRepository      domain.OrderRepository
	allocationRepository domain.AllocationRepository
}

// NewRepoManager connects to the given postgres database and brings its
// schema up to date.
func NewRepoManager(ctx context.Context, config DbConfig) (ports.RepoManager, error) {
	pool, err := connect(ctx, config.DataSourceURL)
	if err != nil {
		return nil, err
	}

	if err := migrateDb(config.DataSourceURL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrating db: %w", err)
	}

	rm := &repoManager{pool: pool}
	rm.quoteRepository = NewQuoteRepositoryImpl(rm.querier)
	rm.orderRepository = NewOrderRepositoryImpl(rm.querier)
	rm.allocationRepository = NewAllocationRepositoryImpl(rm.querier)

	return rm, nil
}

func (r *repoManager) QuoteRepository() domain.QuoteRepository {
	return r.quoteRepository
}

func (r *repoManager) OrderRepository() domain.OrderRepository {
	return r.orderRepository
}

func (r *repoManager) AllocationRepository() domain.AllocationRepository {
	return r.allocationRepository
}

func (r *repoManager) RunTransaction(
	ctx context.Context,
	readOnly bool,
	handler func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return handler(ctx)
	}

	accessMode := pgx.ReadWrite
	if readOnly {
		accessMode = pgx.ReadOnly
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: accessMode,
	})
	if err != nil {
		return nil, err
	}

	// Rollback is safe to call even if the tx is already closed, so if
	// the tx commits successfully, this is a no-op.
	defer func() {
		err := tx.Rollback(ctx)
		switch {
		case errors.Is(err, pgx.ErrTxClosed):
			return
		case err != nil:
			log.Errorf("unable to rollback db tx: %v", err)
		}
	}()

	res, err := handler(context.WithValue(ctx, txKey{}, tx))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *repoManager) Close() {
	r.pool.Close()
}

func (r *repoManager) querier(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return r.pool
}

func connect(ctx context.Context, dataSource string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dataSource)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

func migrateDb(dataSource string) error {
	source, err := iofs.New(migrations, "migration")
	if err != nil {
		return err
	}

	pg := &migratepgx.Postgres{}
	d, err := pg.Open(dataSource)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", source, migrationDriver, d)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func isDuplicateKeyError(err error) bool {
	_, ok := duplicateKeyConstraint(err)
	return ok
}

// duplicateKeyConstraint returns the name of the violated unique constraint.
func duplicateKeyConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
