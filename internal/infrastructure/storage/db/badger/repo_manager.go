package dbbadger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
	"github.com/zecswap/zecswap-daemon/internal/core/ports"
)

const maxTxRetries = 5

type txKey struct{}

type repoManager struct {
	store *badgerhold.Store

	quoteRepository      domain.QuoteRepository
	orderRepository      domain.OrderRepository
	allocationRepository domain.AllocationRepository
}

// NewRepoManager opens (or creates if not exists) the badger store under the
// given base data dir. If the dir is empty, the store is kept in memory.
func NewRepoManager(baseDbDir string, logger badger.Logger) (ports.RepoManager, error) {
	var dbDir string
	if len(baseDbDir) > 0 {
		dbDir = filepath.Join(baseDbDir, "main")
	}

	store, err := createDb(dbDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening main db: %w", err)
	}

	return &repoManager{
		store:                store,
		quoteRepository:      NewQuoteRepositoryImpl(store),
		orderRepository:      NewOrderRepositoryImpl(store),
		allocationRepository: NewAllocationRepositoryImpl(store),
	}, nil
}

func (d *repoManager) QuoteRepository() domain.QuoteRepository {
	return d.quoteRepository
}

func (d *repoManager) OrderRepository() domain.OrderRepository {
	return d.orderRepository
}

func (d *repoManager) AllocationRepository() domain.AllocationRepository {
	return d.allocationRepository
}

// RunTransaction runs the handler in a badger transaction that is carried by
// the context passed to the handler. Write transactions are retried on
// conflict.
func (d *repoManager) RunTransaction(
	ctx context.Context,
	readOnly bool,
	handler func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	if txFromContext(ctx) != nil {
		return handler(ctx)
	}

	var lastErr error
	for i := 0; i < maxTxRetries; i++ {
		tx := d.store.Badger().NewTransaction(!readOnly)
		res, err := handler(context.WithValue(ctx, txKey{}, tx))
		if err != nil {
			tx.Discard()
			return nil, err
		}

		if readOnly {
			tx.Discard()
			return res, nil
		}

		if err := tx.Commit(); err != nil {
			if errors.Is(err, badger.ErrConflict) {
				lastErr = err
				log.Debugf("db: transaction conflict, retrying (%d)", i+1)
				continue
			}
			return nil, err
		}
		return res, nil
	}
	return nil, fmt.Errorf("transaction aborted after %d retries: %w", maxTxRetries, lastErr)
}

func (d *repoManager) Close() {
	d.store.Close()
}

func txFromContext(ctx context.Context) *badger.Txn {
	if tx, ok := ctx.Value(txKey{}).(*badger.Txn); ok {
		return tx
	}
	return nil
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	if !isInMemory {
		ticker := time.NewTicker(30 * time.Minute)

		go func() {
			for {
				<-ticker.C
				if err := db.Badger().RunValueLogGC(0.5); err != nil &&
					err != badger.ErrNoRewrite {
					log.Error(err)
				}
			}
		}()
	}

	return db, nil
}
