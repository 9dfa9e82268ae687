package application

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/zecswap/zecswap-daemon/internal/core/application/order"
	"github.com/zecswap/zecswap-daemon/internal/core/application/pubsub"
	"github.com/zecswap/zecswap-daemon/internal/core/application/quote"
	"github.com/zecswap/zecswap-daemon/internal/core/application/status"
	"github.com/zecswap/zecswap-daemon/internal/core/ports"
	dbbadger "github.com/zecswap/zecswap-daemon/internal/infrastructure/storage/db/badger"
	"github.com/zecswap/zecswap-daemon/internal/infrastructure/storage/db/inmemory"
	postgresdb "github.com/zecswap/zecswap-daemon/internal/infrastructure/storage/db/pg"
)

const (
	DBBadger   = "badger"
	DBInMemory = "inmemory"
	DBPostgres = "postgres"
)

var (
	SupportedDBType = map[string]struct{}{
		DBBadger:   {},
		DBInMemory: {},
		DBPostgres: {},
	}
)

// Config holds the dependencies of the application services, which are
// built lazily on first access.
type Config struct {
	// DBConfig is the datadir for badger or a postgresdb.DbConfig for
	// postgres.
	DBType   string
	DBConfig interface{}

	AssetCatalog  ports.AssetCatalog
	RateSource    ports.RateSource
	AddressPool   ports.AddressPool
	SecurePubSub  ports.SecurePubSub
	Network       string
	FeeRate       decimal.Decimal
	SweepInterval time.Duration

	repo   ports.RepoManager
	pubsub *pubsub.Service
	quote  *quote.Service
	order  *order.Service
	status *status.Service
}

func (c *Config) Validate() error {
	if _, ok := SupportedDBType[c.DBType]; !ok {
		return fmt.Errorf("db type %s not supported", c.DBType)
	}
	if c.AssetCatalog == nil {
		return fmt.Errorf("missing asset catalog")
	}
	if c.RateSource == nil {
		return fmt.Errorf("missing rate source")
	}
	if c.AddressPool == nil {
		return fmt.Errorf("missing address pool")
	}
	if _, err := c.repoManager(); err != nil {
		return err
	}
	if _, err := c.quoteService(); err != nil {
		return err
	}
	if _, err := c.orderService(); err != nil {
		return err
	}
	if _, err := c.statusService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) RepoManager() ports.RepoManager {
	repo, _ := c.repoManager()
	return repo
}

func (c *Config) PubSubService() *pubsub.Service {
	svc, _ := c.pubsubService()
	return svc
}

func (c *Config) QuoteService() *quote.Service {
	svc, _ := c.quoteService()
	return svc
}

func (c *Config) OrderService() *order.Service {
	svc, _ := c.orderService()
	return svc
}

func (c *Config) StatusService() *status.Service {
	svc, _ := c.statusService()
	return svc
}

func (c *Config) repoManager() (ports.RepoManager, error) {
	if c.repo != nil {
		return c.repo, nil
	}

	switch c.DBType {
	case DBBadger:
		datadir, _ := c.DBConfig.(string)
		repo, err := dbbadger.NewRepoManager(datadir, log.New())
		if err != nil {
			return nil, err
		}
		c.repo = repo
	case DBPostgres:
		dbConfig, ok := c.DBConfig.(postgresdb.DbConfig)
		if !ok {
			return nil, fmt.Errorf("invalid postgres db config")
		}
		repo, err := postgresdb.NewRepoManager(context.Background(), dbConfig)
		if err != nil {
			return nil, err
		}
		c.repo = repo
	default:
		c.repo = inmemory.NewRepoManager()
	}
	return c.repo, nil
}

func (c *Config) pubsubService() (*pubsub.Service, error) {
	if c.SecurePubSub == nil {
		return nil, nil
	}
	if c.pubsub == nil {
		c.pubsub = pubsub.NewService(c.SecurePubSub)
	}
	return c.pubsub, nil
}

func (c *Config) quoteService() (*quote.Service, error) {
	if c.quote == nil {
		repo, err := c.repoManager()
		if err != nil {
			return nil, err
		}
		svc, err := quote.NewService(c.AssetCatalog, c.RateSource, repo, c.FeeRate)
		if err != nil {
			return nil, err
		}
		c.quote = svc
	}
	return c.quote, nil
}

func (c *Config) orderService() (*order.Service, error) {
	if c.order == nil {
		repo, err := c.repoManager()
		if err != nil {
			return nil, err
		}

		opts := make([]order.Option, 0)
		if c.SweepInterval > 0 {
			opts = append(opts, order.WithSweepInterval(c.SweepInterval))
		}
		if pubsubSvc, _ := c.pubsubService(); pubsubSvc != nil {
			opts = append(opts, order.WithPubSub(pubsubSvc))
		}

		svc, err := order.NewService(
			repo, c.AssetCatalog, c.AddressPool, c.Network, opts...,
		)
		if err != nil {
			return nil, err
		}
		c.order = svc
	}
	return c.order, nil
}

func (c *Config) statusService() (*status.Service, error) {
	if c.status == nil {
		repo, err := c.repoManager()
		if err != nil {
			return nil, err
		}
		svc, err := status.NewService(repo)
		if err != nil {
			return nil, err
		}
		c.status = svc
	}
	return c.status, nil
}
