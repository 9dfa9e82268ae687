package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/zecswap/zecswap-daemon/internal/config"
	"github.com/zecswap/zecswap-daemon/internal/core/application"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
	"github.com/zecswap/zecswap-daemon/internal/core/ports"
	"github.com/zecswap/zecswap-daemon/internal/infrastructure/addresspool"
	oneclickcatalog "github.com/zecswap/zecswap-daemon/internal/infrastructure/catalog/oneclick"
	staticcatalog "github.com/zecswap/zecswap-daemon/internal/infrastructure/catalog/static"
	krakenfeeder "github.com/zecswap/zecswap-daemon/internal/infrastructure/feeder/kraken"
	webhookpubsub "github.com/zecswap/zecswap-daemon/internal/infrastructure/pubsub"
	"github.com/zecswap/zecswap-daemon/internal/infrastructure/rate"
	postgresdb "github.com/zecswap/zecswap-daemon/internal/infrastructure/storage/db/pg"
	httpinterface "github.com/zecswap/zecswap-daemon/internal/interfaces/http"
	"github.com/zecswap/zecswap-daemon/pkg/sentryhook"
	"github.com/zecswap/zecswap-daemon/pkg/stats"
	"golang.org/x/sync/errgroup"
)

const krakenFeedInterval = 5 * time.Second

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.WithError(err).Warn("failed to load .env file")
	}

	if err := config.InitConfig(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	if dsn := config.GetString(config.SentryDSNKey); len(dsn) > 0 {
		hook, err := sentryhook.New(dsn, version)
		if err != nil {
			log.WithError(err).Fatal("failed to init sentry")
		}
		log.AddHook(hook)
		defer hook.Flush()
	}

	log.Infof("zecswapd version %s, commit %s, built at %s", version, commit, date)

	if err := run(); err != nil {
		log.WithError(err).Error("daemon stopped with error")
		return
	}
	log.Info("shutdown complete")
}

func run() error {
	ctx, stop := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	datadir := config.GetDatadir()

	catalog, err := newAssetCatalog()
	if err != nil {
		return err
	}
	assets, err := catalog.ListAssets(ctx)
	if err != nil {
		return fmt.Errorf("listing assets: %w", err)
	}

	addresses, err := addresspool.LoadFile(config.GetString(config.DepositAddressesFileKey))
	if err != nil {
		return err
	}
	pool, err := addresspool.NewAddressPool(addresses, assets)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	rates, err := newRateSource(gctx, g, assets)
	if err != nil {
		return err
	}

	securePubSub, err := webhookpubsub.NewService(
		filepath.Join(datadir, config.PubSubLocation), log.New(),
	)
	if err != nil {
		return err
	}

	appConfig := &application.Config{
		DBType:        config.GetString(config.DBTypeKey),
		DBConfig:      dbConfig(datadir),
		AssetCatalog:  catalog,
		RateSource:    rates,
		AddressPool:   pool,
		SecurePubSub:  securePubSub,
		Network:       config.GetString(config.NetworkKey),
		FeeRate:       config.GetDecimal(config.FeeRateKey),
		SweepInterval: config.GetSeconds(config.SweepIntervalKey),
	}
	if err := appConfig.Validate(); err != nil {
		securePubSub.Close()
		return fmt.Errorf("invalid app config: %w", err)
	}
	defer appConfig.RepoManager().Close()
	defer appConfig.PubSubService().Close()

	orderSvc := appConfig.OrderService()
	if err := orderSvc.Start(ctx); err != nil {
		return err
	}
	defer orderSvc.Stop()

	httpSvc, err := httpinterface.NewService(httpinterface.ServiceOpts{
		Address:            fmt.Sprintf(":%d", config.GetInt(config.HTTPListeningPortKey)),
		CORSAllowedOrigins: config.GetStringSlice(config.CORSAllowedOriginsKey),
		WatcherSecret:      config.GetString(config.WatcherSecretKey),
		QuoteSvc:           appConfig.QuoteService(),
		OrderSvc:           orderSvc,
		StatusSvc:          appConfig.StatusService(),
		PubSubSvc:          appConfig.PubSubService(),
	})
	if err != nil {
		return err
	}
	if err := httpSvc.Start(); err != nil {
		return err
	}
	defer httpSvc.Stop()

	if config.GetBool(config.EnableProfilerKey) {
		dumpFile := filepath.Join(datadir, config.ProfilerLocation, "metrics.txt")
		stats.EnableMemoryStatistics(
			gctx, config.GetSeconds(config.StatsIntervalKey), dumpFile,
		)
	}

	log.Info("zecswapd started")

	<-gctx.Done()
	log.Info("shutting down")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newAssetCatalog() (ports.AssetCatalog, error) {
	switch config.GetString(config.CatalogTypeKey) {
	case config.CatalogOneClick:
		return oneclickcatalog.NewCatalog(oneclickcatalog.Config{
			BaseURL: config.GetString(config.OneClickURLKey),
			JWT:     config.GetString(config.OneClickJWTKey),
		})
	default:
		if path := config.GetString(config.AssetsFileKey); len(path) > 0 {
			return staticcatalog.NewCatalogFromFile(path)
		}
		return staticcatalog.NewCatalog(staticcatalog.DefaultAssets)
	}
}

// newRateSource returns the configured rate source. The kraken price feed is
// run in the given group until its context is done.
func newRateSource(
	ctx context.Context, g *errgroup.Group, assets []domain.Asset,
) (ports.RateSource, error) {
	if config.GetString(config.RateSourceKey) != config.RateSourceKraken {
		return rate.NewFixedRateSource(config.GetDecimal(config.FixedRateKey), nil)
	}

	feeder, err := krakenfeeder.NewKrakenPriceFeeder(krakenFeedInterval)
	if err != nil {
		return nil, err
	}
	if err := feeder.SubscribeTickers(rate.Tickers(assets)); err != nil {
		return nil, fmt.Errorf("subscribing to kraken tickers: %w", err)
	}

	g.Go(func() error {
		return feeder.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		feeder.Stop()
		return nil
	})

	return rate.NewFeederRateSource(feeder, config.GetSeconds(config.RateMaxAgeKey))
}

func dbConfig(datadir string) interface{} {
	switch config.GetString(config.DBTypeKey) {
	case application.DBPostgres:
		return postgresdb.DbConfig{
			DataSourceURL: config.GetString(config.PgConnectAddr),
		}
	default:
		return filepath.Join(datadir, config.DbLocation)
	}
}
