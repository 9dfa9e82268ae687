package db_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
	"github.com/zecswap/zecswap-daemon/internal/core/ports"
	dbbadger "github.com/zecswap/zecswap-daemon/internal/infrastructure/storage/db/badger"
	"github.com/zecswap/zecswap-daemon/internal/infrastructure/storage/db/inmemory"
	postgresdb "github.com/zecswap/zecswap-daemon/internal/infrastructure/storage/db/pg"
)

var (
	readOnly = true
	ctx      = context.Background()

	rate    = decimal.RequireFromString("0.95")
	feeRate = decimal.RequireFromString("0.005")
)

type repoManager struct {
	Name string
	ports.RepoManager
}

func (r repoManager) read(
	query func(context.Context) (interface{}, error),
) (interface{}, error) {
	return r.RunTransaction(ctx, readOnly, query)
}

func (r repoManager) write(
	query func(context.Context) (interface{}, error),
) (interface{}, error) {
	return r.RunTransaction(ctx, !readOnly, query)
}

func createRepoManagers(t *testing.T) []repoManager {
	badgerRepoManager, err := dbbadger.NewRepoManager(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(badgerRepoManager.Close)

	repoManagers := []repoManager{
		{"inmemory", inmemory.NewRepoManager()},
		{"badger", badgerRepoManager},
	}

	if pgRepoManager := createPgRepoManager(t); pgRepoManager != nil {
		repoManagers = append(repoManagers, repoManager{"postgres", pgRepoManager})
	}
	return repoManagers
}

func createPgRepoManager(t *testing.T) ports.RepoManager {
	if testing.Short() {
		t.Log("skipping postgres repository tests in short mode")
		return nil
	}

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("zecswap-test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Logf("skipping postgres repository tests: %s", err)
		return nil
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	repoManager, err := postgresdb.NewRepoManager(ctx, postgresdb.DbConfig{
		DataSourceURL: dsn,
	})
	require.NoError(t, err)
	t.Cleanup(repoManager.Close)

	return repoManager
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func makeRandomQuote() *domain.Quote {
	amount := decimal.RequireFromString("0.01")
	priced, _ := domain.PriceForInput(amount, rate, feeRate, 8)
	return domain.NewQuote(
		"btc", domain.RequestModePay, amount, *priced, now(),
		domain.QuoteValidity,
	)
}

func makeRandomOrder(quote *domain.Quote) *domain.SwapOrder {
	target := domain.DepositTarget{Address: randomAddress()}
	return domain.NewSwapOrder(
		domain.NewOrderId(), *quote, target,
		"t1Hxw6JqWMnhDK5jRCieg5bFHM2qt7UtQvu", now(), domain.QuoteValidity,
	)
}

func randomAddress() string {
	return "bc1q" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

func randomMemo() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:10]
}
