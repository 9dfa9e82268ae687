package oneclickcatalog

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	oneclick "github.com/defuse-protocol/one-click-sdk-go"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
	"github.com/zecswap/zecswap-daemon/internal/core/ports"
	"github.com/zecswap/zecswap-daemon/internal/infrastructure/catalog"
	"github.com/zecswap/zecswap-daemon/pkg/circuitbreaker"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRefreshInterval = 5 * time.Minute
	// DefaultRetryInterval is the time waited after a failed refresh before
	// asking upstream again.
	DefaultRetryInterval = 30 * time.Second

	fetchTimeout = 30 * time.Second
	refreshKey   = "tokens"
)

var DefaultMemoChains = []string{"stellar", "cosmos", "ton", "xrp"}

type Config struct {
	// BaseURL overrides the default 1Click API server.
	BaseURL string
	JWT     string
	// RefreshInterval is the max age of the cached token list.
	RefreshInterval time.Duration
	RetryInterval   time.Duration
	// MemoChains lists the chains whose deposits require a memo.
	MemoChains []string
}

type service struct {
	client          *oneclick.APIClient
	jwt             string
	refreshInterval time.Duration
	retryInterval   time.Duration
	memoChains      map[string]bool
	limiter         ratelimit.Limiter
	cb              *gobreaker.CircuitBreaker
	group           *singleflight.Group

	lock       *sync.RWMutex
	assets     []domain.Asset
	assetsById map[string]domain.Asset
	fetchedAt  time.Time
	retryAt    time.Time
	lastErr    error
}

// NewCatalog returns a catalog backed by the 1Click token list. The list is
// cached and refreshed at most once per refresh interval. Once a list has
// been fetched, stale lists are refreshed in background and callers never wait
// for upstream. If a refresh fails, the last fetched list is served and
// upstream is not asked again before the retry interval.
func NewCatalog(config Config) (ports.AssetCatalog, error) {
	refreshInterval := config.RefreshInterval
	if refreshInterval <= 0 {
		refreshInterval = DefaultRefreshInterval
	}
	retryInterval := config.RetryInterval
	if retryInterval <= 0 {
		retryInterval = DefaultRetryInterval
	}
	memoChains := config.MemoChains
	if len(memoChains) <= 0 {
		memoChains = DefaultMemoChains
	}
	chains := make(map[string]bool, len(memoChains))
	for _, c := range memoChains {
		chains[strings.ToLower(c)] = true
	}

	cfg := oneclick.NewConfiguration()
	if len(config.BaseURL) > 0 {
		cfg.Servers = oneclick.ServerConfigurations{{URL: config.BaseURL}}
	}

	return &service{
		client:          oneclick.NewAPIClient(cfg),
		jwt:             config.JWT,
		refreshInterval: refreshInterval,
		retryInterval:   retryInterval,
		memoChains:      chains,
		limiter:         ratelimit.New(1),
		cb:              circuitbreaker.NewCircuitBreaker("oneclick"),
		group:           &singleflight.Group{},
		lock:            &sync.RWMutex{},
		assetsById:      make(map[string]domain.Asset),
	}, nil
}

func (s *service) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}

	s.lock.RLock()
	defer s.lock.RUnlock()
	return append([]domain.Asset(nil), s.assets...), nil
}

func (s *service) GetAsset(
	ctx context.Context, assetId string,
) (*domain.Asset, error) {
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}

	s.lock.RLock()
	defer s.lock.RUnlock()

	asset, ok := s.assetsById[assetId]
	if !ok {
		return nil, domain.ErrUnknownAsset
	}
	return &asset, nil
}

func (s *service) refresh(ctx context.Context) error {
	s.lock.RLock()
	now := time.Now()
	hasSnapshot := !s.fetchedAt.IsZero()
	stale := !hasSnapshot || now.Sub(s.fetchedAt) >= s.refreshInterval
	canRetry := !now.Before(s.retryAt)
	lastErr := s.lastErr
	s.lock.RUnlock()

	if !stale {
		return nil
	}

	if hasSnapshot {
		if canRetry {
			s.group.DoChan(refreshKey, s.fetch)
		}
		return nil
	}

	if !canRetry {
		return fmt.Errorf("failed to fetch token list: %w", lastErr)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-s.group.DoChan(refreshKey, s.fetch):
		if res.Err != nil {
			return fmt.Errorf("failed to fetch token list: %w", res.Err)
		}
		return nil
	}
}

// fetch updates the cached list. Concurrent calls are collapsed by the
// caller into a single upstream request, not bound to any caller's context.
func (s *service) fetch() (interface{}, error) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	s.limiter.Take()

	iTokens, err := s.cb.Execute(func() (interface{}, error) {
		return s.fetchTokens(ctx)
	})
	if err != nil {
		s.lock.Lock()
		defer s.lock.Unlock()

		s.retryAt = time.Now().Add(s.retryInterval)
		s.lastErr = err
		log.WithError(err).Warnf(
			"catalog: failed to refresh token list, retrying in %s", s.retryInterval,
		)
		return nil, err
	}

	assets, assetsById := s.toAssets(iTokens.([]oneclick.TokenResponse))

	s.lock.Lock()
	defer s.lock.Unlock()

	s.assets = assets
	s.assetsById = assetsById
	s.fetchedAt = time.Now()
	s.retryAt = time.Time{}
	s.lastErr = nil
	return nil, nil
}

func (s *service) fetchTokens(
	ctx context.Context,
) ([]oneclick.TokenResponse, error) {
	if len(s.jwt) > 0 {
		ctx = context.WithValue(ctx, oneclick.ContextAccessToken, s.jwt)
	}

	tokens, httpResp, err := s.client.OneClickAPI.GetTokens(ctx).Execute()
	if httpResp != nil {
		defer httpResp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status code %d", httpResp.StatusCode)
	}
	return tokens, nil
}

func (s *service) toAssets(
	tokens []oneclick.TokenResponse,
) ([]domain.Asset, map[string]domain.Asset) {
	assets := make([]domain.Asset, 0, len(tokens))
	assetsById := make(map[string]domain.Asset, len(tokens))
	for _, token := range tokens {
		chain := strings.ToLower(token.GetBlockchain())
		asset := domain.Asset{
			AssetId:         token.GetAssetId(),
			Symbol:          strings.ToUpper(token.GetSymbol()),
			ChainName:       chain,
			Decimals:        uint32(token.GetDecimals()),
			MemoRequired:    s.memoChains[chain],
			ContractAddress: token.GetContractAddress(),
		}
		if asset.Symbol == domain.ZecSymbol {
			continue
		}
		if err := asset.Validate(); err != nil {
			log.WithError(err).Debug("catalog: skipping invalid token")
			continue
		}
		if _, ok := assetsById[asset.AssetId]; ok {
			continue
		}
		assetsById[asset.AssetId] = asset
		assets = append(assets, asset)
	}
	catalog.SortAssets(assets)
	return assets, assetsById
}
