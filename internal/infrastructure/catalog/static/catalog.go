package staticcatalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/zecswap/zecswap-daemon/internal/core/domain"
	"github.com/zecswap/zecswap-daemon/internal/core/ports"
	"github.com/zecswap/zecswap-daemon/internal/infrastructure/catalog"
)

var DefaultAssets = []domain.Asset{
	{AssetId: "btc", Symbol: "BTC", ChainName: "bitcoin", Decimals: 8},
	{AssetId: "eth", Symbol: "ETH", ChainName: "ethereum", Decimals: 18},
	{
		AssetId:         "usdc",
		Symbol:          "USDC",
		ChainName:       "ethereum",
		Decimals:        6,
		ContractAddress: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
	},
	{
		AssetId:         "usdt",
		Symbol:          "USDT",
		ChainName:       "ethereum",
		Decimals:        6,
		ContractAddress: "0xdAC17F958D2ee523a2206206994597C13D831ec7",
	},
	{AssetId: "sol", Symbol: "SOL", ChainName: "solana", Decimals: 9},
	{AssetId: "xlm", Symbol: "XLM", ChainName: "stellar", Decimals: 7, MemoRequired: true},
}

// assetRow is the JSON representation of a catalog entry.
type assetRow struct {
	AssetId         string `json:"assetId"`
	Symbol          string `json:"symbol"`
	Blockchain      string `json:"blockchain"`
	Decimals        uint32 `json:"decimals"`
	MemoRequired    bool   `json:"memoRequired"`
	ContractAddress string `json:"contractAddress,omitempty"`
}

type service struct {
	assets     []domain.Asset
	assetsById map[string]domain.Asset
}

// NewCatalog returns an in-memory catalog of the given assets.
func NewCatalog(assets []domain.Asset) (ports.AssetCatalog, error) {
	if len(assets) <= 0 {
		return nil, fmt.Errorf("missing assets")
	}

	list := make([]domain.Asset, 0, len(assets))
	byId := make(map[string]domain.Asset, len(assets))
	for _, a := range assets {
		if err := a.Validate(); err != nil {
			return nil, err
		}
		if a.Symbol == domain.ZecSymbol {
			return nil, fmt.Errorf("%s can't be a source asset", domain.ZecSymbol)
		}
		if _, ok := byId[a.AssetId]; ok {
			return nil, fmt.Errorf("duplicate asset %s", a.AssetId)
		}
		byId[a.AssetId] = a
		list = append(list, a)
	}
	catalog.SortAssets(list)

	return &service{list, byId}, nil
}

// NewCatalogFromFile returns a catalog of the assets listed in the given
// JSON file.
func NewCatalogFromFile(path string) (ports.AssetCatalog, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading assets file: %w", err)
	}

	var rows []assetRow
	if err := json.Unmarshal(buf, &rows); err != nil {
		return nil, fmt.Errorf("decoding assets file: %w", err)
	}

	assets := make([]domain.Asset, 0, len(rows))
	for _, r := range rows {
		assets = append(assets, domain.Asset{
			AssetId:         r.AssetId,
			Symbol:          r.Symbol,
			ChainName:       r.Blockchain,
			Decimals:        r.Decimals,
			MemoRequired:    r.MemoRequired,
			ContractAddress: r.ContractAddress,
		})
	}
	return NewCatalog(assets)
}

func (s *service) ListAssets(_ context.Context) ([]domain.Asset, error) {
	return append([]domain.Asset(nil), s.assets...), nil
}

func (s *service) GetAsset(
	_ context.Context, assetId string,
) (*domain.Asset, error) {
	asset, ok := s.assetsById[assetId]
	if !ok {
		return nil, domain.ErrUnknownAsset
	}
	return &asset, nil
}
