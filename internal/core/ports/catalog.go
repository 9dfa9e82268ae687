package ports

import (
	"context"

	"github.com/zecswap/zecswap-daemon/internal/core/domain"
)

// AssetCatalog is the read-only registry of the supported source assets.
type AssetCatalog interface {
	// ListAssets returns the supported assets sorted by symbol.
	ListAssets(ctx context.Context) ([]domain.Asset, error)
	// GetAsset returns the asset with the given id or domain.ErrUnknownAsset.
	GetAsset(ctx context.Context, assetId string) (*domain.Asset, error)
}
