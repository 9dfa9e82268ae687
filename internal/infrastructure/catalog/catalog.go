// Package catalog holds what the asset catalog implementations share.
package catalog

import (
	"sort"

	"github.com/zecswap/zecswap-daemon/internal/core/domain"
)

// SortAssets orders the given assets by symbol, then by asset id.
func SortAssets(assets []domain.Asset) {
	sort.SliceStable(assets, func(i, j int) bool {
		if assets[i].Symbol != assets[j].Symbol {
			return assets[i].Symbol < assets[j].Symbol
		}
		return assets[i].AssetId < assets[j].AssetId
	})
}
