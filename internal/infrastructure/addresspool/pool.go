package addresspool

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
	"github.com/zecswap/zecswap-daemon/internal/core/ports"
	"github.com/zecswap/zecswap-daemon/pkg/chainaddr"
)

type pool struct {
	addressesByAsset map[string][]string
}

// NewAddressPool returns the pool of deposit addresses owned by the service.
// Every address is validated against the chain of its asset and can belong to
// one asset only. Addresses for assets missing from the given list are
// ignored.
func NewAddressPool(
	addressesByAsset map[string][]string, assets []domain.Asset,
) (ports.AddressPool, error) {
	assetsById := make(map[string]domain.Asset, len(assets))
	for _, a := range assets {
		assetsById[a.AssetId] = a
	}

	addresses := make(map[string][]string)
	ownerByAddress := make(map[string]string)
	for assetId, list := range addressesByAsset {
		asset, ok := assetsById[assetId]
		if !ok {
			log.Warnf("addresspool: skipping addresses of unknown asset %s", assetId)
			continue
		}

		for _, addr := range list {
			addr = strings.TrimSpace(addr)
			if err := chainaddr.ValidateDepositAddress(asset.ChainName, addr); err != nil {
				return nil, fmt.Errorf("asset %s: %w", assetId, err)
			}
			// Allocations are tracked per asset, a shared address could be
			// handed out to orders of different assets at once.
			key := strings.ToLower(addr)
			if owner, ok := ownerByAddress[key]; ok {
				if owner == assetId {
					return nil, fmt.Errorf("asset %s: duplicate address %s", assetId, addr)
				}
				return nil, fmt.Errorf(
					"asset %s: address %s already assigned to asset %s", assetId, addr, owner,
				)
			}
			ownerByAddress[key] = assetId
			addresses[assetId] = append(addresses[assetId], addr)
		}
	}

	for _, a := range assets {
		if len(addresses[a.AssetId]) <= 0 {
			log.Warnf("addresspool: no deposit address configured for %s", a.AssetId)
		}
	}

	return &pool{addresses}, nil
}

// LoadFile reads a JSON object mapping asset ids to their deposit addresses.
func LoadFile(path string) (map[string][]string, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading deposit addresses file: %w", err)
	}

	addresses := make(map[string][]string)
	if err := json.Unmarshal(buf, &addresses); err != nil {
		return nil, fmt.Errorf("decoding deposit addresses file: %w", err)
	}
	return addresses, nil
}

func (p *pool) Addresses(assetId string) []string {
	return append([]string(nil), p.addressesByAsset[assetId]...)
}
