package chainaddr

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
)

var evmChains = map[string]bool{
	"eth":      true,
	"ethereum": true,
	"base":     true,
	"arb":      true,
	"arbitrum": true,
	"op":       true,
	"optimism": true,
	"pol":      true,
	"polygon":  true,
	"bsc":      true,
	"avax":     true,
	"gnosis":   true,
	"bera":     true,
}

// ValidateDepositAddress checks addr against the address format of the
// given chain. Chains without a known format only require a non-empty
// address.
func ValidateDepositAddress(chain, addr string) error {
	addr = strings.TrimSpace(addr)
	if len(addr) <= 0 {
		return fmt.Errorf("missing address")
	}

	chain = strings.ToLower(strings.TrimSpace(chain))
	switch {
	case chain == "btc" || chain == "bitcoin":
		if _, err := btcutil.DecodeAddress(addr, &chaincfg.MainNetParams); err != nil {
			return fmt.Errorf("invalid bitcoin address %s: %w", addr, err)
		}
	case evmChains[chain]:
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid evm address %s", addr)
		}
	case chain == "sol" || chain == "solana":
		if _, err := solana.PublicKeyFromBase58(addr); err != nil {
			return fmt.Errorf("invalid solana address %s: %w", addr, err)
		}
	}
	return nil
}
