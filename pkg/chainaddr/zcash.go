package chainaddr

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
)

const (
	ZcashMainnet = "mainnet"
	ZcashTestnet = "testnet"

	zcashHashLen = 20
)

var (
	// Two-byte version prefixes of transparent Zcash addresses.
	zcashPrefixes = map[string][][2]byte{
		ZcashMainnet: {
			{0x1c, 0xb8}, // t1, p2pkh
			{0x1c, 0xbd}, // t3, p2sh
		},
		ZcashTestnet: {
			{0x1d, 0x25}, // tm, p2pkh
			{0x1c, 0xba}, // t2, p2sh
		},
	}

	ErrInvalidZcashNetwork = fmt.Errorf("zcash network must be either %s or %s", ZcashMainnet, ZcashTestnet)
)

// ValidateZcashTransparentAddress checks that addr is a base58check encoded
// transparent address of the given network. Shielded addresses are rejected.
func ValidateZcashTransparentAddress(addr, network string) error {
	prefixes, ok := zcashPrefixes[network]
	if !ok {
		return ErrInvalidZcashNetwork
	}

	payload, version, err := base58.CheckDecode(addr)
	if err != nil {
		return fmt.Errorf("invalid base58check encoding: %w", err)
	}
	if len(payload) != zcashHashLen+1 {
		return fmt.Errorf("invalid address length")
	}

	for _, p := range prefixes {
		if version == p[0] && payload[0] == p[1] {
			return nil
		}
	}
	return fmt.Errorf("not a transparent address for zcash %s", network)
}
