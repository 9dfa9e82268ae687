package ports

// AddressPool is the set of deposit addresses owned by the service for every
// source asset.
type AddressPool interface {
	// Addresses returns the deposit addresses of the given asset in a stable
	// order.
	Addresses(assetId string) []string
}
