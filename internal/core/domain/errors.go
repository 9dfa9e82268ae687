package domain

import "errors"

var (
	// ErrInvalidAmount is returned for non-positive, unparseable or
	// precision-exceeding amounts.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrUnknownAsset ...
	ErrUnknownAsset = errors.New("unknown asset")
	// ErrRateUnavailable is returned when the pricing source cannot provide a
	// rate for the requested asset.
	ErrRateUnavailable = errors.New("exchange rate unavailable, retry later")
	// ErrInvalidRequestMode ...
	ErrInvalidRequestMode = errors.New("request mode must be either pay or receive")

	// ErrQuoteNotFound ...
	ErrQuoteNotFound = errors.New("quote not found")
	// ErrQuoteExpired is returned when accepting a quote at or after its expiry.
	ErrQuoteExpired = errors.New("quote is expired")
	// ErrQuoteAlreadyConsumed is returned when accepting a quote that already
	// backs an order.
	ErrQuoteAlreadyConsumed = errors.New("quote is already consumed")
	// ErrInvalidDestinationAddress is returned for anything that is not a
	// Zcash transparent address of the configured network.
	ErrInvalidDestinationAddress = errors.New("destination must be a valid zcash transparent address")
	// ErrAllocationUnavailable is returned when the deposit address pool of an
	// asset has no free slot.
	ErrAllocationUnavailable = errors.New("no deposit address available for asset, retry later")

	// ErrOrderNotFound ...
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderTerminal is returned when reporting events for a completed or
	// failed order.
	ErrOrderTerminal = errors.New("order is in a terminal state")
	// ErrInvalidTransition is returned for any status change outside of the
	// order transition table.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrMissingTxReference ...
	ErrMissingTxReference = errors.New("missing deposit transaction reference")
	// ErrAllocationNotFound ...
	ErrAllocationNotFound = errors.New("deposit allocation not found")
	// ErrDepositTargetInUse is returned by allocation stores when inserting an
	// active allocation for an address and memo already bound to an order.
	ErrDepositTargetInUse = errors.New("deposit target already allocated")
	// ErrQuoteAlreadyExists ...
	ErrQuoteAlreadyExists = errors.New("quote already exists")
	// ErrOrderAlreadyExists ...
	ErrOrderAlreadyExists = errors.New("order already exists")
)
