package domain

import "time"

const (
	// QuoteValidity is the lifetime of both a quote and the deposit window of
	// the order created from it.
	QuoteValidity = 15 * time.Minute

	// ZecDecimals is the precision of ZEC amounts (zatoshis).
	ZecDecimals = 8
	// ZecSymbol ...
	ZecSymbol = "ZEC"

	QuoteIdPrefix = "quote_"
	OrderIdPrefix = "swap_"

	// MemoLength is the number of digits of a generated deposit memo.
	MemoLength = 10
	// MaxMemoAttempts caps the number of memos generated before giving up on
	// finding one not already bound to an address.
	MaxMemoAttempts = 20
)
