package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DepositTarget is the address, plus memo for memo-required assets, a user
// sends funds to in order to fund an order.
type DepositTarget struct {
	Address string
	Memo    string
}

func (t DepositTarget) String() string {
	if len(t.Memo) <= 0 {
		return t.Address
	}
	return fmt.Sprintf("%s (memo %s)", t.Address, t.Memo)
}

// ObservedDeposit is an inbound transaction reported by a deposit watcher.
type ObservedDeposit struct {
	TxReference string
	Amount      decimal.Decimal
	AssetId     string
	Memo        string
	ObservedAt  time.Time
	// Counted is false for deposits that don't match the order's asset or memo.
	Counted bool
	// Late is true for deposits reported after the order expired.
	Late bool
}

// StatusTransition is an entry of the append-only audit trail of an order.
type StatusTransition struct {
	From   OrderStatus
	To     OrderStatus
	At     time.Time
	Reason string
}

// SwapOrder is the data structure representing the swap order entity.
type SwapOrder struct {
	OrderId             string
	QuoteId             string
	SourceAssetId       string
	ExpectedInputAmount decimal.Decimal
	ExpectedOutput      decimal.Decimal
	DepositAddress      string
	DepositMemo         string
	DestinationAddress  string
	Status              OrderStatus
	ObservedDeposits    []ObservedDeposit
	Transitions         []StatusTransition
	SettlementRef       string
	FailureReason       string
	CreatedAt           time.Time
	DepositDeadline     time.Time
	UpdatedAt           time.Time
}

// NewOrderId returns a new random order id.
func NewOrderId() string {
	return OrderIdPrefix + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// NewSwapOrder returns a pending order backed by the given quote and funded
// through the given deposit target. The deposit window starts at createdAt,
// independently of the quote expiry.
func NewSwapOrder(
	orderId string, quote Quote, target DepositTarget, destinationAddress string,
	createdAt time.Time, validity time.Duration,
) *SwapOrder {
	return &SwapOrder{
		OrderId:             orderId,
		QuoteId:             quote.QuoteId,
		SourceAssetId:       quote.SourceAssetId,
		ExpectedInputAmount: quote.InputAmount,
		ExpectedOutput:      quote.ExpectedOutput,
		DepositAddress:      target.Address,
		DepositMemo:         target.Memo,
		DestinationAddress:  destinationAddress,
		Status:              OrderStatusPending,
		ObservedDeposits:    make([]ObservedDeposit, 0),
		Transitions:         make([]StatusTransition, 0),
		CreatedAt:           createdAt,
		DepositDeadline:     createdAt.Add(validity),
		UpdatedAt:           createdAt,
	}
}

func (o *SwapOrder) DepositTarget() DepositTarget {
	return DepositTarget{o.DepositAddress, o.DepositMemo}
}

func (o *SwapOrder) IsPending() bool {
	return o.Status == OrderStatusPending
}

func (o *SwapOrder) IsTerminal() bool {
	return o.Status.IsTerminal()
}

// IsDeadlinePassed returns whether the deposit window is closed.
func (o *SwapOrder) IsDeadlinePassed(now time.Time) bool {
	return !now.Before(o.DepositDeadline)
}

// TimeLeft returns the remaining deposit window, derived from the stored
// deadline. It's zero for orders no longer waiting for a deposit.
func (o *SwapOrder) TimeLeft(now time.Time) time.Duration {
	if !o.IsPending() || o.IsDeadlinePassed(now) {
		return 0
	}
	return o.DepositDeadline.Sub(now)
}

// HasDeposit returns whether a deposit with the given reference has already
// been recorded.
func (o *SwapOrder) HasDeposit(txReference string) bool {
	for _, d := range o.ObservedDeposits {
		if d.TxReference == txReference {
			return true
		}
	}
	return false
}

// AccumulatedAmount is the sum of the counted, non-late deposits.
func (o *SwapOrder) AccumulatedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, d := range o.ObservedDeposits {
		if d.Counted && !d.Late {
			total = total.Add(d.Amount)
		}
	}
	return total
}

// RecordDeposit appends the given deposit to the order and brings a pending
// order to the Deposited status once the accumulated amount covers the
// expected input. The returned bool is false if the deposit was already
// recorded. Deposits for expired orders are recorded as late and never change
// the status. Completed and failed orders reject any deposit.
func (o *SwapOrder) RecordDeposit(
	deposit ObservedDeposit, now time.Time,
) (bool, error) {
	if len(strings.TrimSpace(deposit.TxReference)) <= 0 {
		return false, ErrMissingTxReference
	}
	if !deposit.Amount.IsPositive() {
		return false, ErrInvalidAmount
	}
	if o.HasDeposit(deposit.TxReference) {
		return false, nil
	}
	if o.Status == OrderStatusComplete || o.Status == OrderStatusFailed {
		return false, ErrOrderTerminal
	}

	// The deadline wins over a report racing the sweeper.
	if _, err := o.Expire(now); err != nil {
		return false, err
	}

	deposit.ObservedAt = now
	deposit.Counted = deposit.AssetId == o.SourceAssetId &&
		(len(o.DepositMemo) <= 0 || deposit.Memo == o.DepositMemo)
	deposit.Late = o.Status == OrderStatusExpired
	o.ObservedDeposits = append(o.ObservedDeposits, deposit)
	o.UpdatedAt = now

	if o.IsPending() &&
		o.AccumulatedAmount().GreaterThanOrEqual(o.ExpectedInputAmount) {
		reason := fmt.Sprintf(
			"received %s of %s", o.AccumulatedAmount(), o.ExpectedInputAmount,
		)
		if err := o.transition(OrderStatusDeposited, now, reason); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Expire brings a pending order to the Expired status if its deadline has
// passed. The returned bool is true only if the transition happened.
func (o *SwapOrder) Expire(now time.Time) (bool, error) {
	if o.Status != OrderStatusPending {
		return false, nil
	}
	if !o.IsDeadlinePassed(now) {
		return false, nil
	}
	reason := "deposit deadline passed"
	if acc := o.AccumulatedAmount(); acc.IsPositive() {
		reason = fmt.Sprintf(
			"deposit deadline passed with partial deposit %s of %s",
			acc, o.ExpectedInputAmount,
		)
	}
	if err := o.transition(OrderStatusExpired, now, reason); err != nil {
		return false, err
	}
	return true, nil
}

// StartProcessing brings a Deposited order to the Processing status.
func (o *SwapOrder) StartProcessing(now time.Time) (bool, error) {
	if o.Status == OrderStatusProcessing {
		return false, nil
	}
	if err := o.transition(
		OrderStatusProcessing, now, "conversion started",
	); err != nil {
		return false, err
	}
	return true, nil
}

// Complete brings a Processing order to the Complete status.
func (o *SwapOrder) Complete(settlementRef string, now time.Time) (bool, error) {
	if o.Status == OrderStatusComplete {
		return false, nil
	}
	if o.IsTerminal() {
		return false, ErrOrderTerminal
	}
	if err := o.transition(
		OrderStatusComplete, now, "settlement confirmed",
	); err != nil {
		return false, err
	}
	o.SettlementRef = settlementRef
	return true, nil
}

// Fail brings a Processing order to the Failed status.
func (o *SwapOrder) Fail(reason string, now time.Time) (bool, error) {
	if o.Status == OrderStatusFailed {
		return false, nil
	}
	if o.IsTerminal() {
		return false, ErrOrderTerminal
	}
	if err := o.transition(OrderStatusFailed, now, reason); err != nil {
		return false, err
	}
	o.FailureReason = reason
	return true, nil
}

// StateAfter returns the order as it was right after its i-th transition.
func (o *SwapOrder) StateAfter(i int) SwapOrder {
	t := o.Transitions[i]

	state := *o
	state.Status = t.To
	state.UpdatedAt = t.At
	state.Transitions = append([]StatusTransition(nil), o.Transitions[:i+1]...)
	state.ObservedDeposits = make([]ObservedDeposit, 0, len(o.ObservedDeposits))
	for _, d := range o.ObservedDeposits {
		if !d.ObservedAt.After(t.At) {
			state.ObservedDeposits = append(state.ObservedDeposits, d)
		}
	}
	if t.To != OrderStatusComplete {
		state.SettlementRef = ""
	}
	if t.To != OrderStatusFailed {
		state.FailureReason = ""
	}
	return state
}

func (o *SwapOrder) transition(to OrderStatus, now time.Time, reason string) error {
	if !o.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}
	o.Transitions = append(o.Transitions, StatusTransition{
		From:   o.Status,
		To:     to,
		At:     now,
		Reason: reason,
	})
	o.Status = to
	o.UpdatedAt = now
	return nil
}
