package status

import (
	"time"

	"github.com/zecswap/zecswap-daemon/internal/core/domain"
)

// DepositInfo is the read model of an observed deposit.
type DepositInfo struct {
	TxReference string    `json:"txReference"`
	Amount      string    `json:"amount"`
	AssetId     string    `json:"assetId"`
	Memo        string    `json:"memo,omitempty"`
	ObservedAt  time.Time `json:"observedAt"`
	Counted     bool      `json:"counted"`
	Late        bool      `json:"late"`
}

// TransitionInfo is the read model of an audit trail entry.
type TransitionInfo struct {
	From   string    `json:"from"`
	To     string    `json:"to"`
	At     time.Time `json:"at"`
	Reason string    `json:"reason,omitempty"`
}

// OrderStatusView is what a client polls to follow an order. The remaining
// seconds are derived from the stored deadline at read time.
type OrderStatusView struct {
	OrderId             string           `json:"orderId"`
	QuoteId             string           `json:"quoteId"`
	Status              string           `json:"status"`
	SourceAssetId       string           `json:"sourceAssetId"`
	DepositAddress      string           `json:"depositAddress"`
	DepositMemo         string           `json:"depositMemo,omitempty"`
	ExpectedInputAmount string           `json:"expectedInputAmount"`
	ExpectedOutput      string           `json:"expectedOutput"`
	AccumulatedAmount   string           `json:"accumulatedAmount"`
	DestinationAddress  string           `json:"destinationAddress"`
	DepositDeadline     time.Time        `json:"depositDeadline"`
	SecondsRemaining    int64            `json:"secondsRemaining"`
	ObservedDeposits    []DepositInfo    `json:"observedDeposits"`
	Transitions         []TransitionInfo `json:"transitions"`
	SettlementRef       string           `json:"settlementRef,omitempty"`
	FailureReason       string           `json:"failureReason,omitempty"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
}

// IsTerminal returns whether the viewed order can't change status anymore.
func (v OrderStatusView) IsTerminal() bool {
	st, err := domain.ParseOrderStatus(v.Status)
	return err == nil && st.IsTerminal()
}

// NewOrderStatusView returns the view of the given order at the given time.
func NewOrderStatusView(o domain.SwapOrder, now time.Time) OrderStatusView {
	deposits := make([]DepositInfo, 0, len(o.ObservedDeposits))
	for _, d := range o.ObservedDeposits {
		deposits = append(deposits, DepositInfo{
			TxReference: d.TxReference,
			Amount:      d.Amount.String(),
			AssetId:     d.AssetId,
			Memo:        d.Memo,
			ObservedAt:  d.ObservedAt,
			Counted:     d.Counted,
			Late:        d.Late,
		})
	}
	transitions := make([]TransitionInfo, 0, len(o.Transitions))
	for _, t := range o.Transitions {
		transitions = append(transitions, TransitionInfo{
			From:   t.From.String(),
			To:     t.To.String(),
			At:     t.At,
			Reason: t.Reason,
		})
	}

	return OrderStatusView{
		OrderId:             o.OrderId,
		QuoteId:             o.QuoteId,
		Status:              o.Status.String(),
		SourceAssetId:       o.SourceAssetId,
		DepositAddress:      o.DepositAddress,
		DepositMemo:         o.DepositMemo,
		ExpectedInputAmount: o.ExpectedInputAmount.String(),
		ExpectedOutput:      o.ExpectedOutput.String(),
		AccumulatedAmount:   o.AccumulatedAmount().String(),
		DestinationAddress:  o.DestinationAddress,
		DepositDeadline:     o.DepositDeadline,
		SecondsRemaining:    int64(o.TimeLeft(now) / time.Second),
		ObservedDeposits:    deposits,
		Transitions:         transitions,
		SettlementRef:       o.SettlementRef,
		FailureReason:       o.FailureReason,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
}
