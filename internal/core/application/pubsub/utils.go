package pubsub

import (
	"time"

	"github.com/zecswap/zecswap-daemon/internal/core/domain"
)

func getOrderPayload(order domain.SwapOrder) map[string]interface{} {
	payload := map[string]interface{}{
		"id":                  order.OrderId,
		"quote_id":            order.QuoteId,
		"status":              order.Status.String(),
		"source_asset":        order.SourceAssetId,
		"expected_input":      order.ExpectedInputAmount.String(),
		"expected_output":     order.ExpectedOutput.String(),
		"accumulated_amount":  order.AccumulatedAmount().String(),
		"deposit_address":     order.DepositAddress,
		"destination_address": order.DestinationAddress,
		"deposit_deadline":    order.DepositDeadline.Format(time.RFC3339),
		"updated_at":          order.UpdatedAt.Format(time.RFC3339),
	}
	if len(order.DepositMemo) > 0 {
		payload["deposit_memo"] = order.DepositMemo
	}
	if len(order.SettlementRef) > 0 {
		payload["settlement_ref"] = order.SettlementRef
	}
	if len(order.FailureReason) > 0 {
		payload["failure_reason"] = order.FailureReason
	}
	return payload
}

func getDepositPayload(deposit domain.ObservedDeposit) map[string]interface{} {
	return map[string]interface{}{
		"tx_ref":      deposit.TxReference,
		"amount":      deposit.Amount.String(),
		"asset":       deposit.AssetId,
		"counted":     deposit.Counted,
		"late":        deposit.Late,
		"observed_at": deposit.ObservedAt.Format(time.RFC3339),
	}
}
