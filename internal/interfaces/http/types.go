package httpinterface

import (
	"time"

	"github.com/zecswap/zecswap-daemon/internal/core/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

type assetResponse struct {
	AssetId         string `json:"assetId"`
	Symbol          string `json:"symbol"`
	ChainName       string `json:"chainName"`
	Decimals        uint32 `json:"decimals"`
	MemoRequired    bool   `json:"memoRequired"`
	ContractAddress string `json:"contractAddress,omitempty"`
}

// tokenRow is the shape of the token list served to the wallet UI.
type tokenRow struct {
	AssetId         string `json:"assetId"`
	Blockchain      string `json:"blockchain"`
	Symbol          string `json:"symbol"`
	Decimals        uint32 `json:"decimals"`
	ContractAddress string `json:"contractAddress,omitempty"`
}

type quoteRequest struct {
	SourceAssetId string `json:"sourceAssetId"`
	Amount        string `json:"amount"`
	Mode          string `json:"mode"`
}

type quoteResponse struct {
	QuoteId          string    `json:"quoteId"`
	SourceAssetId    string    `json:"sourceAssetId"`
	Mode             string    `json:"mode"`
	RequestedAmount  string    `json:"requestedAmount"`
	InputAmount      string    `json:"inputAmount"`
	ExpectedOutput   string    `json:"expectedOutput"`
	FeeAmount        string    `json:"feeAmount"`
	FeeRate          string    `json:"feeRate"`
	ExchangeRate     string    `json:"exchangeRate"`
	IssuedAt         time.Time `json:"issuedAt"`
	ExpiresAt        time.Time `json:"expiresAt"`
	SecondsRemaining int64     `json:"secondsRemaining"`
	Status           string    `json:"status"`
	OrderId          string    `json:"orderId,omitempty"`
}

type acceptQuoteRequest struct {
	DestinationAddress string `json:"destinationAddress"`
}

type depositRequest struct {
	TxReference string `json:"txReference"`
	Amount      string `json:"amount"`
	AssetId     string `json:"assetId"`
	Memo        string `json:"memo"`
}

type completeSettlementRequest struct {
	SettlementRef string `json:"settlementRef"`
}

type failSettlementRequest struct {
	Reason string `json:"reason"`
}

type addWebhookRequest struct {
	Topic    string `json:"topic"`
	Endpoint string `json:"endpoint"`
	Secret   string `json:"secret"`
}

type addWebhookResponse struct {
	Id string `json:"id"`
}

func toAssetResponse(a domain.Asset) assetResponse {
	return assetResponse{
		AssetId:         a.AssetId,
		Symbol:          a.Symbol,
		ChainName:       a.ChainName,
		Decimals:        a.Decimals,
		MemoRequired:    a.MemoRequired,
		ContractAddress: a.ContractAddress,
	}
}

func toTokenRow(a domain.Asset) tokenRow {
	return tokenRow{
		AssetId:         a.AssetId,
		Blockchain:      a.ChainName,
		Symbol:          a.Symbol,
		Decimals:        a.Decimals,
		ContractAddress: a.ContractAddress,
	}
}

func toQuoteResponse(q domain.Quote, now time.Time) quoteResponse {
	return quoteResponse{
		QuoteId:          q.QuoteId,
		SourceAssetId:    q.SourceAssetId,
		Mode:             string(q.RequestMode),
		RequestedAmount:  q.RequestedAmount.String(),
		InputAmount:      q.InputAmount.String(),
		ExpectedOutput:   q.ExpectedOutput.String(),
		FeeAmount:        q.FeeAmount.String(),
		FeeRate:          q.FeeRate.String(),
		ExchangeRate:     q.ExchangeRate.String(),
		IssuedAt:         q.IssuedAt,
		ExpiresAt:        q.ExpiresAt,
		SecondsRemaining: int64(q.TimeLeft(now) / time.Second),
		Status:           q.Status.String(),
		OrderId:          q.OrderId,
	}
}
