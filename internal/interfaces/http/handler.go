package httpinterface

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zecswap/zecswap-daemon/internal/core/application/order"
	"github.com/zecswap/zecswap-daemon/internal/core/application/pubsub"
	"github.com/zecswap/zecswap-daemon/internal/core/application/quote"
	"github.com/zecswap/zecswap-daemon/internal/core/application/status"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
)

const maxBodySize = 1 << 16

type handler struct {
	quoteSvc  *quote.Service
	orderSvc  *order.Service
	statusSvc *status.Service
	pubsubSvc *pubsub.Service
	now       func() time.Time
}

func (h *handler) listAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.quoteSvc.ListAssets(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	res := make([]assetResponse, 0, len(assets))
	for _, a := range assets {
		res = append(res, toAssetResponse(a))
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) listTokens(w http.ResponseWriter, r *http.Request) {
	assets, err := h.quoteSvc.ListAssets(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	res := make([]tokenRow, 0, len(assets))
	for _, a := range assets {
		res = append(res, toTokenRow(a))
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) requestQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	mode := domain.RequestModePay
	if len(req.Mode) > 0 {
		m, err := domain.ParseRequestMode(strings.ToLower(req.Mode))
		if err != nil {
			writeError(w, err)
			return
		}
		mode = m
	}

	q, err := h.quoteSvc.RequestQuote(r.Context(), req.SourceAssetId, req.Amount, mode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toQuoteResponse(*q, h.now()))
}

func (h *handler) getQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.quoteSvc.GetQuote(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteResponse(*q, h.now()))
}

func (h *handler) acceptQuote(w http.ResponseWriter, r *http.Request) {
	var req acceptQuoteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	o, err := h.orderSvc.AcceptQuote(r.Context(), r.PathValue("id"), req.DestinationAddress)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, status.NewOrderStatusView(*o, h.now()))
}

func (h *handler) getOrder(w http.ResponseWriter, r *http.Request) {
	view, err := h.statusSvc.GetStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *handler) listOrders(w http.ResponseWriter, r *http.Request) {
	statuses := make([]domain.OrderStatus, 0)
	for _, s := range r.URL.Query()["status"] {
		for _, name := range strings.Split(s, ",") {
			st, err := domain.ParseOrderStatus(name)
			if err != nil {
				writeError(w, fmt.Errorf("%w: %s", errInvalidStatus, err))
				return
			}
			statuses = append(statuses, st)
		}
	}

	views, err := h.statusSvc.ListOrders(r.Context(), statuses...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handler) reportDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	o, err := h.orderSvc.ReportDeposit(r.Context(), order.DepositReport{
		OrderId:     r.PathValue("id"),
		TxReference: req.TxReference,
		Amount:      req.Amount,
		AssetId:     req.AssetId,
		Memo:        req.Memo,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status.NewOrderStatusView(*o, h.now()))
}

func (h *handler) completeSettlement(w http.ResponseWriter, r *http.Request) {
	var req completeSettlementRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(strings.TrimSpace(req.SettlementRef)) <= 0 {
		writeError(w, fmt.Errorf("%w: missing settlement reference", errInvalidBody))
		return
	}

	o, err := h.orderSvc.CompleteSettlement(r.Context(), r.PathValue("id"), req.SettlementRef)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status.NewOrderStatusView(*o, h.now()))
}

func (h *handler) failSettlement(w http.ResponseWriter, r *http.Request) {
	var req failSettlementRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	o, err := h.orderSvc.FailSettlement(r.Context(), r.PathValue("id"), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status.NewOrderStatusView(*o, h.now()))
}

func (h *handler) addWebhook(w http.ResponseWriter, r *http.Request) {
	var req addWebhookRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	id, err := h.pubsubSvc.AddWebhook(r.Context(), req.Topic, req.Endpoint, req.Secret)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, addWebhookResponse{id})
}

func (h *handler) removeWebhook(w http.ResponseWriter, r *http.Request) {
	if err := h.pubsubSvc.RemoveWebhook(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listWebhooks(w http.ResponseWriter, r *http.Request) {
	hooks, err := h.pubsubSvc.ListWebhooks(r.Context(), r.URL.Query().Get("topic"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hooks)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %s", errInvalidBody, err)
	}
	return nil
}
