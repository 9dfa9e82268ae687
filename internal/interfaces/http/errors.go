package httpinterface

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/zecswap/zecswap-daemon/internal/core/application/pubsub"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
	webhookpubsub "github.com/zecswap/zecswap-daemon/internal/infrastructure/pubsub"
)

var (
	errInvalidBody   = errors.New("invalid request body")
	errUnauthorized  = errors.New("missing or invalid watcher token")
	errInvalidStatus = errors.New("invalid order status filter")
)

var (
	badRequestErrors = []error{
		errInvalidBody,
		errInvalidStatus,
		domain.ErrInvalidAmount,
		domain.ErrUnknownAsset,
		domain.ErrInvalidRequestMode,
		domain.ErrInvalidDestinationAddress,
		domain.ErrMissingTxReference,
		pubsub.ErrInvalidTopic,
		webhookpubsub.ErrInvalidEndpoint,
	}
	notFoundErrors = []error{
		domain.ErrQuoteNotFound,
		domain.ErrOrderNotFound,
		webhookpubsub.ErrSubscriptionNotFound,
	}
	conflictErrors = []error{
		domain.ErrQuoteAlreadyConsumed,
		domain.ErrOrderTerminal,
		domain.ErrInvalidTransition,
	}
	goneErrors = []error{
		domain.ErrQuoteExpired,
	}
	unavailableErrors = []error{
		domain.ErrAllocationUnavailable,
		domain.ErrRateUnavailable,
	}
)

// httpStatus maps an application error to the status code of the response.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized
	case isAny(err, badRequestErrors):
		return http.StatusBadRequest
	case isAny(err, notFoundErrors):
		return http.StatusNotFound
	case isAny(err, conflictErrors):
		return http.StatusConflict
	case isAny(err, goneErrors):
		return http.StatusGone
	case isAny(err, unavailableErrors):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, err error) {
	code := httpStatus(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		log.WithError(err).Error("http: internal error")
		msg = http.StatusText(code)
	}
	writeJSON(w, code, errorResponse{msg})
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("http: failed to write response")
	}
}
