package httpinterface

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"github.com/zecswap/zecswap-daemon/internal/core/application/order"
	"github.com/zecswap/zecswap-daemon/internal/core/application/pubsub"
	"github.com/zecswap/zecswap-daemon/internal/core/application/quote"
	"github.com/zecswap/zecswap-daemon/internal/core/application/status"
	interfaces "github.com/zecswap/zecswap-daemon/internal/interfaces"
)

const (
	// DefaultStreamInterval is the period between two status pushes of the
	// order stream.
	DefaultStreamInterval = 2 * time.Second

	shutdownTimeout = 10 * time.Second
)

type ServiceOpts struct {
	Address            string
	CORSAllowedOrigins []string
	WatcherSecret      string
	StreamInterval     time.Duration

	QuoteSvc  *quote.Service
	OrderSvc  *order.Service
	StatusSvc *status.Service
	// PubSubSvc is optional, webhook routes are not served without it.
	PubSubSvc *pubsub.Service
}

func (o ServiceOpts) validate() error {
	if len(o.WatcherSecret) <= 0 {
		return fmt.Errorf("missing watcher secret")
	}
	if o.QuoteSvc == nil {
		return fmt.Errorf("quote app service must not be null")
	}
	if o.OrderSvc == nil {
		return fmt.Errorf("order app service must not be null")
	}
	if o.StatusSvc == nil {
		return fmt.Errorf("status app service must not be null")
	}
	if o.StreamInterval < 0 {
		return fmt.Errorf("stream interval must not be negative")
	}
	return nil
}

type service struct {
	address string
	server  *http.Server
}

// NewHandler returns the HTTP handler serving the JSON API, the order status
// stream and the metrics.
func NewHandler(opts ServiceOpts) (http.Handler, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid opts: %s", err)
	}

	streamInterval := opts.StreamInterval
	if streamInterval == 0 {
		streamInterval = DefaultStreamInterval
	}
	origins := opts.CORSAllowedOrigins
	if len(origins) <= 0 {
		origins = []string{"*"}
	}

	h := &handler{
		quoteSvc:  opts.QuoteSvc,
		orderSvc:  opts.OrderSvc,
		statusSvc: opts.StatusSvc,
		pubsubSvc: opts.PubSubSvc,
		now:       time.Now,
	}
	secret := []byte(opts.WatcherSecret)
	upgrader := &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return isAllowedOrigin(origins, r.Header.Get("Origin"))
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/assets", h.listAssets)
	mux.HandleFunc("GET /api/tokens", h.listTokens)
	mux.HandleFunc("POST /v1/quotes", h.requestQuote)
	mux.HandleFunc("GET /v1/quotes/{id}", h.getQuote)
	mux.HandleFunc("POST /v1/quotes/{id}/accept", h.acceptQuote)
	mux.HandleFunc("GET /v1/orders/{id}", h.getOrder)
	mux.HandleFunc("GET /v1/orders/{id}/stream", h.streamOrder(upgrader, streamInterval))

	mux.HandleFunc("GET /v1/orders", watcherAuth(secret, h.listOrders))
	mux.HandleFunc("POST /v1/orders/{id}/deposits", watcherAuth(secret, h.reportDeposit))
	mux.HandleFunc(
		"POST /v1/orders/{id}/settlement/complete",
		watcherAuth(secret, h.completeSettlement),
	)
	mux.HandleFunc(
		"POST /v1/orders/{id}/settlement/fail", watcherAuth(secret, h.failSettlement),
	)
	if h.pubsubSvc != nil {
		mux.HandleFunc("POST /v1/webhooks", watcherAuth(secret, h.addWebhook))
		mux.HandleFunc("GET /v1/webhooks", watcherAuth(secret, h.listWebhooks))
		mux.HandleFunc("DELETE /v1/webhooks/{id}", watcherAuth(secret, h.removeWebhook))
	}

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", healthz)

	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodDelete,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return requestLogger(c.Handler(mux)), nil
}

func NewService(opts ServiceOpts) (interfaces.Service, error) {
	handler, err := NewHandler(opts)
	if err != nil {
		return nil, err
	}
	return &service{
		address: opts.Address,
		server: &http.Server{
			Addr:              opts.Address,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func (s *service) Start() error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	go func() {
		if err := s.server.Serve(lis); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http: server stopped unexpectedly")
		}
	}()

	log.Infof("http api listening on %s", lis.Addr())
	return nil
}

func (s *service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("http: failed to gracefully shutdown server")
	}
	log.Info("http api stopped")
}

func isAllowedOrigin(origins []string, origin string) bool {
	if len(origin) <= 0 {
		return true
	}
	for _, o := range origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
