package krakenfeeder

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/zecswap/zecswap-daemon/internal/core/ports"
)

const (
	// KrakenWebSocketURL is the base url to open a connection with kraken.
	KrakenWebSocketURL = "ws.kraken.com"

	// Kraken sends a heartbeat every second when no ticker changes, a silent
	// connection is considered dropped after readTimeout.
	readTimeout = 30 * time.Second
	// maxReconnectAttempts bounds the consecutive failed reconnections before
	// Start gives up.
	maxReconnectAttempts = 5
	reconnectBackoff     = 2 * time.Second
)

type service struct {
	connLock *sync.Mutex
	conn     *websocket.Conn
	interval time.Duration

	tickersMtx *sync.RWMutex
	tickers    map[string]struct{}

	latestFeedsByTickerMtx *sync.RWMutex
	latestFeedsByTicker    map[string]ports.PriceFeed

	chLock   *sync.Mutex
	stopped  bool
	feedChan chan ports.PriceFeed

	quitChan chan struct{}
	stopOnce *sync.Once
}

// NewKrakenPriceFeeder returns a feeder that pushes the latest price of every
// subscribed ticker to the feed channel at the given interval.
func NewKrakenPriceFeeder(interval time.Duration) (ports.PriceFeeder, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}

	return &service{
		connLock:               &sync.Mutex{},
		interval:               interval,
		tickersMtx:             &sync.RWMutex{},
		tickers:                make(map[string]struct{}),
		latestFeedsByTickerMtx: &sync.RWMutex{},
		latestFeedsByTicker:    make(map[string]ports.PriceFeed),
		chLock:                 &sync.Mutex{},
		feedChan:               make(chan ports.PriceFeed),
		quitChan:               make(chan struct{}),
		stopOnce:               &sync.Once{},
	}, nil
}

func (s *service) SubscribeTickers(tickers []string) error {
	if len(tickers) <= 0 {
		return fmt.Errorf("missing tickers")
	}

	conn, err := connectAndSubscribe(tickers)
	if err != nil {
		return err
	}

	s.setConn(conn)
	s.addTickers(tickers)
	return nil
}

// Start reads ticker updates until Stop is called, re-establishing the
// connection whenever it drops. It returns an error only if the feed could
// not be recovered.
func (s *service) Start() error {
	if s.getConn() == nil {
		return fmt.Errorf("no ticker subscribed")
	}

	go s.pushFeeds()

	attempts := 0
	for {
		err := s.readFeeds()
		if s.isStopped() {
			return nil
		}

		log.WithError(err).Warn("kraken: connection dropped, reconnecting")
		conn, err := connectAndSubscribe(s.getTickers())
		if err != nil {
			attempts++
			if attempts >= maxReconnectAttempts {
				s.Stop()
				return fmt.Errorf("kraken: giving up after %d attempts: %w", attempts, err)
			}
			time.Sleep(reconnectBackoff)
			continue
		}
		attempts = 0
		s.setConn(conn)
		log.Debug("kraken: connection and subscriptions re-established")
	}
}

func (s *service) Stop() {
	s.stopOnce.Do(func() {
		s.chLock.Lock()
		s.stopped = true
		close(s.quitChan)
		close(s.feedChan)
		s.chLock.Unlock()

		if conn := s.getConn(); conn != nil {
			// Unblocks the pending read.
			conn.Close()
		}
	})
}

func (s *service) FeedChan() chan ports.PriceFeed {
	return s.feedChan
}

// readFeeds stores the prices read from the current connection until it
// fails.
func (s *service) readFeeds() error {
	conn := s.getConn()
	defer conn.Close()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return err
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		if feed := s.parseFeed(message, time.Now()); feed != nil {
			s.writePriceFeed(feed)
		}
	}
}

// pushFeeds sends the latest feed of every ticker at every tick, so that
// consumers can detect stale prices by their timestamp.
func (s *service) pushFeeds() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.quitChan:
			return
		case <-ticker.C:
			for _, feed := range s.readPriceFeeds() {
				if !s.sendFeed(feed) {
					return
				}
			}
		}
	}
}

func (s *service) sendFeed(feed ports.PriceFeed) bool {
	s.chLock.Lock()
	defer s.chLock.Unlock()

	if s.stopped {
		return false
	}
	select {
	case s.feedChan <- feed:
	default:
		// Consumer busy, the next tick carries a fresher value anyway.
	}
	return true
}

// parseFeed extracts the last trade price from a ticker message of the form
// [channelID, {"c": [price, volume], ...}, "ticker", pair].
func (s *service) parseFeed(msg []byte, receivedAt time.Time) ports.PriceFeed {
	var fields []json.RawMessage
	if err := json.Unmarshal(msg, &fields); err != nil || len(fields) != 4 {
		return nil
	}

	var ticker string
	if err := json.Unmarshal(fields[3], &ticker); err != nil {
		return nil
	}
	if !s.hasTicker(ticker) {
		return nil
	}

	payload := struct {
		Close []string `json:"c"`
	}{}
	if err := json.Unmarshal(fields[1], &payload); err != nil {
		return nil
	}
	if len(payload.Close) < 1 {
		return nil
	}

	price, err := decimal.NewFromString(payload.Close[0])
	if err != nil || !price.IsPositive() {
		return nil
	}

	return &priceFeed{
		ticker: ticker,
		price:  price,
		time:   receivedAt,
	}
}

func (s *service) writePriceFeed(feed ports.PriceFeed) {
	s.latestFeedsByTickerMtx.Lock()
	defer s.latestFeedsByTickerMtx.Unlock()

	s.latestFeedsByTicker[feed.GetTicker()] = feed
}

func (s *service) readPriceFeeds() []ports.PriceFeed {
	s.latestFeedsByTickerMtx.RLock()
	defer s.latestFeedsByTickerMtx.RUnlock()

	feeds := make([]ports.PriceFeed, 0, len(s.latestFeedsByTicker))
	for _, feed := range s.latestFeedsByTicker {
		feeds = append(feeds, feed)
	}
	return feeds
}

func (s *service) isStopped() bool {
	s.chLock.Lock()
	defer s.chLock.Unlock()
	return s.stopped
}

func (s *service) getConn() *websocket.Conn {
	s.connLock.Lock()
	defer s.connLock.Unlock()
	return s.conn
}

func (s *service) setConn(conn *websocket.Conn) {
	s.connLock.Lock()
	defer s.connLock.Unlock()
	s.conn = conn
}

func (s *service) addTickers(tickers []string) {
	s.tickersMtx.Lock()
	defer s.tickersMtx.Unlock()

	for _, ticker := range tickers {
		s.tickers[ticker] = struct{}{}
	}
}

func (s *service) hasTicker(ticker string) bool {
	s.tickersMtx.RLock()
	defer s.tickersMtx.RUnlock()

	_, ok := s.tickers[ticker]
	return ok
}

func (s *service) getTickers() []string {
	s.tickersMtx.RLock()
	defer s.tickersMtx.RUnlock()

	tickers := make([]string, 0, len(s.tickers))
	for ticker := range s.tickers {
		tickers = append(tickers, ticker)
	}
	return tickers
}

func connectAndSubscribe(tickers []string) (*websocket.Conn, error) {
	url := fmt.Sprintf("wss://%s", KrakenWebSocketURL)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}

	msg := map[string]interface{}{
		"event": "subscribe",
		"pair":  tickers,
		"subscription": map[string]string{
			"name": "ticker",
		},
	}

	if err := conn.WriteJSON(msg); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cannot subscribe to given tickers: %s", err)
	}

	return conn, nil
}
