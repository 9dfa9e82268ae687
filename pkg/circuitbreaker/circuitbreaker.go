package circuitbreaker

import (
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

const (
	// MinRequests is the number of requests in a window below which the
	// breaker never trips.
	MinRequests = 10
	// FailingRatio is the ratio of failed requests over the window that trips
	// the breaker.
	FailingRatio = 0.6
	// OpenTimeout is how long the breaker stays open before letting a trial
	// request through.
	OpenTimeout = 30 * time.Second
)

// NewCircuitBreaker returns a breaker guarding calls to the named remote
// service. It opens once more than MinRequests have been made and at least
// FailingRatio of them failed, and logs every change of state.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return shouldTrip(counts)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			entry := log.WithFields(log.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			if to == gobreaker.StateOpen {
				entry.Warn("circuit breaker opened")
				return
			}
			entry.Info("circuit breaker changed state")
		},
	})
}

func shouldTrip(counts gobreaker.Counts) bool {
	if counts.Requests <= MinRequests {
		return false
	}
	ratio := float64(counts.TotalFailures) / float64(counts.Requests)
	return ratio >= FailingRatio
}
