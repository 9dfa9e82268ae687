package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "zecswap"

var (
	QuotesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "quotes",
		Name:      "issued_total",
		Help:      "Total number of quotes issued by source asset and mode",
	}, []string{"asset", "mode"})

	OrdersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "created_total",
		Help:      "Total number of orders created by source asset",
	}, []string{"asset"})

	OrderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "transitions_total",
		Help:      "Total number of order status transitions by target status",
	}, []string{"status"})

	DepositReports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "deposits",
		Name:      "reports_total",
		Help:      "Total number of deposit reports by outcome",
	}, []string{"outcome"})

	AllocationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "allocator",
		Name:      "failures_total",
		Help:      "Total number of failed deposit allocations by source asset",
	}, []string{"asset"})
)
