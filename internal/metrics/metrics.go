package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cycle, action and pipeline step collectors.

var (
	// Cycle controller
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rebalancer",
		Subsystem: "cycle",
		Name:      "runs_total",
		Help:      "Total rebalance cycles by result",
	}, []string{"result"})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "rebalancer",
		Subsystem: "cycle",
		Name:      "duration_seconds",
		Help:      "Rebalance cycle duration",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})

	ChainAllocationPercent = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "rebalancer",
		Subsystem: "cycle",
		Name:      "allocation_percent",
		Help:      "Current USDC allocation per chain in percent",
	}, []string{"chain"})

	ChainDeviationPercent = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "rebalancer",
		Subsystem: "cycle",
		Name:      "deviation_percent",
		Help:      "Current minus target allocation per chain in percent",
	}, []string{"chain"})

	// Balance source
	BalanceReadErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rebalancer",
		Subsystem: "balance",
		Name:      "read_errors_total",
		Help:      "Total failed balance reads",
	}, []string{"chain"})

	// Transfer pipeline
	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rebalancer",
		Subsystem: "transfer",
		Name:      "actions_total",
		Help:      "Total executed transfer actions by outcome",
	}, []string{"from", "to", "result"})

	StepFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rebalancer",
		Subsystem: "transfer",
		Name:      "step_failures_total",
		Help:      "Total pipeline step failures by failure kind",
	}, []string{"step", "kind"})

	StepRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rebalancer",
		Subsystem: "transfer",
		Name:      "step_retries_total",
		Help:      "Total retried pipeline step attempts",
	}, []string{"step"})

	StepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rebalancer",
		Subsystem: "transfer",
		Name:      "step_duration_seconds",
		Help:      "Pipeline step duration",
		Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800},
	}, []string{"step"})

	GasCeilingHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rebalancer",
		Subsystem: "transfer",
		Name:      "gas_ceiling_hits_total",
		Help:      "Total gas estimates capped at the configured ceiling",
	}, []string{"chain"})

	// Attestation
	AttestationPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rebalancer",
		Subsystem: "attestation",
		Name:      "polls_total",
		Help:      "Total attestation lookups by status",
	}, []string{"status"})

	AttestationRateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rebalancer",
		Subsystem: "attestation",
		Name:      "rate_limit_waits_total",
		Help:      "Total attestation requests delayed by the client-side rate limit",
	})
)
