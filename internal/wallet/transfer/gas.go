package transfer

import (
	"github.com/rs/zerolog/log"

	"github/chapool/cctp-rebalancer/internal/metrics"
)

const (
	defaultGasBufferPercent = 20
	defaultGasCeiling       = 1_000_000
)

// GasPolicy turns a gas estimate into a gas limit.
type GasPolicy struct {
	// BufferPercent is added on top of the estimate.
	BufferPercent uint64
	// Ceiling caps the limit. Zero disables the cap.
	Ceiling uint64
}

// DefaultGasPolicy returns a 20% buffer capped at one million gas.
func DefaultGasPolicy() GasPolicy {
	return GasPolicy{BufferPercent: defaultGasBufferPercent, Ceiling: defaultGasCeiling}
}

// Apply returns estimate × (1 + BufferPercent/100). An estimate over the
// ceiling is submitted at the ceiling.
func (g GasPolicy) Apply(chainName string, estimate uint64) uint64 {
	limit := estimate + estimate*g.BufferPercent/100

	if g.Ceiling > 0 && limit > g.Ceiling {
		metrics.GasCeilingHits.WithLabelValues(chainName).Inc()
		log.Warn().
			Str("chain", chainName).
			Uint64("estimate", estimate).
			Uint64("buffered", limit).
			Uint64("ceiling", g.Ceiling).
			Msg("TransferPipeline: gas estimate exceeds ceiling, submitting at ceiling")
		return g.Ceiling
	}

	return limit
}
