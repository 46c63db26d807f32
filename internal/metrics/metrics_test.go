package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_AllVariablesNonNil(t *testing.T) {
	t.Parallel()

	vars := []struct {
		name string
		val  any
	}{
		{"CyclesTotal", CyclesTotal},
		{"CycleDuration", CycleDuration},
		{"ChainAllocationPercent", ChainAllocationPercent},
		{"ChainDeviationPercent", ChainDeviationPercent},
		{"BalanceReadErrors", BalanceReadErrors},
		{"ActionsTotal", ActionsTotal},
		{"StepFailures", StepFailures},
		{"StepRetries", StepRetries},
		{"StepDuration", StepDuration},
		{"GasCeilingHits", GasCeilingHits},
		{"AttestationPolls", AttestationPolls},
		{"AttestationRateLimitWaits", AttestationRateLimitWaits},
	}

	for _, v := range vars {
		assert.NotNilf(t, v.val, "%s should not be nil", v.name)
	}
}

func TestMetrics_CounterIncrement(t *testing.T) {
	t.Parallel()

	before := testutil.ToFloat64(StepRetries.WithLabelValues("metrics-test"))
	StepRetries.WithLabelValues("metrics-test").Inc()
	assert.InDelta(t, before+1, testutil.ToFloat64(StepRetries.WithLabelValues("metrics-test")), 0.0001)

	assert.NotPanics(t, func() { CyclesTotal.WithLabelValues("no_action").Inc() })
	assert.NotPanics(t, func() { ActionsTotal.WithLabelValues("a", "b", "success").Inc() })
	assert.NotPanics(t, func() { StepFailures.WithLabelValues("burn", "rejected").Inc() })
	assert.NotPanics(t, func() { StepDuration.WithLabelValues("mint").Observe(1.5) })
	assert.NotPanics(t, func() { ChainAllocationPercent.WithLabelValues("sepolia").Set(40) })
	assert.NotPanics(t, func() { CycleDuration.Observe(2) })
}
