package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"timeout", errors.New("Post \"https://rpc\": i/o timeout"), true},
		{"rate limited", errors.New("429 Too Many Requests"), true},
		{"gateway", errors.New("http status 502: bad gateway"), true},
		{"unavailable", errors.New("503 Service Unavailable"), true},
		{"connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"deadline", context.DeadlineExceeded, true},
		{"insufficient funds", errors.New("insufficient funds for gas * price + value"), false},
		{"nonce too low", errors.New("nonce too low: next nonce 5, tx nonce 4"), false},
		{"underpriced", errors.New("replacement transaction underpriced"), false},
		{"reverted", errors.New("execution reverted: ERC20: transfer amount exceeds balance"), false},
		{"canceled", context.Canceled, false},
		{"unknown", errors.New("something odd"), false},
		{"rejection wins over transport", errors.New("timeout: insufficient funds"), false},
		{"wrapped transient", fmt.Errorf("estimate gas: %w", errors.New("connection refused")), true},
		{"explicit transient", Transient(errors.New("something odd")), true},
		{"explicit terminal", Terminal(errors.New("timeout")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, IsRetryable(tt.err), Classify(tt.err).Reason)
		})
	}

	assert.False(t, IsRetryable(nil))
}

func TestIsNonceUsed(t *testing.T) {
	assert.True(t, IsNonceUsed(errors.New("nonce too low: next nonce 5, tx nonce 4")))
	assert.True(t, IsNonceUsed(fmt.Errorf("broadcast: %w", errors.New("already known"))))
	assert.False(t, IsNonceUsed(errors.New("nonce too high")))
	assert.False(t, IsNonceUsed(errors.New("insufficient funds")))
	assert.False(t, IsNonceUsed(nil))
}

func TestRetrier_Do(t *testing.T) {
	transient := errors.New("connection reset")

	t.Run("success on first attempt", func(t *testing.T) {
		r := New()
		attempts := 0
		err := r.Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("success after retries", func(t *testing.T) {
		r := New(WithMaxRetries(3), WithInitialInterval(1*time.Millisecond))
		attempts := 0
		err := r.Do(context.Background(), func(ctx context.Context) error {
			attempts++
			if attempts < 3 {
				return transient
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("fail after max retries", func(t *testing.T) {
		r := New(WithMaxRetries(2), WithInitialInterval(1*time.Millisecond))
		attempts := 0
		err := r.Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return transient
		})
		require.ErrorIs(t, err, transient)
		assert.Equal(t, 3, attempts) // 1 initial + 2 retries
	})

	t.Run("terminal error stops immediately", func(t *testing.T) {
		r := New(WithMaxRetries(5), WithInitialInterval(1*time.Millisecond))
		attempts := 0
		err := r.Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return errors.New("execution reverted")
		})
		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("on retry hook and capped interval", func(t *testing.T) {
		var delays []time.Duration
		r := New(
			WithMaxRetries(4),
			WithInitialInterval(1*time.Millisecond),
			WithMaxInterval(2*time.Millisecond),
			WithJitter(0),
			WithOnRetry(func(_ int, d time.Duration, _ error) { delays = append(delays, d) }),
		)
		_ = r.Do(context.Background(), func(ctx context.Context) error { return transient })
		assert.Equal(t, []time.Duration{
			1 * time.Millisecond,
			2 * time.Millisecond,
			2 * time.Millisecond,
			2 * time.Millisecond,
		}, delays)
	})

	t.Run("context cancellation", func(t *testing.T) {
		r := New(WithMaxRetries(5), WithInitialInterval(100*time.Millisecond))
		ctx, cancel := context.WithCancel(context.Background())

		attempts := 0
		err := r.Do(ctx, func(ctx context.Context) error {
			attempts++
			if attempts == 2 {
				cancel()
			}
			return transient
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 2, attempts)
	})
}

func TestDoWithData(t *testing.T) {
	r := New(WithMaxRetries(1), WithInitialInterval(1*time.Millisecond))

	val, err := DoWithData(context.Background(), r, func(ctx context.Context) (string, error) {
		return "success", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "success", val)

	val, err = DoWithData(context.Background(), r, func(ctx context.Context) (string, error) {
		return "", errors.New("timeout")
	})
	require.Error(t, err)
	assert.Empty(t, val)
}
