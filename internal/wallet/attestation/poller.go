package attestation

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github/chapool/cctp-rebalancer/internal/retry"
)

// Poller waits for an attestation using an adaptive schedule.
type Poller struct {
	fetcher Fetcher
	clock   Clock
	cfg     PollConfig
	onPoll  func(key Key, state State, status Status)
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithClock replaces the wall clock.
func WithClock(c Clock) PollerOption {
	return func(p *Poller) {
		p.clock = c
	}
}

// WithOnPoll registers a hook called after every lookup.
func WithOnPoll(fn func(key Key, state State, status Status)) PollerOption {
	return func(p *Poller) {
		p.onPoll = fn
	}
}

// NewPoller creates a poller over fetcher.
func NewPoller(fetcher Fetcher, cfg PollConfig, opts ...PollerOption) *Poller {
	p := &Poller{
		fetcher: fetcher,
		clock:   systemClock{},
		cfg:     cfg.withDefaults(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Config returns the effective schedule.
func (p *Poller) Config() PollConfig {
	return p.cfg
}

// Await polls until the attestation for key is complete. Transient lookup
// errors count as attempts. A terminal lookup error, ctx cancellation or the
// attempt ceiling ends the wait.
func (p *Poller) Await(ctx context.Context, key Key) (*Attestation, State, error) {
	start := p.clock.Now()
	state := State{Interval: p.cfg.IntervalAfter(0)}

	for {
		state.Attempt++

		att, err := p.fetcher.Fetch(ctx, key)
		state.Elapsed = p.clock.Now().Sub(start)

		status := StatusPending
		if att != nil {
			status = att.Status
		}
		if p.onPoll != nil {
			p.onPoll(key, state, status)
		}

		switch {
		case err == nil && att.Complete():
			log.Debug().
				Str("key", key.String()).
				Int("attempt", state.Attempt).
				Dur("elapsed", state.Elapsed).
				Msg("AttestationPoller: attestation complete")
			return att, state, nil
		case err != nil && ctx.Err() != nil:
			return nil, state, errors.Wrap(ctx.Err(), "attestation wait canceled")
		case err != nil && !retry.IsRetryable(err):
			return nil, state, errors.Wrapf(err, "attestation lookup failed for %s", key)
		case err != nil:
			log.Warn().
				Err(err).
				Str("key", key.String()).
				Int("attempt", state.Attempt).
				Msg("AttestationPoller: transient lookup error")
		}

		if state.Attempt >= p.cfg.MaxAttempts {
			return nil, state, errors.Wrapf(ErrTimeout, "%s attempts=%d elapsed=%s", key, state.Attempt, state.Elapsed)
		}

		state.Interval = p.cfg.IntervalAfter(state.Attempt)

		select {
		case <-ctx.Done():
			return nil, state, errors.Wrap(ctx.Err(), "attestation wait canceled")
		case <-p.clock.After(state.Interval):
		}
	}
}
