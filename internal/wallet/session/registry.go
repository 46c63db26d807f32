package session

import (
	"context"
	"crypto/ecdsa"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github/chapool/cctp-rebalancer/internal/wallet/chain"
	"github/chapool/cctp-rebalancer/internal/wallet/rpc"
	"github/chapool/cctp-rebalancer/internal/wallet/signer"
)

var (
	// ErrChainIDMismatch is returned when an endpoint serves a different chain
	// than its handle declares.
	ErrChainIDMismatch = errors.New("RPC endpoint chain id mismatch")
	// ErrRegistryClosed is returned by Get after Close.
	ErrRegistryClosed = errors.New("session registry closed")
)

// Registry caches one Session per chain for the lifetime of the process.
type Registry struct {
	key      *ecdsa.PrivateKey
	cfg      Config
	factory  BackendFactory
	sessions map[string]*Session // chain name -> session
	closed   bool
	mu       sync.Mutex

	// creating dedupes concurrent first use of a chain; mu is never held
	// while dialing.
	creating singleflight.Group
}

// Option configures a Registry.
type Option func(*Registry)

// WithBackendFactory replaces the default RPC dialer.
func WithBackendFactory(f BackendFactory) Option {
	return func(r *Registry) {
		r.factory = f
	}
}

// NewRegistry creates a registry signing with key. A nil key yields
// read-only sessions that report cfg.WatchAddress as their account.
func NewRegistry(key *ecdsa.PrivateKey, cfg Config, opts ...Option) *Registry {
	r := &Registry{
		key:      key,
		cfg:      cfg.withDefaults(),
		factory:  dialRPC,
		sessions: make(map[string]*Session),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func dialRPC(ctx context.Context, h chain.Handle) (Backend, error) {
	client, err := rpc.NewClient(ctx, h.RPCURLs)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Get returns the cached session for h, creating it on first use.
// Concurrent callers for the same chain share one creation; other chains are
// never blocked by it.
func (r *Registry) Get(ctx context.Context, h chain.Handle) (*Session, error) {
	if s, err := r.cached(h.Name); s != nil || err != nil {
		return s, err
	}

	v, err, _ := r.creating.Do(h.Name, func() (any, error) {
		if s, err := r.cached(h.Name); s != nil || err != nil {
			return s, err
		}

		s, err := r.create(ctx, h)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()

		if r.closed {
			s.Close()
			return nil, ErrRegistryClosed
		}
		r.sessions[h.Name] = s

		return s, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Session), nil //nolint:forcetypeassert
}

func (r *Registry) cached(name string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	return r.sessions[name], nil
}

func (r *Registry) create(ctx context.Context, h chain.Handle) (*Session, error) {
	backend, err := r.factory(ctx, h)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create RPC client for chain=%s", h.Name)
	}

	remoteID, err := backend.ChainID(ctx)
	if err != nil {
		backend.Close()
		return nil, errors.Wrapf(err, "failed to verify chain id for chain=%s", h.Name)
	}
	if remoteID.Int64() != h.ChainID {
		backend.Close()
		return nil, errors.Wrapf(ErrChainIDMismatch, "chain=%s expected=%d got=%s", h.Name, h.ChainID, remoteID)
	}

	var sig signer.Service
	if r.key != nil {
		sig, err = signer.NewServiceFromKey(h.ChainID, r.key)
		if err != nil {
			backend.Close()
			return nil, errors.Wrapf(err, "failed to create signer for chain=%s", h.Name)
		}
	}

	s := newSession(h, backend, sig, r.cfg)

	log.Debug().
		Str("chain", h.Name).
		Int64("chain_id", h.ChainID).
		Str("address", s.Address().Hex()).
		Bool("read_only", sig == nil).
		Msg("Session: created chain session")

	return s, nil
}

// Close closes every cached session.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	for name, s := range r.sessions {
		s.Close()
		delete(r.sessions, name)
	}
}
