package chain

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// ErrChainNotFound is returned for names or ids that are not configured.
var ErrChainNotFound = errors.New("chain not found")

type service struct {
	active []Handle
	byName map[string]Handle
}

// NewService creates a chain registry over the given handles. The order of
// handles is the order used for balances, targets and reporting.
//
//nolint:ireturn
func NewService(handles []Handle) (Service, error) {
	byName := make(map[string]Handle, len(handles))
	active := make([]Handle, 0, len(handles))

	for _, h := range handles {
		if h.Name == "" {
			return nil, errors.New("chain name must not be empty")
		}
		if _, dup := byName[h.Name]; dup {
			return nil, errors.Errorf("duplicate chain %q", h.Name)
		}
		h.RPCURLs = append([]string(nil), h.RPCURLs...)
		byName[h.Name] = h
		active = append(active, h)
	}

	return &service{active: active, byName: byName}, nil
}

// GetChain returns a handle by symbolic name.
func (s *service) GetChain(_ context.Context, name string) (Handle, error) {
	h, ok := s.byName[name]
	if !ok {
		return Handle{}, errors.Wrapf(ErrChainNotFound, "name=%s", name)
	}
	return h, nil
}

// GetChainByID returns a handle by native chain id.
func (s *service) GetChainByID(_ context.Context, chainID int64) (Handle, error) {
	for _, h := range s.active {
		if h.ChainID == chainID {
			return h, nil
		}
	}
	return Handle{}, errors.Wrapf(ErrChainNotFound, "chain_id=%d", chainID)
}

// GetActiveChains returns a copy of the configured handles.
func (s *service) GetActiveChains(_ context.Context) ([]Handle, error) {
	out := make([]Handle, len(s.active))
	copy(out, s.active)
	return out, nil
}

// ParseRPCURLs parses an RPC URL list (comma separated, blanks dropped).
func (s *service) ParseRPCURLs(rpcURL string) []string {
	return ParseRPCURLs(rpcURL)
}

// ParseRPCURLs parses an RPC URL list (comma separated, blanks dropped).
func ParseRPCURLs(rpcURL string) []string {
	if rpcURL == "" {
		return nil
	}

	urls := strings.Split(rpcURL, ",")
	result := make([]string, 0, len(urls))

	for _, url := range urls {
		url = strings.TrimSpace(url)
		if url != "" {
			result = append(result, url)
		}
	}

	return result
}
