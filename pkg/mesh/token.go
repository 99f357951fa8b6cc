package mesh

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Token is the bearer credential for one service. Expiry is a unix timestamp
// and advisory only: a token stays cached until the owning service rejects
// it, regardless of expiry.
type Token struct {
	Value  string `json:"token"`
	Expiry int64  `json:"expiry"`
}

// tokenStore caches one token per service and collapses concurrent
// acquisitions for the same service into a single upstream call.
type tokenStore struct {
	mu     sync.RWMutex
	tokens map[ServiceType]Token
	group  singleflight.Group
}

func newTokenStore() *tokenStore {
	return &tokenStore{tokens: make(map[ServiceType]Token)}
}

// get returns the cached token for service. On a miss every concurrent
// caller shares one invocation of acquire; its result is cached on success
// and delivered to all waiters. A caller whose context is cancelled abandons
// the wait, while the acquisition itself runs to completion for the others.
func (s *tokenStore) get(ctx context.Context, service ServiceType, acquire func() (Token, error)) (Token, error) {
	s.mu.RLock()
	tok, ok := s.tokens[service]
	s.mu.RUnlock()
	if ok {
		return tok, nil
	}

	ch := s.group.DoChan(service.String(), func() (any, error) {
		tok, err := acquire()
		if err != nil {
			return Token{}, err
		}
		s.mu.Lock()
		s.tokens[service] = tok
		s.mu.Unlock()
		return tok, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Token{}, res.Err
		}
		return res.Val.(Token), nil
	case <-ctx.Done():
		return Token{}, ctx.Err()
	}
}

// invalidate drops the cached token for service. Safe to call at any time;
// dropping an absent token is a no-op.
func (s *tokenStore) invalidate(service ServiceType) {
	s.mu.Lock()
	delete(s.tokens, service)
	s.mu.Unlock()
}

// peek returns the cached token without triggering an acquisition.
func (s *tokenStore) peek(service ServiceType) (Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok, ok := s.tokens[service]
	return tok, ok
}
