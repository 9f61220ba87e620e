// Package memory provides an in-process token store for tests and ephemeral runs.
package memory

import (
	"context"
	"sync"

	domainauth "github.com/target/mmk-console/internal/domain/auth"
	"github.com/target/mmk-console/internal/ports"
)

var _ ports.TokenStore = (*TokenStore)(nil)

// TokenStore keeps values in a map. Nothing survives a restart.
type TokenStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewTokenStore() *TokenStore {
	return &TokenStore{values: make(map[string][]byte)}
}

func (s *TokenStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, domainauth.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *TokenStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *TokenStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
