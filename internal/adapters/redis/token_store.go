// Package redis provides Redis-based adapters for the console session.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	domainauth "github.com/target/mmk-console/internal/domain/auth"
	"github.com/target/mmk-console/internal/ports"
)

// DefaultPrefix namespaces every key written by the console.
const DefaultPrefix = "mmk-console:"

var _ ports.TokenStore = (*TokenStore)(nil)

// TokenStore is a Redis-backed scoped key-value store.
// Keys are stored as <prefix><scope>:<key>. They expire after TokenStoreOptions.TTL when it is
// set and otherwise live until removed.
type TokenStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// TokenStoreOptions configures a TokenStore.
type TokenStoreOptions struct {
	Prefix string        // Optional, defaults to DefaultPrefix
	Scope  string        // Application scope, e.g. "mmk-console"
	TTL    time.Duration // Optional expiry; zero keeps values until removed
}

// NewTokenStore creates a Redis token store.
func NewTokenStore(client redis.UniversalClient, opts TokenStoreOptions) *TokenStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if scope := strings.TrimSpace(opts.Scope); scope != "" {
		prefix += scope + ":"
	}
	return &TokenStore{client: client, prefix: prefix, ttl: opts.TTL}
}

func (s *TokenStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, domainauth.ErrNotFound
	}

	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domainauth.ErrNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

func (s *TokenStore) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *TokenStore) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil // Nothing to remove
	}
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
