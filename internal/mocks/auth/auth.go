// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.
package auth

import (
	"context"
	"sync"

	domainauth "github.com/target/mmk-console/internal/domain/auth"
	"github.com/target/mmk-console/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.CredentialExchanger = (*MockExchanger)(nil)
	_ ports.TokenStore          = (*MemoryTokenStore)(nil)
	_ ports.RoleHintLookup      = (*StubRoleHints)(nil)
)

// MockExchanger simulates the identity service. Unset funcs return fixed defaults.
type MockExchanger struct {
	LoginFunc    func(ctx context.Context, username, password string) (domainauth.TokenBundle, error)
	SSOLoginFunc func(ctx context.Context) (domainauth.SSOLogin, error)
	ExchangeFunc func(ctx context.Context, code string) (domainauth.SSOExchange, error)

	mu        sync.Mutex
	exchanges map[string]int
}

// NewMockExchanger creates a MockExchanger with sensible defaults.
func NewMockExchanger() *MockExchanger {
	return &MockExchanger{}
}

func (m *MockExchanger) Login(ctx context.Context, username, password string) (domainauth.TokenBundle, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, username, password)
	}
	return domainauth.TokenBundle{AccessToken: "abc", RefreshToken: "def", TokenType: "bearer"}, nil
}

func (m *MockExchanger) SSOLoginURL(ctx context.Context) (domainauth.SSOLogin, error) {
	if m.SSOLoginFunc != nil {
		return m.SSOLoginFunc(ctx)
	}
	return domainauth.SSOLogin{AuthURL: "https://mock-idp/authorize", Message: "redirect"}, nil
}

func (m *MockExchanger) ExchangeSSOCode(ctx context.Context, code string) (domainauth.SSOExchange, error) {
	m.mu.Lock()
	if m.exchanges == nil {
		m.exchanges = make(map[string]int)
	}
	m.exchanges[code]++
	m.mu.Unlock()

	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, code)
	}
	return domainauth.SSOExchange{Tokens: domainauth.TokenBundle{AccessToken: "jwt1"}}, nil
}

// ExchangeCalls reports how many times code was exchanged.
func (m *MockExchanger) ExchangeCalls(code string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exchanges[code]
}

// MemoryTokenStore is an in-memory token store whose operations can be made to fail.
type MemoryTokenStore struct {
	GetErr    error
	SetErr    error
	RemoveErr error

	mu     sync.Mutex
	values map[string][]byte
}

// NewMemoryTokenStore creates an empty MemoryTokenStore.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{values: make(map[string][]byte)}
}

func (m *MemoryTokenStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	v, ok := m.values[key]
	if !ok {
		return nil, domainauth.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryTokenStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	if m.values == nil {
		m.values = make(map[string][]byte)
	}
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryTokenStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	delete(m.values, key)
	return nil
}

// Raw returns the stored value for key and whether it exists.
func (m *MemoryTokenStore) Raw(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return string(v), ok
}

// Len reports the number of stored keys.
func (m *MemoryTokenStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}

// StubRoleHints answers role lookups from LookupFunc, or from Admins when it is nil.
type StubRoleHints struct {
	LookupFunc func(ctx context.Context, email string) (domainauth.RoleHint, error)
	Admins     map[string]bool
}

func (s *StubRoleHints) LookupRole(ctx context.Context, email string) (domainauth.RoleHint, error) {
	if s.LookupFunc != nil {
		return s.LookupFunc(ctx, email)
	}
	return domainauth.RoleHint{Email: email, Admin: s.Admins[email]}, nil
}
