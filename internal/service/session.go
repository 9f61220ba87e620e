package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	domainauth "github.com/target/mmk-console/internal/domain/auth"
	"github.com/target/mmk-console/internal/ports"
)

// Durable storage keys.
const (
	SessionKey  = "session"
	IdentityKey = "user"
)

const defaultDeriveTimeout = 5 * time.Second

// storedSession is the durable form of the token pair.
type storedSession struct {
	APIToken     string `json:"api_token"`
	RefreshToken string `json:"refreshToken"`
}

// SessionManagerOptions groups dependencies for SessionManager.
type SessionManagerOptions struct {
	Store ports.TokenStore
	// RoleHints is optional. When set it can confirm or revoke a claim-derived admin grant.
	RoleHints ports.RoleHintLookup
	// DeriveTimeout bounds a single derivation pass, including the role-hint lookup.
	DeriveTimeout time.Duration
	Logger        *slog.Logger
}

func (o SessionManagerOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// SessionManager owns the client session. All mutation goes through SaveSession and Logout;
// everything else reads snapshots.
//
// Each token change bumps a generation counter. Derivation passes run asynchronously and
// carry the generation they started from; a pass commits only if that generation is still
// current, so a superseded pass can never overwrite the derived state of newer tokens.
type SessionManager struct {
	store         ports.TokenStore
	hints         ports.RoleHintLookup
	deriveTimeout time.Duration
	logger        *slog.Logger

	// writeMu orders token changes with their durable writes, so the store always ends
	// up holding what memory last committed.
	writeMu sync.Mutex

	mu             sync.RWMutex
	state          domainauth.State
	tokens         *domainauth.TokenBundle
	identity       *domainauth.Identity
	identitySeeded bool
	admin          bool
	adminCheckDone bool
	expiresAt      time.Time
	generation     uint64
	ready          chan struct{} // closed once adminCheckDone is true for the current generation

	subsMu  sync.Mutex
	subs    map[int]func(domainauth.Snapshot)
	nextSub int

	inflight sync.WaitGroup
}

// NewSessionManager constructs an uninitialized SessionManager. Call Restore before serving.
func NewSessionManager(opts SessionManagerOptions) *SessionManager {
	timeout := opts.DeriveTimeout
	if timeout <= 0 {
		timeout = defaultDeriveTimeout
	}
	return &SessionManager{
		store:         opts.Store,
		hints:         opts.RoleHints,
		deriveTimeout: timeout,
		logger:        opts.logger().With("component", "session"),
		state:         domainauth.StateUninitialized,
		ready:         make(chan struct{}),
		subs:          make(map[int]func(domainauth.Snapshot)),
	}
}

// SaveOption customizes a SaveSession call.
type SaveOption func(*saveConfig)

type saveConfig struct {
	identity *domainauth.Identity
}

// WithIdentity seeds the display identity, typically from SSO user info.
// Role derivation still comes from the token claims.
func WithIdentity(identity *domainauth.Identity) SaveOption {
	return func(c *saveConfig) {
		if identity != nil {
			id := *identity
			c.identity = &id
		}
	}
}

// Restore loads the durable session. A stored pair enters restoring and schedules derivation;
// no pair, or a corrupt one, resolves to unauthenticated immediately.
// A store read failure also resolves to unauthenticated and is returned.
func (m *SessionManager) Restore(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	raw, err := m.store.Get(ctx, SessionKey)
	switch {
	case errors.Is(err, domainauth.ErrNotFound):
		m.logger.InfoContext(ctx, "no stored session")
		m.reset(ctx)
		return nil
	case err != nil:
		m.reset(ctx)
		return fmt.Errorf("read stored session: %w", err)
	}

	tokens, ok := decodeStoredSession(raw)
	if !ok {
		m.logger.WarnContext(ctx, "discarding corrupt stored session")
		m.reset(ctx)
		if rmErr := m.store.Remove(ctx, SessionKey); rmErr != nil {
			return fmt.Errorf("remove corrupt session: %w", rmErr)
		}
		return nil
	}

	var seed *domainauth.Identity
	if rawID, idErr := m.store.Get(ctx, IdentityKey); idErr == nil {
		var id domainauth.Identity
		if json.Unmarshal(rawID, &id) == nil && id != (domainauth.Identity{}) {
			seed = &id
		}
	}

	gen, snap := m.install(tokens, seed)
	m.logger.InfoContext(ctx, "restored stored session", "generation", gen, "identity_cached", seed != nil)
	m.notify(snap)
	return nil
}

// SaveSession replaces the tokens. A nil bundle is logout: derived state is cleared and the
// durable entries removed. A non-nil bundle is committed in memory, persisted, and derivation is
// scheduled. Saving the current pair again, with no new identity, keeps the current generation.
//
// The in-memory commit stands even when persistence fails; the error is returned.
// Calls are serialized with each other, with Logout and with Restore.
func (m *SessionManager) SaveSession(ctx context.Context, tokens *domainauth.TokenBundle, opts ...SaveOption) error {
	if tokens != nil && tokens.IsZero() {
		return errors.New("save session: access token is required")
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if tokens == nil {
		return m.clear(ctx)
	}

	var cfg saveConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if m.sameTokens(*tokens, cfg.identity) {
		// The cached identity still belongs to these tokens.
		return m.persistTokens(ctx, *tokens)
	}

	gen, snap := m.install(*tokens, cfg.identity)
	m.logger.InfoContext(ctx, "session tokens saved", "generation", gen, "identity_seeded", cfg.identity != nil)
	m.notify(snap)
	return m.persist(ctx, *tokens, cfg.identity)
}

// ClearSession is SaveSession(ctx, nil).
func (m *SessionManager) ClearSession(ctx context.Context) error {
	return m.SaveSession(ctx, nil)
}

// Logout clears the session and the cached identity.
func (m *SessionManager) Logout(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	held := m.IsAuthenticated()
	err := m.clear(ctx)
	if held {
		m.logger.InfoContext(ctx, "logged out")
	}
	return err
}

// clear resets memory and removes both durable entries. Callers hold writeMu.
func (m *SessionManager) clear(ctx context.Context) error {
	m.reset(ctx)
	var err error
	if rmErr := m.store.Remove(ctx, SessionKey); rmErr != nil {
		err = fmt.Errorf("remove stored session: %w", rmErr)
	}
	if rmErr := m.store.Remove(ctx, IdentityKey); rmErr != nil {
		err = errors.Join(err, fmt.Errorf("remove cached identity: %w", rmErr))
	}
	return err
}

// Snapshot returns a consistent copy of the current session.
func (m *SessionManager) Snapshot() domainauth.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *SessionManager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens != nil
}

func (m *SessionManager) IsAdmin() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.admin
}

func (m *SessionManager) IsReady() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.adminCheckDone
}

// Tokens returns a copy of the current token pair, if any.
func (m *SessionManager) Tokens() (domainauth.TokenBundle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tokens == nil {
		return domainauth.TokenBundle{}, false
	}
	return *m.tokens, true
}

// WaitReady blocks until the session is ready or ctx is done.
// It always returns the latest snapshot. On timeout the error wraps both
// domainauth.ErrSessionNotReady and ctx.Err().
func (m *SessionManager) WaitReady(ctx context.Context) (domainauth.Snapshot, error) {
	for {
		m.mu.RLock()
		if m.adminCheckDone {
			snap := m.snapshotLocked()
			m.mu.RUnlock()
			return snap, nil
		}
		ready := m.ready
		m.mu.RUnlock()

		select {
		case <-ready:
			// Tokens may have changed again before we reacquire the lock; loop.
		case <-ctx.Done():
			return m.Snapshot(), fmt.Errorf("%w: %w", domainauth.ErrSessionNotReady, ctx.Err())
		}
	}
}

// Subscribe registers fn for every committed change. fn runs outside the session lock, on the
// goroutine that made the change; use Snapshot.Generation to order deliveries.
// fn must not call SaveSession, ClearSession or Logout.
func (m *SessionManager) Subscribe(fn func(domainauth.Snapshot)) (unsubscribe func()) {
	m.subsMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subsMu.Unlock()

	return func() {
		m.subsMu.Lock()
		delete(m.subs, id)
		m.subsMu.Unlock()
	}
}

// Wait blocks until in-flight derivation passes finish.
func (m *SessionManager) Wait() {
	m.inflight.Wait()
}

func (m *SessionManager) sameTokens(tokens domainauth.TokenBundle, seed *domainauth.Identity) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return seed == nil && m.tokens != nil && m.tokens.Equal(tokens)
}

// install commits new tokens, resets derived state and schedules derivation.
func (m *SessionManager) install(tokens domainauth.TokenBundle, seed *domainauth.Identity) (uint64, domainauth.Snapshot) {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.tokens = &tokens
	m.identity = seed
	m.identitySeeded = seed != nil
	m.admin = false
	m.expiresAt = time.Time{}
	m.state = domainauth.StateRestoring
	if m.adminCheckDone {
		m.ready = make(chan struct{})
	}
	m.adminCheckDone = false
	snap := m.snapshotLocked()
	m.inflight.Add(1)
	m.mu.Unlock()

	var seedEmail string
	if seed != nil {
		seedEmail = seed.Email
	}
	go m.derive(gen, tokens.AccessToken, seed == nil, seedEmail)
	return gen, snap
}

// reset returns to the unauthenticated state. A no-session determination is itself
// a completed check, so readiness is reached immediately.
func (m *SessionManager) reset(ctx context.Context) {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.tokens = nil
	m.identity = nil
	m.identitySeeded = false
	m.admin = false
	m.expiresAt = time.Time{}
	m.state = domainauth.StateUnauthenticated
	m.markReadyLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.DebugContext(ctx, "session cleared", "generation", gen)
	m.notify(snap)
}

func (m *SessionManager) markReadyLocked() {
	if !m.adminCheckDone {
		m.adminCheckDone = true
		close(m.ready)
	}
}

type derivation struct {
	identity  *domainauth.Identity
	admin     bool
	expiresAt time.Time
}

func (m *SessionManager) derive(gen uint64, accessToken string, deriveIdentity bool, seedEmail string) {
	defer m.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), m.deriveTimeout)
	defer cancel()
	logger := m.logger.With("generation", gen)

	var d derivation
	res := domainauth.DecodeClaims(accessToken)
	if !res.OK() {
		// Opaque or malformed tokens are expected; they resolve as non-admin.
		logger.InfoContext(ctx, "token claims not decodable", "stage", res.Failure.Stage)
	} else {
		d.admin = res.Claims.GrantsAdmin()
		d.expiresAt = res.Claims.ExpiresAt
		if deriveIdentity {
			id := res.Claims.Identity()
			d.identity = &id
		}
		email := res.Claims.Email
		if email == "" {
			email = seedEmail
		}
		if d.admin {
			d.admin = m.confirmAdmin(ctx, logger, email)
		}
	}

	m.commit(ctx, logger, gen, d)
}

// confirmAdmin consults the role hint for a claim-granted admin. The hint can only revoke.
func (m *SessionManager) confirmAdmin(ctx context.Context, logger *slog.Logger, email string) bool {
	if m.hints == nil || email == "" {
		return true
	}
	hint, err := m.hints.LookupRole(ctx, email)
	if err != nil {
		logger.WarnContext(ctx, "role hint lookup failed; keeping claim-derived role", "error", err)
		return true
	}
	if !hint.Admin {
		logger.InfoContext(ctx, "role hint revoked admin")
		return false
	}
	return true
}

func (m *SessionManager) commit(ctx context.Context, logger *slog.Logger, gen uint64, d derivation) {
	m.mu.Lock()
	if gen != m.generation {
		current := m.generation
		m.mu.Unlock()
		logger.DebugContext(ctx, "discarding superseded derivation", "current_generation", current)
		return
	}
	if !m.identitySeeded {
		m.identity = d.identity
	}
	m.admin = d.admin
	m.expiresAt = d.expiresAt
	m.state = domainauth.StateAuthenticated
	m.markReadyLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	logger.InfoContext(ctx, "session ready", "admin", snap.Admin)
	m.notify(snap)
}

// persist writes new tokens and their cached identity. A stale identity is removed before the
// tokens are written, so a partial failure never pairs new tokens with an old identity.
func (m *SessionManager) persist(ctx context.Context, tokens domainauth.TokenBundle, seed *domainauth.Identity) error {
	if err := m.store.Remove(ctx, IdentityKey); err != nil {
		return fmt.Errorf("remove cached identity: %w", err)
	}
	if err := m.persistTokens(ctx, tokens); err != nil {
		return err
	}

	if seed == nil {
		return nil
	}
	rawID, err := json.Marshal(seed)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := m.store.Set(ctx, IdentityKey, rawID); err != nil {
		return fmt.Errorf("persist identity: %w", err)
	}
	return nil
}

func (m *SessionManager) persistTokens(ctx context.Context, tokens domainauth.TokenBundle) error {
	raw, err := json.Marshal(storedSession{APIToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, SessionKey, raw); err != nil {
		m.logger.ErrorContext(ctx, "failed to persist session", "error", err)
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

func (m *SessionManager) notify(snap domainauth.Snapshot) {
	m.subsMu.Lock()
	fns := make([]func(domainauth.Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subsMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (m *SessionManager) snapshotLocked() domainauth.Snapshot {
	snap := domainauth.Snapshot{
		State:          m.state,
		Authenticated:  m.tokens != nil,
		Admin:          m.admin,
		Ready:          m.adminCheckDone,
		Generation:     m.generation,
		TokenExpiresAt: m.expiresAt,
	}
	if m.identity != nil {
		id := *m.identity
		snap.Identity = &id
	}
	return snap
}

func decodeStoredSession(raw []byte) (domainauth.TokenBundle, bool) {
	var s storedSession
	if err := json.Unmarshal(raw, &s); err != nil || s.APIToken == "" {
		return domainauth.TokenBundle{}, false
	}
	return domainauth.TokenBundle{AccessToken: s.APIToken, RefreshToken: s.RefreshToken}, true
}
