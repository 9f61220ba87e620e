package config

import "time"

const (
	defaultDeriveTimeout = 5 * time.Second
	defaultGateWait      = 3 * time.Second
	maxGateWait          = 30 * time.Second
)

// SessionConfig tunes the session state machine and the gate in front of protected pages.
type SessionConfig struct {
	// DeriveTimeout bounds one role derivation pass, including the role-hint lookup.
	DeriveTimeout time.Duration `env:"SESSION_DERIVE_TIMEOUT" envDefault:"5s"`

	// GateWait is how long a protected request blocks on readiness before the splash page is served.
	GateWait time.Duration `env:"SESSION_GATE_WAIT" envDefault:"3s"`
}

// Sanitize applies guardrails to session configuration values.
func (s *SessionConfig) Sanitize() {
	if s.DeriveTimeout <= 0 {
		s.DeriveTimeout = defaultDeriveTimeout
	}
	if s.GateWait < 0 {
		s.GateWait = defaultGateWait
	}
	if s.GateWait > maxGateWait {
		s.GateWait = maxGateWait
	}
}
