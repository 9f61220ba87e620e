package auth

import (
	"errors"
	"fmt"
	"strings"
)

// Reason classifies a credential exchange failure.
type Reason string

const (
	ReasonInvalidCredentials Reason = "invalid_credentials"
	ReasonInvalidCode        Reason = "invalid_code"
	ReasonTransport          Reason = "transport"
	ReasonMissingToken       Reason = "missing_token"
)

// AuthError is returned by credential exchangers.
// Detail carries the server-provided message when one was present.
// Fields lists the response fields that were present when no usable token was found.
type AuthError struct {
	Reason Reason
	Op     string
	Detail string
	Fields []string
	Err    error
}

func (e *AuthError) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Reason))
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if len(e.Fields) > 0 {
		fmt.Fprintf(&b, " (fields: %s)", strings.Join(e.Fields, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is matches any *AuthError with the same Reason, so sentinels work through wrapping.
func (e *AuthError) Is(target error) bool {
	var t *AuthError
	if !errors.As(target, &t) {
		return false
	}
	return t.Reason == e.Reason
}

// Sentinels for errors.Is.
var (
	ErrInvalidCredentials       = &AuthError{Reason: ReasonInvalidCredentials}
	ErrInvalidAuthorizationCode = &AuthError{Reason: ReasonInvalidCode}
	ErrTransport                = &AuthError{Reason: ReasonTransport}
	ErrMissingTokenInResponse   = &AuthError{Reason: ReasonMissingToken}
	ErrNotFound                 = errors.New("stored value not found")
	ErrSessionNotReady          = errors.New("session not ready")
)

// DetailOf returns the server-provided detail carried by err, if any.
func DetailOf(err error) string {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Detail
	}
	return ""
}
