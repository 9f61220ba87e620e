package testutil

import (
	"encoding/base64"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

// testSigningKey signs fixture tokens. Nothing in the session core verifies signatures.
var testSigningKey = []byte("mmk-console-test-key")

// MintToken returns an HS256 JWT carrying the given claims.
func MintToken(t testing.TB, claims map[string]any) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims))
	signed, err := tok.SignedString(testSigningKey)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return signed
}

// AdminToken returns a token whose claims grant admin.
func AdminToken(t testing.TB, email string) string {
	t.Helper()
	return MintToken(t, map[string]any{
		"sub":        "user-1",
		"email":      email,
		"username":   "admin.user",
		"rol":        "admin",
		"id_api_rol": 7,
	})
}

// UserToken returns a token whose claims do not grant admin.
func UserToken(t testing.TB, email string) string {
	t.Helper()
	return MintToken(t, map[string]any{
		"sub":      "user-2",
		"email":    email,
		"username": "plain.user",
		"rol":      "user",
	})
}

// RawPayloadToken wraps an arbitrary payload in a JWT-shaped string without encoding it as JSON.
func RawPayloadToken(payload []byte) string {
	return "eyJhbGciOiJIUzI1NiJ9." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}
