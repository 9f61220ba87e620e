package auth

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
)

// AdminRole is the literal "rol" claim value for elevated privilege.
const AdminRole = "admin"

// Claims is the subset of token claims the session cares about.
// RoleID is nil when "id_api_rol" is absent or JSON null.
type Claims struct {
	Subject           string
	Email             string
	Username          string
	PreferredUsername string
	GivenName         string
	FamilyName        string
	Role              string
	RoleID            any
	ExpiresAt         time.Time
	Raw               jwt.MapClaims
}

// GrantsAdmin reports whether the claims carry an admin grant.
// A role name alone is insufficient; the role identifier must be non-null.
func (c Claims) GrantsAdmin() bool {
	return c.Role == AdminRole && c.RoleID != nil
}

// Identity builds the display identity from the claims.
func (c Claims) Identity() Identity {
	id := c.Subject
	if id == "" {
		id = stringClaim(c.Raw, "id")
	}
	username := c.Username
	if username == "" {
		username = c.PreferredUsername
	}
	return Identity{
		ID:        id,
		Username:  username,
		Email:     c.Email,
		FirstName: c.GivenName,
		LastName:  c.FamilyName,
	}
}

// DecodeStage names the decoding step that failed.
type DecodeStage string

const (
	StageStructure DecodeStage = "structure"
	StageBase64    DecodeStage = "base64"
	StageUTF8      DecodeStage = "utf8"
	StageJSON      DecodeStage = "json"
)

// DecodeFailure marks a token whose payload could not be decoded.
// It is a value, not an error: callers recover by treating the role as unknown.
type DecodeFailure struct {
	Stage DecodeStage
	Cause error
}

func (f DecodeFailure) String() string {
	if f.Cause == nil {
		return string(f.Stage)
	}
	return string(f.Stage) + ": " + f.Cause.Error()
}

// DecodeResult is either decoded claims or a failure marker.
type DecodeResult struct {
	Claims  Claims
	Failure *DecodeFailure
}

// OK reports whether decoding succeeded.
func (r DecodeResult) OK() bool { return r.Failure == nil }

var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// DecodeClaims decodes the payload segment of a JWT-shaped token without verifying it.
// It never panics and never returns an error; opaque tokens yield a failure marker.
func DecodeClaims(token string) DecodeResult {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[1] == "" {
		return failed(StageStructure, errors.New("token is not three dot-separated segments"))
	}

	payload, err := segmentParser.DecodeSegment(parts[1])
	if err != nil {
		return failed(StageBase64, err)
	}
	if !utf8.Valid(payload) {
		return failed(StageUTF8, errors.New("payload is not valid UTF-8"))
	}

	var raw jwt.MapClaims
	if err := json.Unmarshal(payload, &raw); err != nil {
		return failed(StageJSON, err)
	}
	if raw == nil {
		return failed(StageJSON, errors.New("payload is not an object"))
	}

	return DecodeResult{Claims: claimsFromMap(raw)}
}

func failed(stage DecodeStage, cause error) DecodeResult {
	return DecodeResult{Failure: &DecodeFailure{Stage: stage, Cause: cause}}
}

func claimsFromMap(raw jwt.MapClaims) Claims {
	c := Claims{
		Subject:           stringClaim(raw, "sub"),
		Email:             stringClaim(raw, "email"),
		Username:          stringClaim(raw, "username"),
		PreferredUsername: stringClaim(raw, "preferred_username"),
		GivenName:         firstNonEmpty(stringClaim(raw, "given_name"), stringClaim(raw, "first_name")),
		FamilyName:        firstNonEmpty(stringClaim(raw, "family_name"), stringClaim(raw, "last_name")),
		Role:              stringClaim(raw, "rol"),
		RoleID:            raw["id_api_rol"],
		Raw:               raw,
	}
	// A malformed exp is ignored; expiry is informational here.
	if exp, err := raw.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c
}

// stringClaim returns the claim as a string; numeric ids are rendered without exponent.
func stringClaim(raw jwt.MapClaims, key string) string {
	switch v := raw[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
