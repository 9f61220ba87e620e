package identityapi

import (
	"sort"
	"strconv"

	jmespath "github.com/jmespath-community/go-jmespath"
	domainauth "github.com/target/mmk-console/internal/domain/auth"
)

// Recognized field names, in priority order. The broker does not fix its naming.
const (
	accessTokenExpr  = "api_token || access_token || token"
	refreshTokenExpr = "refreshToken || refresh_token"
	tokenTypeExpr    = "token_type || tokenType"
	userInfoExpr     = "(user_info || userInfo) | {" +
		"id: id || sub, " +
		"username: username || preferred_username, " +
		"email: email, " +
		"first_name: first_name || firstName || given_name, " +
		"last_name: last_name || lastName || family_name}"
)

// NormalizeExchange turns a decoded SSO exchange response into the canonical type.
// A response without a usable access token yields ErrMissingTokenInResponse listing the fields present.
func NormalizeExchange(raw any) (domainauth.SSOExchange, error) {
	access := searchString(accessTokenExpr, raw)
	if access == "" {
		return domainauth.SSOExchange{}, &domainauth.AuthError{
			Reason: domainauth.ReasonMissingToken,
			Fields: presentFields(raw),
		}
	}

	out := domainauth.SSOExchange{
		Tokens: domainauth.TokenBundle{
			AccessToken:  access,
			RefreshToken: searchString(refreshTokenExpr, raw),
			TokenType:    searchString(tokenTypeExpr, raw),
		},
	}

	if info, ok := search(userInfoExpr, raw).(map[string]any); ok {
		id := domainauth.Identity{
			ID:        stringOf(info["id"]),
			Username:  stringOf(info["username"]),
			Email:     stringOf(info["email"]),
			FirstName: stringOf(info["first_name"]),
			LastName:  stringOf(info["last_name"]),
		}
		if id != (domainauth.Identity{}) {
			out.UserInfo = &id
		}
	}

	return out, nil
}

func search(expr string, raw any) any {
	v, err := jmespath.Search(expr, raw)
	if err != nil {
		return nil
	}
	return v
}

func searchString(expr string, raw any) string {
	s, _ := search(expr, raw).(string)
	return s
}

func stringOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func presentFields(raw any) []string {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	fields := make([]string, 0, len(obj))
	for k := range obj {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}
