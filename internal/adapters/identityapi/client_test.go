package identityapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/mmk-console/internal/domain/auth"
)

// newTestBroker serves the broker endpoints from a map of path -> handler.
func newTestBroker(t *testing.T, routes map[string]http.HandlerFunc) *Client {
	t.Helper()
	mux := http.NewServeMux()
	for path, h := range routes {
		mux.HandleFunc(path, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL + "/", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL is required")

	_, err = NewClient(Config{BaseURL: "not a url"})
	require.Error(t, err)
}

func TestClient_Login(t *testing.T) {
	client := newTestBroker(t, map[string]http.HandlerFunc{
		"POST /token": func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			if r.PostForm.Get("username") != "ana" || r.PostForm.Get("password") != "s3cret" {
				writeJSON(w, http.StatusUnauthorized, `{"detail":"Incorrect username or password"}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"access_token":"abc","refresh_token":"def","token_type":"bearer"}`)
		},
	})

	t.Run("valid credentials", func(t *testing.T) {
		tokens, err := client.Login(context.Background(), "ana", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, "abc", tokens.AccessToken)
		assert.Equal(t, "def", tokens.RefreshToken)
		assert.Equal(t, "bearer", tokens.TokenType)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		_, err := client.Login(context.Background(), "ana", "nope")
		assert.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
	})
}

func TestClient_SSOLoginURL(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client := newTestBroker(t, map[string]http.HandlerFunc{
			"GET /sso/login": func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, `{"auth_url":"https://idp.example.com/authorize?x=1","message":"redirect"}`)
			},
		})
		login, err := client.SSOLoginURL(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "https://idp.example.com/authorize?x=1", login.AuthURL)
		assert.Equal(t, "redirect", login.Message)
	})

	t.Run("server error is transport", func(t *testing.T) {
		client := newTestBroker(t, map[string]http.HandlerFunc{
			"GET /sso/login": func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusServiceUnavailable, `{"detail":"SSO no configurado"}`)
			},
		})
		_, err := client.SSOLoginURL(context.Background())
		assert.ErrorIs(t, err, domainauth.ErrTransport)
		assert.Equal(t, "SSO no configurado", domainauth.DetailOf(err))
	})

	t.Run("missing auth url is transport", func(t *testing.T) {
		client := newTestBroker(t, map[string]http.HandlerFunc{
			"GET /sso/login": func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, `{"message":"ok"}`)
			},
		})
		_, err := client.SSOLoginURL(context.Background())
		assert.ErrorIs(t, err, domainauth.ErrTransport)
	})
}

func TestClient_ExchangeSSOCode(t *testing.T) {
	client := newTestBroker(t, map[string]http.HandlerFunc{
		"GET /sso/callback": func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Query().Get("code") {
			case "xyz":
				writeJSON(w, http.StatusOK, `{"token":"jwt1"}`)
			case "full":
				writeJSON(w, http.StatusOK, `{
					"access_token":"jwt2","refresh_token":"r2",
					"user_info":{"id":9,"email":"ana@example.com","given_name":"Ana","family_name":"Ruiz"}
				}`)
			case "used":
				writeJSON(w, http.StatusBadRequest, `{"detail":"El código ya fue utilizado"}`)
			case "empty":
				writeJSON(w, http.StatusOK, `{"message":"ok","user_info":{"email":"x@example.com"}}`)
			default:
				writeJSON(w, http.StatusInternalServerError, `{}`)
			}
		},
	})
	ctx := context.Background()

	t.Run("alternate token field name", func(t *testing.T) {
		ex, err := client.ExchangeSSOCode(ctx, "xyz")
		require.NoError(t, err)
		assert.Equal(t, "jwt1", ex.Tokens.AccessToken)
		assert.Empty(t, ex.Tokens.RefreshToken)
		assert.Nil(t, ex.UserInfo)
	})

	t.Run("user info is normalized", func(t *testing.T) {
		ex, err := client.ExchangeSSOCode(ctx, "full")
		require.NoError(t, err)
		assert.Equal(t, domainauth.TokenBundle{AccessToken: "jwt2", RefreshToken: "r2"}, ex.Tokens)
		require.NotNil(t, ex.UserInfo)
		assert.Equal(t, domainauth.Identity{
			ID:        "9",
			Email:     "ana@example.com",
			FirstName: "Ana",
			LastName:  "Ruiz",
		}, *ex.UserInfo)
	})

	t.Run("rejected code carries detail", func(t *testing.T) {
		_, err := client.ExchangeSSOCode(ctx, "used")
		assert.ErrorIs(t, err, domainauth.ErrInvalidAuthorizationCode)
		assert.Equal(t, "El código ya fue utilizado", domainauth.DetailOf(err))
	})

	t.Run("missing token lists present fields", func(t *testing.T) {
		_, err := client.ExchangeSSOCode(ctx, "empty")
		require.ErrorIs(t, err, domainauth.ErrMissingTokenInResponse)
		var ae *domainauth.AuthError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, []string{"message", "user_info"}, ae.Fields)
		assert.Equal(t, "exchange sso code", ae.Op)
	})

	t.Run("server error is transport", func(t *testing.T) {
		_, err := client.ExchangeSSOCode(ctx, "boom")
		assert.ErrorIs(t, err, domainauth.ErrTransport)
	})

	t.Run("empty code is rejected locally", func(t *testing.T) {
		_, err := client.ExchangeSSOCode(ctx, " ")
		assert.ErrorIs(t, err, domainauth.ErrInvalidAuthorizationCode)
	})
}

func TestClient_LookupRole(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		admin bool
		id    string
	}{
		{name: "boolean true", body: `{"id":1,"email":"a@example.com","admin":true}`, admin: true, id: "1"},
		{name: "integer one", body: `{"id":2,"email":"a@example.com","admin":1}`, admin: true, id: "2"},
		{name: "integer zero", body: `{"id":3,"email":"a@example.com","admin":0}`, admin: false, id: "3"},
		{name: "string one", body: `{"id":"r-4","email":"a@example.com","admin":"1"}`, admin: true, id: "r-4"},
		{name: "null", body: `{"id":null,"email":"a@example.com","admin":null}`, admin: false, id: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestBroker(t, map[string]http.HandlerFunc{
				"GET /api-rol": func(w http.ResponseWriter, r *http.Request) {
					assert.Equal(t, "a@example.com", r.URL.Query().Get("email"))
					writeJSON(w, http.StatusOK, tt.body)
				},
			})
			hint, err := client.LookupRole(context.Background(), "a@example.com")
			require.NoError(t, err)
			assert.Equal(t, tt.admin, hint.Admin)
			assert.Equal(t, tt.id, hint.ID)
			assert.Equal(t, "a@example.com", hint.Email)
		})
	}

	t.Run("invalid admin value", func(t *testing.T) {
		client := newTestBroker(t, map[string]http.HandlerFunc{
			"GET /api-rol": func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, `{"admin":"maybe"}`)
			},
		})
		_, err := client.LookupRole(context.Background(), "a@example.com")
		assert.ErrorIs(t, err, domainauth.ErrTransport)
	})
}

func TestNormalizeExchange(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		access  string
		refresh string
	}{
		{name: "api_token wins", raw: map[string]any{"api_token": "a", "access_token": "b", "token": "c"}, access: "a"},
		{name: "access_token before token", raw: map[string]any{"access_token": "b", "token": "c"}, access: "b"},
		{name: "camel refresh", raw: map[string]any{"token": "c", "refreshToken": "r1", "refresh_token": "r2"}, access: "c", refresh: "r1"},
		{name: "snake refresh", raw: map[string]any{"token": "c", "refresh_token": "r2"}, access: "c", refresh: "r2"},
		{name: "empty api_token falls through", raw: map[string]any{"api_token": "", "token": "c"}, access: "c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, err := NormalizeExchange(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.access, ex.Tokens.AccessToken)
			assert.Equal(t, tt.refresh, ex.Tokens.RefreshToken)
		})
	}

	t.Run("non-object body", func(t *testing.T) {
		_, err := NormalizeExchange([]any{"token"})
		require.ErrorIs(t, err, domainauth.ErrMissingTokenInResponse)
		var ae *domainauth.AuthError
		require.ErrorAs(t, err, &ae)
		assert.Empty(t, ae.Fields)
	})
}
