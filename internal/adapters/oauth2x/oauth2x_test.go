package oauth2x

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/mmk-console/internal/domain/auth"
)

func TestPasswordGrant_Exchange_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		assert.Equal(t, "ana", r.PostForm.Get("username"))
		assert.Equal(t, "s3cret", r.PostForm.Get("password"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc","refresh_token":"def","token_type":"bearer"}`))
	}))
	defer srv.Close()

	grant := PasswordGrant{TokenURL: srv.URL + "/token", HTTPClient: srv.Client()}
	tokens, err := grant.Exchange(context.Background(), "ana", "s3cret")

	require.NoError(t, err)
	assert.Equal(t, domainauth.TokenBundle{AccessToken: "abc", RefreshToken: "def", TokenType: "bearer"}, tokens)
}

func TestPasswordGrant_Exchange_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Incorrect username or password"}`))
	}))
	defer srv.Close()

	grant := PasswordGrant{TokenURL: srv.URL + "/token", HTTPClient: srv.Client()}
	_, err := grant.Exchange(context.Background(), "ana", "wrong")

	require.Error(t, err)
	assert.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
	assert.Equal(t, "Incorrect username or password", domainauth.DetailOf(err))
}

func TestPasswordGrant_Exchange_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	grant := PasswordGrant{TokenURL: srv.URL + "/token", HTTPClient: srv.Client()}
	_, err := grant.Exchange(context.Background(), "ana", "s3cret")

	assert.ErrorIs(t, err, domainauth.ErrTransport)
}

func TestPasswordGrant_Exchange_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	grant := PasswordGrant{TokenURL: url + "/token"}
	_, err := grant.Exchange(context.Background(), "ana", "s3cret")

	assert.ErrorIs(t, err, domainauth.ErrTransport)
}

func TestDetailFromBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "detail", body: `{"detail":"Código inválido"}`, want: "Código inválido"},
		{name: "message", body: `{"message":" expired "}`, want: "expired"},
		{name: "error description", body: `{"error":"invalid_grant","error_description":"used"}`, want: "used"},
		{name: "detail list falls through", body: `{"detail":[{"msg":"x"}],"message":"bad"}`, want: "bad"},
		{name: "not json", body: `<html>`, want: ""},
		{name: "empty", body: ``, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetailFromBody([]byte(tt.body)))
		})
	}
}
