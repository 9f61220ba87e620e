package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/mmk-console/internal/domain/auth"
	"golang.org/x/oauth2"
)

// fakeIdP is a minimal OIDC provider: discovery, JWKS, token and userinfo endpoints.
type fakeIdP struct {
	t      *testing.T
	srv    *httptest.Server
	key    *rsa.PrivateKey
	mu     sync.Mutex
	nonce  string
	claims map[string]any
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	idp := &fakeIdP{t: t, key: key}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", idp.discovery)
	mux.HandleFunc("GET /jwks", idp.jwks)
	mux.HandleFunc("POST /token", idp.token)
	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"sub": "u-1", "email": "from-userinfo@example.com"})
	})
	idp.srv = httptest.NewServer(mux)
	t.Cleanup(idp.srv.Close)
	return idp
}

func (f *fakeIdP) discovery(w http.ResponseWriter, _ *http.Request) {
	_ = json.NewEncoder(w).Encode(DiscoveryDocument{
		Issuer:                f.srv.URL,
		AuthorizationEndpoint: f.srv.URL + "/authorize",
		TokenEndpoint:         f.srv.URL + "/token",
		UserinfoEndpoint:      f.srv.URL + "/userinfo",
		JwksURI:               f.srv.URL + "/jwks",
	})
}

func (f *fakeIdP) jwks(w http.ResponseWriter, _ *http.Request) {
	pub := f.key.PublicKey
	_ = json.NewEncoder(w).Encode(map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": "k1",
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	})
}

func (f *fakeIdP) token(w http.ResponseWriter, r *http.Request) {
	require.NoError(f.t, r.ParseForm())
	w.Header().Set("Content-Type", "application/json")

	switch r.PostForm.Get("grant_type") {
	case "password":
		if r.PostForm.Get("password") != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid user credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"pw-access","refresh_token":"pw-refresh","token_type":"Bearer"}`))
		return
	case "authorization_code":
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch r.PostForm.Get("code") {
	case "expired":
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Code not valid"}`))
		return
	case "boom":
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  "sso-access",
		"refresh_token": "sso-refresh",
		"token_type":    "Bearer",
		"expires_in":    3600,
		"id_token":      f.idToken(),
	})
}

func (f *fakeIdP) idToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims := jwt.MapClaims{
		"iss":   f.srv.URL,
		"aud":   "test-client",
		"sub":   "u-1",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
		"nonce": f.nonce,
	}
	for k, v := range f.claims {
		claims[k] = v
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = "k1"
	signed, err := tok.SignedString(f.key)
	require.NoError(f.t, err)
	return signed
}

func (f *fakeIdP) setIDToken(nonce string, claims map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nonce = nonce
	f.claims = claims
}

func newTestProvider(t *testing.T, idp *fakeIdP, useIDToken bool) *Provider {
	t.Helper()
	p, err := NewProvider(context.Background(), ProviderConfig{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		RedirectURL:  "http://localhost:8080/auth/callback",
		Scope:        "openid profile email",
		DiscoveryURL: idp.srv.URL + "/.well-known/openid-configuration",
		UseIDToken:   useIDToken,
		HTTPClient:   idp.srv.Client(),
	})
	require.NoError(t, err)
	return p
}

// beginLogin issues an auth URL and returns the nonce it carries.
func beginLogin(t *testing.T, p *Provider) string {
	t.Helper()
	login, err := p.SSOLoginURL(context.Background())
	require.NoError(t, err)
	u, err := url.Parse(login.AuthURL)
	require.NoError(t, err)
	nonce := u.Query().Get("nonce")
	require.NotEmpty(t, nonce)
	return nonce
}

func TestNewProvider_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		config ProviderConfig
		errMsg string
	}{
		{
			name:   "missing client ID",
			config: ProviderConfig{RedirectURL: "http://localhost/callback", DiscoveryURL: "http://example.com"},
			errMsg: "client ID is required",
		},
		{
			name:   "missing redirect URL",
			config: ProviderConfig{ClientID: "client", DiscoveryURL: "http://example.com"},
			errMsg: "redirect URL is required",
		},
		{
			name:   "missing discovery URL",
			config: ProviderConfig{ClientID: "client", RedirectURL: "http://localhost/callback"},
			errMsg: "discovery URL is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(context.Background(), tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNewProvider_DiscoversEndpoints(t *testing.T) {
	idp := newFakeIdP(t)
	p := newTestProvider(t, idp, false)
	assert.Equal(t, idp.srv.URL+"/authorize", p.config.Endpoint.AuthURL)
	assert.Equal(t, idp.srv.URL+"/token", p.config.Endpoint.TokenURL)
}

func TestProvider_SSOLoginURL(t *testing.T) {
	idp := newFakeIdP(t)
	p := newTestProvider(t, idp, false)

	login, err := p.SSOLoginURL(context.Background())
	require.NoError(t, err)

	u, err := url.Parse(login.AuthURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "test-client", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Len(t, q.Get("state"), 32)
	assert.Len(t, q.Get("nonce"), 32)
	assert.Len(t, p.pending, 1)
}

func TestProvider_ExchangeSSOCode(t *testing.T) {
	idp := newFakeIdP(t)
	ctx := context.Background()

	t.Run("verified id token yields user info", func(t *testing.T) {
		p := newTestProvider(t, idp, false)
		idp.setIDToken(beginLogin(t, p), map[string]any{
			"email":              "ana@example.com",
			"preferred_username": "ana",
			"given_name":         "Ana",
		})

		ex, err := p.ExchangeSSOCode(ctx, "good")
		require.NoError(t, err)
		assert.Equal(t, "sso-access", ex.Tokens.AccessToken)
		assert.Equal(t, "sso-refresh", ex.Tokens.RefreshToken)
		require.NotNil(t, ex.UserInfo)
		assert.Equal(t, domainauth.Identity{ID: "u-1", Username: "ana", Email: "ana@example.com", FirstName: "Ana"}, *ex.UserInfo)
	})

	t.Run("id token as session token", func(t *testing.T) {
		p := newTestProvider(t, idp, true)
		idp.setIDToken(beginLogin(t, p), map[string]any{"email": "a@example.com", "rol": "admin", "id_api_rol": 1})

		ex, err := p.ExchangeSSOCode(ctx, "good")
		require.NoError(t, err)
		res := domainauth.DecodeClaims(ex.Tokens.AccessToken)
		require.True(t, res.OK())
		assert.True(t, res.Claims.GrantsAdmin())
	})

	t.Run("missing email is filled from userinfo", func(t *testing.T) {
		p := newTestProvider(t, idp, false)
		idp.setIDToken(beginLogin(t, p), nil)

		ex, err := p.ExchangeSSOCode(ctx, "good")
		require.NoError(t, err)
		require.NotNil(t, ex.UserInfo)
		assert.Equal(t, "from-userinfo@example.com", ex.UserInfo.Email)
	})

	t.Run("nonce is single use", func(t *testing.T) {
		p := newTestProvider(t, idp, false)
		idp.setIDToken(beginLogin(t, p), map[string]any{"email": "a@example.com"})

		_, err := p.ExchangeSSOCode(ctx, "good")
		require.NoError(t, err)
		_, err = p.ExchangeSSOCode(ctx, "good")
		assert.ErrorIs(t, err, domainauth.ErrInvalidAuthorizationCode)
	})

	t.Run("unknown nonce is rejected", func(t *testing.T) {
		p := newTestProvider(t, idp, false)
		idp.setIDToken("never-issued", nil)

		_, err := p.ExchangeSSOCode(ctx, "good")
		assert.ErrorIs(t, err, domainauth.ErrInvalidAuthorizationCode)
	})

	t.Run("expired nonce is rejected", func(t *testing.T) {
		p := newTestProvider(t, idp, false)
		nonce := beginLogin(t, p)
		p.now = func() time.Time { return time.Now().Add(time.Hour) }
		idp.setIDToken(nonce, nil)

		_, err := p.ExchangeSSOCode(ctx, "good")
		assert.ErrorIs(t, err, domainauth.ErrInvalidAuthorizationCode)
	})

	t.Run("rejected code carries provider description", func(t *testing.T) {
		p := newTestProvider(t, idp, false)
		_, err := p.ExchangeSSOCode(ctx, "expired")
		assert.ErrorIs(t, err, domainauth.ErrInvalidAuthorizationCode)
		assert.Equal(t, "Code not valid", domainauth.DetailOf(err))
	})

	t.Run("provider failure is transport", func(t *testing.T) {
		p := newTestProvider(t, idp, false)
		_, err := p.ExchangeSSOCode(ctx, "boom")
		assert.ErrorIs(t, err, domainauth.ErrTransport)
	})

	t.Run("empty code", func(t *testing.T) {
		p := newTestProvider(t, idp, false)
		_, err := p.ExchangeSSOCode(ctx, "")
		assert.ErrorIs(t, err, domainauth.ErrInvalidAuthorizationCode)
	})
}

func TestProvider_Login(t *testing.T) {
	idp := newFakeIdP(t)
	p := newTestProvider(t, idp, false)

	tokens, err := p.Login(context.Background(), "ana", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "pw-access", tokens.AccessToken)
	assert.Equal(t, "pw-refresh", tokens.RefreshToken)

	_, err = p.Login(context.Background(), "ana", "wrong")
	assert.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
	assert.Equal(t, "Invalid user credentials", domainauth.DetailOf(err))
}

func TestGenerateRandomString(t *testing.T) {
	str1, err := generateRandomString(16)
	require.NoError(t, err)
	assert.Len(t, str1, 16)

	str2, err := generateRandomString(32)
	require.NoError(t, err)
	assert.Len(t, str2, 32)

	str3, err := generateRandomString(16)
	require.NoError(t, err)
	assert.NotEqual(t, str1, str3)
}

func TestGetIDTokenFromToken(t *testing.T) {
	tok := (&oauth2.Token{}).WithExtra(map[string]any{"id_token": "abc.def.ghi"})
	idTok, err := getIDTokenFromToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", idTok)

	_, err = getIDTokenFromToken((&oauth2.Token{}).WithExtra(map[string]any{"not_id": "x"}))
	assert.ErrorContains(t, err, "missing id_token")

	_, err = getIDTokenFromToken(nil)
	assert.ErrorContains(t, err, "nil token")
}

func Test_mapIDTokenClaims(t *testing.T) {
	t.Run("standard shape", func(t *testing.T) {
		f := mapIDTokenClaims(idTokenClaims{
			Sub:               "sub-1",
			PreferredUsername: "ana",
			GivenName:         "Ana",
			FamilyName:        "Ruiz",
			Email:             "ana@example.com",
		})
		assert.Equal(t, idFields{userID: "sub-1", username: "ana", email: "ana@example.com", givenName: "Ana", familyName: "Ruiz"}, f)
	})

	t.Run("AD shape", func(t *testing.T) {
		f := mapIDTokenClaims(idTokenClaims{
			Sub:            "sub-123",
			SamAccountName: "sammy",
			FirstName:      "First",
			LastName:       "Last",
			Mail:           "mail@example.com",
		})
		assert.Equal(t, "sub-123", f.userID)
		assert.Equal(t, "sammy", f.username)
		assert.Equal(t, "mail@example.com", f.email)
		assert.Equal(t, "First", f.givenName)
		assert.Equal(t, "Last", f.familyName)
	})
}

func Test_fillFromUserInfoClaims(t *testing.T) {
	ui := UserInfo{Subject: "sub-abc", SamAccountName: "sammy", FirstName: "First", LastName: "Last", Mail: "mail@example.com"}

	var f idFields
	fillFromUserInfoClaims(&f, ui)
	assert.Equal(t, idFields{userID: "sub-abc", username: "sammy", email: "mail@example.com", givenName: "First", familyName: "Last"}, f)

	keep := idFields{userID: "keep", username: "keep", email: "keep@example.com", givenName: "Keep", familyName: "Keep"}
	f2 := keep
	fillFromUserInfoClaims(&f2, ui)
	assert.Equal(t, keep, f2)
}
