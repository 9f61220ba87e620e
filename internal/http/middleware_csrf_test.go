package httpx

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csrfHandler(t *testing.T) (http.Handler, *string) {
	t.Helper()
	var seen string
	h := CSRFProtection(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CSRFTokenFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	return h, &seen
}

func csrfCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == DefaultCSRFCookieName {
			return c
		}
	}
	return nil
}

func TestCSRFProtection_IssuesToken(t *testing.T) {
	h, seen := csrfHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	c := csrfCookie(t, rec)
	require.NotNil(t, c)
	assert.NotEmpty(t, c.Value)
	assert.Equal(t, c.Value, *seen)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.False(t, c.Secure)
}

func TestCSRFProtection_KeepsExistingToken(t *testing.T) {
	h, seen := csrfHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: "existing"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Nil(t, csrfCookie(t, rec))
	assert.Equal(t, "existing", *seen)
}

func TestCSRFProtection_SecureBehindTLSProxy(t *testing.T) {
	h, _ := csrfHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "http, HTTPS")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	c := csrfCookie(t, rec)
	require.NotNil(t, c)
	assert.True(t, c.Secure)
}

func TestCSRFProtection_Validation(t *testing.T) {
	post := func(cookie, header, field, accept string) *httptest.ResponseRecorder {
		h, _ := csrfHandler(t)
		form := url.Values{"username": {"ana"}}
		if field != "" {
			form.Set(DefaultCSRFCookieName, field)
		}
		req := httptest.NewRequest(http.MethodPost, "/auth/logout", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: cookie})
		}
		if header != "" {
			req.Header.Set(DefaultCSRFHeaderName, header)
		}
		if accept != "" {
			req.Header.Set("Accept", accept)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	tests := []struct {
		name                  string
		cookie, header, field string
		want                  int
	}{
		{name: "header matches", cookie: "tok", header: "tok", want: http.StatusNoContent},
		{name: "form field matches", cookie: "tok", field: "tok", want: http.StatusNoContent},
		{name: "no token submitted", cookie: "tok", want: http.StatusForbidden},
		{name: "no cookie", header: "tok", want: http.StatusForbidden},
		{name: "mismatch", cookie: "tok", header: "other", want: http.StatusForbidden},
		{name: "header wins over field", cookie: "tok", header: "other", field: "tok", want: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, post(tt.cookie, tt.header, tt.field, "").Code)
		})
	}

	t.Run("json callers get a json error", func(t *testing.T) {
		rec := post("tok", "", "", "application/json")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "csrf_token_invalid")
	})
}

func TestRouter_LoginFormCarriesCSRFToken(t *testing.T) {
	c := NewTestConsole(t, TestConsoleOptions{})
	rec := c.Get(PathLogin)
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := csrfCookie(t, rec)
	require.NotNil(t, cookie)
	assert.Contains(t, rec.Body.String(), `name="csrf_token" value="`+cookie.Value+`"`)
}

func TestRouter_LoginWithoutCSRFTokenRejected(t *testing.T) {
	c := NewTestConsole(t, TestConsoleOptions{})
	req := httptest.NewRequest(http.MethodPost, PathLogin, strings.NewReader(credentials("ana", "s3cret").Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: "tok"})

	rec := c.Do(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, c.Sessions.IsAuthenticated())
}
