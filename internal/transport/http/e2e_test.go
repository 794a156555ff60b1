package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"identity/internal/mail/mailtest"
	"identity/internal/service/impl"
	"identity/internal/store/storetest"
	transport "identity/internal/transport/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func (c *client) call(method, path, body string) (int, map[string]string) {
	c.t.Helper()
	req, err := http.NewRequest(method, c.base+path, strings.NewReader(body))
	require.NoError(c.t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer res.Body.Close()

	out := map[string]string{}
	if res.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(res.Body).Decode(&out)
	}
	return res.StatusCode, out
}

func (c *client) cookie(name string) string {
	u, _ := url.Parse(c.base)
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

func newServer(t *testing.T) (*client, *mailtest.Recorder) {
	t.Helper()
	st, _ := storetest.New(t)
	rec := &mailtest.Recorder{}

	tokens := impl.NewTokenServiceHS256(impl.TokenConfig{
		Issuer:        "identity",
		Audience:      "identity-clients",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		AccessSecret:  []byte("e2e-access"),
		RefreshSecret: []byte("e2e-refresh"),
	})
	passwords := impl.NewPasswordServiceArgon2id(impl.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16})

	var handler http.Handler
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	auth := impl.NewAuthServiceImpl(st.Users(), passwords, tokens, rec, impl.AuthConfig{
		VerifyEmailTTL:   24 * time.Hour,
		ResetPasswordTTL: 10 * time.Minute,
		PublicBaseURL:    srv.URL,
	})
	handler = transport.NewRouter(auth, transport.Options{RateLimitPerMinute: 150})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, base: srv.URL, http: &http.Client{Jar: jar}}, rec
}

func TestEndToEndSessionLifecycle(t *testing.T) {
	c, mail := newServer(t)

	status, body := c.call(http.MethodPost, "/api/auth/register", `{
		"firstName":"John","lastName":"Doe","email":"john@example.com","username":"john",
		"password":"password123","repeatPassword":"password123","dateOfBirth":"1990-01-31"}`)
	require.Equal(t, http.StatusCreated, status, body)

	status, _ = c.call(http.MethodPost, "/api/auth/register", `{
		"firstName":"John","lastName":"Doe","email":"john@example.com","username":"john",
		"password":"password123","repeatPassword":"password123","dateOfBirth":"1990-01-31"}`)
	require.Equal(t, http.StatusConflict, status)

	verifyToken := mail.Token()
	require.NotEmpty(t, verifyToken)
	status, body = c.call(http.MethodGet, "/api/auth/verify-email/"+verifyToken, "")
	require.Equal(t, http.StatusOK, status, body)
	status, _ = c.call(http.MethodGet, "/api/auth/verify-email/"+verifyToken, "")
	require.Equal(t, http.StatusBadRequest, status, "replayed verification")

	status, body = c.call(http.MethodPost, "/api/auth/login", `{"username":"john","password":"password123"}`)
	require.Equal(t, http.StatusOK, status, body)
	refresh := c.cookie("refreshToken")
	require.NotEmpty(t, refresh)
	access := c.cookie("accessToken")
	require.NotEmpty(t, access)

	status, body = c.call(http.MethodGet, "/api/auth/me", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "john", body["username"])

	status, _ = c.call(http.MethodGet, "/api/auth/refresh", "")
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, refresh, c.cookie("refreshToken"), "refresh token is not rotated")
	assert.NotEqual(t, access, c.cookie("accessToken"))

	status, _ = c.call(http.MethodPost, "/api/auth/logout", "")
	require.Equal(t, http.StatusNoContent, status)
	assert.Empty(t, c.cookie("refreshToken"))
	assert.Empty(t, c.cookie("accessToken"))

	status, body = c.call(http.MethodGet, "/api/auth/refresh", "")
	require.Equal(t, http.StatusUnauthorized, status)
	assert.NotEmpty(t, body["Error"])

	status, _ = c.call(http.MethodPost, "/api/auth/logout", "")
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestEndToEndPasswordReset(t *testing.T) {
	c, mail := newServer(t)

	status, _ := c.call(http.MethodPost, "/api/auth/register", `{
		"firstName":"Jane","lastName":"Roe","email":"jane@example.com","username":"jane",
		"password":"password123","repeatPassword":"password123","dateOfBirth":"1-2-1995"}`)
	require.Equal(t, http.StatusCreated, status)

	status, _ = c.call(http.MethodPost, "/api/auth/forget-password", `{"email":"nobody@example.com"}`)
	require.Equal(t, http.StatusNotFound, status)
	status, _ = c.call(http.MethodPost, "/api/auth/forget-password", `{}`)
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = c.call(http.MethodPost, "/api/auth/forget-password", `{"email":"jane@example.com"}`)
	require.Equal(t, http.StatusOK, status)
	msg, _ := mail.Last()
	require.Equal(t, "Password Reset", msg.Subject)
	token := mail.Token()

	status, _ = c.call(http.MethodPost, "/api/auth/reset-password/"+token, `{"newPassword":"password123","repeatPassword":"password123"}`)
	require.Equal(t, http.StatusBadRequest, status, "reused password")

	status, body := c.call(http.MethodPost, "/api/auth/reset-password/"+token, `{"newPassword":"brandnew99","repeatPassword":"brandnew99"}`)
	require.Equal(t, http.StatusCreated, status, body)
	status, _ = c.call(http.MethodPost, "/api/auth/reset-password/"+token, `{"newPassword":"brandnew100","repeatPassword":"brandnew100"}`)
	require.Equal(t, http.StatusBadRequest, status, "token is single use")

	status, _ = c.call(http.MethodPost, "/api/auth/login", `{"username":"jane","password":"password123"}`)
	require.Equal(t, http.StatusBadRequest, status)
	status, _ = c.call(http.MethodPost, "/api/auth/login", `{"username":"jane","password":"brandnew99"}`)
	require.Equal(t, http.StatusOK, status)
	status, _ = c.call(http.MethodPost, "/api/auth/login", `{"username":"ghost","password":"brandnew99"}`)
	require.Equal(t, http.StatusNotFound, status)
}

