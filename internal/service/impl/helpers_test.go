package impl

import (
	"context"
	"sync"
	"testing"
	"time"

	"identity/internal/dto"
	"identity/internal/mail/mailtest"
	"identity/internal/store"
	"identity/internal/store/storetest"

	"github.com/stretchr/testify/require"
)

var testArgon2Params = Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

var testTokenConfig = TokenConfig{
	Issuer:        "identity",
	Audience:      "identity-clients",
	AccessTTL:     15 * time.Minute,
	RefreshTTL:    7 * 24 * time.Hour,
	AccessSecret:  []byte("access-secret-for-tests"),
	RefreshSecret: []byte("refresh-secret-for-tests"),
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	svc    *AuthServiceImpl
	tokens *TokenServiceImpl
	users  *store.UserStore
	mail   *mailtest.Recorder
	clock  *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, _ := storetest.New(t)
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

	tokens := NewTokenServiceHS256(testTokenConfig)
	tokens.now = clock.Now

	rec := &mailtest.Recorder{}
	svc := NewAuthServiceImpl(st.Users(), NewPasswordServiceArgon2id(testArgon2Params), tokens, rec, AuthConfig{
		VerifyEmailTTL:   24 * time.Hour,
		ResetPasswordTTL: 10 * time.Minute,
		PublicBaseURL:    "https://id.example.com",
	})
	svc.now = clock.Now

	return &fixture{svc: svc, tokens: tokens, users: st.Users(), mail: rec, clock: clock}
}

func registerRequest(username string) dto.RegisterRequest {
	return dto.RegisterRequest{
		FirstName:      "John",
		LastName:       "Doe",
		Email:          username + "@example.com",
		Username:       username,
		Password:       "password123",
		RepeatPassword: "password123",
		DateOfBirth:    "1990-05-17",
	}
}

// register creates a user and returns the plaintext verification token from the mail.
func (f *fixture) register(t *testing.T, username string) string {
	t.Helper()
	_, err := f.svc.Register(context.Background(), registerRequest(username))
	require.NoError(t, err)
	token := f.mail.Token()
	require.NotEmpty(t, token)
	return token
}

func (f *fixture) login(t *testing.T, username, password string) *dto.TokenPair {
	t.Helper()
	pair, err := f.svc.Login(context.Background(), dto.LoginRequest{Username: username, Password: password})
	require.NoError(t, err)
	return pair
}
