package impl

import (
	"testing"
	"time"

	"identity/internal/domain"
	"identity/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokens(now time.Time) *TokenServiceImpl {
	ts := NewTokenServiceHS256(testTokenConfig)
	ts.now = func() time.Time { return now }
	return ts
}

func TestIssueSignsBothTokensWithDistinctSecrets(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ts := newTestTokens(now)
	u := &domain.User{ID: uuid.New(), Username: "alice", Role: domain.RoleModerator}

	pair, err := ts.Issue(u)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, pair.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, pair.RefreshTTL)

	claims, err := ts.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, service.Claims{UserID: u.ID.String(), Username: "alice", Role: domain.RoleModerator}, *claims)

	claims, err = ts.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), claims.UserID)

	// a token signed with one secret never verifies as the other kind
	_, err = ts.VerifyAccess(pair.RefreshToken)
	require.ErrorIs(t, err, domain.ErrTokenInvalid)
	_, err = ts.VerifyRefresh(pair.AccessToken)
	require.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestVerifyRejectsExpiredTokens(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	pair, err := newTestTokens(now).Issue(&domain.User{ID: uuid.New(), Username: "bob", Role: domain.RoleUser})
	require.NoError(t, err)

	later := newTestTokens(now.Add(16 * time.Minute))
	_, err = later.VerifyAccess(pair.AccessToken)
	require.ErrorIs(t, err, domain.ErrTokenInvalid)
	_, err = later.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)

	_, err = newTestTokens(now.Add(8 * 24 * time.Hour)).VerifyRefresh(pair.RefreshToken)
	require.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestVerifyRejectsForeignIssuerAudienceAndAlgorithm(t *testing.T) {
	now := time.Now()
	ts := newTestTokens(now)
	sign := func(method jwt.SigningMethod, key any, iss, aud string) string {
		tok := jwt.NewWithClaims(method, UserClaims{
			Username: "mallory",
			Role:     "admin",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    iss,
				Subject:   uuid.NewString(),
				Audience:  jwt.ClaimStrings{aud},
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			},
		})
		s, err := tok.SignedString(key)
		require.NoError(t, err)
		return s
	}

	cases := map[string]string{
		"issuer":   sign(jwt.SigningMethodHS256, testTokenConfig.AccessSecret, "someone-else", testTokenConfig.Audience),
		"audience": sign(jwt.SigningMethodHS256, testTokenConfig.AccessSecret, testTokenConfig.Issuer, "other"),
		"hs512":    sign(jwt.SigningMethodHS512, testTokenConfig.AccessSecret, testTokenConfig.Issuer, testTokenConfig.Audience),
		"none":     sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, testTokenConfig.Issuer, testTokenConfig.Audience),
		"garbage":  "not.a.jwt",
		"empty":    "",
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ts.VerifyAccess(tok)
			require.ErrorIs(t, err, domain.ErrTokenInvalid)
		})
	}

	ok := sign(jwt.SigningMethodHS256, testTokenConfig.AccessSecret, testTokenConfig.Issuer, testTokenConfig.Audience)
	_, err := ts.VerifyAccess(ok)
	require.NoError(t, err)
}

func TestSignAccessFromClaims(t *testing.T) {
	ts := newTestTokens(time.Now())
	c := service.Claims{UserID: uuid.NewString(), Username: "carol", Role: domain.RoleUser}

	tok, err := ts.SignAccess(c)
	require.NoError(t, err)
	assert.Equal(t, testTokenConfig.AccessTTL, tok.TTL)

	got, err := ts.VerifyAccess(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, c, *got)
}
