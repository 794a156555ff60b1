package impl

import (
	"fmt"
	"time"

	"identity/internal/domain"
	"identity/internal/dto"
	"identity/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ====== Config ======

type TokenConfig struct {
	Issuer        string        // e.g. "identity"
	Audience      string        // e.g. "identity-clients"
	AccessTTL     time.Duration // e.g. 15 * time.Minute
	RefreshTTL    time.Duration // e.g. 7 * 24h
	AccessSecret  []byte        // HS256 secret for access tokens
	RefreshSecret []byte        // HS256 secret for refresh tokens, never the access one
}

// ====== Claims ======

type UserClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// ====== Service ======

type TokenServiceImpl struct {
	cfg TokenConfig
	now func() time.Time
}

func NewTokenServiceHS256(cfg TokenConfig) *TokenServiceImpl {
	return &TokenServiceImpl{cfg: cfg, now: time.Now}
}

// Issue signs an access and a refresh token for the user.
func (t *TokenServiceImpl) Issue(user *domain.User) (*dto.TokenPair, error) {
	c := service.Claims{UserID: user.ID.String(), Username: user.Username, Role: user.Role}
	now := t.now().UTC()

	access, err := t.sign(c, t.cfg.AccessSecret, t.cfg.AccessTTL, now)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := t.sign(c, t.cfg.RefreshSecret, t.cfg.RefreshTTL, now)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &dto.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessTTL:    t.cfg.AccessTTL,
		RefreshTTL:   t.cfg.RefreshTTL,
	}, nil
}

func (t *TokenServiceImpl) SignAccess(c service.Claims) (*dto.AccessToken, error) {
	access, err := t.sign(c, t.cfg.AccessSecret, t.cfg.AccessTTL, t.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &dto.AccessToken{AccessToken: access, TTL: t.cfg.AccessTTL}, nil
}

func (t *TokenServiceImpl) VerifyAccess(token string) (*service.Claims, error) {
	return t.verify(token, t.cfg.AccessSecret)
}

func (t *TokenServiceImpl) VerifyRefresh(token string) (*service.Claims, error) {
	return t.verify(token, t.cfg.RefreshSecret)
}

// ====== Helpers ======

func (t *TokenServiceImpl) sign(c service.Claims, secret []byte, ttl time.Duration, now time.Time) (string, error) {
	claims := UserClaims{
		Username: c.Username,
		Role:     string(c.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			Subject:   c.UserID,
			Audience:  jwt.ClaimStrings{t.cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// verify collapses every parse, signature, expiry, issuer and audience
// failure into domain.ErrTokenInvalid.
func (t *TokenServiceImpl) verify(tokenStr string, secret []byte) (*service.Claims, error) {
	if tokenStr == "" {
		return nil, domain.ErrTokenInvalid
	}
	claims := &UserClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	tok, err := parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	if claims.Issuer != t.cfg.Issuer {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, ErrBadIssuer)
	}
	if !containsAudience(claims.Audience, t.cfg.Audience) {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, ErrBadAudience)
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, fmt.Errorf("%w: bad subject", domain.ErrTokenInvalid)
	}
	role := domain.Role(claims.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrTokenInvalid, claims.Role)
	}
	return &service.Claims{
		UserID:   claims.Subject,
		Username: claims.Username,
		Role:     role,
	}, nil
}

// containsAudience checks if the expected audience is present in the claim audience list.
func containsAudience(aud jwt.ClaimStrings, expected string) bool {
	for _, a := range aud {
		if a == expected {
			return true
		}
	}
	return false
}
