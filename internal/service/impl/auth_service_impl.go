package impl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"identity/internal/domain"
	"identity/internal/dto"
	"identity/internal/observability/metrics"
	"identity/internal/observability/middleware"
	"identity/internal/service"
	"identity/internal/store"

	"github.com/google/uuid"
)

const minPasswordLength = 8

var dateOfBirthLayouts = []string{"2006-01-02", "1-2-2006", "01-02-2006", time.RFC3339}

type AuthConfig struct {
	VerifyEmailTTL       time.Duration // e.g. 24h
	ResetPasswordTTL     time.Duration // e.g. 10m
	PublicBaseURL        string        // links in outgoing mail start here
	RequireVerifiedEmail bool
}

var (
	_ service.AuthService     = (*AuthServiceImpl)(nil)
	_ service.TokenService    = (*TokenServiceImpl)(nil)
	_ service.PasswordService = (*PasswordServiceImpl)(nil)
	_ service.UserRepository  = (*store.UserStore)(nil)
)

type AuthServiceImpl struct {
	Users     service.UserRepository
	Passwords service.PasswordService
	Tokens    service.TokenService
	Mailer    service.Mailer

	cfg AuthConfig
	now func() time.Time
}

func NewAuthServiceImpl(
	users service.UserRepository,
	passwords service.PasswordService,
	tokens service.TokenService,
	mailer service.Mailer,
	cfg AuthConfig,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		Users:     users,
		Passwords: passwords,
		Tokens:    tokens,
		Mailer:    mailer,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (a *AuthServiceImpl) Register(ctx context.Context, r dto.RegisterRequest) (_ *dto.RegisterResponse, err error) {
	defer func() { metrics.AuthRegistrationsTotal.WithLabelValues(metrics.Result(err)).Inc() }()

	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.TrimSpace(r.Email)
	r.Username = strings.TrimSpace(r.Username)
	r.DateOfBirth = strings.TrimSpace(r.DateOfBirth)

	// 1) validation, in the order clients rely on
	if r.FirstName == "" || r.LastName == "" || r.Email == "" || r.Username == "" ||
		r.Password == "" || r.RepeatPassword == "" || r.DateOfBirth == "" {
		return nil, domain.ErrValidation
	}
	if len(r.Password) < minPasswordLength {
		return nil, domain.ErrWeakPassword
	}
	if r.Password != r.RepeatPassword {
		return nil, domain.ErrPasswordMismatch
	}
	if _, err := a.Users.GetByUsername(ctx, r.Username); err == nil {
		return nil, domain.ErrDuplicateUsername
	} else if !errors.Is(err, store.ErrRecordNotFound) {
		return nil, err
	}
	dob, ok := parseDateOfBirth(r.DateOfBirth)
	if !ok {
		return nil, domain.ErrValidation
	}

	// 2) credentials and verification token
	hash, err := a.Passwords.Hash(r.Password)
	if err != nil {
		return nil, err
	}
	plain, verifyHash, err := GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}

	now := a.now().UTC()
	u := &domain.User{
		ID:                 uuid.New(),
		FirstName:          r.FirstName,
		LastName:           r.LastName,
		Email:              r.Email,
		Username:           r.Username,
		DateOfBirth:        dob,
		Role:               domain.RoleUser,
		PasswordHash:       hash,
		EmailVerifyHash:    verifyHash,
		EmailVerifyExpires: now.Add(a.cfg.VerifyEmailTTL).UnixMilli(),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	// a concurrent registration can still win the race; the unique index reports it
	if err := a.Users.Create(ctx, u); err != nil {
		return nil, err
	}

	// 3) verification mail
	link := a.link("verify-email", plain)
	if err := a.send(ctx, "verification", u.Email, "Verify your Email", verifyEmailBody(u.FirstName, link, a.cfg.VerifyEmailTTL)); err != nil {
		return nil, err
	}

	slog.Info("registered user", "user_id", u.ID, "request_id", middleware.RequestIDFromContext(ctx))
	return &dto.RegisterResponse{
		UserID:                    u.ID.String(),
		RequiresEmailVerification: true,
	}, nil
}

func (a *AuthServiceImpl) VerifyEmail(ctx context.Context, token string) (err error) {
	defer func() { metrics.EmailVerificationsTotal.WithLabelValues(metrics.Result(err)).Inc() }()

	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrInvalidOrExpired
	}
	hash := HashOpaqueToken(token)
	now := a.now()

	u, err := a.Users.GetByVerificationHash(ctx, hash, now)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return domain.ErrInvalidOrExpired
		}
		return err
	}
	// only one of two concurrent verifications gets past the conditional update
	if err := a.Users.ConsumeVerification(ctx, u.ID, hash, now); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return domain.ErrInvalidOrExpired
		}
		return err
	}

	slog.Info("email verified", "user_id", u.ID, "request_id", middleware.RequestIDFromContext(ctx))
	return nil
}

func (a *AuthServiceImpl) Login(ctx context.Context, r dto.LoginRequest) (_ *dto.TokenPair, err error) {
	defer func() { metrics.AuthLoginsTotal.WithLabelValues(metrics.Result(err)).Inc() }()

	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" || r.Password == "" {
		return nil, domain.ErrMissingFields
	}

	u, err := a.Users.GetByUsername(ctx, r.Username)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	rehash, ok := a.Passwords.Verify(r.Password, u.PasswordHash)
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	if a.cfg.RequireVerifiedEmail && !u.EmailVerified {
		return nil, domain.ErrEmailNotVerified
	}
	if rehash {
		a.rehashPassword(ctx, u, r.Password)
	}

	replaced := u.HasActiveSession()
	pair, err := a.Tokens.Issue(u)
	if err != nil {
		metrics.TokensIssuedTotal.WithLabelValues("issue", "failure").Inc()
		return nil, err
	}
	// overwrites any earlier session
	if err := a.Users.SetRefreshToken(ctx, u.ID, pair.RefreshToken); err != nil {
		metrics.TokensIssuedTotal.WithLabelValues("issue", "failure").Inc()
		return nil, err
	}
	metrics.TokensIssuedTotal.WithLabelValues("issue", "success").Inc()

	slog.Info("issued tokens", "user_id", u.ID, "replaced_session", replaced, "request_id", middleware.RequestIDFromContext(ctx), "trace_id", middleware.TraceIDFromContext(ctx))
	return pair, nil
}

// Refresh mints a new access token for a stored, still valid refresh token.
// The refresh token itself is not rotated.
func (a *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (_ *dto.AccessToken, err error) {
	result := "success"
	defer func() {
		if err != nil {
			result = "failure"
		}
		metrics.TokensIssuedTotal.WithLabelValues("refresh", result).Inc()
	}()

	if refreshToken == "" {
		return nil, domain.ErrUnauthorized
	}
	u, err := a.Users.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	claims, err := a.Tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, domain.ErrAccessDenied
	}
	if claims.UserID != u.ID.String() {
		return nil, domain.ErrAccessDenied
	}
	return a.Tokens.SignAccess(*claims)
}

func (a *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return domain.ErrUnauthorized
	}
	n, err := a.Users.ClearRefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}
	slog.Info("logged out", "sessions_cleared", n, "request_id", middleware.RequestIDFromContext(ctx))
	return nil
}

func (a *AuthServiceImpl) ForgetPassword(ctx context.Context, r dto.ForgetPasswordRequest) (err error) {
	defer func() { metrics.PasswordResetsTotal.WithLabelValues("request", metrics.Result(err)).Inc() }()

	email := strings.TrimSpace(r.Email)
	if email == "" {
		return domain.ErrValidation
	}
	u, err := a.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	plain, hash, err := GenerateOpaqueToken()
	if err != nil {
		return err
	}
	// a newer request supersedes any pending token
	superseded := u.ResetPending(a.now())
	if err := a.Users.SetResetToken(ctx, u.ID, hash, a.now().Add(a.cfg.ResetPasswordTTL)); err != nil {
		return err
	}

	link := a.link("reset-password", plain)
	if err := a.send(ctx, "password_reset", u.Email, "Password Reset", resetPasswordBody(u.FirstName, link, a.cfg.ResetPasswordTTL)); err != nil {
		return err
	}
	slog.Info("password reset requested", "user_id", u.ID, "superseded_pending", superseded, "request_id", middleware.RequestIDFromContext(ctx))
	return nil
}

func (a *AuthServiceImpl) ResetPassword(ctx context.Context, token string, r dto.ResetPasswordRequest) (err error) {
	defer func() { metrics.PasswordResetsTotal.WithLabelValues("complete", metrics.Result(err)).Inc() }()

	if r.NewPassword == "" || r.RepeatPassword == "" {
		return domain.ErrMissingFields
	}
	if r.NewPassword != r.RepeatPassword {
		return domain.ErrPasswordMismatch
	}
	if len(r.NewPassword) < minPasswordLength {
		return domain.ErrWeakPassword
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrInvalidToken
	}
	hash := HashOpaqueToken(token)
	now := a.now()

	u, err := a.Users.GetByResetHash(ctx, hash, now)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return domain.ErrInvalidToken
		}
		return err
	}
	if _, same := a.Passwords.Verify(r.NewPassword, u.PasswordHash); same {
		return domain.ErrReusedPassword
	}

	newHash, err := a.Passwords.Hash(r.NewPassword)
	if err != nil {
		return err
	}
	// the conditional update spends the token; a concurrent reset sees it gone
	if err := a.Users.CompletePasswordReset(ctx, u.ID, hash, newHash, now); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return domain.ErrInvalidToken
		}
		return err
	}
	slog.Info("password reset", "user_id", u.ID, "request_id", middleware.RequestIDFromContext(ctx))
	return nil
}

func (a *AuthServiceImpl) Me(ctx context.Context, accessToken string) (*dto.MeResponse, error) {
	if accessToken == "" {
		return nil, domain.ErrUnauthorized
	}
	claims, err := a.Tokens.VerifyAccess(accessToken)
	if err != nil {
		return nil, domain.ErrAccessDenied
	}
	return &dto.MeResponse{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     string(claims.Role),
	}, nil
}

// ====== Helpers ======

// rehashPassword upgrades the stored hash to the current cost. The write is
// conditional on the hash that was just verified, so a password changed in
// the meantime is never replaced by the old one.
func (a *AuthServiceImpl) rehashPassword(ctx context.Context, u *domain.User, password string) {
	newHash, err := a.Passwords.Hash(password)
	if err != nil {
		slog.Warn("password rehash failed", "user_id", u.ID, "err", err)
		return
	}
	err = a.Users.UpdatePasswordHash(ctx, u.ID, u.PasswordHash, newHash)
	if errors.Is(err, store.ErrRecordNotFound) {
		slog.Info("password rehash skipped, hash changed concurrently", "user_id", u.ID)
		return
	}
	if err != nil {
		slog.Warn("password rehash failed", "user_id", u.ID, "err", err)
	}
}

func (a *AuthServiceImpl) link(route, token string) string {
	return a.cfg.PublicBaseURL + "/api/auth/" + route + "/" + token
}

func (a *AuthServiceImpl) send(ctx context.Context, kind, to, subject, body string) error {
	err := a.Mailer.Send(ctx, to, subject, body)
	metrics.DeliveriesTotal.WithLabelValues(kind, metrics.Result(err)).Inc()
	if err != nil {
		if errors.Is(err, domain.ErrDelivery) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}
	return nil
}

func parseDateOfBirth(s string) (time.Time, bool) {
	for _, layout := range dateOfBirthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func verifyEmailBody(name, link string, ttl time.Duration) string {
	return fmt.Sprintf("Hello %s,\n\nPlease verify your email by opening the link below:\n%s\n\nThe link expires in %s.\n", name, link, ttl)
}

func resetPasswordBody(name, link string, ttl time.Duration) string {
	return fmt.Sprintf("Hello %s,\n\nUse the link below to set a new password:\n%s\n\nThe link expires in %s. If you did not ask for a reset you can ignore this message.\n", name, link, ttl)
}
