package service

import (
	"context"
	"time"

	"identity/internal/domain"
)

// UserRepository is what the lifecycle needs from persistent storage. Lookups
// that miss return store.ErrRecordNotFound. The Consume/Complete methods are
// conditional on the stored token hash so a single-use token can only be
// spent once under concurrent requests.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByRefreshToken(ctx context.Context, token string) (*domain.User, error)
	GetByVerificationHash(ctx context.Context, hash string, now time.Time) (*domain.User, error)
	GetByResetHash(ctx context.Context, hash string, now time.Time) (*domain.User, error)

	ConsumeVerification(ctx context.Context, id domain.UserID, hash string, now time.Time) error
	SetResetToken(ctx context.Context, id domain.UserID, hash string, expires time.Time) error
	CompletePasswordReset(ctx context.Context, id domain.UserID, hash, passwordHash string, now time.Time) error
	SetRefreshToken(ctx context.Context, id domain.UserID, token string) error
	ClearRefreshToken(ctx context.Context, token string) (int64, error)
	// UpdatePasswordHash replaces the hash only while it still equals oldHash.
	UpdatePasswordHash(ctx context.Context, id domain.UserID, oldHash, newHash string) error
}
