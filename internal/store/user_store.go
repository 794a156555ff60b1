package store

import (
	"context"
	"fmt"
	"time"

	"identity/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserStore struct{ db *gorm.DB }

func (s *Store) Users() *UserStore { return &UserStore{db: s.DB} }

func (u *UserStore) Create(ctx context.Context, usr *domain.User) error {
	if usr.ID == uuid.Nil {
		usr.ID = uuid.New()
	}
	if err := u.db.WithContext(ctx).Create(usr).Error; err != nil {
		if isDuplicateKey(err) {
			return domain.ErrDuplicateUsername
		}
		return err
	}
	return nil
}

func (u *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return u.first(ctx, "username = ?", username)
}

func (u *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return u.first(ctx, "email = ?", email)
}

func (u *UserStore) GetByRefreshToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, ErrRecordNotFound
	}
	return u.first(ctx, "refresh_token = ?", token)
}

func (u *UserStore) GetByVerificationHash(ctx context.Context, hash string, now time.Time) (*domain.User, error) {
	if hash == "" {
		return nil, ErrRecordNotFound
	}
	return u.first(ctx, "email_verify_hash = ? AND email_verify_expires > ?", hash, now.UnixMilli())
}

func (u *UserStore) GetByResetHash(ctx context.Context, hash string, now time.Time) (*domain.User, error) {
	if hash == "" {
		return nil, ErrRecordNotFound
	}
	return u.first(ctx, "reset_password_hash = ? AND reset_password_expires > ?", hash, now.UnixMilli())
}

// ConsumeVerification marks the email verified and clears the token, but only
// while the stored hash still matches and has not expired.
func (u *UserStore) ConsumeVerification(ctx context.Context, id domain.UserID, hash string, now time.Time) error {
	return u.updateWhere(ctx, map[string]any{
		"email_verified":       true,
		"email_verify_hash":    "",
		"email_verify_expires": 0,
		"updated_at":           now.UTC(),
	}, "id = ? AND email_verify_hash = ? AND email_verify_expires > ?", id, hash, now.UnixMilli())
}

func (u *UserStore) SetResetToken(ctx context.Context, id domain.UserID, hash string, expires time.Time) error {
	return u.updateWhere(ctx, map[string]any{
		"reset_password_hash":    hash,
		"reset_password_expires": expires.UnixMilli(),
		"updated_at":             time.Now().UTC(),
	}, "id = ?", id)
}

// CompletePasswordReset swaps the password hash and clears the reset token in
// one conditional update keyed on the token hash.
func (u *UserStore) CompletePasswordReset(ctx context.Context, id domain.UserID, hash, passwordHash string, now time.Time) error {
	return u.updateWhere(ctx, map[string]any{
		"password_hash":          passwordHash,
		"reset_password_hash":    "",
		"reset_password_expires": 0,
		"updated_at":             now.UTC(),
	}, "id = ? AND reset_password_hash = ? AND reset_password_expires > ?", id, hash, now.UnixMilli())
}

func (u *UserStore) SetRefreshToken(ctx context.Context, id domain.UserID, token string) error {
	return u.updateWhere(ctx, map[string]any{
		"refresh_token": token,
		"updated_at":    time.Now().UTC(),
	}, "id = ?", id)
}

func (u *UserStore) ClearRefreshToken(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, nil
	}
	tx := u.db.WithContext(ctx).Model(&domain.User{}).
		Where("refresh_token = ?", token).
		Updates(map[string]any{"refresh_token": "", "updated_at": time.Now().UTC()})
	return tx.RowsAffected, tx.Error
}

func (u *UserStore) UpdatePasswordHash(ctx context.Context, id domain.UserID, oldHash, newHash string) error {
	return u.updateWhere(ctx, map[string]any{
		"password_hash": newHash,
		"updated_at":    time.Now().UTC(),
	}, "id = ? AND password_hash = ?", id, oldHash)
}

func (u *UserStore) first(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var user domain.User
	if err := u.db.WithContext(ctx).Where(query, args...).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (u *UserStore) updateWhere(ctx context.Context, fields map[string]any, query string, args ...any) error {
	tx := u.db.WithContext(ctx).Model(&domain.User{}).Where(query, args...).Updates(fields)
	if tx.Error != nil {
		return fmt.Errorf("update user: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
