package domain

import "time"

// User is the only persisted entity. Token expiries are unix milliseconds;
// zero together with an empty hash means nothing is pending.
type User struct {
	ID          UserID    `gorm:"type:uuid;primaryKey" db:"id" json:"id"`
	FirstName   string    `gorm:"type:text;not null" db:"first_name" json:"firstName"`
	LastName    string    `gorm:"type:text;not null" db:"last_name" json:"lastName"`
	Email       string    `gorm:"type:text;not null;index:ix_users_email" db:"email" json:"email"`
	Username    string    `gorm:"type:text;not null;uniqueIndex:ux_users_username" db:"username" json:"username"`
	DateOfBirth time.Time `gorm:"not null" db:"date_of_birth" json:"dateOfBirth"`
	Role        Role      `gorm:"type:text;not null;default:user" db:"role" json:"role"`

	PasswordHash string `gorm:"type:text;not null" db:"password_hash" json:"-"`

	EmailVerified      bool   `gorm:"not null;default:false" db:"email_verified" json:"emailVerified"`
	EmailVerifyHash    string `gorm:"type:text;index:ix_users_email_verify_hash" db:"email_verify_hash" json:"-"`
	EmailVerifyExpires int64  `gorm:"not null;default:0" db:"email_verify_expires" json:"-"`

	ResetPasswordHash    string `gorm:"type:text;index:ix_users_reset_password_hash" db:"reset_password_hash" json:"-"`
	ResetPasswordExpires int64  `gorm:"not null;default:0" db:"reset_password_expires" json:"-"`

	// RefreshToken holds the single active session; "" means none.
	RefreshToken string `gorm:"type:text;index:ix_users_refresh_token" db:"refresh_token" json:"-"`

	CreatedAt time.Time `gorm:"not null" db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" db:"updated_at" json:"updatedAt"`
}

func (User) TableName() string { return "users" }

func (u *User) HasActiveSession() bool { return u.RefreshToken != "" }

func (u *User) ResetPending(now time.Time) bool {
	return u.ResetPasswordHash != "" && u.ResetPasswordExpires > now.UnixMilli()
}
