package domain

import "errors"

var (
	ErrValidation         = errors.New("please enter valid data")
	ErrMissingFields      = errors.New("required fields are missing")
	ErrWeakPassword       = errors.New("password must be at least 8 characters long")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAccessDenied       = errors.New("access denied")
	ErrInvalidOrExpired   = errors.New("invalid or expired token")
	ErrInvalidToken       = errors.New("invalid token")
	ErrReusedPassword     = errors.New("new password must differ from the current one")
	ErrTokenInvalid       = errors.New("token expired or invalid")
	ErrDelivery           = errors.New("message delivery failed")
)
