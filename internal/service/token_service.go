package service

import (
	"identity/internal/domain"
	"identity/internal/dto"
)

// Claims is what both token kinds carry about the user.
type Claims struct {
	UserID   string
	Username string
	Role     domain.Role
}

type TokenService interface {
	Issue(user *domain.User) (*dto.TokenPair, error)
	SignAccess(c Claims) (*dto.AccessToken, error)
	VerifyAccess(token string) (*Claims, error)
	VerifyRefresh(token string) (*Claims, error)
}
