package service

import (
	"context"

	"identity/internal/dto"
)

type AuthService interface {
	Register(ctx context.Context, r dto.RegisterRequest) (*dto.RegisterResponse, error)
	VerifyEmail(ctx context.Context, token string) error
	Login(ctx context.Context, r dto.LoginRequest) (*dto.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.AccessToken, error)
	Logout(ctx context.Context, refreshToken string) error
	ForgetPassword(ctx context.Context, r dto.ForgetPasswordRequest) error
	ResetPassword(ctx context.Context, token string, r dto.ResetPasswordRequest) error
	Me(ctx context.Context, accessToken string) (*dto.MeResponse, error)
}
