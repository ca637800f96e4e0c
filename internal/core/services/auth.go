package services

import (
	"context"
	"fmt"
	"time"

	"github.com/careworks-oss/regulation-core/internal/core/domain"
	"github.com/careworks-oss/regulation-core/internal/core/ports/driven"
	"github.com/careworks-oss/regulation-core/internal/core/ports/driving"
)

// Ensure authService implements AuthService
var _ driving.AuthService = (*authService)(nil)

// ServiceAccount is the single credential accepted by this deployment.
// Staff identity and permissions live in the surrounding portal; this
// guard only keeps the API off the open network.
type ServiceAccount struct {
	Email        string
	PasswordHash string
	Role         domain.Role
}

// authService issues and validates tokens for the HTTP surface
type authService struct {
	adapter  driven.AuthAdapter
	account  ServiceAccount
	tokenTTL time.Duration
}

// NewAuthService creates a new AuthService
func NewAuthService(adapter driven.AuthAdapter, account ServiceAccount, tokenTTL time.Duration) driving.AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	if account.Role == "" {
		account.Role = domain.RoleStaff
	}
	return &authService{
		adapter:  adapter,
		account:  account,
		tokenTTL: tokenTTL,
	}
}

// Authenticate verifies credentials and issues a signed token
func (s *authService) Authenticate(_ context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if req.Email != s.account.Email || !s.adapter.VerifyPassword(req.Password, s.account.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)
	token, err := s.adapter.GenerateToken(&domain.TokenClaims{
		Subject:   req.Email,
		Email:     req.Email,
		Role:      s.account.Role,
		IssuedAt:  now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &domain.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken parses and validates a token, returning the identity
func (s *authService) ValidateToken(_ context.Context, token string) (*domain.AuthContext, error) {
	claims, err := s.adapter.ParseToken(token)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	if claims.Expired() {
		return nil, domain.ErrTokenExpired
	}
	return &domain.AuthContext{
		Subject: claims.Subject,
		Email:   claims.Email,
		Role:    claims.Role,
	}, nil
}
