package driving

import (
	"context"

	"github.com/careworks-oss/regulation-core/internal/core/domain"
)

// AuthService issues and validates staff tokens for the HTTP surface.
// Fine-grained permission policy is the surrounding portal's concern.
type AuthService interface {
	// Authenticate verifies credentials and issues a signed token
	Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)

	// ValidateToken parses and validates a token, returning the identity
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)
}
