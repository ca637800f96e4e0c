package domain

import "time"

// Role defines access levels for staff accounts
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// TokenClaims carries the identity encoded in a signed token
type TokenClaims struct {
	Subject   string `json:"sub"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Expired reports whether the claims are past their expiry
func (c *TokenClaims) Expired() bool {
	return time.Now().Unix() >= c.ExpiresAt
}

// AuthContext is the validated identity attached to a request
type AuthContext struct {
	Subject string `json:"subject"`
	Email   string `json:"email"`
	Role    Role   `json:"role"`
}

// IsAdmin reports whether the identity has admin access
func (a *AuthContext) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// LoginRequest is the credential payload for token issuance
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries a freshly issued token
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
