package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/careworks-oss/regulation-core/internal/core/domain"
)

func testAdapter() *Adapter {
	return NewAdapterWithCost("test-secret", bcrypt.MinCost)
}

func TestHashAndVerifyPassword(t *testing.T) {
	adapter := testAdapter()

	hash, err := adapter.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "correct-horse" {
		t.Error("hash equals plaintext")
	}

	if !adapter.VerifyPassword("correct-horse", hash) {
		t.Error("VerifyPassword() = false for correct password")
	}
	if adapter.VerifyPassword("wrong", hash) {
		t.Error("VerifyPassword() = true for wrong password")
	}
	if adapter.VerifyPassword("correct-horse", "not-a-hash") {
		t.Error("VerifyPassword() = true for garbage hash")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	adapter := testAdapter()
	now := time.Now()

	token, err := adapter.GenerateToken(&domain.TokenClaims{
		Subject:   "staff@example.org",
		Email:     "staff@example.org",
		Role:      domain.RoleAdmin,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("token %q is not a JWT", token)
	}

	claims, err := adapter.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "staff@example.org" {
		t.Errorf("Subject = %q", claims.Subject)
	}
	if claims.Email != "staff@example.org" {
		t.Errorf("Email = %q", claims.Email)
	}
	if claims.Role != domain.RoleAdmin {
		t.Errorf("Role = %q", claims.Role)
	}
	if claims.ExpiresAt != now.Add(time.Hour).Unix() {
		t.Errorf("ExpiresAt = %d", claims.ExpiresAt)
	}
}

func TestParseTokenRejectsTampered(t *testing.T) {
	adapter := testAdapter()
	now := time.Now()

	token, err := adapter.GenerateToken(&domain.TokenClaims{
		Subject:   "staff@example.org",
		Email:     "staff@example.org",
		Role:      domain.RoleStaff,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := adapter.ParseToken(tampered); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("ParseToken(tampered) error = %v, want ErrTokenInvalid", err)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	now := time.Now()

	token, err := testAdapter().GenerateToken(&domain.TokenClaims{
		Subject:   "staff@example.org",
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	other := NewAdapterWithCost("different-secret", bcrypt.MinCost)
	if _, err := other.ParseToken(token); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	adapter := testAdapter()
	now := time.Now()

	token, err := adapter.GenerateToken(&domain.TokenClaims{
		Subject:   "staff@example.org",
		IssuedAt:  now.Add(-2 * time.Hour).Unix(),
		ExpiresAt: now.Add(-time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := adapter.ParseToken(token); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("ParseToken(expired) error = %v, want ErrTokenInvalid", err)
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	adapter := testAdapter()

	if _, err := adapter.ParseToken("not.a.token"); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
	}
}
