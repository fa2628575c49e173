package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/daybook-app/daybook-backend/pkg/models"
)

const testSecret = "test-secret-key-at-least-32-chars-long"

func testUser() *models.User {
	return &models.User{
		ID:       "7b9d2f1e-0000-4000-8000-000000000001",
		Username: "alice",
		Role:     "user",
	}
}

func TestNewJWTService_ShortSecret(t *testing.T) {
	if _, err := NewJWTService(JWTConfig{Secret: "too short"}); !errors.Is(err, ErrInvalidSecretLength) {
		t.Errorf("NewJWTService(short secret) error = %v, want %v", err, ErrInvalidSecretLength)
	}
}

func TestGenerateTokenPair_Defaults(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: testSecret})
	if err != nil {
		t.Fatalf("NewJWTService() error = %v", err)
	}

	pair, err := svc.GenerateTokenPair(testUser())
	if err != nil {
		t.Fatalf("GenerateTokenPair() error = %v", err)
	}
	if pair.TokenType != "Bearer" {
		t.Errorf("TokenType = %q, want Bearer", pair.TokenType)
	}
	if pair.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Errorf("ExpiresIn = %d, want %d", pair.ExpiresIn, int64((15*time.Minute).Seconds()))
	}

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}
	if claims.UserID != testUser().ID || claims.Username != "alice" || claims.Role != "user" {
		t.Errorf("access claims = %+v, want user identity", claims)
	}
	if claims.Issuer != "daybook" {
		t.Errorf("Issuer = %q, want daybook", claims.Issuer)
	}

	if _, err := svc.ValidateRefreshToken(pair.RefreshToken); err != nil {
		t.Errorf("ValidateRefreshToken() error = %v", err)
	}
}

func TestValidate_TokenTypeMismatch(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: testSecret})
	if err != nil {
		t.Fatalf("NewJWTService() error = %v", err)
	}
	pair, err := svc.GenerateTokenPair(testUser())
	if err != nil {
		t.Fatalf("GenerateTokenPair() error = %v", err)
	}

	if _, err := svc.ValidateAccessToken(pair.RefreshToken); !errors.Is(err, ErrInvalidTokenType) {
		t.Errorf("ValidateAccessToken(refresh token) error = %v, want %v", err, ErrInvalidTokenType)
	}
	if _, err := svc.ValidateRefreshToken(pair.AccessToken); !errors.Is(err, ErrInvalidTokenType) {
		t.Errorf("ValidateRefreshToken(access token) error = %v, want %v", err, ErrInvalidTokenType)
	}
}

func TestValidate_Expired(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{
		Secret:              testSecret,
		AccessTokenDuration: -time.Minute,
	})
	if err != nil {
		t.Fatalf("NewJWTService() error = %v", err)
	}
	pair, err := svc.GenerateTokenPair(testUser())
	if err != nil {
		t.Fatalf("GenerateTokenPair() error = %v", err)
	}

	if _, err := svc.ValidateAccessToken(pair.AccessToken); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("ValidateAccessToken(expired) error = %v, want %v", err, ErrExpiredToken)
	}
}

func TestValidate_InvalidTokens(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: testSecret})
	if err != nil {
		t.Fatalf("NewJWTService() error = %v", err)
	}
	other, err := NewJWTService(JWTConfig{Secret: "another-secret-key-that-is-32-chars!"})
	if err != nil {
		t.Fatalf("NewJWTService() error = %v", err)
	}
	foreign, err := other.GenerateTokenPair(testUser())
	if err != nil {
		t.Fatalf("GenerateTokenPair() error = %v", err)
	}

	for _, raw := range []string{"", "not.a.token", foreign.AccessToken} {
		if _, err := svc.ValidateAccessToken(raw); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ValidateAccessToken(%q) error = %v, want %v", raw, err, ErrInvalidToken)
		}
	}
}
