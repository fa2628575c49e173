package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/daybook-app/daybook-backend/pkg/models"
)

// Validation errors returned to callers. Handlers map these onto HTTP
// status codes without inspecting message text.
var (
	ErrInvalidToken        = errors.New("invalid token")
	ErrExpiredToken        = errors.New("token has expired")
	ErrInvalidTokenType    = errors.New("invalid token type")
	ErrInvalidSecretLength = errors.New("JWT secret must be at least 32 characters")
)

// Fallbacks for zero-valued JWTConfig fields. api.Config carries the same
// defaults; these cover services built directly from a JWTConfig literal.
const (
	defaultIssuer     = "daybook"
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// JWTConfig configures token signing. Secret is required; the rest falls
// back to the defaults above.
type JWTConfig struct {
	Secret               string
	Issuer               string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
}

// JWTService signs and validates Daybook access/refresh tokens using
// HMAC-SHA256.
type JWTService struct {
	cfg JWTConfig
}

// NewJWTService validates the signing secret and fills config fallbacks.
func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if len(cfg.Secret) < 32 {
		return nil, ErrInvalidSecretLength
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaultIssuer
	}
	if cfg.AccessTokenDuration == 0 {
		cfg.AccessTokenDuration = defaultAccessTTL
	}
	if cfg.RefreshTokenDuration == 0 {
		cfg.RefreshTokenDuration = defaultRefreshTTL
	}
	return &JWTService{cfg: cfg}, nil
}

// TokenPair is the login/refresh response payload: a short-lived access
// token plus the refresh token that renews it.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// GenerateTokenPair issues a fresh access/refresh pair for user. Both
// tokens carry the same identity claims and differ only in type and
// lifetime.
func (s *JWTService) GenerateTokenPair(user *models.User) (*TokenPair, error) {
	now := time.Now()
	accessExpiry := now.Add(s.cfg.AccessTokenDuration)

	access, err := s.sign(user, TokenTypeAccess, now, accessExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := s.sign(user, TokenTypeRefresh, now, now.Add(s.cfg.RefreshTokenDuration))
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.cfg.AccessTokenDuration.Seconds()),
		ExpiresAt:    accessExpiry,
	}, nil
}

func (s *JWTService) sign(user *models.User, tokenType TokenType, issuedAt, expiresAt time.Time) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		TokenType: tokenType,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
}

// ValidateAccessToken checks signature, expiry, and that the token is an
// access token.
func (s *JWTService) ValidateAccessToken(raw string) (*Claims, error) {
	return s.validate(raw, TokenTypeAccess)
}

// ValidateRefreshToken checks signature, expiry, and that the token is a
// refresh token.
func (s *JWTService) ValidateRefreshToken(raw string) (*Claims, error) {
	return s.validate(raw, TokenTypeRefresh)
}

func (s *JWTService) validate(raw string, want TokenType) (*Claims, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != want {
		return nil, ErrInvalidTokenType
	}
	return claims, nil
}

// parse verifies the signature and registered claims. An access token used
// where a refresh token is expected (or vice versa) passes here and is
// rejected by validate.
func (s *JWTService) parse(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
