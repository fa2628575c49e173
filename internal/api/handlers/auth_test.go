//go:build integration

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/daybook-app/daybook-backend/internal/api/auth"
	"github.com/daybook-app/daybook-backend/internal/api/middleware"
	"github.com/daybook-app/daybook-backend/pkg/identity"
	"github.com/daybook-app/daybook-backend/pkg/models"
	"github.com/daybook-app/daybook-backend/pkg/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	dbConfig := store.Config{
		Type: "sqlite",
		SQLite: store.SQLiteConfig{
			Path: ":memory:",
		},
	}
	st, err := store.New(&dbConfig)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestJWTService(t *testing.T) *auth.JWTService {
	t.Helper()

	jwtService, err := auth.NewJWTService(auth.JWTConfig{
		Secret: "test-secret-key-that-is-at-least-32-characters-long",
		Issuer: "test",
	})
	if err != nil {
		t.Fatalf("Failed to create JWT service: %v", err)
	}
	return jwtService
}

func setupAuthTest(t *testing.T) (*store.Store, *auth.JWTService, *AuthHandler) {
	t.Helper()

	st := newTestStore(t)
	jwtService := newTestJWTService(t)
	handler := NewAuthHandler(st, jwtService)
	return st, jwtService, handler
}

func createTestUser(t *testing.T, st *store.Store, username, password, role string, enabled bool) *models.User {
	t.Helper()
	ctx := context.Background()

	passwordHash, err := identity.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: passwordHash,
		Enabled:      true, // Create with true first (GORM default handling)
		Role:         role,
		CreatedAt:    time.Now(),
	}

	if _, err := st.CreateUser(ctx, user); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	// If disabled, update the user after creation (GORM zero-value workaround)
	if !enabled {
		user.Enabled = false
		if err := st.UpdateUser(ctx, user); err != nil {
			t.Fatalf("Failed to disable user: %v", err)
		}
	}

	return user
}

func authedContext(user *models.User) context.Context {
	claims := &auth.Claims{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		TokenType: auth.TokenTypeAccess,
	}
	return middleware.WithClaims(context.Background(), claims)
}

func TestAuthHandler_Login(t *testing.T) {
	st, _, handler := setupAuthTest(t)

	createTestUser(t, st, "testuser", "password123", "user", true)

	tests := []struct {
		name       string
		body       LoginRequest
		wantStatus int
	}{
		{
			name:       "valid credentials",
			body:       LoginRequest{Username: "testuser", Password: "password123"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid password",
			body:       LoginRequest{Username: "testuser", Password: "wrongpassword"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "non-existent user",
			body:       LoginRequest{Username: "nonexistent", Password: "password123"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing username",
			body:       LoginRequest{Password: "password123"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing password",
			body:       LoginRequest{Username: "testuser"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.body)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler.Login(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Login() status = %d, want %d, body = %s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantStatus == http.StatusOK {
				var resp LoginResponse
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("Failed to unmarshal response: %v", err)
				}
				if resp.AccessToken == "" {
					t.Error("Expected access token to be set")
				}
				if resp.RefreshToken == "" {
					t.Error("Expected refresh token to be set")
				}
				if resp.User.Username != tt.body.Username {
					t.Errorf("Expected username %s, got %s", tt.body.Username, resp.User.Username)
				}
			}
		})
	}
}

func TestAuthHandler_Login_DisabledUser(t *testing.T) {
	st, _, handler := setupAuthTest(t)

	createTestUser(t, st, "disableduser", "password123", "user", false)

	body, _ := json.Marshal(LoginRequest{Username: "disableduser", Password: "password123"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Login(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Login() status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestAuthHandler_Login_UpdatesLastLogin(t *testing.T) {
	st, _, handler := setupAuthTest(t)

	createTestUser(t, st, "testuser", "password123", "user", true)

	body, _ := json.Marshal(LoginRequest{Username: "testuser", Password: "password123"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Login(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Login() status = %d, want %d", w.Code, http.StatusOK)
	}

	updated, err := st.GetUser(context.Background(), "testuser")
	if err != nil {
		t.Fatalf("Failed to fetch user: %v", err)
	}
	if updated.LastLogin == nil {
		t.Error("Expected last login to be recorded")
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	st, jwtService, handler := setupAuthTest(t)

	user := createTestUser(t, st, "testuser", "password123", "user", true)

	tokenPair, err := jwtService.GenerateTokenPair(user)
	if err != nil {
		t.Fatalf("Failed to generate token pair: %v", err)
	}

	tests := []struct {
		name         string
		refreshToken string
		wantStatus   int
	}{
		{
			name:         "valid refresh token",
			refreshToken: tokenPair.RefreshToken,
			wantStatus:   http.StatusOK,
		},
		{
			name:         "access token rejected",
			refreshToken: tokenPair.AccessToken,
			wantStatus:   http.StatusUnauthorized,
		},
		{
			name:         "invalid refresh token",
			refreshToken: "invalid-token",
			wantStatus:   http.StatusUnauthorized,
		},
		{
			name:         "empty refresh token",
			refreshToken: "",
			wantStatus:   http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(RefreshRequest{RefreshToken: tt.refreshToken})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler.Refresh(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Refresh() status = %d, want %d, body = %s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantStatus == http.StatusOK {
				var resp LoginResponse
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("Failed to unmarshal response: %v", err)
				}
				if resp.AccessToken == "" {
					t.Error("Expected new access token")
				}
			}
		})
	}
}

func TestAuthHandler_Refresh_DisabledUser(t *testing.T) {
	st, jwtService, handler := setupAuthTest(t)
	ctx := context.Background()

	user := createTestUser(t, st, "testuser", "password123", "user", true)

	// Generate tokens while user is enabled
	tokenPair, err := jwtService.GenerateTokenPair(user)
	if err != nil {
		t.Fatalf("Failed to generate token pair: %v", err)
	}

	// Disable the user
	user.Enabled = false
	if err := st.UpdateUser(ctx, user); err != nil {
		t.Fatalf("Failed to disable user: %v", err)
	}

	body, _ := json.Marshal(RefreshRequest{RefreshToken: tokenPair.RefreshToken})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Refresh(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Refresh() status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	st, _, handler := setupAuthTest(t)

	user := createTestUser(t, st, "testuser", "password123", "user", true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req = req.WithContext(authedContext(user))
	w := httptest.NewRecorder()

	handler.Me(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Me() status = %d, want %d, body = %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp UserResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if resp.Username != "testuser" {
		t.Errorf("Expected username testuser, got %s", resp.Username)
	}
	if resp.ID != user.ID {
		t.Errorf("Expected user ID %s, got %s", user.ID, resp.ID)
	}
}

func TestAuthHandler_Me_Unauthenticated(t *testing.T) {
	_, _, handler := setupAuthTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	w := httptest.NewRecorder()

	handler.Me(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Me() status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
