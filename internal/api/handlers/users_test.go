//go:build integration

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/daybook-app/daybook-backend/internal/api/auth"
	"github.com/daybook-app/daybook-backend/pkg/models"
	"github.com/daybook-app/daybook-backend/pkg/store"
)

func setupUserTest(t *testing.T) (*store.Store, *auth.JWTService, *UserHandler) {
	t.Helper()

	st := newTestStore(t)
	jwtService := newTestJWTService(t)

	handler, err := NewUserHandler(st, jwtService)
	if err != nil {
		t.Fatalf("Failed to create user handler: %v", err)
	}
	return st, jwtService, handler
}

// withURLParam injects a chi route parameter so handlers can be tested
// without the full router.
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestUserHandler_Create(t *testing.T) {
	_, _, handler := setupUserTest(t)

	tests := []struct {
		name       string
		body       CreateUserRequest
		wantStatus int
	}{
		{
			name: "valid user",
			body: CreateUserRequest{
				Username: "newuser",
				Password: "password123",
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "with optional fields",
			body: CreateUserRequest{
				Username:    "fulluser",
				Password:    "password123",
				Email:       "test@example.com",
				DisplayName: "Test User",
				Role:        "admin",
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "missing username",
			body: CreateUserRequest{
				Password: "password123",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "password too short",
			body: CreateUserRequest{
				Username: "shortpw",
				Password: "short",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "invalid role",
			body: CreateUserRequest{
				Username: "badrole",
				Password: "password123",
				Role:     "superuser",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "duplicate username",
			body: CreateUserRequest{
				Username: "newuser",
				Password: "password123",
			},
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.body)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/users", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler.Create(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Create() status = %d, want %d, body = %s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantStatus == http.StatusCreated {
				var resp UserResponse
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("Failed to unmarshal response: %v", err)
				}
				if resp.Username != tt.body.Username {
					t.Errorf("Expected username %s, got %s", tt.body.Username, resp.Username)
				}
				if resp.ID == "" {
					t.Error("Expected generated user ID")
				}
			}
		})
	}
}

func TestUserHandler_List(t *testing.T) {
	st, _, handler := setupUserTest(t)

	createTestUser(t, st, "alice", "password123", "user", true)
	createTestUser(t, st, "bob", "password123", "user", false)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCount  int
	}{
		{name: "all users", query: "", wantStatus: http.StatusOK, wantCount: 2},
		{name: "active only", query: "?active=true", wantStatus: http.StatusOK, wantCount: 1},
		{name: "inactive only", query: "?active=false", wantStatus: http.StatusOK, wantCount: 1},
		{name: "invalid filter", query: "?active=maybe", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users"+tt.query, nil)
			w := httptest.NewRecorder()

			handler.List(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("List() status = %d, want %d, body = %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp []UserResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Failed to unmarshal response: %v", err)
			}
			if len(resp) != tt.wantCount {
				t.Errorf("List() returned %d users, want %d", len(resp), tt.wantCount)
			}
		})
	}
}

func TestUserHandler_Get(t *testing.T) {
	st, _, handler := setupUserTest(t)

	admin := createTestUser(t, st, "admin", "password123", "admin", true)
	alice := createTestUser(t, st, "alice", "password123", "user", true)
	createTestUser(t, st, "bob", "password123", "user", true)

	tests := []struct {
		name       string
		caller     string
		target     string
		wantStatus int
	}{
		{name: "admin gets any user", caller: "admin", target: "bob", wantStatus: http.StatusOK},
		{name: "user gets self", caller: "alice", target: "alice", wantStatus: http.StatusOK},
		{name: "user cannot get others", caller: "alice", target: "bob", wantStatus: http.StatusForbidden},
		{name: "unknown user", caller: "admin", target: "nobody", wantStatus: http.StatusNotFound},
	}

	callers := map[string]*models.User{
		"admin": admin,
		"alice": alice,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/"+tt.target, nil)
			req = req.WithContext(authedContext(callers[tt.caller]))
			req = withURLParam(req, "username", tt.target)
			w := httptest.NewRecorder()

			handler.Get(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Get() status = %d, want %d, body = %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestUserHandler_Update(t *testing.T) {
	st, _, handler := setupUserTest(t)

	createTestUser(t, st, "alice", "password123", "user", true)

	email := "alice@example.com"
	disabled := false
	body, _ := json.Marshal(UpdateUserRequest{Email: &email, Enabled: &disabled})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/users/alice", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = withURLParam(req, "username", "alice")
	w := httptest.NewRecorder()

	handler.Update(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Update() status = %d, want %d, body = %s", w.Code, http.StatusOK, w.Body.String())
	}

	updated, err := st.GetUser(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Failed to fetch user: %v", err)
	}
	if updated.Email != email {
		t.Errorf("Expected email %s, got %s", email, updated.Email)
	}
	if updated.Enabled {
		t.Error("Expected user to be disabled")
	}
}

func TestUserHandler_Delete(t *testing.T) {
	st, _, handler := setupUserTest(t)

	admin := createTestUser(t, st, "admin", "password123", "admin", true)
	createTestUser(t, st, "alice", "password123", "user", true)

	t.Run("cannot delete own account", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/users/admin", nil)
		req = req.WithContext(authedContext(admin))
		req = withURLParam(req, "username", "admin")
		w := httptest.NewRecorder()

		handler.Delete(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Delete() status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("deletes other user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/users/alice", nil)
		req = req.WithContext(authedContext(admin))
		req = withURLParam(req, "username", "alice")
		w := httptest.NewRecorder()

		handler.Delete(w, req)

		if w.Code != http.StatusNoContent {
			t.Fatalf("Delete() status = %d, want %d, body = %s", w.Code, http.StatusNoContent, w.Body.String())
		}

		if _, err := st.GetUser(context.Background(), "alice"); err == nil {
			t.Error("Expected user to be deleted")
		}
	})
}

func TestUserHandler_ChangeOwnPassword(t *testing.T) {
	st, _, handler := setupUserTest(t)

	alice := createTestUser(t, st, "alice", "password123", "user", true)

	tests := []struct {
		name       string
		body       ChangePasswordRequest
		wantStatus int
	}{
		{
			name:       "wrong current password",
			body:       ChangePasswordRequest{CurrentPassword: "wrongpass1", NewPassword: "newpassword123"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing current password",
			body:       ChangePasswordRequest{NewPassword: "newpassword123"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "new password too short",
			body:       ChangePasswordRequest{CurrentPassword: "password123", NewPassword: "short"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "valid change",
			body:       ChangePasswordRequest{CurrentPassword: "password123", NewPassword: "newpassword123"},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.body)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/users/me/password", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req = req.WithContext(authedContext(alice))
			w := httptest.NewRecorder()

			handler.ChangeOwnPassword(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("ChangeOwnPassword() status = %d, want %d, body = %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}

	// The new password must now authenticate
	if _, err := st.ValidateCredentials(context.Background(), "alice", "newpassword123"); err != nil {
		t.Errorf("New password rejected: %v", err)
	}
}

func TestUserHandler_ResetPassword(t *testing.T) {
	st, _, handler := setupUserTest(t)

	createTestUser(t, st, "alice", "password123", "user", true)

	body, _ := json.Marshal(ChangePasswordRequest{NewPassword: "resetpassword1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/alice/password", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = withURLParam(req, "username", "alice")
	w := httptest.NewRecorder()

	handler.ResetPassword(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("ResetPassword() status = %d, want %d, body = %s", w.Code, http.StatusNoContent, w.Body.String())
	}

	if _, err := st.ValidateCredentials(context.Background(), "alice", "resetpassword1"); err != nil {
		t.Errorf("Reset password rejected: %v", err)
	}
}
