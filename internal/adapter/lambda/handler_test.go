package lambda

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/daybook-app/daybook-backend/internal/api"
	"github.com/daybook-app/daybook-backend/internal/app"
	"github.com/daybook-app/daybook-backend/internal/bootstrap"
	"github.com/daybook-app/daybook-backend/pkg/store"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestInitializer(t *testing.T) *bootstrap.Initializer {
	t.Helper()
	return bootstrap.New(bootstrap.Config{}, func(ctx context.Context) (*app.App, error) {
		st, err := store.New(&store.Config{
			Type:   store.DatabaseTypeSQLite,
			SQLite: store.SQLiteConfig{Path: ":memory:"},
		})
		if err != nil {
			return nil, bootstrap.NewDatabaseError(err)
		}
		cfg := api.Config{}
		cfg.JWT.Secret = testSecret
		a, err := app.New(cfg, st, app.Options{})
		if err != nil {
			return nil, bootstrap.NewConstructionError(err)
		}
		return a, nil
	})
}

func TestSplitPathQuery(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantPath  string
		wantQuery string
	}{
		{"no query", "/users", "/users", ""},
		{"with query", "/users?active=true", "/users", "true"},
		{"empty query", "/users?", "/users", ""},
		{"query only kept once", "/users?active=false&x=1", "/users", "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, query := splitPathQuery(tt.raw)
			if path != tt.wantPath {
				t.Errorf("path = %q, want %q", path, tt.wantPath)
			}
			if got := query.Get("active"); got != tt.wantQuery {
				t.Errorf("active = %q, want %q", got, tt.wantQuery)
			}
		})
	}
}

func TestTranslateRequest_FiltersReservedHeaders(t *testing.T) {
	event := &events.APIGatewayProxyRequest{
		HTTPMethod: "GET",
		Path:       "/health",
		Headers: map[string]string{
			"Host":            "api.example.com",
			"Connection":      "keep-alive",
			"X-Vercel-Id":     "abc123",
			"X-Amz-Date":      "20260829T000000Z",
			"X-Custom-Header": "kept",
			"Authorization":   "Bearer tok",
		},
	}

	req, err := translateRequest(context.Background(), event)
	if err != nil {
		t.Fatalf("translateRequest() error = %v", err)
	}

	for _, dropped := range []string{"Host", "Connection", "X-Vercel-Id", "X-Amz-Date"} {
		if got := req.Header.Get(dropped); got != "" {
			t.Errorf("expected header %s to be dropped, got %q", dropped, got)
		}
	}
	if got := req.Header.Get("X-Custom-Header"); got != "kept" {
		t.Errorf("X-Custom-Header = %q, want kept", got)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer tok" {
		t.Errorf("Authorization = %q, want Bearer tok", got)
	}
}

func TestTranslateRequest_QueryMerging(t *testing.T) {
	event := &events.APIGatewayProxyRequest{
		HTTPMethod:            "GET",
		Path:                  "/api/v1/users?active=true",
		QueryStringParameters: map[string]string{"page": "2"},
	}

	req, err := translateRequest(context.Background(), event)
	if err != nil {
		t.Fatalf("translateRequest() error = %v", err)
	}

	if req.URL.Path != "/api/v1/users" {
		t.Errorf("path = %q, want /api/v1/users", req.URL.Path)
	}
	q := req.URL.Query()
	if q.Get("active") != "true" {
		t.Errorf("active = %q, want true", q.Get("active"))
	}
	if q.Get("page") != "2" {
		t.Errorf("page = %q, want 2", q.Get("page"))
	}
}

func TestTranslateRequest_Body(t *testing.T) {
	t.Run("json body", func(t *testing.T) {
		event := &events.APIGatewayProxyRequest{
			HTTPMethod: "POST",
			Path:       "/api/v1/auth/login",
			Body:       `{"a":1}`,
		}
		req, err := translateRequest(context.Background(), event)
		if err != nil {
			t.Fatal(err)
		}
		if ct := req.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
	})

	t.Run("non-json body stays raw", func(t *testing.T) {
		event := &events.APIGatewayProxyRequest{
			HTTPMethod: "POST",
			Path:       "/x",
			Body:       "not json",
		}
		req, err := translateRequest(context.Background(), event)
		if err != nil {
			t.Fatal(err)
		}
		if ct := req.Header.Get("Content-Type"); ct != "text/plain" {
			t.Errorf("Content-Type = %q, want text/plain", ct)
		}
		buf := make([]byte, 16)
		n, _ := req.Body.Read(buf)
		if string(buf[:n]) != "not json" {
			t.Errorf("body = %q, want raw passthrough", string(buf[:n]))
		}
	})

	t.Run("base64 body decoded", func(t *testing.T) {
		event := &events.APIGatewayProxyRequest{
			HTTPMethod:      "POST",
			Path:            "/x",
			Body:            base64.StdEncoding.EncodeToString([]byte(`{"b":2}`)),
			IsBase64Encoded: true,
		}
		req, err := translateRequest(context.Background(), event)
		if err != nil {
			t.Fatal(err)
		}
		buf := make([]byte, 16)
		n, _ := req.Body.Read(buf)
		if string(buf[:n]) != `{"b":2}` {
			t.Errorf("body = %q, want decoded JSON", string(buf[:n]))
		}
	})

	t.Run("invalid base64 degrades to raw", func(t *testing.T) {
		event := &events.APIGatewayProxyRequest{
			HTTPMethod:      "POST",
			Path:            "/x",
			Body:            "!!not-base64!!",
			IsBase64Encoded: true,
		}
		req, err := translateRequest(context.Background(), event)
		if err != nil {
			t.Fatal(err)
		}
		buf := make([]byte, 32)
		n, _ := req.Body.Read(buf)
		if string(buf[:n]) != "!!not-base64!!" {
			t.Errorf("body = %q, want raw passthrough", string(buf[:n]))
		}
	})

	t.Run("absent body", func(t *testing.T) {
		event := &events.APIGatewayProxyRequest{HTTPMethod: "GET", Path: "/x"}
		req, err := translateRequest(context.Background(), event)
		if err != nil {
			t.Fatal(err)
		}
		if req.ContentLength != 0 {
			t.Errorf("expected empty body, got length %d", req.ContentLength)
		}
	})
}

func TestTranslateResponse_InvalidJSONFallsBackToText(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set("Content-Type", "application/json")
	rec.WriteHeader(200)
	_, _ = rec.Body.WriteString("oops not json")

	resp := translateResponse(rec)

	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Headers["Content-Type"], "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain fallback", resp.Headers["Content-Type"])
	}
	if resp.Body != "oops not json" {
		t.Errorf("body = %q, want raw body", resp.Body)
	}
}

func TestResponder_ExactlyOnce(t *testing.T) {
	r := &responder{}
	r.send(events.APIGatewayProxyResponse{StatusCode: 200, Body: "first"})
	r.send(events.APIGatewayProxyResponse{StatusCode: 500, Body: "second"})

	if r.resp.StatusCode != 200 || r.resp.Body != "first" {
		t.Errorf("expected first response to win, got %d %q", r.resp.StatusCode, r.resp.Body)
	}
}

func TestInvoke_HealthEndToEnd(t *testing.T) {
	h := NewHandler(newTestInitializer(t), Options{})

	resp, err := h.Invoke(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: "GET",
		Path:       "/health",
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200, body: %s", resp.StatusCode, resp.Body)
	}
	if !strings.Contains(resp.Headers["Content-Type"], "json") {
		t.Errorf("Content-Type = %q, want JSON", resp.Headers["Content-Type"])
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(resp.Body), &parsed); err != nil {
		t.Errorf("expected JSON body, got %q", resp.Body)
	}
	if parsed["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", parsed["status"])
	}
}

func TestInvoke_PathWithEmbeddedQuery(t *testing.T) {
	h := NewHandler(newTestInitializer(t), Options{})

	resp, err := h.Invoke(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: "GET",
		Path:       "/health?probe=1",
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200 (query must not break routing)", resp.StatusCode)
	}
}

func TestInvoke_ConfigurationError(t *testing.T) {
	init := bootstrap.New(bootstrap.Config{}, func(ctx context.Context) (*app.App, error) {
		return nil, bootstrap.NewConfigurationError(errors.New("missing JWT secret"))
	})

	t.Run("development carries detail", func(t *testing.T) {
		h := NewHandler(init, Options{Production: false})
		resp, _ := h.Invoke(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: "GET", Path: "/health"})

		if resp.StatusCode != 503 {
			t.Fatalf("status = %d, want 503", resp.StatusCode)
		}
		var body errorBody
		if err := json.Unmarshal([]byte(resp.Body), &body); err != nil {
			t.Fatalf("invalid JSON body: %v", err)
		}
		if body.Code != "CONFIG_ERROR" {
			t.Errorf("code = %q, want CONFIG_ERROR", body.Code)
		}
		if body.Hint == "" {
			t.Error("expected remediation hint")
		}
		if !strings.Contains(body.Detail, "missing JWT secret") {
			t.Errorf("expected detail outside production, got %q", body.Detail)
		}
	})

	t.Run("production hides detail", func(t *testing.T) {
		h := NewHandler(init, Options{Production: true})
		resp, _ := h.Invoke(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: "GET", Path: "/health"})

		var body errorBody
		if err := json.Unmarshal([]byte(resp.Body), &body); err != nil {
			t.Fatalf("invalid JSON body: %v", err)
		}
		if body.Detail != "" || body.Stack != "" {
			t.Errorf("expected no diagnostics in production, got detail=%q stack present=%v", body.Detail, body.Stack != "")
		}
	})
}

func TestInvoke_DatabaseErrorIsGeneric500(t *testing.T) {
	init := bootstrap.New(bootstrap.Config{ConnectAttempts: 1}, func(ctx context.Context) (*app.App, error) {
		return nil, bootstrap.NewDatabaseError(errors.New("connection refused"))
	})
	h := NewHandler(init, Options{Production: true})

	resp, err := h.Invoke(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: "GET", Path: "/health"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if resp.StatusCode != 500 {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	var body errorBody
	if err := json.Unmarshal([]byte(resp.Body), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.Error != "internal server error" {
		t.Errorf("error = %q, want generic message", body.Error)
	}
	if strings.Contains(resp.Body, "connection refused") {
		t.Error("production response leaked the underlying error")
	}
}

func TestInvoke_ResetsInitializerWhenDatabaseDies(t *testing.T) {
	init := newTestInitializer(t)
	h := NewHandler(init, Options{})

	// Warm up.
	resp, err := h.Invoke(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: "GET", Path: "/health"})
	if err != nil || resp.StatusCode != 200 {
		t.Fatalf("warmup failed: %v %d", err, resp.StatusCode)
	}
	if !init.Initialized() {
		t.Fatal("expected initializer to hold an instance")
	}

	// Kill the database underneath the cached instance.
	a, _ := init.Get(context.Background())
	if err := a.Store().Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}

	// Readiness now fails with a 5xx and the follow-up probe must discard
	// the instance.
	resp, err = h.Invoke(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: "GET", Path: "/health/ready"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if resp.StatusCode != 503 {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	if init.Initialized() {
		t.Error("expected initializer to be reset after database death")
	}
}
