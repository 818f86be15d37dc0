package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-lingo/internal/platform/config"
	"github.com/p-n-ai/pai-lingo/internal/progress"
)

func testConfig() *config.Config {
	return &config.Config{
		Auth:     config.AuthConfig{JWTSecret: "jwt-secret"},
		Vault:    config.VaultConfig{Secret: "vault-secret-0123456789"},
		Progress: config.ProgressConfig{Timezone: "Asia/Kolkata", MaxTxAttempts: 5, RetryBackoff: 1},
		Log:      config.LogConfig{Level: "info", Format: "json"},
	}
}

func TestHealthEndpoints(t *testing.T) {
	mux := newMux(nil, nil)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "healthz returns 200",
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:       "readyz returns 200",
			path:       "/readyz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			mux.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestReadyz_FailingDependency(t *testing.T) {
	mux := newMux(nil, map[string]probe{
		"database": func(context.Context) error { return nil },
		"cache":    func(context.Context) error { return errors.New("connection refused") },
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"cache":"connection refused"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "database") {
		t.Errorf("healthy dependency reported: %s", rec.Body.String())
	}
}

func TestNewAPI_InMemory(t *testing.T) {
	api, err := newAPI(testConfig(), memoryStores())
	if err != nil {
		t.Fatalf("newAPI() error = %v", err)
	}
	mux := newMux(api, nil)

	tests := []struct {
		path string
		want int
	}{
		{"/api/videos", http.StatusOK},
		{"/api/ai/tools", http.StatusOK},
		{"/api/me/stats", http.StatusUnauthorized},
		{"/api/admin/learners", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestNewAPI_ShortVaultSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Vault.Secret = "short"
	if _, err := newAPI(cfg, memoryStores()); err == nil {
		t.Fatal("expected error for short vault secret")
	}
}

func TestNewLogger(t *testing.T) {
	cfg := testConfig()
	cfg.Log.Level = "debug"
	if !newLogger(cfg).Enabled(context.Background(), -4) {
		t.Error("debug level not enabled")
	}
	cfg.Log.Format = "text"
	cfg.Log.Level = "error"
	if newLogger(cfg).Enabled(context.Background(), 0) {
		t.Error("info enabled at error level")
	}
}

func TestMemoryStores_DiscardsEvents(t *testing.T) {
	if _, ok := memoryStores().events.(progress.NopEventLogger); !ok {
		t.Errorf("events = %T, want progress.NopEventLogger", memoryStores().events)
	}
}
