package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestInit_WithValidConfig_Succeeds(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://manga.example.vn")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg == nil {
		t.Fatal("expected non-nil config")
	}

	if cfg.APIBaseURL != "https://manga.example.vn" {
		t.Errorf("APIBaseURL = %q, want https://manga.example.vn", cfg.APIBaseURL)
	}

	// Verify that slog global logger is configured for JSON output
	slog.Default().Info("init test")
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log output, got error: %v\nraw: %s", err, buf.String())
	}
	if entry["msg"] != "init test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "init test")
	}
}

func TestInit_WithMissingConfig_ReturnsError(t *testing.T) {
	t.Setenv("API_BASE_URL", "")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err == nil {
		t.Fatal("expected error for missing required env vars, got nil")
	}
	if cfg != nil {
		t.Error("expected nil config on error")
	}
}

// TestNewComponents_WiresRouter は設定から組み立てたルーターが運用エンドポイントに応答することを検証する。
func TestNewComponents_WiresRouter(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://127.0.0.1:9")
	t.Setenv("ALLOW_PRIVATE_UPSTREAM", "true")
	t.Setenv("TIMEZONE", "Asia/Ho_Chi_Minh")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	c, err := newComponents(cfg, slog.Default())
	if err != nil {
		t.Fatalf("newComponents: %v", err)
	}
	defer c.rateLimiter.Stop()

	if c.location.String() != "Asia/Ho_Chi_Minh" {
		t.Errorf("location = %q", c.location)
	}

	// 再検証前は参照データがない
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/publishers", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("/api/publishers status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	w = httptest.NewRecorder()
	c.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Errorf("/metrics status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestNewComponents_InvalidTimezone(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://manga.example.vn")
	t.Setenv("TIMEZONE", "Mars/Olympus_Mons")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	if _, err := newComponents(cfg, slog.Default()); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}
