package httpadapter

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAccessLogWritesThroughInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := accessLogMiddleware(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad"}`))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/answers", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "http_request" {
		t.Fatalf("unexpected log message: %v", entry["msg"])
	}
	if entry["level"] != "WARN" {
		t.Fatalf("expected WARN for 4xx, got %v", entry["level"])
	}
	if got := entry["status"].(float64); got != http.StatusBadRequest {
		t.Fatalf("expected status 400 in log, got %v", got)
	}
	if got := entry["bytes"].(float64); got != float64(len(`{"error":"bad"}`)) {
		t.Fatalf("unexpected byte count in log: %v", got)
	}
}

func TestStatusRecorderDefaultsToOK(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := accessLogMiddleware(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if got := entry["status"].(float64); got != http.StatusOK {
		t.Fatalf("expected implicit 200, got %v", got)
	}
	if entry["level"] != "INFO" {
		t.Fatalf("expected INFO for 2xx, got %v", entry["level"])
	}
}
