package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	apierrors "github.com/narvanalabs/mission-console/internal/api/errors"
	"github.com/narvanalabs/mission-console/pkg/logger"
)

func TestRecoveryWritesStructuredError(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&logs, nil))

	handler := chimiddleware.RequestID(Recovery(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/logs", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var body apierrors.APIError
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Code != apierrors.CodeInternalError || body.RequestID == "" {
		t.Fatalf("unexpected body %+v", body)
	}
	if !strings.Contains(logs.String(), "panic recovered") {
		t.Fatalf("panic not logged: %s", logs.String())
	}
}

func TestRequestLogger(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&logs, nil))

	handler := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("hi"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health?x=1", nil))

	var record map[string]any
	if err := json.Unmarshal(logs.Bytes(), &record); err != nil {
		t.Fatalf("invalid log line %q: %v", logs.String(), err)
	}
	if record["status"] != float64(http.StatusTeapot) || record["path"] != "/health" || record["bytes"] != float64(2) {
		t.Fatalf("unexpected log record %v", record)
	}
}

func TestRequestLoggerCarriesRequestID(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&logs, nil))

	var seen string
	handler := chimiddleware.RequestID(RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(logger.RequestIDKey).(string)
	})))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/logs", nil))

	if seen == "" {
		t.Fatal("request id not stored under logger.RequestIDKey")
	}
	var record map[string]any
	if err := json.Unmarshal(logs.Bytes(), &record); err != nil {
		t.Fatalf("invalid log line %q: %v", logs.String(), err)
	}
	if record["request_id"] != seen {
		t.Fatalf("request_id = %v, want %q", record["request_id"], seen)
	}
}
