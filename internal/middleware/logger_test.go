package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerMiddlewareEmitsRequestLine(t *testing.T) {
	var buf bytes.Buffer
	// InfoLevel matches the application logger; the request line must
	// survive it.
	log := zerolog.New(&buf).Level(zerolog.InfoLevel)

	h := LoggerMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/users/me?limit=5", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if out == "" {
		t.Fatal("request produced no log output")
	}
	if !strings.Contains(out, "GET /v1/users/me?limit=5") {
		t.Errorf("log output missing request line: %s", out)
	}
}
