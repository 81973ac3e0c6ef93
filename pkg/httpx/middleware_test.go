package httpx

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

func TestRequestIDMiddleware_Generates(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/plots", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("request id %q is not a UUID: %v", seen, err)
	}
	if got := w.Header().Get(RequestIDHeader); got != seen {
		t.Errorf("response header = %q, want %q", got, seen)
	}
}

func TestRequestIDMiddleware_ReusesValidHeader(t *testing.T) {
	want := uuid.NewString()

	tests := []struct {
		name   string
		header string
		reuse  bool
	}{
		{"valid uuid", want, true},
		{"garbage", "not-a-uuid", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = RequestID(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if (seen == tt.header) != tt.reuse {
				t.Errorf("request id = %q, header = %q, reuse = %v", seen, tt.header, tt.reuse)
			}
			if seen == "" {
				t.Error("request id should never be empty")
			}
		})
	}
}

func TestRequestID_Missing(t *testing.T) {
	if got := RequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); got != "" {
		t.Errorf("RequestID() = %q, want empty", got)
	}
}

func TestLoggingMiddleware_IncludesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	id := uuid.NewString()

	h := RequestIDMiddleware(LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))
	req := httptest.NewRequest(http.MethodGet, "/plots/x", nil)
	req.Header.Set(RequestIDHeader, id)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), "request_id="+id) {
		t.Errorf("log output missing request id: %s", buf.String())
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rejected := 0
	limiter := rate.NewLimiter(rate.Limit(1), 2)
	h := RateLimitMiddleware(limiter, func() { rejected++ })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/plots", nil))
		codes[i] = w.Code
		if i == 2 {
			if w.Header().Get("Retry-After") != "1" {
				t.Errorf("Retry-After = %q, want 1", w.Header().Get("Retry-After"))
			}
			if !strings.Contains(w.Body.String(), "rate limit exceeded") {
				t.Errorf("body = %s", w.Body.String())
			}
		}
	}

	want := []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d status = %d, want %d", i, codes[i], want[i])
		}
	}
	if rejected != 1 {
		t.Errorf("onReject called %d times, want 1", rejected)
	}
}

func TestRateLimitMiddleware_NilCallback(t *testing.T) {
	limiter := rate.NewLimiter(rate.Limit(1), 1)
	h := RateLimitMiddleware(limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/plots", nil))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/plots", nil))

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
}

func TestRateLimitMiddleware_FractionalLimitHeader(t *testing.T) {
	limiter := rate.NewLimiter(rate.Limit(0.5), 2)
	h := RateLimitMiddleware(limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/plots", nil))

	if got := w.Header().Get("X-RateLimit-Limit"); got != "0.5" {
		t.Errorf("X-RateLimit-Limit = %q, want 0.5", got)
	}
}

func TestWrap_PanicIsLoggedWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	id := uuid.NewString()

	h := Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("renderer exploded")
	}), logger)
	req := httptest.NewRequest(http.MethodPost, "/plots", nil)
	req.Header.Set(RequestIDHeader, id)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status code = %d, want 500", w.Code)
	}
	if got := w.Header().Get(RequestIDHeader); got != id {
		t.Errorf("response request id = %q, want %q", got, id)
	}

	var panicLine, accessLine string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		switch {
		case strings.Contains(line, "panic recovered"):
			panicLine = line
		case strings.Contains(line, "HTTP request"):
			accessLine = line
		}
	}
	if !strings.Contains(panicLine, "request_id="+id) {
		t.Errorf("panic log missing request id: %q", panicLine)
	}
	if !strings.Contains(accessLine, "status=500") || !strings.Contains(accessLine, "request_id="+id) {
		t.Errorf("access log = %q, want status=500 and the request id", accessLine)
	}
}
