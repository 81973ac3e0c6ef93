package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDHeader carries the request identifier in both directions.
const RequestIDHeader = "X-Request-Id"

// RequestIDMiddleware tags every request with an identifier, reusing a valid
// UUID sent by the client and generating one otherwise. The identifier is
// echoed in the response header and picked up by LoggingMiddleware.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// RequestID returns the identifier set by RequestIDMiddleware, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RateLimitMiddleware rejects requests with 429 once limiter runs out of
// tokens. onReject, if non-nil, is called for every rejected request.
func RateLimitMiddleware(limiter *rate.Limiter, onReject func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				if onReject != nil {
					onReject()
				}
				w.Header().Set("Retry-After", "1")
				WriteErrorMessage(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.FormatFloat(float64(limiter.Limit()), 'g', -1, 64))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
			next.ServeHTTP(w, r)
		})
	}
}

// Wrap applies the standard middleware stack. Request IDs are assigned
// first and panics are recovered innermost, so a panicking request still
// gets an access log line carrying its request ID.
func Wrap(handler http.Handler, logger *slog.Logger) http.Handler {
	return RequestIDMiddleware(LoggingMiddleware(logger)(RecoveryMiddleware(logger)(handler)))
}
