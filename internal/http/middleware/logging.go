package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tailaid/tailaid-api/internal/auth"
	"github.com/tailaid/tailaid-api/internal/logger"
	"go.uber.org/zap"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	written     int64
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// requestState is shared by the middleware chain of a single request.
// Authentication runs in route groups below Logging, so the user is recorded
// here by TrackUser instead of being read back from the request context.
type requestState struct {
	requestID string
	user      *auth.UserContext
}

type stateKey struct{}

func stateFromContext(ctx context.Context) *requestState {
	state, _ := ctx.Value(stateKey{}).(*requestState)
	return state
}

// RequestID returns the id Logging assigned to the request, if any
func RequestID(ctx context.Context) string {
	if state := stateFromContext(ctx); state != nil {
		return state.requestID
	}
	return ""
}

// TrackUser records the authenticated caller for the request log line.
// Mount it after the auth middleware.
func TrackUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if state := stateFromContext(r.Context()); state != nil {
			if userCtx, ok := auth.FromContext(r.Context()); ok {
				state.user = userCtx
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger scopes log to the request and, once known, its caller
func requestLogger(log *zap.Logger, r *http.Request) *zap.Logger {
	log = logger.WithRequest(log, r.Method, r.URL.Path, RequestID(r.Context()))
	if state := stateFromContext(r.Context()); state != nil && state.user != nil {
		log = logger.WithUser(log, state.user.UserID.String(), state.user.Name, string(state.user.Role))
	}
	return log
}

// Logging middleware logs HTTP requests. An incoming X-Request-ID is reused so
// clients can correlate their own logs.
func Logging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" || len(requestID) > 64 {
				requestID = uuid.New().String()
			}
			w.Header().Set(RequestIDHeader, requestID)

			state := &requestState{requestID: requestID}
			r = r.WithContext(context.WithValue(r.Context(), stateKey{}, state))

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start)

			requestLogger(log, r).Info(
				fmt.Sprintf("%s %-30s -> %3d (%s)",
					r.Method,
					r.URL.Path,
					rw.statusCode,
					duration.Truncate(time.Microsecond),
				),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Int("status_code", rw.statusCode),
				zap.Int64("response_size", rw.written),
				zap.Duration("duration", duration),
			)
		})
	}
}
