package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/funlogix/Youtube-transcriber-api/internal/logger"
)

// RequestID attaches a request ID to the context and logs the
// request/response pair. The ID is taken from the X-Request-ID header when a
// proxy in front of the service supplies one, otherwise a fresh one is
// generated so transcription steps can be correlated in the logs.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := logger.WithRequestID(r.Context(), requestID)
		r = r.WithContext(ctx)

		logger.Info(ctx, "incoming request", logger.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"remote": r.RemoteAddr,
		})

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start)

		logger.Info(ctx, "request completed", logger.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status_code": wrapped.statusCode,
			"duration_ms": duration.Milliseconds(),
		})
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode    int
	headerWritten bool
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.headerWritten = true
	rw.ResponseWriter.WriteHeader(code)
}

// Write method also needs to be overridden because calling Write()
// implicitly calls WriteHeader(200) if it hasn't been called yet
func (rw *responseWriter) Write(data []byte) (int, error) {
	if !rw.headerWritten {
		rw.statusCode = http.StatusOK
		rw.headerWritten = true
	}
	return rw.ResponseWriter.Write(data)
}
