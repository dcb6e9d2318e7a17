package logging

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation id between the UI host, the upload
// service and the logs.
const RequestIDHeader = "X-Request-ID"

// HTTPLogger logs one entry per served request.
type HTTPLogger struct {
	logger *Logger
}

// NewHTTPLogger creates a new HTTP logger.
func NewHTTPLogger(logger *Logger) *HTTPLogger {
	if logger == nil {
		logger = Discard()
	}
	return &HTTPLogger{logger: logger}
}

// statusRecorder captures status and size. Bodies are not captured because
// upload requests carry raw image bytes.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.status = status
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Middleware logs method, path, status and duration for every request. An
// incoming X-Request-ID is reused so proxied requests keep their id.
func (h *HTTPLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
			r.Header.Set(RequestIDHeader, requestID)
		}

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		recorder.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(recorder, r)

		duration := time.Since(start).Milliseconds()
		fields := map[string]any{
			"method":         r.Method,
			"path":           r.URL.Path,
			"status":         recorder.status,
			"size":           recorder.size,
			"remote_addr":    r.RemoteAddr,
			"user_agent":     r.UserAgent(),
			"content_type":   r.Header.Get("Content-Type"),
			"content_length": r.ContentLength,
		}
		if r.URL.RawQuery != "" {
			fields["query"] = r.URL.RawQuery
		}

		level := INFO
		switch {
		case recorder.status >= 500:
			level = ERROR
		case recorder.status >= 400:
			level = WARN
		}
		if !h.logger.Enabled(level) {
			return
		}
		entry := h.logger.entry(level, "http", fmt.Sprintf("%s %s %d", r.Method, r.URL.Path, recorder.status), fields)
		entry.RequestID = requestID
		entry.Duration = &duration
		h.logger.write(entry)
	})
}
