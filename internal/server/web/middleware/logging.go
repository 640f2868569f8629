package middleware

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pandeptwidyaop/uatrack/internal/db/models"
	"github.com/pandeptwidyaop/uatrack/pkg/logger"
)

// unknownClientPlaceholder is logged when no client name was detected.
const unknownClientPlaceholder = "Unknown"

// responseWriter wraps http.ResponseWriter to capture status code and body size
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	written     int64
	wroteHeader bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK, // Default status code
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.wroteHeader = true
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Flush implements http.Flusher interface for streaming responses
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// trackerLogger tags tracker output so it can be filtered from access logs.
func trackerLogger() *zerolog.Logger {
	return logger.WithField("component", "tracker")
}

// logTrackedRequest emits the one-line summary of a tracked request.
// 5xx responses log at error level, 4xx at warn, everything else at info.
func logTrackedRequest(log *models.RequestLog, bytes int64) {
	l := trackerLogger()
	var event *zerolog.Event
	switch {
	case log.StatusCode >= 500:
		event = l.Error()
	case log.StatusCode >= 400:
		event = l.Warn()
	default:
		event = l.Info()
	}

	client := unknownClientPlaceholder
	if log.DetectedClient != nil {
		client = *log.DetectedClient
	}

	event.
		Str("method", log.Method).
		Str("path", log.Path).
		Str("user_agent_type", log.UserAgentType.String()).
		Str("detected_client", client).
		Int("status", log.StatusCode).
		Int64("processing_time_ms", log.ProcessingTimeMs).
		Int64("bytes", bytes).
		Msg("Request tracked")
}
