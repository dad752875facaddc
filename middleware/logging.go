package middleware

import (
	"fmt"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// RequestLogger returns a chi request logger that writes through logger
func RequestLogger(logger *log.Logger) func(next http.Handler) http.Handler {
	return chimiddleware.RequestLogger(&StructuredLogger{Logger: logger})
}

// StructuredLogger is a chi LogFormatter backed by logrus
type StructuredLogger struct {
	Logger *log.Logger
}

// NewLogEntry starts a log entry for r. Only the path is logged; query
// strings may carry confirmation tokens.
func (l *StructuredLogger) NewLogEntry(r *http.Request) chimiddleware.LogEntry {
	fields := log.Fields{
		"http_method": r.Method,
		"remote_addr": r.RemoteAddr,
		"path":        r.URL.Path,
	}
	if reqID := chimiddleware.GetReqID(r.Context()); reqID != "" {
		fields["req_id"] = reqID
	}

	return &StructuredLoggerEntry{Logger: l.Logger.WithFields(fields)}
}

// StructuredLoggerEntry is one request's log entry
type StructuredLoggerEntry struct {
	Logger log.FieldLogger
}

func (l *StructuredLoggerEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra interface{}) {
	l.Logger.WithFields(log.Fields{
		"resp_status":       status,
		"resp_bytes_length": bytes,
		"resp_elapsed_ms":   float64(elapsed.Nanoseconds()) / 1000000.0,
	}).Info("request complete")
}

func (l *StructuredLoggerEntry) Panic(v interface{}, stack []byte) {
	l.Logger = l.Logger.WithFields(log.Fields{
		"stack": string(stack),
		"panic": fmt.Sprintf("%+v", v),
	})
}
