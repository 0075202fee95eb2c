// Package logger holds the process-wide zap logger and the request logging
// middleware of the HTTP API.
package logger

import (
	"errors"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

// Log is the global SugaredLogger. It discards everything until Init is called.
var Log = zap.NewNop().Sugar()

// Init replaces Log with a development logger at the named level
// ("debug", "info", "warn", "error", "fatal").
func Init(level string) error {
	atomicLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = atomicLevel

	built, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = built.Sugar()

	return nil
}

// Sync flushes buffered entries. Syncing a terminal reports os.ErrInvalid,
// which is ignored.
func Sync() error {
	err := Log.Sync()
	if errors.Is(err, os.ErrInvalid) {
		return nil
	}

	return err
}

// statusRecorder remembers what a handler sent back.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rec *statusRecorder) WriteHeader(statusCode int) {
	rec.status = statusCode
	rec.ResponseWriter.WriteHeader(statusCode)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += n

	return n, err
}

// WithLoggingHTTPMiddleware writes one info entry per request with its
// uri, method, status, duration and response size.
func WithLoggingHTTPMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		started := time.Now()

		h.ServeHTTP(rec, r)

		Log.Infow("request served",
			"uri", r.RequestURI,
			"method", r.Method,
			"status", rec.status,
			"duration", time.Since(started),
			"size", rec.bytes,
		)
	})
}
