// Package logger holds the process-wide zap logger and the request logging
// middleware used by the HTTP surface.
package logger

import (
	"errors"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the global sugared logger. It must be initialized via Init before
// any component logs; the app wiring does this right after loading config.
var Log *zap.SugaredLogger

type requestStats struct {
	status int
	bytes  int
}

// statusRecorder captures the status code and body size written by the
// wrapped handler so the middleware can log them afterwards.
type statusRecorder struct {
	http.ResponseWriter
	stats *requestStats
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	size, err := r.ResponseWriter.Write(b)
	r.stats.bytes += size

	return size, err
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.ResponseWriter.WriteHeader(statusCode)
	r.stats.status = statusCode
}

// Init builds the global logger at the given level ("debug", "info", ...).
func Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zl, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = zl.Sugar()

	return nil
}

// Sync flushes buffered entries; called on shutdown.
func Sync() error {
	if err := Log.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return err
	}

	return nil
}

// WithLoggingHTTPMiddleware logs one structured line per handled request:
// method, path, status, response size and handling time.
func WithLoggingHTTPMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		stats := &requestStats{}
		recorder := &statusRecorder{ResponseWriter: w, stats: stats}

		h.ServeHTTP(recorder, r)

		Log.Infow(
			"request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", stats.status,
			"bytes", stats.bytes,
			"duration", time.Since(start),
		)
	})
}
