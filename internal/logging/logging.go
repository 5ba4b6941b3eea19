// Package logging configures the process-wide phuslu logger and provides the
// HTTP request logging middleware.
package logging

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/phuslu/log"

	"github.com/lukeacampbell/Stock-News-Sentiment/internal/config"
)

// New builds a logger for cfg writing to w. Format "json" emits one JSON object
// per line; anything else uses the colourised console writer.
func New(cfg config.LoggingConfig, w io.Writer) log.Logger {
	logger := log.Logger{
		Level:      log.ParseLevel(strings.ToLower(cfg.Level)),
		TimeFormat: time.RFC3339,
	}
	if cfg.Format == "json" {
		logger.Writer = &log.IOWriter{Writer: w}
	} else {
		logger.Writer = &log.ConsoleWriter{
			Writer:         w,
			ColorOutput:    isTerminal(w),
			QuoteString:    true,
			EndWithMessage: true,
		}
	}
	return logger
}

// Setup installs a logger for cfg as log.DefaultLogger, writing to stderr.
func Setup(cfg config.LoggingConfig) {
	log.DefaultLogger = New(cfg, os.Stderr)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && log.IsTerminal(f.Fd())
}

// RequestLogger logs one line per HTTP request with status, size, and latency.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			entry := log.Info()
			if status >= http.StatusInternalServerError {
				entry = log.Error()
			}
			entry.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		}()

		next.ServeHTTP(ww, r)
	})
}
