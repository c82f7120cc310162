// Package httpserver builds the process's http.Server.
package httpserver

import (
	"log/slog"
	"net/http"
	"time"
)

// Timeouts bound each phase of a request. Write must outlast the router's
// per-request timeout or clients see a reset instead of a 503.
type Timeouts struct {
	ReadHeader time.Duration
	Read       time.Duration
	Write      time.Duration
	Idle       time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		ReadHeader: 5 * time.Second,
		Read:       15 * time.Second,
		Write:      35 * time.Second,
		Idle:       60 * time.Second,
	}
}

type Option func(*http.Server)

func WithTimeouts(t Timeouts) Option {
	return func(s *http.Server) {
		s.ReadHeaderTimeout = t.ReadHeader
		s.ReadTimeout = t.Read
		s.WriteTimeout = t.Write
		s.IdleTimeout = t.Idle
	}
}

// WithLogger routes net/http's own error log (TLS handshakes, panics outside
// handlers) through logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *http.Server) {
		s.ErrorLog = slog.NewLogLogger(logger.Handler(), slog.LevelWarn)
	}
}

func New(addr string, handler http.Handler, opts ...Option) *http.Server {
	s := &http.Server{Addr: addr, Handler: handler}
	WithTimeouts(DefaultTimeouts())(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}
