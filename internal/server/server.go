// Package server implements the HTTP server, middleware, and request handlers
// for the read-only consumer API.
package server

import (
	"net/http"
	"time"

	"github.com/iwpg/orbit/internal/config"
	"github.com/iwpg/orbit/internal/geoip"
	"github.com/iwpg/orbit/internal/storage"
)

// New creates a Server instance over the poller snapshot, the sample store,
// and an optional GeoIP provider.
func New(source StatusSource, store *storage.Repository, geo *geoip.Provider, cfg *config.Config) *Server {
	maxLookback := cfg.Poll.MaxLookback
	if maxLookback <= 0 || maxLookback > cfg.Storage.Retention {
		maxLookback = cfg.Storage.Retention
	}

	return &Server{
		source:      source,
		storage:     store,
		geoip:       geo,
		authToken:   cfg.Server.AuthToken,
		maxLookback: maxLookback,
		rateCount:   cfg.RateLimit.Count,
		rateWindow:  cfg.RateLimit.Window,
		trustProxy:  cfg.Server.TrustProxy,
	}
}

// Run configures the HTTP routes and returns the main handler.
func (s *Server) Run() http.Handler {
	mux := http.NewServeMux()

	api := func(h http.HandlerFunc) http.Handler {
		return s.RateLimitMiddleware(AuthMiddleware(s.authToken, h))
	}

	mux.Handle("GET /api/status", api(s.handleStatus))
	mux.Handle("GET /api/history", api(s.handleHistory))
	mux.Handle("GET /healthz", http.HandlerFunc(s.handleHealth))
	mux.Handle("GET /", http.HandlerFunc(s.handleIndex))

	return s.LoggingMiddleware(mux)
}

// Serve wraps the handler in an http.Server with sane timeouts.
func (s *Server) Serve(address string) *http.Server {
	return &http.Server{
		Addr:         address,
		Handler:      s.Run(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
