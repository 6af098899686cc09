package server

import (
	"time"

	"github.com/iwpg/orbit/internal/geoip"
	"github.com/iwpg/orbit/internal/models"
	"github.com/iwpg/orbit/internal/storage"
)

// StatusSource yields the latest aggregated snapshot.
type StatusSource interface {
	Status() models.Snapshot
}

// Server holds the dependencies and configuration required to serve the
// read-only consumer API.
type Server struct {
	// source provides the in-memory snapshot maintained by the poller.
	source StatusSource

	// storage provides the persisted sample series for history queries.
	storage *storage.Repository

	// geoip resolves instance endpoint countries. Nil disables enrichment.
	geoip *geoip.Provider

	// authToken protects /api/* with a Bearer token. Empty disables auth.
	authToken string

	// maxLookback caps the history window a client may request.
	maxLookback time.Duration

	// rateCount/rateWindow configure the per-IP request limiter.
	rateCount  int
	rateWindow time.Duration

	// trustProxy enables X-Forwarded-For resolution of the client IP.
	trustProxy bool
}
