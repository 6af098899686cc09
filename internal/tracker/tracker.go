// Package tracker polls a read-only secondary source for per-server player
// counts. All payload parsing lives behind the Backend interface so the
// extraction logic can be swapped or tested against captured fixtures without
// touching the rest of the pipeline.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/iwpg/orbit/internal/models"
	"github.com/rs/zerolog/log"
)

// Server identifies one tracked logical server.
type Server struct {
	// ID is backend-specific: a path identifier for HTTP backends,
	// host:port for the a2s backend.
	ID    string
	Label string
}

// Backend fetches one server's counts from the secondary source.
type Backend interface {
	Fetch(ctx context.Context, srv Server) (models.TrackedServer, error)
}

// Fetcher polls every configured server through one Backend.
type Fetcher struct {
	backend Backend
	servers []Server
	timeout time.Duration
}

// New creates a Fetcher over the given backend and server list.
func New(backend Backend, servers []Server, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Fetcher{backend: backend, servers: servers, timeout: timeout}
}

// Servers returns the configured server list.
func (f *Fetcher) Servers() []Server {
	return f.servers
}

// FetchAll queries every server concurrently and returns one record per
// server in configuration order. An individual failure yields a record with
// StatusError and zero counts instead of aborting the batch.
func (f *Fetcher) FetchAll(ctx context.Context) []models.TrackedServer {
	out := make([]models.TrackedServer, len(f.servers))

	var wg sync.WaitGroup
	for i, srv := range f.servers {
		wg.Add(1)
		go func(i int, srv Server) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
			defer cancel()

			rec, err := f.backend.Fetch(fetchCtx, srv)
			if err != nil {
				log.Warn().Err(err).
					Str("server", srv.Label).
					Msg("Secondary source fetch failed")

				out[i] = models.TrackedServer{
					ID:     srv.ID,
					Label:  srv.Label,
					Name:   "Unavailable",
					Status: models.StatusError,
				}
				return
			}

			out[i] = rec
		}(i, srv)
	}
	wg.Wait()

	return out
}
