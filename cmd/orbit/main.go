// main is the entry point of the Orbit telemetry aggregation service.
// It initializes the configuration, logger, database, GeoIP provider, control
// plane client, secondary tracker and poll loop, then serves the read API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iwpg/orbit/internal/amp"
	"github.com/iwpg/orbit/internal/config"
	"github.com/iwpg/orbit/internal/geoip"
	"github.com/iwpg/orbit/internal/logger"
	"github.com/iwpg/orbit/internal/maintenance"
	"github.com/iwpg/orbit/internal/peaks"
	"github.com/iwpg/orbit/internal/poller"
	"github.com/iwpg/orbit/internal/server"
	"github.com/iwpg/orbit/internal/storage"
	"github.com/iwpg/orbit/internal/tracker"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Parse()

	logger.Setup(cfg.Logger)
	log.Info().Msg("Starting orbit service...")

	// Database
	store, err := storage.New(cfg.Storage.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}()

	// One-shot maintenance tasks
	if maintenance.Run(cfg, store) {
		return
	}

	// Apply retention at startup, then periodically
	if deleted, err := store.Prune(cfg.Storage.Retention); err != nil {
		log.Error().Err(err).Msg("Startup prune failed")
	} else if deleted > 0 {
		log.Info().Int64("deleted", deleted).Msg("Pruned expired samples")
	}

	// GeoIP is optional: country enrichment only
	var geoProvider *geoip.Provider
	if cfg.GeoIP.Path != "" {
		if err := geoip.EnsureDB(cfg.GeoIP.Path, cfg.GeoIP.URL, cfg.GeoIP.Interval); err != nil {
			log.Error().Err(err).Msg("Failed to download GeoIP database")
		}
		geoProvider, err = geoip.Open(cfg.GeoIP.Path)
		if err != nil {
			log.Error().Err(err).Msg("Failed to open GeoIP database, country detection disabled")
			geoProvider = nil
		} else {
			defer func() {
				if err := geoProvider.Close(); err != nil {
					log.Error().Err(err).Msg("Error closing GeoIP provider")
				}
			}()
		}
	}

	// Control plane client
	panel := amp.New(amp.Options{
		URL:      cfg.Panel.URL,
		Username: cfg.Panel.Username,
		Password: cfg.Panel.Password,
		Timeout:  cfg.Panel.Timeout,
	})

	// Secondary source
	var secondary poller.SecondaryFetcher
	if servers := trackedServers(cfg); len(servers) > 0 {
		backend, err := trackerBackend(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid tracker configuration")
		}
		secondary = tracker.New(backend, servers, cfg.Tracker.Timeout)
	} else {
		log.Info().Msg("No tracked servers configured, secondary source disabled")
	}

	// Peak tracking with daily wall-clock reset
	peakTracker := peaks.New()
	hour, minute := cfg.Peaks.ResetClock()
	peakTracker.ScheduleReset(hour, minute, cfg.Peaks.UTCOffset)
	defer peakTracker.Stop()

	// Poll loop
	poll := poller.New(panel, secondary, peakTracker, store, cfg.Poll.Interval)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poll.Start(ctx)

	// Periodic retention enforcement
	pruneTicker := time.NewTicker(6 * time.Hour)
	defer pruneTicker.Stop()
	go func() {
		for range pruneTicker.C {
			if deleted, err := store.Prune(cfg.Storage.Retention); err != nil {
				log.Error().Err(err).Msg("Periodic prune failed")
			} else if deleted > 0 {
				log.Info().Int64("deleted", deleted).Msg("Pruned expired samples")
			}
		}
	}()

	// HTTP read API
	srv := server.New(poll, store, geoProvider, cfg)
	httpServer := srv.Serve(cfg.Server.Address)

	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop timers before the DB closes so no refresh fires after teardown
	poll.Stop()
	peakTracker.Stop()

	log.Info().Msg("Server exited")
}

func trackedServers(cfg *config.Config) []tracker.Server {
	parsed := cfg.Tracker.ParseServers()
	servers := make([]tracker.Server, 0, len(parsed))
	for _, p := range parsed {
		servers = append(servers, tracker.Server{ID: p.ID, Label: p.Label})
	}

	return servers
}

func trackerBackend(cfg *config.Config) (tracker.Backend, error) {
	switch cfg.Tracker.Backend {
	case "json":
		return tracker.NewJSON(cfg.Tracker.BaseURL, cfg.Tracker.UserAgent, cfg.Tracker.Timeout), nil
	case "a2s":
		return tracker.NewA2S(cfg.Tracker.Timeout, cfg.Tracker.BufferSize), nil
	default:
		return tracker.NewHTML(cfg.Tracker.BaseURL, cfg.Tracker.UserAgent, cfg.Tracker.Timeout), nil
	}
}
