package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/iwpg/orbit/internal/models"
	"github.com/iwpg/orbit/internal/vars"
	"github.com/rs/zerolog/log"
)

// handleIndex serves build information as JSON.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(vars.Info())
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleStatus returns the latest aggregated snapshot, enriched with endpoint
// country codes when a GeoIP provider is available.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.source.Status()

	if snapshot.Instances == nil {
		snapshot.Instances = []models.Instance{}
	}
	s.geoip.Enrich(snapshot.Instances)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snapshot)
}

// handleHistory returns per-instance time series for the last N hours.
// Query params: ?hours=24 (clamped to the configured maximum lookback).
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid hours", http.StatusBadRequest)
			return
		}
		hours = n
	}

	lookback := time.Duration(hours) * time.Hour
	if lookback > s.maxLookback {
		lookback = s.maxLookback
	}

	series, err := s.storage.AllSeries(time.Now().Add(-lookback))
	if err != nil {
		log.Error().Err(err).Msg("Failed to query sample history")
		http.Error(w, "Database Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(series)
}
