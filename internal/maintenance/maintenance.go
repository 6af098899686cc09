// Package maintenance provides one-shot database tasks invoked from the CLI.
package maintenance

import (
	"os"
	"time"

	"github.com/iwpg/orbit/internal/config"
	"github.com/iwpg/orbit/internal/fake"
	"github.com/iwpg/orbit/internal/storage"
	"github.com/rs/zerolog/log"
)

// Run checks if any maintenance flags are set and executes the corresponding
// task. Returns true if a task ran (indicating the program should exit).
func Run(cfg *config.Config, store *storage.Repository) bool {
	switch {
	case cfg.Storage.PruneNow:
		log.Info().Dur("retention", cfg.Storage.Retention).Msg("Pruning samples...")

		count, err := store.Prune(cfg.Storage.Retention)
		if err != nil {
			log.Error().Err(err).Msg("Failed to prune samples")
		} else {
			log.Info().Int64("deleted", count).Msg("Prune finished")
		}

		return true

	case cfg.Storage.Stats:
		printStats(cfg.Storage.Path, store)
		return true

	case cfg.Storage.GenerateCount > 0:
		fake.GenerateSamples(store, cfg.Storage.GenerateCount)
		return true
	}

	return false
}

func printStats(path string, store *storage.Repository) {
	count, err := store.CountSamples()
	if err != nil {
		log.Error().Err(err).Msg("Failed to count samples")
		return
	}

	oldest, err := store.OldestSample()
	if err != nil {
		log.Error().Err(err).Msg("Failed to read oldest sample")
		return
	}

	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}

	event := log.Info().
		Int64("samples", count).
		Int64("db_bytes", size)
	if !oldest.IsZero() {
		event = event.
			Time("oldest", oldest).
			Dur("span", time.Since(oldest))
	}
	event.Msg("Database statistics")
}
