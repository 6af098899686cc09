// Package fake generates plausible historical sample data for development
// and chart testing.
package fake

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/iwpg/orbit/internal/models"
	"github.com/iwpg/orbit/internal/storage"
	"github.com/rs/zerolog/log"
)

// GenerateSamples fills the store with the given number of days of synthetic
// per-instance history at a one-minute resolution reduced to 10-minute steps.
// Player counts follow a daily sine curve with noise so charts look realistic.
func GenerateSamples(store *storage.Repository, days int) {
	instances := []struct {
		id   string
		name string
		max  int
	}{
		{"a1f2c3d4-0001-4000-8000-000000000001", "Wasteland 1", 128},
		{"a1f2c3d4-0002-4000-8000-000000000002", "Wasteland 2", 64},
	}

	step := 10 * time.Minute
	start := time.Now().Add(-time.Duration(days) * 24 * time.Hour).Truncate(step)

	var total int
	for _, inst := range instances {
		var batch []models.Sample
		for ts := start; ts.Before(time.Now()); ts = ts.Add(step) {
			// Peak around 20:00, trough around 08:00
			hour := float64(ts.Hour()) + float64(ts.Minute())/60
			wave := (math.Sin((hour-14)/24*2*math.Pi) + 1) / 2
			players := int(wave*float64(inst.max)*0.8) + rand.Intn(8)
			if players > inst.max {
				players = inst.max
			}

			batch = append(batch, models.Sample{
				Timestamp:    ts,
				InstanceID:   inst.id,
				InstanceName: inst.name,
				Players:      players,
				MaxPlayers:   inst.max,
				Queue:        rand.Intn(3),
				CPUPercent:   20 + wave*50 + rand.Float64()*10,
				MemoryValue:  2048 + wave*4096,
				MemoryMax:    8192,
			})

			// Commit in day-sized batches to keep transactions bounded
			if len(batch) >= 144 {
				if err := store.AppendSamples(batch); err != nil {
					log.Error().Err(err).Msg("Failed to write fake samples")
					return
				}
				total += len(batch)
				batch = batch[:0]
			}
		}

		if err := store.AppendSamples(batch); err != nil {
			log.Error().Err(err).Msg("Failed to write fake samples")
			return
		}
		total += len(batch)
	}

	log.Info().Str("span", fmt.Sprintf("%dd", days)).Int("samples", total).Msg("Fake data generated")
}
