// Package poller drives the fetch-reconcile-record cycle on a fixed interval
// and exposes the latest aggregated snapshot to consumers.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iwpg/orbit/internal/models"
	"github.com/iwpg/orbit/internal/peaks"
	"github.com/iwpg/orbit/internal/reconcile"
	"github.com/rs/zerolog/log"
)

// state names one phase of a poll cycle, for logging.
type state string

const (
	stateIdle        state = "idle"
	stateFetching    state = "fetching"
	stateReconciling state = "reconciling"
	stateRecording   state = "recording"
)

// Discoverer yields the primary instance list for one cycle.
type Discoverer interface {
	DiscoverInstances(ctx context.Context) ([]models.Instance, error)
}

// SecondaryFetcher yields the secondary per-server records for one cycle.
type SecondaryFetcher interface {
	FetchAll(ctx context.Context) []models.TrackedServer
}

// SampleStore persists one cycle's samples as an atomic batch.
type SampleStore interface {
	AppendSamples(samples []models.Sample) error
}

// Poller owns the poll loop. Cycles never overlap: a tick that arrives while
// a cycle is still running is skipped, guarded explicitly since the ticker
// itself gives no such guarantee.
type Poller struct {
	discoverer Discoverer
	secondary  SecondaryFetcher
	peaks      *peaks.Tracker
	store      SampleStore

	interval time.Duration
	busy     atomic.Bool

	mu       sync.RWMutex
	snapshot models.Snapshot

	cancel context.CancelFunc
	done   chan struct{}
}

// New wires a Poller. secondary and store may be nil when the corresponding
// concern is not configured.
func New(discoverer Discoverer, secondary SecondaryFetcher, tracker *peaks.Tracker, store SampleStore, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}

	return &Poller{
		discoverer: discoverer,
		secondary:  secondary,
		peaks:      tracker,
		store:      store,
		interval:   interval,
	}
}

// Start launches the poll loop: one immediate cycle, then one per interval.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)

		p.RunCycle(ctx)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.RunCycle(ctx)
			}
		}
	}()

	log.Info().Dur("interval", p.interval).Msg("Poller started")
}

// Stop cancels the loop and waits for an in-flight cycle to finish.
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}

	p.cancel()
	<-p.done
	log.Info().Msg("Poller stopped")
}

// Status returns the latest snapshot. The prior snapshot survives failed
// cycles, so consumers always see the last good data.
func (p *Poller) Status() models.Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.snapshot
}

// RunCycle executes one fetch-reconcile-record cycle. It returns false when
// skipped because a previous cycle is still running, or when discovery failed
// outright and the prior snapshot was kept.
func (p *Poller) RunCycle(ctx context.Context) bool {
	if !p.busy.CompareAndSwap(false, true) {
		log.Warn().Msg("Previous poll cycle still running, tick skipped")
		return false
	}
	defer p.busy.Store(false)

	started := time.Now()
	log.Debug().Str("state", string(stateFetching)).Msg("Poll cycle")

	instances, err := p.discoverer.DiscoverInstances(ctx)
	if err != nil {
		// Whole-cycle failure: keep the prior snapshot in place
		log.Error().Err(err).Msg("Instance discovery failed, keeping previous snapshot")
		return false
	}

	var tracked []models.TrackedServer
	if p.secondary != nil {
		tracked = p.secondary.FetchAll(ctx)
	}

	log.Debug().Str("state", string(stateReconciling)).Msg("Poll cycle")
	merged := reconcile.Merge(instances, tracked)

	if p.peaks != nil {
		for i := range tracked {
			if tracked[i].Status == models.StatusOnline {
				p.peaks.Record(tracked[i].ID, tracked[i].Players)
			}
			tracked[i].Peak = p.peaks.Peak(tracked[i].ID)
		}
		for i := range merged {
			p.peaks.Record(merged[i].ID, merged[i].Players.Current)
		}
	}

	log.Debug().Str("state", string(stateRecording)).Msg("Poll cycle")
	if p.store != nil {
		if err := p.store.AppendSamples(buildSamples(merged, started)); err != nil {
			// Storage failure degrades history only; the snapshot still updates
			log.Error().Err(err).Msg("Failed to record metric samples")
		}
	}

	snapshot := models.Snapshot{
		FetchedAt: started,
		Instances: merged,
		Tracked:   tracked,
	}
	snapshot.TotalPlayers, snapshot.TotalMax = snapshot.Totals()

	p.mu.Lock()
	p.snapshot = snapshot
	p.mu.Unlock()

	log.Info().
		Int("instances", len(merged)).
		Int("players", snapshot.TotalPlayers).
		Dur("duration", time.Since(started)).
		Str("state", string(stateIdle)).
		Msg("Poll cycle complete")

	return true
}

func buildSamples(instances []models.Instance, at time.Time) []models.Sample {
	samples := make([]models.Sample, 0, len(instances))
	for i := range instances {
		inst := &instances[i]
		samples = append(samples, models.Sample{
			Timestamp:    at,
			InstanceID:   inst.ID,
			InstanceName: inst.FriendlyName,
			Players:      inst.Players.Current,
			MaxPlayers:   inst.Players.Max,
			Queue:        inst.Players.Queue,
			CPUPercent:   inst.CPU.Percent,
			MemoryValue:  inst.Memory.Value,
			MemoryMax:    inst.Memory.Max,
		})
	}

	return samples
}
