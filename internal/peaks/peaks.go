// Package peaks tracks the maximum observed player count per logical server
// and clears it on a daily wall-clock boundary.
package peaks

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Tracker holds per-server peak player counts since the last reset.
type Tracker struct {
	mu    sync.RWMutex
	peaks map[string]int

	timerMu sync.Mutex
	timer   *time.Timer
	stopped bool

	// now is swappable for tests
	now func() time.Time
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{
		peaks: make(map[string]int),
		now:   time.Now,
	}
}

// Record updates the stored peak for serverID if players exceeds it.
func (t *Tracker) Record(serverID string, players int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if players > t.peaks[serverID] {
		t.peaks[serverID] = players
	}
}

// Peak returns the recorded maximum for serverID, zero if none.
func (t *Tracker) Peak(serverID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.peaks[serverID]
}

// Snapshot returns a copy of all current peaks.
func (t *Tracker) Snapshot() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]int, len(t.peaks))
	for k, v := range t.peaks {
		out[k] = v
	}

	return out
}

// Reset clears all peaks.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.peaks = make(map[string]int)
	t.mu.Unlock()

	log.Info().Msg("Peak player counts reset")
}

// ScheduleReset arranges for Reset to fire at the next occurrence of
// hour:minute in a fixed-offset zone (offsetHours east of UTC), and to
// reschedule itself after each fire. The boundary is a wall-clock instant,
// not an elapsed duration, so the delay is recomputed on every invocation.
// Call Stop to cancel.
func (t *Tracker) ScheduleReset(hour, minute, offsetHours int) {
	zone := time.FixedZone("reset", offsetHours*3600)

	var arm func()
	arm = func() {
		t.timerMu.Lock()
		defer t.timerMu.Unlock()
		if t.stopped {
			return
		}

		delay := nextResetDelay(t.now().In(zone), hour, minute)
		t.timer = time.AfterFunc(delay, func() {
			t.Reset()
			arm()
		})

		log.Debug().Dur("delay", delay).Msg("Peak reset scheduled")
	}

	arm()
}

// Stop cancels the pending reset timer.
func (t *Tracker) Stop() {
	t.timerMu.Lock()
	defer t.timerMu.Unlock()

	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
}

// nextResetDelay returns the duration from now until the next occurrence of
// hour:minute in now's location.
func nextResetDelay(now time.Time, hour, minute int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}

	return next.Sub(now)
}
