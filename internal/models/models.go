// Package models defines the data structures shared between the control-plane
// client, the secondary tracker, the persistence layer, and the API responses.
package models

import "time"

// AppState mirrors the lifecycle state reported by the control plane for a
// managed instance.
type AppState int

// Application lifecycle states as reported by the control plane.
const (
	StateUndefined   AppState = -1
	StateStopped     AppState = 0
	StatePreStart    AppState = 5
	StateConfiguring AppState = 7
	StateStarting    AppState = 10
	StateReady       AppState = 20
	StateRestarting  AppState = 30
	StateStopping    AppState = 40
	StateFailed      AppState = 60
)

// Live reports whether the state describes a process that is starting or running.
func (s AppState) Live() bool {
	return s >= StateStarting && s < StateStopping
}

// MetricSource tells where an instance's metrics came from within a cycle.
type MetricSource string

// Metric provenance values.
const (
	SourceLive   MetricSource = "live"   // per-instance status call succeeded
	SourceCached MetricSource = "cached" // fell back to batch discovery metrics
	SourceNone   MetricSource = "none"   // no metrics available, zeroed
)

// Metric is one normalized gauge with its configured ceiling.
type Metric struct {
	Unit    string  `json:"unit,omitempty"`
	Value   float64 `json:"value"`
	Max     float64 `json:"max"`
	Percent float64 `json:"percent"`
}

// Players holds the player gauge for an instance. Upstream does not guarantee
// current <= max; inconsistent values are passed through as-is.
type Players struct {
	Current int `json:"current"`
	Max     int `json:"max"`
	Percent int `json:"percent"`
	Queue   int `json:"queue"`
}

// Endpoint is one connection endpoint advertised by an instance.
type Endpoint struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
	URI      string `json:"uri,omitempty"`
}

// Instance is one managed game-server process, rebuilt from scratch each poll
// cycle. The previous cycle's list is replaced wholesale, never mutated.
type Instance struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	FriendlyName string       `json:"friendly_name"`
	Target       string       `json:"target"`
	Module       string       `json:"module"`
	CountryCode  string       `json:"country_code,omitempty"`
	Source       MetricSource `json:"metrics_source"`
	Endpoints    []Endpoint   `json:"endpoints,omitempty"`
	CPU          Metric       `json:"cpu"`
	Memory       Metric       `json:"memory"`
	Players      Players      `json:"players"`
	State        AppState     `json:"app_state"`
	Running      bool         `json:"running"`
	Suspended    bool         `json:"suspended"`
}

// TrackedStatus is the reachability of a logical server on the secondary source.
type TrackedStatus string

// Tracked server statuses.
const (
	StatusOnline  TrackedStatus = "online"
	StatusOffline TrackedStatus = "offline"
	StatusError   TrackedStatus = "error"
	StatusUnknown TrackedStatus = "unknown"
)

// TrackedServer is one logical server as seen by the secondary source.
// A failed fetch yields a record with StatusError and zero counts so the
// rest of the batch is unaffected.
type TrackedServer struct {
	ID         string        `json:"id"`
	Label      string        `json:"label"`
	Name       string        `json:"name"`
	Status     TrackedStatus `json:"status"`
	Players    int           `json:"players"`
	MaxPlayers int           `json:"max_players"`
	Queue      int           `json:"queue"`
	Peak       int           `json:"peak"`
}

// Sample is one persisted time-series row. Immutable once written.
type Sample struct {
	Timestamp    time.Time `json:"ts"`
	InstanceID   string    `json:"instance_id"`
	InstanceName string    `json:"instance_name"`
	Players      int       `json:"players"`
	MaxPlayers   int       `json:"max_players"`
	Queue        int       `json:"queue"`
	CPUPercent   float64   `json:"cpu_percent"`
	MemoryValue  float64   `json:"memory_mb"`
	MemoryMax    float64   `json:"memory_max_mb"`
}

// Snapshot is the aggregated view served to consumers. It is replaced
// atomically at the end of each successful poll cycle.
type Snapshot struct {
	FetchedAt    time.Time       `json:"fetched_at"`
	Instances    []Instance      `json:"instances"`
	Tracked      []TrackedServer `json:"tracked_servers,omitempty"`
	TotalPlayers int             `json:"total_players"`
	TotalMax     int             `json:"total_max"`
}

// Totals sums player counts across the instance list.
func (s *Snapshot) Totals() (players, max int) {
	for i := range s.Instances {
		players += s.Instances[i].Players.Current
		max += s.Instances[i].Players.Max
	}
	return players, max
}

// Series is one instance's history, with times, players, cpu and memory
// arrays aligned by index for direct charting.
type Series struct {
	Name    string    `json:"name"`
	Times   []int64   `json:"times"`
	Players []int     `json:"players"`
	CPU     []float64 `json:"cpu"`
	Memory  []float64 `json:"memory"`
}
