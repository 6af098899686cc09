package amp

import "github.com/iwpg/orbit/internal/models"

// Upstream metric map keys, human-readable labels by contract.
const (
	metricCPU     = "CPU Usage"
	metricMemory  = "Memory Usage"
	metricPlayers = "Active Users"
)

// rawMetric is one entry of an upstream metrics map.
type rawMetric struct {
	Units    string  `json:"Units"`
	RawValue float64 `json:"RawValue"`
	MaxValue float64 `json:"MaxValue"`
	Percent  float64 `json:"Percent"`
}

// normalizeMetrics converts an upstream metrics map into the canonical
// cpu/memory/players triplets. Every numeric field defaults to zero and every
// unit to a sane default when absent. It never fails; ok is false when the
// map carried no recognized metrics so the caller may log a degraded item.
func normalizeMetrics(raw map[string]rawMetric) (cpu, mem models.Metric, players models.Players, ok bool) {
	cpu = models.Metric{Unit: "%", Max: 100}
	mem = models.Metric{Unit: "MB"}

	if c, found := raw[metricCPU]; found {
		cpu.Value = c.RawValue
		if c.MaxValue > 0 {
			cpu.Max = c.MaxValue
		}
		cpu.Percent = c.Percent
		if c.Units != "" {
			cpu.Unit = c.Units
		}
		ok = true
	}

	if m, found := raw[metricMemory]; found {
		mem.Value = m.RawValue
		mem.Max = m.MaxValue
		mem.Percent = m.Percent
		if m.Units != "" {
			mem.Unit = m.Units
		}
		ok = true
	}

	if u, found := raw[metricPlayers]; found {
		players.Current = int(u.RawValue)
		players.Max = int(u.MaxValue)
		players.Percent = int(u.Percent)
		ok = true
	}

	return cpu, mem, players, ok
}
