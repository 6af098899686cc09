package amp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMetricsDefaults(t *testing.T) {
	cpu, mem, players, ok := normalizeMetrics(nil)

	assert.False(t, ok)
	assert.Equal(t, "%", cpu.Unit)
	assert.InDelta(t, 100, cpu.Max, 0.01)
	assert.Zero(t, cpu.Value)
	assert.Equal(t, "MB", mem.Unit)
	assert.Zero(t, mem.Value)
	assert.Zero(t, players.Current)
	assert.Zero(t, players.Max)
}

func TestNormalizeMetricsPartialMap(t *testing.T) {
	cpu, mem, players, ok := normalizeMetrics(map[string]rawMetric{
		"Active Users": {RawValue: 17, MaxValue: 64, Percent: 26},
	})

	assert.True(t, ok)
	assert.Equal(t, 17, players.Current)
	assert.Equal(t, 64, players.Max)
	assert.Zero(t, cpu.Value)
	assert.Zero(t, mem.Value)
}

func TestNormalizeMetricsCustomUnits(t *testing.T) {
	cpu, mem, _, ok := normalizeMetrics(map[string]rawMetric{
		"CPU Usage":    {RawValue: 2.1, MaxValue: 8, Percent: 26, Units: "cores"},
		"Memory Usage": {RawValue: 3.5, MaxValue: 16, Percent: 22, Units: "GB"},
	})

	assert.True(t, ok)
	assert.Equal(t, "cores", cpu.Unit)
	assert.InDelta(t, 8, cpu.Max, 0.01)
	assert.Equal(t, "GB", mem.Unit)
}

func TestNormalizeMetricsInconsistentValuesPassThrough(t *testing.T) {
	// Upstream does not guarantee current <= max; values pass through as-is
	_, _, players, ok := normalizeMetrics(map[string]rawMetric{
		"Active Users": {RawValue: 80, MaxValue: 64, Percent: 125},
	})

	assert.True(t, ok)
	assert.Equal(t, 80, players.Current)
	assert.Equal(t, 64, players.Max)
	assert.Equal(t, 125, players.Percent)
}
