package reconcile

import (
	"testing"

	"github.com/iwpg/orbit/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func instance(id, name string, players, max int) models.Instance {
	return models.Instance{
		ID:           id,
		FriendlyName: name,
		Players:      models.Players{Current: players, Max: max},
	}
}

func TestMergeOverlaysByPosition(t *testing.T) {
	primary := []models.Instance{instance("i1", "Server 1", 0, 0)}
	secondary := []models.TrackedServer{
		{ID: "s1", Label: "Zeta", Players: 42, MaxPlayers: 128, Status: models.StatusOnline},
	}

	merged := Merge(primary, secondary)
	require.Len(t, merged, 1)
	assert.Equal(t, 42, merged[0].Players.Current)
	assert.Equal(t, 128, merged[0].Players.Max)

	// Inputs are untouched
	assert.Zero(t, primary[0].Players.Current)
}

func TestMergePrefersNameMatchOverPosition(t *testing.T) {
	primary := []models.Instance{
		instance("i1", "Wasteland 2", 0, 0),
		instance("i2", "Wasteland 1", 0, 0),
	}
	secondary := []models.TrackedServer{
		{ID: "s1", Label: "Server 1", Players: 10, MaxPlayers: 64},
		{ID: "s2", Label: "Server 2", Players: 20, MaxPlayers: 64},
	}

	merged := Merge(primary, secondary)

	// "Wasteland 2" picks up "Server 2" despite being first in the list
	assert.Equal(t, 20, merged[0].Players.Current)
	assert.Equal(t, 10, merged[1].Players.Current)
}

func TestMergeKeepsUnmatchedPrimary(t *testing.T) {
	primary := []models.Instance{
		instance("i1", "Wasteland 1", 5, 64),
		instance("i2", "Creative", 3, 32),
	}
	secondary := []models.TrackedServer{
		{ID: "s1", Label: "Server 1", Players: 50, MaxPlayers: 64, Queue: 2},
	}

	merged := Merge(primary, secondary)
	require.Len(t, merged, 2)

	assert.Equal(t, 50, merged[0].Players.Current)
	assert.Equal(t, 2, merged[0].Players.Queue)

	// No secondary counterpart: primary counts survive, queue stays zero
	assert.Equal(t, 3, merged[1].Players.Current)
	assert.Equal(t, 32, merged[1].Players.Max)
	assert.Zero(t, merged[1].Players.Queue)
}

func TestMergeIgnoresExtraSecondary(t *testing.T) {
	primary := []models.Instance{instance("i1", "Wasteland 1", 1, 64)}
	secondary := []models.TrackedServer{
		{ID: "s1", Label: "Server 1", Players: 11, MaxPlayers: 64},
		{ID: "s2", Label: "Server 2", Players: 22, MaxPlayers: 64},
	}

	merged := Merge(primary, secondary)
	require.Len(t, merged, 1)
	assert.Equal(t, 11, merged[0].Players.Current)
}

func TestMergeComputesPercent(t *testing.T) {
	primary := []models.Instance{instance("i1", "Server 1", 0, 0)}
	secondary := []models.TrackedServer{{ID: "s1", Label: "Server 1", Players: 32, MaxPlayers: 128}}

	merged := Merge(primary, secondary)
	assert.Equal(t, 25, merged[0].Players.Percent)
}

func TestMergeEmptySecondary(t *testing.T) {
	primary := []models.Instance{instance("i1", "Wasteland 1", 7, 64)}

	merged := Merge(primary, nil)
	require.Len(t, merged, 1)
	assert.Equal(t, 7, merged[0].Players.Current)
}
