// Package reconcile overlays secondary-source player counts onto the primary
// instance list. The two sources share no stable identifier, so matching is
// heuristic: a normalized name match is preferred and list position is the
// last resort.
package reconcile

import (
	"strings"

	"github.com/iwpg/orbit/internal/models"
)

// Merge overlays each tracked server's player/max/queue counts onto a primary
// instance. It returns a new slice; the inputs are not mutated. Primary
// records without a secondary counterpart keep their own counts (queue zero),
// and tracked servers without a primary counterpart are left alone.
func Merge(primary []models.Instance, secondary []models.TrackedServer) []models.Instance {
	out := make([]models.Instance, len(primary))
	copy(out, primary)

	usedSecondary := make([]bool, len(secondary))
	overlaid := make([]bool, len(out))

	// Pass 1: match by normalized label/name containment
	for i := range out {
		if j := matchByName(&out[i], secondary, usedSecondary); j >= 0 {
			overlay(&out[i], &secondary[j])
			usedSecondary[j] = true
			overlaid[i] = true
		}
	}

	// Pass 2: pair remaining records by position. Fragile, but the upstream
	// contracts expose no shared key; see DESIGN.md.
	for i := range out {
		if overlaid[i] {
			continue
		}
		if i < len(secondary) && !usedSecondary[i] {
			overlay(&out[i], &secondary[i])
			usedSecondary[i] = true
			overlaid[i] = true
		}
	}

	return out
}

// matchByName finds an unused tracked server whose label or name appears in
// the instance's friendly name (or vice versa), case-insensitively.
func matchByName(inst *models.Instance, secondary []models.TrackedServer, used []bool) int {
	instName := normalize(inst.FriendlyName)
	if instName == "" {
		return -1
	}

	for j := range secondary {
		if used[j] {
			continue
		}

		label := normalize(secondary[j].Label)
		name := normalize(secondary[j].Name)
		if label != "" && (strings.Contains(instName, label) || strings.Contains(label, instName)) {
			return j
		}
		if name != "" && name != "unknown" && (strings.Contains(instName, name) || strings.Contains(name, instName)) {
			return j
		}
	}

	return -1
}

func overlay(inst *models.Instance, rec *models.TrackedServer) {
	inst.Players.Current = rec.Players
	inst.Players.Max = rec.MaxPlayers
	inst.Players.Queue = rec.Queue
	if rec.MaxPlayers > 0 {
		inst.Players.Percent = rec.Players * 100 / rec.MaxPlayers
	} else {
		inst.Players.Percent = 0
	}
}

// normalize lowercases and strips a generic "server " prefix so "Server 1"
// can match "Wasteland 1".
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimPrefix(s, "server ")
}
