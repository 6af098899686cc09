package amp

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/iwpg/orbit/internal/models"
	"github.com/rs/zerolog/log"
)

// moduleADS marks the control plane's own controller entry in instance lists.
const moduleADS = "ADS"

// rawTarget is one entry of the GetInstances response.
type rawTarget struct {
	FriendlyName       string        `json:"FriendlyName"`
	AvailableInstances []rawInstance `json:"AvailableInstances"`
}

type rawInstance struct {
	InstanceID           string               `json:"InstanceID"`
	InstanceName         string               `json:"InstanceName"`
	FriendlyName         string               `json:"FriendlyName"`
	Module               string               `json:"Module"`
	Metrics              map[string]rawMetric `json:"Metrics"`
	ApplicationEndpoints []rawEndpoint        `json:"ApplicationEndpoints"`
	AppState             int                  `json:"AppState"`
	Running              bool                 `json:"Running"`
	Suspended            bool                 `json:"Suspended"`
}

type rawEndpoint struct {
	DisplayName string `json:"DisplayName"`
	Endpoint    string `json:"Endpoint"`
	URI         string `json:"Uri"`
}

// rawStatus is the per-instance live status response.
type rawStatus struct {
	Metrics map[string]rawMetric `json:"Metrics"`
	State   int                  `json:"State"`
}

// DiscoverInstances fetches the target/instance tree and returns the
// normalized workload list for the current cycle. The response may be a bare
// target array or wrapped under a "result" key; an unrecognized shape yields
// an empty list and ErrMalformedResponse. Per-instance live refresh failures
// degrade to the cached batch metrics, never the whole cycle.
func (c *Client) DiscoverInstances(ctx context.Context) ([]models.Instance, error) {
	body, err := c.Call(ctx, "ADSModule/GetInstances", map[string]any{"ForceIncludeSelf": true})
	if err != nil {
		return nil, err
	}

	targets, err := decodeTargets(body)
	if err != nil {
		log.Warn().Str("endpoint", "ADSModule/GetInstances").Msg("Unrecognized discovery response shape")
		return []models.Instance{}, err
	}

	var instances []models.Instance
	for _, target := range targets {
		for _, raw := range target.AvailableInstances {
			// The controller entry is not a workload
			if raw.Module == moduleADS {
				continue
			}

			inst := models.Instance{
				ID:           raw.InstanceID,
				Name:         raw.InstanceName,
				FriendlyName: raw.FriendlyName,
				Target:       target.FriendlyName,
				Module:       raw.Module,
				State:        models.AppState(raw.AppState),
				Running:      raw.Running,
				Suspended:    raw.Suspended,
				Source:       models.SourceCached,
			}

			for _, ep := range raw.ApplicationEndpoints {
				inst.Endpoints = append(inst.Endpoints, models.Endpoint{
					Name:     ep.DisplayName,
					Endpoint: ep.Endpoint,
					URI:      ep.URI,
				})
			}

			cpu, mem, players, ok := normalizeMetrics(raw.Metrics)
			inst.CPU, inst.Memory, inst.Players = cpu, mem, players
			if !ok {
				inst.Source = models.SourceNone
			}

			instances = append(instances, inst)
		}
	}

	c.refreshLive(ctx, instances)

	return instances, nil
}

// refreshLive replaces cached batch metrics with per-instance live status for
// every live instance, concurrently. A failed refresh keeps the cached values
// for that instance only.
func (c *Client) refreshLive(ctx context.Context, instances []models.Instance) {
	var wg sync.WaitGroup
	for i := range instances {
		if !instances[i].State.Live() {
			continue
		}

		wg.Add(1)
		go func(inst *models.Instance) {
			defer wg.Done()

			body, err := c.Call(ctx, "ADSModule/Servers/"+inst.ID+"/API/Core/GetStatus", nil)
			if err != nil {
				log.Debug().Err(err).
					Str("instance", inst.FriendlyName).
					Msg("Live status fetch failed, keeping cached metrics")
				return
			}

			var status rawStatus
			if err := json.Unmarshal(body, &status); err != nil {
				log.Debug().Err(err).
					Str("instance", inst.FriendlyName).
					Msg("Live status decode failed, keeping cached metrics")
				return
			}

			cpu, mem, players, ok := normalizeMetrics(status.Metrics)
			if !ok {
				return
			}

			inst.CPU, inst.Memory, inst.Players = cpu, mem, players
			inst.Source = models.SourceLive
		}(&instances[i])
	}
	wg.Wait()
}

// decodeTargets accepts both documented discovery shapes.
func decodeTargets(body json.RawMessage) ([]rawTarget, error) {
	var targets []rawTarget
	if err := json.Unmarshal(body, &targets); err == nil {
		return targets, nil
	}

	var wrapped struct {
		Result []rawTarget `json:"result"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Result != nil {
		return wrapped.Result, nil
	}

	return nil, ErrMalformedResponse
}
