package snapcast

import (
	"encoding/json"
	"fmt"

	"github.com/byrdsandbytes/beatnik-knob/internal/models"
)

// The subset of the Server.GetStatus result the knob needs:
// result.server.groups[*].clients[*].{id, config.volume.{percent,muted}}.
// Pointers distinguish missing keys from zero values.
type statusResult struct {
	Server *struct {
		Groups []statusGroup `json:"groups"`
	} `json:"server"`
}

type statusGroup struct {
	Clients []statusClient `json:"clients"`
}

type statusClient struct {
	ID     string `json:"id"`
	Config *struct {
		Volume *wireVolume `json:"volume"`
	} `json:"config"`
}

// ParseStatus finds clientID in a Server.GetStatus result and returns its
// volume. It searches every group. A result of the wrong shape returns an
// error wrapping models.ErrMalformedStatus; an absent client returns one
// wrapping models.ErrClientNotFound.
func ParseStatus(result json.RawMessage, clientID string) (models.VolumeState, error) {
	var r statusResult
	if err := json.Unmarshal(result, &r); err != nil {
		return models.VolumeState{}, fmt.Errorf("%w: %v", models.ErrMalformedStatus, err)
	}
	if r.Server == nil || r.Server.Groups == nil {
		return models.VolumeState{}, fmt.Errorf("%w: missing server.groups", models.ErrMalformedStatus)
	}
	for gi, g := range r.Server.Groups {
		for _, c := range g.Clients {
			if c.ID != clientID {
				continue
			}
			if c.Config == nil || c.Config.Volume == nil ||
				c.Config.Volume.Percent == nil || c.Config.Volume.Muted == nil {
				return models.VolumeState{}, fmt.Errorf("%w: group %d client %q has no config.volume",
					models.ErrMalformedStatus, gi, clientID)
			}
			v := models.VolumeState{
				Percent: *c.Config.Volume.Percent,
				Muted:   *c.Config.Volume.Muted,
			}
			return v.Clamped(), nil
		}
	}
	return models.VolumeState{}, fmt.Errorf("%w: %q", models.ErrClientNotFound, clientID)
}
