package snapcast_test

import (
	"errors"
	"testing"

	"github.com/byrdsandbytes/beatnik-knob/internal/models"
	"github.com/byrdsandbytes/beatnik-knob/internal/snapcast"
)

const statusTwoGroups = `{
  "server": {
    "groups": [
      {"id": "g1", "clients": [
        {"id": "11:11", "config": {"volume": {"percent": 10, "muted": true}}}
      ]},
      {"id": "g2", "clients": [
        {"id": "22:22", "config": {"volume": {"percent": 20, "muted": false}}},
        {"id": "2c:cf:67:d4:b1:95", "config": {"name": "", "volume": {"percent": 42, "muted": false}}}
      ]}
    ],
    "streams": []
  }
}`

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name    string
		result  string
		client  string
		want    models.VolumeState
		wantErr error
	}{
		{"found in second group", statusTwoGroups, "2c:cf:67:d4:b1:95", models.VolumeState{Percent: 42}, nil},
		{"found in first group", statusTwoGroups, "11:11", models.VolumeState{Percent: 10, Muted: true}, nil},
		{"absent", statusTwoGroups, "ff:ff", models.VolumeState{}, models.ErrClientNotFound},
		{"no groups key", `{"server":{}}`, "11:11", models.VolumeState{}, models.ErrMalformedStatus},
		{"no server key", `{}`, "11:11", models.VolumeState{}, models.ErrMalformedStatus},
		{"groups not a list", `{"server":{"groups":{"a":1}}}`, "11:11", models.VolumeState{}, models.ErrMalformedStatus},
		{"client without volume", `{"server":{"groups":[{"clients":[{"id":"11:11","config":{}}]}]}}`, "11:11", models.VolumeState{}, models.ErrMalformedStatus},
		{"client without muted", `{"server":{"groups":[{"clients":[{"id":"11:11","config":{"volume":{"percent":3}}}]}]}}`, "11:11", models.VolumeState{}, models.ErrMalformedStatus},
		{"result is a string", `"nope"`, "11:11", models.VolumeState{}, models.ErrMalformedStatus},
		{"percent clamped", `{"server":{"groups":[{"clients":[{"id":"11:11","config":{"volume":{"percent":120,"muted":false}}}]}]}}`, "11:11", models.VolumeState{Percent: 100}, nil},
		{"empty groups", `{"server":{"groups":[]}}`, "11:11", models.VolumeState{}, models.ErrClientNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := snapcast.ParseStatus([]byte(tt.result), tt.client)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStatus: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
