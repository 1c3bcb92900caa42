// Package config loads the knob daemon configuration from a TOML file,
// environment variables, and command-line overrides, and watches the file
// for live changes.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Server configures the Snapcast connection.
type Server struct {
	URL            string   `toml:"url"`
	Discover       bool     `toml:"discover"` // find the server via mDNS instead of URL
	Instance       string   `toml:"instance"` // optional mDNS instance name filter
	ReconnectDelay Duration `toml:"reconnect_delay"`
}

// Client names the tracked Snapcast client.
type Client struct {
	ID string `toml:"id"`
}

// Volume configures stepping and rate limiting.
type Volume struct {
	Step                    int      `toml:"step"`
	Policy                  string   `toml:"policy"` // "debounce" or "throttle"
	DebounceDelay           Duration `toml:"debounce_delay"`
	ThrottleInterval        Duration `toml:"throttle_interval"`
	ThrottleTrackSuppressed bool     `toml:"throttle_track_suppressed"`
}

// GPIO names the encoder pins (BCM numbering, periph.io names).
type GPIO struct {
	CLK            string   `toml:"clk"`
	DT             string   `toml:"dt"`
	SW             string   `toml:"sw"`
	ButtonDebounce Duration `toml:"button_debounce"`
}

// HTTP configures the optional status API. Empty Addr disables it.
type HTTP struct {
	Addr string `toml:"addr"`
}

// Log configures logging.
type Log struct {
	Level string `toml:"level"`
}

// Config is the complete daemon configuration.
type Config struct {
	Server Server `toml:"server"`
	Client Client `toml:"client"`
	Volume Volume `toml:"volume"`
	GPIO   GPIO   `toml:"gpio"`
	HTTP   HTTP   `toml:"http"`
	Log    Log    `toml:"log"`
}

// Duration is a time.Duration written as a Go duration string ("200ms").
type Duration struct {
	time.Duration
}

// D wraps d.
func D(d time.Duration) Duration { return Duration{d} }

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Override mutates a loaded config; used for command-line flags, which take
// precedence over the file and the environment.
type Override func(*Config)

// Load builds the configuration: defaults, then the TOML file at path (a
// missing file is not an error), then environment variables, then overrides.
// The result is normalized and validated.
func Load(path string, overrides ...Override) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(&cfg)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Marshal returns cfg as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
