package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/byrdsandbytes/beatnik-knob/internal/models"
)

// Environment variable names.
const (
	EnvServerURL = "BEATNIK_SERVER_URL"
	EnvClientID  = "BEATNIK_CLIENT_ID"
	EnvStep      = "BEATNIK_VOLUME_STEP"
	EnvPolicy    = "BEATNIK_POLICY"
	EnvLogLevel  = "BEATNIK_LOG_LEVEL"
)

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvServerURL); ok {
		c.Server.URL = v
	}
	if v, ok := lookup(EnvClientID); ok {
		c.Client.ID = v
	}
	if v, ok := lookup(EnvStep); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", models.ErrInvalidConfig, EnvStep, v, err)
		}
		c.Volume.Step = n
	}
	if v, ok := lookup(EnvPolicy); ok {
		c.Volume.Policy = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.Log.Level = v
	}
	return nil
}

// normalize trims values and fills in defaults for fields a partial config
// file left empty.
func (c *Config) normalize() {
	def := Default()

	c.Server.URL = strings.TrimSpace(c.Server.URL)
	c.Client.ID = strings.TrimSpace(c.Client.ID)
	c.Volume.Policy = strings.ToLower(strings.TrimSpace(c.Volume.Policy))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))

	if c.Server.URL == "" && !c.Server.Discover {
		c.Server.URL = def.Server.URL
	}
	if c.Server.ReconnectDelay.Duration == 0 {
		c.Server.ReconnectDelay = def.Server.ReconnectDelay
	}
	if c.Volume.Policy == "" {
		c.Volume.Policy = def.Volume.Policy
	}
	if c.Volume.DebounceDelay.Duration == 0 {
		c.Volume.DebounceDelay = def.Volume.DebounceDelay
	}
	if c.Volume.ThrottleInterval.Duration == 0 {
		c.Volume.ThrottleInterval = def.Volume.ThrottleInterval
	}
	if c.GPIO.CLK == "" {
		c.GPIO.CLK = def.GPIO.CLK
	}
	if c.GPIO.DT == "" {
		c.GPIO.DT = def.GPIO.DT
	}
	if c.GPIO.SW == "" {
		c.GPIO.SW = def.GPIO.SW
	}
	if c.GPIO.ButtonDebounce.Duration == 0 {
		c.GPIO.ButtonDebounce = def.GPIO.ButtonDebounce
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// Validate reports every invalid field. The returned error wraps
// models.ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{models.ErrInvalidConfig}, args...)...))
	}

	if c.Client.ID == "" {
		bad("client.id is required")
	}
	if !c.Server.Discover {
		u, err := url.Parse(c.Server.URL)
		switch {
		case err != nil:
			bad("server.url: %v", err)
		case u.Scheme != "ws" && u.Scheme != "wss":
			bad("server.url must be ws:// or wss://, got %q", c.Server.URL)
		case u.Host == "":
			bad("server.url has no host")
		}
	}
	if c.Server.ReconnectDelay.Duration <= 0 {
		bad("server.reconnect_delay must be positive")
	}
	if c.Volume.Step < 1 || c.Volume.Step > models.MaxPercent {
		bad("volume.step must be in [1, %d], got %d", models.MaxPercent, c.Volume.Step)
	}
	switch c.Volume.Policy {
	case "debounce", "throttle":
	default:
		bad("volume.policy must be debounce or throttle, got %q", c.Volume.Policy)
	}
	if c.Volume.DebounceDelay.Duration <= 0 {
		bad("volume.debounce_delay must be positive")
	}
	if c.Volume.ThrottleInterval.Duration <= 0 {
		bad("volume.throttle_interval must be positive")
	}
	if c.GPIO.ButtonDebounce.Duration < 0 {
		bad("gpio.button_debounce must not be negative")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		bad("log.level: %v", err)
	}
	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown level %q", s)
	}
}

// RestartRequired lists settings that differ between c and next but only
// take effect after a restart.
func (c *Config) RestartRequired(next *Config) []string {
	var fields []string
	if c.Server != next.Server {
		fields = append(fields, "server")
	}
	if c.Client != next.Client {
		fields = append(fields, "client")
	}
	if c.GPIO != next.GPIO {
		fields = append(fields, "gpio")
	}
	if c.HTTP != next.HTTP {
		fields = append(fields, "http")
	}
	return fields
}
