// Command beatnik-knob turns a rotary encoder into a volume knob for one
// Snapcast client. Run with --mock to drive it from the keyboard instead of
// GPIO (+/- rotate, m toggles mute).
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/byrdsandbytes/beatnik-knob/internal/api"
	"github.com/byrdsandbytes/beatnik-knob/internal/config"
	"github.com/byrdsandbytes/beatnik-knob/internal/controller"
	"github.com/byrdsandbytes/beatnik-knob/internal/events"
	"github.com/byrdsandbytes/beatnik-knob/internal/hardware"
	"github.com/byrdsandbytes/beatnik-knob/internal/identity"
	"github.com/byrdsandbytes/beatnik-knob/internal/snapcast"
	"github.com/byrdsandbytes/beatnik-knob/internal/zeroconf"
)

func main() {
	var (
		cfgPath  = pflag.StringP("config", "c", "", "config file (default: ~/.config/beatnik-knob/knob.toml)")
		server   = pflag.String("server", "", "Snapcast JSON-RPC WebSocket URL")
		clientID = pflag.String("client-id", "", "Snapcast client id to control")
		step     = pflag.Int("step", 0, "volume change per detent, in percent")
		policy   = pflag.String("policy", "", "rate limiting policy: debounce or throttle")
		discover = pflag.Bool("discover", false, "find the Snapcast server via mDNS")
		httpAddr = pflag.String("http", "", "status API listen address (empty disables)")
		mock     = pflag.Bool("mock", false, "read knob events from stdin instead of GPIO")
		debug    = pflag.Bool("debug", false, "enable debug logging")
	)
	pflag.Parse()

	// Level is a LevelVar so a config reload can change it.
	level := new(slog.LevelVar)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *cfgPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Error("cannot determine home directory", "err", err)
			os.Exit(1)
		}
		*cfgPath = filepath.Join(home, ".config", "beatnik-knob", "knob.toml")
	}

	// Flags override the file and the environment, but only when given.
	var overrides []config.Override
	flags := pflag.CommandLine
	if flags.Changed("server") {
		overrides = append(overrides, func(c *config.Config) { c.Server.URL = *server })
	}
	if flags.Changed("client-id") {
		overrides = append(overrides, func(c *config.Config) { c.Client.ID = *clientID })
	}
	if flags.Changed("step") {
		overrides = append(overrides, func(c *config.Config) { c.Volume.Step = *step })
	}
	if flags.Changed("policy") {
		overrides = append(overrides, func(c *config.Config) { c.Volume.Policy = *policy })
	}
	if flags.Changed("discover") {
		overrides = append(overrides, func(c *config.Config) { c.Server.Discover = *discover })
	}
	if flags.Changed("http") {
		overrides = append(overrides, func(c *config.Config) { c.HTTP.Addr = *httpAddr })
	}
	if *debug {
		overrides = append(overrides, func(c *config.Config) { c.Log.Level = "debug" })
	}
	// Without a configured id, control the snapclient running on this host.
	overrides = append(overrides, func(c *config.Config) {
		if c.Client.ID != "" {
			return
		}
		id, err := identity.ClientID()
		if err != nil {
			slog.Warn("cannot derive client id", "err", err)
			return
		}
		slog.Info("no client id configured, using this host's", "client", id)
		c.Client.ID = id
	})

	cfg, err := config.Load(*cfgPath, overrides...)
	if err != nil {
		slog.Error("invalid configuration", "path", *cfgPath, "err", err)
		os.Exit(1)
	}
	setLevel(level, cfg.Log.Level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Input source
	var source hardware.Source
	if *mock {
		slog.Info("using keyboard input", "keys", "+/- rotate, m mute")
		source = hardware.NewKeySource(os.Stdin)
	} else {
		source = hardware.NewGPIO(hardware.GPIOConfig{
			CLK:            cfg.GPIO.CLK,
			DT:             cfg.GPIO.DT,
			SW:             cfg.GPIO.SW,
			ButtonDebounce: cfg.GPIO.ButtonDebounce.Duration,
		})
	}

	// Server connection
	resolve := snapcast.StaticURL(cfg.Server.URL)
	if cfg.Server.Discover {
		b := zeroconf.New(cfg.Server.Instance)
		resolve = b.Resolve
		slog.Info("discovering snapcast server", "service", zeroconf.ServiceHTTP)
	}
	conn := snapcast.NewManager(resolve, snapcast.WithRetryDelay(cfg.Server.ReconnectDelay.Duration))

	bus := events.NewBus()
	ctrl, err := controller.New(cfg, controller.Deps{Source: source, Conn: conn, Bus: bus})
	if err != nil {
		slog.Error("controller initialization failed", "err", err)
		os.Exit(1)
	}

	// Live config reload
	current := cfg
	watcher, err := config.Watch(*cfgPath, func(next *config.Config) {
		if fields := current.RestartRequired(next); len(fields) > 0 {
			slog.Warn("config changes need a restart to take effect", "sections", fields)
		}
		setLevel(level, next.Log.Level)
		if err := ctrl.Reconfigure(ctx, next); err != nil {
			slog.Warn("config reload rejected", "err", err)
			return
		}
		current = next
	}, overrides...)
	if err != nil {
		slog.Warn("config file not watched", "path", *cfgPath, "err", err)
	} else {
		defer watcher.Close()
	}

	// Status API
	var srv *http.Server
	if cfg.HTTP.Addr != "" {
		srv = &http.Server{
			Addr:         cfg.HTTP.Addr,
			Handler:      api.NewRouter(ctrl, bus),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 0, // 0 = no timeout (needed for SSE)
			IdleTimeout:  120 * time.Second,
		}
		go func() {
			slog.Info("status API listening", "addr", cfg.HTTP.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("server error", "err", err)
			}
		}()
	}

	slog.Info("beatnik-knob starting", "host", identity.GetHostname(), "client", cfg.Client.ID, "server", cfg.Server.URL,
		"discover", cfg.Server.Discover, "mock", *mock, "config", *cfgPath)
	if err := ctrl.Run(ctx); err != nil {
		slog.Error("controller failed", "err", err)
		os.Exit(1)
	}

	if srv != nil {
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutCancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			slog.Warn("server shutdown error", "err", err)
		}
	}
	slog.Info("shutdown complete")
}

func setLevel(v *slog.LevelVar, name string) {
	l, err := config.ParseLevel(name)
	if err != nil {
		slog.Warn("unknown log level", "level", name)
		return
	}
	v.Set(l)
}
