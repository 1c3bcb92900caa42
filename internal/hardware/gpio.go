package hardware

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const (
	// Default pins (BCM numbering) for a KY-040 style encoder module.
	DefaultPinCLK = "GPIO17"
	DefaultPinDT  = "GPIO18"
	DefaultPinSW  = "GPIO27"

	DefaultButtonDebounce = 50 * time.Millisecond

	// edgePoll bounds WaitForEdge so the watch loops notice cancellation.
	edgePoll = 100 * time.Millisecond
)

// GPIOConfig names the encoder pins.
type GPIOConfig struct {
	CLK            string
	DT             string
	SW             string
	ButtonDebounce time.Duration
}

// OpenPins initializes the periph.io host and configures the encoder pins as
// pulled-up inputs with edge detection. Swapping CLK and DT reverses the
// rotation sense.
func OpenPins(cfg GPIOConfig) (clk, dt, sw gpio.PinIO, err error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, nil, fmt.Errorf("gpio: host init failed: %w", err)
	}
	open := func(name, role string, edge gpio.Edge) (gpio.PinIO, error) {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("gpio: failed to open %s (%s)", name, role)
		}
		if err := p.In(gpio.PullUp, edge); err != nil {
			return nil, fmt.Errorf("gpio: failed to configure %s (%s): %w", name, role, err)
		}
		return p, nil
	}
	if clk, err = open(cfg.CLK, "CLK", gpio.BothEdges); err != nil {
		return nil, nil, nil, err
	}
	if dt, err = open(cfg.DT, "DT", gpio.BothEdges); err != nil {
		return nil, nil, nil, err
	}
	if sw, err = open(cfg.SW, "SW", gpio.FallingEdge); err != nil {
		return nil, nil, nil, err
	}
	return clk, dt, sw, nil
}

// GPIOSource reads a rotary encoder with push button from GPIO pins.
type GPIOSource struct {
	cfg GPIOConfig

	mu        sync.Mutex
	clk, dt   gpio.PinIO
	sw        gpio.PinIO
	dec       quadrature
	lastPress time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewGPIO creates a GPIO source. Pins are opened by Start.
func NewGPIO(cfg GPIOConfig) *GPIOSource {
	if cfg.ButtonDebounce <= 0 {
		cfg.ButtonDebounce = DefaultButtonDebounce
	}
	return &GPIOSource{cfg: cfg}
}

// Start opens the pins and starts one edge-watching goroutine per pin.
func (s *GPIOSource) Start(ctx context.Context, h Handler) error {
	clk, dt, sw, err := OpenPins(s.cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.clk, s.dt, s.sw = clk, dt, sw
	s.dec.reset(clk.Read() == gpio.High, dt.Read() == gpio.High)
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(3)
	go s.watch(ctx, clk, func() { s.sampleEncoder(h) })
	go s.watch(ctx, dt, func() { s.sampleEncoder(h) })
	go s.watch(ctx, sw, func() { s.samplePress(h) })

	slog.Info("gpio: encoder ready", "clk", s.cfg.CLK, "dt", s.cfg.DT, "sw", s.cfg.SW)
	return nil
}

func (s *GPIOSource) watch(ctx context.Context, p gpio.PinIn, onEdge func()) {
	defer s.wg.Done()
	for ctx.Err() == nil {
		if p.WaitForEdge(edgePoll) {
			onEdge()
		}
	}
}

func (s *GPIOSource) sampleEncoder(h Handler) {
	s.mu.Lock()
	step := s.dec.update(s.clk.Read() == gpio.High, s.dt.Read() == gpio.High)
	s.mu.Unlock()
	switch step {
	case 1:
		h(RotateClockwise)
	case -1:
		h(RotateCounterClockwise)
	}
}

func (s *GPIOSource) samplePress(h Handler) {
	now := time.Now()
	s.mu.Lock()
	pressed := s.sw.Read() == gpio.Low && now.Sub(s.lastPress) >= s.cfg.ButtonDebounce
	if pressed {
		s.lastPress = now
	}
	s.mu.Unlock()
	if pressed {
		h(ButtonPress)
	}
}

// Close stops the watchers and disables edge detection on the pins.
func (s *GPIOSource) Close() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	s.wg.Wait()
	s.cancel = nil

	var firstErr error
	for _, p := range []gpio.PinIO{s.clk, s.dt, s.sw} {
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("gpio: release %s: %w", p.Name(), err)
		}
	}
	slog.Debug("gpio: encoder released")
	return firstErr
}
