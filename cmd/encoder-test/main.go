// Command encoder-test checks the rotary encoder wiring without a Snapcast
// server. It prints every rotation with a running position; pressing the
// button resets the position to 0.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/byrdsandbytes/beatnik-knob/internal/hardware"
)

func main() {
	var (
		clk      = pflag.String("clk", hardware.DefaultPinCLK, "encoder CLK pin")
		dt       = pflag.String("dt", hardware.DefaultPinDT, "encoder DT pin")
		sw       = pflag.String("sw", hardware.DefaultPinSW, "encoder button pin")
		debounce = pflag.Duration("button-debounce", hardware.DefaultButtonDebounce, "button debounce interval")
		debug    = pflag.Bool("debug", false, "enable debug logging")
	)
	pflag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	fmt.Println("Rotary encoder hardware test")
	fmt.Printf("CLK: %s  DT: %s  SW: %s\n", *clk, *dt, *sw)
	fmt.Println("Rotate the knob in both directions, press it to reset the position, Ctrl+C to exit.")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	src := hardware.NewGPIO(hardware.GPIOConfig{CLK: *clk, DT: *dt, SW: *sw, ButtonDebounce: *debounce})
	counter := &position{out: os.Stdout}
	if err := src.Start(ctx, counter.handle); err != nil {
		slog.Error("encoder initialization failed", "err", err)
		os.Exit(1)
	}
	fmt.Println("Waiting for input...")

	<-ctx.Done()
	if err := src.Close(); err != nil {
		slog.Warn("release pins", "err", err)
	}
	fmt.Println("Test stopped")
}

// position counts detents and reports each event.
type position struct {
	mu    sync.Mutex
	out   io.Writer
	steps int
}

func (p *position) handle(e hardware.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch e {
	case hardware.RotateClockwise:
		p.steps++
		fmt.Fprintf(p.out, "clockwise         position %d\n", p.steps)
	case hardware.RotateCounterClockwise:
		p.steps--
		fmt.Fprintf(p.out, "counter-clockwise position %d\n", p.steps)
	case hardware.ButtonPress:
		p.steps = 0
		fmt.Fprintf(p.out, "button pressed    position reset to 0\n")
	}
}
