// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tomtom215/mktarchive/internal/logging"
)

// DefaultGracePeriod bounds how long in-flight work is waited for.
const DefaultGracePeriod = 100 * time.Millisecond

// Drainer finishes outstanding work within timeout and reports whether it
// did.
type Drainer interface {
	Drain(timeout time.Duration) bool
}

// DrainFunc adapts a function to Drainer.
type DrainFunc func(timeout time.Duration) bool

func (f DrainFunc) Drain(timeout time.Duration) bool { return f(timeout) }

type namedDrainer struct {
	name string
	d    Drainer
}

// Coordinator owns the signal handlers and the ingestion Flag.
type Coordinator struct {
	grace time.Duration
	flag  *Flag

	mu       sync.Mutex
	drainers []namedDrainer

	trigger chan struct{}
	once    sync.Once

	// notify is signal.Notify; replaced in tests.
	notify func(c chan<- os.Signal, sig ...os.Signal)
}

// NewCoordinator returns a Coordinator using grace, or DefaultGracePeriod
// when grace is not positive.
func NewCoordinator(grace time.Duration) *Coordinator {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &Coordinator{
		grace:   grace,
		flag:    NewFlag(),
		trigger: make(chan struct{}),
		notify:  signal.Notify,
	}
}

// Flag is the ingestion stop flag.
func (c *Coordinator) Flag() *Flag {
	return c.flag
}

// Register adds a drainer. Drainers run in registration order.
func (c *Coordinator) Register(name string, d Drainer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drainers = append(c.drainers, namedDrainer{name: name, d: d})
}

// Trigger starts shutdown as if a signal had arrived.
func (c *Coordinator) Trigger() {
	c.once.Do(func() { close(c.trigger) })
}

// Run calls main with a context that is cancelled on SIGINT, SIGTERM,
// Trigger or cancellation of parent. After main returns it sets the Flag
// and drains. The error is main's.
func (c *Coordinator) Run(parent context.Context, main func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	c.notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		case <-c.trigger:
			logging.Info().Msg("Shutdown requested")
		case <-ctx.Done():
			return
		}
		cancel()
	}()

	err := main(ctx)
	logging.Info().Msg("Main loop stopped, stopping ingestion")

	c.flag.Set()
	c.drain()
	return err
}

func (c *Coordinator) drain() {
	c.mu.Lock()
	drainers := append([]namedDrainer(nil), c.drainers...)
	c.mu.Unlock()

	deadline := time.Now().Add(c.grace)
	for _, nd := range drainers {
		remaining := max(time.Until(deadline), 0)
		if !nd.d.Drain(remaining) {
			logging.Warn().
				Str("component", nd.name).
				Dur("grace", c.grace).
				Msg("Grace period expired, abandoning in-flight work")
		}
	}
	logging.Info().Msg("Shutdown complete")
}
