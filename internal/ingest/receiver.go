// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package ingest

import (
	"bytes"
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/tomtom215/mktarchive/internal/logging"
	"github.com/tomtom215/mktarchive/internal/metrics"
)

// ReceiverConfig holds the poll loop backoffs.
type ReceiverConfig struct {
	// IdleBackoff is slept after a poll that found nothing.
	IdleBackoff time.Duration

	// ErrorBackoff is slept after a transport error.
	ErrorBackoff time.Duration
}

// DefaultReceiverConfig returns a 1ms idle backoff and a 1s error backoff.
func DefaultReceiverConfig() ReceiverConfig {
	return ReceiverConfig{
		IdleBackoff:  time.Millisecond,
		ErrorBackoff: time.Second,
	}
}

// StopFlag is observed once per poll iteration.
type StopFlag interface {
	IsSet() bool
}

// Receiver polls a Transport and broadcasts every envelope it gets. It owns
// both the transport and the broadcaster and closes them when it stops.
type Receiver struct {
	transport Transport
	out       *Broadcaster
	cfg       ReceiverConfig

	received atomic.Uint64
	errors   atomic.Uint64
	started  atomic.Bool
	done     chan struct{}
}

// NewReceiver builds a receiver. Zero backoffs take the defaults.
func NewReceiver(t Transport, out *Broadcaster, cfg ReceiverConfig) *Receiver {
	def := DefaultReceiverConfig()
	if cfg.IdleBackoff <= 0 {
		cfg.IdleBackoff = def.IdleBackoff
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = def.ErrorBackoff
	}
	return &Receiver{
		transport: t,
		out:       out,
		cfg:       cfg,
		done:      make(chan struct{}),
	}
}

// Start runs the receiver on its own goroutine.
func (r *Receiver) Start(stop StopFlag) {
	go r.Run(stop)
}

// Run polls until stop is set. It pins itself to an OS thread for its whole
// lifetime since the transport is polled without ever yielding to a
// blocking receive. Run may be called only once.
func (r *Receiver) Run(stop StopFlag) {
	if !r.started.CompareAndSwap(false, true) {
		logging.Warn().Msg("Receiver already running")
		return
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(r.done)
	defer r.teardown()

	logging.Info().Msg("Receiver started")
	for !stop.IsSet() {
		msg, err := r.transport.Recv()
		switch {
		case err == nil:
			r.received.Add(1)
			metrics.EnvelopesReceived.Inc()
			// The transport may reuse msg once Recv is called again.
			r.out.Send(bytes.Clone(msg))
		case errors.Is(err, ErrWouldBlock):
			time.Sleep(r.cfg.IdleBackoff)
		default:
			r.errors.Add(1)
			metrics.TransportErrors.Inc()
			logging.Error().Err(err).
				Dur("backoff", r.cfg.ErrorBackoff).
				Msg("Transport receive failed")
			time.Sleep(r.cfg.ErrorBackoff)
		}
	}
}

func (r *Receiver) teardown() {
	if err := r.transport.Close(); err != nil {
		logging.Warn().Err(err).Msg("Transport close failed")
	}
	r.out.Close()
	logging.Info().
		Uint64("received", r.received.Load()).
		Uint64("errors", r.errors.Load()).
		Msg("Receiver stopped")
}

// Received is the number of envelopes taken from the transport.
func (r *Receiver) Received() uint64 {
	return r.received.Load()
}

// Errors is the number of transport errors seen.
func (r *Receiver) Errors() uint64 {
	return r.errors.Load()
}

// Done is closed once Run has returned and the transport is closed.
func (r *Receiver) Done() <-chan struct{} {
	return r.done
}

// Drain waits up to timeout for the receiver to stop. The stop flag must
// already be set. It reports whether the receiver exited in time; a
// receiver that never started counts as drained.
func (r *Receiver) Drain(timeout time.Duration) bool {
	if !r.started.Load() {
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-r.done:
		return true
	case <-timer.C:
		logging.Warn().Dur("timeout", timeout).Msg("Receiver did not stop within grace period")
		return false
	}
}
