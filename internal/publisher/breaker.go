// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package publisher

import (
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/mktarchive/internal/archive"
	"github.com/tomtom215/mktarchive/internal/logging"
	"github.com/tomtom215/mktarchive/internal/metrics"
)

// BreakerConfig configures the circuit breaker around store calls. While
// open, publishes fail immediately with gobreaker.ErrOpenState.
type BreakerConfig struct {
	Enabled bool

	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold uint32

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration

	// MaxRequests probes are let through while half-open.
	MaxRequests uint32
}

func newBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker[archive.Result] {
	if !cfg.Enabled {
		return nil
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	return gobreaker.NewCircuitBreaker[archive.Result](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A malformed key says nothing about store health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, archive.ErrFormat)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.Set(float64(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Store circuit breaker state changed")
		},
	})
}
