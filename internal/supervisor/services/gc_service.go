// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package services

import (
	"context"
	"time"

	"github.com/tomtom215/mktarchive/internal/logging"
)

// GarbageCollector is satisfied by *archive.BadgerStore.
type GarbageCollector interface {
	RunGC() error
}

// GCService runs value log garbage collection on a fixed interval. GC
// failures are logged and retried on the next tick.
type GCService struct {
	gc       GarbageCollector
	interval time.Duration
}

// NewGCService returns a service collecting every interval (default 5m).
func NewGCService(gc GarbageCollector, interval time.Duration) *GCService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &GCService{gc: gc, interval: interval}
}

// Serve implements suture.Service.
func (s *GCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logging.Info().Dur("interval", s.interval).Msg("Store GC started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.gc.RunGC(); err != nil {
				logging.Error().Err(err).Msg("Store GC failed")
				continue
			}
			logging.Debug().Dur("duration", time.Since(start)).Msg("Store GC completed")
		}
	}
}

func (s *GCService) String() string {
	return "store-gc"
}
