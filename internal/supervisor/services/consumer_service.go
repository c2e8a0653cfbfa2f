// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package services

import (
	"context"
	"errors"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/mktarchive/internal/logging"
)

// Runner is satisfied by *ingest.Consumer.
type Runner interface {
	Run(ctx context.Context) error
}

// ConsumerService runs the consumer loop. A consumer whose source is gone
// cannot do anything useful after a restart, so any error listed in
// terminal ends the whole tree instead.
type ConsumerService struct {
	runner   Runner
	terminal []error
}

// NewConsumerService wraps r. Errors matching any of terminal stop the
// supervisor tree; other errors restart the consumer.
func NewConsumerService(r Runner, terminal ...error) *ConsumerService {
	return &ConsumerService{runner: r, terminal: terminal}
}

// Serve implements suture.Service.
func (s *ConsumerService) Serve(ctx context.Context) error {
	err := s.runner.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	for _, target := range s.terminal {
		if errors.Is(err, target) {
			logging.Warn().Err(err).Msg("Consumer source gone, stopping supervisor tree")
			return suture.ErrTerminateSupervisorTree
		}
	}
	if err == nil {
		return suture.ErrDoNotRestart
	}
	return err
}

func (s *ConsumerService) String() string {
	return "consumer"
}
