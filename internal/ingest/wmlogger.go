// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package ingest

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"

	"github.com/tomtom215/mktarchive/internal/logging"
)

// wmLogger routes watermill's logs into zerolog. Trace maps to zerolog's
// trace level, which is below every level the service is configured with.
type wmLogger struct {
	logger zerolog.Logger
}

// NewWatermillLogger returns a watermill.LoggerAdapter backed by the
// process logger.
func NewWatermillLogger() watermill.LoggerAdapter {
	return wmLogger{logger: logging.WithComponent("watermill")}
}

func (l wmLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.logger.Error().Err(err).Fields(map[string]interface{}(fields)).Msg(msg)
}

func (l wmLogger) Info(msg string, fields watermill.LogFields) {
	l.logger.Info().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (l wmLogger) Debug(msg string, fields watermill.LogFields) {
	l.logger.Debug().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (l wmLogger) Trace(msg string, fields watermill.LogFields) {
	l.logger.Trace().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (l wmLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return wmLogger{logger: l.logger.With().Fields(map[string]interface{}(fields)).Logger()}
}
