// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tomtom215/mktarchive/internal/logging"
)

// DefaultHighWaterMark is the number of envelopes a transport buffers
// before the broker starts dropping for this subscriber.
const DefaultHighWaterMark = 100

// NATSConfig configures a core NATS subscription.
type NATSConfig struct {
	URL     string
	Subject string

	// Name identifies the connection on the server.
	Name string

	// HighWaterMark defaults to DefaultHighWaterMark.
	HighWaterMark int

	MaxReconnects int
	ReconnectWait time.Duration
}

// natsOptions holds the connection options shared by both NATS drivers.
func natsOptions(cfg NATSConfig, onAsyncErr func(error)) []nats.Option {
	return []nats.Option{
		nats.Name(cfg.Name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			if onAsyncErr != nil {
				onAsyncErr(err)
			}
		}),
	}
}

// NATSTransport receives envelopes from a core NATS subject into a bounded
// local queue. Envelopes arriving while the queue is full are dropped by the
// client and surface from Recv as a slow-consumer error.
type NATSTransport struct {
	nc       *nats.Conn
	sub      *nats.Subscription
	msgs     chan *nats.Msg
	asyncErr chan error
	subject  string
}

// DialNATS connects and subscribes.
func DialNATS(cfg NATSConfig) (*NATSTransport, error) {
	hwm := cfg.HighWaterMark
	if hwm <= 0 {
		hwm = DefaultHighWaterMark
	}
	t := &NATSTransport{
		msgs:     make(chan *nats.Msg, hwm),
		asyncErr: make(chan error, 1),
		subject:  cfg.Subject,
	}

	nc, err := nats.Connect(cfg.URL, natsOptions(cfg, t.reportAsync)...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	sub, err := nc.ChanSubscribe(cfg.Subject, t.msgs)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", cfg.Subject, err)
	}
	t.nc, t.sub = nc, sub

	logging.Info().
		Str("url", cfg.URL).
		Str("subject", cfg.Subject).
		Int("high_water_mark", hwm).
		Msg("NATS transport subscribed")
	return t, nil
}

// reportAsync keeps only the first unread error.
func (t *NATSTransport) reportAsync(err error) {
	select {
	case t.asyncErr <- err:
	default:
	}
}

func (t *NATSTransport) Recv() ([]byte, error) {
	select {
	case m := <-t.msgs:
		return m.Data, nil
	default:
	}
	select {
	case err := <-t.asyncErr:
		return nil, err
	default:
		return nil, ErrWouldBlock
	}
}

// Close unsubscribes before closing the connection. An unsubscribe failure
// is returned together with any close problem; the connection is closed
// regardless.
func (t *NATSTransport) Close() error {
	var errs []error
	if err := t.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		errs = append(errs, fmt.Errorf("unsubscribe %s: %w", t.subject, err))
	}
	t.nc.Close()
	return errors.Join(errs...)
}
