// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/tomtom215/mktarchive/internal/archive"
	"github.com/tomtom215/mktarchive/internal/logging"
	"github.com/tomtom215/mktarchive/internal/metrics"
	"github.com/tomtom215/mktarchive/internal/period"
	"github.com/tomtom215/mktarchive/internal/publisher"
)

// Sink is the publish side of the pipeline.
type Sink interface {
	Publish(ctx context.Context, rec *period.Record, raw []byte) (archive.Result, error)
	PublishAsync(ctx context.Context, rec *period.Record, raw []byte) (*publisher.Handle, error)
}

// DecoderConfig selects how envelopes are decoded.
type DecoderConfig struct {
	Format     period.Format
	Compressed bool
}

// ConsumerConfig configures a Consumer.
type ConsumerConfig struct {
	Decoder DecoderConfig

	// Async selects PublishAsync over Publish.
	Async bool
}

// ConsumerStats is a snapshot of consumer counters.
type ConsumerStats struct {
	Decoded       uint64 `json:"decoded"`
	DecodeErrors  uint64 `json:"decode_errors"`
	PublishErrors uint64 `json:"publish_errors"`
	Dropped       uint64 `json:"dropped"`
}

// Consumer reads envelopes from a subscription, decodes them and hands the
// records to a Sink.
type Consumer struct {
	sub  *Subscription
	sink Sink
	cfg  ConsumerConfig

	decoded       atomic.Uint64
	decodeErrors  atomic.Uint64
	publishErrors atomic.Uint64
}

// NewConsumer returns a Consumer. It owns sub.
func NewConsumer(sub *Subscription, sink Sink, cfg ConsumerConfig) *Consumer {
	return &Consumer{sub: sub, sink: sink, cfg: cfg}
}

// Run consumes until ctx is done or the broadcaster is closed. A done ctx
// always wins over a ready envelope. Run returns ctx.Err() or ErrClosed.
//
// Run leaves the subscription open so a supervisor can call it again after
// a failure; envelopes that arrive in between stay buffered. Close releases
// the subscription.
func (c *Consumer) Run(ctx context.Context) error {
	logging.Info().
		Str("format", c.cfg.Decoder.Format.String()).
		Bool("compressed", c.cfg.Decoder.Compressed).
		Bool("async", c.cfg.Async).
		Msg("Consumer started")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		envelope, err := c.sub.Recv(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) {
				logging.Info().Msg("Broadcast closed, consumer stopping")
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.handle(ctx, envelope); err != nil {
			return err
		}
	}
}

// handle returns an error only when the consumer must stop.
func (c *Consumer) handle(ctx context.Context, envelope []byte) error {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	log := logging.Ctx(ctx)

	rec, err := period.Decode(envelope, c.cfg.Decoder.Compressed, c.cfg.Decoder.Format)
	if err != nil {
		c.decodeErrors.Add(1)
		metrics.RecordDecodeError(err)
		log.Warn().Err(err).Int("size", len(envelope)).Msg("Dropping undecodable envelope")
		return nil
	}
	c.decoded.Add(1)

	if e := log.Debug(); e.Enabled() {
		e.Int64("period", rec.Period).
			Int64("post_ts", rec.PostTS).
			Str("poster_id", rec.PosterID).
			Int64("info_count", rec.InfoCount()).
			Interface("symbols", rec.Summary()).
			Msg("Decoded period record")
	}

	if c.cfg.Async {
		_, err := c.sink.PublishAsync(ctx, rec, envelope)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case errors.Is(err, publisher.ErrPublisherClosed):
			return fmt.Errorf("consumer: %w", err)
		default:
			c.publishErrors.Add(1)
			log.Error().Err(err).Msg("Failed to submit asynchronous publish")
			return nil
		}
	}

	if _, err := c.sink.Publish(ctx, rec, envelope); err != nil {
		c.publishErrors.Add(1)
		log.Error().Err(err).Msg("Failed to publish message")
	}
	return nil
}

// Close unsubscribes from the broadcaster. A later Run still reads what was
// buffered, then returns ErrClosed.
func (c *Consumer) Close() {
	c.sub.Unsubscribe()
}

// Stats returns current counters.
func (c *Consumer) Stats() ConsumerStats {
	return ConsumerStats{
		Decoded:       c.decoded.Load(),
		DecodeErrors:  c.decodeErrors.Load(),
		PublishErrors: c.publishErrors.Load(),
		Dropped:       c.sub.Dropped(),
	}
}
