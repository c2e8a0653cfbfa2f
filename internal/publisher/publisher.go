// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package publisher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/mktarchive/internal/archive"
	"github.com/tomtom215/mktarchive/internal/logging"
	"github.com/tomtom215/mktarchive/internal/metrics"
	"github.com/tomtom215/mktarchive/internal/period"
)

const (
	modeSync  = "sync"
	modeAsync = "async"
)

// Config configures a Publisher.
type Config struct {
	// Stream is used for logging only; the store already knows its stream.
	Stream string

	// Format and Compressed encode records published without their
	// original envelope.
	Format     period.Format
	Compressed bool

	Breaker BreakerConfig
}

// Stats is a snapshot of publisher counters.
type Stats struct {
	Published   int64           `json:"published"`
	Failed      int64           `json:"failed"`
	LastOutcome archive.Outcome `json:"last_outcome,omitempty"`
	InFlight    bool            `json:"in_flight"`
	Breaker     string          `json:"breaker,omitempty"`
}

// Publisher runs compaction transactions against one store.
type Publisher struct {
	store   archive.LogStore
	cfg     Config
	breaker *gobreaker.CircuitBreaker[archive.Result]

	// mu guards the async slot only; it is never held across a wait.
	mu     sync.Mutex
	last   *Handle
	closed bool

	published   atomic.Int64
	failed      atomic.Int64
	lastOutcome atomic.Value // archive.Outcome
}

// New returns a Publisher writing to store.
func New(store archive.LogStore, cfg Config) *Publisher {
	return &Publisher{
		store:   store,
		cfg:     cfg,
		breaker: newBreaker("archive-"+cfg.Stream, cfg.Breaker),
	}
}

// Entry builds the archive entry for rec. raw, when non-nil, is stored as
// the payload; otherwise rec is encoded with the configured format.
func (p *Publisher) Entry(rec *period.Record, raw []byte) (archive.Entry, error) {
	payload := raw
	if payload == nil {
		var err error
		if payload, err = period.Encode(rec, p.cfg.Compressed, p.cfg.Format); err != nil {
			return archive.Entry{}, err
		}
	}
	return archive.NewEntry(rec.Period, rec.PostTS, rec.InfoCount(), payload), nil
}

// Publish runs the compaction transaction for rec and waits for it.
func (p *Publisher) Publish(ctx context.Context, rec *period.Record, raw []byte) (archive.Result, error) {
	e, err := p.Entry(rec, raw)
	if err != nil {
		return archive.Result{}, err
	}
	return p.publishEntry(context.WithoutCancel(ctx), e, modeSync)
}

// PublishAsync waits for the previously submitted transaction, then starts
// the transaction for rec in the background and returns its handle.
//
// If ctx is done before the predecessor finishes, the transaction is never
// started and ctx.Err() is returned.
func (p *Publisher) PublishAsync(ctx context.Context, rec *period.Record, raw []byte) (*Handle, error) {
	e, err := p.Entry(rec, raw)
	if err != nil {
		return nil, err
	}

	h := newHandle()
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPublisherClosed
	}
	prev := p.last
	p.last = h
	p.mu.Unlock()

	if prev != nil {
		start := time.Now()
		select {
		case <-prev.done:
			metrics.AsyncWait.Observe(time.Since(start).Seconds())
		case <-ctx.Done():
			// h is already someone's predecessor; it may only complete
			// after prev does.
			err := ctx.Err()
			go func() {
				<-prev.done
				h.finish(archive.Result{}, err)
			}()
			return h, err
		}
	}

	go p.run(ctx, h, e)
	return h, nil
}

func (p *Publisher) run(ctx context.Context, h *Handle, e archive.Entry) {
	var (
		res archive.Result
		err error
	)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("publish %s panicked: %v", e.Key, r)
		}
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).
				Str("stream", p.cfg.Stream).
				Str("key", e.Key).
				Msg("Failed to publish message asynchronously")
		}
		h.finish(res, err)
	}()
	res, err = p.publishEntry(context.WithoutCancel(ctx), e, modeAsync)
}

func (p *Publisher) publishEntry(ctx context.Context, e archive.Entry, mode string) (archive.Result, error) {
	start := time.Now()

	var (
		res archive.Result
		err error
	)
	if p.breaker != nil {
		res, err = p.breaker.Execute(func() (archive.Result, error) {
			return p.store.Publish(ctx, e)
		})
	} else {
		res, err = p.store.Publish(ctx, e)
	}
	metrics.RecordPublish(mode, res, time.Since(start), err)

	if err != nil {
		p.failed.Add(1)
		return archive.Result{}, fmt.Errorf("publish %s to %s: %w", e.Key, p.cfg.Stream, err)
	}
	p.published.Add(1)
	p.lastOutcome.Store(res.Outcome)

	logging.Ctx(ctx).Info().
		Str("stream", p.cfg.Stream).
		Str("key", e.Key).
		Int64("info_count", e.InfoCount).
		Str("outcome", string(res.Outcome)).
		Str("operation", string(res.Operation)).
		Int("replaced", res.ReplacedCount).
		Int("evicted", res.Evicted).
		Int("duplicates_removed", res.DuplicatesRemoved).
		Str("mode", mode).
		Msg("Message published")
	return res, nil
}

// Drain stops accepting asynchronous publishes and waits up to timeout for
// the outstanding one. It reports whether nothing was left in flight.
func (p *Publisher) Drain(timeout time.Duration) bool {
	p.mu.Lock()
	p.closed = true
	last := p.last
	p.mu.Unlock()

	if last == nil {
		return true
	}
	select {
	case <-last.done:
		return true
	case <-time.After(timeout):
		logging.Warn().
			Str("stream", p.cfg.Stream).
			Dur("grace", timeout).
			Msg("Abandoning in-flight asynchronous publish")
		return false
	}
}

// Stats returns current counters.
func (p *Publisher) Stats() Stats {
	s := Stats{
		Published: p.published.Load(),
		Failed:    p.failed.Load(),
	}
	if o, ok := p.lastOutcome.Load().(archive.Outcome); ok {
		s.LastOutcome = o
	}
	p.mu.Lock()
	if p.last != nil {
		select {
		case <-p.last.done:
		default:
			s.InFlight = true
		}
	}
	p.mu.Unlock()
	if p.breaker != nil {
		s.Breaker = p.breaker.State().String()
	}
	return s
}
