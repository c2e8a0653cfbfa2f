// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package ingest

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/mktarchive/internal/archive"
	"github.com/tomtom215/mktarchive/internal/period"
	"github.com/tomtom215/mktarchive/internal/publisher"
)

type published struct {
	rec   *period.Record
	raw   []byte
	async bool
}

type fakeSink struct {
	mu    sync.Mutex
	calls []published
	err   error
	got   chan struct{}
}

func newFakeSink() *fakeSink {
	return &fakeSink{got: make(chan struct{}, 16)}
}

func (s *fakeSink) record(p published) {
	s.mu.Lock()
	s.calls = append(s.calls, p)
	s.mu.Unlock()
	s.got <- struct{}{}
}

func (s *fakeSink) Publish(_ context.Context, rec *period.Record, raw []byte) (archive.Result, error) {
	s.record(published{rec: rec, raw: raw})
	return archive.Result{Outcome: archive.OutcomeUpdated}, s.err
}

func (s *fakeSink) PublishAsync(_ context.Context, rec *period.Record, raw []byte) (*publisher.Handle, error) {
	s.record(published{rec: rec, raw: raw, async: true})
	return nil, s.err
}

func (s *fakeSink) snapshot() []published {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]published(nil), s.calls...)
}

func envelope(t *testing.T, periodID, postTS int64, compressed bool) []byte {
	t.Helper()
	rec := &period.Record{
		Period:   periodID,
		PostTS:   postTS,
		PosterID: "test",
		SymbolInfos: []period.SymbolInfo{{
			Symbol: "BTCUSDT",
			Trades: []period.Trade{{Timestamp: 1, Side: "buy", Price: 1, Amount: 1}},
		}},
	}
	b, err := period.Encode(rec, compressed, period.FormatPrimary)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return b
}

func runConsumer(t *testing.T, c *Consumer, ctx context.Context) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	return done
}

func waitCalls(t *testing.T, s *fakeSink, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-s.got:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of %d publishes arrived", i, n)
		}
	}
}

func TestConsumerPublishesDecodedRecords(t *testing.T) {
	for _, async := range []bool{false, true} {
		name := "sync"
		if async {
			name = "async"
		}
		t.Run(name, func(t *testing.T) {
			b := NewBroadcaster(3)
			sink := newFakeSink()
			c := NewConsumer(b.Subscribe(), sink, ConsumerConfig{
				Decoder: DecoderConfig{Format: period.FormatPrimary, Compressed: true},
				Async:   async,
			})
			done := runConsumer(t, c, context.Background())

			env := envelope(t, 42, 1000, true)
			b.Send(env)
			waitCalls(t, sink, 1)
			b.Close()

			if err := <-done; !errors.Is(err, ErrClosed) {
				t.Errorf("Run = %v, want ErrClosed", err)
			}
			calls := sink.snapshot()
			if len(calls) != 1 {
				t.Fatalf("got %d publishes", len(calls))
			}
			if calls[0].async != async {
				t.Errorf("async = %v, want %v", calls[0].async, async)
			}
			if calls[0].rec.Period != 42 || calls[0].rec.InfoCount() != 1 {
				t.Errorf("record = %+v", calls[0].rec)
			}
			if !bytes.Equal(calls[0].raw, env) {
				t.Error("payload is not the original envelope")
			}
		})
	}
}

func TestConsumerDropsUndecodable(t *testing.T) {
	b := NewBroadcaster(3)
	sink := newFakeSink()
	c := NewConsumer(b.Subscribe(), sink, ConsumerConfig{
		Decoder: DecoderConfig{Compressed: true},
	})
	done := runConsumer(t, c, context.Background())

	b.Send([]byte("not zlib"))
	b.Send(envelope(t, 7, 1, false)) // valid record, but not compressed
	b.Send(envelope(t, 8, 2, true))
	waitCalls(t, sink, 1)
	b.Close()
	<-done

	calls := sink.snapshot()
	if len(calls) != 1 || calls[0].rec.Period != 8 {
		t.Fatalf("published %d records, want only period 8", len(calls))
	}
	if st := c.Stats(); st.DecodeErrors != 2 || st.Decoded != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestConsumerContinuesAfterPublishFailure(t *testing.T) {
	b := NewBroadcaster(3)
	sink := newFakeSink()
	sink.err = errors.New("store down")
	c := NewConsumer(b.Subscribe(), sink, ConsumerConfig{Decoder: DecoderConfig{Compressed: true}})
	done := runConsumer(t, c, context.Background())

	b.Send(envelope(t, 1, 1, true))
	b.Send(envelope(t, 2, 2, true))
	waitCalls(t, sink, 2)
	b.Close()
	<-done

	if st := c.Stats(); st.PublishErrors != 2 {
		t.Errorf("PublishErrors = %d, want 2", st.PublishErrors)
	}
}

func TestConsumerStopsOnClosedPublisher(t *testing.T) {
	b := NewBroadcaster(3)
	sink := newFakeSink()
	sink.err = publisher.ErrPublisherClosed
	c := NewConsumer(b.Subscribe(), sink, ConsumerConfig{
		Decoder: DecoderConfig{Compressed: true},
		Async:   true,
	})
	done := runConsumer(t, c, context.Background())

	b.Send(envelope(t, 1, 1, true))
	select {
	case err := <-done:
		if !errors.Is(err, publisher.ErrPublisherClosed) {
			t.Errorf("Run = %v, want ErrPublisherClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("consumer kept running")
	}
}

func TestConsumerCancellationWinsOverReadyMessage(t *testing.T) {
	b := NewBroadcaster(3)
	sink := newFakeSink()
	c := NewConsumer(b.Subscribe(), sink, ConsumerConfig{Decoder: DecoderConfig{Compressed: true}})

	b.Send(envelope(t, 1, 1, true))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
	if n := len(sink.snapshot()); n != 0 {
		t.Errorf("published %d records after cancellation", n)
	}
}

func TestConsumerRunCanBeRestarted(t *testing.T) {
	b := NewBroadcaster(3)
	sink := newFakeSink()
	c := NewConsumer(b.Subscribe(), sink, ConsumerConfig{Decoder: DecoderConfig{Compressed: true}})

	ctx, cancel := context.WithCancel(context.Background())
	done := runConsumer(t, c, ctx)
	b.Send(envelope(t, 1, 1, true))
	waitCalls(t, sink, 1)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("first Run = %v, want context.Canceled", err)
	}

	// Sent while no Run is active; must be buffered for the next one.
	b.Send(envelope(t, 2, 2, true))

	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	done = runConsumer(t, c, ctx2)
	waitCalls(t, sink, 1)

	calls := sink.snapshot()
	if len(calls) != 2 || calls[1].rec.Period != 2 {
		t.Fatalf("calls = %d, want the second envelope published after restart", len(calls))
	}

	c.Close()
	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Run after Close = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run kept going after Close")
	}
}
