// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/mktarchive/internal/logging"
	"github.com/tomtom215/mktarchive/internal/metrics"
)

// DefaultBroadcastCapacity is the per-subscriber ring size.
const DefaultBroadcastCapacity = 3

// Broadcaster fans envelopes out to subscribers without ever blocking the
// sender. Each subscriber owns a ring of fixed capacity; sending into a full
// ring overwrites its oldest envelope.
type Broadcaster struct {
	capacity int

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool

	dropLog rate.Sometimes
}

// NewBroadcaster returns a Broadcaster with the given per-subscriber
// capacity, or DefaultBroadcastCapacity when capacity is not positive.
func NewBroadcaster(capacity int) *Broadcaster {
	if capacity <= 0 {
		capacity = DefaultBroadcastCapacity
	}
	return &Broadcaster{
		capacity: capacity,
		subs:     make(map[*Subscription]struct{}),
		dropLog:  rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
}

// Subscribe registers a subscriber that sees every envelope sent from now on.
// A subscription taken after Close reports ErrClosed immediately.
func (b *Broadcaster) Subscribe() *Subscription {
	s := &Subscription{
		b:      b,
		ring:   make([][]byte, b.capacity),
		notify: make(chan struct{}, 1),
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.closed = true
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

// Send delivers msg to every subscriber and returns how many received it.
// msg must not be modified afterwards.
func (b *Broadcaster) Send(msg []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0
	}
	for s := range b.subs {
		if s.push(msg) {
			metrics.BroadcastDropped.Inc()
			b.dropLog.Do(func() {
				logging.Warn().
					Uint64("dropped_total", s.Dropped()).
					Int("capacity", b.capacity).
					Msg("Subscriber lagging, oldest envelope overwritten")
			})
		}
	}
	return len(b.subs)
}

// Close wakes all subscribers. They still receive what is buffered, then
// ErrClosed.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		s.close()
	}
	b.subs = nil
}

// Subscription is one subscriber's ring.
type Subscription struct {
	b *Broadcaster

	mu     sync.Mutex
	ring   [][]byte
	head   int
	count  int
	closed bool

	notify  chan struct{}
	dropped atomic.Uint64
}

// push reports whether an envelope was overwritten.
func (s *Subscription) push(msg []byte) bool {
	s.mu.Lock()
	overwrote := false
	if s.count == len(s.ring) {
		s.ring[s.head] = nil
		s.head = (s.head + 1) % len(s.ring)
		s.count--
		overwrote = true
		s.dropped.Add(1)
	}
	s.ring[(s.head+s.count)%len(s.ring)] = msg
	s.count++
	s.mu.Unlock()

	s.wake()
	return overwrote
}

func (s *Subscription) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wake()
}

func (s *Subscription) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// TryRecv returns the oldest buffered envelope without waiting.
func (s *Subscription) TryRecv() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == 0 {
		if s.closed {
			return nil, ErrClosed
		}
		return nil, ErrWouldBlock
	}
	msg := s.ring[s.head]
	s.ring[s.head] = nil
	s.head = (s.head + 1) % len(s.ring)
	s.count--
	return msg, nil
}

// Recv waits for the next envelope, ErrClosed, or ctx.
func (s *Subscription) Recv(ctx context.Context) ([]byte, error) {
	for {
		msg, err := s.TryRecv()
		if err != ErrWouldBlock {
			return msg, err
		}
		select {
		case <-s.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Dropped counts envelopes overwritten before this subscriber read them.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Unsubscribe detaches s; buffered envelopes stay readable.
func (s *Subscription) Unsubscribe() {
	s.b.mu.Lock()
	delete(s.b.subs, s)
	s.b.mu.Unlock()
	s.close()
}
