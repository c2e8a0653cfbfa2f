// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package ingest

import (
	"context"
	"errors"
	"testing"
	"time"
)

func drain(t *testing.T, s *Subscription) []string {
	t.Helper()
	var out []string
	for {
		msg, err := s.TryRecv()
		if errors.Is(err, ErrWouldBlock) || errors.Is(err, ErrClosed) {
			return out
		}
		if err != nil {
			t.Fatalf("TryRecv: %v", err)
		}
		out = append(out, string(msg))
	}
}

func TestBroadcasterDropsOldest(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(3)
	sub := b.Subscribe()
	for _, m := range []string{"a", "b", "c", "d", "e"} {
		if n := b.Send([]byte(m)); n != 1 {
			t.Fatalf("Send(%s) delivered to %d subscribers", m, n)
		}
	}

	got := drain(t, sub)
	want := []string{"c", "d", "e"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
			break
		}
	}
	if sub.Dropped() != 2 {
		t.Errorf("Dropped = %d, want 2", sub.Dropped())
	}
}

func TestBroadcasterDefaultCapacity(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(0)
	sub := b.Subscribe()
	for i := 0; i < 10; i++ {
		b.Send([]byte{byte(i)})
	}
	if got := len(drain(t, sub)); got != DefaultBroadcastCapacity {
		t.Errorf("buffered %d, want %d", got, DefaultBroadcastCapacity)
	}
}

func TestBroadcasterSubscribersAreIndependent(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(2)
	fast := b.Subscribe()
	slow := b.Subscribe()

	b.Send([]byte("1"))
	if got := drain(t, fast); len(got) != 1 {
		t.Fatalf("fast got %v", got)
	}
	b.Send([]byte("2"))
	b.Send([]byte("3"))

	if fast.Dropped() != 0 {
		t.Errorf("fast dropped %d", fast.Dropped())
	}
	if slow.Dropped() != 1 {
		t.Errorf("slow dropped %d, want 1", slow.Dropped())
	}
	if got := drain(t, slow); len(got) != 2 || got[0] != "2" {
		t.Errorf("slow got %v, want [2 3]", got)
	}
}

func TestBroadcasterCloseDrainsThenReportsClosed(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(3)
	sub := b.Subscribe()
	b.Send([]byte("last"))
	b.Close()

	ctx := context.Background()
	msg, err := sub.Recv(ctx)
	if err != nil || string(msg) != "last" {
		t.Fatalf("Recv = %q, %v; want buffered message", msg, err)
	}
	if _, err := sub.Recv(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Recv after drain = %v, want ErrClosed", err)
	}
	if n := b.Send([]byte("ignored")); n != 0 {
		t.Errorf("Send after Close delivered to %d", n)
	}
	if _, err := b.Subscribe().TryRecv(); !errors.Is(err, ErrClosed) {
		t.Errorf("late subscription = %v, want ErrClosed", err)
	}
}

func TestSubscriptionRecvWakesOnSend(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(1)
	sub := b.Subscribe()

	got := make(chan string, 1)
	go func() {
		msg, err := sub.Recv(context.Background())
		if err != nil {
			got <- err.Error()
			return
		}
		got <- string(msg)
	}()

	time.Sleep(10 * time.Millisecond)
	b.Send([]byte("hello"))

	select {
	case m := <-got:
		if m != "hello" {
			t.Errorf("got %q", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Recv did not wake")
	}
}

func TestSubscriptionRecvHonoursContext(t *testing.T) {
	t.Parallel()

	sub := NewBroadcaster(1).Subscribe()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := sub.Recv(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(2)
	sub := b.Subscribe()
	b.Send([]byte("kept"))
	sub.Unsubscribe()

	if n := b.Send([]byte("after")); n != 0 {
		t.Errorf("Send reached %d subscribers after Unsubscribe", n)
	}
	if got := drain(t, sub); len(got) != 1 || got[0] != "kept" {
		t.Errorf("got %v, want [kept]", got)
	}
}
