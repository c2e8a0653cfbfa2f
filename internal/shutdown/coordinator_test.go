// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package shutdown

import (
	"context"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestFlag(t *testing.T) {
	t.Parallel()

	f := NewFlag()
	if f.IsSet() {
		t.Fatal("new flag is set")
	}
	select {
	case <-f.Done():
		t.Fatal("Done closed before Set")
	default:
	}

	f.Set()
	f.Set()
	if !f.IsSet() {
		t.Error("flag not set")
	}
	select {
	case <-f.Done():
	default:
		t.Error("Done not closed after Set")
	}
}

// Records the order of shutdown steps.
type journal struct {
	mu    sync.Mutex
	steps []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	j.steps = append(j.steps, s)
	j.mu.Unlock()
}

func (j *journal) get() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.steps...)
}

func TestRunSequencesShutdown(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(time.Second)
	var j journal

	ingestDone := make(chan struct{})
	go func() {
		<-c.Flag().Done()
		j.add("ingest stopped")
		close(ingestDone)
	}()
	c.Register("ingest", DrainFunc(func(timeout time.Duration) bool {
		select {
		case <-ingestDone:
			return true
		case <-time.After(timeout):
			return false
		}
	}))
	c.Register("publisher", DrainFunc(func(time.Duration) bool {
		j.add("publisher drained")
		return true
	}))

	go func() {
		time.Sleep(10 * time.Millisecond)
		c.Trigger()
	}()

	err := c.Run(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		if c.Flag().IsSet() {
			t.Error("ingestion flag set before the main loop returned")
		}
		j.add("main stopped")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"main stopped", "ingest stopped", "publisher drained"}
	got := j.get()
	if len(got) != len(want) {
		t.Fatalf("steps = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRunBoundsGracePeriod(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(30 * time.Millisecond)
	var budgets []time.Duration
	stuck := DrainFunc(func(timeout time.Duration) bool {
		budgets = append(budgets, timeout)
		time.Sleep(timeout)
		return false
	})
	c.Register("a", stuck)
	c.Register("b", stuck)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_ = c.Run(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("shutdown took %v with a 30ms grace period", elapsed)
	}
	if len(budgets) != 2 || budgets[1] > 5*time.Millisecond {
		t.Errorf("budgets = %v, want the second drainer left with almost nothing", budgets)
	}
}

func TestRunStopsOnSignal(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(10 * time.Millisecond)
	injected := make(chan os.Signal, 1)
	c.notify = func(ch chan<- os.Signal, _ ...os.Signal) {
		go func() { ch <- <-injected }()
	}

	go func() {
		time.Sleep(5 * time.Millisecond)
		injected <- syscall.SIGTERM
	}()

	done := make(chan error, 1)
	go func() {
		done <- c.Run(context.Background(), func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
	}()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after SIGTERM")
	}
	if !c.Flag().IsSet() {
		t.Error("flag not set")
	}
}

func TestNewCoordinatorDefaultGrace(t *testing.T) {
	t.Parallel()

	if c := NewCoordinator(0); c.grace != DefaultGracePeriod {
		t.Errorf("grace = %v", c.grace)
	}
}
