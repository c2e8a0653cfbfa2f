// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package shutdown

import (
	"sync"
	"sync/atomic"
)

// Flag is a set-once, level-triggered stop signal. One goroutine sets it;
// any number poll IsSet or select on Done.
type Flag struct {
	set  atomic.Bool
	once sync.Once
	done chan struct{}
}

// NewFlag returns an unset Flag.
func NewFlag() *Flag {
	return &Flag{done: make(chan struct{})}
}

// Set is idempotent.
func (f *Flag) Set() {
	f.once.Do(func() {
		f.set.Store(true)
		close(f.done)
	})
}

func (f *Flag) IsSet() bool {
	return f.set.Load()
}

// Done is closed once the flag is set.
func (f *Flag) Done() <-chan struct{} {
	return f.done
}
