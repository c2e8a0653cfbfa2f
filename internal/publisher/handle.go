// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package publisher

import (
	"context"

	"github.com/tomtom215/mktarchive/internal/archive"
)

// Handle joins one asynchronous publish.
type Handle struct {
	done chan struct{}
	res  archive.Result
	err  error
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// finish must be called exactly once.
func (h *Handle) finish(res archive.Result, err error) {
	h.res, h.err = res, err
	close(h.done)
}

// Done is closed when the transaction has finished or been abandoned.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the transaction finishes or ctx is done.
func (h *Handle) Wait(ctx context.Context) (archive.Result, error) {
	select {
	case <-h.done:
		return h.res, h.err
	case <-ctx.Done():
		return archive.Result{}, ctx.Err()
	}
}
