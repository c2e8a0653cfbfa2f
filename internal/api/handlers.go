// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/mktarchive/internal/ingest"
	"github.com/tomtom215/mktarchive/internal/logging"
	"github.com/tomtom215/mktarchive/internal/publisher"
)

// StoreProbe is satisfied by every archive.LogStore.
type StoreProbe interface {
	Len(ctx context.Context) (int64, error)
}

// PublisherSource is satisfied by *publisher.Publisher.
type PublisherSource interface {
	Stats() publisher.Stats
}

// ReceiverSource is satisfied by *ingest.Receiver.
type ReceiverSource interface {
	Received() uint64
	Errors() uint64
}

// ConsumerSource is satisfied by *ingest.Consumer.
type ConsumerSource interface {
	Stats() ingest.ConsumerStats
}

// StopFlag is satisfied by *shutdown.Flag.
type StopFlag interface {
	IsSet() bool
}

// Sources wires the handlers to the running components. Nil sources are
// reported as absent.
type Sources struct {
	Stream    string
	Store     StoreProbe
	Publisher PublisherSource
	Receiver  ReceiverSource
	Consumer  ConsumerSource
	Shutdown  StopFlag

	// ProbeTimeout bounds the store call made by /healthz. Default 2s.
	ProbeTimeout time.Duration
}

// Handler serves the ops endpoints.
type Handler struct {
	src       Sources
	startTime time.Time
}

// NewHandler returns a Handler over src.
func NewHandler(src Sources) *Handler {
	if src.ProbeTimeout <= 0 {
		src.ProbeTimeout = 2 * time.Second
	}
	return &Handler{src: src, startTime: time.Now()}
}

// HealthStatus is the /healthz body.
type HealthStatus struct {
	Status         string  `json:"status"`
	Stream         string  `json:"stream"`
	StoreReachable bool    `json:"store_reachable"`
	ShuttingDown   bool    `json:"shutting_down"`
	Uptime         float64 `json:"uptime_seconds"`
}

// Health reports 200 while the store answers and no shutdown is under way,
// 503 otherwise.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{
		Status: "healthy",
		Stream: h.src.Stream,
		Uptime: time.Since(h.startTime).Seconds(),
	}

	if h.src.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.src.ProbeTimeout)
		_, err := h.src.Store.Len(ctx)
		cancel()
		health.StoreReachable = err == nil
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Health check could not reach store")
			health.Status = "degraded"
		}
	}
	if h.src.Shutdown != nil && h.src.Shutdown.IsSet() {
		health.ShuttingDown = true
		health.Status = "stopping"
	}

	if health.Status != "healthy" {
		respondError(w, http.StatusServiceUnavailable, "UNHEALTHY", "archiver is "+health.Status, health)
		return
	}
	respondOK(w, health)
}

// Stats is the /stats body. Absent components are omitted.
type Stats struct {
	Stream    string                `json:"stream"`
	StoreLen  *int64                `json:"store_len,omitempty"`
	Received  *uint64               `json:"received,omitempty"`
	RecvErrs  *uint64               `json:"transport_errors,omitempty"`
	Consumer  *ingest.ConsumerStats `json:"consumer,omitempty"`
	Publisher *publisher.Stats      `json:"publisher,omitempty"`
}

// Stats reports counters from every wired component. A store error leaves
// store_len out rather than failing the request.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	out := Stats{Stream: h.src.Stream}

	if h.src.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.src.ProbeTimeout)
		n, err := h.src.Store.Len(ctx)
		cancel()
		if err == nil {
			out.StoreLen = &n
		}
	}
	if h.src.Receiver != nil {
		received, errs := h.src.Receiver.Received(), h.src.Receiver.Errors()
		out.Received, out.RecvErrs = &received, &errs
	}
	if h.src.Consumer != nil {
		cs := h.src.Consumer.Stats()
		out.Consumer = &cs
	}
	if h.src.Publisher != nil {
		ps := h.src.Publisher.Stats()
		out.Publisher = &ps
	}
	respondOK(w, out)
}
