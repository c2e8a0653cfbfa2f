// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomtom215/mktarchive/internal/archive"
	"github.com/tomtom215/mktarchive/internal/period"
)

var (
	// Ingestion
	EnvelopesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mktarchive_envelopes_received_total",
			Help: "Envelopes received from the transport",
		},
	)

	TransportErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mktarchive_transport_errors_total",
			Help: "Transport receive errors other than no-data",
		},
	)

	BroadcastDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mktarchive_broadcast_dropped_total",
			Help: "Envelopes overwritten in the broadcast ring before a subscriber read them",
		},
	)

	// Decoding
	DecodeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mktarchive_decode_errors_total",
			Help: "Envelopes dropped because they could not be decoded",
		},
		[]string{"reason"}, // "format", "decompress", "other"
	)

	// Publishing
	PublishOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mktarchive_publish_outcomes_total",
			Help: "Compaction transactions by outcome",
		},
		[]string{"mode", "outcome"}, // mode: "sync", "async"
	)

	PublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mktarchive_publish_failures_total",
			Help: "Compaction transactions that returned an error",
		},
		[]string{"mode"},
	)

	PublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mktarchive_publish_duration_seconds",
			Help:    "Latency of one compaction transaction",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"mode"},
	)

	AsyncWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mktarchive_async_wait_seconds",
			Help:    "Time PublishAsync spent waiting for the previous transaction",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	// Archive
	Evictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mktarchive_archive_evictions_total",
			Help: "Entries removed by FIFO retention",
		},
	)

	DuplicatesRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mktarchive_archive_duplicates_removed_total",
			Help: "Same-period duplicates collapsed during compaction",
		},
	)

	// Ops HTTP
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mktarchive_http_requests_total",
			Help: "Ops HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mktarchive_http_request_duration_seconds",
			Help:    "Ops HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mktarchive_store_breaker_state",
			Help: "Store circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

// RecordDecodeError classifies err by the period sentinel it wraps.
func RecordDecodeError(err error) {
	reason := "other"
	switch {
	case errors.Is(err, period.ErrDecompress):
		reason = "decompress"
	case errors.Is(err, period.ErrFormat):
		reason = "format"
	}
	DecodeErrors.WithLabelValues(reason).Inc()
}

// RecordAPIRequest records one ops HTTP request. route must be the matched
// pattern, not the raw path.
func RecordAPIRequest(method, route, status string, d time.Duration) {
	APIRequests.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// RecordPublish records one compaction transaction.
func RecordPublish(mode string, res archive.Result, d time.Duration, err error) {
	PublishDuration.WithLabelValues(mode).Observe(d.Seconds())
	if err != nil {
		PublishFailures.WithLabelValues(mode).Inc()
		return
	}
	PublishOutcomes.WithLabelValues(mode, string(res.Outcome)).Inc()
	if res.Evicted > 0 {
		Evictions.Add(float64(res.Evicted))
	}
	if res.DuplicatesRemoved > 0 {
		DuplicatesRemoved.Add(float64(res.DuplicatesRemoved))
	}
}
