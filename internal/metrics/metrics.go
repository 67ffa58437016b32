// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

// Package metrics exposes Prometheus instrumentation for the monitoring
// pipeline: frame flow, per-stage latency, detection and alert volumes,
// and notification transport health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Frame flow

	FramesIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_frames_ingested_total",
			Help: "Total frames read from the video source",
		},
	)

	FramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_frames_dropped_total",
			Help: "Total frames evicted by drop-oldest backpressure",
		},
		[]string{"buffer"}, // "ingestion", "output"
	)

	FramesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_frames_processed_total",
			Help: "Total frames run through the full pipeline",
		},
	)

	BufferDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sentinel_buffer_depth",
			Help: "Current number of frames resident in a buffer",
		},
		[]string{"buffer"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_stage_duration_seconds",
			Help:    "Per-frame duration of each pipeline stage",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"stage"}, // "tamper", "perception", "action", "decision", "annotate"
	)

	// Detections

	DetectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_detections_total",
			Help: "Total accepted detections by class",
		},
		[]string{"class"},
	)

	WeaponsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_weapons_suppressed_total",
			Help: "Weapon detections suppressed by person-overlap IoU",
		},
	)

	TamperEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_tamper_events_total",
			Help: "Frames flagged as covered by the tamper stage",
		},
		[]string{"reason"},
	)

	ActionEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_action_events_total",
			Help: "Per-track action events emitted",
		},
		[]string{"kind"}, // "violent_motion", "possible_faint"
	)

	CapabilityErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_capability_errors_total",
			Help: "External model capability failures, degraded to empty results",
		},
		[]string{"capability"},
	)

	// Alerts

	AlertsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_alerts_dispatched_total",
			Help: "Alerts dispatched to the notification queue",
		},
		[]string{"level"},
	)

	AlertsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_alerts_suppressed_total",
			Help: "Alert dispatches suppressed before fan-out",
		},
		[]string{"cause"}, // "cooldown", "dedup"
	)

	NotifyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_notify_failures_total",
			Help: "Notification channel send failures (best effort, not retried)",
		},
		[]string{"channel"},
	)

	NotifySent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_notify_sent_total",
			Help: "Successful notification channel sends",
		},
		[]string{"channel"},
	)

	// API

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_websocket_clients",
			Help: "Currently connected alert-stream WebSocket clients",
		},
	)
)
