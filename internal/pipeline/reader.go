// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

// Package pipeline runs the per-source detection pipeline: a reader
// service that pulls frames from the video source into a bounded buffer,
// and a worker service that runs every analysis stage over each frame.
// Both are supervised; the manager starts and stops them as a pair.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/sentinelcam/sentinel/internal/buffer"
	"github.com/sentinelcam/sentinel/internal/logging"
	"github.com/sentinelcam/sentinel/internal/metrics"
	"github.com/sentinelcam/sentinel/internal/video"
)

// transientRetryDelay spaces retries after a recoverable read fault.
const transientRetryDelay = 50 * time.Millisecond

// Reader pulls frames from the source into the ingestion buffer. It
// closes the buffer when the source ends so the worker drains and stops.
type Reader struct {
	name   string
	source video.Source
	ingest *buffer.Ring[*video.Frame]
}

// NewReader creates a reader service.
func NewReader(name string, source video.Source, ingest *buffer.Ring[*video.Frame]) *Reader {
	return &Reader{name: name, source: source, ingest: ingest}
}

// String names the service in the supervision tree.
func (r *Reader) String() string { return "reader-" + r.name }

// Serve reads until the source ends or the context is canceled.
func (r *Reader) Serve(ctx context.Context) error {
	for {
		frame, err := r.source.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return ctx.Err()
		case errors.Is(err, video.ErrSourceClosed):
			logging.Info().Str("pipeline", r.name).Msg("video source ended")
			r.ingest.Close()
			return suture.ErrDoNotRestart
		case errors.Is(err, video.ErrTransientRead):
			logging.Warn().Err(err).Str("pipeline", r.name).Msg("transient read fault, retrying")
			select {
			case <-time.After(transientRetryDelay):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		default:
			// Unclassified source failure: let the supervisor restart us.
			return err
		}

		metrics.FramesIngested.Inc()
		if !r.ingest.Push(frame) {
			metrics.FramesDropped.WithLabelValues("ingestion").Inc()
		}
		metrics.BufferDepth.WithLabelValues("ingestion").Set(float64(r.ingest.Len()))
	}
}
