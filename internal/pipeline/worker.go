// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package pipeline

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/sentinelcam/sentinel/internal/action"
	"github.com/sentinelcam/sentinel/internal/annotate"
	"github.com/sentinelcam/sentinel/internal/buffer"
	"github.com/sentinelcam/sentinel/internal/decision"
	"github.com/sentinelcam/sentinel/internal/dispatch"
	"github.com/sentinelcam/sentinel/internal/logging"
	"github.com/sentinelcam/sentinel/internal/metrics"
	"github.com/sentinelcam/sentinel/internal/perception"
	"github.com/sentinelcam/sentinel/internal/tamper"
	"github.com/sentinelcam/sentinel/internal/video"
)

// Worker drains the ingestion buffer through every analysis stage and
// pushes annotated frames to the output buffer. Stage state (tamper
// history, tracks, cooldowns) is reset each time Serve starts, so a
// supervisor restart or a stop/start cycle never leaks state.
type Worker struct {
	name string

	ingest *buffer.Ring[*video.Frame]
	output *buffer.Ring[*video.Frame]

	tamper     *tamper.Detector
	perception *perception.Stage
	action     *action.Stage
	decision   *decision.Engine
	dispatcher *dispatch.Dispatcher
}

// NewWorker assembles the stage chain for one pipeline.
func NewWorker(
	name string,
	ingest, output *buffer.Ring[*video.Frame],
	tamperDet *tamper.Detector,
	perceptionStage *perception.Stage,
	actionStage *action.Stage,
	dispatcher *dispatch.Dispatcher,
) *Worker {
	return &Worker{
		name:       name,
		ingest:     ingest,
		output:     output,
		tamper:     tamperDet,
		perception: perceptionStage,
		action:     actionStage,
		decision:   decision.NewEngine(),
		dispatcher: dispatcher,
	}
}

// String names the service in the supervision tree.
func (w *Worker) String() string { return "worker-" + w.name }

// Serve processes frames until the ingestion buffer closes and drains or
// the context is canceled.
func (w *Worker) Serve(ctx context.Context) error {
	w.tamper.Reset()
	w.action.Reset()
	w.dispatcher.Reset()

	for {
		frame, ok := w.ingest.Pop(ctx)
		if !ok {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.Info().Str("pipeline", w.name).Msg("ingestion drained, worker done")
			return suture.ErrDoNotRestart
		}
		metrics.BufferDepth.WithLabelValues("ingestion").Set(float64(w.ingest.Len()))

		w.process(ctx, frame)
	}
}

func (w *Worker) process(ctx context.Context, frame *video.Frame) {
	start := time.Now()
	gray := video.GrayFromFrame(frame)
	tamperRes := w.tamper.Check(gray)
	metrics.StageDuration.WithLabelValues("tamper").Observe(time.Since(start).Seconds())

	start = time.Now()
	persons, weapons := w.perception.Analyze(ctx, frame)
	metrics.StageDuration.WithLabelValues("perception").Observe(time.Since(start).Seconds())

	start = time.Now()
	actionRes := w.action.Observe(ctx, frame, persons)
	metrics.StageDuration.WithLabelValues("action").Observe(time.Since(start).Seconds())

	start = time.Now()
	dec := w.decision.Evaluate(persons, weapons, tamperRes, actionRes)
	metrics.StageDuration.WithLabelValues("decision").Observe(time.Since(start).Seconds())

	start = time.Now()
	annotated := annotate.Render(frame, persons, weapons, tamperRes, actionRes)
	metrics.StageDuration.WithLabelValues("annotate").Observe(time.Since(start).Seconds())

	if err := w.dispatcher.Dispatch(ctx, w.name, dec, annotated); err != nil {
		logging.Error().Err(err).Str("pipeline", w.name).Msg("alert dispatch failed")
	}

	if !w.output.Push(annotated) {
		metrics.FramesDropped.WithLabelValues("output").Inc()
	}
	metrics.BufferDepth.WithLabelValues("output").Set(float64(w.output.Len()))
	metrics.FramesProcessed.Inc()
}
