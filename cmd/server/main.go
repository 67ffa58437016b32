// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

// Package main is the entry point for the Sentinel monitoring daemon.
//
// Sentinel watches a video source for signs of trouble at unattended
// sites (ATM lobbies, kiosks, storage rooms): camera tampering, weapons,
// loitering, violent motion, and possible medical collapse. Findings are
// scored into tiered alerts and fanned out over SMS, voice call, email,
// and webhooks, with an annotated evidence snapshot per alert.
//
// # Startup order
//
//  1. Configuration: Koanf v2 layering of defaults, config.yaml, and
//     SENTINEL_* environment variables
//  2. Alert history store: BadgerDB when alerts.store_path is set,
//     in-memory otherwise
//  3. Alert bus and notification channels (Twilio, SMTP, webhook), each
//     behind a circuit breaker
//  4. Supervision tree: capture layer (frame reader + detection worker),
//     alerting layer (notification worker, WebSocket hub), API layer
//  5. HTTP server: control API, alert history, MJPEG live feed, /metrics
//
// A channel with empty credentials is disabled, not an error. With
// capture.autostart set and a capture.source configured, the pipeline
// starts at boot; otherwise it waits for POST /api/v1/detection/start.
//
// The daemon shuts down gracefully on SIGINT and SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sentinelcam/sentinel/internal/alert"
	"github.com/sentinelcam/sentinel/internal/api"
	"github.com/sentinelcam/sentinel/internal/buffer"
	"github.com/sentinelcam/sentinel/internal/config"
	"github.com/sentinelcam/sentinel/internal/dispatch"
	"github.com/sentinelcam/sentinel/internal/logging"
	"github.com/sentinelcam/sentinel/internal/notify"
	"github.com/sentinelcam/sentinel/internal/perception"
	"github.com/sentinelcam/sentinel/internal/pipeline"
	"github.com/sentinelcam/sentinel/internal/snapshot"
	"github.com/sentinelcam/sentinel/internal/supervisor"
	"github.com/sentinelcam/sentinel/internal/video"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("sentinel exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logging.Init(cfg.Logging.ToLogging())
	logging.Info().Str("version", version).Msg("sentinel starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Alert history: durable when a store path is configured.
	var store alert.Store
	if cfg.Alerts.StorePath != "" {
		bs, err := alert.OpenBadgerStore(cfg.Alerts.StorePath)
		if err != nil {
			return fmt.Errorf("open alert store: %w", err)
		}
		store = bs
		logging.Info().Str("path", cfg.Alerts.StorePath).Msg("alert history on disk")
	} else {
		store = alert.NewMemoryStore()
		logging.Info().Msg("alert history in memory, set alerts.store_path to persist")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Warn().Err(err).Msg("alert store close failed")
		}
	}()

	snaps, err := snapshot.NewStore(cfg.Alerts.SnapshotDir, cfg.Alerts.SnapshotQuality)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}

	bus := dispatch.NewBus()
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Warn().Err(err).Msg("alert bus close failed")
		}
	}()

	collector := alert.NewCollector(store, cfg.Alerts.DedupWindow)
	dispatcher := dispatch.NewDispatcher(collector, snaps, bus, cfg.Alerts.Cooldown)

	notifiers := buildNotifiers(cfg.Notify)
	if len(notifiers) == 0 {
		logging.Warn().Msg("no notification channels configured, alerts stay local")
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	output := buffer.New[*video.Frame](cfg.Capture.OutputBufferSize)
	manager := pipeline.NewManager(tree.Capture(), dispatcher, capabilities(), pipeline.StageConfig{
		Tamper:           cfg.Tamper,
		Perception:       cfg.Perception,
		Action:           cfg.Action,
		IngestBufferSize: cfg.Capture.BufferSize,
	}, output)

	tree.AddAlertingService(dispatch.NewNotifyWorker(bus, notifiers))
	hub := api.NewHub(bus, cfg.Server.CORSOrigins)
	tree.AddAlertingService(hub)
	tree.AddAPIService(api.NewServer(cfg.Server, manager, store, snaps, hub))

	errCh := tree.ServeBackground(ctx)

	if cfg.Capture.Autostart && cfg.Capture.Source != "" {
		if err := manager.Start(cfg.Capture.Source, cfg.Capture.Name, cfg.Capture.FPS); err != nil {
			logging.Error().Err(err).Str("source", cfg.Capture.Source).Msg("autostart failed")
		}
	}

	<-ctx.Done()
	logging.Info().Msg("shutdown signal received")

	if manager.Running() {
		if err := manager.Stop(); err != nil && !errors.Is(err, pipeline.ErrNotRunning) {
			logging.Warn().Err(err).Msg("pipeline stop failed during shutdown")
		}
	}

	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}
	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service did not stop in time")
		}
	}

	logging.Info().Msg("sentinel stopped")
	return nil
}

// buildNotifiers assembles the enabled outbound channels, each behind a
// circuit breaker. Voice calls only fire for HIGH alerts; the channel
// enforces that itself.
func buildNotifiers(cfg config.NotifyConfig) []notify.Notifier {
	var out []notify.Notifier

	if cfg.Twilio.Enabled() {
		out = append(out,
			notify.WithBreaker(notify.NewTwilioSMS(cfg.Twilio)),
			notify.WithBreaker(notify.NewTwilioCall(cfg.Twilio)),
		)
		logging.Info().Msg("twilio sms and voice channels enabled")
	}
	if cfg.Email.Enabled() {
		out = append(out, notify.WithBreaker(notify.NewEmail(cfg.Email)))
		logging.Info().Str("host", cfg.Email.Host).Msg("email channel enabled")
	}
	if cfg.Webhook.Enabled() {
		wh, err := notify.NewWebhook(cfg.Webhook)
		if err != nil {
			// Load() validated the URL already; keep the daemon up anyway.
			logging.Error().Err(err).Msg("webhook channel misconfigured, skipping")
		} else {
			out = append(out, notify.WithBreaker(wh))
			logging.Info().Msg("webhook channel enabled")
		}
	}
	return out
}

// capabilities wires the detection model adapters. Model inference is an
// external concern; the built-in stub reports no detections, which keeps
// tamper alerting fully functional and lets deployments swap in real
// adapters behind the same interfaces.
func capabilities() pipeline.Capabilities {
	return pipeline.Capabilities{
		Person: perception.NewStubDetector(),
	}
}
