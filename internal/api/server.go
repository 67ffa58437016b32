// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

// Package api serves the HTTP surface: detection control, alert history,
// the MJPEG live feed, the alert WebSocket stream, health, and metrics.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/sentinelcam/sentinel/internal/alert"
	"github.com/sentinelcam/sentinel/internal/config"
	"github.com/sentinelcam/sentinel/internal/logging"
	"github.com/sentinelcam/sentinel/internal/pipeline"
	"github.com/sentinelcam/sentinel/internal/snapshot"
)

// Server is the HTTP API, run as a supervised service.
type Server struct {
	cfg       config.ServerConfig
	manager   *pipeline.Manager
	alerts    alert.Store
	snapshots *snapshot.Store
	hub       *Hub

	httpServer *http.Server
}

// NewServer wires the API over its dependencies. hub may be nil to
// disable the WebSocket stream.
func NewServer(cfg config.ServerConfig, manager *pipeline.Manager, alerts alert.Store, snapshots *snapshot.Store, hub *Hub) *Server {
	s := &Server{
		cfg:       cfg,
		manager:   manager,
		alerts:    alerts,
		snapshots: snapshots,
		hub:       hub,
	}
	s.httpServer = &http.Server{
		Addr:        cfg.Addr(),
		Handler:     s.routes(),
		ReadTimeout: cfg.ReadTimeout,
		// WriteTimeout stays 0: the live feed holds responses open.
	}
	return s
}

// String names the service in the supervision tree.
func (s *Server) String() string { return "http-api" }

// Serve runs the server until the context is canceled.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.cfg.Addr()).Msg("http api listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("http shutdown incomplete, closing")
			_ = s.httpServer.Close()
		}
		return ctx.Err()
	}
}
