// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/sentinelcam/sentinel/internal/alert"
	"github.com/sentinelcam/sentinel/internal/logging"
	"github.com/sentinelcam/sentinel/internal/pipeline"
)

var validate = validator.New()

// defaultAlertLimit caps unpaginated alert listings.
const defaultAlertLimit = 100

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("response encode failed")
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"running": s.manager.Running(),
	})
}

// startDetectionRequest is the body of POST /api/v1/detection/start.
type startDetectionRequest struct {
	// Source is the video source URL: an http(s) MJPEG stream or the
	// synthetic: test pattern.
	Source string `json:"source" validate:"required"`

	// Name labels this pipeline in alerts and logs.
	Name string `json:"name"`

	// FPS overrides the nominal frame rate. 0 uses the configured value.
	FPS float64 `json:"fps" validate:"gte=0,lte=240"`
}

func (s *Server) handleStartDetection(w http.ResponseWriter, r *http.Request) {
	var req startDetectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.manager.Start(req.Source, req.Name, req.FPS); err != nil {
		if errors.Is(err, pipeline.ErrAlreadyRunning) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "detection started"})
}

func (s *Server) handleStopDetection(w http.ResponseWriter, _ *http.Request) {
	if err := s.manager.Stop(); err != nil {
		if errors.Is(err, pipeline.ErrNotRunning) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "detection stopped"})
}

func (s *Server) handleDetectionStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"running":  s.manager.Running(),
		"pipeline": s.manager.Name(),
	})
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := defaultAlertLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	recs, err := s.alerts.List(r.Context(), limit)
	if err != nil {
		logging.Error().Err(err).Msg("alert listing failed")
		respondError(w, http.StatusInternalServerError, "alert listing failed")
		return
	}
	if recs == nil {
		recs = []alert.Record{}
	}
	respondJSON(w, http.StatusOK, recs)
}

func (s *Server) handleLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	rec, err := s.alerts.Latest(r.Context())
	if err != nil {
		if errors.Is(err, alert.ErrNoAlerts) {
			respondError(w, http.StatusNotFound, "no alerts recorded")
			return
		}
		respondError(w, http.StatusInternalServerError, "alert lookup failed")
		return
	}
	if rec.SnapshotPath == "" || s.snapshots == nil {
		respondError(w, http.StatusNotFound, "latest alert has no snapshot")
		return
	}

	data, err := s.snapshots.Read(rec.SnapshotPath)
	if err != nil {
		logging.Warn().Err(err).Str("path", rec.SnapshotPath).Msg("snapshot read failed")
		respondError(w, http.StatusNotFound, "snapshot unavailable")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
