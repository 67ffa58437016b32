// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

// Package tamper detects camera signal-quality faults: obstruction,
// extreme lighting, severe defocus, and frozen signal. These are distinct
// from scene content; a covered camera is itself a security event.
package tamper

import (
	"time"

	"github.com/sentinelcam/sentinel/internal/metrics"
	"github.com/sentinelcam/sentinel/internal/video"
)

// Reason identifies the tamper condition that matched.
type Reason string

const (
	ReasonBlackFrame  Reason = "black_frame"
	ReasonWhiteFrame  Reason = "white_frame"
	ReasonBlurred     Reason = "blurred"
	ReasonFrozenFrame Reason = "frozen_frame"
)

// Result is the outcome of one tamper check.
type Result struct {
	Covered bool
	Reason  Reason
}

// Config holds the tamper detection thresholds.
type Config struct {
	// MeanBlack: mean intensity below this is a blacked-out frame.
	MeanBlack float64 `koanf:"mean_black" json:"mean_black" validate:"gte=0,lte=255"`

	// MeanWhite: mean intensity above this is a washed-out frame.
	MeanWhite float64 `koanf:"mean_white" json:"mean_white" validate:"gte=0,lte=255"`

	// StdBlur: intensity standard deviation below this is a near-uniform
	// frame, consistent with a lens cover or severe defocus.
	StdBlur float64 `koanf:"std_blur" json:"std_blur" validate:"gte=0"`

	// FreezeDiff: frame-to-frame mean absolute difference below this
	// counts toward a frozen signal.
	FreezeDiff float64 `koanf:"freeze_diff" json:"freeze_diff" validate:"gte=0"`

	// FreezeDuration is how long the signal must stay static before
	// frozen_frame is reported.
	FreezeDuration time.Duration `koanf:"freeze_duration" json:"freeze_duration" validate:"gt=0"`

	// FPS is the nominal source frame rate, used to convert
	// FreezeDuration into a frame count.
	FPS float64 `koanf:"fps" json:"fps" validate:"gt=0"`
}

// DefaultConfig returns the baseline thresholds.
func DefaultConfig() Config {
	return Config{
		MeanBlack:      10,
		MeanWhite:      245,
		StdBlur:        8,
		FreezeDiff:     2,
		FreezeDuration: 3 * time.Second,
		FPS:            25,
	}
}

// Detector holds the per-pipeline tamper state. It is owned exclusively by
// the single pipeline worker; no locking.
type Detector struct {
	cfg         Config
	freezeLimit int

	prevGray      *video.Gray
	freezeCounter int
}

// NewDetector creates a tamper detector with fresh state.
func NewDetector(cfg Config) *Detector {
	limit := int(cfg.FPS * cfg.FreezeDuration.Seconds())
	if limit < 1 {
		limit = 1
	}
	return &Detector{cfg: cfg, freezeLimit: limit}
}

// Check runs the ordered tamper checks against the grayscale frame.
// First match wins: black, white, blur, then freeze accumulation.
//
// The current plane always replaces the stored previous plane, covered or
// not: a stale reference after a transient cover would otherwise produce a
// false frozen_frame the moment the cover lifts.
func (d *Detector) Check(gray *video.Gray) Result {
	defer func() { d.prevGray = gray }()

	mean := gray.Mean()
	if mean < d.cfg.MeanBlack {
		return d.covered(ReasonBlackFrame)
	}
	if mean > d.cfg.MeanWhite {
		return d.covered(ReasonWhiteFrame)
	}
	if gray.StdDev() < d.cfg.StdBlur {
		return d.covered(ReasonBlurred)
	}

	if d.prevGray != nil {
		avgDiff, err := gray.MeanAbsDiff(d.prevGray)
		if err != nil {
			// Resolution change mid-stream; restart the freeze window.
			d.freezeCounter = 0
			return Result{}
		}
		if avgDiff < d.cfg.FreezeDiff {
			d.freezeCounter++
		} else {
			d.freezeCounter = 0
		}
		if d.freezeCounter >= d.freezeLimit {
			return d.covered(ReasonFrozenFrame)
		}
	}

	return Result{}
}

func (d *Detector) covered(reason Reason) Result {
	metrics.TamperEvents.WithLabelValues(string(reason)).Inc()
	return Result{Covered: true, Reason: reason}
}

// FreezeLimit returns the number of consecutive static frames that trigger
// frozen_frame.
func (d *Detector) FreezeLimit() int {
	return d.freezeLimit
}

// Reset clears all temporal state. Called on every pipeline (re)start so
// no state leaks across a stop/restart cycle.
func (d *Detector) Reset() {
	d.prevGray = nil
	d.freezeCounter = 0
}
