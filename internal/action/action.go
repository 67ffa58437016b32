// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

// Package action derives behavioral cues from tracked persons: erratic
// movement consistent with a struggle, a collapsed posture, and loitering
// beyond a dwell threshold. Tracks are continued across frames by greedy
// nearest-center association, so every cue is attributed to a stable track
// rather than a positional index in the detection list.
package action

import (
	"context"
	"time"

	"github.com/sentinelcam/sentinel/internal/logging"
	"github.com/sentinelcam/sentinel/internal/metrics"
	"github.com/sentinelcam/sentinel/internal/perception"
	"github.com/sentinelcam/sentinel/internal/video"
)

// Kind identifies a per-track behavioral event.
type Kind string

const (
	KindViolentMotion Kind = "violent_motion"
	KindPossibleFaint Kind = "possible_faint"
)

// Event is one behavioral cue attributed to a track.
type Event struct {
	Kind    Kind
	TrackID int
}

// Result is the outcome of one action-stage pass over a frame.
type Result struct {
	// Tracks holds the track for each input person detection, in the same
	// order as the detections.
	Tracks []*Track

	Events        []Event
	ViolentMotion bool
	PossibleFaint bool
	Loitering     bool
}

// Config holds the behavioral thresholds.
type Config struct {
	// MinCropSize skips pose analysis for person boxes smaller than this
	// in either dimension; crops that small carry no usable pose signal.
	MinCropSize int `koanf:"min_crop_size" json:"min_crop_size" validate:"gt=0"`

	// MotionWindow is the number of recent per-frame displacements kept
	// per track.
	MotionWindow int `koanf:"motion_window" json:"motion_window" validate:"gt=0"`

	// ViolentMean flags a track whose mean displacement over its recorded
	// motion history exceeds this many pixels per observation.
	ViolentMean float64 `koanf:"violent_mean" json:"violent_mean" validate:"gt=0"`

	// FaintNoseY flags a track whose head landmark sits below this
	// normalized height within its crop (0 is the top edge).
	FaintNoseY float64 `koanf:"faint_nose_y" json:"faint_nose_y" validate:"gte=0,lte=1"`

	// LoiterAfter is the continuous dwell time after which a track is
	// considered loitering.
	LoiterAfter time.Duration `koanf:"loiter_after" json:"loiter_after" validate:"gt=0"`

	// MaxMatchDist is the association gate: a detection farther than this
	// from every live track center starts a new track.
	MaxMatchDist float64 `koanf:"max_match_dist" json:"max_match_dist" validate:"gt=0"`

	// TrackExpiry removes a track not matched for this long.
	TrackExpiry time.Duration `koanf:"track_expiry" json:"track_expiry" validate:"gt=0"`
}

// DefaultConfig returns the baseline behavioral thresholds.
func DefaultConfig() Config {
	return Config{
		MinCropSize:  20,
		MotionWindow: 5,
		ViolentMean:  40,
		FaintNoseY:   0.8,
		LoiterAfter:  60 * time.Second,
		MaxMatchDist: 120,
		TrackExpiry:  3 * time.Second,
	}
}

// Stage runs behavioral analysis over tracked persons. It is owned
// exclusively by the single pipeline worker; no locking.
type Stage struct {
	cfg    Config
	pose   perception.PoseEstimator // nil when no pose model is configured
	tracks *trackTable
	clock  func() time.Time
}

// NewStage creates an action stage. The pose estimator may be nil, which
// disables the possible_faint cue.
func NewStage(cfg Config, pose perception.PoseEstimator) *Stage {
	return &Stage{
		cfg:    cfg,
		pose:   pose,
		tracks: newTrackTable(cfg.MotionWindow, cfg.MaxMatchDist, cfg.TrackExpiry),
		clock:  time.Now,
	}
}

// Observe associates the frame's person detections with tracks and
// evaluates the behavioral cues. The Tracks slice in the result is indexed
// like persons.
func (s *Stage) Observe(ctx context.Context, frame *video.Frame, persons []perception.Detection) Result {
	now := s.clock()

	centers := make([]Point, len(persons))
	for i, p := range persons {
		cx, cy := p.Box.Center()
		centers[i] = Point{X: cx, Y: cy}
	}

	res := Result{Tracks: s.tracks.observe(centers, now)}

	for i, tr := range res.Tracks {
		// The mean is over however much history the track has; a track
		// seen twice with one large jump already qualifies. New tracks
		// have no displacement history and cannot fire.
		if !tr.isNew && tr.MotionMean() > s.cfg.ViolentMean {
			res.addEvent(Event{Kind: KindViolentMotion, TrackID: tr.ID})
		}

		if now.Sub(tr.FirstSeen) > s.cfg.LoiterAfter {
			res.Loitering = true
		}

		if s.fainted(ctx, frame, persons[i].Box) {
			res.addEvent(Event{Kind: KindPossibleFaint, TrackID: tr.ID})
		}
	}

	return res
}

// fainted runs pose estimation on the person crop and reports whether the
// head landmark sits in the bottom band of the crop.
func (s *Stage) fainted(ctx context.Context, frame *video.Frame, box perception.Box) bool {
	if s.pose == nil {
		return false
	}

	clamped := box.Clamp(frame.Width(), frame.Height())
	if clamped.Width() < s.cfg.MinCropSize || clamped.Height() < s.cfg.MinCropSize {
		return false
	}

	landmarks, err := s.pose.Estimate(ctx, frame.Crop(clamped.Rect()))
	if err != nil {
		logging.Warn().Err(err).Uint64("frame", frame.Seq).Msg("pose estimator failed, skipping crop")
		metrics.CapabilityErrors.WithLabelValues("pose_estimator").Inc()
		return false
	}
	if len(landmarks) <= perception.LandmarkNose {
		return false
	}

	return landmarks[perception.LandmarkNose].Y > s.cfg.FaintNoseY
}

func (r *Result) addEvent(ev Event) {
	r.Events = append(r.Events, ev)
	metrics.ActionEvents.WithLabelValues(string(ev.Kind)).Inc()
	switch ev.Kind {
	case KindViolentMotion:
		r.ViolentMotion = true
	case KindPossibleFaint:
		r.PossibleFaint = true
	}
}

// TrackCount returns the number of live tracks.
func (s *Stage) TrackCount() int { return s.tracks.size() }

// Reset drops all track state. Called on every pipeline (re)start.
func (s *Stage) Reset() {
	s.tracks.reset()
}
