// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package perception

import (
	"context"

	"github.com/sentinelcam/sentinel/internal/logging"
	"github.com/sentinelcam/sentinel/internal/metrics"
	"github.com/sentinelcam/sentinel/internal/video"
)

// Config configures the perception stage.
type Config struct {
	// ImageSize is the model inference size passed to the detectors.
	ImageSize int `koanf:"image_size" json:"image_size" validate:"gt=0"`

	// PersonConfidence is the confidence floor for person detections.
	PersonConfidence float64 `koanf:"person_confidence" json:"person_confidence" validate:"gte=0,lte=1"`

	// WeaponConfidence is the independent, higher confidence floor for
	// weapon detections.
	WeaponConfidence float64 `koanf:"weapon_confidence" json:"weapon_confidence" validate:"gte=0,lte=1"`

	// SuppressionIoU suppresses weapon boxes overlapping an accepted
	// person box above this IoU. A weapon model run on a person-centric
	// frame frequently fires on holstered or benign objects near a
	// person's silhouette.
	SuppressionIoU float64 `koanf:"suppression_iou" json:"suppression_iou" validate:"gte=0,lte=1"`

	// SampleEvery runs the model stages on every Nth frame only, to bound
	// CPU cost. Frames in between yield empty detection lists.
	SampleEvery uint64 `koanf:"sample_every" json:"sample_every" validate:"gte=1"`
}

// DefaultConfig returns the baseline thresholds.
func DefaultConfig() Config {
	return Config{
		ImageSize:        320,
		PersonConfidence: 0.35,
		WeaponConfidence: 0.5,
		SuppressionIoU:   0.3,
		SampleEvery:      2,
	}
}

// Stage runs person and (optionally) weapon detection on sampled frames.
type Stage struct {
	cfg    Config
	person ObjectDetector
	weapon ObjectDetector // nil when no weapon model is configured
}

// NewStage creates a perception stage. The weapon detector may be nil.
func NewStage(cfg Config, person ObjectDetector, weapon ObjectDetector) *Stage {
	if cfg.SampleEvery == 0 {
		cfg.SampleEvery = 1
	}
	return &Stage{cfg: cfg, person: person, weapon: weapon}
}

// Analyze runs the detectors on the frame and returns accepted person and
// weapon detections. Off-sample frames and model failures both degrade to
// empty lists; a model fault never propagates to the pipeline.
func (s *Stage) Analyze(ctx context.Context, frame *video.Frame) (persons, weapons []Detection) {
	if frame.Seq%s.cfg.SampleEvery != 0 {
		return nil, nil
	}

	persons = s.detectPersons(ctx, frame)
	weapons = s.detectWeapons(ctx, frame, persons)
	return persons, weapons
}

func (s *Stage) detectPersons(ctx context.Context, frame *video.Frame) []Detection {
	raw, err := s.person.Detect(ctx, frame.RGBA, s.cfg.ImageSize, s.cfg.PersonConfidence)
	if err != nil {
		logging.Warn().Err(err).Uint64("frame", frame.Seq).Msg("person detector failed, treating frame as empty")
		metrics.CapabilityErrors.WithLabelValues("person_detector").Inc()
		return nil
	}

	persons := make([]Detection, 0, len(raw))
	for _, d := range raw {
		if d.Class != ClassPerson || d.Score < s.cfg.PersonConfidence {
			continue
		}
		persons = append(persons, d)
	}
	metrics.DetectionsTotal.WithLabelValues(ClassPerson.String()).Add(float64(len(persons)))
	return persons
}

func (s *Stage) detectWeapons(ctx context.Context, frame *video.Frame, persons []Detection) []Detection {
	if s.weapon == nil {
		return nil
	}

	raw, err := s.weapon.Detect(ctx, frame.RGBA, s.cfg.ImageSize, s.cfg.WeaponConfidence)
	if err != nil {
		logging.Warn().Err(err).Uint64("frame", frame.Seq).Msg("weapon detector failed, treating frame as empty")
		metrics.CapabilityErrors.WithLabelValues("weapon_detector").Inc()
		return nil
	}

	weapons := make([]Detection, 0, len(raw))
	for _, d := range raw {
		if d.Class != ClassWeapon || d.Score < s.cfg.WeaponConfidence {
			continue
		}
		if s.overlapsPerson(d.Box, persons) {
			metrics.WeaponsSuppressed.Inc()
			continue
		}
		weapons = append(weapons, d)
	}
	metrics.DetectionsTotal.WithLabelValues(ClassWeapon.String()).Add(float64(len(weapons)))
	return weapons
}

// overlapsPerson reports whether a weapon box overlaps any accepted person
// box above the suppression threshold. Wielded weapons are expected to be
// spatially distinct from, or only partially overlapping, the person box.
func (s *Stage) overlapsPerson(box Box, persons []Detection) bool {
	for _, p := range persons {
		if IoU(box, p.Box) > s.cfg.SuppressionIoU {
			return true
		}
	}
	return false
}
