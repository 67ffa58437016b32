// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

// Package decision fuses the per-frame analysis signals into a tiered
// severity decision. Scoring is additive over independent signals with a
// fixed weight per signal; the weights encode severity, not probability.
package decision

import (
	"github.com/sentinelcam/sentinel/internal/action"
	"github.com/sentinelcam/sentinel/internal/perception"
	"github.com/sentinelcam/sentinel/internal/tamper"
)

// Level is the tiered severity of one frame's decision.
type Level string

const (
	LevelNormal     Level = "NORMAL"
	LevelSuspicious Level = "SUSPICIOUS"
	LevelHigh       Level = "HIGH"
)

// Reason identifies a signal that contributed to the decision score.
type Reason string

const (
	ReasonMultiplePersons Reason = "multiple_persons"
	ReasonWeaponDetected  Reason = "weapon_detected"
	ReasonCameraTamper    Reason = "camera_tamper"
	ReasonLoitering       Reason = "loitering"
	ReasonViolentMotion   Reason = "violent_motion"
	ReasonPossibleFaint   Reason = "possible_faint"
)

// Signal weights. Weapon and tamper each clear the HIGH threshold alone.
const (
	weightMultiplePersons = 1.0
	weightWeaponDetected  = 2.0
	weightCameraTamper    = 2.0
	weightLoitering       = 0.8
	weightActionEvent     = 1.5

	thresholdHigh = 2.0
)

// Decision is the fused outcome for one frame.
type Decision struct {
	// RaiseAlert is true for any non-NORMAL level.
	RaiseAlert bool `json:"raise_alert"`

	Level Level   `json:"level"`
	Score float64 `json:"score"`

	// Reasons lists the contributing signals in evaluation order. A
	// behavioral event reason appears once per affected track.
	Reasons []Reason `json:"reasons"`
}

// Engine evaluates frame signals into decisions. Stateless.
type Engine struct{}

// NewEngine creates a decision engine.
func NewEngine() *Engine { return &Engine{} }

// Evaluate fuses one frame's signals. Reasons are appended in a fixed
// order: occupancy, weapon, tamper, loitering, then behavioral events.
func (e *Engine) Evaluate(persons, weapons []perception.Detection, tamperRes tamper.Result, actionRes action.Result) Decision {
	var score float64
	var reasons []Reason

	if len(persons) > 1 {
		score += weightMultiplePersons
		reasons = append(reasons, ReasonMultiplePersons)
	}
	if len(weapons) > 0 {
		score += weightWeaponDetected
		reasons = append(reasons, ReasonWeaponDetected)
	}
	if tamperRes.Covered {
		score += weightCameraTamper
		reasons = append(reasons, ReasonCameraTamper)
	}
	if actionRes.Loitering {
		score += weightLoitering
		reasons = append(reasons, ReasonLoitering)
	}
	for _, ev := range actionRes.Events {
		switch ev.Kind {
		case action.KindViolentMotion:
			score += weightActionEvent
			reasons = append(reasons, ReasonViolentMotion)
		case action.KindPossibleFaint:
			score += weightActionEvent
			reasons = append(reasons, ReasonPossibleFaint)
		}
	}

	switch {
	case score >= thresholdHigh:
		return Decision{RaiseAlert: true, Level: LevelHigh, Score: score, Reasons: reasons}
	case score > 0:
		return Decision{RaiseAlert: true, Level: LevelSuspicious, Score: score, Reasons: reasons}
	default:
		return Decision{Level: LevelNormal, Score: 0}
	}
}

// ReasonStrings converts the reason list for logging and filenames.
func ReasonStrings(reasons []Reason) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = string(r)
	}
	return out
}
