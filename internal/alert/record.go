// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

// Package alert holds the alert record model, durable alert history, and
// the deduplicating collector that sits between the decision engine and
// the notification fan-out.
package alert

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sentinelcam/sentinel/internal/decision"
)

// Status reflects the notification outcome recorded with an alert.
const (
	StatusSent       = "Sent"
	StatusSuppressed = "Suppressed"
)

// Record is one raised alert as stored and served by the API.
type Record struct {
	ID           uuid.UUID         `json:"id"`
	Level        decision.Level    `json:"level"`
	Reasons      []decision.Reason `json:"reasons"`
	Score        float64           `json:"score"`
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	SnapshotPath string            `json:"snapshot_path,omitempty"`

	// Pipeline names the video source that raised the alert.
	Pipeline string `json:"pipeline,omitempty"`
}

// NewRecord builds a record from a decision, stamping identity and time.
func NewRecord(d decision.Decision, pipeline string, now time.Time) Record {
	return Record{
		ID:        uuid.New(),
		Level:     d.Level,
		Reasons:   d.Reasons,
		Score:     d.Score,
		Status:    StatusSent,
		Timestamp: now,
		Pipeline:  pipeline,
	}
}

// DedupKey identifies alerts that describe the same ongoing condition: the
// level plus the ordered reason list.
func (r Record) DedupKey() string {
	var b strings.Builder
	b.WriteString(string(r.Level))
	for _, reason := range r.Reasons {
		b.WriteByte('|')
		b.WriteString(string(reason))
	}
	return b.String()
}

// Label is the human-oriented reason summary used in snapshot filenames
// and notification bodies.
func (r Record) Label() string {
	if len(r.Reasons) == 0 {
		return "alert"
	}
	return strings.Join(decision.ReasonStrings(r.Reasons), "_")
}
