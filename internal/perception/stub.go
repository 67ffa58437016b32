// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package perception

import (
	"context"
	"image"
	"sync"
)

// StubDetector is a scripted ObjectDetector for tests and demo mode.
// It replays a fixed sequence of detection lists, one per call, then
// returns the last entry forever.
type StubDetector struct {
	mu     sync.Mutex
	script [][]Detection
	calls  int
	err    error
}

// NewStubDetector creates a stub replaying the given per-call detections.
func NewStubDetector(script ...[]Detection) *StubDetector {
	return &StubDetector{script: script}
}

// Fail makes every subsequent Detect call return err.
func (d *StubDetector) Fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

// Detect returns the next scripted detection list.
func (d *StubDetector) Detect(_ context.Context, _ *image.RGBA, _ int, _ float64) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.err != nil {
		return nil, d.err
	}
	if len(d.script) == 0 {
		return nil, nil
	}

	i := d.calls
	if i >= len(d.script) {
		i = len(d.script) - 1
	}
	d.calls++
	out := make([]Detection, len(d.script[i]))
	copy(out, d.script[i])
	return out, nil
}

// Calls returns how many times Detect ran.
func (d *StubDetector) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// StubPoseEstimator returns a fixed landmark set for every crop.
type StubPoseEstimator struct {
	Landmarks []Landmark
	Err       error
}

// Estimate returns the configured landmarks.
func (p *StubPoseEstimator) Estimate(_ context.Context, _ *image.RGBA) ([]Landmark, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Landmarks == nil {
		return nil, nil
	}
	out := make([]Landmark, len(p.Landmarks))
	copy(out, p.Landmarks)
	return out, nil
}
