// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package perception

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/sentinelcam/sentinel/internal/video"
)

func testFrame(t *testing.T, seq uint64) *video.Frame {
	t.Helper()
	return video.NewFrame(seq, time.Now(), image.NewRGBA(image.Rect(0, 0, 320, 240)))
}

func TestIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b Box
		want float64
	}{
		{"identical boxes", Box{0, 0, 10, 10}, Box{0, 0, 10, 10}, 1.0},
		{"no overlap", Box{0, 0, 10, 10}, Box{20, 20, 30, 30}, 0.0},
		{"touching edges", Box{0, 0, 10, 10}, Box{10, 0, 20, 10}, 0.0},
		{"half overlap", Box{0, 0, 10, 10}, Box{5, 0, 15, 10}, 50.0 / 150.0},
		{"degenerate a", Box{5, 5, 5, 5}, Box{0, 0, 10, 10}, 0.0},
		{"degenerate b", Box{0, 0, 10, 10}, Box{3, 3, 3, 9}, 0.0},
		{"contained", Box{0, 0, 10, 10}, Box{2, 2, 8, 8}, 36.0 / 100.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IoU(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("IoU = %f, want %f", got, tt.want)
			}
			// IoU is symmetric.
			if IoU(tt.b, tt.a) != got {
				t.Errorf("IoU not symmetric for %v, %v", tt.a, tt.b)
			}
		})
	}
}

func TestWeaponSuppressionByPersonOverlap(t *testing.T) {
	person := Detection{Box: Box{50, 50, 150, 200}, Score: 0.9, Class: ClassPerson}
	// Identical box: IoU 1.0, must be suppressed.
	overlapping := Detection{Box: Box{50, 50, 150, 200}, Score: 0.8, Class: ClassWeapon}
	// Disjoint box: IoU 0, must be retained.
	distinct := Detection{Box: Box{200, 50, 260, 110}, Score: 0.8, Class: ClassWeapon}

	stage := NewStage(
		Config{ImageSize: 320, PersonConfidence: 0.35, WeaponConfidence: 0.5, SuppressionIoU: 0.3, SampleEvery: 1},
		NewStubDetector([]Detection{person}),
		NewStubDetector([]Detection{overlapping, distinct}),
	)

	persons, weapons := stage.Analyze(context.Background(), testFrame(t, 1))
	if len(persons) != 1 {
		t.Fatalf("persons = %d, want 1", len(persons))
	}
	if len(weapons) != 1 {
		t.Fatalf("weapons = %d, want 1 (overlapping box suppressed)", len(weapons))
	}
	if weapons[0].Box != distinct.Box {
		t.Errorf("retained weapon box = %v, want %v", weapons[0].Box, distinct.Box)
	}
}

func TestConfidenceFloors(t *testing.T) {
	stage := NewStage(
		Config{ImageSize: 320, PersonConfidence: 0.35, WeaponConfidence: 0.5, SuppressionIoU: 0.3, SampleEvery: 1},
		NewStubDetector([]Detection{
			{Box: Box{0, 0, 50, 100}, Score: 0.34, Class: ClassPerson},
			{Box: Box{60, 0, 110, 100}, Score: 0.36, Class: ClassPerson},
		}),
		NewStubDetector([]Detection{
			{Box: Box{200, 0, 240, 40}, Score: 0.45, Class: ClassWeapon},
			{Box: Box{250, 0, 290, 40}, Score: 0.55, Class: ClassWeapon},
		}),
	)

	persons, weapons := stage.Analyze(context.Background(), testFrame(t, 1))
	if len(persons) != 1 || persons[0].Score != 0.36 {
		t.Errorf("persons = %v, want only the 0.36 detection", persons)
	}
	if len(weapons) != 1 || weapons[0].Score != 0.55 {
		t.Errorf("weapons = %v, want only the 0.55 detection", weapons)
	}
}

func TestSamplingSkipsOffFrames(t *testing.T) {
	person := NewStubDetector([]Detection{{Box: Box{0, 0, 50, 100}, Score: 0.9, Class: ClassPerson}})
	stage := NewStage(
		Config{ImageSize: 320, PersonConfidence: 0.35, WeaponConfidence: 0.5, SuppressionIoU: 0.3, SampleEvery: 2},
		person, nil,
	)

	// Odd frame: off-sample, detectors must not run.
	persons, weapons := stage.Analyze(context.Background(), testFrame(t, 1))
	if persons != nil || weapons != nil {
		t.Error("off-sample frame should yield empty detections")
	}
	if person.Calls() != 0 {
		t.Errorf("detector ran %d times on an off-sample frame", person.Calls())
	}

	// Even frame: on-sample.
	persons, _ = stage.Analyze(context.Background(), testFrame(t, 2))
	if len(persons) != 1 {
		t.Errorf("on-sample frame persons = %d, want 1", len(persons))
	}
}

func TestDetectorFailureDegradesToEmpty(t *testing.T) {
	person := NewStubDetector([]Detection{{Box: Box{0, 0, 50, 100}, Score: 0.9, Class: ClassPerson}})
	person.Fail(errors.New("model timeout"))

	stage := NewStage(
		Config{ImageSize: 320, PersonConfidence: 0.35, WeaponConfidence: 0.5, SuppressionIoU: 0.3, SampleEvery: 1},
		person, nil,
	)

	persons, weapons := stage.Analyze(context.Background(), testFrame(t, 1))
	if len(persons) != 0 || len(weapons) != 0 {
		t.Error("detector failure must degrade to no detections, not propagate")
	}
}

func TestNoWeaponModelConfigured(t *testing.T) {
	stage := NewStage(
		Config{ImageSize: 320, PersonConfidence: 0.35, WeaponConfidence: 0.5, SuppressionIoU: 0.3, SampleEvery: 1},
		NewStubDetector(nil), nil,
	)

	_, weapons := stage.Analyze(context.Background(), testFrame(t, 1))
	if weapons != nil {
		t.Error("no weapon model: weapons must be empty")
	}
}
