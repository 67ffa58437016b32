// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package annotate

import (
	"image"
	"testing"
	"time"

	"github.com/sentinelcam/sentinel/internal/action"
	"github.com/sentinelcam/sentinel/internal/perception"
	"github.com/sentinelcam/sentinel/internal/tamper"
	"github.com/sentinelcam/sentinel/internal/video"
)

func TestRenderDrawsBoxWithoutMutatingInput(t *testing.T) {
	frame := video.NewFrame(1, time.Now(), image.NewRGBA(image.Rect(0, 0, 320, 240)))
	persons := []perception.Detection{{
		Box:   perception.Box{X1: 50, Y1: 50, X2: 150, Y2: 200},
		Score: 0.91,
		Class: perception.ClassPerson,
	}}

	out := Render(frame, persons, nil, tamper.Result{}, action.Result{})

	if out == frame || out.RGBA == frame.RGBA {
		t.Fatal("Render returned the input frame")
	}

	// Box edge pixel is painted green on the copy, untouched on the input.
	got := out.RGBA.RGBAAt(50, 50)
	if got != colorPerson {
		t.Errorf("edge pixel = %v, want %v", got, colorPerson)
	}
	if frame.RGBA.RGBAAt(50, 50) == colorPerson {
		t.Error("input frame was mutated")
	}
}

func TestRenderBannersChangePixels(t *testing.T) {
	frame := video.NewFrame(1, time.Now(), image.NewRGBA(image.Rect(0, 0, 320, 240)))

	out := Render(frame, nil, nil,
		tamper.Result{Covered: true, Reason: tamper.ReasonBlackFrame},
		action.Result{Loitering: true, ViolentMotion: true},
	)

	var changed bool
	for i := range out.RGBA.Pix {
		if out.RGBA.Pix[i] != frame.RGBA.Pix[i] {
			changed = true
			break
		}
	}
	if !changed {
		t.Error("banners drew nothing")
	}
}

func TestRenderClampsOutOfBoundsBox(t *testing.T) {
	frame := video.NewFrame(1, time.Now(), image.NewRGBA(image.Rect(0, 0, 100, 100)))
	weapons := []perception.Detection{{
		Box:   perception.Box{X1: -20, Y1: -20, X2: 300, Y2: 300},
		Score: 0.7,
		Class: perception.ClassWeapon,
	}}

	// Must not panic on a box exceeding the frame.
	out := Render(frame, nil, weapons, tamper.Result{}, action.Result{})
	if out == nil {
		t.Fatal("Render returned nil")
	}
}
