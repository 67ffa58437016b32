// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package tamper

import (
	"math/rand"
	"testing"
	"time"

	"github.com/sentinelcam/sentinel/internal/video"
)

// uniformGray builds a plane filled with one value.
func uniformGray(w, h int, v uint8) *video.Gray {
	g := &video.Gray{Pix: make([]uint8, w*h), Width: w, Height: h}
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

// texturedGray builds a plane with enough variance to pass the blur check,
// deterministic per seed.
func texturedGray(w, h int, seed int64) *video.Gray {
	rng := rand.New(rand.NewSource(seed))
	g := &video.Gray{Pix: make([]uint8, w*h), Width: w, Height: h}
	for i := range g.Pix {
		g.Pix[i] = uint8(40 + rng.Intn(180))
	}
	return g
}

func testConfig() Config {
	cfg := DefaultConfig()
	// fps 5 x 1s keeps the freeze limit small for tests.
	cfg.FPS = 5
	cfg.FreezeDuration = time.Second
	return cfg
}

func TestBlackFrame(t *testing.T) {
	d := NewDetector(testConfig())
	res := d.Check(uniformGray(32, 32, 0))
	if !res.Covered || res.Reason != ReasonBlackFrame {
		t.Errorf("Check = %+v, want covered black_frame", res)
	}
}

func TestWhiteFrame(t *testing.T) {
	d := NewDetector(testConfig())
	res := d.Check(uniformGray(32, 32, 255))
	if !res.Covered || res.Reason != ReasonWhiteFrame {
		t.Errorf("Check = %+v, want covered white_frame", res)
	}
}

func TestBlurredFrame(t *testing.T) {
	d := NewDetector(testConfig())
	// Mid-gray uniform frame: passes black/white, fails the stddev check.
	res := d.Check(uniformGray(32, 32, 128))
	if !res.Covered || res.Reason != ReasonBlurred {
		t.Errorf("Check = %+v, want covered blurred", res)
	}
}

func TestFrozenFrameOnNthStaticFrame(t *testing.T) {
	d := NewDetector(testConfig())
	limit := d.FreezeLimit()

	ref := texturedGray(64, 64, 1)
	if res := d.Check(ref); res.Covered {
		t.Fatalf("reference frame flagged: %+v", res)
	}

	// limit-1 identical frames: not yet frozen.
	for i := 0; i < limit-1; i++ {
		res := d.Check(texturedGray(64, 64, 1))
		if res.Covered {
			t.Fatalf("frame %d of %d flagged early: %+v", i+1, limit, res)
		}
	}

	// The Nth consecutive static frame crosses the limit.
	res := d.Check(texturedGray(64, 64, 1))
	if !res.Covered || res.Reason != ReasonFrozenFrame {
		t.Errorf("Check = %+v, want covered frozen_frame on frame %d", res, limit)
	}
}

func TestMotionResetsFreezeCounter(t *testing.T) {
	d := NewDetector(testConfig())
	limit := d.FreezeLimit()

	d.Check(texturedGray(64, 64, 1))
	for i := 0; i < limit-1; i++ {
		d.Check(texturedGray(64, 64, 1))
	}

	// A changed frame resets the counter.
	if res := d.Check(texturedGray(64, 64, 2)); res.Covered {
		t.Fatalf("changed frame flagged: %+v", res)
	}

	// Static frames start over; limit-1 more must not trigger.
	for i := 0; i < limit-1; i++ {
		if res := d.Check(texturedGray(64, 64, 2)); res.Covered {
			t.Fatalf("frame %d after reset flagged early: %+v", i+1, res)
		}
	}
	if res := d.Check(texturedGray(64, 64, 2)); !res.Covered || res.Reason != ReasonFrozenFrame {
		t.Errorf("Check = %+v, want frozen_frame after full window post-reset", res)
	}
}

func TestPreviousUpdatedOnCoveredPath(t *testing.T) {
	d := NewDetector(testConfig())

	// Establish a normal frame, then a transient cover.
	d.Check(texturedGray(64, 64, 1))
	if res := d.Check(uniformGray(64, 64, 0)); !res.Covered {
		t.Fatal("cover frame not flagged")
	}

	// Cover lifts onto a static scene. The previous plane must be the
	// covered frame, not the stale pre-cover frame, so this first frame
	// shows a large diff and must not advance the freeze counter.
	scene := texturedGray(64, 64, 3)
	if res := d.Check(scene); res.Covered {
		t.Errorf("first frame after cover flagged: %+v", res)
	}

	// The freeze window must require a full run of static frames again.
	limit := d.FreezeLimit()
	for i := 0; i < limit-1; i++ {
		if res := d.Check(texturedGray(64, 64, 3)); res.Covered {
			t.Fatalf("frame %d after cover flagged early: %+v", i+1, res)
		}
	}
}

func TestResetClearsState(t *testing.T) {
	d := NewDetector(testConfig())
	limit := d.FreezeLimit()

	d.Check(texturedGray(64, 64, 1))
	for i := 0; i < limit-1; i++ {
		d.Check(texturedGray(64, 64, 1))
	}

	d.Reset()

	// After reset the next static run must take the full window again.
	d.Check(texturedGray(64, 64, 1))
	for i := 0; i < limit-1; i++ {
		if res := d.Check(texturedGray(64, 64, 1)); res.Covered {
			t.Fatalf("frame %d after Reset flagged early: %+v", i+1, res)
		}
	}
}
