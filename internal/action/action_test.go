// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package action

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/sentinelcam/sentinel/internal/perception"
	"github.com/sentinelcam/sentinel/internal/video"
)

func testFrame(t *testing.T, seq uint64) *video.Frame {
	t.Helper()
	return video.NewFrame(seq, time.Now(), image.NewRGBA(image.Rect(0, 0, 640, 360)))
}

func person(x1, y1, x2, y2 int) perception.Detection {
	return perception.Detection{
		Box:   perception.Box{X1: x1, Y1: y1, X2: x2, Y2: y2},
		Score: 0.9,
		Class: perception.ClassPerson,
	}
}

// fakeClock steps a stage's notion of time under test control.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStage(pose perception.PoseEstimator) (*Stage, *fakeClock) {
	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStage(DefaultConfig(), pose)
	s.clock = func() time.Time { return clk.now }
	return s, clk
}

func TestAssociationSurvivesDetectionOrderFlip(t *testing.T) {
	s, clk := newTestStage(nil)
	ctx := context.Background()

	left := person(50, 50, 100, 200)
	right := person(400, 50, 450, 200)

	res := s.Observe(ctx, testFrame(t, 1), []perception.Detection{left, right})
	leftID, rightID := res.Tracks[0].ID, res.Tracks[1].ID
	if leftID == rightID {
		t.Fatal("distinct persons share a track")
	}

	// Same scene, detections reported in the opposite order.
	clk.advance(40 * time.Millisecond)
	res = s.Observe(ctx, testFrame(t, 2), []perception.Detection{right, left})
	if res.Tracks[0].ID != rightID || res.Tracks[1].ID != leftID {
		t.Errorf("tracks followed list position, not location: got %d,%d want %d,%d",
			res.Tracks[0].ID, res.Tracks[1].ID, rightID, leftID)
	}
}

func TestTrackSurvivesSmallDrift(t *testing.T) {
	s, clk := newTestStage(nil)
	ctx := context.Background()

	res := s.Observe(ctx, testFrame(t, 1), []perception.Detection{person(100, 100, 150, 250)})
	id := res.Tracks[0].ID

	// Drift well inside the association gate.
	clk.advance(40 * time.Millisecond)
	res = s.Observe(ctx, testFrame(t, 2), []perception.Detection{person(110, 100, 160, 250)})
	if res.Tracks[0].ID != id {
		t.Errorf("drifting person got new track %d, want %d", res.Tracks[0].ID, id)
	}
}

func TestFarDetectionStartsNewTrack(t *testing.T) {
	s, clk := newTestStage(nil)
	ctx := context.Background()

	res := s.Observe(ctx, testFrame(t, 1), []perception.Detection{person(0, 0, 50, 150)})
	id := res.Tracks[0].ID

	clk.advance(40 * time.Millisecond)
	res = s.Observe(ctx, testFrame(t, 2), []perception.Detection{person(500, 200, 550, 350)})
	if res.Tracks[0].ID == id {
		t.Error("detection beyond the gate reused an existing track")
	}
}

func TestUnseenTrackExpires(t *testing.T) {
	s, clk := newTestStage(nil)
	ctx := context.Background()

	s.Observe(ctx, testFrame(t, 1), []perception.Detection{person(100, 100, 150, 250)})
	if s.TrackCount() != 1 {
		t.Fatalf("TrackCount = %d, want 1", s.TrackCount())
	}

	// Nothing seen for longer than the expiry window.
	clk.advance(DefaultConfig().TrackExpiry + time.Second)
	s.Observe(ctx, testFrame(t, 2), nil)
	if s.TrackCount() != 0 {
		t.Errorf("TrackCount after expiry = %d, want 0", s.TrackCount())
	}
}

func TestViolentMotionFlagsOnSecondSighting(t *testing.T) {
	s, clk := newTestStage(nil)
	ctx := context.Background()

	res := s.Observe(ctx, testFrame(t, 1), []perception.Detection{person(0, 100, 40, 250)})
	if res.ViolentMotion {
		t.Fatal("violent_motion on first sighting, track has no history")
	}

	// One 100px jump on an established track puts the history mean well
	// past the threshold; no further sightings needed.
	clk.advance(40 * time.Millisecond)
	res = s.Observe(ctx, testFrame(t, 2), []perception.Detection{person(100, 100, 140, 250)})
	if !res.ViolentMotion {
		t.Error("large jump on second sighting did not flag violent_motion")
	}
	if len(res.Events) != 1 || res.Events[0].Kind != KindViolentMotion {
		t.Errorf("events = %v, want one violent_motion", res.Events)
	}
}

func TestMotionHistoryDampsSingleSpike(t *testing.T) {
	cfg := DefaultConfig()
	s, clk := newTestStage(nil)
	ctx := context.Background()

	// Fill the history with slow drift, then one large jump. The window
	// mean (4x5px + 100px)/5 = 24 stays under the threshold.
	x := 0
	for i := 0; i < cfg.MotionWindow; i++ {
		clk.advance(40 * time.Millisecond)
		res := s.Observe(ctx, testFrame(t, uint64(i+1)), []perception.Detection{person(x, 100, x+40, 250)})
		if res.ViolentMotion {
			t.Fatalf("slow drift flagged violent on frame %d", i+1)
		}
		x += 5
	}

	clk.advance(40 * time.Millisecond)
	res := s.Observe(ctx, testFrame(t, 10), []perception.Detection{person(x+95, 100, x+135, 250)})
	if res.ViolentMotion {
		t.Error("one spike over a calm history flagged violent_motion")
	}
}

func TestSlowMotionNotViolent(t *testing.T) {
	cfg := DefaultConfig()
	s, clk := newTestStage(nil)
	ctx := context.Background()

	x := 0
	for i := 0; i <= cfg.MotionWindow+2; i++ {
		x += 5
		clk.advance(40 * time.Millisecond)
		res := s.Observe(ctx, testFrame(t, uint64(i+1)), []perception.Detection{person(x, 100, x+40, 250)})
		if res.ViolentMotion {
			t.Fatalf("slow drift flagged violent on frame %d", i+1)
		}
	}
}

func TestPossibleFaintFromLowHead(t *testing.T) {
	pose := &perception.StubPoseEstimator{Landmarks: []perception.Landmark{{X: 0.5, Y: 0.9}}}
	s, _ := newTestStage(pose)

	res := s.Observe(context.Background(), testFrame(t, 1), []perception.Detection{person(100, 100, 200, 300)})
	if !res.PossibleFaint {
		t.Error("head at 0.9 of crop height did not flag possible_faint")
	}
}

func TestUprightHeadNotFaint(t *testing.T) {
	pose := &perception.StubPoseEstimator{Landmarks: []perception.Landmark{{X: 0.5, Y: 0.1}}}
	s, _ := newTestStage(pose)

	res := s.Observe(context.Background(), testFrame(t, 1), []perception.Detection{person(100, 100, 200, 300)})
	if res.PossibleFaint {
		t.Error("upright head flagged possible_faint")
	}
}

func TestTinyCropSkipsPose(t *testing.T) {
	pose := &perception.StubPoseEstimator{Landmarks: []perception.Landmark{{X: 0.5, Y: 0.9}}}
	s, _ := newTestStage(pose)

	// 10x10 box is below the minimum crop size.
	res := s.Observe(context.Background(), testFrame(t, 1), []perception.Detection{person(100, 100, 110, 110)})
	if res.PossibleFaint {
		t.Error("sub-minimum crop still produced a faint cue")
	}
}

func TestPoseFailureDegrades(t *testing.T) {
	pose := &perception.StubPoseEstimator{Err: context.DeadlineExceeded}
	s, _ := newTestStage(pose)

	res := s.Observe(context.Background(), testFrame(t, 1), []perception.Detection{person(100, 100, 200, 300)})
	if res.PossibleFaint || len(res.Events) != 0 {
		t.Error("pose estimator failure must degrade to no events")
	}
}

func TestLoiteringAfterDwell(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LoiterAfter = 10 * time.Second

	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStage(cfg, nil)
	s.clock = func() time.Time { return clk.now }
	ctx := context.Background()

	box := person(100, 100, 150, 250)
	res := s.Observe(ctx, testFrame(t, 1), []perception.Detection{box})
	if res.Loitering {
		t.Fatal("loitering on first sighting")
	}

	// Re-sight the person every second, inside the track expiry window.
	for i := 0; i < 10; i++ {
		clk.advance(time.Second)
		res = s.Observe(ctx, testFrame(t, uint64(i+2)), []perception.Detection{box})
		if res.Loitering {
			t.Fatalf("loitering at %ds, before the dwell threshold", i+1)
		}
	}

	clk.advance(time.Second)
	res = s.Observe(ctx, testFrame(t, 20), []perception.Detection{box})
	if !res.Loitering {
		t.Error("dwell past the threshold did not flag loitering")
	}
}

func TestResetDropsTracks(t *testing.T) {
	s, clk := newTestStage(nil)
	ctx := context.Background()

	box := person(100, 100, 150, 250)
	res := s.Observe(ctx, testFrame(t, 1), []perception.Detection{box})
	id := res.Tracks[0].ID

	s.Reset()
	if s.TrackCount() != 0 {
		t.Fatalf("TrackCount after Reset = %d, want 0", s.TrackCount())
	}

	clk.advance(40 * time.Millisecond)
	res = s.Observe(ctx, testFrame(t, 2), []perception.Detection{box})
	if res.Tracks[0].ID == id {
		t.Error("track identity survived Reset")
	}
}
