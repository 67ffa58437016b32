// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package pipeline

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/thejerf/suture/v4"

	"github.com/sentinelcam/sentinel/internal/action"
	"github.com/sentinelcam/sentinel/internal/alert"
	"github.com/sentinelcam/sentinel/internal/buffer"
	"github.com/sentinelcam/sentinel/internal/decision"
	"github.com/sentinelcam/sentinel/internal/dispatch"
	"github.com/sentinelcam/sentinel/internal/perception"
	"github.com/sentinelcam/sentinel/internal/tamper"
	"github.com/sentinelcam/sentinel/internal/video"
)

// texturedFrame builds a frame with enough intensity variance to pass the
// blur check. Identical for every seq, so consecutive frames are static.
func texturedFrame(seq uint64) *video.Frame {
	img := image.NewRGBA(image.Rect(0, 0, 160, 120))
	for y := 0; y < 120; y++ {
		for x := 0; x < 160; x++ {
			v := uint8((x*31 + y*17) % 200)
			i := img.PixOffset(x, y)
			img.Pix[i] = v
			img.Pix[i+1] = v
			img.Pix[i+2] = v
			img.Pix[i+3] = 255
		}
	}
	return video.NewFrame(seq, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(seq)*40*time.Millisecond), img)
}

func TestWorkerFrozenSignalPlusWeaponRaisesOneAlert(t *testing.T) {
	// Freeze limit of 8: the 9th identical frame latches frozen_frame.
	tamperCfg := tamper.DefaultConfig()
	tamperCfg.FPS = 4
	tamperCfg.FreezeDuration = 2 * time.Second

	perceptionCfg := perception.DefaultConfig()
	perceptionCfg.SampleEvery = 1

	// No persons ever; a weapon appears on the 9th frame only.
	personStub := perception.NewStubDetector(nil)
	var weaponScript [][]perception.Detection
	for i := 0; i < 8; i++ {
		weaponScript = append(weaponScript, nil)
	}
	weaponScript = append(weaponScript, []perception.Detection{{
		Box:   perception.Box{X1: 40, Y1: 40, X2: 90, Y2: 80},
		Score: 0.8,
		Class: perception.ClassWeapon,
	}})
	weaponStub := perception.NewStubDetector(weaponScript...)

	store := alert.NewMemoryStore()
	collector := alert.NewCollector(store, 30*time.Second)
	bus := dispatch.NewBus()
	defer bus.Close()
	dispatcher := dispatch.NewDispatcher(collector, nil, bus, 30*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	published, err := bus.Subscribe(ctx, dispatch.TopicAlerts)
	if err != nil {
		t.Fatal(err)
	}

	ingest := buffer.New[*video.Frame](16)
	output := buffer.New[*video.Frame](16)
	worker := NewWorker(
		"lobby",
		ingest, output,
		tamper.NewDetector(tamperCfg),
		perception.NewStage(perceptionCfg, personStub, weaponStub),
		action.NewStage(action.DefaultConfig(), nil),
		dispatcher,
	)

	for seq := uint64(1); seq <= 9; seq++ {
		ingest.Push(texturedFrame(seq))
	}
	ingest.Close()

	if err := worker.Serve(ctx); !errors.Is(err, suture.ErrDoNotRestart) {
		t.Fatalf("Serve = %v, want ErrDoNotRestart after drain", err)
	}

	// Exactly one alert: frozen signal and weapon fire together on the
	// last frame, and nothing before it crosses zero.
	recs, err := store.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("alert history = %d records, want 1", len(recs))
	}

	rec := recs[0]
	if rec.Level != decision.LevelHigh || rec.Score != 4.0 {
		t.Errorf("alert = level %s score %v, want HIGH 4.0", rec.Level, rec.Score)
	}
	wantReasons := []decision.Reason{decision.ReasonWeaponDetected, decision.ReasonCameraTamper}
	if len(rec.Reasons) != 2 || rec.Reasons[0] != wantReasons[0] || rec.Reasons[1] != wantReasons[1] {
		t.Errorf("reasons = %v, want %v", rec.Reasons, wantReasons)
	}

	select {
	case msg := <-published:
		var env dispatch.Envelope
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			t.Fatal(err)
		}
		msg.Ack()
		if env.Record.Pipeline != "lobby" {
			t.Errorf("published pipeline = %q", env.Record.Pipeline)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no alert published")
	}

	// Every frame reaches the output buffer annotated.
	if output.Len() != 9 {
		t.Errorf("output frames = %d, want 9", output.Len())
	}
}

func TestManagerStartStopLifecycle(t *testing.T) {
	sup := suture.NewSimple("capture-test")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sup.ServeBackground(ctx)

	store := alert.NewMemoryStore()
	collector := alert.NewCollector(store, 30*time.Second)
	bus := dispatch.NewBus()
	defer bus.Close()
	dispatcher := dispatch.NewDispatcher(collector, nil, bus, 30*time.Second)

	cfg := StageConfig{
		Tamper:           tamper.DefaultConfig(),
		Perception:       perception.DefaultConfig(),
		Action:           action.DefaultConfig(),
		IngestBufferSize: 16,
	}
	caps := Capabilities{Person: perception.NewStubDetector(nil)}
	output := buffer.New[*video.Frame](16)

	m := NewManager(sup, dispatcher, caps, cfg, output)

	if err := m.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Stop while idle = %v, want ErrNotRunning", err)
	}

	if err := m.Start("synthetic:", "lobby", 10); err != nil {
		t.Fatal(err)
	}
	if !m.Running() || m.Name() != "lobby" {
		t.Errorf("Running = %v, Name = %q", m.Running(), m.Name())
	}

	if err := m.Start("synthetic:", "other", 10); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start = %v, want ErrAlreadyRunning", err)
	}

	// Frames should flow into the output buffer.
	deadline := time.Now().Add(5 * time.Second)
	for output.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if output.Len() == 0 {
		t.Fatal("no frames processed within 5s")
	}

	if err := m.Stop(); err != nil {
		t.Fatal(err)
	}
	if m.Running() {
		t.Error("Running after Stop")
	}

	// A fresh pipeline can start against the same output buffer.
	if err := m.Start("synthetic:", "lobby", 10); err != nil {
		t.Fatal(err)
	}
	if err := m.Stop(); err != nil {
		t.Fatal(err)
	}
}
