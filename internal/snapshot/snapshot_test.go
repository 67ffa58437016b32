// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package snapshot

import (
	"bytes"
	"image"
	"image/jpeg"
	"path/filepath"
	"testing"
	"time"

	"github.com/sentinelcam/sentinel/internal/video"
)

func TestSaveNamesByLabelAndUTCTime(t *testing.T) {
	store, err := NewStore(t.TempDir(), 70)
	if err != nil {
		t.Fatal(err)
	}

	captured := time.Date(2026, 3, 1, 14, 30, 5, 0, time.FixedZone("CET", 3600))
	frame := video.NewFrame(1, captured, image.NewRGBA(image.Rect(0, 0, 64, 48)))

	path, err := store.Save(frame, "weapon_detected_camera_tamper")
	if err != nil {
		t.Fatal(err)
	}

	// 14:30:05 CET is 13:30:05 UTC.
	want := "weapon_detected_camera_tamper_20260301T133005Z.jpg"
	if filepath.Base(path) != want {
		t.Errorf("filename = %q, want %q", filepath.Base(path), want)
	}

	data, err := store.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("saved snapshot is not a decodable JPEG: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("snapshot bounds = %v", img.Bounds())
	}
}

func TestReadRejectsPathOutsideStore(t *testing.T) {
	store, err := NewStore(t.TempDir(), 70)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.Read("/etc/hostname"); err == nil {
		t.Error("Read outside the store directory succeeded")
	}
	if _, err := store.Read(filepath.Join(store.Dir(), "..", "escape.jpg")); err == nil {
		t.Error("Read with traversal succeeded")
	}
}
