// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

// Package snapshot persists JPEG evidence frames for raised alerts.
package snapshot

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/sentinelcam/sentinel/internal/video"
)

// timeLayout is the UTC timestamp segment of snapshot filenames.
const timeLayout = "20060102T150405Z"

// Store writes alert evidence frames to a directory.
type Store struct {
	dir     string
	quality int
}

// NewStore creates the snapshot directory if needed.
func NewStore(dir string, quality int) (*Store, error) {
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Store{dir: dir, quality: quality}, nil
}

// Save encodes the frame as JPEG under "<label>_<UTC timestamp>.jpg" and
// returns the written path.
func (s *Store) Save(frame *video.Frame, label string) (string, error) {
	data, err := s.Encode(frame)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s_%s.jpg", label, frame.CapturedAt.UTC().Format(timeLayout))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// Encode renders the frame to JPEG bytes at the store's quality.
func (s *Store) Encode(frame *video.Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame.RGBA, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Read returns the bytes of a previously saved snapshot. The path must be
// inside the store directory; anything else is rejected.
func (s *Store) Read(path string) ([]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	dir, err := filepath.Abs(s.dir)
	if err != nil {
		return nil, err
	}
	if filepath.Dir(abs) != dir {
		return nil, fmt.Errorf("snapshot path %q outside store", path)
	}
	return os.ReadFile(abs)
}

// Dir returns the snapshot directory.
func (s *Store) Dir() string { return s.dir }
