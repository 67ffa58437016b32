// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package video

import (
	"context"
	"image"
	"image/color"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SyntheticSource generates a moving test pattern at a fixed frame rate.
// Used in demo mode and by pipeline tests that need a real source without
// a camera.
type SyntheticSource struct {
	limiter *rate.Limiter
	width   int
	height  int

	mu     sync.Mutex
	seq    uint64
	closed bool
}

// NewSyntheticSource creates a test-pattern source paced at fps frames per
// second.
func NewSyntheticSource(fps float64) *SyntheticSource {
	if fps <= 0 {
		fps = 25
	}
	return &SyntheticSource{
		limiter: rate.NewLimiter(rate.Limit(fps), 1),
		width:   640,
		height:  360,
	}
}

// Next waits for the next frame slot and returns a generated frame.
func (s *SyntheticSource) Next(ctx context.Context) (*Frame, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSourceClosed
	}
	s.mu.Unlock()

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSourceClosed
	}
	s.seq++
	return NewFrame(s.seq, time.Now(), s.pattern(s.seq)), nil
}

// pattern renders a diagonal gradient with a block that drifts across the
// frame, so motion and freeze logic both have something to chew on.
func (s *SyntheticSource) pattern(seq uint64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			v := uint8((x + y) / 4 % 256)
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}

	// Drifting block.
	bx := int(seq*3) % (s.width - 40)
	for y := 100; y < 140; y++ {
		for x := bx; x < bx+40; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 220, G: 220, B: 220, A: 255})
		}
	}
	return img
}

// Close stops the source.
func (s *SyntheticSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
