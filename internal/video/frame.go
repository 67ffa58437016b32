// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

// Package video holds the frame data model and frame sources.
//
// A Frame is immutable once produced: it is owned exclusively by whichever
// queue currently holds it, then by the stage that dequeued it, until it is
// handed on or discarded. Stages that need to draw on a frame clone it first.
package video

import (
	"image"
	"image/draw"
	"time"
)

// Frame is a single captured video frame.
type Frame struct {
	// Seq is the monotonically increasing capture sequence number.
	Seq uint64

	// CapturedAt is the wall-clock capture time.
	CapturedAt time.Time

	// RGBA holds the pixel data. Never nil for a produced frame.
	RGBA *image.RGBA
}

// NewFrame wraps an image into a Frame, converting to RGBA if needed.
func NewFrame(seq uint64, capturedAt time.Time, img image.Image) *Frame {
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		b := img.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Rect, img, b.Min, draw.Src)
	}
	return &Frame{Seq: seq, CapturedAt: capturedAt, RGBA: rgba}
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int { return f.RGBA.Rect.Dx() }

// Height returns the frame height in pixels.
func (f *Frame) Height() int { return f.RGBA.Rect.Dy() }

// Clone returns a deep copy of the frame for annotation.
func (f *Frame) Clone() *Frame {
	dst := image.NewRGBA(f.RGBA.Rect)
	copy(dst.Pix, f.RGBA.Pix)
	return &Frame{Seq: f.Seq, CapturedAt: f.CapturedAt, RGBA: dst}
}

// Crop returns the sub-image for the given rectangle, clamped to the frame
// bounds. The returned image shares pixels with the frame.
func (f *Frame) Crop(r image.Rectangle) *image.RGBA {
	r = r.Intersect(f.RGBA.Rect)
	return f.RGBA.SubImage(r).(*image.RGBA)
}
