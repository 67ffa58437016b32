// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

// Package perception adapts external object-detection and pose-estimation
// models into structured per-frame detections. The models themselves are
// black boxes behind the capability interfaces; this package owns the
// adaptation logic: confidence filtering, class mapping, and weapon/person
// overlap suppression.
package perception

import (
	"context"
	"image"
)

// Class identifies the object class of a detection.
type Class int

const (
	ClassPerson Class = iota
	ClassWeapon
)

// String returns the class label.
func (c Class) String() string {
	switch c {
	case ClassPerson:
		return "person"
	case ClassWeapon:
		return "weapon"
	default:
		return "unknown"
	}
}

// Box is an axis-aligned bounding box in pixel coordinates, [X1,X2) x [Y1,Y2).
type Box struct {
	X1, Y1, X2, Y2 int
}

// Width returns the box width.
func (b Box) Width() int { return b.X2 - b.X1 }

// Height returns the box height.
func (b Box) Height() int { return b.Y2 - b.Y1 }

// Area returns the box area, zero for degenerate boxes.
func (b Box) Area() int {
	if b.X2 <= b.X1 || b.Y2 <= b.Y1 {
		return 0
	}
	return (b.X2 - b.X1) * (b.Y2 - b.Y1)
}

// Center returns the box center point.
func (b Box) Center() (float64, float64) {
	return float64(b.X1+b.X2) / 2, float64(b.Y1+b.Y2) / 2
}

// Clamp restricts the box to a width x height frame.
func (b Box) Clamp(width, height int) Box {
	c := b
	if c.X1 < 0 {
		c.X1 = 0
	}
	if c.Y1 < 0 {
		c.Y1 = 0
	}
	if c.X2 > width {
		c.X2 = width
	}
	if c.Y2 > height {
		c.Y2 = height
	}
	return c
}

// Rect converts the box to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// IoU computes intersection-over-union of two boxes via inclusion-exclusion.
// Degenerate (zero-area) boxes are treated as having no overlap.
func IoU(a, b Box) float64 {
	areaA := a.Area()
	areaB := b.Area()
	if areaA == 0 || areaB == 0 {
		return 0
	}

	ix1 := max(a.X1, b.X1)
	iy1 := max(a.Y1, b.Y1)
	ix2 := min(a.X2, b.X2)
	iy2 := min(a.Y2, b.Y2)

	iw := ix2 - ix1
	ih := iy2 - iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}

	inter := iw * ih
	union := areaA + areaB - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Detection is one detected object in one frame. Detections carry no
// cross-frame identity.
type Detection struct {
	Box   Box     `json:"box"`
	Score float64 `json:"score"`
	Class Class   `json:"class"`
}

// ObjectDetector is the external object-detection capability.
type ObjectDetector interface {
	// Detect runs the model on a frame image at the given inference size
	// and returns all detections scoring at or above confidenceFloor.
	Detect(ctx context.Context, img *image.RGBA, imageSize int, confidenceFloor float64) ([]Detection, error)
}

// Landmark is a pose landmark with coordinates normalized to the crop,
// x and y in [0, 1].
type Landmark struct {
	X float64
	Y float64
}

// LandmarkNose is the index of the head/nose landmark in an estimate.
const LandmarkNose = 0

// PoseEstimator is the external pose-estimation capability.
type PoseEstimator interface {
	// Estimate returns normalized landmarks for a person crop, or
	// (nil, nil) when no pose could be extracted.
	Estimate(ctx context.Context, crop *image.RGBA) ([]Landmark, error)
}
