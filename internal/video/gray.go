// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package video

import (
	"fmt"
	"math"
)

// Gray is a single-channel luminance plane used by the tamper stage.
type Gray struct {
	Pix    []uint8
	Width  int
	Height int
}

// GrayFromFrame converts a frame to a luminance plane using the integer
// BT.601 weights (same coefficients as image/color.GrayModel).
func GrayFromFrame(f *Frame) *Gray {
	w, h := f.Width(), f.Height()
	g := &Gray{
		Pix:    make([]uint8, w*h),
		Width:  w,
		Height: h,
	}

	src := f.RGBA
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		out := g.Pix[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			r := uint32(row[x*4])
			gg := uint32(row[x*4+1])
			b := uint32(row[x*4+2])
			out[x] = uint8((19595*r + 38470*gg + 7471*b + 1<<15) >> 16)
		}
	}
	return g
}

// Mean returns the mean pixel intensity.
func (g *Gray) Mean() float64 {
	if len(g.Pix) == 0 {
		return 0
	}
	var sum uint64
	for _, p := range g.Pix {
		sum += uint64(p)
	}
	return float64(sum) / float64(len(g.Pix))
}

// StdDev returns the standard deviation of pixel intensity.
func (g *Gray) StdDev() float64 {
	if len(g.Pix) == 0 {
		return 0
	}
	mean := g.Mean()
	var sumSq float64
	for _, p := range g.Pix {
		d := float64(p) - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(g.Pix)))
}

// MeanAbsDiff returns the mean absolute per-pixel difference between two
// planes of identical dimensions.
func (g *Gray) MeanAbsDiff(other *Gray) (float64, error) {
	if other == nil {
		return 0, fmt.Errorf("nil comparison plane")
	}
	if g.Width != other.Width || g.Height != other.Height {
		return 0, fmt.Errorf("dimension mismatch: %dx%d vs %dx%d",
			g.Width, g.Height, other.Width, other.Height)
	}
	if len(g.Pix) == 0 {
		return 0, nil
	}

	var sum uint64
	for i, p := range g.Pix {
		q := other.Pix[i]
		if p >= q {
			sum += uint64(p - q)
		} else {
			sum += uint64(q - p)
		}
	}
	return float64(sum) / float64(len(g.Pix)), nil
}
