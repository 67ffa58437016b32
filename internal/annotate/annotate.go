// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

// Package annotate renders analysis overlays onto frames: detection
// boxes with class and score, tamper banners, and behavioral flags. The
// annotated frame is what the live feed streams and what alert snapshots
// capture.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/sentinelcam/sentinel/internal/action"
	"github.com/sentinelcam/sentinel/internal/perception"
	"github.com/sentinelcam/sentinel/internal/tamper"
	"github.com/sentinelcam/sentinel/internal/video"
)

var (
	colorPerson  = color.RGBA{0, 255, 0, 255}
	colorWeapon  = color.RGBA{255, 0, 0, 255}
	colorTamper  = color.RGBA{255, 0, 0, 255}
	colorWarning = color.RGBA{255, 165, 0, 255}
)

const boxThickness = 2

// Render draws all overlays onto a copy of the frame; the input frame is
// not modified.
func Render(frame *video.Frame, persons, weapons []perception.Detection, tamperRes tamper.Result, actionRes action.Result) *video.Frame {
	out := frame.Clone()
	img := out.RGBA

	for i, p := range persons {
		label := fmt.Sprintf("Person %.2f", p.Score)
		if i < len(actionRes.Tracks) && actionRes.Tracks[i] != nil {
			label = fmt.Sprintf("Person #%d %.2f", actionRes.Tracks[i].ID, p.Score)
		}
		drawBox(img, p.Box, colorPerson)
		drawLabel(img, p.Box.X1, p.Box.Y1-4, label, colorPerson)
	}

	for _, w := range weapons {
		drawBox(img, w.Box, colorWeapon)
		drawLabel(img, w.Box.X1, w.Box.Y1-4, fmt.Sprintf("Weapon %.2f", w.Score), colorWeapon)
	}

	y := 20
	if tamperRes.Covered {
		drawLabel(img, 10, y, "TAMPER DETECTED: "+string(tamperRes.Reason), colorTamper)
		y += 20
	}
	if actionRes.Loitering {
		drawLabel(img, 10, y, "LOITERING", colorWarning)
		y += 20
	}
	if actionRes.ViolentMotion {
		drawLabel(img, 10, y, "VIOLENT MOTION", colorWarning)
		y += 20
	}
	if actionRes.PossibleFaint {
		drawLabel(img, 10, y, "POSSIBLE FAINT", colorWarning)
	}

	return out
}

// drawBox strokes the box outline.
func drawBox(img *image.RGBA, box perception.Box, c color.RGBA) {
	r := box.Rect().Intersect(img.Bounds())
	if r.Empty() {
		return
	}

	for t := 0; t < boxThickness; t++ {
		top := image.Rect(r.Min.X, r.Min.Y+t, r.Max.X, r.Min.Y+t+1)
		bottom := image.Rect(r.Min.X, r.Max.Y-t-1, r.Max.X, r.Max.Y-t)
		left := image.Rect(r.Min.X+t, r.Min.Y, r.Min.X+t+1, r.Max.Y)
		right := image.Rect(r.Max.X-t-1, r.Min.Y, r.Max.X-t, r.Max.Y)

		for _, edge := range []image.Rectangle{top, bottom, left, right} {
			draw.Draw(img, edge.Intersect(img.Bounds()), &image.Uniform{c}, image.Point{}, draw.Src)
		}
	}
}

// drawLabel renders text with the baseline at (x, y), clamped into frame.
func drawLabel(img *image.RGBA, x, y int, text string, c color.RGBA) {
	if y < basicfont.Face7x13.Ascent {
		y = basicfont.Face7x13.Ascent
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{c},
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
