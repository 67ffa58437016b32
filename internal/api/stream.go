// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package api

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"time"

	xdraw "golang.org/x/image/draw"

	"github.com/sentinelcam/sentinel/internal/buffer"
	"github.com/sentinelcam/sentinel/internal/logging"
	"github.com/sentinelcam/sentinel/internal/video"
)

const (
	// Live feed geometry and encoding, kept modest for bandwidth.
	streamWidth   = 640
	streamHeight  = 360
	streamQuality = 70

	// streamEvery forwards every Nth processed frame.
	streamEvery = 2

	// keepaliveAfter sends a blank frame when no frames arrive, so the
	// client connection stays warm while detection is idle.
	keepaliveAfter = 2 * time.Second

	streamBoundary = "frame"
)

// handleVideoFeed streams annotated frames as multipart MJPEG. With no
// pipeline running the stream stays open and sends blank keepalives.
func (s *Server) handleVideoFeed(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+streamBoundary)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	output := s.manager.Output()
	blank := encodeBlank()

	var count uint64
	lastSent := time.Now()

	for {
		frame, ok := popWithTimeout(ctx, output, keepaliveAfter)
		if ctx.Err() != nil {
			return
		}

		if !ok {
			if time.Since(lastSent) >= keepaliveAfter {
				if err := writePart(w, blank); err != nil {
					return
				}
				flusher.Flush()
				lastSent = time.Now()
			}
			continue
		}

		count++
		if count%streamEvery != 0 {
			continue
		}

		data, err := encodeScaled(frame)
		if err != nil {
			logging.Warn().Err(err).Msg("stream frame encode failed")
			continue
		}
		if err := writePart(w, data); err != nil {
			return
		}
		flusher.Flush()
		lastSent = time.Now()
	}
}

// popWithTimeout pops one frame, giving up after the timeout so the
// caller can emit a keepalive.
func popWithTimeout(ctx context.Context, output *buffer.Ring[*video.Frame], timeout time.Duration) (*video.Frame, bool) {
	deadline := time.Now().Add(timeout)
	for {
		if frame, ok := output.TryPop(); ok {
			return frame, true
		}
		if time.Now().After(deadline) {
			return nil, false
		}
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func writePart(w http.ResponseWriter, jpegData []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\n\r\n", streamBoundary); err != nil {
		return err
	}
	if _, err := w.Write(jpegData); err != nil {
		return err
	}
	_, err := fmt.Fprint(w, "\r\n")
	return err
}

// encodeScaled downscales the frame to the stream geometry and encodes
// it as JPEG.
func encodeScaled(frame *video.Frame) ([]byte, error) {
	src := frame.RGBA
	dst := src
	if src.Rect.Dx() != streamWidth || src.Rect.Dy() != streamHeight {
		dst = image.NewRGBA(image.Rect(0, 0, streamWidth, streamHeight))
		xdraw.ApproxBiLinear.Scale(dst, dst.Rect, src, src.Rect, xdraw.Src, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: streamQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeBlank renders the idle keepalive frame once.
func encodeBlank() []byte {
	img := image.NewRGBA(image.Rect(0, 0, streamWidth, streamHeight))
	var buf bytes.Buffer
	_ = jpeg.Encode(&buf, img, &jpeg.Options{Quality: streamQuality})
	return buf.Bytes()
}
