// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package video

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrSourceClosed is returned by Next after Close or when the remote end
// terminated the stream.
var ErrSourceClosed = errors.New("video: source closed")

// ErrTransientRead marks a single failed frame read. The reader retries
// after a short wait instead of terminating; networked sources routinely
// glitch.
var ErrTransientRead = errors.New("video: transient read failure")

// Source is an opaque producer of raw frames.
type Source interface {
	// Next blocks until the next frame is available. It returns
	// ErrSourceClosed when the stream has ended, or an error wrapping
	// ErrTransientRead for a recoverable per-frame failure.
	Next(ctx context.Context) (*Frame, error)

	// Close releases the underlying capture resources.
	Close() error
}

// Open constructs a Source for the given URL.
//
//	http://, https://  MJPEG-over-HTTP camera stream
//	synthetic:         generated test pattern (demo mode)
func Open(url string, fps float64) (Source, error) {
	switch {
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		return OpenMJPEG(url)
	case strings.HasPrefix(url, "synthetic:"):
		return NewSyntheticSource(fps), nil
	default:
		return nil, fmt.Errorf("unsupported video source %q", url)
	}
}
