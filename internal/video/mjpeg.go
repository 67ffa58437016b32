// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package video

import (
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"sync"
	"time"
)

// MJPEGSource reads frames from a multipart/x-mixed-replace MJPEG camera
// stream over HTTP. Inability to connect is fatal to the caller; a bad
// individual part is a transient read failure.
//
// Next is owned by a single reader goroutine. Close may be called from any
// goroutine and unblocks an in-flight Next by closing the response body.
type MJPEGSource struct {
	url    string
	resp   *http.Response
	reader *multipart.Reader

	mu     sync.Mutex
	seq    uint64
	closed bool
}

// OpenMJPEG connects to an MJPEG stream URL. A connection or content-type
// failure here means the source is unavailable (error taxonomy: fatal).
func OpenMJPEG(url string) (*MJPEGSource, error) {
	client := &http.Client{
		// No overall timeout: the body is a never-ending stream.
		Transport: &http.Transport{
			ResponseHeaderTimeout: 15 * time.Second,
		},
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("connect to video source: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("video source returned status %d", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/x-mixed-replace" || params["boundary"] == "" {
		resp.Body.Close()
		return nil, fmt.Errorf("not an MJPEG stream: content-type %q", resp.Header.Get("Content-Type"))
	}

	return &MJPEGSource{
		url:    url,
		resp:   resp,
		reader: multipart.NewReader(resp.Body, params["boundary"]),
	}, nil
}

// Next reads the next JPEG part and decodes it into a frame. The decode
// runs directly off the part: the JPEG end-of-image marker bounds the
// read, so a frame is delivered as soon as its bytes arrive rather than
// when the next part's boundary does. Any trailing part bytes are
// discarded by the following NextPart call.
func (s *MJPEGSource) Next(ctx context.Context) (*Frame, error) {
	if s.isClosed() {
		return nil, ErrSourceClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Closing the body is the only way to unblock a stalled read.
	unwatch := context.AfterFunc(ctx, func() { s.resp.Body.Close() })
	defer unwatch()

	part, err := s.reader.NextPart()
	if err != nil {
		return nil, s.readErr(ctx, "read part", err)
	}

	img, err := jpeg.Decode(part)
	if err != nil {
		return nil, s.readErr(ctx, "decode jpeg", err)
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()
	return NewFrame(seq, time.Now(), img), nil
}

// readErr classifies a failed part read: cancellation and Close win over
// the underlying I/O error, stream end is source-closed, anything else is
// transient.
func (s *MJPEGSource) readErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if s.isClosed() || errors.Is(err, io.EOF) {
		return ErrSourceClosed
	}
	return fmt.Errorf("%w: %s: %v", ErrTransientRead, op, err)
}

func (s *MJPEGSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close terminates the HTTP stream. It never waits on the read path; the
// body close forces any blocked Next to return ErrSourceClosed.
func (s *MJPEGSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.resp.Body.Close()
}
