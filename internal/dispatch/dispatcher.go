// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

// Package dispatch turns raised decisions into alert records and fans
// them out asynchronously. The pipeline worker calls Dispatch inline;
// everything slow (notification providers, SMTP, webhooks) happens on
// the other side of an in-process message bus so a stalled provider can
// never stall frame processing.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/sentinelcam/sentinel/internal/alert"
	"github.com/sentinelcam/sentinel/internal/decision"
	"github.com/sentinelcam/sentinel/internal/logging"
	"github.com/sentinelcam/sentinel/internal/metrics"
	"github.com/sentinelcam/sentinel/internal/snapshot"
	"github.com/sentinelcam/sentinel/internal/video"
)

// TopicAlerts is the bus topic carrying raised alerts. The notification
// worker and the live WebSocket feed both subscribe to it.
const TopicAlerts = "alerts.raised"

// Envelope is the bus payload for one raised alert.
type Envelope struct {
	Record alert.Record `json:"record"`

	// Snapshot is the annotated evidence JPEG, base64 on the wire.
	Snapshot []byte `json:"snapshot,omitempty"`
}

// NewBus creates the in-process pub/sub used for alert fan-out. Every
// subscriber receives every alert.
func NewBus() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, NewBusLogger())
}

// Dispatcher applies the global alert cooldown, persists the record and
// evidence snapshot, and publishes the alert to the bus.
type Dispatcher struct {
	collector *alert.Collector
	snapshots *snapshot.Store
	publisher message.Publisher
	cooldown  time.Duration

	mu    sync.Mutex
	last  time.Time
	clock func() time.Time
}

// NewDispatcher creates a dispatcher. The snapshot store may be nil, in
// which case alerts carry no evidence image.
func NewDispatcher(collector *alert.Collector, snapshots *snapshot.Store, publisher message.Publisher, cooldown time.Duration) *Dispatcher {
	return &Dispatcher{
		collector: collector,
		snapshots: snapshots,
		publisher: publisher,
		cooldown:  cooldown,
		clock:     time.Now,
	}
}

// Dispatch handles one frame's decision. NORMAL decisions and decisions
// inside the global cooldown return immediately. The annotated frame is
// the evidence image.
func (d *Dispatcher) Dispatch(ctx context.Context, pipeline string, dec decision.Decision, annotated *video.Frame) error {
	if !dec.RaiseAlert {
		return nil
	}

	d.mu.Lock()
	now := d.clock()
	if !d.last.IsZero() && now.Sub(d.last) < d.cooldown {
		d.mu.Unlock()
		metrics.AlertsSuppressed.WithLabelValues("cooldown").Inc()
		return nil
	}
	d.last = now
	d.mu.Unlock()

	rec := alert.NewRecord(dec, pipeline, now)

	var snapData []byte
	if d.snapshots != nil && annotated != nil {
		path, err := d.snapshots.Save(annotated, rec.Label())
		if err != nil {
			logging.Warn().Err(err).Msg("snapshot save failed, alert proceeds without evidence")
		} else {
			rec.SnapshotPath = path
			snapData, err = d.snapshots.Encode(annotated)
			if err != nil {
				logging.Warn().Err(err).Msg("snapshot encode failed")
				snapData = nil
			}
		}
	}

	stored, err := d.collector.Add(ctx, rec)
	if err != nil {
		logging.Error().Err(err).Msg("alert history append failed")
	}
	if stored {
		logging.Info().
			Str("level", string(rec.Level)).
			Strs("reasons", decision.ReasonStrings(rec.Reasons)).
			Str("pipeline", pipeline).
			Str("snapshot", rec.SnapshotPath).
			Msg("alert raised")
	}

	metrics.AlertsDispatched.WithLabelValues(string(rec.Level)).Inc()

	payload, err := json.Marshal(Envelope{Record: rec, Snapshot: snapData})
	if err != nil {
		return fmt.Errorf("marshal alert envelope: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := d.publisher.Publish(TopicAlerts, msg); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}

// Reset clears the cooldown and dedup state, for pipeline restarts.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	d.last = time.Time{}
	d.mu.Unlock()
	d.collector.Reset()
}
