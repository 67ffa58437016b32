// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package dispatch

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/sentinelcam/sentinel/internal/logging"
	"github.com/sentinelcam/sentinel/internal/notify"
)

// NotifyWorker consumes raised alerts from the bus and fans them out to
// the configured channels, best effort, one alert at a time.
type NotifyWorker struct {
	subscriber  message.Subscriber
	notifiers   []notify.Notifier
	sendTimeout time.Duration
}

// NewNotifyWorker creates the worker over the given subscriber.
func NewNotifyWorker(subscriber message.Subscriber, notifiers []notify.Notifier) *NotifyWorker {
	return &NotifyWorker{
		subscriber:  subscriber,
		notifiers:   notifiers,
		sendTimeout: 30 * time.Second,
	}
}

// String names the worker in the supervision tree.
func (w *NotifyWorker) String() string { return "notify-worker" }

// Serve consumes alerts until the context is canceled.
func (w *NotifyWorker) Serve(ctx context.Context) error {
	msgs, err := w.subscriber.Subscribe(ctx, TopicAlerts)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			w.handle(ctx, msg)
		}
	}
}

func (w *NotifyWorker) handle(ctx context.Context, msg *message.Message) {
	// Malformed payloads are acked and dropped; redelivery cannot fix them.
	defer msg.Ack()

	var env Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		logging.Error().Err(err).Str("message", msg.UUID).Msg("undecodable alert envelope dropped")
		return
	}

	out := notify.Message{Record: env.Record, Snapshot: env.Snapshot}
	for _, n := range w.notifiers {
		sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
		if err := n.Send(sendCtx, out); err != nil {
			logging.Warn().
				Err(err).
				Str("channel", n.Name()).
				Str("alert", env.Record.ID.String()).
				Msg("notification send failed")
		}
		cancel()
	}
}
