// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package notify

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/sentinelcam/sentinel/internal/logging"
	"github.com/sentinelcam/sentinel/internal/metrics"
)

// Breaker wraps a channel with a circuit breaker so a dead provider stops
// consuming worker time. While open, sends fail fast with ErrOpenState.
type Breaker struct {
	inner Notifier
	cb    *gobreaker.CircuitBreaker[any]
}

// WithBreaker wraps the channel. The breaker opens after 5 consecutive
// failures and probes again after 2 minutes.
func WithBreaker(inner Notifier) *Breaker {
	name := inner.Name()

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("channel", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("notification channel breaker state change")
		},
	})

	return &Breaker{inner: inner, cb: cb}
}

// Name returns the wrapped channel identifier.
func (b *Breaker) Name() string { return b.inner.Name() }

// Send delivers through the breaker, recording the per-channel outcome.
func (b *Breaker) Send(ctx context.Context, msg Message) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.inner.Send(ctx, msg)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.Warn().Str("channel", b.Name()).Msg("notification send rejected, breaker open")
		}
		metrics.NotifyFailures.WithLabelValues(b.Name()).Inc()
		return err
	}
	metrics.NotifySent.WithLabelValues(b.Name()).Inc()
	return nil
}
