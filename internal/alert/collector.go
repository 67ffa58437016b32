// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package alert

import (
	"context"
	"sync"
	"time"

	"github.com/sentinelcam/sentinel/internal/metrics"
)

// Collector appends alerts to the history store, suppressing repeats of
// the same condition inside the dedup window. A condition is the
// (level, reasons) pair; two alerts with different reason lists are
// distinct conditions and dedup independently.
type Collector struct {
	store  Store
	window time.Duration

	mu       sync.Mutex
	lastSeen map[string]time.Time
	clock    func() time.Time
}

// NewCollector creates a collector over the given history store.
func NewCollector(store Store, window time.Duration) *Collector {
	return &Collector{
		store:    store,
		window:   window,
		lastSeen: make(map[string]time.Time),
		clock:    time.Now,
	}
}

// Add appends the record unless an alert with the same dedup key was
// recorded inside the window. It reports whether the record was stored.
func (c *Collector) Add(ctx context.Context, rec Record) (bool, error) {
	key := rec.DedupKey()

	c.mu.Lock()
	now := c.clock()
	if last, ok := c.lastSeen[key]; ok && now.Sub(last) < c.window {
		c.mu.Unlock()
		metrics.AlertsSuppressed.WithLabelValues("dedup").Inc()
		return false, nil
	}
	c.lastSeen[key] = now
	c.mu.Unlock()

	if err := c.store.Append(ctx, rec); err != nil {
		return false, err
	}
	return true, nil
}

// Reset clears the dedup state. Used when a pipeline restarts.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSeen = make(map[string]time.Time)
}
