// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sentinelcam/sentinel/internal/decision"
)

func testDecision(level decision.Level, reasons ...decision.Reason) decision.Decision {
	return decision.Decision{RaiseAlert: true, Level: level, Reasons: reasons}
}

func TestDedupKeyDistinguishesConditions(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a := NewRecord(testDecision(decision.LevelHigh, decision.ReasonWeaponDetected), "lobby", base)
	b := NewRecord(testDecision(decision.LevelHigh, decision.ReasonWeaponDetected), "lobby", base)
	c := NewRecord(testDecision(decision.LevelHigh, decision.ReasonCameraTamper), "lobby", base)
	d := NewRecord(testDecision(decision.LevelSuspicious, decision.ReasonWeaponDetected), "lobby", base)

	if a.DedupKey() != b.DedupKey() {
		t.Error("identical conditions produced different keys")
	}
	if a.DedupKey() == c.DedupKey() {
		t.Error("different reasons share a key")
	}
	if a.DedupKey() == d.DedupKey() {
		t.Error("different levels share a key")
	}
}

func TestLabel(t *testing.T) {
	rec := NewRecord(
		testDecision(decision.LevelHigh, decision.ReasonMultiplePersons, decision.ReasonWeaponDetected),
		"lobby", time.Now(),
	)
	if got := rec.Label(); got != "multiple_persons_weapon_detected" {
		t.Errorf("Label = %q", got)
	}

	empty := Record{}
	if got := empty.Label(); got != "alert" {
		t.Errorf("Label with no reasons = %q, want alert", got)
	}
}

func TestCollectorDedupWindow(t *testing.T) {
	store := NewMemoryStore()
	col := NewCollector(store, 30*time.Second)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	col.clock = func() time.Time { return now }
	ctx := context.Background()

	rec := NewRecord(testDecision(decision.LevelHigh, decision.ReasonWeaponDetected), "lobby", now)

	stored, err := col.Add(ctx, rec)
	if err != nil || !stored {
		t.Fatalf("first Add = (%v, %v), want stored", stored, err)
	}

	// Same condition 5s later is suppressed.
	now = now.Add(5 * time.Second)
	stored, err = col.Add(ctx, rec)
	if err != nil || stored {
		t.Fatalf("Add inside window = (%v, %v), want suppressed", stored, err)
	}

	// A different condition passes immediately.
	other := NewRecord(testDecision(decision.LevelHigh, decision.ReasonCameraTamper), "lobby", now)
	stored, err = col.Add(ctx, other)
	if err != nil || !stored {
		t.Fatalf("distinct condition = (%v, %v), want stored", stored, err)
	}

	// The original condition passes again after the window.
	now = now.Add(31 * time.Second)
	stored, err = col.Add(ctx, rec)
	if err != nil || !stored {
		t.Fatalf("Add after window = (%v, %v), want stored", stored, err)
	}

	recs, err := store.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Errorf("stored records = %d, want 3", len(recs))
	}
}

func TestCollectorResetClearsDedup(t *testing.T) {
	col := NewCollector(NewMemoryStore(), 30*time.Second)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	col.clock = func() time.Time { return now }
	ctx := context.Background()

	rec := NewRecord(testDecision(decision.LevelHigh, decision.ReasonWeaponDetected), "lobby", now)
	if stored, _ := col.Add(ctx, rec); !stored {
		t.Fatal("first Add suppressed")
	}

	col.Reset()
	if stored, _ := col.Add(ctx, rec); !stored {
		t.Error("Add after Reset suppressed")
	}
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	levels := []decision.Level{decision.LevelSuspicious, decision.LevelHigh, decision.LevelSuspicious}
	for i, lvl := range levels {
		rec := NewRecord(testDecision(lvl, decision.ReasonLoitering), "lobby", base.Add(time.Duration(i)*time.Minute))
		if err := store.Append(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	recs, err := store.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("List(2) = %d records", len(recs))
	}
	if !recs[0].Timestamp.After(recs[1].Timestamp) {
		t.Error("List not newest-first")
	}

	latest, err := store.Latest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !latest.Timestamp.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("Latest timestamp = %v", latest.Timestamp)
	}
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	store, err := OpenBadgerStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := store.Latest(ctx); !errors.Is(err, ErrNoAlerts) {
		t.Errorf("Latest on empty store = %v, want ErrNoAlerts", err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := NewRecord(testDecision(decision.LevelHigh, decision.ReasonWeaponDetected), "lobby", base.Add(time.Duration(i)*time.Second))
		rec.SnapshotPath = "snapshots/weapon_detected_20260301T120000Z.jpg"
		if err := store.Append(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	recs, err := store.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("List = %d records, want 3", len(recs))
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].Timestamp.After(recs[i-1].Timestamp) {
			t.Fatal("List not newest-first")
		}
	}

	latest, err := store.Latest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !latest.Timestamp.Equal(base.Add(2 * time.Second)) {
		t.Errorf("Latest timestamp = %v", latest.Timestamp)
	}
	if latest.SnapshotPath == "" || latest.Level != decision.LevelHigh {
		t.Errorf("Latest lost fields: %+v", latest)
	}
}
