// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package action

import (
	"math"
	"sort"
	"time"
)

// Point is a box center in pixel coordinates.
type Point struct {
	X, Y float64
}

// Dist returns the Euclidean distance between two points.
func (p Point) Dist(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// motionRing is a bounded history of per-frame displacement magnitudes.
type motionRing struct {
	vals  []float64
	head  int
	count int
}

func newMotionRing(size int) *motionRing {
	if size < 1 {
		size = 1
	}
	return &motionRing{vals: make([]float64, size)}
}

func (r *motionRing) push(v float64) {
	if r.count < len(r.vals) {
		r.vals[(r.head+r.count)%len(r.vals)] = v
		r.count++
		return
	}
	r.vals[r.head] = v
	r.head = (r.head + 1) % len(r.vals)
}

func (r *motionRing) mean() float64 {
	if r.count == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < r.count; i++ {
		sum += r.vals[(r.head+i)%len(r.vals)]
	}
	return sum / float64(r.count)
}

// Track is the temporal record for one associated entity. It is not a
// globally-stable identity across occlusion, just a greedy nearest-center
// continuation between consecutive frames.
type Track struct {
	ID        int
	Center    Point
	FirstSeen time.Time
	LastSeen  time.Time

	motion *motionRing
	isNew  bool
}

// MotionMean returns the mean of the recorded displacement history.
func (t *Track) MotionMean() float64 { return t.motion.mean() }

// MotionSamples returns how many displacement samples have been recorded.
func (t *Track) MotionSamples() int { return t.motion.count }

// trackTable associates per-frame detections with tracks by greedy
// nearest-center matching, and expires tracks that have not been seen for
// the configured duration so memory stays bounded.
type trackTable struct {
	tracks       map[int]*Track
	nextID       int
	motionWindow int
	maxMatchDist float64
	expireAfter  time.Duration
}

func newTrackTable(motionWindow int, maxMatchDist float64, expireAfter time.Duration) *trackTable {
	return &trackTable{
		tracks:       make(map[int]*Track),
		motionWindow: motionWindow,
		maxMatchDist: maxMatchDist,
		expireAfter:  expireAfter,
	}
}

// pair is a candidate (track, observation) match.
type pair struct {
	trackID int
	obs     int
	dist    float64
}

// observe matches the frame's centers against live tracks, creates tracks
// for unmatched centers, prunes expired tracks, and returns the track for
// each observation (indexed like centers).
func (tt *trackTable) observe(centers []Point, now time.Time) []*Track {
	tt.prune(now)

	// All candidate pairs within the gate, cheapest first.
	var pairs []pair
	for id, tr := range tt.tracks {
		for i, c := range centers {
			if d := tr.Center.Dist(c); d <= tt.maxMatchDist {
				pairs = append(pairs, pair{trackID: id, obs: i, dist: d})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].dist != pairs[j].dist {
			return pairs[i].dist < pairs[j].dist
		}
		// Deterministic tie-break so results are reproducible.
		if pairs[i].trackID != pairs[j].trackID {
			return pairs[i].trackID < pairs[j].trackID
		}
		return pairs[i].obs < pairs[j].obs
	})

	out := make([]*Track, len(centers))
	usedTrack := make(map[int]bool, len(tt.tracks))

	for _, p := range pairs {
		if usedTrack[p.trackID] || out[p.obs] != nil {
			continue
		}
		tr := tt.tracks[p.trackID]
		tr.motion.push(p.dist)
		tr.isNew = false
		tr.Center = centers[p.obs]
		tr.LastSeen = now
		out[p.obs] = tr
		usedTrack[p.trackID] = true
	}

	// Unmatched observations start new tracks.
	for i, c := range centers {
		if out[i] != nil {
			continue
		}
		tt.nextID++
		tr := &Track{
			ID:        tt.nextID,
			Center:    c,
			FirstSeen: now,
			LastSeen:  now,
			motion:    newMotionRing(tt.motionWindow),
			isNew:     true,
		}
		tt.tracks[tr.ID] = tr
		out[i] = tr
	}

	return out
}

// prune removes tracks unseen for longer than the expiry window.
func (tt *trackTable) prune(now time.Time) {
	for id, tr := range tt.tracks {
		if now.Sub(tr.LastSeen) > tt.expireAfter {
			delete(tt.tracks, id)
		}
	}
}

// size returns the number of live tracks.
func (tt *trackTable) size() int { return len(tt.tracks) }

// reset drops all tracks.
func (tt *trackTable) reset() {
	tt.tracks = make(map[int]*Track)
}
