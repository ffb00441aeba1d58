// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

// Package store keeps the server's working state in memory: a bounded
// window of recent readings, a bounded window of recent alerts, and the
// current status of every known node. All access is mutex guarded and
// reads return copies, so callers never hold references into the
// internal slices.
package store

import (
	"sync"
	"time"

	"github.com/fieldsense/fieldsense/internal/models"
)

// Default window sizes. Readings and alerts are kept newest first and
// evicted from the tail once the window is full.
const (
	DefaultMaxReadings = 1000
	DefaultMaxAlerts   = 500
)

// Store is the in-memory telemetry state.
type Store struct {
	mu sync.RWMutex

	readings []*models.SensorReading
	alerts   []*models.Alert
	nodes    map[string]*models.Node

	maxReadings int
	maxAlerts   int
}

// New creates a Store with the given window sizes. Non-positive sizes
// fall back to the defaults.
func New(maxReadings, maxAlerts int) *Store {
	if maxReadings <= 0 {
		maxReadings = DefaultMaxReadings
	}
	if maxAlerts <= 0 {
		maxAlerts = DefaultMaxAlerts
	}
	return &Store{
		readings:    make([]*models.SensorReading, 0, maxReadings),
		alerts:      make([]*models.Alert, 0, maxAlerts),
		nodes:       make(map[string]*models.Node),
		maxReadings: maxReadings,
		maxAlerts:   maxAlerts,
	}
}

// RecordReading prepends a reading to the window and upserts the
// sending node as online. The oldest reading is evicted once the
// window is full.
func (s *Store) RecordReading(reading *models.SensorReading) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.readings = prepend(s.readings, reading, s.maxReadings)

	node, ok := s.nodes[reading.NodeID]
	if !ok {
		node = &models.Node{NodeID: reading.NodeID}
		s.nodes[reading.NodeID] = node
	}
	node.Reading = reading
	node.LastSeen = reading.Timestamp
	if node.LastSeen.IsZero() {
		node.LastSeen = time.Now()
	}
	node.Status = models.NodeStatusOnline
}

// RecordAlert prepends an alert to the window, evicting the oldest
// when full.
func (s *Store) RecordAlert(alert *models.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alerts = prepend(s.alerts, alert, s.maxAlerts)
}

// RecentReadings returns up to limit readings, newest first.
func (s *Store) RecentReadings(limit int) []*models.SensorReading {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return copyWindow(s.readings, limit)
}

// RecentAlerts returns up to limit alerts, newest first.
func (s *Store) RecentAlerts(limit int) []*models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return copyWindow(s.alerts, limit)
}

// ReadingsSince returns all windowed readings with a timestamp at or
// after cutoff, newest first. Only the in-memory window is consulted,
// so the result is bounded by the window size regardless of cutoff.
func (s *Store) ReadingsSince(cutoff time.Time) []*models.SensorReading {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.SensorReading, 0, len(s.readings))
	for _, r := range s.readings {
		if !r.Timestamp.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

// Nodes returns the registry keyed by node_id, as dashboards consume
// it.
func (s *Store) Nodes() map[string]*models.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.nodesLocked()
}

// NodeCount returns the number of nodes currently marked online.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.nodes {
		if n.Status == models.NodeStatusOnline {
			count++
		}
	}
	return count
}

// Snapshot captures nodes, the most recent alerts and the most recent
// readings under a single lock, so the three views are consistent with
// each other.
func (s *Store) Snapshot(alertLimit, readingLimit int) *models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &models.Snapshot{
		Nodes:          s.nodesLocked(),
		RecentAlerts:   copyWindow(s.alerts, alertLimit),
		RecentReadings: copyWindow(s.readings, readingLimit),
	}
}

// MarkStatuses demotes nodes that have gone quiet: last seen before
// staleCutoff becomes stale, before offlineCutoff becomes offline.
// Returns the number of nodes whose status changed.
func (s *Store) MarkStatuses(staleCutoff, offlineCutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, n := range s.nodes {
		status := n.Status
		switch {
		case n.LastSeen.Before(offlineCutoff):
			status = models.NodeStatusOffline
		case n.LastSeen.Before(staleCutoff):
			status = models.NodeStatusStale
		}
		if status != n.Status {
			n.Status = status
			changed++
		}
	}
	return changed
}

func (s *Store) nodesLocked() map[string]*models.Node {
	out := make(map[string]*models.Node, len(s.nodes))
	for id, n := range s.nodes {
		clone := *n
		out[id] = &clone
	}
	return out
}

func prepend[T any](window []*T, item *T, max int) []*T {
	window = append(window, nil)
	copy(window[1:], window)
	window[0] = item
	if len(window) > max {
		window = window[:max]
	}
	return window
}

func copyWindow[T any](window []*T, limit int) []*T {
	if limit <= 0 || limit > len(window) {
		limit = len(window)
	}
	out := make([]*T, limit)
	copy(out, window[:limit])
	return out
}
