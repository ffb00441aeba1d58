// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package store

import (
	"context"
	"time"

	"github.com/fieldsense/fieldsense/internal/logging"
)

// Staleness sweep defaults. A node that has not reported within
// StaleAfter is demoted to stale; within OfflineAfter, to offline.
const (
	DefaultStaleAfter    = 90 * time.Second
	DefaultOfflineAfter  = 10 * time.Minute
	DefaultSweepInterval = 30 * time.Second
)

// Sweeper periodically demotes quiet nodes. It runs as a supervised
// service alongside the ingest pipeline.
type Sweeper struct {
	store        *Store
	staleAfter   time.Duration
	offlineAfter time.Duration
	interval     time.Duration
}

// NewSweeper creates a Sweeper over the given store. Non-positive
// durations fall back to the defaults.
func NewSweeper(s *Store, staleAfter, offlineAfter, interval time.Duration) *Sweeper {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	if offlineAfter <= 0 {
		offlineAfter = DefaultOfflineAfter
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		store:        s,
		staleAfter:   staleAfter,
		offlineAfter: offlineAfter,
		interval:     interval,
	}
}

// RunWithContext sweeps until the context is cancelled.
func (sw *Sweeper) RunWithContext(ctx context.Context) error {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	logging.Info().
		Dur("stale_after", sw.staleAfter).
		Dur("offline_after", sw.offlineAfter).
		Dur("interval", sw.interval).
		Msg("Node staleness sweeper started")

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Node staleness sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			sw.sweep()
		}
	}
}

func (sw *Sweeper) sweep() {
	now := time.Now()
	changed := sw.store.MarkStatuses(now.Add(-sw.staleAfter), now.Add(-sw.offlineAfter))
	if changed > 0 {
		logging.Debug().Int("nodes_demoted", changed).Msg("Staleness sweep demoted quiet nodes")
	}
}
