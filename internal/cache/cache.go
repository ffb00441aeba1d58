// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

// Package cache provides the short-TTL response cache in front of the
// HTTP query endpoints. Telemetry views change every few seconds at
// most, so a small TTL absorbs dashboard polling without serving data
// older than one refresh cycle.
package cache

import (
	"sync"
	"time"
)

// DefaultTTL matches the dashboard refresh interval.
const DefaultTTL = 30 * time.Second

type entry struct {
	data      interface{}
	expiresAt time.Time
}

// Cache is a thread-safe in-memory cache with per-entry expiration.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	stats   Stats
}

// Stats tracks cache performance counters.
type Stats struct {
	mu        sync.RWMutex
	Hits      int64
	Misses    int64
	Evictions int64
	TotalKeys int64
}

// New creates a Cache with the given default TTL and starts a
// background cleanup goroutine. A non-positive ttl falls back to
// DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
	}
	go c.cleanupLoop()
	return c
}

// Get returns the cached value for key. Expired entries are removed
// and counted as misses.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		c.recordMiss()
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		c.recordMiss()
		return nil, false
	}

	c.recordHit()
	return e.data, true
}

// Set stores a value with the default TTL.
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with a custom TTL.
func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{data: value, expiresAt: time.Now().Add(ttl)}

	c.stats.mu.Lock()
	c.stats.TotalKeys = int64(len(c.entries))
	c.stats.mu.Unlock()
}

// Delete removes a key. Safe to call for absent keys.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	evicted := int64(len(c.entries))
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	c.stats.mu.Lock()
	c.stats.Evictions += evicted
	c.stats.TotalKeys = 0
	c.stats.mu.Unlock()
}

// GetStats returns a copy of the current counters.
func (c *Cache) GetStats() Stats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()

	return Stats{
		Hits:      c.stats.Hits,
		Misses:    c.stats.Misses,
		Evictions: c.stats.Evictions,
		TotalKeys: c.stats.TotalKeys,
	}
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.cleanup()
	}
}

func (c *Cache) cleanup() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := int64(0)
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			evicted++
		}
	}

	c.stats.mu.Lock()
	c.stats.Evictions += evicted
	c.stats.TotalKeys = int64(len(c.entries))
	c.stats.mu.Unlock()
}

func (c *Cache) recordHit() {
	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()
}

func (c *Cache) recordMiss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
}
