// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package models

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestSensorReadingDecodeToleratesUnknownFields(t *testing.T) {
	payload := []byte(`{
		"node_id": "node-7",
		"timestamp": "2026-08-30T12:00:00Z",
		"air": {"pm2_5": 12.5, "co": 0.4, "firmware_extra": true},
		"water": {"ph": 7.1},
		"unknown_top_level": {"x": 1}
	}`)

	var r SensorReading
	if err := json.Unmarshal(payload, &r); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if r.NodeID != "node-7" {
		t.Errorf("NodeID = %q, want node-7", r.NodeID)
	}
	if !r.HasAir() || r.Air.PM25 != 12.5 {
		t.Errorf("Air.PM25 = %+v, want 12.5", r.Air)
	}
	if !r.HasWater() || r.Water.PH != 7.1 {
		t.Errorf("Water.PH = %+v, want 7.1", r.Water)
	}
}

func TestSensorReadingPartialDomains(t *testing.T) {
	r := SensorReading{NodeID: "node-1", Air: &AirMetrics{PM25: 5}}
	if !r.HasAir() {
		t.Error("HasAir() = false, want true")
	}
	if r.HasWater() {
		t.Error("HasWater() = true, want false")
	}
}

func TestAlertIsCritical(t *testing.T) {
	tests := []struct {
		severity string
		want     bool
	}{
		{SeverityCritical, true},
		{SeverityWarning, false},
		{"", false},
	}
	for _, tt := range tests {
		a := Alert{Severity: tt.severity}
		if got := a.IsCritical(); got != tt.want {
			t.Errorf("IsCritical() with severity %q = %v, want %v", tt.severity, got, tt.want)
		}
	}
}

func TestSnapshotJSONFieldNames(t *testing.T) {
	snap := Snapshot{
		Nodes:          map[string]*Node{"n1": {NodeID: "n1", Status: NodeStatusOnline, LastSeen: time.Now()}},
		RecentAlerts:   []*Alert{},
		RecentReadings: []*SensorReading{},
	}
	out, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for _, key := range []string{`"nodes"`, `"recentAlerts"`, `"recentData"`} {
		if !strings.Contains(string(out), key) {
			t.Errorf("snapshot JSON missing %s: %s", key, out)
		}
	}
	// The registry serializes keyed by node_id, not as an array.
	if !strings.Contains(string(out), `"nodes":{"n1":`) {
		t.Errorf("nodes not keyed by node_id: %s", out)
	}
}
