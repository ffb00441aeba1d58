// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package models

import (
	"time"
)

// SensorReading is a single telemetry sample published by a field node.
// A node reports air quality, water quality, or both in one message.
// Unknown fields in the wire payload are ignored so that firmware can
// evolve ahead of the server.
//
// Example payload:
//
//	{
//	  "node_id": "node-riverside-03",
//	  "timestamp": "2026-08-30T12:00:00Z",
//	  "air": {"pm2_5": 18.2, "co": 1.1, "temperature": 24.5},
//	  "water": {"ph": 7.2, "turbidity": 1.8},
//	  "location": {"lat": 45.52, "lng": -122.68},
//	  "battery": 87.5,
//	  "signal_strength": -71
//	}
type SensorReading struct {
	NodeID         string        `json:"node_id" validate:"required"`
	Timestamp      time.Time     `json:"timestamp"`
	Air            *AirMetrics   `json:"air,omitempty"`
	Water          *WaterMetrics `json:"water,omitempty"`
	Location       *Location     `json:"location,omitempty"`
	Battery        float64       `json:"battery,omitempty"`
	SignalStrength int           `json:"signal_strength,omitempty"`
}

// AirMetrics holds air quality measurements. Concentrations are reported
// in the units the sensors natively produce: particulates in ug/m3,
// gases in ppm or ppb, temperature in Celsius, humidity in percent.
type AirMetrics struct {
	PM25        float64 `json:"pm2_5,omitempty"`
	PM10        float64 `json:"pm10,omitempty"`
	NO2         float64 `json:"no2,omitempty"`
	CO          float64 `json:"co,omitempty"`
	O3          float64 `json:"o3,omitempty"`
	VOC         float64 `json:"voc,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	Humidity    float64 `json:"humidity,omitempty"`
}

// WaterMetrics holds water quality measurements: pH (unitless),
// turbidity in NTU, dissolved solids in ppm, temperature in Celsius.
type WaterMetrics struct {
	PH          float64 `json:"ph,omitempty"`
	Turbidity   float64 `json:"turbidity,omitempty"`
	TDS         float64 `json:"tds,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// HasAir reports whether the reading carries any air metrics.
func (r *SensorReading) HasAir() bool {
	return r.Air != nil
}

// HasWater reports whether the reading carries any water metrics.
func (r *SensorReading) HasWater() bool {
	return r.Water != nil
}
