// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

// Package detection evaluates sensor readings against fixed
// environmental safety thresholds and escalates the resulting alerts.
package detection

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fieldsense/fieldsense/internal/models"
)

// Air and water safety thresholds. PM2.5 bounds follow the EPA AQI
// breakpoints, CO the 8-hour exposure limit, pH and turbidity standard
// drinking water guidance.
const (
	PM25WarningLimit  = 35.0
	PM25CriticalLimit = 75.0

	COCriticalLimit = 9.0

	PHSafeMin     = 6.5
	PHSafeMax     = 8.5
	PHCriticalMin = 4.0
	PHCriticalMax = 10.0

	TurbidityWarningLimit  = 5.0
	TurbidityCriticalLimit = 50.0
)

// Detect evaluates one reading against every threshold rule and
// returns the alerts it violates. Evaluation order is fixed: PM2.5,
// CO, pH, turbidity. A reading can violate several rules at once and
// produces one alert per violated rule.
func Detect(reading *models.SensorReading) []*models.Alert {
	var alerts []*models.Alert

	if reading.HasAir() {
		if a := checkPM25(reading); a != nil {
			alerts = append(alerts, a)
		}
		if a := checkCO(reading); a != nil {
			alerts = append(alerts, a)
		}
	}
	if reading.HasWater() {
		if a := checkPH(reading); a != nil {
			alerts = append(alerts, a)
		}
		if a := checkTurbidity(reading); a != nil {
			alerts = append(alerts, a)
		}
	}

	return alerts
}

func checkPM25(reading *models.SensorReading) *models.Alert {
	value := reading.Air.PM25

	switch {
	case value > PM25CriticalLimit:
		// The reported threshold is the rule's warning bound in every
		// branch; severity alone encodes how far past it the value is.
		return newAlert(reading, models.SourceAir, "pm2_5", value,
			fmt.Sprintf("%g", PM25WarningLimit), models.SeverityCritical,
			fmt.Sprintf("High PM2.5 detected: %.1f μg/m³", value))
	case value > PM25WarningLimit:
		return newAlert(reading, models.SourceAir, "pm2_5", value,
			fmt.Sprintf("%g", PM25WarningLimit), models.SeverityWarning,
			fmt.Sprintf("High PM2.5 detected: %.1f μg/m³", value))
	default:
		return nil
	}
}

func checkCO(reading *models.SensorReading) *models.Alert {
	value := reading.Air.CO
	if value <= COCriticalLimit {
		return nil
	}
	return newAlert(reading, models.SourceAir, "co", value,
		fmt.Sprintf("%g", COCriticalLimit), models.SeverityCritical,
		fmt.Sprintf("High Carbon Monoxide: %.1f ppm", value))
}

func checkPH(reading *models.SensorReading) *models.Alert {
	value := reading.Water.PH
	// Zero means the probe did not report; a true pH of 0 does not
	// occur in surface water.
	if value == 0 {
		return nil
	}

	switch {
	case value < PHCriticalMin || value > PHCriticalMax:
		return newAlert(reading, models.SourceWater, "ph", value,
			fmt.Sprintf("%g-%g", PHSafeMin, PHSafeMax), models.SeverityCritical,
			fmt.Sprintf("Unsafe pH level: %.1f", value))
	case value < PHSafeMin || value > PHSafeMax:
		return newAlert(reading, models.SourceWater, "ph", value,
			fmt.Sprintf("%g-%g", PHSafeMin, PHSafeMax), models.SeverityWarning,
			fmt.Sprintf("Unsafe pH level: %.1f", value))
	default:
		return nil
	}
}

func checkTurbidity(reading *models.SensorReading) *models.Alert {
	value := reading.Water.Turbidity

	switch {
	case value > TurbidityCriticalLimit:
		return newAlert(reading, models.SourceWater, "turbidity", value,
			fmt.Sprintf("%g", TurbidityWarningLimit), models.SeverityCritical,
			fmt.Sprintf("High turbidity: %.1f NTU", value))
	case value > TurbidityWarningLimit:
		return newAlert(reading, models.SourceWater, "turbidity", value,
			fmt.Sprintf("%g", TurbidityWarningLimit), models.SeverityWarning,
			fmt.Sprintf("High turbidity: %.1f NTU", value))
	default:
		return nil
	}
}

func newAlert(reading *models.SensorReading, source, parameter string, value float64, threshold, severity, message string) *models.Alert {
	ts := reading.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return &models.Alert{
		ID:        uuid.New().String(),
		NodeID:    reading.NodeID,
		Category:  models.CategoryRuleThreshold,
		Source:    source,
		Parameter: parameter,
		Value:     value,
		Threshold: threshold,
		Severity:  severity,
		Message:   message,
		Location:  reading.Location,
		Timestamp: ts,
	}
}
