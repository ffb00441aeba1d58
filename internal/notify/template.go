// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package notify

import (
	"html/template"
	"strings"
	"time"

	"github.com/fieldsense/fieldsense/internal/models"
)

const alertEmailTemplate = `<!DOCTYPE html>
<html>
<head>
<style>
  body { font-family: Arial, sans-serif; }
  .container { max-width: 600px; margin: 0 auto; }
  .header { background: #b33939; color: white; padding: 20px; text-align: center; }
  .alert-box { background: #f5f5f5; border-left: 5px solid #b33939; padding: 15px; margin: 15px 0; }
  .footer { text-align: center; padding: 20px; color: #666; font-size: 12px; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>FIELDSENSE ALERT</h1>
    <h2>{{.Alert.Severity}} Level Alert</h2>
  </div>
  <div class="alert-box">
    <h3>{{.Alert.Message}}</h3>
    <table>
      <tr><td><strong>Node:</strong></td><td>{{.Alert.NodeID}}</td></tr>
      <tr><td><strong>Category:</strong></td><td>{{.Alert.Category}}</td></tr>
      <tr><td><strong>Source:</strong></td><td>{{.SourceUpper}}</td></tr>
      <tr><td><strong>Parameter:</strong></td><td>{{.Alert.Parameter}}</td></tr>
      <tr><td><strong>Current Value:</strong></td><td>{{printf "%.2f" .Alert.Value}}</td></tr>
      <tr><td><strong>Threshold:</strong></td><td>{{.Alert.Threshold}}</td></tr>
      {{if .Alert.Location}}<tr><td><strong>Location:</strong></td><td>{{printf "%.4f, %.4f" .Alert.Location.Lat .Alert.Location.Lng}}</td></tr>{{end}}
      <tr><td><strong>Time:</strong></td><td>{{.Time}}</td></tr>
    </table>
  </div>
  <h3>Recommended Actions:</h3>
  <ul>
  {{range .Actions}}<li>{{.}}</li>
  {{end}}</ul>
  <div class="footer">
    <p>Fieldsense Environmental Telemetry</p>
    <p>This is an automated alert. Please do not reply to this email.</p>
  </div>
</div>
</body>
</html>`

var alertTmpl = template.Must(template.New("alert-email").Parse(alertEmailTemplate))

type alertEmailData struct {
	Alert       *models.Alert
	SourceUpper string
	Time        string
	Actions     []string
}

func renderAlertEmail(alert *models.Alert, _ *models.SensorReading) (string, error) {
	data := alertEmailData{
		Alert:       alert,
		SourceUpper: strings.ToUpper(alert.Source),
		Time:        alert.Timestamp.Format(time.RFC1123),
		Actions:     recommendedActions(alert),
	}

	var b strings.Builder
	if err := alertTmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// recommendedActions returns operator guidance for the violated
// parameter. Unknown parameters get generic monitoring advice.
func recommendedActions(alert *models.Alert) []string {
	switch {
	case alert.Source == models.SourceAir && alert.Parameter == "pm2_5":
		return []string{
			"Close windows and doors",
			"Use air purifiers if available",
			"Sensitive individuals should avoid outdoor activities",
			"Consider wearing N95 masks if going outside",
		}
	case alert.Source == models.SourceAir && alert.Parameter == "co":
		return []string{
			"Immediately ventilate the area",
			"Check for gas leaks",
			"If symptoms occur (headache, dizziness), seek fresh air immediately",
		}
	case alert.Source == models.SourceWater && alert.Parameter == "ph":
		return []string{
			"Do not use for drinking until tested",
			"Contact water treatment authorities",
		}
	case alert.Source == models.SourceWater && alert.Parameter == "turbidity":
		return []string{
			"Boil water before drinking",
			"Use water filters",
		}
	default:
		return []string{
			"Monitor the situation",
			"Check dashboard for updates",
			"Contact system administrator if needed",
		}
	}
}
