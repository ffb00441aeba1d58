// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package validation

import (
	"strings"
	"testing"
)

type probeStruct struct {
	NodeID string `validate:"required"`
	Level  string `validate:"oneof=debug info warn error"`
	Port   int    `validate:"gte=1,lte=65535"`
}

func TestValidateStructPasses(t *testing.T) {
	if err := ValidateStruct(&probeStruct{NodeID: "node-1", Level: "info", Port: 8080}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateStructCollectsFailures(t *testing.T) {
	err := ValidateStruct(&probeStruct{Level: "loud", Port: 0})
	if err == nil {
		t.Fatal("expected validation failures")
	}
	if len(err.Fields()) != 3 {
		t.Fatalf("expected 3 failures, got %d: %v", len(err.Fields()), err)
	}

	msg := err.Error()
	for _, want := range []string{"NodeID is required", "Level must be one of", "Port must be greater than or equal to 1"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestValidatorIsSingleton(t *testing.T) {
	if Validator() != Validator() {
		t.Error("expected the same validator instance")
	}
}
