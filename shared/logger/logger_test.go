// Copyright 2026 RateGate
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name           string
		component      string
		instanceID     string
		expectedInstID string
	}{
		{
			name:           "with instance ID set",
			component:      "gate",
			instanceID:     "instance-123",
			expectedInstID: "instance-123",
		},
		{
			name:           "without instance ID",
			component:      "gate",
			instanceID:     "",
			expectedInstID: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.instanceID != "" {
				t.Setenv("INSTANCE_ID", tt.instanceID)
			} else {
				if err := os.Unsetenv("INSTANCE_ID"); err != nil {
					t.Fatalf("Failed to unset INSTANCE_ID: %v", err)
				}
			}

			l := New(tt.component)

			if l.Component != tt.component {
				t.Errorf("Expected component %s, got %s", tt.component, l.Component)
			}
			if l.InstanceID != tt.expectedInstID {
				t.Errorf("Expected instance ID %s, got %s", tt.expectedInstID, l.InstanceID)
			}
			if l.Container == "" {
				t.Error("Expected container to be set from hostname")
			}
		})
	}
}

// captureOutput redirects the standard logger while fn runs and returns
// what was written.
func captureOutput(fn func()) string {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)
	flags := log.Flags()
	log.SetFlags(0)
	defer log.SetFlags(flags)

	fn()
	return buf.String()
}

func TestLogEntryShape(t *testing.T) {
	l := &Logger{Component: "gate", InstanceID: "i-1", Container: "c-1", minLevel: DEBUG}

	out := captureOutput(func() {
		l.Info("tenant-a", "req-1", "decision made", map[string]interface{}{"allowed": true})
	})

	var entry Entry
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &entry); err != nil {
		t.Fatalf("log line is not valid JSON: %v\n%s", err, out)
	}

	if entry.Level != INFO {
		t.Errorf("Expected level INFO, got %s", entry.Level)
	}
	if entry.TenantID != "tenant-a" || entry.RequestID != "req-1" {
		t.Errorf("Unexpected identity fields: %+v", entry)
	}
	if entry.Message != "decision made" {
		t.Errorf("Unexpected message: %s", entry.Message)
	}
	if v, ok := entry.Fields["allowed"]; !ok || v != true {
		t.Errorf("Expected allowed=true field, got %v", entry.Fields)
	}
	if entry.Timestamp == "" {
		t.Error("Expected timestamp to be set")
	}
}

func TestLevelThreshold(t *testing.T) {
	l := &Logger{Component: "gate", InstanceID: "i-1", Container: "c-1", minLevel: WARN}

	out := captureOutput(func() {
		l.Debug("", "", "should be dropped", nil)
		l.Info("", "", "should be dropped too", nil)
		l.Error("", "", "should appear", nil)
	})

	if strings.Contains(out, "should be dropped") {
		t.Errorf("Entries below threshold were emitted:\n%s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("Entry above threshold was not emitted:\n%s", out)
	}
}

func TestInfoWithDuration(t *testing.T) {
	l := &Logger{Component: "gate", InstanceID: "i-1", Container: "c-1", minLevel: DEBUG}

	out := captureOutput(func() {
		l.InfoWithDuration("", "req-9", "check completed", 12.5, nil)
	})

	var entry Entry
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &entry); err != nil {
		t.Fatalf("log line is not valid JSON: %v", err)
	}
	if entry.Fields["duration_ms"] != 12.5 {
		t.Errorf("Expected duration_ms=12.5, got %v", entry.Fields["duration_ms"])
	}
}
