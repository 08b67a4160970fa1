// Copyright 2025 Cubedeck
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
	"errors"
	"log"
	"os"
	"strings"
	"testing"
)

func TestLogEmitsStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	l := New("test-component")
	l.Info("TestCaller", "req-123", "something happened", map[string]interface{}{
		"datasource": "sales",
	})

	line := buf.String()
	start := strings.Index(line, "{")
	if start == -1 {
		t.Fatalf("no JSON payload in log line: %s", line)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line[start:]), &entry); err != nil {
		t.Fatalf("log line is not valid JSON: %v", err)
	}

	if entry["level"] != "INFO" {
		t.Errorf("expected level INFO, got %v", entry["level"])
	}
	if entry["component"] != "test-component" {
		t.Errorf("expected component test-component, got %v", entry["component"])
	}
	if entry["message"] != "something happened" {
		t.Errorf("expected message, got %v", entry["message"])
	}
	if entry["request_id"] != "req-123" {
		t.Errorf("expected request_id req-123, got %v", entry["request_id"])
	}
}

func TestErrorWithCodeCarriesStatusAndError(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	l := New("test")
	l.ErrorWithCode("admin", "req-9", "lookup failed", 500, errors.New("boom"), nil)

	line := buf.String()
	start := strings.Index(line, "{")
	if start == -1 {
		t.Fatalf("no JSON payload in log line: %s", line)
	}
	var entry struct {
		Level  string                 `json:"level"`
		Fields map[string]interface{} `json:"fields"`
	}
	if err := json.Unmarshal([]byte(line[start:]), &entry); err != nil {
		t.Fatalf("log line is not valid JSON: %v", err)
	}
	if entry.Level != "ERROR" {
		t.Errorf("expected level ERROR, got %v", entry.Level)
	}
	if entry.Fields["status_code"] != float64(500) {
		t.Errorf("expected status_code 500, got %v", entry.Fields["status_code"])
	}
	if entry.Fields["error"] != "boom" {
		t.Errorf("expected error field boom, got %v", entry.Fields["error"])
	}
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	l := New("test")
	l.Warn("", "", "warned", nil)
	l.Error("", "", "errored", nil)
	l.Debug("", "", "debugged", nil)

	out := buf.String()
	for _, level := range []string{"WARN", "ERROR", "DEBUG"} {
		if !strings.Contains(out, level) {
			t.Errorf("expected a %s entry in output", level)
		}
	}
}
