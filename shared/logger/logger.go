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
	"encoding/json"
	"log"
	"os"
	"time"
)

// LogLevel represents the severity of a log entry
type LogLevel string

const (
	DEBUG LogLevel = "DEBUG"
	INFO  LogLevel = "INFO"
	WARN  LogLevel = "WARN"
	ERROR LogLevel = "ERROR"
)

// Logger emits one JSON line per entry for a single admin component.
// Instance id and container name are resolved once at construction.
type Logger struct {
	Component  string
	InstanceID string
	Container  string
}

// LogEntry is one structured log line. Caller and RequestID tie admin API
// operations back to the authenticated caller that triggered them.
type LogEntry struct {
	Timestamp  string                 `json:"timestamp"`
	Level      LogLevel               `json:"level"`
	Component  string                 `json:"component"`
	InstanceID string                 `json:"instance_id"`
	Container  string                 `json:"container"`
	Caller     string                 `json:"caller,omitempty"`
	RequestID  string                 `json:"request_id,omitempty"`
	Message    string                 `json:"message"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// New creates a Logger for the named component. Instance identity comes
// from INSTANCE_ID and the container hostname, "unknown" when absent.
func New(component string) *Logger {
	instanceID := os.Getenv("INSTANCE_ID")
	if instanceID == "" {
		instanceID = "unknown"
	}
	container, err := os.Hostname()
	if err != nil {
		container = "unknown"
	}
	return &Logger{Component: component, InstanceID: instanceID, Container: container}
}

func (l *Logger) emit(level LogLevel, caller, requestID, message string, fields map[string]interface{}) {
	entry := LogEntry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Level:      level,
		Component:  l.Component,
		InstanceID: l.InstanceID,
		Container:  l.Container,
		Caller:     caller,
		RequestID:  requestID,
		Message:    message,
		Fields:     fields,
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		log.Printf("ERROR: unloggable entry %q: %v", message, err)
		return
	}
	log.Println(string(payload))
}

// Info logs an informational message
func (l *Logger) Info(caller, requestID, message string, fields map[string]interface{}) {
	l.emit(INFO, caller, requestID, message, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(caller, requestID, message string, fields map[string]interface{}) {
	l.emit(WARN, caller, requestID, message, fields)
}

// Error logs an error message
func (l *Logger) Error(caller, requestID, message string, fields map[string]interface{}) {
	l.emit(ERROR, caller, requestID, message, fields)
}

// Debug logs a debug message
func (l *Logger) Debug(caller, requestID, message string, fields map[string]interface{}) {
	l.emit(DEBUG, caller, requestID, message, fields)
}

// ErrorWithCode logs an error together with the HTTP status code the API
// returned for it.
func (l *Logger) ErrorWithCode(caller, requestID, message string, statusCode int, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["status_code"] = statusCode
	if err != nil {
		fields["error"] = err.Error()
	}
	l.emit(ERROR, caller, requestID, message, fields)
}
