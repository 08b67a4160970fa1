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

package olapadmin

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"cubedeck/platform/shared/logger"
)

func entry(name, mimeType, content string) BundleEntry {
	return BundleEntry{
		Name:     name,
		MimeType: mimeType,
		Content:  io.NopCloser(strings.NewReader(content)),
	}
}

// brokenReader fails on the first read, simulating a stream that dies
// mid-copy.
type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("stream broke") }
func (brokenReader) Close() error             { return nil }

func TestWriteDownloadSingle(t *testing.T) {
	rec := httptest.NewRecorder()
	log := logger.New("test")

	err := writeDownload(rec, log, "foo", []BundleEntry{
		entry("foo.mondrian.xml", "text/xml", "<Schema/>"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/xml" {
		t.Errorf("expected text/xml, got %s", ct)
	}
	if rec.Body.String() != "<Schema/>" {
		t.Errorf("body mismatch: %s", rec.Body.String())
	}
}

func TestWriteDownloadSingleMimeFallback(t *testing.T) {
	rec := httptest.NewRecorder()
	log := logger.New("test")

	err := writeDownload(rec, log, "foo", []BundleEntry{
		entry("notes", "", "plain content"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/plain" {
		t.Errorf("expected text/plain fallback, got %s", ct)
	}
}

func TestWriteDownloadEmpty(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := writeDownload(rec, logger.New("test"), "foo", nil); err == nil {
		t.Fatal("expected error for empty entry set")
	}
}

func TestWriteDownloadZipSkipsBrokenEntry(t *testing.T) {
	rec := httptest.NewRecorder()
	log := logger.New("test")

	entries := []BundleEntry{
		entry("good.xml", "text/xml", "<a/>"),
		{Name: "broken.bin", MimeType: "application/octet-stream", Content: brokenReader{}},
		entry("also-good.txt", "text/plain", "ok"),
	}

	if err := writeDownload(rec, log, "bar", entries); err != nil {
		t.Fatalf("a broken entry must not fail the bundle: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("response is not a valid zip: %v", err)
	}

	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	if !names["good.xml"] || !names["also-good.txt"] {
		t.Errorf("intact entries must survive, got %v", names)
	}
	if names["broken.bin"] {
		t.Error("broken entry must be skipped")
	}
}

func TestBundleFileName(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{id: "sales", want: "sales.zip"},
		{id: "model.xmi", want: "model.zip"},
		{id: "a.xmi.backup", want: "a.xmi.backup.zip"},
	}
	for _, tt := range tests {
		if got := bundleFileName(tt.id); got != tt.want {
			t.Errorf("bundleFileName(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}
