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
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"cubedeck/platform/shared/logger"
)

// BundleEntry is one downloadable file of a connection folder: a display
// name, the recorded content type, and an open stream over the content.
type BundleEntry struct {
	Name     string
	MimeType string
	Content  io.ReadCloser
}

func closeEntries(entries []BundleEntry) {
	for _, e := range entries {
		e.Content.Close()
	}
}

// writeDownload serves the files of one connection as an HTTP response. A
// single file streams directly under its own name and content type; multiple
// files are packed into a zip archive. The caller retains no responsibility
// for closing the entries.
func writeDownload(w http.ResponseWriter, log *logger.Logger, id string, entries []BundleEntry) error {
	defer closeEntries(entries)

	switch len(entries) {
	case 0:
		return fmt.Errorf("no files found for '%s'", id)
	case 1:
		return writeSingle(w, entries[0])
	default:
		return writeZip(w, log, id, entries)
	}
}

func writeSingle(w http.ResponseWriter, entry BundleEntry) error {
	mimeType := entry.MimeType
	if mimeType == "" {
		mimeType = "text/plain"
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", entry.Name))
	_, err := io.Copy(w, entry.Content)
	return err
}

// writeZip stages the archive in a temporary file so a mid-stream packing
// failure cannot corrupt a response that already carries success headers.
// An entry that fails to pack is skipped, counted, and logged; the archive
// ships with the remaining entries.
func writeZip(w http.ResponseWriter, log *logger.Logger, id string, entries []BundleEntry) error {
	tmp, err := os.CreateTemp("", "olap4j-bundle-")
	if err != nil {
		return fmt.Errorf("failed to create archive staging file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	zw := zip.NewWriter(tmp)
	packed := 0
	for _, entry := range entries {
		if err := packEntry(zw, entry); err != nil {
			bundleEntriesSkipped.Inc()
			log.Warn("", "", "Skipping unpackable bundle entry", map[string]interface{}{
				"datasource": id,
				"entry":      entry.Name,
				"error":      err.Error(),
			})
			continue
		}
		packed++
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	if packed == 0 {
		return fmt.Errorf("no packable files for '%s'", id)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind archive: %w", err)
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", bundleFileName(id)))
	_, err = io.Copy(w, tmp)
	return err
}

// packEntry reads the whole stream before creating the archive header so a
// stream that dies mid-read leaves no partial entry behind.
func packEntry(zw *zip.Writer, entry BundleEntry) error {
	data, err := io.ReadAll(entry.Content)
	if err != nil {
		return err
	}
	fw, err := zw.Create(entry.Name)
	if err != nil {
		return err
	}
	_, err = fw.Write(data)
	return err
}

// bundleFileName derives the archive name from the connection id, dropping a
// trailing ".xmi" left over from model-backed datasource names.
func bundleFileName(id string) string {
	return strings.TrimSuffix(id, ".xmi") + ".zip"
}
