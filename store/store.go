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

package store

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when a file or folder does not exist in the store.
var ErrNotFound = errors.New("store: file not found")

// FileInfo describes a single entry in the hierarchical store.
type FileInfo struct {
	Name     string    `json:"name"`             // Base name of the entry
	Path     string    `json:"path"`             // Full path from the store root
	Folder   bool      `json:"folder"`           // True for folders
	MimeType string    `json:"mime_type"`        // Recorded content type, empty for folders
	Size     int64     `json:"size"`             // Size in bytes, 0 for folders
	ModTime  time.Time `json:"mod_time"`
}

// Store is the hierarchical file repository backing the datasource admin API.
// Paths use forward slashes regardless of backend. Implementations must be
// safe for concurrent use; no locking happens above this interface.
type Store interface {
	// GetFile returns metadata for the entry at path, or ErrNotFound.
	GetFile(ctx context.Context, path string) (*FileInfo, error)

	// GetChildren lists the direct children of the folder at path.
	GetChildren(ctx context.Context, path string) ([]FileInfo, error)

	// CreateFolder creates a folder under parent. Creating a folder that
	// already exists is not an error.
	CreateFolder(ctx context.Context, parent, name string) (*FileInfo, error)

	// CreateFile writes a new file under folder, recording mimeType as its
	// content type.
	CreateFile(ctx context.Context, folder, name, mimeType string, data io.Reader) (*FileInfo, error)

	// UpdateFile overwrites the file at path in place.
	UpdateFile(ctx context.Context, path, mimeType string, data io.Reader) (*FileInfo, error)

	// Open returns a readable stream over the file at path.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// StoreError wraps a backend failure with the store name and operation that
// produced it.
type StoreError struct {
	Store     string
	Operation string
	Message   string
	Cause     error
}

func (e *StoreError) Error() string {
	if e.Cause != nil {
		return e.Store + "." + e.Operation + ": " + e.Message + " (cause: " + e.Cause.Error() + ")"
	}
	return e.Store + "." + e.Operation + ": " + e.Message
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// NewStoreError creates a new StoreError.
func NewStoreError(store, operation, message string, cause error) *StoreError {
	return &StoreError{
		Store:     store,
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}
