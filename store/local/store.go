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

// Package local implements the store.Store interface on a local filesystem
// tree. Content types are recorded in a ".mimetypes" sidecar file per folder
// so that downloads can reproduce the MIME type a file was uploaded with.
package local

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"cubedeck/platform/store"
)

const mimeIndexName = ".mimetypes"

// Store is a filesystem-backed file store rooted at a single directory.
type Store struct {
	root string
	mu   sync.Mutex // serializes sidecar index rewrites
}

// New creates a local store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, store.NewStoreError("local", "New", "failed to create root", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) resolve(path string) string {
	clean := filepath.Clean("/" + strings.TrimPrefix(path, "/"))
	return filepath.Join(s.root, filepath.FromSlash(clean))
}

// GetFile returns metadata for the entry at path, or store.ErrNotFound.
func (s *Store) GetFile(_ context.Context, path string) (*store.FileInfo, error) {
	fi, err := os.Stat(s.resolve(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, store.ErrNotFound
		}
		return nil, store.NewStoreError("local", "GetFile", "stat failed", err)
	}
	info := s.fileInfo(path, fi)
	return &info, nil
}

// GetChildren lists the direct children of the folder at path. The sidecar
// MIME index is never reported as a child.
func (s *Store) GetChildren(_ context.Context, path string) ([]store.FileInfo, error) {
	entries, err := os.ReadDir(s.resolve(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, store.ErrNotFound
		}
		return nil, store.NewStoreError("local", "GetChildren", "read dir failed", err)
	}

	children := make([]store.FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.Name() == mimeIndexName {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			return nil, store.NewStoreError("local", "GetChildren", "stat failed", err)
		}
		childPath := joinPath(path, entry.Name())
		children = append(children, s.fileInfo(childPath, fi))
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	return children, nil
}

// CreateFolder creates a folder under parent. Existing folders are returned
// as-is.
func (s *Store) CreateFolder(ctx context.Context, parent, name string) (*store.FileInfo, error) {
	path := joinPath(parent, name)
	if err := os.MkdirAll(s.resolve(path), 0o755); err != nil {
		return nil, store.NewStoreError("local", "CreateFolder", "mkdir failed", err)
	}
	return s.GetFile(ctx, path)
}

// CreateFile writes a new file under folder. The write goes through a staging
// file in the same directory and is moved into place with a rename, so
// readers never observe a partially written file.
func (s *Store) CreateFile(ctx context.Context, folder, name, mimeType string, data io.Reader) (*store.FileInfo, error) {
	return s.write(ctx, joinPath(folder, name), mimeType, data)
}

// UpdateFile overwrites the file at path in place.
func (s *Store) UpdateFile(ctx context.Context, path, mimeType string, data io.Reader) (*store.FileInfo, error) {
	return s.write(ctx, path, mimeType, data)
}

func (s *Store) write(ctx context.Context, path, mimeType string, data io.Reader) (*store.FileInfo, error) {
	destination := s.resolve(path)
	dir := filepath.Dir(destination)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, store.NewStoreError("local", "CreateFile", "mkdir failed", err)
	}

	tmp, err := os.CreateTemp(dir, "pending-")
	if err != nil {
		return nil, store.NewStoreError("local", "CreateFile", "staging file failed", err)
	}
	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, store.NewStoreError("local", "CreateFile", "copy failed", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, store.NewStoreError("local", "CreateFile", "close failed", err)
	}
	if err := os.Rename(tmp.Name(), destination); err != nil {
		os.Remove(tmp.Name())
		return nil, store.NewStoreError("local", "CreateFile", "rename failed", err)
	}

	if err := s.recordMimeType(path, mimeType); err != nil {
		return nil, err
	}
	return s.GetFile(ctx, path)
}

// Open returns a readable stream over the file at path.
func (s *Store) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(s.resolve(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, store.ErrNotFound
		}
		return nil, store.NewStoreError("local", "Open", "open failed", err)
	}
	return f, nil
}

func (s *Store) fileInfo(path string, fi os.FileInfo) store.FileInfo {
	info := store.FileInfo{
		Name:    fi.Name(),
		Path:    normalizePath(path),
		Folder:  fi.IsDir(),
		ModTime: fi.ModTime(),
	}
	if !fi.IsDir() {
		info.Size = fi.Size()
		info.MimeType = s.lookupMimeType(path)
	}
	if info.Name == "" || info.Name == "." || info.Name == string(filepath.Separator) {
		info.Name = "/"
	}
	return info
}

// recordMimeType stores the content type for one file in the folder's
// sidecar index.
func (s *Store) recordMimeType(path, mimeType string) error {
	if mimeType == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	indexPath := filepath.Join(filepath.Dir(s.resolve(path)), mimeIndexName)
	index := map[string]string{}
	if raw, err := os.ReadFile(indexPath); err == nil {
		_ = json.Unmarshal(raw, &index)
	}
	index[filepath.Base(path)] = mimeType

	raw, err := json.Marshal(index)
	if err != nil {
		return store.NewStoreError("local", "CreateFile", "encode mime index failed", err)
	}
	if err := os.WriteFile(indexPath, raw, 0o644); err != nil {
		return store.NewStoreError("local", "CreateFile", "write mime index failed", err)
	}
	return nil
}

func (s *Store) lookupMimeType(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	indexPath := filepath.Join(filepath.Dir(s.resolve(path)), mimeIndexName)
	raw, err := os.ReadFile(indexPath)
	if err != nil {
		return ""
	}
	index := map[string]string{}
	if err := json.Unmarshal(raw, &index); err != nil {
		return ""
	}
	return index[filepath.Base(path)]
}

func joinPath(parent, name string) string {
	parent = normalizePath(parent)
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

func normalizePath(path string) string {
	clean := strings.TrimSuffix("/"+strings.Trim(path, "/"), "/")
	if clean == "" {
		return "/"
	}
	return clean
}
