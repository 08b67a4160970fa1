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

// Package gcs provides the Google Cloud Storage backend of the file store.
// Objects are addressed under a configurable prefix in one bucket; folders
// are virtual, derived from the delimiter listing.
package gcs

import (
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strings"

	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"cubedeck/platform/store"
)

// Options configures the GCS store. With no explicit credentials the client
// falls back to Application Default Credentials.
type Options struct {
	Bucket          string
	Prefix          string
	CredentialsFile string
	CredentialsJSON string
	Endpoint        string
}

// Store is a file store backed by one GCS bucket.
type Store struct {
	client *gcstorage.Client
	bucket string
	prefix string
}

// New creates a GCS store and verifies the bucket is reachable.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		return nil, store.NewStoreError("gcs", "New", "bucket is required", nil)
	}

	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	} else if opts.CredentialsJSON != "" {
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(opts.CredentialsJSON)))
	}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	client, err := gcstorage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, store.NewStoreError("gcs", "New", "failed to create GCS client", err)
	}

	s := &Store{
		client: client,
		bucket: opts.Bucket,
		prefix: strings.Trim(opts.Prefix, "/"),
	}

	if _, err := s.client.Bucket(s.bucket).Attrs(ctx); err != nil {
		client.Close()
		return nil, store.NewStoreError("gcs", "New", "failed to verify bucket", err)
	}
	return s, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) objectName(p string) string {
	p = strings.Trim(p, "/")
	if s.prefix == "" {
		return p
	}
	return s.prefix + "/" + p
}

func (s *Store) storePath(name string) string {
	name = strings.TrimSuffix(name, "/")
	if s.prefix != "" {
		name = strings.TrimPrefix(name, s.prefix+"/")
	}
	return "/" + name
}

func (s *Store) GetFile(ctx context.Context, p string) (*store.FileInfo, error) {
	name := s.objectName(p)

	attrs, err := s.client.Bucket(s.bucket).Object(name).Attrs(ctx)
	if err == nil {
		return &store.FileInfo{
			Name:     path.Base(p),
			Path:     "/" + strings.Trim(p, "/"),
			MimeType: attrs.ContentType,
			Size:     attrs.Size,
			ModTime:  attrs.Updated,
		}, nil
	}
	if !errors.Is(err, gcstorage.ErrObjectNotExist) {
		return nil, store.NewStoreError("gcs", "GetFile", "failed to read object attrs", err)
	}

	// A folder exists when anything lives under name/.
	it := s.client.Bucket(s.bucket).Objects(ctx, &gcstorage.Query{
		Prefix: name + "/",
	})
	_, err = it.Next()
	if err == iterator.Done {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, store.NewStoreError("gcs", "GetFile", "failed to probe folder", err)
	}
	return &store.FileInfo{
		Name:   path.Base(p),
		Path:   "/" + strings.Trim(p, "/"),
		Folder: true,
	}, nil
}

func (s *Store) GetChildren(ctx context.Context, p string) ([]store.FileInfo, error) {
	name := s.objectName(p)
	it := s.client.Bucket(s.bucket).Objects(ctx, &gcstorage.Query{
		Prefix:    name + "/",
		Delimiter: "/",
	})

	var children []store.FileInfo
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, store.NewStoreError("gcs", "GetChildren", "failed to list objects", err)
		}
		if attrs.Prefix != "" {
			childName := strings.TrimSuffix(attrs.Prefix, "/")
			children = append(children, store.FileInfo{
				Name:   path.Base(childName),
				Path:   s.storePath(childName),
				Folder: true,
			})
			continue
		}
		if strings.HasSuffix(attrs.Name, "/") {
			continue // folder marker
		}
		children = append(children, store.FileInfo{
			Name:     path.Base(attrs.Name),
			Path:     s.storePath(attrs.Name),
			MimeType: attrs.ContentType,
			Size:     attrs.Size,
			ModTime:  attrs.Updated,
		})
	}

	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	return children, nil
}

// CreateFolder is a logical no-op: GCS folders are virtual and come into
// being with the first object written under them.
func (s *Store) CreateFolder(_ context.Context, parent, name string) (*store.FileInfo, error) {
	folderPath := strings.TrimSuffix(parent, "/") + "/" + name
	return &store.FileInfo{
		Name:   name,
		Path:   "/" + strings.Trim(folderPath, "/"),
		Folder: true,
	}, nil
}

func (s *Store) CreateFile(ctx context.Context, folder, name, mimeType string, data io.Reader) (*store.FileInfo, error) {
	return s.write(ctx, strings.TrimSuffix(folder, "/")+"/"+name, mimeType, data)
}

func (s *Store) UpdateFile(ctx context.Context, p, mimeType string, data io.Reader) (*store.FileInfo, error) {
	return s.write(ctx, p, mimeType, data)
}

func (s *Store) write(ctx context.Context, p, mimeType string, data io.Reader) (*store.FileInfo, error) {
	w := s.client.Bucket(s.bucket).Object(s.objectName(p)).NewWriter(ctx)
	w.ContentType = mimeType
	if _, err := io.Copy(w, data); err != nil {
		w.Close()
		return nil, store.NewStoreError("gcs", "Write", "failed to write object", err)
	}
	if err := w.Close(); err != nil {
		return nil, store.NewStoreError("gcs", "Write", "failed to finalize object", err)
	}
	return s.GetFile(ctx, p)
}

func (s *Store) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.objectName(p)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcstorage.ErrObjectNotExist) {
			return nil, store.ErrNotFound
		}
		return nil, store.NewStoreError("gcs", "Open", "failed to open object", err)
	}
	return r, nil
}

var _ store.Store = (*Store)(nil)
