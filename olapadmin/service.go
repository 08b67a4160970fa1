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
	"context"
	"fmt"
	"io"
	"os"

	"cubedeck/platform/registry"
	"cubedeck/platform/shared/logger"
	"cubedeck/platform/store"
)

// olapServersFolder is the file-store folder holding one subfolder per
// registered connection id.
const olapServersFolder = "/etc/olap-servers"

// schemaFileName is the fixed name the uploaded schema document is stored
// under inside a connection's folder.
const schemaFileName = "schema.xml"

// metadataFileName is excluded from download bundles.
const metadataFileName = "metadata"

// ValidationError reports a missing required upload field. It maps to the
// dedicated missing-field status code at the API boundary.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return "missing required field '" + e.Field + "'"
}

// RegistryError wraps a descriptor registry failure.
type RegistryError struct {
	Operation string
	Cause     error
}

func (e *RegistryError) Error() string {
	return "registry." + e.Operation + ": " + e.Cause.Error()
}

func (e *RegistryError) Unwrap() error { return e.Cause }

// UploadRequest carries the fields of one postSchema call. Overwrite and
// Parameters are accepted for wire compatibility but not acted on: uploads
// always overwrite, and Parameters is not yet wired to the descriptor.
type UploadRequest struct {
	Name       string
	ClassName  string
	URL        string
	User       string
	Password   string
	Overwrite  string
	Parameters string
	Data       io.Reader
}

// Service implements datasource administration over a descriptor registry
// and a hierarchical file store. All collaborators are injected; the service
// holds no state of its own between requests.
type Service struct {
	registry registry.Registry
	store    store.Store
	log      *logger.Logger
}

// NewService creates a Service around the given registry and file store.
func NewService(reg registry.Registry, st store.Store) *Service {
	return &Service{
		registry: reg,
		store:    st,
		log:      logger.New("olap-admin"),
	}
}

// ListIDs returns all registered connection ids.
func (s *Service) ListIDs(ctx context.Context) ([]string, error) {
	ids, err := s.registry.ListIDs(ctx)
	if err != nil {
		return nil, &RegistryError{Operation: "ListIDs", Cause: err}
	}
	return ids, nil
}

// Info returns the descriptor for id with the password removed, or
// registry.ErrNotFound for an unknown id.
func (s *Service) Info(ctx context.Context, id string) (*registry.ServerInfo, error) {
	info, err := s.registry.Get(ctx, id)
	if err != nil {
		if err == registry.ErrNotFound {
			return nil, err
		}
		return nil, &RegistryError{Operation: "Get", Cause: err}
	}
	info.Password = ""
	return info, nil
}

// Remove deletes the descriptor for id from the registry. The connection's
// file-store folder is left in place: registry deletion does not cascade.
// Removing an unknown id is a no-op.
func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.registry.Delete(ctx, id); err != nil {
		return &RegistryError{Operation: "Delete", Cause: err}
	}
	return nil
}

// UploadSchema validates the request, registers the descriptor, and places
// the schema document in the connection's folder. The registry write and the
// store write are independent; a failure between them leaves a registered
// descriptor with no backing schema file, which callers must tolerate.
func (s *Service) UploadSchema(ctx context.Context, req *UploadRequest) error {
	switch {
	case req.Name == "":
		return &ValidationError{Field: "name"}
	case req.URL == "":
		return &ValidationError{Field: "url"}
	case req.ClassName == "":
		return &ValidationError{Field: "className"}
	case req.Data == nil:
		return &ValidationError{Field: "upload"}
	}

	// Parameters is parsed into an empty property set until the contract
	// grows a real format for it.
	props := map[string]string{}

	info := &registry.ServerInfo{
		Name:       req.Name,
		ClassName:  req.ClassName,
		URL:        req.URL,
		User:       req.User,
		Password:   req.Password,
		Properties: props,
	}
	if err := s.registry.Add(ctx, info); err != nil {
		return &RegistryError{Operation: "Add", Cause: err}
	}

	if err := s.placeSchema(ctx, req.Name, req.Data); err != nil {
		return err
	}

	s.log.Info("", "", "Schema uploaded", map[string]interface{}{
		"datasource": req.Name,
		"driver":     req.ClassName,
	})
	return nil
}

// placeSchema stages the uploaded stream to a temporary file and writes it
// into the store as <folder>/<id>/schema.xml, creating the folder chain if
// absent and overwriting the schema file in place if present.
func (s *Service) placeSchema(ctx context.Context, id string, data io.Reader) error {
	tmp, err := os.CreateTemp("", "olap4j-schema-")
	if err != nil {
		return store.NewStoreError("staging", "UploadSchema", "failed to create staging file", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name()) // best effort, not guaranteed under crash
	}()

	if _, err := io.Copy(tmp, data); err != nil {
		return store.NewStoreError("staging", "UploadSchema", "failed to stage upload", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return store.NewStoreError("staging", "UploadSchema", "failed to rewind staging file", err)
	}

	folder := olapServersFolder + "/" + id
	if _, err := s.store.GetFile(ctx, folder); err != nil {
		if err != store.ErrNotFound {
			return err
		}
		if _, err := s.store.CreateFolder(ctx, olapServersFolder, id); err != nil {
			return err
		}
	}

	schemaPath := folder + "/" + schemaFileName
	_, err = s.store.GetFile(ctx, schemaPath)
	switch {
	case err == store.ErrNotFound:
		_, err = s.store.CreateFile(ctx, folder, schemaFileName, "text/xml", tmp)
	case err == nil:
		_, err = s.store.UpdateFile(ctx, schemaPath, "text/xml", tmp)
	}
	return err
}

// SchemaFiles enumerates the files of a connection's folder and opens a
// stream per file, skipping the metadata sidecar. A failure enumerating the
// folder or opening any single file abandons the whole set: the download
// endpoint fails loud rather than returning partial results.
func (s *Service) SchemaFiles(ctx context.Context, id string) ([]BundleEntry, error) {
	folder := olapServersFolder + "/" + id
	children, err := s.store.GetChildren(ctx, folder)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate files for '%s': %w", id, err)
	}

	entries := make([]BundleEntry, 0, len(children))
	for _, child := range children {
		if child.Folder || child.Name == metadataFileName {
			continue
		}
		rc, err := s.store.Open(ctx, child.Path)
		if err != nil {
			closeEntries(entries)
			return nil, fmt.Errorf("failed to open '%s': %w", child.Path, err)
		}
		name := child.Name
		if name == schemaFileName {
			// Presentation rename only; the stored file keeps its name.
			name = id + ".mondrian.xml"
		}
		entries = append(entries, BundleEntry{
			Name:     name,
			MimeType: child.MimeType,
			Content:  rc,
		})
	}
	return entries, nil
}
