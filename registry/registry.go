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

package registry

import (
	"context"
	"errors"
	"log"
	"os"
	"sort"
	"sync"
)

// ErrNotFound is returned by Get when no descriptor exists for an id.
var ErrNotFound = errors.New("registry: datasource not found")

// ServerInfo is the persisted descriptor for one olap4j datasource
// connection. The id doubles as the file-store folder name for the
// connection's schema files.
type ServerInfo struct {
	Name       string            `json:"name"`
	ClassName  string            `json:"className"`
	URL        string            `json:"url"`
	User       string            `json:"user,omitempty"`
	Password   string            `json:"-"` // write-only, never serialized
	Properties map[string]string `json:"properties,omitempty"`
}

// Registry is the durable mapping of connection id to descriptor.
//
// Add is create-or-replace: registering an existing id overwrites the stored
// descriptor. Delete is idempotent: deleting an unknown id is not an error.
type Registry interface {
	ListIDs(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id string) (*ServerInfo, error)
	Add(ctx context.Context, info *ServerInfo) error
	Delete(ctx context.Context, id string) error
}

// InMemory is a Registry backed by a process-local map.
// Thread-safe for concurrent access.
type InMemory struct {
	servers map[string]*ServerInfo
	mu      sync.RWMutex
	logger  *log.Logger
}

// NewInMemory creates a new in-memory registry.
func NewInMemory() *InMemory {
	return &InMemory{
		servers: make(map[string]*ServerInfo),
		logger:  log.New(os.Stdout, "[OLAP_REGISTRY] ", log.LstdFlags),
	}
}

// ListIDs returns all registered ids in lexical order.
func (r *InMemory) ListIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.servers))
	for id := range r.servers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Get retrieves a descriptor by id.
func (r *InMemory) Get(_ context.Context, id string) (*ServerInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, exists := r.servers[id]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *info
	return &copied, nil
}

// Add registers a descriptor, replacing any existing entry with the same id.
func (r *InMemory) Add(_ context.Context, info *ServerInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *info
	r.servers[info.Name] = &copied
	r.logger.Printf("Registered datasource '%s' (driver: %s)", info.Name, info.ClassName)
	return nil
}

// Delete removes a descriptor. Unknown ids are a no-op.
func (r *InMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.servers[id]; exists {
		delete(r.servers, id)
		r.logger.Printf("Removed datasource '%s'", id)
	}
	return nil
}
