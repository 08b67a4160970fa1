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

// Package olapadmin implements the OLAP datasource administration API.
//
// The service manages olap4j connection descriptors and their stored schema
// documents. It exposes five operations under /data-access/api/olap4j:
//
//   - GET  /ids                        list registered connection ids
//   - GET  /{id}/getOlap4jServerInfo   descriptor details, password excluded
//   - POST /{id}/remove                delete a descriptor (idempotent)
//   - POST /postSchema                 register a connection and store its schema
//   - GET  /{id}/download              stream stored files, zipped when several
//
// Descriptors live in a pluggable registry (package registry) and schema
// documents in a pluggable file store (package store). Mutating operations
// require a JWT carrying the repository.read, repository.create, and
// security.administer permissions.
package olapadmin
