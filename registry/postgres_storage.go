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
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
)

// PostgreSQLStorage implements Registry on a PostgreSQL database.
type PostgreSQLStorage struct {
	db     *sql.DB
	logger *log.Logger
}

// NewPostgreSQLStorage opens a PostgreSQL-backed registry.
// Connection attempts are retried with backoff so the service can start
// before its database finishes booting.
func NewPostgreSQLStorage(dbURL string) (*PostgreSQLStorage, error) {
	maxRetries := 5
	var db *sql.DB
	var err error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		db, err = sql.Open("postgres", dbURL)
		if err == nil {
			err = db.Ping()
			if err == nil {
				break
			}
		}
		if attempt < maxRetries {
			backoff := time.Duration(attempt*2) * time.Second
			log.Printf("[OLAP_REGISTRY] Database connection failed (attempt %d/%d): %v, retrying in %v",
				attempt, maxRetries, err, backoff)
			time.Sleep(backoff)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	storage := &PostgreSQLStorage{
		db:     db,
		logger: log.New(log.Writer(), "[OLAP_REGISTRY] ", log.LstdFlags),
	}
	if err := storage.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	storage.logger.Println("PostgreSQL datasource registry initialized")
	return storage, nil
}

// NewPostgreSQLStorageWithDB wraps an existing database handle. Used by tests.
func NewPostgreSQLStorageWithDB(db *sql.DB) *PostgreSQLStorage {
	return &PostgreSQLStorage{
		db:     db,
		logger: log.New(log.Writer(), "[OLAP_REGISTRY] ", log.LstdFlags),
	}
}

// initSchema creates the datasources table if it doesn't exist.
func (s *PostgreSQLStorage) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS olap4j_datasources (
		id VARCHAR(255) PRIMARY KEY,
		class_name VARCHAR(255) NOT NULL,
		url TEXT NOT NULL,
		username VARCHAR(255),
		password VARCHAR(255),
		properties JSONB NOT NULL DEFAULT '{}'::jsonb,
		registered_at TIMESTAMP NOT NULL DEFAULT NOW()
	);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// ListIDs returns all registered ids in lexical order.
func (s *PostgreSQLStorage) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM olap4j_datasources ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return ids, nil
}

// Get retrieves a descriptor by id.
func (s *PostgreSQLStorage) Get(ctx context.Context, id string) (*ServerInfo, error) {
	query := `
		SELECT class_name, url, username, password, properties
		FROM olap4j_datasources
		WHERE id = $1
	`

	var className, url string
	var username, password sql.NullString
	var propertiesJSON []byte

	err := s.db.QueryRowContext(ctx, query, id).Scan(&className, &url, &username, &password, &propertiesJSON)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get datasource: %w", err)
	}

	var properties map[string]string
	if err := json.Unmarshal(propertiesJSON, &properties); err != nil {
		return nil, fmt.Errorf("failed to unmarshal properties: %w", err)
	}

	return &ServerInfo{
		Name:       id,
		ClassName:  className,
		URL:        url,
		User:       username.String,
		Password:   password.String,
		Properties: properties,
	}, nil
}

// Add persists a descriptor, replacing any existing entry with the same id.
func (s *PostgreSQLStorage) Add(ctx context.Context, info *ServerInfo) error {
	propertiesJSON, err := json.Marshal(info.Properties)
	if err != nil {
		return fmt.Errorf("failed to marshal properties: %w", err)
	}

	query := `
		INSERT INTO olap4j_datasources (id, class_name, url, username, password, properties)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			class_name = EXCLUDED.class_name,
			url = EXCLUDED.url,
			username = EXCLUDED.username,
			password = EXCLUDED.password,
			properties = EXCLUDED.properties
	`

	_, err = s.db.ExecContext(ctx, query,
		info.Name,
		info.ClassName,
		info.URL,
		info.User,
		info.Password,
		propertiesJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save datasource: %w", err)
	}

	s.logger.Printf("Saved datasource: %s (driver: %s)", info.Name, info.ClassName)
	return nil
}

// Delete removes a descriptor. Deleting an unknown id is a no-op.
func (s *PostgreSQLStorage) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM olap4j_datasources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete datasource: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		s.logger.Printf("Deleted datasource: %s", id)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *PostgreSQLStorage) Close() error {
	return s.db.Close()
}
