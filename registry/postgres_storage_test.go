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
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockPostgres(t *testing.T) (*PostgreSQLStorage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgreSQLStorageWithDB(db), mock
}

func TestPostgreSQLListIDs(t *testing.T) {
	storage, mock := newMockPostgres(t)

	rows := sqlmock.NewRows([]string{"id"}).AddRow("alpha").AddRow("beta")
	mock.ExpectQuery("SELECT id FROM olap4j_datasources ORDER BY id").WillReturnRows(rows)

	ids, err := storage.ListIDs(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "alpha" || ids[1] != "beta" {
		t.Errorf("expected [alpha beta], got %v", ids)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgreSQLGet(t *testing.T) {
	storage, mock := newMockPostgres(t)

	rows := sqlmock.NewRows([]string{"class_name", "url", "username", "password", "properties"}).
		AddRow("org.olap4j.driver.xmla.XmlaOlap4jDriver", "jdbc:xmla:x", "joe", "secret", []byte(`{"catalog":"Sales"}`))
	mock.ExpectQuery("SELECT class_name, url, username, password, properties").
		WithArgs("sales").
		WillReturnRows(rows)

	info, err := storage.Get(context.Background(), "sales")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Name != "sales" || info.User != "joe" || info.Password != "secret" {
		t.Errorf("descriptor fields mismatch: %+v", info)
	}
	if info.Properties["catalog"] != "Sales" {
		t.Errorf("properties not decoded: %v", info.Properties)
	}
}

func TestPostgreSQLGetNotFound(t *testing.T) {
	storage, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT class_name, url, username, password, properties").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"class_name", "url", "username", "password", "properties"}))

	if _, err := storage.Get(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgreSQLAddUpserts(t *testing.T) {
	storage, mock := newMockPostgres(t)

	mock.ExpectExec("INSERT INTO olap4j_datasources").
		WithArgs("sales", "driver.Class", "jdbc:xmla:x", "joe", "secret", []byte(`{}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := storage.Add(context.Background(), &ServerInfo{
		Name:       "sales",
		ClassName:  "driver.Class",
		URL:        "jdbc:xmla:x",
		User:       "joe",
		Password:   "secret",
		Properties: map[string]string{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgreSQLDeleteIdempotent(t *testing.T) {
	storage, mock := newMockPostgres(t)

	mock.ExpectExec("DELETE FROM olap4j_datasources").
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	// Zero rows affected is still success.
	if err := storage.Delete(context.Background(), "gone"); err != nil {
		t.Fatalf("delete of unknown id must succeed: %v", err)
	}
}
