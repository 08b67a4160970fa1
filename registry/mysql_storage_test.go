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

func newMockMySQL(t *testing.T) (*MySQLStorage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewMySQLStorageWithDB(db), mock
}

func TestMySQLAddUpserts(t *testing.T) {
	storage, mock := newMockMySQL(t)

	mock.ExpectExec("INSERT INTO olap4j_datasources").
		WithArgs("sales", "driver.Class", "jdbc:xmla:x", "", "", []byte(`{"locale":"en"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := storage.Add(context.Background(), &ServerInfo{
		Name:       "sales",
		ClassName:  "driver.Class",
		URL:        "jdbc:xmla:x",
		Properties: map[string]string{"locale": "en"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMySQLGetNotFound(t *testing.T) {
	storage, mock := newMockMySQL(t)

	mock.ExpectQuery("SELECT class_name, url, username, password, properties").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"class_name", "url", "username", "password", "properties"}))

	if _, err := storage.Get(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMySQLDeleteIdempotent(t *testing.T) {
	storage, mock := newMockMySQL(t)

	mock.ExpectExec("DELETE FROM olap4j_datasources").
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := storage.Delete(context.Background(), "gone"); err != nil {
		t.Fatalf("delete of unknown id must succeed: %v", err)
	}
}
