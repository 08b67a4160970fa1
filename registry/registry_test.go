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
)

func TestInMemoryCRUD(t *testing.T) {
	reg := NewInMemory()
	ctx := context.Background()

	ids, err := reg.ListIDs(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected empty registry, got %v", ids)
	}

	info := &ServerInfo{
		Name:      "sales",
		ClassName: "org.olap4j.driver.xmla.XmlaOlap4jDriver",
		URL:       "jdbc:xmla:Server=http://cubes/xmla",
		User:      "joe",
		Password:  "secret",
	}
	if err := reg.Add(ctx, info); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	got, err := reg.Get(ctx, "sales")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.ClassName != info.ClassName || got.Password != "secret" {
		t.Errorf("descriptor mismatch: %+v", got)
	}

	if err := reg.Delete(ctx, "sales"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := reg.Get(ctx, "sales"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestInMemoryListSorted(t *testing.T) {
	reg := NewInMemory()
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := reg.Add(ctx, &ServerInfo{Name: name, ClassName: "c", URL: "u"}); err != nil {
			t.Fatalf("add %s failed: %v", name, err)
		}
	}

	ids, err := reg.ListIDs(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"alpha", "mid", "zeta"}
	for i, id := range want {
		if ids[i] != id {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}
}

func TestInMemoryAddReplaces(t *testing.T) {
	reg := NewInMemory()
	ctx := context.Background()

	if err := reg.Add(ctx, &ServerInfo{Name: "foo", ClassName: "c1", URL: "u1"}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := reg.Add(ctx, &ServerInfo{Name: "foo", ClassName: "c2", URL: "u2"}); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	got, err := reg.Get(ctx, "foo")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.ClassName != "c2" {
		t.Errorf("expected replaced descriptor, got %+v", got)
	}
}

func TestInMemoryDeleteIdempotent(t *testing.T) {
	reg := NewInMemory()
	if err := reg.Delete(context.Background(), "never-existed"); err != nil {
		t.Fatalf("delete of unknown id must succeed: %v", err)
	}
}

func TestInMemoryGetReturnsCopy(t *testing.T) {
	reg := NewInMemory()
	ctx := context.Background()

	if err := reg.Add(ctx, &ServerInfo{Name: "foo", ClassName: "c", URL: "u"}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	got, _ := reg.Get(ctx, "foo")
	got.ClassName = "mutated"

	again, _ := reg.Get(ctx, "foo")
	if again.ClassName != "c" {
		t.Error("mutating a returned descriptor must not affect the registry")
	}
}
