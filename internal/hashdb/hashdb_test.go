// Copyright 2011 Google Inc. All Rights Reserved.
//
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

package hashdb

import (
	"path/filepath"
	"testing"

	"github.com/maruel/turtle/internal/ir"
)

func open(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "hashes.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestGetMissingIsNotFound(t *testing.T) {
	db := open(t)
	_, ok, err := db.Get(42)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected not found")
	}
}

func TestRecordThenGetRoundTrips(t *testing.T) {
	db := open(t)
	want := ir.BuildHash{TimestampHash: 1, ContentHash: 2}
	if err := db.Record(7, want, []ir.Path{"out.o"}); err != nil {
		t.Fatal(err)
	}
	got, ok, err := db.Get(7)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || got != want {
		t.Fatalf("got %+v, ok=%v", got, ok)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashes.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Record(1, ir.BuildHash{TimestampHash: 9, ContentHash: 10}, []ir.Path{"a"}); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db2.Close()
	got, ok, err := db2.Get(1)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || got.TimestampHash != 9 {
		t.Fatalf("got %+v, ok=%v", got, ok)
	}
}

func TestForgetIfStaleRemovesDeadOutputsOnly(t *testing.T) {
	db := open(t)
	if err := db.Record(1, ir.BuildHash{TimestampHash: 1}, []ir.Path{"live.o"}); err != nil {
		t.Fatal(err)
	}
	if err := db.Record(2, ir.BuildHash{TimestampHash: 2}, []ir.Path{"dead.o", "dead2.o"}); err != nil {
		t.Fatal(err)
	}
	var removed []string
	isLive := func(id uint64) bool { return id == 1 }
	if err := db.ForgetIfStale(isLive, func(p string) { removed = append(removed, p) }); err != nil {
		t.Fatal(err)
	}
	if len(removed) != 2 {
		t.Fatalf("got %v", removed)
	}
	if _, ok, _ := db.Get(2); ok {
		t.Fatal("expected stale entry to be forgotten")
	}
	if _, ok, _ := db.Get(1); !ok {
		t.Fatal("live entry must survive")
	}
}
