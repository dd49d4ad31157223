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

// Package hashdb persists the per-build staleness hash across invocations,
// generalizing the teacher's BuildLog/DepsLog (build_log.go, deps_log.go,
// nobuild) from an append-only text log onto an embedded key/value store,
// per SPEC_FULL.md §11's choice of go.etcd.io/bbolt for the durable
// Build.ID -> BuildHash mapping.
package hashdb

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	bolt "go.etcd.io/bbolt"

	"github.com/maruel/turtle/internal/ir"
)

var (
	bucketName  = []byte("build_hashes")
	outputsName = []byte("build_outputs")
)

const outputSep = "\x00"

// Database is the persistent Build.ID -> BuildHash store. Get/Record never
// flush implicitly: flush() is always explicit, since in-flight futures in
// the runner may form reference cycles that would otherwise keep a
// finalizer from ever running, matching spec.md §4.6.
type Database struct {
	db *bolt.DB
}

// Open opens (creating if absent) the bbolt file at path.
func Open(path string) (*Database, error) {
	db, err := bolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, fmt.Errorf("opening hash database %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketName); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(outputsName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing hash database %s: %w", path, err)
	}
	return &Database{db: db}, nil
}

// Get returns the stored hash for id, if any.
func (d *Database) Get(id uint64) (ir.BuildHash, bool, error) {
	var bh ir.BuildHash
	found := false
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get(keyFor(id))
		if v == nil {
			return nil
		}
		if len(v) != 16 {
			return fmt.Errorf("corrupt hash record for build %d", id)
		}
		bh.TimestampHash = binary.BigEndian.Uint64(v[:8])
		bh.ContentHash = binary.BigEndian.Uint64(v[8:])
		found = true
		return nil
	})
	return bh, found, err
}

// Record stores both the staleness hash and the output set that produced
// it, the latter so a later `-t clean-dead` invocation can remove files
// whose build no longer exists in the compiled configuration (the hash
// alone carries no path information, since Build.ID depends only on the
// output set it was derived from).
func (d *Database) Record(id uint64, bh ir.BuildHash, outputs []ir.Path) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		var v [16]byte
		binary.BigEndian.PutUint64(v[:8], bh.TimestampHash)
		binary.BigEndian.PutUint64(v[8:], bh.ContentHash)
		if err := tx.Bucket(bucketName).Put(keyFor(id), v[:]); err != nil {
			return err
		}
		return tx.Bucket(outputsName).Put(keyFor(id), []byte(strings.Join(outputs, outputSep)))
	})
}

// ForgetIfStale calls isLive for every build id the database has recorded
// outputs for; when isLive reports false it invokes remove once per output
// path and deletes the entry, used by `-t clean-dead`.
func (d *Database) ForgetIfStale(isLive func(id uint64) bool, remove func(path string)) error {
	var toDelete []uint64
	err := d.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(outputsName).ForEach(func(k, v []byte) error {
			id := binary.BigEndian.Uint64(k)
			if isLive(id) {
				return nil
			}
			toDelete = append(toDelete, id)
			for _, out := range strings.Split(string(v), outputSep) {
				if out != "" {
					remove(out)
				}
			}
			return nil
		})
	})
	if err != nil {
		return err
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		for _, id := range toDelete {
			if err := tx.Bucket(bucketName).Delete(keyFor(id)); err != nil {
				return err
			}
			if err := tx.Bucket(outputsName).Delete(keyFor(id)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Flush forces pending writes to stable storage. bbolt commits each
// Update transaction durably already, so Flush is a sync barrier rather
// than a buffered-writer drain, but it is still called explicitly at every
// exit path (success, command failure, or cancellation) per spec.md §4.6.
func (d *Database) Flush() error {
	return d.db.Sync()
}

// Close flushes and releases the underlying file, combining both possible
// failures with go-multierror the way the teacher's tool-dispatch cleanup
// combines multiple close errors (ginja.go).
func (d *Database) Close() error {
	var result *multierror.Error
	if err := d.Flush(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := d.db.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func keyFor(id uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], id)
	return k[:]
}
