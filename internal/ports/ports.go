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

// Package ports holds the narrow I/O boundary the core consumes: file
// system, command execution and console output, generalizing the teacher's
// DiskInterface (disk_interface.go) and SubprocessSet (subprocess.go) into
// three small, independently substitutable interfaces, per spec.md §9
// "Dynamic dispatch at the I/O boundary".
package ports

import (
	"context"
	"time"
)

// Metadata is the result of statting a path.
type Metadata struct {
	Exists  bool
	ModTime time.Time
}

// FileSystem is the narrow file-system capability set the core consumes.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	ReadFileToString(path string) (string, error)
	ModifiedTime(path string) (time.Time, bool, error)
	CreateDirectory(path string) error
	Canonicalize(path string) string
	Metadata(path string) (Metadata, error)
	Remove(path string) error
}

// CommandResult is what a finished command produced.
type CommandResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// CommandRunner executes one rule command via the host shell.
type CommandRunner interface {
	Run(ctx context.Context, command string) (CommandResult, error)
}

// Console is the abstract sink for build output, kept deliberately tiny so
// tests can substitute an in-memory double.
type Console interface {
	WriteStdout(b []byte)
	WriteStderr(b []byte)
}
