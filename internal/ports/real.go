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

package ports

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"
)

// RealFileSystem talks to the host file system, generalizing the teacher's
// RealDiskInterface (disk_interface.go, nobuild) onto the FileSystem port.
type RealFileSystem struct{}

func (RealFileSystem) ReadFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

func (f RealFileSystem) ReadFileToString(path string) (string, error) {
	b, err := f.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (RealFileSystem) ModifiedTime(path string) (time.Time, bool, error) {
	fi, err := os.Stat(path)
	if os.IsNotExist(err) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%s: %w", path, err)
	}
	return fi.ModTime(), true, nil
}

func (RealFileSystem) CreateDirectory(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (RealFileSystem) Canonicalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return abs
	}
	return resolved
}

func (RealFileSystem) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (RealFileSystem) Metadata(path string) (Metadata, error) {
	fi, err := os.Stat(path)
	if os.IsNotExist(err) {
		return Metadata{}, nil
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("%s: %w", path, err)
	}
	return Metadata{Exists: true, ModTime: fi.ModTime()}, nil
}

// RealCommandRunner runs a rule's command string through the host shell,
// matching the teacher's Subprocess (subprocess_posix.go): "sh", "-e", "-c".
type RealCommandRunner struct{}

func (RealCommandRunner) Run(ctx context.Context, command string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-e", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	res := CommandResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if exitErr, ok := err.(*exec.ExitError); ok {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("running %q: %w", command, err)
	}
	return res, nil
}

// RealConsole writes build output to the real stdout/stderr, coloring
// everything written to stderr red (rule descriptions and command stderr
// alike) the way the teacher's LinePrinter (line_printer.go, nobuild)
// colors its status line, via fatih/color.
type RealConsole struct {
	mu  sync.Mutex
	out io.Writer
	err io.Writer
}

func NewRealConsole() *RealConsole {
	return &RealConsole{out: color.Output, err: color.Error}
}

func (c *RealConsole) WriteStdout(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = c.out.Write(b)
}

func (c *RealConsole) WriteStderr(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	red := color.New(color.FgRed)
	_, _ = red.Fprint(c.err, string(b))
}
