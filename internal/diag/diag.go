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

// Package diag provides the package-level logging helpers used throughout
// turtle, in the same call-site shape as the original Warning/Error/Fatal
// helpers, backed by logrus instead of bare fmt.Fprintf.
package diag

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// LogPrefix is prepended to every Warningf/Errorf/Fatalf line, set from the
// --log-prefix flag.
var LogPrefix string

// EnableDebug switches the logger to DebugLevel, enabling the runner's
// per-build explain traces. Mirrors --debug / TURTLE_DEBUG.
func EnableDebug() {
	log.SetLevel(logrus.DebugLevel)
}

// Debugging reports whether debug-level logging is active.
func Debugging() bool {
	return log.IsLevelEnabled(logrus.DebugLevel)
}

// profiling tracks --profile / TURTLE_PROFILE, independent of debug
// level: profile lines are useful even in a quiet build.
var profiling bool

// EnableProfile turns on per-command timing lines.
func EnableProfile() {
	profiling = true
}

// Profiling reports whether --profile / TURTLE_PROFILE is active.
func Profiling() bool {
	return profiling
}

func prefixed(f string) string {
	if LogPrefix == "" {
		return f
	}
	return LogPrefix + f
}

// Warningf logs a non-fatal problem that does not abort the build.
func Warningf(f string, args ...interface{}) {
	log.Warningf(prefixed("warning: "+f), args...)
}

// Errorf logs an error attributable to a single build or compile step.
func Errorf(f string, args ...interface{}) {
	log.Errorf(prefixed("error: "+f), args...)
}

// Fatalf logs an unrecoverable error and terminates the process, matching
// the teacher's Fatal() semantics (no panic/recover is expected to run).
func Fatalf(f string, args ...interface{}) {
	log.Fatalf(prefixed("fatal: "+f), args...)
}

// Infof logs routine progress information (e.g. "no work to do").
func Infof(f string, args ...interface{}) {
	log.Infof(f, args...)
}

// WithFields returns an entry for structured, per-build logging (e.g.
// build_id, rule) without changing the plain call sites above.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return log.WithFields(fields)
}
