/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic in the CLI or the desktop UI into a report
// file, an autosave of the live composition and a non-zero exit.
package crash

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"zonecanvas/internal/domain"
	applog "zonecanvas/internal/log"
	"zonecanvas/internal/storage"
	"zonecanvas/internal/telemetry"
	"zonecanvas/internal/version"
)

// ExitCode is the process status after a recovered panic.
const ExitCode = 2

// Swapped by tests.
var (
	exit             = os.Exit
	stderr io.Writer = os.Stderr
	now              = time.Now
)

// Target reports what to autosave. It is consulted only after a panic, so
// the project may be opened after the deferred Guard call is registered.
type Target interface {
	Project() *storage.ProjectHandle
	Latest() domain.Composition
}

// Guard recovers a panic and handles it for t.
//
// Usage: defer crash.Guard(t)
func Guard(t Target) {
	if r := recover(); r != nil {
		handle(t.Project(), t.Latest, r)
	}
}

// Recover is Guard for a fixed project handle. latest may be nil; when set it
// returns the in-memory composition, which can be ahead of ph.Composition.
//
// Usage: defer crash.Recover(ph, latest)
func Recover(ph *storage.ProjectHandle, latest func() domain.Composition) {
	if r := recover(); r != nil {
		handle(ph, latest, r)
	}
}

// Report is what gets written to crash-<stamp>.log.
type Report struct {
	At       time.Time
	Panic    any
	Stack    []byte
	Root     string
	Zone     domain.ZoneKey
	Images   int
	Texts    int
	Opaque   int
	Snapshot string // autosave path, empty when none was written
}

func newReport(ph *storage.ProjectHandle, panicVal any, stack []byte) *Report {
	r := &Report{At: now(), Panic: panicVal, Stack: stack}
	if ph == nil {
		return r
	}
	r.Root = ph.Root
	r.Zone = ph.Composition.ActiveZone
	for _, el := range ph.Composition.Elements {
		switch el.(type) {
		case domain.Image:
			r.Images++
		case domain.Text:
			r.Texts++
		default:
			r.Opaque++
		}
	}
	return r
}

// WriteTo renders the report as plain text.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "zonecanvas crash report\n")
	fmt.Fprintf(&b, "time:     %s\n", r.At.Format(time.RFC3339))
	fmt.Fprintf(&b, "version:  %s (%s/%s, %s)\n", version.String(), runtime.GOOS, runtime.GOARCH, runtime.Version())
	if r.Root != "" {
		fmt.Fprintf(&b, "project:  %s\n", r.Root)
		fmt.Fprintf(&b, "zone:     %s\n", r.Zone)
		fmt.Fprintf(&b, "elements: %d image, %d text, %d opaque\n", r.Images, r.Texts, r.Opaque)
	}
	if r.Snapshot != "" {
		fmt.Fprintf(&b, "autosave: %s\n", r.Snapshot)
	}
	fmt.Fprintf(&b, "\npanic: %v\n\n%s\n", r.Panic, r.Stack)
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

func handle(ph *storage.ProjectHandle, latest func() domain.Composition, panicVal any) {
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", panicVal))

	if ph != nil && latest != nil {
		captureLatest(ph, latest, l)
	}
	rep := newReport(ph, panicVal, stack)
	if ph != nil {
		path, err := storage.AutosaveCrashSnapshot(ph)
		if err != nil {
			l.Error("crash autosave failed", slog.Any("err", err))
		} else {
			rep.Snapshot = path
		}
	}
	path, err := save(rep, reportDir(ph))
	if err != nil {
		l.Error("crash report not written", slog.String("path", path), slog.Any("err", err))
	}

	fmt.Fprintf(stderr, "zonecanvas crashed: %v\n", panicVal)
	if err == nil {
		fmt.Fprintf(stderr, "report: %s\n", path)
	}
	if rep.Snapshot != "" {
		fmt.Fprintf(stderr, "unsaved work: %s\n", rep.Snapshot)
	}
	exit(ExitCode)
}

// captureLatest copies the live composition into ph. A second panic while
// reading the session is logged and ignored.
func captureLatest(ph *storage.ProjectHandle, latest func() domain.Composition, l *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			l.Error("reading live composition failed", slog.Any("panic", r))
		}
	}()
	ph.Composition = latest()
}

func reportDir(ph *storage.ProjectHandle) string {
	if ph == nil || ph.Root == "" {
		return os.TempDir()
	}
	return filepath.Join(ph.Root, storage.BackupsDirName)
}

// save writes rep under dir and hands it to the crash uploader.
func save(rep *Report, dir string) (string, error) {
	path := filepath.Join(dir, "crash-"+rep.At.Format("20060102-150405")+".log")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return path, err
	}
	var b strings.Builder
	_, _ = rep.WriteTo(&b)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return path, err
	}
	telemetry.UploadCrash([]byte(b.String()))
	return path, nil
}
