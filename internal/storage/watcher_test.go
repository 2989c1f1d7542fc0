/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"zonecanvas/internal/domain"
)

func TestWatcherReportsExternalEdits(t *testing.T) {
	root := t.TempDir()
	ph, err := InitProject(root, sampleComposition("Watched"))
	if err != nil {
		t.Fatalf("InitProject error: %v", err)
	}
	got := make(chan domain.Composition, 4)
	w, err := NewWatcher(ph, func(c domain.Composition) { got <- c })
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Debounce = 20 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Our own save must not be reported.
	ph.Composition.Name = "saved by us"
	if err := Save(ph); err != nil {
		t.Fatalf("Save: %v", err)
	}
	select {
	case c := <-got:
		t.Fatalf("own write reported as external: %+v", c)
	case <-time.After(200 * time.Millisecond):
	}

	external := `{"name":"edited elsewhere","activeZone":"C","elements":[{"id":"9","type":"text","text":"hi","fontSize":12,"x":560,"y":60,"width":150,"height":30}]}`
	if err := os.WriteFile(ph.ManifestPath, []byte(external), 0o644); err != nil {
		t.Fatalf("external write: %v", err)
	}
	select {
	case c := <-got:
		if c.Name != "edited elsewhere" || c.ActiveZone != "C" || len(c.Elements) != 1 {
			t.Fatalf("unexpected composition: %+v", c)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for change notification")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestNewWatcherValidatesArgs(t *testing.T) {
	if _, err := NewWatcher(nil, func(domain.Composition) {}); err == nil {
		t.Fatalf("expected error for nil handle")
	}
	ph := &ProjectHandle{Root: t.TempDir()}
	if _, err := NewWatcher(ph, nil); err == nil {
		t.Fatalf("expected error for nil callback")
	}
}
