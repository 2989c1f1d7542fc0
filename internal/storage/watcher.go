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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"zonecanvas/internal/domain"
	applog "zonecanvas/internal/log"
)

// DefaultDebounce collapses the burst of events an editor produces when saving.
const DefaultDebounce = 150 * time.Millisecond

// Watcher reports edits to canvas.json made by other programs. Writes done
// through Save on the same handle are ignored.
type Watcher struct {
	Debounce time.Duration

	ph       *ProjectHandle
	fw       *fsnotify.Watcher
	onChange func(domain.Composition)
	log      *slog.Logger
}

// NewWatcher watches the project directory of ph. The directory rather than the
// file is watched because Save replaces the manifest by rename.
func NewWatcher(ph *ProjectHandle, onChange func(domain.Composition)) (*Watcher, error) {
	if ph == nil {
		return nil, errors.New("nil ProjectHandle")
	}
	if onChange == nil {
		return nil, errors.New("onChange is required")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(ph.Root); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", ph.Root, err)
	}
	return &Watcher{
		Debounce: DefaultDebounce,
		ph:       ph,
		fw:       fw,
		onChange: onChange,
		log:      applog.WithComponent("storage").With(slog.String("root", ph.Root)),
	}, nil
}

// Run delivers changes until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fw.Close() }()
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != ManifestFileName {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.Debounce)
			} else {
				timer.Reset(w.Debounce)
			}
			fire = timer.C
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", slog.Any("err", err))
		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

// Close stops the watcher; Run returns shortly after.
func (w *Watcher) Close() error { return w.fw.Close() }

func (w *Watcher) reload() {
	b, err := os.ReadFile(w.ph.ManifestPath)
	if err != nil {
		// Mid-replace or deleted; the next event will retry.
		w.log.Debug("manifest not readable", slog.Any("err", err))
		return
	}
	if w.ph.isOwnWrite(b) {
		return
	}
	comp, err := decodeManifest(b)
	if err != nil {
		w.log.Warn("ignoring unparsable manifest change", slog.Any("err", err))
		return
	}
	w.ph.mu.Lock()
	w.ph.lastWritten = b
	w.ph.mu.Unlock()
	w.log.Info("manifest changed on disk", slog.Int("elements", len(comp.Elements)))
	w.onChange(comp)
}
