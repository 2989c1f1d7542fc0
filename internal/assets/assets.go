/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package assets resolves image sources (http(s) URLs, data URIs and local
// paths) to decoded bitmaps. Loading is asynchronous and fire-and-forget: a
// failed source stays failed and is never retried.
package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	applog "zonecanvas/internal/log"
)

// MaxBytes bounds a single fetched or read image.
const MaxBytes = 32 << 20

// State of a source in the loader cache.
type State int

const (
	Missing State = iota
	Pending
	Ready
	Failed
)

// Decode resolves src synchronously.
func Decode(ctx context.Context, client *http.Client, src string) (image.Image, error) {
	data, err := Fetch(ctx, client, src)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", applog.Shorten(src), err)
	}
	return img, nil
}

// Fetch returns the raw bytes behind src.
func Fetch(ctx context.Context, client *http.Client, src string) ([]byte, error) {
	switch {
	case strings.HasPrefix(src, "data:"):
		return decodeDataURI(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		if client == nil {
			client = http.DefaultClient
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", applog.Shorten(src), err)
		}
		defer resp.Body.Close()
		if resp.StatusCode/100 != 2 {
			return nil, fmt.Errorf("fetch %s: http %d", applog.Shorten(src), resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, MaxBytes))
	default:
		p := src
		if u, err := url.Parse(src); err == nil && u.Scheme == "file" {
			p = u.Path
		}
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, MaxBytes))
	}
}

func decodeDataURI(src string) ([]byte, error) {
	comma := strings.IndexByte(src, ',')
	if comma < 0 {
		return nil, errors.New("malformed data URI")
	}
	meta, payload := src[len("data:"):comma], src[comma+1:]
	if strings.HasSuffix(meta, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

type entry struct {
	state State
	img   image.Image
}

// Loader caches decoded images by source and loads new ones in the background.
type Loader struct {
	Client  *http.Client
	Timeout time.Duration

	mu      sync.Mutex
	entries map[string]*entry
	log     *slog.Logger
}

func NewLoader() *Loader {
	return &Loader{
		Client:  &http.Client{Timeout: 15 * time.Second},
		Timeout: 15 * time.Second,
		entries: make(map[string]*entry),
		log:     applog.WithComponent("assets"),
	}
}

// Get returns the cached image for src and its state.
func (l *Loader) Get(src string) (image.Image, State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[src]
	if !ok {
		return nil, Missing
	}
	return e.img, e.state
}

// Request starts loading src unless it is already known. onDone runs on the
// loader goroutine after a successful decode so the caller can redraw.
func (l *Loader) Request(src string, onDone func()) {
	l.mu.Lock()
	if _, ok := l.entries[src]; ok {
		l.mu.Unlock()
		return
	}
	e := &entry{state: Pending}
	l.entries[src] = e
	l.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.Timeout)
		defer cancel()
		img, err := Decode(ctx, l.Client, src)
		l.mu.Lock()
		if err != nil {
			e.state = Failed
		} else {
			e.state, e.img = Ready, img
		}
		l.mu.Unlock()
		if err != nil {
			l.log.Warn("image load failed", slog.String("src", src), slog.Any("err", err))
			return
		}
		if onDone != nil {
			onDone()
		}
	}()
}

// Wait loads src synchronously through the cache, for offline renderers.
func (l *Loader) Wait(ctx context.Context, src string) (image.Image, bool) {
	if img, st := l.Get(src); st == Ready {
		return img, true
	} else if st == Failed {
		return nil, false
	}
	img, err := Decode(ctx, l.Client, src)
	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.entries[src] = &entry{state: Failed}
		l.log.Warn("image load failed", slog.String("src", src), slog.Any("err", err))
		return nil, false
	}
	l.entries[src] = &entry{state: Ready, img: img}
	return img, true
}
