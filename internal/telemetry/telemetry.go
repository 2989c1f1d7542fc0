/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in anonymous usage events and crash reports.
//
// Events are queued without blocking the caller and posted in batches as one
// JSON envelope. Nothing leaves the machine unless the user opted in and an
// endpoint is configured. Property values that could carry composition
// content (long strings, nested values) are dropped before queueing.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	applog "zonecanvas/internal/log"
	"zonecanvas/internal/version"
)

// Event names.
const (
	EventElementAdded = "element_added"
	EventExport       = "export"
	EventImport       = "import"
	EventRender       = "render"
	EventPublish      = "publish"
)

// Environment variables read by FromEnv.
const (
	EnvOptIn     = "ZC_TELEMETRY_OPT_IN"
	EnvEventsURL = "ZC_TELEMETRY_URL"
	EnvCrashURL  = "ZC_CRASH_UPLOAD_URL"
	EnvTimeoutMS = "ZC_TELEMETRY_TIMEOUT_MS"
	EnvDebug     = "ZC_TELEMETRY_DEBUG"
)

const (
	maxPropString = 32
	queueSize     = 64
)

// Config controls a Client. Zero batching values get defaults in New.
type Config struct {
	OptIn     bool
	EventsURL string
	CrashURL  string
	Timeout   time.Duration
	// BatchSize events trigger an immediate post; otherwise pending events
	// go out every Interval.
	BatchSize int
	Interval  time.Duration
	Debug     bool
}

// FromEnv reads Config from the ZC_TELEMETRY_* variables.
func FromEnv() Config {
	cfg := Config{
		OptIn:     parseBool(os.Getenv(EnvOptIn)),
		EventsURL: strings.TrimSpace(os.Getenv(EnvEventsURL)),
		CrashURL:  strings.TrimSpace(os.Getenv(EnvCrashURL)),
		Timeout:   1500 * time.Millisecond,
		Debug:     os.Getenv(EnvDebug) != "",
	}
	if ms, err := strconv.Atoi(strings.TrimSpace(os.Getenv(EnvTimeoutMS))); err == nil && ms > 0 {
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	}
	return cfg
}

// WithOptIn merges the config file's opt-in. Either source can enable
// telemetry; neither can disable what the other enabled.
func (c Config) WithOptIn(fileOptIn bool) Config {
	c.OptIn = c.OptIn || fileOptIn
	return c
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Event is one usage event.
type Event struct {
	Name  string         `json:"name"`
	At    time.Time      `json:"ts"`
	Props map[string]any `json:"props,omitempty"`
}

type envelope struct {
	Version string  `json:"version"`
	OS      string  `json:"os"`
	Arch    string  `json:"arch"`
	Events  []Event `json:"events"`
}

// Client batches events in a background goroutine. A nil *Client is a no-op.
type Client struct {
	cfg  Config
	log  *slog.Logger
	http *http.Client

	q       chan Event
	flushes chan chan struct{}
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// New starts a client. Call Close to stop it.
func New(cfg Config) *Client {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	c := &Client{
		cfg:     cfg,
		log:     applog.WithComponent("telemetry"),
		http:    &http.Client{Timeout: cfg.Timeout},
		q:       make(chan Event, queueSize),
		flushes: make(chan chan struct{}),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.run()
	return c
}

// Enabled reports whether events are sent at all.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues name with the safe subset of props. It never blocks; events
// are dropped when the queue is full or the client is closed.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	ev := Event{Name: name, At: time.Now().UTC()}
	for k, v := range props {
		if safeProp(v) {
			if ev.Props == nil {
				ev.Props = map[string]any{}
			}
			ev.Props[k] = v
		}
	}
	select {
	case <-c.stop:
	case c.q <- ev:
	default:
	}
}

// safeProp keeps numbers, booleans and short strings such as an element kind.
func safeProp(v any) bool {
	switch x := v.(type) {
	case bool, int, int64, float64:
		return true
	case string:
		return len(x) <= maxPropString
	}
	return false
}

// Flush posts everything queued so far and waits for it, or for ctx.
func (c *Client) Flush(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	ack := make(chan struct{})
	select {
	case c.flushes <- ack:
	case <-c.done:
		return
	case <-ctx.Done():
		return
	}
	select {
	case <-ack:
	case <-ctx.Done():
	}
}

// Close posts pending events and stops the client.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.once.Do(func() { close(c.stop) })
	<-c.done
}

func (c *Client) run() {
	defer close(c.done)
	tick := time.NewTicker(c.cfg.Interval)
	defer tick.Stop()
	var pending []Event
	post := func() {
		if len(pending) > 0 {
			c.post(pending)
			pending = nil
		}
	}
	drain := func() {
		for {
			select {
			case ev := <-c.q:
				pending = append(pending, ev)
			default:
				return
			}
		}
	}
	for {
		select {
		case ev := <-c.q:
			pending = append(pending, ev)
			if len(pending) >= c.cfg.BatchSize {
				post()
			}
		case <-tick.C:
			post()
		case ack := <-c.flushes:
			drain()
			post()
			close(ack)
		case <-c.stop:
			drain()
			post()
			return
		}
	}
}

func (c *Client) post(events []Event) {
	body, err := json.Marshal(envelope{Version: version.String(), OS: runtime.GOOS, Arch: runtime.GOARCH, Events: events})
	if err != nil {
		return
	}
	if err := c.send(context.Background(), c.cfg.EventsURL, "application/json", body); err != nil {
		if c.cfg.Debug {
			c.log.Debug("telemetry post failed", slog.Int("events", len(events)), slog.Any("err", err))
		}
		return
	}
	if c.cfg.Debug {
		c.log.Debug("telemetry posted", slog.Int("events", len(events)))
	}
}

func (c *Client) send(ctx context.Context, url, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	return nil
}

// UploadCrash posts a crash report when the user opted in and a crash
// endpoint is set. It blocks for at most the client timeout.
func (c *Client) UploadCrash(ctx context.Context, report []byte) error {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return nil
	}
	return c.send(ctx, c.cfg.CrashURL, "text/plain; charset=utf-8", report)
}

var std atomic.Pointer[Client]

// SetDefault makes c the client used by UploadCrash. Passing nil resets it.
func SetDefault(c *Client) { std.Store(c) }

// UploadCrash sends report through the default client. Without one it
// builds a short-lived client from the environment.
func UploadCrash(report []byte) {
	c := std.Load()
	if c == nil {
		cfg := FromEnv()
		if !cfg.OptIn || cfg.CrashURL == "" {
			return
		}
		c = New(cfg)
		defer c.Close()
	}
	if err := c.UploadCrash(context.Background(), report); err != nil && c.cfg.Debug {
		c.log.Debug("crash upload failed", slog.Any("err", err))
	}
}
