/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package log sets up the process-wide slog logger.
//
// Records go to a console sink (compact text or JSON) and optionally to a
// rotating JSON file. Every sink sits behind a scrubber that shortens image
// data URIs and other oversized string values, so element sources never
// flood the log.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"zonecanvas/internal/version"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Environment variables read by FromEnv.
const (
	EnvLevel  = "ZC_LOG_LEVEL"
	EnvFormat = "ZC_LOG_FORMAT"
	EnvSource = "ZC_LOG_SOURCE"
	EnvFile   = "ZC_LOG_FILE"
)

// MaxValueLen is the longest string value written unchanged.
const MaxValueLen = 120

// Options controls Init. The zero value logs INFO as console text to stderr.
type Options struct {
	Level     string // debug|info|warn|error
	Format    string // console|json
	AddSource bool
	// File enables an additional JSON sink rotated by lumberjack.
	File       string
	MaxSizeMB  int // default 10
	MaxBackups int // default 3
	// Console replaces stderr; tests pass a buffer.
	Console io.Writer
}

var (
	mu      sync.RWMutex
	current *slog.Logger
)

// L returns the process logger, initializing it from the environment on first use.
func L() *slog.Logger {
	mu.RLock()
	l := current
	mu.RUnlock()
	if l != nil {
		return l
	}
	return Init(FromEnv())
}

// Init replaces the process logger (and slog.Default) and returns it.
func Init(opts Options) *slog.Logger {
	lvl := parseLevel(opts.Level)
	out := opts.Console
	if out == nil {
		out = os.Stderr
	}

	var sinks fanout
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		sinks = append(sinks, slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource}))
	} else {
		sinks = append(sinks, &lineHandler{w: out, min: lvl, source: opts.AddSource, wmu: &sync.Mutex{}})
	}
	if path := strings.TrimSpace(opts.File); path != "" {
		rot := &lj.Logger{
			Filename:   path,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			MaxAge:     28,
			Compress:   true,
		}
		sinks = append(sinks, slog.NewJSONHandler(rot, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource}))
	}

	var h slog.Handler = sinks
	if len(sinks) == 1 {
		h = sinks[0]
	}
	l := slog.New(scrubber{next: h}).With(
		slog.String("app", "zonecanvas"),
		slog.String("ver", version.Version),
	)

	mu.Lock()
	current = l
	mu.Unlock()
	slog.SetDefault(l)
	return l
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// FromEnv reads Options from the ZC_LOG_* variables.
func FromEnv() Options {
	return Options{
		Level:     getenv(EnvLevel, "info"),
		Format:    getenv(EnvFormat, "console"),
		AddSource: strings.EqualFold(getenv(EnvSource, "false"), "true"),
		File:      os.Getenv(EnvFile),
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// WithComponent returns the process logger tagged with a component name.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation tags l with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

// Element groups the identity of a composition element under "el".
func Element(id, kind string) slog.Attr {
	return slog.Group("el", slog.String("id", id), slog.String("kind", kind))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// fanout delivers each record to every sink that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, lvl slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, lvl) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// scrubber rewrites oversized string values before they reach a sink.
type scrubber struct{ next slog.Handler }

func (s scrubber) Enabled(ctx context.Context, lvl slog.Level) bool { return s.next.Enabled(ctx, lvl) }

func (s scrubber) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(scrub(a))
		return true
	})
	return s.next.Handle(ctx, clean)
}

func (s scrubber) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = scrub(a)
	}
	return scrubber{next: s.next.WithAttrs(clean)}
}

func (s scrubber) WithGroup(name string) slog.Handler { return scrubber{next: s.next.WithGroup(name)} }

func scrub(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, Shorten(v.String()))
	case slog.KindGroup:
		in := v.Group()
		out := make([]any, len(in))
		for i, ga := range in {
			out[i] = scrub(ga)
		}
		return slog.Group(a.Key, out...)
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// Shorten renders a data URI as its media type plus payload size and cuts
// other strings at MaxValueLen.
func Shorten(s string) string {
	if strings.HasPrefix(s, "data:") {
		if comma := strings.IndexByte(s, ','); comma > 0 {
			return s[:comma] + ",<" + strconv.Itoa(len(s)-comma-1) + " bytes>"
		}
	}
	if len(s) > MaxValueLen {
		return s[:MaxValueLen-3] + "..."
	}
	return s
}

// lineHandler prints one line per record for terminals:
//
//	15:04:05.000 INF [editor] element added el.id=1700000000000 zone=A
//
// The component attribute moves into the bracket prefix.
type lineHandler struct {
	w      io.Writer
	min    slog.Level
	source bool

	component string
	prefix    string // open groups, dot-joined with trailing dot
	attrs     string // pre-rendered " k=v" pairs from WithAttrs

	wmu *sync.Mutex // shared by all derived handlers
}

func (h *lineHandler) Enabled(_ context.Context, lvl slog.Level) bool { return lvl >= h.min }

func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Time.Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(levelTag(r.Level))
	comp := h.component
	var rest strings.Builder
	r.Attrs(func(a slog.Attr) bool {
		if h.prefix == "" && a.Key == "component" {
			comp = a.Value.String()
			return true
		}
		writePair(&rest, h.prefix, a)
		return true
	})
	if comp != "" {
		b.WriteString(" [")
		b.WriteString(comp)
		b.WriteByte(']')
	}
	if r.Message != "" {
		b.WriteByte(' ')
		b.WriteString(r.Message)
	}
	b.WriteString(h.attrs)
	b.WriteString(rest.String())
	if h.source && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		b.WriteString(" src=")
		b.WriteString(f.File)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(f.Line))
	}
	b.WriteByte('\n')

	h.wmu.Lock()
	defer h.wmu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *lineHandler) clone() *lineHandler {
	c := *h
	return &c
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	var b strings.Builder
	b.WriteString(c.attrs)
	for _, a := range attrs {
		if c.prefix == "" && a.Key == "component" {
			c.component = a.Value.String()
			continue
		}
		writePair(&b, c.prefix, a)
	}
	c.attrs = b.String()
	return c
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.prefix += name + "."
	return c
}

func writePair(b *strings.Builder, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, ga := range v.Group() {
			writePair(b, prefix+a.Key+".", ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(valueText(v))
}

func levelTag(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DBG"
	case l < slog.LevelWarn:
		return "INF"
	case l < slog.LevelError:
		return "WRN"
	}
	return "ERR"
}

func valueText(v slog.Value) string {
	switch v.Kind() {
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindString:
		s := v.String()
		if strings.ContainsAny(s, " \t\n\"") {
			return strconv.Quote(s)
		}
		return s
	}
	return v.String()
}
