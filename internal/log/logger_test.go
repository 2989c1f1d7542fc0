/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, b []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(b)), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("not json: %q: %v", line, err)
		}
		out = append(out, m)
	}
	if len(out) == 0 {
		t.Fatalf("no log lines")
	}
	return out
}

func TestJSONConsoleAndRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zc.log")
	var console bytes.Buffer
	Init(Options{Level: "debug", Format: "json", File: path, Console: &console})

	WithOperation(WithComponent("editor"), "export").Info("composition exported", slog.Int("count", 3))

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, sink := range [][]byte{b, console.Bytes()} {
		m := decodeLines(t, sink)[0]
		if m["app"] != "zonecanvas" || m["component"] != "editor" || m["op"] != "export" {
			t.Fatalf("record = %v", m)
		}
		if m["count"] != float64(3) {
			t.Fatalf("count = %v", m["count"])
		}
	}
}

func TestDataURIsAreScrubbed(t *testing.T) {
	var console bytes.Buffer
	Init(Options{Format: "json", Console: &console})
	uri := "data:image/png;base64," + strings.Repeat("A", 4000)

	WithComponent("assets").With(slog.String("first", uri)).Warn("image load failed", slog.String("src", uri))

	m := decodeLines(t, console.Bytes())[0]
	want := "data:image/png;base64,<4000 bytes>"
	if m["src"] != want || m["first"] != want {
		t.Fatalf("src = %v first = %v", m["src"], m["first"])
	}
}

func TestElementGroup(t *testing.T) {
	var console bytes.Buffer
	Init(Options{Format: "json", Console: &console})
	L().Info("element added", Element("1700000000000", "text"))

	m := decodeLines(t, console.Bytes())[0]
	el, ok := m["el"].(map[string]any)
	if !ok || el["id"] != "1700000000000" || el["kind"] != "text" {
		t.Fatalf("el = %v", m["el"])
	}
}

func TestShorten(t *testing.T) {
	if got := Shorten("https://example.com/a.png"); got != "https://example.com/a.png" {
		t.Fatalf("short url changed: %q", got)
	}
	long := strings.Repeat("x", MaxValueLen+50)
	if got := Shorten(long); len(got) != MaxValueLen || !strings.HasSuffix(got, "...") {
		t.Fatalf("long value = %q", got)
	}
	if got := Shorten("data:,hi"); got != "data:,<2 bytes>" {
		t.Fatalf("bare data uri = %q", got)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvLevel, " warn ")
	t.Setenv(EnvFormat, "json")
	t.Setenv(EnvSource, "TRUE")
	t.Setenv(EnvFile, "")

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv = %+v", opts)
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"Warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	} {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestConsoleLine(t *testing.T) {
	var console bytes.Buffer
	Init(Options{Level: "warn", Console: &console})

	l := WithComponent("storage")
	l.Info("dropped")
	l.WithGroup("save").Warn("backup failed", slog.String("path", "/tmp/my project/canvas.json"), slog.Float64("ratio", 0.5))

	out := console.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info record passed a warn threshold: %q", out)
	}
	for _, want := range []string{" WRN [storage] backup failed", `save.path="/tmp/my project/canvas.json"`, "save.ratio=0.5", "app=zonecanvas"} {
		if !strings.Contains(out, want) {
			t.Fatalf("console line missing %q: %q", want, out)
		}
	}
	if strings.Contains(out, "component=") {
		t.Fatalf("component should move into the prefix: %q", out)
	}
}
