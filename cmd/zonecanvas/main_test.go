/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/zalando/go-keyring"

	"zonecanvas/internal/backend"
	"zonecanvas/internal/clipboard"
	"zonecanvas/internal/config"
	"zonecanvas/internal/domain"
	"zonecanvas/internal/storage"
)

// isolate points config at a temp file and the token store at memory.
func isolate(t *testing.T) {
	t.Helper()
	keyring.MockInit()
	t.Setenv(config.EnvConfigFile, filepath.Join(t.TempDir(), "config.yaml"))
	t.Setenv(config.EnvLogLevel, "error")
	t.Setenv(config.EnvTelemetryOptIn, "false")
}

type result struct {
	out, err string
	code     int
}

func runCLI(t *testing.T, clip clipboard.Clipboard, stdin string, args ...string) result {
	t.Helper()
	var out, errb bytes.Buffer
	c := newCLI(strings.NewReader(stdin), &out, &errb)
	if clip == nil {
		clip = &clipboard.Memory{}
	}
	c.clip = clip
	code := c.execute(args)
	return result{out: out.String(), err: errb.String(), code: code}
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	r := runCLI(t, nil, "", args...)
	if r.code != 0 {
		t.Fatalf("%v exited %d: %s", args, r.code, r.err)
	}
	return r.out
}

func newProject(t *testing.T) string {
	t.Helper()
	isolate(t)
	dir := filepath.Join(t.TempDir(), "proj")
	mustRun(t, "init", dir, "Demo")
	return dir
}

func elements(t *testing.T, dir string) domain.Elements {
	t.Helper()
	ph, err := storage.Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return ph.Composition.Elements
}

func TestVersionAndUsage(t *testing.T) {
	if out := mustRun(t, "version"); !strings.Contains(out, "Zone Canvas") {
		t.Fatalf("version output: %q", out)
	}
	if out := mustRun(t); !strings.Contains(out, "add-image") {
		t.Fatalf("usage should list commands: %q", out)
	}
	if r := runCLI(t, nil, "", "frobnicate"); r.code != 2 {
		t.Fatalf("unknown command exit = %d; want 2", r.code)
	}
}

func TestInitAddAndMoveClampsToActiveZone(t *testing.T) {
	dir := newProject(t)
	mustRun(t, "add-text", "-dir", dir, "hello", "world")
	els := elements(t, dir)
	if len(els) != 1 || els[0].(domain.Text).Text != "hello world" {
		t.Fatalf("unexpected elements: %+v", els)
	}
	id := els[0].ElementID()
	out := mustRun(t, "move", "-dir", dir, id, "1000", "1000")
	if !strings.Contains(out, "(100, 170)") {
		t.Fatalf("move output: %q", out)
	}
	if g := elements(t, dir)[0].Geom(); g.X != 100 || g.Y != 170 {
		t.Fatalf("saved geometry = %+v", g)
	}
	for _, bad := range [][]string{{"NaN", "0"}, {"0", "+Inf"}} {
		if r := runCLI(t, nil, "", append([]string{"move", "-dir", dir, id}, bad...)...); r.code != 2 {
			t.Fatalf("move %v exit = %d; want 2", bad, r.code)
		}
	}
	if r := runCLI(t, nil, "", "resize", "-dir", dir, "-rotation", "NaN", id, "50", "50"); r.code != 2 {
		t.Fatalf("resize with NaN rotation exit = %d; want 2", r.code)
	}
	if g := elements(t, dir)[0].Geom(); g.X != 100 || g.Y != 170 || g.Width != 150 {
		t.Fatalf("rejected input changed the element: %+v", g)
	}
}

func TestZoneSwitchAffectsPlacement(t *testing.T) {
	dir := newProject(t)
	out := mustRun(t, "zone", "-dir", dir, "C")
	if !strings.Contains(out, "* C") {
		t.Fatalf("zone output: %q", out)
	}
	mustRun(t, "add-image", "-dir", dir, "cat.png")
	if g := elements(t, dir)[0].Geom(); g.X != 570 || g.Y != 70 {
		t.Fatalf("image placed at %v,%v; want 570,70", g.X, g.Y)
	}
	if r := runCLI(t, nil, "", "zone", "-dir", dir, "Z"); r.code != 1 {
		t.Fatalf("unknown zone exit = %d; want 1", r.code)
	}
}

func TestResizeAndRotate(t *testing.T) {
	dir := newProject(t)
	mustRun(t, "add-text", "-dir", dir, "t")
	id := elements(t, dir)[0].ElementID()
	out := mustRun(t, "resize", "-dir", dir, "-rotation", "45", id, "300", "60")
	if !strings.Contains(out, "300x60 rot 45") {
		t.Fatalf("resize output: %q", out)
	}
	mustRun(t, "resize", "-dir", dir, id, "1", "1")
	if g := elements(t, dir)[0].Geom(); g.Width != 5 || g.Height != 5 || g.Rotation != 45 {
		t.Fatalf("size floor not applied: %+v", g)
	}
}

func TestLayerSwap(t *testing.T) {
	dir := newProject(t)
	mustRun(t, "add-text", "-dir", dir, "first")
	time.Sleep(2 * time.Millisecond)
	mustRun(t, "add-text", "-dir", dir, "second")
	mustRun(t, "layer", "-dir", dir, "0", "down")
	els := elements(t, dir)
	if els[0].(domain.Text).Text != "second" {
		t.Fatalf("layer swap failed: %+v", els)
	}
	before, _ := os.ReadFile(filepath.Join(dir, storage.ManifestFileName))
	if out := mustRun(t, "layer", "-dir", dir, "0", "up"); !strings.Contains(out, "order unchanged") {
		t.Fatalf("moving the back layer up should be a no-op: %q", out)
	}
	after, _ := os.ReadFile(filepath.Join(dir, storage.ManifestFileName))
	if !bytes.Equal(before, after) {
		t.Fatalf("no-op layer move rewrote the manifest")
	}
	if r := runCLI(t, nil, "", "layer", "-dir", dir, "0", "sideways"); r.code != 2 {
		t.Fatalf("bad direction exit = %d; want 2", r.code)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	dir := newProject(t)
	mustRun(t, "add-image", "-dir", dir, "https://example.com/a.png")
	mustRun(t, "add-text", "-dir", dir, "caption")
	file := filepath.Join(t.TempDir(), "out.json")
	mustRun(t, "export", "-dir", dir, "-o", file)
	want, _ := os.ReadFile(file)

	other := filepath.Join(t.TempDir(), "other")
	mustRun(t, "init", other)
	if out := mustRun(t, "import", "-dir", other, file); !strings.Contains(out, "Imported 2 elements") {
		t.Fatalf("import output: %q", out)
	}
	got := mustRun(t, "export", "-dir", other)
	if strings.TrimSpace(got) != strings.TrimSpace(string(want)) {
		t.Fatalf("round trip mismatch:\n%s\nvs\n%s", got, want)
	}
}

func TestImportInvalidLeavesProjectUntouched(t *testing.T) {
	dir := newProject(t)
	mustRun(t, "add-text", "-dir", dir, "keep")
	r := runCLI(t, nil, "{}", "import", "-dir", dir, "-")
	if r.code != 1 || !strings.Contains(r.err, "Error: JSON must be an array.") {
		t.Fatalf("import {} = %d %q", r.code, r.err)
	}
	if els := elements(t, dir); len(els) != 1 {
		t.Fatalf("store changed after failed import: %+v", els)
	}
}

func TestImportLenientKeepsUnknownEntries(t *testing.T) {
	dir := newProject(t)
	in := `[{"id":"s1","type":"shape","radius":3}]`
	if r := runCLI(t, nil, in, "import", "-dir", dir, "-"); r.code != 1 {
		t.Fatalf("strict import should fail, exit %d", r.code)
	}
	r := runCLI(t, nil, in, "import", "-dir", dir, "-policy", "lenient", "-")
	if r.code != 0 {
		t.Fatalf("lenient import exit %d: %s", r.code, r.err)
	}
	out := mustRun(t, "export", "-dir", dir)
	if !strings.Contains(out, `"radius": 3`) {
		t.Fatalf("unknown entry not passed through: %s", out)
	}
	if r := runCLI(t, nil, in, "import", "-dir", dir, "-policy", "loose", "-"); r.code != 2 {
		t.Fatalf("bad policy exit = %d; want 2", r.code)
	}
}

func TestClipboardExportIsRecordedInHistory(t *testing.T) {
	dir := newProject(t)
	mustRun(t, "add-text", "-dir", dir, "clip me")
	clip := &clipboard.Memory{}
	r := runCLI(t, clip, "", "export", "-dir", dir, "-clipboard")
	if r.code != 0 || !strings.Contains(r.out, "Copied to clipboard!") {
		t.Fatalf("clipboard export = %d %q %q", r.code, r.out, r.err)
	}
	text, _ := clip.ReadText()
	if !strings.Contains(text, "clip me") {
		t.Fatalf("clipboard holds %q", text)
	}
	hist := mustRun(t, "history", "-dir", dir)
	if !strings.Contains(hist, "clipboard") {
		t.Fatalf("history output: %q", hist)
	}
	latest := mustRun(t, "history", "-dir", dir, "-latest")
	if strings.TrimSpace(latest) != strings.TrimSpace(text) {
		t.Fatalf("latest payload differs from clipboard")
	}
	if out := mustRun(t, "history", "-dir", dir, "-prune", "5"); !strings.Contains(out, "Removed 0 entries") {
		t.Fatalf("prune output: %q", out)
	}
	if out := mustRun(t, "history", "-dir", dir, "-check"); !strings.Contains(out, "History OK") {
		t.Fatalf("check output: %q", out)
	}
}

func TestClipboardFailureReportsError(t *testing.T) {
	dir := newProject(t)
	r := runCLI(t, &clipboard.Memory{Fail: errors.New("no display")}, "", "export", "-dir", dir, "-clipboard")
	if r.code != 1 || !strings.Contains(r.err, "Error copying") {
		t.Fatalf("export with broken clipboard = %d %q", r.code, r.err)
	}
}

func TestRenderWritesPNG(t *testing.T) {
	dir := newProject(t)
	mustRun(t, "add-text", "-dir", dir, "render me")
	out := mustRun(t, "render", "-dir", dir, "-format", "png", "-background", "none")
	path := strings.TrimSpace(out)
	if filepath.Dir(path) != filepath.Join(dir, storage.ExportsDirName) {
		t.Fatalf("rendered to %q", path)
	}
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		t.Fatalf("png not written: %v", err)
	}
}

func TestPackUnpack(t *testing.T) {
	dir := newProject(t)
	mustRun(t, "add-text", "-dir", dir, "bundled")
	zip := filepath.Join(t.TempDir(), "b.zip")
	mustRun(t, "pack", "-dir", dir, zip)
	dst := filepath.Join(t.TempDir(), "restored")
	mustRun(t, "unpack", zip, dst)
	if els := elements(t, dst); len(els) != 1 {
		t.Fatalf("unpacked elements: %+v", els)
	}
}

func TestPublishRequiresToken(t *testing.T) {
	dir := newProject(t)
	r := runCLI(t, nil, "", "publish", "-dir", dir)
	if r.code != 1 || !strings.Contains(r.err, "token set") {
		t.Fatalf("publish without token = %d %q", r.code, r.err)
	}
}

// memRepo keeps published compositions in memory.
type memRepo struct {
	mu    sync.Mutex
	items []backend.Composition
	blobs map[uuid.UUID][]byte
}

func (m *memRepo) Create(_ context.Context, c backend.Composition, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blobs == nil {
		m.blobs = map[uuid.UUID][]byte{}
	}
	m.items = append(m.items, c)
	m.blobs[c.ID] = append([]byte(nil), payload...)
	return nil
}

func (m *memRepo) List(_ context.Context, limit int) ([]backend.Composition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]backend.Composition(nil), m.items...), nil
}

func (m *memRepo) Get(_ context.Context, id uuid.UUID) (backend.Composition, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.ID == id {
			return it, m.blobs[id], nil
		}
	}
	return backend.Composition{}, nil, backend.ErrNotFound
}

func (m *memRepo) Ping(context.Context) error { return nil }

func TestPublishListAndPull(t *testing.T) {
	dir := newProject(t)
	mustRun(t, "add-text", "-dir", dir, "shared")

	const secret = "test-secret"
	srv, err := backend.NewServer(backend.Config{Secret: secret}, &memRepo{})
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	t.Setenv(config.EnvBackendURL, ts.URL)
	tok, _, err := backend.IssueToken(secret, "tester", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := config.SaveToken(tok); err != nil {
		t.Fatalf("save token: %v", err)
	}

	out := mustRun(t, "publish", "-dir", dir)
	if !strings.Contains(out, "(1 elements)") {
		t.Fatalf("publish output: %q", out)
	}
	fields := strings.Fields(out)
	id := fields[1]
	if list := mustRun(t, "published"); !strings.Contains(list, id) || !strings.Contains(list, "Demo") {
		t.Fatalf("published list: %q", list)
	}
	if hist := mustRun(t, "history", "-dir", dir); !strings.Contains(hist, "publish") {
		t.Fatalf("publish not recorded: %q", hist)
	}

	other := filepath.Join(t.TempDir(), "other")
	mustRun(t, "init", other)
	mustRun(t, "pull", "-dir", other, id)
	els := elements(t, other)
	if len(els) != 1 || els[0].(domain.Text).Text != "shared" {
		t.Fatalf("pulled elements: %+v", els)
	}
}

func TestTokenIssueNeedsSecret(t *testing.T) {
	isolate(t)
	t.Setenv(config.EnvServerSecret, "")
	if r := runCLI(t, nil, "", "token", "issue", "me"); r.code != 1 {
		t.Fatalf("issue without secret exit = %d", r.code)
	}
	t.Setenv(config.EnvServerSecret, "s")
	if out := mustRun(t, "token", "issue", "me"); strings.Count(strings.TrimSpace(out), ".") < 1 {
		t.Fatalf("token output: %q", out)
	}
	mustRun(t, "token", "set", "abc")
	if tok, _ := config.LoadToken(); tok != "abc" {
		t.Fatalf("stored token = %q", tok)
	}
	mustRun(t, "token", "clear")
	if tok, _ := config.LoadToken(); tok != "" {
		t.Fatalf("token not cleared: %q", tok)
	}
}
