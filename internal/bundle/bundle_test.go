/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package bundle

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"zonecanvas/internal/domain"
	"zonecanvas/internal/storage"
)

func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	comp := domain.Composition{Name: "demo", Elements: domain.Elements{
		domain.Image{ID: "1", Src: "assets/cat.png", Geometry: domain.Geometry{X: 70, Y: 70, Width: 100, Height: 100}},
	}}
	if _, err := storage.InitProject(root, comp); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, storage.AssetsDirName, "cat.png"), []byte("png-bytes"), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}
	return root
}

func TestPackAndUnpack(t *testing.T) {
	src := newProject(t)
	zipPath := filepath.Join(t.TempDir(), "out", "demo.zip")
	n, err := Pack(src, zipPath)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if n != 2 {
		t.Fatalf("packed %d files; want 2", n)
	}

	dst := filepath.Join(t.TempDir(), "copy")
	got, err := Unpack(zipPath, dst)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if got != 2 {
		t.Fatalf("unpacked %d files; want 2", got)
	}
	if _, err := os.Stat(filepath.Join(dst, InfoFileName)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("info file should not be extracted: %v", err)
	}
	ph, err := storage.Open(dst)
	if err != nil {
		t.Fatalf("open unpacked: %v", err)
	}
	if ph.Composition.Name != "demo" || len(ph.Composition.Elements) != 1 {
		t.Fatalf("unexpected composition: %+v", ph.Composition)
	}
	b, err := os.ReadFile(filepath.Join(dst, storage.AssetsDirName, "cat.png"))
	if err != nil || string(b) != "png-bytes" {
		t.Fatalf("asset = %q, %v", b, err)
	}

	// A second unpack keeps existing files.
	again, err := Unpack(zipPath, dst)
	if err != nil {
		t.Fatalf("unpack again: %v", err)
	}
	if again != 0 {
		t.Fatalf("second unpack wrote %d files; want 0", again)
	}
}

func TestPackRequiresManifest(t *testing.T) {
	if _, err := Pack(t.TempDir(), filepath.Join(t.TempDir(), "x.zip")); err == nil {
		t.Fatalf("expected error for directory without manifest")
	}
	if _, err := Pack("", "x.zip"); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

func writeZip(t *testing.T, files map[string]string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "b.zip")
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	_ = f.Close()
	return p
}

func TestUnpackRejectsMissingManifest(t *testing.T) {
	p := writeZip(t, map[string]string{"assets/a.png": "x"})
	if _, err := Unpack(p, t.TempDir()); !errors.Is(err, ErrNoManifest) {
		t.Fatalf("err = %v; want ErrNoManifest", err)
	}
}

func TestUnpackRejectsPathTraversal(t *testing.T) {
	p := writeZip(t, map[string]string{
		storage.ManifestFileName: `{"name":"x","elements":[]}`,
		"../evil.txt":            "boom",
	})
	dst := filepath.Join(t.TempDir(), "proj")
	if _, err := Unpack(p, dst); err == nil {
		t.Fatalf("expected traversal error")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dst), "evil.txt")); err == nil {
		t.Fatalf("file escaped the project dir")
	}
}

func TestUnpackRejectsOversizedEntries(t *testing.T) {
	old := maxEntryBytes
	maxEntryBytes = 16
	t.Cleanup(func() { maxEntryBytes = old })

	p := writeZip(t, map[string]string{
		storage.ManifestFileName: `{"name":"x","elements":[]}`,
		"assets/big.png":         strings.Repeat("p", 100),
	})
	dst := filepath.Join(t.TempDir(), "proj")
	n, err := Unpack(p, dst)
	if !errors.Is(err, ErrEntryTooLarge) {
		t.Fatalf("err = %v; want ErrEntryTooLarge", err)
	}
	if n != 0 {
		t.Fatalf("installed %d files from a rejected bundle", n)
	}
	for _, name := range []string{storage.ManifestFileName, filepath.Join("assets", "big.png")} {
		if _, err := os.Stat(filepath.Join(dst, name)); err == nil {
			t.Fatalf("%s written from a rejected bundle", name)
		}
	}
}
