/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package bundle moves a project between machines as a single zip: the
// canvas.json manifest plus the assets directory holding local images.
package bundle

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "zonecanvas/internal/log"
	"zonecanvas/internal/storage"
)

// InfoFileName is a human readable note at the archive root.
const InfoFileName = "zonecanvas.bundle.txt"

// MaxEntryBytes caps a single extracted file.
const MaxEntryBytes = 64 << 20

// ErrNoManifest is returned when an archive holds no canvas.json.
var ErrNoManifest = errors.New("bundle has no " + storage.ManifestFileName)

// ErrEntryTooLarge is returned for entries over MaxEntryBytes.
var ErrEntryTooLarge = fmt.Errorf("bundle entry larger than %d bytes", MaxEntryBytes)

// maxEntryBytes is MaxEntryBytes; tests lower it.
var maxEntryBytes int64 = MaxEntryBytes

// Pack writes the manifest and assets of the project at projectRoot into a
// zip at destZipPath. A missing assets directory is not an error.
func Pack(projectRoot string, destZipPath string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("bundle"), "pack").With(slog.String("project", projectRoot))
	if strings.TrimSpace(projectRoot) == "" {
		return 0, errors.New("projectRoot is required")
	}
	if strings.TrimSpace(destZipPath) == "" {
		return 0, errors.New("destZipPath is required")
	}
	manifest := filepath.Join(projectRoot, storage.ManifestFileName)
	if _, err := os.Stat(manifest); err != nil {
		return 0, fmt.Errorf("stat manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(destZipPath), 0o755); err != nil {
		return 0, fmt.Errorf("ensure zip dir: %w", err)
	}
	// Windows refuses to create over an existing file.
	_ = os.Remove(destZipPath)

	zf, err := os.Create(destZipPath)
	if err != nil {
		return 0, fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)

	info := fmt.Sprintf("Zone Canvas bundle\nCreated: %s\nProject: %s\n\nUnpack with: zonecanvas unpack <bundle.zip> <dir>\n",
		time.Now().Format(time.RFC3339), filepath.Base(projectRoot))
	w, err := zw.Create(InfoFileName)
	if err != nil {
		return 0, fmt.Errorf("add info: %w", err)
	}
	if _, err := io.WriteString(w, info); err != nil {
		return 0, fmt.Errorf("write info: %w", err)
	}

	added := 0
	add := func(path string) error {
		rel, err := filepath.Rel(projectRoot, path)
		if err != nil {
			return err
		}
		fw, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		if _, err := io.Copy(fw, f); err != nil {
			return err
		}
		added++
		return nil
	}
	if err := add(manifest); err != nil {
		return 0, fmt.Errorf("add manifest: %w", err)
	}
	assetsDir := filepath.Join(projectRoot, storage.AssetsDirName)
	err = filepath.WalkDir(assetsDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && path == assetsDir {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		return add(path)
	})
	if err != nil {
		l.Error("zip build failed", slog.Any("err", err))
		return added, fmt.Errorf("build zip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return added, fmt.Errorf("finish zip: %w", err)
	}
	l.Info("bundle packed", slog.Int("files", added), slog.String("zip", destZipPath))
	return added, nil
}

// Unpack extracts a bundle into projectRoot. Existing files are kept and
// skipped; entries that would land outside projectRoot are rejected.
// Returns the count of files written.
func Unpack(packZipPath string, projectRoot string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("bundle"), "unpack").With(slog.String("project", projectRoot))
	if strings.TrimSpace(projectRoot) == "" {
		return 0, errors.New("projectRoot is required")
	}
	if strings.TrimSpace(packZipPath) == "" {
		return 0, errors.New("packZipPath is required")
	}
	r, err := zip.OpenReader(packZipPath)
	if err != nil {
		return 0, fmt.Errorf("open bundle: %w", err)
	}
	defer func() { _ = r.Close() }()

	hasManifest := false
	for _, f := range r.File {
		if f.Name == storage.ManifestFileName {
			hasManifest = true
		}
		if f.UncompressedSize64 > uint64(maxEntryBytes) {
			return 0, fmt.Errorf("%s: %w", f.Name, ErrEntryTooLarge)
		}
	}
	if !hasManifest {
		return 0, ErrNoManifest
	}
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return 0, fmt.Errorf("ensure project dir: %w", err)
	}

	installed := 0
	for _, f := range r.File {
		if f.Name == InfoFileName {
			continue
		}
		target := filepath.Join(root, filepath.FromSlash(f.Name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return installed, fmt.Errorf("entry %q escapes project dir", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return installed, err
			}
			continue
		}
		if _, err := os.Stat(target); err == nil {
			l.Warn("skip existing file", slog.String("path", target))
			continue
		}
		if err := extract(f, target); err != nil {
			return installed, err
		}
		installed++
	}
	l.Info("bundle unpacked", slog.Int("files", installed))
	return installed, nil
}

func extract(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	// The header size can lie; read one byte past the cap to notice.
	n, err := io.Copy(out, io.LimitReader(rc, maxEntryBytes+1))
	if err == nil && n > maxEntryBytes {
		err = fmt.Errorf("%s: %w", f.Name, ErrEntryTooLarge)
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(target)
	}
	return err
}
