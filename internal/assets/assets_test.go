/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeDataURI(t *testing.T) {
	src := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 3, 2))
	img, err := Decode(context.Background(), nil, src)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
		t.Fatalf("bounds %v", b)
	}
}

func TestDecodeFileAndHTTP(t *testing.T) {
	data := pngBytes(t, 4, 4)
	p := filepath.Join(t.TempDir(), "a.png")
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(context.Background(), nil, p); err != nil {
		t.Fatalf("file decode: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	defer srv.Close()
	if _, err := Decode(context.Background(), srv.Client(), srv.URL+"/ok.png"); err != nil {
		t.Fatalf("http decode: %v", err)
	}
	if _, err := Decode(context.Background(), srv.Client(), srv.URL+"/missing.png"); err == nil {
		t.Fatalf("expected 404 error")
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, err := Decode(context.Background(), nil, "data:text/plain,hello"); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := Decode(context.Background(), nil, "data:broken"); err == nil {
		t.Fatalf("expected malformed URI error")
	}
}

func TestLoaderAsyncAndNoRetry(t *testing.T) {
	l := NewLoader()
	good := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 1, 1))
	done := make(chan struct{}, 1)
	l.Request(good, func() { done <- struct{}{} })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("load did not finish")
	}
	if _, st := l.Get(good); st != Ready {
		t.Fatalf("state %v", st)
	}

	bad := filepath.Join(t.TempDir(), "nope.png")
	if _, ok := l.Wait(context.Background(), bad); ok {
		t.Fatalf("missing file should fail")
	}
	if err := os.WriteFile(bad, pngBytes(t, 1, 1), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := l.Wait(context.Background(), bad); ok {
		t.Fatalf("failed sources must not be retried")
	}
}
