/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// DefaultFamily is the family served by the embedded Go Regular font.
const DefaultFamily = "Go"

// FontLibrary stores parsed OpenType fonts by family name.
type FontLibrary struct {
	mu    sync.Mutex
	fonts map[string]*opentype.Font
	faces map[faceKey]font.Face
}

type faceKey struct {
	family string
	size   float32
	dpi    float64
}

func NewFontLibrary() *FontLibrary {
	return &FontLibrary{fonts: make(map[string]*opentype.Font), faces: make(map[faceKey]font.Face)}
}

// WithDefault returns a library preloaded with Go Regular.
func WithDefault() *FontLibrary {
	fl := NewFontLibrary()
	if err := fl.Add(DefaultFamily, goregular.TTF); err != nil {
		// embedded font data is fixed at build time
		panic(err)
	}
	return fl
}

// Add parses font data and registers it under family.
func (fl *FontLibrary) Add(family string, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", family, err)
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	fl.fonts[family] = f
	return nil
}

// LoadTTF loads a font file into the library under family.
func (fl *FontLibrary) LoadTTF(family, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	return fl.Add(family, data)
}

func (fl *FontLibrary) face(spec FontSpec, dpi float64) (font.Face, error) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	fam := spec.Family
	if _, ok := fl.fonts[fam]; !ok {
		fam = DefaultFamily
	}
	f, ok := fl.fonts[fam]
	if !ok {
		return nil, fmt.Errorf("font family %q not loaded", spec.Family)
	}
	k := faceKey{family: fam, size: spec.SizePx, dpi: dpi}
	if face, ok := fl.faces[k]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: float64(spec.SizePx), DPI: dpi, Hinting: font.HintingFull})
	if err != nil {
		return nil, err
	}
	fl.faces[k] = face
	return face, nil
}

// OTProvider resolves FontSpec using a FontLibrary and falls back to another
// Provider. Sizes are pixels, so the default DPI is 72.
type OTProvider struct {
	Lib      *FontLibrary
	DPI      float64
	Fallback Provider
}

func (p OTProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	if spec.SizePx <= 0 {
		spec.SizePx = 12
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}
	if p.Lib != nil {
		if face, err := p.Lib.face(spec, dpi); err == nil {
			return face, metricsOf(face)
		}
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}
