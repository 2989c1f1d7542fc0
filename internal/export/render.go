/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package export renders a composition offline to PNG, SVG or PDF. All
// renderers paint the same drawables the interactive surface gets, minus
// transform handles.
package export

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"zonecanvas/internal/domain"
	"zonecanvas/internal/scene"
	"zonecanvas/internal/textlayout"
	"zonecanvas/internal/vector"
)

// ImageSource resolves an image src; *assets.Loader satisfies it.
type ImageSource interface {
	Wait(ctx context.Context, src string) (image.Image, bool)
}

// Options controls every exporter.
//   - Scale multiplies raster output size (PNG only); 0 means 1.
//   - IncludeZones draws the zone outlines like the editor does.
//   - Images resolves background and element images; nil skips them.
//   - Fonts rasterizes text (PNG only); nil uses the embedded Go font.
type Options struct {
	Scale        float64
	IncludeZones bool
	Images       ImageSource
	Fonts        textlayout.Provider
}

func (o Options) scale() float64 {
	if o.Scale <= 0 {
		return 1
	}
	return o.Scale
}

func (o Options) fonts() textlayout.Provider {
	if o.Fonts == nil {
		return textlayout.OTProvider{Lib: defaultFonts}
	}
	return o.Fonts
}

var defaultFonts = textlayout.WithDefault()

// drawables returns the paint list without handles, and optionally without zones.
func drawables(f scene.Frame, opt Options) []scene.Drawable {
	f.Selected = ""
	all := scene.Compose(f)
	out := all[:0]
	for _, d := range all {
		if d.Layer == scene.LayerZone && !opt.IncludeZones {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (o Options) image(ctx context.Context, src string) (image.Image, bool) {
	if o.Images == nil || src == "" {
		return nil, false
	}
	return o.Images.Wait(ctx, src)
}

func fontSize(el domain.Element) float64 {
	if t, ok := el.(domain.Text); ok && t.FontSize > 0 {
		return t.FontSize
	}
	return 20
}

// toAff maps vector's [a b c d e f] layout to the row-major form used by
// x/image/draw.
func toAff(m vector.Affine2D) [6]float64 {
	return [6]float64{float64(m.A), float64(m.C), float64(m.E), float64(m.B), float64(m.D), float64(m.F)}
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	return nil
}
