/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
	"zonecanvas/internal/domain"
	"zonecanvas/internal/scene"
	"zonecanvas/internal/textlayout"
	"zonecanvas/internal/vector"
)

// RenderImage paints the composition into an RGBA image.
func RenderImage(ctx context.Context, f scene.Frame, opt Options) *image.RGBA {
	s := opt.scale()
	pixW := int(math.Round(f.Width * s))
	pixH := int(math.Round(f.Height * s))
	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	global := vector.Scale(float32(s), float32(s))

	for _, d := range drawables(f, opt) {
		switch d.Layer {
		case scene.LayerBackground:
			if bg, ok := opt.image(ctx, d.Source); ok {
				draw.CatmullRom.Scale(img, img.Bounds(), bg, bg.Bounds(), draw.Over, nil)
			}
		case scene.LayerZone:
			st := d.Node.Stroke()
			r := global.Bounds(d.Node.Local())
			strokeRect(img, r, toRGBA(st.Color), max(1, int(math.Round(float64(st.Width)*s))), len(st.Dash) > 0)
		case scene.LayerElement:
			xf := global.Mul(d.Node.Transform())
			switch el := d.Element.(type) {
			case domain.Image:
				src, ok := opt.image(ctx, el.Src)
				if !ok {
					continue
				}
				sb := src.Bounds()
				m := xf.Mul(vector.Scale(float32(el.Width)/float32(sb.Dx()), float32(el.Height)/float32(sb.Dy())))
				m = m.Mul(vector.Translate(-float32(sb.Min.X), -float32(sb.Min.Y)))
				draw.CatmullRom.Transform(img, f64.Aff3(toAff(m)), src, sb, draw.Over, nil)
			case domain.Text:
				tile := textTile(el, s, opt.fonts())
				m := xf.Mul(vector.Scale(float32(1/s), float32(1/s)))
				draw.BiLinear.Transform(img, f64.Aff3(toAff(m)), tile, tile.Bounds(), draw.Over, nil)
			}
		}
	}
	return img
}

// textTile rasterizes a text element at output resolution in its local frame.
func textTile(t domain.Text, s float64, fonts textlayout.Provider) *image.RGBA {
	w := max(1, int(math.Ceil(t.Width*s)))
	h := max(1, int(math.Ceil(t.Height*s)))
	tile := image.NewRGBA(image.Rect(0, 0, w, h))
	spec := textlayout.FontSpec{SizePx: float32(fontSize(t) * s)}
	face, met := fonts.Resolve(spec)
	box := textlayout.Layout(fonts, spec, t.Text, float32(w))
	d := &font.Drawer{Dst: tile, Src: image.NewUniform(color.Black), Face: face}
	y := met.Ascent
	for _, ln := range box.Lines {
		d.Dot = fixed.Point26_6{X: 0, Y: fixed.I(int(math.Round(float64(y))))}
		d.DrawString(ln.Text)
		y += met.LineHeight()
	}
	return tile
}

func toRGBA(c vector.Color) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// strokeRect draws an axis-aligned rectangle border of the given width.
// Dashed borders alternate 4px on and 4px off.
func strokeRect(img *image.RGBA, r vector.Rect, col color.RGBA, width int, dashed bool) {
	x0, y0 := int(math.Round(float64(r.X))), int(math.Round(float64(r.Y)))
	x1, y1 := int(math.Round(float64(r.X+r.W)))-1, int(math.Round(float64(r.Y+r.H)))-1
	on := func(i int) bool { return !dashed || (i/4)%2 == 0 }
	for k := 0; k < width; k++ {
		for x := x0; x <= x1; x++ {
			if on(x - x0) {
				img.SetRGBA(x, y0+k, col)
				img.SetRGBA(x, y1-k, col)
			}
		}
		for y := y0; y <= y1; y++ {
			if on(y - y0) {
				img.SetRGBA(x0+k, y, col)
				img.SetRGBA(x1-k, y, col)
			}
		}
	}
}

// EncodePNG renders and writes PNG data to w.
func EncodePNG(ctx context.Context, w io.Writer, f scene.Frame, opt Options) error {
	if err := png.Encode(w, RenderImage(ctx, f, opt)); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// WritePNG renders the composition to a PNG file at path.
func WritePNG(ctx context.Context, path string, f scene.Frame, opt Options) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := EncodePNG(ctx, out, f, opt); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}
	return nil
}
