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
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"io"
	"os"
	"strings"

	"zonecanvas/internal/domain"
	"zonecanvas/internal/scene"
	"zonecanvas/internal/textlayout"
)

// EncodeSVG writes the composition as SVG. Coordinates are canvas pixels.
// Image sources are referenced by URL; when Options.Images resolves a
// source it is inlined as a PNG data URI so the file is self-contained.
func EncodeSVG(ctx context.Context, w io.Writer, f scene.Frame, opt Options) error {
	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" xmlns:xlink=\"http://www.w3.org/1999/xlink\" version=\"1.1\" width=\"%gpx\" height=\"%gpx\" viewBox=\"0 0 %g %g\">\n", f.Width, f.Height, f.Width, f.Height)
	for _, d := range drawables(f, opt) {
		switch d.Layer {
		case scene.LayerBackground:
			wf("  <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" fill=\"#ffffff\"/>\n", f.Width, f.Height)
			if d.Source != "" {
				wf("  <image x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" preserveAspectRatio=\"none\" xlink:href=\"%s\"/>\n", f.Width, f.Height, escAttr(inlineSrc(ctx, d.Source, opt)))
			}
		case scene.LayerZone:
			r, st := d.Node.Local(), d.Node.Stroke()
			dash := ""
			if len(st.Dash) > 0 {
				parts := make([]string, len(st.Dash))
				for i, v := range st.Dash {
					parts[i] = fmt.Sprintf("%g", v)
				}
				dash = fmt.Sprintf(" stroke-dasharray=\"%s\"", strings.Join(parts, " "))
			}
			wf("  <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"none\" stroke=\"%s\" stroke-width=\"%g\"%s/>\n", r.X, r.Y, r.W, r.H, st.Color.Hex(), st.Width, dash)
		case scene.LayerElement:
			g := d.Element.Geom()
			tr := fmt.Sprintf("translate(%g %g)", g.X, g.Y)
			if g.Rotation != 0 {
				tr += fmt.Sprintf(" rotate(%g)", g.Rotation)
			}
			switch el := d.Element.(type) {
			case domain.Image:
				wf("  <image id=\"el-%s\" transform=\"%s\" width=\"%g\" height=\"%g\" preserveAspectRatio=\"none\" xlink:href=\"%s\"/>\n", escAttr(el.ID), tr, el.Width, el.Height, escAttr(inlineSrc(ctx, el.Src, opt)))
			case domain.Text:
				size := fontSize(el)
				box := textlayout.Layout(opt.fonts(), textlayout.FontSpec{SizePx: float32(size)}, el.Text, float32(el.Width))
				wf("  <g id=\"el-%s\" transform=\"%s\">\n", escAttr(el.ID), tr)
				y := box.Metrics.Ascent
				for _, ln := range box.Lines {
					wf("    <text x=\"0\" y=\"%g\" font-family=\"Go, Helvetica, Arial, sans-serif\" font-size=\"%g\" fill=\"#000\">%s</text>\n", y, size, escText(ln.Text))
					y += box.Metrics.LineHeight()
				}
				wf("  </g>\n")
			}
		}
	}
	wf("</svg>\n")
	if werr != nil {
		return fmt.Errorf("build svg: %w", werr)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// inlineSrc returns a PNG data URI for src when it can be resolved locally,
// otherwise src unchanged.
func inlineSrc(ctx context.Context, src string, opt Options) string {
	if strings.HasPrefix(src, "data:") {
		return src
	}
	img, ok := opt.image(ctx, src)
	if !ok {
		return src
	}
	var b bytes.Buffer
	if err := png.Encode(&b, img); err != nil {
		return src
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(b.Bytes())
}

// WriteSVG renders the composition to an SVG file at path.
func WriteSVG(ctx context.Context, path string, f scene.Frame, opt Options) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := EncodeSVG(ctx, &buf, f, opt); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func escAttr(s string) string {
	r := strings.NewReplacer("&", "&amp;", "\"", "&quot;", "<", "&lt;", ">", "&gt;", "\n", " ", "\r", "")
	return r.Replace(s)
}

func escText(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
