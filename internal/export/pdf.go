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
	"fmt"
	"image/png"
	"io"

	"github.com/jung-kurt/gofpdf"
	"zonecanvas/internal/domain"
	"zonecanvas/internal/scene"
	"zonecanvas/internal/vector"
	"zonecanvas/internal/version"
)

// PDF output maps one canvas pixel to one point. Text uses the built-in
// Helvetica so nothing needs embedding.
func buildPDF(ctx context.Context, f scene.Frame, opt Options, title string) *gofpdf.Fpdf {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: f.Width, Ht: f.Height},
	})
	pdf.SetTitle(title, true)
	pdf.SetCreator(version.String(), true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	imgSeq := 0

	placeImage := func(src string, x, y, w, h float64) bool {
		img, ok := opt.image(ctx, src)
		if !ok {
			return false
		}
		var b bytes.Buffer
		if err := png.Encode(&b, img); err != nil {
			return false
		}
		imgSeq++
		name := fmt.Sprintf("img%d", imgSeq)
		iopt := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, iopt, &b)
		pdf.ImageOptions(name, x, y, w, h, false, iopt, 0, "")
		return true
	}

	for _, d := range drawables(f, opt) {
		switch d.Layer {
		case scene.LayerBackground:
			setFillColor(pdf, vector.White)
			pdf.Rect(0, 0, f.Width, f.Height, "F")
			if d.Source != "" {
				placeImage(d.Source, 0, 0, f.Width, f.Height)
			}
		case scene.LayerZone:
			r, st := d.Node.Local(), d.Node.Stroke()
			setDrawColor(pdf, st.Color)
			pdf.SetLineWidth(float64(st.Width))
			if len(st.Dash) > 0 {
				dash := make([]float64, len(st.Dash))
				for i, v := range st.Dash {
					dash[i] = float64(v)
				}
				pdf.SetDashPattern(dash, 0)
			}
			pdf.Rect(float64(r.X), float64(r.Y), float64(r.W), float64(r.H), "D")
			pdf.SetDashPattern([]float64{}, 0)
		case scene.LayerElement:
			g := d.Element.Geom()
			pdf.TransformBegin()
			if g.Rotation != 0 {
				// gofpdf turns counter-clockwise for positive angles
				pdf.TransformRotate(-g.Rotation, g.X, g.Y)
			}
			switch el := d.Element.(type) {
			case domain.Image:
				placeImage(el.Src, g.X, g.Y, g.Width, g.Height)
			case domain.Text:
				size := fontSize(el)
				pdf.SetFont("Helvetica", "", size)
				pdf.SetTextColor(0, 0, 0)
				y := g.Y + size*0.8
				for _, ln := range pdf.SplitText(tr(el.Text), g.Width) {
					pdf.Text(g.X, y, ln)
					y += size * 1.15
				}
			}
			pdf.TransformEnd()
		}
	}
	return pdf
}

// EncodePDF writes a single-page PDF of the composition to w.
func EncodePDF(ctx context.Context, w io.Writer, f scene.Frame, opt Options, title string) error {
	pdf := buildPDF(ctx, f, opt, title)
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// WritePDF renders the composition to a PDF file at path.
func WritePDF(ctx context.Context, path string, f scene.Frame, opt Options, title string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	pdf := buildPDF(ctx, f, opt, title)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func setDrawColor(pdf *gofpdf.Fpdf, c vector.Color) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c vector.Color) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
