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
	"path/filepath"
	"strings"

	"zonecanvas/internal/scene"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb    PresetName = "web"
	PresetPrint  PresetName = "print"
	PresetReview PresetName = "review"
)

// BatchOptions controls rendering one composition into several formats.
//
// Files are named <Base>.<format> inside OutDir. Formats empty means the
// preset defaults; IncludeZones, when set, overrides the preset default.
type BatchOptions struct {
	Preset       PresetName
	Formats      []string // allowed: png, svg, pdf
	OutDir       string
	Base         string // file name stem; defaults to "canvas"
	Title        string
	Scale        float64
	IncludeZones *bool
	Options      Options // Images/Fonts shared by all formats
}

// Batch renders f in every requested format and returns the written paths.
func Batch(ctx context.Context, f scene.Frame, opt BatchOptions) ([]string, error) {
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	base := opt.Base
	if base == "" {
		base = "canvas"
	}
	o := opt.Options
	o.IncludeZones = presetIncludeZones(opt.Preset)
	if opt.IncludeZones != nil {
		o.IncludeZones = *opt.IncludeZones
	}
	o.Scale = presetScale(opt.Preset)
	if opt.Scale > 0 {
		o.Scale = opt.Scale
	}

	var written []string
	for _, raw := range formats {
		format := strings.ToLower(strings.TrimSpace(raw))
		out := filepath.Join(opt.OutDir, base+"."+format)
		var err error
		switch format {
		case "png":
			err = WritePNG(ctx, out, f, o)
		case "svg":
			err = WriteSVG(ctx, out, f, o)
		case "pdf":
			err = WritePDF(ctx, out, f, o, opt.Title)
		default:
			return written, fmt.Errorf("unknown format: %s", raw)
		}
		if err != nil {
			return written, fmt.Errorf("%s: %w", format, err)
		}
		written = append(written, out)
	}
	return written, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"png", "svg"}
	case PresetPrint:
		return []string{"pdf", "png"}
	default:
		return []string{"png"}
	}
}

func presetIncludeZones(p PresetName) bool {
	return p == PresetReview
}

func presetScale(p PresetName) float64 {
	if p == PresetPrint {
		return 2
	}
	return 1
}
