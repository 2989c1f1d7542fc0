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
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"zonecanvas/internal/assets"
	"zonecanvas/internal/backend"
	"zonecanvas/internal/bundle"
	"zonecanvas/internal/codec"
	"zonecanvas/internal/config"
	"zonecanvas/internal/constraint"
	"zonecanvas/internal/domain"
	"zonecanvas/internal/editor"
	"zonecanvas/internal/export"
	"zonecanvas/internal/scene"
	"zonecanvas/internal/storage"
	"zonecanvas/internal/store"
	"zonecanvas/internal/telemetry"
	"zonecanvas/internal/ui"
)

func cmdInit(c *cli, args []string) error {
	if len(args) < 1 {
		return usagef("init requires <dir>")
	}
	abs, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	name := filepath.Base(abs)
	if len(args) > 1 {
		name = joinArgs(args[1:])
	}
	zones, err := c.cfg.Registry()
	if err != nil {
		return err
	}
	ph, err := storage.InitProject(abs, domain.Composition{Name: name, ActiveZone: zones.First()})
	if err != nil {
		return err
	}
	c.ph = ph
	fmt.Fprintln(c.out, "Created project at", abs)
	return nil
}

func cmdInfo(c *cli, args []string) error {
	fs := c.flags("info")
	dir := dirFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.open(*dir); err != nil {
		return err
	}
	comp := c.Latest()
	fmt.Fprintf(c.out, "Composition: %s\n", comp.Name)
	fmt.Fprintf(c.out, "Root: %s\n", c.ph.Root)
	fmt.Fprintf(c.out, "Active zone: %s\n", c.sess.ActiveZone())
	fmt.Fprintf(c.out, "Elements: %d\n", len(comp.Elements))
	printLayers(c.out, c.sess)
	return nil
}

func printLayers(w io.Writer, s *editor.Session) {
	if len(s.Layers()) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tLAYER\tX\tY\tW\tH\tROT")
	for _, row := range s.Layers() {
		el, _ := s.Element(row.ID)
		if _, raw := el.(domain.Raw); raw || el == nil {
			fmt.Fprintf(tw, "%d\t%s\t-\t-\t-\t-\t-\n", row.Index, row.Label)
			continue
		}
		g := el.Geom()
		fmt.Fprintf(tw, "%d\t%s\t%g\t%g\t%g\t%g\t%g\n", row.Index, row.Label, g.X, g.Y, g.Width, g.Height, g.Rotation)
	}
	_ = tw.Flush()
}

func cmdZone(c *cli, args []string) error {
	fs := c.flags("zone")
	dir := dirFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.open(*dir); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		if err := c.sess.SetActiveZone(domain.ZoneKey(fs.Arg(0))); err != nil {
			return err
		}
		if err := c.save(); err != nil {
			return err
		}
	}
	zones := c.sess.Zones()
	for _, k := range zones.Keys() {
		z, _ := zones.Lookup(k)
		mark := " "
		if k == c.sess.ActiveZone() {
			mark = "*"
		}
		fmt.Fprintf(c.out, "%s %-4s x=%g y=%g w=%g h=%g\n", mark, k, z.X, z.Y, z.Width, z.Height)
	}
	return nil
}

// addFlags parses the flags shared by add-image and add-text and opens the project.
func (c *cli) addFlags(name string, args []string) ([]string, error) {
	fs := c.flags(name)
	dir := dirFlag(fs)
	zoneKey := fs.String("zone", "", "zone to place into (becomes the active zone)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() == 0 {
		return nil, usagef("missing content")
	}
	if err := c.open(*dir); err != nil {
		return nil, err
	}
	if *zoneKey != "" {
		if err := c.sess.SetActiveZone(domain.ZoneKey(*zoneKey)); err != nil {
			return nil, err
		}
	}
	return fs.Args(), nil
}

func cmdAddImage(c *cli, args []string) error {
	rest, err := c.addFlags("add-image", args)
	if err != nil {
		return err
	}
	el, err := c.sess.AddImage(rest[0])
	if err != nil {
		return err
	}
	return c.reportAdded(el)
}

func cmdAddText(c *cli, args []string) error {
	rest, err := c.addFlags("add-text", args)
	if err != nil {
		return err
	}
	el, err := c.sess.AddText(joinArgs(rest))
	if err != nil {
		return err
	}
	return c.reportAdded(el)
}

func (c *cli) reportAdded(el domain.Element) error {
	if err := c.save(); err != nil {
		return err
	}
	g := el.Geom()
	fmt.Fprintf(c.out, "Added %s at (%g, %g) in zone %s\n", editor.Label(el), g.X, g.Y, c.sess.ActiveZone())
	return nil
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, usagef("%q is not a number", a)
		}
		out[i] = v
	}
	return out, nil
}

// cmdMove runs a full drag gesture so the drop is clamped to the active zone
// exactly like a pointer drag.
func cmdMove(c *cli, args []string) error {
	fs := c.flags("move")
	dir := dirFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 3 {
		return usagef("move requires <id> <x> <y>")
	}
	xy, err := parseFloats(fs.Args()[1:])
	if err != nil {
		return err
	}
	if err := c.open(*dir); err != nil {
		return err
	}
	id := fs.Arg(0)
	if err := c.sess.BeginDrag(id); err != nil {
		return err
	}
	pos, err := c.sess.DragMove(id, constraint.Point{X: xy[0], Y: xy[1]})
	if err != nil {
		return err
	}
	el, err := c.sess.EndDrag(id, pos)
	if err != nil {
		return err
	}
	if err := c.save(); err != nil {
		return err
	}
	g := el.Geom()
	fmt.Fprintf(c.out, "%s -> (%g, %g)\n", editor.Label(el), g.X, g.Y)
	return nil
}

// cmdResize commits a transform gesture: the requested size becomes handle
// scale factors that the session bakes back into width and height.
func cmdResize(c *cli, args []string) error {
	fs := c.flags("resize")
	dir := dirFlag(fs)
	rot := fs.String("rotation", "", "rotation in degrees (default: keep)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 3 {
		return usagef("resize requires <id> <width> <height>")
	}
	wh, err := parseFloats(fs.Args()[1:])
	if err != nil {
		return err
	}
	if err := c.open(*dir); err != nil {
		return err
	}
	id := fs.Arg(0)
	el, ok := c.sess.Element(id)
	if !ok {
		return fmt.Errorf("%w: %s", editor.ErrUnknownElement, id)
	}
	g := el.Geom()
	res := editor.TransformResult{X: g.X, Y: g.Y, Rotation: g.Rotation, ScaleX: 1, ScaleY: 1}
	if g.Width > 0 {
		res.ScaleX = wh[0] / g.Width
	}
	if g.Height > 0 {
		res.ScaleY = wh[1] / g.Height
	}
	if *rot != "" {
		r, err := parseFloats([]string{*rot})
		if err != nil {
			return err
		}
		res.Rotation = r[0]
	}
	c.sess.Select(id)
	if err := c.sess.BeginTransform(id); err != nil {
		return err
	}
	el, err = c.sess.EndTransform(id, res)
	if err != nil {
		return err
	}
	if err := c.save(); err != nil {
		return err
	}
	g = el.Geom()
	fmt.Fprintf(c.out, "%s -> %gx%g rot %g\n", editor.Label(el), g.Width, g.Height, g.Rotation)
	return nil
}

func cmdLayer(c *cli, args []string) error {
	fs := c.flags("layer")
	dir := dirFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return usagef("layer requires <index> up|down")
	}
	idx, err := strconv.Atoi(fs.Arg(0))
	if err != nil {
		return usagef("index %q is not an integer", fs.Arg(0))
	}
	var d store.Direction
	switch strings.ToLower(fs.Arg(1)) {
	case "up":
		d = store.Up
	case "down":
		d = store.Down
	default:
		return usagef("direction must be up or down")
	}
	if err := c.open(*dir); err != nil {
		return err
	}
	if !c.sess.MoveLayer(idx, d) {
		fmt.Fprintf(c.out, "Layer %d cannot move %s; order unchanged\n", idx, strings.ToLower(fs.Arg(1)))
		printLayers(c.out, c.sess)
		return nil
	}
	if err := c.save(); err != nil {
		return err
	}
	printLayers(c.out, c.sess)
	return nil
}

func cmdExport(c *cli, args []string) error {
	fs := c.flags("export")
	dir := dirFlag(fs)
	out := fs.String("o", "", "write to file instead of stdout")
	clip := fs.Bool("clipboard", false, "copy to the clipboard")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.open(*dir); err != nil {
		return err
	}
	n := len(c.sess.Elements())
	if *clip {
		payload, err := c.sess.Export()
		if err != nil {
			return err
		}
		c.record(payload, storage.SourceClipboard, n)
		fmt.Fprintln(c.out, c.sess.Status())
		return nil
	}
	payload, err := codec.Export(c.sess.Elements())
	c.tele.Event(telemetry.EventExport, map[string]any{"count": n, "ok": err == nil})
	if err != nil {
		return err
	}
	if *out == "" {
		_, err = fmt.Fprintln(c.out, string(payload))
		return err
	}
	if err := os.WriteFile(*out, append(payload, '\n'), 0o644); err != nil {
		return err
	}
	c.record(payload, storage.SourceFile, n)
	fmt.Fprintf(c.errOut, "Exported %d elements to %s\n", n, *out)
	return nil
}

func cmdImport(c *cli, args []string) error {
	fs := c.flags("import")
	dir := dirFlag(fs)
	pol := fs.String("policy", "", "validation policy: strict or lenient (default from config)")
	clip := fs.Bool("clipboard", false, "read from the clipboard")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *pol != "" {
		p, err := codec.ParsePolicy(*pol)
		if err != nil {
			return usageError{msg: err.Error()}
		}
		c.policy = &p
	}
	if err := c.open(*dir); err != nil {
		return err
	}
	var err error
	if *clip {
		err = c.sess.ImportClipboard()
	} else {
		var data []byte
		data, err = readInput(c.in, fs.Arg(0))
		if err != nil {
			return err
		}
		err = c.sess.Import(data)
	}
	if err != nil {
		fmt.Fprintln(c.errOut, c.sess.Status())
		return err
	}
	if err := c.save(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Imported %d elements\n", len(c.sess.Elements()))
	return nil
}

func readInput(in io.Reader, name string) ([]byte, error) {
	if name == "" || name == "-" {
		return io.ReadAll(in)
	}
	return os.ReadFile(name)
}

// frame builds the paint description of the open session.
func (c *cli) frame(background string) scene.Frame {
	return scene.Frame{
		Width:      float64(c.cfg.Canvas.Width),
		Height:     float64(c.cfg.Canvas.Height),
		Background: background,
		Zones:      c.sess.Zones(),
		Active:     c.sess.ActiveZone(),
		Elements:   c.sess.Elements(),
	}
}

func cmdRender(c *cli, args []string) error {
	fs := c.flags("render")
	dir := dirFlag(fs)
	preset := fs.String("preset", string(export.PresetWeb), "web, print or review")
	formats := fs.String("format", "", "comma separated: png,svg,pdf (default from preset)")
	outDir := fs.String("out", "", "output directory (default <project>/exports)")
	base := fs.String("base", "canvas", "output file name stem")
	scale := fs.Float64("scale", 0, "raster scale factor (default from preset)")
	zones := fs.Bool("zones", false, "draw zone outlines (default from preset)")
	bg := fs.String("background", "", "background image; \"none\" disables it (default from config)")
	timeout := fs.Duration("timeout", time.Minute, "overall render timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.open(*dir); err != nil {
		return err
	}
	opt := export.BatchOptions{
		Preset:  export.PresetName(*preset),
		OutDir:  *outDir,
		Base:    *base,
		Title:   c.ph.Composition.Name,
		Scale:   *scale,
		Options: export.Options{Images: assets.NewLoader()},
	}
	if opt.OutDir == "" {
		opt.OutDir = filepath.Join(c.ph.Root, storage.ExportsDirName)
	}
	if *formats != "" {
		opt.Formats = strings.Split(*formats, ",")
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "zones" {
			opt.IncludeZones = zones
		}
	})
	background := c.cfg.Canvas.Background
	switch *bg {
	case "":
	case "none":
		background = ""
	default:
		background = *bg
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	paths, err := export.Batch(ctx, c.frame(background), opt)
	c.tele.Event(telemetry.EventRender, map[string]any{"formats": len(paths), "ok": err == nil})
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(c.out, p)
	}
	return nil
}

func cmdHistory(c *cli, args []string) error {
	fs := c.flags("history")
	dir := dirFlag(fs)
	limit := fs.Int("limit", 20, "entries to list")
	prune := fs.Int("prune", 0, "keep only the newest N entries")
	latest := fs.Bool("latest", false, "print the newest exported payload")
	check := fs.Bool("check", false, "verify the history database, replacing it when damaged")
	if err := fs.Parse(args); err != nil {
		return err
	}
	abs, err := filepath.Abs(*dir)
	if err != nil {
		return err
	}
	ph, err := storage.Open(abs)
	if err != nil {
		return err
	}
	c.ph = ph
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	switch {
	case *check:
		replaced, err := storage.RecoverHistory(ctx, abs)
		if err != nil {
			return err
		}
		if replaced {
			fmt.Fprintln(c.out, "History was damaged and has been reset; the old file is in .zc/backups")
		} else {
			fmt.Fprintln(c.out, "History OK")
		}
	case *prune > 0:
		n, err := storage.PruneExports(ctx, ph, *prune)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Removed %d entries\n", n)
	case *latest:
		rec, err := storage.LatestExport(ctx, ph)
		if err != nil {
			return err
		}
		if rec == nil {
			return errors.New("no exports recorded")
		}
		fmt.Fprintln(c.out, string(rec.Payload))
	default:
		recs, err := storage.ListExports(ctx, ph, *limit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tWHEN\tSOURCE\tELEMENTS")
		for _, r := range recs {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", r.ID, r.TS.Local().Format(time.DateTime), r.Source, r.Elements)
		}
		_ = tw.Flush()
	}
	return nil
}

func (c *cli) client() (*backend.Client, error) {
	if c.token == "" {
		return nil, errors.New("no publish token; run: zonecanvas token set <token>")
	}
	return backend.NewClient(c.cfg.Backend.BaseURL, c.token, c.cfg.Backend.Timeout(), c.cfg.Backend.TLSInsecure), nil
}

func cmdPublish(c *cli, args []string) error {
	fs := c.flags("publish")
	dir := dirFlag(fs)
	name := fs.String("name", "", "published name (default: composition name)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cl, err := c.client()
	if err != nil {
		return err
	}
	if err := c.open(*dir); err != nil {
		return err
	}
	if *name == "" {
		*name = c.ph.Composition.Name
	}
	payload, err := codec.Export(c.sess.Elements())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Backend.Timeout())
	defer cancel()
	pub, err := cl.Publish(ctx, *name, payload)
	c.tele.Event(telemetry.EventPublish, map[string]any{"ok": err == nil})
	if err != nil {
		return err
	}
	c.record(payload, storage.SourcePublish, pub.Elements)
	fmt.Fprintf(c.out, "Published %s (%d elements)\n", pub.ID, pub.Elements)
	return nil
}

func cmdPublished(c *cli, args []string) error {
	fs := c.flags("published")
	limit := fs.Int("limit", 50, "entries to list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cl, err := c.client()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Backend.Timeout())
	defer cancel()
	items, err := cl.List(ctx, *limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tELEMENTS\tCREATED")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", it.ID, it.Name, it.Elements, it.CreatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func cmdPull(c *cli, args []string) error {
	fs := c.flags("pull")
	dir := dirFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usagef("pull requires <id>")
	}
	id, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return usagef("invalid id %q", fs.Arg(0))
	}
	cl, err := c.client()
	if err != nil {
		return err
	}
	if err := c.open(*dir); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Backend.Timeout())
	defer cancel()
	payload, err := cl.Fetch(ctx, id)
	if err != nil {
		return err
	}
	if err := c.sess.Import(payload); err != nil {
		return err
	}
	if err := c.save(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Imported %d elements from %s\n", len(c.sess.Elements()), id)
	return nil
}

func cmdToken(c *cli, args []string) error {
	if len(args) == 0 {
		return usagef("missing subcommand")
	}
	switch args[0] {
	case "issue":
		fs := c.flags("token issue")
		ttl := fs.Duration("ttl", 30*24*time.Hour, "token lifetime")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return usagef("token issue requires <subject>")
		}
		secret := config.ServerSecret()
		if secret == "" {
			return fmt.Errorf("%s is not set", config.EnvServerSecret)
		}
		tok, exp, err := backend.IssueToken(secret, fs.Arg(0), *ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, tok)
		fmt.Fprintf(c.errOut, "expires %s\n", exp.Local().Format(time.RFC3339))
		return nil
	case "set":
		if len(args) != 2 {
			return usagef("token set requires <token>")
		}
		if err := config.SaveToken(strings.TrimSpace(args[1])); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Token stored in the OS keychain")
		return nil
	case "clear":
		if err := config.DeleteToken(); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Token removed")
		return nil
	}
	return usagef("unknown subcommand %q", args[0])
}

func cmdServe(c *cli, args []string) error {
	fs := c.flags("serve")
	addr := fs.String("addr", c.cfg.Server.Addr, "listen address")
	dsn := fs.String("dsn", c.cfg.Server.DatabaseURL, "Postgres connection string")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dsn == "" {
		return fmt.Errorf("no database; set %s or server.database_url", config.EnvPGDSN)
	}
	policy, err := c.cfg.Import.Policy()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	repo, err := backend.OpenPG(ctx, *dsn)
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close() }()
	srv, err := backend.NewServer(backend.Config{Addr: *addr, Secret: config.ServerSecret(), Policy: policy}, repo)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.errOut, "Listening on", *addr)
	return srv.ListenAndServe(ctx)
}

func cmdPack(c *cli, args []string) error {
	fs := c.flags("pack")
	dir := dirFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usagef("pack requires <bundle.zip>")
	}
	n, err := bundle.Pack(*dir, fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Packed %d files into %s\n", n, fs.Arg(0))
	return nil
}

func cmdUnpack(c *cli, args []string) error {
	if len(args) != 2 {
		return usagef("unpack requires <bundle.zip> <dir>")
	}
	n, err := bundle.Unpack(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Unpacked %d files into %s\n", n, args[1])
	return nil
}

func cmdUI(_ *cli, args []string) error {
	var dir string
	if len(args) > 0 {
		dir = args[0]
	}
	return ui.Run(dir)
}
