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
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"zonecanvas/internal/clipboard"
	"zonecanvas/internal/codec"
	"zonecanvas/internal/config"
	"zonecanvas/internal/crash"
	"zonecanvas/internal/domain"
	"zonecanvas/internal/editor"
	applog "zonecanvas/internal/log"
	"zonecanvas/internal/storage"
	"zonecanvas/internal/telemetry"
	"zonecanvas/internal/version"
)

type command struct {
	name  string
	args  string
	help  string
	run   func(c *cli, args []string) error
	plain bool // runs without loading config (version, help)
}

var commands []command

func init() {
	commands = []command{
		{name: "version", help: "Show version", run: cmdVersion, plain: true},
		{name: "init", args: "<dir> [name]", help: "Create a project with an empty canvas", run: cmdInit},
		{name: "info", args: "[-dir D]", help: "Print the composition summary and layers", run: cmdInfo},
		{name: "zone", args: "[-dir D] [key]", help: "List zones or set the active zone", run: cmdZone},
		{name: "add-image", args: "[-dir D] [-zone K] <src>", help: "Add an image to the active zone", run: cmdAddImage},
		{name: "add-text", args: "[-dir D] [-zone K] <text>", help: "Add a text element to the active zone", run: cmdAddText},
		{name: "move", args: "[-dir D] <id> <x> <y>", help: "Drag an element, clamped to the active zone", run: cmdMove},
		{name: "resize", args: "[-dir D] [-rotation deg] <id> <width> <height>", help: "Resize or rotate an element", run: cmdResize},
		{name: "layer", args: "[-dir D] <index> up|down", help: "Swap a layer with its neighbour", run: cmdLayer},
		{name: "export", args: "[-dir D] [-o file] [-clipboard]", help: "Export the elements as JSON", run: cmdExport},
		{name: "import", args: "[-dir D] [-policy strict|lenient] [-clipboard] [file|-]", help: "Replace the elements from JSON", run: cmdImport},
		{name: "render", args: "[-dir D] [-preset web|print|review] [-format png,svg,pdf] [-out dir]", help: "Render the composition to files", run: cmdRender},
		{name: "history", args: "[-dir D] [-limit N] [-prune N] [-latest] [-check]", help: "Show, prune or check the export history", run: cmdHistory},
		{name: "publish", args: "[-dir D] [-name N]", help: "Publish the composition to the server", run: cmdPublish},
		{name: "published", args: "[-limit N]", help: "List published compositions", run: cmdPublished},
		{name: "pull", args: "[-dir D] <id>", help: "Import a published composition", run: cmdPull},
		{name: "token", args: "issue <subject> [-ttl d] | set <token> | clear", help: "Manage publish tokens", run: cmdToken},
		{name: "serve", args: "[-addr A] [-dsn DSN]", help: "Run the publish server", run: cmdServe},
		{name: "pack", args: "[-dir D] <bundle.zip>", help: "Zip the project for sharing", run: cmdPack},
		{name: "unpack", args: "<bundle.zip> <dir>", help: "Extract a bundle into a project dir", run: cmdUnpack},
		{name: "ui", args: "[dir]", help: "Launch desktop UI (build with -tags fyne)", run: cmdUI},
	}
}

// usageError marks bad command lines; they exit with status 2.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, a ...any) error { return usageError{msg: fmt.Sprintf(format, a...)} }

// cli carries what every command needs. ph and sess are set once a command
// opens a project so a panic can still autosave it.
type cli struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	cfg   config.AppConfig
	token string
	tele  *telemetry.Client
	l     *slog.Logger
	clip  clipboard.Clipboard
	now   func() time.Time

	policy *codec.Policy
	ph     *storage.ProjectHandle
	sess   *editor.Session
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Zone Canvas")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  zonecanvas %-10s %-58s %s\n", cmd.name, cmd.args, cmd.help)
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, in io.Reader, out, errOut io.Writer) int {
	return newCLI(in, out, errOut).execute(args)
}

func newCLI(in io.Reader, out, errOut io.Writer) *cli {
	return &cli{in: in, out: out, errOut: errOut, clip: clipboard.System{}, now: time.Now}
}

func (c *cli) execute(args []string) int {
	defer crash.Guard(c)
	return c.dispatch(args)
}

func (c *cli) dispatch(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(c.out)
		return 0
	}
	name := args[0]
	if name == "-v" || name == "--version" {
		name = "version"
	}
	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		fmt.Fprintf(c.errOut, "unknown command %q\n\n", name)
		usage(c.errOut)
		return 2
	}
	if !cmd.plain {
		c.setup()
		defer c.teardown()
	}
	err := cmd.run(c, args[1:])
	var ue usageError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 2
	case errors.As(err, &ue):
		fmt.Fprintf(c.errOut, "%s: %s\nusage: zonecanvas %s %s\n", cmd.name, ue.msg, cmd.name, cmd.args)
		return 2
	default:
		if c.l != nil {
			c.l.Error("command failed", slog.String("cmd", cmd.name), slog.Any("err", err))
		}
		fmt.Fprintln(c.errOut, "Error:", err)
		return 1
	}
}

// setup loads configuration, logging and telemetry. The config file's logging
// section applies unless ZC_LOG_* variables are set.
func (c *cli) setup() {
	cfg, tok, err := config.Load()
	c.cfg, c.token = cfg, tok
	applog.Init(cfg.Logging.LogOptions())
	c.l = applog.WithComponent("cli")
	if err != nil {
		c.l.Warn("config load failed, using defaults", slog.Any("err", err))
	}
	c.tele = telemetry.New(telemetry.FromEnv().WithOptIn(cfg.General.TelemetryOptIn))
	telemetry.SetDefault(c.tele)
}

func (c *cli) teardown() {
	if c.sess != nil {
		c.sess.Close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c.tele.Flush(ctx)
	c.tele.Close()
}

// Project and Latest let crash.Guard autosave whatever the command opened.
func (c *cli) Project() *storage.ProjectHandle { return c.ph }

func (c *cli) Latest() domain.Composition {
	if c.sess == nil {
		if c.ph != nil {
			return c.ph.Composition
		}
		return domain.Composition{}
	}
	name := ""
	if c.ph != nil {
		name = c.ph.Composition.Name
	}
	return c.sess.Composition(name)
}

// flags returns a flag set that reports errors to the command's stderr.
func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	return fs
}

// open loads the project at dir and starts an editing session over it.
func (c *cli) open(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	c.l.Debug("open project", slog.String("root", abs))
	ph, err := storage.Open(abs)
	if err != nil {
		return err
	}
	c.ph = ph
	zones, err := c.cfg.Registry()
	if err != nil {
		return err
	}
	policy, err := c.cfg.Import.Policy()
	if err != nil {
		return err
	}
	if c.policy != nil {
		policy = *c.policy
	}
	active := ph.Composition.ActiveZone
	if _, err := zones.Lookup(active); active != "" && err != nil {
		c.l.Warn("stored active zone unknown, using default", slog.String("zone", string(active)))
		active = ""
	}
	sess, err := editor.New(editor.Options{
		Zones:       zones,
		ActiveZone:  active,
		Clipboard:   c.clip,
		Policy:      policy,
		StatusClear: c.cfg.Canvas.StatusClear(),
		Logger:      c.l,
		Now:         c.now,
		OnEvent:     c.tele.Event,
	}, ph.Composition.Elements...)
	if err != nil {
		return err
	}
	c.sess = sess
	return nil
}

// save writes the session back to canvas.json.
func (c *cli) save() error {
	c.ph.Composition = c.Latest()
	return storage.Save(c.ph)
}

// record adds payload to the project's export history. Failures are logged
// only; the export itself already happened.
func (c *cli) record(payload []byte, source string, elements int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := storage.RecordExport(ctx, c.ph, payload, source, elements, c.now()); err != nil {
		c.l.Warn("record export failed", slog.Any("err", err))
	}
}

func cmdVersion(c *cli, _ []string) error {
	fmt.Fprintln(c.out, "Zone Canvas")
	fmt.Fprintln(c.out, version.String())
	return nil
}

func dirFlag(fs *flag.FlagSet) *string {
	return fs.String("dir", ".", "project directory")
}

func joinArgs(args []string) string { return strings.Join(args, " ") }
