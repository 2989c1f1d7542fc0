//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"zonecanvas/internal/assets"
	"zonecanvas/internal/config"
	"zonecanvas/internal/crash"
	"zonecanvas/internal/domain"
	"zonecanvas/internal/editor"
	"zonecanvas/internal/export"
	applog "zonecanvas/internal/log"
	"zonecanvas/internal/scene"
	"zonecanvas/internal/storage"
	"zonecanvas/internal/store"
	"zonecanvas/internal/telemetry"
	"zonecanvas/internal/vector"
	"zonecanvas/internal/version"
)

// Run starts the desktop editor. projectDir, when set, is opened, or created
// when it holds no canvas.json yet.
func Run(projectDir string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	cfg, _, err := config.Load()
	if err != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", err))
	}
	zones, err := cfg.Registry()
	if err != nil {
		return err
	}
	policy, err := cfg.Import.Policy()
	if err != nil {
		return err
	}
	tele := telemetry.New(telemetry.FromEnv().WithOptIn(cfg.General.TelemetryOptIn))
	defer tele.Close()
	telemetry.SetDefault(tele)

	a := &shell{l: l, cfg: cfg, loader: assets.NewLoader()}
	sess, err := editor.New(editor.Options{
		Zones:       zones,
		Policy:      policy,
		StatusClear: cfg.Canvas.StatusClear(),
		Logger:      l,
		OnChange:    func() { fyne.Do(a.refresh) },
		OnEvent:     tele.Event,
	})
	if err != nil {
		return err
	}
	defer sess.Close()
	a.sess = sess
	a.ctrl = &Controller{Session: sess, Width: float64(cfg.Canvas.Width), Height: float64(cfg.Canvas.Height), Background: cfg.Canvas.Background}

	defer crash.Guard(a)

	fyneApp := app.NewWithID("zonecanvas")
	a.w = fyneApp.NewWindow("Zone Canvas")
	prefs := fyneApp.Preferences()
	winW := max(prefs.IntWithFallback("window.width", 1200), 900)
	winH := max(prefs.IntWithFallback("window.height", 700), 560)
	a.w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	a.build()
	a.w.SetMainMenu(a.menu())
	a.w.SetCloseIntercept(func() {
		sz := a.w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		a.stopWatching()
		a.w.Close()
	})

	if projectDir != "" {
		if err := a.openOrInit(projectDir); err != nil {
			l.Error("auto-open project failed", slog.Any("err", err))
		}
	}
	a.refresh()
	a.w.ShowAndRun()
	return nil
}

// shell is the window state shared by the menu and panel callbacks.
type shell struct {
	l      *slog.Logger
	cfg    config.AppConfig
	w      fyne.Window
	sess   *editor.Session
	ctrl   *Controller
	loader *assets.Loader
	ph     *storage.ProjectHandle

	canvas    *ZoneCanvas
	status    *widget.Label
	zoneRadio *widget.RadioGroup
	layerList *widget.List
	layers    []editor.Layer

	stopWatch context.CancelFunc
}

// Project and Latest let crash.Guard autosave the open composition.
func (a *shell) Project() *storage.ProjectHandle { return a.ph }

func (a *shell) Latest() domain.Composition {
	name := ""
	if a.ph != nil {
		name = a.ph.Composition.Name
	}
	return a.sess.Composition(name)
}

func (a *shell) build() {
	a.canvas = NewZoneCanvas(a.ctrl, a.loader)
	a.canvas.OnError = func(err error) { a.l.Warn("gesture rejected", slog.Any("err", err)) }
	a.status = widget.NewLabel("")

	keys := a.sess.Zones().Keys()
	opts := make([]string, len(keys))
	for i, k := range keys {
		opts[i] = string(k)
	}
	a.zoneRadio = widget.NewRadioGroup(opts, func(s string) {
		if s == "" || domain.ZoneKey(s) == a.sess.ActiveZone() {
			return
		}
		if err := a.sess.SetActiveZone(domain.ZoneKey(s)); err != nil {
			dialog.ShowError(err, a.w)
		}
	})
	a.zoneRadio.Horizontal = true
	a.zoneRadio.Required = true

	addImage := widget.NewButton("Add Image", a.showAddImage)
	addText := widget.NewButton("Add Text", a.showAddText)
	exportBtn := widget.NewButton("Export JSON", a.exportClipboard)
	importBtn := widget.NewButton("Import JSON", a.showImport)
	pasteBtn := widget.NewButton("Import from Clipboard", func() { _ = a.sess.ImportClipboard() })
	undoBtn := widget.NewButton("Undo", func() { a.sess.Undo() })
	redoBtn := widget.NewButton("Redo", func() { a.sess.Redo() })

	a.layerList = widget.NewList(
		func() int { return len(a.layers) },
		func() fyne.CanvasObject {
			up := widget.NewButton("Up", nil)
			down := widget.NewButton("Down", nil)
			return container.NewBorder(nil, nil, nil, container.NewHBox(up, down), widget.NewLabel("Layer"))
		},
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i >= len(a.layers) {
				return
			}
			row := a.layers[i]
			var lbl *widget.Label
			var up, down *widget.Button
			for _, obj := range o.(*fyne.Container).Objects {
				switch v := obj.(type) {
				case *widget.Label:
					lbl = v
				case *fyne.Container:
					up, down = v.Objects[0].(*widget.Button), v.Objects[1].(*widget.Button)
				}
			}
			lbl.SetText(row.Label)
			if row.Selected {
				lbl.TextStyle = fyne.TextStyle{Bold: true}
			} else {
				lbl.TextStyle = fyne.TextStyle{}
			}
			lbl.Refresh()
			up.OnTapped = func() { a.sess.MoveLayer(row.Index, store.Up) }
			down.OnTapped = func() { a.sess.MoveLayer(row.Index, store.Down) }
			setEnabled(up, row.CanUp)
			setEnabled(down, row.CanDown)
		},
	)
	a.layerList.OnSelected = func(id widget.ListItemID) {
		if id < len(a.layers) {
			a.sess.Select(a.layers[id].ID)
		}
		a.layerList.UnselectAll()
	}

	side := container.NewBorder(
		container.NewVBox(
			widget.NewLabelWithStyle("Zone", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
			a.zoneRadio,
			widget.NewSeparator(),
			addImage, addText,
			widget.NewSeparator(),
			exportBtn, importBtn, pasteBtn,
			container.NewGridWithColumns(2, undoBtn, redoBtn),
			widget.NewSeparator(),
			widget.NewLabelWithStyle("Layers", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		),
		nil, nil, nil,
		a.layerList,
	)
	pane := container.NewBorder(nil, a.status, nil, nil, container.NewScroll(container.NewCenter(a.canvas)))
	split := container.NewHSplit(pane, side)
	split.Offset = 0.72
	a.w.SetContent(split)
}

func setEnabled(b *widget.Button, on bool) {
	if on {
		b.Enable()
	} else {
		b.Disable()
	}
}

// refresh syncs every widget with the session. It must run on the UI goroutine.
func (a *shell) refresh() {
	if a.canvas == nil {
		return
	}
	a.canvas.Refresh()
	a.status.SetText(a.sess.Status())
	a.zoneRadio.SetSelected(string(a.sess.ActiveZone()))
	a.layers = a.sess.Layers()
	a.layerList.Refresh()
	title := "Zone Canvas"
	if a.ph != nil {
		title += " - " + a.ph.Composition.Name
	}
	a.w.SetTitle(title)
}

func (a *shell) showAddImage() {
	src := widget.NewEntry()
	src.SetPlaceHolder("https://... or a local path")
	browse := widget.NewButton("Browse...", func() {
		fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil || rc == nil {
				return
			}
			src.SetText(rc.URI().Path())
			_ = rc.Close()
		}, a.w)
		fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".tif", ".tiff"}))
		fd.Show()
	})
	dialog.ShowForm("Add Image", "Add", "Cancel", []*widget.FormItem{
		widget.NewFormItem("Source", src),
		widget.NewFormItem("", browse),
	}, func(ok bool) {
		if !ok {
			return
		}
		el, err := a.sess.AddImage(strings.TrimSpace(src.Text))
		if errors.Is(err, editor.ErrEmptySource) {
			return
		}
		if err != nil {
			dialog.ShowError(err, a.w)
			return
		}
		a.loader.Request(el.(domain.Image).Src, func() { fyne.Do(a.canvas.Refresh) })
	}, a.w)
}

func (a *shell) showAddText() {
	txt := widget.NewEntry()
	txt.SetPlaceHolder("Enter text")
	dialog.ShowForm("Add Text", "Add", "Cancel", []*widget.FormItem{
		widget.NewFormItem("Text", txt),
	}, func(ok bool) {
		if !ok {
			return
		}
		if _, err := a.sess.AddText(txt.Text); err != nil && !errors.Is(err, editor.ErrEmptyText) {
			dialog.ShowError(err, a.w)
		}
	}, a.w)
}

func (a *shell) exportClipboard() {
	payload, err := a.sess.Export()
	if err != nil {
		a.l.Warn("export failed", slog.Any("err", err))
		return
	}
	ph := a.ph
	if ph == nil {
		return
	}
	n := len(a.sess.Elements())
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := storage.RecordExport(ctx, ph, payload, storage.SourceClipboard, n, time.Now()); err != nil {
			a.l.Warn("record export failed", slog.Any("err", err))
		}
	}()
}

func (a *shell) showImport() {
	in := widget.NewMultiLineEntry()
	in.SetPlaceHolder(`[{"id":"1","type":"text","text":"Hello",...}]`)
	in.SetMinRowsVisible(12)
	d := dialog.NewCustomConfirm("Import JSON", "Import", "Cancel", in, func(ok bool) {
		if !ok {
			return
		}
		// Failures surface through the session status line.
		if err := a.sess.Import([]byte(in.Text)); err == nil {
			a.preload()
		}
	}, a.w)
	d.Resize(fyne.NewSize(560, 380))
	d.Show()
}

// preload starts decoding every image source so the canvas fills in.
func (a *shell) preload() {
	for _, el := range a.sess.Elements() {
		if im, ok := el.(domain.Image); ok {
			a.loader.Request(im.Src, func() { fyne.Do(a.canvas.Refresh) })
		}
	}
	if a.ctrl.Background != "" {
		a.loader.Request(a.ctrl.Background, func() { fyne.Do(a.canvas.Refresh) })
	}
}

func (a *shell) menu() *fyne.MainMenu {
	newItem := fyne.NewMenuItem("New...", func() {
		dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil || uri == nil {
				return
			}
			name := widget.NewEntry()
			name.SetText(filepath.Base(uri.Path()))
			dialog.ShowForm("New Composition", "Create", "Cancel", []*widget.FormItem{
				widget.NewFormItem("Name", name),
			}, func(ok bool) {
				if !ok {
					return
				}
				comp := domain.Composition{Name: strings.TrimSpace(name.Text), ActiveZone: a.sess.ActiveZone()}
				ph, err := storage.InitProject(uri.Path(), comp)
				if err != nil {
					dialog.ShowError(err, a.w)
					return
				}
				a.attach(ph)
			}, a.w)
		}, a.w)
	})
	openItem := fyne.NewMenuItem("Open...", func() {
		dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil || uri == nil {
				return
			}
			if err := a.open(uri.Path()); err != nil {
				dialog.ShowError(err, a.w)
			}
		}, a.w)
	})
	saveItem := fyne.NewMenuItem("Save", a.save)
	saveItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault}
	historyItem := fyne.NewMenuItem("Export History...", a.showHistory)
	fileMenu := fyne.NewMenu("File", newItem, openItem, saveItem, fyne.NewMenuItemSeparator(), historyItem)

	undoItem := fyne.NewMenuItem("Undo", func() { a.sess.Undo() })
	undoItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault}
	redoItem := fyne.NewMenuItem("Redo", func() { a.sess.Redo() })
	redoItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierShortcutDefault}
	editMenu := fyne.NewMenu("Edit", undoItem, redoItem)

	renderMenu := fyne.NewMenu("Render",
		fyne.NewMenuItem("PNG...", func() { a.render(".png") }),
		fyne.NewMenuItem("SVG...", func() { a.render(".svg") }),
		fyne.NewMenuItem("PDF...", func() { a.render(".pdf") }),
	)

	aboutItem := fyne.NewMenuItem("About Zone Canvas", func() {
		exe, _ := os.Executable()
		info := fmt.Sprintf("Zone Canvas\nVersion: %s\nOS: %s\nArch: %s\nGo: %s\nExecutable: %s",
			version.String(), runtime.GOOS, runtime.GOARCH, runtime.Version(), exe)
		dialog.ShowInformation("About", info, a.w)
	})
	return fyne.NewMainMenu(fileMenu, editMenu, renderMenu, fyne.NewMenu("Help", aboutItem))
}

func (a *shell) openOrInit(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(abs, storage.ManifestFileName)); errors.Is(err, os.ErrNotExist) {
		ph, err := storage.InitProject(abs, domain.Composition{Name: filepath.Base(abs), ActiveZone: a.sess.ActiveZone()})
		if err != nil {
			return err
		}
		a.attach(ph)
		return nil
	}
	return a.open(abs)
}

func (a *shell) open(dir string) error {
	a.l.Info("open project", slog.String("root", dir))
	ph, err := storage.Open(dir)
	if err != nil {
		return err
	}
	a.load(ph.Composition)
	a.attach(ph)
	return nil
}

// load replaces the session contents with c.
func (a *shell) load(c domain.Composition) {
	a.sess.Reset(c.Elements)
	if c.ActiveZone != "" {
		if err := a.sess.SetActiveZone(c.ActiveZone); err != nil {
			a.l.Warn("stored active zone unknown", slog.String("zone", string(c.ActiveZone)))
		}
	}
	a.preload()
}

// attach makes ph the current project and watches it for outside edits.
func (a *shell) attach(ph *storage.ProjectHandle) {
	a.stopWatching()
	a.ph = ph
	a.refresh()

	wt, err := storage.NewWatcher(ph, func(c domain.Composition) {
		fyne.Do(func() {
			if a.ph != ph {
				return
			}
			dialog.ShowConfirm("Composition changed", storage.ManifestFileName+" was changed outside the editor. Reload it?", func(ok bool) {
				if ok {
					a.load(c)
				}
			}, a.w)
		})
	})
	if err != nil {
		a.l.Warn("watch failed", slog.Any("err", err))
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.stopWatch = cancel
	go func() {
		if err := wt.Run(ctx); err != nil {
			a.l.Warn("watcher stopped", slog.Any("err", err))
		}
	}()
}

func (a *shell) stopWatching() {
	if a.stopWatch != nil {
		a.stopWatch()
		a.stopWatch = nil
	}
}

func (a *shell) save() {
	if a.ph == nil {
		dialog.ShowInformation("Save", "Create or open a project first (File > New or Open).", a.w)
		return
	}
	a.ph.Composition = a.Latest()
	if err := storage.Save(a.ph); err != nil {
		dialog.ShowError(err, a.w)
		return
	}
	a.status.SetText("Saved " + a.ph.ManifestPath)
}

func (a *shell) showHistory() {
	if a.ph == nil {
		dialog.ShowInformation("Export History", "Open a project first.", a.w)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	recs, err := storage.ListExports(ctx, a.ph, 50)
	if err != nil {
		dialog.ShowError(err, a.w)
		return
	}
	list := widget.NewList(
		func() int { return len(recs) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			r := recs[i]
			o.(*widget.Label).SetText(fmt.Sprintf("%s  %-9s %d elements", r.TS.Local().Format("2006-01-02 15:04:05"), r.Source, r.Elements))
		},
	)
	picked := -1
	list.OnSelected = func(id widget.ListItemID) { picked = id }
	d := dialog.NewCustomConfirm("Export History", "Restore", "Close", list, func(ok bool) {
		if !ok || picked < 0 || picked >= len(recs) {
			return
		}
		if err := a.sess.Import(recs[picked].Payload); err == nil {
			a.preload()
		}
	}, a.w)
	d.Resize(fyne.NewSize(520, 360))
	d.Show()
}

func (a *shell) render(ext string) {
	save := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil || uc == nil {
			return
		}
		out := uc.URI().Path()
		_ = uc.Close()
		f := a.ctrl.Frame()
		f.Selected = ""
		opt := export.Options{IncludeZones: false, Images: a.loader}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			var err error
			switch ext {
			case ".svg":
				err = export.WriteSVG(ctx, out, f, opt)
			case ".pdf":
				err = export.WritePDF(ctx, out, f, opt, a.Latest().Name)
			default:
				err = export.WritePNG(ctx, out, f, opt)
			}
			fyne.Do(func() {
				if err != nil {
					dialog.ShowError(err, a.w)
					return
				}
				a.status.SetText("Rendered " + out)
			})
		}()
	}, a.w)
	save.SetFileName("composition" + ext)
	save.SetFilter(fstorage.NewExtensionFileFilter([]string{ext}))
	save.Show()
}

// ZoneCanvas paints the composition and feeds pointer gestures to a Controller.
// The composition is drawn as one raster; handles and image placeholders are
// overlaid as canvas objects so they stay crisp at any scale.
type ZoneCanvas struct {
	widget.BaseWidget
	ctrl    *Controller
	images  LiveImages
	OnError func(error)
}

func NewZoneCanvas(ctrl *Controller, loader *assets.Loader) *ZoneCanvas {
	zc := &ZoneCanvas{ctrl: ctrl}
	zc.images = LiveImages{Loader: loader, OnReady: func() { fyne.Do(zc.Refresh) }}
	zc.ExtendBaseWidget(zc)
	return zc
}

// MinSize keeps the canvas at its logical size.
func (z *ZoneCanvas) MinSize() fyne.Size {
	return fyne.NewSize(float32(z.ctrl.Width), float32(z.ctrl.Height))
}

// unit is widget units per canvas pixel.
func (z *ZoneCanvas) unit() float32 {
	w := z.Size().Width
	if w <= 0 || z.ctrl.Width <= 0 {
		return 1
	}
	return w / float32(z.ctrl.Width)
}

func (z *ZoneCanvas) toCanvas(pos fyne.Position) vector.Pt {
	k := z.unit()
	return vector.Pt{X: pos.X / k, Y: pos.Y / k}
}

func (z *ZoneCanvas) toScreen(p vector.Pt) fyne.Position {
	k := z.unit()
	return fyne.NewPos(p.X*k, p.Y*k)
}

func (z *ZoneCanvas) Tapped(e *fyne.PointEvent) {
	z.ctrl.Tap(z.toCanvas(e.Position))
	z.Refresh()
}

func (z *ZoneCanvas) Dragged(e *fyne.DragEvent) {
	if err := z.ctrl.Drag(z.toCanvas(e.Position)); err != nil && z.OnError != nil {
		z.OnError(err)
	}
	z.Refresh()
}

func (z *ZoneCanvas) DragEnd() {
	if _, err := z.ctrl.DragEnd(); err != nil && z.OnError != nil {
		z.OnError(err)
	}
	z.Refresh()
}

func (z *ZoneCanvas) CreateRenderer() fyne.WidgetRenderer {
	r := &zoneCanvasRenderer{zc: z}
	r.raster = canvas.NewRaster(func(w, h int) image.Image {
		opt := export.Options{Scale: float64(w) / z.ctrl.Width, IncludeZones: true, Images: z.images}
		return export.RenderImage(context.Background(), z.ctrl.Frame(), opt)
	})
	r.raster.ScaleMode = canvas.ImageScaleSmooth
	r.rebuild()
	return r
}

type zoneCanvasRenderer struct {
	zc      *ZoneCanvas
	raster  *canvas.Raster
	objects []fyne.CanvasObject
}

var (
	handleColor      = toColor(vector.Highlight)
	placeholderColor = toColor(vector.Gray)
)

func toColor(c vector.Color) color.NRGBA { return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A} }

func (r *zoneCanvasRenderer) Destroy()                     {}
func (r *zoneCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *zoneCanvasRenderer) MinSize() fyne.Size           { return r.zc.MinSize() }

func (r *zoneCanvasRenderer) Layout(size fyne.Size) {
	r.raster.Move(fyne.NewPos(0, 0))
	r.raster.Resize(size)
	r.rebuild()
}

func (r *zoneCanvasRenderer) Refresh() {
	r.rebuild()
	r.raster.Refresh()
	canvas.Refresh(r.zc)
}

// rebuild recreates the overlay from the current frame.
func (r *zoneCanvasRenderer) rebuild() {
	objs := []fyne.CanvasObject{r.raster}
	k := r.zc.unit()
	for _, d := range scene.Compose(r.zc.ctrl.Frame()) {
		switch d.Layer {
		case scene.LayerElement:
			im, ok := d.Element.(domain.Image)
			if !ok || !r.zc.images.Pending(im.Src) {
				continue
			}
			objs = append(objs, r.outline(d.Node, placeholderColor, 1)...)
			label := canvas.NewText("loading", placeholderColor)
			label.TextSize = 11
			c := r.zc.toScreen(d.Node.Transform().Apply(d.Node.Local().Center()))
			ls := label.MinSize()
			label.Move(fyne.NewPos(c.X-ls.Width/2, c.Y-ls.Height/2))
			objs = append(objs, label)
		case scene.LayerHandle:
			if d.Handle == scene.HandleBorder {
				objs = append(objs, r.outline(d.Node, handleColor, 1)...)
				continue
			}
			c := r.zc.toScreen(d.Node.Transform().Apply(d.Node.Local().Center()))
			s := scene.HandleSize * k
			var o fyne.CanvasObject
			if d.Handle == scene.HandleRotate {
				circ := canvas.NewCircle(color.White)
				circ.StrokeColor, circ.StrokeWidth = handleColor, 1
				o = circ
			} else {
				rect := canvas.NewRectangle(color.White)
				rect.StrokeColor, rect.StrokeWidth = handleColor, 1
				o = rect
			}
			o.Resize(fyne.NewSize(s, s))
			o.Move(fyne.NewPos(c.X-s/2, c.Y-s/2))
			objs = append(objs, o)
		}
	}
	r.objects = objs
}

// outline strokes the transformed rectangle of n with four lines.
func (r *zoneCanvasRenderer) outline(n vector.Node, col color.Color, width float32) []fyne.CanvasObject {
	cs := n.Local().Corners()
	out := make([]fyne.CanvasObject, 0, 4)
	for i := range cs {
		ln := canvas.NewLine(col)
		ln.StrokeWidth = width
		ln.Position1 = r.zc.toScreen(n.Transform().Apply(cs[i]))
		ln.Position2 = r.zc.toScreen(n.Transform().Apply(cs[(i+1)%len(cs)]))
		out = append(out, ln)
	}
	return out
}
