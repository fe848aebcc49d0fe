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
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"storycanvas/internal/config"
	"storycanvas/internal/crash"
	"storycanvas/internal/domain"
	"storycanvas/internal/editor"
	"storycanvas/internal/export"
	applog "storycanvas/internal/log"
	"storycanvas/internal/render"
	"storycanvas/internal/telemetry"
	"storycanvas/internal/version"
)

// slot holds the place of obj in a layout, so hiding obj during an export leaves the
// rest of the window where it was.
type slot struct {
	box  *fyne.Container
	keep *canvas.Rectangle
	obj  fyne.CanvasObject
}

func newSlot(obj fyne.CanvasObject) *slot {
	keep := canvas.NewRectangle(color.Transparent)
	keep.SetMinSize(obj.MinSize())
	return &slot{box: container.NewStack(keep, obj), keep: keep, obj: obj}
}

// set shows or hides obj while keeping its space. A slot that is not present takes no
// space at all.
func (sl *slot) set(present, visible bool) {
	if !present {
		sl.box.Hide()
		return
	}
	sl.box.Show()
	if visible {
		sl.obj.Show()
	}
	sl.keep.SetMinSize(sl.obj.MinSize())
	if !visible {
		sl.obj.Hide()
	}
	sl.box.Refresh()
}

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp", ".tif", ".tiff"}

// Run starts the desktop editor. files are added as uploaded images.
func Run(files []string) error {
	cfg, cerr := config.Load()
	applog.Init(applog.FromConfig(cfg.Logging))
	l := applog.WithComponent("ui")
	if cerr != nil {
		l.Warn("config ignored", slog.Any("err", cerr))
	}
	telemetry.NewDefault(telemetry.FromEnv(cfg.General.TelemetryOptIn))
	l.Info("starting UI")

	raster, err := render.New(nil)
	if err != nil {
		return err
	}
	s, err := editor.New(cfg, editor.Options{Raster: raster, Events: telemetry.Default()})
	if err != nil {
		return err
	}
	defer crash.Recover(s)
	telemetry.Event(telemetry.EventAppStarted, map[string]any{"ui": true})

	fyneApp := app.NewWithID("storycanvas")
	w := fyneApp.NewWindow("StoryCanvas")
	prefs := fyneApp.Preferences()
	winW := max(prefs.IntWithFallback("window.width", 1280), 800)
	winH := max(prefs.IntWithFallback("window.height", 820), 600)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	surface := NewSurfaceCanvas(s, raster)
	progress := widget.NewProgressBar()
	progress.Max = 100

	addFiles := func(paths []string, drop bool) {
		var files []editor.File
		for _, p := range paths {
			b, err := os.ReadFile(p)
			if err != nil {
				l.Error("read image", slog.String("path", p), slog.Any("err", err))
				dialog.ShowError(err, w)
				continue
			}
			files = append(files, editor.File{Name: filepath.Base(p), Data: b})
		}
		var ids []string
		if drop {
			ids = s.AddDroppedImages(files)
		} else {
			ids = s.AddUploadedImages(files)
		}
		status.SetText(fmt.Sprintf("Added %d image(s).", len(ids)))
	}

	// Main toolbar
	uploadBtn := widget.NewButton("Upload Image", func() {
		open := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if rc == nil {
				return
			}
			defer rc.Close()
			b, err := io.ReadAll(rc)
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			s.AddUploadedImages([]editor.File{{Name: rc.URI().Name(), MIME: rc.URI().MimeType(), Data: b}})
			status.SetText("Added " + rc.URI().Name())
		}, w)
		open.SetFilter(fstorage.NewExtensionFileFilter(imageExtensions))
		open.Show()
	})
	addTextBtn := widget.NewButton("Add Text", func() {
		id := s.AddTextBlock()
		l.Info("add text", slog.String("id", id))
	})

	runExport := func(mode export.Mode) {
		go crash.Guard(s, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			res, err := s.Export(ctx, mode)
			fyne.Do(func() {
				switch {
				case errors.Is(err, export.ErrExportInProgress):
					status.SetText("An export is already running.")
				case err != nil:
					dialog.ShowError(err, w)
					status.SetText("Export failed.")
				default:
					status.SetText("Saved " + res.Path)
				}
			})
		})
	}
	saveBtn := widget.NewButton("Save", func() { runExport(export.ModePNG) })
	savePDFBtn := widget.NewButton("Save as PDF", func() { runExport(export.ModePDF) })
	toolbar := container.NewHBox(uploadBtn, addTextBtn, saveBtn, savePDFBtn)

	// Floating text toolbar, present while a text block is selected. Without a
	// selected range the commands apply to the whole block.
	style := func(name, value string) {
		if s.TextRange().Collapsed() {
			s.SelectAllText()
		}
		if err := s.ApplyTextStyle(name, value); err != nil {
			dialog.ShowError(err, w)
		}
	}
	align := func(a string) func() {
		return func() {
			if err := s.ApplyTextAlignment(a); err != nil {
				dialog.ShowError(err, w)
			}
		}
	}
	sizeSelect := widget.NewSelect(editor.FontSizes, func(v string) { style(editor.StyleFontSize, v) })
	sizeSelect.PlaceHolder = "Size"
	colorBtn := widget.NewButton("Color", func() {
		picker := dialog.NewColorPicker("Text Color", "Pick a text color", func(c color.Color) {
			r, g, b, _ := c.RGBA()
			style(editor.StyleColor, domain.Color{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}.Hex())
		}, w)
		picker.Advanced = true
		picker.Show()
	})
	textEntry := widget.NewMultiLineEntry()
	textEntry.SetPlaceHolder("Text of the selected block")
	syncing := false
	textEntry.OnChanged = func(v string) {
		if !syncing {
			s.EditText(v)
		}
	}
	floating := container.NewHBox(
		widget.NewButton("B", func() { style(editor.StyleBold, "") }),
		widget.NewButton("I", func() { style(editor.StyleItalic, "") }),
		widget.NewButton("U", func() { style(editor.StyleUnderline, "") }),
		widget.NewButton("Left", align("left")),
		widget.NewButton("Center", align("center")),
		widget.NewButton("Right", align("right")),
		sizeSelect,
		colorBtn,
	)
	textPanel := container.NewBorder(floating, nil, nil, nil, textEntry)

	toolbarSlot, textSlot := newSlot(toolbar), newSlot(textPanel)
	lastSelected := ""
	sync := func() {
		ch := s.Chrome()
		toolbarSlot.set(true, ch.ToolbarVisible)
		textSlot.set(ch.FloatingPresent, ch.FloatingVisible)
		progress.SetValue(ch.Progress)
		if id, ok := s.Selected(); ok && id != lastSelected {
			if e, err := s.Element(id); err == nil {
				syncing = true
				textEntry.SetText(e.Text.Doc.Text())
				syncing = false
			}
		}
		lastSelected, _ = s.Selected()
		surface.Refresh()
	}
	s.OnChange(func() { fyne.Do(sync) })

	w.SetOnDropped(func(_ fyne.Position, uris []fyne.URI) {
		var paths []string
		for _, u := range uris {
			if u.Scheme() == "file" {
				paths = append(paths, u.Path())
			}
		}
		addFiles(paths, true)
	})

	undoItem := fyne.NewMenuItem("Undo", func() {
		if ok, err := s.Undo(); err != nil {
			dialog.ShowError(err, w)
		} else if !ok {
			status.SetText("Nothing to undo.")
		}
	})
	redoItem := fyne.NewMenuItem("Redo", func() {
		if ok, err := s.Redo(); err != nil {
			dialog.ShowError(err, w)
		} else if !ok {
			status.SetText("Nothing to redo.")
		}
	})
	undoItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault}
	redoItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierShortcutDefault}
	w.Canvas().AddShortcut(undoItem.Shortcut, func(fyne.Shortcut) { undoItem.Action() })
	w.Canvas().AddShortcut(redoItem.Shortcut, func(fyne.Shortcut) { redoItem.Action() })

	aboutItem := fyne.NewMenuItem("About StoryCanvas", func() {
		exe, _ := os.Executable()
		info := fmt.Sprintf("StoryCanvas\nVersion: %s\nOS: %s\nArch: %s\nGo: %s\nExecutable: %s\nOutput: %s",
			version.String(), runtime.GOOS, runtime.GOARCH, runtime.Version(), exe, cfg.Export.OutputDir)
		dialog.ShowInformation("Installation Environment", info, w)
	})
	w.SetMainMenu(fyne.NewMainMenu(
		fyne.NewMenu("Edit", undoItem, redoItem),
		fyne.NewMenu("About", aboutItem),
	))

	top := container.NewVBox(toolbarSlot.box, textSlot.box)
	bottom := container.NewVBox(progress, status)
	w.SetContent(container.NewBorder(top, bottom, nil, nil, surface))
	sync()

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		telemetry.Flush(context.Background())
		w.Close()
	})

	if len(files) > 0 {
		addFiles(files, false)
	}

	crash.Guard(s, w.ShowAndRun)
	return nil
}
