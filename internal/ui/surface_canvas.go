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
	"image/color"
	"log/slog"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"storycanvas/internal/editor"
	applog "storycanvas/internal/log"
	"storycanvas/internal/render"
	"storycanvas/internal/vector"
)

// SurfaceCanvas shows the rasterized session surface and feeds pointer input back into
// the session. The surface is scaled to fit and centered.
type SurfaceCanvas struct {
	widget.BaseWidget

	session *editor.Session
	raster  *render.Rasterizer
	log     *slog.Logger

	mu      sync.Mutex
	pressed bool
	last    vector.Pt
}

func NewSurfaceCanvas(s *editor.Session, r *render.Rasterizer) *SurfaceCanvas {
	sc := &SurfaceCanvas{session: s, raster: r, log: applog.WithComponent("ui.canvas")}
	sc.ExtendBaseWidget(sc)
	return sc
}

// liveIgnore leaves out the bars that exist as real widgets.
func liveIgnore(p render.Part) bool {
	return p == render.PartToolbar || p == render.PartFloatingToolbar
}

func (sc *SurfaceCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 235, G: 235, B: 235, A: 255})
	img := canvas.NewImageFromImage(nil)
	img.FillMode = canvas.ImageFillContain
	img.ScaleMode = canvas.ImageScaleSmooth
	r := &surfaceCanvasRenderer{sc: sc, bg: bg, img: img, objects: []fyne.CanvasObject{bg, img}}
	r.paint()
	return r
}

func (sc *SurfaceCanvas) MinSize() fyne.Size { return fyne.NewSize(640, 360) }

// placement returns the top-left corner of the drawn surface and its scale.
func (sc *SurfaceCanvas) placement() (ox, oy, scale float64) {
	size := sc.Size()
	sw := sc.session.Size()
	if sw.W <= 0 || sw.H <= 0 || size.Width <= 0 || size.Height <= 0 {
		return 0, 0, 1
	}
	scale = min(float64(size.Width)/sw.W, float64(size.Height)/sw.H)
	ox = (float64(size.Width) - sw.W*scale) / 2
	oy = (float64(size.Height) - sw.H*scale) / 2
	return ox, oy, scale
}

func (sc *SurfaceCanvas) toSurface(pos fyne.Position) vector.Pt {
	ox, oy, s := sc.placement()
	return vector.Pt{X: (float64(pos.X) - ox) / s, Y: (float64(pos.Y) - oy) / s}
}

func (sc *SurfaceCanvas) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	p := sc.toSurface(e.Position)
	sc.mu.Lock()
	sc.pressed, sc.last = true, p
	sc.mu.Unlock()
	ev := sc.session.PointerDown(p)
	sc.log.Debug("pointer down", slog.String("gesture", ev.Gesture.String()), slog.String("id", ev.ElementID))
}

func (sc *SurfaceCanvas) Dragged(e *fyne.DragEvent) {
	p := sc.toSurface(e.Position)
	sc.mu.Lock()
	if !sc.pressed {
		sc.mu.Unlock()
		return
	}
	sc.last = p
	sc.mu.Unlock()
	sc.session.PointerMove(p)
}

func (sc *SurfaceCanvas) DragEnd() { sc.release(nil) }

func (sc *SurfaceCanvas) MouseUp(e *desktop.MouseEvent) {
	p := sc.toSurface(e.Position)
	sc.release(&p)
}

func (sc *SurfaceCanvas) release(at *vector.Pt) {
	sc.mu.Lock()
	if !sc.pressed {
		sc.mu.Unlock()
		return
	}
	p := sc.last
	if at != nil {
		p = *at
	}
	sc.pressed = false
	sc.mu.Unlock()
	sc.session.PointerUp(p)
}

type surfaceCanvasRenderer struct {
	sc      *SurfaceCanvas
	bg      *canvas.Rectangle
	img     *canvas.Image
	objects []fyne.CanvasObject
}

func (r *surfaceCanvasRenderer) Destroy()                     {}
func (r *surfaceCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *surfaceCanvasRenderer) MinSize() fyne.Size           { return r.sc.MinSize() }

func (r *surfaceCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.img.Move(fyne.NewPos(0, 0))
	r.img.Resize(size)
}

func (r *surfaceCanvasRenderer) Refresh() {
	r.paint()
	r.Layout(r.sc.Size())
	canvas.Refresh(r.sc)
}

func (r *surfaceCanvasRenderer) paint() {
	frame, err := r.sc.raster.Rasterize(r.sc.session.Frame(), render.Options{Ignore: liveIgnore})
	if err != nil {
		r.sc.log.Error("rasterize preview", slog.Any("err", err))
		return
	}
	r.img.Image = frame
	r.img.Refresh()
}
