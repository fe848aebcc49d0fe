/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package render rasterizes a canvas surface and its editor chrome into an image.
// It is the capture step of the export pipeline and the live preview of the desktop UI.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/anthonynsimon/bild/transform"
	"github.com/fogleman/gg"

	"storycanvas/internal/domain"
	"storycanvas/internal/textlayout"
	"storycanvas/internal/vector"
)

// Frame is everything visible at one moment: the surface with its elements and the chrome.
// Callers pass a copy that is not mutated while rasterizing.
type Frame struct {
	Surface *domain.Surface
	Chrome  Chrome
}

// Options control a single rasterization.
type Options struct {
	// Ignore leaves a part out of the output, like an ignoreElements rule.
	Ignore func(Part) bool
}

func (o Options) ignored(p Part) bool { return o.Ignore != nil && o.Ignore(p) }

// Rasterizer draws frames with gg. It is safe for concurrent use; draws are serialized
// because font faces keep per-face glyph caches.
type Rasterizer struct {
	mu     sync.Mutex
	fonts  textlayout.Provider
	scaled map[string]scaledImage
}

type scaledImage struct {
	src  image.Image
	w, h int
	out  image.Image
}

// New returns a rasterizer using fonts for text. A nil provider uses the Go font family.
func New(fonts textlayout.Provider) (*Rasterizer, error) {
	if fonts == nil {
		lib, err := textlayout.NewGoFontLibrary()
		if err != nil {
			return nil, fmt.Errorf("load fonts: %w", err)
		}
		fonts = lib
	}
	return &Rasterizer{fonts: fonts, scaled: make(map[string]scaledImage)}, nil
}

// Rasterize draws the frame at surface resolution.
func (r *Rasterizer) Rasterize(f Frame, opt Options) (image.Image, error) {
	if f.Surface == nil {
		return nil, fmt.Errorf("rasterize: no surface")
	}
	w, h := int(math.Ceil(f.Surface.Width)), int(math.Ceil(f.Surface.Height))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("rasterize: empty surface %dx%d", w, h)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	dc := gg.NewContext(w, h)
	dc.SetColor(colorOf(f.Surface.Background, color.White))
	dc.Clear()

	live := make(map[string]bool, len(f.Surface.Elements))
	for _, e := range f.Surface.Elements {
		live[e.ID] = true
		dc.Push()
		applyElementMatrix(dc, e)
		switch e.Kind {
		case domain.KindImage:
			r.drawImage(dc, e)
		case domain.KindText:
			r.drawText(dc, e)
		}
		if e.HasRotationHandle && !opt.ignored(PartRotationHandle) {
			drawHandle(dc, e.HandleRect())
		}
		dc.Pop()
	}
	for id := range r.scaled {
		if !live[id] {
			delete(r.scaled, id)
		}
	}
	r.drawChrome(dc, f, opt)
	return dc.Image(), nil
}

// applyElementMatrix sets the same transform as domain.Element.Matrix.
func applyElementMatrix(dc *gg.Context, e *domain.Element) {
	s := e.DisplaySize()
	dc.Translate(e.Origin.X+e.Transform.X, e.Origin.Y+e.Transform.Y)
	if e.Transform.Rotate != 0 {
		dc.RotateAbout(gg.Radians(e.Transform.Rotate), s.W/2, s.H/2)
	}
}

func (r *Rasterizer) drawImage(dc *gg.Context, e *domain.Element) {
	if e.Image == nil || e.Image.Decoded == nil {
		return
	}
	s := e.DisplaySize()
	w, h := int(math.Round(s.W)), int(math.Round(s.H))
	if w <= 0 || h <= 0 {
		return
	}
	c, ok := r.scaled[e.ID]
	if !ok || c.src != e.Image.Decoded || c.w != w || c.h != h {
		out := e.Image.Decoded
		if b := out.Bounds(); b.Dx() != w || b.Dy() != h {
			out = transform.Resize(out, w, h, transform.Linear)
		}
		c = scaledImage{src: e.Image.Decoded, w: w, h: h, out: out}
		r.scaled[e.ID] = c
	}
	dc.DrawImage(c.out, 0, 0)
}

func (r *Rasterizer) drawText(dc *gg.Context, e *domain.Element) {
	tb := e.Text
	if tb == nil {
		return
	}
	s := e.DisplaySize()
	dc.SetColor(colorOf(tb.Background, color.White))
	dc.DrawRectangle(0, 0, s.W, s.H)
	dc.Fill()
	if tb.Doc == nil {
		return
	}
	box, err := LayoutText(r.fonts, tb, s.W)
	if err != nil {
		return
	}
	fallback := colorOf(tb.Color, color.Black)
	y := tb.Padding
	for _, line := range box.Lines {
		x := tb.Padding + line.X
		base := y + line.Ascent
		for _, sp := range line.Spans {
			face, _ := r.fonts.Resolve(sp.Font)
			dc.SetFontFace(face)
			dc.SetColor(colorOf(sp.Color, fallback))
			dc.DrawString(sp.Text, x, base)
			if sp.Underline {
				dc.SetLineWidth(math.Max(1, sp.Font.SizePx/14))
				dc.DrawLine(x, base+2, x+sp.Width, base+2)
				dc.Stroke()
			}
			x += sp.Width
		}
		y += line.Height()
	}
}

// LayoutText wraps and aligns a text block for a box of the given outer width.
func LayoutText(fonts textlayout.Provider, tb *domain.TextBlock, width float64) (textlayout.TextBox, error) {
	var spans []textlayout.Span
	for _, run := range tb.Doc.Runs() {
		spans = append(spans, textlayout.Span{
			Text: run.Text,
			Font: textlayout.FontSpec{
				Family: textlayout.DefaultFamily,
				SizePx: run.Style.SizePx(tb.FontPx),
				Bold:   run.Style.Bold,
				Italic: run.Style.Italic,
			},
			Color:     run.Style.Color,
			Underline: run.Style.Underline,
		})
	}
	inner := math.Max(0, width-2*tb.Padding)
	l := textlayout.NewWordWrap(fonts)
	l.Default = textlayout.FontSpec{Family: textlayout.DefaultFamily, SizePx: tb.FontPx}
	box, err := l.Layout(spans, inner)
	if err != nil {
		return box, err
	}
	switch tb.Align {
	case domain.AlignCenter:
		box.Align(textlayout.AlignCenter, inner)
	case domain.AlignRight:
		box.Align(textlayout.AlignRight, inner)
	default:
		box.Align(textlayout.AlignLeft, inner)
	}
	return box, nil
}

func drawHandle(dc *gg.Context, r vector.Rect) {
	c := r.Center()
	rad := r.W/2 - 2
	dc.SetColor(color.White)
	dc.DrawCircle(c.X, c.Y, rad)
	dc.Fill()
	dc.SetHexColor("#333333")
	dc.SetLineWidth(1.5)
	dc.DrawArc(c.X, c.Y, rad-3, gg.Radians(-60), gg.Radians(240))
	dc.Stroke()
	// Arrow head at the open end of the arc.
	tip := vector.Pt{X: c.X + (rad-3)*math.Cos(gg.Radians(-60)), Y: c.Y + (rad-3)*math.Sin(gg.Radians(-60))}
	dc.MoveTo(tip.X+3, tip.Y-1)
	dc.LineTo(tip.X-1, tip.Y-3)
	dc.LineTo(tip.X, tip.Y+2)
	dc.ClosePath()
	dc.Fill()
}

func (r *Rasterizer) drawChrome(dc *gg.Context, f Frame, opt Options) {
	w, h := f.Surface.Width, f.Surface.Height
	ch := f.Chrome
	if ch.ToolbarVisible && !opt.ignored(PartToolbar) {
		drawBar(dc, ToolbarRect(w, h), []string{"Choose images", "Add Text", "Save", "Save as PDF"}, r.fonts)
	}
	if ch.FloatingPresent && ch.FloatingVisible && !opt.ignored(PartFloatingToolbar) {
		drawBar(dc, FloatingToolbarRect(w, h), []string{"B", "I", "U", "Left", "Center", "Right", "16px", "Color"}, r.fonts)
	}
	if ch.StatusVisible && !opt.ignored(PartStatus) {
		r.drawStatus(dc, StatusRect(w, h), ch)
	}
}

func drawBar(dc *gg.Context, rc vector.Rect, labels []string, fonts textlayout.Provider) {
	dc.SetHexColor("#f5f5f5")
	dc.DrawRoundedRectangle(rc.X, rc.Y, rc.W, rc.H, 5)
	dc.Fill()
	dc.SetHexColor("#cccccc")
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(rc.X, rc.Y, rc.W, rc.H, 5)
	dc.Stroke()
	face, met := fonts.Resolve(textlayout.FontSpec{Family: textlayout.DefaultFamily, SizePx: 12})
	dc.SetFontFace(face)
	x := rc.X + 10
	base := rc.Y + rc.H/2 + (met.Ascent-met.Descent)/2
	for _, l := range labels {
		lw, _ := dc.MeasureString(l)
		dc.SetHexColor("#ffffff")
		dc.DrawRoundedRectangle(x-4, rc.Y+7, lw+8, rc.H-14, 3)
		dc.Fill()
		dc.SetHexColor("#222222")
		dc.DrawString(l, x, base)
		x += lw + 14
	}
}

func (r *Rasterizer) drawStatus(dc *gg.Context, rc vector.Rect, ch Chrome) {
	dc.SetRGBA(0, 0, 0, 0.2)
	dc.DrawRoundedRectangle(rc.X, rc.Y+2, rc.W, rc.H, 8)
	dc.Fill()
	dc.SetColor(color.White)
	dc.DrawRoundedRectangle(rc.X, rc.Y, rc.W, rc.H, 8)
	dc.Fill()
	inner := rc.Inset(10, 10)
	if ch.Message != "" && ch.MessageOpacity > 0 {
		face, met := r.fonts.Resolve(textlayout.FontSpec{Family: textlayout.DefaultFamily, SizePx: 18})
		dc.SetFontFace(face)
		mw, _ := dc.MeasureString(ch.Message)
		cx := inner.X + inner.W/2
		base := inner.Y + met.Ascent
		dc.Push()
		dc.ScaleAbout(ch.MessageScale, ch.MessageScale, cx, base)
		dc.SetRGBA(0, 0, 0, clamp01(ch.MessageOpacity))
		dc.DrawString(ch.Message, cx-mw/2, base)
		dc.Pop()
	}
	if p := clamp01(ch.Progress / 100); p > 0 {
		dc.SetHexColor("#28a745")
		dc.DrawRectangle(inner.X, inner.Y+inner.H-4, inner.W*p, 4)
		dc.Fill()
	}
}

func clamp01(v float64) float64 { return math.Max(0, math.Min(1, v)) }

func colorOf(hex string, def color.Color) color.Color {
	c, err := domain.ParseHex(hex)
	if err != nil {
		return def
	}
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}
