/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package textlayout

// Line breaking and measurement for styled text. All sizes are pixels.

import (
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string
	SizePx float64
	Bold   bool
	Italic bool
}

// Metrics provides font metrics in pixels for the resolved face.
type Metrics struct {
	Ascent, Descent, LineGap float64
}

// Span is a run of text with the same font and decoration. After layout Width holds the
// advance of the span.
type Span struct {
	Text      string
	Font      FontSpec
	Color     string
	Underline bool
	Width     float64
}

// Line is a single laid out line. X is the offset from the left edge of the box set by Align.
type Line struct {
	Spans   []Span
	X       float64
	Width   float64
	Ascent  float64
	Descent float64
	Gap     float64
}

// Height is the line advance.
func (l Line) Height() float64 { return l.Ascent + l.Descent + l.Gap }

// TextBox is the result of laying out text into a box width.
type TextBox struct {
	Lines  []Line
	Width  float64
	Height float64
}

// Alignment of lines inside a box.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

// Align positions every line inside a box of the given width.
func (b *TextBox) Align(a Alignment, width float64) {
	for i := range b.Lines {
		l := &b.Lines[i]
		switch a {
		case AlignCenter:
			l.X = (width - l.Width) / 2
		case AlignRight:
			l.X = width - l.Width
		default:
			l.X = 0
		}
	}
}

// Provider maps FontSpec to a concrete font.Face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// BasicProvider uses x/image/basicfont Face7x13 for deterministic tests.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics) {
	return basicfont.Face7x13, metricsOf(basicfont.Face7x13)
}

func metricsOf(f font.Face) Metrics {
	m := f.Metrics()
	return Metrics{
		Ascent:  float64(m.Ascent.Round()),
		Descent: float64(m.Descent.Round()),
		LineGap: float64(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}
}

// WordWrapLayouter breaks on spaces and newlines; it does not perform shaping or
// hyphenation. A word wider than the box is placed on its own line and overflows.
type WordWrapLayouter struct {
	Provider Provider
	// Default is used for the metrics of empty lines.
	Default FontSpec
}

func NewWordWrap(provider Provider) *WordWrapLayouter { return &WordWrapLayouter{Provider: provider} }

func (l *WordWrapLayouter) Layout(spans []Span, maxWidth float64) (TextBox, error) {
	if l.Provider == nil {
		l.Provider = BasicProvider{}
	}
	var box TextBox
	var cur Line
	lastFont := l.Default
	if len(spans) > 0 {
		lastFont = spans[0].Font
	}
	grow := func(met Metrics) {
		cur.Ascent = max(cur.Ascent, met.Ascent)
		cur.Descent = max(cur.Descent, met.Descent)
		cur.Gap = max(cur.Gap, met.LineGap)
	}
	addLine := func() {
		// Trailing spaces do not count for width or alignment.
		for n := len(cur.Spans); n > 0 && cur.Spans[n-1].Text == " "; n = len(cur.Spans) {
			cur.Width -= cur.Spans[n-1].Width
			cur.Spans = cur.Spans[:n-1]
		}
		if cur.Ascent == 0 && cur.Descent == 0 {
			_, met := l.Provider.Resolve(lastFont)
			grow(met)
		}
		box.Lines = append(box.Lines, cur)
		box.Width = max(box.Width, cur.Width)
		box.Height += cur.Height()
		cur = Line{}
	}
	for _, sp := range spans {
		if sp.Text == "" {
			continue
		}
		face, met := l.Provider.Resolve(sp.Font)
		drawer := &font.Drawer{Face: face}
		lastFont = sp.Font
		start := 0
		for i := 0; i <= len(sp.Text); i++ {
			if i < len(sp.Text) && sp.Text[i] != ' ' && sp.Text[i] != '\n' {
				continue
			}
			word := sp.Text[start:i]
			w := advance(drawer, word)
			if maxWidth > 0 && cur.Width > 0 && cur.Width+w > maxWidth && word != "" {
				addLine()
			}
			if word != "" {
				piece := sp
				piece.Text, piece.Width = word, w
				cur.Spans = append(cur.Spans, piece)
				cur.Width += w
				grow(met)
			}
			if i < len(sp.Text) {
				switch sp.Text[i] {
				case ' ':
					piece := sp
					piece.Text, piece.Width = " ", advance(drawer, " ")
					cur.Spans = append(cur.Spans, piece)
					cur.Width += piece.Width
					grow(met)
				case '\n':
					addLine()
				}
			}
			start = i + 1
		}
	}
	if len(cur.Spans) > 0 || len(box.Lines) == 0 {
		addLine()
	}
	return box, nil
}

func advance(d *font.Drawer, s string) float64 {
	return float64(d.MeasureString(s)) / 64 // fixed.Int26_6 to px
}

// Measure provides a quick way to measure text width/height without line-breaks.
func Measure(provider Provider, spans []Span) (w, h float64) {
	if provider == nil {
		provider = BasicProvider{}
	}
	for _, sp := range spans {
		face, met := provider.Resolve(sp.Font)
		w += advance(&font.Drawer{Face: face}, sp.Text)
		h = max(h, met.Ascent+met.Descent)
	}
	return w, h
}
