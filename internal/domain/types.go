/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the element records of a canvas session. The records are the source of
// truth for everything drawn on the surface; rendering and hit testing are projections of them.

import (
	"encoding/json"
	"fmt"
	"image"
	"strconv"
	"strings"

	"storycanvas/internal/richtext"
	"storycanvas/internal/vector"
)

// ElementKind distinguishes image and text elements.
type ElementKind string

const (
	KindImage ElementKind = "image"
	KindText  ElementKind = "text"
)

// Placement tells how an element's origin is computed: absolute elements keep the origin
// they were created with, flow elements are laid out inline on the surface.
type Placement string

const (
	PlacementAbsolute Placement = "absolute"
	PlacementFlow     Placement = "flow"
)

// Align is the horizontal alignment of a text block.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// ParseAlign accepts left, center and right (case-insensitive).
func ParseAlign(s string) (Align, error) {
	switch a := Align(strings.ToLower(strings.TrimSpace(s))); a {
	case AlignLeft, AlignCenter, AlignRight:
		return a, nil
	}
	return "", fmt.Errorf("unsupported alignment %q", s)
}

// Transform is the per-element translate/rotate state written by every gesture.
type Transform struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Rotate float64 `json:"rotate"` // degrees
}

// CSS renders the transform the way it would appear in a style attribute.
func (t Transform) CSS() string {
	return "translate(" + num(t.X) + "px, " + num(t.Y) + "px) rotate(" + num(t.Rotate) + "deg)"
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// Rotation handle geometry in element-local coordinates.
const (
	HandleSize   = 20.0
	HandleOffset = 25.0 // handle center above the top edge
)

// Element is one visual element on the surface.
type Element struct {
	ID                string      `json:"id"`
	Kind              ElementKind `json:"kind"`
	Placement         Placement   `json:"placement"`
	Origin            vector.Pt   `json:"origin"`
	Transform         Transform   `json:"transform"`
	Size              vector.Size `json:"size"`
	HasRotationHandle bool        `json:"rotationHandle,omitempty"`
	Image             *ImageData  `json:"image,omitempty"`
	Text              *TextBlock  `json:"text,omitempty"`
}

// ImageData holds the payload of an image element. Source bytes and the decoded image are
// not serialized; snapshots reattach them by element ID.
type ImageData struct {
	Name    string      `json:"name,omitempty"`
	MIME    string      `json:"mime"`
	Natural vector.Size `json:"natural"`
	Source  []byte      `json:"-"`
	Decoded image.Image `json:"-"`
}

// TextBlock is the content and style box of an editable text element.
type TextBlock struct {
	Doc        *richtext.Document
	Align      Align
	Editable   bool
	MinSize    vector.Size
	MaxSize    vector.Size
	Padding    float64
	Color      string
	FontPx     float64
	Background string
}

type textBlockJSON struct {
	Runs       []richtext.Run `json:"runs"`
	Align      Align          `json:"align"`
	Editable   bool           `json:"editable"`
	MinSize    vector.Size    `json:"minSize"`
	MaxSize    vector.Size    `json:"maxSize"`
	Padding    float64        `json:"padding"`
	Color      string         `json:"color"`
	FontPx     float64        `json:"fontPx"`
	Background string         `json:"background,omitempty"`
}

func (t TextBlock) MarshalJSON() ([]byte, error) {
	j := textBlockJSON{Align: t.Align, Editable: t.Editable, MinSize: t.MinSize, MaxSize: t.MaxSize,
		Padding: t.Padding, Color: t.Color, FontPx: t.FontPx, Background: t.Background}
	if t.Doc != nil {
		j.Runs = t.Doc.Runs()
	}
	return json.Marshal(j)
}

func (t *TextBlock) UnmarshalJSON(b []byte) error {
	var j textBlockJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	*t = TextBlock{Doc: richtext.FromRuns(j.Runs), Align: j.Align, Editable: j.Editable, MinSize: j.MinSize,
		MaxSize: j.MaxSize, Padding: j.Padding, Color: j.Color, FontPx: j.FontPx, Background: j.Background}
	return nil
}

// DisplaySize is the size the element occupies on screen. Text blocks clamp their stored
// size into the style box; a zero max dimension means unbounded.
func (e *Element) DisplaySize() vector.Size {
	s := e.Size
	if e.Kind != KindText || e.Text == nil {
		return s
	}
	s.W = clamp(s.W, e.Text.MinSize.W, e.Text.MaxSize.W)
	s.H = clamp(s.H, e.Text.MinSize.H, e.Text.MaxSize.H)
	return s
}

func clamp(v, lo, hi float64) float64 {
	if hi > 0 && v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// Matrix maps element-local coordinates to surface coordinates:
// T(origin)·T(x,y)·T(c)·R(rotate)·T(-c) with c the box center.
func (e *Element) Matrix() vector.Affine2D {
	s := e.DisplaySize()
	c := vector.Pt{X: s.W / 2, Y: s.H / 2}
	return vector.Translate(e.Origin.X+e.Transform.X, e.Origin.Y+e.Transform.Y).
		Mul(vector.RotateAbout(vector.Radians(e.Transform.Rotate), c))
}

// Box returns the element's transformed box for hit testing and bounds.
func (e *Element) Box() vector.Box {
	return vector.Box{Size: e.DisplaySize(), Xf: e.Matrix()}
}

// HandleRect returns the rotation handle in element-local coordinates.
func (e *Element) HandleRect() vector.Rect {
	s := e.DisplaySize()
	return vector.R(s.W/2-HandleSize/2, -HandleOffset-HandleSize/2, HandleSize, HandleSize)
}

// Clone returns a deep copy. Image payloads are shared since they never change.
func (e *Element) Clone() *Element {
	c := *e
	if e.Image != nil {
		img := *e.Image
		c.Image = &img
	}
	if e.Text != nil {
		tb := *e.Text
		if tb.Doc != nil {
			tb.Doc = tb.Doc.Clone()
		}
		c.Text = &tb
	}
	return &c
}

// Color is an 8-bit RGBA color.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// ParseHex parses #rgb or #rrggbb.
func ParseHex(s string) (Color, error) {
	h, ok := strings.CutPrefix(strings.TrimSpace(s), "#")
	if ok && len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if !ok || len(h) != 6 {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// Hex renders the color as #rrggbb.
func (c Color) Hex() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }
