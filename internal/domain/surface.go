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

import (
	"encoding/json"
	"fmt"

	"storycanvas/internal/vector"
)

// Surface is the canvas area. Elements are drawn in slice order; the last one is top-most.
type Surface struct {
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
	Background string     `json:"background"`
	Elements   []*Element `json:"elements"`
}

func NewSurface(w, h float64) *Surface {
	return &Surface{Width: w, Height: h, Background: "#ffffff"}
}

// Add appends e on top of the stack and lays out flow elements again.
func (s *Surface) Add(e *Element) {
	s.Elements = append(s.Elements, e)
	if e.Placement == PlacementFlow {
		s.Reflow()
	}
}

// Find returns the element with the given ID.
func (s *Surface) Find(id string) (*Element, bool) {
	for _, e := range s.Elements {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

// TopAt returns the top-most element whose transformed box contains p, or nil.
func (s *Surface) TopAt(p vector.Pt) *Element {
	for i := len(s.Elements) - 1; i >= 0; i-- {
		if s.Elements[i].Box().Hit(p) {
			return s.Elements[i]
		}
	}
	return nil
}

// Reflow assigns origins to flow elements: inline, left to right, wrapping at the surface
// width, starting at the top-left corner. Absolute elements do not take part.
func (s *Surface) Reflow() {
	var x, y, lineH float64
	for _, e := range s.Elements {
		if e.Placement != PlacementFlow {
			continue
		}
		sz := e.DisplaySize()
		if x > 0 && x+sz.W > s.Width {
			x = 0
			y += lineH
			lineH = 0
		}
		e.Origin = vector.Pt{X: x, Y: y}
		x += sz.W
		if sz.H > lineH {
			lineH = sz.H
		}
	}
}

// Snapshot serializes the scene without image payloads.
func (s *Surface) Snapshot() ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal surface: %w", err)
	}
	return b, nil
}

// Restore decodes a snapshot. payload returns the image data for an element ID so source
// bytes and decoded images can be reattached; it may return nil.
func Restore(blob []byte, payload func(id string) *ImageData) (*Surface, error) {
	var s Surface
	if err := json.Unmarshal(blob, &s); err != nil {
		return nil, fmt.Errorf("unmarshal surface: %w", err)
	}
	for _, e := range s.Elements {
		if e.Image == nil || payload == nil {
			continue
		}
		if p := payload(e.ID); p != nil {
			e.Image.Source = p.Source
			e.Image.Decoded = p.Decoded
		}
	}
	return &s, nil
}
