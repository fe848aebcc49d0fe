/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package gesture

import (
	"math"

	"storycanvas/internal/domain"
	"storycanvas/internal/vector"
)

// Kind is the active interaction.
type Kind int

const (
	Idle Kind = iota
	Dragging
	Resizing
	Rotating
)

func (k Kind) String() string {
	switch k {
	case Dragging:
		return "drag"
	case Resizing:
		return "resize"
	case Rotating:
		return "rotate"
	}
	return "idle"
}

// Edges are the box edges a resize moves.
type Edges struct{ Left, Right, Top, Bottom bool }

func (e Edges) Any() bool { return e.Left || e.Right || e.Top || e.Bottom }

// Phase of a gesture event.
type Phase int

const (
	PhaseStart Phase = iota
	PhaseMove
	PhaseEnd
)

// Event reports what a pointer message did.
type Event struct {
	Gesture   Kind
	Phase     Phase
	ElementID string
	Edges     Edges
	// Click is set on pointer-up when the pointer stayed within the click slop.
	// HitID is then the element whose rotation handle was pressed, else the top-most
	// element under the pointer-down, or empty.
	Click bool
	HitID string
}

// Config tunes hit testing.
type Config struct {
	// EdgeMargin is how close to an edge, inside the box, a pointer-down starts a resize.
	EdgeMargin float64
	// ClickSlop is the maximum pointer travel for a down/up pair to count as a click.
	ClickSlop float64
}

func DefaultConfig() Config { return Config{EdgeMargin: 8, ClickSlop: 3} }

// Machine tracks one pointer. It is not safe for concurrent use; callers serialize
// pointer messages together with other scene edits.
type Machine struct {
	binder *Binder
	cfg    Config

	state   Kind
	id      string
	edges   Edges
	last    vector.Pt
	down    vector.Pt
	hitID   string
	pressed bool
	travel  float64
}

func NewMachine(b *Binder, cfg Config) *Machine {
	if cfg.EdgeMargin < 0 {
		cfg.EdgeMargin = 0
	}
	return &Machine{binder: b, cfg: cfg}
}

// State returns the active interaction.
func (m *Machine) State() Kind { return m.state }

// Down starts a gesture on the top-most bound element under p. Rotation handles win over
// element bodies, and edges within the margin win over the body.
func (m *Machine) Down(s *domain.Surface, p vector.Pt) Event {
	m.reset()
	m.pressed = true
	m.down, m.last = p, p
	if hit := s.TopAt(p); hit != nil {
		m.hitID = hit.ID
	}
	for i := len(s.Elements) - 1; i >= 0; i-- {
		e := s.Elements[i]
		opt, bound := m.binder.Lookup(e.ID)
		box := e.Box()
		if bound && opt.Rotatable && e.HasRotationHandle && box.HitLocal(p, e.HandleRect()) {
			m.begin(Rotating, e.ID, Edges{})
			// The handle belongs to its element, so a tap on it hits the element.
			m.hitID = e.ID
			break
		}
		if !box.Hit(p) {
			continue
		}
		if !bound {
			// Unbound elements still occlude those below them.
			break
		}
		if ed := m.edgesAt(box, p); ed.Any() {
			m.begin(Resizing, e.ID, ed)
		} else {
			m.begin(Dragging, e.ID, Edges{})
		}
		break
	}
	return Event{Gesture: m.state, Phase: PhaseStart, ElementID: m.id, Edges: m.edges}
}

func (m *Machine) begin(k Kind, id string, ed Edges) {
	m.state, m.id, m.edges = k, id, ed
}

func (m *Machine) edgesAt(box vector.Box, p vector.Pt) Edges {
	l := box.ToLocal(p)
	mg := m.cfg.EdgeMargin
	if mg <= 0 {
		return Edges{}
	}
	w, h := box.Size.W, box.Size.H
	return Edges{
		Left:   l.X <= mg,
		Right:  l.X >= w-mg,
		Top:    l.Y <= mg,
		Bottom: l.Y >= h-mg,
	}
}

// Move applies the pointer delta to the active element. ok is false when no gesture is
// active or the element is gone.
func (m *Machine) Move(s *domain.Surface, p vector.Pt) (Event, bool) {
	if !m.pressed {
		return Event{}, false
	}
	d := p.Sub(m.last)
	m.last = p
	m.travel = math.Max(m.travel, math.Hypot(p.X-m.down.X, p.Y-m.down.Y))
	if m.state == Idle {
		return Event{}, false
	}
	e, ok := s.Find(m.id)
	if !ok {
		return Event{}, false
	}
	switch m.state {
	case Dragging:
		Drag(e, d)
	case Resizing:
		Resize(e, m.edges, d)
	case Rotating:
		RotateTowards(e, p)
	}
	return Event{Gesture: m.state, Phase: PhaseMove, ElementID: m.id, Edges: m.edges}, true
}

// Up ends the gesture and returns to Idle.
func (m *Machine) Up(s *domain.Surface, p vector.Pt) Event {
	if !m.pressed {
		return Event{}
	}
	m.travel = math.Max(m.travel, math.Hypot(p.X-m.down.X, p.Y-m.down.Y))
	ev := Event{Gesture: m.state, Phase: PhaseEnd, ElementID: m.id, Edges: m.edges}
	if m.travel <= m.cfg.ClickSlop {
		ev.Click = true
		ev.HitID = m.hitID
	}
	m.reset()
	return ev
}

func (m *Machine) reset() {
	*m = Machine{binder: m.binder, cfg: m.cfg}
}

// Drag translates the element by d.
func Drag(e *domain.Element, d vector.Pt) {
	e.Transform.X += d.X
	e.Transform.Y += d.Y
}

// Resize moves the given edges by d. The rect starts at the current display size; width
// and height stop at zero, and a clamped left or top edge moves only as far as the box allows.
// The position follows the left and top edges.
func Resize(e *domain.Element, ed Edges, d vector.Pt) {
	s := e.DisplaySize()
	w, h := s.W, s.H
	var dl, dt float64
	if ed.Left {
		dl = d.X
		w -= d.X
	} else if ed.Right {
		w += d.X
	}
	if ed.Top {
		dt = d.Y
		h -= d.Y
	} else if ed.Bottom {
		h += d.Y
	}
	if w < 0 {
		if ed.Left {
			dl += w
		}
		w = 0
	}
	if h < 0 {
		if ed.Top {
			dt += h
		}
		h = 0
	}
	e.Size = vector.Size{W: w, H: h}
	e.Transform.X += dl
	e.Transform.Y += dt
}

// RotateTowards points the element at p: the angle of p around the center of the
// element's current transformed bounding box, in degrees.
func RotateTowards(e *domain.Element, p vector.Pt) {
	c := e.Box().Bounds().Center()
	e.Transform.Rotate = vector.Degrees(math.Atan2(p.Y-c.Y, p.X-c.X))
}
