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
	"testing"

	"storycanvas/internal/domain"
	"storycanvas/internal/vector"
)

func scene(rotatable bool) (*domain.Surface, *Machine) {
	s := domain.NewSurface(1000, 800)
	s.Add(&domain.Element{ID: "a", Kind: domain.KindImage, Placement: domain.PlacementAbsolute,
		Origin: vector.Pt{X: 100, Y: 100}, Size: vector.Size{W: 100, H: 50}, HasRotationHandle: rotatable})
	b := NewBinder()
	b.Bind("a", Options{Rotatable: rotatable})
	return s, NewMachine(b, DefaultConfig())
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestDragAccumulatesDeltas(t *testing.T) {
	s, m := scene(true)
	ev := m.Down(s, vector.Pt{X: 150, Y: 125})
	if ev.Gesture != Dragging || ev.ElementID != "a" {
		t.Fatalf("expected drag start on a, got %+v", ev)
	}
	m.Move(s, vector.Pt{X: 160, Y: 130})
	m.Move(s, vector.Pt{X: 155, Y: 145})
	m.Up(s, vector.Pt{X: 155, Y: 145})
	e, _ := s.Find("a")
	if e.Transform.X != 5 || e.Transform.Y != 20 {
		t.Fatalf("unexpected transform %+v", e.Transform)
	}
	if e.Transform.Rotate != 0 || e.Size != (vector.Size{W: 100, H: 50}) {
		t.Fatalf("drag must only translate: %+v", e)
	}
	if m.State() != Idle {
		t.Fatalf("expected idle after up")
	}
}

func TestResizeEdges(t *testing.T) {
	cases := []struct {
		name   string
		down   vector.Pt
		delta  vector.Pt
		size   vector.Size
		x, y   float64
		resize Edges
	}{
		{"left", vector.Pt{X: 102, Y: 125}, vector.Pt{X: 10, Y: 0}, vector.Size{W: 90, H: 50}, 10, 0, Edges{Left: true}},
		{"right", vector.Pt{X: 198, Y: 125}, vector.Pt{X: 30, Y: 7}, vector.Size{W: 130, H: 50}, 0, 0, Edges{Right: true}},
		{"top", vector.Pt{X: 150, Y: 101}, vector.Pt{X: 4, Y: -20}, vector.Size{W: 100, H: 70}, 0, -20, Edges{Top: true}},
		{"bottom", vector.Pt{X: 150, Y: 149}, vector.Pt{X: 0, Y: 15}, vector.Size{W: 100, H: 65}, 0, 0, Edges{Bottom: true}},
		{"corner", vector.Pt{X: 101, Y: 101}, vector.Pt{X: -10, Y: -10}, vector.Size{W: 110, H: 60}, -10, -10, Edges{Left: true, Top: true}},
		{"clamped", vector.Pt{X: 102, Y: 125}, vector.Pt{X: 150, Y: 0}, vector.Size{W: 0, H: 50}, 100, 0, Edges{Left: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, m := scene(false)
			ev := m.Down(s, tc.down)
			if ev.Gesture != Resizing || ev.Edges != tc.resize {
				t.Fatalf("expected resize on %+v, got %+v", tc.resize, ev)
			}
			m.Move(s, tc.down.Add(tc.delta))
			e, _ := s.Find("a")
			if e.Size != tc.size || e.Transform.X != tc.x || e.Transform.Y != tc.y {
				t.Fatalf("got size=%+v transform=%+v", e.Size, e.Transform)
			}
		})
	}
}

func TestRotateUsesBoundingBoxCenter(t *testing.T) {
	s, m := scene(true)
	// Handle is centered 25px above the top edge midpoint: (150, 75).
	ev := m.Down(s, vector.Pt{X: 150, Y: 75})
	if ev.Gesture != Rotating {
		t.Fatalf("expected rotate start, got %+v", ev)
	}
	e, _ := s.Find("a")
	m.Move(s, vector.Pt{X: 150, Y: 300})
	if !near(e.Transform.Rotate, 90) {
		t.Fatalf("expected 90deg, got %v", e.Transform.Rotate)
	}
	m.Move(s, vector.Pt{X: 0, Y: 125})
	if !near(e.Transform.Rotate, 180) {
		t.Fatalf("expected 180deg, got %v", e.Transform.Rotate)
	}
	if e.Transform.X != 0 || e.Transform.Y != 0 {
		t.Fatalf("rotation must not translate: %+v", e.Transform)
	}
}

func TestRotateFollowsElementMovedMidGesture(t *testing.T) {
	s, m := scene(true)
	if ev := m.Down(s, vector.Pt{X: 150, Y: 75}); ev.Gesture != Rotating {
		t.Fatalf("expected rotate start, got %+v", ev)
	}
	e, _ := s.Find("a")
	m.Move(s, vector.Pt{X: 150, Y: 300})
	if !near(e.Transform.Rotate, 90) {
		t.Fatalf("expected 90deg, got %v", e.Transform.Rotate)
	}
	// Shift the box so its center is (250,125); the next step must use the new center.
	Drag(e, vector.Pt{X: 100})
	m.Move(s, vector.Pt{X: 250, Y: 0})
	if !near(e.Transform.Rotate, -90) {
		t.Fatalf("angle must come from the current box, got %v", e.Transform.Rotate)
	}
}

func TestTranslationSumsDragsAndResizeOffsets(t *testing.T) {
	type op struct {
		resize bool
		edges  Edges
		d      vector.Pt
	}
	ops := []op{
		{d: vector.Pt{X: 10, Y: 5}},
		{resize: true, edges: Edges{Left: true}, d: vector.Pt{X: 4}},
		{d: vector.Pt{X: -3, Y: 7}},
		{resize: true, edges: Edges{Top: true}, d: vector.Pt{Y: -6}},
		{resize: true, edges: Edges{Left: true, Top: true}, d: vector.Pt{X: 2, Y: 2}},
		{resize: true, edges: Edges{Right: true, Bottom: true}, d: vector.Pt{X: 9, Y: 9}},
	}
	apply := func(order []int) *domain.Element {
		s, _ := scene(false)
		e, _ := s.Find("a")
		for _, i := range order {
			if ops[i].resize {
				Resize(e, ops[i].edges, ops[i].d)
			} else {
				Drag(e, ops[i].d)
			}
		}
		return e
	}
	forward := apply([]int{0, 1, 2, 3, 4, 5})
	shuffled := apply([]int{5, 3, 0, 4, 2, 1})
	// Drags plus left/top edge moves: x = 10+4-3+2, y = 5+7-6+2.
	for _, e := range []*domain.Element{forward, shuffled} {
		if !near(e.Transform.X, 13) || !near(e.Transform.Y, 8) {
			t.Fatalf("offset = (%v,%v), want (13,8)", e.Transform.X, e.Transform.Y)
		}
		if e.Size != (vector.Size{W: 103, H: 63}) {
			t.Fatalf("size = %+v", e.Size)
		}
	}
}

func TestHandleTapHitsOwner(t *testing.T) {
	s, m := scene(true)
	m.Down(s, vector.Pt{X: 150, Y: 75})
	if ev := m.Up(s, vector.Pt{X: 150, Y: 75}); !ev.Click || ev.HitID != "a" {
		t.Fatalf("tap on the handle must hit its element, got %+v", ev)
	}
}

func TestHandleIgnoredWithoutRotation(t *testing.T) {
	s, m := scene(false)
	if ev := m.Down(s, vector.Pt{X: 150, Y: 75}); ev.Gesture != Idle {
		t.Fatalf("non-rotatable element has no handle: %+v", ev)
	}
}

func TestRotatedElementHandleFollows(t *testing.T) {
	s, m := scene(true)
	e, _ := s.Find("a")
	e.Transform.Rotate = 180
	// Rotated half a turn about (150,125), the handle sits below the box.
	if ev := m.Down(s, vector.Pt{X: 150, Y: 175}); ev.Gesture != Rotating {
		t.Fatalf("expected rotate on the moved handle, got %+v", ev)
	}
}

func TestClickDetection(t *testing.T) {
	s, m := scene(true)
	m.Down(s, vector.Pt{X: 150, Y: 125})
	m.Move(s, vector.Pt{X: 151, Y: 126})
	ev := m.Up(s, vector.Pt{X: 151, Y: 126})
	if !ev.Click || ev.HitID != "a" {
		t.Fatalf("expected click on a, got %+v", ev)
	}

	m.Down(s, vector.Pt{X: 10, Y: 10})
	if ev := m.Up(s, vector.Pt{X: 10, Y: 10}); !ev.Click || ev.HitID != "" {
		t.Fatalf("expected click on empty surface, got %+v", ev)
	}

	m.Down(s, vector.Pt{X: 150, Y: 125})
	m.Move(s, vector.Pt{X: 190, Y: 125})
	if ev := m.Up(s, vector.Pt{X: 150, Y: 125}); ev.Click {
		t.Fatalf("a drag that returns to its start is not a click")
	}
}

func TestUnboundElementsDoNotMove(t *testing.T) {
	s, m := scene(true)
	m.binder.Unbind("a")
	if ev := m.Down(s, vector.Pt{X: 150, Y: 125}); ev.Gesture != Idle {
		t.Fatalf("unbound element started %v", ev.Gesture)
	}
	if _, ok := m.Move(s, vector.Pt{X: 170, Y: 125}); ok {
		t.Fatalf("move without gesture must report false")
	}
	e, _ := s.Find("a")
	if e.Transform != (domain.Transform{}) {
		t.Fatalf("unbound element moved: %+v", e.Transform)
	}
}

func TestBinder(t *testing.T) {
	b := NewBinder()
	b.Bind("x", Options{})
	b.Bind("y", Options{Rotatable: true})
	if o, ok := b.Lookup("y"); !ok || !o.Rotatable || b.Len() != 2 {
		t.Fatalf("unexpected binder state")
	}
	b.Unbind("x")
	if _, ok := b.Lookup("x"); ok {
		t.Fatalf("x should be unbound")
	}
}
