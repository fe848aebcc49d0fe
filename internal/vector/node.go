/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package vector

// Box is a w×h rectangle in its own local frame, placed on the surface by a transform.
// Local (0,0) is the top-left corner of the untransformed box.
type Box struct {
	Size Size
	Xf   Affine2D
}

// Corners returns the four transformed corners in order NW, NE, SE, SW.
func (b Box) Corners() [4]Pt {
	w, h := b.Size.W, b.Size.H
	return [4]Pt{
		b.Xf.Apply(Pt{0, 0}),
		b.Xf.Apply(Pt{w, 0}),
		b.Xf.Apply(Pt{w, h}),
		b.Xf.Apply(Pt{0, h}),
	}
}

// Bounds returns the axis-aligned bounding box of the transformed rectangle.
func (b Box) Bounds() Rect {
	cs := b.Corners()
	minX, minY := cs[0].X, cs[0].Y
	maxX, maxY := minX, minY
	for _, p := range cs[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// ToLocal maps a surface point into the box's local frame.
func (b Box) ToLocal(p Pt) Pt { return b.Xf.Invert().Apply(p) }

// Hit reports whether p lies inside the transformed rectangle.
func (b Box) Hit(p Pt) bool {
	return R(0, 0, b.Size.W, b.Size.H).Contains(b.ToLocal(p))
}

// HitLocal reports whether p lies inside r, given in the box's local frame.
// r may extend outside the box, e.g. for handles drawn above it.
func (b Box) HitLocal(p Pt, r Rect) bool {
	return r.Contains(b.ToLocal(p))
}
