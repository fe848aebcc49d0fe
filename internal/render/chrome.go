/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package render

import "storycanvas/internal/vector"

// Part names the overlay pieces a capture can leave out.
type Part int

const (
	PartToolbar Part = iota
	PartFloatingToolbar
	PartStatus
	PartRotationHandle
)

func (p Part) String() string {
	switch p {
	case PartToolbar:
		return "toolbar"
	case PartFloatingToolbar:
		return "floating-toolbar"
	case PartStatus:
		return "status"
	case PartRotationHandle:
		return "rotation-handle"
	}
	return "unknown"
}

// Chrome is the editor UI drawn on top of the surface: the main toolbar, the floating
// text toolbar and the save status overlay with its progress bar.
type Chrome struct {
	ToolbarVisible  bool
	FloatingPresent bool
	FloatingVisible bool
	StatusVisible   bool
	Message         string
	// MessageOpacity and MessageScale animate the status message entrance.
	MessageOpacity float64
	MessageScale   float64
	// Progress is the bar fill in percent.
	Progress float64
}

// DefaultChrome is the state of a fresh session.
func DefaultChrome() Chrome {
	return Chrome{ToolbarVisible: true, FloatingVisible: true, StatusVisible: true, MessageScale: 1}
}

// Overlay placement relative to the surface size.

func ToolbarRect(w, h float64) vector.Rect {
	return vector.R(w*0.01, 10, 360, 40)
}

func FloatingToolbarRect(w, h float64) vector.Rect {
	return vector.R(w*0.28, 10, 440, 36)
}

func StatusRect(w, h float64) vector.Rect {
	sh := h*0.04 + 20
	return vector.R(w*0.40, h-h*0.10-sh, w*0.20, sh)
}
