/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package gesture turns pointer messages into drag, resize and rotate edits of element
// transforms. Each gesture is a small state machine: Idle, then Dragging, Resizing or
// Rotating while the pointer is down, then Idle again.
package gesture

import "sync"

// Options select the interactions installed for an element.
type Options struct {
	Rotatable bool
}

// Binder records which elements take part in gestures. It is safe for concurrent use.
type Binder struct {
	mu    sync.RWMutex
	bound map[string]Options
}

func NewBinder() *Binder { return &Binder{bound: make(map[string]Options)} }

// Bind installs drag and four-edge resize for id, and rotate when opt.Rotatable is set.
// Binding again replaces the options.
func (b *Binder) Bind(id string, opt Options) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bound[id] = opt
}

// Unbind removes all interactions of id.
func (b *Binder) Unbind(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.bound, id)
}

// Lookup returns the options of a bound element.
func (b *Binder) Lookup(id string) (Options, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.bound[id]
	return o, ok
}

// Len returns the number of bound elements.
func (b *Binder) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.bound)
}
