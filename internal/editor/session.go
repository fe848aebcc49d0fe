/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package editor holds the editing session: the canvas surface, the selection, gesture
// dispatch, undo history and the export pipeline. All methods are safe for concurrent use.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"storycanvas/internal/config"
	"storycanvas/internal/domain"
	"storycanvas/internal/export"
	"storycanvas/internal/gesture"
	applog "storycanvas/internal/log"
	"storycanvas/internal/render"
	"storycanvas/internal/richtext"
	"storycanvas/internal/telemetry"
	"storycanvas/internal/undo"
	"storycanvas/internal/vector"
)

// ErrUnknownElement is returned when an element ID is not on the surface.
var ErrUnknownElement = errors.New("unknown element")

// Options wires the export side of a session. Zero values pick the defaults: the Go
// rasterizer, a file sink writing into the configured output directory, no events.
type Options struct {
	Raster  export.Rasterizer
	Sink    export.Sink
	Events  telemetry.Sender
	OnPhase func(export.Phase)
}

// Session is one editor window worth of state.
type Session struct {
	mu       sync.Mutex
	cfg      config.AppConfig
	surface  *domain.Surface
	selected string
	rng      richtext.Range
	chrome   render.Chrome

	binder   *gesture.Binder
	machine  *gesture.Machine
	history  *undo.Manager
	payloads map[string]*domain.ImageData
	// before is the scene captured at pointer-down; it is pushed on the first move.
	before *undo.Snapshot

	listeners []func()
	pipeline  *export.Pipeline
	id        string
	log       *slog.Logger
	now       func() time.Time
}

// New creates a session with an empty surface sized from cfg.
func New(cfg config.AppConfig, opt Options) (*Session, error) {
	s := &Session{
		cfg:      cfg,
		surface:  domain.NewSurface(cfg.Canvas.Width, cfg.Canvas.Height),
		chrome:   render.DefaultChrome(),
		binder:   gesture.NewBinder(),
		payloads: make(map[string]*domain.ImageData),
		log:      applog.WithComponent("editor"),
		now:      time.Now,
		id:       uuid.NewString(),
	}
	if cfg.Canvas.Background != "" {
		s.surface.Background = cfg.Canvas.Background
	}
	s.machine = gesture.NewMachine(s.binder, gesture.Config{
		EdgeMargin: cfg.Gestures.EdgeMargin,
		ClickSlop:  cfg.Gestures.ClickSlop,
	})
	s.history = undo.NewManager(undo.Config{
		MaxBytes:    32 * 1024 * 1024,
		MaxDepth:    100,
		MinInterval: 300 * time.Millisecond,
	})

	raster := opt.Raster
	if raster == nil {
		r, err := render.New(nil)
		if err != nil {
			return nil, fmt.Errorf("init rasterizer: %w", err)
		}
		raster = r
	}
	sink := opt.Sink
	if sink == nil {
		sink = export.FileDownloader{Dir: cfg.Export.OutputDir}
	}
	s.pipeline = export.New(s, raster, sink, export.Config{
		Timing: export.Timing{
			Announce: cfg.Export.Announce(),
			Progress: cfg.Export.Progress(),
			Settle:   cfg.Export.Settle(),
		},
		PNGName: cfg.Export.PNGName,
		PDFName: cfg.Export.PDFName,
		Events:  opt.Events,
		OnPhase: opt.OnPhase,
	})
	return s, nil
}

// OnChange registers fn to be called after every state change. Listeners run on the
// goroutine that made the change, outside the session lock.
func (s *Session) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Session) notify() {
	s.mu.Lock()
	ls := append([]func(){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range ls {
		fn()
	}
}

// Config returns the configuration the session was created with.
func (s *Session) Config() config.AppConfig { return s.cfg }

// Size returns the surface size.
func (s *Session) Size() vector.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return vector.Size{W: s.surface.Width, H: s.surface.Height}
}

// Elements returns copies of all elements in draw order.
func (s *Session) Elements() []*domain.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Element, len(s.surface.Elements))
	for i, e := range s.surface.Elements {
		out[i] = e.Clone()
	}
	return out
}

// Element returns a copy of the element with the given ID.
func (s *Session) Element(id string) (*domain.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.surface.Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownElement, id)
	}
	return e.Clone(), nil
}

// Chrome returns the current overlay state.
func (s *Session) Chrome() render.Chrome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chromeLocked()
}

func (s *Session) chromeLocked() render.Chrome {
	ch := s.chrome
	ch.FloatingPresent = s.selected != ""
	return ch
}

// Snapshot serializes the scene. It is used for crash dumps.
func (s *Session) Snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface.Snapshot()
}

// Host side of the export pipeline.

func (s *Session) SetStatus(msg string) {
	s.mu.Lock()
	s.chrome.Message = msg
	s.mu.Unlock()
	s.notify()
}

func (s *Session) SetMessageStyle(opacity, scale float64) {
	s.mu.Lock()
	s.chrome.MessageOpacity, s.chrome.MessageScale = opacity, scale
	s.mu.Unlock()
	s.notify()
}

func (s *Session) SetProgress(pct float64) {
	s.mu.Lock()
	s.chrome.Progress = pct
	s.mu.Unlock()
	s.notify()
}

func (s *Session) SetChromeVisible(visible bool) {
	s.mu.Lock()
	s.chrome.ToolbarVisible = visible
	s.chrome.FloatingVisible = visible
	s.chrome.StatusVisible = visible
	s.mu.Unlock()
	s.notify()
}

// Frame returns a copy of the scene and chrome for rasterizing.
func (s *Session) Frame() render.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	surf := *s.surface
	surf.Elements = make([]*domain.Element, len(s.surface.Elements))
	for i, e := range s.surface.Elements {
		surf.Elements[i] = e.Clone()
	}
	return render.Frame{Surface: &surf, Chrome: s.chromeLocked()}
}

// Export runs the save pipeline. It blocks until the file is written; the success
// animation keeps running on Result.Finale.
func (s *Session) Export(ctx context.Context, mode export.Mode) (export.Result, error) {
	return s.pipeline.Run(applog.ContextWithSession(ctx, s.id), mode)
}

// ID identifies the session in log records.
func (s *Session) ID() string { return s.id }

// ExportPhase returns the current phase of the export pipeline.
func (s *Session) ExportPhase() export.Phase { return s.pipeline.Phase() }

// Pointer input.

// PointerDown starts a gesture on the element under p, if any.
func (s *Session) PointerDown(p vector.Pt) gesture.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := s.machine.Down(s.surface, p)
	s.before = nil
	if ev.Gesture != gesture.Idle {
		if snap, err := s.captureLocked(ev.Gesture.String(), ""); err == nil {
			s.before = &snap
		} else {
			s.log.Warn("capture undo state", slog.Any("err", err))
		}
	}
	return ev
}

// PointerMove applies the active gesture. It reports whether anything moved.
func (s *Session) PointerMove(p vector.Pt) bool {
	s.mu.Lock()
	ev, ok := s.machine.Move(s.surface, p)
	if ok && s.before != nil {
		s.history.Push(*s.before)
		s.before = nil
	}
	if ok && ev.Gesture == gesture.Resizing {
		s.reflowLocked(ev.ElementID)
	}
	s.mu.Unlock()
	if ok {
		s.notify()
	}
	return ok
}

// PointerUp ends the gesture. A down/up pair within the click slop selects the element
// that was under the pointer.
func (s *Session) PointerUp(p vector.Pt) gesture.Event {
	s.mu.Lock()
	ev := s.machine.Up(s.surface, p)
	s.before = nil
	if ev.Click {
		s.selectLocked(ev.HitID)
	}
	s.mu.Unlock()
	s.notify()
	return ev
}

// Move translates an element the way a drag does.
func (s *Session) Move(id string, dx, dy float64) error {
	return s.edit(id, "move", func(e *domain.Element) { gesture.Drag(e, vector.Pt{X: dx, Y: dy}) })
}

// Rotate sets the rotation of an element in degrees.
func (s *Session) Rotate(id string, deg float64) error {
	return s.edit(id, "rotate", func(e *domain.Element) { e.Transform.Rotate = deg })
}

// Resize sets the size of an element, keeping its position.
func (s *Session) Resize(id string, w, h float64) error {
	if w < 0 || h < 0 {
		return fmt.Errorf("resize %s: negative size %vx%v", id, w, h)
	}
	return s.edit(id, "resize", func(e *domain.Element) { e.Size = vector.Size{W: w, H: h} })
}

func (s *Session) edit(id, label string, fn func(*domain.Element)) error {
	s.mu.Lock()
	e, ok := s.surface.Find(id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownElement, id)
	}
	s.pushLocked(label, "")
	fn(e)
	s.reflowLocked(id)
	s.mu.Unlock()
	s.notify()
	return nil
}

// reflowLocked lays out the flow siblings again when the size of a flow element changed.
func (s *Session) reflowLocked(id string) {
	if e, ok := s.surface.Find(id); ok && e.Placement == domain.PlacementFlow {
		s.surface.Reflow()
	}
}

// Undo history.

func (s *Session) captureLocked(label, key string) (undo.Snapshot, error) {
	blob, err := s.surface.Snapshot()
	if err != nil {
		return undo.Snapshot{}, err
	}
	return undo.Snapshot{Label: label, Key: key, Blob: blob, TS: s.now()}, nil
}

func (s *Session) pushLocked(label, key string) {
	snap, err := s.captureLocked(label, key)
	if err != nil {
		s.log.Warn("capture undo state", slog.String("edit", label), slog.Any("err", err))
		return
	}
	s.history.Push(snap)
}

// CanUndo reports whether an edit can be undone.
func (s *Session) CanUndo() bool { return s.history.CanUndo() }

// CanRedo reports whether an undone edit can be applied again.
func (s *Session) CanRedo() bool { return s.history.CanRedo() }

// Undo reverts the latest edit. It returns false when there is nothing to undo.
func (s *Session) Undo() (bool, error) {
	return s.step(s.history.Undo)
}

// Redo applies the latest undone edit again.
func (s *Session) Redo() (bool, error) {
	return s.step(s.history.Redo)
}

func (s *Session) step(pop func(undo.Snapshot) (undo.Snapshot, bool)) (bool, error) {
	s.mu.Lock()
	cur, err := s.captureLocked("current", "")
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	snap, ok := pop(cur)
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	if err := s.restoreLocked(snap.Blob); err != nil {
		s.mu.Unlock()
		return false, fmt.Errorf("restore %s: %w", snap.Label, err)
	}
	s.mu.Unlock()
	s.log.Debug("history", slog.String("edit", snap.Label))
	s.notify()
	return true, nil
}

func (s *Session) restoreLocked(blob []byte) error {
	surf, err := domain.Restore(blob, func(id string) *domain.ImageData { return s.payloads[id] })
	if err != nil {
		return err
	}
	for _, e := range s.surface.Elements {
		if _, ok := surf.Find(e.ID); !ok {
			s.binder.Unbind(e.ID)
		}
	}
	for _, e := range surf.Elements {
		s.binder.Bind(e.ID, gesture.Options{Rotatable: e.HasRotationHandle})
	}
	s.surface = surf
	if sel, ok := surf.Find(s.selected); !ok || sel.Kind != domain.KindText {
		s.selected, s.rng = "", richtext.Range{}
	} else if n := sel.Text.Doc.Len(); s.rng.End > n {
		s.rng = richtext.Range{Start: min(s.rng.Start, n), End: n}
	}
	return nil
}
