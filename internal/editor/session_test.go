/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package editor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"storycanvas/internal/config"
	"storycanvas/internal/domain"
	"storycanvas/internal/export"
	"storycanvas/internal/gesture"
	applog "storycanvas/internal/log"
	"storycanvas/internal/vector"
)

func newSession(t *testing.T) *Session {
	t.Helper()
	cfg := config.Defaults()
	cfg.Export.OutputDir = t.TempDir()
	cfg.Export.AnnounceMs, cfg.Export.ProgressMs, cfg.Export.SettleMs = 0, 0, 0
	s, err := New(cfg, Options{})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{0, 0, 255, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestDragThroughPointerUndoRedo(t *testing.T) {
	s := newSession(t)
	id := s.AddTextBlock()
	e, _ := s.Element(id)
	c := e.Box().Bounds().Center()

	if ev := s.PointerDown(c); ev.Gesture != gesture.Dragging || ev.ElementID != id {
		t.Fatalf("expected drag start on %s, got %+v", id, ev)
	}
	if !s.PointerMove(c.Add(vector.Pt{X: 4, Y: 2})) || !s.PointerMove(c.Add(vector.Pt{X: 10, Y: 5})) {
		t.Fatalf("moves not applied")
	}
	s.PointerUp(c.Add(vector.Pt{X: 10, Y: 5}))

	e, _ = s.Element(id)
	if e.Transform.X != 10 || e.Transform.Y != 5 || e.Transform.CSS() != "translate(10px, 5px) rotate(0deg)" {
		t.Fatalf("unexpected transform after drag: %+v", e.Transform)
	}
	if ok, err := s.Undo(); !ok || err != nil {
		t.Fatalf("undo: %v %v", ok, err)
	}
	e, _ = s.Element(id)
	if e.Transform != (domain.Transform{}) {
		t.Fatalf("undo did not restore transform: %+v", e.Transform)
	}
	if ok, err := s.Redo(); !ok || err != nil {
		t.Fatalf("redo: %v %v", ok, err)
	}
	e, _ = s.Element(id)
	if e.Transform.X != 10 || e.Transform.Y != 5 {
		t.Fatalf("redo did not re-apply drag: %+v", e.Transform)
	}
}

func TestClickWithoutMovePushesNoHistory(t *testing.T) {
	s := newSession(t)
	id := s.AddTextBlock()
	e, _ := s.Element(id)
	c := e.Box().Bounds().Center()
	s.PointerDown(c)
	ev := s.PointerUp(c.Add(vector.Pt{X: 1, Y: 1}))
	if !ev.Click || ev.HitID != id {
		t.Fatalf("expected click on %s, got %+v", id, ev)
	}
	if sel, ok := s.Selected(); !ok || sel != id {
		t.Fatalf("click must select the text block, got %q", sel)
	}
	// Only the text block creation is undoable.
	s.Undo()
	if s.CanUndo() || len(s.Elements()) != 0 {
		t.Fatalf("expected empty history and surface, got %d elements", len(s.Elements()))
	}
	if _, ok := s.Selected(); ok {
		t.Fatalf("selection must be cleared when its element is undone")
	}
}

func TestUndoUploadUnbindsAndRedoReattachesPayload(t *testing.T) {
	s := newSession(t)
	ids := s.AddUploadedImages([]File{{Name: "a.png", Data: pngBytes(t, 10, 10)}})
	if s.binder.Len() != 1 {
		t.Fatalf("expected bound element")
	}
	s.Undo()
	if len(s.Elements()) != 0 || s.binder.Len() != 0 {
		t.Fatalf("undo must remove and unbind the upload")
	}
	s.Redo()
	e, err := s.Element(ids[0])
	if err != nil {
		t.Fatalf("element after redo: %v", err)
	}
	if e.Image.Decoded == nil || len(e.Image.Source) == 0 {
		t.Fatalf("image payload not reattached after redo")
	}
	if _, ok := s.binder.Lookup(ids[0]); !ok {
		t.Fatalf("element not bound after redo")
	}
}

func TestEditsOnUnknownElement(t *testing.T) {
	s := newSession(t)
	for name, err := range map[string]error{
		"move":   s.Move("nope", 1, 1),
		"rotate": s.Rotate("nope", 45),
		"resize": s.Resize("nope", 1, 1),
		"select": s.Select("nope"),
	} {
		if !errors.Is(err, ErrUnknownElement) {
			t.Fatalf("%s: expected ErrUnknownElement, got %v", name, err)
		}
	}
	if _, err := s.Element("nope"); !errors.Is(err, ErrUnknownElement) {
		t.Fatalf("expected ErrUnknownElement, got %v", err)
	}
}

func TestMoveRotateResize(t *testing.T) {
	s := newSession(t)
	id := s.AddUploadedImages([]File{{Name: "a.png", Data: pngBytes(t, 40, 20)}})[0]
	if err := s.Move(id, 5, -3); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := s.Rotate(id, 30); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if err := s.Resize(id, 80, 40); err != nil {
		t.Fatalf("resize: %v", err)
	}
	if err := s.Resize(id, -1, 40); err == nil {
		t.Fatalf("expected error for negative size")
	}
	e, _ := s.Element(id)
	if e.Transform != (domain.Transform{X: 5, Y: -3, Rotate: 30}) || e.Size != (vector.Size{W: 80, H: 40}) {
		t.Fatalf("unexpected element state %+v %+v", e.Transform, e.Size)
	}
}

func TestFrameIsACopy(t *testing.T) {
	s := newSession(t)
	id := s.AddTextBlock()
	f := s.Frame()
	f.Surface.Elements[0].Transform.X = 99
	f.Surface.Elements[0].Text.Doc.SetText("changed")
	e, _ := s.Element(id)
	if e.Transform.X != 0 || e.Text.Doc.Text() != "Edit text..." {
		t.Fatalf("frame shares state with the session")
	}
	if f.Chrome.FloatingPresent {
		t.Fatalf("floating toolbar must be absent without selection")
	}
}

func TestExportPNGRestoresChrome(t *testing.T) {
	s := newSession(t)
	s.AddTextBlock()
	s.AddUploadedImages([]File{{Name: "a.png", Data: pngBytes(t, 20, 20)}})

	res, err := s.Export(context.Background(), export.ModePNG)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if want := filepath.Join(s.Config().Export.OutputDir, "canvas_snapshot.png"); res.Path != want {
		t.Fatalf("path %s, want %s", res.Path, want)
	}
	if _, err := os.Stat(res.Path); err != nil {
		t.Fatalf("snapshot missing: %v", err)
	}
	if res.Width != 1280 || res.Height != 720 {
		t.Fatalf("capture must cover the surface, got %dx%d", res.Width, res.Height)
	}
	select {
	case <-res.Finale.Finished():
	case <-time.After(2 * time.Second):
		t.Fatalf("finale did not finish")
	}
	ch := s.Chrome()
	if !ch.ToolbarVisible || !ch.StatusVisible || !ch.FloatingVisible || ch.Message != export.MsgSavedPNG {
		t.Fatalf("chrome not restored: %+v", ch)
	}
	if s.ExportPhase() != export.PhaseIdle {
		t.Fatalf("pipeline not idle: %v", s.ExportPhase())
	}
}

type lockedBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.String()
}

func TestExportLogsCarrySessionID(t *testing.T) {
	var out lockedBuffer
	applog.Init(applog.Options{Level: "info", Format: "json", Console: &out})
	t.Cleanup(func() { applog.Init(applog.Options{Level: "info", Console: io.Discard}) })

	s := newSession(t)
	if s.ID() == "" {
		t.Fatalf("session has no id")
	}
	if _, err := s.Export(context.Background(), export.ModePNG); err != nil {
		t.Fatalf("export: %v", err)
	}
	var saved string
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.Contains(line, `"export saved"`) {
			saved = line
		}
	}
	if saved == "" {
		t.Fatalf("no export log record in %q", out.String())
	}
	if !strings.Contains(saved, `"session":"`+s.ID()+`"`) {
		t.Fatalf("export record lacks the session id: %s", saved)
	}
}

func TestExportFailureKeepsChromeHidden(t *testing.T) {
	cfg := config.Defaults()
	cfg.Export.AnnounceMs, cfg.Export.ProgressMs, cfg.Export.SettleMs = 0, 0, 0
	// A regular file where the output directory should be.
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg.Export.OutputDir = filepath.Join(blocker, "out")
	s, err := New(cfg, Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := s.Export(context.Background(), export.ModePDF); err == nil {
		t.Fatalf("expected export error")
	}
	ch := s.Chrome()
	if ch.ToolbarVisible || ch.StatusVisible || ch.Message != export.MsgSavingPDF {
		t.Fatalf("failed export must leave the chrome hidden: %+v", ch)
	}
}

func TestOnChangeNotifies(t *testing.T) {
	s := newSession(t)
	n := 0
	s.OnChange(func() { n++ })
	s.AddTextBlock()
	s.SetStatus("hi")
	if n != 2 {
		t.Fatalf("expected 2 notifications, got %d", n)
	}
	b, err := s.Snapshot()
	if err != nil || !bytes.Contains(b, []byte("Edit text...")) {
		t.Fatalf("snapshot: %v %s", err, b)
	}
}
