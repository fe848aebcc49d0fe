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
	"errors"
	"testing"
	"time"

	"storycanvas/internal/domain"
	"storycanvas/internal/richtext"
	"storycanvas/internal/vector"
)

// selectedText adds a text block and selects it.
func selectedText(t *testing.T, s *Session) string {
	t.Helper()
	id := s.AddTextBlock()
	if err := s.Select(id); err != nil {
		t.Fatalf("select: %v", err)
	}
	return id
}

func html(t *testing.T, s *Session, id string) string {
	t.Helper()
	h, err := s.TextHTML(id)
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	return h
}

func TestClickSelection(t *testing.T) {
	s := newSession(t)
	img := s.AddUploadedImages([]File{{Name: "a.png", Data: pngBytes(t, 300, 100)}})[0]
	txt := s.AddTextBlock()

	// The text block (12.8,72 256x72) lies over the image (100,100 300x100).
	s.Click(vector.Pt{X: 150, Y: 120})
	if sel, ok := s.Selected(); !ok || sel != txt || !s.Chrome().FloatingPresent {
		t.Fatalf("click on text must select it, got %q", sel)
	}
	s.Click(vector.Pt{X: 350, Y: 180})
	if _, ok := s.Selected(); ok || s.Chrome().FloatingPresent {
		t.Fatalf("click on image must clear the selection")
	}
	s.Click(vector.Pt{X: 150, Y: 120})
	s.Click(vector.Pt{X: 1000, Y: 600})
	if _, ok := s.Selected(); ok {
		t.Fatalf("click on empty surface must clear the selection")
	}
	if err := s.Select(img); err != nil {
		t.Fatalf("select image: %v", err)
	}
	if _, ok := s.Selected(); ok {
		t.Fatalf("images are never selected")
	}
}

func TestApplyTextStyleWithoutSelectionIsNoOp(t *testing.T) {
	cases := []struct{ style, value string }{
		{StyleBold, ""},
		{StyleColor, "not-a-color"},
		{StyleFontSize, "20px"},
		{StyleFontSize, "48px"},
	}
	for _, tc := range cases {
		s := newSession(t)
		id := s.AddTextBlock()
		before := html(t, s, id)
		if err := s.ApplyTextStyle(tc.style, tc.value); err != nil {
			t.Fatalf("%s %q without selection: %v", tc.style, tc.value, err)
		}
		if got := html(t, s, id); got != before {
			t.Fatalf("content changed without selection: %q", got)
		}
		if s.CanUndo() {
			t.Fatalf("%s without selection pushed history", tc.style)
		}
	}
}

func TestApplyTextStyleToggles(t *testing.T) {
	s := newSession(t)
	id := selectedText(t, s)

	// A caret without range changes nothing.
	if err := s.ApplyTextStyle(StyleBold, ""); err != nil {
		t.Fatalf("bold: %v", err)
	}
	if got := html(t, s, id); got != "Edit text..." {
		t.Fatalf("collapsed range must be a no-op, got %q", got)
	}

	s.SelectAllText()
	for _, tc := range []struct {
		style string
		want  string
	}{
		{StyleBold, "<b>Edit text...</b>"},
		{StyleItalic, "<b><i>Edit text...</i></b>"},
		{StyleUnderline, "<b><i><u>Edit text...</u></i></b>"},
		{StyleBold, "<i><u>Edit text...</u></i>"},
	} {
		if err := s.ApplyTextStyle(tc.style, ""); err != nil {
			t.Fatalf("%s: %v", tc.style, err)
		}
		if got := html(t, s, id); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.style, got, tc.want)
		}
	}
}

func TestApplyTextStylePartialRangeAppliesToAll(t *testing.T) {
	s := newSession(t)
	id := selectedText(t, s)
	if err := s.SetTextRange(0, 4); err != nil {
		t.Fatalf("range: %v", err)
	}
	s.ApplyTextStyle(StyleBold, "")
	s.SelectAllText()
	// Mixed range: bold is applied to the rest, not removed.
	s.ApplyTextStyle(StyleBold, "")
	if got := html(t, s, id); got != "<b>Edit text...</b>" {
		t.Fatalf("got %q", got)
	}
	if err := s.SetTextRange(3, 99); !errors.Is(err, richtext.ErrRangeOutOfBounds) {
		t.Fatalf("expected ErrRangeOutOfBounds, got %v", err)
	}
}

func TestApplyFontSize(t *testing.T) {
	s := newSession(t)
	id := selectedText(t, s)
	if err := s.SetTextRange(0, 4); err != nil {
		t.Fatalf("range: %v", err)
	}
	if err := s.ApplyTextStyle(StyleFontSize, "48px"); err != nil {
		t.Fatalf("font size: %v", err)
	}
	e, _ := s.Element(id)
	runs := e.Text.Doc.Runs()
	if len(runs) != 2 || runs[0].Text != "Edit" {
		t.Fatalf("unexpected runs %+v", runs)
	}
	if runs[0].Style.FontSize != "48px" || runs[0].Style.LegacySize != 0 {
		t.Fatalf("legacy token must be replaced by the inline size, got %+v", runs[0].Style)
	}
	if runs[1].Style != (richtext.Style{}) {
		t.Fatalf("unselected text changed: %+v", runs[1].Style)
	}
	if got := html(t, s, id); got != "<font style=\"font-size: 48px;\">Edit</font> text..." {
		t.Fatalf("got %q", got)
	}

	if err := s.ApplyTextStyle(StyleFontSize, "20px"); !errors.Is(err, ErrUnsupportedFontSize) {
		t.Fatalf("expected ErrUnsupportedFontSize, got %v", err)
	}
}

func TestApplyColor(t *testing.T) {
	s := newSession(t)
	id := selectedText(t, s)
	s.SelectAllText()
	if err := s.ApplyTextStyle(StyleColor, "red"); !errors.Is(err, ErrInvalidColor) {
		t.Fatalf("expected ErrInvalidColor, got %v", err)
	}
	if err := s.ApplyTextStyle(StyleColor, "#f00"); err != nil {
		t.Fatalf("color: %v", err)
	}
	if got := html(t, s, id); got != "<font color=\"#ff0000\">Edit text...</font>" {
		t.Fatalf("got %q", got)
	}
	if err := s.ApplyTextStyle(StyleForeColor, "#00FF00"); err != nil {
		t.Fatalf("foreColor: %v", err)
	}
	e, _ := s.Element(id)
	if st, _ := e.Text.Doc.StyleAt(0); st.Color != "#00ff00" {
		t.Fatalf("color %q", st.Color)
	}
	if err := s.ApplyTextStyle("strikeThrough", ""); err != nil {
		t.Fatalf("unknown styles are ignored, got %v", err)
	}
}

func TestStyleIsUndoable(t *testing.T) {
	s := newSession(t)
	id := selectedText(t, s)
	s.SelectAllText()
	s.ApplyTextStyle(StyleBold, "")
	s.Undo()
	if got := html(t, s, id); got != "Edit text..." {
		t.Fatalf("undo did not revert bold: %q", got)
	}
	if sel, _ := s.Selected(); sel != id {
		t.Fatalf("selection lost on undo")
	}
}

func TestApplyTextAlignment(t *testing.T) {
	s := newSession(t)
	id := selectedText(t, s)
	if err := s.ApplyTextAlignment("center"); err != nil {
		t.Fatalf("align: %v", err)
	}
	e, _ := s.Element(id)
	if e.Text.Align != domain.AlignCenter {
		t.Fatalf("align %q", e.Text.Align)
	}
	if err := s.ApplyTextAlignment("justify"); err == nil {
		t.Fatalf("expected error for unsupported alignment")
	}

	// Non-editable blocks keep their alignment.
	s.mu.Lock()
	el, _ := s.surface.Find(id)
	el.Text.Editable = false
	s.mu.Unlock()
	if err := s.ApplyTextAlignment("right"); err != nil {
		t.Fatalf("align: %v", err)
	}
	e, _ = s.Element(id)
	if e.Text.Align != domain.AlignCenter {
		t.Fatalf("non-editable block changed to %q", e.Text.Align)
	}
}

func TestEditTextCoalesces(t *testing.T) {
	s := newSession(t)
	now := time.Unix(1000, 0)
	s.now = func() time.Time { return now }
	id := selectedText(t, s)
	s.SelectAllText()
	s.ApplyTextStyle(StyleBold, "")

	now = now.Add(time.Second)
	s.EditText("H")
	now = now.Add(50 * time.Millisecond)
	s.EditText("Hi")
	if got := html(t, s, id); got != "<b>Hi</b>" {
		t.Fatalf("edit must keep the first run style, got %q", got)
	}
	if r := s.TextRange(); r.End > 2 {
		t.Fatalf("range not clamped: %+v", r)
	}
	s.Undo()
	if got := html(t, s, id); got != "<b>Edit text...</b>" {
		t.Fatalf("one undo must revert the whole typing burst, got %q", got)
	}
}

func TestEditTextKeepsInlineFormatting(t *testing.T) {
	s := newSession(t)
	id := selectedText(t, s)
	if err := s.SetTextRange(5, 9); err != nil {
		t.Fatalf("range: %v", err)
	}
	if err := s.ApplyTextStyle(StyleBold, ""); err != nil {
		t.Fatalf("bold: %v", err)
	}
	if err := s.ApplyTextStyle(StyleColor, "#00ff00"); err != nil {
		t.Fatalf("color: %v", err)
	}
	before := html(t, s, id)

	s.EditText("Edit text...!")
	want := before + "!"
	if got := html(t, s, id); got != want {
		t.Fatalf("typing must keep the styled run, got %q want %q", got, want)
	}
}

func TestStylingOneBlockLeavesOthersUntouched(t *testing.T) {
	s := newSession(t)
	other := s.AddTextBlock()
	if err := s.Select(other); err != nil {
		t.Fatalf("select: %v", err)
	}
	s.EditText("Second block")
	id := selectedText(t, s)
	want := html(t, s, other)

	s.SelectAllText()
	for _, st := range []struct{ style, value string }{
		{StyleBold, ""}, {StyleItalic, ""}, {StyleUnderline, ""},
		{StyleFontSize, "72px"}, {StyleColor, "#123456"},
	} {
		if err := s.ApplyTextStyle(st.style, st.value); err != nil {
			t.Fatalf("%s: %v", st.style, err)
		}
	}
	if err := s.ApplyTextAlignment("right"); err != nil {
		t.Fatalf("align: %v", err)
	}
	s.EditText("First block")

	if got := html(t, s, other); got != want {
		t.Fatalf("other block changed: %q want %q", got, want)
	}
	e, _ := s.Element(other)
	if e.Text.Align != domain.AlignLeft {
		t.Fatalf("other block alignment changed to %q", e.Text.Align)
	}
	if got := html(t, s, id); got == want {
		t.Fatalf("selected block was not styled: %q", got)
	}
}

func TestTapOnRotationHandleKeepsSelection(t *testing.T) {
	s := newSession(t)
	id := selectedText(t, s)
	// Block at (12.8,72), 256 wide: the handle is centered at (140.8,47).
	p := vector.Pt{X: 140.8, Y: 47}
	s.PointerDown(p)
	s.PointerUp(p)
	if sel, ok := s.Selected(); !ok || sel != id {
		t.Fatalf("tap on the handle must keep the block selected, got %q", sel)
	}
	e, _ := s.Element(id)
	if e.Transform.Rotate != 0 {
		t.Fatalf("a tap must not rotate: %v", e.Transform.Rotate)
	}
}
