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
	"fmt"
	"log/slog"
	"slices"

	"storycanvas/internal/domain"
	"storycanvas/internal/richtext"
	"storycanvas/internal/vector"
)

var (
	// ErrUnsupportedFontSize is returned for font sizes outside FontSizes.
	ErrUnsupportedFontSize = errors.New("unsupported font size")
	// ErrInvalidColor is returned for colors that are not #rgb or #rrggbb.
	ErrInvalidColor = errors.New("invalid color")
)

// FontSizes are the sizes offered by the floating toolbar.
var FontSizes = []string{"16px", "24px", "32px", "48px", "60px", "72px", "100px"}

// sizeToken is the legacy size a font size change is staged under before the inline
// font-size replaces it.
const sizeToken = richtext.MaxLegacySize

// Style names accepted by ApplyTextStyle.
const (
	StyleBold      = "bold"
	StyleItalic    = "italic"
	StyleUnderline = "underline"
	StyleFontSize  = "fontSize"
	StyleColor     = "color"
	StyleForeColor = "foreColor"
)

// Click selects the top-most element under p if it is a text block and clears the
// selection otherwise.
func (s *Session) Click(p vector.Pt) {
	s.mu.Lock()
	var id string
	if e := s.surface.TopAt(p); e != nil {
		id = e.ID
	}
	s.selectLocked(id)
	s.mu.Unlock()
	s.notify()
}

// Select makes the element with the given ID the selection. Non-text elements clear it.
func (s *Session) Select(id string) error {
	s.mu.Lock()
	if _, ok := s.surface.Find(id); !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownElement, id)
	}
	s.selectLocked(id)
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *Session) selectLocked(id string) {
	e, ok := s.surface.Find(id)
	if !ok || e.Kind != domain.KindText || e.Text == nil {
		if s.selected != "" {
			s.log.Debug("selection cleared")
		}
		s.selected, s.rng = "", richtext.Range{}
		return
	}
	if s.selected != id {
		s.rng = richtext.Range{}
	}
	s.selected = id
	s.log.Debug("text block selected", slog.String("id", id))
}

// Selected returns the ID of the selected text block.
func (s *Session) Selected() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.selected != ""
}

// TextRange returns the selected rune range inside the selected text block.
func (s *Session) TextRange() richtext.Range {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng
}

func (s *Session) selectedLocked() (*domain.Element, bool) {
	if s.selected == "" {
		return nil, false
	}
	e, ok := s.surface.Find(s.selected)
	if !ok || e.Text == nil {
		return nil, false
	}
	return e, true
}

// SetTextRange selects the runes [start, end) of the selected text block.
func (s *Session) SetTextRange(start, end int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.selectedLocked()
	if !ok {
		return nil
	}
	if start < 0 || end < start || end > e.Text.Doc.Len() {
		return fmt.Errorf("%w: [%d,%d) of %d", richtext.ErrRangeOutOfBounds, start, end, e.Text.Doc.Len())
	}
	s.rng = richtext.Range{Start: start, End: end}
	return nil
}

// SelectAllText selects the whole content of the selected text block.
func (s *Session) SelectAllText() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.selectedLocked(); ok {
		s.rng = e.Text.Doc.All()
	}
}

// ApplyTextStyle formats the selected range of the selected text block. Without a
// selection, and for style names it does not know, it does nothing.
func (s *Session) ApplyTextStyle(style, value string) error {
	s.mu.Lock()
	e, ok := s.selectedLocked()
	if !ok {
		s.mu.Unlock()
		s.log.Debug("style without selection", slog.String("style", style))
		return nil
	}
	var cmd richtext.Command
	switch style {
	case StyleBold:
		cmd = richtext.CmdBold
	case StyleItalic:
		cmd = richtext.CmdItalic
	case StyleUnderline:
		cmd = richtext.CmdUnderline
	case StyleColor, StyleForeColor:
		c, err := domain.ParseHex(value)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("%w: %q", ErrInvalidColor, value)
		}
		cmd, value = richtext.CmdForeColor, c.Hex()
	case StyleFontSize:
		if !slices.Contains(FontSizes, value) {
			s.mu.Unlock()
			return fmt.Errorf("%w: %q", ErrUnsupportedFontSize, value)
		}
		cmd = richtext.CmdFontSize
	default:
		s.mu.Unlock()
		s.log.Debug("style ignored", slog.String("style", style))
		return nil
	}

	doc := e.Text.Doc
	before := doc.Clone()
	snap, capErr := s.captureLocked(style, "")

	var err error
	if cmd == richtext.CmdFontSize {
		err = doc.Exec(cmd, s.rng, fmt.Sprint(sizeToken))
		if err == nil {
			doc.ReplaceLegacySize(sizeToken, value)
		}
	} else {
		err = doc.Exec(cmd, s.rng, value)
	}
	changed := err == nil && doc.HTML() != before.HTML()
	if changed && capErr == nil {
		s.history.Push(snap)
	}
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("apply %s: %w", style, err)
	}
	if changed {
		s.notify()
	}
	return nil
}

// ApplyTextAlignment sets the alignment of the selected text block if it is editable.
func (s *Session) ApplyTextAlignment(align string) error {
	a, err := domain.ParseAlign(align)
	if err != nil {
		return err
	}
	s.mu.Lock()
	e, ok := s.selectedLocked()
	if !ok || !e.Text.Editable || e.Text.Align == a {
		s.mu.Unlock()
		return nil
	}
	s.pushLocked("align", "")
	e.Text.Align = a
	s.mu.Unlock()
	s.notify()
	return nil
}

// EditText replaces the content of the selected text block. Consecutive edits of the
// same block undo together.
func (s *Session) EditText(text string) {
	s.mu.Lock()
	e, ok := s.selectedLocked()
	if !ok || !e.Text.Editable || e.Text.Doc.Text() == text {
		s.mu.Unlock()
		return
	}
	s.pushLocked("type", "text:"+e.ID)
	e.Text.Doc.Replace(text)
	n := e.Text.Doc.Len()
	s.rng = richtext.Range{Start: min(s.rng.Start, n), End: min(s.rng.End, n)}
	s.mu.Unlock()
	s.notify()
}

// TextHTML returns the content of a text block as an HTML fragment.
func (s *Session) TextHTML(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.surface.Find(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownElement, id)
	}
	if e.Text == nil {
		return "", fmt.Errorf("element %s is not a text block", id)
	}
	return e.Text.Doc.HTML(), nil
}
