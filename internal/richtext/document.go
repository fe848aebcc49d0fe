/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package richtext models the styled content of a text block: a flat list of runs,
// each carrying inline formatting. Commands mirror the browser's rich-text editing
// commands (bold, italic, underline, foreColor, fontSize) applied to a rune range.
package richtext

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrRangeOutOfBounds is returned when a range does not fit the document.
var ErrRangeOutOfBounds = errors.New("range out of bounds")

// ErrUnknownCommand is returned by Exec for unsupported commands.
var ErrUnknownCommand = errors.New("unknown command")

// Command names follow the browser's execCommand vocabulary.
type Command string

const (
	CmdBold      Command = "bold"
	CmdItalic    Command = "italic"
	CmdUnderline Command = "underline"
	CmdForeColor Command = "foreColor"
	CmdFontSize  Command = "fontSize"
)

// MaxLegacySize is the largest size token accepted by CmdFontSize.
const MaxLegacySize = 7

// legacyPx maps the legacy 1..7 size tokens to the pixel sizes browsers render them with.
var legacyPx = [MaxLegacySize + 1]float64{0, 10, 13, 16, 18, 24, 32, 48}

// Style is the inline formatting of a run. Zero values mean "inherit from the block".
type Style struct {
	Bold       bool
	Italic     bool
	Underline  bool
	Color      string // "#rrggbb"
	LegacySize int    // 1..7, set by CmdFontSize
	FontSize   string // inline CSS font-size, e.g. "48px"
}

// SizePx resolves the pixel size of the style, falling back to def.
// An inline font-size wins over a legacy size token.
func (s Style) SizePx(def float64) float64 {
	if px, ok := ParsePx(s.FontSize); ok {
		return px
	}
	if s.LegacySize > 0 && s.LegacySize <= MaxLegacySize {
		return legacyPx[s.LegacySize]
	}
	return def
}

// ParsePx parses a CSS pixel length such as "48px".
func ParsePx(v string) (float64, bool) {
	v = strings.TrimSpace(strings.ToLower(v))
	if !strings.HasSuffix(v, "px") {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(v, "px")), 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return f, true
}

// Run is a span of text sharing one Style.
type Run struct {
	Text  string
	Style Style
}

// Range is a half-open rune range [Start, End).
type Range struct{ Start, End int }

// Collapsed reports whether the range selects nothing, like a caret.
func (r Range) Collapsed() bool { return r.End <= r.Start }

// Document is the styled content of one text block.
type Document struct {
	runs []Run
}

// New returns a document holding text with no inline formatting.
func New(text string) *Document {
	d := &Document{}
	if text != "" {
		d.runs = []Run{{Text: text}}
	}
	return d
}

// FromRuns builds a document from runs, merging neighbours with equal style.
func FromRuns(runs []Run) *Document {
	d := &Document{runs: append([]Run(nil), runs...)}
	d.normalize()
	return d
}

// Runs returns a copy of the runs.
func (d *Document) Runs() []Run { return append([]Run(nil), d.runs...) }

// Clone returns an independent copy.
func (d *Document) Clone() *Document { return &Document{runs: d.Runs()} }

// Text returns the plain text.
func (d *Document) Text() string {
	var b strings.Builder
	for _, r := range d.runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

// Len returns the length in runes.
func (d *Document) Len() int {
	n := 0
	for _, r := range d.runs {
		n += utf8.RuneCountInString(r.Text)
	}
	return n
}

// All returns the range covering the whole document.
func (d *Document) All() Range { return Range{Start: 0, End: d.Len()} }

// SetText replaces the content, keeping the style of the first run.
func (d *Document) SetText(text string) {
	var st Style
	if len(d.runs) > 0 {
		st = d.runs[0].Style
	}
	d.runs = nil
	if text != "" {
		d.runs = []Run{{Text: text, Style: st}}
	}
}

// Replace edits the content to read text. Only the span between the common prefix and
// suffix of the old and new text changes, so formatting outside it survives. Inserted
// runes take the style of the rune before them, or of the first run at the start.
func (d *Document) Replace(text string) {
	old, nw := []rune(d.Text()), []rune(text)
	p := 0
	for p < len(old) && p < len(nw) && old[p] == nw[p] {
		p++
	}
	sfx := 0
	for sfx < len(old)-p && sfx < len(nw)-p && old[len(old)-1-sfx] == nw[len(nw)-1-sfx] {
		sfx++
	}
	if p == len(old) && p == len(nw) {
		return
	}
	var st Style
	if p > 0 {
		st, _ = d.StyleAt(p - 1)
	} else if len(d.runs) > 0 {
		st = d.runs[0].Style
	}
	first, last := d.isolate(Range{Start: p, End: len(old) - sfx})
	ins := Run{Text: string(nw[p : len(nw)-sfx]), Style: st}
	d.runs = append(d.runs[:first], append([]Run{ins}, d.runs[last:]...)...)
	d.normalize()
}

// StyleAt returns the style of the rune at offset i.
func (d *Document) StyleAt(i int) (Style, bool) {
	pos := 0
	for _, r := range d.runs {
		n := utf8.RuneCountInString(r.Text)
		if i >= pos && i < pos+n {
			return r.Style, true
		}
		pos += n
	}
	return Style{}, false
}

// Exec applies a formatting command to the runes in rg.
// A collapsed range is a no-op, the way a browser treats a caret without a selection.
func (d *Document) Exec(cmd Command, rg Range, value string) error {
	if rg.Start < 0 || rg.End > d.Len() || rg.Start > rg.End {
		return fmt.Errorf("%w: [%d,%d) of %d", ErrRangeOutOfBounds, rg.Start, rg.End, d.Len())
	}
	var apply func(*Style)
	switch cmd {
	case CmdBold, CmdItalic, CmdUnderline:
		if rg.Collapsed() {
			return nil
		}
		get := flagGetter(cmd)
		on := !d.allHave(rg, get)
		apply = func(s *Style) { *get(s) = on }
	case CmdForeColor:
		apply = func(s *Style) { s.Color = value }
	case CmdFontSize:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 1 || n > MaxLegacySize {
			return fmt.Errorf("fontSize token %q: want 1..%d", value, MaxLegacySize)
		}
		apply = func(s *Style) { s.LegacySize = n }
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
	if rg.Collapsed() {
		return nil
	}
	first, last := d.isolate(rg)
	for i := first; i < last; i++ {
		apply(&d.runs[i].Style)
	}
	d.normalize()
	return nil
}

// ReplaceLegacySize drops the legacy size token from every run carrying it and sets
// the inline font-size instead. It returns the number of runs changed.
func (d *Document) ReplaceLegacySize(token int, fontSize string) int {
	n := 0
	for i := range d.runs {
		if d.runs[i].Style.LegacySize == token {
			d.runs[i].Style.LegacySize = 0
			d.runs[i].Style.FontSize = fontSize
			n++
		}
	}
	d.normalize()
	return n
}

func flagGetter(cmd Command) func(*Style) *bool {
	switch cmd {
	case CmdBold:
		return func(s *Style) *bool { return &s.Bold }
	case CmdItalic:
		return func(s *Style) *bool { return &s.Italic }
	default:
		return func(s *Style) *bool { return &s.Underline }
	}
}

func (d *Document) allHave(rg Range, get func(*Style) *bool) bool {
	pos := 0
	for i := range d.runs {
		n := utf8.RuneCountInString(d.runs[i].Text)
		if pos < rg.End && pos+n > rg.Start && !*get(&d.runs[i].Style) {
			return false
		}
		pos += n
	}
	return true
}

// isolate splits runs so that rg starts and ends on run boundaries and returns the
// index span [first, last) of runs inside rg.
func (d *Document) isolate(rg Range) (first, last int) {
	d.splitAt(rg.Start)
	d.splitAt(rg.End)
	pos := 0
	first, last = -1, -1
	for i, r := range d.runs {
		if pos == rg.Start && first < 0 {
			first = i
		}
		pos += utf8.RuneCountInString(r.Text)
		if pos == rg.End {
			last = i + 1
			break
		}
	}
	if first < 0 {
		first = len(d.runs)
	}
	if last < first {
		last = first
	}
	return first, last
}

func (d *Document) splitAt(off int) {
	pos := 0
	for i, r := range d.runs {
		n := utf8.RuneCountInString(r.Text)
		if off > pos && off < pos+n {
			rs := []rune(r.Text)
			head := Run{Text: string(rs[:off-pos]), Style: r.Style}
			tail := Run{Text: string(rs[off-pos:]), Style: r.Style}
			d.runs = append(d.runs[:i], append([]Run{head, tail}, d.runs[i+1:]...)...)
			return
		}
		pos += n
	}
}

func (d *Document) normalize() {
	out := d.runs[:0]
	for _, r := range d.runs {
		if r.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Style == r.Style {
			out[n-1].Text += r.Text
			continue
		}
		out = append(out, r)
	}
	d.runs = out
}
