/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package richtext

import (
	"strings"
	"testing"
)

func TestHTMLRendersInlineMarkup(t *testing.T) {
	d := New("Hello world")
	_ = d.Exec(CmdBold, Range{Start: 0, End: 5}, "")
	_ = d.Exec(CmdFontSize, Range{Start: 6, End: 11}, "7")
	d.ReplaceLegacySize(7, "48px")

	out := d.HTML()
	if !strings.Contains(out, "<b>Hello</b>") {
		t.Fatalf("missing bold markup: %s", out)
	}
	if !strings.Contains(out, "font-size: 48px") {
		t.Fatalf("missing inline font-size: %s", out)
	}
	if strings.Contains(out, "size=") {
		t.Fatalf("legacy size attribute left over: %s", out)
	}
}

func TestHTMLRoundTrip(t *testing.T) {
	d := New("Line one\nLine two")
	_ = d.Exec(CmdItalic, Range{Start: 0, End: 4}, "")
	_ = d.Exec(CmdForeColor, Range{Start: 9, End: 13}, "#00ff00")
	_ = d.Exec(CmdUnderline, Range{Start: 9, End: 17}, "")

	back, err := ParseHTML(d.HTML())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if back.Text() != d.Text() {
		t.Fatalf("text mismatch: %q vs %q", back.Text(), d.Text())
	}
	want := d.Runs()
	got := back.Runs()
	if len(got) != len(want) {
		t.Fatalf("run count mismatch: %+v vs %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("run %d mismatch: %+v vs %+v", i, got[i], want[i])
		}
	}
}

func TestParseHTMLBrowserMarkup(t *testing.T) {
	src := `Edit <span style="font-weight: bold; color: #123456">text</span><div>next</div>`
	d, err := ParseHTML(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Text() != "Edit text\nnext" {
		t.Fatalf("unexpected text: %q", d.Text())
	}
	st, _ := d.StyleAt(5)
	if !st.Bold || st.Color != "#123456" {
		t.Fatalf("inline css not applied: %+v", st)
	}
}
