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
	"fmt"
	"strconv"
	"strings"

	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTML renders the document as the markup a contenteditable region holds after the
// equivalent browser commands: <font> for color and size, then <b>, <i> and <u>.
func (d *Document) HTML() string {
	var b strings.Builder
	for _, r := range d.runs {
		for _, n := range runNodes(r) {
			// html.Render only fails on writer errors; strings.Builder never fails.
			_ = html.Render(&b, n)
		}
	}
	return b.String()
}

func runNodes(r Run) []*html.Node {
	var out []*html.Node
	lines := strings.Split(r.Text, "\n")
	for i, line := range lines {
		if i > 0 {
			out = append(out, &html.Node{Type: html.ElementNode, Data: "br", DataAtom: atom.Br})
		}
		if line == "" {
			continue
		}
		out = append(out, wrap(r.Style, &html.Node{Type: html.TextNode, Data: line}))
	}
	return out
}

func wrap(st Style, inner *html.Node) *html.Node {
	n := inner
	enclose := func(tag string, a atom.Atom, attrs ...html.Attribute) {
		e := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: a, Attr: attrs}
		e.AppendChild(n)
		n = e
	}
	if st.Underline {
		enclose("u", atom.U)
	}
	if st.Italic {
		enclose("i", atom.I)
	}
	if st.Bold {
		enclose("b", atom.B)
	}
	var attrs []html.Attribute
	if st.Color != "" {
		attrs = append(attrs, html.Attribute{Key: "color", Val: st.Color})
	}
	if st.LegacySize > 0 {
		attrs = append(attrs, html.Attribute{Key: "size", Val: strconv.Itoa(st.LegacySize)})
	}
	if st.FontSize != "" {
		attrs = append(attrs, html.Attribute{Key: "style", Val: "font-size: " + st.FontSize + ";"})
	}
	if len(attrs) > 0 {
		enclose("font", atom.Font, attrs...)
	}
	return n
}

// ParseHTML reads a contenteditable fragment back into a document.
// Unknown elements contribute their text; block elements start a new line.
func ParseHTML(s string) (*Document, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(s), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	var runs []Run
	var walk func(n *html.Node, st Style)
	walk = func(n *html.Node, st Style) {
		switch n.Type {
		case html.TextNode:
			runs = append(runs, Run{Text: n.Data, Style: st})
			return
		case html.ElementNode:
		default:
			return
		}
		switch n.DataAtom {
		case atom.B, atom.Strong:
			st.Bold = true
		case atom.I, atom.Em:
			st.Italic = true
		case atom.U:
			st.Underline = true
		case atom.Br:
			runs = append(runs, Run{Text: "\n", Style: st})
			return
		case atom.Div, atom.P:
			if len(runs) > 0 && !strings.HasSuffix(runs[len(runs)-1].Text, "\n") {
				runs = append(runs, Run{Text: "\n", Style: st})
			}
		}
		for _, a := range n.Attr {
			switch a.Key {
			case "color":
				if n.DataAtom == atom.Font {
					st.Color = a.Val
				}
			case "size":
				if n.DataAtom == atom.Font {
					if v, err := strconv.Atoi(a.Val); err == nil && v >= 1 && v <= MaxLegacySize {
						st.LegacySize = v
					}
				}
			case "style":
				applyInlineCSS(&st, a.Val)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, st)
		}
	}
	for _, n := range nodes {
		walk(n, Style{})
	}
	return FromRuns(runs), nil
}

func applyInlineCSS(st *Style, css string) {
	decls, err := parser.ParseDeclarations(css)
	if err != nil {
		return
	}
	for _, d := range decls {
		v := strings.TrimSpace(d.Value)
		switch strings.ToLower(d.Property) {
		case "font-size":
			st.FontSize = v
		case "color":
			st.Color = v
		case "font-weight":
			st.Bold = v == "bold" || v == "700" || v == "800" || v == "900"
		case "font-style":
			st.Italic = v == "italic"
		case "text-decoration", "text-decoration-line":
			st.Underline = strings.Contains(v, "underline")
		}
	}
}
