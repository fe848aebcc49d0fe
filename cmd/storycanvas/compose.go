/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"storycanvas/internal/config"
	"storycanvas/internal/crash"
	"storycanvas/internal/editor"
	"storycanvas/internal/export"
	"storycanvas/internal/telemetry"
)

type listFlag []string

func (f *listFlag) String() string     { return strings.Join(*f, ",") }
func (f *listFlag) Set(v string) error { *f = append(*f, v); return nil }

type composeOpts struct {
	out       string
	pdf       bool
	fast      bool
	texts     listFlag
	drops     listFlag
	bold      bool
	italic    bool
	underline bool
	color     string
	size      string
	align     string
	move      string
	rotate    float64
	dumpHTML  bool
	images    []string
}

func parseCompose(args []string, stderr io.Writer) (composeOpts, error) {
	var o composeOpts
	fs := flag.NewFlagSet("compose", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.out, "out", "", "output directory (default from config)")
	fs.BoolVar(&o.pdf, "pdf", false, "save as PDF instead of PNG")
	fs.BoolVar(&o.fast, "fast", false, "skip the save animations and settle delay")
	fs.Var(&o.texts, "text", "add a text block with this content (repeatable)")
	fs.Var(&o.drops, "drop", "drop an image file onto the canvas (repeatable)")
	fs.BoolVar(&o.bold, "bold", false, "bold the last text block")
	fs.BoolVar(&o.italic, "italic", false, "italicize the last text block")
	fs.BoolVar(&o.underline, "underline", false, "underline the last text block")
	fs.StringVar(&o.color, "color", "", "text color of the last text block, #rgb or #rrggbb")
	fs.StringVar(&o.size, "size", "", "font size of the last text block: "+strings.Join(editor.FontSizes, ", "))
	fs.StringVar(&o.align, "align", "", "alignment of the last text block: left, center or right")
	fs.StringVar(&o.move, "move", "", "translate the last element by dx,dy")
	fs.Float64Var(&o.rotate, "rotate", 0, "rotate the last element, in degrees")
	fs.BoolVar(&o.dumpHTML, "dump-html", false, "print the HTML of every text block")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	o.images = fs.Args()
	return o, nil
}

func parseDelta(v string) (dx, dy float64, err error) {
	a, b, ok := strings.Cut(v, ",")
	if !ok {
		return 0, 0, fmt.Errorf("move %q: want dx,dy", v)
	}
	if dx, err = strconv.ParseFloat(strings.TrimSpace(a), 64); err != nil {
		return 0, 0, fmt.Errorf("move %q: %w", v, err)
	}
	if dy, err = strconv.ParseFloat(strings.TrimSpace(b), 64); err != nil {
		return 0, 0, fmt.Errorf("move %q: %w", v, err)
	}
	return dx, dy, nil
}

func readFiles(paths []string) ([]editor.File, error) {
	files := make([]editor.File, 0, len(paths))
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, editor.File{Name: filepath.Base(p), Data: b})
	}
	return files, nil
}

// compose runs a headless session: it adds the requested elements, styles the last text
// block, transforms the last element and saves the canvas.
func compose(ctx context.Context, cfg config.AppConfig, args []string, stdout io.Writer) error {
	o, err := parseCompose(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if o.out != "" {
		cfg.Export.OutputDir = o.out
	}
	if o.fast {
		cfg.Export.AnnounceMs, cfg.Export.ProgressMs, cfg.Export.SettleMs = 0, 0, 0
	}
	s, err := editor.New(cfg, editor.Options{Events: telemetry.Default()})
	if err != nil {
		return err
	}
	defer crash.Recover(s)
	telemetry.Event(telemetry.EventAppStarted, map[string]any{"ui": false})

	var last string
	uploads, err := readFiles(o.images)
	if err != nil {
		return err
	}
	if ids := s.AddUploadedImages(uploads); len(ids) > 0 {
		last = ids[len(ids)-1]
	}
	drops, err := readFiles(o.drops)
	if err != nil {
		return err
	}
	if ids := s.AddDroppedImages(drops); len(ids) > 0 {
		last = ids[len(ids)-1]
	}

	var textIDs []string
	for _, txt := range o.texts {
		id := s.AddTextBlock()
		if err := s.Select(id); err != nil {
			return err
		}
		if txt != "" {
			s.EditText(strings.ReplaceAll(txt, `\n`, "\n"))
		}
		textIDs = append(textIDs, id)
		last = id
	}
	if len(textIDs) > 0 {
		if err := styleText(s, textIDs[len(textIDs)-1], o); err != nil {
			return err
		}
	}

	if last != "" {
		if o.move != "" {
			dx, dy, err := parseDelta(o.move)
			if err != nil {
				return err
			}
			if err := s.Move(last, dx, dy); err != nil {
				return err
			}
		}
		if o.rotate != 0 {
			if err := s.Rotate(last, o.rotate); err != nil {
				return err
			}
		}
	}

	if o.dumpHTML {
		for _, id := range textIDs {
			h, err := s.TextHTML(id)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, h)
		}
	}

	mode := export.ModePNG
	if o.pdf {
		mode = export.ModePDF
	}
	res, err := s.Export(ctx, mode)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Saved %s (%dx%d)\n", res.Path, res.Width, res.Height)
	return nil
}

func styleText(s *editor.Session, id string, o composeOpts) error {
	if err := s.Select(id); err != nil {
		return err
	}
	s.SelectAllText()
	for _, st := range []struct {
		on    bool
		name  string
		value string
	}{
		{o.bold, editor.StyleBold, ""},
		{o.italic, editor.StyleItalic, ""},
		{o.underline, editor.StyleUnderline, ""},
		{o.color != "", editor.StyleColor, o.color},
		{o.size != "", editor.StyleFontSize, o.size},
	} {
		if !st.on {
			continue
		}
		if err := s.ApplyTextStyle(st.name, st.value); err != nil {
			return err
		}
	}
	if o.align != "" {
		return s.ApplyTextAlignment(o.align)
	}
	return nil
}
