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
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storycanvas/internal/config"
)

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return p
}

func TestComposePNG(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	img := writePNG(t, dir, "a.png", 40, 30)
	var stdout bytes.Buffer
	args := []string{"-out", out, "-fast", "-text", "Hello", "-bold", "-size", "48px", "-color", "#f00",
		"-align", "center", "-move", "10,5", "-rotate", "15", "-dump-html", img}
	if err := compose(context.Background(), config.Defaults(), args, &stdout); err != nil {
		t.Fatalf("compose: %v", err)
	}
	got := stdout.String()
	if !strings.Contains(got, "<b>Hello</b>") || !strings.Contains(got, "font-size: 48px") || !strings.Contains(got, "#ff0000") {
		t.Fatalf("unexpected html dump: %q", got)
	}
	if !strings.Contains(got, "canvas_snapshot.png (1280x720)") {
		t.Fatalf("unexpected output: %q", got)
	}
	if _, err := os.Stat(filepath.Join(out, "canvas_snapshot.png")); err != nil {
		t.Fatalf("snapshot missing: %v", err)
	}
}

func TestComposePDFWithDrops(t *testing.T) {
	dir := t.TempDir()
	drop := writePNG(t, dir, "d.png", 20, 20)
	note := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(note, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	args := []string{"-out", dir, "-fast", "-pdf", "-drop", drop, "-drop", note}
	if err := compose(context.Background(), config.Defaults(), args, io.Discard); err != nil {
		t.Fatalf("compose: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "canvas_snapshot.pdf"))
	if err != nil || !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Fatalf("pdf missing or invalid: %v", err)
	}
}

func TestComposeRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	for name, args := range map[string][]string{
		"size":  {"-out", dir, "-fast", "-text", "x", "-size", "20px"},
		"color": {"-out", dir, "-fast", "-text", "x", "-color", "blue"},
		"align": {"-out", dir, "-fast", "-text", "x", "-align", "justify"},
		"move":  {"-out", dir, "-fast", "-text", "x", "-move", "10"},
		"image": {"-out", dir, "-fast", filepath.Join(dir, "missing.png")},
		"flag":  {"-nope"},
	} {
		if err := compose(context.Background(), config.Defaults(), args, io.Discard); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestParseDelta(t *testing.T) {
	dx, dy, err := parseDelta(" 3.5, -2 ")
	if err != nil || dx != 3.5 || dy != -2 {
		t.Fatalf("parseDelta: %v %v %v", dx, dy, err)
	}
	if _, _, err := parseDelta("a,b"); err == nil {
		t.Fatalf("expected error")
	}
}
