/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// DefaultFamily is the family registered by NewGoFontLibrary. It stands in for Arial.
const DefaultFamily = "Go"

// FontLibrary stores parsed TrueType fonts keyed by family, weight and italic flag, and
// caches faces per size. It is safe for concurrent use.
type FontLibrary struct {
	mu    sync.Mutex
	fonts map[fontKey]*truetype.Font
	faces map[faceKey]font.Face
}

type fontKey struct {
	family string
	bold   bool
	italic bool
}

type faceKey struct {
	fontKey
	size float64
}

func NewFontLibrary() *FontLibrary {
	return &FontLibrary{fonts: make(map[fontKey]*truetype.Font), faces: make(map[faceKey]font.Face)}
}

// NewGoFontLibrary returns a library preloaded with the four Go font faces.
func NewGoFontLibrary() (*FontLibrary, error) {
	fl := NewFontLibrary()
	for _, f := range []struct {
		ttf          []byte
		bold, italic bool
	}{
		{goregular.TTF, false, false},
		{gobold.TTF, true, false},
		{goitalic.TTF, false, true},
		{gobolditalic.TTF, true, true},
	} {
		if err := fl.Add(DefaultFamily, f.bold, f.italic, f.ttf); err != nil {
			return nil, err
		}
	}
	return fl, nil
}

// Add parses TrueType data into the library.
func (fl *FontLibrary) Add(family string, bold, italic bool, ttf []byte) error {
	f, err := truetype.Parse(ttf)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", family, err)
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	fl.fonts[fontKey{family: family, bold: bold, italic: italic}] = f
	return nil
}

// LoadTTF loads a font file into the library.
func (fl *FontLibrary) LoadTTF(family string, bold, italic bool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	return fl.Add(family, bold, italic, data)
}

func (fl *FontLibrary) findLocked(k fontKey) *truetype.Font {
	if f, ok := fl.fonts[k]; ok {
		return f
	}
	// Same family with the regular face, then any face of the family.
	if f, ok := fl.fonts[fontKey{family: k.family}]; ok {
		return f
	}
	for key, f := range fl.fonts {
		if key.family == k.family {
			return f
		}
	}
	return nil
}

// Resolve implements Provider. Unknown families fall back to DefaultFamily, then to the
// basic bitmap face.
func (fl *FontLibrary) Resolve(spec FontSpec) (font.Face, Metrics) {
	if spec.SizePx <= 0 {
		spec.SizePx = 16
	}
	if spec.Family == "" {
		spec.Family = DefaultFamily
	}
	k := fontKey{family: spec.Family, bold: spec.Bold, italic: spec.Italic}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	fk := faceKey{fontKey: k, size: spec.SizePx}
	if face, ok := fl.faces[fk]; ok {
		return face, metricsOf(face)
	}
	f := fl.findLocked(k)
	if f == nil && spec.Family != DefaultFamily {
		f = fl.findLocked(fontKey{family: DefaultFamily, bold: spec.Bold, italic: spec.Italic})
	}
	if f == nil {
		return BasicProvider{}.Resolve(spec)
	}
	// 72 DPI makes the point size equal to the pixel size.
	face := truetype.NewFace(f, &truetype.Options{Size: spec.SizePx, DPI: 72, Hinting: font.HintingFull})
	fl.faces[fk] = face
	return face, metricsOf(face)
}
