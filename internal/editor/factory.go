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
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"storycanvas/internal/domain"
	"storycanvas/internal/gesture"
	"storycanvas/internal/richtext"
	"storycanvas/internal/vector"
)

// File is an image handed over by the file picker or an OS drop.
type File struct {
	Name string
	// MIME is the type declared by the source, if any. Content sniffing wins when it
	// recognizes the data.
	MIME string
	Data []byte
}

// sniff returns the MIME type of f and whether it is an image.
func sniff(f File) (string, bool) {
	if kind, err := filetype.Match(f.Data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value, filetype.IsImage(f.Data)
	}
	mime := strings.ToLower(strings.TrimSpace(f.MIME))
	return mime, strings.HasPrefix(mime, "image/")
}

// decode builds the image payload. Undecodable data yields a payload with no decoded
// image and zero natural size.
func (s *Session) decode(f File) *domain.ImageData {
	mime, _ := sniff(f)
	data := &domain.ImageData{Name: f.Name, MIME: mime, Source: f.Data}
	img, format, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		s.log.Debug("image not decodable", slog.String("name", f.Name), slog.String("mime", mime), slog.Any("err", err))
		return data
	}
	b := img.Bounds()
	data.Decoded = img
	data.Natural = vector.Size{W: float64(b.Dx()), H: float64(b.Dy())}
	s.log.Debug("image decoded", slog.String("name", f.Name), slog.String("format", format),
		slog.Int("w", b.Dx()), slog.Int("h", b.Dy()))
	return data
}

// fitWidth caps the width at maxW, keeping the aspect ratio.
func fitWidth(n vector.Size, maxW float64) vector.Size {
	if maxW <= 0 || n.W <= maxW {
		return n
	}
	return vector.Size{W: maxW, H: n.H * maxW / n.W}
}

// fitBox scales n down to fit into maxW x maxH, keeping the aspect ratio.
func fitBox(n vector.Size, maxW, maxH float64) vector.Size {
	k := 1.0
	if maxW > 0 && n.W > maxW {
		k = maxW / n.W
	}
	if maxH > 0 && n.H*k > maxH {
		k = maxH / n.H
	}
	return vector.Size{W: n.W * k, H: n.H * k}
}

func (s *Session) addLocked(e *domain.Element) {
	if e.Image != nil {
		s.payloads[e.ID] = e.Image
	}
	s.surface.Add(e)
	s.binder.Bind(e.ID, gesture.Options{Rotatable: e.HasRotationHandle})
}

// AddUploadedImages places each file as an absolute element at the upload offset with a
// rotation handle. It returns the new element IDs in order.
func (s *Session) AddUploadedImages(files []File) []string {
	if len(files) == 0 {
		return nil
	}
	ec := s.cfg.Elements
	s.mu.Lock()
	s.pushLocked("upload", "")
	ids := make([]string, 0, len(files))
	for _, f := range files {
		data := s.decode(f)
		e := &domain.Element{
			ID:                uuid.NewString(),
			Kind:              domain.KindImage,
			Placement:         domain.PlacementAbsolute,
			Origin:            vector.Pt{X: ec.UploadOffsetX, Y: ec.UploadOffsetY},
			Size:              fitWidth(data.Natural, ec.ImageMaxWidth),
			HasRotationHandle: true,
			Image:             data,
		}
		s.addLocked(e)
		ids = append(ids, e.ID)
	}
	s.mu.Unlock()
	s.log.Info("images uploaded", slog.Int("count", len(ids)))
	s.notify()
	return ids
}

// AddDroppedImages places the image files of a drop inline on the surface, capped to a
// share of the surface size and without rotation handle. Other files are ignored.
func (s *Session) AddDroppedImages(files []File) []string {
	s.mu.Lock()
	frac := s.cfg.Elements.DropMaxFraction
	maxW, maxH := s.surface.Width*frac, s.surface.Height*frac
	var ids []string
	for _, f := range files {
		if mime, ok := sniff(f); !ok {
			s.log.Debug("drop ignored", slog.String("name", f.Name), slog.String("mime", mime))
			continue
		}
		if ids == nil {
			s.pushLocked("drop", "")
		}
		data := s.decode(f)
		e := &domain.Element{
			ID:        uuid.NewString(),
			Kind:      domain.KindImage,
			Placement: domain.PlacementFlow,
			Size:      fitBox(data.Natural, maxW, maxH),
			Image:     data,
		}
		s.addLocked(e)
		ids = append(ids, e.ID)
	}
	s.mu.Unlock()
	if len(ids) > 0 {
		s.log.Info("images dropped", slog.Int("count", len(ids)))
		s.notify()
	}
	return ids
}

// AddTextBlock places an editable text block with the placeholder content.
func (s *Session) AddTextBlock() string {
	tc := s.cfg.Elements.Text
	s.mu.Lock()
	w, h := s.surface.Width, s.surface.Height
	minSize := vector.Size{W: w * tc.MinWidthFraction, H: h * tc.MinHeightFraction}
	e := &domain.Element{
		ID:                uuid.NewString(),
		Kind:              domain.KindText,
		Placement:         domain.PlacementAbsolute,
		Origin:            vector.Pt{X: w * tc.LeftFraction, Y: h * tc.TopFraction},
		Size:              minSize,
		HasRotationHandle: true,
		Text: &domain.TextBlock{
			Doc:        richtext.New(tc.Placeholder),
			Align:      domain.AlignLeft,
			Editable:   true,
			MinSize:    minSize,
			MaxSize:    vector.Size{W: w * tc.MaxWidthFraction, H: h * tc.MaxHeightFraction},
			Padding:    tc.Padding,
			Color:      tc.Color,
			FontPx:     tc.FontPx,
			Background: tc.Background,
		},
	}
	s.pushLocked("add text", "")
	s.addLocked(e)
	s.mu.Unlock()
	s.log.Info("text block added", slog.String("id", e.ID))
	s.notify()
	return e.ID
}
