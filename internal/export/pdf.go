/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// PDFLayout describes where the captured image lands on the page. Units are mm.
type PDFLayout struct {
	PageW, PageH float64
	ImageW       float64
	ImageH       float64
}

const snapshotImage = "snapshot"

// WritePDF places a PNG capture on a single landscape A4 page at (0,0), scaled to the page
// width with its aspect ratio kept. Tall captures run off the bottom of the page.
func WritePDF(w io.Writer, pngData []byte) (PDFLayout, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetCreator("StoryCanvas", false)
	pdf.AddPage()

	opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	info := pdf.RegisterImageOptionsReader(snapshotImage, opt, bytes.NewReader(pngData))
	if err := pdf.Error(); err != nil {
		return PDFLayout{}, fmt.Errorf("register image: %w", err)
	}
	if info == nil || info.Width() <= 0 {
		return PDFLayout{}, fmt.Errorf("register image: empty image")
	}
	pageW, pageH := pdf.GetPageSize()
	l := PDFLayout{PageW: pageW, PageH: pageH, ImageW: pageW, ImageH: info.Height() * pageW / info.Width()}
	pdf.ImageOptions(snapshotImage, 0, 0, l.ImageW, l.ImageH, false, opt, 0, "")
	if err := pdf.Output(w); err != nil {
		return l, fmt.Errorf("write pdf: %w", err)
	}
	return l, nil
}

// PDFDataURL wraps the PDF for a capture in a data URL for the download sink.
func PDFDataURL(pngData []byte) (string, PDFLayout, error) {
	var buf bytes.Buffer
	l, err := WritePDF(&buf, pngData)
	if err != nil {
		return "", l, err
	}
	return DataURL("application/pdf", buf.Bytes()), l, nil
}
