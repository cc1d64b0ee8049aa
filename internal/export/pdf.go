/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export rasterizes the stage-1 visual document to its output
// encodings: multi-page PDF, per-page PNG and the plain-text download.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"goscriptwriter/internal/domain"
	"goscriptwriter/internal/layout"
)

// PDFOptions controls PDF output.
// Built-in Helvetica keeps text vector without embedding; scripts that use
// CJK text should point FontFile at a TTF, which is embedded as UTF-8.
type PDFOptions struct {
	FontFile string // optional TTF path for UTF-8 embedding
	Author   string
	Title    string
}

const pdfFontName = "script"

// WritePDF renders the visual document into a single multi-page PDF at
// outPath, creating parent directories as needed.
func WritePDF(vd *layout.VisualDocument, outPath string, opt PDFOptions) error {
	if vd == nil || len(vd.Pages) == 0 {
		return fmt.Errorf("visual document is empty")
	}
	// Reference pixels map to points 1:0.75 (96dpi -> 72pt/inch).
	const pxToPt = 72.0 / layout.ReferenceDPI
	wPt := vd.PageWidth * pxToPt
	hPt := vd.PageHeight * pxToPt

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: wPt, Ht: hPt},
	})
	if opt.Title != "" {
		pdf.SetTitle(opt.Title, true)
	}
	if opt.Author != "" {
		pdf.SetAuthor(opt.Author, true)
	}
	fontName := "Helvetica"
	if opt.FontFile != "" {
		pdf.AddUTF8Font(pdfFontName, "", opt.FontFile)
		fontName = pdfFontName
	}
	pdf.SetFont(fontName, "", 10)

	for _, pg := range vd.Pages {
		pdf.AddPageFormat("", gofpdf.SizeType{Wd: wPt, Ht: hPt})
		for _, obj := range pg.Shapes {
			drawShapePDF(pdf, obj, pxToPt, vd.Monochrome)
		}
		for _, run := range pg.Runs {
			style := ""
			if run.Bold {
				style = "B"
			}
			if fontName == pdfFontName {
				// embedded UTF-8 fonts carry no synthetic bold
				style = ""
			}
			pdf.SetFont(fontName, style, run.SizePt)
			setTextColor(pdf, run.Color, vd.Monochrome)
			if run.Vertical {
				drawVerticalRunPDF(pdf, run, pxToPt)
				continue
			}
			pdf.Text(run.X*pxToPt, (run.Y*pxToPt)+run.SizePt, run.Text)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// drawVerticalRunPDF draws a column run one rune at a time, top-down.
func drawVerticalRunPDF(pdf *gofpdf.Fpdf, run layout.Run, pxToPt float64) {
	x := run.X*pxToPt - run.SizePt
	y := run.Y*pxToPt + run.SizePt
	for _, r := range run.Text {
		pdf.Text(x, y, string(r))
		y += run.SizePt * 1.1
	}
}

func setTextColor(pdf *gofpdf.Fpdf, c domain.Color, mono bool) {
	if mono {
		pdf.SetTextColor(0, 0, 0)
		return
	}
	pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
}

func drawShapePDF(pdf *gofpdf.Fpdf, obj domain.DrawObject, pxToPt float64, mono bool) {
	stroke := obj.Stroke
	if stroke.Width == 0 {
		stroke = domain.Stroke{Color: domain.Color{A: 255}, Width: 1}
	}
	if mono {
		pdf.SetDrawColor(0, 0, 0)
	} else {
		pdf.SetDrawColor(int(stroke.Color.R), int(stroke.Color.G), int(stroke.Color.B))
	}
	pdf.SetLineWidth(stroke.Width * pxToPt)
	x := obj.Rect.X * pxToPt
	y := obj.Rect.Y * pxToPt
	w := obj.Rect.Width * pxToPt
	h := obj.Rect.Height * pxToPt
	switch obj.Kind {
	case "ellipse":
		pdf.Ellipse(x+w/2, y+h/2, w/2, h/2, 0, "D")
	case "line":
		pdf.Line(x, y, x+w, y+h)
	default: // rect, textbox
		pdf.Rect(x, y, w, h, "D")
	}
	if obj.Kind == "textbox" && obj.Text != "" {
		pdf.SetFont("Helvetica", "", 8)
		pdf.Text(x+4, y+12, obj.Text)
	}
}
