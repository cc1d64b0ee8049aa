/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"goscriptwriter/internal/domain"
	"goscriptwriter/internal/layout"
)

// PNGOptions controls raster page output.
// DPI scales up from the reference density when > 0.
type PNGOptions struct {
	DPI   int
	Pages []int // 1-based page numbers; empty means all
}

// WritePNGPages writes each page of the visual document as
// page-<n>.png under outDir.
func WritePNGPages(vd *layout.VisualDocument, outDir string, opt PNGOptions) error {
	if vd == nil || len(vd.Pages) == 0 {
		return fmt.Errorf("visual document is empty")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	scale := 1.0
	if opt.DPI > 0 {
		scale = float64(opt.DPI) / layout.ReferenceDPI
	}
	want := map[int]bool{}
	for _, n := range opt.Pages {
		want[n] = true
	}
	for _, pg := range vd.Pages {
		if len(want) > 0 && !want[pg.Number] {
			continue
		}
		img := renderPage(vd, pg, scale)
		out := filepath.Join(outDir, fmt.Sprintf("page-%d.png", pg.Number))
		if err := writePNGFile(out, img); err != nil {
			return fmt.Errorf("page %d: %w", pg.Number, err)
		}
	}
	return nil
}

func renderPage(vd *layout.VisualDocument, pg layout.Page, scale float64) *image.RGBA {
	w := int(math.Ceil(vd.PageWidth * scale))
	h := int(math.Ceil(vd.PageHeight * scale))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for _, obj := range pg.Shapes {
		drawShapePNG(img, obj, scale, vd.Monochrome)
	}
	face := basicfont.Face7x13
	for _, run := range pg.Runs {
		col := runColor(run.Color, vd.Monochrome)
		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(col),
			Face: face,
		}
		if run.Vertical {
			x := fixed.I(int(run.X*scale)) - fixed.I(face.Width)
			y := int(run.Y * scale)
			for _, r := range run.Text {
				d.Dot = fixed.Point26_6{X: x, Y: fixed.I(y + face.Ascent)}
				d.DrawString(string(r))
				y += face.Height + 2
			}
			continue
		}
		d.Dot = fixed.Point26_6{
			X: fixed.I(int(run.X * scale)),
			Y: fixed.I(int(run.Y*scale) + face.Ascent),
		}
		d.DrawString(run.Text)
	}
	return img
}

func runColor(c domain.Color, mono bool) color.Color {
	if mono || c.A == 0 {
		return color.Black
	}
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// drawShapePNG draws hairline outlines; fills are intentionally skipped so
// the raster stays close to the editor's wireframe look.
func drawShapePNG(img *image.RGBA, obj domain.DrawObject, scale float64, mono bool) {
	col := runColor(obj.Stroke.Color, mono)
	x0 := int(obj.Rect.X * scale)
	y0 := int(obj.Rect.Y * scale)
	x1 := int((obj.Rect.X + obj.Rect.Width) * scale)
	y1 := int((obj.Rect.Y + obj.Rect.Height) * scale)
	switch obj.Kind {
	case "ellipse":
		drawEllipse(img, x0, y0, x1, y1, col)
	case "line":
		drawLine(img, x0, y0, x1, y1, col)
	default:
		drawLine(img, x0, y0, x1, y0, col)
		drawLine(img, x1, y0, x1, y1, col)
		drawLine(img, x1, y1, x0, y1, col)
		drawLine(img, x0, y1, x0, y0, col)
	}
}

func drawLine(img *image.RGBA, x0, y0, x1, y1 int, col color.Color) {
	dx := int(math.Abs(float64(x1 - x0)))
	dy := -int(math.Abs(float64(y1 - y0)))
	sx, sy := 1, 1
	if x0 >= x1 {
		sx = -1
	}
	if y0 >= y1 {
		sy = -1
	}
	err := dx + dy
	for {
		img.Set(x0, y0, col)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func drawEllipse(img *image.RGBA, x0, y0, x1, y1 int, col color.Color) {
	cx := float64(x0+x1) / 2
	cy := float64(y0+y1) / 2
	rx := float64(x1-x0) / 2
	ry := float64(y1-y0) / 2
	if rx <= 0 || ry <= 0 {
		return
	}
	steps := int(2 * math.Pi * math.Max(rx, ry))
	if steps < 16 {
		steps = 16
	}
	for i := 0; i < steps; i++ {
		t := 2 * math.Pi * float64(i) / float64(steps)
		img.Set(int(cx+rx*math.Cos(t)), int(cy+ry*math.Sin(t)), col)
	}
}

func writePNGFile(path string, img image.Image) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return png.Encode(f, img)
}
