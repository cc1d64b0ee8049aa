/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"fmt"
	"unicode"

	"goscriptwriter/internal/domain"
	"goscriptwriter/internal/script"
)

// Options are the rendering axes that affect only positioning, never the
// tree: page, type size, line height, color mode and writing direction.
type Options struct {
	Page        PageSpec
	FontFamily  string
	FontSizePt  float64     // default 10pt
	LineHeight  float64     // multiplier, default 1.6
	Monochrome  bool
	MarginPx    float64     // default derived from page
	WritingMode domain.WritingMode
}

// Run is one positioned text run on a page. Coordinates are pixels at the
// reference DPI, origin top-left. Vertical runs are drawn top-down in a
// right-to-left column; X then names the column's right edge.
type Run struct {
	Text     string
	X, Y     float64
	SizePt   float64
	Bold     bool
	Color    domain.Color
	Vertical bool
}

// Page holds everything placed on one fixed-size page.
type Page struct {
	Number int
	Runs   []Run
	Shapes []domain.DrawObject
}

// VisualDocument is the stage-1 output: pages of positioned runs, ready
// for a swappable stage-2 rasterizer.
type VisualDocument struct {
	Pages         []Page
	PageWidth     float64
	PageHeight    float64
	PixelsPerPage float64 // usable content height per page
	Monochrome    bool
	FontFamily    string
}

var (
	colorInk    = domain.Color{A: 255}
	colorHidden = domain.Color{R: 128, G: 128, B: 128, A: 255}
	colorHeader = domain.Color{R: 0, G: 64, B: 160, A: 255}
)

// Build walks the document in reading order, honoring the active view
// settings, and produces positioned runs split into pages. A page-break
// element always forces a page advance, independent of its visibility
// toggle; the toggle only controls whether the break banner is drawn.
func Build(d *domain.Document, opt Options) *VisualDocument {
	if opt.FontSizePt <= 0 {
		opt.FontSizePt = 10
	}
	if opt.LineHeight <= 0 {
		opt.LineHeight = 1.6
	}
	if opt.WritingMode == "" {
		opt.WritingMode = d.View.WritingMode
	}
	pw, ph := opt.Page.PixelSize()
	margin := opt.MarginPx
	if margin <= 0 {
		margin = pw * 0.08
	}
	vd := &VisualDocument{
		PageWidth:     pw,
		PageHeight:    ph,
		PixelsPerPage: ph - 2*margin,
		Monochrome:    opt.Monochrome,
		FontFamily:    opt.FontFamily,
	}

	b := &builder{
		vd:       vd,
		view:     d.View,
		opt:      opt,
		margin:   margin,
		lineH:    PtToPx(opt.FontSizePt) * opt.LineHeight,
		emPx:     PtToPx(opt.FontSizePt),
		vertical: opt.WritingMode == domain.WritingVertical,
	}
	b.newPage()

	cont := 0
	for si := range d.Scenes {
		sc := &d.Scenes[si]
		b.placeShapes(sc.DrawObjects)
		b.line(script.SceneHeaderLine(sc), 0, headerColor(opt), false)
		b.advance() // blank line under the header
		for ei := range sc.Elements {
			el := &sc.Elements[ei]
			cont++
			b.element(el, cont, d.View)
		}
		b.advance() // trailing blank line per scene
	}
	return vd
}

func headerColor(opt Options) domain.Color {
	if opt.Monochrome {
		return colorInk
	}
	return colorHeader
}

type builder struct {
	vd       *VisualDocument
	view     domain.ViewSettings
	opt      Options
	margin   float64
	lineH    float64
	emPx     float64
	vertical bool
	cursor   float64 // advance along the flow axis within the page
}

func (b *builder) newPage() {
	b.vd.Pages = append(b.vd.Pages, Page{Number: len(b.vd.Pages) + 1})
	b.cursor = 0
}

func (b *builder) page() *Page { return &b.vd.Pages[len(b.vd.Pages)-1] }

// flowLimit is the usable extent along the flow axis: page height for
// horizontal text, page width for right-to-left columns.
func (b *builder) flowLimit() float64 {
	if b.vertical {
		return b.vd.PageWidth - 2*b.margin
	}
	return b.vd.PixelsPerPage
}

func (b *builder) advance() {
	b.cursor += b.lineH
	if b.cursor+b.lineH > b.flowLimit() {
		b.newPage()
	}
}

// line places one wrapped logical line with an indent in ems.
func (b *builder) line(text string, indentEm float64, col domain.Color, bold bool) {
	if b.opt.Monochrome {
		col = colorInk
	}
	avail := b.availEm() - indentEm
	for _, part := range wrapRunes(text, avail) {
		r := Run{Text: part, SizePt: b.opt.FontSizePt, Bold: bold, Color: col, Vertical: b.vertical}
		if b.vertical {
			r.X = b.vd.PageWidth - b.margin - b.cursor
			r.Y = b.margin + indentEm*b.emPx
		} else {
			r.X = b.margin + indentEm*b.emPx
			r.Y = b.margin + b.cursor
		}
		pg := b.page()
		pg.Runs = append(pg.Runs, r)
		b.advance()
	}
}

// availEm is the line capacity in full-width character units.
func (b *builder) availEm() float64 {
	var span float64
	if b.vertical {
		span = b.vd.PageHeight - 2*b.margin
	} else {
		span = b.vd.PageWidth - 2*b.margin
	}
	return span / b.emPx
}

func (b *builder) element(el *domain.ContentElement, cont int, view domain.ViewSettings) {
	prefix := ""
	if view.ShowLineNumbers {
		prefix = fmt.Sprintf("%4d ", cont)
	}
	switch el.Type {
	case domain.ElementAction:
		b.line(prefix+el.Text, 2, colorInk, false)
	case domain.ElementHiddenAction:
		if view.ShowHiddenAction {
			b.line(prefix+"（"+el.Text+"）", 2, hiddenColor(b.opt), false)
		}
	case domain.ElementDialogue:
		b.line(prefix+el.Character+"　"+el.Text, 1, colorInk, false)
	case domain.ElementHiddenDialogue:
		if view.ShowHiddenDialogue {
			b.line(prefix+el.Character+"　（"+el.Text+"）", 1, hiddenColor(b.opt), false)
		}
	case domain.ElementTimeProgression:
		b.line(prefix+"　　×　　×　　×", 2, colorInk, false)
	case domain.ElementPageBreak:
		if view.ShowPageBreaks {
			b.line(prefix+"＝＝＝＝＝　改ページ　＝＝＝＝＝", 2, hiddenColor(b.opt), false)
		}
		b.newPage()
	case domain.ElementCutMark:
		if view.ShowCutMarks {
			b.line(prefix+"――――――――――〔"+el.CutID+"〕 "+el.CutDescription, 0, hiddenColor(b.opt), true)
		}
	}
}

func hiddenColor(opt Options) domain.Color {
	if opt.Monochrome {
		return colorInk
	}
	return colorHidden
}

// placeShapes pins a scene's free-floating draw objects onto the page where
// the scene starts; their coordinates are absolute within that page.
func (b *builder) placeShapes(objs []domain.DrawObject) {
	if len(objs) == 0 {
		return
	}
	pg := b.page()
	pg.Shapes = append(pg.Shapes, objs...)
}

// wrapRunes breaks text into chunks that fit limitEm full-width character
// units, counting narrow runes as half an em. Width math stays rune-class
// based so layout is deterministic across platforms.
func wrapRunes(text string, limitEm float64) []string {
	if limitEm <= 1 {
		return []string{text}
	}
	var out []string
	var cur []rune
	var w float64
	for _, r := range text {
		rw := 1.0
		if r < 0x2E80 && !unicode.Is(unicode.Hiragana, r) {
			rw = 0.5
		}
		if w+rw > limitEm && len(cur) > 0 {
			out = append(out, string(cur))
			cur = cur[:0]
			w = 0
		}
		cur = append(cur, r)
		w += rw
	}
	if len(cur) > 0 || len(out) == 0 {
		out = append(out, string(cur))
	}
	return out
}
