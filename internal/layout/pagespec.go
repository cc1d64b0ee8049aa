/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package layout builds a layout-independent visual document (positioned
// text runs and shapes, split into fixed-size pages) from the screenplay
// tree. Rasterizing those pages to PDF or PNG is the exporters' job; this
// stage never touches an output device.
package layout

import "math"

// ReferenceDPI is the fixed DPI used to derive pixel page sizes from
// physical paper sizes. Exporters may scale up from it but the pagination
// math always runs at this density.
const ReferenceDPI = 96

// PageSize names a physical page preset.
type PageSize string

const (
	PageA4     PageSize = "a4"
	PageB5     PageSize = "b5"
	PageScript PageSize = "script" // the traditional script booklet trim
)

// Physical sizes in millimeters, portrait orientation.
var pageSizesMM = map[PageSize][2]float64{
	PageA4:     {210, 297},
	PageB5:     {182, 257},
	PageScript: {190, 270},
}

// PageSpec selects the physical page for pagination.
// CustomWidthMM/CustomHeightMM apply when Size is empty.
type PageSpec struct {
	Size           PageSize
	Landscape      bool
	CustomWidthMM  float64
	CustomHeightMM float64
}

const mmPerInch = 25.4

// PixelSize returns the page dimensions in pixels at the reference DPI.
func (p PageSpec) PixelSize() (w, h float64) {
	wmm, hmm := p.CustomWidthMM, p.CustomHeightMM
	if dims, ok := pageSizesMM[p.Size]; ok {
		wmm, hmm = dims[0], dims[1]
	}
	if wmm <= 0 || hmm <= 0 {
		wmm, hmm = pageSizesMM[PageA4][0], pageSizesMM[PageA4][1]
	}
	if p.Landscape {
		wmm, hmm = hmm, wmm
	}
	return wmm / mmPerInch * ReferenceDPI, hmm / mmPerInch * ReferenceDPI
}

// MillimeterSize returns the oriented physical size.
func (p PageSpec) MillimeterSize() (wmm, hmm float64) {
	w, h := p.PixelSize()
	return w / ReferenceDPI * mmPerInch, h / ReferenceDPI * mmPerInch
}

// PtToPx converts a font size in points to pixels at the reference DPI.
func PtToPx(pt float64) float64 { return pt / 72 * ReferenceDPI }

// PageCount computes ceil(totalHeight / pixelsPerPage) for a rendered
// content height; zero height still yields one page.
func PageCount(totalHeight, pixelsPerPage float64) int {
	if pixelsPerPage <= 0 || totalHeight <= 0 {
		return 1
	}
	return int(math.Ceil(totalHeight / pixelsPerPage))
}
