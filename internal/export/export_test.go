/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"goscriptwriter/internal/domain"
	"goscriptwriter/internal/layout"
)

func sampleDoc() *domain.Document {
	d := domain.NewEmptyDocument()
	d.Title = "Test Work"
	_ = d.SetSceneLocation("001", "Office")
	_ = d.SetSceneTimeSetting("001", "Day")
	_ = d.SetElementText(d.Scenes[0].Elements[0].ID, "Alice enters.")
	_, _ = d.AppendElement("001", domain.ContentElement{Type: domain.ElementDialogue, Character: "Alice", Text: "Hello"})
	return d
}

func TestWriteTextNamingAndContent(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	path, err := WriteText(sampleDoc(), dir, 2, false, now)
	if err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if filepath.Base(path) != "Test Work台本_第2稿_20260314.txt" {
		t.Fatalf("file name = %q", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, "001 Office Day") || !strings.Contains(s, "\tAlice　Hello") {
		t.Fatalf("export content unexpected:\n%s", s)
	}
}

func TestWriteTextFinalAndUntitled(t *testing.T) {
	dir := t.TempDir()
	d := sampleDoc()
	d.Title = ""
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	path, err := WriteText(d, dir, 5, true, now)
	if err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if filepath.Base(path) != "無題台本_完成稿_20260314.txt" {
		t.Fatalf("file name = %q", filepath.Base(path))
	}
}

func TestWritePNGPages(t *testing.T) {
	dir := t.TempDir()
	vd := layout.Build(sampleDoc(), layout.Options{Page: layout.PageSpec{Size: layout.PageA4}})
	if err := WritePNGPages(vd, dir, PNGOptions{}); err != nil {
		t.Fatalf("WritePNGPages: %v", err)
	}
	f, err := os.Open(filepath.Join(dir, "page-1.png"))
	if err != nil {
		t.Fatalf("open page image: %v", err)
	}
	defer func() { _ = f.Close() }()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	pw, ph := layout.PageSpec{Size: layout.PageA4}.PixelSize()
	wantW, wantH := int(math.Ceil(pw)), int(math.Ceil(ph))
	b := img.Bounds()
	if b.Dx() != wantW || b.Dy() != wantH {
		t.Fatalf("page raster = %dx%d, want %dx%d", b.Dx(), b.Dy(), wantW, wantH)
	}
}

func TestWritePDFCreatesFile(t *testing.T) {
	dir := t.TempDir()
	vd := layout.Build(sampleDoc(), layout.Options{Page: layout.PageSpec{Size: layout.PageB5}})
	out := filepath.Join(dir, "script.pdf")
	if err := WritePDF(vd, out, PDFOptions{Title: "Test Work"}); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if len(data) == 0 || !strings.HasPrefix(string(data[:5]), "%PDF-") {
		t.Fatalf("output is not a PDF (%d bytes)", len(data))
	}
}
