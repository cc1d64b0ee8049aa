/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"fmt"
	"strings"
	"time"

	"goscriptwriter/internal/domain"
)

// Fixed literals of the plain-text rendition. The indentation table is part
// of the external contract; changing it breaks downstream readers.
const (
	timeProgressionLine = "\t\t　　×　　×　　×"
	pageBreakLine       = "\t\t＝＝＝＝＝　改ページ　＝＝＝＝＝"
	cutMarkSeparator    = "――――――――――"
	fullWidthSpace      = "　"
)

// FormatText renders the document as the deterministic plain-text export.
// Scene header line (scene_id location time_setting) followed by a blank
// line, scene content, then a trailing blank line per scene.
//   - Action: two tabs + text
//   - Dialogue: one tab + character + full-width space + text
//   - Hidden variants: as visible, text wrapped in full-width parentheses
//   - TimeProgression / PageBreak / CutMark: fixed literals
func FormatText(d *domain.Document) string {
	var b strings.Builder
	for si := range d.Scenes {
		sc := &d.Scenes[si]
		b.WriteString(SceneHeaderLine(sc))
		b.WriteString("\n\n")
		for ei := range sc.Elements {
			b.WriteString(elementLine(&sc.Elements[ei]))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// SceneHeaderLine renders the scene heading: scene_id location time_setting,
// space separated, empty fields omitted.
func SceneHeaderLine(sc *domain.Scene) string {
	parts := []string{sc.ID}
	if sc.Location != "" {
		parts = append(parts, sc.Location)
	}
	if sc.TimeSetting != "" {
		parts = append(parts, sc.TimeSetting)
	}
	return strings.Join(parts, " ")
}

func elementLine(el *domain.ContentElement) string {
	switch el.Type {
	case domain.ElementAction:
		return "\t\t" + el.Text
	case domain.ElementHiddenAction:
		return "\t\t（" + el.Text + "）"
	case domain.ElementDialogue:
		return "\t" + el.Character + fullWidthSpace + el.Text
	case domain.ElementHiddenDialogue:
		return "\t" + el.Character + fullWidthSpace + "（" + el.Text + "）"
	case domain.ElementTimeProgression:
		return timeProgressionLine
	case domain.ElementPageBreak:
		return pageBreakLine
	case domain.ElementCutMark:
		if el.CutID != "" {
			return cutMarkSeparator + "〔" + el.CutID + "〕 " + el.CutDescription
		}
		return cutMarkSeparator + " " + el.CutDescription
	default:
		return "\t\t" + el.Text
	}
}

// ExportFileName builds the download name for a plain-text export:
// <title>台本_<第N稿|完成稿>_<YYYYMMDD>.txt
func ExportFileName(title string, version int, isFinal bool, now time.Time) string {
	draft := fmt.Sprintf("第%d稿", version)
	if isFinal {
		draft = "完成稿"
	}
	return fmt.Sprintf("%s台本_%s_%s.txt", title, draft, now.Format("20060102"))
}
