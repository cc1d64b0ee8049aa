/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model for the screenplay editing engine:
// a Document of ordered Scenes, each holding an ordered run of content
// elements plus free-floating draw objects and continuity annotations.

// ElementType tags a ContentElement variant. The values double as the
// persisted wire tags, so they must stay stable.
type ElementType string

const (
	ElementAction          ElementType = "togaki"
	ElementHiddenAction    ElementType = "hidden_togaki"
	ElementDialogue        ElementType = "serifu"
	ElementHiddenDialogue  ElementType = "hidden_serifu"
	ElementTimeProgression ElementType = "time_progress"
	ElementPageBreak       ElementType = "page_break"
	ElementCutMark         ElementType = "cut_mark"
)

// Hidden reports whether the type is a hidden variant (not rendered unless
// the matching view toggle is on).
func (t ElementType) Hidden() bool {
	return t == ElementHiddenAction || t == ElementHiddenDialogue
}

// IsDialogue reports whether the type carries a character label.
func (t ElementType) IsDialogue() bool {
	return t == ElementDialogue || t == ElementHiddenDialogue
}

// Valid reports whether t is one of the known element tags.
func (t ElementType) Valid() bool {
	switch t {
	case ElementAction, ElementHiddenAction, ElementDialogue, ElementHiddenDialogue,
		ElementTimeProgression, ElementPageBreak, ElementCutMark:
		return true
	}
	return false
}

// ContentElement is one line-level unit in a scene's reading order.
// Text and Character apply to action/dialogue variants; CutID and
// CutDescription apply to cut marks. TimeProgression and PageBreak carry
// no payload.
type ContentElement struct {
	ID             string       `json:"-"` // in-memory identity, reassigned on load
	Type           ElementType  `json:"type"`
	Text           string       `json:"text,omitempty"`
	Character      string       `json:"character,omitempty"`
	CutID          string       `json:"cut_id,omitempty"`
	CutDescription string       `json:"cut_description,omitempty"`
	Spans          []FormatSpan `json:"spans,omitempty"`
	Annotations    []Annotation `json:"kouban,omitempty"`
}

// FormatSpan is an inline formatting run inside an element's text,
// addressed by rune offsets. Value carries the color for "color"/"highlight"
// and the reading for "ruby".
type FormatSpan struct {
	Kind  string `json:"kind"` // bold, color, ruby, highlight
	Start int    `json:"start"`
	End   int    `json:"end"`
	Value string `json:"value,omitempty"`
}

// AnnotationKind enumerates continuity ("kouban") tag categories.
type AnnotationKind string

const (
	AnnotationCharacter AnnotationKind = "character"
	AnnotationProp      AnnotationKind = "prop"
	AnnotationDevice    AnnotationKind = "device"
	AnnotationCostume   AnnotationKind = "costume"
	AnnotationMakeup    AnnotationKind = "makeup"
	AnnotationEffect    AnnotationKind = "effect"
	AnnotationPlace1    AnnotationKind = "place1"
	AnnotationPlace2    AnnotationKind = "place2"
	AnnotationPlace3    AnnotationKind = "place3"
	AnnotationTime      AnnotationKind = "time"
	AnnotationOther     AnnotationKind = "other"
)

// Annotation is a named continuity tag attached to a run of text inside a
// content element. It never changes the element's own type; multiple
// annotations may overlap different spans of the same element.
type Annotation struct {
	Kind        AnnotationKind `json:"kind"`
	DisplayName string         `json:"display_name"`
	MachineName string         `json:"machine_name"`
	Description string         `json:"description,omitempty"`
	SceneID     string         `json:"scene_id"`
	Start       int            `json:"start"`
	End         int            `json:"end"`
}

// DrawObject is a free-floating shape or text box positioned by absolute
// page coordinates. It is not part of the reading order and never receives
// a line number.
type DrawObject struct {
	ID     string  `json:"id"`
	Kind   string  `json:"kind"` // rect, ellipse, line, textbox
	Rect   Rect    `json:"rect"`
	Text   string  `json:"text,omitempty"`
	Stroke Stroke  `json:"stroke,omitempty"`
	Fill   Color   `json:"fill,omitempty"`
	Radius float64 `json:"radius,omitempty"`
}

// Scene is one numbered screenplay scene: a header (location/time), an
// optional hidden note, the ordered content column, and the draw-object
// side channel.
type Scene struct {
	ID          string           `json:"scene_id"` // zero-padded, e.g. "001"
	Location    string           `json:"location"`
	TimeSetting string           `json:"time_setting"`
	HiddenNote  string           `json:"hidden_description"`
	Elements    []ContentElement `json:"content"`
	DrawObjects []DrawObject     `json:"draw_objects,omitempty"`
}

// WritingMode selects the script rendering direction.
type WritingMode string

const (
	WritingHorizontal WritingMode = "horizontal"
	WritingVertical   WritingMode = "vertical"
)

// ViewSettings is the fixed set of display toggles persisted with the
// document. It affects rendering only, never the tree.
type ViewSettings struct {
	ShowHiddenAction   bool        `json:"show_hidden_action"`
	ShowHiddenDialogue bool        `json:"show_hidden_dialogue"`
	ShowEditMarks      bool        `json:"show_edit_marks"`
	ShowPageBreaks     bool        `json:"show_page_breaks"`
	HighlightStructure bool        `json:"highlight_structure"`
	HighlightKouban    bool        `json:"highlight_kouban"`
	ShowCutMarks       bool        `json:"show_cut_marks"`
	ShowLineNumbers    bool        `json:"show_line_numbers"`
	ShowBookmarks      bool        `json:"show_bookmarks"`
	WritingMode        WritingMode `json:"writing_mode"`
}

// DefaultViewSettings returns the toggles a fresh document starts with.
func DefaultViewSettings() ViewSettings {
	return ViewSettings{
		ShowPageBreaks:  true,
		ShowCutMarks:    true,
		ShowLineNumbers: true,
		ShowBookmarks:   true,
		WritingMode:     WritingHorizontal,
	}
}

// Bookmark is keyed by continuous line number, not element identity.
// A structural edit that shifts line numbers silently reattaches the
// bookmark to whatever element now occupies that line; this mirrors the
// long-standing editor behavior and is deliberately not corrected here.
type Bookmark struct {
	Line  int    `json:"line"`
	Label string `json:"label,omitempty"`
}

// Geometry and styling primitives shared by draw objects and exports.

type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

type Stroke struct {
	Color Color   `json:"color"`
	Width float64 `json:"width"`
}
