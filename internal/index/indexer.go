/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package index derives line numbering and the scene navigation list from
// the document tree. It runs after every structural mutation; pure text
// edits inside a leaf do not change numbering and skip the pass.
package index

import "goscriptwriter/internal/domain"

// LineRef locates one content element in the numbered view.
// Continuous increments once per element across the whole document,
// starting at 1. SceneLocal resets to 1 at each scene boundary.
type LineRef struct {
	ElementID  string
	SceneID    string
	Continuous int
	SceneLocal int
}

// SceneNav is one entry of the scene navigation list.
type SceneNav struct {
	SceneID  string
	Location string
}

// BookmarkRef is a bookmark resolved against the current numbering.
// Bookmarks are keyed by continuous line number, so after a structural
// edit a bookmark can land on a different element than it was set on;
// that drift is preserved behavior, not a defect of this package.
type BookmarkRef struct {
	Line      int
	Label     string
	ElementID string // empty when the line no longer exists
}

// Result is the full derived state of one indexing pass.
type Result struct {
	Lines     []LineRef
	SceneList []SceneNav
	Bookmarks []BookmarkRef

	byElement map[string]int // element id -> index into Lines
}

// Build walks the ordered content elements across the document, in scene
// order, and assigns both counters in a single pass. It also rebuilds the
// scene list and reattaches bookmarks to their line numbers.
func Build(d *domain.Document) *Result {
	r := &Result{byElement: make(map[string]int)}
	cont := 0
	for si := range d.Scenes {
		sc := &d.Scenes[si]
		r.SceneList = append(r.SceneList, SceneNav{SceneID: sc.ID, Location: sc.Location})
		local := 0
		for ei := range sc.Elements {
			cont++
			local++
			r.byElement[sc.Elements[ei].ID] = len(r.Lines)
			r.Lines = append(r.Lines, LineRef{
				ElementID:  sc.Elements[ei].ID,
				SceneID:    sc.ID,
				Continuous: cont,
				SceneLocal: local,
			})
		}
	}
	for _, b := range d.Bookmarks {
		ref := BookmarkRef{Line: b.Line, Label: b.Label}
		if b.Line >= 1 && b.Line <= len(r.Lines) {
			ref.ElementID = r.Lines[b.Line-1].ElementID
		}
		r.Bookmarks = append(r.Bookmarks, ref)
	}
	return r
}

// LineOf returns the line ref for an element id.
func (r *Result) LineOf(elementID string) (LineRef, bool) {
	i, ok := r.byElement[elementID]
	if !ok {
		return LineRef{}, false
	}
	return r.Lines[i], true
}

// Total returns the number of numbered lines.
func (r *Result) Total() int { return len(r.Lines) }
