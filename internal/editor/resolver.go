/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import "goscriptwriter/internal/domain"

// Position is the opaque cursor token handed in by the host UI: an element
// or scene reference plus a rune offset. The core never inspects host
// internals beyond this value.
type Position struct {
	ElementID string // content element id, or a scene id when the cursor sits in a header/empty column
	Offset    int
}

// InsertionPoint is the structurally valid target for a new element.
// AfterElementID is empty when the element becomes the first of the scene.
// NewScene is true when no enclosing scene existed and one must be
// synthesized before inserting.
type InsertionPoint struct {
	SceneID        string
	AfterElementID string
	NewScene       bool
}

// ResolveInsertion maps an arbitrary cursor position to the place a new
// element lands. The bias is fixed and user-visible:
//  1. cursor on a recognized content element -> insert immediately after it
//  2. cursor only resolvable to a scene (header, or empty content column)
//     -> new element becomes the column's first element
//  3. no enclosing scene at all -> a new scene is synthesized (next scene
//     number rule) and the element becomes its first entry
func ResolveInsertion(d *domain.Document, pos Position) InsertionPoint {
	if pos.ElementID != "" {
		if sc, el, err := d.Element(pos.ElementID); err == nil {
			return InsertionPoint{SceneID: sc.ID, AfterElementID: el.ID}
		}
		if sc := d.SceneByID(pos.ElementID); sc != nil {
			return InsertionPoint{SceneID: sc.ID}
		}
	}
	// Not an error: the resolver synthesizes rather than rejects.
	return InsertionPoint{NewScene: true}
}
