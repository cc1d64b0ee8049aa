/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import "goscriptwriter/internal/domain"

// SheetEntry is one row of the continuity sheet: a tag plus every scene it
// occurs in, in document order.
type SheetEntry struct {
	Kind        domain.AnnotationKind `json:"kind"`
	DisplayName string                `json:"display_name"`
	MachineName string                `json:"machine_name"`
	Description string                `json:"description,omitempty"`
	SceneIDs    []string              `json:"scene_ids"`
}

// KoubanSheet aggregates continuity annotations by machine name across the
// document. The external continuity feature consumes this when a save is
// posted with sync_kouban.
func KoubanSheet(d *domain.Document) []SheetEntry {
	var out []SheetEntry
	pos := map[string]int{}
	for si := range d.Scenes {
		sc := &d.Scenes[si]
		for ei := range sc.Elements {
			for _, a := range sc.Elements[ei].Annotations {
				i, ok := pos[a.MachineName]
				if !ok {
					pos[a.MachineName] = len(out)
					out = append(out, SheetEntry{
						Kind:        a.Kind,
						DisplayName: a.DisplayName,
						MachineName: a.MachineName,
						Description: a.Description,
						SceneIDs:    []string{sc.ID},
					})
					continue
				}
				if n := len(out[i].SceneIDs); n == 0 || out[i].SceneIDs[n-1] != sc.ID {
					out[i].SceneIDs = append(out[i].SceneIDs, sc.ID)
				}
			}
		}
	}
	return out
}
