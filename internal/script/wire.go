/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package script converts the document tree between its persisted JSON
// form, the downloadable plain-text rendition, and back. The JSON form is
// the payload stored per version row and posted to the save endpoint.
package script

import (
	"time"

	"goscriptwriter/internal/domain"
)

// envelope is the persisted JSON shape of one version's content.
// Scenes serialize through the domain json tags (scene_id, location,
// time_setting, hidden_description, content[].type ...).
type envelope struct {
	Scenes []domain.Scene `json:"scenes"`
	Meta   Meta           `json:"meta"`
}

// Meta carries display state persisted alongside the tree.
type Meta struct {
	Title        string              `json:"title,omitempty"`
	DisplayMode  domain.WritingMode  `json:"display_mode"`
	ViewSettings domain.ViewSettings `json:"view_settings"`
	Bookmarks    []domain.Bookmark   `json:"bookmarks,omitempty"`
	LastSaved    string              `json:"last_saved,omitempty"` // ISO 8601
}

func metaFromDocument(d *domain.Document) Meta {
	m := Meta{
		Title:        d.Title,
		DisplayMode:  d.View.WritingMode,
		ViewSettings: d.View,
		Bookmarks:    d.Bookmarks,
	}
	if !d.LastSaved.IsZero() {
		m.LastSaved = d.LastSaved.UTC().Format(time.RFC3339)
	}
	return m
}
