/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"goscriptwriter/internal/domain"
	applog "goscriptwriter/internal/log"
)

// Encode serializes the document to its persisted JSON form. The result is
// lossless with respect to scene order, element order, tags and payload
// fields; Decode of the output yields a structurally equal document.
func Encode(d *domain.Document) ([]byte, error) {
	env := envelope{Scenes: d.Scenes, Meta: metaFromDocument(d)}
	if env.Scenes == nil {
		env.Scenes = []domain.Scene{}
	}
	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode script: %w", err)
	}
	return b, nil
}

// Decode parses persisted JSON into a document. Element ids are not part
// of the wire form and are reassigned. Unknown element tags are kept as
// visible action lines so no text is lost.
func Decode(data []byte) (*domain.Document, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	d := &domain.Document{
		Title:     env.Meta.Title,
		Scenes:    env.Scenes,
		View:      env.Meta.ViewSettings,
		Bookmarks: env.Meta.Bookmarks,
	}
	if d.View.WritingMode == "" {
		d.View.WritingMode = env.Meta.DisplayMode
	}
	if d.View.WritingMode == "" {
		d.View.WritingMode = domain.WritingHorizontal
	}
	if env.Meta.LastSaved != "" {
		if ts, err := time.Parse(time.RFC3339, env.Meta.LastSaved); err == nil {
			d.LastSaved = ts
		}
	}
	for si := range d.Scenes {
		for ei := range d.Scenes[si].Elements {
			if !d.Scenes[si].Elements[ei].Type.Valid() {
				d.Scenes[si].Elements[ei].Type = domain.ElementAction
			}
		}
	}
	d.ReassignElementIDs()
	return d, nil
}

// DecodeOrEmpty parses persisted JSON, falling back to a fresh single-scene
// empty document when the payload is missing or malformed. Loading is never
// a hard failure.
func DecodeOrEmpty(data []byte) *domain.Document {
	if len(data) == 0 {
		return domain.NewEmptyDocument()
	}
	d, err := Decode(data)
	if err != nil {
		applog.WithComponent("script").Warn("malformed script content, starting empty", slog.Any("err", err))
		return domain.NewEmptyDocument()
	}
	if len(d.Scenes) == 0 {
		return domain.NewEmptyDocument()
	}
	return d
}
