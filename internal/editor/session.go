/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor owns one editing session: the document, the derived line
// index, the undo/redo stacks and the session-scoped editor state that used
// to live as window-level globals (current cursor, recently used character
// names, dirty tracking hook).
package editor

import (
	"log/slog"
	"time"

	"goscriptwriter/internal/domain"
	"goscriptwriter/internal/history"
	"goscriptwriter/internal/index"
	applog "goscriptwriter/internal/log"
	"goscriptwriter/internal/script"
)

const maxRecentCharacters = 10

// Session is the coordinating context for a single open script. All
// mutations run synchronously to completion; no two interleave.
type Session struct {
	Doc     *domain.Document
	Index   *index.Result
	History *history.Stack
	Cursor  Position

	// RecentCharacters holds character names most recently committed to
	// dialogue, newest first, for the host's completion UI.
	RecentCharacters []string

	log     *slog.Logger
	onDirty func()
}

// NewSession wraps a loaded document. The index is built eagerly; every
// structural change rebuilds it synchronously.
func NewSession(doc *domain.Document) *Session {
	s := &Session{
		Doc:     doc,
		History: history.NewStack(history.Config{MaxDepth: 50, MinInterval: 250 * time.Millisecond}),
		log:     applog.WithComponent("editor"),
	}
	s.attach(doc)
	return s
}

func (s *Session) attach(doc *domain.Document) {
	s.Doc = doc
	s.Index = index.Build(doc)
	doc.Subscribe(func(c domain.Change) {
		if c.Kind == domain.ChangeStructural {
			s.Index = index.Build(s.Doc)
		}
		s.markDirty()
	})
}

// SetDirtyNotifier installs the hook invoked after every mutation; the
// autosave coordinator uses it to leave Clean state.
func (s *Session) SetDirtyNotifier(fn func()) { s.onDirty = fn }

func (s *Session) markDirty() {
	if s.onDirty != nil {
		s.onDirty()
	}
}

// record pushes the pre-mutation snapshot. Mutating session operations call
// it first; a failed encode is logged and skipped rather than blocking the
// edit.
func (s *Session) record() {
	blob, err := script.Encode(s.Doc)
	if err != nil {
		s.log.Error("history snapshot failed", slog.Any("err", err))
		return
	}
	s.History.Record(history.Snapshot{Blob: blob, TS: time.Now()})
}

// InsertAtCursor resolves the current cursor to a structurally valid
// insertion point and adds el there, synthesizing a scene when the cursor
// has no enclosing one. Dialogue committed without a character label gets
// the most recently used name.
func (s *Session) InsertAtCursor(el domain.ContentElement) (string, error) {
	if el.Type.IsDialogue() && el.Character == "" {
		if len(s.RecentCharacters) > 0 {
			el.Character = s.RecentCharacters[0]
		} else {
			el.Character = "（人物）"
		}
	}
	s.record()
	pt := ResolveInsertion(s.Doc, s.Cursor)
	if pt.NewScene {
		pt.SceneID = s.Doc.AddScene("")
	}
	id, err := s.Doc.InsertElement(pt.SceneID, pt.AfterElementID, el)
	if err != nil {
		return "", err
	}
	if el.Type.IsDialogue() {
		s.rememberCharacter(el.Character)
	}
	s.Cursor = Position{ElementID: id}
	return id, nil
}

func (s *Session) rememberCharacter(name string) {
	if name == "" {
		return
	}
	out := make([]string, 0, maxRecentCharacters)
	out = append(out, name)
	for _, c := range s.RecentCharacters {
		if c != name && len(out) < maxRecentCharacters {
			out = append(out, c)
		}
	}
	s.RecentCharacters = out
}

// RemoveElement deletes an element through the history stack. A target
// that is already gone is reported, not fatal.
func (s *Session) RemoveElement(elementID string) error {
	s.record()
	return s.Doc.RemoveElement(elementID)
}

// DeleteBackward implements caret deletion at the start of an element: an
// empty action or dialogue line is removed outright and the cursor moves to
// the previous line. Non-empty elements are left for the host text editor.
// It reports whether an element was removed.
func (s *Session) DeleteBackward(pos Position) bool {
	if pos.Offset != 0 {
		return false
	}
	_, el, err := s.Doc.Element(pos.ElementID)
	if err != nil || el.Text != "" {
		return false
	}
	switch el.Type {
	case domain.ElementAction, domain.ElementHiddenAction, domain.ElementDialogue, domain.ElementHiddenDialogue:
	default:
		return false
	}
	line, ok := s.Index.LineOf(el.ID)
	s.record()
	if s.Doc.RemoveElement(el.ID) != nil {
		return false
	}
	if ok && line.Continuous > 1 {
		s.Cursor = Position{ElementID: s.Index.Lines[line.Continuous-2].ElementID}
	} else {
		s.Cursor = Position{}
	}
	return true
}

// AddScene appends or inserts a scene, recording history first.
func (s *Session) AddScene(afterSceneID string) string {
	s.record()
	return s.Doc.AddScene(afterSceneID)
}

// RemoveScene deletes a scene; surviving scene ids are not renumbered.
func (s *Session) RemoveScene(sceneID string) error {
	s.record()
	return s.Doc.RemoveScene(sceneID)
}

// Undo replaces the document with the newest undo snapshot and rebuilds the
// derived index. No-op when the stack is empty.
func (s *Session) Undo() bool { return s.applyHistory(s.History.Undo) }

// Redo is symmetric to Undo.
func (s *Session) Redo() bool { return s.applyHistory(s.History.Redo) }

func (s *Session) applyHistory(pop func([]byte) (history.Snapshot, bool)) bool {
	current, err := script.Encode(s.Doc)
	if err != nil {
		s.log.Error("encode current state failed", slog.Any("err", err))
		return false
	}
	snap, ok := pop(current)
	if !ok {
		return false
	}
	doc, err := script.Decode(snap.Blob)
	if err != nil {
		s.log.Error("decode history snapshot failed", slog.Any("err", err))
		return false
	}
	s.attach(doc)
	s.Cursor = Position{}
	s.markDirty()
	return true
}

// ToggleBookmark bookmarks the continuous line number under the cursor.
func (s *Session) ToggleBookmark(label string) {
	line, ok := s.Index.LineOf(s.Cursor.ElementID)
	if !ok {
		return
	}
	s.Doc.ToggleBookmark(line.Continuous, label)
}
