/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrNotFound signals that a referenced scene or element no longer exists.
// Mutating operations treat a missing target as a no-op-with-signal, never
// as a fatal condition: deleting an element twice is idempotent.
var ErrNotFound = errors.New("not found")

// ChangeKind distinguishes structural mutations (element/scene count or
// order changed) from pure text edits inside a leaf.
type ChangeKind int

const (
	ChangeStructural ChangeKind = iota
	ChangeText
	ChangeView
)

// Change describes one mutation for synchronous observers.
type Change struct {
	Kind      ChangeKind
	SceneID   string
	ElementID string
}

// Document is the in-memory screenplay tree for one editing session.
// It owns all scenes and is reconstructed from persisted JSON on load.
// Observers registered with Subscribe are invoked synchronously after each
// mutating call; this replaces any dependency on a host UI tree.
type Document struct {
	Title     string
	Scenes    []Scene
	View      ViewSettings
	Bookmarks []Bookmark
	LastSaved time.Time

	seq       int // element id counter
	observers []func(Change)
}

// PlaceholderLocation is used for the single scene of a fresh document.
const PlaceholderLocation = "（場所）"

// NewEmptyDocument returns a document with one scene ("001", placeholder
// location) holding a single empty action line. It is also the fallback
// shape when persisted JSON is missing or malformed.
func NewEmptyDocument() *Document {
	d := &Document{View: DefaultViewSettings()}
	d.Scenes = []Scene{{
		ID:       "001",
		Location: PlaceholderLocation,
	}}
	d.Scenes[0].Elements = []ContentElement{{ID: d.nextElementID(), Type: ElementAction}}
	return d
}

// Subscribe registers a synchronous change observer. Observers must not
// mutate the document re-entrantly.
func (d *Document) Subscribe(fn func(Change)) {
	if fn != nil {
		d.observers = append(d.observers, fn)
	}
}

func (d *Document) notify(c Change) {
	for _, fn := range d.observers {
		fn(c)
	}
}

func (d *Document) nextElementID() string {
	d.seq++
	return fmt.Sprintf("e%06d", d.seq)
}

// NextSceneID derives the id for a newly created scene: the highest
// numeric id in the document plus one, zero-padded to three digits, or
// "001" when the document has no scenes. Deleted scenes are never
// renumbered, so ids reflect creation order, not current position.
func (d *Document) NextSceneID() string {
	if len(d.Scenes) == 0 {
		return "001"
	}
	max := 0
	for i := range d.Scenes {
		if n, err := strconv.Atoi(d.Scenes[i].ID); err == nil && n > max {
			max = n
		}
	}
	if max == 0 {
		max = len(d.Scenes)
	}
	return fmt.Sprintf("%03d", max+1)
}

// AddScene inserts a new empty scene after the scene with afterID, or
// appends at the end when afterID is empty or unknown. It returns the new
// scene's id.
func (d *Document) AddScene(afterID string) string {
	sc := Scene{ID: d.NextSceneID(), Location: PlaceholderLocation}
	pos := len(d.Scenes)
	if afterID != "" {
		for i := range d.Scenes {
			if d.Scenes[i].ID == afterID {
				pos = i + 1
				break
			}
		}
	}
	d.Scenes = append(d.Scenes, Scene{})
	copy(d.Scenes[pos+1:], d.Scenes[pos:])
	d.Scenes[pos] = sc
	d.notify(Change{Kind: ChangeStructural, SceneID: sc.ID})
	return sc.ID
}

// RemoveScene deletes the scene with the given id. Surviving scenes keep
// their ids. Returns ErrNotFound when the scene is already gone.
func (d *Document) RemoveScene(sceneID string) error {
	for i := range d.Scenes {
		if d.Scenes[i].ID == sceneID {
			d.Scenes = append(d.Scenes[:i], d.Scenes[i+1:]...)
			d.notify(Change{Kind: ChangeStructural, SceneID: sceneID})
			return nil
		}
	}
	return ErrNotFound
}

// InsertElement places el into the scene's content column immediately after
// afterElementID, or as the first element when afterElementID is empty.
// The element receives a fresh id, which is returned.
func (d *Document) InsertElement(sceneID, afterElementID string, el ContentElement) (string, error) {
	sc := d.SceneByID(sceneID)
	if sc == nil {
		return "", fmt.Errorf("insert element: scene %s: %w", sceneID, ErrNotFound)
	}
	el.ID = d.nextElementID()
	pos := 0
	if afterElementID != "" {
		for i := range sc.Elements {
			if sc.Elements[i].ID == afterElementID {
				pos = i + 1
				break
			}
		}
	}
	sc.Elements = append(sc.Elements, ContentElement{})
	copy(sc.Elements[pos+1:], sc.Elements[pos:])
	sc.Elements[pos] = el
	d.notify(Change{Kind: ChangeStructural, SceneID: sceneID, ElementID: el.ID})
	return el.ID, nil
}

// AppendElement adds el at the end of the scene's content column.
func (d *Document) AppendElement(sceneID string, el ContentElement) (string, error) {
	sc := d.SceneByID(sceneID)
	if sc == nil {
		return "", fmt.Errorf("append element: scene %s: %w", sceneID, ErrNotFound)
	}
	el.ID = d.nextElementID()
	sc.Elements = append(sc.Elements, el)
	d.notify(Change{Kind: ChangeStructural, SceneID: sceneID, ElementID: el.ID})
	return el.ID, nil
}

// RemoveElement deletes the element with the given id wherever it lives.
// Removing an element that is already gone returns ErrNotFound.
func (d *Document) RemoveElement(elementID string) error {
	for si := range d.Scenes {
		sc := &d.Scenes[si]
		for ei := range sc.Elements {
			if sc.Elements[ei].ID == elementID {
				sc.Elements = append(sc.Elements[:ei], sc.Elements[ei+1:]...)
				d.notify(Change{Kind: ChangeStructural, SceneID: sc.ID, ElementID: elementID})
				return nil
			}
		}
	}
	return ErrNotFound
}

// SetElementText replaces the element's text. This is a pure text edit and
// does not trigger structural observers.
func (d *Document) SetElementText(elementID, text string) error {
	_, el := d.findElement(elementID)
	if el == nil {
		return ErrNotFound
	}
	el.Text = text
	d.notify(Change{Kind: ChangeText, ElementID: elementID})
	return nil
}

// SetElementCharacter sets the character label of a dialogue element.
func (d *Document) SetElementCharacter(elementID, character string) error {
	_, el := d.findElement(elementID)
	if el == nil {
		return ErrNotFound
	}
	el.Character = character
	d.notify(Change{Kind: ChangeText, ElementID: elementID})
	return nil
}

// SceneByID returns a pointer into the scene slice or nil.
func (d *Document) SceneByID(sceneID string) *Scene {
	for i := range d.Scenes {
		if d.Scenes[i].ID == sceneID {
			return &d.Scenes[i]
		}
	}
	return nil
}

// Element returns the scene and element for an id, or ErrNotFound.
func (d *Document) Element(elementID string) (*Scene, *ContentElement, error) {
	sc, el := d.findElement(elementID)
	if el == nil {
		return nil, nil, ErrNotFound
	}
	return sc, el, nil
}

func (d *Document) findElement(elementID string) (*Scene, *ContentElement) {
	for si := range d.Scenes {
		sc := &d.Scenes[si]
		for ei := range sc.Elements {
			if sc.Elements[ei].ID == elementID {
				return sc, &sc.Elements[ei]
			}
		}
	}
	return nil, nil
}

// SetSceneLocation updates the scene header location text.
func (d *Document) SetSceneLocation(sceneID, location string) error {
	sc := d.SceneByID(sceneID)
	if sc == nil {
		return ErrNotFound
	}
	sc.Location = location
	d.notify(Change{Kind: ChangeText, SceneID: sceneID})
	return nil
}

// SetSceneTimeSetting updates the scene header time text.
func (d *Document) SetSceneTimeSetting(sceneID, timeSetting string) error {
	sc := d.SceneByID(sceneID)
	if sc == nil {
		return ErrNotFound
	}
	sc.TimeSetting = timeSetting
	d.notify(Change{Kind: ChangeText, SceneID: sceneID})
	return nil
}

// SetSceneHiddenNote updates the scene's hidden note.
func (d *Document) SetSceneHiddenNote(sceneID, note string) error {
	sc := d.SceneByID(sceneID)
	if sc == nil {
		return ErrNotFound
	}
	sc.HiddenNote = note
	d.notify(Change{Kind: ChangeText, SceneID: sceneID})
	return nil
}

// SetView replaces the view settings. View toggles never alter the tree.
func (d *Document) SetView(v ViewSettings) {
	d.View = v
	d.notify(Change{Kind: ChangeView})
}

// AddAnnotation attaches a continuity tag to the element's text run.
func (d *Document) AddAnnotation(elementID string, a Annotation) error {
	sc, el := d.findElement(elementID)
	if el == nil {
		return ErrNotFound
	}
	if a.SceneID == "" {
		a.SceneID = sc.ID
	}
	el.Annotations = append(el.Annotations, a)
	d.notify(Change{Kind: ChangeText, SceneID: sc.ID, ElementID: elementID})
	return nil
}

// RemoveAnnotation removes the annotation with the given machine name from
// the element. Missing targets return ErrNotFound.
func (d *Document) RemoveAnnotation(elementID, machineName string) error {
	_, el := d.findElement(elementID)
	if el == nil {
		return ErrNotFound
	}
	for i := range el.Annotations {
		if el.Annotations[i].MachineName == machineName {
			el.Annotations = append(el.Annotations[:i], el.Annotations[i+1:]...)
			d.notify(Change{Kind: ChangeText, ElementID: elementID})
			return nil
		}
	}
	return ErrNotFound
}

// AddDrawObject appends a free-floating shape to the scene's side channel.
func (d *Document) AddDrawObject(sceneID string, obj DrawObject) (string, error) {
	sc := d.SceneByID(sceneID)
	if sc == nil {
		return "", ErrNotFound
	}
	if obj.ID == "" {
		obj.ID = d.nextElementID()
	}
	sc.DrawObjects = append(sc.DrawObjects, obj)
	d.notify(Change{Kind: ChangeStructural, SceneID: sceneID})
	return obj.ID, nil
}

// RemoveDrawObject deletes a shape by id from the scene.
func (d *Document) RemoveDrawObject(sceneID, objectID string) error {
	sc := d.SceneByID(sceneID)
	if sc == nil {
		return ErrNotFound
	}
	for i := range sc.DrawObjects {
		if sc.DrawObjects[i].ID == objectID {
			sc.DrawObjects = append(sc.DrawObjects[:i], sc.DrawObjects[i+1:]...)
			d.notify(Change{Kind: ChangeStructural, SceneID: sceneID})
			return nil
		}
	}
	return ErrNotFound
}

// ToggleBookmark adds a bookmark at the continuous line number, or removes
// an existing one at the same line.
func (d *Document) ToggleBookmark(line int, label string) {
	for i := range d.Bookmarks {
		if d.Bookmarks[i].Line == line {
			d.Bookmarks = append(d.Bookmarks[:i], d.Bookmarks[i+1:]...)
			d.notify(Change{Kind: ChangeView})
			return
		}
	}
	d.Bookmarks = append(d.Bookmarks, Bookmark{Line: line, Label: label})
	d.notify(Change{Kind: ChangeView})
}

// ElementCount returns the number of content elements across all scenes.
func (d *Document) ElementCount() int {
	n := 0
	for i := range d.Scenes {
		n += len(d.Scenes[i].Elements)
	}
	return n
}

// Clone returns a deep copy of the document. Observers are not carried
// over; a clone is detached data, not a live session.
func (d *Document) Clone() *Document {
	nd := &Document{
		Title:     d.Title,
		View:      d.View,
		LastSaved: d.LastSaved,
		seq:       d.seq,
	}
	nd.Bookmarks = append([]Bookmark(nil), d.Bookmarks...)
	nd.Scenes = make([]Scene, len(d.Scenes))
	for i := range d.Scenes {
		src := &d.Scenes[i]
		sc := *src
		sc.Elements = make([]ContentElement, len(src.Elements))
		for j := range src.Elements {
			el := src.Elements[j]
			el.Spans = append([]FormatSpan(nil), el.Spans...)
			el.Annotations = append([]Annotation(nil), el.Annotations...)
			sc.Elements[j] = el
		}
		sc.DrawObjects = append([]DrawObject(nil), src.DrawObjects...)
		nd.Scenes[i] = sc
	}
	return nd
}

// ReassignElementIDs gives every element a fresh id. Used after loading a
// persisted document, where element identity is not part of the wire form.
func (d *Document) ReassignElementIDs() {
	d.seq = 0
	for si := range d.Scenes {
		for ei := range d.Scenes[si].Elements {
			d.Scenes[si].Elements[ei].ID = d.nextElementID()
		}
	}
}
