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
	"testing"
)

func TestNewEmptyDocumentShape(t *testing.T) {
	d := NewEmptyDocument()
	if len(d.Scenes) != 1 {
		t.Fatalf("expected 1 scene, got %d", len(d.Scenes))
	}
	sc := d.Scenes[0]
	if sc.ID != "001" || sc.Location != PlaceholderLocation {
		t.Fatalf("unexpected first scene: id=%q location=%q", sc.ID, sc.Location)
	}
	if len(sc.Elements) != 1 || sc.Elements[0].Type != ElementAction || sc.Elements[0].Text != "" {
		t.Fatalf("expected a single empty action element, got %#v", sc.Elements)
	}
}

func TestAddSceneNumbering(t *testing.T) {
	d := NewEmptyDocument()
	id2 := d.AddScene("")
	id3 := d.AddScene("001") // insert between 001 and 002
	if id2 != "002" {
		t.Fatalf("second scene id = %q, want 002", id2)
	}
	if id3 != "003" {
		t.Fatalf("third scene id = %q, want 003", id3)
	}
	// 003 was inserted after 001, so order is 001, 003, 002.
	got := []string{d.Scenes[0].ID, d.Scenes[1].ID, d.Scenes[2].ID}
	want := []string{"001", "003", "002"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("scene order = %v, want %v", got, want)
		}
	}
}

func TestAddSceneAfterMidInsertStaysUnique(t *testing.T) {
	d := NewEmptyDocument()
	d.AddScene("")    // 002, appended
	d.AddScene("001") // 003, inserted between 001 and 002
	// The next id must come from the highest existing id, not the last
	// positioned scene (which is 002 here).
	if id := d.AddScene(""); id != "004" {
		t.Fatalf("scene after mid-insert = %q, want 004", id)
	}
	seen := map[string]bool{}
	for i := range d.Scenes {
		if seen[d.Scenes[i].ID] {
			t.Fatalf("duplicate scene id %q", d.Scenes[i].ID)
		}
		seen[d.Scenes[i].ID] = true
	}
}

func TestRemoveSceneKeepsIDs(t *testing.T) {
	d := NewEmptyDocument()
	d.AddScene("")
	d.AddScene("")
	if err := d.RemoveScene("002"); err != nil {
		t.Fatalf("RemoveScene: %v", err)
	}
	if len(d.Scenes) != 2 || d.Scenes[0].ID != "001" || d.Scenes[1].ID != "003" {
		t.Fatalf("surviving scenes should keep ids, got %v %v", d.Scenes[0].ID, d.Scenes[1].ID)
	}
	// Next scene continues from the highest surviving id.
	if id := d.AddScene(""); id != "004" {
		t.Fatalf("next scene after delete = %q, want 004", id)
	}
	if err := d.RemoveScene("002"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete should return ErrNotFound, got %v", err)
	}
}

func TestInsertElementPositions(t *testing.T) {
	d := NewEmptyDocument()
	first := d.Scenes[0].Elements[0].ID
	mid, err := d.InsertElement("001", first, ContentElement{Type: ElementDialogue, Character: "Alice", Text: "Hello"})
	if err != nil {
		t.Fatalf("InsertElement: %v", err)
	}
	head, err := d.InsertElement("001", "", ContentElement{Type: ElementAction, Text: "fade in"})
	if err != nil {
		t.Fatalf("InsertElement head: %v", err)
	}
	els := d.Scenes[0].Elements
	if len(els) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(els))
	}
	if els[0].ID != head || els[1].ID != first || els[2].ID != mid {
		t.Fatalf("unexpected order: %q %q %q", els[0].ID, els[1].ID, els[2].ID)
	}
	if _, err := d.InsertElement("999", "", ContentElement{Type: ElementAction}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("insert into missing scene should wrap ErrNotFound, got %v", err)
	}
}

func TestRemoveElementIdempotentSignal(t *testing.T) {
	d := NewEmptyDocument()
	id := d.Scenes[0].Elements[0].ID
	if err := d.RemoveElement(id); err != nil {
		t.Fatalf("first remove: %v", err)
	}
	if err := d.RemoveElement(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second remove should return ErrNotFound, got %v", err)
	}
}

func TestObserverKinds(t *testing.T) {
	d := NewEmptyDocument()
	var kinds []ChangeKind
	d.Subscribe(func(c Change) { kinds = append(kinds, c.Kind) })
	id, _ := d.AppendElement("001", ContentElement{Type: ElementAction, Text: "x"})
	_ = d.SetElementText(id, "y")
	d.SetView(d.View)
	want := []ChangeKind{ChangeStructural, ChangeText, ChangeView}
	if len(kinds) != len(want) {
		t.Fatalf("observer calls = %d, want %d", len(kinds), len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("change kinds = %v, want %v", kinds, want)
		}
	}
}

func TestToggleBookmark(t *testing.T) {
	d := NewEmptyDocument()
	d.ToggleBookmark(3, "check this")
	if len(d.Bookmarks) != 1 || d.Bookmarks[0].Line != 3 {
		t.Fatalf("bookmark not added: %#v", d.Bookmarks)
	}
	d.ToggleBookmark(3, "")
	if len(d.Bookmarks) != 0 {
		t.Fatalf("bookmark not removed on second toggle: %#v", d.Bookmarks)
	}
}

func TestAnnotationsAttachAndRemove(t *testing.T) {
	d := NewEmptyDocument()
	id := d.Scenes[0].Elements[0].ID
	_ = d.SetElementText(id, "the red car")
	a := Annotation{Kind: AnnotationProp, DisplayName: "Red car", MachineName: "red_car", Start: 4, End: 11}
	if err := d.AddAnnotation(id, a); err != nil {
		t.Fatalf("AddAnnotation: %v", err)
	}
	_, el, err := d.Element(id)
	if err != nil {
		t.Fatalf("Element: %v", err)
	}
	if len(el.Annotations) != 1 || el.Annotations[0].SceneID != "001" {
		t.Fatalf("annotation missing scene id: %#v", el.Annotations)
	}
	// Attaching never changes the element's own type.
	if el.Type != ElementAction {
		t.Fatalf("annotation changed element type to %q", el.Type)
	}
	if err := d.RemoveAnnotation(id, "red_car"); err != nil {
		t.Fatalf("RemoveAnnotation: %v", err)
	}
	if err := d.RemoveAnnotation(id, "red_car"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("removing missing annotation should return ErrNotFound, got %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	d := NewEmptyDocument()
	id := d.Scenes[0].Elements[0].ID
	_ = d.SetElementText(id, "original")
	c := d.Clone()
	_ = d.SetElementText(id, "changed")
	if c.Scenes[0].Elements[0].Text != "original" {
		t.Fatalf("clone shares element storage with the source")
	}
}
