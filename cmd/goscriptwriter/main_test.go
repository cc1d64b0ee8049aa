/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"goscriptwriter/internal/backend"
	"goscriptwriter/internal/domain"
	"goscriptwriter/internal/editor"
	applog "goscriptwriter/internal/log"
	"goscriptwriter/internal/script"
	"goscriptwriter/internal/storage"
)

func seedEditorStore(t *testing.T) (*storage.Store, storage.VersionRecord) {
	t.Helper()
	st, err := storage.InitOrOpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	doc := domain.NewEmptyDocument()
	doc.Title = "flush test"
	blob, err := script.Encode(doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	rec := storage.VersionRecord{ScriptID: "s1", WorkID: "s1", Version: 1, Content: blob}
	if err := st.SaveOverwrite(context.Background(), rec); err != nil {
		t.Fatalf("seed version: %v", err)
	}
	return st, rec
}

func TestRunEditorFlushesThroughStoreAndBackend(t *testing.T) {
	var remoteSaves atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/scripts/save" {
			t.Errorf("unexpected remote call: %s %s", r.Method, r.URL.Path)
		}
		remoteSaves.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"script_id": "s1", "version": 1})
	}))
	defer srv.Close()

	ctx := context.Background()
	st, rec := seedEditorStore(t)
	sess := editor.NewSession(script.DecodeOrEmpty(rec.Content))
	remote := backend.NewClient(srv.URL, "tok")
	input := strings.NewReader("action written during the session\nsave\nquit\n")
	if err := runEditor(ctx, applog.WithComponent("test"), st, rec, sess, remote, 0, input); err != nil {
		t.Fatalf("runEditor: %v", err)
	}

	got, err := st.LatestVersion(ctx, "s1", "s1")
	if err != nil {
		t.Fatalf("load latest: %v", err)
	}
	saved := script.DecodeOrEmpty(got.Content)
	if saved.ElementCount() != 2 {
		t.Fatalf("flushed document has %d elements, want 2", saved.ElementCount())
	}
	if saved.Scenes[0].Elements[1].Text != "written during the session" {
		t.Fatalf("flushed text = %q", saved.Scenes[0].Elements[1].Text)
	}
	if remoteSaves.Load() == 0 {
		t.Fatalf("flush never reached the sync server")
	}
}

func TestRunEditorTrailingEditsFlushOnQuit(t *testing.T) {
	ctx := context.Background()
	st, rec := seedEditorStore(t)
	sess := editor.NewSession(script.DecodeOrEmpty(rec.Content))
	// No explicit save command: quitting must still flush the dirty edit.
	input := strings.NewReader("action unsaved line\nquit\n")
	if err := runEditor(ctx, applog.WithComponent("test"), st, rec, sess, nil, 0, input); err != nil {
		t.Fatalf("runEditor: %v", err)
	}

	got, err := st.LatestVersion(ctx, "s1", "s1")
	if err != nil {
		t.Fatalf("load latest: %v", err)
	}
	saved := script.DecodeOrEmpty(got.Content)
	if saved.ElementCount() != 2 {
		t.Fatalf("quit did not flush pending edits, have %d elements", saved.ElementCount())
	}
}
