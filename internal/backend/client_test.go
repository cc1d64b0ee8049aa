/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientSavePostsForm(t *testing.T) {
	var gotForm map[string]string
	var gotAuth, gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/scripts/save" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotCT = r.Header.Get("Content-Type")
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}
		_ = json.NewEncoder(w).Encode(SaveResult{ScriptID: "s1", Version: 3, IsFinal: false, SavedAt: "2026-03-14T10:00:00Z"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "tok123")
	res, err := c.Save(context.Background(), SaveRequest{
		ScriptID:         "s1",
		WorkID:           "w1",
		Version:          2,
		IsFinal:          false,
		EditMode:         "full",
		Content:          []byte(`{"scenes":[]}`),
		CSRFToken:        "csrf",
		AutoSave:         true,
		SaveAsNewVersion: false,
		SyncKouban:       true,
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if res.Version != 3 || res.ScriptID != "s1" {
		t.Fatalf("result = %+v", res)
	}
	if gotAuth != "Bearer tok123" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotCT != "application/x-www-form-urlencoded" {
		t.Fatalf("content type = %q", gotCT)
	}
	want := map[string]string{
		"action":              "save_script",
		"script_id":           "s1",
		"work_id":             "w1",
		"version":             "2",
		"is_final":            "0",
		"edit_mode":           "full",
		"script_content":      `{"scenes":[]}`,
		"csrf_token":          "csrf",
		"auto_save":           "1",
		"save_as_new_version": "0",
		"sync_kouban":         "1",
	}
	for k, v := range want {
		if gotForm[k] != v {
			t.Fatalf("form[%q] = %q, want %q", k, gotForm[k], v)
		}
	}
}

func TestClientSaveServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "")
	if _, err := c.Save(context.Background(), SaveRequest{ScriptID: "s1"}); err == nil {
		t.Fatalf("expected error on 403")
	}
}

func TestClientListVersions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/scripts/s1/versions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("work_id") != "w1" {
			t.Errorf("work_id = %q", r.URL.Query().Get("work_id"))
		}
		_, _ = io.WriteString(w, `[{"script_id":"s1","version":2,"is_final":true,"updated_at":"2026-03-14T10:00:00Z"},{"script_id":"s1","version":1,"is_final":false,"updated_at":"2026-03-13T10:00:00Z"}]`)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "tok")
	list, err := c.ListVersions(context.Background(), "s1", "w1")
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(list) != 2 || list[0].Version != 2 || !list[0].IsFinal || list[1].Version != 1 {
		t.Fatalf("list = %+v", list)
	}
	if list[0].ScriptID != "s1" || list[1].ScriptID != "s1" {
		t.Fatalf("script_id missing from listing: %+v", list)
	}
}

func TestClientListVersionsSurfacesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"no such work"}`)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "tok")
	_, err := c.ListVersions(context.Background(), "s1", "w1")
	if err == nil || !strings.Contains(err.Error(), "no such work") {
		t.Fatalf("error must carry the server message, got %v", err)
	}
}

func TestClientGetVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/scripts/s1/versions/4" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"scenes":[],"meta":{}}`)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "tok")
	data, err := c.GetVersion(context.Background(), "s1", "w1", 4)
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if string(data) != `{"scenes":[],"meta":{}}` {
		t.Fatalf("content = %q", data)
	}
}

func TestClientUploadImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/uploads" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		for field, want := range map[string]string{
			"work_id":    "w1",
			"field_name": "reference_image",
			"csrf_token": "csrf",
		} {
			if got := r.FormValue(field); got != want {
				t.Errorf("%s = %q, want %q", field, got, want)
			}
		}
		f, hdr, err := r.FormFile("image")
		if err != nil {
			t.Errorf("image field: %v", err)
		} else {
			defer func() { _ = f.Close() }()
			if hdr.Filename != "ref.png" {
				t.Errorf("filename = %q", hdr.Filename)
			}
			b, _ := io.ReadAll(f)
			if string(b) != "png-bytes" {
				t.Errorf("payload = %q", b)
			}
		}
		_, _ = io.WriteString(w, `{"success":true,"image_url":"/api/uploads/7"}`)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "tok")
	u, err := c.UploadImage(context.Background(), UploadRequest{
		WorkID:    "w1",
		FieldName: "reference_image",
		FileName:  "ref.png",
		CSRFToken: "csrf",
		Data:      []byte("png-bytes"),
	})
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	if u != "/api/uploads/7" {
		t.Fatalf("url = %q", u)
	}
}

func TestClientUploadImageFailureCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"success":false,"message":"image too large"}`)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "tok")
	_, err := c.UploadImage(context.Background(), UploadRequest{WorkID: "w1", FileName: "ref.png", Data: []byte("x")})
	if err == nil || !strings.Contains(err.Error(), "image too large") {
		t.Fatalf("error must carry the server message, got %v", err)
	}
}
