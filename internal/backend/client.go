/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package backend holds the HTTP client for the remote script service and
// a reference server implementation used for sync testing.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal HTTP client for the script sync API.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new sync client. baseURL may include a trailing
// slash; it will be normalized.
func NewClient(baseURL string, token string) *Client {
	b := strings.TrimRight(baseURL, "/")
	return &Client{
		BaseURL: b,
		Token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// SaveRequest describes one save submission. The flags mirror the form
// the web editor posts: exactly one of AutoSave or SaveAsNewVersion may
// be set, and SyncKouban asks the server to refresh the annotation sheet.
type SaveRequest struct {
	ScriptID         string
	WorkID           string
	Version          int
	IsFinal          bool
	EditMode         string // "scene" or "full"
	Content          []byte // serialized script JSON
	CSRFToken        string
	AutoSave         bool
	SaveAsNewVersion bool
	SyncKouban       bool
}

// SaveResult is the server's answer to a save.
type SaveResult struct {
	ScriptID string `json:"script_id"`
	Version  int    `json:"version"`
	IsFinal  bool   `json:"is_final"`
	SavedAt  string `json:"saved_at"`
}

// Save posts a script to the server as a URL-encoded form.
func (c *Client) Save(ctx context.Context, sr SaveRequest) (*SaveResult, error) {
	form := url.Values{}
	form.Set("script_id", sr.ScriptID)
	form.Set("work_id", sr.WorkID)
	form.Set("version", strconv.Itoa(sr.Version))
	form.Set("is_final", boolField(sr.IsFinal))
	form.Set("edit_mode", sr.EditMode)
	form.Set("script_content", string(sr.Content))
	form.Set("csrf_token", sr.CSRFToken)
	form.Set("auto_save", boolField(sr.AutoSave))
	form.Set("save_as_new_version", boolField(sr.SaveAsNewVersion))
	form.Set("sync_kouban", boolField(sr.SyncKouban))
	form.Set("action", "save_script")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/scripts/save", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiError("POST /api/scripts/save", resp)
	}
	var res SaveResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

// RemoteVersion is the listing projection of a stored version.
type RemoteVersion struct {
	ScriptID  string    `json:"script_id"`
	Version   int       `json:"version"`
	IsFinal   bool      `json:"is_final"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListVersions fetches the version listing of a script, newest first.
func (c *Client) ListVersions(ctx context.Context, scriptID, workID string) ([]RemoteVersion, error) {
	path := fmt.Sprintf("/api/scripts/%s/versions?work_id=%s", url.PathEscape(scriptID), url.QueryEscape(workID))
	var list []RemoteVersion
	if err := c.doJSON(ctx, http.MethodGet, path, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetVersion downloads the content of one stored version.
func (c *Client) GetVersion(ctx context.Context, scriptID, workID string, version int) ([]byte, error) {
	path := fmt.Sprintf("/api/scripts/%s/versions/%d?work_id=%s", url.PathEscape(scriptID), version, url.QueryEscape(workID))
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiError("GET "+u.Path, resp)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 64<<20))
}

// UploadRequest describes one reference-image upload. FieldName tells the
// server which editor field the image belongs to.
type UploadRequest struct {
	WorkID    string
	FieldName string
	FileName  string
	CSRFToken string
	Data      []byte
}

// UploadImage sends a reference image as multipart form data and returns
// the server-assigned image URL. A response with success=false is an
// error carrying the server's message.
func (c *Client) UploadImage(ctx context.Context, ur UploadRequest) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range [][2]string{
		{"work_id", ur.WorkID},
		{"field_name", ur.FieldName},
		{"csrf_token", ur.CSRFToken},
	} {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return "", err
		}
	}
	fw, err := mw.CreateFormFile("image", ur.FileName)
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(ur.Data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/uploads", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	var out struct {
		Success  bool   `json:"success"`
		ImageURL string `json:"image_url"`
		Message  string `json:"message"`
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if jerr := json.Unmarshal(body, &out); jerr == nil && out.Success {
		return out.ImageURL, nil
	}
	if out.Message != "" {
		return "", fmt.Errorf("server POST /api/uploads: %s", out.Message)
	}
	return "", fmt.Errorf("server POST /api/uploads: %s", resp.Status)
}

func (c *Client) doJSON(ctx context.Context, method, path string, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(method+" "+u.Path, resp)
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(dest)
}

// apiError builds the error for a failed call, preferring the body's
// {"error": ...} message over the bare HTTP status.
func apiError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return fmt.Errorf("server %s: %s", op, e.Error)
	}
	return fmt.Errorf("server %s: %s", op, resp.Status)
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
