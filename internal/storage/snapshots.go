/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// WriteEmergencySnapshot dumps serialized script content into
// <root>/.gsw/backups/emergency-<stamp>.json. Used by the crash handler
// when the process is about to exit with unsaved work; the file is plain
// script JSON so it can be opened like any saved version.
func WriteEmergencySnapshot(root string, content []byte) (string, error) {
	dir := filepath.Join(root, StoreDirName, BackupsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backups dir: %w", err)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("emergency-%s.json", stamp))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("finalize snapshot: %w", err)
	}
	return path, nil
}

// ListEmergencySnapshots returns snapshot paths, newest first.
func ListEmergencySnapshots(root string) ([]string, error) {
	dir := filepath.Join(root, StoreDirName, BackupsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if len(name) > len("emergency-") && name[:len("emergency-")] == "emergency-" {
			out = append(out, filepath.Join(dir, name))
		}
	}
	// Names embed the timestamp so lexical order is chronological.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
