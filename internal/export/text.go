/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"goscriptwriter/internal/domain"
	"goscriptwriter/internal/script"
)

// WriteText writes the plain-text rendition to outDir using the draft
// naming rule (<title>台本_<第N稿|完成稿>_<YYYYMMDD>.txt) and returns the
// full path.
func WriteText(d *domain.Document, outDir string, version int, isFinal bool, now time.Time) (string, error) {
	title := d.Title
	if title == "" {
		title = "無題"
	}
	name := script.ExportFileName(title, version, isFinal, now)
	path := filepath.Join(outDir, name)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	if err := writeFileSync(path, []byte(script.FormatText(d))); err != nil {
		return "", fmt.Errorf("write text export: %w", err)
	}
	return path, nil
}

// writeFileSync writes data and flushes it to disk before returning.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}
