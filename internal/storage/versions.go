/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	applog "goscriptwriter/internal/log"
)

// ErrNoVersions is returned when a script has no saved versions at all.
var ErrNoVersions = errors.New("no saved versions")

// VersionRecord is one saved draft of a script.
type VersionRecord struct {
	ScriptID  string
	WorkID    string
	Version   int
	IsFinal   bool
	Content   []byte
	UpdatedAt time.Time
}

// VersionInfo is the listing view of a saved draft, without the content.
type VersionInfo struct {
	Version   int
	IsFinal   bool
	UpdatedAt time.Time
	Size      int
}

// SaveOverwrite writes the record's content into its version slot,
// replacing whatever was stored there. The first save of a script simply
// creates the slot.
func (s *Store) SaveOverwrite(ctx context.Context, rec VersionRecord) error {
	if rec.Version <= 0 {
		rec.Version = 1
	}
	now := rec.UpdatedAt
	if now.IsZero() {
		now = time.Now()
	}
	final := 0
	if rec.IsFinal {
		final = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO script_versions (script_id, work_id, version, is_final, content, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(script_id, work_id, version)
		DO UPDATE SET is_final=excluded.is_final, content=excluded.content, updated_at=excluded.updated_at
	`, rec.ScriptID, rec.WorkID, rec.Version, final, string(rec.Content), now.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save version %d: %w", rec.Version, err)
	}
	applog.WithComponent("storage").Debug("version overwritten",
		slog.String("script_id", rec.ScriptID),
		slog.Int("version", rec.Version),
		slog.Bool("is_final", rec.IsFinal),
	)
	return nil
}

// SaveAsNewVersion stores content under the next version number
// (max existing + 1) with the final flag cleared. Existing rows are never
// touched. The assigned number is returned.
func (s *Store) SaveAsNewVersion(ctx context.Context, scriptID, workID string, content []byte) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	var next int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) + 1 FROM script_versions
		WHERE script_id=? AND work_id=?
	`, scriptID, workID).Scan(&next)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("next version: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO script_versions (script_id, work_id, version, is_final, content, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)
	`, scriptID, workID, next, string(content), now); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("insert version %d: %w", next, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	applog.WithComponent("storage").Info("new version saved",
		slog.String("script_id", scriptID),
		slog.Int("version", next),
	)
	return next, nil
}

// SetFinal marks a stored version as the completed draft. Other versions
// keep their flags; completion is per version, not per script.
func (s *Store) SetFinal(ctx context.Context, scriptID, workID string, version int, final bool) error {
	f := 0
	if final {
		f = 1
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE script_versions SET is_final=?, updated_at=?
		WHERE script_id=? AND work_id=? AND version=?
	`, f, time.Now().UTC().Format(time.RFC3339), scriptID, workID, version)
	if err != nil {
		return fmt.Errorf("set final: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNoVersions
	}
	return nil
}

// GetVersion loads a specific version. When the requested number does not
// exist the latest stored version is returned instead, so a stale version
// pointer still opens something. ErrNoVersions means the script has never
// been saved.
func (s *Store) GetVersion(ctx context.Context, scriptID, workID string, version int) (VersionRecord, error) {
	rec, err := s.getExact(ctx, scriptID, workID, version)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return VersionRecord{}, err
	}
	latest, err := s.LatestVersion(ctx, scriptID, workID)
	if err != nil {
		return VersionRecord{}, err
	}
	applog.WithComponent("storage").Warn("requested version missing, falling back to latest",
		slog.String("script_id", scriptID),
		slog.Int("requested", version),
		slog.Int("latest", latest.Version),
	)
	return latest, nil
}

// LatestVersion loads the highest-numbered version of a script.
func (s *Store) LatestVersion(ctx context.Context, scriptID, workID string) (VersionRecord, error) {
	rec, err := s.getLatest(ctx, scriptID, workID)
	if errors.Is(err, sql.ErrNoRows) {
		return VersionRecord{}, ErrNoVersions
	}
	return rec, err
}

func (s *Store) getExact(ctx context.Context, scriptID, workID string, version int) (VersionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT script_id, work_id, version, is_final, content, updated_at
		FROM script_versions
		WHERE script_id=? AND work_id=? AND version=?
	`, scriptID, workID, version)
	return scanVersion(row)
}

func (s *Store) getLatest(ctx context.Context, scriptID, workID string) (VersionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT script_id, work_id, version, is_final, content, updated_at
		FROM script_versions
		WHERE script_id=? AND work_id=?
		ORDER BY version DESC LIMIT 1
	`, scriptID, workID)
	return scanVersion(row)
}

func scanVersion(row *sql.Row) (VersionRecord, error) {
	var (
		rec     VersionRecord
		final   int
		content string
		updated string
	)
	if err := row.Scan(&rec.ScriptID, &rec.WorkID, &rec.Version, &final, &content, &updated); err != nil {
		return VersionRecord{}, err
	}
	rec.IsFinal = final != 0
	rec.Content = []byte(content)
	if ts, err := time.Parse(time.RFC3339, updated); err == nil {
		rec.UpdatedAt = ts
	}
	return rec, nil
}

// ListVersions returns the version listing for a script, newest first.
func (s *Store) ListVersions(ctx context.Context, scriptID, workID string) ([]VersionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT version, is_final, updated_at, LENGTH(content)
		FROM script_versions
		WHERE script_id=? AND work_id=?
		ORDER BY version DESC
	`, scriptID, workID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []VersionInfo
	for rows.Next() {
		var (
			vi      VersionInfo
			final   int
			updated string
		)
		if err := rows.Scan(&vi.Version, &final, &updated, &vi.Size); err != nil {
			return nil, fmt.Errorf("scan version row: %w", err)
		}
		vi.IsFinal = final != 0
		if ts, err := time.Parse(time.RFC3339, updated); err == nil {
			vi.UpdatedAt = ts
		}
		out = append(out, vi)
	}
	return out, rows.Err()
}

// DeleteVersion removes one stored version. Other versions keep their
// numbers; version history is never compacted.
func (s *Store) DeleteVersion(ctx context.Context, scriptID, workID string, version int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM script_versions WHERE script_id=? AND work_id=? AND version=?
	`, scriptID, workID, version)
	if err != nil {
		return 0, fmt.Errorf("delete version %d: %w", version, err)
	}
	return res.RowsAffected()
}

// DeleteAllVersions removes every stored version of a script.
func (s *Store) DeleteAllVersions(ctx context.Context, scriptID, workID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM script_versions WHERE script_id=? AND work_id=?
	`, scriptID, workID)
	if err != nil {
		return 0, fmt.Errorf("delete all versions: %w", err)
	}
	n, _ := res.RowsAffected()
	applog.WithComponent("storage").Info("all versions deleted",
		slog.String("script_id", scriptID),
		slog.Int64("rows", n),
	)
	return n, nil
}
