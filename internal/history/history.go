/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package history keeps the bounded undo/redo stacks for one editing
// session. Entries are opaque full-document snapshots captured before each
// structural mutation.
package history

import (
	"sync"
	"time"
)

// Snapshot is a reversible state blob. Content is opaque to the stack;
// size is estimated as len(Blob). TS is when the snapshot was captured.
type Snapshot struct {
	Blob []byte
	TS   time.Time
}

// Config controls depth and memory caps and coalescing behavior.
type Config struct {
	// MaxDepth limits the number of undo entries (default 50).
	MaxDepth int
	// MaxBytes is a soft cap; oldest entries are pruned when exceeded.
	MaxBytes int
	// MinInterval coalesces snapshots captured within the interval into
	// the previous entry, so a burst of keystroke-adjacent edits undoes
	// as one step. Keeps rapid typing from flooding the stack.
	MinInterval time.Duration
}

// Stack provides snapshot-based undo/redo with performance safeguards.
// It is safe for concurrent use.
type Stack struct {
	cfg        Config
	mu         sync.Mutex
	undo       []Snapshot
	redo       []Snapshot
	totalBytes int
}

func NewStack(cfg Config) *Stack {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 50
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	return &Stack{cfg: cfg}
}

// Record pushes a pre-mutation snapshot onto the undo stack and clears the
// redo stack. Call it before applying a structural mutation. Snapshots
// within MinInterval of the previous one are coalesced.
func (s *Stack) Record(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.undo); n > 0 && s.cfg.MinInterval > 0 {
		last := &s.undo[n-1]
		if snap.TS.Sub(last.TS) < s.cfg.MinInterval {
			// Keep the older blob: it is the pre-state of the whole
			// merged burst. Only the timestamp moves forward.
			last.TS = snap.TS
			s.redo = nil
			return
		}
	}
	s.undo = append(s.undo, snap)
	s.totalBytes += len(snap.Blob)
	// Any new change invalidates redo
	s.redo = nil
	s.enforceCapsLocked()
}

// Undo pops the newest undo entry, pushing current onto the redo stack.
// It is a no-op returning ok=false when the undo stack is empty.
func (s *Stack) Undo(current []byte) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.undo) == 0 {
		return Snapshot{}, false
	}
	snap := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.totalBytes -= len(snap.Blob)
	s.redo = append(s.redo, Snapshot{Blob: append([]byte(nil), current...), TS: time.Now()})
	return snap, true
}

// Redo is symmetric to Undo: it pops the newest redo entry and pushes the
// current state back onto the undo stack. No-op when redo is empty.
func (s *Stack) Redo(current []byte) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.redo) == 0 {
		return Snapshot{}, false
	}
	snap := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = append(s.undo, Snapshot{Blob: append([]byte(nil), current...), TS: time.Now()})
	s.totalBytes += len(s.undo[len(s.undo)-1].Blob)
	s.enforceCapsLocked()
	return snap, true
}

// CanUndo reports whether an undo entry is available.
func (s *Stack) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undo) > 0
}

// CanRedo reports whether a redo entry is available.
func (s *Stack) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redo) > 0
}

// Clear drops both stacks, e.g. when a different document is loaded.
func (s *Stack) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.undo = nil
	s.redo = nil
	s.totalBytes = 0
}

// Stats returns current sizes for diagnostics.
func (s *Stack) Stats() (totalBytes, undoDepth, redoDepth int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalBytes, len(s.undo), len(s.redo)
}

func (s *Stack) enforceCapsLocked() {
	if len(s.undo) > s.cfg.MaxDepth {
		drop := len(s.undo) - s.cfg.MaxDepth
		for i := 0; i < drop; i++ {
			s.totalBytes -= len(s.undo[i].Blob)
		}
		s.undo = append([]Snapshot{}, s.undo[drop:]...)
	}
	for s.cfg.MaxBytes > 0 && s.totalBytes > s.cfg.MaxBytes && len(s.undo) > 1 {
		s.totalBytes -= len(s.undo[0].Blob)
		s.undo = s.undo[1:]
	}
}
