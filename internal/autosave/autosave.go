/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package autosave coordinates periodic background saves of the open
// script. A small state machine (Clean, Dirty, Saving) decides whether a
// timer tick actually flushes; edits arriving mid-save keep the session
// dirty so the next tick picks them up.
package autosave

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	applog "goscriptwriter/internal/log"
)

// State is the save-coordination state of the open script.
type State int

const (
	// Clean means the stored version matches the in-memory document.
	Clean State = iota
	// Dirty means edits exist that have not been flushed.
	Dirty
	// Saving means a flush is in flight.
	Saving
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	case Saving:
		return "saving"
	default:
		return "unknown"
	}
}

// SaveFunc persists the current document. Implementations are supplied by
// the caller (local store overwrite, backend POST, or both).
type SaveFunc func(ctx context.Context) error

// DefaultInterval matches the editor's autosave cadence.
const DefaultInterval = 30 * time.Second

// Coordinator runs the autosave state machine. All methods are safe for
// concurrent use.
type Coordinator struct {
	mu       sync.Mutex
	state    State
	dirtyAt  time.Time
	savedAt  time.Time
	lastErr  error
	pendSave bool // edit arrived while Saving

	save     SaveFunc
	interval time.Duration
	log      *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}

	onStateChange func(State)
}

// New builds a coordinator around a save function. interval <= 0 selects
// DefaultInterval.
func New(save SaveFunc, interval time.Duration) *Coordinator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Coordinator{
		state:    Clean,
		save:     save,
		interval: interval,
		log:      applog.WithComponent("autosave"),
	}
}

// SetStateNotifier registers a callback invoked (outside the lock) on
// every state transition. Used by the host UI for its save indicator.
func (c *Coordinator) SetStateNotifier(fn func(State)) {
	c.mu.Lock()
	c.onStateChange = fn
	c.mu.Unlock()
}

// State returns the current coordination state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the error from the most recent failed flush, or nil.
func (c *Coordinator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// LastSaved returns when the last successful flush completed.
func (c *Coordinator) LastSaved() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.savedAt
}

// MarkDirty records that the document changed. From Clean it moves to
// Dirty; while Saving it flags the in-flight flush as already stale.
func (c *Coordinator) MarkDirty() {
	c.mu.Lock()
	var notify func(State)
	switch c.state {
	case Clean:
		c.state = Dirty
		c.dirtyAt = time.Now()
		notify = c.onStateChange
	case Saving:
		c.pendSave = true
	case Dirty:
		// already pending
	}
	st := c.state
	c.mu.Unlock()
	if notify != nil {
		notify(st)
	}
}

// Tick is one autosave timer firing. A Clean tick is a no-op; a Dirty
// tick flushes. Ticks arriving while Saving are dropped, the running
// flush covers them.
func (c *Coordinator) Tick(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Dirty {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.flush(ctx)
}

// SaveNow forces a flush regardless of the timer. When a flush is already
// in flight the request is deferred until it finishes; when Clean it is a
// no-op so repeated saves stay idempotent.
func (c *Coordinator) SaveNow(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case Clean:
		c.mu.Unlock()
		return nil
	case Saving:
		c.pendSave = true
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.flush(ctx)
}

var errNotDirty = errors.New("autosave: nothing to flush")

func (c *Coordinator) flush(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Dirty {
		c.mu.Unlock()
		return nil
	}
	c.state = Saving
	c.pendSave = false
	notify := c.onStateChange
	c.mu.Unlock()
	if notify != nil {
		notify(Saving)
	}

	err := c.save(ctx)

	c.mu.Lock()
	if err != nil {
		// Failed flushes keep the data pending; nothing is discarded.
		c.state = Dirty
		c.lastErr = err
	} else if c.pendSave {
		// An edit landed while we were writing.
		c.state = Dirty
		c.dirtyAt = time.Now()
		c.lastErr = nil
		c.savedAt = time.Now()
	} else {
		c.state = Clean
		c.lastErr = nil
		c.savedAt = time.Now()
	}
	c.pendSave = false
	st := c.state
	notify = c.onStateChange
	c.mu.Unlock()
	if notify != nil {
		notify(st)
	}

	if err != nil {
		c.log.Warn("autosave flush failed", slog.Any("err", err))
		return err
	}
	c.log.Debug("autosave flushed", slog.String("state", st.String()))
	return nil
}

// Start launches the background ticker. Stop (or cancelling ctx) ends it.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	done := make(chan struct{})
	c.done = done
	interval := c.interval
	c.mu.Unlock()

	go func() {
		defer close(done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				_ = c.Tick(ctx)
			}
		}
	}()
	c.log.Info("autosave started", slog.Duration("interval", interval))
}

// Stop halts the ticker and attempts one final flush of pending edits.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	return c.SaveNow(ctx)
}
