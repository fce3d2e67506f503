/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sensor

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultStaleTimeout is how long a report stays readable after its last update.
const DefaultStaleTimeout = 30 * time.Second

// Snapshot is the unit the State swaps atomically: the latest normalized report, the time it
// arrived and the peaks including it.
type Snapshot struct {
	Report    Report    `json:"report"`
	UpdatedAt time.Time `json:"updated_at"`
	Peaks     Peaks     `json:"peaks"`
}

// State is a single-register store shared by the polling loop and push listeners. Writers are
// serialized so peaks stay monotonic; readers never block.
type State struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
	now     func() time.Time
}

// NewState creates an empty State. A nil clock uses time.Now.
func NewState(now func() time.Time) *State {
	if now == nil {
		now = time.Now
	}

	return &State{now: now}
}

// Ingest replaces the current report with r and folds it into the peaks.
func (s *State) Ingest(r *Report) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var peaks Peaks
	if prev := s.current.Load(); prev != nil {
		peaks = prev.Peaks
	}

	next := &Snapshot{
		Report:    *r,
		UpdatedAt: s.now(),
		Peaks:     peaks.Observe(r),
	}

	s.current.Store(next)

	return next
}

// Snapshot returns the current snapshot, or nil before the first ingest.
func (s *State) Snapshot() *Snapshot {
	return s.current.Load()
}

// Gate decides whether a snapshot is still fresh enough to be read.
type Gate struct {
	Timeout time.Duration
	Now     func() time.Time
}

// NewGate builds a Gate. A zero timeout falls back to DefaultStaleTimeout.
func NewGate(timeout time.Duration, now func() time.Time) Gate {
	if timeout <= 0 {
		timeout = DefaultStaleTimeout
	}

	if now == nil {
		now = time.Now
	}

	return Gate{Timeout: timeout, Now: now}
}

// Check returns ErrTimedOut when nothing was ever received or the last update is older than
// the timeout.
func (g Gate) Check(snap *Snapshot) error {
	if snap == nil || snap.UpdatedAt.IsZero() {
		return ErrTimedOut
	}

	if g.Now().Sub(snap.UpdatedAt) > g.Timeout {
		return ErrTimedOut
	}

	return nil
}
