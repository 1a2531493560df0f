// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package stream

import (
	"fmt"

	"github.com/Thermoquad/cerestat/pkg/cerelog"
)

// Sync tracks acquisition of frame lock. Errors seen before the first
// valid packet are an artifact of joining the stream mid-frame, not faults.
type Sync struct {
	synced  bool
	skipped uint64
}

// Observe records o. surface reports whether o should be shown to the user;
// acquired is true only for the outcome that establishes sync.
func (s *Sync) Observe(o cerelog.Outcome) (surface, acquired bool) {
	if s.synced {
		return true, false
	}
	if !o.Valid() {
		return false, false
	}

	s.synced = true
	// Everything before the first valid frame was discarded
	s.skipped = o.Offset
	return true, true
}

// Synced reports whether a valid packet has been seen
func (s *Sync) Synced() bool {
	return s.synced
}

// Skipped returns the number of stream bytes discarded before sync
func (s *Sync) Skipped() uint64 {
	return s.skipped
}

// Reset returns to the unsynchronized state
func (s *Sync) Reset() {
	*s = Sync{}
}

// Message returns the sync banner
func (s *Sync) Message() string {
	if s.skipped > 0 {
		return fmt.Sprintf("[SYNC] Synchronized after skipping %d bytes", s.skipped)
	}
	return "[SYNC] Synchronized"
}
