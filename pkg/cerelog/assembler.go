// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cerelog

import (
	"iter"
	"slices"
	"time"
)

// Assembler reconstructs packets from a raw byte stream. It owns the receive
// buffer and the session counters.
//
// An Assembler is not safe for concurrent use; feed it from one goroutine.
type Assembler struct {
	buffer   []byte
	base     uint64 // stream offset of buffer[0]
	counters Counters
	now      func() time.Time
}

// NewAssembler creates a new stream assembler
func NewAssembler() *Assembler {
	return &Assembler{
		buffer: make([]byte, 0, PacketSize*4),
		now:    time.Now,
	}
}

// Reset discards buffered bytes and zeroes the counters for a new session
func (a *Assembler) Reset() {
	a.buffer = a.buffer[:0]
	a.base = 0
	a.counters = Counters{}
}

// Counters returns a snapshot of the session counters
func (a *Assembler) Counters() Counters {
	return a.counters
}

// Buffered returns a copy of the bytes still waiting to be resolved
func (a *Assembler) Buffered() []byte {
	return slices.Clone(a.buffer)
}

// Feed appends chunk to the receive buffer and returns the outcomes it makes
// resolvable. Decoding happens as the sequence is consumed; bytes left
// unresolved (a trailing partial frame, or an iteration stopped early) are
// picked up by the next call. An incomplete frame ends the sequence and is
// not yielded.
func (a *Assembler) Feed(chunk []byte) iter.Seq[Outcome] {
	a.buffer = append(a.buffer, chunk...)
	return func(yield func(Outcome) bool) {
		for {
			out, ok := a.step()
			if !ok || !yield(out) {
				return
			}
		}
	}
}

// Decode feeds chunk and collects every resolved outcome
func (a *Assembler) Decode(chunk []byte) []Outcome {
	return slices.Collect(a.Feed(chunk))
}

// Finish marks the end of the stream. It returns any outcomes still
// resolvable from the buffer; a marker-aligned partial frame left over is
// reported once as OutcomeIncomplete and counted as partial. The buffer is
// empty afterwards.
func (a *Assembler) Finish() []Outcome {
	outcomes := a.Decode(nil)
	if start := nextMarker(a.buffer, 0); start >= 0 {
		out := Outcome{Kind: OutcomeIncomplete, Offset: a.base + uint64(start)}
		a.counters.record(out.Kind)
		outcomes = append(outcomes, out)
	}
	a.discard(len(a.buffer))
	return outcomes
}

// step resolves at most one frame. It returns false when the buffer holds
// nothing more that can be decided.
func (a *Assembler) step() (Outcome, bool) {
	start := nextMarker(a.buffer, 0)
	if start < 0 {
		// Keep the last byte: it may be the first half of a marker.
		if len(a.buffer) > 1 {
			a.discard(len(a.buffer) - 1)
		}
		return Outcome{}, false
	}
	a.discard(start)

	out, n := validateAt(a.buffer, 0, a.now)
	if out.Kind == OutcomeIncomplete {
		return Outcome{}, false
	}
	out.Offset += a.base
	a.discard(n)
	a.counters.record(out.Kind)
	return out, true
}

// discard drops the first n buffered bytes
func (a *Assembler) discard(n int) {
	if n <= 0 {
		return
	}
	a.buffer = append(a.buffer[:0], a.buffer[n:]...)
	a.base += uint64(n)
}
