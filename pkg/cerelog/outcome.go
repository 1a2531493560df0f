// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cerelog

import (
	"errors"
	"fmt"
)

// OutcomeKind classifies the result of resolving one candidate frame
type OutcomeKind int

const (
	OutcomeValid OutcomeKind = iota
	OutcomeInvalidMarker
	OutcomeChecksumMismatch
	OutcomeIncomplete
)

// String returns the outcome name
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeValid:
		return "VALID"
	case OutcomeInvalidMarker:
		return "INVALID_MARKER"
	case OutcomeChecksumMismatch:
		return "CHECKSUM_MISMATCH"
	case OutcomeIncomplete:
		return "INCOMPLETE"
	default:
		return "UNKNOWN"
	}
}

// Outcome is the result of one decode step. Packet is set only when Kind is
// OutcomeValid.
type Outcome struct {
	Kind   OutcomeKind
	Packet *Packet

	// Offset is the stream position of the candidate frame, counted in bytes
	// since the start of the session.
	Offset uint64

	// Expected and Received carry the checksum detail for
	// OutcomeChecksumMismatch.
	Expected byte
	Received byte
}

// Valid reports whether the outcome carries a decoded packet
func (o Outcome) Valid() bool {
	return o.Kind == OutcomeValid
}

// Sentinel errors for non-valid outcomes
var (
	ErrInvalidMarker    = errors.New("invalid frame marker")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrIncomplete       = errors.New("incomplete frame")
)

// FrameError describes a rejected frame. It unwraps to one of the sentinel
// errors.
type FrameError struct {
	Kind   OutcomeKind
	Offset uint64
	Detail string
}

// Error implements the error interface
func (e *FrameError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v at offset %d", e.Unwrap(), e.Offset)
	}
	return fmt.Sprintf("%v at offset %d: %s", e.Unwrap(), e.Offset, e.Detail)
}

// Unwrap returns the sentinel error for the frame's outcome kind
func (e *FrameError) Unwrap() error {
	switch e.Kind {
	case OutcomeInvalidMarker:
		return ErrInvalidMarker
	case OutcomeChecksumMismatch:
		return ErrChecksumMismatch
	case OutcomeIncomplete:
		return ErrIncomplete
	}
	return nil
}

// Err converts a non-valid outcome into a *FrameError. Returns nil for
// valid outcomes.
func (o Outcome) Err() error {
	switch o.Kind {
	case OutcomeValid:
		return nil
	case OutcomeChecksumMismatch:
		return &FrameError{
			Kind:   o.Kind,
			Offset: o.Offset,
			Detail: fmt.Sprintf("expected 0x%02X, got 0x%02X", o.Expected, o.Received),
		}
	default:
		return &FrameError{Kind: o.Kind, Offset: o.Offset}
	}
}

// Counters tallies outcomes for one session
type Counters struct {
	Valid         uint64
	InvalidMarker uint64
	ChecksumError uint64
	Partial       uint64
}

// Total returns the number of classified frames
func (c Counters) Total() uint64 {
	return c.Valid + c.InvalidMarker + c.ChecksumError + c.Partial
}

// Errors returns the number of rejected frames
func (c Counters) Errors() uint64 {
	return c.InvalidMarker + c.ChecksumError + c.Partial
}

func (c *Counters) record(k OutcomeKind) {
	switch k {
	case OutcomeValid:
		c.Valid++
	case OutcomeInvalidMarker:
		c.InvalidMarker++
	case OutcomeChecksumMismatch:
		c.ChecksumError++
	case OutcomeIncomplete:
		c.Partial++
	}
}
