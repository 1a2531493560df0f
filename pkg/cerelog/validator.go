// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cerelog

import (
	"fmt"
	"time"
)

// ValidateAt classifies the candidate frame beginning at buf[start] and
// returns the outcome together with the number of bytes, counted from start,
// that the caller must discard:
//
//   - OutcomeIncomplete: fewer than PacketSize bytes remain; discard 0 and
//     retry from the same start once more data arrives.
//   - OutcomeInvalidMarker: start or end marker mismatch; discard 1 byte so a
//     genuine marker one byte later is not skipped.
//   - OutcomeChecksumMismatch: well-formed frame with corrupt content;
//     discard the whole window.
//   - OutcomeValid: discard the whole window.
//
// Offset in the returned outcome is relative to buf. start outside
// [0, len(buf)] is a programming error and panics.
func ValidateAt(buf []byte, start int) (Outcome, int) {
	return validateAt(buf, start, time.Now)
}

func validateAt(buf []byte, start int, now func() time.Time) (Outcome, int) {
	if start < 0 || start > len(buf) {
		panic(fmt.Sprintf("cerelog: frame start %d out of range [0, %d]", start, len(buf)))
	}

	out := Outcome{Offset: uint64(start)}
	if len(buf)-start < PacketSize {
		out.Kind = OutcomeIncomplete
		return out, 0
	}

	frame := buf[start : start+PacketSize]
	if !hasMarkers(frame) {
		out.Kind = OutcomeInvalidMarker
		return out, 1
	}

	if !VerifyChecksum(frame) {
		out.Kind = OutcomeChecksumMismatch
		out.Expected = Checksum(frame[offsetLength:offsetChecksum])
		out.Received = frame[offsetChecksum]
		return out, PacketSize
	}

	out.Kind = OutcomeValid
	out.Packet = decodeFrame(frame, now())
	return out, PacketSize
}

func hasMarkers(frame []byte) bool {
	return frame[offsetStart] == startHi && frame[offsetStart+1] == startLo &&
		frame[offsetEnd] == endHi && frame[offsetEnd+1] == endLo
}

// AnomalyType represents different types of packet anomalies
type AnomalyType int

const (
	AnomalyStatusHeader AnomalyType = iota
	AnomalyLeadOff
	AnomalyRailed
	AnomalyTimestampRegression
)

// ValidationError represents a semantic anomaly in a packet that passed
// framing validation
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// statusHeader is the fixed upper nibble of the ADS1299 status word
const statusHeader = 0xC0

// ValidatePacket checks a decoded packet for anomalies that framing cannot
// detect. Returns an empty slice if the packet looks sane.
func ValidatePacket(p *Packet) []ValidationError {
	errors := []ValidationError{}

	if p.status[0]&0xF0 != statusHeader {
		errors = append(errors, ValidationError{
			Type:    AnomalyStatusHeader,
			Message: fmt.Sprintf("Status header=0x%X (expected 0xC)", p.status[0]>>4),
			Details: map[string]interface{}{"status": p.status},
		})
	}

	loffP, loffN := LeadOff(p.status)
	if loffP != 0 || loffN != 0 {
		errors = append(errors, ValidationError{
			Type:    AnomalyLeadOff,
			Message: fmt.Sprintf("Lead-off detected (P=0b%08b, N=0b%08b)", loffP, loffN),
			Details: map[string]interface{}{"loff_statp": loffP, "loff_statn": loffN},
		})
	}

	for i, r := range p.raw {
		if r == maxRaw || r == minRaw {
			errors = append(errors, ValidationError{
				Type:    AnomalyRailed,
				Message: fmt.Sprintf("Channel %d railed (raw=%d)", i+1, r),
				Details: map[string]interface{}{"channel": i + 1, "raw": r},
			})
		}
	}

	return errors
}

// LeadOff extracts the positive and negative lead-off flags from the status
// word. Bit n set means channel n+1 is off.
func LeadOff(status [StatusSize]byte) (loffP, loffN uint8) {
	loffP = status[0]&0x0F<<4 | status[1]>>4
	loffN = status[1]&0x0F<<4 | status[2]>>4
	return loffP, loffN
}

// CheckSequence reports a timestamp that did not advance between two
// consecutive valid packets. Counter wraparound is not a regression.
func CheckSequence(prev, cur *Packet) *ValidationError {
	if prev == nil || cur == nil {
		return nil
	}
	delta := cur.timestamp - prev.timestamp
	if delta != 0 && delta < 1<<31 {
		return nil
	}
	return &ValidationError{
		Type:    AnomalyTimestampRegression,
		Message: fmt.Sprintf("Timestamp did not advance (%d -> %d)", prev.timestamp, cur.timestamp),
		Details: map[string]interface{}{"previous": prev.timestamp, "current": cur.timestamp},
	}
}
