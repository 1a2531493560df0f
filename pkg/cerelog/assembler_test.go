// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cerelog

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// kinds extracts outcome kinds for comparison
func kinds(outcomes []Outcome) []OutcomeKind {
	result := []OutcomeKind{}
	for _, o := range outcomes {
		result = append(result, o.Kind)
	}
	return result
}

func TestAssembler_SingleFrame(t *testing.T) {
	a := NewAssembler()
	outcomes := a.Decode(buildFrame(1000))

	if diff := cmp.Diff([]OutcomeKind{OutcomeValid}, kinds(outcomes)); diff != "" {
		t.Fatalf("Outcome kinds mismatch (-want +got):\n%s", diff)
	}
	if outcomes[0].Packet.Timestamp() != 1000 {
		t.Errorf("Timestamp mismatch: got %d", outcomes[0].Packet.Timestamp())
	}
	if got := a.Counters(); got != (Counters{Valid: 1}) {
		t.Errorf("Counters mismatch: %+v", got)
	}
	if len(a.Buffered()) != 0 {
		t.Errorf("Buffer should be empty, has %d bytes", len(a.Buffered()))
	}
}

func TestAssembler_EmptyChunk(t *testing.T) {
	a := NewAssembler()
	if outcomes := a.Decode(nil); len(outcomes) != 0 {
		t.Errorf("Empty chunk should produce no outcomes, got %v", kinds(outcomes))
	}
	if outcomes := a.Decode([]byte{}); len(outcomes) != 0 {
		t.Errorf("Empty chunk should produce no outcomes, got %v", kinds(outcomes))
	}
}

// Stray byte, one frame, then the first two bytes of the next marker.
func TestAssembler_StrayByteAndTrailingMarker(t *testing.T) {
	chunk := []byte{0x00}
	chunk = append(chunk, buildFrame(55)...)
	chunk = append(chunk, 0xAB, 0xCD)
	if len(chunk) != 40 {
		t.Fatalf("Test chunk should be 40 bytes, got %d", len(chunk))
	}

	a := NewAssembler()
	outcomes := a.Decode(chunk)

	if diff := cmp.Diff([]OutcomeKind{OutcomeValid}, kinds(outcomes)); diff != "" {
		t.Fatalf("Outcome kinds mismatch (-want +got):\n%s", diff)
	}
	if outcomes[0].Offset != 1 {
		t.Errorf("Frame offset should be 1, got %d", outcomes[0].Offset)
	}
	if diff := cmp.Diff([]byte{0xAB, 0xCD}, a.Buffered()); diff != "" {
		t.Errorf("Buffer should hold the trailing marker (-want +got):\n%s", diff)
	}

	// The pending marker completes with the next frame
	next := buildFrame(56)
	outcomes = a.Decode(next[2:])
	if diff := cmp.Diff([]OutcomeKind{OutcomeValid}, kinds(outcomes)); diff != "" {
		t.Fatalf("Continuation mismatch (-want +got):\n%s", diff)
	}
	if outcomes[0].Offset != 38 {
		t.Errorf("Second frame offset should be 38, got %d", outcomes[0].Offset)
	}
	if outcomes[0].Packet.Timestamp() != 56 {
		t.Errorf("Timestamp mismatch: got %d", outcomes[0].Packet.Timestamp())
	}
}

func TestAssembler_GarbageWithoutMarkerIsDropped(t *testing.T) {
	a := NewAssembler()
	outcomes := a.Decode([]byte{0x01, 0x02, 0x03, 0x04, 0xAB})
	if len(outcomes) != 0 {
		t.Fatalf("Expected no outcomes, got %v", kinds(outcomes))
	}
	if diff := cmp.Diff([]byte{0xAB}, a.Buffered()); diff != "" {
		t.Errorf("Only the last byte should be kept (-want +got):\n%s", diff)
	}
	if got := a.Counters(); got != (Counters{}) {
		t.Errorf("Discarded garbage must not be counted: %+v", got)
	}
}

func TestAssembler_MarkerSplitAcrossChunks(t *testing.T) {
	frame := buildFrame(3)
	a := NewAssembler()

	garbage := []byte{0x10, 0x20, 0x30, frame[0]}
	if outcomes := a.Decode(garbage); len(outcomes) != 0 {
		t.Fatalf("Expected no outcomes yet, got %v", kinds(outcomes))
	}

	outcomes := a.Decode(frame[1:])
	if diff := cmp.Diff([]OutcomeKind{OutcomeValid}, kinds(outcomes)); diff != "" {
		t.Fatalf("Outcome kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestAssembler_FalseMarkerResync(t *testing.T) {
	// A fake marker whose window overlaps a genuine frame five bytes later.
	// Dropping a single byte must still find the genuine frame.
	chunk := []byte{0xAB, 0xCD, 0x00, 0x00, 0x00}
	chunk = append(chunk, buildFrame(9)...)

	a := NewAssembler()
	outcomes := a.Decode(chunk)

	want := []OutcomeKind{OutcomeInvalidMarker, OutcomeValid}
	if diff := cmp.Diff(want, kinds(outcomes)); diff != "" {
		t.Fatalf("Outcome kinds mismatch (-want +got):\n%s", diff)
	}
	if outcomes[1].Offset != 5 {
		t.Errorf("Genuine frame offset should be 5, got %d", outcomes[1].Offset)
	}
	if got := a.Counters(); got != (Counters{Valid: 1, InvalidMarker: 1}) {
		t.Errorf("Counters mismatch: %+v", got)
	}
}

func TestAssembler_ChecksumMismatchSkipsWindow(t *testing.T) {
	bad := buildFrame(10)
	bad[20] ^= 0x04
	chunk := append(bad, buildFrame(11)...)

	a := NewAssembler()
	outcomes := a.Decode(chunk)

	want := []OutcomeKind{OutcomeChecksumMismatch, OutcomeValid}
	if diff := cmp.Diff(want, kinds(outcomes)); diff != "" {
		t.Fatalf("Outcome kinds mismatch (-want +got):\n%s", diff)
	}
	if outcomes[1].Offset != PacketSize {
		t.Errorf("Second frame should start at %d, got %d", PacketSize, outcomes[1].Offset)
	}
	if got := a.Counters(); got != (Counters{Valid: 1, ChecksumError: 1}) {
		t.Errorf("Counters mismatch: %+v", got)
	}
}

func TestAssembler_RoundTrip(t *testing.T) {
	type fields struct {
		Timestamp uint32
		Status    [StatusSize]byte
		Raw       [NumChannels]int32
		Channels  [NumChannels]float64
	}
	snapshot := func(p *Packet) fields {
		return fields{p.Timestamp(), p.Status(), p.Raw(), p.Channels()}
	}

	tests := []struct {
		name      string
		timestamp uint32
		status    [StatusSize]byte
		raw       [NumChannels]int32
	}{
		{"zeros", 0, [3]byte{0xC0, 0, 0}, [NumChannels]int32{}},
		{"full scale", 0xFFFFFFFF, [3]byte{0xCF, 0xFF, 0xFF}, [NumChannels]int32{maxRaw, minRaw, -1, 1, 0, maxRaw, minRaw, 0}},
		{"mixed", 0x01020304, [3]byte{0xC0, 0x12, 0x34}, testRaw(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPacket(tt.timestamp, tt.status, tt.raw)
			a := NewAssembler()
			outcomes := a.Decode(EncodePacket(p))
			if len(outcomes) != 1 || !outcomes[0].Valid() {
				t.Fatalf("Expected one VALID outcome, got %v", kinds(outcomes))
			}
			if diff := cmp.Diff(snapshot(p), snapshot(outcomes[0].Packet)); diff != "" {
				t.Errorf("Round trip mismatch (-want +got):\n%s", diff)
			}
			if outcomes[0].Packet.Checksum() != p.Checksum() {
				t.Errorf("Checksum mismatch: 0x%02X != 0x%02X", outcomes[0].Packet.Checksum(), p.Checksum())
			}
		})
	}
}

func TestAssembler_ChunkBoundaryIndependence(t *testing.T) {
	frame := buildFrame(31337)
	whole := NewAssembler().Decode(frame)

	for split := 0; split <= len(frame); split++ {
		a := NewAssembler()
		outcomes := a.Decode(frame[:split])
		outcomes = append(outcomes, a.Decode(frame[split:])...)

		if len(outcomes) != 1 || !outcomes[0].Valid() {
			t.Fatalf("split %d: expected one VALID outcome, got %v", split, kinds(outcomes))
		}
		if outcomes[0].Packet.Channels() != whole[0].Packet.Channels() ||
			outcomes[0].Packet.Timestamp() != whole[0].Packet.Timestamp() {
			t.Errorf("split %d: packet differs from whole-frame decode", split)
		}
	}
}

func TestAssembler_ByteAtATime(t *testing.T) {
	var stream []byte
	for ts := uint32(0); ts < 5; ts++ {
		stream = append(stream, buildFrame(ts)...)
	}

	a := NewAssembler()
	var outcomes []Outcome
	for _, b := range stream {
		outcomes = append(outcomes, a.Decode([]byte{b})...)
	}

	if len(outcomes) != 5 {
		t.Fatalf("Expected 5 outcomes, got %d", len(outcomes))
	}
	for i, o := range outcomes {
		if !o.Valid() || o.Packet.Timestamp() != uint32(i) {
			t.Errorf("Outcome %d: %v ts=%v", i, o.Kind, o.Packet)
		}
	}
}

func TestAssembler_ChecksumSensitivity(t *testing.T) {
	frame := buildFrame(2024)
	for idx := 2; idx < 34; idx++ {
		for bit := 0; bit < 8; bit++ {
			corrupt := bytes.Clone(frame)
			corrupt[idx] ^= 1 << bit

			outcomes := NewAssembler().Decode(corrupt)
			if len(outcomes) != 1 || outcomes[0].Kind != OutcomeChecksumMismatch {
				t.Fatalf("byte %d bit %d: expected CHECKSUM_MISMATCH, got %v", idx, bit, kinds(outcomes))
			}
		}
	}
}

func TestAssembler_LazyFeedResumes(t *testing.T) {
	chunk := append(buildFrame(1), buildFrame(2)...)
	a := NewAssembler()

	for o := range a.Feed(chunk) {
		if o.Packet.Timestamp() != 1 {
			t.Errorf("First outcome should be ts=1, got %d", o.Packet.Timestamp())
		}
		break
	}
	if got := a.Counters().Valid; got != 1 {
		t.Errorf("Only the consumed outcome should be counted, got %d", got)
	}

	outcomes := a.Decode(nil)
	if len(outcomes) != 1 || outcomes[0].Packet.Timestamp() != 2 {
		t.Fatalf("Remaining frame should resume on next call, got %v", kinds(outcomes))
	}
	if got := a.Counters().Valid; got != 2 {
		t.Errorf("Expected 2 valid, got %d", got)
	}
}

func TestAssembler_IncompleteIsNotCounted(t *testing.T) {
	frame := buildFrame(8)
	a := NewAssembler()
	if outcomes := a.Decode(frame[:30]); len(outcomes) != 0 {
		t.Fatalf("Partial frame must not yield outcomes, got %v", kinds(outcomes))
	}
	if got := a.Counters(); got != (Counters{}) {
		t.Errorf("Incomplete must not be counted during feed: %+v", got)
	}
	if len(a.Buffered()) != 30 {
		t.Errorf("Partial frame must stay buffered, have %d bytes", len(a.Buffered()))
	}
}

func TestAssembler_Finish(t *testing.T) {
	a := NewAssembler()
	chunk := append(buildFrame(1), buildFrame(2)[:20]...)

	for range a.Feed(chunk) {
		break // consume only the first frame
	}

	outcomes := a.Finish()
	want := []OutcomeKind{OutcomeIncomplete}
	if diff := cmp.Diff(want, kinds(outcomes)); diff != "" {
		t.Fatalf("Finish outcomes mismatch (-want +got):\n%s", diff)
	}
	if outcomes[0].Offset != PacketSize {
		t.Errorf("Partial frame offset should be %d, got %d", PacketSize, outcomes[0].Offset)
	}
	if got := a.Counters(); got != (Counters{Valid: 1, Partial: 1}) {
		t.Errorf("Counters mismatch: %+v", got)
	}
	if len(a.Buffered()) != 0 {
		t.Error("Finish should empty the buffer")
	}
	if outcomes := a.Finish(); len(outcomes) != 0 {
		t.Errorf("Second Finish should report nothing, got %v", kinds(outcomes))
	}
}

func TestAssembler_FinishDrainsUnconsumed(t *testing.T) {
	a := NewAssembler()
	for range a.Feed(append(buildFrame(1), buildFrame(2)...)) {
		break
	}
	outcomes := a.Finish()
	if diff := cmp.Diff([]OutcomeKind{OutcomeValid}, kinds(outcomes)); diff != "" {
		t.Fatalf("Finish should return remaining outcomes (-want +got):\n%s", diff)
	}
}

func TestAssembler_Reset(t *testing.T) {
	a := NewAssembler()
	a.Decode(buildFrame(1))
	a.Decode([]byte{0xAB, 0xCD, 0x00})

	a.Reset()
	if got := a.Counters(); got != (Counters{}) {
		t.Errorf("Counters should be zero after reset: %+v", got)
	}
	if len(a.Buffered()) != 0 {
		t.Error("Buffer should be empty after reset")
	}

	outcomes := a.Decode(buildFrame(2))
	if len(outcomes) != 1 || outcomes[0].Offset != 0 {
		t.Errorf("Offsets restart after reset, got %+v", outcomes)
	}
}

func TestAssembler_BufferStaysBounded(t *testing.T) {
	a := NewAssembler()
	noise := bytes.Repeat([]byte{0x11, 0x22, 0x33}, 1000)
	for i := 0; i < 10; i++ {
		a.Decode(noise)
		if n := len(a.Buffered()); n > 1 {
			t.Fatalf("Noise without markers should not accumulate, have %d bytes", n)
		}
	}
}
