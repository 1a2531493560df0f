// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package cerelog implements the framing engine for the Cerelog X8 serial
// telemetry stream.
//
// The X8 streams fixed-size 37-byte packets, each carrying one ADS1299
// conversion (24-bit status word plus eight 24-bit channel samples) and a
// device timestamp. This package turns an unbounded, possibly corrupted byte
// stream into a sequence of validated packets and resynchronizes after noise.
// It performs no I/O; transports feed it raw chunks.
package cerelog

// Frame markers (big-endian on the wire)
const (
	StartMarker uint16 = 0xABCD
	EndMarker   uint16 = 0xDCBA
)

// Packet layout
const (
	PacketSize    = 37
	MarkerSize    = 2
	TimestampSize = 4
	PayloadSize   = 27 // 3 status bytes + 8 channels * 3 bytes
	StatusSize    = 3
	SampleSize    = 3
	NumChannels   = 8

	// MessageLength is the value the board writes into the length field:
	// timestamp + payload.
	MessageLength = TimestampSize + PayloadSize
)

// Byte offsets within a packet
const (
	offsetStart     = 0
	offsetLength    = 2
	offsetTimestamp = 3
	offsetPayload   = 7
	offsetChecksum  = 34
	offsetEnd       = 35
)

// ADS1299 conversion constants
const (
	VRef = 4.5
	Gain = 24.0

	fullScaleCounts = 1 << 24
	maxRaw          = 0x7FFFFF
	minRaw          = -0x800000
)

// Sampling rates reported by the board
const (
	DefaultSampleRate = 500 // samples per second at full link speed
	DefaultBaudRate   = 9600

	// DefaultExpectedRate is the packet rate the board sustains at 9600 baud.
	DefaultExpectedRate = 25.0
)
