// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cerelog

import "time"

// Packet represents a decoded X8 packet. It is immutable once produced.
type Packet struct {
	length    uint8
	timestamp uint32
	status    [StatusSize]byte
	raw       [NumChannels]int32
	channels  [NumChannels]float64
	checksum  byte
	received  time.Time
}

// NewPacket creates a packet from a device timestamp, status bytes and raw
// channel counts. Raw counts outside the 24-bit range are clamped.
func NewPacket(timestamp uint32, status [StatusSize]byte, raw [NumChannels]int32) *Packet {
	p := &Packet{
		length:    MessageLength,
		timestamp: timestamp,
		status:    status,
		received:  time.Now(),
	}
	for i, r := range raw {
		r = min(max(r, minRaw), maxRaw)
		p.raw[i] = r
		p.channels[i] = RawToVolts(r)
	}
	p.checksum = Checksum(encodeInterior(p))
	return p
}

// decodeFrame builds a packet from a frame that already passed validation.
func decodeFrame(frame []byte, received time.Time) *Packet {
	p := &Packet{
		length:    frame[offsetLength],
		timestamp: uint32(frame[offsetTimestamp])<<24 | uint32(frame[offsetTimestamp+1])<<16 | uint32(frame[offsetTimestamp+2])<<8 | uint32(frame[offsetTimestamp+3]),
		checksum:  frame[offsetChecksum],
		received:  received,
	}
	p.raw = decodeRaw(frame[offsetPayload:offsetChecksum], &p.status)
	for i, r := range p.raw {
		p.channels[i] = RawToVolts(r)
	}
	return p
}

// Length returns the length field as sent by the board
func (p *Packet) Length() uint8 {
	return p.length
}

// Timestamp returns the board's 32-bit timestamp
func (p *Packet) Timestamp() uint32 {
	return p.timestamp
}

// Status returns the three ADS1299 status bytes
func (p *Packet) Status() [StatusSize]byte {
	return p.status
}

// Channels returns the eight channel voltages, in channel order
func (p *Packet) Channels() [NumChannels]float64 {
	return p.channels
}

// Channel returns the voltage of channel i (0-based)
func (p *Packet) Channel(i int) float64 {
	return p.channels[i]
}

// Raw returns the eight signed 24-bit channel counts
func (p *Packet) Raw() [NumChannels]int32 {
	return p.raw
}

// Checksum returns the packet's checksum byte
func (p *Packet) Checksum() byte {
	return p.checksum
}

// ReceivedAt returns the host time at which the packet was decoded
func (p *Packet) ReceivedAt() time.Time {
	return p.received
}
