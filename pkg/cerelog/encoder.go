// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cerelog

import "encoding/binary"

// EncodePacket encodes a packet to its 37-byte wire format. The checksum is
// recomputed from the packet's fields.
func EncodePacket(p *Packet) []byte {
	frame := make([]byte, PacketSize)
	binary.BigEndian.PutUint16(frame[offsetStart:], StartMarker)
	copy(frame[offsetLength:offsetChecksum], encodeInterior(p))
	frame[offsetChecksum] = Checksum(frame[offsetLength:offsetChecksum])
	binary.BigEndian.PutUint16(frame[offsetEnd:], EndMarker)
	return frame
}

// EncodeFrame creates a complete wire-formatted packet from field values
func EncodeFrame(timestamp uint32, status [StatusSize]byte, raw [NumChannels]int32) []byte {
	return EncodePacket(NewPacket(timestamp, status, raw))
}

// encodeInterior builds the checksummed region: length, timestamp, payload.
func encodeInterior(p *Packet) []byte {
	data := make([]byte, offsetChecksum-offsetLength)
	data[0] = p.length
	binary.BigEndian.PutUint32(data[1:5], p.timestamp)
	copy(data[5:8], p.status[:])
	for i, r := range p.raw {
		off := 1 + TimestampSize + StatusSize + i*SampleSize
		data[off] = byte(r >> 16)
		data[off+1] = byte(r >> 8)
		data[off+2] = byte(r)
	}
	return data
}
