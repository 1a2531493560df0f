// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cerelog

// Checksum computes the additive checksum over the interior of a packet:
// every byte from the length field through the last payload byte, mod 256.
func Checksum(interior []byte) byte {
	var sum byte
	for _, b := range interior {
		sum += b
	}
	return sum
}

// VerifyChecksum reports whether frame's checksum byte matches its interior.
// frame must be at least PacketSize bytes.
func VerifyChecksum(frame []byte) bool {
	return Checksum(frame[offsetLength:offsetChecksum]) == frame[offsetChecksum]
}
