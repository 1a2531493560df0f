// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cerelog

import (
	"fmt"
	"math"
)

// RawSample sign-extends a big-endian 24-bit two's-complement sample.
func RawSample(b [SampleSize]byte) int32 {
	v := int32(b[0])<<16 | int32(b[1])<<8 | int32(b[2])
	if b[0]&0x80 != 0 {
		v -= fullScaleCounts
	}
	return v
}

// RawToVolts scales a raw ADS1299 count to volts.
func RawToVolts(raw int32) float64 {
	return float64(raw) * (2 * VRef / Gain) / fullScaleCounts
}

// VoltsToRaw is the inverse of RawToVolts, rounded to the nearest count and
// clamped to the 24-bit range.
func VoltsToRaw(v float64) int32 {
	counts := math.Round(v * fullScaleCounts / (2 * VRef / Gain))
	switch {
	case math.IsNaN(counts):
		return 0
	case counts > maxRaw:
		return maxRaw
	case counts < minRaw:
		return minRaw
	}
	return int32(counts)
}

// DecodeChannel converts one 3-byte channel sample to volts.
func DecodeChannel(b [SampleSize]byte) float64 {
	return RawToVolts(RawSample(b))
}

// DecodePayload splits a 27-byte sensor payload into its status bytes and
// eight channel voltages.
func DecodePayload(payload []byte) (status [StatusSize]byte, channels [NumChannels]float64) {
	raw := decodeRaw(payload, &status)
	for i, r := range raw {
		channels[i] = RawToVolts(r)
	}
	return status, channels
}

func decodeRaw(payload []byte, status *[StatusSize]byte) (raw [NumChannels]int32) {
	if len(payload) != PayloadSize {
		panic(fmt.Sprintf("cerelog: payload must be %d bytes, got %d", PayloadSize, len(payload)))
	}
	copy(status[:], payload[:StatusSize])
	for i := 0; i < NumChannels; i++ {
		off := StatusSize + i*SampleSize
		raw[i] = RawSample([SampleSize]byte(payload[off : off+SampleSize]))
	}
	return raw
}
