// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package synth generates synthetic Cerelog X8 streams for testing links
// and decoders without a board attached.
package synth

import (
	"math"
	"math/rand"

	"github.com/Thermoquad/cerestat/pkg/cerelog"
)

// Corruption kinds applied to a generated frame
const (
	CorruptNone = iota
	CorruptNoise
	CorruptChecksum
	CorruptTruncate
)

// Generator produces frames carrying a test sine on every channel. Channel n
// (1-based) oscillates at n Hz.
type Generator struct {
	// SampleRate is the device sample rate used to advance the signal phase
	SampleRate float64
	// Amplitude is the sine amplitude in volts
	Amplitude float64
	// Corrupt is the probability that a frame is damaged
	Corrupt float64
	// Status is written into every frame
	Status [cerelog.StatusSize]byte

	rng       *rand.Rand
	timestamp uint32
	sample    uint64
}

// NewGenerator returns a generator with a clean signal and healthy status
func NewGenerator(seed int64) *Generator {
	return &Generator{
		SampleRate: cerelog.DefaultSampleRate,
		Amplitude:  100e-6,
		Status:     [cerelog.StatusSize]byte{0xC0, 0x00, 0x00},
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Sample returns the raw channel values for sample index i
func (g *Generator) Sample(i uint64) [cerelog.NumChannels]int32 {
	var raw [cerelog.NumChannels]int32
	t := float64(i) / g.SampleRate
	for ch := range raw {
		v := g.Amplitude * math.Sin(2*math.Pi*float64(ch+1)*t)
		raw[ch] = cerelog.VoltsToRaw(v)
	}
	return raw
}

// Next returns the next frame and the corruption applied to it
func (g *Generator) Next() ([]byte, int) {
	frame := cerelog.EncodeFrame(g.timestamp, g.Status, g.Sample(g.sample))
	g.timestamp++
	g.sample++

	if g.Corrupt <= 0 || g.rng.Float64() >= g.Corrupt {
		return frame, CorruptNone
	}

	switch kind := 1 + g.rng.Intn(3); kind {
	case CorruptNoise:
		// A stray byte ahead of the frame; never a start marker byte
		noise := byte(g.rng.Intn(256))
		if noise == 0xAB {
			noise = 0x00
		}
		return append([]byte{noise}, frame...), kind

	case CorruptChecksum:
		frame[cerelog.PacketSize-3] ^= 0xFF
		return frame, kind

	default:
		// Dropped tail; the next frame's marker resynchronizes
		return frame[:cerelog.PacketSize/2], CorruptTruncate
	}
}
