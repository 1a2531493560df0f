// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cerelog

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultWindowSize is the number of recent valid packets kept for channel
// summaries (one second at the full sample rate).
const DefaultWindowSize = DefaultSampleRate

// Statistics tracks packet statistics and error rates for a reporting
// collaborator. It reads Counters snapshots; it never drives decoding.
type Statistics struct {
	SessionID      string
	StartTime      time.Time
	LastUpdateTime time.Time

	// Framing counters, as last reported by the assembler
	Counters Counters

	// Anomalies on valid packets
	AnomalousPackets     uint64
	StatusHeaderErrors   uint64
	LeadOffEvents        uint64
	RailedSamples        uint64
	TimestampRegressions uint64

	// Rates (calculated)
	PacketRate   float64 // valid packets/sec
	ErrorRate    float64 // rejected frames/sec
	ExpectedRate float64 // packets/sec the link should sustain, 0 if unknown

	WindowSize int
	window     [NumChannels][]float64
	next       int
	now        func() time.Time
}

// ChannelSummary describes one channel over the recent window
type ChannelSummary struct {
	Channel int // 1-based
	Mean    float64
	Noise   float64 // standard deviation
	Min     float64
	Max     float64
}

// NewStatistics creates a new statistics tracker for a fresh session
func NewStatistics(expectedRate float64) *Statistics {
	s := &Statistics{
		ExpectedRate: expectedRate,
		WindowSize:   DefaultWindowSize,
		now:          time.Now,
	}
	s.Reset()
	return s
}

// Update records the latest counters snapshot
func (s *Statistics) Update(c Counters) {
	s.Counters = c
	s.LastUpdateTime = s.now()
}

// AddPacket records a valid packet and the anomalies found on it
func (s *Statistics) AddPacket(p *Packet, anomalies []ValidationError) {
	if len(anomalies) > 0 {
		s.AnomalousPackets++
	}
	for _, a := range anomalies {
		switch a.Type {
		case AnomalyStatusHeader:
			s.StatusHeaderErrors++
		case AnomalyLeadOff:
			s.LeadOffEvents++
		case AnomalyRailed:
			s.RailedSamples++
		case AnomalyTimestampRegression:
			s.TimestampRegressions++
		}
	}

	if s.WindowSize <= 0 {
		return
	}
	for ch, v := range p.channels {
		if len(s.window[ch]) < s.WindowSize {
			s.window[ch] = append(s.window[ch], v)
		} else {
			s.window[ch][s.next] = v
		}
	}
	s.next = (s.next + 1) % s.WindowSize
}

// ChannelSummaries returns mean, noise and range per channel over the
// window. Returns nil before any packet has been recorded.
func (s *Statistics) ChannelSummaries() []ChannelSummary {
	if len(s.window[0]) == 0 {
		return nil
	}
	summaries := make([]ChannelSummary, NumChannels)
	for ch := range s.window {
		values := s.window[ch]
		mean, std := stat.MeanStdDev(values, nil)
		if len(values) < 2 {
			std = 0
		}
		summaries[ch] = ChannelSummary{
			Channel: ch + 1,
			Mean:    mean,
			Noise:   std,
			Min:     floats.Min(values),
			Max:     floats.Max(values),
		}
	}
	return summaries
}

// CalculateRates calculates packet and error rates
func (s *Statistics) CalculateRates() {
	elapsed := s.now().Sub(s.StartTime).Seconds()
	if elapsed > 0 {
		s.PacketRate = float64(s.Counters.Valid) / elapsed
		s.ErrorRate = float64(s.Counters.Errors()) / elapsed
	}
}

// Efficiency returns the packet rate as a percentage of ExpectedRate
func (s *Statistics) Efficiency() float64 {
	if s.ExpectedRate <= 0 {
		return 0
	}
	return s.PacketRate * 100.0 / s.ExpectedRate
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	c := s.Counters
	total := c.Total()
	percent := func(n uint64) float64 {
		if total == 0 {
			return 0
		}
		return float64(n) * 100.0 / float64(total)
	}

	elapsed := s.now().Sub(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Valid packets:   %8d (%.1f%%)\n", c.Valid, percent(c.Valid))
	result += fmt.Sprintf("Invalid markers: %8d (%.1f%%)\n", c.InvalidMarker, percent(c.InvalidMarker))
	result += fmt.Sprintf("Checksum errors: %8d (%.1f%%)\n", c.ChecksumError, percent(c.ChecksumError))
	result += fmt.Sprintf("Partial packets: %8d (%.1f%%)\n", c.Partial, percent(c.Partial))
	result += fmt.Sprintf("Total processed: %8d\n", total)

	if s.AnomalousPackets > 0 {
		result += fmt.Sprintf("Anomalous Pkts:  %8d\n", s.AnomalousPackets)
		if s.StatusHeaderErrors > 0 {
			result += fmt.Sprintf("  Bad Status:       %5d\n", s.StatusHeaderErrors)
		}
		if s.LeadOffEvents > 0 {
			result += fmt.Sprintf("  Lead-off:         %5d\n", s.LeadOffEvents)
		}
		if s.RailedSamples > 0 {
			result += fmt.Sprintf("  Railed Samples:   %5d\n", s.RailedSamples)
		}
		if s.TimestampRegressions > 0 {
			result += fmt.Sprintf("  Timestamp Stalls: %5d\n", s.TimestampRegressions)
		}
	}

	result += fmt.Sprintf("Packet Rate:     %8.1f pkts/sec\n", s.PacketRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	if s.ExpectedRate > 0 {
		result += fmt.Sprintf("Efficiency:      %8.1f%% of %.0f pkts/sec\n", s.Efficiency(), s.ExpectedRate)
	}
	result += "================================\n"

	return result
}

// Reset starts a new session: new ID, zero counters, empty window
func (s *Statistics) Reset() {
	now := s.now()
	s.SessionID = uuid.NewString()
	s.StartTime = now
	s.LastUpdateTime = now
	s.Counters = Counters{}
	s.AnomalousPackets = 0
	s.StatusHeaderErrors = 0
	s.LeadOffEvents = 0
	s.RailedSamples = 0
	s.TimestampRegressions = 0
	s.PacketRate = 0
	s.ErrorRate = 0
	s.window = [NumChannels][]float64{}
	s.next = 0
}
