// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cerelog

import (
	"fmt"
	"strings"
)

// FormatPacket formats a packet into a human-readable string
func FormatPacket(p *Packet) string {
	received := p.received.Format("15:04:05.000")

	result := fmt.Sprintf("[%s] PACKET ts=%d len=%d status=%s checksum=0x%02X\n",
		received, p.timestamp, p.length, FormatStatus(p.status), p.checksum)

	var channels strings.Builder
	for i, v := range p.channels {
		if i == NumChannels/2 {
			channels.WriteString("\n ")
		}
		fmt.Fprintf(&channels, " CH%d=%+10.3fuV", i+1, v*1e6)
	}
	result += " " + channels.String() + "\n"

	return result
}

// FormatOutcome formats a decode outcome into a single line. Valid outcomes
// are rendered with FormatPacket.
func FormatOutcome(o Outcome) string {
	if o.Valid() {
		return FormatPacket(o.Packet)
	}
	return fmt.Sprintf("[ERROR] %v\n", o.Err())
}

// FormatStatus renders the status word as hex with decoded lead-off flags
func FormatStatus(status [StatusSize]byte) string {
	loffP, loffN := LeadOff(status)
	if loffP == 0 && loffN == 0 {
		return fmt.Sprintf("%02X%02X%02X", status[0], status[1], status[2])
	}
	return fmt.Sprintf("%02X%02X%02X (LOFF P=%s N=%s)",
		status[0], status[1], status[2], formatChannelMask(loffP), formatChannelMask(loffN))
}

// formatChannelMask lists the 1-based channels set in mask
func formatChannelMask(mask uint8) string {
	if mask == 0 {
		return "-"
	}
	parts := []string{}
	for i := 0; i < NumChannels; i++ {
		if mask&(1<<i) != 0 {
			parts = append(parts, fmt.Sprintf("%d", i+1))
		}
	}
	return strings.Join(parts, ",")
}
