// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"

	"github.com/Thermoquad/cerestat/internal/config"
	"github.com/Thermoquad/cerestat/pkg/cerelog"
)

func TestResolveConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cerestat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
connection:
  port: /dev/ttyUSB0
  baud: 57600
monitor:
  stats_interval: 3
`), 0o644))

	var seen *config.Config
	probe := &cobra.Command{
		Use: "probe",
		RunE: func(cmd *cobra.Command, args []string) error {
			seen = cfg
			return nil
		},
	}
	rootCmd.AddCommand(probe)
	t.Cleanup(func() {
		rootCmd.RemoveCommand(probe)
		rootCmd.SetArgs(nil)
		cfg = config.Default()
	})

	rootCmd.SetArgs([]string{"probe", "--config", path, "--baud", "115200", "--log-level", "debug"})
	require.NoError(t, rootCmd.Execute())

	require.NotNil(t, seen)
	assert.Equal(t, "/dev/ttyUSB0", seen.Connection.Port, "file value kept")
	assert.Equal(t, 115200, seen.Connection.Baud, "flag wins over file")
	assert.Equal(t, 3, seen.Monitor.StatsInterval)
	assert.Equal(t, "debug", seen.Log.Level)
}

func TestClassifyPort(t *testing.T) {
	tests := []struct {
		name      string
		details   enumerator.PortDetails
		bridge    string
		candidate bool
	}{
		{
			name:      "cp210x",
			details:   enumerator.PortDetails{Name: "/dev/ttyUSB0", IsUSB: true, VID: "10c4", PID: "ea60"},
			bridge:    "Silicon Labs CP210x",
			candidate: true,
		},
		{
			name:      "macos usbserial",
			details:   enumerator.PortDetails{Name: "/dev/cu.usbserial-0001", IsUSB: true, VID: "1234", PID: "0001"},
			candidate: true,
		},
		{
			name:    "onboard uart",
			details: enumerator.PortDetails{Name: "/dev/ttyS0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := classifyPort(&tt.details)
			assert.Equal(t, tt.bridge, info.bridge)
			assert.Equal(t, tt.candidate, info.candidate)
		})
	}
}

func TestAnomalyTrackerChecksSequence(t *testing.T) {
	status := [cerelog.StatusSize]byte{0xC0, 0x00, 0x00}
	var tracker anomalyTracker

	assert.Empty(t, tracker.check(cerelog.NewPacket(10, status, [cerelog.NumChannels]int32{})))
	assert.Empty(t, tracker.check(cerelog.NewPacket(11, status, [cerelog.NumChannels]int32{})))

	anomalies := tracker.check(cerelog.NewPacket(11, status, [cerelog.NumChannels]int32{}))
	require.Len(t, anomalies, 1)
	assert.Equal(t, cerelog.AnomalyTimestampRegression, anomalies[0].Type)
}

func TestModelUpdate(t *testing.T) {
	m := initialModel("File: test.bin", 10, false, cerelog.NewStatistics(25))
	assert.Contains(t, m.View(), "Waiting for synchronization")

	// errors before sync are counted but not logged
	next, _ := m.Update(outcomeMsg{
		outcome:  cerelog.Outcome{Kind: cerelog.OutcomeInvalidMarker},
		counters: cerelog.Counters{InvalidMarker: 1},
	})
	m = next.(model)
	assert.Empty(t, m.errorLog)
	assert.Equal(t, uint64(1), m.stats.Counters.InvalidMarker)

	next, _ = m.Update(syncMsg{skipped: 40})
	m = next.(model)
	assert.True(t, m.synchronized)

	packet := cerelog.NewPacket(5, [cerelog.StatusSize]byte{0xC0, 0x00, 0x00}, [cerelog.NumChannels]int32{1000})
	next, _ = m.Update(outcomeMsg{
		outcome:  cerelog.Outcome{Kind: cerelog.OutcomeValid, Packet: packet, Offset: 40},
		counters: cerelog.Counters{Valid: 1, InvalidMarker: 1},
		surface:  true,
	})
	m = next.(model)

	next, _ = m.Update(outcomeMsg{
		outcome:  cerelog.Outcome{Kind: cerelog.OutcomeChecksumMismatch, Offset: 77, Expected: 0x10, Received: 0x20},
		counters: cerelog.Counters{Valid: 1, InvalidMarker: 1, ChecksumError: 1},
		surface:  true,
	})
	m = next.(model)

	require.Len(t, m.errorLog, 2)
	assert.Equal(t, "Synchronized after skipping 40 bytes", m.errorLog[0].message)
	assert.True(t, m.errorLog[1].isError)
	assert.Contains(t, m.errorLog[1].message, "offset 77")
	assert.Equal(t, uint64(1), m.stats.Counters.ChecksumError)

	view := m.View()
	assert.Contains(t, view, "Synchronized")
	assert.Contains(t, view, "CH1:")
	assert.Contains(t, view, "CH8:")

	next, _ = m.Update(streamEndMsg{counters: m.stats.Counters})
	m = next.(model)
	assert.True(t, m.ended)
	assert.Equal(t, "Stream ended", m.errorLog[len(m.errorLog)-1].message)
}
