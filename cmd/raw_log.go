// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/cerestat/internal/logging"
	"github.com/Thermoquad/cerestat/internal/stream"
	"github.com/Thermoquad/cerestat/internal/transport"
	"github.com/Thermoquad/cerestat/pkg/cerelog"
)

var rawLogReconnect bool

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw packet log in human-readable format",
	Long: `Continuously decode and display Cerelog X8 packets as they arrive.

Each valid packet is shown with its device timestamp, status word, checksum
and the eight channel voltages in microvolts. Rejected frames are shown as
[ERROR] lines with the stream offset at which they were found.

Supports serial, WebSocket, TCP and file sources. With --reconnect, a lost
link is reopened with exponential backoff and decoding resynchronizes on the
new stream.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogReconnect, "reconnect", false, "Reopen the connection when it is lost")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer func() { conn.Close() }()

	fmt.Printf("Cerestat - Raw Packet Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	assembler := cerelog.NewAssembler()
	printOutcome := func(o cerelog.Outcome) {
		fmt.Print(cerelog.FormatOutcome(o))
	}

	for {
		err = stream.Pump(ctx, conn, assembler, printOutcome)
		if ctx.Err() != nil {
			err = nil
			break
		}
		if err == nil || !rawLogReconnect {
			break
		}

		logging.Warn("connection lost: %v", err)
		conn.Close()
		conn, connInfo, err = transport.DefaultBackoff.Redial(ctx, OpenConnection, func(attempt int, err error) {
			logging.Warn("reconnect attempt %d failed: %v", attempt, err)
		})
		if err != nil {
			// cancelled while waiting
			return nil
		}
		logging.Info("reconnected: %s", connInfo)
	}

	c := assembler.Counters()
	logging.Info("stream ended: %d valid, %d rejected, %d partial", c.Valid, c.InvalidMarker+c.ChecksumError, c.Partial)
	return err
}
