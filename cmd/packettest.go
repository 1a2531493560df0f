// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/cerestat/internal/stream"
	"github.com/Thermoquad/cerestat/pkg/cerelog"
)

var (
	packetTestTimeout int
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid Cerelog packet",
	Long: `Wait for a valid Cerelog X8 packet on the connection until timeout.

This command opens the configured source and waits for any frame with valid
start/end markers and a matching checksum. Garbage and rejected frames before
it are skipped and counted.

Exit codes:
  0 - Packet received before timeout
  1 - Timeout reached (or stream ended) without a valid packet
  2 - Connection error

Useful for checking cabling and baud rate before a recording session.`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a packet")
}

// errFound stops the pump once a packet arrived
var errFound = errors.New("packet found")

func runPacketTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(exitConnError)
	}
	defer conn.Close()

	fmt.Printf("Cerestat - Packet Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for valid Cerelog packet...\n\n")

	parent, stop := signalContext(cmd.Context())
	defer stop()
	ctx, cancel := context.WithTimeout(parent, time.Duration(packetTestTimeout)*time.Second)
	defer cancel()
	ctx, found := context.WithCancelCause(ctx)
	defer found(nil)

	assembler := cerelog.NewAssembler()
	var packet *cerelog.Packet
	var offset uint64
	err = stream.Pump(ctx, conn, assembler, func(o cerelog.Outcome) {
		if o.Valid() && packet == nil {
			packet = o.Packet
			offset = o.Offset
			found(errFound)
		}
	})

	if packet != nil {
		c := assembler.Counters()
		if offset > 0 {
			fmt.Printf("(skipped %d bytes and %d rejected frames before sync)\n", offset, c.Errors())
		}
		fmt.Printf("SUCCESS: Received valid packet\n")
		fmt.Printf("  Timestamp: %d\n", packet.Timestamp())
		fmt.Printf("  Length: %d bytes\n", packet.Length())
		fmt.Printf("  Status: %s\n", cerelog.FormatStatus(packet.Status()))
		fmt.Printf("  Checksum: 0x%02X\n", packet.Checksum())
		os.Exit(exitOK)
	}

	switch {
	case err == nil:
		fmt.Fprintf(os.Stderr, "NO DATA: Stream ended without a valid packet\n")
		os.Exit(exitNoData)

	case errors.Is(context.Cause(ctx), context.DeadlineExceeded):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid packet received within %d seconds\n", packetTestTimeout)
		os.Exit(exitNoData)

	case ctx.Err() != nil:
		fmt.Fprintf(os.Stderr, "Interrupted\n")
		os.Exit(exitNoData)

	default:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(exitConnError)
	}

	return nil
}
