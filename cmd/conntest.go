// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/cerestat/internal/stream"
	"github.com/Thermoquad/cerestat/pkg/cerelog"
)

var connTestCmd = &cobra.Command{
	Use:   "conn_test",
	Short: "Test raw connection stability",
	Long: `Hold the connection open and log every chunk received, without decoding
it, to debug cabling, bridges and dropped links.

Exit codes:
  0 - Test completed normally
  1 - Test failed (connection lost)
  2 - Connection error`,
	RunE: runConnTest,
}

var (
	connTestDuration int
	connTestHex      bool
)

func init() {
	rootCmd.AddCommand(connTestCmd)
	connTestCmd.Flags().IntVar(&connTestDuration, "duration", 30, "Test duration in seconds")
	connTestCmd.Flags().BoolVar(&connTestHex, "hex", false, "Dump every chunk in hex")
}

func runConnTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(exitConnError)
	}
	defer conn.Close()

	fmt.Printf("Connection Stability Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Duration: %d seconds\n\n", connTestDuration)

	parent, stop := signalContext(cmd.Context())
	defer stop()
	ctx, cancel := context.WithTimeout(parent, time.Duration(connTestDuration)*time.Second)
	defer cancel()

	start := time.Now()
	bytesReceived := 0
	chunksReceived := 0
	// marker positions hint at whether the bytes look like frames at all
	markers := 0

	heartbeat := time.NewTicker(time.Second)
	defer heartbeat.Stop()

	results := func(result string) {
		fmt.Printf("\n--- Test Results ---\n")
		fmt.Printf("Duration: %v\n", time.Since(start).Round(time.Millisecond))
		fmt.Printf("Chunks received: %d\n", chunksReceived)
		fmt.Printf("Bytes received: %d\n", bytesReceived)
		fmt.Printf("Start markers seen: %d (~%d frames)\n", markers, bytesReceived/cerelog.PacketSize)
		fmt.Printf("Result: %s\n", result)
	}

	fmt.Printf("Listening for data...\n\n")

	chunks := stream.Read(ctx, conn)
	for {
		select {
		case <-ctx.Done():
			results("PASSED (connection stable)")
			return nil

		case chunk, ok := <-chunks:
			if !ok {
				results("PASSED (connection stable)")
				return nil
			}
			if chunk.Err != nil {
				fmt.Printf("\n[%s] Connection error: %v\n",
					time.Now().Format("15:04:05.000"), chunk.Err)
				results("FAILED (connection error)")
				os.Exit(exitNoData)
			}

			bytesReceived += len(chunk.Data)
			chunksReceived++
			markers += len(cerelog.FindMarkers(chunk.Data))
			if connTestHex {
				fmt.Printf("[%s] Received %d bytes: %x\n",
					time.Now().Format("15:04:05.000"), len(chunk.Data), chunk.Data)
			}

		case <-heartbeat.C:
			remaining := time.Until(start.Add(time.Duration(connTestDuration) * time.Second)).Seconds()
			fmt.Printf("[%s] Still connected... %d bytes so far (%.0fs remaining)\n",
				time.Now().Format("15:04:05.000"), bytesReceived, remaining)
		}
	}
}
