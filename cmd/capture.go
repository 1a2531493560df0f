// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/cerestat/internal/logging"
	"github.com/Thermoquad/cerestat/internal/stream"
	"github.com/Thermoquad/cerestat/internal/transport"
	"github.com/Thermoquad/cerestat/pkg/cerelog"
)

var (
	captureOut      string
	captureDuration int
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Record the raw stream to a capture file",
	Long: `Record every chunk read from the connection, with its arrival time, to a
CBOR capture file while decoding it live.

The capture can be replayed later with --file, optionally at the recorded
speed with --realtime:

  cerestat capture --port /dev/ttyUSB0 --out session.cbor --duration 60
  cerestat error_detection --tui=false --file session.cbor --realtime`,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.Flags().StringVarP(&captureOut, "out", "o", "", "Capture file to write (.cbor)")
	captureCmd.Flags().IntVar(&captureDuration, "duration", 0, "Stop after this many seconds (0 = until Ctrl+C)")
	captureCmd.MarkFlagRequired("out")
}

func runCapture(cmd *cobra.Command, args []string) error {
	if !transport.IsCapturePath(captureOut) {
		return fmt.Errorf("capture file must end in %s", transport.CaptureExtension)
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	out, err := os.Create(captureOut)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", captureOut, err)
	}
	defer out.Close()

	stats := newStatistics()
	writer, err := transport.NewCaptureWriter(out, stats.SessionID, connInfo)
	if err != nil {
		return err
	}

	fmt.Printf("Cerestat - Capture\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Output: %s (session %s)\n", captureOut, stats.SessionID)
	if captureDuration > 0 {
		fmt.Printf("Duration: %d seconds\n", captureDuration)
	}
	fmt.Printf("Press Ctrl+C to stop\n\n")

	ctx, stop := signalContext(cmd.Context())
	defer stop()
	if captureDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(captureDuration)*time.Second)
		defer cancel()
	}

	assembler := cerelog.NewAssembler()
	progress := time.NewTicker(time.Second)
	defer progress.Stop()

	err = stream.Pump(ctx, transport.NewRecorder(conn, writer), assembler, func(o cerelog.Outcome) {
		if o.Valid() {
			stats.AddPacket(o.Packet, nil)
		}
		select {
		case <-progress.C:
			chunks, n := writer.Stats()
			c := assembler.Counters()
			fmt.Printf("\r%d chunks, %d bytes, %d valid, %d errors", chunks, n, c.Valid, c.Errors())
		default:
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		logging.Error("capture stopped: %v", err)
	}

	stats.Update(assembler.Counters())
	stats.CalculateRates()
	chunks, n := writer.Stats()

	fmt.Printf("\n\n--- Capture summary ---\n")
	fmt.Printf("Chunks written: %d\n", chunks)
	fmt.Printf("Bytes written: %d\n", n)
	fmt.Print(stats.String())

	if err := out.Sync(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", captureOut, err)
	}
	return nil
}
