// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/cerestat/internal/synth"
	"github.com/Thermoquad/cerestat/internal/transport"
)

var (
	simulateOut     string
	simulateCount   int
	simulateRate    float64
	simulateCorrupt float64
	simulateSeed    int64
	simulateLeadOff bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Generate a synthetic Cerelog X8 stream",
	Long: `Generate valid frames carrying a test sine (channel n at n Hz) and
optionally damage some of them.

Corruption (--corrupt is the per-frame probability) is one of:
  - a stray byte before the frame
  - a flipped checksum
  - a truncated frame

Frames go to --out (raw bytes, or a capture when the name ends in .cbor) or,
without --out, to the configured connection (e.g. a loopback serial pair).`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVarP(&simulateOut, "out", "o", "", "Output file (.bin raw, .cbor capture)")
	simulateCmd.Flags().IntVarP(&simulateCount, "count", "n", 1000, "Number of frames to generate (0 = until Ctrl+C)")
	simulateCmd.Flags().Float64Var(&simulateRate, "rate", 0, "Frames per second when writing to a connection (default: monitor.expected_rate)")
	simulateCmd.Flags().Float64Var(&simulateCorrupt, "corrupt", 0, "Probability (0-1) that a frame is damaged")
	simulateCmd.Flags().Int64Var(&simulateSeed, "seed", 0, "Random seed (0 = time based)")
	simulateCmd.Flags().BoolVar(&simulateLeadOff, "lead-off", false, "Report channel 1 lead-off in the status word")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simulateCorrupt < 0 || simulateCorrupt > 1 {
		return fmt.Errorf("--corrupt must be between 0 and 1")
	}
	if simulateCount < 0 {
		return fmt.Errorf("--count must not be negative")
	}

	seed := simulateSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gen := synth.NewGenerator(seed)
	gen.Corrupt = simulateCorrupt
	if simulateLeadOff {
		gen.Status[0] |= 0x01
	}

	var w io.Writer
	var target string
	var paced bool

	switch {
	case simulateOut != "" && transport.IsCapturePath(simulateOut):
		f, err := os.Create(simulateOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", simulateOut, err)
		}
		defer f.Close()
		capture, err := transport.NewCaptureWriter(f, newStatistics().SessionID, fmt.Sprintf("Simulated (seed %d)", seed))
		if err != nil {
			return err
		}
		w, target = capture, "Capture: "+simulateOut

	case simulateOut != "":
		f, err := os.Create(simulateOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", simulateOut, err)
		}
		defer f.Close()
		w, target = f, "File: "+simulateOut

	default:
		conn, connInfo, err := OpenConnection()
		if err != nil {
			return err
		}
		defer conn.Close()
		w, target, paced = conn, connInfo, true
	}

	rate := simulateRate
	if rate <= 0 {
		rate = cfg.Monitor.ExpectedRate
	}

	fmt.Printf("Cerestat - Simulate\n")
	fmt.Printf("Target: %s\n", target)
	fmt.Printf("Seed: %d, corruption: %.1f%%\n", seed, simulateCorrupt*100)
	if paced {
		fmt.Printf("Rate: %.1f frames/sec\n", rate)
	}
	fmt.Println()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	var ticker *time.Ticker
	if paced {
		ticker = time.NewTicker(time.Duration(float64(time.Second) / rate))
		defer ticker.Stop()
	}

	counts := make(map[int]int)
	written := 0
	for i := 0; simulateCount == 0 || i < simulateCount; i++ {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return printSimulateSummary(written, counts)
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			break
		}

		frame, kind := gen.Next()
		n, err := w.Write(frame)
		written += n
		if err != nil {
			return fmt.Errorf("write failed after %d bytes: %w", written, err)
		}
		counts[kind]++
	}

	return printSimulateSummary(written, counts)
}

func printSimulateSummary(written int, counts map[int]int) error {
	fmt.Printf("--- Simulation summary ---\n")
	fmt.Printf("Bytes written: %d\n", written)
	fmt.Printf("Clean frames: %d\n", counts[synth.CorruptNone])
	fmt.Printf("Stray bytes: %d\n", counts[synth.CorruptNoise])
	fmt.Printf("Bad checksums: %d\n", counts[synth.CorruptChecksum])
	fmt.Printf("Truncated frames: %d\n", counts[synth.CorruptTruncate])
	return nil
}
