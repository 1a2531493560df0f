// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/cerestat/internal/logging"
	"github.com/Thermoquad/cerestat/internal/stream"
	"github.com/Thermoquad/cerestat/internal/transport"
	"github.com/Thermoquad/cerestat/pkg/cerelog"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var errorDetectionCmd = &cobra.Command{
	Use:   "error_detection",
	Short: "Detect and analyze malformed packets and errors",
	Long: `Track framing errors and anomalous packets with statistics.

This command validates each frame and detects:
  - Invalid start/end markers (stream desynchronization, dropped bytes)
  - Checksum mismatches (corrupted frames)
  - Partial frames at the end of a stream
  - Anomalous packets (bad ADS1299 status header, lead-off, railed channels,
    device timestamp regression)
  - Statistics and trends (packet rate, error rate, efficiency, per-channel
    mean and noise)

By default, only errors are displayed. Use --show-all to display valid packets too.

Errors before the first valid packet are part of acquiring sync and are
only counted, not reported.`,
	RunE: runErrorDetection,
}

func init() {
	rootCmd.AddCommand(errorDetectionCmd)
	errorDetectionCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all packets (not just errors)")
	errorDetectionCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	errorDetectionCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

func runErrorDetection(cmd *cobra.Command, args []string) error {
	if !cmd.Flags().Changed("stats-interval") && cfg.Monitor.StatsInterval > 0 {
		statsInterval = cfg.Monitor.StatsInterval
	}
	if statsInterval <= 0 {
		return fmt.Errorf("--stats-interval must be positive")
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	if useTUI {
		return runTUIMode(ctx, conn, connInfo)
	}
	return runTextMode(ctx, conn, connInfo)
}

func newStatistics() *cerelog.Statistics {
	stats := cerelog.NewStatistics(cfg.Monitor.ExpectedRate)
	stats.WindowSize = cfg.Monitor.WindowSize
	return stats
}

// anomalyTracker runs semantic checks across consecutive valid packets
type anomalyTracker struct {
	prev *cerelog.Packet
}

func (t *anomalyTracker) check(p *cerelog.Packet) []cerelog.ValidationError {
	anomalies := cerelog.ValidatePacket(p)
	if t.prev != nil {
		if v := cerelog.CheckSequence(t.prev, p); v != nil {
			anomalies = append(anomalies, *v)
		}
	}
	t.prev = p
	return anomalies
}

// printFrameError prints a rejected frame in highlighted format
func printFrameError(o cerelog.Outcome) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mFRAME ERROR:\033[0m %v\n", timestamp, o.Err())
	if o.Kind == cerelog.OutcomeChecksumMismatch {
		fmt.Printf("  >>> FRAME DROPPED (37 bytes) <<<\n\n")
	} else {
		fmt.Printf("  >>> RESYNCING <<<\n\n")
	}
}

// printValidationErrors prints anomalies for a packet that passed framing
func printValidationErrors(packet *cerelog.Packet, errors []cerelog.ValidationError) {
	timestamp := packet.ReceivedAt().Format("15:04:05.000")

	fmt.Printf("[%s] \033[1;33mANOMALY:\033[0m ts=%d status=%s\n", timestamp, packet.Timestamp(), cerelog.FormatStatus(packet.Status()))
	fmt.Printf("  Checksum: \033[1;32mOK\033[0m\n")

	for i, err := range errors {
		switch err.Type {
		case cerelog.AnomalyStatusHeader:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)

		case cerelog.AnomalyLeadOff:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)

		case cerelog.AnomalyRailed:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
			if ch, ok := err.Details["channel"].(int); ok {
				if raw, ok := err.Details["raw"].(int32); ok {
					fmt.Printf("    CH%d raw=%d\n", ch, raw)
				}
			}

		case cerelog.AnomalyTimestampRegression:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)

		default:
			fmt.Printf("  Issue %d: %s\n", i+1, err.Message)
		}
	}

	fmt.Printf("  >>> PACKET FLAGGED <<<\n\n")
}

// runTUIMode runs error detection in TUI mode
func runTUIMode(ctx context.Context, conn transport.Connection, connInfo string) error {
	m := initialModel(connInfo, statsInterval, showAll, newStatistics())
	p := tea.NewProgram(m, tea.WithContext(ctx))

	// The TUI owns the terminal
	previous := logging.SetOutput(&tuiLogWriter{p: p})
	defer logging.SetOutput(previous)

	go func() {
		var sync stream.Sync
		var tracker anomalyTracker
		assembler := cerelog.NewAssembler()

		err := stream.Pump(ctx, conn, assembler, func(o cerelog.Outcome) {
			surface, acquired := sync.Observe(o)
			if acquired {
				p.Send(syncMsg{skipped: sync.Skipped()})
			}

			msg := outcomeMsg{outcome: o, counters: assembler.Counters(), surface: surface}
			if o.Valid() {
				msg.anomalies = tracker.check(o.Packet)
			}
			p.Send(msg)
		})
		p.Send(streamEndMsg{err: err, counters: assembler.Counters()})
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runTextMode runs error detection in text mode
func runTextMode(ctx context.Context, conn transport.Connection, connInfo string) error {
	fmt.Printf("Cerestat - Error Detection Mode\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All packets\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	assembler := cerelog.NewAssembler()
	stats := newStatistics()
	var sync stream.Sync
	var tracker anomalyTracker

	handle := func(o cerelog.Outcome) {
		surface, acquired := sync.Observe(o)
		if acquired {
			fmt.Printf("%s\n\n", sync.Message())
		}

		if !o.Valid() {
			if surface {
				printFrameError(o)
			}
			return
		}

		anomalies := tracker.check(o.Packet)
		stats.AddPacket(o.Packet, anomalies)
		if len(anomalies) > 0 {
			printValidationErrors(o.Packet, anomalies)
		} else if showAll {
			fmt.Print(cerelog.FormatPacket(o.Packet))
		}
	}

	printStats := func() {
		stats.Update(assembler.Counters())
		stats.CalculateRates()
		fmt.Println()
		fmt.Print(stats.String())
		fmt.Println()
	}

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	chunks := stream.Read(ctx, conn)
	for {
		select {
		case <-ctx.Done():
			printStats()
			return nil

		case chunk, ok := <-chunks:
			if !ok {
				printStats()
				return nil
			}
			if chunk.Err != nil {
				if !errors.Is(chunk.Err, io.EOF) {
					return fmt.Errorf("read failed: %w", chunk.Err)
				}
				for _, o := range assembler.Finish() {
					handle(o)
				}
				printStats()
				return nil
			}
			for o := range assembler.Feed(chunk.Data) {
				handle(o)
			}

		case <-statsTicker.C:
			printStats()
		}
	}
}
