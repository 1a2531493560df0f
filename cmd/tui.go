// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/cerestat/pkg/cerelog"
)

// Error log entry
type errorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for warnings
}

// TUI model
type model struct {
	connInfo      string
	statsInterval int
	showAll       bool
	stats         *cerelog.Statistics
	errorLog      []errorLogEntry
	maxLogEntries int
	synchronized  bool
	skippedBytes  uint64
	lastPacket    *cerelog.Packet
	ended         bool
	spinner       spinner.Model
	width         int
	height        int
	quitting      bool
}

// Messages
type tickMsg time.Time
type outcomeMsg struct {
	outcome   cerelog.Outcome
	anomalies []cerelog.ValidationError
	counters  cerelog.Counters
	surface   bool
}
type syncMsg struct {
	skipped uint64
}
type streamEndMsg struct {
	err      error
	counters cerelog.Counters
}
type logMsg string

// tuiLogWriter routes log lines into the event log
type tuiLogWriter struct {
	p *tea.Program
}

func (w *tuiLogWriter) Write(b []byte) (int, error) {
	w.p.Send(logMsg(strings.TrimRight(string(b), "\n")))
	return len(b), nil
}

func initialModel(connInfo string, statsInterval int, showAll bool, stats *cerelog.Statistics) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	return model{
		connInfo:      connInfo,
		statsInterval: statsInterval,
		showAll:       showAll,
		stats:         stats,
		errorLog:      make([]errorLogEntry, 0),
		maxLogEntries: 100,
		spinner:       s,
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.spinner.Tick,
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.stats.CalculateRates()
		return m, tickCmd()

	case spinner.TickMsg:
		if m.synchronized {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case syncMsg:
		m.synchronized = true
		m.skippedBytes = msg.skipped
		if msg.skipped > 0 {
			m.addLogEntry(fmt.Sprintf("Synchronized after skipping %d bytes", msg.skipped), false)
		} else {
			m.addLogEntry("Synchronized", false)
		}

	case outcomeMsg:
		m.stats.Update(msg.counters)
		o := msg.outcome
		if !o.Valid() {
			if msg.surface {
				m.addLogEntry(fmt.Sprintf("FRAME ERROR: %v", o.Err()), true)
			}
			break
		}

		m.lastPacket = o.Packet
		m.stats.AddPacket(o.Packet, msg.anomalies)
		if len(msg.anomalies) > 0 {
			for _, err := range msg.anomalies {
				m.addLogEntry(fmt.Sprintf("ts=%d: %s", o.Packet.Timestamp(), err.Message), true)
			}
		} else if m.showAll {
			m.addLogEntry(fmt.Sprintf("ts=%d (valid)", o.Packet.Timestamp()), false)
		}

	case streamEndMsg:
		m.ended = true
		m.stats.Update(msg.counters)
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Stream ended: %v", msg.err), true)
		} else {
			m.addLogEntry("Stream ended", false)
		}

	case logMsg:
		m.addLogEntry(string(msg), false)
	}

	return m, nil
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.errorLog = append(m.errorLog, entry)

	// Keep only last N entries
	if len(m.errorLog) > m.maxLogEntries {
		m.errorLog = m.errorLog[len(m.errorLog)-m.maxLogEntries:]
	}
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("CERESTAT - ERROR DETECTION"))
	s.WriteString("\n")
	mode := "Errors only"
	if m.showAll {
		mode = "All packets"
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Mode: %s | Session %s | Press 'q' to quit",
		m.connInfo, mode, shortSession(m.stats.SessionID))))
	s.WriteString("\n\n")

	// Sync status
	switch {
	case !m.synchronized && m.ended:
		s.WriteString(errorStyle.Render("✗ Stream ended before synchronization"))
	case !m.synchronized:
		s.WriteString(m.spinner.View())
		s.WriteString(warningStyle.Render(" Waiting for synchronization..."))
	default:
		s.WriteString(statsValueStyle.Render("✓ Synchronized"))
		if m.skippedBytes > 0 {
			s.WriteString(headerStyle.Render(fmt.Sprintf(" (skipped %d bytes)", m.skippedBytes)))
		}
	}
	s.WriteString("\n\n")

	// Statistics
	c := m.stats.Counters
	var validPercent, errorPercent float64
	if total := c.Total(); total > 0 {
		validPercent = float64(c.Valid) * 100.0 / float64(total)
		errorPercent = float64(c.Errors()) * 100.0 / float64(total)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", c.Total())),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", c.Valid, validPercent)),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", c.Errors(), errorPercent)),
	))

	if c.InvalidMarker > 0 || c.ChecksumError > 0 || c.Partial > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			statsLabelStyle.Render("Bad Markers:"), errorStyle.Render(fmt.Sprintf("%d", c.InvalidMarker)),
			statsLabelStyle.Render("Checksum Errors:"), errorStyle.Render(fmt.Sprintf("%d", c.ChecksumError)),
			statsLabelStyle.Render("Partial:"), errorStyle.Render(fmt.Sprintf("%d", c.Partial)),
		))
	}

	if m.stats.AnomalousPackets > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s (%s: %d, %s: %d, %s: %d, %s: %d)\n",
			statsLabelStyle.Render("Anomalous:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.AnomalousPackets)),
			headerStyle.Render("status"), m.stats.StatusHeaderErrors,
			headerStyle.Render("lead-off"), m.stats.LeadOffEvents,
			headerStyle.Render("railed"), m.stats.RailedSamples,
			headerStyle.Render("ts regressions"), m.stats.TimestampRegressions,
		))
	}

	efficiency := "n/a"
	if m.stats.ExpectedRate > 0 {
		efficiency = fmt.Sprintf("%.1f%%", m.stats.Efficiency())
	}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s",
		statsLabelStyle.Render("Packet Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f pkts/s", m.stats.PacketRate)),
		statsLabelStyle.Render("Error Rate:"), func() string {
			if m.stats.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
			}
			return statsValueStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
		}(),
		statsLabelStyle.Render("Efficiency:"), statsValueStyle.Render(efficiency),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Channels section (only shown once a packet arrived)
	if m.lastPacket != nil {
		s.WriteString(statsLabelStyle.Render(fmt.Sprintf("Channels (ts=%d, status=%s):",
			m.lastPacket.Timestamp(), cerelog.FormatStatus(m.lastPacket.Status()))))
		s.WriteString("\n")

		channelContent := strings.Builder{}
		channelContent.WriteString(headerStyle.Render(fmt.Sprintf("%-4s %12s %12s %12s", "", "last µV", "mean µV", "noise µV")))
		for _, sum := range m.stats.ChannelSummaries() {
			channelContent.WriteString("\n")
			channelContent.WriteString(fmt.Sprintf("%s %s %12.3f %12.3f",
				statsLabelStyle.Render(fmt.Sprintf("CH%d:", sum.Channel)),
				statsValueStyle.Render(fmt.Sprintf("%12.3f", m.lastPacket.Channel(sum.Channel-1)*1e6)),
				sum.Mean*1e6, sum.Noise*1e6,
			))
		}

		s.WriteString(boxStyle.Render(channelContent.String()))
		s.WriteString("\n\n")
	}

	// Error log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	// Reserve space for header, stats and channels
	logHeight := max(m.height-28, 5)

	logContent := strings.Builder{}
	startIdx := max(len(m.errorLog)-logHeight, 0)

	if len(m.errorLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.errorLog); i++ {
			entry := m.errorLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}

func shortSession(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
