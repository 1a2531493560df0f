// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/cerestat/internal/config"
	"github.com/Thermoquad/cerestat/internal/logging"
	"github.com/Thermoquad/cerestat/internal/transport"
	"github.com/Thermoquad/cerestat/pkg/cerelog"
)

// Exit codes shared by the probing commands
const (
	exitOK        = 0
	exitNoData    = 1
	exitConnError = 2
)

var (
	configPath string

	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Other sources
	tcpAddr  string
	filePath string
	realtime bool

	logLevel string

	// cfg is the effective configuration, resolved before every command runs
	cfg = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "cerestat",
	Short: "Cerelog X8 Stream Analyzer",
	Long: `Cerestat - A CLI tool for monitoring and analyzing the Cerelog X8 biosignal
packet stream.

Decodes 37-byte frames (8 channels of 24-bit samples), resynchronizes after
corruption, and reports framing and signal statistics.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 9600]
  WebSocket: --url ws://host/path [--username user]
  TCP:       --tcp host:port
  File:      --file dump.bin | --file session.cbor [--realtime]

For WebSocket authentication, the password is read from the CERESTAT_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.

Settings can also be read from a YAML file (--config); flags take precedence.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: resolveConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")

	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", cerelog.DefaultBaudRate, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVar(&tcpAddr, "tcp", "", "Raw TCP stream (host:port)")
	rootCmd.PersistentFlags().StringVarP(&filePath, "file", "f", "", "Replay a raw dump or .cbor capture")
	rootCmd.PersistentFlags().BoolVar(&realtime, "realtime", false, "Replay captures at recorded speed")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// resolveConfig layers explicitly set flags over the config file
func resolveConfig(cmd *cobra.Command, args []string) error {
	c := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		c = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		c.Connection.Port = portName
	}
	if flags.Changed("baud") {
		c.Connection.Baud = baudRate
	}
	if flags.Changed("url") {
		c.Connection.URL = wsURL
	}
	if flags.Changed("username") {
		c.Connection.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		c.Connection.NoSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("tcp") {
		c.Connection.TCP = tcpAddr
	}
	if flags.Changed("file") {
		c.Connection.File = filePath
	}
	if flags.Changed("realtime") {
		c.Connection.Realtime = realtime
	}
	if flags.Changed("log-level") {
		c.Log.Level = logLevel
	}

	if err := config.Validate(c); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	config.Normalize(c)

	if err := logging.SetLevel(c.Log.Level); err != nil {
		return err
	}
	logging.Debug("effective connection: %+v", c.Connection)

	cfg = c
	return nil
}

// OpenConnection opens the configured byte source
func OpenConnection() (transport.Connection, string, error) {
	return transport.Open(cfg.Connection, transport.GetPassword)
}
