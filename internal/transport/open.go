// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/Thermoquad/cerestat/internal/config"
	"github.com/Thermoquad/cerestat/internal/logging"
)

// ErrNoSource is returned by Open when no byte source is configured
var ErrNoSource = errors.New("one of --port, --url, --tcp or --file must be specified")

// PasswordFunc supplies the WebSocket password on demand
type PasswordFunc func() (string, error)

// Open opens the configured source, preferring URL, then TCP, then File,
// then Port. It returns the connection and a human-readable description.
func Open(cfg config.Connection, password PasswordFunc) (Connection, string, error) {
	switch {
	case cfg.URL != "":
		pw := ""
		if cfg.Username != "" && password != nil {
			var err error
			pw, err = password()
			if err != nil {
				return nil, "", err
			}
		}

		logging.Debug("dialing %s as %q", cfg.URL, cfg.Username)
		conn, err := OpenWebSocketConnection(cfg.URL, cfg.Username, pw, cfg.NoSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("WebSocket: %s", cfg.URL), nil

	case cfg.TCP != "":
		logging.Debug("dialing tcp %s", cfg.TCP)
		conn, err := OpenTCPConnection(cfg.TCP)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("TCP: %s", cfg.TCP), nil

	case cfg.File != "":
		conn, err := OpenFileConnection(cfg.File, cfg.Realtime)
		if err != nil {
			return nil, "", err
		}
		desc := fmt.Sprintf("File: %s", cfg.File)
		if replay, ok := conn.(*Replay); ok {
			desc = fmt.Sprintf("Capture: %s (%s, recorded %s)", cfg.File,
				replay.Header().Source, replay.Header().Started.Format(time.RFC3339))
			if cfg.Realtime {
				desc += " [realtime]"
			}
		}
		return conn, desc, nil

	case cfg.Port != "":
		timeout := time.Duration(cfg.ReadTimeoutMs) * time.Millisecond
		conn, err := OpenSerialConnection(cfg.Port, cfg.Baud, timeout)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("Serial: %s @ %d baud", cfg.Port, cfg.Baud), nil
	}

	return nil, "", ErrNoSource
}
