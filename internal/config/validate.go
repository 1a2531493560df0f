// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

var logLevels = []string{"debug", "info", "warn", "warning", "error"}

// Validate checks configuration correctness.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	c := cfg.Connection
	if c.Baud <= 0 {
		return fmt.Errorf("connection.baud must be positive, got %d", c.Baud)
	}
	if c.ReadTimeoutMs < 0 {
		return fmt.Errorf("connection.read_timeout_ms must not be negative, got %d", c.ReadTimeoutMs)
	}

	// Bare host[:port] is allowed; Normalize adds the scheme
	if strings.Contains(c.URL, "://") {
		u, err := url.Parse(c.URL)
		if err != nil {
			return fmt.Errorf("connection.url: %w", err)
		}
		switch u.Scheme {
		case "ws", "wss":
		default:
			return fmt.Errorf("connection.url: unsupported scheme %q", u.Scheme)
		}
	}

	if c.TCP != "" {
		if _, _, err := net.SplitHostPort(c.TCP); err != nil {
			return fmt.Errorf("connection.tcp must be host:port: %w", err)
		}
	}

	if c.Realtime && c.File == "" {
		return fmt.Errorf("connection.realtime requires connection.file")
	}

	m := cfg.Monitor
	if m.ExpectedRate < 0 {
		return fmt.Errorf("monitor.expected_rate must not be negative, got %g", m.ExpectedRate)
	}
	if m.StatsInterval < 0 {
		return fmt.Errorf("monitor.stats_interval must not be negative, got %d", m.StatsInterval)
	}
	if m.WindowSize < 0 {
		return fmt.Errorf("monitor.window_size must not be negative, got %d", m.WindowSize)
	}

	if cfg.Log.Level != "" {
		level := strings.ToLower(cfg.Log.Level)
		ok := false
		for _, l := range logLevels {
			if level == l {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("log.level %q is not one of %s", cfg.Log.Level, strings.Join(logLevels, ", "))
		}
	}

	return nil
}

// HasSource reports whether any byte source is configured
func (c Connection) HasSource() bool {
	return c.URL != "" || c.TCP != "" || c.File != "" || c.Port != ""
}
