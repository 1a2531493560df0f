// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"strings"

	"github.com/Thermoquad/cerestat/pkg/cerelog"
)

// Normalize fills zero values with defaults and canonicalizes strings.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	c := &cfg.Connection
	// Bare host[:port] URLs get the secure scheme
	if c.URL != "" && !strings.Contains(c.URL, "://") {
		c.URL = "wss://" + c.URL
	}

	m := &cfg.Monitor
	if m.ExpectedRate == 0 {
		m.ExpectedRate = cerelog.DefaultExpectedRate
	}
	if m.WindowSize == 0 {
		m.WindowSize = cerelog.DefaultWindowSize
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Level == "warning" {
		cfg.Log.Level = "warn"
	}
}
