// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the cerestat YAML configuration file.
//
// Command-line flags override file values; the file overrides Default().
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/cerestat/pkg/cerelog"
)

type Config struct {
	Connection Connection `yaml:"connection"`
	Monitor    Monitor    `yaml:"monitor"`
	Log        Log        `yaml:"log"`
}

// ---- CONNECTION ----

// Connection selects the byte source. Exactly one of URL, TCP, File or Port
// is used, in that order of precedence.
type Connection struct {
	Port          string `yaml:"port"`
	Baud          int    `yaml:"baud"`
	URL           string `yaml:"url"`
	Username      string `yaml:"username"`
	NoSSLVerify   bool   `yaml:"no_ssl_verify"`
	TCP           string `yaml:"tcp"`
	File          string `yaml:"file"`
	Realtime      bool   `yaml:"realtime"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
}

// ---- MONITOR ----

type Monitor struct {
	ExpectedRate  float64 `yaml:"expected_rate"`
	StatsInterval int     `yaml:"stats_interval"`
	WindowSize    int     `yaml:"window_size"`
}

// ---- LOG ----

type Log struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Connection: Connection{
			Baud:          cerelog.DefaultBaudRate,
			ReadTimeoutMs: 100,
		},
		Monitor: Monitor{
			ExpectedRate:  cerelog.DefaultExpectedRate,
			StatsInterval: 10,
			WindowSize:    cerelog.DefaultWindowSize,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads path over Default(), then validates and normalizes the result.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over Default(), then validates and normalizes it
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	Normalize(cfg)
	return cfg, nil
}
