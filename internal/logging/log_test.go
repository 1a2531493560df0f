// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package logging

import (
	"bytes"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { pterm.DefaultLogger.Level = pterm.LogLevelInfo })

	require.NoError(t, SetLevel("debug"))
	assert.Equal(t, pterm.LogLevelDebug, pterm.DefaultLogger.Level)

	require.NoError(t, SetLevel("WARN"))
	assert.Equal(t, pterm.LogLevelWarn, pterm.DefaultLogger.Level)

	err := SetLevel("verbose")
	require.Error(t, err)
	assert.Contains(t, err.Error(), HelpLevels)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	previous := SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(previous)
		pterm.DefaultLogger.Level = pterm.LogLevelInfo
	})

	require.NoError(t, SetLevel("warn"))
	Info("hidden %d", 1)
	Warn("shown %d", 2)

	assert.NotContains(t, buf.String(), "hidden 1")
	assert.Contains(t, buf.String(), "shown 2")
}
