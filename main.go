// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Cerestat - Cerelog X8 Stream Analyzer
//
// A CLI tool for monitoring, recording and validating the Cerelog X8
// biosignal packet stream.

package main

import (
	"fmt"
	"os"

	"github.com/Thermoquad/cerestat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
