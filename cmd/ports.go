// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"
)

var portsAll bool

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports and flag likely Cerelog boards",
	Long: `Enumerate serial ports with their USB details.

Ports backed by USB-to-UART bridges commonly used on the Cerelog X8
(CP210x, CH340, FTDI) or named like a USB serial device are marked as
candidates. Pass one of them to --port.

Exit codes:
  0 - At least one candidate port found
  1 - No candidate ports found
  2 - Enumeration failed`,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
	portsCmd.Flags().BoolVar(&portsAll, "all", false, "Also list ports that do not look like a board")
}

// bridgeVIDs maps USB vendor IDs of common USB-UART bridges to a label
var bridgeVIDs = map[string]string{
	"10C4": "Silicon Labs CP210x",
	"1A86": "WCH CH340",
	"0403": "FTDI",
}

type portInfo struct {
	name      string
	usb       bool
	vid, pid  string
	serial    string
	product   string
	bridge    string
	candidate bool
}

func classifyPort(d *enumerator.PortDetails) portInfo {
	info := portInfo{
		name:    d.Name,
		usb:     d.IsUSB,
		vid:     strings.ToUpper(d.VID),
		pid:     strings.ToUpper(d.PID),
		serial:  d.SerialNumber,
		product: d.Product,
	}

	if d.IsUSB {
		info.bridge = bridgeVIDs[info.vid]
	}
	lower := strings.ToLower(d.Name)
	info.candidate = info.bridge != "" ||
		strings.Contains(lower, "usbserial") ||
		strings.Contains(lower, "ttyusb")
	return info
}

func runPorts(cmd *cobra.Command, args []string) error {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Enumeration error: %v\n", err)
		os.Exit(exitConnError)
	}

	fmt.Printf("Cerestat - Serial Ports\n\n")

	candidates := 0
	for _, d := range details {
		info := classifyPort(d)
		if info.candidate {
			candidates++
		} else if !portsAll {
			continue
		}

		marker := "  "
		if info.candidate {
			marker = "* "
		}
		fmt.Printf("%s%s\n", marker, info.name)
		if info.usb {
			fmt.Printf("    USB ID: %s:%s\n", info.vid, info.pid)
			if info.bridge != "" {
				fmt.Printf("    Bridge: %s\n", info.bridge)
			}
			if info.product != "" {
				fmt.Printf("    Product: %s\n", info.product)
			}
			if info.serial != "" {
				fmt.Printf("    Serial: %s\n", info.serial)
			}
		}
	}

	fmt.Printf("\n--- Port summary ---\n")
	fmt.Printf("Ports found: %d\n", len(details))
	fmt.Printf("Candidates: %d\n", candidates)

	if candidates == 0 {
		fmt.Printf("No likely board found. Check the USB cable and drivers.\n")
		os.Exit(exitNoData)
	}

	return nil
}
