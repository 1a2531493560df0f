// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cerelog

const (
	startHi = byte(StartMarker >> 8)
	startLo = byte(StartMarker & 0xFF)
	endHi   = byte(EndMarker >> 8)
	endLo   = byte(EndMarker & 0xFF)
)

// FindMarkers returns every index in buf where a start marker begins, in
// ascending order. Matches do not overlap: after a match at i, scanning
// resumes at i+2. Returns nil if buf holds fewer than two bytes.
func FindMarkers(buf []byte) []int {
	var positions []int
	for i := nextMarker(buf, 0); i >= 0; i = nextMarker(buf, i+MarkerSize) {
		positions = append(positions, i)
	}
	return positions
}

// nextMarker returns the index of the first start marker at or after from,
// or -1 if there is none.
func nextMarker(buf []byte, from int) int {
	for i := from; i+1 < len(buf); i++ {
		if buf[i] == startHi && buf[i+1] == startLo {
			return i
		}
	}
	return -1
}
