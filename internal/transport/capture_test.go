// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock advances by step on every call
func stepClock(start time.Time, step time.Duration) func() time.Time {
	t := start
	return func() time.Time {
		now := t
		t = t.Add(step)
		return now
	}
}

func writeCapture(t *testing.T, w io.Writer, chunks ...[]byte) *CaptureWriter {
	t.Helper()
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cw, err := newCaptureWriter(w, "session-1", "Serial: /dev/ttyUSB0 @ 9600 baud", stepClock(start, 10*time.Millisecond))
	require.NoError(t, err)
	for _, c := range chunks {
		require.NoError(t, cw.WriteChunk(c))
	}
	return cw
}

func TestCaptureRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	cw := writeCapture(t, &buf, []byte{0xAB, 0xCD, 0x1F}, nil, []byte{0x01}, []byte{0x02, 0x03})

	chunks, n := cw.Stats()
	assert.Equal(t, 3, chunks, "empty chunks are not recorded")
	assert.Equal(t, 6, n)

	replay, err := NewReplay(&buf, false)
	require.NoError(t, err)

	header := replay.Header()
	assert.Equal(t, uint(CaptureVersion), header.Version)
	assert.Equal(t, "session-1", header.SessionID)
	assert.Equal(t, "Serial: /dev/ttyUSB0 @ 9600 baud", header.Source)
	assert.True(t, header.Started.Equal(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)))

	want := []CaptureChunk{
		{Offset: 10 * time.Millisecond, Data: []byte{0xAB, 0xCD, 0x1F}},
		{Offset: 20 * time.Millisecond, Data: []byte{0x01}},
		{Offset: 30 * time.Millisecond, Data: []byte{0x02, 0x03}},
	}
	for _, w := range want {
		got, err := replay.Next()
		require.NoError(t, err)
		assert.Equal(t, w.Offset, got.Offset)
		assert.Equal(t, w.Data, got.Data)
	}

	_, err = replay.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReplayPreservesChunkBoundaries(t *testing.T) {
	var buf bytes.Buffer
	writeCapture(t, &buf, []byte{1, 2, 3}, []byte{4, 5})

	replay, err := NewReplay(&buf, false)
	require.NoError(t, err)

	p := make([]byte, 64)
	n, err := replay.Read(p)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, p[:n])

	// a short buffer drains one chunk over several reads
	small := make([]byte, 1)
	n, err = replay.Read(small)
	require.NoError(t, err)
	assert.Equal(t, []byte{4}, small[:n])
	n, err = replay.Read(small)
	require.NoError(t, err)
	assert.Equal(t, []byte{5}, small[:n])

	_, err = replay.Read(p)
	assert.ErrorIs(t, err, io.EOF)

	_, err = replay.Write([]byte{0})
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestReplayRealtimePacing(t *testing.T) {
	var buf bytes.Buffer
	writeCapture(t, &buf, []byte{1}, []byte{2}, []byte{3})

	replay, err := NewReplay(&buf, true)
	require.NoError(t, err)

	// time stands still, so each chunk must wait its full recorded gap
	now := time.Unix(1000, 0)
	replay.now = func() time.Time { return now }
	var slept []time.Duration
	replay.sleep = func(d time.Duration) { slept = append(slept, d) }

	data, err := io.ReadAll(replay)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, slept)
}

func TestNewReplayErrors(t *testing.T) {
	_, err := NewReplay(bytes.NewReader(nil), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty capture")

	_, err = NewReplay(bytes.NewReader([]byte{0xFF, 0x00}), false)
	require.Error(t, err)
}

func TestRecorderTeesReads(t *testing.T) {
	var capture bytes.Buffer
	cw := writeCapture(t, &capture)

	src := &FileConnection{file: tempFile(t, []byte{0xAB, 0xCD, 0x01, 0x02})}
	rec := NewRecorder(src, cw)

	data, err := io.ReadAll(rec)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAB, 0xCD, 0x01, 0x02}, data)
	require.NoError(t, rec.Close())

	replay, err := NewReplay(&capture, false)
	require.NoError(t, err)
	replayed, err := io.ReadAll(replay)
	require.NoError(t, err)
	assert.Equal(t, data, replayed)
}

func TestIsCapturePath(t *testing.T) {
	assert.True(t, IsCapturePath("session.cbor"))
	assert.True(t, IsCapturePath("/tmp/SESSION.CBOR"))
	assert.False(t, IsCapturePath("session.bin"))
	assert.False(t, IsCapturePath("cbor"))
}

func tempFile(t *testing.T, data []byte) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stream.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	f, err := os.Open(path)
	require.NoError(t, err)
	return f
}
