// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// CaptureExtension marks files holding a CBOR capture rather than raw bytes
const CaptureExtension = ".cbor"

// CaptureVersion is the format version written in every capture header
const CaptureVersion = 1

// CaptureHeader is the first item of a capture file
type CaptureHeader struct {
	_         struct{} `cbor:",toarray"`
	Version   uint
	SessionID string
	Source    string
	Started   time.Time
}

// CaptureChunk is one read from the source, stamped with its offset from
// the start of the capture
type CaptureChunk struct {
	_      struct{} `cbor:",toarray"`
	Offset time.Duration
	Data   []byte
}

// IsCapturePath reports whether path names a CBOR capture
func IsCapturePath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), CaptureExtension)
}

var captureEncMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// CaptureWriter appends chunks to a CBOR sequence
type CaptureWriter struct {
	mu      sync.Mutex
	enc     *cbor.Encoder
	started time.Time
	now     func() time.Time
	chunks  int
	bytes   int
}

// NewCaptureWriter writes the header and returns a writer for chunks
func NewCaptureWriter(w io.Writer, sessionID, source string) (*CaptureWriter, error) {
	return newCaptureWriter(w, sessionID, source, time.Now)
}

func newCaptureWriter(w io.Writer, sessionID, source string, now func() time.Time) (*CaptureWriter, error) {
	cw := &CaptureWriter{
		enc:     captureEncMode.NewEncoder(w),
		started: now(),
		now:     now,
	}

	header := CaptureHeader{
		Version:   CaptureVersion,
		SessionID: sessionID,
		Source:    source,
		Started:   cw.started.UTC(),
	}
	if err := cw.enc.Encode(header); err != nil {
		return nil, fmt.Errorf("failed to write capture header: %w", err)
	}
	return cw, nil
}

// WriteChunk records data as received now
func (c *CaptureWriter) WriteChunk(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	chunk := CaptureChunk{
		Offset: c.now().Sub(c.started),
		Data:   data,
	}
	if err := c.enc.Encode(chunk); err != nil {
		return fmt.Errorf("failed to write capture chunk: %w", err)
	}
	c.chunks++
	c.bytes += len(data)
	return nil
}

// Write implements io.Writer; each call is one chunk
func (c *CaptureWriter) Write(p []byte) (int, error) {
	if err := c.WriteChunk(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Stats returns the number of chunks and bytes written
func (c *CaptureWriter) Stats() (chunks, bytes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chunks, c.bytes
}

// Replay reads a capture back. Each Read returns bytes from at most one
// recorded chunk, so chunk boundaries survive the round trip.
type Replay struct {
	closer   io.Closer
	dec      *cbor.Decoder
	header   CaptureHeader
	realtime bool
	start    time.Time
	pending  []byte

	sleep func(time.Duration)
	now   func() time.Time
}

// NewReplay reads the capture header from r. With realtime set, chunks are
// delivered no earlier than their recorded offsets.
func NewReplay(r io.Reader, realtime bool) (*Replay, error) {
	rp := &Replay{
		dec:      cbor.NewDecoder(r),
		realtime: realtime,
		sleep:    time.Sleep,
		now:      time.Now,
	}
	if c, ok := r.(io.Closer); ok {
		rp.closer = c
	}

	if err := rp.dec.Decode(&rp.header); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty capture")
		}
		return nil, fmt.Errorf("invalid capture header: %w", err)
	}
	if rp.header.Version != CaptureVersion {
		return nil, fmt.Errorf("unsupported capture version %d", rp.header.Version)
	}
	return rp, nil
}

// Header returns the capture header
func (r *Replay) Header() CaptureHeader {
	return r.header
}

// Next returns the next recorded chunk, or io.EOF
func (r *Replay) Next() (CaptureChunk, error) {
	var chunk CaptureChunk
	if err := r.dec.Decode(&chunk); err != nil {
		if errors.Is(err, io.EOF) {
			return chunk, io.EOF
		}
		return chunk, fmt.Errorf("invalid capture chunk: %w", err)
	}
	return chunk, nil
}

func (r *Replay) Read(p []byte) (int, error) {
	for len(r.pending) == 0 {
		chunk, err := r.Next()
		if err != nil {
			return 0, err
		}
		if r.realtime {
			r.pace(chunk.Offset)
		}
		r.pending = chunk.Data
	}

	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

func (r *Replay) pace(offset time.Duration) {
	if r.start.IsZero() {
		r.start = r.now().Add(-offset)
		return
	}
	if wait := offset - r.now().Sub(r.start); wait > 0 {
		r.sleep(wait)
	}
}

func (r *Replay) Write(p []byte) (int, error) {
	return 0, ErrReadOnly
}

func (r *Replay) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Recorder tees every chunk read from a Connection into a CaptureWriter.
// Writes pass through unrecorded.
type Recorder struct {
	Connection
	capture *CaptureWriter
}

// NewRecorder wraps conn
func NewRecorder(conn Connection, capture *CaptureWriter) *Recorder {
	return &Recorder{Connection: conn, capture: capture}
}

func (r *Recorder) Read(p []byte) (int, error) {
	n, err := r.Connection.Read(p)
	if n > 0 {
		if cerr := r.capture.WriteChunk(p[:n]); cerr != nil {
			return n, cerr
		}
	}
	return n, err
}
