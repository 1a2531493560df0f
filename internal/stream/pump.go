// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package stream moves bytes from a connection into a cerelog.Assembler.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Thermoquad/cerestat/internal/logging"
	"github.com/Thermoquad/cerestat/pkg/cerelog"
)

// ReadSize is the buffer size for a single connection read
const ReadSize = 128

// Chunk is the result of one read. Err is set on the final chunk only.
type Chunk struct {
	Data []byte
	Err  error
}

// Handler receives every outcome the assembler produces
type Handler func(cerelog.Outcome)

// Read starts a goroutine reading r until it fails, delivering copies of
// each non-empty read. The channel is closed after the chunk carrying the
// error (io.EOF included). Cancelling ctx stops delivery; a Read already
// blocked in r only returns once the caller closes the connection.
func Read(ctx context.Context, r io.Reader) <-chan Chunk {
	out := make(chan Chunk, 16)
	go func() {
		defer close(out)
		buf := make([]byte, ReadSize)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				select {
				case out <- Chunk{Data: data}:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				select {
				case out <- Chunk{Err: err}:
				case <-ctx.Done():
				}
				return
			}
		}
	}()
	return out
}

// Pump feeds r into a until ctx is cancelled or r fails, calling handle for
// every outcome. At io.EOF the assembler is finished, so a trailing partial
// frame is reported, and Pump returns nil. Other read errors are returned.
// Only the calling goroutine touches a.
func Pump(ctx context.Context, r io.Reader, a *cerelog.Assembler, handle Handler) error {
	chunks := Read(ctx, r)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case chunk, ok := <-chunks:
			if !ok {
				return ctx.Err()
			}
			if chunk.Err != nil {
				return finish(a, chunk.Err, handle)
			}
			for o := range a.Feed(chunk.Data) {
				handle(o)
			}
		}
	}
}

func finish(a *cerelog.Assembler, err error, handle Handler) error {
	if !errors.Is(err, io.EOF) {
		return fmt.Errorf("read failed: %w", err)
	}

	logging.Debug("end of stream with %d bytes buffered", len(a.Buffered()))
	for _, o := range a.Finish() {
		handle(o)
	}
	return nil
}
