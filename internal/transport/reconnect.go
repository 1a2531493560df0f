// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"time"
)

// OpenFunc opens a connection and describes it
type OpenFunc func() (Connection, string, error)

// Backoff controls the delay between reconnection attempts
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

// DefaultBackoff starts at one second and doubles up to thirty
var DefaultBackoff = Backoff{Initial: time.Second, Max: 30 * time.Second}

// Redial calls open until it succeeds, waiting between attempts with
// exponential backoff. onRetry, if set, is told about every failure.
// It gives up only when ctx is cancelled.
func (b Backoff) Redial(ctx context.Context, open OpenFunc, onRetry func(attempt int, err error)) (Connection, string, error) {
	backoff := b.Initial
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-time.After(backoff):
		}

		conn, connInfo, err := open()
		if err == nil {
			return conn, connInfo, nil
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}

		backoff = min(backoff*2, b.Max)
	}
}
