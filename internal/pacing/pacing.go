// Package pacing provides randomized delays used to stay under platform rate
// limits: a send burst without jitter is the fastest way to get an account
// flagged.
package pacing

import (
	"context"
	"math/rand"
	"time"
)

// Jitter picks a random duration in [min, max]. A degenerate window collapses
// to min.
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// Sleep blocks for a jittered duration or until ctx is canceled.
func Sleep(ctx context.Context, min, max time.Duration) error {
	d := Jitter(min, max)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
