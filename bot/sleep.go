package bot

import (
	"context"
	"time"

	"github.com/codehamsters/instabot/internal/pacing"
)

// SleepFunc is the pacing hook between outgoing sends. Components default to
// pacing.Sleep; tests inject an instant one.
type SleepFunc func(ctx context.Context, min, max time.Duration) error

func defaultSleep(fn SleepFunc) SleepFunc {
	if fn != nil {
		return fn
	}
	return pacing.Sleep
}
