package ratelimit

import (
	"context"
	"time"
)

// Limiter enforces a fixed window of quiz submissions per user.
// Allow returns false with the remaining cooldown when the window is
// exhausted.
type Limiter interface {
	Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration, err error)
}

// Guard serializes mutating calls per flow session: at most one
// in-flight mutation at a time, the server-side rendition of disabling
// the submit control while a call is pending.
type Guard interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string)
}
