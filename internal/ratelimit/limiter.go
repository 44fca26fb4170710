package ratelimit

import "context"

// RateLimiter throttles outbound sends per transport scope so one job
// tick cannot flood the mail provider.
type RateLimiter interface {
	Allow(ctx context.Context, scope string) (bool, error)
	Wait(ctx context.Context, scope string) error
}
