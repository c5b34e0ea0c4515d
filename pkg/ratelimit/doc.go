// Package ratelimit paces outgoing requests so the API and media CDN see a
// steady, bounded rate.
//
// Two limiters are provided:
//
// TokenBucket wraps golang.org/x/time/rate and refills continuously. It is
// the limiter the client and download workers share.
//
// SlidingWindow counts requests inside a moving window and is useful when a
// hard ceiling per period matters more than smoothness.
//
// Both implement Limiter:
//
//	limiter := ratelimit.NewTokenBucket(60, time.Minute, 10)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err // ctx cancelled
//	}
package ratelimit
