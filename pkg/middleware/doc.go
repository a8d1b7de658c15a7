// Package middleware provides request rate limiting for the grove API.
//
// Two limiters satisfy the Limiter interface:
//
//   - RateLimiter: an in-memory token bucket, limits are per process
//   - DistributedRateLimiter: a fixed window counter in Redis shared by
//     every instance
//
// RateLimitMiddleware keys requests by client IP and answers 429 with a
// JSON body and a Retry-After header once the window is spent:
//
//	limiter := middleware.NewDistributedRateLimiter(client, cfg, "grove:ratelimit")
//	mw := middleware.NewRateLimitMiddleware(limiter, logger, metrics)
//	server := api.NewServer(repo, logger, api.WithMiddleware(mw.Handler))
//
// Limiter errors are counted and logged; by default the request is let
// through.
package middleware
