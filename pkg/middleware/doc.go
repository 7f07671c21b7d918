// Package middleware provides HTTP rate limiting for the routes that start
// builds.
//
// # Middleware Components
//
// RateLimiter: in-memory token bucket per client address
//
//	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
//	limiter.StartCleanup(ctx)
//
// DistributedRateLimiter: Redis-backed fixed window shared across hosts
//
//	limiter := middleware.NewDistributedRateLimiter(redisClient, nil, "")
//
// Either one plugs into RateLimitMiddleware:
//
//	mw := middleware.NewRateLimitMiddleware(limiter, log)
//	router.Handle("/build/{id}", mw.Handler(buildHandler))
//
// Rejected requests get 429 with a coded JSON error and a Retry-After header.
package middleware
