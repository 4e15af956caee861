// Package health reports the health of running caches.
//
// A Checker inspects one component and returns a Result with a Status of
// healthy, degraded or unhealthy. Two checkers read from a *cache.Cache:
//
//   - CapacityChecker compares the key count with MaxKeys.
//   - ReaperChecker watches the background reaper for stops and stale sweeps.
//
// An Aggregator runs checkers in parallel under a timeout, and Handler
// serves the combined report as JSON:
//
//	c := cache.New(cache.Config{MaxKeys: 10000})
//	http.Handle("/health", health.Handler(
//	    health.NewCapacityChecker("sessions", c, health.CapacityConfig{}),
//	    health.NewReaperChecker("sessions", c, health.ReaperConfig{}),
//	))
//
// The handler answers 200 while every check is healthy or degraded and 503
// once any check is unhealthy.
package health
