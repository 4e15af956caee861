// Package observe provides observability primitives for cache instances.
//
// It is a pure instrumentation library: structured logging with the
// mode/type/path log configuration, OpenTelemetry metrics for lookups,
// writes, evictions and sweeps, and spans around maintenance work. Nothing
// here reads or mutates cache state; the cache package calls into it.
package observe
