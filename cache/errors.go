package cache

import "errors"

// Sentinel errors for cache operations. Hard failures wrap one of these;
// use errors.Is to classify them.
var (
	// ErrCapacity is returned by Set when inserting a new key would exceed MaxKeys.
	ErrCapacity = errors.New("cache: max keys exceeded")

	// ErrInvalidKeyType is returned by GetTTL and SetTTL for keys that are
	// not a non-empty string or a finite number.
	ErrInvalidKeyType = errors.New("cache: key must be a string or number")

	// ErrInvalidTTL is returned when a batch entry carries a non-numeric ttl.
	ErrInvalidTTL = errors.New("cache: ttl must be a number")

	// ErrInvalidBatch is returned when batch input is not an array, or an
	// entry is not an object.
	ErrInvalidBatch = errors.New("cache: invalid batch input")

	// ErrRefresh wraps a fault raised during an on-demand sweep.
	ErrRefresh = errors.New("cache: refresh failed")

	// ErrClosed is returned by writes on a closed cache.
	ErrClosed = errors.New("cache: cache is closed")
)
