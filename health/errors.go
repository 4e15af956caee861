package health

import "errors"

var (
	// ErrCheckFailed marks a result whose component is past its critical limit.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout is reported for a check that did not finish in time.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckPanic is reported for a check that panicked.
	ErrCheckPanic = errors.New("health: check panicked")

	// ErrReaperStopped is reported when a cache's reaper is no longer running.
	ErrReaperStopped = errors.New("health: reaper stopped")
)
