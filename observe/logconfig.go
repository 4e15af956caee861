package observe

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
)

// Log modes.
const (
	ModeNone = "none" // discard everything
	ModeStd  = "std"  // info and above
	ModeExp  = "exp"  // debug and above
)

// Log sinks.
const (
	PathNone    = "none"
	PathConsole = "console"
	PathFile    = "file"
)

// DefaultLogType is the label written when LogConfig.Type is empty.
const DefaultLogType = "info"

// DefaultLogFile is the file used by PathFile when LogConfig.File is empty.
const DefaultLogFile = "ttlcache.log"

// LogConfig selects how a cache instance logs.
//
// The zero value is valid and silences logging: mode and path both
// normalize to "none".
type LogConfig struct {
	// Mode is one of none|std|exp.
	Mode string

	// Type is a free-form label attached to every entry as "type".
	Type string

	// Path is one of none|console|file.
	Path string

	// File is the destination for PathFile.
	File string
}

// DefaultLogConfig returns the configuration used when none is given.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Mode: ModeNone,
		Type: DefaultLogType,
		Path: PathNone,
	}
}

// Validate reports whether the configured mode and path are usable.
//
// Unset fields are skipped, but at least one of Mode or Path must be set:
// an empty configuration does not validate.
func (c LogConfig) Validate() bool {
	if c.Mode == "" && c.Path == "" {
		return false
	}
	if c.Mode != "" && !slices.Contains(ValidLogModes, c.Mode) {
		return false
	}
	if c.Path != "" && !slices.Contains(ValidLogPaths, c.Path) {
		return false
	}
	return true
}

// Err returns the first validation error, or nil. Unlike Validate, an empty
// configuration is not an error.
func (c LogConfig) Err() error {
	if c.Mode != "" && !slices.Contains(ValidLogModes, c.Mode) {
		return fmt.Errorf("%w: %q", ErrInvalidLogMode, c.Mode)
	}
	if c.Path != "" && !slices.Contains(ValidLogPaths, c.Path) {
		return fmt.Errorf("%w: %q", ErrInvalidLogPath, c.Path)
	}
	return nil
}

// Normalize replaces invalid or missing fields with defaults.
func (c LogConfig) Normalize() LogConfig {
	if !slices.Contains(ValidLogModes, c.Mode) {
		c.Mode = ModeNone
	}
	if !slices.Contains(ValidLogPaths, c.Path) {
		c.Path = PathNone
	}
	if c.Type == "" {
		c.Type = DefaultLogType
	}
	if c.Path == PathFile && c.File == "" {
		c.File = DefaultLogFile
	}
	return c
}

// Level returns the minimum level emitted in the configured mode.
func (c LogConfig) Level() LogLevel {
	if c.Mode == ModeExp {
		return LevelDebug
	}
	return LevelInfo
}

// OpenLogger builds the logger described by cfg.
//
// The returned closer releases the file sink and is always non-nil. When the
// log file cannot be opened the logger falls back to the console and
// records the failure as its first entry; a cache never fails to start
// because of logging.
func OpenLogger(cfg LogConfig) (Logger, io.Closer) {
	cfg = cfg.Normalize()
	if cfg.Mode == ModeNone || cfg.Path == PathNone {
		return &noopLogger{}, nopCloser{}
	}

	if cfg.Path == PathConsole {
		return newConfiguredLogger(cfg, os.Stderr), nopCloser{}
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		l := newConfiguredLogger(cfg, os.Stderr)
		l.log(context.Background(), LevelWarn, "log file unavailable, using console", []Field{
			{Key: "file", Value: cfg.File},
			{Key: "error", Value: err.Error()},
		})
		return l, nopCloser{}
	}
	return newConfiguredLogger(cfg, f), f
}

func newConfiguredLogger(cfg LogConfig, w io.Writer) *structuredLogger {
	l := newStructuredLogger(cfg.Level(), w)
	l.baseAttrs["type"] = cfg.Type
	return l
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
