package cache

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/ttlcache/observe"
)

// Unlimited is the normalized MaxKeys value for a cache without a key limit.
const Unlimited = -1

// DefaultReaperInterval is the reaper tick used when Config.ReaperInterval is zero.
const DefaultReaperInterval = time.Second

// Config configures a Cache. Each Cache owns its configuration; nothing is
// shared between instances.
//
// Invalid or absent fields fall back to defaults, so every Config is usable.
type Config struct {
	// ForceString stores numbers and objects as text: numbers as decimal
	// text and objects as canonical JSON. Nil means true.
	ForceString *bool

	// ValueOnly makes Get return the bare value instead of an Item.
	// Nil means true.
	ValueOnly *bool

	// MaxKeys caps the number of stored entries. Zero or negative means
	// unlimited.
	MaxKeys int

	// StdTTL is the lifetime of entries set without an explicit ttl.
	// Zero (or negative) means entries never expire.
	StdTTL time.Duration

	// ReaperInterval is the background sweep period. Zero means
	// DefaultReaperInterval; negative disables the reaper.
	ReaperInterval time.Duration

	// Name identifies the instance in logs and metrics. Empty generates
	// a random UUID.
	Name string

	// Log selects the log mode, label and sink. When Mode or Path is set
	// it takes precedence over the Observer's logger.
	Log observe.LogConfig

	// Observer supplies tracing, metrics and logging. Nil means no telemetry.
	Observer observe.Observer
}

// Bool returns a pointer to v, for the optional Config flags.
func Bool(v bool) *bool { return &v }

// DefaultConfig returns the configuration New applies to absent fields.
// ForceString: true, ValueOnly: true, MaxKeys: unlimited, StdTTL: never expire.
// Log is left empty so an Observer's logger is not overridden.
func DefaultConfig() Config {
	return Config{
		ForceString:    Bool(true),
		ValueOnly:      Bool(true),
		MaxKeys:        Unlimited,
		ReaperInterval: DefaultReaperInterval,
	}
}

// settings is a normalized Config.
type settings struct {
	forceString    bool
	valueOnly      bool
	maxKeys        int
	stdTTL         time.Duration
	reaperInterval time.Duration
	name           string
	log            observe.LogConfig
}

func (c Config) normalize() settings {
	s := settings{
		forceString:    true,
		valueOnly:      true,
		maxKeys:        c.MaxKeys,
		stdTTL:         c.StdTTL,
		reaperInterval: c.ReaperInterval,
		name:           c.Name,
		log:            c.Log.Normalize(),
	}
	if c.ForceString != nil {
		s.forceString = *c.ForceString
	}
	if c.ValueOnly != nil {
		s.valueOnly = *c.ValueOnly
	}
	if s.maxKeys <= 0 {
		s.maxKeys = Unlimited
	}
	if s.stdTTL < 0 {
		s.stdTTL = 0
	}
	if s.reaperInterval == 0 {
		s.reaperInterval = DefaultReaperInterval
	}
	if s.name == "" {
		s.name = uuid.NewString()
	}
	return s
}

// Stats is a snapshot of the running counters.
type Stats struct {
	Hits   int64 `json:"hitCount"`
	Misses int64 `json:"missCount"`
	Keys   int64 `json:"keyCount"`
}

// ConfigState is the effective configuration together with the counters.
type ConfigState struct {
	ForceString bool          `json:"forceString"`
	ValueOnly   bool          `json:"valueOnly"`
	MaxKeys     int           `json:"maxKeys"`
	StdTTL      time.Duration `json:"stdTTL"`
	Stats
}
