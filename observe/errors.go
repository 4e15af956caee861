package observe

import "errors"

// Configuration errors.
var (
	// ErrMissingServiceName indicates Config.ServiceName is empty.
	ErrMissingServiceName = errors.New("observe: service name is required")

	// ErrInvalidSamplePct indicates Tracing.SamplePct is not in [0.0, 1.0].
	ErrInvalidSamplePct = errors.New("observe: sample percentage must be between 0.0 and 1.0")

	// ErrInvalidTracingExporter indicates an unknown tracing exporter name.
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")

	// ErrInvalidMetricsExporter indicates an unknown metrics exporter name.
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")

	// ErrInvalidLogMode indicates a log mode outside ValidLogModes.
	ErrInvalidLogMode = errors.New("observe: invalid log mode")

	// ErrInvalidLogPath indicates a log path outside ValidLogPaths.
	ErrInvalidLogPath = errors.New("observe: invalid log path")
)

// Runtime errors.
var (
	// ErrNilObserver indicates a nil Observer was provided.
	ErrNilObserver = errors.New("observe: observer is nil")
)

// Validation constants.
const (
	// MinSamplePct is the minimum valid sampling percentage.
	MinSamplePct = 0.0
	// MaxSamplePct is the maximum valid sampling percentage.
	MaxSamplePct = 1.0
)

// ValidTracingExporters lists valid tracing exporter names.
var ValidTracingExporters = []string{"otlp", "jaeger", "stdout", "none", ""}

// ValidMetricsExporters lists valid metrics exporter names.
var ValidMetricsExporters = []string{"otlp", "prometheus", "stdout", "none", ""}

// ValidLogModes lists valid log modes.
var ValidLogModes = []string{ModeNone, ModeStd, ModeExp}

// ValidLogPaths lists valid log sinks.
var ValidLogPaths = []string{PathNone, PathConsole, PathFile}

// RedactedFields lists field keys that are automatically redacted in logs.
// Cached payloads never reach a log line under any of these keys.
var RedactedFields = []string{
	"value",
	"values",
	"password",
	"secret",
	"token",
	"api_key",
	"credential",
}
