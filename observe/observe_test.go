package observe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name: "valid",
			cfg: Config{
				ServiceName: "test-service",
				Version:     "1.0.0",
				Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1.0},
				Metrics:     MetricsConfig{Enabled: true, Exporter: "stdout"},
				Logging:     LogConfig{Mode: ModeStd, Path: PathConsole},
			},
		},
		{
			name: "zero logging is valid",
			cfg:  Config{ServiceName: "test-service"},
		},
		{
			name:    "missing service name",
			cfg:     Config{},
			wantErr: ErrMissingServiceName,
		},
		{
			name: "unknown tracing exporter",
			cfg: Config{
				ServiceName: "test-service",
				Tracing:     TracingConfig{Enabled: true, Exporter: "unknown"},
			},
			wantErr: ErrInvalidTracingExporter,
		},
		{
			name: "disabled tracing skips exporter check",
			cfg: Config{
				ServiceName: "test-service",
				Tracing:     TracingConfig{Enabled: false, Exporter: "unknown"},
			},
		},
		{
			name: "unknown metrics exporter",
			cfg: Config{
				ServiceName: "test-service",
				Metrics:     MetricsConfig{Enabled: true, Exporter: "badvalue"},
			},
			wantErr: ErrInvalidMetricsExporter,
		},
		{
			name: "sample pct above range",
			cfg: Config{
				ServiceName: "test-service",
				Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1.5},
			},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name: "sample pct negative",
			cfg: Config{
				ServiceName: "test-service",
				Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: -0.1},
			},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name: "unknown log mode",
			cfg: Config{
				ServiceName: "test-service",
				Logging:     LogConfig{Mode: "verbose"},
			},
			wantErr: ErrInvalidLogMode,
		},
		{
			name: "unknown log path",
			cfg: Config{
				ServiceName: "test-service",
				Logging:     LogConfig{Mode: ModeStd, Path: "syslog"},
			},
			wantErr: ErrInvalidLogPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewObserver_DisabledNoop(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "test-service"})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	defer func() { _ = obs.Shutdown(context.Background()) }()

	if _, ok := obs.Logger().(*noopLogger); !ok {
		t.Errorf("Logger() = %T, want *noopLogger", obs.Logger())
	}
	if obs.Tracer() == nil || obs.Meter() == nil {
		t.Fatal("expected non-nil tracer and meter")
	}
}

func TestNewObserver_InvalidConfig(t *testing.T) {
	_, err := NewObserver(context.Background(), Config{})
	if !errors.Is(err, ErrMissingServiceName) {
		t.Fatalf("NewObserver() error = %v, want ErrMissingServiceName", err)
	}
}

func TestNewObserver_PrometheusRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "test-service",
		Metrics:     MetricsConfig{Enabled: true, Exporter: "prometheus", Registerer: reg},
	})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	defer func() { _ = obs.Shutdown(context.Background()) }()

	m, err := NewCacheMetrics(obs.Meter())
	if err != nil {
		t.Fatalf("NewCacheMetrics() error = %v", err)
	}
	m.RecordLookup(context.Background(), Meta{Cache: "users"}, true)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	if !strings.Contains(strings.Join(names, ","), "cache_hits") {
		t.Errorf("cache_hits not exported to supplied registry, got %v", names)
	}
}

func TestNewObserver_FileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.log")
	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "test-service",
		Logging:     LogConfig{Mode: ModeStd, Path: PathFile, File: path, Type: "audit"},
	})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}

	obs.Logger().Info(context.Background(), "hello")
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Errorf("log file missing entry: %s", data)
	}
	if !strings.Contains(string(data), `"type":"audit"`) {
		t.Errorf("log file missing type label: %s", data)
	}
}

func TestObserver_ShutdownIdempotent(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "test-service",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.0},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
	})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}

	if err := obs.Shutdown(context.Background()); err != nil {
		t.Fatalf("first Shutdown() error = %v", err)
	}
	// The SDK providers ignore repeated shutdowns after the first.
	_ = obs.Shutdown(context.Background())
}

func TestNewObserver_GlobalOptIn(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	cfg := Config{
		ServiceName: "test-service",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.0},
	}

	local, err := NewObserver(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	defer func() { _ = local.Shutdown(context.Background()) }()
	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); ok {
		t.Fatal("global tracer provider replaced without Global")
	}

	cfg.Global = true
	global, err := NewObserver(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	defer func() { _ = global.Shutdown(context.Background()) }()
	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Errorf("global tracer provider = %T, want *sdktrace.TracerProvider", otel.GetTracerProvider())
	}
}
