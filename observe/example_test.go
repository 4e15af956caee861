package observe_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonwraymond/ttlcache/observe"
)

func ExampleNewObserver() {
	cfg := observe.Config{
		ServiceName: "example-service",
		Version:     "1.0.0",
		Tracing:     observe.TracingConfig{Enabled: true, Exporter: "none"},
		Metrics:     observe.MetricsConfig{Enabled: false},
		Logging:     observe.LogConfig{Mode: observe.ModeStd, Path: observe.PathConsole},
	}

	ctx := context.Background()
	obs, err := observe.NewObserver(ctx, cfg)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	defer func() {
		_ = obs.Shutdown(ctx)
	}()

	fmt.Println("Observer created successfully")
	// Output:
	// Observer created successfully
}

func ExampleNewObserver_validation() {
	_, err := observe.NewObserver(context.Background(), observe.Config{})
	if errors.Is(err, observe.ErrMissingServiceName) {
		fmt.Println("Caught: missing service name")
	}
	// Output:
	// Caught: missing service name
}

func ExampleLogConfig_Normalize() {
	cfg := observe.LogConfig{Mode: "loud", Path: observe.PathFile}.Normalize()
	fmt.Println(cfg.Mode, cfg.Type, cfg.Path, cfg.File)
	// Output:
	// none info file ttlcache.log
}

func ExampleNewLoggerWithWriter() {
	var buf bytes.Buffer
	logger := observe.NewLoggerWithWriter("info", &buf).
		With(observe.Meta{Cache: "sessions"})

	logger.Info(context.Background(), "entry rejected",
		observe.Field{Key: "value", Value: "hunter2"},
	)

	out := buf.String()
	fmt.Println(strings.Contains(out, `"cache.name":"sessions"`))
	fmt.Println(strings.Contains(out, "hunter2"))
	// Output:
	// true
	// false
}

func ExampleMiddleware_Wrap() {
	mw := observe.NewMiddleware(nil, nil, nil)

	sweep := mw.Wrap(func(ctx context.Context, meta observe.Meta) error {
		fmt.Println("sweeping", meta.Cache)
		return nil
	})

	_ = sweep(context.Background(), observe.Meta{Cache: "sessions", Op: observe.OpSweep})
	// Output:
	// sweeping sessions
}

func ExampleMeta_SpanName() {
	fmt.Println(observe.Meta{Cache: "sessions", Op: observe.OpRefresh}.SpanName())
	// Output:
	// cache.refresh
}
