package health

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultTimeout bounds a full round of checks when no timeout is given.
const DefaultTimeout = 5 * time.Second

// Aggregator runs a set of checkers together.
type Aggregator struct {
	timeout time.Duration

	mu       sync.RWMutex
	checkers map[string]Checker
	order    []string
}

// NewAggregator returns an Aggregator that runs the given checkers. A
// non-positive timeout means DefaultTimeout.
func NewAggregator(timeout time.Duration, checkers ...Checker) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	a := &Aggregator{
		timeout:  timeout,
		checkers: make(map[string]Checker, len(checkers)),
	}
	for _, c := range checkers {
		a.Register(c)
	}
	return a
}

// Register adds c under its name, replacing a checker with the same name.
func (a *Aggregator) Register(c Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	name := c.Name()
	if _, exists := a.checkers[name]; !exists {
		a.order = append(a.order, name)
	}
	a.checkers[name] = c
}

// Names returns the registered checker names in registration order.
func (a *Aggregator) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.order...)
}

// CheckAll runs every checker in parallel and returns the results by name.
// Checks still running when the timeout passes are reported unhealthy with
// ErrCheckTimeout.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	checkers := make(map[string]Checker, len(a.checkers))
	for name, c := range a.checkers {
		checkers[name] = c
	}
	a.mu.RUnlock()

	results := make(map[string]Result, len(checkers))
	if len(checkers) == 0 {
		return results
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for name, c := range checkers {
		wg.Add(1)
		go func(name string, c Checker) {
			defer wg.Done()
			r := runCheck(ctx, c)
			mu.Lock()
			results[name] = r
			mu.Unlock()
		}(name, c)
	}
	wg.Wait()
	return results
}

// Overall folds results into one status.
func (a *Aggregator) Overall(results map[string]Result) Status {
	all := make([]Result, 0, len(results))
	for _, r := range results {
		all = append(all, r)
	}
	return Worst(all...)
}

func runCheck(ctx context.Context, c Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- Unhealthy(fmt.Sprintf("check panicked: %v", p), ErrCheckPanic)
			}
		}()
		done <- c.Check(ctx)
	}()

	select {
	case r := <-done:
		if r.Timestamp.IsZero() {
			r.Timestamp = start
		}
		return r.WithDuration(time.Since(start))
	case <-ctx.Done():
		r := Unhealthy("check timed out", ErrCheckTimeout)
		r.Timestamp = start
		return r.WithDuration(time.Since(start))
	}
}
