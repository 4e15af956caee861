package health

import (
	"context"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var reportJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Report is the JSON body served by Handler.
type Report struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckReport `json:"checks,omitempty"`
}

// CheckReport is the JSON form of one Result.
type CheckReport struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// NewReport builds the report for a round of results.
func NewReport(status Status, results map[string]Result, at time.Time) Report {
	r := Report{
		Status:    status.String(),
		Timestamp: at.UTC().Format(time.RFC3339),
		Checks:    make(map[string]CheckReport, len(results)),
	}
	for name, res := range results {
		cr := CheckReport{
			Status:   res.Status.String(),
			Message:  res.Message,
			Duration: res.Duration.String(),
			Details:  res.Details,
		}
		if res.Error != nil {
			cr.Error = res.Error.Error()
		}
		r.Checks[name] = cr
	}
	return r
}

// Handler serves a JSON report of the given checkers, run through an
// Aggregator with DefaultTimeout.
func Handler(checkers ...Checker) http.Handler {
	return NewAggregator(DefaultTimeout, checkers...).Handler()
}

// Handler serves a JSON report of every registered checker. It responds
// 503 when any check is unhealthy and 200 otherwise.
func (a *Aggregator) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
		defer cancel()

		results := a.CheckAll(ctx)
		status := a.Overall(results)

		w.Header().Set("Content-Type", "application/json")
		if status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = reportJSON.NewEncoder(w).Encode(NewReport(status, results, time.Now()))
	})
}
