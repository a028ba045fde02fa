package engine

import (
	"errors"
	"fmt"

	"revdepcheck/internal/deps"
)

// ErrWorkerFault marks a job that terminated without producing a verdict.
var ErrWorkerFault = errors.New("worker terminated without reporting a result")

// RegressionError is the run's terminal error when at least one reverse
// dependent regressed. It carries the full report so callers can inspect
// every dependent's outcome.
type RegressionError struct {
	Report deps.Report
}

func (e *RegressionError) Error() string {
	count := e.Report.Counts()[deps.VerdictFail]
	if count == 1 {
		return "1 reverse dependent regressed"
	}
	return fmt.Sprintf("%d reverse dependents regressed", count)
}
