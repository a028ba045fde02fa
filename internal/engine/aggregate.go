package engine

import "revdepcheck/internal/deps"

// Aggregate reduces the ordered result set to the run's terminal outcome.
// It returns a *RegressionError iff at least one dependent regressed. BROKEN
// and ERROR entries are reported but never flip the overall verdict: a
// dependent already broken against base is not a regression caused by the
// candidate change.
func Aggregate(report deps.Report) error {
	if report.OverallFailed() {
		return &RegressionError{Report: report}
	}
	return nil
}
