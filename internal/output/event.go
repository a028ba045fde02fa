package output

import "revdepcheck/internal/deps"

// Event is a lifecycle record for NDJSON streaming output.
//
// In NDJSON mode, sinks emit Events (one JSON object per line), including:
// - run.started
// - dependent.result
// - run.finished
//
// JSON mode remains an aggregate of deps.Result values.
type Event struct {
	Type   string `json:"type"`
	Module string `json:"module,omitempty"`
	*deps.Result
	Dependents int `json:"dependents,omitempty"`
	ExitCode   int `json:"exit_code,omitempty"`
}

func eventFromResult(r deps.Result) Event {
	return Event{Type: "dependent.result", Module: r.Dependent.Path, Result: &r}
}
