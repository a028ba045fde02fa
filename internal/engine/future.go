package engine

import "revdepcheck/internal/deps"

// resultFuture is the one-shot handoff of a single dependent's verdict from
// its worker back to the collector.
type resultFuture struct {
	name string
	ch   chan deps.Result
}

func newResultFuture(name string) *resultFuture {
	return &resultFuture{name: name, ch: make(chan deps.Result, 1)}
}

// take blocks until the job reports. A worker that terminated without
// sending closes the channel on its way out; take converts that loss into a
// synthetic ERROR verdict carrying the dependent's name, so the batch stays
// total.
func (f *resultFuture) take() deps.Result {
	res, ok := <-f.ch
	if !ok {
		return deps.Errored(deps.Resolved{Path: f.name}, ErrWorkerFault)
	}
	return res
}
