package miner

import (
	"cyclemine/pkg/mining/core"
)

// JobHandle is the caller-facing side of a running asynchronous job. All of
// its operations complete in bounded time regardless of worker activity.
type JobHandle struct {
	d *delegator
}

// GetSolution returns one accepted solution if any is waiting, without
// blocking.
func (h *JobHandle) GetSolution() (core.Solution, bool) {
	select {
	case sol := <-h.d.solutions:
		return sol, true
	default:
		return core.Solution{}, false
	}
}

// Stop requests cooperative shutdown of the job loop and returns
// immediately. It does not wait for the worker to exit; joining is the
// caller's responsibility via Wait.
func (h *JobHandle) Stop() {
	h.d.log.Debugw("stop requested")
	h.d.cancel()
}

// Wait blocks until the worker goroutine has exited.
func (h *JobHandle) Wait() {
	<-h.d.done
}

// Done returns a channel that closes when the worker goroutine has exited.
func (h *JobHandle) Done() <-chan struct{} {
	return h.d.done
}

// SolutionFound reports whether any solution has passed the difficulty
// filter since the job started.
func (h *JobHandle) SolutionFound() bool {
	return h.d.solutionFound()
}

// HashesSinceLastCall forwards to the plugin's consume-on-read hash counter.
// Returns PluginNotLoaded if no plugin is active.
func (h *JobHandle) HashesSinceLastCall() (uint32, error) {
	return h.d.reg.HashesSinceLastCall()
}

// UpdateParameter asks the job loop to apply a plugin parameter change on
// its next pass. Non-blocking; fails with a Processing error when the
// control queue is full.
func (h *JobHandle) UpdateParameter(name string, value uint32) error {
	select {
	case h.d.ctrl <- ctrlMsg{name: name, value: value}:
		return nil
	default:
		return core.NewProcessingError("job control queue is full")
	}
}

// Stats returns a snapshot of the job's counters.
func (h *JobHandle) Stats() JobStats {
	return h.d.stats.snapshot()
}

// Err returns the fatal loop error, if the job loop exited because of one.
func (h *JobHandle) Err() error {
	return h.d.fatalErr()
}

// JobID returns the caller-supplied job identifier.
func (h *JobHandle) JobID() uint32 {
	return h.d.cfg.id
}

// RunID returns the unique identifier assigned to this run for log and
// status correlation.
func (h *JobHandle) RunID() string {
	return h.d.runID
}
