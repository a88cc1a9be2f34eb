package miner

import (
	"sync/atomic"
	"time"
)

// jobStats holds the per-job atomic counters the delegator updates on every
// pass. Handles read them through Snapshot without taking any lock.
type jobStats struct {
	startedAt time.Time

	candidatesPushed  atomic.Uint64
	pushesRejected    atomic.Uint64
	solutionsPopped   atomic.Uint64
	solutionsAccepted atomic.Uint64
	solutionsRejected atomic.Uint64
}

// JobStats is a point-in-time snapshot of a running job's counters.
type JobStats struct {
	CandidatesPushed  uint64        `json:"candidates_pushed"`
	PushesRejected    uint64        `json:"pushes_rejected"`
	SolutionsPopped   uint64        `json:"solutions_popped"`
	SolutionsAccepted uint64        `json:"solutions_accepted"`
	SolutionsRejected uint64        `json:"solutions_rejected"`
	Uptime            time.Duration `json:"uptime_ns"`
	StartedAt         time.Time     `json:"started_at"`
}

func (s *jobStats) snapshot() JobStats {
	return JobStats{
		CandidatesPushed:  s.candidatesPushed.Load(),
		PushesRejected:    s.pushesRejected.Load(),
		SolutionsPopped:   s.solutionsPopped.Load(),
		SolutionsAccepted: s.solutionsAccepted.Load(),
		SolutionsRejected: s.solutionsRejected.Load(),
		Uptime:            time.Since(s.startedAt),
		StartedAt:         s.startedAt,
	}
}
