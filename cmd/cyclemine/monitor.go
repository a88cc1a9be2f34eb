package main

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"cyclemine/internal/api"
	"cyclemine/pkg/mining/core"
	"cyclemine/pkg/mining/miner"
)

// jobMonitor samples a running job handle: it collects popped solutions,
// turns the plugin's consume-on-read hash counter into a graphs/s rate, and
// serves both to the TUI and the status API.
type jobMonitor struct {
	pluginName string
	handle     *miner.JobHandle
	log        *zap.SugaredLogger

	mu        sync.Mutex
	solutions []core.Solution
	graphRate float64
}

func newJobMonitor(pluginName string, handle *miner.JobHandle, log *zap.SugaredLogger) *jobMonitor {
	return &jobMonitor{pluginName: pluginName, handle: handle, log: log}
}

// sample runs until the worker exits, polling the handle once per interval.
func (m *jobMonitor) sample(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-m.handle.Done():
			m.collect()
			return
		case now := <-ticker.C:
			m.collect()
			hashes, err := m.handle.HashesSinceLastCall()
			if err != nil {
				continue
			}
			elapsed := now.Sub(last).Seconds()
			last = now
			if elapsed <= 0 {
				continue
			}
			m.mu.Lock()
			m.graphRate = float64(hashes) / elapsed
			m.mu.Unlock()
		}
	}
}

// collect drains any solutions waiting on the handle.
func (m *jobMonitor) collect() {
	for {
		sol, ok := m.handle.GetSolution()
		if !ok {
			return
		}
		m.log.Infow("solution accepted",
			"nonce", sol.NonceUint64(), "job_id", m.handle.JobID())
		m.mu.Lock()
		m.solutions = append(m.solutions, sol)
		m.mu.Unlock()
	}
}

func (m *jobMonitor) running() bool {
	select {
	case <-m.handle.Done():
		return false
	default:
		return true
	}
}

// Status implements api.StatusSource.
func (m *jobMonitor) Status() api.Status {
	m.mu.Lock()
	rate := m.graphRate
	m.mu.Unlock()

	status := api.Status{
		PluginName:    m.pluginName,
		JobID:         m.handle.JobID(),
		RunID:         m.handle.RunID(),
		Running:       m.running(),
		SolutionFound: m.handle.SolutionFound(),
		GraphsPerSec:  rate,
		Stats:         m.handle.Stats(),
	}
	if err := m.handle.Err(); err != nil {
		status.LastError = err.Error()
	}
	return status
}

// Solutions implements api.StatusSource.
func (m *jobMonitor) Solutions() []core.Solution {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Solution, len(m.solutions))
	copy(out, m.solutions)
	return out
}

// RequestStop implements api.StatusSource.
func (m *jobMonitor) RequestStop() {
	m.handle.Stop()
}
