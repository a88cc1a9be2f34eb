// Package plugintest provides a scriptable in-process Solver for exercising
// the registry and job loop without a real shared library.
package plugintest

import (
	"sync/atomic"

	"cyclemine/pkg/mining/core"
	"cyclemine/pkg/mining/plugin"
)

// Solver is a configurable plugin.Solver. Zero-value behavior is a benign
// plugin: no sync solutions, queue always under limit, pushes accepted,
// output queue empty, processing control succeeds. Individual operations are
// overridden by setting the corresponding Fn field. Call counters are atomic
// so tests can assert from other goroutines.
type Solver struct {
	Name        string
	Description string

	SolveFn           func(header []byte, sol *[core.CycleLength]uint32) uint32
	ParameterListFn   func(buf []byte, length *uint32) uint32
	GetParameterFn    func(name string, value *uint32) uint32
	SetParameterFn    func(name string, value uint32) uint32
	QueueUnderLimitFn func() uint32
	PushInputFn       func(hash []byte, nonce [core.NonceSize]byte) uint32
	ReadOutputFn      func(sol *[core.CycleLength]uint32, nonce *[core.NonceSize]byte) uint32
	StartFn           func() uint32
	StopFn            func() uint32
	HashesFn          func() uint32

	InitCalls  atomic.Int64
	StartCalls atomic.Int64
	StopCalls  atomic.Int64
	PushCalls  atomic.Int64
	ReadCalls  atomic.Int64
	QueueCalls atomic.Int64
	Closed     atomic.Bool
}

var _ plugin.Solver = (*Solver)(nil)

func (s *Solver) Init() {
	s.InitCalls.Add(1)
}

func (s *Solver) Solve(header []byte, sol *[core.CycleLength]uint32) uint32 {
	if s.SolveFn != nil {
		return s.SolveFn(header, sol)
	}
	return 0
}

func (s *Solver) Describe(name []byte, nameLen *uint32, desc []byte, descLen *uint32) {
	*nameLen = uint32(copy(name[:min(int(*nameLen), len(name))], s.Name))
	*descLen = uint32(copy(desc[:min(int(*descLen), len(desc))], s.Description))
}

func (s *Solver) ParameterList(buf []byte, length *uint32) uint32 {
	if s.ParameterListFn != nil {
		return s.ParameterListFn(buf, length)
	}
	*length = uint32(copy(buf, "[]"))
	return 0
}

func (s *Solver) GetParameter(name []byte, value *uint32) uint32 {
	if s.GetParameterFn != nil {
		return s.GetParameterFn(string(name), value)
	}
	return 1
}

func (s *Solver) SetParameter(name []byte, value uint32) uint32 {
	if s.SetParameterFn != nil {
		return s.SetParameterFn(string(name), value)
	}
	return 0
}

func (s *Solver) QueueUnderLimit() uint32 {
	s.QueueCalls.Add(1)
	if s.QueueUnderLimitFn != nil {
		return s.QueueUnderLimitFn()
	}
	return 1
}

func (s *Solver) PushInput(hash []byte, nonce *[core.NonceSize]byte) uint32 {
	s.PushCalls.Add(1)
	if s.PushInputFn != nil {
		return s.PushInputFn(hash, *nonce)
	}
	return 1
}

func (s *Solver) ReadOutput(sol *[core.CycleLength]uint32, nonce *[core.NonceSize]byte) uint32 {
	s.ReadCalls.Add(1)
	if s.ReadOutputFn != nil {
		return s.ReadOutputFn(sol, nonce)
	}
	return 0
}

func (s *Solver) StartProcessing() uint32 {
	s.StartCalls.Add(1)
	if s.StartFn != nil {
		return s.StartFn()
	}
	return 1
}

func (s *Solver) StopProcessing() uint32 {
	s.StopCalls.Add(1)
	if s.StopFn != nil {
		return s.StopFn()
	}
	return 1
}

func (s *Solver) HashesSinceLastCall() uint32 {
	if s.HashesFn != nil {
		return s.HashesFn()
	}
	return 0
}

func (s *Solver) Close() error {
	s.Closed.Store(true)
	return nil
}

// Open returns an Opener that always hands out s.
func Open(s *Solver) plugin.Opener {
	return func(string) (plugin.Solver, error) {
		return s, nil
	}
}

// FailOpen returns an Opener that always fails with err.
func FailOpen(err error) plugin.Opener {
	return func(string) (plugin.Solver, error) {
		return nil, err
	}
}
