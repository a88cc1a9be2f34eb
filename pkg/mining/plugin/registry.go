package plugin

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"cyclemine/pkg/mining/core"
)

const describeBufSize = 256

// Registry owns at most one loaded solver plugin and exposes the typed call
// surface over its ABI. It is a plain instance rather than process-wide
// state, so callers (and tests) can construct as many isolated registries as
// they like; by convention a process runs one.
//
// Calls take the read lock, so distinct ABI operations proceed concurrently
// (each guarded by its own slot mutex inside the library). Load and Unload
// take the write lock, so no call can ever race a library swap or release.
type Registry struct {
	mu     sync.RWMutex
	solver Solver
	opener Opener
	log    *zap.SugaredLogger
}

// NewRegistry returns an empty registry that opens plugins through opener.
func NewRegistry(opener Opener, log *zap.SugaredLogger) *Registry {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Registry{opener: opener, log: log}
}

// Load opens the plugin at path, resolving all 12 entry points before
// anything is published. On open failure it returns PluginNotFound; on
// resolution failure, SymbolResolution. Either way the registry is left
// exactly as it was before the call. On success any previously loaded plugin
// is displaced (the caller stops running jobs first) and the new plugin's
// one-time initializer is invoked synchronously before Load returns.
func (r *Registry) Load(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log.Debugw("loading miner plugin", "path", path)
	solver, err := r.opener(path)
	if err != nil {
		return err
	}

	if r.solver != nil {
		r.log.Infow("displacing previously loaded plugin")
		if cerr := r.solver.Close(); cerr != nil {
			r.log.Warnw("error closing displaced plugin", "error", cerr)
		}
	}
	r.solver = solver
	r.solver.Init()
	return nil
}

// Unload clears the registry and releases the library. No-op when nothing is
// loaded.
func (r *Registry) Unload() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.solver == nil {
		return
	}
	if err := r.solver.Close(); err != nil {
		r.log.Warnw("error closing plugin", "error", err)
	}
	r.solver = nil
}

// Loaded reports whether a plugin is currently active.
func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.solver != nil
}

// Solve runs a synchronous cycle search over the header digest, filling sol
// on success. Returns the plugin's raw result code: 1 found, 0 not found.
// May block for the duration of the search.
func (r *Registry) Solve(header []byte, sol *[core.CycleLength]uint32) (uint32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.solver == nil {
		return 0, core.ErrPluginNotLoaded
	}
	return r.solver.Solve(header, sol), nil
}

// Describe returns the plugin's name and description.
func (r *Registry) Describe() (name, desc string, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.solver == nil {
		return "", "", core.ErrPluginNotLoaded
	}
	nameBuf := make([]byte, describeBufSize)
	descBuf := make([]byte, describeBufSize)
	nameLen := uint32(len(nameBuf))
	descLen := uint32(len(descBuf))
	r.solver.Describe(nameBuf, &nameLen, descBuf, &descLen)
	if nameLen > describeBufSize {
		nameLen = describeBufSize
	}
	if descLen > describeBufSize {
		descLen = describeBufSize
	}
	return string(nameBuf[:nameLen]), string(descBuf[:descLen]), nil
}

// ParameterList fills buf with the plugin's parameter descriptions (a JSON
// array) and returns the number of bytes written. A plugin-reported code 3
// becomes ErrBufferTooSmall; the caller retries with a larger buffer.
func (r *Registry) ParameterList(buf []byte) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.solver == nil {
		return 0, core.ErrPluginNotLoaded
	}
	length := uint32(len(buf))
	switch rc := r.solver.ParameterList(buf, &length); rc {
	case 0:
		if length > uint32(len(buf)) {
			length = uint32(len(buf))
		}
		return int(length), nil
	case 3:
		return 0, core.ErrBufferTooSmall
	default:
		return 0, core.NewUnexpectedResult("parameter_list", rc)
	}
}

// GetParameter reads the named parameter's current value.
func (r *Registry) GetParameter(name string) (uint32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.solver == nil {
		return 0, core.ErrPluginNotLoaded
	}
	var value uint32
	switch rc := r.solver.GetParameter([]byte(name), &value); rc {
	case 0:
		return value, nil
	case 1:
		return 0, core.NewParameterError("parameter " + name + " does not exist for this plugin")
	default:
		return 0, core.NewUnexpectedResult("get_parameter", rc)
	}
}

// SetParameter writes the named parameter.
func (r *Registry) SetParameter(name string, value uint32) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.solver == nil {
		return core.ErrPluginNotLoaded
	}
	switch rc := r.solver.SetParameter([]byte(name), value); rc {
	case 0:
		return nil
	case 1:
		return core.NewParameterError("parameter " + name + " does not exist for this plugin")
	case 2:
		return core.NewParameterError("parameter " + name + " outside allowed range")
	default:
		return core.NewUnexpectedResult("set_parameter", rc)
	}
}

// QueueUnderLimit reports whether the plugin can accept more input.
func (r *Registry) QueueUnderLimit() (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.solver == nil {
		return false, core.ErrPluginNotLoaded
	}
	switch rc := r.solver.QueueUnderLimit(); rc {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, core.NewUnexpectedResult("is_queue_under_limit", rc)
	}
}

// PushInput queues a (header digest, nonce) pair. A false return is flow
// control, not an error: the queue is full or the plugin is shutting down.
func (r *Registry) PushInput(hash []byte, nonce [core.NonceSize]byte) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.solver == nil {
		return false, core.ErrPluginNotLoaded
	}
	switch rc := r.solver.PushInput(hash, &nonce); rc {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, core.NewUnexpectedResult("push_to_input_queue", rc)
	}
}

// ReadOutput pops one solution from the plugin's output queue, or returns
// nil when the queue is empty. Non-blocking; designed to be polled.
func (r *Registry) ReadOutput() (*core.Solution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.solver == nil {
		return nil, core.ErrPluginNotLoaded
	}
	var sol core.Solution
	switch rc := r.solver.ReadOutput(&sol.Nonces, &sol.Nonce); rc {
	case 1:
		return &sol, nil
	case 0:
		return nil, nil
	default:
		return nil, core.NewUnexpectedResult("read_from_output_queue", rc)
	}
}

// StartProcessing starts the plugin's queue-mode processing. Idempotent.
func (r *Registry) StartProcessing() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.solver == nil {
		return core.ErrPluginNotLoaded
	}
	if rc := r.solver.StartProcessing(); rc != 1 {
		return core.NewProcessingError(fmt.Sprintf("start_processing returned %d", rc))
	}
	return nil
}

// StopProcessing requests queue-mode shutdown. The call returns promptly;
// the plugin is expected, not guaranteed, to cease shortly after.
func (r *Registry) StopProcessing() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.solver == nil {
		return core.ErrPluginNotLoaded
	}
	if rc := r.solver.StopProcessing(); rc != 1 {
		return core.NewProcessingError(fmt.Sprintf("stop_processing returned %d", rc))
	}
	return nil
}

// HashesSinceLastCall reads the plugin's hash counter, which resets to zero
// on every successful read.
func (r *Registry) HashesSinceLastCall() (uint32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.solver == nil {
		return 0, core.ErrPluginNotLoaded
	}
	return r.solver.HashesSinceLastCall(), nil
}
