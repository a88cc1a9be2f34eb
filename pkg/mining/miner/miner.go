// Package miner is the main entry point for callers: it loads a solver
// plugin, applies its parameters, and mines candidate headers either
// synchronously (Mine) or asynchronously in queue mode (Notify).
package miner

import (
	"encoding/hex"
	"fmt"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"

	"cyclemine/pkg/mining/core"
	"cyclemine/pkg/mining/plugin"
)

// Config holds everything needed to construct a Miner.
type Config struct {
	// PluginPath is the full path to the solver library to load.
	PluginPath string `json:"plugin_path"`

	// Parameters are applied to the plugin in full or not at all during
	// construction.
	Parameters map[string]uint32 `json:"parameters,omitempty"`

	// Difficulty overrides the solution acceptance policy for
	// asynchronous jobs. Defaults to core.MeetsDifficulty.
	Difficulty core.DifficultyFunc `json:"-"`

	// Logger receives structured logs from the miner and its job loops.
	// Defaults to a nop logger.
	Logger *zap.SugaredLogger `json:"-"`
}

// Miner owns a loaded, fully parameterized plugin. Mine runs one synchronous
// solve; Notify consumes the miner and hands the plugin over to a background
// job loop.
type Miner struct {
	cfg      Config
	registry *plugin.Registry
	log      *zap.SugaredLogger
	consumed atomic.Bool
}

// New loads the configured plugin and applies every configured parameter.
// Any single failure, load or parameter, unloads the plugin and aborts
// construction: a partially parameterized plugin is never handed back.
func New(cfg Config) (*Miner, error) {
	return NewWithOpener(cfg, plugin.OpenLibrary)
}

// NewWithOpener is New with an injected library opener, for callers that
// load plugins through something other than the native dlopen path.
func NewWithOpener(cfg Config, opener plugin.Opener) (*Miner, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	registry := plugin.NewRegistry(opener, log)
	if err := registry.Load(cfg.PluginPath); err != nil {
		return nil, err
	}

	// Sorted application keeps logs and failure positions deterministic.
	names := make([]string, 0, len(cfg.Parameters))
	for name := range cfg.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value := cfg.Parameters[name]
		if err := registry.SetParameter(name, value); err != nil {
			registry.Unload()
			return nil, fmt.Errorf("setting plugin parameter %s=%d: %w", name, value, err)
		}
		log.Debugw("plugin parameter applied", "name", name, "value", value)
	}

	return &Miner{cfg: cfg, registry: registry, log: log}, nil
}

// Mine performs one synchronous solve over the given header digest, filling
// sol if a cycle is found. Returns true iff the plugin reports a solution;
// any return code outside the documented 0/1 contract is an UnexpectedResult
// error. Retry policy is the caller's responsibility.
func (m *Miner) Mine(header []byte, sol *core.Solution) (bool, error) {
	if m.consumed.Load() {
		return false, core.NewProcessingError("miner has been consumed by notify")
	}
	rc, err := m.registry.Solve(header, &sol.Nonces)
	if err != nil {
		return false, err
	}
	switch rc {
	case 1:
		m.log.Debugw("solution found")
		return true, nil
	case 0:
		return false, nil
	default:
		return false, core.NewUnexpectedResult("call", rc)
	}
}

// Notify transitions the miner into asynchronous queue mode: it spawns a
// dedicated job loop that mutates the supplied header fragments with fresh
// nonces, keeps the plugin's input queue full, and filters claimed solutions
// against the target difficulty. The pre- and post-nonce fragments are hex
// strings; the nonce is spliced between them.
//
// Notify consumes the miner: the transition is one-way, and any later Mine
// or Notify call fails. All further interaction happens through the returned
// JobHandle.
func (m *Miner) Notify(jobID uint32, preNonce, postNonce string, difficulty uint64) (*JobHandle, error) {
	pre, err := hex.DecodeString(preNonce)
	if err != nil {
		return nil, fmt.Errorf("decoding pre-nonce fragment: %w", err)
	}
	post, err := hex.DecodeString(postNonce)
	if err != nil {
		return nil, fmt.Errorf("decoding post-nonce fragment: %w", err)
	}

	if !m.consumed.CompareAndSwap(false, true) {
		return nil, core.NewProcessingError("miner has been consumed by notify")
	}

	d := newDelegator(jobConfig{
		id:         jobID,
		preNonce:   pre,
		postNonce:  post,
		difficulty: difficulty,
	}, m.registry, m.cfg.Difficulty, m.log)
	d.start()
	return &JobHandle{d: d}, nil
}

// Describe returns the loaded plugin's name and description.
func (m *Miner) Describe() (name, desc string, err error) {
	return m.registry.Describe()
}

// GetParameter reads a plugin parameter's current value.
func (m *Miner) GetParameter(name string) (uint32, error) {
	return m.registry.GetParameter(name)
}

// Registry exposes the underlying call surface, for consumers like the
// discovery scanner that probe plugins directly.
func (m *Miner) Registry() *plugin.Registry {
	return m.registry
}

// Close unloads the plugin. The caller stops any running job first.
func (m *Miner) Close() {
	m.registry.Unload()
}
