// Package plugin hosts dynamically loaded cycle-solver libraries and exposes
// their fixed 12-entry ABI as typed Go calls. The Registry owns at most one
// loaded solver; the native library backend keeps every resolved function
// pointer inside the handle that owns it, so pointers can never outlive the
// library.
package plugin

import (
	"cyclemine/pkg/mining/core"
)

// Symbol names of the 12 entry points every solver plugin must export.
const (
	SymInit                = "cuckoo_init"
	SymCall                = "cuckoo_call"
	SymDescription         = "cuckoo_description"
	SymParameterList       = "cuckoo_parameter_list"
	SymGetParameter        = "cuckoo_get_parameter"
	SymSetParameter        = "cuckoo_set_parameter"
	SymIsQueueUnderLimit   = "cuckoo_is_queue_under_limit"
	SymPushToInputQueue    = "cuckoo_push_to_input_queue"
	SymReadFromOutputQueue = "cuckoo_read_from_output_queue"
	SymStartProcessing     = "cuckoo_start_processing"
	SymStopProcessing      = "cuckoo_stop_processing"
	SymHashesSinceLastCall = "cuckoo_hashes_since_last_call"
)

// Symbols lists every required entry point, in resolution order.
var Symbols = []string{
	SymInit,
	SymCall,
	SymDescription,
	SymParameterList,
	SymGetParameter,
	SymSetParameter,
	SymIsQueueUnderLimit,
	SymPushToInputQueue,
	SymReadFromOutputQueue,
	SymStartProcessing,
	SymStopProcessing,
	SymHashesSinceLastCall,
}

// Solver is the raw call surface of a loaded plugin. Methods return the
// plugin's numeric contract codes untranslated; the Registry maps them to
// typed results. Implemented by the native dlopen-backed library and by test
// stubs.
type Solver interface {
	// Init invokes the plugin's one-time initializer.
	Init()

	// Solve runs a synchronous cycle search over the header digest,
	// filling sol on success. Returns 1 found, 0 not found. May block.
	Solve(header []byte, sol *[core.CycleLength]uint32) uint32

	// Describe writes the plugin name and description into the supplied
	// buffers; the length pointers carry capacity in and bytes written out.
	Describe(name []byte, nameLen *uint32, desc []byte, descLen *uint32)

	// ParameterList writes the plugin's parameter descriptions (a JSON
	// array) into buf. Returns 0 ok, 3 buffer too small.
	ParameterList(buf []byte, length *uint32) uint32

	// GetParameter reads a named parameter. Returns 0 ok, 1 not found.
	GetParameter(name []byte, value *uint32) uint32

	// SetParameter writes a named parameter. Returns 0 ok, 1 not found,
	// 2 out of range.
	SetParameter(name []byte, value uint32) uint32

	// QueueUnderLimit reports input queue capacity: 1 can accept more,
	// 0 full.
	QueueUnderLimit() uint32

	// PushInput queues a (header digest, nonce) pair for processing.
	// Returns 1 accepted, 0 rejected (full or shutting down).
	PushInput(hash []byte, nonce *[core.NonceSize]byte) uint32

	// ReadOutput pops one solution from the output queue if available.
	// Returns 1 popped, 0 empty. Never blocks.
	ReadOutput(sol *[core.CycleLength]uint32, nonce *[core.NonceSize]byte) uint32

	// StartProcessing starts queue-mode processing. Idempotent. Returns 1
	// on success.
	StartProcessing() uint32

	// StopProcessing requests queue-mode shutdown. Returns promptly; the
	// plugin is expected, not guaranteed, to cease shortly after.
	StopProcessing() uint32

	// HashesSinceLastCall reads and resets the plugin's hash counter.
	HashesSinceLastCall() uint32

	// Close releases the underlying library. No Solver method may be
	// called afterwards.
	Close() error
}

// Opener opens a plugin library at path and returns its call surface. The
// production opener is OpenLibrary; tests inject their own.
type Opener func(path string) (Solver, error)

// resolveAll resolves every required symbol through lookup into a
// name-to-pointer table. It either resolves all 12 entry points or fails with
// a SymbolResolution error and no table at all, so callers can never observe
// a half-populated slot set.
func resolveAll[P any](lookup func(name string) (P, error)) (map[string]P, error) {
	table := make(map[string]P, len(Symbols))
	for _, name := range Symbols {
		ptr, err := lookup(name)
		if err != nil {
			return nil, core.NewSymbolResolution(name, err)
		}
		table[name] = ptr
	}
	return table, nil
}
