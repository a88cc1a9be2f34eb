// Package discovery enumerates candidate solver plugins in a directory and
// reports what each one declares about itself, alongside the capabilities of
// the host machine. It is purely a consumer of the plugin call surface.
package discovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"cyclemine/pkg/mining/core"
	"cyclemine/pkg/mining/plugin"
)

const (
	initialParamBufSize = 1024
	maxParamBufSize     = 64 * 1024
)

// ParamDescriptor is one entry of the JSON parameter list a plugin reports.
type ParamDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	DefaultVal  uint32 `json:"default_value"`
	MinVal      uint32 `json:"min_value"`
	MaxVal      uint32 `json:"max_value"`
}

// PluginInfo describes one discovered plugin.
type PluginInfo struct {
	FullPath    string            `json:"full_path"`
	FileName    string            `json:"file_name"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Parameters  []ParamDescriptor `json:"parameters,omitempty"`

	// RawParameters keeps the plugin's parameter list verbatim when it is
	// not parseable as the expected JSON array.
	RawParameters string `json:"raw_parameters,omitempty"`

	Error string `json:"error,omitempty"`
}

// HostCapabilities reports the machine the plugins would run on, so callers
// can match plugin variants (thread counts, memory-hungry trimmers) to it.
type HostCapabilities struct {
	CPUModel      string `json:"cpu_model"`
	LogicalCores  int    `json:"logical_cores"`
	TotalMemoryMB uint64 `json:"total_memory_mb"`
}

// Scanner probes plugins through a configurable opener, so tests can run it
// against stub solvers.
type Scanner struct {
	opener plugin.Opener
	log    *zap.SugaredLogger
}

// NewScanner returns a scanner using the native library opener.
func NewScanner(log *zap.SugaredLogger) *Scanner {
	return NewScannerWithOpener(plugin.OpenLibrary, log)
}

// NewScannerWithOpener returns a scanner with an injected opener.
func NewScannerWithOpener(opener plugin.Opener, log *zap.SugaredLogger) *Scanner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scanner{opener: opener, log: log}
}

// Scan enumerates plugin libraries in dir (filtered by substring when filter
// is non-empty) and probes each one for its name, description, and parameter
// list. Probing is sequential: only one plugin is active at a time. A plugin
// that fails to probe is reported with its error rather than aborting the
// scan.
func (s *Scanner) Scan(dir, filter string) ([]PluginInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading plugin directory %s: %w", dir, err)
	}

	var infos []PluginInfo
	for _, entry := range entries {
		if entry.IsDir() || !isPluginFile(entry.Name()) {
			continue
		}
		if filter != "" && !strings.Contains(entry.Name(), filter) {
			continue
		}
		full := filepath.Join(dir, entry.Name())
		info := s.probe(full)
		info.FileName = entry.Name()
		infos = append(infos, info)
	}
	return infos, nil
}

func isPluginFile(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".so" || ext == ".dylib"
}

// probe loads the plugin into a fresh registry, reads its self-description
// once, and unloads it again.
func (s *Scanner) probe(path string) PluginInfo {
	info := PluginInfo{FullPath: path}

	reg := plugin.NewRegistry(s.opener, s.log)
	if err := reg.Load(path); err != nil {
		s.log.Warnw("plugin failed to load during scan", "path", path, "error", err)
		info.Error = err.Error()
		return info
	}
	defer reg.Unload()

	name, desc, err := reg.Describe()
	if err != nil {
		info.Error = err.Error()
		return info
	}
	info.Name = name
	info.Description = desc

	raw, err := s.parameterList(reg)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	if err := json.Unmarshal(raw, &info.Parameters); err != nil {
		info.RawParameters = string(raw)
	}
	return info
}

// parameterList reads the plugin's parameter list, retrying with a doubled
// buffer while the plugin reports it as too small, up to a bound.
func (s *Scanner) parameterList(reg *plugin.Registry) ([]byte, error) {
	for size := initialParamBufSize; size <= maxParamBufSize; size *= 2 {
		buf := make([]byte, size)
		n, err := reg.ParameterList(buf)
		if err == nil {
			return buf[:n], nil
		}
		if !errors.Is(err, core.ErrBufferTooSmall) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("plugin parameter list exceeds %d bytes", maxParamBufSize)
}

// HostInfo reports the CPU and memory of this machine.
func HostInfo() (*HostCapabilities, error) {
	caps := &HostCapabilities{}

	infos, err := cpu.Info()
	if err != nil {
		return nil, fmt.Errorf("reading cpu info: %w", err)
	}
	if len(infos) > 0 {
		caps.CPUModel = infos[0].ModelName
	}
	if count, err := cpu.Counts(true); err == nil {
		caps.LogicalCores = count
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("reading memory info: %w", err)
	}
	caps.TotalMemoryMB = vm.Total / (1024 * 1024)

	return caps, nil
}
