//go:build !cgo || windows
// +build !cgo windows

package plugin

import (
	"errors"

	"cyclemine/pkg/mining/core"
)

// OpenLibrary stub for builds without cgo dynamic loading support.
func OpenLibrary(path string) (Solver, error) {
	return nil, core.NewPluginNotFound(path,
		errors.New("native plugin loading requires a cgo build on linux or darwin"))
}
