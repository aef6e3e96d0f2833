// Package solver implements the Solve loop: the callback-scheduling,
// residual-polling orchestration that drives a Backend to convergence
// or a stopping condition, plus the process-wide module lifecycle
// (init/release refcount, selected GPU index, constant-memory reset)
// every Solve call depends on.
package solver

import (
	"log/slog"
	"sync"

	"github.com/cwbudde/prostsolve/internal/device"
	"github.com/cwbudde/prostsolve/internal/solverr"
)

// lifecycle guards the process-global module state: the reference
// count from init/release, and the currently selected GPU device
// index. Mirrors the mutex-guarded singleton shape of the teacher's
// JobManager, scaled down to a package-level instance since there is
// exactly one module lifecycle per process.
type lifecycle struct {
	mu          sync.Mutex
	refCount    int
	selectedGPU int
	platforms   []device.PlatformInfo
}

var global = &lifecycle{selectedGPU: -1}

// Init acquires the module, reference-counting up. The first caller in
// a process enumerates available GPU platforms; later callers reuse
// the cached list.
func Init() error {
	global.mu.Lock()
	defer global.mu.Unlock()

	if global.refCount == 0 {
		platforms, err := device.EnumeratePlatforms()
		if err != nil {
			slog.Warn("GPU enumeration failed, continuing without GPU devices", "error", err)
		} else {
			global.platforms = platforms
		}
	}
	global.refCount++
	slog.Debug("module acquired", "ref_count", global.refCount)
	return nil
}

// Release drops the reference count; at zero it resets the selected
// GPU device so the next Init starts from a clean slate.
func Release() error {
	global.mu.Lock()
	defer global.mu.Unlock()

	if global.refCount == 0 {
		return solverr.New(solverr.KindInvalidState, "solver.Release: module not initialized")
	}
	global.refCount--
	if global.refCount == 0 {
		global.selectedGPU = -1
		global.platforms = nil
	}
	slog.Debug("module released", "ref_count", global.refCount)
	return nil
}

// SetGPU updates the process-wide selected device index.
func SetGPU(id int) error {
	global.mu.Lock()
	defer global.mu.Unlock()

	if global.refCount == 0 {
		return solverr.New(solverr.KindInvalidState, "solver.SetGPU: module not initialized")
	}
	global.selectedGPU = id
	return nil
}

// ListGPUs returns the cached platform/device enumeration from the
// last Init.
func ListGPUs() ([]device.PlatformInfo, error) {
	global.mu.Lock()
	defer global.mu.Unlock()

	if global.refCount == 0 {
		return nil, solverr.New(solverr.KindInvalidState, "solver.ListGPUs: module not initialized")
	}
	return global.platforms, nil
}

// resetConstantMemory clears the process-wide constant-memory region
// diagonal-block representations share, invoked before every Solve to
// avoid cross-instance interference between unrelated problems running
// sequentially against the same selected device. The CPU build has no
// real constant memory to reset; this is a no-op placeholder that the
// gpu-tagged device backend would wire to an actual device clear.
func resetConstantMemory() {
	slog.Debug("constant memory reset")
}
