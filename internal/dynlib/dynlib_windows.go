//go:build windows

package dynlib

import (
	"fmt"
	"sync"

	"golang.org/x/sys/windows"
)

// Library is a handle to a loaded module, plus a per-proc cache so
// repeated Proc lookups don't re-resolve the same name.
type Library struct {
	name string

	mu     sync.Mutex
	handle windows.Handle
	procs  map[string]uintptr
}

// Load opens name (e.g. "user32.dll") via LoadLibrary. Every call returns a
// new Library with its own proc cache; libraries are not shared between
// calls.
func Load(name string) (*Library, error) {
	handle, err := windows.LoadLibrary(name)
	if err != nil {
		return nil, fmt.Errorf("LoadLibrary(%s): %w", name, err)
	}
	return &Library{name: name, handle: handle, procs: make(map[string]uintptr)}, nil
}

// Proc resolves functionName via GetProcAddress, caching the result.
func (l *Library) Proc(functionName string) (uintptr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if addr, ok := l.procs[functionName]; ok {
		return addr, nil
	}
	addr, err := windows.GetProcAddress(l.handle, functionName)
	if err != nil {
		return 0, fmt.Errorf("GetProcAddress(%s!%s): %w", l.name, functionName, err)
	}
	l.procs[functionName] = addr
	return addr, nil
}

// Handle returns the module's base address, usable as an HMODULE.
func (l *Library) Handle() windows.Handle { return l.handle }

// Close releases the library via FreeLibrary.
func (l *Library) Close() error {
	return windows.FreeLibrary(l.handle)
}
