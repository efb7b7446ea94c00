// Package inject implements the cross-process code-injection primitive: PID
// lookup by image name, remote-module presence checks, local function-offset
// resolution, and a remote-thread call. It is used exactly twice per agent
// launch: once to LoadLibrary the agent DLL into the compositor process,
// once to call the agent's exported entry point there.
package inject

import "errors"

// ErrProcessNotFound is returned when no running process matches the
// requested image name.
var ErrProcessNotFound = errors.New("inject: no process with that image name")

// ErrModuleNotFound is returned when the target module is not loaded in the
// local process (so its exported function cannot be resolved) or, for
// call_remote_func, not loaded in the remote process.
var ErrModuleNotFound = errors.New("inject: module not found")

// ErrFunctionNotFound is returned when the named function cannot be
// resolved in a loaded module.
var ErrFunctionNotFound = errors.New("inject: function not found")

// maxSnapshotRetries bounds the ERROR_BAD_LENGTH retry loop around
// CreateToolhelp32Snapshot; the original retries unconditionally, which can
// spin forever against a process whose module list keeps changing.
const maxSnapshotRetries = 64
