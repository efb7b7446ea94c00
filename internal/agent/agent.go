// Package agent implements the code that runs injected into the compositor
// process on the legacy capture path: it hooks the compositor's swap chain
// Present call, copies frames into the shared texture the viewer created,
// and runs the agent side of the cross-process control plane.
package agent

import "errors"

// ErrNotSupported is the error value for a non-Windows GOOS. Run does not
// return it: the non-Windows Run returns -1.
var ErrNotSupported = errors.New("agent: not supported on this platform")

// ErrNoD3D10 is returned when the compositor process has no D3D10.1
// runtime available, so the Present hook cannot be installed.
var ErrNoD3D10 = errors.New("agent: D3D10.1 not available in this process")

// EntryPointName is the exported symbol name the viewer resolves via
// GetFunctionOffset and starts as a remote thread once the agent DLL is
// loaded into the compositor.
const EntryPointName = "AgentEntryPoint"

// PresentThrottleMillis bounds how often a captured swap chain's back
// buffer is actually copied into the shared texture, independent of how
// often the compositor itself presents.
const PresentThrottleMillis = 50
