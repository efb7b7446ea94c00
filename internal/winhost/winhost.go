// Package winhost implements the external collaborators the capture
// pipeline treats as given: window-class registration and message-pump
// plumbing for message-only windows, a "call_soon" deferred-action
// primitive, and the modern/legacy OS version dispatch. None of this is
// part of the capture pipeline itself; it exists so internal/comm and
// internal/agent have somewhere to create their message windows.
package winhost

import "errors"

// ErrNotSupported is returned by every entry point on a non-Windows GOOS.
var ErrNotSupported = errors.New("winhost: not supported on this platform")

// OSGeneration is the coarse OS dispatch: version >= 6.2 gets the modern
// desktop-duplication source, version == 6.1 gets the legacy
// compositor-injection source, anything older gets neither.
type OSGeneration int

const (
	OSUnsupported OSGeneration = iota
	OSLegacy                   // Windows 7 (6.1): no desktop duplication, inject into DWM
	OSModern                   // Windows 8/8.1/10/11 (>= 6.2): desktop duplication
)
