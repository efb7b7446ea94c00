// Package dynlib is a thin, cached wrapper around LoadLibrary/GetProcAddress
// so every package that needs an occasional Win32 entry point doesn't
// hand-roll its own syscall.NewLazyDLL bookkeeping.
package dynlib

import "errors"

// ErrNotSupported is returned on a non-Windows GOOS.
var ErrNotSupported = errors.New("dynlib: not supported on this platform")
