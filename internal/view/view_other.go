//go:build !windows

package view

import (
	"errors"

	"github.com/Happy-Ferret/win32-screen-view/internal/capture"
)

// ErrNotSupported is returned by every entry point on a non-Windows GOOS.
var ErrNotSupported = errors.New("view: not supported on this platform")

// View is an opaque placeholder on non-Windows builds.
type View struct{}

func New(hwnd uintptr, rect capture.MonitorRect, source capture.Source) (*View, error) {
	return nil, ErrNotSupported
}

func (v *View) Resize()                             {}
func (v *View) SetScreen(rect capture.MonitorRect) {}
func (v *View) Close()                              {}
