//go:build !windows

package gfx

import (
	"errors"

	"github.com/Happy-Ferret/win32-screen-view/internal/capture"
)

// ErrNotSupported is returned by every entry point on a non-Windows GOOS.
var ErrNotSupported = errors.New("gfx: not supported on this platform")

// Renderer is an opaque placeholder on non-Windows builds.
type Renderer struct{}

func NewRenderer(hwnd uintptr, clientW, clientH uint32, source capture.Source) (*Renderer, error) {
	return nil, ErrNotSupported
}

func (r *Renderer) Resize(clientW, clientH uint32) error       { return ErrNotSupported }
func (r *Renderer) Reset(rect capture.MonitorRect) error        { return ErrNotSupported }
func (r *Renderer) Render() error                               { return ErrNotSupported }
func (r *Renderer) Close() error                                { return ErrNotSupported }
