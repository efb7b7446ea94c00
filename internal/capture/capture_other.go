//go:build !windows

package capture

import "github.com/Happy-Ferret/win32-screen-view/internal/comm"

// ModernSource is an opaque placeholder on non-Windows builds.
type ModernSource struct{}

func NewModernSource() *ModernSource { return &ModernSource{} }

func (s *ModernSource) Reinit(device uintptr, rect MonitorRect) error { return ErrNotSupported }
func (s *ModernSource) CreateDesktopTexture() (uintptr, error)        { return 0, ErrNotSupported }
func (s *ModernSource) CreateCursorTexture() (uintptr, error)         { return 0, ErrNotSupported }
func (s *ModernSource) AcquireFrame() error                           { return ErrNotSupported }
func (s *ModernSource) UpdateDesktop(desktopTexture uintptr) error    { return ErrNotSupported }
func (s *ModernSource) UpdateCursor(cursorTexture uintptr) (CursorState, error) {
	return CursorState{}, ErrNotSupported
}
func (s *ModernSource) ReleaseFrame() {}
func (s *ModernSource) Close() error  { return nil }

var _ Source = (*ModernSource)(nil)

// LegacySource is an opaque placeholder on non-Windows builds.
type LegacySource struct{}

func NewLegacySource(c *comm.ViewerCommunicator) *LegacySource { return &LegacySource{} }

func (s *LegacySource) Reinit(device uintptr, rect MonitorRect) error { return ErrNotSupported }
func (s *LegacySource) CreateDesktopTexture() (uintptr, error)        { return 0, ErrNotSupported }
func (s *LegacySource) CreateCursorTexture() (uintptr, error)         { return 0, ErrNotSupported }
func (s *LegacySource) AcquireFrame() error                           { return ErrNotSupported }
func (s *LegacySource) UpdateDesktop(desktopTexture uintptr) error    { return ErrNotSupported }
func (s *LegacySource) UpdateCursor(cursorTexture uintptr) (CursorState, error) {
	return CursorState{}, ErrNotSupported
}
func (s *LegacySource) ReleaseFrame() {}
func (s *LegacySource) Close() error  { return nil }

var _ Source = (*LegacySource)(nil)
