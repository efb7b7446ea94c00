// Package capture implements the capture-source abstraction: a modern
// desktop-duplication source and a legacy shared-texture source, dispatched
// over the common Source interface so the renderer never distinguishes
// between them. Platform glue lives in the _windows.go files; pixel-format
// decoding that needs no OS call lives here and in cursor_decode.go so it
// can be unit-tested on any GOOS.
package capture

import "errors"

// ErrNotSupported is returned by every platform entry point on a non-Windows
// GOOS, mirroring the corpus convention of cross-platform-buildable stubs
// for an OS-only feature.
var ErrNotSupported = errors.New("capture: not supported on this platform")

// ErrMonitorNotFound is logged as a warning and leaves the source unbound
// rather than failing hard.
var ErrMonitorNotFound = errors.New("capture: no output matches the requested monitor rectangle")

// MonitorRect is an integer rectangle in virtual-desktop coordinates.
// Invariant: Right > Left, Bottom > Top.
type MonitorRect struct {
	Left, Top, Right, Bottom int32
}

// Valid reports whether the rectangle satisfies the non-empty invariant.
func (m MonitorRect) Valid() bool {
	return m.Right > m.Left && m.Bottom > m.Top
}

// Width and Height return the monitor's pixel dimensions.
func (m MonitorRect) Width() int32  { return m.Right - m.Left }
func (m MonitorRect) Height() int32 { return m.Bottom - m.Top }

// Equal reports whether two rectangles describe the same region.
func (m MonitorRect) Equal(o MonitorRect) bool {
	return m == o
}

// CursorState is the cursor's position in monitor-relative pixels, a
// visibility flag, and the hotspot already applied by the source
// (subtracted from the raw screen position).
type CursorState struct {
	X, Y       int32
	Visible    bool
	HotX, HotY int32
}

// CursorTextureEdge is the fixed cursor texture square edge length.
const CursorTextureEdge = 256

// Source is the capability set the renderer is generic over. The modern
// and legacy sources both implement it; the renderer never distinguishes
// between them beyond this interface.
type Source interface {
	// Reinit (re)binds the source to device and rect. Idempotent: calling
	// it twice with the same arguments must leave the source behaviorally
	// indistinguishable from a single call.
	Reinit(device uintptr, rect MonitorRect) error

	// CreateDesktopTexture creates the desktop texture sized to the bound
	// monitor (shared + render-target-bindable for the legacy source,
	// shader-resource-only for the modern source). Returns the texture's
	// native handle (an ID3D11Texture2D pointer).
	CreateDesktopTexture() (uintptr, error)

	// CreateCursorTexture creates the fixed 256x256 dynamic cursor texture.
	CreateCursorTexture() (uintptr, error)

	// AcquireFrame pulls the next frame if one is available. Must be
	// followed by exactly one ReleaseFrame, even on error.
	AcquireFrame() error

	// UpdateDesktop copies the acquired frame into the given desktop
	// texture. A no-op for the legacy source, whose texture is written
	// out-of-band by the injected agent.
	UpdateDesktop(desktopTexture uintptr) error

	// UpdateCursor rewrites the cursor texture if the shape changed and
	// returns the current cursor state.
	UpdateCursor(cursorTexture uintptr) (CursorState, error)

	// ReleaseFrame releases the frame acquired by AcquireFrame, if any.
	// A no-op when no frame is held.
	ReleaseFrame()

	// Close releases every resource the source owns.
	Close() error
}
