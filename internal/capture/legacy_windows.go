//go:build windows

package capture

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/Happy-Ferret/win32-screen-view/internal/comhandle"
	"github.com/Happy-Ferret/win32-screen-view/internal/comm"
	"github.com/Happy-Ferret/win32-screen-view/internal/logging"
)

const (
	d3d11ResourceMiscShared = 0x2
	d3d11BindRenderTarget   = 0x20
)

// IDXGIResource, used only to pull the NT shared handle back out of a
// texture created with the shared misc flag.
const vtblResourceGetSharedHandle = 8

var iidIDXGIResource = comhandle.GUID{Data1: 0x035f3ab4, Data2: 0x482e, Data3: 0x4e50, Data4: [8]byte{0xb4, 0x1f, 0x8a, 0x7f, 0x8b, 0xd8, 0x96, 0x0b}}

var (
	gdi32                = syscall.NewLazyDLL("gdi32.dll")
	procGetDIBits         = gdi32.NewProc("GetDIBits")
	procCreateCompatibleDC = gdi32.NewProc("CreateCompatibleDC")
	procDeleteDC          = gdi32.NewProc("DeleteDC")
	procDeleteObject      = gdi32.NewProc("DeleteObject")

	legacyUser32      = syscall.NewLazyDLL("user32.dll")
	procGetCursorPos  = legacyUser32.NewProc("GetCursorPos")
	procGetCursorInfo = legacyUser32.NewProc("GetCursorInfo")
	procGetIconInfo   = legacyUser32.NewProc("GetIconInfo")
)

const cursorShowing = 0x00000001

type cursorInfoW struct {
	CbSize      uint32
	Flags       uint32
	HCursor     uintptr
	PtScreenPos struct{ X, Y int32 }
}

type iconInfoW struct {
	FIcon    int32
	XHotspot uint32
	YHotspot uint32
	HbmMask  uintptr
	HbmColor uintptr
}

type point struct{ X, Y int32 }

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

type bitmapInfo struct {
	Header bitmapInfoHeader
	Colors [2]uint32 // RGBQUAD, only used as scratch space for 1bpp queries
}

const biRGB = 0
const dibRGBColors = 0

// LegacySource implements Source by rendering into a D3D texture shared
// with the compositor process over an NT shared handle, rather than by
// pulling frames itself: the injected agent's hooked Present call is the
// one actually writing pixels into the texture this source creates.
// Cursor tracking, unlike the desktop image, is done locally via GDI
// polling, since the viewer process can call GetCursorPos/GetCursorInfo
// just as well as the agent can.
type LegacySource struct {
	device uintptr
	comm   *comm.ViewerCommunicator

	rect MonitorRect

	lastCursorHandle uintptr
	hotX, hotY       int32
}

// NewLegacySource builds a legacy source bound to communicator c, which
// owns the handshake/injection lifecycle with the compositor process.
func NewLegacySource(c *comm.ViewerCommunicator) *LegacySource {
	return &LegacySource{comm: c}
}

func (s *LegacySource) Reinit(dev uintptr, rect MonitorRect) error {
	s.device = dev
	s.rect = rect
	s.lastCursorHandle = 0
	s.hotX, s.hotY = 0, 0
	s.comm.SendNewScreen(comm.Rect{Left: rect.Left, Top: rect.Top, Right: rect.Right, Bottom: rect.Bottom})
	return nil
}

// CreateDesktopTexture creates a render-target-bindable, NT-shareable
// texture and announces its shared handle to the compositor agent. The
// returned local pointer is what the renderer binds as a shader resource;
// the shared handle sent over the control plane is a distinct, OS-level
// name for the same memory that the agent opens on its own device.
func (s *LegacySource) CreateDesktopTexture() (uintptr, error) {
	desc := d3d11Texture2DDesc{
		Width:       uint32(s.rect.Width()),
		Height:      uint32(s.rect.Height()),
		MipLevels:   1,
		ArraySize:   1,
		Format:      dxgiFormatB8G8R8A8,
		SampleCount: 1,
		Usage:       d3d11UsageDefault,
		BindFlags:   d3d11BindShaderResource | d3d11BindRenderTarget,
		MiscFlags:   d3d11ResourceMiscShared,
	}
	var tex uintptr
	_, err := comhandle.Call(s.device, vtblDeviceCreateTexture2D,
		uintptr(unsafe.Pointer(&desc)), 0, uintptr(unsafe.Pointer(&tex)))
	if err != nil {
		return 0, fmt.Errorf("CreateTexture2D shared desktop: %w", err)
	}

	var resource uintptr
	_, err = comhandle.Call(tex, 0, uintptr(unsafe.Pointer(&iidIDXGIResource)), uintptr(unsafe.Pointer(&resource)))
	if err != nil {
		logging.L("capture.legacy").Warn("QueryInterface IDXGIResource failed", "err", err)
		return tex, nil
	}
	defer comhandle.CallRaw(resource, 2)

	var shared uintptr
	hr, _, _ := syscall.SyscallN(comhandle.VtblFn(resource, vtblResourceGetSharedHandle), resource, uintptr(unsafe.Pointer(&shared)))
	if int32(hr) < 0 {
		logging.L("capture.legacy").Warn("GetSharedHandle failed", "hresult", fmt.Sprintf("0x%08X", uint32(hr)))
		return tex, nil
	}

	s.comm.SendNewTexture(shared)
	return tex, nil
}

func (s *LegacySource) CreateCursorTexture() (uintptr, error) {
	desc := d3d11Texture2DDesc{
		Width:          CursorTextureEdge,
		Height:         CursorTextureEdge,
		MipLevels:      1,
		ArraySize:      1,
		Format:         dxgiFormatB8G8R8A8,
		SampleCount:    1,
		Usage:          d3d11UsageDynamic,
		BindFlags:      d3d11BindShaderResource,
		CPUAccessFlags: d3d11CPUAccessWrite,
	}
	var tex uintptr
	_, err := comhandle.Call(s.device, vtblDeviceCreateTexture2D,
		uintptr(unsafe.Pointer(&desc)), 0, uintptr(unsafe.Pointer(&tex)))
	if err != nil {
		return 0, fmt.Errorf("CreateTexture2D cursor: %w", err)
	}
	return tex, nil
}

// AcquireFrame is a no-op: the injected agent writes the desktop texture
// directly, out-of-band from this process's control flow.
func (s *LegacySource) AcquireFrame() error { return nil }

// UpdateDesktop is a no-op for the same reason.
func (s *LegacySource) UpdateDesktop(desktopTexture uintptr) error { return nil }

func (s *LegacySource) UpdateCursor(cursorTexture uintptr) (CursorState, error) {
	var pos point
	if ret, _, _ := procGetCursorPos.Call(uintptr(unsafe.Pointer(&pos))); ret == 0 {
		return CursorState{}, nil
	}
	var ci cursorInfoW
	ci.CbSize = uint32(unsafe.Sizeof(ci))
	if ret, _, _ := procGetCursorInfo.Call(uintptr(unsafe.Pointer(&ci))); ret == 0 {
		return CursorState{}, nil
	}

	if ci.HCursor != s.lastCursorHandle {
		s.lastCursorHandle = ci.HCursor
		s.updateCursorShape(cursorTexture, ci.HCursor)
	}

	return CursorState{
		X:       pos.X - s.rect.Left - s.hotX,
		Y:       pos.Y - s.rect.Top - s.hotY,
		Visible: ci.Flags&cursorShowing != 0,
		HotX:    s.hotX,
		HotY:    s.hotY,
	}, nil
}

func (s *LegacySource) updateCursorShape(cursorTexture, hcursor uintptr) {
	var ii iconInfoW
	if ret, _, _ := procGetIconInfo.Call(hcursor, uintptr(unsafe.Pointer(&ii))); ret == 0 {
		return
	}
	defer func() {
		if ii.HbmMask != 0 {
			procDeleteObject.Call(ii.HbmMask)
		}
		if ii.HbmColor != 0 {
			procDeleteObject.Call(ii.HbmColor)
		}
	}()
	s.hotX, s.hotY = int32(ii.XHotspot), int32(ii.YHotspot)

	hdc, _, _ := procCreateCompatibleDC.Call(0)
	if hdc == 0 {
		return
	}
	defer procDeleteDC.Call(hdc)

	if ii.HbmColor == 0 {
		s.writeMonochromeShape(cursorTexture, hdc, ii.HbmMask)
	} else {
		s.writeColorShape(cursorTexture, hdc, ii.HbmColor, ii.HbmMask)
	}
}

func (s *LegacySource) writeMonochromeShape(cursorTexture, hdc, hbmMask uintptr) {
	var bmi bitmapInfo
	bmi.Header.Size = uint32(unsafe.Sizeof(bmi.Header))
	if ret, _, _ := procGetDIBits.Call(hdc, hbmMask, 0, 0, 0, uintptr(unsafe.Pointer(&bmi)), dibRGBColors); ret == 0 {
		return
	}
	width := int(bmi.Header.Width)
	fullHeight := abs32(bmi.Header.Height)
	bmi.Header.Height = -fullHeight
	bmi.Header.BitCount = 1
	bmi.Header.Compression = biRGB

	pitch := ((width-1)/32 + 1) * 4
	bits := make([]byte, pitch*int(fullHeight))
	if ret, _, _ := procGetDIBits.Call(hdc, hbmMask, 0, uintptr(fullHeight), uintptr(unsafe.Pointer(&bits[0])), uintptr(unsafe.Pointer(&bmi)), dibRGBColors); ret == 0 {
		return
	}

	patch := MonochromeShapeBGRA(bits, width, int(fullHeight), pitch)
	s.writeCursorTexture(cursorTexture, patch, width, int(fullHeight)/2)
}

func (s *LegacySource) writeColorShape(cursorTexture, hdc, hbmColor, hbmMask uintptr) {
	var bmi bitmapInfo
	bmi.Header.Size = uint32(unsafe.Sizeof(bmi.Header))
	if ret, _, _ := procGetDIBits.Call(hdc, hbmColor, 0, 1, 0, uintptr(unsafe.Pointer(&bmi)), dibRGBColors); ret == 0 {
		return
	}
	width := int(bmi.Header.Width)
	height := abs32(bmi.Header.Height)
	bmi.Header.BitCount = 32
	bmi.Header.Compression = biRGB
	bmi.Header.Height = -height

	colorBits := make([]byte, width*int(height)*4)
	if ret, _, _ := procGetDIBits.Call(hdc, hbmColor, 0, uintptr(height), uintptr(unsafe.Pointer(&colorBits[0])), uintptr(unsafe.Pointer(&bmi)), dibRGBColors); ret == 0 {
		logging.L("capture.legacy").Warn("GetDIBits color plane failed")
		return
	}

	maskBits := make([]byte, width*int(height)*4)
	procGetDIBits.Call(hdc, hbmMask, 0, uintptr(height), uintptr(unsafe.Pointer(&maskBits[0])), uintptr(unsafe.Pointer(&bmi)), dibRGBColors)

	patch := ColorCursorIconBGRA(colorBits, maskBits, width, int(height))
	s.writeCursorTexture(cursorTexture, patch, width, int(height))
}

func (s *LegacySource) writeCursorTexture(cursorTexture uintptr, patch []byte, w, h int) {
	var mapped d3d11MappedSubresource
	var ctx uintptr
	comhandle.CallRaw(s.device, vtblDeviceGetImmediateContext, uintptr(unsafe.Pointer(&ctx)))
	if ctx == 0 {
		return
	}
	defer comhandle.CallRaw(ctx, 2)

	_, err := comhandle.Call(ctx, vtblCtxMap, cursorTexture, 0, d3d11MapWriteDiscard, 0, uintptr(unsafe.Pointer(&mapped)))
	if err != nil {
		return
	}
	canvas := unsafe.Slice((*byte)(unsafe.Pointer(mapped.PData)), CursorTextureEdge*CursorTextureEdge*4)
	BlitClamped(canvas, CursorTextureEdge, patch, w, h)
	comhandle.CallRaw(ctx, vtblCtxUnmap, cursorTexture, 0)
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// ReleaseFrame is a no-op: there is no per-frame handle this source holds.
func (s *LegacySource) ReleaseFrame() {}

func (s *LegacySource) Close() error { return nil }

var _ Source = (*LegacySource)(nil)
