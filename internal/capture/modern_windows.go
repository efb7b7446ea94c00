//go:build windows

package capture

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/Happy-Ferret/win32-screen-view/internal/comhandle"
	"github.com/Happy-Ferret/win32-screen-view/internal/logging"
)

const (
	dxgiFormatB8G8R8A8 = 87

	d3d11UsageDefault = 0
	d3d11UsageDynamic = 2

	d3d11BindShaderResource = 0x8
	d3d11CPUAccessWrite     = 0x10000

	d3d11MapWriteDiscard = 4

	dxgiErrWaitTimeout = 0x887A0027
	dxgiErrAccessLost  = 0x887A0026

	vtblDXGIDeviceGetAdapter       = 7
	vtblDXGIAdapterEnumOutputs     = 7
	vtblDXGIOutput1DuplicateOutput = 22
	vtblDXGIOutputGetDesc          = 7
	vtblDuplAcquireNextFrame       = 8
	vtblDuplGetFramePointerShape   = 11
	vtblDuplReleaseFrame           = 14
	vtblDeviceCreateTexture2D      = 5
	vtblDeviceGetImmediateContext  = 40
	vtblCtxMap                     = 14
	vtblCtxUnmap                   = 15
	vtblCtxCopyResource            = 47
)

var (
	iidIDXGIDevice     = comhandle.GUID{Data1: 0x54ec77fa, Data2: 0x1377, Data3: 0x44e6, Data4: [8]byte{0x8c, 0x32, 0x88, 0xfd, 0x5f, 0x44, 0xc8, 0x4c}}
	iidIDXGIOutput1    = comhandle.GUID{Data1: 0x00cddea8, Data2: 0x939b, Data3: 0x4b83, Data4: [8]byte{0xa3, 0x40, 0xa6, 0x85, 0x22, 0x66, 0x66, 0xcc}}
	iidID3D11Texture2D = comhandle.GUID{Data1: 0x6f15aaf2, Data2: 0xd208, Data3: 0x4e89, Data4: [8]byte{0x9a, 0xb4, 0x48, 0x95, 0x35, 0xd3, 0x4f, 0x9c}}
)

type dxgiRational struct{ Numerator, Denominator uint32 }

type dxgiModeDesc struct {
	Width, Height    uint32
	RefreshRate      dxgiRational
	Format           uint32
	ScanlineOrdering uint32
	Scaling          uint32
}

type dxgiOutputDesc struct {
	DeviceName        [32]uint16
	Left, Top         int32
	Right, Bottom     int32
	AttachedToDesktop int32
	Rotation          uint32
	Monitor           uintptr
}

type dxgiOutDuplFrameInfo struct {
	LastPresentTime           int64
	LastMouseUpdateTime       int64
	AccumulatedFrames         uint32
	RectsCoalesced            int32
	ProtectedContentMaskedOut int32
	PointerPositionX          int32
	PointerPositionY          int32
	PointerVisible            int32
	TotalMetadataBufferSize   uint32
	PointerShapeBufferSize    uint32
}

type d3d11Texture2DDesc struct {
	Width, Height  uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         uint32
	SampleCount    uint32
	SampleQuality  uint32
	Usage          uint32
	BindFlags      uint32
	CPUAccessFlags uint32
	MiscFlags      uint32
}

type d3d11MappedSubresource struct {
	PData      uintptr
	RowPitch   uint32
	DepthPitch uint32
}

// pointerShapeKind mirrors DXGI_OUTDUPL_POINTER_SHAPE_TYPE.
const (
	pointerShapeMonochrome  = 1
	pointerShapeColor       = 2
	pointerShapeMaskedColor = 4
)

type dxgiOutDuplPointerShapeInfo struct {
	Type    uint32
	Width   uint32
	Height  uint32
	Pitch   uint32
	HotSpot struct{ X, Y int32 }
}

// ModernSource implements Source over the desktop-duplication API. One
// instance is bound to exactly one device and monitor rectangle at a time;
// its acquired-frame state is instance-local, never shared.
type ModernSource struct {
	device  uintptr
	context uintptr

	output      uintptr // IDXGIOutput1, kept for rebind
	duplication uintptr

	rect  MonitorRect
	bound bool

	frameAcquired bool
	lastResource  uintptr
	lastFrameInfo dxgiOutDuplFrameInfo

	shapeBuf []byte
}

func NewModernSource() *ModernSource {
	return &ModernSource{}
}

func (s *ModernSource) Reinit(dev uintptr, rect MonitorRect) error {
	if s.bound && s.device == dev && s.rect.Equal(rect) {
		return nil
	}
	s.releaseDuplication()
	s.device = dev
	s.rect = rect

	if s.context == 0 || s.device != dev {
		var ctx uintptr
		comhandle.CallRaw(dev, vtblDeviceGetImmediateContext, uintptr(unsafe.Pointer(&ctx)))
		s.context = ctx
	}
	return s.bind()
}

func (s *ModernSource) bind() error {
	var dxgiDevice uintptr
	_, err := comhandle.Call(s.device, 0,
		uintptr(unsafe.Pointer(&iidIDXGIDevice)), uintptr(unsafe.Pointer(&dxgiDevice)))
	if err != nil {
		return fmt.Errorf("QueryInterface IDXGIDevice: %w", err)
	}
	defer comhandle.CallRaw(dxgiDevice, 2)

	var adapter uintptr
	_, err = comhandle.Call(dxgiDevice, vtblDXGIDeviceGetAdapter, uintptr(unsafe.Pointer(&adapter)))
	if err != nil {
		return fmt.Errorf("IDXGIDevice::GetAdapter: %w", err)
	}
	defer comhandle.CallRaw(adapter, 2)

	for i := 0; ; i++ {
		var output uintptr
		hr, _, _ := syscall.SyscallN(comhandle.VtblFn(adapter, vtblDXGIAdapterEnumOutputs), adapter, uintptr(i), uintptr(unsafe.Pointer(&output)))
		if int32(hr) < 0 {
			break
		}

		var desc dxgiOutputDesc
		syscall.SyscallN(comhandle.VtblFn(output, vtblDXGIOutputGetDesc), output, uintptr(unsafe.Pointer(&desc)))

		if desc.Left == s.rect.Left && desc.Top == s.rect.Top && desc.Right == s.rect.Right && desc.Bottom == s.rect.Bottom {
			var output1 uintptr
			_, err := comhandle.Call(output, 0, uintptr(unsafe.Pointer(&iidIDXGIOutput1)), uintptr(unsafe.Pointer(&output1)))
			comhandle.CallRaw(output, 2)
			if err != nil {
				return fmt.Errorf("QueryInterface IDXGIOutput1: %w", err)
			}

			var duplication uintptr
			_, err = comhandle.Call(output1, vtblDXGIOutput1DuplicateOutput, s.device, uintptr(unsafe.Pointer(&duplication)))
			if err != nil {
				comhandle.CallRaw(output1, 2)
				return fmt.Errorf("IDXGIOutput1::DuplicateOutput: %w", err)
			}
			s.output = output1
			s.duplication = duplication
			s.bound = true
			return nil
		}
		comhandle.CallRaw(output, 2)
	}

	s.bound = false
	return ErrMonitorNotFound
}

func (s *ModernSource) releaseDuplication() {
	if s.frameAcquired && s.duplication != 0 {
		syscall.SyscallN(comhandle.VtblFn(s.duplication, vtblDuplReleaseFrame), s.duplication)
		s.frameAcquired = false
		s.lastResource = 0
	}
	if s.duplication != 0 {
		comhandle.CallRaw(s.duplication, 2)
		s.duplication = 0
	}
	if s.output != 0 {
		comhandle.CallRaw(s.output, 2)
		s.output = 0
	}
	s.bound = false
}

func (s *ModernSource) CreateDesktopTexture() (uintptr, error) {
	desc := d3d11Texture2DDesc{
		Width:       uint32(s.rect.Width()),
		Height:      uint32(s.rect.Height()),
		MipLevels:   1,
		ArraySize:   1,
		Format:      dxgiFormatB8G8R8A8,
		SampleCount: 1,
		Usage:       d3d11UsageDefault,
		BindFlags:   d3d11BindShaderResource,
	}
	var tex uintptr
	_, err := comhandle.Call(s.device, vtblDeviceCreateTexture2D,
		uintptr(unsafe.Pointer(&desc)), 0, uintptr(unsafe.Pointer(&tex)))
	if err != nil {
		return 0, fmt.Errorf("CreateTexture2D desktop: %w", err)
	}
	return tex, nil
}

func (s *ModernSource) CreateCursorTexture() (uintptr, error) {
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

func (s *ModernSource) AcquireFrame() error {
	if !s.bound {
		return nil
	}
	var frameInfo dxgiOutDuplFrameInfo
	var resource uintptr
	hr, _, _ := syscall.SyscallN(
		comhandle.VtblFn(s.duplication, vtblDuplAcquireNextFrame),
		s.duplication, uintptr(100),
		uintptr(unsafe.Pointer(&frameInfo)), uintptr(unsafe.Pointer(&resource)),
	)
	hresult := uint32(hr)
	switch hresult {
	case 0:
		s.lastResource = resource
		s.lastFrameInfo = frameInfo
		s.frameAcquired = true
		return nil
	case dxgiErrWaitTimeout:
		return nil
	case dxgiErrAccessLost:
		logging.L("capture.modern").Warn("access lost, rebinding")
		s.releaseDuplication()
		return s.bind()
	default:
		logging.L("capture.modern").Warn("AcquireNextFrame failed", "hresult", fmt.Sprintf("0x%08X", hresult))
		return nil
	}
}

func (s *ModernSource) UpdateDesktop(desktopTexture uintptr) error {
	if !s.frameAcquired || s.lastFrameInfo.LastPresentTime == 0 {
		return nil
	}
	var texture uintptr
	_, err := comhandle.Call(s.lastResource, 0, uintptr(unsafe.Pointer(&iidID3D11Texture2D)), uintptr(unsafe.Pointer(&texture)))
	if err != nil {
		return fmt.Errorf("QueryInterface ID3D11Texture2D: %w", err)
	}
	defer comhandle.CallRaw(texture, 2)
	syscall.SyscallN(comhandle.VtblFn(s.context, vtblCtxCopyResource), s.context, desktopTexture, texture)
	return nil
}

func (s *ModernSource) UpdateCursor(cursorTexture uintptr) (CursorState, error) {
	state := CursorState{}
	if s.lastFrameInfo.PointerVisible != 0 {
		state.Visible = true
		state.X = s.lastFrameInfo.PointerPositionX
		state.Y = s.lastFrameInfo.PointerPositionY
	}

	if s.lastFrameInfo.PointerShapeBufferSize > 0 && s.duplication != 0 {
		if cap(s.shapeBuf) < int(s.lastFrameInfo.PointerShapeBufferSize) {
			s.shapeBuf = make([]byte, s.lastFrameInfo.PointerShapeBufferSize)
		}
		buf := s.shapeBuf[:s.lastFrameInfo.PointerShapeBufferSize]
		var info dxgiOutDuplPointerShapeInfo
		var used uint32
		hr, _, _ := syscall.SyscallN(
			comhandle.VtblFn(s.duplication, vtblDuplGetFramePointerShape),
			s.duplication,
			uintptr(len(buf)),
			uintptr(unsafe.Pointer(&buf[0])),
			uintptr(unsafe.Pointer(&used)),
			uintptr(unsafe.Pointer(&info)),
		)
		if int32(hr) >= 0 {
			var patch []byte
			patchH := int(info.Height)
			switch info.Type {
			case pointerShapeColor:
				patch = ColorShapeBGRA(buf, int(info.Width), int(info.Height), int(info.Pitch))
			case pointerShapeMaskedColor:
				patch = MaskedColorShapeBGRA(buf, int(info.Width), int(info.Height), int(info.Pitch))
			case pointerShapeMonochrome:
				patch = MonochromeShapeBGRA(buf, int(info.Width), int(info.Height), int(info.Pitch))
				patchH = int(info.Height) / 2
			}
			if patch != nil {
				s.writeCursorTexture(cursorTexture, patch, int(info.Width), patchH)
			}
			state.HotX = info.HotSpot.X
			state.HotY = info.HotSpot.Y
		}
	}
	return state, nil
}

func (s *ModernSource) writeCursorTexture(cursorTexture uintptr, patch []byte, w, h int) {
	var mapped d3d11MappedSubresource
	_, err := comhandle.Call(s.context, vtblCtxMap, cursorTexture, 0, d3d11MapWriteDiscard, 0, uintptr(unsafe.Pointer(&mapped)))
	if err != nil {
		return
	}
	canvas := unsafe.Slice((*byte)(unsafe.Pointer(mapped.PData)), CursorTextureEdge*CursorTextureEdge*4)
	BlitClamped(canvas, CursorTextureEdge, patch, w, h)
	comhandle.CallRaw(s.context, vtblCtxUnmap, cursorTexture, 0)
}

func (s *ModernSource) ReleaseFrame() {
	if !s.frameAcquired {
		return
	}
	if s.lastResource != 0 {
		comhandle.CallRaw(s.lastResource, 2)
		s.lastResource = 0
	}
	syscall.SyscallN(comhandle.VtblFn(s.duplication, vtblDuplReleaseFrame), s.duplication)
	s.frameAcquired = false
}

func (s *ModernSource) Close() error {
	s.releaseDuplication()
	return nil
}

var _ Source = (*ModernSource)(nil)
