//go:build windows

package gfx

import (
	"syscall"
	"unsafe"

	"github.com/Happy-Ferret/win32-screen-view/internal/comhandle"
)

var (
	d3d11DLL = syscall.NewLazyDLL("d3d11.dll")
	dxgiDLL  = syscall.NewLazyDLL("dxgi.dll")

	procD3D11CreateDeviceAndSwapChain = d3d11DLL.NewProc("D3D11CreateDeviceAndSwapChain")
	procCreateDXGIFactory1            = dxgiDLL.NewProc("CreateDXGIFactory1")
)

// D3D11/DXGI constants. Values are the documented public ABI, cross-checked
// against the pack's own DXGI desktop-duplication code where the two
// surfaces overlap (device/adapter/output/duplication, and the context's
// Map/Unmap/CopyResource/Flush slots).
const (
	d3dDriverTypeHardware = 1
	d3dFeatureLevel11_0   = 0xb000
	d3d11SDKVersion       = 7

	dxgiFormatB8G8R8A8 = 87
	dxgiUsageRenderTargetOutput = 1 << 5
	dxgiSwapEffectDiscard       = 0

	d3d11UsageDefault  = 0
	d3d11UsageDynamic  = 2
	d3d11UsageStaging  = 3

	d3d11BindShaderResource = 0x8
	d3d11BindRenderTarget   = 0x20

	d3d11CPUAccessWrite = 0x10000

	d3d11MapWriteDiscard = 4

	d3d11InputPerVertexData = 0

	d3d11BlendSrcAlpha       = 5
	d3d11BlendInvSrcAlpha    = 6
	d3d11BlendOpAdd          = 1
	d3d11BlendZero           = 1
	d3d11ColorWriteEnableAll = 0x0F

	d3d11PrimitiveTopologyTriangleList = 4

	d3d11FilterMinMagMipLinear = 0x15
	d3d11TextureAddressClamp   = 3

	dxgiErrWaitTimeout   = 0x887A0027
	dxgiErrAccessLost    = 0x887A0026
	dxgiErrDeviceRemoved = 0x887A0005
	dxgiErrDeviceReset   = 0x887A0007
)

// Vtable indices. Base IUnknown is always {0:QueryInterface,1:AddRef,2:Release}.
const (
	// IDXGIObject adds SetPrivateData(3), SetPrivateDataInterface(4),
	// GetPrivateData(5), GetParent(6).
	dxgiObjectBase = 7

	// IDXGIDevice (extends IDXGIObject): GetAdapter(7), CreateSurface(8),
	// QueryResourceResidency(9), SetGPUThreadPriority(10), GetGPUThreadPriority(11).
	vtblDXGIDeviceGetAdapter = 7

	// IDXGIAdapter (extends IDXGIObject): EnumOutputs(7), GetDesc(8),
	// CheckInterfaceSupport(9).
	vtblDXGIAdapterEnumOutputs = 7

	// IDXGIOutput1 (extends IDXGIOutput, base 19): DuplicateOutput at 22.
	vtblDXGIOutput1DuplicateOutput = 22

	// IDXGIOutputDuplication (extends IDXGIObject): GetDesc(7),
	// AcquireNextFrame(8), GetFrameDirtyRects(9), GetFrameMoveRects(10),
	// GetFramePointerShape(11), MapDesktopSurface(12), UnMapDesktopSurface(13),
	// ReleaseFrame(14).
	vtblDuplGetDesc            = 7
	vtblDuplAcquireNextFrame   = 8
	vtblDuplGetFramePointerShape = 11
	vtblDuplReleaseFrame       = 14

	// IDXGIFactory (extends IDXGIObject): EnumAdapters(7),
	// MakeWindowAssociation(8), GetWindowAssociation(9), CreateSwapChain(10),
	// CreateSoftwareAdapter(11).
	vtblFactoryCreateSwapChain = 10

	// IDXGISwapChain (extends IDXGIDeviceSubObject, base 8): Present(8),
	// GetBuffer(9), SetFullscreenState(10), GetFullscreenState(11),
	// GetDesc(12), ResizeBuffers(13), ResizeTarget(14), GetContainingOutput(15),
	// GetFrameStatistics(16), GetLastPresentCount(17).
	vtblSwapPresent           = 8
	vtblSwapGetBuffer         = 9
	vtblSwapResizeBuffers     = 13
	vtblSwapGetContainingOutput = 15

	// IDXGIResource (extends IDXGIDeviceSubObject, base 8): GetSharedHandle(8).
	vtblResourceGetSharedHandle = 8

	// ID3D11Device (extends IUnknown, base 3).
	vtblDeviceCreateBuffer             = 3
	vtblDeviceCreateTexture2D          = 5
	vtblDeviceCreateShaderResourceView = 7
	vtblDeviceCreateRenderTargetView   = 9
	vtblDeviceCreateInputLayout        = 11
	vtblDeviceCreateVertexShader       = 12
	vtblDeviceCreatePixelShader        = 15
	vtblDeviceCreateBlendState         = 20
	vtblDeviceCreateSamplerState       = 23
	vtblDeviceOpenSharedResource       = 28
	vtblDeviceGetImmediateContext      = 40

	// ID3D11DeviceContext (extends ID3D11DeviceChild, base 7).
	vtblCtxPSSetShaderResources  = 8
	vtblCtxPSSetShader           = 9
	vtblCtxPSSetSamplers         = 10
	vtblCtxVSSetShader           = 11
	vtblCtxDraw                  = 13
	vtblCtxMap                   = 14
	vtblCtxUnmap                 = 15
	vtblCtxIASetInputLayout      = 17
	vtblCtxIASetVertexBuffers    = 18
	vtblCtxIASetPrimitiveTopology = 24
	vtblCtxOMSetRenderTargets    = 33
	vtblCtxOMSetBlendState       = 35
	vtblCtxRSSetViewports        = 44
	vtblCtxCopyResource          = 47
	vtblCtxClearRenderTargetView = 50
)

var (
	iidIDXGIDevice     = comhandle.GUID{Data1: 0x54ec77fa, Data2: 0x1377, Data3: 0x44e6, Data4: [8]byte{0x8c, 0x32, 0x88, 0xfd, 0x5f, 0x44, 0xc8, 0x4c}}
	iidIDXGIOutput1    = comhandle.GUID{Data1: 0x00cddea8, Data2: 0x939b, Data3: 0x4b83, Data4: [8]byte{0xa3, 0x40, 0xa6, 0x85, 0x22, 0x66, 0x66, 0xcc}}
	iidID3D11Texture2D = comhandle.GUID{Data1: 0x6f15aaf2, Data2: 0xd208, Data3: 0x4e89, Data4: [8]byte{0x9a, 0xb4, 0x48, 0x95, 0x35, 0xd3, 0x4f, 0x9c}}
	iidIDXGIResource   = comhandle.GUID{Data1: 0x035f3ab4, Data2: 0x482e, Data3: 0x4e50, Data4: [8]byte{0xb4, 0x1f, 0x8a, 0x7f, 0x8b, 0xd8, 0x96, 0x0b}}
	iidIDXGIFactory1   = comhandle.GUID{Data1: 0x770aae78, Data2: 0xf26f, Data3: 0x4dba, Data4: [8]byte{0xa8, 0x29, 0x25, 0x3c, 0x83, 0xd1, 0xb3, 0x87}}
)

type dxgiRational struct {
	Numerator, Denominator uint32
}

type dxgiModeDesc struct {
	Width, Height    uint32
	RefreshRate      dxgiRational
	Format           uint32
	ScanlineOrdering uint32
	Scaling          uint32
}

type dxgiSampleDesc struct {
	Count, Quality uint32
}

// dxgiSwapChainDesc matches DXGI_SWAP_CHAIN_DESC.
type dxgiSwapChainDesc struct {
	BufferDesc   dxgiModeDesc
	SampleDesc   dxgiSampleDesc
	BufferUsage  uint32
	BufferCount  uint32
	OutputWindow uintptr
	Windowed     int32
	SwapEffect   uint32
	Flags        uint32
}

// d3d11Texture2DDesc matches D3D11_TEXTURE2D_DESC.
type d3d11Texture2DDesc struct {
	Width, Height  uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         uint32
	SampleDesc     dxgiSampleDesc
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

type d3d11Viewport struct {
	TopLeftX, TopLeftY, Width, Height, MinDepth, MaxDepth float32
}

// d3d11InputElementDesc matches D3D11_INPUT_ELEMENT_DESC; SemanticName must
// be a pointer to a NUL-terminated ASCII string kept alive by the caller.
type d3d11InputElementDesc struct {
	SemanticName         uintptr
	SemanticIndex        uint32
	Format               uint32
	InputSlot            uint32
	AlignedByteOffset    uint32
	InputSlotClass       uint32
	InstanceDataStepRate uint32
}

type d3d11RenderTargetBlendDesc struct {
	BlendEnable           int32
	SrcBlend              uint32
	DestBlend             uint32
	BlendOp               uint32
	SrcBlendAlpha         uint32
	DestBlendAlpha        uint32
	BlendOpAlpha          uint32
	RenderTargetWriteMask byte
	_                     [3]byte
}

type d3d11BlendDesc struct {
	AlphaToCoverageEnable  int32
	IndependentBlendEnable int32
	RenderTarget           [8]d3d11RenderTargetBlendDesc
}

type d3d11SamplerDesc struct {
	Filter         uint32
	AddressU       uint32
	AddressV       uint32
	AddressW       uint32
	MipLODBias     float32
	MaxAnisotropy  uint32
	ComparisonFunc uint32
	BorderColor    [4]float32
	MinLOD         float32
	MaxLOD         float32
}

const (
	dxgiFormatUnknown  = 0
	dxgiFormatR32G32B32Float = 6
	dxgiFormatR32G32Float    = 16
)

func asciiPtr(s string) uintptr {
	b := append([]byte(s), 0)
	return uintptr(unsafe.Pointer(&b[0]))
}
