//go:build windows

package gfx

import (
	"fmt"
	"unsafe"

	"github.com/Happy-Ferret/win32-screen-view/internal/comhandle"
)

// device owns every D3D11/DXGI object that lives for the lifetime of a view:
// the device, context, swap chain, shaders, input layout, sampler and blend
// state, and the current render-target view. One device per view; never
// shared (spec's "GPU device context" data model entry).
type device struct {
	hwnd uintptr

	d3dDevice  comhandle.Ref
	d3dContext comhandle.Ref
	swapChain  comhandle.Ref

	vertexShader comhandle.Ref
	pixelShader  comhandle.Ref
	inputLayout  comhandle.Ref
	sampler      comhandle.Ref
	blendState   comhandle.Ref

	rtv comhandle.Ref

	clientW, clientH uint32
}

var (
	semanticPosition = mustCString("POSITION")
	semanticTexcoord = mustCString("TEXCOORD")
)

func mustCString(s string) []byte {
	return append([]byte(s), 0)
}

// newDevice runs the initialization sequence: device+swap chain, shaders,
// input layout, sampler, blend state, initial resize. Each step is fatal;
// callers log and leave the view showing nothing rather than panicking.
func newDevice(hwnd uintptr, clientW, clientH uint32) (*device, error) {
	d := &device{hwnd: hwnd}

	desc := dxgiSwapChainDesc{
		BufferDesc: dxgiModeDesc{
			Width:  clientW,
			Height: clientH,
			Format: dxgiFormatB8G8R8A8,
		},
		SampleDesc:   dxgiSampleDesc{Count: 1, Quality: 0},
		BufferUsage:  dxgiUsageRenderTargetOutput,
		BufferCount:  1,
		OutputWindow: hwnd,
		Windowed:     1,
		SwapEffect:   dxgiSwapEffectDiscard,
	}

	var devicePtr, contextPtr, swapPtr uintptr
	featureLevel := uint32(d3dFeatureLevel11_0)
	var actualLevel uint32

	hr, _, _ := procD3D11CreateDeviceAndSwapChain.Call(
		0,
		uintptr(d3dDriverTypeHardware),
		0,
		0,
		uintptr(unsafe.Pointer(&featureLevel)),
		1,
		uintptr(d3d11SDKVersion),
		uintptr(unsafe.Pointer(&desc)),
		uintptr(unsafe.Pointer(&swapPtr)),
		uintptr(unsafe.Pointer(&devicePtr)),
		uintptr(unsafe.Pointer(&actualLevel)),
		uintptr(unsafe.Pointer(&contextPtr)),
	)
	if int32(hr) < 0 {
		return nil, fmt.Errorf("D3D11CreateDeviceAndSwapChain failed: 0x%08X", uint32(hr))
	}

	d.d3dDevice = comhandle.Take(devicePtr, comhandle.IUnknownOps())
	d.d3dContext = comhandle.Take(contextPtr, comhandle.IUnknownOps())
	d.swapChain = comhandle.Take(swapPtr, comhandle.IUnknownOps())

	if err := d.loadShaders(); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.createInputLayout(); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.createSampler(); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.createBlendState(); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.resize(clientW, clientH); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *device) loadShaders() error {
	vsBytes := vertexShaderBytecode()
	var vs uintptr
	_, err := comhandle.Call(d.d3dDevice.Ptr(), vtblDeviceCreateVertexShader,
		uintptr(unsafe.Pointer(&vsBytes[0])),
		uintptr(len(vsBytes)),
		0,
		uintptr(unsafe.Pointer(&vs)),
	)
	if err != nil {
		return fmt.Errorf("CreateVertexShader: %w", err)
	}
	d.vertexShader = comhandle.Take(vs, comhandle.IUnknownOps())

	psBytes := pixelShaderBytecode()
	var ps uintptr
	_, err = comhandle.Call(d.d3dDevice.Ptr(), vtblDeviceCreatePixelShader,
		uintptr(unsafe.Pointer(&psBytes[0])),
		uintptr(len(psBytes)),
		0,
		uintptr(unsafe.Pointer(&ps)),
	)
	if err != nil {
		return fmt.Errorf("CreatePixelShader: %w", err)
	}
	d.pixelShader = comhandle.Take(ps, comhandle.IUnknownOps())
	return nil
}

func (d *device) createInputLayout() error {
	elems := [2]d3d11InputElementDesc{
		{
			SemanticName:      uintptr(unsafe.Pointer(&semanticPosition[0])),
			Format:            dxgiFormatR32G32B32Float,
			AlignedByteOffset: 0,
			InputSlotClass:    d3d11InputPerVertexData,
		},
		{
			SemanticName:      uintptr(unsafe.Pointer(&semanticTexcoord[0])),
			Format:            dxgiFormatR32G32Float,
			AlignedByteOffset: 12,
			InputSlotClass:    d3d11InputPerVertexData,
		},
	}
	vsBytes := vertexShaderBytecode()
	var layout uintptr
	_, err := comhandle.Call(d.d3dDevice.Ptr(), vtblDeviceCreateInputLayout,
		uintptr(unsafe.Pointer(&elems[0])),
		2,
		uintptr(unsafe.Pointer(&vsBytes[0])),
		uintptr(len(vsBytes)),
		uintptr(unsafe.Pointer(&layout)),
	)
	if err != nil {
		return fmt.Errorf("CreateInputLayout: %w", err)
	}
	d.inputLayout = comhandle.Take(layout, comhandle.IUnknownOps())
	return nil
}

func (d *device) createSampler() error {
	desc := d3d11SamplerDesc{
		Filter:   d3d11FilterMinMagMipLinear,
		AddressU: d3d11TextureAddressClamp,
		AddressV: d3d11TextureAddressClamp,
		AddressW: d3d11TextureAddressClamp,
		MaxLOD:   3.402823466e+38, // D3D11_FLOAT32_MAX
	}
	var sampler uintptr
	_, err := comhandle.Call(d.d3dDevice.Ptr(), vtblDeviceCreateSamplerState,
		uintptr(unsafe.Pointer(&desc)),
		uintptr(unsafe.Pointer(&sampler)),
	)
	if err != nil {
		return fmt.Errorf("CreateSamplerState: %w", err)
	}
	d.sampler = comhandle.Take(sampler, comhandle.IUnknownOps())
	return nil
}

func (d *device) createBlendState() error {
	var desc d3d11BlendDesc
	desc.RenderTarget[0] = d3d11RenderTargetBlendDesc{
		BlendEnable:           1,
		SrcBlend:              d3d11BlendSrcAlpha,
		DestBlend:             d3d11BlendInvSrcAlpha,
		BlendOp:               d3d11BlendOpAdd,
		SrcBlendAlpha:         d3d11BlendZero,
		DestBlendAlpha:        d3d11BlendZero,
		BlendOpAlpha:          d3d11BlendOpAdd,
		RenderTargetWriteMask: d3d11ColorWriteEnableAll,
	}
	var blend uintptr
	_, err := comhandle.Call(d.d3dDevice.Ptr(), vtblDeviceCreateBlendState,
		uintptr(unsafe.Pointer(&desc)),
		uintptr(unsafe.Pointer(&blend)),
	)
	if err != nil {
		return fmt.Errorf("CreateBlendState: %w", err)
	}
	d.blendState = comhandle.Take(blend, comhandle.IUnknownOps())
	return nil
}

// resize unbinds the render target, resizes the swap-chain buffers to the
// client size, recreates the render-target view of buffer 0, binds it as
// the sole render target, and sets a full-client viewport.
func (d *device) resize(clientW, clientH uint32) error {
	if clientW == 0 || clientH == 0 {
		return nil
	}
	var nullRTV uintptr
	comhandle.CallRaw(d.d3dContext.Ptr(), vtblCtxOMSetRenderTargets, 0, uintptr(unsafe.Pointer(&nullRTV)), 0)

	d.rtv.Clear()

	_, err := comhandle.Call(d.swapChain.Ptr(), vtblSwapResizeBuffers,
		0, uintptr(clientW), uintptr(clientH), dxgiFormatB8G8R8A8, 0)
	if err != nil {
		return fmt.Errorf("ResizeBuffers: %w", err)
	}

	var backBuffer uintptr
	_, err = comhandle.Call(d.swapChain.Ptr(), vtblSwapGetBuffer,
		0, uintptr(unsafe.Pointer(&iidID3D11Texture2D)), uintptr(unsafe.Pointer(&backBuffer)))
	if err != nil {
		return fmt.Errorf("GetBuffer: %w", err)
	}
	defer comhandle.CallRaw(backBuffer, 2) // Release

	var rtv uintptr
	_, err = comhandle.Call(d.d3dDevice.Ptr(), vtblDeviceCreateRenderTargetView,
		backBuffer, 0, uintptr(unsafe.Pointer(&rtv)))
	if err != nil {
		return fmt.Errorf("CreateRenderTargetView: %w", err)
	}
	d.rtv = comhandle.Take(rtv, comhandle.IUnknownOps())

	comhandle.CallRaw(d.d3dContext.Ptr(), vtblCtxOMSetRenderTargets, 1, uintptr(unsafe.Pointer(&rtv)), 0)

	viewport := d3d11Viewport{Width: float32(clientW), Height: float32(clientH), MaxDepth: 1}
	comhandle.CallRaw(d.d3dContext.Ptr(), vtblCtxRSSetViewports, 1, uintptr(unsafe.Pointer(&viewport)))

	d.clientW, d.clientH = clientW, clientH
	return nil
}

func (d *device) Close() {
	d.rtv.Clear()
	d.blendState.Clear()
	d.sampler.Clear()
	d.inputLayout.Clear()
	d.pixelShader.Clear()
	d.vertexShader.Clear()
	d.swapChain.Clear()
	d.d3dContext.Clear()
	d.d3dDevice.Clear()
}
