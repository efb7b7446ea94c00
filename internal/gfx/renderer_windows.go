//go:build windows

package gfx

import (
	"fmt"
	"unsafe"

	"github.com/Happy-Ferret/win32-screen-view/internal/capture"
	"github.com/Happy-Ferret/win32-screen-view/internal/comhandle"
)

// Renderer consumes a capture source, composites the desktop and cursor
// quads, and presents at vsync. It exclusively owns the device, swap chain,
// shaders, buffers, and textures.
type Renderer struct {
	dev    *device
	source capture.Source

	monitor capture.MonitorRect

	desktopTex comhandle.Ref
	cursorTex  comhandle.Ref
	desktopSRV comhandle.Ref
	cursorSRV  comhandle.Ref

	desktopVB comhandle.Ref
	cursorVB  comhandle.Ref

	cursorState capture.CursorState
}

// NewRenderer runs the full initialization sequence against the host
// window: device + swap chain, shaders, input layout, sampler, blend state,
// initial resize from the window's current client rectangle.
func NewRenderer(hwnd uintptr, clientW, clientH uint32, source capture.Source) (*Renderer, error) {
	dev, err := newDevice(hwnd, clientW, clientH)
	if err != nil {
		return nil, fmt.Errorf("graphics device init: %w", err)
	}
	return &Renderer{dev: dev, source: source}, nil
}

// Resize reacts to a host window size change.
func (r *Renderer) Resize(clientW, clientH uint32) error {
	return r.dev.resize(clientW, clientH)
}

// Reset binds the renderer to a new monitor: rebinds the source, recreates
// the desktop and cursor textures and their shader-resource views, and
// rebuilds the vertex buffers.
func (r *Renderer) Reset(rect capture.MonitorRect) error {
	if err := r.source.Reinit(r.dev.d3dDevice.Ptr(), rect); err != nil {
		return fmt.Errorf("source reinit: %w", err)
	}
	r.monitor = rect

	r.desktopSRV.Clear()
	r.cursorSRV.Clear()
	r.desktopTex.Clear()
	r.cursorTex.Clear()

	desktopPtr, err := r.source.CreateDesktopTexture()
	if err != nil {
		return fmt.Errorf("create desktop texture: %w", err)
	}
	r.desktopTex = comhandle.Take(desktopPtr, comhandle.IUnknownOps())
	if r.desktopSRV, err = r.createSRV(r.desktopTex.Ptr()); err != nil {
		return fmt.Errorf("create desktop SRV: %w", err)
	}

	cursorPtr, err := r.source.CreateCursorTexture()
	if err != nil {
		return fmt.Errorf("create cursor texture: %w", err)
	}
	r.cursorTex = comhandle.Take(cursorPtr, comhandle.IUnknownOps())
	if r.cursorSRV, err = r.createSRV(r.cursorTex.Ptr()); err != nil {
		return fmt.Errorf("create cursor SRV: %w", err)
	}

	if err := r.createDesktopVB(); err != nil {
		return err
	}
	if err := r.createCursorVB(); err != nil {
		return err
	}
	return nil
}

func (r *Renderer) createSRV(texture uintptr) (comhandle.Ref, error) {
	var srv uintptr
	_, err := comhandle.Call(r.dev.d3dDevice.Ptr(), vtblDeviceCreateShaderResourceView,
		texture, 0, uintptr(unsafe.Pointer(&srv)))
	if err != nil {
		return comhandle.Ref{}, err
	}
	return comhandle.Take(srv, comhandle.IUnknownOps()), nil
}

func (r *Renderer) createDesktopVB() error {
	verts := DesktopQuadVertices()
	desc := struct {
		ByteWidth uint32
		Usage     uint32
		BindFlags uint32
		_         [8]byte
	}{
		ByteWidth: uint32(len(verts)) * 20,
		Usage:     d3d11UsageDefault,
		BindFlags: 1, // D3D11_BIND_VERTEX_BUFFER
	}
	initData := struct {
		PSysMem uintptr
		_, _    uint32
	}{PSysMem: uintptr(unsafe.Pointer(&verts[0]))}

	var vb uintptr
	_, err := comhandle.Call(r.dev.d3dDevice.Ptr(), vtblDeviceCreateBuffer,
		uintptr(unsafe.Pointer(&desc)), uintptr(unsafe.Pointer(&initData)), uintptr(unsafe.Pointer(&vb)))
	if err != nil {
		return fmt.Errorf("create desktop vertex buffer: %w", err)
	}
	r.desktopVB.Clear()
	r.desktopVB = comhandle.Take(vb, comhandle.IUnknownOps())
	return nil
}

func (r *Renderer) createCursorVB() error {
	desc := struct {
		ByteWidth      uint32
		Usage          uint32
		BindFlags      uint32
		CPUAccessFlags uint32
		_              [4]byte
	}{
		ByteWidth:      6 * 20,
		Usage:          d3d11UsageDynamic,
		BindFlags:      1, // D3D11_BIND_VERTEX_BUFFER
		CPUAccessFlags: d3d11CPUAccessWrite,
	}
	var vb uintptr
	_, err := comhandle.Call(r.dev.d3dDevice.Ptr(), vtblDeviceCreateBuffer,
		uintptr(unsafe.Pointer(&desc)), 0, uintptr(unsafe.Pointer(&vb)))
	if err != nil {
		return fmt.Errorf("create cursor vertex buffer: %w", err)
	}
	r.cursorVB.Clear()
	r.cursorVB = comhandle.Take(vb, comhandle.IUnknownOps())
	return nil
}

func (r *Renderer) updateCursorVB(verts [6]Vertex) error {
	var mapped d3d11MappedSubresource
	_, err := comhandle.Call(r.dev.d3dContext.Ptr(), vtblCtxMap,
		r.cursorVB.Ptr(), 0, d3d11MapWriteDiscard, 0, uintptr(unsafe.Pointer(&mapped)))
	if err != nil {
		return fmt.Errorf("map cursor vertex buffer: %w", err)
	}
	dst := unsafe.Slice((*Vertex)(unsafe.Pointer(mapped.PData)), 6)
	copy(dst, verts[:])
	comhandle.CallRaw(r.dev.d3dContext.Ptr(), vtblCtxUnmap, r.cursorVB.Ptr(), 0)
	return nil
}

// Render draws one frame: acquire, update textures, composite, present.
// Mirrors the fixed nine-step sequence: acquire, update desktop, update
// cursor, refresh the cursor quad, release, clear, draw desktop, draw
// cursor if visible, present at vsync.
func (r *Renderer) Render() error {
	if err := r.source.AcquireFrame(); err != nil {
		r.source.ReleaseFrame()
		return fmt.Errorf("acquire frame: %w", err)
	}
	if err := r.source.UpdateDesktop(r.desktopTex.Ptr()); err != nil {
		r.source.ReleaseFrame()
		return fmt.Errorf("update desktop: %w", err)
	}
	state, err := r.source.UpdateCursor(r.cursorTex.Ptr())
	if err != nil {
		r.source.ReleaseFrame()
		return fmt.Errorf("update cursor: %w", err)
	}
	r.cursorState = state

	left, top, right, bottom := CursorQuadCorners(
		float32(state.X), float32(state.Y),
		capture.CursorTextureEdge, capture.CursorTextureEdge,
		float32(r.monitor.Width()), float32(r.monitor.Height()),
	)
	if err := r.updateCursorVB(CursorQuadVertices(left, top, right, bottom)); err != nil {
		r.source.ReleaseFrame()
		return err
	}

	r.source.ReleaseFrame()

	ctx := r.dev.d3dContext.Ptr()
	clearColor := [4]float32{0.5, 0.5, 0.5, 1.0}
	comhandle.CallRaw(ctx, vtblCtxClearRenderTargetView, r.dev.rtv.Ptr(), uintptr(unsafe.Pointer(&clearColor)))

	comhandle.CallRaw(ctx, vtblCtxIASetInputLayout, r.dev.inputLayout.Ptr())
	comhandle.CallRaw(ctx, vtblCtxIASetPrimitiveTopology, d3d11PrimitiveTopologyTriangleList)
	comhandle.CallRaw(ctx, vtblCtxVSSetShader, r.dev.vertexShader.Ptr(), 0, 0)
	comhandle.CallRaw(ctx, vtblCtxPSSetShader, r.dev.pixelShader.Ptr(), 0, 0)
	samplerPtr := r.dev.sampler.Ptr()
	comhandle.CallRaw(ctx, vtblCtxPSSetSamplers, 0, 1, uintptr(unsafe.Pointer(&samplerPtr)))
	blendFactor := [4]float32{0, 0, 0, 0}
	comhandle.CallRaw(ctx, vtblCtxOMSetBlendState, r.dev.blendState.Ptr(), uintptr(unsafe.Pointer(&blendFactor)), 0xFFFFFFFF)

	r.drawQuad(ctx, r.desktopVB.Ptr(), r.desktopSRV.Ptr())
	if state.Visible {
		r.drawQuad(ctx, r.cursorVB.Ptr(), r.cursorSRV.Ptr())
	}

	_, err = comhandle.Call(r.dev.swapChain.Ptr(), vtblSwapPresent, 1, 0)
	if err != nil {
		return fmt.Errorf("present: %w", err)
	}
	return nil
}

func (r *Renderer) drawQuad(ctx uintptr, vb, srv uintptr) {
	stride := uint32(20)
	offset := uint32(0)
	comhandle.CallRaw(ctx, vtblCtxIASetVertexBuffers, 0, 1,
		uintptr(unsafe.Pointer(&vb)), uintptr(unsafe.Pointer(&stride)), uintptr(unsafe.Pointer(&offset)))
	comhandle.CallRaw(ctx, vtblCtxPSSetShaderResources, 0, 1, uintptr(unsafe.Pointer(&srv)))
	comhandle.CallRaw(ctx, vtblCtxDraw, 6, 0)
}

// Close releases every resource the renderer owns, including the source.
func (r *Renderer) Close() error {
	r.desktopSRV.Clear()
	r.cursorSRV.Clear()
	r.desktopTex.Clear()
	r.cursorTex.Clear()
	r.desktopVB.Clear()
	r.cursorVB.Clear()
	err := r.source.Close()
	r.dev.Close()
	return err
}
