// Package gfx implements the graphics device and renderer: the D3D11
// device/swap chain, shaders, desktop and cursor quads, and the per-frame
// draw sequence. Pure NDC math lives in this file so it can be tested
// without a GPU; the D3D11 COM calls live in device_windows.go.
package gfx

// Vertex matches the input layout {POSITION: float3 @0, TEXCOORD: float2
// @12}, stride 20 bytes.
type Vertex struct {
	X, Y, Z float32
	U, V    float32
}

// DesktopQuadVertices returns the immutable full-screen quad: the NDC
// square [-1,1]^2 with (u,v) spanning the full texture, as two triangles.
func DesktopQuadVertices() [6]Vertex {
	return [6]Vertex{
		{X: -1, Y: -1, Z: 0, U: 0, V: 1},
		{X: -1, Y: 1, Z: 0, U: 0, V: 0},
		{X: 1, Y: 1, Z: 0, U: 1, V: 0},
		{X: -1, Y: -1, Z: 0, U: 0, V: 1},
		{X: 1, Y: 1, Z: 0, U: 1, V: 0},
		{X: 1, Y: -1, Z: 0, U: 1, V: 1},
	}
}

// CursorQuadCorners converts a cursor's pixel position and size, within a
// monitor of size (monW, monH), to NDC quad corners.
func CursorQuadCorners(x, y, cursorW, cursorH, monW, monH float32) (left, top, right, bottom float32) {
	left = -1 + 2*x/monW
	top = 1 - 2*y/monH
	right = left + 2*cursorW/monW
	bottom = top - 2*cursorH/monH
	return
}

// CursorQuadVertices builds the dynamic 6-vertex cursor quad from its NDC
// corners, with texture coordinates spanning the full cursor texture.
func CursorQuadVertices(left, top, right, bottom float32) [6]Vertex {
	return [6]Vertex{
		{X: left, Y: bottom, Z: 0, U: 0, V: 1},
		{X: left, Y: top, Z: 0, U: 0, V: 0},
		{X: right, Y: top, Z: 0, U: 1, V: 0},
		{X: left, Y: bottom, Z: 0, U: 0, V: 1},
		{X: right, Y: top, Z: 0, U: 1, V: 0},
		{X: right, Y: bottom, Z: 0, U: 1, V: 1},
	}
}
