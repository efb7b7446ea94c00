package gfx

import "embed"

// shaderBlobs holds the precompiled vertex and pixel shader bytecode built
// offline (fxc /T vs_4_0, /T ps_4_0) and checked in as .cso artifacts, the
// same way a shader pass is shipped in the rest of the pack.
//
//go:embed shaders/*.cso
var shaderBlobs embed.FS

func mustShaderBytes(name string) []byte {
	b, err := shaderBlobs.ReadFile("shaders/" + name)
	if err != nil {
		panic(err)
	}
	return b
}

func vertexShaderBytecode() []byte { return mustShaderBytes("quad_vs.cso") }
func pixelShaderBytecode() []byte  { return mustShaderBytes("quad_ps.cso") }
