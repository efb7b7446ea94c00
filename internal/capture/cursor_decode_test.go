package capture

import "testing"

func TestColorShapeBGRACopiesThroughPitch(t *testing.T) {
	// 2x2 image, pitch wider than the row (padding at the end of each row).
	width, height, pitch := 2, 2, 12
	buf := make([]byte, pitch*height)
	// row 0: two pixels, BGRA
	copy(buf[0:8], []byte{1, 2, 3, 4, 5, 6, 7, 8})
	// row 1
	copy(buf[pitch:pitch+8], []byte{9, 10, 11, 12, 13, 14, 15, 16})

	out := ColorShapeBGRA(buf, width, height, pitch)
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("byte %d = %d, want %d", i, out[i], want[i])
		}
	}
}

func TestMaskedColorShapeForcesOpaqueAlpha(t *testing.T) {
	width, height, pitch := 1, 1, 4
	buf := []byte{10, 20, 30, 0} // AND-mask alpha 0 (XOR pixel)
	out := MaskedColorShapeBGRA(buf, width, height, pitch)
	if out[3] != 0xFF {
		t.Fatalf("alpha = %d, want 0xFF", out[3])
	}
	if out[0] != 10 || out[1] != 20 || out[2] != 30 {
		t.Fatalf("color channels not preserved: %v", out[:3])
	}
}

func TestMonochromeAllZeroAndAllOneXORIsOpaqueWhite(t *testing.T) {
	// 8x2 cursor (1 byte per row per plane), AND=0 everywhere, XOR=1 everywhere.
	width := 8
	cursorHeight := 2
	pitch := 1
	buf := make([]byte, pitch*cursorHeight*2)
	// AND rows all zero (already zero-valued)
	// XOR rows all one bits
	buf[pitch*cursorHeight+0] = 0xFF
	buf[pitch*cursorHeight+1] = 0xFF

	out := MonochromeShapeBGRA(buf, width, cursorHeight*2, pitch)
	if len(out) != width*cursorHeight*4 {
		t.Fatalf("len = %d", len(out))
	}
	for i := 0; i < width*cursorHeight; i++ {
		off := i * 4
		if out[off+0] != 0xFF || out[off+1] != 0xFF || out[off+2] != 0xFF || out[off+3] != 0xFF {
			t.Fatalf("pixel %d = %v, want opaque white", i, out[off:off+4])
		}
	}
}

func TestMonochromeAllOneAndZeroXORIsTransparent(t *testing.T) {
	width := 8
	cursorHeight := 1
	pitch := 1
	buf := make([]byte, pitch*cursorHeight*2)
	buf[0] = 0xFF // AND=1 everywhere
	// XOR row stays zero

	out := MonochromeShapeBGRA(buf, width, cursorHeight*2, pitch)
	for i := 0; i < width; i++ {
		off := i * 4
		if out[off+3] != 0x00 {
			t.Fatalf("pixel %d alpha = %d, want 0 (transparent)", i, out[off+3])
		}
	}
}

func TestBlitClampedZeroesOutsideFootprint(t *testing.T) {
	edge := 4
	canvas := make([]byte, edge*edge*4)
	for i := range canvas {
		canvas[i] = 0xAA // pre-existing garbage must be cleared
	}
	patch := []byte{
		1, 2, 3, 4, 5, 6, 7, 8,
	} // 2x1 patch
	BlitClamped(canvas, edge, patch, 2, 1)

	if canvas[0] != 1 || canvas[4] != 5 {
		t.Fatalf("patch not copied into top-left: %v", canvas[:8])
	}
	// row 0, columns 2-3 (outside patch) must be zero
	if canvas[8] != 0 || canvas[12] != 0 {
		t.Fatalf("area outside patch width not cleared: %v", canvas[8:16])
	}
	// row 1 entirely outside patch height must be zero
	rowStride := edge * 4
	for i := 0; i < rowStride; i++ {
		if canvas[rowStride+i] != 0 {
			t.Fatalf("row 1 not cleared at byte %d", i)
		}
	}
}

func TestColorCursorIconAlphaFromMaskRed(t *testing.T) {
	color := []byte{10, 20, 30, 0}
	mask := []byte{0, 0, 0, 0} // mask red channel = 0 -> opaque
	out := ColorCursorIconBGRA(color, mask, 1, 1)
	if out[3] != 255 {
		t.Fatalf("alpha = %d, want 255", out[3])
	}

	mask2 := []byte{0, 0, 255, 0} // mask red channel = 255 -> transparent
	out2 := ColorCursorIconBGRA(color, mask2, 1, 1)
	if out2[3] != 0 {
		t.Fatalf("alpha = %d, want 0", out2[3])
	}
}
