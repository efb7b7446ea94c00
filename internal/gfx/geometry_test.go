package gfx

import (
	"math"
	"testing"
)

func almostEqual(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func TestCursorQuadCornersSatisfiesSpanInvariant(t *testing.T) {
	cases := []struct {
		x, y, w, h, monW, monH float32
	}{
		{0, 0, 32, 32, 1920, 1080},
		{100, 200, 16, 24, 1920, 1080},
		{1919, 1079, 32, 32, 1920, 1080},
		{960, 540, 256, 256, 3840, 2160},
	}
	for _, c := range cases {
		left, top, right, bottom := CursorQuadCorners(c.x, c.y, c.w, c.h, c.monW, c.monH)
		if !almostEqual(left+2*c.w/c.monW, right) {
			t.Errorf("x=%v w=%v monW=%v: left+2w/W = %v, right = %v", c.x, c.w, c.monW, left+2*c.w/c.monW, right)
		}
		if !almostEqual(top-2*c.h/c.monH, bottom) {
			t.Errorf("y=%v h=%v monH=%v: top-2h/H = %v, bottom = %v", c.y, c.h, c.monH, top-2*c.h/c.monH, bottom)
		}
		wantLeftEdge := c.x == 0
		gotLeftEdge := almostEqual(left, -1)
		if wantLeftEdge != gotLeftEdge {
			t.Errorf("x=%v: left==-1 iff x==0 violated (left=%v)", c.x, left)
		}
		wantTopEdge := c.y == 0
		gotTopEdge := almostEqual(top, 1)
		if wantTopEdge != gotTopEdge {
			t.Errorf("y=%v: top==+1 iff y==0 violated (top=%v)", c.y, top)
		}
	}
}

func TestDesktopQuadVerticesSpanFullNDCSquare(t *testing.T) {
	verts := DesktopQuadVertices()
	minX, maxX, minY, maxY := verts[0].X, verts[0].X, verts[0].Y, verts[0].Y
	for _, v := range verts {
		if v.X < minX {
			minX = v.X
		}
		if v.X > maxX {
			maxX = v.X
		}
		if v.Y < minY {
			minY = v.Y
		}
		if v.Y > maxY {
			maxY = v.Y
		}
	}
	if minX != -1 || maxX != 1 || minY != -1 || maxY != 1 {
		t.Fatalf("quad bounds = [%v,%v]x[%v,%v], want [-1,1]x[-1,1]", minX, maxX, minY, maxY)
	}
}

func TestCursorQuadVerticesMatchCorners(t *testing.T) {
	left, top, right, bottom := float32(-0.5), float32(0.5), float32(0.1), float32(-0.1)
	verts := CursorQuadVertices(left, top, right, bottom)
	for _, v := range verts {
		if v.X != left && v.X != right {
			t.Errorf("unexpected X %v, want %v or %v", v.X, left, right)
		}
		if v.Y != top && v.Y != bottom {
			t.Errorf("unexpected Y %v, want %v or %v", v.Y, top, bottom)
		}
	}
}
