package view

import (
	"testing"
	"time"

	"github.com/Happy-Ferret/win32-screen-view/internal/capture"
)

type fakeTarget struct {
	renders    int
	resizes    int
	resets     []capture.MonitorRect
	closed     bool
	calls      []string
}

func (f *fakeTarget) Resize() error { f.resizes++; f.calls = append(f.calls, "resize"); return nil }
func (f *fakeTarget) Reset(rect capture.MonitorRect) error {
	f.resets = append(f.resets, rect)
	f.calls = append(f.calls, "reset")
	return nil
}
func (f *fakeTarget) Render() error                        { f.renders++; return nil }
func (f *fakeTarget) Close() error                          { f.closed = true; return nil }

// fakeClock advances wall time only on Sleep, so the loop can be driven
// deterministically without a real 10ms wait per render.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Sleep(d time.Duration) {
	if d > 0 {
		c.now = c.now.Add(d)
	}
}

func TestRunLoopDispatchesCommandsInOrder(t *testing.T) {
	target := &fakeTarget{}
	clk := &fakeClock{now: time.Unix(0, 0)}
	commands := make(chan command, 8)

	commands <- command{kind: cmdResize}
	commands <- command{kind: cmdSetScreen, rect: capture.MonitorRect{Left: 0, Top: 0, Right: 1920, Bottom: 1080}}
	commands <- command{kind: cmdQuit}

	runLoop(commands, target, clk)

	if target.resizes != 1 {
		t.Fatalf("resizes = %d, want 1", target.resizes)
	}
	if len(target.resets) != 1 || target.resets[0].Right != 1920 {
		t.Fatalf("resets = %+v", target.resets)
	}
	if len(target.calls) != 2 || target.calls[0] != "resize" || target.calls[1] != "reset" {
		t.Fatalf("dispatch order = %v, want [resize reset]", target.calls)
	}
}

func TestRunLoopRendersWhenIdle(t *testing.T) {
	target := &fakeTarget{}
	clk := realClock{}
	commands := make(chan command, 1)

	done := make(chan struct{})
	go func() {
		runLoop(commands, target, clk)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	commands <- command{kind: cmdQuit}
	<-done

	if target.renders == 0 {
		t.Fatalf("renders = %d, want at least 1", target.renders)
	}
}

func TestFrameBudgetCapsAt100FPS(t *testing.T) {
	if FrameBudget != 10*time.Millisecond {
		t.Fatalf("FrameBudget = %v, want 10ms", FrameBudget)
	}
}
