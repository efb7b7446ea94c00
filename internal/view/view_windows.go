//go:build windows

package view

import (
	"sync"

	"github.com/Happy-Ferret/win32-screen-view/internal/capture"
	"github.com/Happy-Ferret/win32-screen-view/internal/gfx"
	"github.com/Happy-Ferret/win32-screen-view/internal/logging"
	"github.com/Happy-Ferret/win32-screen-view/internal/winhost"
)

// rendererAdapter narrows *gfx.Renderer to the renderTarget interface,
// resolving the view window's current client size for Resize since the
// renderer's Resize takes explicit dimensions but the command queue only
// carries a "resize happened" signal.
type rendererAdapter struct {
	hwnd     uintptr
	renderer *gfx.Renderer
}

func (a *rendererAdapter) Resize() error {
	w, h := winhost.GetClientSize(a.hwnd)
	return a.renderer.Resize(w, h)
}
func (a *rendererAdapter) Reset(rect capture.MonitorRect) error { return a.renderer.Reset(rect) }
func (a *rendererAdapter) Render() error                        { return a.renderer.Render() }
func (a *rendererAdapter) Close() error                          { return a.renderer.Close() }

// View owns one per-monitor render thread. It exclusively owns the
// renderer; the host UI thread only ever talks to it through Resize,
// SetScreen and Close.
type View struct {
	commands chan command
	wg       sync.WaitGroup
}

// New creates a view that renders into hwnd, binds its renderer to the
// monitor rect, and starts its render thread. source is the capture
// source (modern or legacy) the renderer will drive.
func New(hwnd uintptr, rect capture.MonitorRect, source capture.Source) (*View, error) {
	w, h := winhost.GetClientSize(hwnd)
	renderer, err := gfx.NewRenderer(hwnd, w, h, source)
	if err != nil {
		return nil, err
	}
	if err := renderer.Reset(rect); err != nil {
		logging.L("view").Warn("initial reset failed", "err", err)
	}

	v := &View{
		commands: make(chan command, 4),
	}
	target := &rendererAdapter{hwnd: hwnd, renderer: renderer}

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		runLoop(v.commands, target, realClock{})
		target.Close()
	}()
	return v, nil
}

// Resize tells the render thread to re-query the view window's client size
// and resize the swap chain to match. Safe to call from the UI thread.
func (v *View) Resize() {
	select {
	case v.commands <- command{kind: cmdResize}:
	default:
	}
}

// SetScreen tells the render thread to rebind to a different monitor.
func (v *View) SetScreen(rect capture.MonitorRect) {
	v.commands <- command{kind: cmdSetScreen, rect: rect}
}

// Close posts quit to the render thread and joins it before returning, so
// every GPU handle it owns is released before the caller destroys the view
// window.
func (v *View) Close() {
	v.commands <- command{kind: cmdQuit}
	v.wg.Wait()
}
