// Command deskviewdll builds the outer C ABI (CreateView, ChangeScreen,
// SetLogHandler) as a cgo c-shared library: the three cdecl entry points a
// host process links against to embed a monitor's live image inside a
// child window.
package main

/*
#include <stdint.h>
#include <stdlib.h>

typedef void (*log_handler_fn)(const char* msg_utf8, void* userdata);

static inline void invoke_log_handler(log_handler_fn fn, const char* msg, void* userdata) {
	fn(msg, userdata);
}
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/Happy-Ferret/win32-screen-view/internal/agent"
	"github.com/Happy-Ferret/win32-screen-view/internal/capture"
	"github.com/Happy-Ferret/win32-screen-view/internal/comm"
	"github.com/Happy-Ferret/win32-screen-view/internal/logging"
	"github.com/Happy-Ferret/win32-screen-view/internal/view"
	"github.com/Happy-Ferret/win32-screen-view/internal/winhost"
)

var log = logging.L("deskviewdll")

// viewsMu guards viewsByHWND, the set of live views created by this
// process; ChangeScreen looks a view up here by its window handle.
var (
	viewsMu     sync.Mutex
	viewsByHWND = map[uintptr]*boundView{}
)

type boundView struct {
	v    *view.View
	comm *comm.ViewerCommunicator // nil on the modern path
}

// HandleMessage is the view window's WndProc handler. The viewer
// communicator (legacy path only) owns its own separate message-only
// window and is never routed through here.
func (b *boundView) HandleMessage(msgID uint32, wparam, lparam uintptr) (uintptr, bool) {
	if msgID == winhost.WMSize && b.v != nil {
		b.v.Resize()
	}
	return 0, false
}

// The host is expected to ship dwmagent.dll (built from cmd/dwmagent)
// alongside this library so it can be resolved by name once injected.
const (
	agentDLLName    = "dwmagent.dll"
	compositorImage = "dwm.exe"
)

//export CreateView
func CreateView(parent uintptr, x, y, w, h int32) uintptr {
	rect := capture.MonitorRect{Left: x, Top: y, Right: x + w, Bottom: y + h}
	if !rect.Valid() {
		log.Warn("invalid monitor rect", "x", x, "y", y, "w", w, "h", h)
	}

	bv := &boundView{}
	win, err := winhost.NewChildWindow(parent, x, y, w, h, bv)
	if err != nil {
		log.Warn("create view window failed", "err", err)
		return 0
	}

	gen := winhost.DetectOSGeneration()

	var source capture.Source
	switch gen {
	case winhost.OSModern:
		source = capture.NewModernSource()
	case winhost.OSLegacy:
		vc, err := comm.NewViewerCommunicator(compositorImage, agentDLLName, agentDLLName, agent.EntryPointName)
		if err != nil {
			log.Warn("create viewer communicator failed", "err", err)
			win.Destroy()
			return 0
		}
		bv.comm = vc
		source = capture.NewLegacySource(vc)
	default:
		log.Warn("unsupported OS generation, no view created")
		win.Destroy()
		return 0
	}

	v, err := view.New(win.HWND(), rect, source)
	if err != nil {
		log.Warn("create render thread failed", "err", err)
		if bv.comm != nil {
			bv.comm.Close()
		}
		win.Destroy()
		return 0
	}
	bv.v = v

	viewsMu.Lock()
	viewsByHWND[win.HWND()] = bv
	viewsMu.Unlock()

	return win.HWND()
}

//export ChangeScreen
func ChangeScreen(viewHWND uintptr, x, y, w, h int32) {
	viewsMu.Lock()
	bv, ok := viewsByHWND[viewHWND]
	viewsMu.Unlock()
	if !ok {
		return
	}
	rect := capture.MonitorRect{Left: x, Top: y, Right: x + w, Bottom: y + h}
	bv.v.SetScreen(rect)
}

//export SetLogHandler
func SetLogHandler(handler C.log_handler_fn, userdata unsafe.Pointer) {
	if handler == nil {
		logging.SetSink(nil)
		return
	}
	logging.SetSink(func(msg string) {
		cmsg := C.CString(msg)
		defer C.free(unsafe.Pointer(cmsg))
		C.invoke_log_handler(handler, cmsg, userdata)
	})
}

func main() {}
