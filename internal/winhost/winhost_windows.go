//go:build windows

package winhost

import (
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/Happy-Ferret/win32-screen-view/internal/strutil"
)

var (
	user32 = syscall.NewLazyDLL("user32.dll")

	procRegisterClassExW  = user32.NewProc("RegisterClassExW")
	procUnregisterClassW  = user32.NewProc("UnregisterClassW")
	procCreateWindowExW   = user32.NewProc("CreateWindowExW")
	procDestroyWindow     = user32.NewProc("DestroyWindow")
	procDefWindowProcW    = user32.NewProc("DefWindowProcW")
	procSetWindowLongPtrW = user32.NewProc("SetWindowLongPtrW")
	procGetMessageW       = user32.NewProc("GetMessageW")
	procTranslateMessage  = user32.NewProc("TranslateMessage")
	procDispatchMessageW  = user32.NewProc("DispatchMessageW")
	procPostQuitMessage   = user32.NewProc("PostQuitMessage")
	procPostThreadMessageW = user32.NewProc("PostThreadMessageW")
	procPostMessageW      = user32.NewProc("PostMessageW")
	procSendMessageTimeoutW = user32.NewProc("SendMessageTimeoutW")
	procSetTimer          = user32.NewProc("SetTimer")
	procKillTimer         = user32.NewProc("KillTimer")
	procGetClientRect     = user32.NewProc("GetClientRect")
)

const (
	hwndMessage = ^uintptr(2) // (HWND)-3, see HWND_MESSAGE

	gwlpWndProc = -4

	wmDestroy = 0x0002
	wmTimer   = 0x0113
	wmCopyData = 0x004A
	wmUser    = 0x0400
	wmSize    = 0x0005

	smtoAbortIfHung = 0x0002

	wsChild   = 0x40000000
	wsVisible = 0x10000000
	csHRedraw = 0x0002
	csVRedraw = 0x0001
)

// WMSize is the resize notification message ID, exported so callers (the
// view window's handler) can recognize it without importing a raw constant
// of their own.
const WMSize = wmSize

type wndClassExW struct {
	Size       uint32
	Style      uint32
	WndProc    uintptr
	ClsExtra   int32
	WndExtra   int32
	Instance   windows.Handle
	Icon       windows.Handle
	Cursor     windows.Handle
	Background windows.Handle
	MenuName   *uint16
	ClassName  *uint16
	IconSm     windows.Handle
}

type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

type rect struct {
	Left, Top, Right, Bottom int32
}

// CopyDataStruct mirrors COPYDATASTRUCT: dwData carries the small
// application-defined message kind (LOG=1, NEWSCREEN=2), lpData the raw
// payload bytes.
type CopyDataStruct struct {
	DwData uintptr
	CbData uint32
	LpData uintptr
}

// Handler is invoked for every message delivered to a Window, including
// WM_COPYDATA and WM_TIMER; wparam and lparam are passed through as they
// arrive (for WM_COPYDATA, lparam points at a CopyDataStruct).
// Returning false lets the default window procedure handle the message.
type Handler interface {
	HandleMessage(msgID uint32, wparam, lparam uintptr) (result uintptr, handled bool)
}

var (
	windowRegistry   sync.Map // hwnd uintptr -> *Window
	wndProcCallback  = syscall.NewCallback(globalWndProc)
	classNameCounter uint64
)

// Window is a thin wrapper around a native HWND: it registers a throwaway
// window class, creates the window, and dispatches every message to a
// Handler. Used for the message-only control-plane windows (internal/comm)
// and the one-shot deferred-action timer window below.
type Window struct {
	hwnd      uintptr
	classAtom uintptr
	className *uint16
	handler   Handler
}

// NewWindow creates a window of the given style/parent, defaulting to
// HWND_MESSAGE (a message-only window with no message queue visible to
// other threads) when parent is 0. handler may be nil, in which case every
// message falls through to DefWindowProc.
func NewWindow(parent uintptr, handler Handler) (*Window, error) {
	if parent == 0 {
		parent = hwndMessage
	}
	return newWindow(0, parent, 0, 0, 0, 0, handler)
}

// NewChildWindow creates a real, visible child window of parent at the
// given position and size (used for the view window, unlike the
// message-only windows NewWindow(0, ...) creates for the control plane).
func NewChildWindow(parent uintptr, x, y, w, h int32, handler Handler) (*Window, error) {
	return newWindow(wsChild|wsVisible, parent, x, y, w, h, handler)
}

func newWindow(style uint32, parent uintptr, x, y, w, h int32, handler Handler) (*Window, error) {
	n := atomic.AddUint64(&classNameCounter, 1)
	className, err := strutil.UTF16PtrFromString(fmt.Sprintf("win32screenview_wnd_%d_%d", windows.GetCurrentProcessId(), n))
	if err != nil {
		return nil, err
	}

	wc := wndClassExW{
		Size:      uint32(unsafe.Sizeof(wndClassExW{})),
		Style:     csHRedraw | csVRedraw,
		WndProc:   wndProcCallback,
		ClassName: className,
	}
	atom, _, callErr := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc)))
	if atom == 0 {
		return nil, fmt.Errorf("RegisterClassExW: %w", callErr)
	}

	win := &Window{classAtom: atom, className: className, handler: handler}

	hwnd, _, callErr := procCreateWindowExW.Call(
		0,
		atom,
		0,
		uintptr(style),
		uintptr(x), uintptr(y), uintptr(w), uintptr(h),
		parent,
		0,
		0,
		0,
	)
	if hwnd == 0 {
		procUnregisterClassW.Call(atom, 0)
		return nil, fmt.Errorf("CreateWindowExW: %w", callErr)
	}
	win.hwnd = hwnd
	windowRegistry.Store(hwnd, win)

	procSetWindowLongPtrW.Call(hwnd, uintptr(gwlpWndProc), wndProcCallback)
	return win, nil
}

// HWND returns the native window handle.
func (w *Window) HWND() uintptr { return w.hwnd }

// Destroy tears down the window and unregisters its throwaway class.
func (w *Window) Destroy() {
	windowRegistry.Delete(w.hwnd)
	procDestroyWindow.Call(w.hwnd)
	procUnregisterClassW.Call(w.classAtom, 0)
}

func globalWndProc(hwnd uintptr, msgID uint32, wparam, lparam uintptr) uintptr {
	if msgID == wmDestroy {
		windowRegistry.Delete(hwnd)
	}

	if v, ok := windowRegistry.Load(hwnd); ok {
		w := v.(*Window)
		if w.handler != nil {
			if result, handled := w.handler.HandleMessage(msgID, wparam, lparam); handled {
				return result
			}
		}
	}
	ret, _, _ := procDefWindowProcW.Call(hwnd, uintptr(msgID), wparam, lparam)
	return ret
}

// PostMessage posts a message to hwnd's queue without waiting.
func PostMessage(hwnd uintptr, msgID uint32, wparam, lparam uintptr) error {
	ret, _, err := procPostMessageW.Call(hwnd, uintptr(msgID), wparam, lparam)
	if ret == 0 {
		return fmt.Errorf("PostMessageW: %w", err)
	}
	return nil
}

// SendMessageTimeout sends a message and blocks up to timeoutMillis,
// aborting if the receiver appears hung, matching the 500 ms bound the
// control plane uses so the agent can never deadlock the host.
func SendMessageTimeout(hwnd uintptr, msgID uint32, wparam, lparam uintptr, timeoutMillis uint32) (uintptr, error) {
	var result uintptr
	ret, _, err := procSendMessageTimeoutW.Call(
		hwnd, uintptr(msgID), wparam, lparam,
		smtoAbortIfHung, uintptr(timeoutMillis), uintptr(unsafe.Pointer(&result)),
	)
	if ret == 0 {
		return 0, fmt.Errorf("SendMessageTimeoutW: %w", err)
	}
	return result, nil
}

// SetTimer arms a repeating WM_TIMER on hwnd. CallSoon makes one one-shot
// by killing it when it first fires.
func SetTimer(hwnd uintptr, id uintptr, intervalMillis uint32) {
	procSetTimer.Call(hwnd, id, uintptr(intervalMillis), 0)
}

// KillTimer disarms a timer previously armed with SetTimer.
func KillTimer(hwnd uintptr, id uintptr) {
	procKillTimer.Call(hwnd, id)
}

// GetClientSize returns the current client-area width and height of hwnd.
func GetClientSize(hwnd uintptr) (width, height uint32) {
	var r rect
	procGetClientRect.Call(hwnd, uintptr(unsafe.Pointer(&r)))
	return uint32(r.Right - r.Left), uint32(r.Bottom - r.Top)
}

// RunMessageLoop pumps GetMessage/TranslateMessage/DispatchMessage on the
// calling thread until WM_QUIT. Intended to be run on its own goroutine
// locked to an OS thread (every Win32 message queue is thread-affine).
func RunMessageLoop() {
	var m msg
	for {
		ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(ret) <= 0 {
			return
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
	}
}

// PostQuitMessageToThread posts WM_QUIT to the given thread's message
// queue, causing its RunMessageLoop to return.
func PostQuitMessageToThread(threadID uint32) error {
	ret, _, err := procPostThreadMessageW.Call(uintptr(threadID), 0x0012 /* WM_QUIT */, 0, 0)
	if ret == 0 {
		return fmt.Errorf("PostThreadMessageW: %w", err)
	}
	return nil
}

// CurrentThreadID returns the calling OS thread's ID, for addressing it
// with PostQuitMessageToThread from another thread.
func CurrentThreadID() uint32 {
	return windows.GetCurrentThreadId()
}

// deferredTimerHandler implements Handler for CallSoon's one-shot window:
// on the first WM_TIMER it kills the timer, runs the action on the
// window's own thread, and destroys itself.
type deferredTimerHandler struct {
	w      *Window
	action func()
}

func (h *deferredTimerHandler) HandleMessage(msgID uint32, wparam, lparam uintptr) (uintptr, bool) {
	if msgID == wmTimer {
		KillTimer(h.w.hwnd, 1)
		h.action()
		h.w.Destroy()
		return 0, true
	}
	return 0, false
}

// CallSoon runs action after the given delay, on a fresh message-only
// window that deletes itself once the timer fires. Needed because Windows
// timers carry no user data.
func CallSoon(action func(), delayMillis uint32) error {
	h := &deferredTimerHandler{action: action}
	w, err := NewWindow(0, h)
	if err != nil {
		return err
	}
	h.w = w
	SetTimer(w.hwnd, 1, delayMillis)
	return nil
}

// DetectOSGeneration uses RtlGetVersion (not the manifest-gated
// GetVersionEx/GetVersion pair, which lie about the OS version to
// unmanifested processes on Windows 8.1+) to classify the running OS.
func DetectOSGeneration() OSGeneration {
	v := windows.RtlGetVersion()
	switch {
	case v.MajorVersion > 6 || (v.MajorVersion == 6 && v.MinorVersion >= 2):
		return OSModern
	case v.MajorVersion == 6 && v.MinorVersion == 1:
		return OSLegacy
	default:
		return OSUnsupported
	}
}
