//go:build !windows

package winhost

// CopyDataStruct mirrors COPYDATASTRUCT on the real platform; kept here so
// callers can reference the type on any GOOS.
type CopyDataStruct struct {
	DwData uintptr
	CbData uint32
	LpData uintptr
}

// Handler is invoked for every message delivered to a Window.
type Handler interface {
	HandleMessage(msgID uint32, wparam, lparam uintptr) (result uintptr, handled bool)
}

// Window is an opaque placeholder on non-Windows builds.
type Window struct{}

func NewWindow(parent uintptr, handler Handler) (*Window, error) { return nil, ErrNotSupported }

func NewChildWindow(parent uintptr, x, y, w, h int32, handler Handler) (*Window, error) {
	return nil, ErrNotSupported
}

// WMSize is the resize notification message ID, kept here for cross-GOOS
// callers even though it can never actually be delivered off Windows.
const WMSize = 0x0005

func (w *Window) HWND() uintptr { return 0 }
func (w *Window) Destroy()      {}

func PostMessage(hwnd uintptr, msgID uint32, wparam, lparam uintptr) error { return ErrNotSupported }

func SendMessageTimeout(hwnd uintptr, msgID uint32, wparam, lparam uintptr, timeoutMillis uint32) (uintptr, error) {
	return 0, ErrNotSupported
}

func SetTimer(hwnd uintptr, id uintptr, intervalMillis uint32) {}
func KillTimer(hwnd uintptr, id uintptr)                       {}

func GetClientSize(hwnd uintptr) (width, height uint32) { return 0, 0 }

func RunMessageLoop() {}

func PostQuitMessageToThread(threadID uint32) error { return ErrNotSupported }

func CurrentThreadID() uint32 { return 0 }

func CallSoon(action func(), delayMillis uint32) error { return ErrNotSupported }

func DetectOSGeneration() OSGeneration { return OSUnsupported }
