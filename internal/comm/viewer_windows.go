//go:build windows

package comm

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unsafe"

	"github.com/Happy-Ferret/win32-screen-view/internal/inject"
	"github.com/Happy-Ferret/win32-screen-view/internal/logging"
	"github.com/Happy-Ferret/win32-screen-view/internal/strutil"
	"github.com/Happy-Ferret/win32-screen-view/internal/winhost"
)

const keepAliveTimerID = 1

// Standard Win32 message IDs this package dispatches on directly; not
// re-exported from winhost since they're stable ABI constants, not
// internal plumbing details.
const (
	wmTimerID    = 0x0113
	wmCopyDataID = 0x004A
)

// ViewerCommunicator is the viewer-side half of the legacy control plane: it
// owns a message-only window, drives the compositor-presence/injection
// handshake on a one-second tick, and forwards the shared desktop texture
// and the selected monitor's rect to the agent once connected.
type ViewerCommunicator struct {
	compositorImage string
	agentDLLPath    string
	agentDLLName    string
	entryPointName  string

	window *winhost.Window
	log    *slog.Logger

	mu          sync.Mutex
	state       HandshakeState
	agentHWND   uintptr
	haveTexture bool
	texture     uintptr
	haveScreen  bool
	screen      Rect
}

// NewViewerCommunicator creates the control-plane window and arms the
// keep-alive/injection tick. compositorImage is the target process's image
// name (e.g. "dwm.exe"); agentDLLPath is the on-disk path to the agent DLL
// to be injected; agentDLLName is its base name as it will appear in the
// compositor's module list; entryPointName is the exported function the
// remote thread should start at.
func NewViewerCommunicator(compositorImage, agentDLLPath, agentDLLName, entryPointName string) (*ViewerCommunicator, error) {
	c := &ViewerCommunicator{
		compositorImage: compositorImage,
		agentDLLPath:    agentDLLPath,
		agentDLLName:    agentDLLName,
		entryPointName:  entryPointName,
		log:             logging.L("comm.viewer"),
	}
	w, err := winhost.NewWindow(0, c)
	if err != nil {
		return nil, fmt.Errorf("comm: create communicator window: %w", err)
	}
	c.window = w
	winhost.SetTimer(w.HWND(), keepAliveTimerID, KeepAliveTickMillis)
	return c, nil
}

// HWND returns the communicator window's handle.
func (c *ViewerCommunicator) HWND() uintptr { return c.window.HWND() }

// Close tears down the keep-alive timer and the communicator window.
func (c *ViewerCommunicator) Close() {
	winhost.KillTimer(c.window.HWND(), keepAliveTimerID)
	c.window.Destroy()
}

// State returns the current handshake state.
func (c *ViewerCommunicator) State() HandshakeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SendNewTexture announces a freshly (re)created shared desktop texture
// handle to the agent, if connected, and remembers it so a reconnecting
// agent gets it again via onInjected.
func (c *ViewerCommunicator) SendNewTexture(handle uintptr) {
	c.mu.Lock()
	c.haveTexture = true
	c.texture = handle
	hwnd := c.agentHWND
	c.mu.Unlock()

	if hwnd != 0 {
		winhost.PostMessage(hwnd, MsgNewTexture, 0, handle)
	}
}

// SendNewScreen announces the selected monitor's rect to the agent, if
// connected, and remembers it for a reconnecting agent.
func (c *ViewerCommunicator) SendNewScreen(r Rect) {
	c.mu.Lock()
	c.haveScreen = true
	c.screen = r
	hwnd := c.agentHWND
	c.mu.Unlock()

	if hwnd != 0 {
		c.sendScreenTo(hwnd, r)
	}
}

func (c *ViewerCommunicator) sendScreenTo(hwnd uintptr, r Rect) {
	buf := make([]byte, unsafe.Sizeof(r))
	*(*Rect)(unsafe.Pointer(&buf[0])) = r
	cds := winhost.CopyDataStruct{
		DwData: CopyDataNewScreen,
		CbData: uint32(len(buf)),
		LpData: uintptr(unsafe.Pointer(&buf[0])),
	}
	winhost.SendMessageTimeout(hwnd, wmCopyDataID, c.window.HWND(), uintptr(unsafe.Pointer(&cds)), SendTimeoutMillis)
}

// HandleMessage implements winhost.Handler.
func (c *ViewerCommunicator) HandleMessage(msgID uint32, wparam, lparam uintptr) (uintptr, bool) {
	switch msgID {
	case wmTimerID:
		c.onKeepAliveTick()
		return 0, true
	case MsgInjected:
		c.onInjected(lparam)
		return 0, true
	case wmCopyDataID:
		c.onCopyData((*winhost.CopyDataStruct)(unsafe.Pointer(lparam)))
		return 1, true
	}
	return 0, false
}

func (c *ViewerCommunicator) onInjected(agentHWND uintptr) {
	c.mu.Lock()
	c.agentHWND = agentHWND
	c.state = Connected
	haveTexture, texture := c.haveTexture, c.texture
	haveScreen, screen := c.haveScreen, c.screen
	c.mu.Unlock()

	c.log.Info("agent injected", "agent_hwnd", agentHWND)
	if haveTexture {
		winhost.PostMessage(agentHWND, MsgNewTexture, 0, texture)
	}
	if haveScreen {
		c.sendScreenTo(agentHWND, screen)
	}
}

func (c *ViewerCommunicator) onCopyData(cds *winhost.CopyDataStruct) {
	if cds == nil || cds.DwData != CopyDataLog {
		return
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(cds.LpData)), int(cds.CbData))
	c.log.Info("FROM DWM: " + string(data))
}

func (c *ViewerCommunicator) onKeepAliveTick() {
	pid, err := inject.ProcessIDForName(c.compositorImage)
	if err != nil || pid == 0 {
		c.mu.Lock()
		c.state = Disconnected
		c.agentHWND = 0
		c.mu.Unlock()
		return
	}

	loaded, err := inject.IsDLLLoaded(pid, c.agentDLLName)
	if err != nil {
		c.log.Warn("check agent module presence failed", "err", err)
		return
	}
	if !loaded {
		c.mu.Lock()
		c.state = Injecting
		c.agentHWND = 0
		c.mu.Unlock()
		c.inject(pid)
		return
	}

	c.mu.Lock()
	if c.state == Disconnected || c.state == Injecting {
		c.state = Connected
	}
	hwnd := c.agentHWND
	c.mu.Unlock()

	if hwnd != 0 {
		winhost.PostMessage(hwnd, MsgKeepAlive, 0, 0)
	}
}

// inject performs the two-call bootstrap: LoadLibraryW the agent DLL into
// the compositor process, then start a remote thread at the DLL's exported
// entry point, passing this communicator's HWND as the raw thread argument
// so the agent can call back with MsgInjected.
func (c *ViewerCommunicator) inject(pid uint32) {
	loadLibraryOffset, err := inject.GetFunctionOffset("kernel32.dll", "LoadLibraryW")
	if err != nil {
		c.log.Warn("resolve LoadLibraryW offset failed", "err", err)
		return
	}
	pathArg := strutil.UTF16FromString(c.agentDLLPath)
	pathBytes := unsafe.Slice((*byte)(unsafe.Pointer(&pathArg[0])), len(pathArg)*2)
	if _, err := inject.CallRemoteFunc(pid, "kernel32.dll", loadLibraryOffset, pathBytes, 5*time.Second); err != nil {
		c.log.Warn("inject agent DLL failed", "err", err)
		return
	}

	entryOffset, err := inject.GetFunctionOffset(c.agentDLLPath, c.entryPointName)
	if err != nil {
		c.log.Warn("resolve agent entry point offset failed", "err", err)
		return
	}
	if _, err := inject.CallRemoteFuncRaw(pid, c.agentDLLName, entryOffset, c.window.HWND(), 0); err != nil {
		c.log.Warn("start agent entry point failed", "err", err)
		return
	}
	c.log.Info("agent bootstrap dispatched", "pid", pid)
}
