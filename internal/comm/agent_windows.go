//go:build windows

package comm

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unsafe"

	"github.com/Happy-Ferret/win32-screen-view/internal/logging"
	"github.com/Happy-Ferret/win32-screen-view/internal/winhost"
)

const watchdogTimerID = 1

// AgentCommunicator is the agent-side half of the legacy control plane: it
// completes the injected handshake by posting MsgInjected back to the
// viewer, then receives MsgNewTexture/COPYDATA(NEWSCREEN)/MsgKeepAlive and
// runs the watchdog that quits the agent if keep-alives stop arriving.
type AgentCommunicator struct {
	window     *winhost.Window
	viewerHWND uintptr
	log        *slog.Logger

	onNewTexture func(handle uintptr)
	onNewScreen  func(r Rect)
	onTimeout    func()

	mu            sync.Mutex
	lastKeepAlive time.Time
}

// NewAgentCommunicator creates the agent's message window, completes the
// handshake with the viewer at viewerHWND, and arms the watchdog. The
// callbacks run synchronously on whatever thread pumps this window's
// messages.
func NewAgentCommunicator(viewerHWND uintptr, onNewTexture func(uintptr), onNewScreen func(Rect), onTimeout func()) (*AgentCommunicator, error) {
	c := &AgentCommunicator{
		viewerHWND:   viewerHWND,
		log:          logging.L("comm.agent"),
		onNewTexture: onNewTexture,
		onNewScreen:  onNewScreen,
		onTimeout:    onTimeout,
	}
	w, err := winhost.NewWindow(0, c)
	if err != nil {
		return nil, fmt.Errorf("comm: create agent window: %w", err)
	}
	c.window = w
	c.lastKeepAlive = time.Now()
	winhost.SetTimer(w.HWND(), watchdogTimerID, KeepAliveTickMillis)

	if _, err := winhost.SendMessageTimeout(viewerHWND, MsgInjected, 0, w.HWND(), SendTimeoutMillis); err != nil {
		c.log.Warn("handshake send failed", "err", err)
	}
	return c, nil
}

// HWND returns the agent communicator window's handle.
func (c *AgentCommunicator) HWND() uintptr { return c.window.HWND() }

// Close stops the watchdog and destroys the communicator window.
func (c *AgentCommunicator) Close() {
	winhost.KillTimer(c.window.HWND(), watchdogTimerID)
	c.window.Destroy()
}

// SendLog forwards a single log line to the viewer via COPYDATA(LOG).
func (c *AgentCommunicator) SendLog(line string) {
	b := []byte(line)
	if len(b) == 0 {
		return
	}
	cds := winhost.CopyDataStruct{
		DwData: CopyDataLog,
		CbData: uint32(len(b)),
		LpData: uintptr(unsafe.Pointer(&b[0])),
	}
	winhost.SendMessageTimeout(c.viewerHWND, wmCopyDataID, c.window.HWND(), uintptr(unsafe.Pointer(&cds)), SendTimeoutMillis)
}

// HandleMessage implements winhost.Handler.
func (c *AgentCommunicator) HandleMessage(msgID uint32, wparam, lparam uintptr) (uintptr, bool) {
	switch msgID {
	case wmTimerID:
		c.checkWatchdog()
		return 0, true
	case MsgKeepAlive:
		c.mu.Lock()
		c.lastKeepAlive = time.Now()
		c.mu.Unlock()
		return 0, true
	case MsgNewTexture:
		if c.onNewTexture != nil {
			c.onNewTexture(lparam)
		}
		return 0, true
	case wmCopyDataID:
		c.onCopyData((*winhost.CopyDataStruct)(unsafe.Pointer(lparam)))
		return 1, true
	}
	return 0, false
}

func (c *AgentCommunicator) onCopyData(cds *winhost.CopyDataStruct) {
	if cds == nil || cds.DwData != CopyDataNewScreen {
		return
	}
	if cds.CbData < uint32(unsafe.Sizeof(Rect{})) {
		return
	}
	r := *(*Rect)(unsafe.Pointer(cds.LpData))
	if c.onNewScreen != nil {
		c.onNewScreen(r)
	}
}

func (c *AgentCommunicator) checkWatchdog() {
	c.mu.Lock()
	elapsed := time.Since(c.lastKeepAlive)
	c.mu.Unlock()

	if elapsed > WatchdogTimeoutMillis*time.Millisecond {
		c.log.Warn("keep-alive timed out, shutting down", "elapsed", elapsed)
		if c.onTimeout != nil {
			c.onTimeout()
		}
	}
}
