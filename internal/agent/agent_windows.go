//go:build windows

package agent

import (
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"github.com/Happy-Ferret/win32-screen-view/internal/comhandle"
	"github.com/Happy-Ferret/win32-screen-view/internal/comm"
	"github.com/Happy-Ferret/win32-screen-view/internal/logging"
	"github.com/Happy-Ferret/win32-screen-view/internal/winhost"
)

var d3d10_1DLL = syscall.NewLazyDLL("d3d10_1.dll")
var procD3D10CreateDeviceAndSwapChain1 = d3d10_1DLL.NewProc("D3D10CreateDeviceAndSwapChain1")

const (
	d3d10DriverTypeNull  = 3
	d3d10FeatureLevel9_1 = 0x9100
	d3d10_1SDKVersion    = 1

	dxgiFormatB8G8R8A8          = 87
	dxgiUsageRenderTargetOutput = 1 << 5
)

// IDXGISwapChain vtable, extends IDXGIDeviceSubObject (GetDevice at 7) which
// extends IDXGIObject (3-6). Present is the one slot this package patches.
const (
	vtblSwapGetDevice           = 7
	vtblSwapPresent             = 8
	vtblSwapGetBuffer           = 9
	vtblSwapGetDesc             = 12
	vtblSwapGetContainingOutput = 15
)

// IDXGIOutput (extends IDXGIObject directly): GetDesc at 7.
const vtblOutputGetDesc = 7

// ID3D10Device slots this package calls. D3D10's device doubles as an
// immediate context (there is no separate context object, unlike D3D11),
// so CopyResource/ResolveSubresource live directly on it.
const (
	vtblD3D10DeviceCopyResource       = 33
	vtblD3D10DeviceResolveSubresource = 38
	vtblD3D10DeviceOpenSharedResource = 68
)

var (
	iidID3D10Device   = comhandle.GUID{Data1: 0x9B7E4C0F, Data2: 0x342C, Data3: 0x4106, Data4: [8]byte{0xA1, 0x9F, 0x4F, 0x27, 0x04, 0xF6, 0x89, 0xF0}}
	iidID3D10Resource = comhandle.GUID{Data1: 0x9B7E4C02, Data2: 0x342C, Data3: 0x4106, Data4: [8]byte{0xA1, 0x9F, 0x4F, 0x27, 0x04, 0xF6, 0x89, 0xF0}}
)

type dxgiRational struct{ Numerator, Denominator uint32 }

type dxgiModeDesc struct {
	Width, Height    uint32
	RefreshRate      dxgiRational
	Format           uint32
	ScanlineOrdering uint32
	Scaling          uint32
}

type dxgiSampleDesc struct{ Count, Quality uint32 }

type dxgiSwapChainDesc struct {
	BufferDesc   dxgiModeDesc
	SampleDesc   dxgiSampleDesc
	BufferUsage  uint32
	BufferCount  uint32
	OutputWindow uintptr
	Windowed     int32
	SwapEffect   uint32
	Flags        uint32
}

type dxgiOutputDesc struct {
	DeviceName        [32]uint16
	Left, Top         int32
	Right, Bottom     int32
	AttachedToDesktop int32
	Rotation          uint32
	Monitor           uintptr
}

// state is every piece of cross-call data OverriddenPresent needs, kept as
// package-level atomics: exactly one instance of this agent ever runs per
// injected process, so there is nothing to make instance-local here, unlike
// the viewer-side sources which serve multiple views.
type state struct {
	hostHWND atomic.Uintptr

	monitorLeft, monitorTop, monitorRight, monitorBottom atomic.Int32

	sharedTextureHandle atomic.Uintptr
	capturedSwapChain   atomic.Uintptr
	captureTarget       atomic.Uintptr

	lastPresentTicks atomic.Int64

	mu          sync.Mutex
	truePresent uintptr
	restoreHook func() error
}

var g state

// openCaptureTarget opens the shared texture this process's device sees as
// its own ID3D10Resource, given the swap chain that owns the device.
func openCaptureTarget(swap uintptr) (uintptr, error) {
	handle := g.sharedTextureHandle.Load()
	if handle == 0 {
		return 0, nil
	}

	var device uintptr
	_, err := comhandle.Call(swap, vtblSwapGetDevice, uintptr(unsafe.Pointer(&iidID3D10Device)), uintptr(unsafe.Pointer(&device)))
	if err != nil {
		return 0, fmt.Errorf("GetDevice: %w", err)
	}
	defer comhandle.CallRaw(device, 2)

	var target uintptr
	_, err = comhandle.Call(device, vtblD3D10DeviceOpenSharedResource, handle, uintptr(unsafe.Pointer(&iidID3D10Resource)), uintptr(unsafe.Pointer(&target)))
	if err != nil {
		return 0, fmt.Errorf("OpenSharedResource: %w", err)
	}
	return target, nil
}

// copyBackBuffer copies swap's current back buffer into target, resolving
// a multisampled back buffer down to the single-sampled shared texture.
func copyBackBuffer(swap, target uintptr) {
	var device uintptr
	if _, err := comhandle.Call(swap, vtblSwapGetDevice, uintptr(unsafe.Pointer(&iidID3D10Device)), uintptr(unsafe.Pointer(&device))); err != nil {
		return
	}
	defer comhandle.CallRaw(device, 2)

	var backBuffer uintptr
	if _, err := comhandle.Call(swap, vtblSwapGetBuffer, 0, uintptr(unsafe.Pointer(&iidID3D10Resource)), uintptr(unsafe.Pointer(&backBuffer))); err != nil {
		return
	}
	defer comhandle.CallRaw(backBuffer, 2)

	var desc dxgiSwapChainDesc
	if _, err := comhandle.Call(swap, vtblSwapGetDesc, uintptr(unsafe.Pointer(&desc))); err != nil {
		return
	}

	if desc.SampleDesc.Count > 1 {
		comhandle.CallRaw(device, vtblD3D10DeviceResolveSubresource, target, 0, backBuffer, 0, dxgiFormatB8G8R8A8)
	} else {
		comhandle.CallRaw(device, vtblD3D10DeviceCopyResource, target, backBuffer)
	}
}

// trySetupCapturing checks whether swap's output matches the selected
// monitor rect and, if so, adopts it as the captured chain.
func trySetupCapturing(swap uintptr) {
	var output uintptr
	if _, err := comhandle.Call(swap, vtblSwapGetContainingOutput, uintptr(unsafe.Pointer(&output))); err != nil {
		return
	}
	defer comhandle.CallRaw(output, 2)

	var desc dxgiOutputDesc
	if _, err := comhandle.Call(output, vtblOutputGetDesc, uintptr(unsafe.Pointer(&desc))); err != nil {
		return
	}
	if desc.AttachedToDesktop == 0 {
		return
	}

	if desc.Left == g.monitorLeft.Load() && desc.Top == g.monitorTop.Load() &&
		desc.Right == g.monitorRight.Load() && desc.Bottom == g.monitorBottom.Load() {
		g.capturedSwapChain.Store(swap)
	}
}

// overriddenPresent replaces IDXGISwapChain::Present for every swap chain
// that shares the patched vtable. It throttles actual frame copies to
// PresentThrottleMillis regardless of how often the compositor presents,
// then always chains to the real Present so the desktop keeps rendering.
func overriddenPresent(swap uintptr, syncInterval, flags uint32) uintptr {
	captured := g.capturedSwapChain.Load()

	if captured == swap {
		target := g.captureTarget.Load()
		if target == 0 {
			if t, err := openCaptureTarget(swap); err == nil && t != 0 {
				g.captureTarget.Store(t)
				target = t
			}
		}
		if target != 0 {
			now := time.Now().UnixMilli()
			if now-g.lastPresentTicks.Load() > PresentThrottleMillis {
				g.lastPresentTicks.Store(now)
				copyBackBuffer(swap, target)
			}
		}
	} else if captured == 0 {
		trySetupCapturing(swap)
	}

	g.mu.Lock()
	truePresent := g.truePresent
	g.mu.Unlock()

	ret, _, _ := syscall.SyscallN(truePresent, swap, uintptr(syncInterval), uintptr(flags))
	return ret
}

var overriddenPresentCallback = syscall.NewCallback(overriddenPresent)

// installHook creates a throwaway D3D10.1 device and swap chain purely to
// reach the swap-chain vtable, patches its Present slot (shared by every
// swap chain of that implementation in the process, including the
// compositor's), and remembers the original so it can be restored.
func installHook() error {
	tmp, err := winhost.NewWindow(0, noopHandler{})
	if err != nil {
		return fmt.Errorf("create temporary window: %w", err)
	}
	defer tmp.Destroy()

	desc := dxgiSwapChainDesc{
		BufferDesc:   dxgiModeDesc{Width: 2, Height: 2, Format: dxgiFormatB8G8R8A8},
		SampleDesc:   dxgiSampleDesc{Count: 1, Quality: 0},
		BufferUsage:  dxgiUsageRenderTargetOutput,
		BufferCount:  2,
		OutputWindow: tmp.HWND(),
		Windowed:     1,
	}

	var swap, dev uintptr
	featureLevel := uint32(d3d10FeatureLevel9_1)
	hr, _, _ := procD3D10CreateDeviceAndSwapChain1.Call(
		0,
		uintptr(d3d10DriverTypeNull),
		0,
		0,
		uintptr(featureLevel),
		uintptr(d3d10_1SDKVersion),
		uintptr(unsafe.Pointer(&desc)),
		uintptr(unsafe.Pointer(&swap)),
		uintptr(unsafe.Pointer(&dev)),
	)
	if int32(hr) < 0 {
		return fmt.Errorf("%w: D3D10CreateDeviceAndSwapChain1: 0x%08X", ErrNoD3D10, uint32(hr))
	}
	defer comhandle.CallRaw(dev, 2)
	defer comhandle.CallRaw(swap, 2)

	original, restore, err := comhandle.PatchVtableSlot(swap, vtblSwapPresent, overriddenPresentCallback)
	if err != nil {
		return fmt.Errorf("patch Present vtable slot: %w", err)
	}

	g.mu.Lock()
	g.truePresent = original
	g.restoreHook = restore
	g.mu.Unlock()
	return nil
}

func uninstallHook() {
	g.mu.Lock()
	restore := g.restoreHook
	g.mu.Unlock()
	if restore != nil {
		if err := restore(); err != nil {
			logging.L("agent").Warn("unhook failed", "err", err)
		}
	}
}

type noopHandler struct{}

func (noopHandler) HandleMessage(msgID uint32, wparam, lparam uintptr) (uintptr, bool) {
	return 0, false
}

// Run is the agent's entry point body: it sets up the control-plane
// communicator, installs the Present hook, pumps messages until the
// watchdog or an explicit quit fires, then unhooks and returns.
func Run(hostHWND uintptr) int {
	g.hostHWND.Store(hostHWND)

	var agentComm *comm.AgentCommunicator
	logging.SetSink(func(msg string) {
		if agentComm != nil {
			agentComm.SendLog(msg)
		}
	})

	onNewTexture := func(handle uintptr) {
		g.sharedTextureHandle.Store(handle)
		if old := g.captureTarget.Swap(0); old != 0 {
			comhandle.CallRaw(old, 2)
		}
	}
	onNewScreen := func(r comm.Rect) {
		g.monitorLeft.Store(r.Left)
		g.monitorTop.Store(r.Top)
		g.monitorRight.Store(r.Right)
		g.monitorBottom.Store(r.Bottom)
		g.capturedSwapChain.Store(0)
	}
	onTimeout := func() {
		winhost.PostQuitMessageToThread(winhost.CurrentThreadID())
	}

	var err error
	agentComm, err = comm.NewAgentCommunicator(hostHWND, onNewTexture, onNewScreen, onTimeout)
	if err != nil {
		logging.L("agent").Warn("create communicator failed", "err", err)
		return -1
	}
	defer agentComm.Close()

	if err := installHook(); err != nil {
		logging.L("agent").Warn("install hook failed", "err", err)
		return -1
	}

	winhost.RunMessageLoop()

	uninstallHook()
	if target := g.captureTarget.Swap(0); target != 0 {
		comhandle.CallRaw(target, 2)
	}
	return 0
}
