//go:build windows

package inject

import (
	"fmt"
	"strings"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	th32csSnapProcess = 0x00000002
	th32csSnapModule  = 0x00000008
	th32csSnapModule32 = 0x00000010
	maxModuleName32 = 255
	maxPath         = 260
)

type processEntry32W struct {
	Size              uint32
	Usage             uint32
	ProcessID         uint32
	DefaultHeapID     uintptr
	ModuleID          uint32
	Threads           uint32
	ParentProcessID   uint32
	PriorityClassBase int32
	Flags             uint32
	ExeFile           [maxPath]uint16
}

type moduleEntry32W struct {
	Size         uint32
	ModuleID     uint32
	ProcessID    uint32
	GlblcntUsage uint32
	ProccntUsage uint32
	ModBaseAddr  uintptr
	ModBaseSize  uint32
	Module       windows.Handle
	ModuleName   [maxModuleName32 + 1]uint16
	ExePath      [maxPath]uint16
}

var (
	modKernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procCreateToolhelp32Snapshot = modKernel32.NewProc("CreateToolhelp32Snapshot")
	procProcess32First           = modKernel32.NewProc("Process32FirstW")
	procProcess32Next            = modKernel32.NewProc("Process32NextW")
	procModule32First            = modKernel32.NewProc("Module32FirstW")
	procModule32Next             = modKernel32.NewProc("Module32NextW")
	procCreateRemoteThread       = modKernel32.NewProc("CreateRemoteThread")
	procGetExitCodeThread        = modKernel32.NewProc("GetExitCodeThread")
)

// ProcessIDForName walks the system process snapshot and returns the first
// PID whose image name matches (case-insensitive), or 0 if none does.
func ProcessIDForName(name string) (uint32, error) {
	snapshot, _, err := procCreateToolhelp32Snapshot.Call(uintptr(th32csSnapProcess), 0)
	if windows.Handle(snapshot) == windows.InvalidHandle {
		return 0, fmt.Errorf("CreateToolhelp32Snapshot: %w", err)
	}
	defer windows.CloseHandle(windows.Handle(snapshot))

	var entry processEntry32W
	entry.Size = uint32(unsafe.Sizeof(entry))

	ret, _, _ := procProcess32First.Call(snapshot, uintptr(unsafe.Pointer(&entry)))
	if ret == 0 {
		return 0, ErrProcessNotFound
	}
	for {
		exeName := windows.UTF16ToString(entry.ExeFile[:])
		if strings.EqualFold(exeName, name) {
			return entry.ProcessID, nil
		}
		entry.Size = uint32(unsafe.Sizeof(entry))
		ret, _, _ = procProcess32Next.Call(snapshot, uintptr(unsafe.Pointer(&entry)))
		if ret == 0 {
			return 0, ErrProcessNotFound
		}
	}
}

// findRemoteBaseAddress snapshots the modules of pid (retrying on
// ERROR_BAD_LENGTH, a documented transient failure when another process's
// module list changes mid-enumeration) and returns the base address of the
// first-loaded module whose base name matches moduleName, or 0 if none
// does. If the target process has two differently-pathed copies of the
// same base name loaded, which one wins is unspecified, matching the
// original tool's behavior.
func findRemoteBaseAddress(pid uint32, moduleName string) (uintptr, error) {
	var snapshot uintptr
	var err error
	for attempt := 0; attempt < maxSnapshotRetries; attempt++ {
		var rawErr error
		r, _, rawErr2 := procCreateToolhelp32Snapshot.Call(uintptr(th32csSnapModule|th32csSnapModule32), uintptr(pid))
		snapshot = r
		rawErr = rawErr2
		if windows.Handle(snapshot) != windows.InvalidHandle {
			err = nil
			break
		}
		if rawErr != syscall.ERROR_BAD_LENGTH {
			err = rawErr
			break
		}
	}
	if windows.Handle(snapshot) == windows.InvalidHandle {
		if err == nil {
			err = fmt.Errorf("CreateToolhelp32Snapshot: exceeded retry budget")
		}
		return 0, err
	}
	defer windows.CloseHandle(windows.Handle(snapshot))

	var me moduleEntry32W
	me.Size = uint32(unsafe.Sizeof(me))

	ret, _, _ := procModule32First.Call(snapshot, uintptr(unsafe.Pointer(&me)))
	if ret == 0 {
		return 0, nil
	}
	for {
		name := windows.UTF16ToString(me.ModuleName[:])
		if strings.EqualFold(name, moduleName) {
			return me.ModBaseAddr, nil
		}
		me.Size = uint32(unsafe.Sizeof(me))
		ret, _, _ = procModule32Next.Call(snapshot, uintptr(unsafe.Pointer(&me)))
		if ret == 0 {
			return 0, nil
		}
	}
}

// IsDLLLoaded reports whether moduleName is loaded in process pid.
func IsDLLLoaded(pid uint32, moduleName string) (bool, error) {
	addr, err := findRemoteBaseAddress(pid, moduleName)
	if err != nil {
		return false, err
	}
	return addr != 0, nil
}

// GetFunctionOffset resolves functionName in the locally loaded module
// moduleName and returns its offset from the module's base address, so the
// same offset can be added to a remote base address.
func GetFunctionOffset(moduleName, functionName string) (uintptr, error) {
	mod, err := windows.LoadLibrary(moduleName)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrModuleNotFound, moduleName, err)
	}
	proc, err := windows.GetProcAddress(mod, functionName)
	if err != nil {
		return 0, fmt.Errorf("%w: %s!%s: %v", ErrFunctionNotFound, moduleName, functionName, err)
	}
	return proc - uintptr(mod), nil
}

// CallRemoteFunc resolves moduleName's base address in process pid, opens
// the process with the rights needed to create a remote thread and touch
// its memory, optionally copies argument into freshly allocated remote
// memory (in which case it waits indefinitely so the memory can be freed
// safely once the thread exits), starts a remote thread at
// remoteBase+offset with that argument, waits up to wait (ignored when
// argument is non-empty), and returns the thread's exit code.
func CallRemoteFunc(pid uint32, moduleName string, offset uintptr, argument []byte, wait time.Duration) (uint32, error) {
	process, remoteBase, err := openForRemoteCall(pid, moduleName)
	if err != nil {
		return 0, err
	}
	defer windows.CloseHandle(process)

	var remoteArg uintptr
	waitMillis := uint32(wait / time.Millisecond)
	if len(argument) > 0 {
		remoteMem, err := windows.VirtualAllocEx(process, 0, uintptr(len(argument)), windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
		if err != nil {
			return 0, fmt.Errorf("VirtualAllocEx: %w", err)
		}
		defer windows.VirtualFreeEx(process, remoteMem, 0, windows.MEM_RELEASE)

		var written uintptr
		if err := windows.WriteProcessMemory(process, remoteMem, &argument[0], uintptr(len(argument)), &written); err != nil {
			return 0, fmt.Errorf("WriteProcessMemory: %w", err)
		}
		remoteArg = remoteMem
		waitMillis = 0xFFFFFFFF // INFINITE: we must reclaim the remote memory safely
	}

	return startRemoteThread(process, remoteBase+offset, remoteArg, waitMillis)
}

// CallRemoteFuncRaw is CallRemoteFunc's counterpart for entry points that
// take their argument by value instead of by pointer (e.g. an HWND passed
// straight through as the thread's lpParameter): no remote memory is
// allocated, rawArg is passed to the remote thread unmodified.
func CallRemoteFuncRaw(pid uint32, moduleName string, offset uintptr, rawArg uintptr, wait time.Duration) (uint32, error) {
	process, remoteBase, err := openForRemoteCall(pid, moduleName)
	if err != nil {
		return 0, err
	}
	defer windows.CloseHandle(process)

	return startRemoteThread(process, remoteBase+offset, rawArg, uint32(wait/time.Millisecond))
}

func openForRemoteCall(pid uint32, moduleName string) (windows.Handle, uintptr, error) {
	remoteBase, err := findRemoteBaseAddress(pid, moduleName)
	if err != nil {
		return 0, 0, err
	}
	if remoteBase == 0 {
		return 0, 0, fmt.Errorf("%w: %s in pid %d", ErrModuleNotFound, moduleName, pid)
	}

	process, err := windows.OpenProcess(
		windows.PROCESS_DUP_HANDLE|windows.PROCESS_CREATE_THREAD|windows.PROCESS_QUERY_INFORMATION|
			windows.PROCESS_VM_READ|windows.PROCESS_VM_WRITE|windows.PROCESS_VM_OPERATION,
		false, pid)
	if err != nil {
		return 0, 0, fmt.Errorf("OpenProcess(%d): %w", pid, err)
	}
	return process, remoteBase, nil
}

func startRemoteThread(process windows.Handle, startAddr, arg uintptr, waitMillis uint32) (uint32, error) {
	threadHandle, _, callErr := procCreateRemoteThread.Call(
		uintptr(process), 0, 0, startAddr, arg, 0, 0)
	if threadHandle == 0 {
		return 0, fmt.Errorf("CreateRemoteThread: %w", callErr)
	}
	defer windows.CloseHandle(windows.Handle(threadHandle))

	if waitMillis != 0 {
		windows.WaitForSingleObject(windows.Handle(threadHandle), waitMillis)
	}

	var exitCode uint32
	procGetExitCodeThread.Call(threadHandle, uintptr(unsafe.Pointer(&exitCode)))
	return exitCode, nil
}
