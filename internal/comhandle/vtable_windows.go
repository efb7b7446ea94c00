//go:build windows

package comhandle

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// GUID is a COM GUID (128-bit), binary-compatible with Windows' GUID/IID.
type GUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

// VtblFn resolves the function pointer at vtable index idx for a COM
// interface pointer (a pointer to a pointer to a vtable).
func VtblFn(obj uintptr, idx int) uintptr {
	vtbl := *(*uintptr)(unsafe.Pointer(obj))
	return *(*uintptr)(unsafe.Pointer(vtbl + uintptr(idx)*unsafe.Sizeof(uintptr(0))))
}

// Call invokes the COM vtable method at idx with obj prepended as the
// implicit this pointer, and treats a negative HRESULT as an error.
func Call(obj uintptr, idx int, args ...uintptr) (uintptr, error) {
	fn := VtblFn(obj, idx)
	all := make([]uintptr, 0, 1+len(args))
	all = append(all, obj)
	all = append(all, args...)
	ret, _, _ := syscall.SyscallN(fn, all...)
	if int32(ret) < 0 {
		return ret, fmt.Errorf("COM vtable[%d] HRESULT 0x%08X", idx, uint32(ret))
	}
	return ret, nil
}

// CallRaw invokes the COM vtable method at idx without interpreting the
// return value, for methods that return something other than an HRESULT
// (e.g. IUnknown::AddRef/Release's refcount, or a void method).
func CallRaw(obj uintptr, idx int, args ...uintptr) uintptr {
	fn := VtblFn(obj, idx)
	all := make([]uintptr, 0, 1+len(args))
	all = append(all, obj)
	all = append(all, args...)
	ret, _, _ := syscall.SyscallN(fn, all...)
	return ret
}

// vtblAddRef and vtblRelease are the fixed IUnknown vtable slots shared by
// every COM interface.
const (
	vtblQueryInterface = 0
	vtblAddRef         = 1
	vtblRelease        = 2
)

// IUnknownOps builds the Ops pair for a plain COM interface pointer from
// its inherited IUnknown vtable slots 1 and 2.
func IUnknownOps() Ops {
	return Ops{
		AddRef: func(ptr uintptr) int32 {
			return int32(CallRaw(ptr, vtblAddRef))
		},
		Release: func(ptr uintptr) int32 {
			return int32(CallRaw(ptr, vtblRelease))
		},
	}
}

// PatchVtableSlot overwrites the vtable entry at idx for obj's underlying
// vtable with newFn, temporarily making the containing page writable, and
// returns the slot's previous value plus a restore closure. The vtable is
// shared by every object of the same implementation, so the patch affects
// all of them, not just obj; objects whose vtable is a different one are
// not affected (unlike a function-prologue hook).
func PatchVtableSlot(obj uintptr, idx int, newFn uintptr) (original uintptr, restore func() error, err error) {
	vtbl := *(*uintptr)(unsafe.Pointer(obj))
	slot := vtbl + uintptr(idx)*unsafe.Sizeof(uintptr(0))

	var oldProtect uint32
	if err := windows.VirtualProtect(slot, unsafe.Sizeof(uintptr(0)), windows.PAGE_READWRITE, &oldProtect); err != nil {
		return 0, nil, fmt.Errorf("VirtualProtect(rw): %w", err)
	}

	original = *(*uintptr)(unsafe.Pointer(slot))
	*(*uintptr)(unsafe.Pointer(slot)) = newFn

	var restoredProtect uint32
	windows.VirtualProtect(slot, unsafe.Sizeof(uintptr(0)), oldProtect, &restoredProtect)

	restore = func() error {
		if err := windows.VirtualProtect(slot, unsafe.Sizeof(uintptr(0)), windows.PAGE_READWRITE, &oldProtect); err != nil {
			return fmt.Errorf("VirtualProtect(rw): %w", err)
		}
		*(*uintptr)(unsafe.Pointer(slot)) = original
		windows.VirtualProtect(slot, unsafe.Sizeof(uintptr(0)), oldProtect, &restoredProtect)
		return nil
	}
	return original, restore, nil
}

// QueryInterfaceFn returns a closure suitable for Query: it invokes
// IUnknown::QueryInterface (vtable slot 0) for the given IID and returns the
// new interface pointer on success.
func QueryInterfaceFn(obj uintptr, iid *GUID) func() (uintptr, error) {
	return func() (uintptr, error) {
		var out uintptr
		_, err := Call(obj, vtblQueryInterface,
			uintptr(unsafe.Pointer(iid)),
			uintptr(unsafe.Pointer(&out)),
		)
		if err != nil {
			return 0, err
		}
		return out, nil
	}
}
