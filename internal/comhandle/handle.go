// Package comhandle implements a reference-counted smart handle: an owning
// wrapper around a COM-style interface pointer with exclusive-owner (Take,
// Move) and shared-owner (RefOf, Clone) semantics and interface-query
// (Query). A Ref does not record which interface it points at, so there is
// no separate upcast operation; every cross-interface conversion goes
// through Query. There is deliberately no constructor that accepts a bare
// pointer while also allowing implicit conversion back to one, which is the
// usual source of double-release bugs in hand-managed COM code.
//
// The underlying object is modeled as a uintptr (an interface pointer) plus
// two functions resolved from its vtable: AddRef and Release. On real
// Windows builds those functions are COM vtable calls; this package itself
// has no Windows dependency, which keeps the refcount bookkeeping
// independently testable.
package comhandle

// Ops supplies the two vtable operations a Ref needs. Callers resolve these
// once per interface pointer (e.g. from the first three IUnknown vtable
// slots) and hand them to Take/RefOf.
type Ops struct {
	AddRef  func(ptr uintptr) int32
	Release func(ptr uintptr) int32
}

// Ref is an owning handle to a refcounted interface pointer. The zero value
// is a valid empty handle.
type Ref struct {
	ptr uintptr
	ops Ops
}

// Take adopts ptr without incrementing its refcount — use this for a
// pointer freshly returned by a COM factory function (CreateDevice,
// QueryInterface, ...), which already carries one reference on behalf of
// the caller.
func Take(ptr uintptr, ops Ops) Ref {
	if ptr == 0 {
		return Ref{}
	}
	return Ref{ptr: ptr, ops: ops}
}

// RefOf increments ptr's refcount and stores it — use this when wrapping a
// pointer you do not otherwise own (e.g. one borrowed from a struct field).
func RefOf(ptr uintptr, ops Ops) Ref {
	if ptr == 0 {
		return Ref{}
	}
	ops.AddRef(ptr)
	return Ref{ptr: ptr, ops: ops}
}

// Clone creates a second owning handle to the same object, incrementing the
// refcount. This is the copy operation; Go's assignment alone must never be
// used to duplicate a Ref because that would share one release between two
// owners.
func (r Ref) Clone() Ref {
	if r.ptr == 0 {
		return Ref{}
	}
	r.ops.AddRef(r.ptr)
	return r
}

// Move transfers ownership out of r, leaving r empty. Unlike Clone, this
// does not touch the refcount.
func (r *Ref) Move() Ref {
	out := *r
	*r = Ref{}
	return out
}

// Ptr returns the raw pointer for passing to a COM call. It does not affect
// ownership; callers must not Release it themselves.
func (r Ref) Ptr() uintptr {
	return r.ptr
}

// Valid reports whether the handle wraps a non-null pointer.
func (r Ref) Valid() bool {
	return r.ptr != 0
}

// Clear releases the held reference, if any, and zeros the handle. Calling
// Clear on an already-empty handle is a no-op.
func (r *Ref) Clear() {
	if r.ptr != 0 {
		r.ops.Release(r.ptr)
	}
	*r = Ref{}
}

// Query performs a refcount-preserving cross-interface cast: queryFn is
// expected to be a QueryInterface call (vtable slot 0) that, on success,
// returns a new, already-AddRef'd pointer to the requested interface. The
// returned Ref takes ownership of that new reference; it does not touch r.
func Query(queryFn func() (uintptr, error), ops Ops) (Ref, error) {
	ptr, err := queryFn()
	if err != nil {
		return Ref{}, err
	}
	return Take(ptr, ops), nil
}
