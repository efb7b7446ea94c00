package comhandle

import "testing"

// fakeObject simulates a COM object's refcount for conservation testing.
type fakeObject struct {
	count int32
}

func (o *fakeObject) ops() Ops {
	return Ops{
		AddRef: func(uintptr) int32 {
			o.count++
			return o.count
		},
		Release: func(uintptr) int32 {
			o.count--
			return o.count
		},
	}
}

func TestTakeDoesNotIncrement(t *testing.T) {
	obj := &fakeObject{count: 1} // factory call already left one ref
	r := Take(1, obj.ops())
	if obj.count != 1 {
		t.Fatalf("Take must not AddRef, count = %d", obj.count)
	}
	r.Clear()
	if obj.count != 0 {
		t.Fatalf("Clear must Release, count = %d", obj.count)
	}
}

func TestCloneIncrementsAndEachClearDecrements(t *testing.T) {
	obj := &fakeObject{count: 1}
	a := Take(1, obj.ops())
	b := a.Clone()

	if obj.count != 2 {
		t.Fatalf("Clone must AddRef, count = %d", obj.count)
	}

	b.Clear()
	if obj.count != 1 {
		t.Fatalf("count after first Clear = %d, want 1", obj.count)
	}
	a.Clear()
	if obj.count != 0 {
		t.Fatalf("count after second Clear = %d, want 0", obj.count)
	}
}

func TestMoveTransfersWithoutRefcountChange(t *testing.T) {
	obj := &fakeObject{count: 1}
	a := Take(1, obj.ops())
	b := a.Move()

	if a.Valid() {
		t.Fatalf("source handle must be empty after Move")
	}
	if obj.count != 1 {
		t.Fatalf("Move must not touch refcount, count = %d", obj.count)
	}
	b.Clear()
	if obj.count != 0 {
		t.Fatalf("count after Clear = %d, want 0", obj.count)
	}
}

func TestClearOnEmptyHandleIsNoOp(t *testing.T) {
	var r Ref
	r.Clear() // must not panic or touch any Ops
	if r.Valid() {
		t.Fatalf("empty handle must stay empty")
	}
}

func TestQueryTakesOwnershipOfNewReference(t *testing.T) {
	obj := &fakeObject{count: 1}
	derived := &fakeObject{count: 0}

	r, err := Query(func() (uintptr, error) {
		derived.count++ // QueryInterface's implicit AddRef on success
		return 2, nil
	}, derived.ops())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obj.count != 1 {
		t.Fatalf("Query must not touch the source object, count = %d", obj.count)
	}
	if derived.count != 1 {
		t.Fatalf("derived count = %d, want 1", derived.count)
	}
	r.Clear()
	if derived.count != 0 {
		t.Fatalf("derived count after Clear = %d, want 0", derived.count)
	}
}

// TestConservationAcrossMixedSequence checks that for any sequence of
// clone/move/clear operations, the net refcount change equals the number of
// handles still alive at the end.
func TestConservationAcrossMixedSequence(t *testing.T) {
	obj := &fakeObject{count: 1}
	root := Take(1, obj.ops())

	alive := []Ref{root}
	alive = append(alive, alive[0].Clone())       // +1
	alive = append(alive, alive[1].Clone())       // +1
	moved := alive[2].Move()                      // no change, alive[2] now empty
	alive[2] = Ref{}
	alive = append(alive, moved)

	if obj.count != 3 {
		t.Fatalf("count = %d, want 3 live refs", obj.count)
	}

	live := 0
	for i := range alive {
		if alive[i].Valid() {
			live++
			alive[i].Clear()
		}
	}
	if live != 3 {
		t.Fatalf("expected 3 live handles before clearing, got %d", live)
	}
	if obj.count != 0 {
		t.Fatalf("count after clearing all = %d, want 0", obj.count)
	}
}
