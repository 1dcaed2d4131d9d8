package heap

import "github.com/zopsicle/snowflake-sub000/internal/bytecode"

// This file provides the "new = alloc + init" constructors that make
// up the runtime's external object-creation interface, one per object
// kind. Undef and Boolean never allocate: they always resolve to one
// of the heap's four pre-allocated singletons.

// NewUndef stores the heap's pre-allocated undef object into into.
func NewUndef(m *Mutator, into *StackRoot) {
	into.Set(m.heap.preAlloc.Undef())
}

// NewBooleanFromBool stores one of the heap's two pre-allocated
// boolean objects into into.
func NewBooleanFromBool(m *Mutator, into *StackRoot, value bool) {
	if value {
		into.Set(m.heap.preAlloc.BooleanTrue())
	} else {
		into.Set(m.heap.preAlloc.BooleanFalse())
	}
}

// NewStringFromFn allocates a string object of the given length,
// filled by fill, and stores it into into. Zero-length requests reuse
// the heap's pre-allocated empty-string singleton rather than
// allocating, mirroring the Undef/Boolean singleton treatment.
func NewStringFromFn(m *Mutator, into *StackRoot, length uintptr, fill func([]byte)) error {
	if length == 0 {
		into.Set(m.heap.preAlloc.EmptyString())
		return nil
	}

	info, err := stringCreateInfo(length, fill)
	if err != nil {
		return err
	}

	p, err := m.Allocate(info.size)
	if err != nil {
		return err
	}

	into.Set(info.init(p))
	return nil
}

// NewArrayFromFn allocates an array object of the given length, filled
// by fill, and stores it into into. If fill writes an element that
// references a compacted object, the mutator's heap must already be a
// shared owner of that object's compact region.
func NewArrayFromFn(m *Mutator, into *StackRoot, length uintptr, fill func([]ObjectRef)) error {
	info, err := arrayCreateInfo(length, fill)
	if err != nil {
		return err
	}

	p, err := m.Allocate(info.size)
	if err != nil {
		return err
	}

	into.Set(info.init(p))
	return nil
}

// NewSlotFromObjectRef allocates a mutable reference cell pointing at
// ref and stores it into into. Panics if ref fails the heap-escape
// check of m's heap (see Heap.checkOwner).
func NewSlotFromObjectRef(m *Mutator, into *StackRoot, ref ObjectRef) error {
	m.heap.checkOwner(ref)

	info := slotCreateInfo(ref)

	p, err := m.Allocate(info.size)
	if err != nil {
		return err
	}

	into.Set(info.init(p))
	return nil
}

// NewProcedure allocates a subroutine object wrapping a verified
// bytecode procedure and stores it into into.
func NewProcedure(m *Mutator, into *StackRoot, procedure *bytecode.Verified) error {
	info := procedureCreateInfo(procedure)

	p, err := m.Allocate(info.size)
	if err != nil {
		return err
	}

	into.Set(info.init(p))
	return nil
}

// NewCompactRegionHandleFromCompactRegion allocates a handle object
// referencing region and stores it into into. The mutator's heap
// becomes a shared owner of region, since a garbage-collected heap
// must share ownership of any compact region it could hold references
// into.
func NewCompactRegionHandleFromCompactRegion(m *Mutator, into *StackRoot, region *CompactRegion) error {
	m.heap.addCompactRegion(region.Clone())

	info := compactRegionHandleCreateInfo(region)

	p, err := m.Allocate(info.size)
	if err != nil {
		return err
	}

	into.Set(info.init(p))
	return nil
}
