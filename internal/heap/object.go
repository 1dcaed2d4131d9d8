package heap

import (
	"fmt"
	"unsafe"

	"github.com/zopsicle/snowflake-sub000/internal/bytecode"
)

// Kind discriminates the in-memory layout of a heap object. There are
// exactly seven: undef, boolean, string, array, slot, procedure, and a
// handle to a compact region.
type Kind uint8

const (
	KindUndef Kind = iota
	KindBoolean
	KindString
	KindArray
	KindSlot
	KindProcedure
	KindCompactRegionHandle
)

func (k Kind) String() string {
	switch k {
	case KindUndef:
		return "undef"
	case KindBoolean:
		return "boolean"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindSlot:
		return "slot"
	case KindProcedure:
		return "subroutine"
	case KindCompactRegionHandle:
		return "compact-region-handle"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// objectHeader is the leading field of every object layout.
type objectHeader struct {
	kind Kind
}

// ObjectRef is an unsafe pointer to an object's header. It carries no
// lifetime guarantee of its own — see root.go for the ladder of
// handles that make it safe to use across safe points.
type ObjectRef struct {
	ptr unsafe.Pointer
}

// Dangling returns an ObjectRef that does not point at a live object.
// It exists so a StackRoot can have a well-defined zero value before
// a real object is ever stored into it.
func Dangling() ObjectRef { return ObjectRef{} }

// IsDangling reports whether r was never assigned a real object.
func (r ObjectRef) IsDangling() bool { return r.ptr == nil }

// Kind reads the kind tag at the head of the referenced object.
func (r ObjectRef) Kind() Kind {
	return (*objectHeader)(r.ptr).kind
}

// Pointer exposes the raw address, for equality comparisons and for
// passing across the HeaderOf boundary. Never dereference this
// directly from outside the heap package.
func (r ObjectRef) Pointer() unsafe.Pointer { return r.ptr }

func (r ObjectRef) Equal(other ObjectRef) bool { return r.ptr == other.ptr }

// createInfo pairs a size computation with an initializer: every
// object kind's constructor first computes how many bytes it needs,
// then hands back a closure that writes the object's fields into
// freshly allocated memory of exactly that size.
type createInfo struct {
	size uintptr
	init func(unsafe.Pointer) ObjectRef
}

// --- Undef --------------------------------------------------------------

type undefObject struct {
	header objectHeader
}

func undefCreateInfo() createInfo {
	return createInfo{
		size: unsafe.Sizeof(undefObject{}),
		init: func(p unsafe.Pointer) ObjectRef {
			obj := (*undefObject)(p)
			obj.header = objectHeader{kind: KindUndef}
			return ObjectRef{ptr: p}
		},
	}
}

// --- Boolean --------------------------------------------------------------

type booleanObject struct {
	header objectHeader
	value  bool
}

func booleanCreateInfo(value bool) createInfo {
	return createInfo{
		size: unsafe.Sizeof(booleanObject{}),
		init: func(p unsafe.Pointer) ObjectRef {
			obj := (*booleanObject)(p)
			obj.header = objectHeader{kind: KindBoolean}
			obj.value = value
			return ObjectRef{ptr: p}
		},
	}
}

// ViewBoolean reads the value of a boolean object. Panics if r is not
// a boolean; callers are expected to dispatch on Kind first.
func ViewBoolean(r ObjectRef) bool {
	if r.Kind() != KindBoolean {
		panic("heap: ViewBoolean on non-boolean object")
	}
	return (*booleanObject)(r.ptr).value
}

// --- String -----------------------------------------------------------
//
// Trailing-array record: header, length, then len+1 bytes — the extra
// byte is an implicit terminating zero.

type stringObject struct {
	header objectHeader
	length uintptr
}

const stringHeaderSize = unsafe.Sizeof(stringObject{})

func stringSize(length uintptr) (uintptr, error) {
	total := stringHeaderSize + length + 1
	if total < stringHeaderSize {
		return 0, ErrSizeOverflow
	}
	return total, nil
}

func stringCreateInfo(length uintptr, fill func([]byte)) (createInfo, error) {
	size, err := stringSize(length)
	if err != nil {
		return createInfo{}, err
	}
	return createInfo{
		size: size,
		init: func(p unsafe.Pointer) ObjectRef {
			obj := (*stringObject)(p)
			obj.header = objectHeader{kind: KindString}
			obj.length = length

			buf := stringBytesSlice(p, length+1)
			fill(buf[:length])
			buf[length] = 0

			return ObjectRef{ptr: p}
		},
	}, nil
}

func stringBytesSlice(p unsafe.Pointer, n uintptr) []byte {
	base := unsafe.Add(p, stringHeaderSize)
	return unsafe.Slice((*byte)(base), n)
}

// ViewString returns the UTF-8 bytes of a string object (without the
// trailing zero byte).
func ViewString(r ObjectRef) []byte {
	if r.Kind() != KindString {
		panic("heap: ViewString on non-string object")
	}
	obj := (*stringObject)(r.ptr)
	return stringBytesSlice(r.ptr, obj.length)[:obj.length]
}

// --- Array --------------------------------------------------------------

type arrayObject struct {
	header objectHeader
	length uintptr
}

const arrayHeaderSize = unsafe.Sizeof(arrayObject{})
const objectRefSize = unsafe.Sizeof(ObjectRef{})

func arraySize(length uintptr) (uintptr, error) {
	payload := length * objectRefSize
	if objectRefSize != 0 && payload/objectRefSize != length {
		return 0, ErrSizeOverflow
	}
	total := arrayHeaderSize + payload
	if total < arrayHeaderSize {
		return 0, ErrSizeOverflow
	}
	return total, nil
}

func arrayCreateInfo(length uintptr, fill func([]ObjectRef)) (createInfo, error) {
	size, err := arraySize(length)
	if err != nil {
		return createInfo{}, err
	}
	return createInfo{
		size: size,
		init: func(p unsafe.Pointer) ObjectRef {
			obj := (*arrayObject)(p)
			obj.header = objectHeader{kind: KindArray}
			obj.length = length

			elems := arrayElemsSlice(p, length)
			fill(elems)

			return ObjectRef{ptr: p}
		},
	}, nil
}

func arrayElemsSlice(p unsafe.Pointer, n uintptr) []ObjectRef {
	base := unsafe.Add(p, arrayHeaderSize)
	return unsafe.Slice((*ObjectRef)(base), n)
}

// ViewArray returns the elements of an array object.
func ViewArray(r ObjectRef) []ObjectRef {
	if r.Kind() != KindArray {
		panic("heap: ViewArray on non-array object")
	}
	obj := (*arrayObject)(r.ptr)
	return arrayElemsSlice(r.ptr, obj.length)
}

// --- Slot -----------------------------------------------------------------
//
// A Slot is a single mutable reference cell. It cannot be compacted:
// compact regions require pure immutability, so Compactor simply never
// offers a constructor for one.

type slotObject struct {
	header objectHeader
	ref    ObjectRef
}

func slotCreateInfo(ref ObjectRef) createInfo {
	return createInfo{
		size: unsafe.Sizeof(slotObject{}),
		init: func(p unsafe.Pointer) ObjectRef {
			obj := (*slotObject)(p)
			obj.header = objectHeader{kind: KindSlot}
			obj.ref = ref
			return ObjectRef{ptr: p}
		},
	}
}

// ViewSlot reads the current contents of a slot.
func ViewSlot(r ObjectRef) ObjectRef {
	if r.Kind() != KindSlot {
		panic("heap: ViewSlot on non-slot object")
	}
	return (*slotObject)(r.ptr).ref
}

// SetSlot overwrites the contents of a slot. Only legal on objects in
// the GC heap; compacted slots do not exist (see above). When the slot
// lies in a heap-owned block, SetSlot panics if value fails that
// heap's checkOwner; slots allocated through a Mutator lie in
// mutator-owned blocks, so for them value is not checked.
func SetSlot(r ObjectRef, value ObjectRef) {
	if r.Kind() != KindSlot {
		panic("heap: SetSlot on non-slot object")
	}
	if h := HeaderOf(r.ptr).Heap(); h != nil {
		h.checkOwner(value)
	}
	(*slotObject)(r.ptr).ref = value
}

// --- Procedure (subroutine) ------------------------------------------------

type procedureObject struct {
	header    objectHeader
	procedure *bytecode.Verified
}

func procedureCreateInfo(procedure *bytecode.Verified) createInfo {
	return createInfo{
		size: unsafe.Sizeof(procedureObject{}),
		init: func(p unsafe.Pointer) ObjectRef {
			obj := (*procedureObject)(p)
			obj.header = objectHeader{kind: KindProcedure}
			obj.procedure = procedure
			return ObjectRef{ptr: p}
		},
	}
}

// ViewProcedure returns the verified bytecode wrapped by a subroutine object.
func ViewProcedure(r ObjectRef) *bytecode.Verified {
	if r.Kind() != KindProcedure {
		panic("heap: ViewProcedure on non-procedure object")
	}
	return (*procedureObject)(r.ptr).procedure
}

// --- CompactRegionHandle ----------------------------------------------

type compactRegionHandleObject struct {
	header objectHeader
	region *CompactRegion
}

func compactRegionHandleCreateInfo(region *CompactRegion) createInfo {
	return createInfo{
		size: unsafe.Sizeof(compactRegionHandleObject{}),
		init: func(p unsafe.Pointer) ObjectRef {
			obj := (*compactRegionHandleObject)(p)
			obj.header = objectHeader{kind: KindCompactRegionHandle}
			obj.region = region
			return ObjectRef{ptr: p}
		},
	}
}

// ViewCompactRegionHandle returns the region referenced by a handle object.
func ViewCompactRegionHandle(r ObjectRef) *CompactRegion {
	if r.Kind() != KindCompactRegionHandle {
		panic("heap: ViewCompactRegionHandle on non-handle object")
	}
	return (*compactRegionHandleObject)(r.ptr).region
}

// View is the tagged result of projecting an ObjectRef. Exactly one
// field is meaningful, selected by Kind.
type View struct {
	Kind    Kind
	Boolean bool
	String  []byte
	Array   []ObjectRef
	Slot    ObjectRef
	Proc    *bytecode.Verified
	Region  *CompactRegion
}

// ViewOf dispatches on r's kind tag and returns the corresponding
// borrowed variant. The returned View's slices/pointers alias the
// underlying object and must not outlive the root keeping r alive.
func ViewOf(r ObjectRef) View {
	switch r.Kind() {
	case KindUndef:
		return View{Kind: KindUndef}
	case KindBoolean:
		return View{Kind: KindBoolean, Boolean: ViewBoolean(r)}
	case KindString:
		return View{Kind: KindString, String: ViewString(r)}
	case KindArray:
		return View{Kind: KindArray, Array: ViewArray(r)}
	case KindSlot:
		return View{Kind: KindSlot, Slot: ViewSlot(r)}
	case KindProcedure:
		return View{Kind: KindProcedure, Proc: ViewProcedure(r)}
	case KindCompactRegionHandle:
		return View{Kind: KindCompactRegionHandle, Region: ViewCompactRegionHandle(r)}
	default:
		panic("heap: unreachable object kind")
	}
}
