package value

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// onHeapKind enumerates the kinds of records a pointer-tagged Value may
// reference. Only strings are on-heap today; this enum exists to leave
// room for additional on-heap kinds without reshaping the header.
type onHeapKind uint32

const onHeapKindString onHeapKind = 0b0000

// onHeapHeader is the fixed 8-byte-aligned prefix of every on-heap
// record: a 32-bit atomic refcount and a 32-bit extra word whose low
// nibble carries the on-heap kind tag.
type onHeapHeader struct {
	refCount  uint32
	extraWord uint32
}

func (h *onHeapHeader) kind() Kind {
	switch onHeapKind(h.extraWord & 0b1111) {
	case onHeapKindString:
		return KindString
	default:
		panic("value: corrupt on-heap extra word")
	}
}

func onHeapHeaderOf(v Value) *onHeapHeader {
	return (*onHeapHeader)(unsafe.Pointer(uintptr(v)))
}

// registry keeps the backing allocation for every live on-heap record
// reachable, since a bare unsafe.Pointer derived from uintptr(v) is
// invisible to the Go garbage collector. A mutex-guarded side table is
// the idiomatic Go stand-in for a manual allocator's address space.
var registry = struct {
	mu sync.Mutex
	m  map[uintptr][]byte
}{m: make(map[uintptr][]byte)}

func registerOnHeap(buf []byte) uintptr {
	addr := uintptr(unsafe.Pointer(&buf[0]))
	registry.mu.Lock()
	registry.m[addr] = buf
	registry.mu.Unlock()
	return addr
}

func unregisterOnHeap(addr uintptr) {
	registry.mu.Lock()
	delete(registry.m, addr)
	registry.mu.Unlock()
}

// maxRefCount is the refcount saturation threshold: a clone that would
// push the count past it aborts the process rather than wrap.
const maxRefCount = 1<<31 - 1

// Clone increments the refcount of a pointer-tagged value with relaxed
// ordering and returns v unchanged (the same bit pattern is shared by
// every clone). Aborts the process if the refcount would exceed
// maxRefCount.
func (v Value) Clone() Value {
	if !v.IsOnHeap() {
		return v
	}
	h := onHeapHeaderOf(v)
	old := atomic.AddUint32(&h.refCount, 1) - 1
	if old >= maxRefCount {
		panic("value: refcount overflow")
	}
	return v
}

// Drop decrements the refcount of a pointer-tagged value with release
// ordering; on the count reaching zero, it performs an
// acquire-fence-then-destroy sequence. Inline values are a no-op.
func (v Value) Drop() {
	if !v.IsOnHeap() {
		return
	}
	h := onHeapHeaderOf(v)
	// sync/atomic has no standalone release-store/acquire-fence pair;
	// AddUint32 is a full read-modify-write which provides the
	// necessary happens-before edge on every architecture Go supports,
	// so a prior writer's payload writes are visible here once the
	// count reaches zero.
	remaining := atomic.AddUint32(&h.refCount, ^uint32(0))
	if remaining != 0 {
		return
	}
	destroyOnHeap(v, h)
}

func destroyOnHeap(v Value, h *onHeapHeader) {
	switch h.kind() {
	case KindString:
		destroyOnHeapString(v)
	default:
		panic("value: destroy of corrupt on-heap kind")
	}
}
