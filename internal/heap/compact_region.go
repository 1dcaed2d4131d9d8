package heap

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// CompactRegion is an immutable, reference-counted sibling heap: an
// object allocated in a compact region is never moved, never
// individually freed, and may only reference other compacted objects.
type CompactRegion struct {
	refCount int32

	mu              sync.Mutex
	ownedRegions    map[*CompactRegion]*CompactRegion
	allocationBlock *Block
	retiredBlocks   []*Block
}

// NewCompactRegion creates an empty compact region with one owning
// reference, which the caller must eventually Drop.
func NewCompactRegion(initialBlockSize uintptr) (*CompactRegion, error) {
	r := &CompactRegion{
		refCount:     1,
		ownedRegions: make(map[*CompactRegion]*CompactRegion),
	}

	blk, err := NewBlockWithSize(initialBlockSize, headerForCompactRegion(r))
	if err != nil {
		return nil, err
	}
	r.allocationBlock = blk

	return r, nil
}

const maxInt32 = 1<<31 - 1

// Clone increments the region's refcount and returns a new owning
// reference to the same region.
func (r *CompactRegion) Clone() *CompactRegion {
	old := atomic.AddInt32(&r.refCount, 1) - 1
	if old >= maxInt32 {
		panicRefcountOverflow()
	}
	return r
}

// Drop releases one owning reference; when the count reaches zero the
// region's blocks are reclaimed all at once. Individually compacted
// objects are never reclaimed before that point. A cycle between two
// regions keeps both refcounts above zero forever; this is an accepted
// leak rather than something this package detects or breaks.
func (r *CompactRegion) Drop() {
	remaining := atomic.AddInt32(&r.refCount, -1)
	if remaining != 0 {
		return
	}

	r.mu.Lock()
	owned := r.ownedRegions
	retired := r.retiredBlocks
	active := r.allocationBlock
	r.mu.Unlock()

	for _, blk := range retired {
		_ = releaseMemory(blk.mem)
	}
	if active != nil {
		_ = releaseMemory(active.mem)
	}
	for _, o := range owned {
		o.Drop()
	}
}

// Lock acquires the region's single allocation mutex and returns a
// Compactor, amortizing one lock acquisition across a batch of
// allocations.
func (r *CompactRegion) Lock() *Compactor {
	r.mu.Lock()
	return &Compactor{region: r}
}

// Compactor is a locked handle used to allocate objects into a
// CompactRegion. Unlock must be called exactly once.
type Compactor struct {
	region *CompactRegion
}

// Unlock releases the region's allocation mutex.
func (c *Compactor) Unlock() {
	c.region.mu.Unlock()
}

// allocRaw bumps the region's current allocation block, installing a
// fresh one on exhaustion exactly like Mutator.allocateSlow, but
// without donating to a heap's retired list — the region owns its own.
func (c *Compactor) allocRaw(size uintptr) (unsafe.Pointer, error) {
	r := c.region
	if p := r.allocationBlock.TryAlloc(size); p != nil {
		return p, nil
	}

	fresh, err := NewBlockWithSize(size, headerForCompactRegion(r))
	if err != nil {
		return nil, err
	}

	r.retiredBlocks = append(r.retiredBlocks, r.allocationBlock)
	r.allocationBlock = fresh

	p := r.allocationBlock.TryAlloc(size)
	if p == nil {
		return nil, ErrSizeOverflow
	}

	return p, nil
}

// NewUndef allocates an undef object into the region.
func (c *Compactor) NewUndef() (ObjectRef, error) {
	info := undefCreateInfo()
	p, err := c.allocRaw(info.size)
	if err != nil {
		return ObjectRef{}, err
	}
	return info.init(p), nil
}

// NewBooleanFromBool allocates a boolean object into the region.
func (c *Compactor) NewBooleanFromBool(value bool) (ObjectRef, error) {
	info := booleanCreateInfo(value)
	p, err := c.allocRaw(info.size)
	if err != nil {
		return ObjectRef{}, err
	}
	return info.init(p), nil
}

// NewStringFromFn allocates a string object into the region, filled by fn.
func (c *Compactor) NewStringFromFn(length uintptr, fill func([]byte)) (ObjectRef, error) {
	info, err := stringCreateInfo(length, fill)
	if err != nil {
		return ObjectRef{}, err
	}
	p, err := c.allocRaw(info.size)
	if err != nil {
		return ObjectRef{}, err
	}
	return info.init(p), nil
}

// NewArrayFromFn allocates an array object into the region, filled by
// fn. Every element fn writes that references another compact region
// must already be covered by a prior NewCompactRegionHandleFromCompactRegion
// call on this same Compactor, which acquires shared ownership of that
// region first.
func (c *Compactor) NewArrayFromFn(length uintptr, fill func([]ObjectRef)) (ObjectRef, error) {
	info, err := arrayCreateInfo(length, fill)
	if err != nil {
		return ObjectRef{}, err
	}
	p, err := c.allocRaw(info.size)
	if err != nil {
		return ObjectRef{}, err
	}
	return info.init(p), nil
}

// NewCompactRegionHandleFromCompactRegion allocates a handle object
// referencing other, acquiring shared ownership of it first. Repeated
// calls naming the same region are idempotent: ownership is tracked in
// a set, so a second Clone is never taken.
func (c *Compactor) NewCompactRegionHandleFromCompactRegion(other *CompactRegion) (ObjectRef, error) {
	c.region.acquireOwnership(other)

	info := compactRegionHandleCreateInfo(other)
	p, err := c.allocRaw(info.size)
	if err != nil {
		return ObjectRef{}, err
	}
	return info.init(p), nil
}

func (r *CompactRegion) acquireOwnership(other *CompactRegion) {
	if other == r {
		return // a region never needs to own itself
	}
	if _, ok := r.ownedRegions[other]; ok {
		return
	}
	r.ownedRegions[other] = other.Clone()
}

// ExportBlocks returns the raw bytes of every block owned by the
// region (retired blocks first, then the current allocation block),
// for transport by internal/heap/regionxfer. Each returned slice
// includes the BlockHeader prefix; the receiving process never
// dereferences that header's owner pointer, since it is meaningless
// outside the sending process's address space (see ImportCompactRegion
// for how it is rewritten on import).
func (r *CompactRegion) ExportBlocks() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	blocks := make([][]byte, 0, len(r.retiredBlocks)+1)
	for _, blk := range r.retiredBlocks {
		blocks = append(blocks, blk.mem)
	}
	if r.allocationBlock != nil {
		blocks = append(blocks, r.allocationBlock.mem)
	}

	return blocks
}

// ImportCompactRegion reconstructs a read-only CompactRegion from
// block bytes produced by ExportBlocks, copying each block into fresh
// BlockAlign-aligned memory and rewriting its header
// to point at the new region value before trusting HeaderOf on any of
// its objects. The imported region has no active allocation block:
// compacted objects are immutable, so a receiver never allocates into
// a region it merely borrowed over the wire.
func ImportCompactRegion(blockBytes [][]byte) (*CompactRegion, error) {
	r := &CompactRegion{
		refCount:     1,
		ownedRegions: make(map[*CompactRegion]*CompactRegion),
	}

	for _, src := range blockBytes {
		if uintptr(len(src)) < headerSize {
			return nil, ErrSizeOverflow
		}
		mem, err := acquireAlignedMemory(uintptr(len(src)), BlockAlign)
		if err != nil {
			return nil, ErrAllocationFailed
		}
		copy(mem, src)
		blk := &Block{mem: mem, header: (*BlockHeader)(unsafe.Pointer(&mem[0])), next: uintptr(len(mem))}
		*blk.header = headerForCompactRegion(r)
		r.retiredBlocks = append(r.retiredBlocks, blk)
	}

	return r, nil
}

// NewSlotFromObjectRef does not exist on Compactor: compacted objects
// are immutable and may not contain a Slot, which is inherently
// mutable. The method is simply omitted rather than provided as one
// that always panics.
