package heap

import (
	"log"
	"math"
	"sync"
	"sync/atomic"
)

var nextHeapID uint64

// HeapStats is a point-in-time snapshot of a Heap's bookkeeping,
// exposed for observers and tests.
type HeapStats struct {
	RetiredBlocks  int
	LiveMutators   int
	PinnedObjects  int
	CompactRegions int
}

// Heap is the garbage-collected heap: owner of retired blocks, the
// pre-allocated singletons, the pin-count registry, and the registry
// of live mutators.
type Heap struct {
	id uint64

	config *Config

	mu             sync.Mutex
	retiredBlocks  []*Block
	mutators       map[*Mutator]struct{}
	pinCounts      map[ObjectRef]int32
	compactRegions map[*CompactRegion]struct{}

	preAlloc preAlloc

	coordinator safePointCoordinator
}

// WithHeap creates a heap, runs f with it, and destroys the heap on
// any exit path, whether f returns normally or panics. The returned
// error is f's error, if any; heap teardown itself cannot fail.
//
// Go has no invariant-lifetime brand to stop a *Heap's objects from
// escaping into another heap at compile time, so this package
// substitutes a runtime check: operations that accept a handle look up
// the owner recorded in the block header of the referenced object and
// panic if it names a different heap. See checkOwner for which objects
// the check covers.
func WithHeap(f func(*Heap) error, opts ...Option) (err error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	h := &Heap{
		id:             atomic.AddUint64(&nextHeapID, 1),
		config:         cfg,
		mutators:       make(map[*Mutator]struct{}),
		pinCounts:      make(map[ObjectRef]int32),
		compactRegions: make(map[*CompactRegion]struct{}),
	}
	h.coordinator.init()

	blk, blkErr := NewBlockWithSize(cfg.InitialBlockSize, headerForHeap(h))
	if blkErr != nil {
		return blkErr
	}

	pa, paErr := initPreAlloc(blk)
	if paErr != nil {
		return paErr
	}
	h.preAlloc = pa
	h.retiredBlocks = append(h.retiredBlocks, blk)

	defer func() {
		h.destroy()
	}()

	return f(h)
}

func (h *Heap) destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.pinCounts) != 0 {
		// The pin map must be empty at heap destruction. A non-empty map
		// here means some PinnedRoot was leaked (never Dropped) by host
		// code.
		panic("heap: pinned roots outstanding at heap destruction")
	}
	if len(h.mutators) != 0 {
		panic("heap: mutators still registered at heap destruction")
	}
}

// ID reports the heap's runtime brand.
func (h *Heap) ID() uint64 { return h.id }

// logger returns the heap's configured diagnostic logger, falling back
// to log.Default() if WithLogger was passed nil explicitly.
func (h *Heap) logger() *log.Logger {
	if h.config.Logger == nil {
		return log.Default()
	}
	return h.config.Logger
}

// checkOwner panics if ref lies in a block whose header names a heap
// other than h, the runtime stand-in for the source's type-level heap
// brand (see WithHeap doc). Only heap-owned blocks, such as the one
// holding the pre-allocated singletons, name a heap: objects in
// mutator-owned blocks or in compact regions pass unchecked, as do
// dangling references.
func (h *Heap) checkOwner(ref ObjectRef) {
	if ref.IsDangling() {
		return
	}
	owner := HeaderOf(ref.Pointer())
	if hp := owner.Heap(); hp != nil && hp != h {
		panicHeapEscape()
	}
}

// addBlock hands a full or donated block to the heap's retired list.
// Internal; invoked by Mutator.Drop and by the allocation slow path.
func (h *Heap) addBlock(b *Block) {
	h.mu.Lock()
	h.retiredBlocks = append(h.retiredBlocks, b)
	h.mu.Unlock()
}

func (h *Heap) registerMutator(m *Mutator) {
	h.mu.Lock()
	h.mutators[m] = struct{}{}
	h.mu.Unlock()
	h.logger().Printf("heap: mutator %p registered", m)
}

func (h *Heap) unregisterMutator(m *Mutator) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.mutators[m]; !ok {
		panicUseAfterDropOfMutator()
	}
	delete(h.mutators, m)
	h.logger().Printf("heap: mutator %p unregistered", m)
}

// newPinnedRoot increments the pin count for ref, creating the map
// entry if this is the first pin. Panics if ref fails checkOwner, or
// if its pin count has saturated int32.
func (h *Heap) newPinnedRoot(ref ObjectRef) PinnedRoot {
	h.checkOwner(ref)

	h.mu.Lock()
	if h.pinCounts[ref] == math.MaxInt32 {
		h.mu.Unlock()
		panicTooManyPinnedRoots()
	}
	h.pinCounts[ref]++
	h.mu.Unlock()
	return PinnedRoot{heap: h, value: ref}
}

// releasePinned decrements the pin count for ref, removing the entry
// once it reaches zero. Releasing an object with no outstanding pin is
// a program invariant violation.
func (h *Heap) releasePinned(ref ObjectRef) {
	h.mu.Lock()
	defer h.mu.Unlock()

	count, ok := h.pinCounts[ref]
	if !ok || count <= 0 {
		panicPinDoesNotExist()
	}
	if count == 1 {
		delete(h.pinCounts, ref)
		return
	}
	h.pinCounts[ref] = count - 1
}

// addCompactRegion makes the heap a shared owner of region, so that
// objects in the GC heap may safely hold references into compacted
// objects the region might contain.
func (h *Heap) addCompactRegion(region *CompactRegion) {
	h.mu.Lock()
	h.compactRegions[region] = struct{}{}
	h.mu.Unlock()
}

// PreAlloc exposes the heap's pre-allocated singletons: undef, the
// two booleans, and the empty string.
func (h *Heap) PreAlloc() *preAllocView { return &preAllocView{h: h} }

// preAllocView adapts preAlloc's unexported methods to a small public
// surface without exposing the preAlloc struct itself.
type preAllocView struct{ h *Heap }

func (v *preAllocView) Undef() ObjectRef       { return v.h.preAlloc.Undef() }
func (v *preAllocView) True() ObjectRef        { return v.h.preAlloc.BooleanTrue() }
func (v *preAllocView) False() ObjectRef       { return v.h.preAlloc.BooleanFalse() }
func (v *preAllocView) EmptyString() ObjectRef { return v.h.preAlloc.EmptyString() }

// Stats takes a point-in-time snapshot of the heap's bookkeeping.
func (h *Heap) Stats() HeapStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	return HeapStats{
		RetiredBlocks:  len(h.retiredBlocks),
		LiveMutators:   len(h.mutators),
		PinnedObjects:  len(h.pinCounts),
		CompactRegions: len(h.compactRegions),
	}
}

// RequestCollection publishes a collection request and blocks until
// every registered mutator has passed through a safe point, then runs
// strategy, then releases all parked mutators. This is the only place
// a collection cycle may run.
func (h *Heap) RequestCollection(strategy CollectionStrategy) {
	before := h.Stats()
	h.config.Observer.OnCycleStart(before)

	h.logger().Printf("heap: requesting safe point, waiting for %d live mutator(s)", before.LiveMutators)
	h.coordinator.requestAndWait(h.liveMutatorCount)
	h.logger().Printf("heap: all mutators parked, running %s", strategy.Name())
	strategy.Collect(h)
	h.coordinator.release()
	h.logger().Printf("heap: collection cycle released, mutators resuming")

	after := h.Stats()
	h.config.Observer.OnCycleEnd(after)
}

func (h *Heap) liveMutatorCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.mutators)
}
