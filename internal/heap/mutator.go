package heap

import "unsafe"

// Mutator is a per-thread allocation context bound to exactly one heap
// for its lifetime. It must not be shared between
// goroutines/threads; create one per OS thread that touches the heap.
type Mutator struct {
	heap       *Heap
	allocBlock *Block
	dropped    bool

	rootBatches []*StackRootBatch
	pinnedStack []*PinnedStackRoot
}

// NewMutator allocates an initial block and registers m with h. The
// source pins the mutator in a Box so it cannot move; this port relies
// on Go's reference semantics for *Mutator instead — callers must not
// copy a Mutator value, only ever hold it by pointer.
func NewMutator(h *Heap) (*Mutator, error) {
	m := &Mutator{heap: h}

	blk, err := NewBlockWithSize(h.config.InitialBlockSize, headerForMutator(m))
	if err != nil {
		return nil, err
	}
	m.allocBlock = blk

	h.registerMutator(m)

	return m, nil
}

// Drop transfers the mutator's current allocation block to the heap's
// retired list, then unregisters it.
// Calling Drop twice is a use-after-drop invariant violation and
// aborts.
func (m *Mutator) Drop() {
	if m.dropped {
		panicUseAfterDropOfMutator()
	}
	m.dropped = true

	m.heap.addBlock(m.allocBlock)
	m.allocBlock = nil
	m.heap.unregisterMutator(m)
}

// Heap returns the heap this mutator belongs to.
func (m *Mutator) Heap() *Heap { return m.heap }

// SafePoint offers a point at which collection may proceed. It blocks
// only if a collection has been requested, and only until that
// collection releases the world.
func (m *Mutator) SafePoint() {
	m.heap.coordinator.enter()
}

// SafePointWith enters the safe point, then runs f. f must not
// allocate, mutate objects, or read unpinned objects, since the
// collector may run concurrently with it. The call blocks
// after f returns until the collection, if one was running, finishes.
func (m *Mutator) SafePointWith(f func()) {
	gen := m.heap.coordinator.enterUnconditional()
	f()
	m.heap.coordinator.waitForGenerationPast(gen)
}

// largeObjectThreshold routes oversized allocations to their own
// ad-hoc block instead of the mutator's shared bump block.
const largeObjectThreshold = DefaultBlockSize

// Allocate reserves n uninitialized, ObjectAlign-rounded bytes. The
// caller must fully initialize the returned memory before the next
// safe point: until then, the collector cannot yet see it
// as a well-formed object, but it also cannot run, since allocation is
// not itself a safe point.
func (m *Mutator) Allocate(n uintptr) (unsafe.Pointer, error) {
	if m.dropped {
		panicUseAfterDropOfMutator()
	}

	if n > largeObjectThreshold {
		return m.allocateLarge(n)
	}

	if p := m.allocBlock.TryAlloc(n); p != nil {
		return p, nil
	}

	return m.allocateSlow(n)
}

// allocateSlow installs a fresh block and retries, donating the old,
// now-full block to the heap's retired list.
func (m *Mutator) allocateSlow(n uintptr) (unsafe.Pointer, error) {
	fresh, err := NewBlockWithSize(m.heap.config.InitialBlockSize, headerForMutator(m))
	if err != nil {
		return nil, err
	}

	old := m.allocBlock
	m.allocBlock = fresh
	m.heap.addBlock(old)

	p := m.allocBlock.TryAlloc(n)
	if p == nil {
		return nil, ErrSizeOverflow
	}

	return p, nil
}

// allocateLarge creates an ad-hoc block sized exactly for n and
// retires it immediately; it never becomes the mutator's active
// allocation block.
func (m *Mutator) allocateLarge(n uintptr) (unsafe.Pointer, error) {
	blk, err := NewBlockWithSize(n, headerForMutator(m))
	if err != nil {
		return nil, err
	}

	p := blk.TryAlloc(n)
	if p == nil {
		return nil, ErrSizeOverflow
	}

	m.heap.addBlock(blk)

	return p, nil
}

// WithStackRoots allocates a batch of n stack roots (each initialized
// to the heap's pre-allocated undef), pushes it onto the mutator's
// root-batch stack, runs f, and pops the batch on both normal and
// panicking exit. Panics if the mutator already has
// Config.StackRootBatchCapacity batches open, guarding against
// runaway nesting in host code.
//
// Go has no const generics, so N is supplied as an ordinary int
// parameter rather than a type parameter.
func (m *Mutator) WithStackRoots(n int, f func(*StackRootBatch) error) error {
	if len(m.rootBatches) >= m.heap.config.StackRootBatchCapacity {
		panicTooManyStackRootBatches()
	}

	batch := &StackRootBatch{roots: make([]StackRoot, n)}
	undef := m.heap.preAlloc.Undef()
	for i := range batch.roots {
		batch.roots[i] = StackRoot{mutator: m, value: undef}
	}

	m.rootBatches = append(m.rootBatches, batch)
	defer m.popRootBatch(batch)

	return f(batch)
}

func (m *Mutator) popRootBatch(batch *StackRootBatch) {
	n := len(m.rootBatches)
	if n == 0 || m.rootBatches[n-1] != batch {
		panicScopeNotTopmost()
	}
	m.rootBatches = m.rootBatches[:n-1]
}

// WithPinnedStackRoot installs exactly one pinned stack root over
// value, runs f, and pops it on exit. Unlike a plain stack root, the
// object referenced by a pinned stack root may not be moved by the
// collector for the duration of f.
func (m *Mutator) WithPinnedStackRoot(value ObjectRef, f func(*PinnedStackRoot) error) error {
	root := &PinnedStackRoot{mutator: m, value: value}

	m.pinnedStack = append(m.pinnedStack, root)
	defer m.popPinnedStackRoot(root)

	return f(root)
}

func (m *Mutator) popPinnedStackRoot(root *PinnedStackRoot) {
	n := len(m.pinnedStack)
	if n == 0 || m.pinnedStack[n-1] != root {
		panicScopeNotTopmost()
	}
	m.pinnedStack = m.pinnedStack[:n-1]
}

// forEachRoot visits every object directly reachable from this
// mutator's open batches and pinned stack roots, for use by a
// CollectionStrategy's mark phase.
func (m *Mutator) forEachRoot(visit func(ObjectRef)) {
	for _, batch := range m.rootBatches {
		for i := range batch.roots {
			visit(batch.roots[i].value)
		}
	}
	for _, root := range m.pinnedStack {
		visit(root.value)
	}
}
