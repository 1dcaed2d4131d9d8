package heap

// UnsafeRef is the zero-overhead root-handle flavor: a raw ObjectRef
// with no lifetime guarantee of its own. It may dangle across a safe
// point once the collector has had a chance to move or reclaim its
// target.
type UnsafeRef = ObjectRef

// Borrower is the read capability shared by every root-handle flavor:
// `borrow() -> unsafe-ref` from the ladder's shared capability set.
type Borrower interface {
	Borrow() UnsafeRef
}

// Pinner is the upgrade capability shared by every root-handle flavor:
// `pin() -> pinned-root` from the ladder's shared capability set.
type Pinner interface {
	Pinner() PinnedRoot
}

// StackRoot is a GC-rewritable cell living in a StackRootBatch on the
// host call stack. The collector may move the referenced object and
// rewrite this cell in place, but the cell itself is not protected
// from being read while dangling outside a safe point (ladder row 2).
type StackRoot struct {
	mutator *Mutator
	value   ObjectRef
}

func (s *StackRoot) Borrow() UnsafeRef { return s.value }

func (s *StackRoot) Heap() *Heap { return s.mutator.heap }

// Set overwrites the cell's contents. Used both by host code storing a
// freshly allocated object and, conceptually, by a moving collector's
// rewrite pass. Panics if v fails the heap-escape check of the heap
// this root's mutator belongs to (see Heap.checkOwner).
func (s *StackRoot) Set(v ObjectRef) {
	s.mutator.heap.checkOwner(v)
	s.value = v
}

func (s *StackRoot) Pinner() PinnedRoot { return s.mutator.heap.newPinnedRoot(s.value) }

// StackRootBatch is the batch of stack roots pushed by one call to
// Mutator.WithStackRoots. Go lacks const generics, so N is an ordinary
// int argument and the roots live in a slice of that length rather
// than in an array type.
type StackRootBatch struct {
	roots []StackRoot
}

// At returns the i'th root of the batch.
func (b *StackRootBatch) At(i int) *StackRoot { return &b.roots[i] }

// Len reports how many roots the batch holds.
func (b *StackRootBatch) Len() int { return len(b.roots) }

// PinnedStackRoot is a scope-bound root that additionally inhibits
// movement of its target for as long as the scope is open (ladder row
// 3). It is pushed onto the mutator's pin stack at creation
// and popped at scope exit via WithPinnedStackRoot.
type PinnedStackRoot struct {
	mutator *Mutator
	value   ObjectRef
}

func (p *PinnedStackRoot) Borrow() UnsafeRef { return p.value }

func (p *PinnedStackRoot) Heap() *Heap { return p.mutator.heap }

func (p *PinnedStackRoot) Pinner() PinnedRoot { return p.mutator.heap.newPinnedRoot(p.value) }

// PinnedRoot is a heap-registered, clonable, cross-thread-movable root.
// Its existence is tracked in the heap's
// pin-count map; Clone increments, Drop decrements, and the entry is
// removed when the count reaches zero.
type PinnedRoot struct {
	heap  *Heap
	value ObjectRef
}

func (p PinnedRoot) Borrow() UnsafeRef { return p.value }

func (p PinnedRoot) Heap() *Heap { return p.heap }

func (p PinnedRoot) Pinner() PinnedRoot { return p.heap.newPinnedRoot(p.value) }

// Clone increments the pin count for the referenced object and
// returns a new handle sharing it.
func (p PinnedRoot) Clone() PinnedRoot {
	return p.heap.newPinnedRoot(p.value)
}

// Drop decrements the pin count for the referenced object, removing
// the pin-map entry once it reaches zero. Calling Drop on a PinnedRoot
// whose entry has already been fully released is a program error and
// aborts.
func (p PinnedRoot) Drop() {
	p.heap.releasePinned(p.value)
}
