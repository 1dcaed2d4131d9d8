package heap

import "errors"

// Recoverable error categories. Each is returned to the
// caller of the operation that failed; none aborts the process.
var (
	// ErrAllocationFailed indicates a block could not be acquired from
	// the operating system.
	ErrAllocationFailed = errors.New("heap: allocation failed")

	// ErrSizeOverflow indicates a requested object or block size does
	// not fit in the address space.
	ErrSizeOverflow = errors.New("heap: requested size overflows")
)

// Invariant violations abort the process via panic. These helpers
// centralize the diagnostic text so every call site is consistent.

func panicUseAfterDropOfMutator() {
	panic("heap: use of mutator after it was dropped")
}

func panicPinDoesNotExist() {
	panic("heap: release of a pin that does not exist")
}

func panicTooManyPinnedRoots() {
	panic("heap: too many pinned roots for object")
}

func panicRefcountOverflow() {
	panic("heap: refcount overflow")
}

func panicHeapEscape() {
	panic("heap: object escaped its originating heap scope")
}

func panicScopeNotTopmost() {
	panic("heap: scope closed out of LIFO order")
}

func panicTooManyStackRootBatches() {
	panic("heap: too many open stack-root batches for mutator")
}
